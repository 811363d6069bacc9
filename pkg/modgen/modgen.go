// Package modgen implements the Distributed Modulus Generator (spec.md
// §4.C, Component C): the cooperative generation of an RSA modulus N = p*q
// together with additive shares p_i, q_i of its factors, with no party ever
// learning p or q. It supports both the trusted-dealer fast path (testing
// only) and the fully interactive distributed-sieving protocol built from
// repeated BGW multiplications (pkg/bgw).
package modgen

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/luxfi/trsa/pkg/arith"
	"github.com/luxfi/trsa/pkg/network"
	"github.com/luxfi/trsa/pkg/party"
	"github.com/luxfi/trsa/pkg/trsaparams"
	"github.com/luxfi/trsa/pkg/xlog"
)

// MaxAttempts bounds the number of times the interactive protocol will
// regenerate N after a failed validation check before giving up (spec.md
// §7: "transient errors... are retried up to an implementation-defined
// bound").
const MaxAttempts = 16

// Result is the public and per-party output of modulus generation.
type Result struct {
	N *big.Int // public RSA modulus
	M *big.Int // large sharing prime, M > N

	PShares map[party.ID]*big.Int
	QShares map[party.ID]*big.Int
}

// TrustedDeal implements the fast, non-distributed path (spec.md §4.C
// "Trusted"): a dealer samples real primes p, q and hands out uniform
// additive shares. Intended for tests; off by default in any real
// deployment driver.
func TrustedDeal(random io.Reader, parties party.IDSlice, bitsSecure int) (*Result, error) {
	p, err := arith.RandPrime(random, bitsSecure)
	if err != nil {
		return nil, fmt.Errorf("modgen: sampling p: %w", err)
	}
	q, err := arith.RandPrime(random, bitsSecure)
	if err != nil {
		return nil, fmt.Errorf("modgen: sampling q: %w", err)
	}
	n := new(big.Int).Mul(p, q)

	m, err := shareModulus(random, n)
	if err != nil {
		return nil, err
	}

	pShares, err := splitAdditive(random, p, m, parties)
	if err != nil {
		return nil, fmt.Errorf("modgen: splitting p: %w", err)
	}
	qShares, err := splitAdditive(random, q, m, parties)
	if err != nil {
		return nil, fmt.Errorf("modgen: splitting q: %w", err)
	}

	return &Result{N: n, M: m, PShares: pShares, QShares: qShares}, nil
}

// splitAdditive samples n-1 shares uniform in [0,m) and sets the last share
// to the literal, unreduced remainder so that the shares sum to secret
// exactly over the integers, not merely mod m. The φ-trick of pkg/keyshare
// needs the actual shares p_i, q_i to sum exactly to p, q (spec.md
// invariant 2 is stated as a congruence, but component D's floor-division
// step is only correct under exact equality) — the trusted-dealer path
// gets this for free by never reducing the residual share; see DESIGN.md
// for why the interactive (BGW) path cannot make the same guarantee.
func splitAdditive(random io.Reader, secret, m *big.Int, parties party.IDSlice) (map[party.ID]*big.Int, error) {
	shares := make(map[party.ID]*big.Int, len(parties))
	sum := big.NewInt(0)
	for i, p := range parties {
		if i == len(parties)-1 {
			shares[p] = new(big.Int).Sub(secret, sum)
			continue
		}
		r, err := arith.RandInt(random, m)
		if err != nil {
			return nil, err
		}
		shares[p] = r
		sum.Add(sum, r)
	}
	return shares, nil
}

// shareModulus samples a ShareModulusBits-bit prime M, i.e. M in
// [2^(ShareModulusBits-1), 2^ShareModulusBits), larger than bound (spec.md §6 constants: M in
// [2^2050, 2^2051)).
func shareModulus(random io.Reader, bound *big.Int) (*big.Int, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		m, err := arith.RandPrime(random, trsaparams.ShareModulusBits)
		if err != nil {
			return nil, fmt.Errorf("modgen: sampling sharing modulus: %w", err)
		}
		if m.Cmp(bound) > 0 {
			return m, nil
		}
	}
	return nil, fmt.Errorf("modgen: could not sample a sharing modulus exceeding the bound after %d attempts", MaxAttempts)
}

// Interactive runs the fully distributed protocol: two independent,
// sequential distributed-sieving runs (one per factor) built from repeated BGW
// multiplications, a combining BGW round under a fresh modulus to obtain
// N = p*q, and the parallel-trial-division plus biprimality validation of
// spec.md §4.C. On a failed validation check it regenerates N and retries,
// up to MaxAttempts times.
func Interactive(net *network.Network, parties party.IDSlice, bitsSecure int) (*Result, error) {
	sieveBase := sieveBase(len(parties))

	for attempt := 0; attempt < MaxAttempts; attempt++ {
		m, err := arith.RandPrime(rand.Reader, trsaparams.ShareModulusBits)
		if err != nil {
			return nil, fmt.Errorf("modgen: sampling M: %w", err)
		}

		pShares, err := distributedFactor(net, m, parties, bitsSecure, sieveBase)
		if err != nil {
			return nil, fmt.Errorf("modgen: generating p: %w", err)
		}
		qShares, err := distributedFactor(net, m, parties, bitsSecure, sieveBase)
		if err != nil {
			return nil, fmt.Errorf("modgen: generating q: %w", err)
		}

		// Fresh modulus for the combining round; N < 2^(2*bitsSecure) always,
		// so any prime with more bits safely bounds it (spec.md §4.C: "one
		// more BGW under a fresh large prime M' > N").
		mPrime, err := arith.RandPrime(rand.Reader, 2*bitsSecure+32)
		if err != nil {
			return nil, fmt.Errorf("modgen: sampling combining modulus: %w", err)
		}

		nShares, err := runBGWRound(net, mPrime, parties, pShares, qShares)
		if err != nil {
			return nil, fmt.Errorf("modgen: combining p*q: %w", err)
		}

		n, err := reveal(net, mPrime, parties, nShares)
		if err != nil {
			return nil, fmt.Errorf("modgen: revealing N: %w", err)
		}

		ok, err := ParallelTrialDivision(net, parties, n)
		if err != nil {
			return nil, err
		}
		if !ok {
			xlog.Warn("modgen: N failed trial division, regenerating", "attempt", attempt)
			continue
		}

		prime, err := Biprimality(rand.Reader, net, parties, n, pShares, qShares)
		if err != nil {
			return nil, err
		}
		if !prime {
			xlog.Warn("modgen: N failed biprimality check, regenerating", "attempt", attempt)
			continue
		}

		return &Result{N: n, M: m, PShares: pShares, QShares: qShares}, nil
	}
	return nil, fmt.Errorf("modgen: exceeded %d attempts generating a valid N", MaxAttempts)
}

// sieveBase returns Π primes in (n, B1], the small-prime product used to
// certify that a party's local factor has no tiny prime divisors (spec.md
// §4.C "relatively prime to M = Π primes in (n, B1]").
func sieveBase(n int) *big.Int {
	base := big.NewInt(1)
	for _, p := range arith.PrimesInRange(n, trsaparams.SieveBound1) {
		base.Mul(base, p)
	}
	return base
}

// reveal sums the final N-shares and discloses the (public) result.
func reveal(net *network.Network, m *big.Int, parties party.IDSlice, shares map[party.ID]*big.Int) (*big.Int, error) {
	revealed, err := network.Broadcast(net, "reveal-N", func(id party.ID) (*big.Int, error) {
		return shares[id], nil
	})
	if err != nil {
		return nil, err
	}
	sum := big.NewInt(0)
	for _, id := range parties {
		v, ok := revealed[id]
		if !ok || v == nil {
			return nil, fmt.Errorf("modgen: missing N-share from %s", id)
		}
		sum.Add(sum, v)
	}
	return arith.Mod(sum, m), nil
}
