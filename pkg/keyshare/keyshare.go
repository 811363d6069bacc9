// Package keyshare implements the Private-Key Share Generator (spec.md
// §4.D, Component D): the φ-trick that turns additive shares of p, q into
// additive shares of the RSA private exponent d, with the trial-decryption
// correction for the ⌊·⌋ rounding error the trick introduces.
package keyshare

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/luxfi/trsa/pkg/arith"
	"github.com/luxfi/trsa/pkg/network"
	"github.com/luxfi/trsa/pkg/party"
	"github.com/luxfi/trsa/pkg/trsaerr"
)

// Generate derives additive shares d_i of the RSA private exponent from
// shares of p, q and the public modulus N (spec.md §4.D steps 1-6).
// parties[0] plays the distinguished "party 0" role the spec assigns
// (adding N+1 to its φ share, absorbing the trial-decryption correction).
func Generate(net *network.Network, parties party.IDSlice, n *big.Int, pShares, qShares map[party.ID]*big.Int, e *big.Int, testMessage *big.Int) (map[party.ID]*big.Int, error) {
	if len(parties) == 0 {
		return nil, fmt.Errorf("keyshare: empty party set")
	}
	leader := parties[0]

	phi := phiShares(parties, leader, n, pShares, qShares)

	psi, err := combinePhiModE(net, parties, phi, e)
	if err != nil {
		return nil, err
	}

	psiInv, err := arith.ModInverse(psi, e)
	if err != nil {
		// REDESIGN FLAG: gcd(phi(N), e) != 1 is error taxonomy case 1, the
		// same bad-modulus condition trial division and biprimality guard
		// against, not a fatal arithmetic precondition — the caller retries
		// Setup with a fresh N rather than aborting the process.
		return nil, trsaerr.New(trsaerr.ErrBadModulus, nil,
			fmt.Errorf("gcd(phi(N), e) != 1, N must be regenerated: %w", err))
	}

	d := make(map[party.ID]*big.Int, len(parties))
	for _, id := range parties {
		numerator := new(big.Int).Mul(phi[id], psiInv)
		numerator.Neg(numerator)
		if id == leader {
			numerator = new(big.Int).Sub(big.NewInt(1), new(big.Int).Mul(phi[id], psiInv))
		}
		d[id] = new(big.Int).Div(numerator, e)
	}

	if err := correctTrialDecryption(net, parties, leader, n, e, testMessage, d); err != nil {
		return nil, err
	}

	return d, nil
}

// phiShares computes φ_i = -(p_i+q_i) for every party, with the leader
// additionally adding N+1 so that Σ φ_i = φ(N) (spec.md §4.D step 1).
func phiShares(parties party.IDSlice, leader party.ID, n *big.Int, pShares, qShares map[party.ID]*big.Int) map[party.ID]*big.Int {
	phi := make(map[party.ID]*big.Int, len(parties))
	for _, id := range parties {
		sum := new(big.Int).Add(pShares[id], qShares[id])
		v := new(big.Int).Neg(sum)
		if id == leader {
			v.Add(v, new(big.Int).Add(n, big.NewInt(1)))
		}
		phi[id] = v
	}
	return phi
}

// combinePhiModE implements steps 2-3: each party additively splits its
// φ_i mod e into n summands, sends one to each party, every party sums the
// column it received and broadcasts that sum, and everyone sums the
// broadcast column sums to obtain ψ = φ(N) mod e.
func combinePhiModE(net *network.Network, parties party.IDSlice, phi map[party.ID]*big.Int, e *big.Int) (*big.Int, error) {
	deliveries, err := network.P2P(net, "phi-split", func(id party.ID) (map[party.ID]*big.Int, error) {
		return splitAdditiveModE(phi[id], e, parties)
	})
	if err != nil {
		return nil, fmt.Errorf("keyshare: splitting phi shares: %w", err)
	}

	columnSums, err := network.Broadcast(net, "phi-column-sum", func(id party.ID) (*big.Int, error) {
		sum := big.NewInt(0)
		for _, sender := range parties {
			v, ok := deliveries[id][sender]
			if !ok {
				return nil, trsaerr.New(trsaerr.ErrMissingBroadcast, party.IDSlice{sender}, nil)
			}
			sum.Add(sum, v)
		}
		return arith.Mod(sum, e), nil
	})
	if err != nil {
		return nil, err
	}

	psi := big.NewInt(0)
	for _, id := range parties {
		psi.Add(psi, columnSums[id])
	}
	return arith.Mod(psi, e), nil
}

// splitAdditiveModE decomposes secret mod e into len(parties) summands
// summing to secret mod e, one per recipient.
func splitAdditiveModE(secret, e *big.Int, parties party.IDSlice) (map[party.ID]*big.Int, error) {
	out := make(map[party.ID]*big.Int, len(parties))
	sum := big.NewInt(0)
	for i, id := range parties {
		if i == len(parties)-1 {
			out[id] = arith.Mod(new(big.Int).Sub(secret, sum), e)
			continue
		}
		r, err := arith.RandInt(rand.Reader, e)
		if err != nil {
			return nil, err
		}
		out[id] = r
		sum = arith.Mod(new(big.Int).Add(sum, r), e)
	}
	return out, nil
}

// correctTrialDecryption implements spec.md §4.D step 6: every party sends
// the leader m^{d_i*e} mod N; the leader multiplies them and brute-forces
// the unique epsilon in [0,n) making the product times m^{epsilon*e} equal
// m, then folds epsilon into its own share.
func correctTrialDecryption(net *network.Network, parties party.IDSlice, leader party.ID, n, e, m *big.Int, d map[party.ID]*big.Int) error {
	shares, err := network.Broadcast(net, "trial-decryption", func(id party.ID) (*big.Int, error) {
		exp := new(big.Int).Mul(d[id], e)
		return arith.PowMod(m, exp, n), nil
	})
	if err != nil {
		return err
	}

	product := big.NewInt(1)
	for _, id := range parties {
		v, ok := shares[id]
		if !ok || v == nil {
			return trsaerr.New(trsaerr.ErrMissingBroadcast, party.IDSlice{id}, nil)
		}
		product = arith.Mod(new(big.Int).Mul(product, v), n)
	}

	target := arith.Mod(m, n)
	numParties := len(parties)
	for eps := 0; eps < numParties; eps++ {
		candidate := arith.PowMod(m, new(big.Int).Mul(big.NewInt(int64(eps)), e), n)
		got := arith.Mod(new(big.Int).Mul(product, candidate), n)
		if got.Cmp(target) == 0 {
			d[leader] = new(big.Int).Add(d[leader], big.NewInt(int64(eps)))
			return nil
		}
	}
	return trsaerr.New(trsaerr.ErrArithmeticPrecondition, nil,
		fmt.Errorf("no trial-decryption correction epsilon in [0,%d) reconstructs the test message", numParties))
}
