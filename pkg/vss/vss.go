// Package vss implements Verifiable Secret Sharing / Dealing (spec.md
// §4.E, Component E): every party Shamir-shares its private-exponent share
// d_i under a degree-(k-1) polynomial over ℤ_M, broadcasting Feldman
// commitments to its coefficients so that every recipient can verify its
// evaluation without learning any other recipient's.
package vss

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/luxfi/trsa/pkg/arith"
	"github.com/luxfi/trsa/pkg/network"
	"github.com/luxfi/trsa/pkg/party"
	"github.com/luxfi/trsa/pkg/trsaerr"
)

// Dealing is the result of one round of VSS: each dealer's Feldman
// commitments to its polynomial coefficients, and the per-recipient Shamir
// evaluations every dealer sent out.
type Dealing struct {
	// Commitments[dealer][t] = g^{a_{dealer,t}} mod N, for t in [0,k), with
	// a_{dealer,0} = secrets[dealer].
	Commitments map[party.ID][]*big.Int
	// Shares[dealer][recipient] = f_dealer(recipient.Index()+1) mod M.
	Shares map[party.ID]map[party.ID]*big.Int
}

// Deal runs the full dealing round for every party in parties and verifies
// every recipient's evaluation against its dealer's commitments, returning
// a *trsaerr.ProtocolError naming the offending dealer on the first
// mismatch (spec.md §4.E: "Any mismatch aborts with the offending dealer
// identified"). Deal is a thin orchestration over the per-dealer Propose
// step and the cross-checking Verify step, both exported so a caller can
// drive either in isolation (e.g. to exercise Verify against a forged
// commitment/share pair without reimplementing the check).
func Deal(net *network.Network, parties party.IDSlice, k int, m, n, g *big.Int, secrets map[party.ID]*big.Int) (*Dealing, error) {
	for _, p := range parties {
		if secrets[p] == nil {
			return nil, fmt.Errorf("vss: no secret supplied for dealer %s", p)
		}
	}

	index := make(map[party.ID]int, len(parties))
	for i, p := range parties {
		index[p] = i
	}

	// commitmentSlots is written once per distinct index by each dealer's
	// own goroutine inside the P2P phase below; distinct slice elements
	// are safe to write concurrently with no shared mutable state.
	commitmentSlots := make([][]*big.Int, len(parties))

	shares, err := network.P2P(net, "vss-deal", func(dealer party.ID) (map[party.ID]*big.Int, error) {
		commitments, out, err := Propose(k, m, n, g, secrets[dealer], parties)
		if err != nil {
			return nil, fmt.Errorf("vss: dealing for %s: %w", dealer, err)
		}
		commitmentSlots[index[dealer]] = commitments
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	commitments := make(map[party.ID][]*big.Int, len(parties))
	for _, dealer := range parties {
		commitments[dealer] = commitmentSlots[index[dealer]]
	}

	if err := Verify(parties, commitments, shares, g, n); err != nil {
		return nil, err
	}

	return &Dealing{Commitments: commitments, Shares: shares}, nil
}

// Propose computes one dealer's Feldman-committed Shamir share set: a
// fresh degree-(k-1) polynomial over ℤ_M with secret as constant term,
// its Feldman commitments mod N, and its per-recipient evaluations.
func Propose(k int, m, n, g, secret *big.Int, parties party.IDSlice) ([]*big.Int, map[party.ID]*big.Int, error) {
	coeffs, err := samplePolynomial(k, m)
	if err != nil {
		return nil, nil, fmt.Errorf("vss: sampling polynomial: %w", err)
	}
	commitments := commitCoefficients(secret, coeffs, g, n)

	shares := make(map[party.ID]*big.Int, len(parties))
	for _, recipient := range parties {
		x := big.NewInt(int64(recipient.Index() + 1))
		shares[recipient] = evalAt(secret, coeffs, x, m)
	}
	return commitments, shares, nil
}

// Verify checks every recipient's evaluation against its dealer's Feldman
// commitments, returning a *trsaerr.ProtocolError naming the offending
// dealer on the first mismatch (spec.md §4.E's check). This is the same
// cross-check Deal runs internally; it is exported so a forged
// commitment/share pair can be driven through the real verification loop
// without Deal's network round-trip.
func Verify(parties party.IDSlice, commitments map[party.ID][]*big.Int, shares map[party.ID]map[party.ID]*big.Int, g, n *big.Int) error {
	for _, dealer := range parties {
		for _, recipient := range parties {
			lhs := arith.PowMod(g, shares[dealer][recipient], n)
			rhs := verifyEvaluation(commitments[dealer], recipient.Index()+1, n)
			if lhs.Cmp(rhs) != 0 {
				return trsaerr.New(trsaerr.ErrDealerMisbehavior, party.IDSlice{dealer}, fmt.Errorf(
					"commitment check failed for recipient %s", recipient))
			}
		}
	}
	return nil
}

// samplePolynomial samples the k-1 non-constant coefficients of a
// degree-(k-1) polynomial over ℤ_M (the constant term is the secret,
// supplied separately at evaluation time).
func samplePolynomial(k int, m *big.Int) ([]*big.Int, error) {
	coeffs := make([]*big.Int, k-1)
	for t := range coeffs {
		c, err := arith.RandInt(rand.Reader, m)
		if err != nil {
			return nil, err
		}
		coeffs[t] = c
	}
	return coeffs, nil
}

// evalAt evaluates constant + Σ coeffs[t]*x^(t+1) mod m.
func evalAt(constant *big.Int, coeffs []*big.Int, x, m *big.Int) *big.Int {
	sum := new(big.Int).Set(constant)
	xPow := new(big.Int).Set(x)
	for _, c := range coeffs {
		sum.Add(sum, new(big.Int).Mul(c, xPow))
		xPow.Mul(xPow, x)
	}
	return arith.Mod(sum, m)
}

// commitCoefficients returns [g^secret, g^coeffs[0], g^coeffs[1], ...] mod n,
// the Feldman commitment table for one dealer's polynomial.
func commitCoefficients(secret *big.Int, coeffs []*big.Int, g, n *big.Int) []*big.Int {
	out := make([]*big.Int, len(coeffs)+1)
	out[0] = arith.PowMod(g, secret, n)
	for t, c := range coeffs {
		out[t+1] = arith.PowMod(g, c, n)
	}
	return out
}

// verifyEvaluation recomputes Π_t b_t^{x^t} mod N for the receiver's point
// x = recipient.Index()+1, t ranging over [0,k) (spec.md §4.E's check).
func verifyEvaluation(commitments []*big.Int, x int, n *big.Int) *big.Int {
	product := big.NewInt(1)
	xPow := big.NewInt(1)
	xBig := big.NewInt(int64(x))
	for _, b := range commitments {
		product = arith.Mod(new(big.Int).Mul(product, arith.PowMod(b, xPow, n)), n)
		xPow.Mul(xPow, xBig)
	}
	return product
}
