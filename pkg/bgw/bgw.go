// Package bgw implements the Ben-Or-Goldwasser-Wigderson secure
// multiplication round (spec.md §4.B, Component B): given additive shares
// of two secrets modulo M, one round yields additive shares of their
// product. Every polynomial coefficient is sampled uniformly from ℤ_M —
// the REDESIGN FLAG of spec.md §9 calling out the source's fixed a=b=c=1
// debugging stub is implemented here as the corrected, randomized version.
package bgw

import (
	"fmt"
	"io"
	"math/big"

	"github.com/luxfi/trsa/pkg/arith"
	"github.com/luxfi/trsa/pkg/math/polynomial"
	"github.com/luxfi/trsa/pkg/party"
)

// Triple is one party's Phase 1 contribution to another party: evaluations
// of its f, g and h polynomials at the recipient's point.
type Triple struct {
	F *big.Int `cbor:"f"`
	G *big.Int `cbor:"g"`
	H *big.Int `cbor:"h"`
}

// Degree returns the degree bound l = floor((n-1)/2) used for the f and g
// polynomials (h has degree bound 2l).
func Degree(n int) int {
	return (n - 1) / 2
}

// Phase1 samples this party's polynomials f_i, g_i, h_i over ℤ_M and
// evaluates them at every party's point (index+1), returning the triple to
// deliver to each recipient (spec.md §4.B Phase 1).
func Phase1(random io.Reader, m *big.Int, pi, qi *big.Int, parties party.IDSlice) (map[party.ID]Triple, error) {
	l := Degree(len(parties))

	a := make([]*big.Int, l)
	b := make([]*big.Int, l)
	c := make([]*big.Int, 2*l)
	for t := 0; t < l; t++ {
		var err error
		if a[t], err = arith.RandInt(random, m); err != nil {
			return nil, fmt.Errorf("bgw: sampling coefficient a_%d: %w", t+1, err)
		}
		if b[t], err = arith.RandInt(random, m); err != nil {
			return nil, fmt.Errorf("bgw: sampling coefficient b_%d: %w", t+1, err)
		}
	}
	for t := 0; t < 2*l; t++ {
		var err error
		if c[t], err = arith.RandInt(random, m); err != nil {
			return nil, fmt.Errorf("bgw: sampling coefficient c_%d: %w", t+1, err)
		}
	}

	out := make(map[party.ID]Triple, len(parties))
	for _, recipient := range parties {
		x := big.NewInt(int64(recipient.Index() + 1))
		out[recipient] = Triple{
			F: evalPoly(pi, a, x, m),
			G: evalPoly(qi, b, x, m),
			H: evalPoly(big.NewInt(0), c, x, m),
		}
	}
	return out, nil
}

// evalPoly evaluates constant + Σ coeffs[t]*x^(t+1) mod m.
func evalPoly(constant *big.Int, coeffs []*big.Int, x, m *big.Int) *big.Int {
	sum := new(big.Int).Set(constant)
	xPow := new(big.Int).Set(x)
	for _, coeff := range coeffs {
		term := new(big.Int).Mul(coeff, xPow)
		sum.Add(sum, term)
		xPow.Mul(xPow, x)
	}
	return arith.Mod(sum, m)
}

// Phase2 combines the triples received from every party (one must come
// from each party, including self) into this party's additive share of the
// product p*q mod M (spec.md §4.B Phase 2).
func Phase2(m *big.Int, parties party.IDSlice, self party.ID, received map[party.ID]Triple) (*big.Int, error) {
	if len(received) != len(parties) {
		return nil, fmt.Errorf("bgw: expected %d triples, got %d", len(parties), len(received))
	}

	f := big.NewInt(0)
	g := big.NewInt(0)
	h := big.NewInt(0)
	for _, p := range parties {
		t, ok := received[p]
		if !ok || t.F == nil || t.G == nil || t.H == nil {
			return nil, fmt.Errorf("bgw: missing or malformed triple from %s", p)
		}
		f.Add(f, t.F)
		g.Add(g, t.G)
		h.Add(h, t.H)
	}
	f = arith.Mod(f, m)
	g = arith.Mod(g, m)
	h = arith.Mod(h, m)

	nj := arith.Mod(new(big.Int).Add(new(big.Int).Mul(f, g), h), m)

	coefficients, err := polynomial.LagrangeAtZero(parties, m)
	if err != nil {
		return nil, fmt.Errorf("bgw: computing zero-Lagrange coefficient: %w", err)
	}

	return arith.Mod(new(big.Int).Mul(nj, coefficients[self]), m), nil
}
