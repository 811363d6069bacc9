// Package polynomial provides the Lagrange-coefficient arithmetic shared by
// Components B and F: zero-point interpolation coefficients over ℤ_M for an
// arbitrary ordered set of party indices.
package polynomial

import (
	"fmt"
	"math/big"

	"github.com/luxfi/trsa/pkg/arith"
	"github.com/luxfi/trsa/pkg/party"
)

// LagrangeAtZero computes, for every id in members, its Lagrange
// coefficient at x=0 within the polynomial interpolated over the points
// {j+1 : j in members}: λ_id = Π_{j∈members, j≠id} (j+1)*(j-id)^{-1} mod m
// (spec.md §4.F Phase 1's λ_i, the same construction as §4.B's
// zero-Lagrange coefficient generalized to an arbitrary subset rather than
// the full party set).
func LagrangeAtZero(members party.IDSlice, m *big.Int) (map[party.ID]*big.Int, error) {
	out := make(map[party.ID]*big.Int, len(members))
	for _, id := range members {
		lambda, err := one(members, id, m)
		if err != nil {
			return nil, fmt.Errorf("polynomial: lagrange coefficient for %s: %w", id, err)
		}
		out[id] = lambda
	}
	return out, nil
}

func one(members party.IDSlice, self party.ID, m *big.Int) (*big.Int, error) {
	selfIdx := big.NewInt(int64(self.Index()))
	lambda := big.NewInt(1)
	for _, j := range members {
		if j == self {
			continue
		}
		jIdx := big.NewInt(int64(j.Index()))
		num := new(big.Int).Add(jIdx, big.NewInt(1))
		den := new(big.Int).Sub(jIdx, selfIdx)
		denInv, err := arith.ModInverse(arith.Mod(den, m), m)
		if err != nil {
			return nil, err
		}
		term := arith.Mod(new(big.Int).Mul(num, denInv), m)
		lambda = arith.Mod(new(big.Int).Mul(lambda, term), m)
	}
	return lambda, nil
}
