package polynomial_test

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/luxfi/trsa/pkg/arith"
	"github.com/luxfi/trsa/pkg/math/polynomial"
	"github.com/luxfi/trsa/pkg/party"
	"github.com/stretchr/testify/require"
)

// TestLagrangeReconstructsConstantTerm builds a degree-(k-1) polynomial,
// evaluates it at every member's point, and checks that the Lagrange
// coefficients at zero reconstruct the constant term from any k-sized
// subset of evaluations.
func TestLagrangeReconstructsConstantTerm(t *testing.T) {
	m, err := arith.RandPrime(rand.Reader, 128)
	require.NoError(t, err)

	k := 3
	secret := big.NewInt(777)
	coeffs := []*big.Int{big.NewInt(11), big.NewInt(22)} // degree k-1 = 2

	eval := func(x int64) *big.Int {
		sum := new(big.Int).Set(secret)
		xPow := big.NewInt(x)
		for _, c := range coeffs {
			sum.Add(sum, new(big.Int).Mul(c, xPow))
			xPow.Mul(xPow, big.NewInt(x))
		}
		return arith.Mod(sum, m)
	}

	members := party.IDSlice{party.NewID(0), party.NewID(2), party.NewID(4)}
	lambdas, err := polynomial.LagrangeAtZero(members, m)
	require.NoError(t, err)

	sum := big.NewInt(0)
	for _, id := range members {
		share := eval(int64(id.Index() + 1))
		sum.Add(sum, new(big.Int).Mul(lambdas[id], share))
	}
	require.Equal(t, secret.String(), arith.Mod(sum, m).String())
}
