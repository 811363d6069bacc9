package sigshare_test

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/luxfi/trsa/pkg/arith"
	"github.com/luxfi/trsa/pkg/party"
	"github.com/luxfi/trsa/pkg/sigshare"
	"github.com/stretchr/testify/require"
)

func smallRSA(t *testing.T) (n, e, d *big.Int) {
	t.Helper()
	p, err := arith.RandPrime(rand.Reader, 128)
	require.NoError(t, err)
	q, err := arith.RandPrime(rand.Reader, 128)
	require.NoError(t, err)
	n = new(big.Int).Mul(p, q)
	e = big.NewInt(65537)
	phi := new(big.Int).Mul(new(big.Int).Sub(p, big.NewInt(1)), new(big.Int).Sub(q, big.NewInt(1)))
	d, err = arith.ModInverse(e, phi)
	require.NoError(t, err)
	return n, e, d
}

func TestComputeProveVerifyRoundTrips(t *testing.T) {
	n, _, d := smallRSA(t)
	g := big.NewInt(2)
	message := big.NewInt(424242)
	self := party.NewID(0)

	y := arith.PowMod(g, d, n)
	c := sigshare.Compute(message, d, n)

	proof, err := sigshare.Prove(self, d, y, message, c, g, n, n)
	require.NoError(t, err)

	share := &party.SignatureShare{From: self, C: c, Proof: proof}
	require.True(t, sigshare.Verify(share, y, message, g, n))
}

func TestVerifyRejectsTamperedShare(t *testing.T) {
	n, _, d := smallRSA(t)
	g := big.NewInt(2)
	message := big.NewInt(424242)
	self := party.NewID(0)

	y := arith.PowMod(g, d, n)
	c := sigshare.Compute(message, d, n)
	proof, err := sigshare.Prove(self, d, y, message, c, g, n, n)
	require.NoError(t, err)

	tampered := new(big.Int).Add(c, big.NewInt(1))
	share := &party.SignatureShare{From: self, C: tampered, Proof: proof}
	require.False(t, sigshare.Verify(share, y, message, g, n))
}

func TestCombineAndCheckSignature(t *testing.T) {
	n, e, d := smallRSA(t)
	message := big.NewInt(1234567)

	// Trivial one-party "subset": the whole of d as a single share, no
	// correction needed.
	self := party.NewID(0)
	subset := party.Subset{self}
	shares := map[party.ID]*big.Int{self: sigshare.Compute(message, d, n)}

	signature, err := sigshare.Combine(shares, subset, big.NewInt(0), big.NewInt(1), message, n)
	require.NoError(t, err)
	require.True(t, sigshare.CheckSignature(signature, e, message, n))
}
