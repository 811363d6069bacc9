package bgw_test

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/luxfi/trsa/pkg/arith"
	"github.com/luxfi/trsa/pkg/bgw"
	"github.com/luxfi/trsa/pkg/party"
	"github.com/stretchr/testify/require"
)

// runBGW simulates one full BGW multiplication round in-process for n
// parties holding additive shares pi/qi of secrets p, q, and returns the
// resulting additive shares of p*q mod m.
func runBGW(t *testing.T, m *big.Int, parties party.IDSlice, pi, qi map[party.ID]*big.Int) map[party.ID]*big.Int {
	t.Helper()

	// Phase 1: every party computes the triples it sends to each peer.
	outgoing := make(map[party.ID]map[party.ID]bgw.Triple, len(parties))
	for _, p := range parties {
		triples, err := bgw.Phase1(rand.Reader, m, pi[p], qi[p], parties)
		require.NoError(t, err)
		outgoing[p] = triples
	}

	// Deliver: received[recipient][sender] = triple.
	received := make(map[party.ID]map[party.ID]bgw.Triple, len(parties))
	for _, recipient := range parties {
		received[recipient] = make(map[party.ID]bgw.Triple, len(parties))
		for _, sender := range parties {
			received[recipient][sender] = outgoing[sender][recipient]
		}
	}

	shares := make(map[party.ID]*big.Int, len(parties))
	for _, p := range parties {
		share, err := bgw.Phase2(m, parties, p, received[p])
		require.NoError(t, err)
		shares[p] = share
	}
	return shares
}

func sumShares(shares map[party.ID]*big.Int, m *big.Int) *big.Int {
	sum := big.NewInt(0)
	for _, s := range shares {
		sum.Add(sum, s)
	}
	return arith.Mod(sum, m)
}

func TestBGWMultiplicationReconstructs(t *testing.T) {
	m, err := arith.RandPrime(rand.Reader, 256)
	require.NoError(t, err)

	for _, n := range []int{2, 3, 5, 7} {
		parties := make(party.IDSlice, n)
		for i := range parties {
			parties[i] = party.NewID(i)
		}

		p := big.NewInt(17)
		q := big.NewInt(23)

		pi := splitAdditive(t, p, m, parties)
		qi := splitAdditive(t, q, m, parties)

		shares := runBGW(t, m, parties, pi, qi)

		want := arith.Mod(new(big.Int).Mul(p, q), m)
		got := sumShares(shares, m)
		require.Equal(t, want.String(), got.String(), "n=%d", n)
	}
}

func splitAdditive(t *testing.T, secret, m *big.Int, parties party.IDSlice) map[party.ID]*big.Int {
	t.Helper()
	shares := make(map[party.ID]*big.Int, len(parties))
	sum := big.NewInt(0)
	for i, p := range parties {
		if i == len(parties)-1 {
			shares[p] = arith.Mod(new(big.Int).Sub(secret, sum), m)
			continue
		}
		r, err := arith.RandInt(rand.Reader, m)
		require.NoError(t, err)
		shares[p] = r
		sum.Add(sum, r)
		sum = arith.Mod(sum, m)
	}
	return shares
}
