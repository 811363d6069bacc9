package vss_test

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/luxfi/trsa/pkg/arith"
	"github.com/luxfi/trsa/pkg/network"
	"github.com/luxfi/trsa/pkg/party"
	"github.com/luxfi/trsa/pkg/trsaerr"
	"github.com/luxfi/trsa/pkg/vss"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, numParties int) (party.IDSlice, *network.Network, *big.Int, *big.Int, *big.Int) {
	t.Helper()
	parties := make(party.IDSlice, numParties)
	for i := range parties {
		parties[i] = party.NewID(i)
	}
	net := network.New(parties)

	n, err := arith.RandPrime(rand.Reader, 256)
	require.NoError(t, err)
	m, err := arith.RandPrime(rand.Reader, 300)
	require.NoError(t, err)
	g := big.NewInt(2)
	return parties, net, n, m, g
}

func secretsFor(parties party.IDSlice) map[party.ID]*big.Int {
	secrets := make(map[party.ID]*big.Int, len(parties))
	for i, id := range parties {
		secrets[id] = big.NewInt(int64(1000 + i*17))
	}
	return secrets
}

func TestDealVerifiesHonestly(t *testing.T) {
	parties, net, n, m, g := setup(t, 4)
	secrets := secretsFor(parties)

	dealing, err := vss.Deal(net, parties, 3, m, n, g, secrets)
	require.NoError(t, err)

	for _, dealer := range parties {
		require.Len(t, dealing.Commitments[dealer], 3)
		for _, recipient := range parties {
			lhs := arith.PowMod(g, dealing.Shares[dealer][recipient], n)
			commitments := dealing.Commitments[dealer]
			rhs := big.NewInt(1)
			xPow := big.NewInt(1)
			x := big.NewInt(int64(recipient.Index() + 1))
			for _, b := range commitments {
				rhs = arith.Mod(new(big.Int).Mul(rhs, arith.PowMod(b, xPow, n)), n)
				xPow.Mul(xPow, x)
			}
			require.Equal(t, lhs.String(), rhs.String())
		}
	}
}

func TestDealDetectsTamperedCommitment(t *testing.T) {
	parties, _, n, m, g := setup(t, 3)
	secrets := secretsFor(parties)

	commitments := make(map[party.ID][]*big.Int, len(parties))
	shares := make(map[party.ID]map[party.ID]*big.Int, len(parties))
	for _, dealer := range parties {
		dealerCommitments, dealerShares, err := vss.Propose(2, m, n, g, secrets[dealer], parties)
		require.NoError(t, err)
		commitments[dealer] = dealerCommitments
		shares[dealer] = dealerShares
	}

	// Flip one bit of a single dealer's commitment to its constant term
	// before verification runs, reproducing a dealer that broadcasts a
	// commitment inconsistent with the shares it actually sent out.
	dealer := parties[0]
	commitments[dealer][0] = new(big.Int).Xor(commitments[dealer][0], big.NewInt(1))

	err := vss.Verify(parties, commitments, shares, g, n)
	require.Error(t, err)
	require.True(t, trsaerr.Is(err, trsaerr.ErrDealerMisbehavior))
}

func TestDealRejectsSizeMismatchedSecretSet(t *testing.T) {
	parties, net, n, m, g := setup(t, 3)
	secrets := secretsFor(parties)
	delete(secrets, parties[2])

	_, err := vss.Deal(net, parties, 2, m, n, g, secrets)
	require.Error(t, err)
}

func TestProtocolErrorIdentifiesCulprit(t *testing.T) {
	err := trsaerr.New(trsaerr.ErrDealerMisbehavior, party.IDSlice{party.NewID(1)}, nil)
	require.ErrorIs(t, err, trsaerr.ErrDealerMisbehavior)
	require.Contains(t, err.Error(), "P1")
}
