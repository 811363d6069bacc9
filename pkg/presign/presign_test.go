package presign_test

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/luxfi/trsa/pkg/arith"
	"github.com/luxfi/trsa/pkg/keyshare"
	"github.com/luxfi/trsa/pkg/modgen"
	"github.com/luxfi/trsa/pkg/network"
	"github.com/luxfi/trsa/pkg/party"
	"github.com/luxfi/trsa/pkg/presign"
	"github.com/luxfi/trsa/pkg/sigshare"
	"github.com/luxfi/trsa/pkg/trsaparams"
	"github.com/luxfi/trsa/pkg/vss"
	"github.com/stretchr/testify/require"
)

func makeParties(n int) party.IDSlice {
	ps := make(party.IDSlice, n)
	for i := range ps {
		ps[i] = party.NewID(i)
	}
	return ps
}

type setup struct {
	net     *network.Network
	result  *modgen.Result
	dShares map[party.ID]*big.Int
	dealing *vss.Dealing
	m, g, e *big.Int
}

// runSetup drives modgen -> keyshare -> vss for a small test-sized RSA
// instance, everything pkg/presign needs as input.
func runSetup(t *testing.T, parties party.IDSlice, k int) *setup {
	t.Helper()
	net := network.New(parties)

	result, err := modgen.TrustedDeal(rand.Reader, parties, 128)
	require.NoError(t, err)

	e := trsaparams.PublicExponentBig
	dShares, err := keyshare.Generate(net, parties, result.N, result.PShares, result.QShares, e, big.NewInt(trsaparams.TrialDecryptionMessage))
	require.NoError(t, err)

	m, err := arith.RandPrime(rand.Reader, 300)
	require.NoError(t, err)
	g := big.NewInt(2)

	dealing, err := vss.Deal(net, parties, k, m, result.N, g, dShares)
	require.NoError(t, err)

	return &setup{net: net, result: result, dShares: dShares, dealing: dealing, m: m, g: g, e: e}
}

func (s *setup) params(all party.IDSlice) *presign.Params {
	return &presign.Params{
		N: s.result.N, M: s.m, G: s.g, E: s.e,
		VSSShares:   s.dealing.Shares,
		Commitments: s.dealing.Commitments,
		D:           s.dShares,
		All:         all,
	}
}

func TestPresignRecoversCorrectionInRangeAndSigns(t *testing.T) {
	parties := makeParties(4)
	k := 3
	s := runSetup(t, parties, k)

	subset := party.Subset(parties[:k])
	data, err := presign.Run(s.net, subset, s.params(parties))
	require.NoError(t, err)

	x := data[subset[0]].X
	require.True(t, x.Cmp(big.NewInt(int64(k-len(parties)))) >= 0)
	require.True(t, x.Cmp(big.NewInt(int64(k))) <= 0)
	for _, i := range subset {
		require.Equal(t, x.String(), data[i].X.String())
	}

	message := big.NewInt(13579)
	shares := make(map[party.ID]*big.Int, k)
	for _, i := range subset {
		alpha := new(big.Int).Add(data[i].S, s.dShares[i])
		shares[i] = sigshare.Compute(message, alpha, s.result.N)
	}
	sig, err := sigshare.Combine(shares, subset, x, s.m, message, s.result.N)
	require.NoError(t, err)
	require.True(t, sigshare.CheckSignature(sig, s.e, message, s.result.N))
}

func TestPresignCachingAcrossMessagesProducesValidSignatures(t *testing.T) {
	parties := makeParties(3)
	k := 2
	s := runSetup(t, parties, k)

	subset := party.Subset(parties[:k])
	data, err := presign.Run(s.net, subset, s.params(parties))
	require.NoError(t, err)

	sign := func(message *big.Int) *big.Int {
		shares := make(map[party.ID]*big.Int, k)
		for _, i := range subset {
			alpha := new(big.Int).Add(data[i].S, s.dShares[i])
			shares[i] = sigshare.Compute(message, alpha, s.result.N)
		}
		sig, err := sigshare.Combine(shares, subset, data[subset[0]].X, s.m, message, s.result.N)
		require.NoError(t, err)
		return sig
	}

	for _, message := range []*big.Int{big.NewInt(42), big.NewInt(99)} {
		sig := sign(message)
		require.True(t, sigshare.CheckSignature(sig, s.e, message, s.result.N))
	}
}

func TestPresignIndependentAcrossDistinctSubsets(t *testing.T) {
	parties := makeParties(3)
	k := 2
	s := runSetup(t, parties, k)

	subsetA := party.Subset{parties[0], parties[1]}
	subsetB := party.Subset{parties[0], parties[2]}

	dataA, err := presign.Run(s.net, subsetA, s.params(parties))
	require.NoError(t, err)
	dataB, err := presign.Run(s.net, subsetB, s.params(parties))
	require.NoError(t, err)

	require.NotEqual(t, dataA[parties[0]].S.String(), dataB[parties[0]].S.String())
}
