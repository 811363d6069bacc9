package trsa_test

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/luxfi/trsa/pkg/arith"
	"github.com/luxfi/trsa/pkg/coordinator"
	"github.com/luxfi/trsa/pkg/keyshare"
	"github.com/luxfi/trsa/pkg/modgen"
	"github.com/luxfi/trsa/pkg/network"
	"github.com/luxfi/trsa/pkg/party"
	"github.com/luxfi/trsa/pkg/sigshare"
	"github.com/luxfi/trsa/pkg/trsaerr"
	"github.com/luxfi/trsa/pkg/trsaparams"
	"github.com/luxfi/trsa/pkg/vss"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestThresholdRSA(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Threshold RSA Suite")
}

func trustedSetup(n, k int) *coordinator.State {
	state, err := coordinator.Setup(n, k, coordinator.Config{Mode: coordinator.ModeTrusted, BitsSecure: 128})
	Expect(err).NotTo(HaveOccurred())
	return state
}

var _ = Describe("Threshold RSA end-to-end scenarios", func() {
	It("signs a message with a small 2-of-3 setup", func() {
		state := trustedSetup(3, 2)
		subset := party.Subset(state.Parties[:2])
		message := big.NewInt(42)

		sig, err := coordinator.Sign(state, subset, message)
		Expect(err).NotTo(HaveOccurred())
		Expect(sigshare.CheckSignature(sig, state.E, message, state.N)).To(BeTrue())
	})

	It("reuses presigning data across messages under the same subset", func() {
		state := trustedSetup(3, 2)
		subset := party.Subset(state.Parties[:2])
		leader := state.Records[subset[0]]

		_, err := coordinator.Sign(state, subset, big.NewInt(42))
		Expect(err).NotTo(HaveOccurred())
		cachedAfterFirst, ok := leader.CachedPresign(subset)
		Expect(ok).To(BeTrue())

		sig2, err := coordinator.Sign(state, subset, big.NewInt(99))
		Expect(err).NotTo(HaveOccurred())
		Expect(sigshare.CheckSignature(sig2, state.E, big.NewInt(99), state.N)).To(BeTrue())

		cachedAfterSecond, ok := leader.CachedPresign(subset)
		Expect(ok).To(BeTrue())
		Expect(cachedAfterSecond.X.String()).To(Equal(cachedAfterFirst.X.String()))
	})

	It("runs independent presigning when the subset switches", func() {
		state := trustedSetup(3, 2)
		subsetA := party.Subset{state.Parties[0], state.Parties[1]}
		subsetB := party.Subset{state.Parties[0], state.Parties[2]}
		leader := state.Records[state.Parties[0]]

		sigA, err := coordinator.Sign(state, subsetA, big.NewInt(42))
		Expect(err).NotTo(HaveOccurred())
		dataA, ok := leader.CachedPresign(subsetA)
		Expect(ok).To(BeTrue())

		sigB, err := coordinator.Sign(state, subsetB, big.NewInt(42))
		Expect(err).NotTo(HaveOccurred())
		dataB, ok := leader.CachedPresign(subsetB)
		Expect(ok).To(BeTrue())

		Expect(dataA.S.String()).NotTo(Equal(dataB.S.String()))
		Expect(sigshare.CheckSignature(sigA, state.E, big.NewInt(42), state.N)).To(BeTrue())
		Expect(sigshare.CheckSignature(sigB, state.E, big.NewInt(42), state.N)).To(BeTrue())
	})

	It("skips signing silently when fewer than k parties agree, then succeeds once enough agree", func() {
		state := trustedSetup(4, 3)
		short := party.Subset(state.Parties[:2])

		_, err := coordinator.Sign(state, short, big.NewInt(7))
		Expect(err).To(HaveOccurred())
		Expect(trsaerr.Is(err, trsaerr.ErrInsufficientAgreement)).To(BeTrue())

		full := party.Subset(state.Parties[:3])
		sig, err := coordinator.Sign(state, full, big.NewInt(7))
		Expect(err).NotTo(HaveOccurred())
		Expect(sigshare.CheckSignature(sig, state.E, big.NewInt(7), state.N)).To(BeTrue())
	})

	It("aborts setup when a dealer commitment is tampered with", func() {
		// Reproduce coordinator.Setup's own sequence up through dealing —
		// modulus and key-share generation, then one vss.Propose per
		// dealer — but swap in a forged commitment for one dealer before
		// running vss.Verify, driving the real §4.E verification loop
		// instead of corrupting an already-accepted Dealing.
		n, k := 3, 2
		parties := make(party.IDSlice, n)
		for i := range parties {
			parties[i] = party.NewID(i)
		}
		net := network.New(parties)

		result, err := modgen.TrustedDeal(rand.Reader, parties, 128)
		Expect(err).NotTo(HaveOccurred())

		dShares, err := keyshare.Generate(net, parties, result.N, result.PShares, result.QShares,
			trsaparams.PublicExponentBig, big.NewInt(trsaparams.TrialDecryptionMessage))
		Expect(err).NotTo(HaveOccurred())

		g := big.NewInt(2)
		for arith.GCD(g, result.N).Cmp(big.NewInt(1)) != 0 {
			g.Add(g, big.NewInt(1))
		}

		commitments := make(map[party.ID][]*big.Int, n)
		shares := make(map[party.ID]map[party.ID]*big.Int, n)
		for _, dealer := range parties {
			dealerCommitments, dealerShares, err := vss.Propose(k, result.M, result.N, g, dShares[dealer], parties)
			Expect(err).NotTo(HaveOccurred())
			commitments[dealer] = dealerCommitments
			shares[dealer] = dealerShares
		}

		tamperedDealer := parties[0]
		commitments[tamperedDealer][0] = new(big.Int).Xor(commitments[tamperedDealer][0], big.NewInt(1))

		err = vss.Verify(parties, commitments, shares, g, result.N)
		Expect(err).To(HaveOccurred())
		Expect(trsaerr.Is(err, trsaerr.ErrDealerMisbehavior)).To(BeTrue())
	})

	It("rejects a tampered signature share instead of combining", func() {
		state := trustedSetup(3, 2)
		subset := party.Subset(state.Parties[:2])

		dealer := subset[0]
		tamperedD := new(big.Int).Add(state.DShares[dealer], big.NewInt(1))
		state.DShares[dealer] = tamperedD

		_, err := coordinator.Sign(state, subset, big.NewInt(42))
		Expect(err).To(HaveOccurred())
		Expect(trsaerr.Is(err, trsaerr.ErrInvalidShare)).To(BeTrue())
	})
})
