// Package presign implements Subset Presigning (spec.md §4.F, Component
// F): for a chosen agreeing subset I of size k, every member computes its
// Lagrange-weighted share of the complement's key material, proves it
// correct by signing a fixed dummy message, recovers the exponent
// correction x_I by exhaustive search, and assembles the presigning
// artifact D_I that every later signature under I reuses.
package presign

import (
	"fmt"
	"math/big"

	"github.com/luxfi/trsa/pkg/arith"
	"github.com/luxfi/trsa/pkg/hash"
	"github.com/luxfi/trsa/pkg/math/polynomial"
	"github.com/luxfi/trsa/pkg/network"
	"github.com/luxfi/trsa/pkg/party"
	"github.com/luxfi/trsa/pkg/sigshare"
	"github.com/luxfi/trsa/pkg/trsaerr"
)

// Params bundles the public values presigning needs: the modulus, sharing
// prime, generator, public exponent, and each member's VSS shares/
// commitments and key share (Components D and E's outputs).
type Params struct {
	N, M, G, E *big.Int

	// VSSShares[dealer][recipient] = f_dealer(recipient+1), as produced by
	// pkg/vss.Dealing.
	VSSShares map[party.ID]map[party.ID]*big.Int

	// Commitments[dealer][0] = g^{d_dealer} mod N, as produced by
	// pkg/vss.Dealing (only the constant-term entry is needed here).
	Commitments map[party.ID][]*big.Int

	// D is every party's additive key share d_i.
	D map[party.ID]*big.Int

	// All is the full party set (needed for x_I's search range [k-n,k]).
	All party.IDSlice
}

// Run executes Phases 0-4 for subset I, returning its PresigningData. If
// data for I is already cached on any given party, callers should consult
// party.Party.CachedPresign first — Run always performs the full protocol.
func Run(net *network.Network, subset party.Subset, params *Params) (map[party.ID]*party.PresigningData, error) {
	n := len(params.All)
	k := len(subset)

	complement := subset.Complement(params.All)

	dummy := arith.PowMod(arith.Mod(big.NewInt(2), params.N), params.E, params.N)
	label := sigshare.SessionLabel(params.N, subset)

	lambdas, err := polynomial.LagrangeAtZero(party.IDSlice(subset), params.M)
	if err != nil {
		return nil, fmt.Errorf("presign: %w", err)
	}

	// Phase 1: s_i and its commitment h_i.
	sShares := make(map[party.ID]*big.Int, k)
	for _, i := range subset {
		sum := big.NewInt(0)
		for _, j := range complement {
			sum.Add(sum, params.VSSShares[j][i])
		}
		sShares[i] = arith.Mod(new(big.Int).Mul(lambdas[i], arith.Mod(sum, params.M)), params.M)
	}

	hValues, err := network.Broadcast(net, label+"-phase1", func(i party.ID) (*big.Int, error) {
		if !subset.Contains(i) {
			return big.NewInt(0), nil
		}
		return arith.PowMod(params.G, sShares[i], params.N), nil
	})
	if err != nil {
		return nil, fmt.Errorf("presign: phase 1: %w", err)
	}

	// Phase 2: dummy-message signature shares, using the same procedure as
	// Component G with exponent alpha = s_i + d_i.
	type shareAndProof struct {
		C     *big.Int     `cbor:"c"`
		Proof *party.Proof `cbor:"proof"`
	}
	produced, err := network.Broadcast(net, label+"-phase2", func(i party.ID) (shareAndProof, error) {
		if !subset.Contains(i) {
			return shareAndProof{}, nil
		}
		alpha := new(big.Int).Add(sShares[i], params.D[i])
		c := sigshare.Compute(dummy, alpha, params.N)
		y := arith.Mod(new(big.Int).Mul(params.Commitments[i][0], hValues[i]), params.N)
		proof, err := sigshare.Prove(i, alpha, y, dummy, c, params.G, params.N, params.M)
		if err != nil {
			return shareAndProof{}, err
		}
		return shareAndProof{C: c, Proof: proof}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("presign: phase 2: %w", err)
	}

	// Phase 3: verify every dummy share, then recover x_I.
	for _, i := range subset {
		y := arith.Mod(new(big.Int).Mul(params.Commitments[i][0], hValues[i]), params.N)
		share := &party.SignatureShare{From: i, C: produced[i].C, Proof: produced[i].Proof}
		if !sigshare.Verify(share, y, dummy, params.G, params.N) {
			return nil, trsaerr.New(trsaerr.ErrInvalidShare, party.IDSlice{i}, fmt.Errorf("dummy-message proof failed"))
		}
	}

	dummyShares := make(map[party.ID]*big.Int, k)
	for _, i := range subset {
		dummyShares[i] = produced[i].C
	}

	x, err := recoverCorrection(dummyShares, subset, params, n, k)
	if err != nil {
		return nil, err
	}

	xAgreement, err := network.Broadcast(net, label+"-phase3-agree", func(party.ID) (*big.Int, error) {
		return x, nil
	})
	if err != nil {
		return nil, fmt.Errorf("presign: phase 3 agreement: %w", err)
	}
	for _, i := range subset {
		if xAgreement[i].Cmp(x) != 0 {
			return nil, trsaerr.New(trsaerr.ErrInconsistentCorrection, party.IDSlice{i}, nil)
		}
	}

	// Phase 4: assemble D_I per member.
	out := make(map[party.ID]*party.PresigningData, k)
	for _, i := range subset {
		receivedH := make(map[party.ID]*big.Int, k)
		for _, j := range subset {
			receivedH[j] = hValues[j]
		}
		out[i] = &party.PresigningData{
			Subset:      subset,
			Lambda:      lambdas[i],
			S:           sShares[i],
			H:           hValues[i],
			ReceivedH:   receivedH,
			X:           x,
			DummyShares: dummyShares,
		}
	}
	return out, nil
}

// recoverCorrection implements spec.md §4.F Phase 3's exhaustive search:
// the unique x in [k-n, k] such that Π c_i ≡ 2 * 2^{e*M*x} (mod N).
func recoverCorrection(shares map[party.ID]*big.Int, subset party.Subset, params *Params, n, k int) (*big.Int, error) {
	product := big.NewInt(1)
	for _, i := range subset {
		product = arith.Mod(new(big.Int).Mul(product, shares[i]), params.N)
	}

	base := arith.Mod(big.NewInt(2), params.N)
	em := new(big.Int).Mul(params.E, params.M)

	for x := k - n; x <= k; x++ {
		exp := new(big.Int).Mul(em, big.NewInt(int64(x)))
		exp.Add(exp, big.NewInt(1))
		candidate := arith.PowMod(base, exp, params.N)
		if candidate.Cmp(product) == 0 {
			return big.NewInt(int64(x)), nil
		}
	}
	return nil, trsaerr.New(trsaerr.ErrArithmeticPrecondition, nil,
		fmt.Errorf("no x_I in [%d,%d] reconstructs the dummy signature", k-n, k))
}

// FiatShamirAudit exposes the domain-separated transcript hash used inside
// a dummy-share proof, for callers (tests, diagnostics) that want to
// recompute and compare a challenge out of band.
func FiatShamirAudit(g, n, gs, ms, y, c *big.Int, id string) *big.Int {
	return hash.FiatShamirChallenge(g, n, gs, ms, y, c, id, n)
}
