// Package coordinator orchestrates Components A-G into the two operations
// an external driver calls: Setup (distributed modulus and key generation)
// and Sign (subset presigning plus signature-share generation, proof,
// verification and combination), maintaining the process-wide Network
// state of spec.md §9 ("Design Notes": "init at Setup and teardown at
// process exit").
package coordinator

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/luxfi/trsa/pkg/arith"
	"github.com/luxfi/trsa/pkg/keyshare"
	"github.com/luxfi/trsa/pkg/modgen"
	"github.com/luxfi/trsa/pkg/network"
	"github.com/luxfi/trsa/pkg/party"
	"github.com/luxfi/trsa/pkg/presign"
	"github.com/luxfi/trsa/pkg/sigshare"
	"github.com/luxfi/trsa/pkg/trsaerr"
	"github.com/luxfi/trsa/pkg/trsaparams"
	"github.com/luxfi/trsa/pkg/vss"
	"github.com/luxfi/trsa/pkg/xlog"
)

// Mode selects how the RSA modulus is produced.
type Mode int

const (
	// ModeTrusted uses modgen.TrustedDeal — fast, for tests.
	ModeTrusted Mode = iota
	// ModeInteractive uses modgen.Interactive — the fully distributed
	// protocol.
	ModeInteractive
)

// Config bundles Setup's tunables. DefaultConfig returns the spec.md §6
// defaults; the zero value is not that default (its Mode is ModeTrusted and
// its BitsSecure is 0).
type Config struct {
	Mode       Mode
	BitsSecure int
}

// DefaultConfig returns spec.md §6's constants: e = 65537, bits_secure =
// 1024, trusted-dealer mode off (interactive by default in a real
// deployment — callers wanting the fast path for tests set Mode
// explicitly).
func DefaultConfig() Config {
	return Config{Mode: ModeInteractive, BitsSecure: trsaparams.BitsSecure}
}

// State is the process-wide shared state of all n parties after a
// successful Setup: the Network driving all barrier phases, every party's
// persistent record (spec.md §3's Party entity), and the public parameters
// every signature relies on.
type State struct {
	Net     *network.Network
	Parties party.IDSlice

	N, E, G, M *big.Int

	DShares     map[party.ID]*big.Int
	Dealing     *vss.Dealing
	PShares     map[party.ID]*big.Int
	QShares     map[party.ID]*big.Int
	Records     map[party.ID]*party.Party
}

// Setup runs Components C, D and E for n parties with threshold k,
// retrying modulus generation on a bad-modulus abort (spec.md §7 taxonomy
// case 1: "transient errors... retried up to an implementation-defined
// bound").
func Setup(n, k int, cfg Config) (*State, error) {
	if k <= 1 || k > n {
		return nil, fmt.Errorf("coordinator: invalid threshold k=%d for n=%d parties (require 1 < k <= n)", k, n)
	}

	parties := make(party.IDSlice, n)
	for i := range parties {
		parties[i] = party.NewID(i)
	}
	net := network.New(parties)

	e := trsaparams.PublicExponentBig

	var result *modgen.Result
	var dShares map[party.ID]*big.Int
	var err error
	for attempt := 0; attempt < modgen.MaxAttempts; attempt++ {
		switch cfg.Mode {
		case ModeTrusted:
			result, err = modgen.TrustedDeal(rand.Reader, parties, cfg.BitsSecure)
		default:
			result, err = modgen.Interactive(net, parties, cfg.BitsSecure)
		}
		if err != nil {
			if !trsaerr.Is(err, trsaerr.ErrBadModulus) {
				return nil, fmt.Errorf("coordinator: modulus generation: %w", err)
			}
			xlog.Warn("coordinator: retrying modulus generation", "attempt", attempt)
			continue
		}

		// REDESIGN FLAG: gcd(phi(N), e) != 1 is also a bad-modulus case —
		// retry Setup from scratch with a fresh N rather than aborting.
		dShares, err = keyshare.Generate(net, parties, result.N, result.PShares, result.QShares, e, big.NewInt(trsaparams.TrialDecryptionMessage))
		if err == nil {
			break
		}
		if !trsaerr.Is(err, trsaerr.ErrBadModulus) {
			return nil, fmt.Errorf("coordinator: key share generation: %w", err)
		}
		xlog.Warn("coordinator: retrying modulus generation after bad phi(N)", "attempt", attempt)
	}
	if err != nil {
		return nil, fmt.Errorf("coordinator: exceeded retries generating a valid modulus and key shares: %w", err)
	}

	g, err := agreeOnGenerator(net, parties, result.N)
	if err != nil {
		return nil, fmt.Errorf("coordinator: agreeing on generator g: %w", err)
	}

	dealing, err := vss.Deal(net, parties, k, result.M, result.N, g, dShares)
	if err != nil {
		return nil, fmt.Errorf("coordinator: verifiable secret sharing: %w", err)
	}

	records := make(map[party.ID]*party.Party, n)
	for _, id := range parties {
		p := party.New(id, n, k, parties)
		p.PubN, p.PubE, p.PubG, p.PubM = result.N, e, g, result.M
		p.Pi, p.Qi, p.Di = result.PShares[id], result.QShares[id], dShares[id]
		for _, dealer := range parties {
			p.F[dealer] = dealing.Shares[dealer][id]
			p.B[dealer] = dealing.Commitments[dealer]
		}
		records[id] = p
	}

	return &State{
		Net: net, Parties: parties,
		N: result.N, E: e, G: g, M: result.M,
		DShares: dShares, Dealing: dealing, PShares: result.PShares, QShares: result.QShares,
		Records: records,
	}, nil
}

// agreeOnGenerator samples a single shared generator g in Z_N^* the way
// pkg/modgen's biprimality test agrees on a value: the first party samples
// it and broadcasts it to the rest.
func agreeOnGenerator(net *network.Network, parties party.IDSlice, n *big.Int) (*big.Int, error) {
	leader := parties[0]
	vals, err := network.Broadcast(net, "setup-agree-g", func(id party.ID) (*big.Int, error) {
		if id != leader {
			return big.NewInt(0), nil
		}
		one := big.NewInt(1)
		for {
			g, err := arith.RandInt(rand.Reader, n)
			if err != nil {
				return nil, err
			}
			if g.Sign() == 0 {
				continue
			}
			if arith.GCD(g, n).Cmp(one) == 0 {
				return g, nil
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return vals[leader], nil
}

// Sign produces a threshold RSA signature on message using the agreeing
// subset, running presigning only if I has not been seen before (spec.md
// §4.F's caching invariant, keyed by Subset.Key() and checked against the
// first member's cache — every honest member caches identically).
func Sign(state *State, subset party.Subset, message *big.Int) (*big.Int, error) {
	if len(subset) != state.Records[state.Parties[0]].K {
		return nil, trsaerr.ErrInsufficientAgreement
	}

	leader := state.Records[subset[0]]
	var x *big.Int

	if cached, ok := leader.CachedPresign(subset); ok {
		x = cached.X
	} else {
		params := &presign.Params{
			N: state.N, M: state.M, G: state.G, E: state.E,
			VSSShares: state.Dealing.Shares, Commitments: state.Dealing.Commitments,
			D: state.DShares, All: state.Parties,
		}
		data, err := presign.Run(state.Net, subset, params)
		if err != nil {
			return nil, fmt.Errorf("coordinator: presigning: %w", err)
		}
		for _, id := range subset {
			state.Records[id].StorePresign(subset, data[id])
		}
		x = data[subset[0]].X
	}

	presigning := make(map[party.ID]*party.PresigningData, len(subset))
	for _, id := range subset {
		d, ok := state.Records[id].CachedPresign(subset)
		if !ok {
			return nil, fmt.Errorf("coordinator: missing presigning data for %s after Run", id)
		}
		presigning[id] = d
	}

	type produced struct {
		C     *big.Int     `cbor:"c"`
		Proof *party.Proof `cbor:"proof"`
	}
	results, err := network.Broadcast(state.Net, "sign-shares", func(id party.ID) (produced, error) {
		if !subset.Contains(id) {
			return produced{}, nil
		}
		alpha := new(big.Int).Add(presigning[id].S, state.DShares[id])
		c := sigshare.Compute(message, alpha, state.N)
		y := arith.Mod(new(big.Int).Mul(state.Dealing.Commitments[id][0], presigning[id].H), state.N)
		proof, err := sigshare.Prove(id, alpha, y, message, c, state.G, state.N, state.M)
		if err != nil {
			return produced{}, err
		}
		return produced{C: c, Proof: proof}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("coordinator: signature share generation: %w", err)
	}

	cShares := make(map[party.ID]*big.Int, len(subset))
	for _, id := range subset {
		y := arith.Mod(new(big.Int).Mul(state.Dealing.Commitments[id][0], presigning[id].H), state.N)
		share := &party.SignatureShare{From: id, C: results[id].C, Proof: results[id].Proof}
		if !sigshare.Verify(share, y, message, state.G, state.N) {
			return nil, trsaerr.New(trsaerr.ErrInvalidShare, party.IDSlice{id}, fmt.Errorf("signature share proof failed"))
		}
		cShares[id] = results[id].C
	}

	signature, err := sigshare.Combine(cShares, subset, x, state.M, message, state.N)
	if err != nil {
		return nil, fmt.Errorf("coordinator: combining signature: %w", err)
	}
	if !sigshare.CheckSignature(signature, state.E, message, state.N) {
		return nil, trsaerr.New(trsaerr.ErrInconsistentCorrection, nil, fmt.Errorf("assembled signature failed the public correctness check"))
	}
	return signature, nil
}
