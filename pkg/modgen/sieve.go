package modgen

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/luxfi/trsa/pkg/arith"
	"github.com/luxfi/trsa/pkg/bgw"
	"github.com/luxfi/trsa/pkg/network"
	"github.com/luxfi/trsa/pkg/party"
)

// PQRoundState is the bookkeeping for one distributed-sieving run (spec.md
// §3 data model): the round counter and the running additive-share vector U
// that accumulates the product of local factors contributed one per round.
type PQRoundState struct {
	Round int
	U     map[party.ID]*big.Int
	L     int
}

// factorBits is this party's local-factor size: the product of L
// independently sampled ~(bitsSecure/n)-bit factors should land close to
// bitsSecure bits.
func factorBits(bitsSecure, n int) int {
	b := bitsSecure / n
	if b < 16 {
		b = 16
	}
	return b
}

// localFactor samples this party's contribution to the sieve product: a
// random odd integer of the given bit length coprime to the small-prime
// sieve base (spec.md §4.C, "relatively prime to M").
func localFactor(random io.Reader, bits int, sieveBase *big.Int) (*big.Int, error) {
	one := big.NewInt(1)
	for {
		a, err := arith.RandInt(random, new(big.Int).Lsh(one, uint(bits)))
		if err != nil {
			return nil, err
		}
		a.SetBit(a, 0, 1) // keep it odd; irrelevant to coprimality but avoids degenerate zero factors
		if a.Sign() == 0 {
			continue
		}
		if arith.GCD(a, sieveBase).Cmp(one) == 0 {
			return a, nil
		}
	}
}

// distributedFactor runs one lock-stepped distributed-sieving protocol:
// every party samples its own local factor, and n BGW rounds compose them
// into additive shares of their product (spec.md §4.C: "composes n BGW
// multiplications to build an additive share of the product of n factors").
func distributedFactor(net *network.Network, m *big.Int, parties party.IDSlice, bitsSecure int, sieveBase *big.Int) (map[party.ID]*big.Int, error) {
	n := len(parties)
	bits := factorBits(bitsSecure, n)

	factors := make(map[party.ID]*big.Int, n)
	for _, p := range parties {
		f, err := localFactor(rand.Reader, bits, sieveBase)
		if err != nil {
			return nil, fmt.Errorf("modgen: sampling local factor for %s: %w", p, err)
		}
		factors[p] = f
	}

	state := &PQRoundState{Round: 0, L: n}
	state.U = make(map[party.ID]*big.Int, n)
	for i, p := range parties {
		if i == 0 {
			state.U[p] = big.NewInt(1)
		} else {
			state.U[p] = big.NewInt(0)
		}
	}

	for r := 0; r < n; r++ {
		contributor := parties[r]
		fresh := make(map[party.ID]*big.Int, n)
		for _, p := range parties {
			if p == contributor {
				fresh[p] = factors[p]
			} else {
				fresh[p] = big.NewInt(0)
			}
		}

		next, err := runBGWRound(net, m, parties, state.U, fresh)
		if err != nil {
			return nil, fmt.Errorf("modgen: sieve round %d: %w", r, err)
		}
		state.U = next
		state.Round++
	}

	return state.U, nil
}

// runBGWRound drives one full BGW multiplication round (both phases, across
// every party) over the in-process Network, returning additive shares of
// the product of pShares and qShares.
func runBGWRound(net *network.Network, m *big.Int, parties party.IDSlice, pShares, qShares map[party.ID]*big.Int) (map[party.ID]*big.Int, error) {
	outgoing, err := network.P2P(net, "bgw-phase1", func(id party.ID) (map[party.ID]bgw.Triple, error) {
		return bgw.Phase1(rand.Reader, m, pShares[id], qShares[id], parties)
	})
	if err != nil {
		return nil, err
	}

	return network.Broadcast(net, "bgw-phase2", func(id party.ID) (*big.Int, error) {
		return bgw.Phase2(m, parties, id, outgoing[id])
	})
}
