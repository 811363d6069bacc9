// Package network drives the synchronous, round-based protocol described
// in spec.md §5: "every phase must complete at every party before the next
// phase begins." It is the in-process "drive loop" the spec calls out as a
// valid reference implementation ("a single process can execute all
// parties sequentially within a phase"); here every party's contribution to
// a phase runs as an independent goroutine joined with errgroup.Group
// before the barrier is allowed to complete, which is the concurrent
// variant of the same drive loop.
//
// Every payload crosses the barrier through pkg/transport's cbor
// encode/decode, so that no receiver ever observes a sender's live Go value
// — satisfying the "every message MUST be copied before delivery" rule of
// spec.md §5 even though all parties are co-resident in one process.
package network

import (
	"fmt"

	"github.com/luxfi/trsa/pkg/party"
	"github.com/luxfi/trsa/pkg/transport"
	"golang.org/x/sync/errgroup"
)

// Network is the shared process-wide state S referenced in spec.md §9
// ("Design Notes"): the party list used to fan phases out to, initialized
// once at Setup and torn down at process exit.
type Network struct {
	Parties party.IDSlice
}

// New creates a Network over the given party set.
func New(parties party.IDSlice) *Network {
	return &Network{Parties: parties}
}

// Broadcast runs produce(id) for every party concurrently and returns the
// map of sender -> value, every value having made a round trip through
// wire encoding. A producer error for any single party fails the whole
// barrier (spec.md §7, "missing broadcast... fatal").
func Broadcast[T any](net *Network, phase string, produce func(id party.ID) (T, error)) (map[party.ID]T, error) {
	results := make([]T, len(net.Parties))
	g := new(errgroup.Group)
	for i, id := range net.Parties {
		i, id := i, id
		g.Go(func() error {
			v, err := produce(id)
			if err != nil {
				return fmt.Errorf("network: party %s failed broadcast phase %q: %w", id, phase, err)
			}
			copied, err := roundTrip(v)
			if err != nil {
				return fmt.Errorf("network: party %s phase %q: %w", id, phase, err)
			}
			results[i] = copied
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[party.ID]T, len(net.Parties))
	for i, id := range net.Parties {
		out[id] = results[i]
	}
	return out, nil
}

// P2P runs produce(id) for every party concurrently; produce returns one
// value per recipient. The result is deliveries[recipient][sender].
func P2P[T any](net *Network, phase string, produce func(id party.ID) (map[party.ID]T, error)) (map[party.ID]map[party.ID]T, error) {
	type row struct {
		sender party.ID
		values map[party.ID]T
	}
	rows := make([]row, len(net.Parties))
	g := new(errgroup.Group)
	for i, id := range net.Parties {
		i, id := i, id
		g.Go(func() error {
			vals, err := produce(id)
			if err != nil {
				return fmt.Errorf("network: party %s failed p2p phase %q: %w", id, phase, err)
			}
			copied := make(map[party.ID]T, len(vals))
			for to, v := range vals {
				cv, err := roundTrip(v)
				if err != nil {
					return fmt.Errorf("network: party %s phase %q: %w", id, phase, err)
				}
				copied[to] = cv
			}
			rows[i] = row{sender: id, values: copied}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	deliveries := make(map[party.ID]map[party.ID]T, len(net.Parties))
	for _, id := range net.Parties {
		deliveries[id] = make(map[party.ID]T, len(net.Parties))
	}
	for _, r := range rows {
		for to, v := range r.values {
			deliveries[to][r.sender] = v
		}
	}
	return deliveries, nil
}

// roundTrip encodes then decodes v through pkg/transport, guaranteeing the
// returned value shares no memory with v.
func roundTrip[T any](v T) (T, error) {
	var zero T
	data, err := transport.Encode(v)
	if err != nil {
		return zero, err
	}
	var out T
	if err := transport.Decode(data, &out); err != nil {
		return zero, err
	}
	return out, nil
}
