// Package party defines party identity and the long-lived per-party state
// that the threshold RSA core operates on.
package party

import (
	"fmt"
	"sort"
	"strings"
)

// ID identifies one of the n participants. Parties are numbered 0..n-1 and
// the string form is used both for display and as a map key throughout the
// core.
type ID string

// NewID builds the canonical ID for a 0-based party index.
func NewID(index int) ID {
	return ID(fmt.Sprintf("P%d", index))
}

// Index recovers the 0-based index from a canonical ID. Used wherever the
// protocol needs the integer id (Lagrange coefficients, evaluation points).
func (id ID) Index() int {
	var idx int
	_, _ = fmt.Sscanf(string(id), "P%d", &idx)
	return idx
}

// IDSlice is a set of party identifiers with deterministic ordering.
type IDSlice []ID

// Sort returns a new, sorted copy by underlying index.
func (s IDSlice) Sort() IDSlice {
	out := make(IDSlice, len(s))
	copy(out, s)
	sort.Slice(out, func(i, j int) bool { return out[i].Index() < out[j].Index() })
	return out
}

// Contains reports whether id is present in the slice.
func (s IDSlice) Contains(id ID) bool {
	for _, x := range s {
		if x == id {
			return true
		}
	}
	return false
}

// Remove returns a copy of s with id removed, preserving order.
func (s IDSlice) Remove(id ID) IDSlice {
	out := make(IDSlice, 0, len(s))
	for _, x := range s {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// Subset is an ordered sequence of party identifiers identifying the k
// parties cooperating on a given signature. Equality is by element identity
// and order, which is exactly what its Key method encodes — this makes
// Subset safe to use as a cache key for presigning data (spec.md §9,
// "Subset as cache key").
type Subset IDSlice

// Key returns a stable, hashable representation of the subset suitable as a
// map key. Distinct orderings of the same parties produce distinct keys,
// matching the "equality by element identity and order" requirement.
func (s Subset) Key() string {
	parts := make([]string, len(s))
	for i, id := range s {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}

// Contains reports whether id is a member of the subset.
func (s Subset) Contains(id ID) bool {
	return IDSlice(s).Contains(id)
}

// Complement returns the parties in all that are not in s.
func (s Subset) Complement(all IDSlice) IDSlice {
	out := make(IDSlice, 0, len(all)-len(s))
	for _, id := range all {
		if !s.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}
