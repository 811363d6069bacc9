// Package trsaerr defines the error taxonomy of spec.md §7: a small set of
// sentinel errors identifying the category of failure, wrapped in a
// ProtocolError that names the party or parties responsible whenever the
// taxonomy calls for naming a culprit.
package trsaerr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/luxfi/trsa/pkg/party"
)

var (
	// ErrBadModulus covers taxonomy case 1: trial division hit, or the
	// biprimality check failed. Transient; callers regenerate N.
	ErrBadModulus = errors.New("trsa: candidate modulus failed validation")

	// ErrDealerMisbehavior covers taxonomy case 2: a Feldman commitment
	// check failed for some dealer during VSS. Fatal to Setup.
	ErrDealerMisbehavior = errors.New("trsa: dealer commitment check failed")

	// ErrInvalidShare covers taxonomy case 3: a signature share's ZK proof
	// failed verification. Fatal to the current signing attempt.
	ErrInvalidShare = errors.New("trsa: signature share failed proof verification")

	// ErrInsufficientAgreement covers taxonomy case 4: fewer than k parties
	// agreed to sign. Not an error in the fatal sense — signing is
	// silently skipped. pkg/coordinator's Sign also returns it for a subset
	// larger than k.
	ErrInsufficientAgreement = errors.New("trsa: fewer than k parties agreed to sign")

	// ErrMissingBroadcast covers taxonomy case 5: a phase barrier did not
	// receive a message from every expected party. Fatal.
	ErrMissingBroadcast = errors.New("trsa: missing broadcast at phase barrier")

	// ErrInconsistentCorrection covers taxonomy case 6: parties disagreed
	// on the exhaustive-search result for x_I. Fatal, indicates earlier
	// corruption.
	ErrInconsistentCorrection = errors.New("trsa: parties disagree on presigning correction x_I")

	// ErrArithmeticPrecondition covers taxonomy case 7: an arithmetic
	// precondition the protocol assumes did not hold (gcd(a,M) != 1, no
	// epsilon found in trial decryption, etc). Fatal.
	ErrArithmeticPrecondition = errors.New("trsa: arithmetic precondition violated")
)

// ProtocolError wraps a taxonomy sentinel with the party or parties it
// blames and the underlying cause, matching spec.md §7's "abort, name the
// offending party" requirement.
type ProtocolError struct {
	Category error
	Culprits party.IDSlice
	Cause    error
}

func (e *ProtocolError) Error() string {
	var who string
	switch len(e.Culprits) {
	case 0:
		who = ""
	case 1:
		who = fmt.Sprintf(" (culprit: %s)", e.Culprits[0])
	default:
		names := make([]string, len(e.Culprits))
		for i, id := range e.Culprits {
			names[i] = string(id)
		}
		who = fmt.Sprintf(" (culprits: %s)", strings.Join(names, ", "))
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s%s: %v", e.Category, who, e.Cause)
	}
	return fmt.Sprintf("%s%s", e.Category, who)
}

func (e *ProtocolError) Unwrap() error {
	return e.Category
}

// New builds a ProtocolError for the given taxonomy category, optionally
// naming culprits and wrapping a cause.
func New(category error, culprits party.IDSlice, cause error) *ProtocolError {
	return &ProtocolError{Category: category, Culprits: culprits, Cause: cause}
}

// Is reports whether err belongs to the given taxonomy category, unwrapping
// through any ProtocolError wrapper.
func Is(err, category error) bool {
	return errors.Is(err, category)
}
