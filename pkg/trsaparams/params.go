// Package trsaparams collects the protocol-wide constants assumed by the
// threshold RSA core. None of these are tunable per-run; they describe the
// security target this implementation is built for.
package trsaparams

import "math/big"

const (
	// PublicExponent is the RSA public exponent shared by every party.
	PublicExponent = 65537

	// BitsSecure is the target bit length of each prime factor p, q.
	// N = p*q is therefore roughly 2*BitsSecure bits.
	BitsSecure = 1024

	// SieveBound1 bounds the small-prime trial-division sieve used while
	// sampling per-party candidate factors during distributed modulus
	// generation (distributed sieving, spec.md §4.C).
	SieveBound1 = 1 << 15

	// SieveBound2 bounds the second, post-generation trial-division pass
	// that validates a freshly assembled N before the biprimality check.
	SieveBound2 = 1 << 19

	// ShareModulusBits is the bit length of M, the large prime modulus
	// used for additive/Shamir sharing. M must exceed N with margin.
	ShareModulusBits = 2051

	// TrialDecryptionMessage is the fixed public test message used to
	// correct the off-by-small-epsilon error in distributed d generation
	// (spec.md §4.D, step 6).
	TrialDecryptionMessage = 1234567
)

// PublicExponentBig is PublicExponent as a *big.Int, computed once.
var PublicExponentBig = big.NewInt(PublicExponent)

// DummyBase is the fixed integer (2) whose e-th power m* = 2^e mod N is the
// "dummy ciphertext" signed during subset presigning (spec.md §4.F).
var DummyBase = big.NewInt(2)
