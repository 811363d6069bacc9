// Package arith is the threshold RSA core's Arithmetic Facade (spec.md
// §4.A): modular exponentiation, modular inverse, canonical residues, gcd,
// uniform sampling, primality testing, and bounded prime enumeration.
//
// The facade is built on math/big rather than a constant-time bignum
// library. Side-channel-hardened arithmetic is an explicit Non-goal
// (spec.md §1), and math/big implements exactly the black-box interface
// spec.md §1 assumes of "the big-integer library": arbitrary-precision
// modular arithmetic, modular inverse, modular exponentiation, and
// primality testing. See DESIGN.md for the fuller justification.
package arith

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"
)

var (
	// ErrNotInvertible is returned when no modular inverse exists.
	ErrNotInvertible = errors.New("arith: value has no inverse mod the given modulus")
)

// Mod returns x reduced into the canonical non-negative residue [0, m),
// unlike big.Int.Mod's signed-input ambiguity this is guaranteed never to
// return a negative value even when x is negative.
func Mod(x, m *big.Int) *big.Int {
	r := new(big.Int).Mod(x, m)
	if r.Sign() < 0 {
		r.Add(r, m)
	}
	return r
}

// PowMod computes x^y mod m. Negative y is supported when x is invertible
// mod m (delegates to ModInverse then positive exponentiation).
func PowMod(x, y, m *big.Int) *big.Int {
	if y.Sign() < 0 {
		inv, err := ModInverse(x, m)
		if err != nil {
			return new(big.Int)
		}
		return new(big.Int).Exp(inv, new(big.Int).Neg(y), m)
	}
	return new(big.Int).Exp(x, y, m)
}

// ModInverse computes x^-1 mod m via the extended Euclidean algorithm. Works
// for any modulus (prime or composite), matching spec.md §4.A's "extended
// GCD when modulus is not prime" fallback; since big.Int.ModInverse already
// runs the extended Euclidean algorithm internally, the "powmod(x,-1,m) for
// prime m" fast path is not a distinct code path here — it would compute
// the identical answer at extra cost, so this facade always takes the
// extended-GCD route.
func ModInverse(x, m *big.Int) (*big.Int, error) {
	inv := new(big.Int).ModInverse(x, m)
	if inv == nil {
		return nil, ErrNotInvertible
	}
	return inv, nil
}

// GCD returns gcd(a, b).
func GCD(a, b *big.Int) *big.Int {
	return new(big.Int).GCD(nil, nil, a, b)
}

// RandInt returns a uniform random integer in [0, n).
func RandInt(random io.Reader, n *big.Int) (*big.Int, error) {
	return rand.Int(random, n)
}

// RandPrime samples a uniform random prime of the given bit length using a
// reject-resample loop around crypto/rand.Prime's Miller-Rabin test.
func RandPrime(random io.Reader, bits int) (*big.Int, error) {
	return rand.Prime(random, bits)
}

// SafePrime samples a prime p of the given bit length such that (p-1)/2 is
// also prime. Used where the protocol wants Sophie Germain structure; the
// core RSA modulus generation of spec.md §4.C does not require this, but it
// is exposed for callers (e.g. tests exercising stronger moduli) that do.
func SafePrime(random io.Reader, bits int) (*big.Int, error) {
	one := big.NewInt(1)
	for {
		q, err := rand.Prime(random, bits-1)
		if err != nil {
			return nil, err
		}
		p := new(big.Int).Lsh(q, 1)
		p.Add(p, one)
		if p.ProbablyPrime(20) {
			return p, nil
		}
	}
}

// PrimesInRange enumerates all primes in (lo, hi] with a sieve of
// Eratosthenes over [2, hi]. It is used to build the small-prime sieve bases
// and trial-division slices of spec.md §4.C (B1, B2); both bounds are small
// (≤2^19) so a full sieve is adequate and keeps this facade dependency-free.
func PrimesInRange(lo, hi int) []*big.Int {
	if lo < 1 {
		lo = 1
	}
	sieve := make([]bool, hi+1)
	var primes []*big.Int
	for n := 2; n <= hi; n++ {
		if sieve[n] {
			continue
		}
		for m := n * n; m <= hi && m > 0; m += n {
			sieve[m] = true
		}
		if n > lo {
			primes = append(primes, big.NewInt(int64(n)))
		}
	}
	return primes
}

// IsProbablyPrime runs a probabilistic primality test with a conservative
// number of Miller-Rabin rounds.
func IsProbablyPrime(x *big.Int) bool {
	return x.ProbablyPrime(20)
}
