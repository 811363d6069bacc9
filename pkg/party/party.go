package party

import (
	"math/big"
	"sync"
)

// PresigningData is the per-subset state produced by subset presigning
// (spec.md §3, §4.F) and cached for reuse across signatures under the same
// agreeing subset.
type PresigningData struct {
	// Subset is the agreeing set I this data was computed for.
	Subset Subset

	// Lambda is this party's Lagrange coefficient at 0 over I.
	Lambda *big.Int

	// S is this party's additive share s_{I,i} of Σ_{j∉I} d_j.
	S *big.Int

	// H is the Feldman-style commitment g^{s_{I,i}} mod N, broadcast to I.
	H *big.Int

	// ReceivedH holds every other I-member's broadcast commitment h_j.
	ReceivedH map[ID]*big.Int

	// X is the exponent correction x_I recovered in Phase 3.
	X *big.Int

	// DummyShares holds the dummy-message (m* = 2^e) signature shares
	// collected from every member of I while recovering X.
	DummyShares map[ID]*big.Int
}

// SignatureShare is one party's contribution to a signature on some message,
// together with the Chaum-Pedersen style proof of correctness (spec.md
// §3, §4.G).
type SignatureShare struct {
	From  ID
	C     *big.Int // c_i = m^{s_i + d_i} mod N
	Proof *Proof
}

// Proof is the non-interactive zero-knowledge proof attached to a
// SignatureShare: knowledge of alpha = s_i + d_i such that g^alpha =
// b_{i,0}*h_i and m^alpha = c_i.
type Proof struct {
	GS *big.Int // g^s
	MS *big.Int // m^s
	C  *big.Int // challenge
	R  *big.Int // response s + c*alpha
}

// Party holds the complete persistent state of one participant (spec.md
// §3). It is single-owner: only broadcast/point-to-point messages ever
// cross a Party boundary, and those are always deep-copied before delivery
// (spec.md §5).
type Party struct {
	mu sync.RWMutex

	ID ID
	N  int // total number of parties
	K  int // threshold

	AllParties IDSlice

	// Public parameters, identical at every party once Setup completes.
	PubN *big.Int // RSA modulus N = p*q
	PubE *big.Int // public exponent e
	PubG *big.Int // generator g used for Feldman/Schnorr-style commitments
	PubM *big.Int // large sharing prime M

	// Private shares.
	Pi *big.Int // additive share of p
	Qi *big.Int // additive share of q
	Di *big.Int // additive share of d

	// F holds the Shamir evaluation this party received from each dealer:
	// F[j] = f_j(id+1), the share of dealer j's degree-(k-1) polynomial.
	F map[ID]*big.Int

	// B is the two-dimensional Feldman commitment table: B[j][t] =
	// g^{a_{j,t}} mod N, for dealer j's coefficient t.
	B map[ID][]*big.Int

	// Subsets records every agreeing set this party has participated in,
	// in the order presigning ran for them.
	Subsets []Subset

	// Presigning caches PresigningData by Subset.Key(), implementing the
	// "skip phases 0-4 on subset reuse" caching invariant.
	Presigning map[string]*PresigningData

	// Sigmas is a scratch buffer for received signature shares, filled by
	// StoreSigma and emptied by ClearSigmas; pkg/coordinator's Sign does not
	// use it.
	Sigmas map[ID]*SignatureShare
}

// New creates an empty Party ready to be populated by Setup.
func New(id ID, n, k int, all IDSlice) *Party {
	return &Party{
		ID:         id,
		N:          n,
		K:          k,
		AllParties: all,
		F:          make(map[ID]*big.Int),
		B:          make(map[ID][]*big.Int),
		Presigning: make(map[string]*PresigningData),
		Sigmas:     make(map[ID]*SignatureShare),
	}
}

// PublicKey returns the externally-exposable key material (N, e); see
// spec.md §6. g, M, the commitment table, and k are protocol-internal and
// intentionally not returned here.
func (p *Party) PublicKey() (n, e *big.Int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.PubN, p.PubE
}

// CachedPresign returns the cached presigning data for subset I, if any.
func (p *Party) CachedPresign(i Subset) (*PresigningData, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, ok := p.Presigning[i.Key()]
	return d, ok
}

// StorePresign caches presigning data for subset I and records I in the
// participation history.
func (p *Party) StorePresign(i Subset, d *PresigningData) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Presigning[i.Key()] = d
	p.Subsets = append(p.Subsets, i)
}

// ClearSigmas empties the per-message signature-share scratch buffer.
func (p *Party) ClearSigmas() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Sigmas = make(map[ID]*SignatureShare)
}

// StoreSigma records a received signature share in the scratch buffer.
func (p *Party) StoreSigma(s *SignatureShare) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Sigmas[s.From] = s
}

// Lock/Unlock/RLock/RUnlock expose the party's mutex to callers that need
// to mutate several fields atomically while processing a broadcast.
func (p *Party) Lock()    { p.mu.Lock() }
func (p *Party) Unlock()  { p.mu.Unlock() }
func (p *Party) RLock()   { p.mu.RLock() }
func (p *Party) RUnlock() { p.mu.RUnlock() }
