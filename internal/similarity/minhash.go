package similarity

import (
	"errors"
	"hash/fnv"
	"math"
	"math/rand"
)

// DefaultNumPermutations is the signature width used when none is configured.
const DefaultNumPermutations = 128

// permutationSeed fixes the permutation coefficients so identical inputs
// produce identical signatures across runs and machines.
const permutationSeed int64 = 0x6c69627261726961 // "libraria"

// ErrEmptyShingles is returned when a signature is requested for an empty
// shingle set; the tokenizer guarantees this cannot happen for non-empty
// input, so hitting it means a caller skipped tokenization.
var ErrEmptyShingles = errors.New("cannot sign an empty shingle set")

// MinHasher computes fixed-width MinHash signatures. Each of the numPerm
// permutations is the universal hash h_i(x) = a_i*x + b_i over the 64-bit
// FNV-1a hash of a shingle, truncated to its high 32 bits.
type MinHasher struct {
	numPerm int
	a       []uint64
	b       []uint64
}

// NewMinHasher returns a hasher with numPerm permutations drawn from the
// fixed seed. Non-positive numPerm falls back to the default.
func NewMinHasher(numPerm int) *MinHasher {
	if numPerm <= 0 {
		numPerm = DefaultNumPermutations
	}
	rng := rand.New(rand.NewSource(permutationSeed))
	m := &MinHasher{
		numPerm: numPerm,
		a:       make([]uint64, numPerm),
		b:       make([]uint64, numPerm),
	}
	for i := 0; i < numPerm; i++ {
		m.a[i] = rng.Uint64() | 1 // odd multiplier
		m.b[i] = rng.Uint64()
	}
	return m
}

// NumPermutations returns the signature width.
func (m *MinHasher) NumPermutations() int {
	return m.numPerm
}

// Signature computes the MinHash signature of a shingle set.
func (m *MinHasher) Signature(shingles []string) ([]uint32, error) {
	if len(shingles) == 0 {
		return nil, ErrEmptyShingles
	}

	base := make([]uint64, len(shingles))
	for i, s := range shingles {
		h := fnv.New64a()
		_, _ = h.Write([]byte(s))
		base[i] = h.Sum64()
	}

	sig := make([]uint32, m.numPerm)
	for i := 0; i < m.numPerm; i++ {
		min := uint32(math.MaxUint32)
		a, b := m.a[i], m.b[i]
		for _, x := range base {
			v := uint32((a*x + b) >> 32)
			if v < min {
				min = v
			}
		}
		sig[i] = min
	}
	return sig, nil
}

// EstimateSimilarity returns the fraction of matching signature positions,
// an unbiased estimate of the Jaccard similarity of the underlying sets.
// Signatures of different widths estimate to 0.
func EstimateSimilarity(a, b []uint32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	matches := 0
	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(a))
}
