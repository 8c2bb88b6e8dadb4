package similarity

import (
	"encoding/binary"
	"math"
	"sort"
)

// LSHIndex is a banded collision index over MinHash signatures. A signature
// is split into bands of rows consecutive values; two signatures are
// candidates when any band matches exactly. The index returns candidates
// with false positives and no post-filtering; the cluster builder
// re-estimates pairwise similarity and re-thresholds.
type LSHIndex struct {
	bands     int
	rows      int
	threshold float64
	buckets   []map[string][]int
	inserted  map[int][]uint32
}

// NewLSHIndex builds an empty index for signatures of numPerm values tuned
// to the given detection threshold. Band geometry is chosen by minimizing
// the equally weighted false-positive and false-negative integrals under
// the collision curve 1-(1-s^r)^b.
func NewLSHIndex(numPerm int, threshold float64) *LSHIndex {
	if numPerm <= 0 {
		numPerm = DefaultNumPermutations
	}
	b, r := optimalBands(numPerm, threshold)
	idx := &LSHIndex{
		bands:     b,
		rows:      r,
		threshold: threshold,
		buckets:   make([]map[string][]int, b),
		inserted:  map[int][]uint32{},
	}
	for i := range idx.buckets {
		idx.buckets[i] = map[string][]int{}
	}
	return idx
}

// Params returns the chosen band geometry.
func (x *LSHIndex) Params() (bands, rows int) {
	return x.bands, x.rows
}

// Threshold returns the detection threshold the index was tuned for.
func (x *LSHIndex) Threshold() float64 {
	return x.threshold
}

// Insert adds a signature under fileIndex. Re-inserting the identical
// signature for the same file is a no-op; distinct file indices are the
// caller's responsibility.
func (x *LSHIndex) Insert(fileIndex int, sig []uint32) {
	if prev, ok := x.inserted[fileIndex]; ok && signaturesEqual(prev, sig) {
		return
	}
	x.inserted[fileIndex] = sig
	for b := 0; b < x.bands; b++ {
		key := x.bandKey(b, sig)
		x.buckets[b][key] = append(x.buckets[b][key], fileIndex)
	}
}

// Query returns the sorted file indices colliding with sig in at least one
// band. A previously inserted identical signature finds itself.
func (x *LSHIndex) Query(sig []uint32) []int {
	seen := map[int]struct{}{}
	for b := 0; b < x.bands; b++ {
		for _, id := range x.buckets[b][x.bandKey(b, sig)] {
			seen[id] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func (x *LSHIndex) bandKey(band int, sig []uint32) string {
	buf := make([]byte, x.rows*4)
	for i := 0; i < x.rows; i++ {
		binary.BigEndian.PutUint32(buf[i*4:], sig[band*x.rows+i])
	}
	return string(buf)
}

func signaturesEqual(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// optimalBands picks (b, r) with b*r <= numPerm minimizing
// 0.5*FP + 0.5*FN, where FP integrates the collision probability below the
// threshold and FN integrates the miss probability above it.
func optimalBands(numPerm int, threshold float64) (int, int) {
	best := math.MaxFloat64
	bestB, bestR := 1, numPerm
	for b := 1; b <= numPerm; b++ {
		maxR := numPerm / b
		for r := 1; r <= maxR; r++ {
			fp := integrate(func(s float64) float64 {
				return 1 - math.Pow(1-math.Pow(s, float64(r)), float64(b))
			}, 0, threshold)
			fn := integrate(func(s float64) float64 {
				return math.Pow(1-math.Pow(s, float64(r)), float64(b))
			}, threshold, 1)
			cost := 0.5*fp + 0.5*fn
			if cost < best {
				best = cost
				bestB, bestR = b, r
			}
		}
	}
	return bestB, bestR
}

func integrate(f func(float64) float64, a, b float64) float64 {
	const steps = 1000
	w := (b - a) / steps
	var area float64
	for i := 0; i < steps; i++ {
		area += f(a+w*(float64(i)+0.5)) * w
	}
	return area
}
