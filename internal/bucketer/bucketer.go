// Package bucketer maps 64-bit hash values to bucket identifiers.
//
// Two distributions are provided. Skew concentrates ~60% of the keys into
// the first 30% of the buckets, so that the pilot search handles its dense
// buckets first, while the table is still mostly empty. Uniform spreads
// keys evenly and is used to shard keys across partitions.
package bucketer

import (
	"math"

	"github.com/clayne/pthash/internal/bits"
)

// skewThreshold splits the 64-bit hash range: hashes below it land in the
// dense region. Set at 0.6 of the full range.
const skewThreshold = uint64(0.6 * float64(math.MaxUint64))

// denseFraction is the share of buckets reserved for the dense region.
const denseFraction = 0.3

// Skew is the non-uniform bucketer used inside a single PHF.
type Skew struct {
	numDense  uint64
	numSparse uint64
	mDense    bits.M64
	mSparse   bits.M64
}

// NewSkew returns a skew bucketer over numBuckets buckets.
func NewSkew(numBuckets uint64) *Skew {
	numDense := uint64(denseFraction * float64(numBuckets))
	return NewSkewFromCounts(numDense, numBuckets-numDense)
}

// NewSkewFromCounts rebuilds a skew bucketer from its serialized geometry.
// The fastmod constants are derived, not stored.
func NewSkewFromCounts(numDense, numSparse uint64) *Skew {
	s := &Skew{numDense: numDense, numSparse: numSparse}
	if numDense > 0 {
		s.mDense = bits.ComputeM64(numDense)
	}
	if numSparse > 0 {
		s.mSparse = bits.ComputeM64(numSparse)
	}
	return s
}

// Bucket maps a hash to [0, NumBuckets()). Deterministic across build and
// query. Hashes under the threshold select a dense-region bucket; the rest
// select a sparse-region bucket. A degenerate geometry with no dense (or no
// sparse) buckets routes everything to the other region.
func (s *Skew) Bucket(hash uint64) uint64 {
	if s.numSparse == 0 || (s.numDense > 0 && hash < skewThreshold) {
		return bits.FastMod64(hash, s.mDense, s.numDense)
	}
	return s.numDense + bits.FastMod64(hash, s.mSparse, s.numSparse)
}

// NumBuckets returns the total number of buckets.
func (s *Skew) NumBuckets() uint64 {
	return s.numDense + s.numSparse
}

// NumDense returns the number of dense-region buckets.
func (s *Skew) NumDense() uint64 { return s.numDense }

// NumSparse returns the number of sparse-region buckets.
func (s *Skew) NumSparse() uint64 { return s.numSparse }

// NumBits returns the in-memory size of the bucketer in bits.
func (s *Skew) NumBits() uint64 {
	return 8 * (8 + 8 + 16 + 16)
}

// Uniform maps hashes evenly onto [0, n). Used to assign keys to partitions.
type Uniform struct {
	numBuckets uint64
	m          bits.M64
}

// NewUniform returns a uniform bucketer over numBuckets buckets.
func NewUniform(numBuckets uint64) *Uniform {
	return &Uniform{numBuckets: numBuckets, m: bits.ComputeM64(numBuckets)}
}

// Bucket maps a hash to [0, NumBuckets()).
func (u *Uniform) Bucket(hash uint64) uint64 {
	return bits.FastMod64(hash, u.m, u.numBuckets)
}

// NumBuckets returns the number of buckets.
func (u *Uniform) NumBuckets() uint64 { return u.numBuckets }

// NumBits returns the in-memory size of the bucketer in bits.
func (u *Uniform) NumBits() uint64 {
	return 8 * (8 + 16)
}
