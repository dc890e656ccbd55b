package pthash

import (
	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"

	pthasherrors "github.com/clayne/pthash/errors"
)

// Hash128 is a 128-bit hash value with two independent 64-bit projections.
// First selects the bucket, Second drives the slot computation, and Mix is
// the combiner used to route keys to partitions.
type Hash128 struct {
	first  uint64
	second uint64
}

// NewHash128 builds a Hash128 from its two halves.
func NewHash128(first, second uint64) Hash128 {
	return Hash128{first: first, second: second}
}

// First returns the first 64-bit half.
func (h Hash128) First() uint64 { return h.first }

// Second returns the second 64-bit half.
func (h Hash128) Second() uint64 { return h.second }

// Mix returns a well-distributed combiner of both halves. Partition routing
// uses Mix so that it stays independent of the per-partition bucket and slot
// computations, which consume First and Second.
func (h Hash128) Mix() uint64 {
	return mix64(h.first ^ h.second)
}

// Hasher hashes a key deterministically under a seed. Implementations must
// be stateless: the same (key, seed) pair always yields the same value, at
// build time and at query time.
type Hasher interface {
	Hash(key []byte, seed uint64) Hash128

	// Bits reports the effective hash width, used by the pre-flight
	// collision-probability check.
	Bits() int
}

// XXH3Hasher hashes keys with xxHash3-128. This is the default hasher.
type XXH3Hasher struct{}

// Hash implements Hasher.
func (XXH3Hasher) Hash(key []byte, seed uint64) Hash128 {
	h := xxh3.Hash128Seed(key, seed)
	return Hash128{first: h.Hi, second: h.Lo}
}

// Bits implements Hasher.
func (XXH3Hasher) Bits() int { return 128 }

// Murmur3Hasher hashes keys with MurmurHash3 x64-128. The 64-bit seed is
// folded to the 32-bit seed murmur3 accepts.
type Murmur3Hasher struct{}

// Hash implements Hasher.
func (Murmur3Hasher) Hash(key []byte, seed uint64) Hash128 {
	h1, h2 := murmur3.Sum128WithSeed(key, uint32(seed^(seed>>32)))
	return Hash128{first: h1, second: h2}
}

// Bits implements Hasher.
func (Murmur3Hasher) Bits() int { return 128 }

// mixC is the multiplicative constant feeding the pilot mixer, from the
// PTRHash line of work.
const mixC = 0x517cc1b727220a95

// mix64 is the SplitMix64 finalizer (Stafford variant).
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// hash64 mixes a pilot value with the seed. It must be identical at build
// and query: the slot of a key is (second ^ hash64(pilot, seed)) mod m.
func hash64(x, seed uint64) uint64 {
	return mix64(mixC * (x ^ seed))
}

// maxKeysFor64BitHash bounds the key count under a 64-bit hasher. Beyond
// 2^30 keys the birthday bound makes a full collision likely enough that
// the build would keep failing with ErrSeed.
const maxKeysFor64BitHash = uint64(1) << 30

// checkHashCollisionProbability refuses key counts for which the configured
// hash width cannot keep the full-collision probability negligible.
func checkHashCollisionProbability(hasher Hasher, numKeys uint64) error {
	if hasher.Bits() == 64 && numKeys > maxKeysFor64BitHash {
		return pthasherrors.ErrHashCollisionRisk
	}
	return nil
}
