package pthash

import (
	"fmt"

	"github.com/clayne/pthash/internal/bucketer"

	pthasherrors "github.com/clayne/pthash/errors"
)

// partition pairs a sub-PHF with its base position in the global output
// space.
type partition struct {
	offset uint64
	phf    *SinglePHF
}

// PartitionedPHF shards a key set across independent single PHFs to
// parallelize construction and bound peak memory. Keys route to partitions
// by the Mix projection of their hash; within a partition the single-PHF
// query path applies unchanged, and the partition's offset lifts the local
// position into the global space.
//
// Immutable after a successful build; safe for concurrent queries.
type PartitionedPHF struct {
	seed       uint64
	numKeys    uint64
	tableSize  uint64
	bucketer   *bucketer.Uniform
	partitions []partition
	minimal    bool
	encoder    EncoderID
	hasher     Hasher
}

// NewPartitionedPHF returns an empty artifact. See NewSinglePHF for the
// minimal flag and options.
func NewPartitionedPHF(minimal bool, hasher Hasher, opts ...Option) *PartitionedPHF {
	o := phfOptions{encoder: EncoderCompact}
	for _, opt := range opts {
		opt(&o)
	}
	return &PartitionedPHF{minimal: minimal, encoder: o.encoder, hasher: hasher}
}

// BuildFromKeys hashes the keys and builds all partitions. Seed discipline
// matches SinglePHF.BuildFromKeys: the InvalidSeed sentinel retries random
// seeds, an explicit seed fails fast.
func (f *PartitionedPHF) BuildFromKeys(keys [][]byte, cfg BuildConfig) (BuildTimings, error) {
	if err := cfg.validate(); err != nil {
		return BuildTimings{}, err
	}
	if cfg.MinimalOutput != f.minimal {
		return BuildTimings{}, fmt.Errorf(
			"%w: artifact minimal=%t but config minimal_output=%t",
			pthasherrors.ErrInvalidArgument, f.minimal, cfg.MinimalOutput)
	}
	if len(keys) == 0 {
		return BuildTimings{}, pthasherrors.ErrEmptyKeySet
	}
	if err := checkHashCollisionProbability(f.hasher, uint64(len(keys))); err != nil {
		return BuildTimings{}, err
	}

	if cfg.Seed != InvalidSeed {
		hashes := hashKeys(f.hasher, keys, cfg.Seed, cfg.NumThreads)
		return f.BuildFromHashes(hashes, cfg)
	}

	var lastErr error
	for attempt := 0; attempt < maxSeedAttempts; attempt++ {
		cfg.Seed = cfg.randomSeed()
		cfg.logf("attempt %d with seed %d", attempt+1, cfg.Seed)
		hashes := hashKeys(f.hasher, keys, cfg.Seed, cfg.NumThreads)
		timings, err := f.BuildFromHashes(hashes, cfg)
		if err == nil {
			return timings, nil
		}
		if !isSeedError(err) {
			return BuildTimings{}, err
		}
		lastErr = err
	}
	return BuildTimings{}, fmt.Errorf("%w: all %d random seeds failed: %v",
		pthasherrors.ErrSeed, maxSeedAttempts, lastErr)
}

// Lookup returns the global position of a key.
func (f *PartitionedPHF) Lookup(key []byte) uint64 {
	return f.Position(f.hasher.Hash(key, f.seed))
}

// Position returns the global position for a pre-computed hash. Partition
// routing consumes Mix; the sub-PHF consumes First and Second.
func (f *PartitionedPHF) Position(h Hash128) uint64 {
	b := f.bucketer.Bucket(h.Mix())
	p := &f.partitions[b]
	return p.offset + p.phf.Position(h)
}

// NumKeys returns the total n.
func (f *PartitionedPHF) NumKeys() uint64 { return f.numKeys }

// TableSize returns the total m.
func (f *PartitionedPHF) TableSize() uint64 { return f.tableSize }

// Seed returns the seed, shared by every sub-PHF.
func (f *PartitionedPHF) Seed() uint64 { return f.seed }

// IsMinimal reports whether positions form a bijection onto [0, n).
func (f *PartitionedPHF) IsMinimal() bool { return f.minimal }

// Encoder returns the pilot encoder id.
func (f *PartitionedPHF) Encoder() EncoderID { return f.encoder }

// NumPartitions returns the number of partitions.
func (f *PartitionedPHF) NumPartitions() uint64 { return uint64(len(f.partitions)) }

// NumBitsForPilots sums the fixed fields, the partition bucketer and every
// sub-PHF's pilot side.
func (f *PartitionedPHF) NumBitsForPilots() uint64 {
	numBits := 8*uint64(8+8+8+8) + f.bucketer.NumBits()
	for i := range f.partitions {
		numBits += 8*8 + f.partitions[i].phf.NumBitsForPilots()
	}
	return numBits
}

// NumBitsForMapper sums every sub-PHF's free-slots mapper.
func (f *PartitionedPHF) NumBitsForMapper() uint64 {
	var numBits uint64
	for i := range f.partitions {
		numBits += f.partitions[i].phf.NumBitsForMapper()
	}
	return numBits
}

// NumBits returns the total artifact size in bits.
func (f *PartitionedPHF) NumBits() uint64 {
	return f.NumBitsForPilots() + f.NumBitsForMapper()
}
