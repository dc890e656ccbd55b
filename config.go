package pthash

import (
	"fmt"
	"log"
	"math"
	"math/rand/v2"

	pthasherrors "github.com/clayne/pthash/errors"
)

const (
	// InvalidSeed is the sentinel that makes the builder draw random seeds
	// until one succeeds (bounded by maxSeedAttempts).
	InvalidSeed = ^uint64(0)

	// DefaultMinPartitionSize is the smallest average partition worth
	// sharding. When n / NumPartitions falls below the configured
	// threshold, the build collapses to a single partition.
	DefaultMinPartitionSize = 50000

	// maxSeedAttempts bounds the random-seed retry loop when the seed is
	// the InvalidSeed sentinel.
	maxSeedAttempts = 10

	// defaultPilotLimit is the default per-bucket pilot search bound.
	// Reaching it aborts the build with ErrSeed.
	defaultPilotLimit = uint64(1) << 24
)

// BuildConfig holds the knobs of a PHF construction. The zero value is not
// usable; start from DefaultBuildConfig.
type BuildConfig struct {
	// Seed seeds both the key hashes and the pilot mixer. The InvalidSeed
	// sentinel draws random seeds (from SeedSource) until a build succeeds.
	Seed uint64

	// Alpha is the load factor n/m, in (0, 1]. Alpha = 1 yields a minimal
	// table with no overflow slots.
	Alpha float64

	// C tunes the bucket count: B = ceil(C*n / log2(n)).
	C float64

	// MinimalOutput demands a bijection onto [0, n).
	MinimalOutput bool

	// NumPartitions shards the keys across independent single PHFs.
	NumPartitions uint64

	// NumBuckets overrides the derived bucket count when non-zero.
	NumBuckets uint64

	// NumThreads bounds build parallelism. The output is independent of it.
	NumThreads int

	// MinPartitionSize overrides the partition-collapse threshold when
	// non-zero. Zero uses DefaultMinPartitionSize.
	MinPartitionSize uint64

	// PilotLimit overrides the per-bucket pilot search bound when non-zero.
	// Tight limits force ErrSeed; tests use this to exercise retry loops.
	PilotLimit uint64

	// Verbose enables build progress reporting through Logger.
	Verbose bool

	// Logger receives progress lines when Verbose is set. Nil logs through
	// the standard logger.
	Logger func(format string, args ...any)

	// SeedSource draws random seeds for the InvalidSeed sentinel. Nil uses
	// the global math/rand source. Tests inject a deterministic source.
	SeedSource func() uint64
}

// DefaultBuildConfig returns the recommended defaults.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		Seed:          InvalidSeed,
		Alpha:         0.94,
		C:             7.0,
		NumPartitions: 1,
		NumThreads:    1,
	}
}

func (c *BuildConfig) validate() error {
	if c.Alpha <= 0 || c.Alpha > 1.0 {
		return fmt.Errorf("%w: alpha must be in (0, 1], got %v",
			pthasherrors.ErrInvalidArgument, c.Alpha)
	}
	if c.C <= 0 {
		return fmt.Errorf("%w: c must be > 0, got %v",
			pthasherrors.ErrInvalidArgument, c.C)
	}
	if c.NumPartitions == 0 {
		return fmt.Errorf("%w: number of partitions must be > 0",
			pthasherrors.ErrInvalidArgument)
	}
	if c.NumThreads < 1 {
		return fmt.Errorf("%w: number of threads must be >= 1, got %d",
			pthasherrors.ErrInvalidArgument, c.NumThreads)
	}
	return nil
}

func (c *BuildConfig) minPartitionSize() uint64 {
	if c.MinPartitionSize != 0 {
		return c.MinPartitionSize
	}
	return DefaultMinPartitionSize
}

func (c *BuildConfig) pilotLimit() uint64 {
	if c.PilotLimit != 0 {
		return c.PilotLimit
	}
	return defaultPilotLimit
}

func (c *BuildConfig) randomSeed() uint64 {
	if c.SeedSource != nil {
		return c.SeedSource()
	}
	return rand.Uint64()
}

func (c *BuildConfig) logf(format string, args ...any) {
	if !c.Verbose {
		return
	}
	if c.Logger != nil {
		c.Logger(format, args...)
		return
	}
	log.Printf(format, args...)
}

// BuildTimings reports the wall-clock cost of each build phase, in seconds.
// For parallel partitioned builds, the concurrent phases report the maximum
// across workers.
type BuildTimings struct {
	PartitioningSeconds    float64
	MappingOrderingSeconds float64
	SearchingSeconds       float64
	EncodingSeconds        float64
}

// tableSizeFor computes m = ceil(n/alpha), bumped past a power of two so
// the fastmod reduction of the XOR search never degenerates into masking.
func tableSizeFor(numKeys uint64, alpha float64) uint64 {
	tableSize := uint64(math.Ceil(float64(numKeys) / alpha))
	if tableSize&(tableSize-1) == 0 {
		tableSize++
	}
	return tableSize
}

// numBucketsFor computes B = ceil(c*n / log2(n)), with log2(n) replaced by
// 1 when n <= 1.
func numBucketsFor(numKeys uint64, c float64) uint64 {
	log2n := 1.0
	if numKeys > 1 {
		log2n = math.Log2(float64(numKeys))
	}
	b := uint64(math.Ceil(c * float64(numKeys) / log2n))
	if b == 0 {
		b = 1
	}
	return b
}
