package pthash

import (
	"fmt"
	"time"

	"github.com/clayne/pthash/internal/bits"
	"github.com/clayne/pthash/internal/bucketer"
	"github.com/clayne/pthash/internal/sequence"

	pthasherrors "github.com/clayne/pthash/errors"
)

// EncoderID identifies the pilot encoding stored in an artifact.
// This is written to the serialized form.
type EncoderID uint16

const (
	// EncoderCompact bit-packs pilots at the width of the largest value.
	EncoderCompact EncoderID = 0

	// EncoderDictionary stores distinct pilot values once plus per-bucket
	// ranks. Smaller when pilots repeat heavily, at one extra access.
	EncoderDictionary EncoderID = 1
)

// String returns the encoder name.
func (e EncoderID) String() string {
	switch e {
	case EncoderCompact:
		return "compact"
	case EncoderDictionary:
		return "dictionary"
	default:
		return "unknown"
	}
}

// pilotSequence is the query-side surface of an encoded pilot sequence.
type pilotSequence interface {
	Access(i uint64) uint64
	NumBits() uint64
}

func encodePilots(id EncoderID, values []uint64) (pilotSequence, error) {
	switch id {
	case EncoderCompact:
		return sequence.NewCompactVector(values), nil
	case EncoderDictionary:
		return sequence.NewDictionary(values), nil
	default:
		return nil, fmt.Errorf("%w: unknown encoder id %d",
			pthasherrors.ErrInvalidArgument, id)
	}
}

// Option configures an artifact at construction time.
type Option func(*phfOptions)

type phfOptions struct {
	encoder EncoderID
}

// WithEncoder selects the pilot encoder. Default is EncoderCompact.
func WithEncoder(id EncoderID) Option {
	return func(o *phfOptions) {
		o.encoder = id
	}
}

// SinglePHF is a perfect hash function over a static key set, built with a
// single pilot table. Immutable after a successful build; safe for
// concurrent queries without synchronization.
type SinglePHF struct {
	seed      uint64
	numKeys   uint64
	tableSize uint64
	m         bits.M64
	bucketer  *bucketer.Skew
	pilots    pilotSequence
	freeSlots *sequence.EliasFano
	minimal   bool
	encoder   EncoderID
	hasher    Hasher
}

// NewSinglePHF returns an empty artifact. minimal selects the output
// surface: a bijection onto [0, n) or an injection into [0, m). The build
// configuration's MinimalOutput must agree.
func NewSinglePHF(minimal bool, hasher Hasher, opts ...Option) *SinglePHF {
	o := phfOptions{encoder: EncoderCompact}
	for _, opt := range opts {
		opt(&o)
	}
	return &SinglePHF{minimal: minimal, encoder: o.encoder, hasher: hasher}
}

// BuildFromKeys hashes the keys and builds the PHF in internal memory.
// With the InvalidSeed sentinel, up to ten random seeds are tried; an
// explicit seed fails fast with ErrSeed so the caller owns the retry loop.
func (f *SinglePHF) BuildFromKeys(keys [][]byte, cfg BuildConfig) (BuildTimings, error) {
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
		return f.buildFromKeysWithSeed(keys, cfg)
	}

	var lastErr error
	for attempt := 0; attempt < maxSeedAttempts; attempt++ {
		cfg.Seed = cfg.randomSeed()
		cfg.logf("attempt %d with seed %d", attempt+1, cfg.Seed)
		timings, err := f.buildFromKeysWithSeed(keys, cfg)
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

func (f *SinglePHF) buildFromKeysWithSeed(keys [][]byte, cfg BuildConfig) (BuildTimings, error) {
	hashes := hashKeys(f.hasher, keys, cfg.Seed, cfg.NumThreads)
	return f.BuildFromHashes(hashes, cfg)
}

// BuildFromHashes builds the PHF from pre-computed hashes. The seed must be
// explicit: retrying a failed seed requires rehashing the keys, which only
// BuildFromKeys can do.
func (f *SinglePHF) BuildFromHashes(hashes []Hash128, cfg BuildConfig) (BuildTimings, error) {
	if err := cfg.validate(); err != nil {
		return BuildTimings{}, err
	}
	if cfg.Seed == InvalidSeed {
		return BuildTimings{}, fmt.Errorf("%w: BuildFromHashes requires an explicit seed",
			pthasherrors.ErrInvalidArgument)
	}
	if cfg.MinimalOutput != f.minimal {
		return BuildTimings{}, fmt.Errorf(
			"%w: artifact minimal=%t but config minimal_output=%t",
			pthasherrors.ErrInvalidArgument, f.minimal, cfg.MinimalOutput)
	}
	if len(hashes) == 0 {
		return BuildTimings{}, pthasherrors.ErrEmptyKeySet
	}

	var builder singleBuilder
	timings, err := builder.buildFromHashes(hashes, &cfg)
	if err != nil {
		return timings, err
	}

	encodingStart := time.Now()
	if err := f.fromBuilder(&builder); err != nil {
		return timings, err
	}
	timings.EncodingSeconds = time.Since(encodingStart).Seconds()
	return timings, nil
}

// fromBuilder assembles the immutable artifact from a completed builder.
func (f *SinglePHF) fromBuilder(b *singleBuilder) error {
	f.seed = b.seed
	f.numKeys = b.numKeys
	f.tableSize = b.tableSize
	f.m = bits.ComputeM64(b.tableSize)
	f.bucketer = b.bucketer

	pilots, err := encodePilots(f.encoder, b.pilots)
	if err != nil {
		return err
	}
	f.pilots = pilots

	if f.minimal && f.numKeys < f.tableSize {
		universe := f.numKeys
		if universe == 0 {
			universe = 1
		}
		f.freeSlots = sequence.NewEliasFano(b.freeSlots, universe)
	} else {
		f.freeSlots = nil
	}
	return nil
}

// Lookup returns the position of a key.
func (f *SinglePHF) Lookup(key []byte) uint64 {
	return f.Position(f.hasher.Hash(key, f.seed))
}

// Position returns the position for a pre-computed hash.
func (f *SinglePHF) Position(h Hash128) uint64 {
	bucket := f.bucketer.Bucket(h.First())
	pilot := f.pilots.Access(bucket)
	p := bits.FastMod64(h.Second()^hash64(pilot, f.seed), f.m, f.tableSize)
	if f.minimal && p >= f.numKeys {
		return f.freeSlots.Access(p - f.numKeys)
	}
	return p
}

// NumKeys returns n.
func (f *SinglePHF) NumKeys() uint64 { return f.numKeys }

// TableSize returns m.
func (f *SinglePHF) TableSize() uint64 { return f.tableSize }

// Seed returns the seed the artifact was built with.
func (f *SinglePHF) Seed() uint64 { return f.seed }

// IsMinimal reports whether positions form a bijection onto [0, n).
func (f *SinglePHF) IsMinimal() bool { return f.minimal }

// Encoder returns the pilot encoder id.
func (f *SinglePHF) Encoder() EncoderID { return f.encoder }

// NumBitsForPilots returns the bits spent on the fixed fields, the bucketer
// and the encoded pilots.
func (f *SinglePHF) NumBitsForPilots() uint64 {
	return 8*(8+8+8+16) + f.bucketer.NumBits() + f.pilots.NumBits()
}

// NumBitsForMapper returns the bits spent on the free-slots mapper.
func (f *SinglePHF) NumBitsForMapper() uint64 {
	if f.freeSlots == nil {
		return 0
	}
	return f.freeSlots.NumBits()
}

// NumBits returns the total artifact size in bits.
func (f *SinglePHF) NumBits() uint64 {
	return f.NumBitsForPilots() + f.NumBitsForMapper()
}
