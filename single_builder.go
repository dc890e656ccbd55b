package pthash

import (
	"fmt"
	"sort"
	"time"

	"github.com/clayne/pthash/internal/bits"
	"github.com/clayne/pthash/internal/bucketer"

	pthasherrors "github.com/clayne/pthash/errors"
)

// singleBuilder holds the state of one internal-memory single-PHF
// construction: the per-bucket pilots, the taken-slot bitvector, and the
// free-slot mapping for minimal output. The evaluator is assembled from a
// completed builder by encoding pilots and free slots.
type singleBuilder struct {
	seed       uint64
	numKeys    uint64
	tableSize  uint64
	numBuckets uint64
	bucketer   *bucketer.Skew
	pilots     []uint64
	taken      *bits.BitVector
	freeSlots  []uint64
}

// buildFromHashes runs mapping, ordering and the pilot search over n hashes.
// The seed must already be resolved (never the InvalidSeed sentinel); seed
// retries happen in the callers. On ErrSeed the builder state is garbage and
// the caller retries with a fresh builder.
func (b *singleBuilder) buildFromHashes(hashes []Hash128, cfg *BuildConfig) (BuildTimings, error) {
	var timings BuildTimings

	numKeys := uint64(len(hashes))
	b.seed = cfg.Seed
	b.numKeys = numKeys
	b.tableSize = tableSizeFor(numKeys, cfg.Alpha)

	b.numBuckets = cfg.NumBuckets
	if b.numBuckets == 0 {
		b.numBuckets = numBucketsFor(numKeys, cfg.C)
	}
	b.bucketer = bucketer.NewSkew(b.numBuckets)

	cfg.logf("num_keys = %d", numKeys)
	cfg.logf("table_size = %d", b.tableSize)
	cfg.logf("num_buckets = %d", b.numBuckets)

	// Mapping + ordering: group the second hash halves per bucket, then
	// visit buckets by decreasing size. Ties resolve by ascending bucket id
	// through the stable sort, so construction is a pure function of
	// (hashes, seed, config).
	mapStart := time.Now()
	buckets := make([][]uint64, b.numBuckets)
	for _, h := range hashes {
		id := b.bucketer.Bucket(h.First())
		buckets[id] = append(buckets[id], h.Second())
	}

	order := make([]uint64, 0, b.numBuckets)
	for id := uint64(0); id < b.numBuckets; id++ {
		payloads := buckets[id]
		if len(payloads) == 0 {
			continue
		}
		sort.Slice(payloads, func(i, j int) bool { return payloads[i] < payloads[j] })
		for i := 1; i < len(payloads); i++ {
			if payloads[i] == payloads[i-1] {
				// Two keys agree on both bucket and second half; no pilot
				// can separate them under this seed.
				return timings, fmt.Errorf("%w: duplicate hash in bucket %d",
					pthasherrors.ErrSeed, id)
			}
		}
		order = append(order, id)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return len(buckets[order[i]]) > len(buckets[order[j]])
	})
	timings.MappingOrderingSeconds = time.Since(mapStart).Seconds()

	// Search: for each bucket, the smallest pilot whose mixed value XORed
	// with every second half lands all keys on distinct free slots.
	searchStart := time.Now()
	b.pilots = make([]uint64, b.numBuckets)
	b.taken = bits.NewBitVector(b.tableSize)
	mTable := bits.ComputeM64(b.tableSize)
	pilotLimit := cfg.pilotLimit()

	slots := make([]uint64, 0, 64)
	for _, id := range order {
		payloads := buckets[id]
		placed := false
		for pilot := uint64(0); pilot < pilotLimit; pilot++ {
			hashedPilot := hash64(pilot, b.seed)
			slots = slots[:0]
			ok := true
			for _, payload := range payloads {
				s := bits.FastMod64(payload^hashedPilot, mTable, b.tableSize)
				if b.taken.Get(s) {
					// Roll back the slots this pilot already claimed. An
					// intra-bucket duplicate slot trips here too, since the
					// earlier key just marked it.
					for _, t := range slots {
						b.taken.Clear(t)
					}
					ok = false
					break
				}
				b.taken.Set(s)
				slots = append(slots, s)
			}
			if ok {
				b.pilots[id] = pilot
				placed = true
				break
			}
		}
		if !placed {
			return timings, fmt.Errorf("%w: pilot search limit %d hit for bucket of size %d",
				pthasherrors.ErrSeed, pilotLimit, len(payloads))
		}
	}

	// Minimal remap: map each taken overflow slot, in slot order, onto the
	// next hole below numKeys.
	if cfg.MinimalOutput && numKeys < b.tableSize {
		b.freeSlots = fillFreeSlots(b.taken, numKeys, b.tableSize)
	} else {
		b.freeSlots = nil
	}
	timings.SearchingSeconds = time.Since(searchStart).Seconds()

	return timings, nil
}

// fillFreeSlots produces the monotone non-decreasing sequence of length
// tableSize-numKeys that backs the minimal-mode remap. Entry j corresponds
// to overflow slot numKeys+j: taken overflow slots consume successive holes
// below numKeys; untaken ones carry the next hole (or the last consumed one
// at the tail) as filler, which keeps the sequence monotone for Elias-Fano
// and is never read at query time.
func fillFreeSlots(taken *bits.BitVector, numKeys, tableSize uint64) []uint64 {
	freeSlots := make([]uint64, 0, tableSize-numKeys)

	nextOverflow := numKeys
	hole := uint64(0)
	lastHole := uint64(0)

	for {
		for hole < numKeys && taken.Get(hole) {
			hole++
		}
		if hole == numKeys {
			break
		}

		for nextOverflow < tableSize && !taken.Get(nextOverflow) {
			freeSlots = append(freeSlots, hole)
			nextOverflow++
		}
		if nextOverflow == tableSize {
			break
		}

		freeSlots = append(freeSlots, hole)
		lastHole = hole
		nextOverflow++
		hole++
	}

	for nextOverflow < tableSize {
		freeSlots = append(freeSlots, lastHole)
		nextOverflow++
	}

	return freeSlots
}
