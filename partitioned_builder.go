package pthash

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clayne/pthash/internal/bucketer"

	pthasherrors "github.com/clayne/pthash/errors"
)

// partitionReserveFactor over-reserves the per-partition hash buffers so
// that the uniform distribution's variance rarely forces a regrowth.
const partitionReserveFactor = 1.5

// BuildFromHashes partitions the hashes and builds every partition's
// single PHF. The seed must be explicit, as in SinglePHF.BuildFromHashes.
//
// Partitions are assigned to workers in contiguous ranges; every sub-build
// runs single-threaded on its own slice, so the artifact is a pure function
// of (hashes, seed, config) and never of NumThreads. The concurrent phase
// timings report the maximum across workers.
func (f *PartitionedPHF) BuildFromHashes(hashes []Hash128, cfg BuildConfig) (BuildTimings, error) {
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

	var timings BuildTimings
	partitioningStart := time.Now()

	numKeys := uint64(len(hashes))
	numPartitions := cfg.NumPartitions
	if numPartitions > numKeys {
		numPartitions = numKeys
	}
	if numPartitions > 1 && float64(numKeys)/float64(numPartitions) < float64(cfg.minPartitionSize()) {
		numPartitions = 1
	}
	cfg.logf("num_partitions = %d", numPartitions)

	f.seed = cfg.Seed
	f.numKeys = numKeys
	f.bucketer = bucketer.NewUniform(numPartitions)
	f.partitions = make([]partition, numPartitions)

	buffers := make([][]Hash128, numPartitions)
	reserve := uint64(partitionReserveFactor * float64(numKeys) / float64(numPartitions))
	for i := range buffers {
		buffers[i] = make([]Hash128, 0, reserve)
	}
	for _, h := range hashes {
		b := f.bucketer.Bucket(h.Mix())
		buffers[b] = append(buffers[b], h)
	}

	// Offsets and the global table size follow the same sizing rule the
	// sub-builders apply, so the two can never disagree.
	f.tableSize = 0
	var cumulative uint64
	for i := range buffers {
		partitionKeys := uint64(len(buffers[i]))
		partitionTableSize := tableSizeFor(partitionKeys, cfg.Alpha)
		f.tableSize += partitionTableSize
		f.partitions[i].offset = cumulative
		if cfg.MinimalOutput {
			cumulative += partitionKeys
		} else {
			cumulative += partitionTableSize
		}
	}

	subConfig := cfg
	subConfig.NumPartitions = numPartitions
	subConfig.Seed = f.seed
	subConfig.NumBuckets = numBucketsFor(numKeys, cfg.C) / numPartitions
	if subConfig.NumBuckets == 0 {
		subConfig.NumBuckets = 1
	}
	subConfig.NumThreads = 1
	subConfig.Verbose = false

	timings.PartitioningSeconds = time.Since(partitioningStart).Seconds()

	numThreads := cfg.NumThreads
	if numThreads > int(numPartitions) {
		numThreads = int(numPartitions)
	}
	if numThreads < 1 {
		numThreads = 1
	}

	workerTimings := make([]BuildTimings, numThreads)
	g, ctx := errgroup.WithContext(context.Background())
	perWorker := (numPartitions + uint64(numThreads) - 1) / uint64(numThreads)
	for w := 0; w < numThreads; w++ {
		begin := uint64(w) * perWorker
		end := min(begin+perWorker, numPartitions)
		if begin >= end {
			break
		}
		g.Go(func() error {
			for i := begin; i < end; i++ {
				// Best-effort abort: a failure elsewhere stops this worker
				// at its next partition boundary.
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}

				sub, t, err := buildSubPHF(buffers[i], subConfig, f.encoder, f.hasher)
				if err != nil {
					return fmt.Errorf("partition %d: %w", i, err)
				}
				f.partitions[i].phf = sub
				workerTimings[w].MappingOrderingSeconds += t.MappingOrderingSeconds
				workerTimings[w].SearchingSeconds += t.SearchingSeconds
				workerTimings[w].EncodingSeconds += t.EncodingSeconds
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return timings, err
	}

	for _, t := range workerTimings {
		timings.MappingOrderingSeconds = max(timings.MappingOrderingSeconds, t.MappingOrderingSeconds)
		timings.SearchingSeconds = max(timings.SearchingSeconds, t.SearchingSeconds)
		timings.EncodingSeconds = max(timings.EncodingSeconds, t.EncodingSeconds)
	}
	return timings, nil
}

// buildSubPHF runs one partition's single-PHF construction end to end.
func buildSubPHF(hashes []Hash128, cfg BuildConfig, encoder EncoderID, hasher Hasher) (*SinglePHF, BuildTimings, error) {
	sub := &SinglePHF{minimal: cfg.MinimalOutput, encoder: encoder, hasher: hasher}

	var builder singleBuilder
	timings, err := builder.buildFromHashes(hashes, &cfg)
	if err != nil {
		return nil, timings, err
	}

	encodingStart := time.Now()
	if err := sub.fromBuilder(&builder); err != nil {
		return nil, timings, err
	}
	timings.EncodingSeconds = time.Since(encodingStart).Seconds()
	return sub, timings, nil
}
