// Package pthash implements PTHash-family perfect hash functions: compact,
// O(1)-query injective maps over static key sets, with an optional minimal
// variant that is a bijection onto [0, n).
//
// # Basic Usage
//
// Building a minimal PHF:
//
//	f := pthash.NewSinglePHF(true, pthash.XXH3Hasher{})
//	cfg := pthash.DefaultBuildConfig()
//	cfg.MinimalOutput = true
//	if _, err := f.BuildFromKeys(keys, cfg); err != nil {
//	    log.Fatal(err)
//	}
//	pos := f.Lookup(keys[0]) // in [0, len(keys))
//
// Large key sets shard across partitions built in parallel:
//
//	f := pthash.NewPartitionedPHF(true, pthash.XXH3Hasher{})
//	cfg.NumPartitions = 16
//	cfg.NumThreads = 8
//	_, err := f.BuildFromKeys(keys, cfg)
//
// The artifact is immutable after a successful build and safe for
// concurrent queries. Build output is a deterministic function of
// (keys, seed, config) and never of the thread count.
//
// # Package Structure
//
//   - Public API: single.go, partitioned.go (artifacts and queries),
//     config.go (BuildConfig, BuildTimings), hasher.go (Hasher, Hash128)
//   - Construction: single_builder.go (mapping, ordering, pilot search,
//     free-slot fill), partitioned_builder.go (sharding, worker pool)
//   - Serialization: serialize.go (normative field order), file.go
//     (framed files with checksum, memory-mapped loading)
//   - Primitives: internal/bits (bitvector, fastmod), internal/bucketer
//     (skew, uniform), internal/sequence (compact, dictionary, Elias-Fano)
//   - Errors: errors/ (sentinels shared across packages)
package pthash
