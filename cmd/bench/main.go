// Bench is a benchmarking tool for measuring PHF build performance, space
// usage, and query throughput.
//
// Usage:
//
//	go run ./cmd/bench -keys 10000000 -partitions 16 -threads 8 -minimal
//
// Flags:
//
//	-keys        Number of keys to index (default: 10,000,000)
//	-alpha       Load factor n/m (default: 0.94)
//	-c           Bucket-count tuning constant (default: 7.0)
//	-minimal     Build a minimal PHF (default: true)
//	-partitions  Number of partitions, 1 = single PHF (default: 1)
//	-threads     Number of build threads (default: 1)
//	-encoder     Pilot encoder: compact or dictionary (default: compact)
//	-seed        Build seed, -1 for random (default: -1)
//	-hasher      Key hasher: xxh3 or murmur3 (default: xxh3)
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	mrand "math/rand/v2"
	"os"
	"time"

	"github.com/clayne/pthash"
	"github.com/clayne/pthash/internal/bits"
)

// phf is the surface shared by both artifact kinds that bench reports on.
type phf interface {
	Lookup(key []byte) uint64
	NumKeys() uint64
	TableSize() uint64
	NumBits() uint64
	NumBitsForPilots() uint64
	NumBitsForMapper() uint64
}

// key length bounds for generated benchmark keys.
const (
	minKeyLen  = 8
	keyLenSpan = 17 // lengths in [8, 24]
)

// randomKey returns a random key of 8 to 24 bytes. FastRange32 spreads the
// lengths without modulo bias, so every build exercises variable-length
// hashing the way real key sets do.
func randomKey(rng *mrand.Rand) []byte {
	key := make([]byte, minKeyLen+bits.FastRange32(rng.Uint64(), keyLenSpan))
	var chunk [8]byte
	for i := 0; i < len(key); i += 8 {
		binary.LittleEndian.PutUint64(chunk[:], rng.Uint64())
		copy(key[i:], chunk[:])
	}
	return key
}

func main() {
	keysFlag := flag.Int("keys", 10_000_000, "number of keys")
	alphaFlag := flag.Float64("alpha", 0.94, "load factor n/m")
	cFlag := flag.Float64("c", 7.0, "bucket-count tuning constant")
	minimalFlag := flag.Bool("minimal", true, "build a minimal PHF")
	partitionsFlag := flag.Uint64("partitions", 1, "number of partitions")
	threadsFlag := flag.Int("threads", 1, "number of build threads")
	encoderFlag := flag.String("encoder", "compact", "pilot encoder: compact or dictionary")
	seedFlag := flag.Int64("seed", -1, "build seed, -1 for random")
	hasherFlag := flag.String("hasher", "xxh3", "key hasher: xxh3 or murmur3")
	flag.Parse()

	var hasher pthash.Hasher
	switch *hasherFlag {
	case "xxh3":
		hasher = pthash.XXH3Hasher{}
	case "murmur3":
		hasher = pthash.Murmur3Hasher{}
	default:
		fmt.Fprintf(os.Stderr, "unknown hasher %q\n", *hasherFlag)
		os.Exit(1)
	}

	var encoder pthash.EncoderID
	switch *encoderFlag {
	case "compact":
		encoder = pthash.EncoderCompact
	case "dictionary":
		encoder = pthash.EncoderDictionary
	default:
		fmt.Fprintf(os.Stderr, "unknown encoder %q\n", *encoderFlag)
		os.Exit(1)
	}

	numKeys := *keysFlag
	fmt.Printf("generating %d keys...\n", numKeys)
	rng := mrand.New(mrand.NewPCG(42, 0))
	keys := make([][]byte, numKeys)
	for i := range keys {
		keys[i] = randomKey(rng)
	}

	cfg := pthash.DefaultBuildConfig()
	cfg.Alpha = *alphaFlag
	cfg.C = *cFlag
	cfg.MinimalOutput = *minimalFlag
	cfg.NumPartitions = *partitionsFlag
	cfg.NumThreads = *threadsFlag
	cfg.Verbose = true
	if *seedFlag >= 0 {
		cfg.Seed = uint64(*seedFlag)
	}

	var (
		f       phf
		timings pthash.BuildTimings
		err     error
	)
	buildStart := time.Now()
	if *partitionsFlag > 1 {
		p := pthash.NewPartitionedPHF(*minimalFlag, hasher, pthash.WithEncoder(encoder))
		timings, err = p.BuildFromKeys(keys, cfg)
		f = p
	} else {
		s := pthash.NewSinglePHF(*minimalFlag, hasher, pthash.WithEncoder(encoder))
		timings, err = s.BuildFromKeys(keys, cfg)
		f = s
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	buildElapsed := time.Since(buildStart)

	fmt.Printf("build: %.3fs total (partitioning %.3fs, mapping+ordering %.3fs, searching %.3fs, encoding %.3fs)\n",
		buildElapsed.Seconds(),
		timings.PartitioningSeconds,
		timings.MappingOrderingSeconds,
		timings.SearchingSeconds,
		timings.EncodingSeconds)
	fmt.Printf("table size: %d (alpha %.3f, encoder %s)\n",
		f.TableSize(), float64(f.NumKeys())/float64(f.TableSize()), encoder)
	fmt.Printf("space: %.2f bits/key (pilots %.2f, mapper %.2f)\n",
		float64(f.NumBits())/float64(f.NumKeys()),
		float64(f.NumBitsForPilots())/float64(f.NumKeys()),
		float64(f.NumBitsForMapper())/float64(f.NumKeys()))

	fmt.Println("querying...")
	queryStart := time.Now()
	var sink uint64
	for _, key := range keys {
		sink ^= f.Lookup(key)
	}
	queryElapsed := time.Since(queryStart)
	fmt.Printf("query: %.1f ns/key (checksum %d)\n",
		float64(queryElapsed.Nanoseconds())/float64(numKeys), sink)
}
