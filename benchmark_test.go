package pthash

import "testing"

func benchKeys(n int) [][]byte {
	return genKeys(n)
}

func BenchmarkSingleBuild(b *testing.B) {
	keys := benchKeys(100000)
	cfg := DefaultBuildConfig()
	cfg.Seed = 42
	cfg.MinimalOutput = true

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f := NewSinglePHF(true, XXH3Hasher{})
		if _, err := f.BuildFromKeys(keys, cfg); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSingleLookup(b *testing.B) {
	keys := benchKeys(100000)
	f := NewSinglePHF(true, XXH3Hasher{})
	cfg := DefaultBuildConfig()
	cfg.Seed = 42
	cfg.MinimalOutput = true
	if _, err := f.BuildFromKeys(keys, cfg); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	var sink uint64
	for i := 0; i < b.N; i++ {
		sink ^= f.Lookup(keys[i%len(keys)])
	}
	_ = sink
}

func BenchmarkPartitionedBuild(b *testing.B) {
	keys := benchKeys(200000)
	cfg := DefaultBuildConfig()
	cfg.Seed = 42
	cfg.MinimalOutput = true
	cfg.NumPartitions = 8
	cfg.MinPartitionSize = 1000
	cfg.NumThreads = 8

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f := NewPartitionedPHF(true, XXH3Hasher{})
		if _, err := f.BuildFromKeys(keys, cfg); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPartitionedLookup(b *testing.B) {
	keys := benchKeys(200000)
	f := NewPartitionedPHF(true, XXH3Hasher{})
	cfg := DefaultBuildConfig()
	cfg.Seed = 42
	cfg.MinimalOutput = true
	cfg.NumPartitions = 8
	cfg.MinPartitionSize = 1000
	cfg.NumThreads = 8
	if _, err := f.BuildFromKeys(keys, cfg); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	var sink uint64
	for i := 0; i < b.N; i++ {
		sink ^= f.Lookup(keys[i%len(keys)])
	}
	_ = sink
}
