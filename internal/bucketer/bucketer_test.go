package bucketer

import (
	"math"
	"math/rand/v2"
	"testing"
)

const testSeed = 0xFEDCBA9876543210

func TestSkewRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(testSeed, 0))
	for _, numBuckets := range []uint64{1, 2, 3, 10, 100, 12345} {
		s := NewSkew(numBuckets)
		if s.NumBuckets() != numBuckets {
			t.Fatalf("NumBuckets() = %d, want %d", s.NumBuckets(), numBuckets)
		}
		for i := 0; i < 10000; i++ {
			if b := s.Bucket(rng.Uint64()); b >= numBuckets {
				t.Fatalf("Bucket out of range: %d >= %d", b, numBuckets)
			}
		}
	}
}

func TestSkewDeterministic(t *testing.T) {
	a := NewSkew(1000)
	b := NewSkewFromCounts(a.NumDense(), a.NumSparse())
	rng := rand.New(rand.NewPCG(testSeed, 1))
	for i := 0; i < 10000; i++ {
		h := rng.Uint64()
		if a.Bucket(h) != b.Bucket(h) {
			t.Fatalf("rebuilt bucketer disagrees for hash %d", h)
		}
	}
}

func TestSkewSplit(t *testing.T) {
	const numBuckets = 1000
	s := NewSkew(numBuckets)
	if want := uint64(0.3 * numBuckets); s.NumDense() != want {
		t.Fatalf("NumDense() = %d, want %d", s.NumDense(), want)
	}

	// Hashes below the threshold must land in the dense region, the rest in
	// the sparse region.
	threshold := uint64(0.6 * float64(math.MaxUint64))
	rng := rand.New(rand.NewPCG(testSeed, 2))
	for i := 0; i < 10000; i++ {
		h := rng.Uint64()
		b := s.Bucket(h)
		if h < threshold && b >= s.NumDense() {
			t.Fatalf("hash %d below threshold mapped to sparse bucket %d", h, b)
		}
		if h >= threshold && b < s.NumDense() {
			t.Fatalf("hash %d above threshold mapped to dense bucket %d", h, b)
		}
	}
}

func TestSkewDegenerate(t *testing.T) {
	// With fewer than four buckets the dense region is empty; everything
	// must route through the sparse region without dividing by zero.
	for _, numBuckets := range []uint64{1, 2, 3} {
		s := NewSkew(numBuckets)
		rng := rand.New(rand.NewPCG(testSeed, 3))
		for i := 0; i < 1000; i++ {
			if b := s.Bucket(rng.Uint64()); b >= numBuckets {
				t.Fatalf("numBuckets=%d: bucket %d out of range", numBuckets, b)
			}
		}
	}
}

func TestUniformRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(testSeed, 4))
	for _, numBuckets := range []uint64{1, 2, 16, 1000} {
		u := NewUniform(numBuckets)
		for i := 0; i < 10000; i++ {
			if b := u.Bucket(rng.Uint64()); b >= numBuckets {
				t.Fatalf("Bucket out of range: %d >= %d", b, numBuckets)
			}
		}
	}
}

func TestUniformSpread(t *testing.T) {
	const numBuckets = 16
	const samples = 160000
	u := NewUniform(numBuckets)
	counts := make([]int, numBuckets)
	rng := rand.New(rand.NewPCG(testSeed, 5))
	for i := 0; i < samples; i++ {
		counts[u.Bucket(rng.Uint64())]++
	}
	// Each bucket expects samples/numBuckets keys; allow 10% deviation.
	expected := samples / numBuckets
	for i, c := range counts {
		if c < expected*9/10 || c > expected*11/10 {
			t.Fatalf("bucket %d count %d deviates from expected %d", i, c, expected)
		}
	}
}
