package bits

import (
	"math/rand/v2"
	"testing"
)

const testSeed = 0x1234567890ABCDEF

func TestFastMod64MatchesModulo(t *testing.T) {
	rng := rand.New(rand.NewPCG(testSeed, 0))

	divisors := []uint64{1, 2, 3, 5, 7, 63, 64, 65, 1000, 1063, 1064, 1 << 20, (1 << 40) + 9}
	for _, d := range divisors {
		m := ComputeM64(d)
		for i := 0; i < 1000; i++ {
			a := rng.Uint64()
			if got, want := FastMod64(a, m, d), a%d; got != want {
				t.Fatalf("FastMod64(%d, M(%d)) = %d, want %d", a, d, got, want)
			}
		}
	}
}

func TestFastMod64EdgeValues(t *testing.T) {
	for _, d := range []uint64{1, 2, 1064, ^uint64(0)} {
		m := ComputeM64(d)
		for _, a := range []uint64{0, 1, d - 1, d, d + 1, ^uint64(0)} {
			if got, want := FastMod64(a, m, d), a%d; got != want {
				t.Fatalf("FastMod64(%d, M(%d)) = %d, want %d", a, d, got, want)
			}
		}
	}
}

func TestFastRange32(t *testing.T) {
	if FastRange32(12345, 0) != 0 {
		t.Fatal("FastRange32 with n=0 must return 0")
	}
	rng := rand.New(rand.NewPCG(testSeed, 1))
	for i := 0; i < 1000; i++ {
		h := rng.Uint64()
		n := uint32(rng.Uint64N(1 << 20)) + 1
		if got := FastRange32(h, n); got >= n {
			t.Fatalf("FastRange32(%d, %d) = %d out of range", h, n, got)
		}
	}
}

func TestBitVector(t *testing.T) {
	const size = 1000
	bv := NewBitVector(size)
	if bv.Size() != size {
		t.Fatalf("Size() = %d, want %d", bv.Size(), size)
	}

	// Set every third bit, clear every ninth.
	for i := uint64(0); i < size; i += 3 {
		bv.Set(i)
	}
	for i := uint64(0); i < size; i += 9 {
		bv.Clear(i)
	}
	for i := uint64(0); i < size; i++ {
		want := i%3 == 0 && i%9 != 0
		if got := bv.Get(i); got != want {
			t.Fatalf("Get(%d) = %t, want %t", i, got, want)
		}
	}
}

func TestBitVectorFromWords(t *testing.T) {
	bv := NewBitVector(128)
	bv.Set(0)
	bv.Set(63)
	bv.Set(64)
	bv.Set(127)

	rebuilt := NewBitVectorFromWords(bv.Words(), bv.Size())
	for i := uint64(0); i < 128; i++ {
		if rebuilt.Get(i) != bv.Get(i) {
			t.Fatalf("rebuilt bit %d differs", i)
		}
	}
}
