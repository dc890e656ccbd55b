// Package bits provides low-level bit manipulation primitives: a plain
// bitvector, fastmod constants for modulo-by-constant reduction, and the
// fastrange mapping.
package bits

import "math/bits"

const bitsPerWord = 64

// FastRange32 maps a 64-bit hash uniformly to [0, n) returning uint32.
// Uses the "fastrange" technique: multiply and take high bits.
// This is the standard way to map hashes to ranges without modulo bias.
func FastRange32(hash uint64, n uint32) uint32 {
	if n == 0 {
		return 0
	}
	hi, _ := bits.Mul64(hash, uint64(n))
	return uint32(hi)
}

// M64 is the precomputed 128-bit magic constant for fastmod reduction by a
// fixed 64-bit divisor d: M = floor((2^128 - 1) / d) + 1. Hi is the upper
// 64 bits, Lo the lower.
type M64 struct {
	Hi uint64
	Lo uint64
}

// ComputeM64 returns the fastmod constant for divisor d. d must be > 0.
func ComputeM64(d uint64) M64 {
	// 128/64 long division of 2^128 - 1 by d, then + 1.
	qhi, r := bits.Div64(0, ^uint64(0), d)
	qlo, _ := bits.Div64(r, ^uint64(0), d)
	lo, carry := bits.Add64(qlo, 1, 0)
	return M64{Hi: qhi + carry, Lo: lo}
}

// FastMod64 computes a mod d using the precomputed constant M = ComputeM64(d).
// The reduction must be bit-identical wherever it is applied: the builder and
// the evaluator both go through this function.
func FastMod64(a uint64, m M64, d uint64) uint64 {
	// lowbits = (M * a) mod 2^128
	lbHi, lbLo := bits.Mul64(m.Lo, a)
	lbHi += m.Hi * a
	// result = (lowbits * d) >> 128
	h1, _ := bits.Mul64(lbLo, d)
	h2, l2 := bits.Mul64(lbHi, d)
	_, carry := bits.Add64(l2, h1, 0)
	return h2 + carry
}

// BitVector is a fixed-size set of bits. The zero value is unusable; create
// with NewBitVector. Words are exposed for serialization.
type BitVector struct {
	words []uint64
	size  uint64
}

// NewBitVector returns a cleared bitvector of the given size in bits.
func NewBitVector(size uint64) *BitVector {
	return &BitVector{
		words: make([]uint64, (size+bitsPerWord-1)/bitsPerWord),
		size:  size,
	}
}

// NewBitVectorFromWords wraps existing words as a bitvector of size bits.
func NewBitVectorFromWords(words []uint64, size uint64) *BitVector {
	return &BitVector{words: words, size: size}
}

// Get reports whether bit pos is set.
func (b *BitVector) Get(pos uint64) bool {
	return b.words[pos/bitsPerWord]&(1<<(pos%bitsPerWord)) != 0
}

// Set sets bit pos.
func (b *BitVector) Set(pos uint64) {
	b.words[pos/bitsPerWord] |= 1 << (pos % bitsPerWord)
}

// Clear clears bit pos.
func (b *BitVector) Clear(pos uint64) {
	b.words[pos/bitsPerWord] &^= 1 << (pos % bitsPerWord)
}

// Size returns the size in bits.
func (b *BitVector) Size() uint64 {
	return b.size
}

// Words returns the backing words.
func (b *BitVector) Words() []uint64 {
	return b.words
}
