package pthash

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/clayne/pthash/internal/bits"
	"github.com/clayne/pthash/internal/bucketer"
	"github.com/clayne/pthash/internal/sequence"

	pthasherrors "github.com/clayne/pthash/errors"
)

// maxSerializedWords bounds a single word-slice read so a corrupted length
// prefix cannot drive a huge allocation.
const maxSerializedWords = uint64(1) << 32

// visitor walks an artifact's fields in their normative order, either
// writing them to a stream or reading them back. Serialize and Deserialize
// share the same visit methods, so the two directions cannot drift: the
// field enumeration is written exactly once per type.
//
// All primitives are little-endian. Errors are sticky; after the first
// failure every visit is a no-op.
type visitor struct {
	w   io.Writer
	r   io.Reader
	err error
	buf [8]byte
}

func newWriteVisitor(w io.Writer) *visitor { return &visitor{w: w} }
func newReadVisitor(r io.Reader) *visitor  { return &visitor{r: r} }

func (v *visitor) writing() bool { return v.w != nil }

func (v *visitor) u64(p *uint64) {
	if v.err != nil {
		return
	}
	if v.writing() {
		binary.LittleEndian.PutUint64(v.buf[:8], *p)
		_, v.err = v.w.Write(v.buf[:8])
		return
	}
	if _, v.err = io.ReadFull(v.r, v.buf[:8]); v.err == nil {
		*p = binary.LittleEndian.Uint64(v.buf[:8])
	}
}

func (v *visitor) u16(p *uint16) {
	if v.err != nil {
		return
	}
	if v.writing() {
		binary.LittleEndian.PutUint16(v.buf[:2], *p)
		_, v.err = v.w.Write(v.buf[:2])
		return
	}
	if _, v.err = io.ReadFull(v.r, v.buf[:2]); v.err == nil {
		*p = binary.LittleEndian.Uint16(v.buf[:2])
	}
}

func (v *visitor) u8(p *uint8) {
	if v.err != nil {
		return
	}
	if v.writing() {
		v.buf[0] = *p
		_, v.err = v.w.Write(v.buf[:1])
		return
	}
	if _, v.err = io.ReadFull(v.r, v.buf[:1]); v.err == nil {
		*p = v.buf[0]
	}
}

// words visits a length-prefixed slice of 64-bit words.
func (v *visitor) words(p *[]uint64) {
	if v.err != nil {
		return
	}
	count := uint64(len(*p))
	v.u64(&count)
	if v.err != nil {
		return
	}
	if !v.writing() {
		if count > maxSerializedWords {
			v.err = fmt.Errorf("%w: word count %d out of range",
				pthasherrors.ErrCorruptedData, count)
			return
		}
		*p = make([]uint64, count)
	}
	for i := range *p {
		v.u64(&(*p)[i])
		if v.err != nil {
			return
		}
	}
}

func (v *visitor) fail(err error) {
	if v.err == nil {
		v.err = err
	}
}

// visitCompact visits a compact vector as (size, width, words).
func visitCompact(v *visitor, c **sequence.CompactVector) {
	var size uint64
	var width uint8
	var words []uint64
	if v.writing() {
		size, width, words = (*c).Size(), (*c).Width(), (*c).Words()
	}
	v.u64(&size)
	v.u8(&width)
	v.words(&words)
	if !v.writing() && v.err == nil {
		if width == 0 || width > 64 {
			v.fail(fmt.Errorf("%w: compact vector width %d",
				pthasherrors.ErrCorruptedData, width))
			return
		}
		if uint64(len(words)) != (size*uint64(width)+63)/64 {
			v.fail(fmt.Errorf("%w: compact vector has %d words for %d values of width %d",
				pthasherrors.ErrCorruptedData, len(words), size, width))
			return
		}
		*c = sequence.NewCompactVectorFromWords(words, size, width)
	}
}

// visitEliasFano visits an Elias-Fano sequence as (n, universe, low words,
// high words). The low-bit width and select samples are derived on read.
func visitEliasFano(v *visitor, ef **sequence.EliasFano) {
	var n, universe uint64
	var lowWords, highWords []uint64
	if v.writing() {
		n, universe = (*ef).Size(), (*ef).Universe()
		lowWords, highWords = (*ef).LowWords(), (*ef).HighWords()
	}
	v.u64(&n)
	v.u64(&universe)
	v.words(&lowWords)
	v.words(&highWords)
	if !v.writing() && v.err == nil {
		*ef = sequence.NewEliasFanoFromParts(n, universe, lowWords, highWords)
	}
}

// visitPilots visits the encoded pilot sequence as (encoder id, payload).
func visitPilots(v *visitor, id *EncoderID, pilots *pilotSequence) {
	encoderID := uint16(*id)
	v.u16(&encoderID)
	if !v.writing() {
		*id = EncoderID(encoderID)
	}

	switch *id {
	case EncoderCompact:
		var c *sequence.CompactVector
		if v.writing() {
			c = (*pilots).(*sequence.CompactVector)
		}
		visitCompact(v, &c)
		if !v.writing() && v.err == nil {
			*pilots = c
		}
	case EncoderDictionary:
		var ranks, table *sequence.CompactVector
		if v.writing() {
			d := (*pilots).(*sequence.Dictionary)
			ranks, table = d.Ranks(), d.Table()
		}
		visitCompact(v, &ranks)
		visitCompact(v, &table)
		if !v.writing() && v.err == nil {
			*pilots = sequence.NewDictionaryFromParts(ranks, table)
		}
	default:
		v.fail(fmt.Errorf("%w: unknown encoder id %d",
			pthasherrors.ErrCorruptedData, encoderID))
	}
}

// visit walks the single-PHF fields in the normative order: seed, n, m,
// fastmod constant, bucketer, pilots, free slots. The free-slots presence
// is implied by (minimal, n, m), so no flag is stored.
func (f *SinglePHF) visit(v *visitor) {
	v.u64(&f.seed)
	v.u64(&f.numKeys)
	v.u64(&f.tableSize)
	v.u64(&f.m.Hi)
	v.u64(&f.m.Lo)

	var numDense, numSparse uint64
	if v.writing() {
		numDense, numSparse = f.bucketer.NumDense(), f.bucketer.NumSparse()
	}
	v.u64(&numDense)
	v.u64(&numSparse)
	if !v.writing() && v.err == nil {
		f.bucketer = bucketer.NewSkewFromCounts(numDense, numSparse)
	}

	visitPilots(v, &f.encoder, &f.pilots)

	if f.minimal && f.numKeys < f.tableSize {
		visitEliasFano(v, &f.freeSlots)
	} else if !v.writing() {
		f.freeSlots = nil
	}
}

// Serialize writes the artifact to w in the normative field order.
func (f *SinglePHF) Serialize(w io.Writer) error {
	v := newWriteVisitor(w)
	f.visit(v)
	return v.err
}

// Deserialize reads an artifact from r. The receiver's minimal flag and
// hasher must match the ones the artifact was built with; they are part of
// the artifact's type, not its serialized state.
func (f *SinglePHF) Deserialize(r io.Reader) error {
	v := newReadVisitor(r)
	f.visit(v)
	if v.err != nil {
		return v.err
	}
	f.m = bits.ComputeM64(f.tableSize)
	return nil
}

// visit walks the partitioned-PHF fields in the normative order: seed, n,
// m, bucketer, then each partition's offset and sub-PHF.
func (f *PartitionedPHF) visit(v *visitor) {
	v.u64(&f.seed)
	v.u64(&f.numKeys)
	v.u64(&f.tableSize)

	var numPartitions uint64
	if v.writing() {
		numPartitions = f.bucketer.NumBuckets()
	}
	v.u64(&numPartitions)
	if !v.writing() && v.err == nil {
		if numPartitions == 0 || numPartitions > maxSerializedWords {
			v.fail(fmt.Errorf("%w: partition count %d out of range",
				pthasherrors.ErrCorruptedData, numPartitions))
			return
		}
		f.bucketer = bucketer.NewUniform(numPartitions)
		f.partitions = make([]partition, numPartitions)
	}

	for i := range f.partitions {
		v.u64(&f.partitions[i].offset)
		if !v.writing() {
			f.partitions[i].phf = &SinglePHF{
				minimal: f.minimal,
				hasher:  f.hasher,
			}
		}
		f.partitions[i].phf.visit(v)
		if v.err != nil {
			return
		}
	}
}

// Serialize writes the artifact to w in the normative field order.
func (f *PartitionedPHF) Serialize(w io.Writer) error {
	v := newWriteVisitor(w)
	f.visit(v)
	return v.err
}

// Deserialize reads an artifact from r. The receiver's minimal flag and
// hasher must match the build-time ones, as for SinglePHF.Deserialize.
func (f *PartitionedPHF) Deserialize(r io.Reader) error {
	v := newReadVisitor(r)
	f.visit(v)
	if v.err != nil {
		return v.err
	}
	for i := range f.partitions {
		f.partitions[i].phf.m = bits.ComputeM64(f.partitions[i].phf.tableSize)
	}
	if len(f.partitions) > 0 {
		f.encoder = f.partitions[0].phf.encoder
	}
	return nil
}
