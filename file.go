package pthash

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	pthasherrors "github.com/clayne/pthash/errors"
)

const (
	// fileMagic identifies pthash artifact files ("PHF1" little-endian).
	fileMagic = uint32(0x31464850)

	// fileVersion is the current format version.
	fileVersion = uint16(0x0001)

	// fileHeaderSize is the fixed header: magic, version, kind, flags.
	fileHeaderSize = 4 + 2 + 1 + 1

	// fileFooterSize is the xxHash64 checksum of header + payload.
	fileFooterSize = 8
)

// artifact kinds stored in the file header.
const (
	fileKindSingle      = uint8(0)
	fileKindPartitioned = uint8(1)
)

// header flags.
const fileFlagMinimal = uint8(1 << 0)

type fileSerializable interface {
	Serialize(w io.Writer) error
	Deserialize(r io.Reader) error
	IsMinimal() bool
}

// saveFile writes header, visitor payload and checksum footer to path.
func saveFile(path string, kind uint8, artifact fileSerializable) error {
	var payload bytes.Buffer
	if err := artifact.Serialize(&payload); err != nil {
		return err
	}

	var header [fileHeaderSize]byte
	binary.LittleEndian.PutUint32(header[0:4], fileMagic)
	binary.LittleEndian.PutUint16(header[4:6], fileVersion)
	header[6] = kind
	if artifact.IsMinimal() {
		header[7] |= fileFlagMinimal
	}

	digest := xxhash.New()
	_, _ = digest.Write(header[:])
	_, _ = digest.Write(payload.Bytes())

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(file)

	var footer [fileFooterSize]byte
	binary.LittleEndian.PutUint64(footer[:], digest.Sum64())

	_, err = w.Write(header[:])
	if err == nil {
		_, err = w.Write(payload.Bytes())
	}
	if err == nil {
		_, err = w.Write(footer[:])
	}
	if err == nil {
		err = w.Flush()
	}
	return errors.Join(err, file.Close())
}

// loadFile memory-maps path, verifies framing and checksum, and
// deserializes into the artifact. The mapping is released before returning;
// the artifact owns heap copies of its state.
func loadFile(path string, kind uint8, artifact fileSerializable) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	mm, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return err
	}
	defer func() { _ = mm.Unmap() }()
	adviseSequential(mm)

	if len(mm) < fileHeaderSize+fileFooterSize {
		return pthasherrors.ErrTruncatedFile
	}
	if binary.LittleEndian.Uint32(mm[0:4]) != fileMagic {
		return pthasherrors.ErrInvalidMagic
	}
	if binary.LittleEndian.Uint16(mm[4:6]) != fileVersion {
		return pthasherrors.ErrInvalidVersion
	}
	if mm[6] != kind {
		return fmt.Errorf("%w: artifact kind %d, want %d",
			pthasherrors.ErrCorruptedData, mm[6], kind)
	}
	wantMinimal := mm[7]&fileFlagMinimal != 0
	if wantMinimal != artifact.IsMinimal() {
		return fmt.Errorf("%w: artifact minimal=%t, file minimal=%t",
			pthasherrors.ErrCorruptedData, artifact.IsMinimal(), wantMinimal)
	}

	body := mm[:len(mm)-fileFooterSize]
	want := binary.LittleEndian.Uint64(mm[len(mm)-fileFooterSize:])
	if xxhash.Sum64(body) != want {
		return pthasherrors.ErrChecksumFailed
	}

	return artifact.Deserialize(bytes.NewReader(body[fileHeaderSize:]))
}

// SaveFile writes the artifact to path with framing and a checksum footer.
func (f *SinglePHF) SaveFile(path string) error {
	return saveFile(path, fileKindSingle, f)
}

// LoadFile reads an artifact previously written by SaveFile. The receiver's
// minimal flag and hasher must match the build-time ones.
func (f *SinglePHF) LoadFile(path string) error {
	return loadFile(path, fileKindSingle, f)
}

// SaveFile writes the artifact to path with framing and a checksum footer.
func (f *PartitionedPHF) SaveFile(path string) error {
	return saveFile(path, fileKindPartitioned, f)
}

// LoadFile reads an artifact previously written by SaveFile. The receiver's
// minimal flag and hasher must match the build-time ones.
func (f *PartitionedPHF) LoadFile(path string) error {
	return loadFile(path, fileKindPartitioned, f)
}
