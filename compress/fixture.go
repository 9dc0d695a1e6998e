// Package compress persists large test fixtures (serialized grids,
// particle streams) to disk in compressed form. It exists only for
// test tooling, never for estimator state: a polyspectrum computation
// never reads or writes through this package.
//
// Grounded on the teacher's lib/compress/file.go (the MagicNumber/
// Version header written before every payload, to catch a file read
// on the wrong machine or from a stale format) and lib/compress/
// compress.go's use of github.com/DataDog/zstd for the actual byte
// compression. The teacher's Lagrangian-delta quantization pipeline
// (Quantize/DeltaEncode/BlockToSlices/RotateEncode and friends) is
// built around a specific domain concept this module has no use for —
// particle IDs laid out along a Lagrangian grid, compressed by
// delta-encoding skewers through that grid — so it isn't carried
// forward; a fixture here is an opaque byte blob (a gob- or
// binary-encoded grid/particle snapshot) and only needs general-purpose
// compression, which is what zstd.CompressLevel/Decompress already do
// without any of that machinery.
package compress

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/DataDog/zstd"
)

const (
	// magicNumber is an arbitrary value written at the start of every
	// fixture file, the same role the teacher's MagicNumber plays.
	magicNumber = 0xbadf00d0
	version     = 1
)

// WriteFixture zstd-compresses data at the given level and writes it
// to path behind a small magic-number/version header.
func WriteFixture(path string, data []byte, level int) error {
	compressed, err := zstd.CompressLevel(nil, data, level)
	if err != nil {
		return fmt.Errorf("compress.WriteFixture: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("compress.WriteFixture: %w", err)
	}
	defer f.Close()

	order := binary.LittleEndian
	if err := binary.Write(f, order, uint32(magicNumber)); err != nil {
		return fmt.Errorf("compress.WriteFixture: %w", err)
	}
	if err := binary.Write(f, order, uint32(version)); err != nil {
		return fmt.Errorf("compress.WriteFixture: %w", err)
	}
	if err := binary.Write(f, order, uint64(len(data))); err != nil {
		return fmt.Errorf("compress.WriteFixture: %w", err)
	}
	if _, err := f.Write(compressed); err != nil {
		return fmt.Errorf("compress.WriteFixture: %w", err)
	}
	return nil
}

// ReadFixture reads and decompresses a file written by WriteFixture.
func ReadFixture(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("compress.ReadFixture: %w", err)
	}
	defer f.Close()

	order := binary.LittleEndian
	var magic, ver uint32
	var rawLen uint64
	if err := binary.Read(f, order, &magic); err != nil {
		return nil, fmt.Errorf("compress.ReadFixture: %w", err)
	}
	if magic != magicNumber {
		return nil, fmt.Errorf("compress.ReadFixture: %s is not a fixture file (bad magic number %#x)", path, magic)
	}
	if err := binary.Read(f, order, &ver); err != nil {
		return nil, fmt.Errorf("compress.ReadFixture: %w", err)
	}
	if ver != version {
		return nil, fmt.Errorf("compress.ReadFixture: %s has fixture format version %d, this package reads version %d", path, ver, version)
	}
	if err := binary.Read(f, order, &rawLen); err != nil {
		return nil, fmt.Errorf("compress.ReadFixture: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("compress.ReadFixture: %w", err)
	}
	compressed := make([]byte, info.Size()-16)
	if _, err := f.ReadAt(compressed, 16); err != nil {
		return nil, fmt.Errorf("compress.ReadFixture: %w", err)
	}

	data, err := zstd.Decompress(make([]byte, 0, rawLen), compressed)
	if err != nil {
		return nil, fmt.Errorf("compress.ReadFixture: %w", err)
	}
	if uint64(len(data)) != rawLen {
		return nil, fmt.Errorf("compress.ReadFixture: decompressed %d bytes, header promised %d", len(data), rawLen)
	}
	return data, nil
}
