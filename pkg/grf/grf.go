// Package grf reads GRF archives, the packed data files images are commonly
// shipped in.
package grf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

const (
	grfMagic      = "Master of Magic"
	headerSize    = 46
	version200    = 0x200
	entryInfoSize = 17

	flagFile      = 0x01
	flagEncrypted = 0x06
)

// Sentinel errors.
var (
	ErrInvalidArchive = errors.New("invalid GRF archive")
	ErrNotFound       = errors.New("file not found in archive")
	ErrEncrypted      = errors.New("encrypted entry")
)

// Archive is an opened GRF archive. Reads use ReadAt, so an Archive may be
// shared between goroutines.
type Archive struct {
	r       io.ReaderAt
	size    int64
	closer  io.Closer
	header  Header
	entries map[string]*Entry
}

// Header is the fixed 46-byte archive header.
type Header struct {
	Magic         [15]byte
	EncryptionKey [15]byte
	TableOffset   uint32
	Seed          uint32
	FileCount     uint32
	Version       uint32
}

// Entry describes one file stored in the archive.
type Entry struct {
	Name             string
	CompressedSize   uint32
	AlignedSize      uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32
}

// Open opens the archive at path.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	a, err := NewArchive(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.closer = f
	return a, nil
}

// NewArchive reads the header and file table from r, which holds size bytes.
func NewArchive(r io.ReaderAt, size int64) (*Archive, error) {
	a := &Archive{
		r:       r,
		size:    size,
		entries: make(map[string]*Entry),
	}
	if err := a.readHeader(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if err := a.readFileTable(); err != nil {
		return nil, fmt.Errorf("reading file table: %w", err)
	}
	return a, nil
}

// Close releases the underlying file, if any.
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// Header returns the archive header.
func (a *Archive) Header() Header {
	return a.header
}

func (a *Archive) readHeader() error {
	if a.size < headerSize {
		return fmt.Errorf("%w: file too small", ErrInvalidArchive)
	}
	sr := io.NewSectionReader(a.r, 0, headerSize)
	if err := binary.Read(sr, binary.LittleEndian, &a.header); err != nil {
		return err
	}
	if string(a.header.Magic[:]) != grfMagic {
		return fmt.Errorf("%w: bad magic", ErrInvalidArchive)
	}
	if a.header.Version != version200 {
		return fmt.Errorf("%w: unsupported version 0x%x", ErrInvalidArchive, a.header.Version)
	}
	return nil
}

func (a *Archive) readFileTable() error {
	tableOffset := int64(a.header.TableOffset) + headerSize

	var sizes [8]byte
	if _, err := a.r.ReadAt(sizes[:], tableOffset); err != nil {
		return fmt.Errorf("%w: table sizes: %v", ErrInvalidArchive, err)
	}
	compressedSize := binary.LittleEndian.Uint32(sizes[0:])
	uncompressedSize := binary.LittleEndian.Uint32(sizes[4:])

	tableData, err := a.inflate(tableOffset+8, compressedSize, uncompressedSize)
	if err != nil {
		return fmt.Errorf("table: %w", err)
	}

	if a.header.FileCount < a.header.Seed+7 {
		return fmt.Errorf("%w: bad file count %d", ErrInvalidArchive, a.header.FileCount)
	}
	fileCount := a.header.FileCount - a.header.Seed - 7

	offset := 0
	for i := uint32(0); i < fileCount; i++ {
		nameEnd := bytes.IndexByte(tableData[offset:], 0)
		if nameEnd < 0 {
			return fmt.Errorf("%w: entry %d name not terminated", ErrInvalidArchive, i)
		}
		name := decodeName(tableData[offset : offset+nameEnd])
		offset += nameEnd + 1

		if offset+entryInfoSize > len(tableData) {
			return fmt.Errorf("%w: entry %d truncated", ErrInvalidArchive, i)
		}
		entry := &Entry{
			Name:             normalizePath(name),
			CompressedSize:   binary.LittleEndian.Uint32(tableData[offset:]),
			AlignedSize:      binary.LittleEndian.Uint32(tableData[offset+4:]),
			UncompressedSize: binary.LittleEndian.Uint32(tableData[offset+8:]),
			Flags:            tableData[offset+12],
			Offset:           binary.LittleEndian.Uint32(tableData[offset+13:]),
		}
		offset += entryInfoSize

		// Directory entries have no file flag.
		if entry.Flags&flagFile != 0 {
			a.entries[entry.Name] = entry
		}
	}
	return nil
}

// inflate reads compressedSize bytes at off and inflates exactly
// uncompressedSize bytes. Sizes are checked against the archive before any
// buffer is sized from them.
func (a *Archive) inflate(off int64, compressedSize, uncompressedSize uint32) ([]byte, error) {
	if off+int64(compressedSize) > a.size {
		return nil, fmt.Errorf("%w: %d compressed bytes at %d run past end of archive",
			ErrInvalidArchive, compressedSize, off)
	}

	zr, err := zlib.NewReader(io.NewSectionReader(a.r, off, int64(compressedSize)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	defer zr.Close()

	data, err := io.ReadAll(io.LimitReader(zr, int64(uncompressedSize)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: inflating: %v", ErrInvalidArchive, err)
	}
	if len(data) != int(uncompressedSize) {
		return nil, fmt.Errorf("%w: inflated %d bytes, expected %d",
			ErrInvalidArchive, len(data), uncompressedSize)
	}
	return data, nil
}

// List returns the paths of all files in the archive, sorted.
func (a *Archive) List() []string {
	result := make([]string, 0, len(a.entries))
	for path := range a.entries {
		result = append(result, path)
	}
	sort.Strings(result)
	return result
}

// Contains reports whether path names a file in the archive. Lookups ignore
// case and slash direction.
func (a *Archive) Contains(path string) bool {
	_, ok := a.entries[normalizePath(path)]
	return ok
}

// Stat returns the entry for path.
func (a *Archive) Stat(path string) (Entry, error) {
	entry, ok := a.entries[normalizePath(path)]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return *entry, nil
}

// Read returns the uncompressed contents of path.
func (a *Archive) Read(path string) ([]byte, error) {
	entry, ok := a.entries[normalizePath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if entry.Flags&flagEncrypted != 0 {
		return nil, fmt.Errorf("%w: %s", ErrEncrypted, path)
	}

	dataOffset := int64(entry.Offset) + headerSize

	if entry.CompressedSize == entry.UncompressedSize {
		if dataOffset+int64(entry.UncompressedSize) > a.size {
			return nil, fmt.Errorf("%w: %s runs past end of archive", ErrInvalidArchive, path)
		}
		data := make([]byte, entry.UncompressedSize)
		if _, err := a.r.ReadAt(data, dataOffset); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return data, nil
	}

	data, err := a.inflate(dataOffset, entry.CompressedSize, entry.UncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// decodeName converts an EUC-KR entry name to UTF-8. Names that are already
// valid UTF-8 pass through.
func decodeName(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	decoded, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

func normalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	return strings.ToLower(path)
}
