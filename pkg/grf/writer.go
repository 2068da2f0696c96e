package grf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/text/encoding/korean"
)

// Writer builds a version 0x200 archive. Entries are held in memory until
// Close writes the archive out.
type Writer struct {
	w     io.Writer
	body  bytes.Buffer
	table bytes.Buffer
	names map[string]bool
	count uint32
}

// NewWriter returns a Writer that writes the archive to w on Close.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, names: make(map[string]bool)}
}

// Add compresses data and stores it under name. Data that does not shrink
// is stored uncompressed.
func (w *Writer) Add(name string, data []byte) error {
	key := normalizePath(name)
	if key == "" {
		return fmt.Errorf("empty entry name")
	}
	if w.names[key] {
		return fmt.Errorf("duplicate entry %s", name)
	}
	encodedName, err := encodeName(name)
	if err != nil {
		return err
	}

	stored := data
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(data); err != nil {
		return fmt.Errorf("compressing %s: %w", name, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compressing %s: %w", name, err)
	}
	if compressed.Len() < len(data) {
		stored = compressed.Bytes()
	}

	// Align to 8 bytes
	aligned := len(stored)
	if aligned%8 != 0 {
		aligned += 8 - aligned%8
	}
	if uint64(w.body.Len())+uint64(aligned) > math.MaxUint32 {
		return fmt.Errorf("archive too large adding %s", name)
	}
	offset := uint32(w.body.Len())
	w.body.Write(stored)
	w.body.Write(make([]byte, aligned-len(stored)))

	var info [entryInfoSize]byte
	binary.LittleEndian.PutUint32(info[0:], uint32(len(stored)))
	binary.LittleEndian.PutUint32(info[4:], uint32(aligned))
	binary.LittleEndian.PutUint32(info[8:], uint32(len(data)))
	info[12] = flagFile
	binary.LittleEndian.PutUint32(info[13:], offset)

	w.table.Write(encodedName)
	w.table.WriteByte(0)
	w.table.Write(info[:])

	w.names[key] = true
	w.count++
	return nil
}

// Close writes the header, entry data and compressed file table.
func (w *Writer) Close() error {
	var compressedTable bytes.Buffer
	zw := zlib.NewWriter(&compressedTable)
	if _, err := zw.Write(w.table.Bytes()); err != nil {
		return fmt.Errorf("compressing file table: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compressing file table: %w", err)
	}

	header := Header{
		TableOffset: uint32(w.body.Len()),
		FileCount:   w.count + 7, // entries + seed + 7, seed is 0
		Version:     version200,
	}
	copy(header.Magic[:], grfMagic)

	if err := binary.Write(w.w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := w.w.Write(w.body.Bytes()); err != nil {
		return fmt.Errorf("writing entries: %w", err)
	}
	sizes := []uint32{uint32(compressedTable.Len()), uint32(w.table.Len())}
	if err := binary.Write(w.w, binary.LittleEndian, sizes); err != nil {
		return fmt.Errorf("writing file table: %w", err)
	}
	if _, err := w.w.Write(compressedTable.Bytes()); err != nil {
		return fmt.Errorf("writing file table: %w", err)
	}
	return nil
}

// encodeName stores names with backslashes, EUC-KR encoded when they are
// not plain ASCII.
func encodeName(name string) ([]byte, error) {
	raw := bytes.ReplaceAll([]byte(name), []byte("/"), []byte("\\"))
	if !utf8.Valid(raw) || isASCII(raw) {
		return raw, nil
	}
	encoded, err := korean.EUCKR.NewEncoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding entry name %q: %w", name, err)
	}
	return encoded, nil
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
