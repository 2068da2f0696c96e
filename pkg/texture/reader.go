package texture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Reader is a sequential, seekable little-endian reader over an image
// stream. A non-zero limit caps how far into the stream reads may go.
type Reader struct {
	rs    io.ReadSeeker
	pos   int64
	size  int64
	limit int64
}

// NewReader wraps rs, starting at its current position. A limit of 0 means
// no cap.
func NewReader(rs io.ReadSeeker, limit int64) (*Reader, error) {
	pos, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("%w: querying position: %v", ErrFileRead, err)
	}
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: querying size: %v", ErrFileRead, err)
	}
	if _, err := rs.Seek(pos, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: restoring position: %v", ErrFileRead, err)
	}
	return &Reader{rs: rs, pos: pos, size: size, limit: limit}, nil
}

// Pos returns the current offset.
func (r *Reader) Pos() int64 {
	return r.pos
}

// Size returns the total stream length.
func (r *Reader) Size() int64 {
	return r.size
}

// Remaining returns the number of bytes that may still be read.
func (r *Reader) Remaining() int64 {
	end := r.size
	if r.limit > 0 && r.limit < end {
		end = r.limit
	}
	if r.pos >= end {
		return 0
	}
	return end - r.pos
}

// Seek moves to an absolute offset.
func (r *Reader) Seek(offset int64) error {
	if _, err := r.rs.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seeking to %d: %v", ErrFileRead, offset, err)
	}
	r.pos = offset
	return nil
}

// Rewind moves back to the start of the stream.
func (r *Reader) Rewind() error {
	return r.Seek(0)
}

// Read implements io.Reader and stops at the limit.
func (r *Reader) Read(p []byte) (int, error) {
	remaining := r.Remaining()
	if remaining == 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := r.rs.Read(p)
	r.pos += int64(n)
	return n, err
}

// ReadFull reads exactly n bytes. The length is checked against what is
// left in the stream before anything is allocated.
func (r *Reader) ReadFull(n int, section string) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length reading %s", ErrFileRead, section)
	}
	if r.limit > 0 && r.pos+int64(n) > r.limit {
		return nil, fmt.Errorf("%w: %s exceeds input limit of %d bytes", ErrFileRead, section, r.limit)
	}
	if int64(n) > r.Remaining() {
		return nil, fmt.Errorf("%w: unexpected end of stream reading %s", ErrFileRead, section)
	}

	buf := make([]byte, n)
	if err := r.readInto(buf, section); err != nil {
		return nil, err
	}
	return buf, nil
}

func (r *Reader) readInto(buf []byte, section string) error {
	n, err := io.ReadFull(r.rs, buf)
	r.pos += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: unexpected end of stream reading %s", ErrFileRead, section)
		}
		return fmt.Errorf("%w: reading %s: %v", ErrFileRead, section, err)
	}
	return nil
}

// Uint8 reads one byte.
func (r *Reader) Uint8(section string) (uint8, error) {
	b, err := r.ReadFull(1, section)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Uint16 reads a little-endian uint16.
func (r *Reader) Uint16(section string) (uint16, error) {
	b, err := r.ReadFull(2, section)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Uint32 reads a little-endian uint32.
func (r *Reader) Uint32(section string) (uint32, error) {
	b, err := r.ReadFull(4, section)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// PeekAt reads n bytes at an absolute offset and restores the previous
// position, whatever the outcome. A short stream yields ok == false.
func (r *Reader) PeekAt(offset int64, n int) (b []byte, ok bool) {
	start := r.pos
	defer func() {
		if err := r.Seek(start); err != nil {
			b, ok = nil, false
		}
	}()

	if err := r.Seek(offset); err != nil {
		return nil, false
	}
	buf, err := r.ReadFull(n, "magic")
	if err != nil {
		return nil, false
	}
	return buf, true
}
