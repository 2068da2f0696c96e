package texture

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"strings"
)

// Tag names a container format.
type Tag string

// Container formats.
const (
	TagUnknown Tag = ""
	TagDDS     Tag = "dds"
	TagTIM     Tag = "tim"
	TagTIFF    Tag = "tiff"
	TagBMP     Tag = "bmp"
	TagFTX     Tag = "ftx"
	TagPPM     Tag = "ppm"
	TagTGA     Tag = "tga"
	TagSPR     Tag = "spr"
)

// decodeFunc decodes a stream positioned at its start.
type decodeFunc func(r *Reader, opts Options) (*Image, error)

// format is one row of the dispatch table. check is nil for formats that
// can only be identified by extension.
type format struct {
	tag    Tag
	check  func(r *Reader) bool
	decode decodeFunc
}

// formats lists the sniffable containers in priority order: richer
// signatures come before weak ones.
var formats = []format{
	{TagDDS, checkDDS, decodeDDS},
	{TagTIM, checkTIM, decodeTIM},
	{TagTIFF, checkTIFF, decodeTIFF},
	{TagBMP, checkBMP, decodeBMP},
	{TagSPR, checkSPR, decodeSPR},
}

// extensionFormats is consulted when no signature matched.
var extensionFormats = []format{
	{TagFTX, nil, decodeFTX},
	{TagPPM, nil, decodePPM},
	{TagTGA, nil, decodeTGA},
}

// Detect identifies the container by its leading bytes. The reader position
// is left where it was.
func Detect(r *Reader) (Tag, bool) {
	for _, f := range formats {
		if f.check(r) {
			return f.tag, true
		}
	}
	return TagUnknown, false
}

// ExtensionTag maps a path's extension to a tag. Only the first three
// characters of the extension are compared, case-insensitively.
func ExtensionTag(path string) (Tag, bool) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return TagUnknown, false
	}
	ext = strings.ToLower(ext)
	if len(ext) > 3 {
		ext = ext[:3]
	}

	for _, f := range extensionFormats {
		if string(f.tag) == ext {
			return f.tag, true
		}
	}
	return TagUnknown, false
}

func lookup(tag Tag) (decodeFunc, bool) {
	for _, table := range [][]format{formats, extensionFormats} {
		for _, f := range table {
			if f.tag == tag {
				return f.decode, true
			}
		}
	}
	return nil, false
}

const timIdent = 0x10

var (
	ddsMagic    = []byte("DDS ")
	tiffLEMagic = []byte("II*\x00")
	tiffBEMagic = []byte("MM\x00*")
	bmpMagic    = []byte("BM")
)

func checkDDS(r *Reader) bool {
	b, ok := r.PeekAt(0, len(ddsMagic))
	return ok && bytes.Equal(b, ddsMagic)
}

func checkTIM(r *Reader) bool {
	b, ok := r.PeekAt(0, 4)
	return ok && binary.LittleEndian.Uint32(b) == timIdent
}

func checkTIFF(r *Reader) bool {
	b, ok := r.PeekAt(0, 4)
	return ok && (bytes.Equal(b, tiffLEMagic) || bytes.Equal(b, tiffBEMagic))
}

func checkBMP(r *Reader) bool {
	b, ok := r.PeekAt(0, len(bmpMagic))
	return ok && bytes.Equal(b, bmpMagic)
}
