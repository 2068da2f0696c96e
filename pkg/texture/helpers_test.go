package texture

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// timFile describes a synthetic TIM file. Zero lengths are filled in with
// the correct value.
type timFile struct {
	flag1      uint8
	palette    []uint16
	palW, palH uint16
	palLen     uint32
	width      uint16
	height     uint16
	imgLen     uint32
	payload    []byte
}

func (f timFile) bytes() []byte {
	var buf bytes.Buffer

	binary.Write(&buf, binary.LittleEndian, uint32(timIdent))
	buf.Write([]byte{f.flag1, 0, 0, 0})

	if f.flag1&timFlagCLUT != 0 {
		palLen := f.palLen
		if palLen == 0 {
			palLen = uint32(len(f.palette))*2 + timSectionHeaderSize
		}
		binary.Write(&buf, binary.LittleEndian, palLen)
		binary.Write(&buf, binary.LittleEndian, uint16(0)) // org x
		binary.Write(&buf, binary.LittleEndian, uint16(0)) // org y
		binary.Write(&buf, binary.LittleEndian, f.palW)
		binary.Write(&buf, binary.LittleEndian, f.palH)
		binary.Write(&buf, binary.LittleEndian, f.palette)
	}

	imgLen := f.imgLen
	if imgLen == 0 {
		imgLen = uint32(len(f.payload)) + timSectionHeaderSize
	}
	binary.Write(&buf, binary.LittleEndian, imgLen)
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	binary.Write(&buf, binary.LittleEndian, f.width)
	binary.Write(&buf, binary.LittleEndian, f.height)
	buf.Write(f.payload)

	return buf.Bytes()
}

// indexed8 returns an 8-bit CLUT TIM with the given palette laid out as a
// single row, and payload rows of width*2 indices.
func indexed8(palette []uint16, width, height uint16, payload []byte) timFile {
	return timFile{
		flag1:   timFlagCLUT | timType8BPP,
		palette: palette,
		palW:    uint16(len(palette)),
		palH:    1,
		width:   width,
		height:  height,
		payload: payload,
	}
}

func decodeTIMBytes(t *testing.T, data []byte) (*Image, error) {
	t.Helper()
	return DecodeTIM(bytes.NewReader(data))
}

// pixel16 returns the little-endian RGB5A1 value at index i of level 0.
func pixel16(img *Image, i int) uint16 {
	return binary.LittleEndian.Uint16(img.Levels[0].Data[i*2:])
}

// ddsFile builds a DDS file with the given pixel format fields and level
// data appended verbatim.
func ddsFile(width, height, mips uint32, pfFlags uint32, fourCC string, bitCount, rMask uint32, data []byte) []byte {
	header := make([]byte, ddsHeaderSize)
	flags := uint32(0x1 | 0x2 | 0x4 | 0x1000)
	if mips > 0 {
		flags |= ddsFlagMipMapCount
	}
	binary.LittleEndian.PutUint32(header[0:], ddsHeaderSize)
	binary.LittleEndian.PutUint32(header[4:], flags)
	binary.LittleEndian.PutUint32(header[8:], height)
	binary.LittleEndian.PutUint32(header[12:], width)
	binary.LittleEndian.PutUint32(header[24:], mips)
	binary.LittleEndian.PutUint32(header[72:], 32)
	binary.LittleEndian.PutUint32(header[76:], pfFlags)
	copy(header[80:84], fourCC)
	binary.LittleEndian.PutUint32(header[84:], bitCount)
	binary.LittleEndian.PutUint32(header[88:], rMask)

	var buf bytes.Buffer
	buf.Write(ddsMagic)
	buf.Write(header)
	buf.Write(data)
	return buf.Bytes()
}

func newTestReader(t *testing.T, data []byte) *Reader {
	t.Helper()
	r, err := NewReader(bytes.NewReader(data), 0)
	require.NoError(t, err)
	return r
}
