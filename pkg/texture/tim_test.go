package texture

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTIM_MinimalIndexed8(t *testing.T) {
	data := indexed8([]uint16{0x0000}, 2, 1, []byte{0x00, 0x00, 0x00, 0x00}).bytes()

	img, err := decodeTIMBytes(t, data)
	require.NoError(t, err)

	assert.Equal(t, 4, img.Width)
	assert.Equal(t, 1, img.Height)
	assert.Equal(t, FormatRGB5A1, img.Format)
	assert.Equal(t, ColourABGR, img.ColourFormat)
	require.Len(t, img.Levels, 1)
	require.Len(t, img.Levels[0].Data, ImageSize(FormatRGB5A1, 4, 1))

	want := timToRGB5A1(0x0000)
	for i := 0; i < 4; i++ {
		assert.Equal(t, want, pixel16(img, i), "pixel %d", i)
	}
}

func TestDecodeTIM_IndexOutOfRange(t *testing.T) {
	data := indexed8([]uint16{0x0000}, 1, 1, []byte{0x00, 0x01}).bytes()

	img, err := decodeTIMBytes(t, data)
	assert.ErrorIs(t, err, ErrImageFormatIndex)
	assert.Nil(t, img)
}

func TestDecodeTIM_IndexBoundary(t *testing.T) {
	palette := []uint16{0x001F, 0x03E0, 0x7C00, 0x7FFF}

	for idx := 0; idx < 256; idx++ {
		data := indexed8(palette, 1, 1, []byte{uint8(idx), 0}).bytes()
		img, err := decodeTIMBytes(t, data)

		if idx < len(palette) {
			require.NoError(t, err, "index %d", idx)
			assert.Equal(t, timToRGB5A1(palette[idx]), pixel16(img, 0))
		} else {
			require.ErrorIs(t, err, ErrImageFormatIndex, "index %d", idx)
			assert.Nil(t, img)
		}
	}
}

func TestDecodeTIM_Indexed4NibbleOrder(t *testing.T) {
	palette := make([]uint16, 16)
	for i := range palette {
		palette[i] = uint16(i) + 1 // non-black, STP clear
	}
	f := timFile{
		flag1:   timFlagCLUT | timType4BPP,
		palette: palette,
		palW:    4,
		palH:    4,
		width:   1,
		height:  1,
		payload: []byte{0x21, 0x43},
	}

	img, err := decodeTIMBytes(t, f.bytes())
	require.NoError(t, err)

	assert.Equal(t, 4, img.Width)
	assert.Equal(t, 1, img.Height)
	for i, idx := range []int{1, 2, 3, 4} {
		assert.Equal(t, timToRGB5A1(palette[idx]), pixel16(img, i), "pixel %d", i)
	}
}

func TestDecodeTIM_Indexed4OutOfRange(t *testing.T) {
	f := timFile{
		flag1:   timFlagCLUT | timType4BPP,
		palette: []uint16{1, 2},
		palW:    2,
		palH:    1,
		width:   1,
		height:  1,
		payload: []byte{0x10, 0x20}, // high nibble of the second byte is 2
	}

	_, err := decodeTIMBytes(t, f.bytes())
	assert.ErrorIs(t, err, ErrImageFormatIndex)
}

func TestDecodeTIM_Direct16(t *testing.T) {
	f := timFile{
		flag1:   timType16BPP,
		width:   2,
		height:  1,
		payload: []byte{0x1F, 0x00, 0x00, 0x80}, // red, then black with STP
	}

	img, err := decodeTIMBytes(t, f.bytes())
	require.NoError(t, err)

	assert.Equal(t, 2, img.Width)
	assert.Equal(t, uint16(0x01F8), pixel16(img, 0))
	assert.Equal(t, uint16(0x0100), pixel16(img, 1))
}

func TestDecodeTIM_Direct24Unsupported(t *testing.T) {
	f := timFile{
		flag1:   timType24BPP,
		width:   3,
		height:  1,
		payload: make([]byte, 6),
	}

	_, err := decodeTIMBytes(t, f.bytes())
	assert.ErrorIs(t, err, ErrFileType)
}

func TestDecodeTIM_PaletteCrossCheck(t *testing.T) {
	tests := []struct {
		name   string
		palLen uint32
	}{
		{"length one word too long", 1*2 + timSectionHeaderSize + 2},
		{"length one word too short", timSectionHeaderSize},
		{"length below header size", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := indexed8([]uint16{0x0000}, 1, 1, []byte{0, 0})
			f.palLen = tt.palLen
			// Pad so a lenient decoder would have enough bytes to succeed.
			data := append(f.bytes(), make([]byte, 64)...)

			_, err := decodeTIMBytes(t, data)
			assert.ErrorIs(t, err, ErrFileType)
		})
	}
}

func TestDecodeTIM_ImageCrossCheck(t *testing.T) {
	tests := []struct {
		name   string
		width  uint16
		height uint16
		imgLen uint32
	}{
		{"length disagrees with height", 1, 2, 2 + timSectionHeaderSize},
		{"row as long as declared length", 8, 1, 16},
		{"length below header size", 1, 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := indexed8([]uint16{0x0000}, tt.width, tt.height, make([]byte, 64))
			f.imgLen = tt.imgLen

			_, err := decodeTIMBytes(t, f.bytes())
			assert.ErrorIs(t, err, ErrFileType)
		})
	}
}

func TestDecodeTIM_Truncated(t *testing.T) {
	full := indexed8([]uint16{0x1234, 0x5678}, 2, 2, make([]byte, 8)).bytes()

	// Every strict prefix must fail with a read error, never a panic.
	for n := 0; n < len(full); n++ {
		_, err := decodeTIMBytes(t, full[:n])
		require.ErrorIs(t, err, ErrFileRead, "prefix of %d bytes", n)
	}
}

func TestDecodeTIM_BadIdent(t *testing.T) {
	data := indexed8([]uint16{0}, 1, 1, []byte{0, 0}).bytes()
	data[0] = 0x11

	_, err := decodeTIMBytes(t, data)
	assert.ErrorIs(t, err, ErrFileType)
}

func TestDecodeTIM_Pure(t *testing.T) {
	data := indexed8([]uint16{0x7C1F, 0x8000}, 1, 2, []byte{0, 1, 1, 0}).bytes()

	a, err := DecodeTIM(bytes.NewReader(data))
	require.NoError(t, err)
	b, err := DecodeTIM(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, a.Levels[0].Data, b.Levels[0].Data)
	// Buffers are owned per call.
	a.Levels[0].Data[0] ^= 0xFF
	assert.NotEqual(t, a.Levels[0].Data, b.Levels[0].Data)
}

func TestTIMToRGB5A1(t *testing.T) {
	tests := []struct {
		name string
		in   uint16
		want uint16
	}{
		{"black without STP is transparent", 0x0000, 0x0000},
		{"black with STP is opaque", 0x8000, 0x0100},
		{"red without STP is opaque", 0x001F, 0x01F8},
		{"red with STP is transparent", 0x801F, 0x00F8},
		{"green", 0x03E0, 0xC107},
		{"blue", 0x7C00, 0x3F00},
		{"white", 0x7FFF, 0xFFFF},
		{"white with STP", 0xFFFF, 0xFEFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, timToRGB5A1(tt.in))
		})
	}
}

// Every TIM colour must survive the transform and the RGBA8 expansion with
// its channels intact and the alpha rule applied.
func TestTIMToRGB5A1_AllColours(t *testing.T) {
	for c := 0; c < 0x10000; c++ {
		in := uint16(c)
		out := timToRGB5A1(in)
		rgba := rgb5a1ToRGBA8([]byte{uint8(out), uint8(out >> 8)}, 1)

		r, g, b := uint8(in&0x1F), uint8((in>>5)&0x1F), uint8((in>>10)&0x1F)
		stp := in&0x8000 != 0
		black := r == 0 && g == 0 && b == 0

		require.Equal(t, scale5To8(r), rgba[0], "colour 0x%04x red", in)
		require.Equal(t, scale5To8(g), rgba[1], "colour 0x%04x green", in)
		require.Equal(t, scale5To8(b), rgba[2], "colour 0x%04x blue", in)

		opaque := (black && stp) || (!black && !stp)
		if opaque {
			require.Equal(t, uint8(255), rgba[3], "colour 0x%04x alpha", in)
		} else {
			require.Equal(t, uint8(0), rgba[3], "colour 0x%04x alpha", in)
		}
	}
}
