package texture

import (
	"encoding/binary"
	"fmt"
	"io"
)

// TIM pixel types, from the low two bits of the first flag byte.
const (
	timType4BPP  = 0
	timType8BPP  = 1
	timType16BPP = 2
	timType24BPP = 3

	timTypeMask = 0x03
	timFlagCLUT = 0x08

	// Palette and image section headers are both 12 bytes:
	// uint32 length, uint16 org x, uint16 org y, uint16 width, uint16 height.
	timSectionHeaderSize = 12
)

// timHeader is the four flag bytes following the ident.
type timHeader struct {
	Flag1, Flag2, Flag3, Flag4 uint8
}

func (h timHeader) pixelType() uint8 {
	return h.Flag1 & timTypeMask
}

func (h timHeader) hasCLUT() bool {
	return h.Flag1&timFlagCLUT != 0
}

// timSection is the header shared by the palette and image sections.
// Width is measured in 16-bit words.
type timSection struct {
	Length uint32
	OrgX   uint16
	OrgY   uint16
	Width  uint16
	Height uint16
}

func readTIMSection(r *Reader, section string) (timSection, error) {
	b, err := r.ReadFull(timSectionHeaderSize, section)
	if err != nil {
		return timSection{}, err
	}
	return timSection{
		Length: binary.LittleEndian.Uint32(b[0:]),
		OrgX:   binary.LittleEndian.Uint16(b[4:]),
		OrgY:   binary.LittleEndian.Uint16(b[6:]),
		Width:  binary.LittleEndian.Uint16(b[8:]),
		Height: binary.LittleEndian.Uint16(b[10:]),
	}, nil
}

// DecodeTIM decodes a TIM image from a reader positioned at the ident.
func DecodeTIM(r io.ReadSeeker) (*Image, error) {
	rd, err := NewReader(r, 0)
	if err != nil {
		return nil, err
	}
	return decodeTIM(rd, DefaultOptions())
}

func decodeTIM(r *Reader, opts Options) (*Image, error) {
	ident, err := r.Uint32("TIM ident")
	if err != nil {
		return nil, err
	}
	if ident != timIdent {
		return nil, fmt.Errorf("%w: bad TIM ident 0x%x", ErrFileType, ident)
	}

	b, err := r.ReadFull(4, "TIM header")
	if err != nil {
		return nil, err
	}
	header := timHeader{Flag1: b[0], Flag2: b[1], Flag3: b[2], Flag4: b[3]}

	var palette []uint16
	if header.hasCLUT() {
		if palette, err = readTIMPalette(r); err != nil {
			return nil, err
		}
	}

	info, err := readTIMSection(r, "TIM image header")
	if err != nil {
		return nil, err
	}

	// The declared length is the only guard against over-reading, so it has
	// to agree exactly with width and height.
	rowBytes := int64(info.Width) * 2
	if rowBytes >= int64(info.Length) ||
		rowBytes*int64(info.Height) != int64(info.Length)-timSectionHeaderSize {
		return nil, fmt.Errorf("%w: invalid size/width/height in TIM image header", ErrFileType)
	}

	payload, err := r.ReadFull(int(info.Length)-timSectionHeaderSize, "TIM image data")
	if err != nil {
		return nil, err
	}

	height := int(info.Height)
	var width int
	switch header.pixelType() {
	case timType4BPP:
		width = int(info.Width) * 4
	case timType8BPP:
		width = int(info.Width) * 2
	case timType16BPP:
		width = int(info.Width)
	case timType24BPP:
		return nil, fmt.Errorf("%w: 24-bit TIM images are not supported", ErrFileType)
	}

	if err := opts.checkDimensions(width, height, "TIM image"); err != nil {
		return nil, err
	}

	img := newImage(FormatRGB5A1, ColourABGR, width, height, 1)
	out := img.Levels[0].Data

	switch header.pixelType() {
	case timType4BPP:
		if err := timExpandIndexed(out, payload, palette, true); err != nil {
			return nil, err
		}
	case timType8BPP:
		if err := timExpandIndexed(out, payload, palette, false); err != nil {
			return nil, err
		}
	case timType16BPP:
		for i := 0; i+1 < len(payload); i += 2 {
			c := timToRGB5A1(binary.LittleEndian.Uint16(payload[i:]))
			binary.LittleEndian.PutUint16(out[i:], c)
		}
	}

	return img, nil
}

// readTIMPalette reads the CLUT section.
func readTIMPalette(r *Reader) ([]uint16, error) {
	info, err := readTIMSection(r, "TIM palette header")
	if err != nil {
		return nil, err
	}

	count := int64(info.Width) * int64(info.Height)
	if count >= int64(info.Length) ||
		count*2 != int64(info.Length)-timSectionHeaderSize {
		return nil, fmt.Errorf("%w: invalid size/width/height in TIM palette header", ErrFileType)
	}

	b, err := r.ReadFull(int(count)*2, "TIM palette")
	if err != nil {
		return nil, err
	}

	palette := make([]uint16, count)
	for i := range palette {
		palette[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return palette, nil
}

// timExpandIndexed resolves each index in payload through the palette and
// writes one RGB5A1 pixel per index. With nibbles set each byte holds two
// indices, low nibble first.
func timExpandIndexed(out, payload []byte, palette []uint16, nibbles bool) error {
	o := 0
	put := func(idx uint8) error {
		if int(idx) >= len(palette) {
			return fmt.Errorf("%w: index %d, palette has %d entries", ErrImageFormatIndex, idx, len(palette))
		}
		binary.LittleEndian.PutUint16(out[o:], timToRGB5A1(palette[idx]))
		o += 2
		return nil
	}

	for _, b := range payload {
		if !nibbles {
			if err := put(b); err != nil {
				return err
			}
			continue
		}
		if err := put(b & 0x0F); err != nil {
			return err
		}
		if err := put(b >> 4); err != nil {
			return err
		}
	}
	return nil
}

// timToRGB5A1 moves the bits of a TIM colour around:
//
//	GGGRRRRR:ABBBBBGG => RRRRRGGG:GGBBBBBA
//
// The STP bit normally marks a transparent pixel, but for pure black it is
// inverted: black is transparent unless STP is set.
func timToRGB5A1(c uint16) uint16 {
	in0, in1 := uint8(c), uint8(c>>8)
	var out0, out1 uint8

	// Red
	out0 |= (in0 & 0x1F) << 3

	// Green
	out0 |= (in1 & 0x03) << 1
	out0 |= (in0 & 0x80) >> 7
	out1 |= (in0 & 0x60) << 1

	// Blue
	out1 |= (in1 & 0x7C) >> 1

	black := out0 == 0 && out1 == 0
	stp := in1&0x80 != 0
	if black == stp {
		out1 |= 0x01
	}

	return uint16(out0) | uint16(out1)<<8
}
