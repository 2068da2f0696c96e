package texture

import (
	"encoding/binary"
	"fmt"
)

// TGA image types.
const (
	tgaTypeUncompressed = 2  // Uncompressed true-color
	tgaTypeRLE          = 10 // RLE compressed true-color

	tgaHeaderSize = 18
)

// tgaHeader is the fixed 18-byte TGA header without the colour map fields.
type tgaHeader struct {
	IDLength     uint8
	ColorMapType uint8
	ImageType    uint8
	Width        uint16
	Height       uint16
	BPP          uint8
	Descriptor   uint8
}

// topToBottom reports descriptor bit 5; without it rows are stored
// bottom-up.
func (h tgaHeader) topToBottom() bool {
	return h.Descriptor&0x20 != 0
}

// decodeTGA decodes uncompressed and RLE true-colour TGA files at 24 or 32
// bits per pixel.
func decodeTGA(r *Reader, opts Options) (*Image, error) {
	b, err := r.ReadFull(tgaHeaderSize, "TGA header")
	if err != nil {
		return nil, err
	}
	h := tgaHeader{
		IDLength:     b[0],
		ColorMapType: b[1],
		ImageType:    b[2],
		Width:        binary.LittleEndian.Uint16(b[12:]),
		Height:       binary.LittleEndian.Uint16(b[14:]),
		BPP:          b[16],
		Descriptor:   b[17],
	}

	if h.ColorMapType != 0 {
		return nil, fmt.Errorf("%w: color-mapped TGA not supported", ErrFileType)
	}
	if h.ImageType != tgaTypeUncompressed && h.ImageType != tgaTypeRLE {
		return nil, fmt.Errorf("%w: unsupported TGA type %d", ErrFileType, h.ImageType)
	}
	if h.BPP != 24 && h.BPP != 32 {
		return nil, fmt.Errorf("%w: unsupported TGA bit depth %d", ErrFileType, h.BPP)
	}

	width, height := int(h.Width), int(h.Height)
	if err := opts.checkDimensions(width, height, "TGA image"); err != nil {
		return nil, err
	}

	if _, err := r.ReadFull(int(h.IDLength), "TGA image ID"); err != nil {
		return nil, err
	}

	img := newImage(FormatRGBA8, ColourRGBA, width, height, 1)
	dec := tgaPixels{
		pix:           img.Levels[0].Data,
		width:         width,
		height:        height,
		bytesPerPixel: int(h.BPP) / 8,
		topToBottom:   h.topToBottom(),
	}

	if h.ImageType == tgaTypeUncompressed {
		data, err := r.ReadFull(width*height*dec.bytesPerPixel, "TGA pixel data")
		if err != nil {
			return nil, err
		}
		for i := 0; i < width*height; i++ {
			dec.set(i, data[i*dec.bytesPerPixel:])
		}
		return img, nil
	}

	data, err := r.ReadFull(int(r.Remaining()), "TGA pixel data")
	if err != nil {
		return nil, err
	}
	if err := dec.decodeRLE(data); err != nil {
		return nil, err
	}
	return img, nil
}

// tgaPixels writes BGR(A) source pixels into an RGBA buffer, flipping rows
// when the file is stored bottom-up.
type tgaPixels struct {
	pix           []byte
	width, height int
	bytesPerPixel int
	topToBottom   bool
}

func (t *tgaPixels) set(idx int, src []byte) {
	x, y := idx%t.width, idx/t.width
	if !t.topToBottom {
		y = t.height - 1 - y
	}
	o := (y*t.width + x) * 4

	t.pix[o] = src[2]
	t.pix[o+1] = src[1]
	t.pix[o+2] = src[0]
	t.pix[o+3] = 255
	if t.bytesPerPixel == 4 {
		t.pix[o+3] = src[3]
	}
}

// decodeRLE expands type 10 packets. The high bit of a packet header marks
// a run of one repeated pixel; otherwise count raw pixels follow.
func (t *tgaPixels) decodeRLE(data []byte) error {
	pixelCount := t.width * t.height
	pixelIdx, dataIdx := 0, 0

	for pixelIdx < pixelCount {
		if dataIdx >= len(data) {
			return fmt.Errorf("%w: unexpected end of stream reading TGA RLE packet", ErrFileRead)
		}
		packet := data[dataIdx]
		dataIdx++
		count := int(packet&0x7F) + 1
		if pixelIdx+count > pixelCount {
			return fmt.Errorf("%w: TGA RLE packet overruns image", ErrFileType)
		}

		if packet&0x80 != 0 {
			if dataIdx+t.bytesPerPixel > len(data) {
				return fmt.Errorf("%w: unexpected end of stream reading TGA RLE pixel", ErrFileRead)
			}
			src := data[dataIdx : dataIdx+t.bytesPerPixel]
			dataIdx += t.bytesPerPixel
			for i := 0; i < count; i++ {
				t.set(pixelIdx, src)
				pixelIdx++
			}
			continue
		}

		if dataIdx+count*t.bytesPerPixel > len(data) {
			return fmt.Errorf("%w: unexpected end of stream reading TGA raw packet", ErrFileRead)
		}
		for i := 0; i < count; i++ {
			t.set(pixelIdx, data[dataIdx:])
			dataIdx += t.bytesPerPixel
			pixelIdx++
		}
	}
	return nil
}
