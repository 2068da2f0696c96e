package texture

import (
	"encoding/binary"
	"fmt"
)

// DDS header constants.
const (
	ddsHeaderSize = 124

	ddsFlagMipMapCount = 0x20000

	ddpfAlphaPixels = 0x1
	ddpfFourCC      = 0x4
	ddpfRGB         = 0x40
)

// ddsHeader holds the fields of the 124-byte DDS header that matter here.
type ddsHeader struct {
	Size        uint32
	Flags       uint32
	Height      uint32
	Width       uint32
	MipMapCount uint32
	PixelFormat ddsPixelFormat
}

type ddsPixelFormat struct {
	Flags    uint32
	FourCC   string
	BitCount uint32
	RMask    uint32
}

func parseDDSHeader(b []byte) ddsHeader {
	return ddsHeader{
		Size:        binary.LittleEndian.Uint32(b[0:]),
		Flags:       binary.LittleEndian.Uint32(b[4:]),
		Height:      binary.LittleEndian.Uint32(b[8:]),
		Width:       binary.LittleEndian.Uint32(b[12:]),
		MipMapCount: binary.LittleEndian.Uint32(b[24:]),
		PixelFormat: ddsPixelFormat{
			Flags:    binary.LittleEndian.Uint32(b[76:]),
			FourCC:   string(b[80:84]),
			BitCount: binary.LittleEndian.Uint32(b[84:]),
			RMask:    binary.LittleEndian.Uint32(b[88:]),
		},
	}
}

// formats maps the DDS pixel format onto a pixel and colour format.
func (pf ddsPixelFormat) formats() (PixelFormat, ColourFormat, error) {
	if pf.Flags&ddpfFourCC != 0 {
		switch pf.FourCC {
		case "DXT1":
			if pf.Flags&ddpfAlphaPixels != 0 {
				return FormatRGBADXT1, ColourRGBA, nil
			}
			return FormatRGBDXT1, ColourRGB, nil
		case "DXT3":
			return FormatRGBADXT3, ColourRGBA, nil
		case "DXT5":
			return FormatRGBADXT5, ColourRGBA, nil
		}
		return FormatUnknown, ColourUnknown, fmt.Errorf("%w: unsupported DDS FourCC %q", ErrFileType, pf.FourCC)
	}

	if pf.Flags&ddpfRGB != 0 {
		switch {
		case pf.BitCount == 32 && pf.RMask == 0x00FF0000:
			return FormatRGBA8, ColourBGRA, nil
		case pf.BitCount == 32 && pf.RMask == 0x000000FF:
			return FormatRGBA8, ColourRGBA, nil
		case pf.BitCount == 24 && pf.RMask == 0xFF0000:
			return FormatRGB8, ColourBGR, nil
		case pf.BitCount == 24 && pf.RMask == 0x0000FF:
			return FormatRGB8, ColourRGB, nil
		}
	}

	return FormatUnknown, ColourUnknown, fmt.Errorf("%w: unsupported DDS pixel format (flags 0x%x, %d bits)",
		ErrFileType, pf.Flags, pf.BitCount)
}

func decodeDDS(r *Reader, opts Options) (*Image, error) {
	magic, err := r.ReadFull(len(ddsMagic), "DDS magic")
	if err != nil {
		return nil, err
	}
	if string(magic) != string(ddsMagic) {
		return nil, fmt.Errorf("%w: bad DDS magic", ErrFileType)
	}

	b, err := r.ReadFull(ddsHeaderSize, "DDS header")
	if err != nil {
		return nil, err
	}
	header := parseDDSHeader(b)
	if header.Size != ddsHeaderSize {
		return nil, fmt.Errorf("%w: DDS header size %d", ErrFileType, header.Size)
	}

	width, height := int(header.Width), int(header.Height)
	if err := opts.checkDimensions(width, height, "DDS image"); err != nil {
		return nil, err
	}

	format, colour, err := header.PixelFormat.formats()
	if err != nil {
		return nil, err
	}

	levels := 1
	if header.Flags&ddsFlagMipMapCount != 0 && header.MipMapCount > 1 {
		levels = int(header.MipMapCount)
		if limit := mipCount(width, height); levels > limit {
			return nil, fmt.Errorf("%w: %d mip levels for %dx%d, at most %d",
				ErrFileType, levels, width, height, limit)
		}
	}

	img := &Image{
		Width:        width,
		Height:       height,
		Format:       format,
		ColourFormat: colour,
		Levels:       make([]Level, levels),
	}
	for l := range img.Levels {
		lw, lh := LevelDimension(width, l), LevelDimension(height, l)
		data, err := r.ReadFull(ImageSize(format, lw, lh), fmt.Sprintf("DDS level %d", l))
		if err != nil {
			return nil, err
		}
		img.Levels[l] = Level{Width: lw, Height: lh, Data: data}
	}

	return img, nil
}

// mipCount returns the length of a full mip chain for the dimensions.
func mipCount(width, height int) int {
	n := 1
	for width > 1 || height > 1 {
		width, height = width>>1, height>>1
		n++
	}
	return n
}
