package texture

import (
	"encoding/binary"
	"fmt"
)

const ftxHeaderSize = 12

// decodeFTX decodes an FTX texture: uint32 width, uint32 height, uint32
// has-alpha flag, then width*height RGBA pixels.
func decodeFTX(r *Reader, opts Options) (*Image, error) {
	b, err := r.ReadFull(ftxHeaderSize, "FTX header")
	if err != nil {
		return nil, err
	}
	width := binary.LittleEndian.Uint32(b[0:])
	height := binary.LittleEndian.Uint32(b[4:])

	if width > 1<<16 || height > 1<<16 {
		return nil, fmt.Errorf("%w: FTX dimensions %dx%d out of range", ErrFileType, width, height)
	}
	if err := opts.checkDimensions(int(width), int(height), "FTX image"); err != nil {
		return nil, err
	}

	data, err := r.ReadFull(ImageSize(FormatRGBA8, int(width), int(height)), "FTX pixel data")
	if err != nil {
		return nil, err
	}

	return &Image{
		Width:        int(width),
		Height:       int(height),
		Format:       FormatRGBA8,
		ColourFormat: ColourRGBA,
		Levels:       []Level{{Width: int(width), Height: int(height), Data: data}},
	}, nil
}
