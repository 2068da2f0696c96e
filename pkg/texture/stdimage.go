package texture

import (
	"fmt"
	"image"
)

// channelOrder gives, for each of R, G, B and A, the byte offset of that
// channel within one pixel. -1 means the channel is absent (opaque).
var channelOrder = map[ColourFormat][4]int{
	ColourRGBA: {0, 1, 2, 3},
	ColourBGRA: {2, 1, 0, 3},
	ColourARGB: {1, 2, 3, 0},
	ColourABGR: {3, 2, 1, 0},
	ColourRGB:  {0, 1, 2, -1},
	ColourBGR:  {2, 1, 0, -1},
}

// ToNRGBA returns one level of img as an image.NRGBA. Uncompressed 8-bit
// formats in any channel order and RGB5A1 are supported; the source image
// is not modified.
func ToNRGBA(img *Image, level int) (*image.NRGBA, error) {
	if level < 0 || level >= len(img.Levels) {
		return nil, fmt.Errorf("%w: level %d of %d", ErrInvalidLevel, level, len(img.Levels))
	}
	src := img.Levels[level]
	if len(src.Data) != ImageSize(img.Format, src.Width, src.Height) {
		return nil, fmt.Errorf("%w: level %d has %d bytes for %dx%d",
			ErrInvalidLevel, level, len(src.Data), src.Width, src.Height)
	}

	data, colour := src.Data, img.ColourFormat
	switch img.Format {
	case FormatRGB5A1:
		data, colour = rgb5a1ToRGBA8(src.Data, src.Width*src.Height), ColourRGBA
	case FormatRGBA8, FormatRGB8:
	default:
		return nil, fmt.Errorf("%w: %s to NRGBA", ErrUnsupportedConversion, img.Format)
	}

	order, ok := channelOrder[colour]
	if !ok || SamplesPerPixel(colour)*src.Width*src.Height != len(data) {
		return nil, fmt.Errorf("%w: %s with %s channels", ErrUnsupportedConversion, img.Format, colour)
	}

	out := image.NewNRGBA(image.Rect(0, 0, src.Width, src.Height))
	bpp := SamplesPerPixel(colour)
	for i := 0; i < src.Width*src.Height; i++ {
		p := data[i*bpp : i*bpp+bpp]
		d := out.Pix[i*4 : i*4+4]
		d[0], d[1], d[2] = p[order[0]], p[order[1]], p[order[2]]
		if order[3] < 0 {
			d[3] = 255
		} else {
			d[3] = p[order[3]]
		}
	}
	return out, nil
}
