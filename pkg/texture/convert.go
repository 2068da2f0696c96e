package texture

import "fmt"

// ConvertPixelFormat converts every level of img to the target format.
// Only RGB5A1 to RGBA8 is defined. The image is left untouched if any
// level fails; on success the new levels and format replace the old ones
// together.
func ConvertPixelFormat(img *Image, target PixelFormat) error {
	if img.Format != FormatRGB5A1 || target != FormatRGBA8 {
		return fmt.Errorf("%w: %s to %s", ErrUnsupportedConversion, img.Format, target)
	}
	if len(img.Levels) == 0 {
		return fmt.Errorf("%w: no levels", ErrInvalidLevel)
	}

	levels := make([]Level, len(img.Levels))
	for l, src := range img.Levels {
		lw, lh := LevelDimension(img.Width, l), LevelDimension(img.Height, l)
		if len(src.Data) != ImageSize(FormatRGB5A1, lw, lh) {
			return fmt.Errorf("%w: level %d has %d bytes for %dx%d",
				ErrInvalidLevel, l, len(src.Data), lw, lh)
		}

		levels[l] = Level{
			Width:  lw,
			Height: lh,
			Data:   rgb5a1ToRGBA8(src.Data, lw*lh),
		}
	}

	img.Levels = levels
	img.Format = target
	img.ColourFormat = ColourRGBA
	return nil
}

// rgb5a1ToRGBA8 expands n RGBA5551 pixels (RRRRRGGG:GGBBBBBA) to 8 bits
// per channel.
func rgb5a1ToRGBA8(src []byte, n int) []byte {
	dst := make([]byte, n*4)
	for i := 0; i < n; i++ {
		s0, s1 := src[i*2], src[i*2+1]
		d := dst[i*4 : i*4+4]

		d[0] = scale5To8((s0 & 0xF8) >> 3)
		d[1] = scale5To8(((s0 & 0x07) << 2) | ((s1 & 0xC0) >> 6))
		d[2] = scale5To8((s1 & 0x3E) >> 1)
		if s1&0x01 != 0 {
			d[3] = 255
		}
	}
	return dst
}

// scale5To8 rescales a 5-bit channel to 8 bits, truncating.
func scale5To8(v uint8) uint8 {
	return uint8(uint32(v) * 255 / 31)
}
