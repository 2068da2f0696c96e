// Package texture loads legacy and proprietary image containers into a
// normalized in-memory image ready for upload to a renderer.
package texture

import (
	"fmt"
	"math"
)

// PixelFormat identifies the layout of a level's pixel buffer.
type PixelFormat int

// Pixel formats.
const (
	FormatUnknown PixelFormat = iota
	FormatRGB5A1
	FormatRGB8
	FormatRGBA8
	FormatRGBA4
	FormatRGB565
	FormatRGBA16
	FormatRGBA16F
	FormatRGBDXT1
	FormatRGBADXT1
	FormatRGBADXT3
	FormatRGBADXT5
	FormatRGBFXT1
)

var pixelFormatNames = [...]string{
	FormatUnknown:  "unknown",
	FormatRGB5A1:   "RGB5A1",
	FormatRGB8:     "RGB8",
	FormatRGBA8:    "RGBA8",
	FormatRGBA4:    "RGBA4",
	FormatRGB565:   "RGB565",
	FormatRGBA16:   "RGBA16",
	FormatRGBA16F:  "RGBA16F",
	FormatRGBDXT1:  "RGB_DXT1",
	FormatRGBADXT1: "RGBA_DXT1",
	FormatRGBADXT3: "RGBA_DXT3",
	FormatRGBADXT5: "RGBA_DXT5",
	FormatRGBFXT1:  "RGB_FXT1",
}

// String returns the format name.
func (f PixelFormat) String() string {
	if f >= 0 && int(f) < len(pixelFormatNames) {
		return pixelFormatNames[f]
	}
	return fmt.Sprintf("PixelFormat(%d)", int(f))
}

// ColourFormat describes the channel order of a pixel. It is independent of
// PixelFormat.
type ColourFormat int

// Colour channel orders.
const (
	ColourUnknown ColourFormat = iota
	ColourRGB
	ColourRGBA
	ColourBGR
	ColourBGRA
	ColourARGB
	ColourABGR
)

var colourFormatNames = [...]string{
	ColourUnknown: "unknown",
	ColourRGB:     "RGB",
	ColourRGBA:    "RGBA",
	ColourBGR:     "BGR",
	ColourBGRA:    "BGRA",
	ColourARGB:    "ARGB",
	ColourABGR:    "ABGR",
}

// String returns the channel order name.
func (c ColourFormat) String() string {
	if c >= 0 && int(c) < len(colourFormatNames) {
		return colourFormatNames[c]
	}
	return fmt.Sprintf("ColourFormat(%d)", int(c))
}

// SamplesPerPixel returns the number of channels for a colour format, or 0.
func SamplesPerPixel(c ColourFormat) int {
	switch c {
	case ColourABGR, ColourARGB, ColourBGRA, ColourRGBA:
		return 4
	case ColourBGR, ColourRGB:
		return 3
	}
	return 0
}

// ImageSize returns the byte size of a single level of the given format and
// dimensions. Block-compressed formats round up to whole blocks. The result
// is 0 for unknown formats and for sizes that do not fit in an int.
func ImageSize(format PixelFormat, width, height int) int {
	if width <= 0 || height <= 0 {
		return 0
	}

	switch format {
	case FormatRGBDXT1, FormatRGBADXT1:
		return levelBytes(blocks(width, 4), blocks(height, 4), 8)
	case FormatRGBADXT3, FormatRGBADXT5:
		return levelBytes(blocks(width, 4), blocks(height, 4), 16)
	case FormatRGBFXT1:
		return levelBytes(blocks(width, 8), blocks(height, 4), 16)

	case FormatRGB5A1, FormatRGB565, FormatRGBA4:
		return levelBytes(width, height, 2)
	case FormatRGB8:
		return levelBytes(width, height, 3)
	case FormatRGBA8:
		return levelBytes(width, height, 4)
	case FormatRGBA16, FormatRGBA16F:
		return levelBytes(width, height, maxBytesPerPixel)
	}
	return 0
}

// maxBytesPerPixel is the widest uncompressed pixel, RGBA16.
const maxBytesPerPixel = 8

// levelBytes returns w*h*unit, or 0 when the product overflows.
func levelBytes(w, h, unit int) int {
	if w > math.MaxInt/unit/h {
		return 0
	}
	return w * h * unit
}

func blocks(n, size int) int {
	return (n-1)/size + 1
}

// IsCompressedFormat reports whether the format is block compressed.
func IsCompressedFormat(format PixelFormat) bool {
	switch format {
	case FormatRGBDXT1, FormatRGBADXT1, FormatRGBADXT3, FormatRGBADXT5, FormatRGBFXT1:
		return true
	}
	return false
}

// IsValidImageSize reports whether both dimensions are powers of two and at
// least 2, as older renderers require.
func IsValidImageSize(width, height int) bool {
	if width < 2 || height < 2 {
		return false
	}
	return isPowerOfTwo(width) && isPowerOfTwo(height)
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// LevelDimension returns the size of dimension n at mip level l.
func LevelDimension(n, level int) int {
	n >>= uint(level)
	if n < 1 {
		return 1
	}
	return n
}

// Level is one detail level of an image. Level 0 is full resolution.
type Level struct {
	Width  int
	Height int
	Data   []byte
}

// Image is a decoded image. The caller owns every level buffer.
type Image struct {
	Width        int
	Height       int
	Format       PixelFormat
	ColourFormat ColourFormat
	Levels       []Level
	Path         string
}

// newImage allocates an image with the given number of zeroed levels.
func newImage(format PixelFormat, colour ColourFormat, width, height, levels int) *Image {
	img := &Image{
		Width:        width,
		Height:       height,
		Format:       format,
		ColourFormat: colour,
		Levels:       make([]Level, levels),
	}
	for l := range img.Levels {
		lw, lh := LevelDimension(width, l), LevelDimension(height, l)
		img.Levels[l] = Level{
			Width:  lw,
			Height: lh,
			Data:   make([]byte, ImageSize(format, lw, lh)),
		}
	}
	return img
}

// Validate checks that the image has at least one level and that every
// level buffer matches the size its format and dimensions require.
func (img *Image) Validate() error {
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("%w: bad dimensions %dx%d", ErrInvalidLevel, img.Width, img.Height)
	}
	if len(img.Levels) == 0 {
		return fmt.Errorf("%w: no levels", ErrInvalidLevel)
	}

	for l, level := range img.Levels {
		lw, lh := LevelDimension(img.Width, l), LevelDimension(img.Height, l)
		if level.Width != lw || level.Height != lh {
			return fmt.Errorf("%w: level %d is %dx%d, expected %dx%d",
				ErrInvalidLevel, l, level.Width, level.Height, lw, lh)
		}
		if want := ImageSize(img.Format, lw, lh); want == 0 || len(level.Data) != want {
			return fmt.Errorf("%w: level %d has %d bytes, expected %d",
				ErrInvalidLevel, l, len(level.Data), want)
		}
	}
	return nil
}

// Clone returns a deep copy of the image.
func (img *Image) Clone() *Image {
	out := *img
	out.Levels = make([]Level, len(img.Levels))
	for l, level := range img.Levels {
		data := make([]byte, len(level.Data))
		copy(data, level.Data)
		out.Levels[l] = Level{Width: level.Width, Height: level.Height, Data: data}
	}
	return &out
}

// String returns a one-line summary.
func (img *Image) String() string {
	return fmt.Sprintf("%dx%d %s (%s), %d level(s)",
		img.Width, img.Height, img.Format, img.ColourFormat, len(img.Levels))
}
