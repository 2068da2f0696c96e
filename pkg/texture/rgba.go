package texture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
)

// stdDecoder is the shape of the golang.org/x/image decoders.
type stdDecoder struct {
	name         string
	decode       func(io.Reader) (image.Image, error)
	decodeConfig func(io.Reader) (image.Config, error)
}

// decodeStd runs an image.Image decoder over the whole stream and turns the
// result into a single RGBA8 level. The header is checked against the
// dimension cap before any pixels are decoded.
func decodeStd(r *Reader, opts Options, d stdDecoder, magentaKey bool) (*Image, error) {
	if err := r.Rewind(); err != nil {
		return nil, err
	}
	cfg, err := d.decodeConfig(r)
	if err != nil {
		return nil, stdDecodeError(d.name+" header", err)
	}
	if err := opts.checkDimensions(cfg.Width, cfg.Height, d.name+" image"); err != nil {
		return nil, err
	}

	if err := r.Rewind(); err != nil {
		return nil, err
	}
	src, err := d.decode(r)
	if err != nil {
		return nil, stdDecodeError(d.name+" image data", err)
	}

	return fromImage(src, magentaKey), nil
}

func stdDecodeError(section string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: unexpected end of stream reading %s", ErrFileRead, section)
	}
	return fmt.Errorf("%w: %s: %v", ErrFileType, section, err)
}

// fromImage copies any image.Image into a one-level RGBA8 image with
// straight (non-premultiplied) alpha.
func fromImage(src image.Image, magentaKey bool) *Image {
	bounds := src.Bounds()
	img := newImage(FormatRGBA8, ColourRGBA, bounds.Dx(), bounds.Dy(), 1)
	pix := img.Levels[0].Data

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			if magentaKey && IsMagentaKey(c.R, c.G, c.B) {
				c = color.NRGBA{}
			}
			pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
			i += 4
		}
	}
	return img
}

// IsMagentaKey reports whether a colour is the magenta transparency key.
// The tolerance absorbs rounding in older BMP writers.
func IsMagentaKey(r, g, b uint8) bool {
	return r >= 250 && g <= 10 && b >= 250
}
