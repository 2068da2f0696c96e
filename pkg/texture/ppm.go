package texture

import (
	"fmt"
	"strconv"
)

const (
	// ppmMaxToken bounds header tokens so a hostile file cannot make the
	// header parser read forever.
	ppmMaxToken = 16
	// ppmMaxAxis bounds each dimension whatever MaxDimension says.
	ppmMaxAxis = 1 << 16
)

// decodePPM decodes a binary (P6) portable pixmap with a maximum sample
// value of at most 255.
func decodePPM(r *Reader, opts Options) (*Image, error) {
	p := ppmHeaderReader{r: r}

	magic, err := p.token()
	if err != nil {
		return nil, err
	}
	if magic != "P6" {
		return nil, fmt.Errorf("%w: unsupported PPM variant %q", ErrFileType, magic)
	}

	width, err := p.number("PPM width")
	if err != nil {
		return nil, err
	}
	height, err := p.number("PPM height")
	if err != nil {
		return nil, err
	}
	maxVal, err := p.number("PPM maxval")
	if err != nil {
		return nil, err
	}
	if maxVal < 1 || maxVal > 255 {
		return nil, fmt.Errorf("%w: unsupported PPM maxval %d", ErrFileType, maxVal)
	}
	if width > ppmMaxAxis || height > ppmMaxAxis {
		return nil, fmt.Errorf("%w: PPM dimensions %dx%d out of range", ErrFileType, width, height)
	}
	if err := opts.checkDimensions(width, height, "PPM image"); err != nil {
		return nil, err
	}

	data, err := r.ReadFull(ImageSize(FormatRGB8, width, height), "PPM pixel data")
	if err != nil {
		return nil, err
	}
	if maxVal != 255 {
		for i, v := range data {
			if int(v) > maxVal {
				return nil, fmt.Errorf("%w: PPM sample %d above maxval %d", ErrFileType, v, maxVal)
			}
			data[i] = uint8(int(v) * 255 / maxVal)
		}
	}

	return &Image{
		Width:        width,
		Height:       height,
		Format:       FormatRGB8,
		ColourFormat: ColourRGB,
		Levels:       []Level{{Width: width, Height: height, Data: data}},
	}, nil
}

// ppmHeaderReader splits the text header into whitespace separated tokens,
// skipping comments. It consumes exactly one whitespace byte after each
// token, which leaves the reader on the first pixel after maxval.
type ppmHeaderReader struct {
	r *Reader
}

func (p *ppmHeaderReader) token() (string, error) {
	var tok []byte
	for {
		c, err := p.r.Uint8("PPM header")
		if err != nil {
			return "", err
		}

		switch {
		case c == '#' && len(tok) == 0:
			if err := p.skipComment(); err != nil {
				return "", err
			}
		case isPPMSpace(c):
			if len(tok) > 0 {
				return string(tok), nil
			}
		default:
			if len(tok) == ppmMaxToken {
				return "", fmt.Errorf("%w: PPM header token too long", ErrFileType)
			}
			tok = append(tok, c)
		}
	}
}

func (p *ppmHeaderReader) skipComment() error {
	for {
		c, err := p.r.Uint8("PPM comment")
		if err != nil {
			return err
		}
		if c == '\n' || c == '\r' {
			return nil
		}
	}
}

func (p *ppmHeaderReader) number(section string) (int, error) {
	tok, err := p.token()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: bad %s %q", ErrFileType, section, tok)
	}
	return n, nil
}

func isPPMSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}
