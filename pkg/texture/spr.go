package texture

import "fmt"

const (
	sprPaletteSize = 256 * 4
	sprBlank       = 0xFFFF
)

var sprMagic = []byte("SP")

// sprHeader is the sprite sheet header. Versions before 2.0 carry no
// true-colour frame count.
type sprHeader struct {
	Minor, Major   uint8
	IndexedCount   uint16
	TrueColorCount uint16
}

// rle reports whether indexed frames are run-length encoded (2.1 and up).
func (h sprHeader) rle() bool {
	return h.Major == 2 && h.Minor >= 1
}

func supportedSPRVersion(major, minor uint8) bool {
	// 1.0 relies on a system palette that is not stored in the file.
	return (major == 1 && minor >= 1) || major == 2
}

func checkSPR(r *Reader) bool {
	b, ok := r.PeekAt(0, 4)
	return ok && b[0] == sprMagic[0] && b[1] == sprMagic[1] && supportedSPRVersion(b[3], b[2])
}

// decodeSPR decodes the first frame of a sprite sheet. Indexed frames are
// expanded through the trailing palette into RGBA8 with index 0
// transparent; true-colour frames keep their stored ABGR byte order.
func decodeSPR(r *Reader, opts Options) (*Image, error) {
	b, err := r.ReadFull(6, "SPR header")
	if err != nil {
		return nil, err
	}
	h := sprHeader{
		Minor:        b[2],
		Major:        b[3],
		IndexedCount: uint16(b[4]) | uint16(b[5])<<8,
	}
	if b[0] != sprMagic[0] || b[1] != sprMagic[1] {
		return nil, fmt.Errorf("%w: missing SPR magic", ErrFileType)
	}
	if !supportedSPRVersion(h.Major, h.Minor) {
		return nil, fmt.Errorf("%w: unsupported SPR version %d.%d", ErrFileType, h.Major, h.Minor)
	}
	if h.Major >= 2 {
		if h.TrueColorCount, err = r.Uint16("SPR true-colour count"); err != nil {
			return nil, err
		}
	}

	switch {
	case h.IndexedCount > 0:
		palette, ok := r.PeekAt(r.Size()-sprPaletteSize, sprPaletteSize)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected end of stream reading SPR palette", ErrFileRead)
		}
		return decodeSPRIndexed(r, opts, palette, h.rle())
	case h.TrueColorCount > 0:
		return decodeSPRTrueColour(r, opts)
	default:
		return nil, fmt.Errorf("%w: SPR holds no frames", ErrFileType)
	}
}

// sprFrameSize reads a frame's dimensions. Blank frames, stored as 0 or
// 0xFFFF, report ok == false.
func sprFrameSize(r *Reader, opts Options) (width, height int, ok bool, err error) {
	w, err := r.Uint16("SPR frame width")
	if err != nil {
		return 0, 0, false, err
	}
	h, err := r.Uint16("SPR frame height")
	if err != nil {
		return 0, 0, false, err
	}
	if w == 0 || h == 0 || w == sprBlank || h == sprBlank {
		return 0, 0, false, nil
	}
	if err := opts.checkDimensions(int(w), int(h), "SPR frame"); err != nil {
		return 0, 0, false, err
	}
	return int(w), int(h), true, nil
}

// blankSPRFrame is what a frame with no pixels decodes to.
func blankSPRFrame() *Image {
	return newImage(FormatRGBA8, ColourRGBA, 1, 1, 1)
}

func decodeSPRIndexed(r *Reader, opts Options, palette []byte, rle bool) (*Image, error) {
	width, height, ok, err := sprFrameSize(r, opts)
	if err != nil {
		return nil, err
	}
	if !ok {
		return blankSPRFrame(), nil
	}

	pixelCount := width * height
	var indices []byte
	if rle {
		size, err := r.Uint16("SPR compressed size")
		if err != nil {
			return nil, err
		}
		packed, err := r.ReadFull(int(size), "SPR compressed frame")
		if err != nil {
			return nil, err
		}
		if indices, err = expandSPRRuns(packed, pixelCount); err != nil {
			return nil, err
		}
	} else {
		if indices, err = r.ReadFull(pixelCount, "SPR frame indices"); err != nil {
			return nil, err
		}
	}

	img := newImage(FormatRGBA8, ColourRGBA, width, height, 1)
	pix := img.Levels[0].Data
	for i, idx := range indices {
		if idx == 0 {
			continue
		}
		c := palette[int(idx)*4:]
		o := i * 4
		pix[o], pix[o+1], pix[o+2], pix[o+3] = c[0], c[1], c[2], 255
	}
	return img, nil
}

// expandSPRRuns expands zero runs: 0x00 n stands for n zero indices (one
// when n is 0) and any other byte is a literal. The runs must cover every
// pixel of the frame.
func expandSPRRuns(packed []byte, pixelCount int) ([]byte, error) {
	out := make([]byte, 0, pixelCount)
	for i := 0; i < len(packed) && len(out) < pixelCount; i++ {
		b := packed[i]
		if b != 0 {
			out = append(out, b)
			continue
		}
		i++
		if i >= len(packed) {
			return nil, fmt.Errorf("%w: unexpected end of stream reading SPR zero run", ErrFileRead)
		}
		n := max(int(packed[i]), 1)
		if len(out)+n > pixelCount {
			return nil, fmt.Errorf("%w: SPR zero run overruns frame", ErrFileType)
		}
		out = append(out, make([]byte, n)...)
	}
	if len(out) < pixelCount {
		return nil, fmt.Errorf("%w: SPR frame runs end after %d of %d pixels", ErrFileRead, len(out), pixelCount)
	}
	return out, nil
}

func decodeSPRTrueColour(r *Reader, opts Options) (*Image, error) {
	width, height, ok, err := sprFrameSize(r, opts)
	if err != nil {
		return nil, err
	}
	if !ok {
		return blankSPRFrame(), nil
	}

	data, err := r.ReadFull(width*height*4, "SPR true-colour frame")
	if err != nil {
		return nil, err
	}
	img := newImage(FormatRGBA8, ColourABGR, width, height, 1)
	copy(img.Levels[0].Data, data)
	return img, nil
}
