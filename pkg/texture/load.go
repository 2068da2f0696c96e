package texture

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Options bound what a single load may consume.
type Options struct {
	// MaxInputBytes caps how far into a stream decoders may read. 0 means
	// no cap.
	MaxInputBytes int64
	// MaxDimension rejects images wider or taller than this. 0 means no cap.
	MaxDimension int
	// MagentaKey makes magenta pixels transparent in true-colour BMPs.
	MagentaKey bool
}

// DefaultOptions returns the limits used by Load.
func DefaultOptions() Options {
	return Options{
		MaxInputBytes: 256 << 20,
		MaxDimension:  16384,
	}
}

// checkDimensions rejects empty images, those above the configured cap and
// those whose widest level size would overflow an int.
func (o Options) checkDimensions(width, height int, what string) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %s has invalid dimensions %dx%d", ErrFileType, what, width, height)
	}
	if o.MaxDimension > 0 && (width > o.MaxDimension || height > o.MaxDimension) {
		return fmt.Errorf("%w: %s of %dx%d exceeds the %d pixel limit",
			ErrMemoryAlloc, what, width, height, o.MaxDimension)
	}
	if ImageSize(FormatRGBA16, width, height) == 0 {
		return fmt.Errorf("%w: %s of %dx%d is too large to address",
			ErrMemoryAlloc, what, width, height)
	}
	return nil
}

// Loader identifies and decodes image files. A Loader holds no mutable
// state and may be shared between goroutines.
type Loader struct {
	opts Options
	log  *zap.Logger
}

// NewLoader creates a loader. A nil logger disables logging.
func NewLoader(opts Options, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{opts: opts, log: log}
}

var defaultLoader = NewLoader(DefaultOptions(), nil)

// Load decodes the image file at path with the default options.
func Load(path string) (*Image, error) {
	return defaultLoader.Load(path)
}

// Load opens path and decodes it. The file is always closed.
func (l *Loader) Load(path string) (img *Image, err error) {
	if path == "" {
		return nil, ErrFilePath
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrFileRead, path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			img = nil
			err = multierr.Append(err, fmt.Errorf("closing %s: %w", path, cerr))
		}
	}()

	return l.LoadReader(f, path)
}

// LoadReader decodes an image from rs. The path is used for diagnostics and
// as an extension fallback when no signature matches; it never overrides a
// signature match.
func (l *Loader) LoadReader(rs io.ReadSeeker, path string) (*Image, error) {
	r, err := NewReader(rs, l.opts.MaxInputBytes)
	if err != nil {
		return nil, err
	}
	if err := r.Rewind(); err != nil {
		return nil, err
	}

	tag, ok := Detect(r)
	if !ok {
		tag, ok = ExtensionTag(path)
		if !ok {
			return nil, fmt.Errorf("%w: could not identify %s", ErrFileType, path)
		}
		l.log.Debug("format identified by extension", zap.String("path", path), zap.String("format", string(tag)))
	} else {
		l.log.Debug("format identified by signature", zap.String("path", path), zap.String("format", string(tag)))
	}

	decode, ok := lookup(tag)
	if !ok {
		return nil, fmt.Errorf("%w: no decoder for %s", ErrFileType, tag)
	}

	img, err := decode(r, l.opts)
	if err != nil {
		return nil, fmt.Errorf("decoding %s as %s: %w", path, tag, err)
	}
	if err := img.Validate(); err != nil {
		return nil, fmt.Errorf("decoding %s as %s: %w", path, tag, err)
	}

	img.Path = path
	l.log.Debug("image loaded",
		zap.String("path", path),
		zap.Int("width", img.Width),
		zap.Int("height", img.Height),
		zap.Stringer("format", img.Format),
		zap.Int("levels", len(img.Levels)))
	return img, nil
}

// DetectFile reports the container tag of the file at path, using the
// extension table when no signature matches.
func DetectFile(path string) (Tag, error) {
	f, err := os.Open(path)
	if err != nil {
		return TagUnknown, fmt.Errorf("%w: opening %s: %v", ErrFileRead, path, err)
	}
	defer f.Close()

	return DetectReader(f, path)
}

// DetectReader reports the container tag of rs, falling back to the
// extension of path. The stream position is left where it was.
func DetectReader(rs io.ReadSeeker, path string) (Tag, error) {
	r, err := NewReader(rs, 0)
	if err != nil {
		return TagUnknown, err
	}
	if tag, ok := Detect(r); ok {
		return tag, nil
	}
	if tag, ok := ExtensionTag(path); ok {
		return tag, nil
	}
	return TagUnknown, fmt.Errorf("%w: could not identify %s", ErrFileType, path)
}
