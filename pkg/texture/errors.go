package texture

import "errors"

// Loader and decoder errors. Decoders wrap these with the section that was
// being read, so callers should test with errors.Is.
var (
	ErrFilePath              = errors.New("invalid file path")
	ErrFileRead              = errors.New("file read error")
	ErrFileType              = errors.New("unsupported or invalid file type")
	ErrImageFormatIndex      = errors.New("palette index out of range")
	ErrMemoryAlloc           = errors.New("memory allocation failed")
	ErrUnsupportedConversion = errors.New("unsupported pixel format conversion")
	ErrInvalidLevel          = errors.New("invalid image level")
)
