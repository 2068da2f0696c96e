package texture

import "golang.org/x/image/tiff"

var tiffDecoder = stdDecoder{name: "TIFF", decode: tiff.Decode, decodeConfig: tiff.DecodeConfig}

func decodeTIFF(r *Reader, opts Options) (*Image, error) {
	return decodeStd(r, opts, tiffDecoder, false)
}
