package texture

import "golang.org/x/image/bmp"

var bmpDecoder = stdDecoder{name: "BMP", decode: bmp.Decode, decodeConfig: bmp.DecodeConfig}

// decodeBMP decodes a Windows bitmap. Magenta keying applies here only,
// since BMP has no alpha channel of its own in the files this is used for.
func decodeBMP(r *Reader, opts Options) (*Image, error) {
	return decodeStd(r, opts, bmpDecoder, opts.MagentaKey)
}
