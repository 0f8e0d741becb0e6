package pdfocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/png"
	"strings"

	"github.com/bmharper/cimg/v2"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes the raw bytes of an embedded image.
// fileType is the extension reported by pdfcpu; when it is empty or unknown
// the format is sniffed from the data.
func DecodeImage(raw []byte, fileType string) (image.Image, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty image data")
	}
	switch strings.ToLower(fileType) {
	case "jpx", "jp2":
		return nil, fmt.Errorf("unsupported image format %q", fileType)
	case "jpg", "jpeg":
		return decodeJPEG(raw)
	}
	if bytes.HasPrefix(raw, jpegMagic) {
		return decodeJPEG(raw)
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		if fileType != "" {
			return nil, fmt.Errorf("decode %s: %w", fileType, err)
		}
		return nil, err
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("decode %s: empty image", format)
	}
	return img, nil
}

var jpegMagic = []byte{0xFF, 0xD8, 0xFF}

func decodeJPEG(raw []byte) (image.Image, error) {
	img, err := cimg.Decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	return img.ToImage()
}
