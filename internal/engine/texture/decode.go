package texture

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// sniff classifies data as "tga" or a registered image format.
// TGA has no magic number, so it is recognized by name.
func sniff(data []byte, name string) (string, error) {
	if strings.HasSuffix(strings.ToLower(name), ".tga") {
		return "tga", nil
	}
	if filetype.IsImage(data) {
		kind, err := filetype.Match(data)
		if err == nil && kind != filetype.Unknown {
			return kind.Extension, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

// DecodeConfig reads image dimensions from the header only.
func DecodeConfig(data []byte, name string) (image.Config, error) {
	kind, err := sniff(data, name)
	if err != nil {
		return image.Config{}, err
	}
	if kind == "tga" {
		return DecodeTGAConfig(data)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, fmt.Errorf("%w: %s header: %v", ErrDecode, kind, err)
	}
	return cfg, nil
}

// Decode decodes a jpeg, png, gif, webp, bmp, tiff or tga image.
func Decode(data []byte, name string) (image.Image, error) {
	kind, err := sniff(data, name)
	if err != nil {
		return nil, err
	}
	if kind == "tga" {
		img, err := DecodeTGA(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return img, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, kind, err)
	}
	return img, nil
}
