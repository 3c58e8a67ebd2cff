package texture

import (
	"fmt"
	"image"
	"image/color"
)

// TGA image type constants.
const (
	tgaTypeUncompressed = 2  // Uncompressed true-color
	tgaTypeRLE          = 10 // RLE compressed true-color
)

type tgaHeader struct {
	width, height int
	bytesPerPixel int
	imageType     byte
	topToBottom   bool
	dataOffset    int
}

func parseTGAHeader(data []byte) (tgaHeader, error) {
	if len(data) < 18 {
		return tgaHeader{}, fmt.Errorf("TGA data too short")
	}

	h := tgaHeader{
		imageType:   data[2],
		width:       int(data[12]) | int(data[13])<<8,
		height:      int(data[14]) | int(data[15])<<8,
		topToBottom: data[17]&0x20 != 0,
		dataOffset:  18 + int(data[0]),
	}
	bpp := int(data[16])

	if data[1] != 0 {
		return tgaHeader{}, fmt.Errorf("color-mapped TGA not supported")
	}
	if h.imageType != tgaTypeUncompressed && h.imageType != tgaTypeRLE {
		return tgaHeader{}, fmt.Errorf("unsupported TGA type %d", h.imageType)
	}
	if bpp != 24 && bpp != 32 {
		return tgaHeader{}, fmt.Errorf("unsupported TGA bit depth %d", bpp)
	}
	if h.dataOffset > len(data) {
		return tgaHeader{}, fmt.Errorf("TGA data truncated")
	}
	h.bytesPerPixel = bpp / 8
	return h, nil
}

// DecodeTGAConfig returns the TGA dimensions without decoding pixels.
func DecodeTGAConfig(data []byte) (image.Config, error) {
	h, err := parseTGAHeader(data)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.RGBAModel, Width: h.width, Height: h.height}, nil
}

// DecodeTGA decodes uncompressed (type 2) and RLE (type 10) true-color TGA
// files. Neither image.Decode nor golang.org/x/image registers TGA.
func DecodeTGA(data []byte) (image.Image, error) {
	h, err := parseTGAHeader(data)
	if err != nil {
		return nil, err
	}
	pix := data[h.dataOffset:]
	img := image.NewRGBA(image.Rect(0, 0, h.width, h.height))

	put := func(idx int, c color.RGBA) {
		x, y := idx%h.width, idx/h.width
		if !h.topToBottom {
			y = h.height - 1 - y
		}
		img.SetRGBA(x, y, c)
	}
	read := func(off int) color.RGBA {
		c := color.RGBA{B: pix[off], G: pix[off+1], R: pix[off+2], A: 255}
		if h.bytesPerPixel == 4 {
			c.A = pix[off+3]
		}
		return c
	}

	count := h.width * h.height
	if h.imageType == tgaTypeUncompressed {
		if len(pix) < count*h.bytesPerPixel {
			return nil, fmt.Errorf("TGA pixel data truncated")
		}
		for i := 0; i < count; i++ {
			put(i, read(i*h.bytesPerPixel))
		}
		return img, nil
	}

	// RLE: high bit set repeats one pixel, otherwise a raw run follows
	idx, off := 0, 0
	for idx < count && off < len(pix) {
		packet := pix[off]
		off++
		run := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			if off+h.bytesPerPixel > len(pix) {
				break
			}
			c := read(off)
			off += h.bytesPerPixel
			for i := 0; i < run && idx < count; i++ {
				put(idx, c)
				idx++
			}
			continue
		}
		for i := 0; i < run && idx < count; i++ {
			if off+h.bytesPerPixel > len(pix) {
				break
			}
			put(idx, read(off))
			off += h.bytesPerPixel
			idx++
		}
	}
	return img, nil
}
