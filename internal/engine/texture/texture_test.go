package texture

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

// mapFetcher serves fixed bytes per URL.
type mapFetcher map[string][]byte

func (m mapFetcher) Fetch(_ context.Context, u string) ([]byte, error) {
	data, ok := m[u]
	if !ok {
		return nil, fmt.Errorf("not found: %s", u)
	}
	return data, nil
}

func flush(t *testing.T, l *Loader) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestDecodePNG(t *testing.T) {
	data := pngBytes(t, solid(4, 2, color.RGBA{R: 255, A: 255}))

	cfg, err := DecodeConfig(data, "a.png")
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if cfg.Width != 4 || cfg.Height != 2 {
		t.Errorf("DecodeConfig = %dx%d, want 4x2", cfg.Width, cfg.Height)
	}

	img, err := Decode(data, "a.png")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if r, _, _, _ := img.At(0, 0).RGBA(); r>>8 != 255 {
		t.Errorf("pixel red = %d, want 255", r>>8)
	}
}

func TestDecodeUnsupported(t *testing.T) {
	_, err := Decode([]byte("definitely not an image"), "notes.txt")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDecodeTGA(t *testing.T) {
	// 2x1 uncompressed 24-bit, top-to-bottom: blue then green (BGR order)
	header := make([]byte, 18)
	header[2] = tgaTypeUncompressed
	header[12], header[14] = 2, 1
	header[16] = 24
	header[17] = 0x20
	data := append(header, 255, 0, 0, 0, 255, 0)

	img, err := Decode(data, "strip.TGA")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got := img.(*image.RGBA)
	if c := got.RGBAAt(0, 0); c != (color.RGBA{B: 255, A: 255}) {
		t.Errorf("pixel 0 = %v, want blue", c)
	}
	if c := got.RGBAAt(1, 0); c != (color.RGBA{G: 255, A: 255}) {
		t.Errorf("pixel 1 = %v, want green", c)
	}
}

func TestSquare(t *testing.T) {
	if err := Square(image.Config{Width: 64, Height: 64}); err != nil {
		t.Errorf("square image rejected: %v", err)
	}
	err := Square(image.Config{Width: 300, Height: 200})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if !strings.Contains(err.Error(), "300") || !strings.Contains(err.Error(), "200") {
		t.Errorf("error %q should mention both dimensions", err)
	}
}

func TestRefCounting(t *testing.T) {
	tex := New(solid(1, 1, color.RGBA{A: 255}), "t")
	tex.Retain()
	tex.Retain()

	tex.Release()
	if tex.Disposed() {
		t.Fatal("texture disposed while still referenced")
	}
	tex.Release()
	if !tex.Disposed() {
		t.Error("texture should be disposed after last release")
	}
	if tex.Image != nil {
		t.Error("disposed texture should drop its image")
	}
}

func TestPixelsFlipY(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 2))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	img.SetRGBA(0, 1, color.RGBA{B: 255, A: 255})

	tex := New(img, "t")
	tex.FlipY = true
	px, err := tex.Pixels()
	if err != nil {
		t.Fatalf("Pixels: %v", err)
	}
	if c := px.RGBAAt(0, 0); c.B != 255 {
		t.Errorf("flipped top pixel = %v, want blue", c)
	}

	tex.FlipY = false
	px, _ = tex.Pixels()
	if c := px.RGBAAt(0, 0); c.R != 255 {
		t.Errorf("unflipped top pixel = %v, want red", c)
	}
}

func TestDataURL(t *testing.T) {
	data := pngBytes(t, solid(2, 2, color.RGBA{G: 255, A: 255}))
	u := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)

	got, err := (&DefaultFetcher{}).Fetch(context.Background(), u)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("data URL payload mismatch")
	}
	if s := FromURL(u).String(); s != "data:image/png;base64,..." {
		t.Errorf("String() = %q, want truncated data URL", s)
	}
}

func TestLoaderDeliversOnFlush(t *testing.T) {
	f := mapFetcher{"/texture/a.png": pngBytes(t, solid(8, 8, color.RGBA{R: 10, A: 255}))}
	l := NewLoader(f, nil)
	defer l.Close()

	params := DefaultParams()
	params.FlipY = false
	params.ColorSpace = SRGB

	var got *Texture
	if err := l.Load(Request{
		Source: FromURL("/texture/a.png"),
		Params: params,
		Done: func(tex *Texture, err error) {
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			got = tex
		},
	}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Fatal("completion must not run before Flush")
	}

	flush(t, l)
	if got == nil {
		t.Fatal("completion did not run")
	}
	if got.Width() != 8 || got.FlipY || got.ColorSpace != SRGB {
		t.Errorf("texture = %dpx flipY=%v cs=%v, want 8px false SRGB", got.Width(), got.FlipY, got.ColorSpace)
	}
	if l.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", l.Pending())
	}
}

func TestLoaderReportsFailure(t *testing.T) {
	l := NewLoader(mapFetcher{}, nil)
	defer l.Close()

	var gotErr error
	_ = l.Load(Request{
		Source: FromURL("/missing.png"),
		Done:   func(_ *Texture, err error) { gotErr = err },
	})
	flush(t, l)

	if !errors.Is(gotErr, ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", gotErr)
	}
}

func TestLoaderConstraintBeforeDecode(t *testing.T) {
	f := mapFetcher{"/logo.png": pngBytes(t, solid(30, 20, color.RGBA{A: 255}))}
	l := NewLoader(f, nil)
	defer l.Close()

	var gotErr error
	_ = l.Load(Request{
		Source:     FromURL("/logo.png"),
		Constraint: Square,
		Done:       func(_ *Texture, err error) { gotErr = err },
	})
	flush(t, l)
	if !errors.Is(gotErr, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", gotErr)
	}

	// In-memory images are rejected synchronously
	err := l.Load(Request{Source: FromImage(solid(30, 20, color.RGBA{}), "mem"), Constraint: Square})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected synchronous ErrInvalidInput, got %v", err)
	}
	if l.Pending() != 0 {
		t.Errorf("rejected request was queued")
	}
}

func TestLoaderClose(t *testing.T) {
	l := NewLoader(mapFetcher{}, nil)
	called := false
	_ = l.Load(Request{
		Source: FromImage(solid(2, 2, color.RGBA{}), "mem"),
		Done:   func(*Texture, error) { called = true },
	})
	l.Close()
	l.Drain()

	if called {
		t.Error("completion ran after Close")
	}
	if err := l.Load(Request{Source: FromURL("x")}); !errors.Is(err, ErrClosed) {
		t.Errorf("Load after Close = %v, want ErrClosed", err)
	}
}
