// Package texture provides texture resources, image decoding and the
// asynchronous texture loader used when users upload branding artwork.
package texture

import (
	"errors"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/transform"
	"github.com/google/uuid"

	"github.com/Faultbox/cooler-configurator/pkg/math"
)

var (
	// ErrInvalidInput marks uploads rejected before decoding, such as a
	// non-square logo.
	ErrInvalidInput = errors.New("invalid texture input")
	// ErrUnsupportedFormat is returned for data that is not a known image.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrDecode wraps fetch and decode failures.
	ErrDecode = errors.New("texture decode failed")
	// ErrClosed is returned by a loader after Close.
	ErrClosed = errors.New("texture loader closed")
)

// ColorSpace selects how sampled texels are interpreted.
type ColorSpace int

const (
	Linear ColorSpace = iota
	SRGB
)

// Wrap is the texture addressing mode outside [0,1].
type Wrap int

const (
	Repeat Wrap = iota
	Clamp
)

// Params holds sampling and UV transform settings for a texture.
type Params struct {
	ColorSpace ColorSpace
	FlipY      bool
	WrapS      Wrap
	WrapT      Wrap
	Offset     math.Vec2
	Center     math.Vec2
	Repeat     math.Vec2
	Rotation   float32 // radians, around Center
	Anisotropy int
}

// DefaultParams matches what a freshly created renderer texture uses.
func DefaultParams() Params {
	return Params{
		ColorSpace: Linear,
		FlipY:      true,
		WrapS:      Clamp,
		WrapT:      Clamp,
		Repeat:     math.Vec2{X: 1, Y: 1},
		Anisotropy: 1,
	}
}

// Texture wraps a decoded image plus its sampling parameters.
//
// Textures are reference counted by the materials that use them; the last
// Release disposes the texture. A texture nothing ever retained must be
// disposed explicitly.
type Texture struct {
	ID     string
	Name   string
	Source string
	Image  image.Image
	Params

	refs     int
	disposed bool
}

// New creates a texture for img with default parameters.
func New(img image.Image, source string) *Texture {
	return &Texture{
		ID:     uuid.NewString(),
		Source: source,
		Image:  img,
		Params: DefaultParams(),
	}
}

// Width returns the image width in pixels, or 0 when disposed.
func (t *Texture) Width() int {
	if t == nil || t.Image == nil {
		return 0
	}
	return t.Image.Bounds().Dx()
}

// Height returns the image height in pixels, or 0 when disposed.
func (t *Texture) Height() int {
	if t == nil || t.Image == nil {
		return 0
	}
	return t.Image.Bounds().Dy()
}

// Retain records another user of the texture. Nil-safe.
func (t *Texture) Retain() {
	if t == nil {
		return
	}
	t.refs++
}

// Release drops one user and disposes the texture when none remain.
func (t *Texture) Release() {
	if t == nil {
		return
	}
	if t.refs > 0 {
		t.refs--
	}
	if t.refs == 0 {
		t.Dispose()
	}
}

// Refs returns the number of live users.
func (t *Texture) Refs() int {
	if t == nil {
		return 0
	}
	return t.refs
}

// Dispose frees the decoded image. Safe to call repeatedly.
func (t *Texture) Dispose() {
	if t == nil || t.disposed {
		return
	}
	t.disposed = true
	t.refs = 0
	t.Image = nil
}

// Disposed reports whether Dispose has run.
func (t *Texture) Disposed() bool {
	return t != nil && t.disposed
}

// Pixels returns upload-ready RGBA pixels with FlipY applied.
func (t *Texture) Pixels() (*image.RGBA, error) {
	if t == nil || t.Image == nil {
		return nil, fmt.Errorf("texture %s has no image", t.describe())
	}
	if t.FlipY {
		return transform.FlipV(t.Image), nil
	}
	return clone.AsRGBA(t.Image), nil
}

func (t *Texture) describe() string {
	if t == nil {
		return "<nil>"
	}
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// Constraint validates image dimensions before a full decode.
type Constraint func(cfg image.Config) error

// Square rejects images whose width and height differ.
func Square(cfg image.Config) error {
	if cfg.Width != cfg.Height {
		return fmt.Errorf("%w: image must be square, got %dx%d", ErrInvalidInput, cfg.Width, cfg.Height)
	}
	return nil
}
