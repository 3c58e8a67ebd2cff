package patch

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/cooler-configurator/internal/engine/scene"
	"github.com/Faultbox/cooler-configurator/internal/engine/texture"
	"github.com/Faultbox/cooler-configurator/pkg/math"
)

type mapFetcher map[string][]byte

func (m mapFetcher) Fetch(_ context.Context, u string) ([]byte, error) {
	if data, ok := m[u]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("not found: %s", u)
}

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func panel(name string) *scene.Node {
	mat := scene.NewMaterial("FridgeColor")
	mat.Color = scene.Color{R: 0.2, G: 0.4, B: 0.6}
	mat.Roughness = 0.9
	mat.Metalness = 0.3
	return scene.NewMesh(name, mat, true, scene.Bounds{Min: math.Splat(-1), Max: math.Splat(1)})
}

func newApplier(t *testing.T, f texture.Fetcher, opts Options) (*Applier, *texture.Loader) {
	t.Helper()
	l := texture.NewLoader(f, opts.Logger)
	a := New(l, opts)
	t.Cleanup(func() {
		l.Close()
		a.Close()
	})
	return a, l
}

func flush(t *testing.T, l *texture.Loader) {
	t.Helper()
	require.NoError(t, l.Flush(context.Background()))
}

var frontSlot = Slot{
	Name:       "front",
	Params:     texture.Params{ColorSpace: texture.SRGB, Repeat: math.Vec2{X: 1, Y: 1}},
	Brightness: 1,
}

func TestApplyTextureSetsMap(t *testing.T) {
	a, l := newApplier(t, nil, Options{})
	mesh := panel("FrontPanel")
	root := scene.NewGroup("Root", mesh)
	require.Equal(t, 1, a.Capture(root))
	before := mesh.Material

	img := solid(4, 4)
	require.NoError(t, a.ApplyTexture([]*scene.Node{mesh}, frontSlot, texture.FromImage(img, "a")))
	assert.Same(t, before, mesh.Material, "material must not change before decode completes")

	flush(t, l)
	mat := mesh.Material
	require.NotNil(t, mat.Map)
	assert.True(t, mat.Map.Image == image.Image(img))
	assert.Equal(t, scene.White, mat.Color)
	assert.Equal(t, texture.SRGB, mat.Map.ColorSpace)
	assert.Empty(t, mat.Name, "textured material drops its role name")
	assert.Equal(t, float32(0.9), mat.Roughness, "unrelated properties survive without PBR normalization")
	assert.Equal(t, 1, mat.Map.Refs())
}

func TestApplyTextureNormalizesPBR(t *testing.T) {
	a, l := newApplier(t, nil, Options{})
	mesh := panel("SidePannelRight")
	mesh.Material.Emissive = scene.White
	slot := frontSlot
	slot.NormalizePBR = true
	slot.Brightness = 1.06

	require.NoError(t, a.ApplyTexture([]*scene.Node{mesh}, slot, texture.FromImage(solid(2, 2), "b")))
	flush(t, l)

	mat := mesh.Material
	assert.Equal(t, float32(PanelRoughness), mat.Roughness)
	assert.Equal(t, float32(PanelMetalness), mat.Metalness)
	assert.Equal(t, scene.DoubleSide, mat.Side)
	assert.Equal(t, scene.Black, mat.Emissive)
	assert.Zero(t, mat.EmissiveIntensity)
	assert.Equal(t, float32(1), mat.EnvMapIntensity)
	assert.Equal(t, scene.White.Scale(1.06), mat.Color)
}

func TestResetRestoresOriginal(t *testing.T) {
	a, l := newApplier(t, nil, Options{})
	mesh := panel("FrontPanel")
	a.Capture(mesh)
	orig := *a.Original(mesh)

	require.NoError(t, a.ApplyTexture([]*scene.Node{mesh}, frontSlot, texture.FromImage(solid(2, 2), "a")))
	flush(t, l)
	applied := mesh.Material.Map
	require.NotNil(t, applied)

	require.NoError(t, a.ApplyTexture([]*scene.Node{mesh}, frontSlot, nil))
	mat := mesh.Material
	assert.Equal(t, orig.Map, mat.Map)
	assert.Equal(t, orig.Color, mat.Color)
	assert.Equal(t, orig.Roughness, mat.Roughness)
	assert.Equal(t, orig.Metalness, mat.Metalness)
	assert.Equal(t, orig.Name, mat.Name)
	assert.True(t, applied.Disposed(), "replaced texture is disposed once unreferenced")
}

func TestLastRequestWins(t *testing.T) {
	a, l := newApplier(t, nil, Options{})
	mesh := panel("FrontPanel")
	first, second := solid(2, 2), solid(3, 3)

	require.NoError(t, a.ApplyTexture([]*scene.Node{mesh}, frontSlot, texture.FromImage(first, "first")))
	require.NoError(t, a.ApplyTexture([]*scene.Node{mesh}, frontSlot, texture.FromImage(second, "second")))
	flush(t, l)

	assert.True(t, mesh.Material.Map.Image == image.Image(second))
}

func TestResetSupersedesPendingDecode(t *testing.T) {
	a, l := newApplier(t, nil, Options{})
	mesh := panel("FrontPanel")
	a.Capture(mesh)

	require.NoError(t, a.ApplyTexture([]*scene.Node{mesh}, frontSlot, texture.FromImage(solid(2, 2), "a")))
	a.Reset([]*scene.Node{mesh}, frontSlot.Name)
	flush(t, l)

	assert.Nil(t, mesh.Material.Map)
}

func TestSupersededFailureIsDropped(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	var asyncErr error
	var applied []string
	f := mapFetcher{"/logo.png": pngBytes(t, solid(40, 10))}
	a, l := newApplier(t, f, Options{
		Logger:  zap.New(core),
		OnError: func(_ string, err error) { asyncErr = err },
		OnApplied: func(_ string, src *texture.Source, _ []*scene.Node) {
			applied = append(applied, src.String())
		},
	})
	logo := scene.NewMesh("Logo", scene.NewMaterial("Logo"), true, scene.Bounds{})
	slot := Slot{Name: "logo", Constraint: texture.Square}

	require.NoError(t, a.ApplyTexture([]*scene.Node{logo}, slot, texture.FromURL("/logo.png")))
	require.NoError(t, a.ApplyTexture([]*scene.Node{logo}, slot, texture.FromURL("/missing.png")))
	require.NoError(t, a.ApplyTexture([]*scene.Node{logo}, slot, texture.FromImage(solid(4, 4), "square")))
	flush(t, l)

	assert.NoError(t, asyncErr)
	assert.Zero(t, logs.Len())
	assert.Equal(t, []string{"square"}, applied)
	require.NotNil(t, logo.Material.Map)
	assert.Equal(t, 4, logo.Material.Map.Width())
}

func TestSharedTextureAcrossMeshes(t *testing.T) {
	a, l := newApplier(t, nil, Options{})
	strips := []*scene.Node{panel("InsideStrip1"), panel("InsideStrip2")}

	require.NoError(t, a.ApplyTexture(strips, Slot{Name: "strips"}, texture.FromImage(solid(2, 2), "s")))
	flush(t, l)

	require.NotNil(t, strips[0].Material.Map)
	assert.Same(t, strips[0].Material.Map, strips[1].Material.Map)
	assert.Equal(t, 2, strips[0].Material.Map.Refs())
}

func TestDecodeFailureLeavesMaterial(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	var asyncErr error
	a, l := newApplier(t, mapFetcher{}, Options{
		Logger:  zap.New(core),
		OnError: func(_ string, err error) { asyncErr = err },
	})
	mesh := panel("FrontPanel")
	before := mesh.Material

	require.NoError(t, a.ApplyTexture([]*scene.Node{mesh}, frontSlot, texture.FromURL("/texture/missing.jpg")))
	flush(t, l)

	assert.Same(t, before, mesh.Material)
	assert.NoError(t, asyncErr, "decode failures are logged, not reported")
	assert.Equal(t, 1, logs.FilterMessage("texture not applied").Len())
}

func TestNonSquareLogoRejected(t *testing.T) {
	logo := scene.NewMesh("Logo", scene.NewMaterial("Logo"), true, scene.Bounds{})
	slot := Slot{Name: "logo", Constraint: texture.Square}

	t.Run("in memory", func(t *testing.T) {
		a, l := newApplier(t, nil, Options{})
		before := logo.Material

		err := a.ApplyTexture([]*scene.Node{logo}, slot, texture.FromImage(solid(30, 20), "logo"))
		require.ErrorIs(t, err, texture.ErrInvalidInput)
		assert.Contains(t, err.Error(), "30x20")
		assert.Zero(t, l.Pending())
		assert.Same(t, before, logo.Material)
	})

	t.Run("from url", func(t *testing.T) {
		var asyncErr error
		f := mapFetcher{"/logo.png": pngBytes(t, solid(40, 10))}
		a, l := newApplier(t, f, Options{OnError: func(_ string, err error) { asyncErr = err }})
		before := logo.Material

		require.NoError(t, a.ApplyTexture([]*scene.Node{logo}, slot, texture.FromURL("/logo.png")))
		flush(t, l)
		require.ErrorIs(t, asyncErr, texture.ErrInvalidInput)
		assert.Contains(t, asyncErr.Error(), "40x10")
		assert.Same(t, before, logo.Material)
	})
}

func TestApplyLED(t *testing.T) {
	lit := panel("InsideStrip3")
	tex := texture.New(solid(2, 2), "strip")
	lit.Material.SetMap(tex)
	bare := panel("InsideStrip4")
	strips := []*scene.Node{lit, bare}

	ApplyLED(strips, true, 1.5)
	assert.Same(t, tex, lit.Material.EmissiveMap)
	assert.Equal(t, float32(1.5), lit.Material.EmissiveIntensity)
	assert.Equal(t, scene.White, lit.Material.Emissive)
	assert.Nil(t, bare.Material.EmissiveMap)
	assert.Zero(t, bare.Material.EmissiveIntensity)
	assert.Equal(t, 2, tex.Refs())

	ApplyLED(strips, false, 1.5)
	assert.Nil(t, lit.Material.EmissiveMap)
	assert.Zero(t, lit.Material.EmissiveIntensity)
	assert.Equal(t, scene.Black, lit.Material.Emissive)
	assert.Equal(t, 1, tex.Refs())
}

func TestApplyGlowAndColorIdempotent(t *testing.T) {
	glow := scene.NewMaterial("LED_glow")
	body := scene.NewMaterial("FridgeColor")
	c := scene.MustParseColor("#fff700")

	ApplyGlow([]*scene.Material{glow}, c, 15)
	first := *glow
	ApplyGlow([]*scene.Material{glow}, c, 15)
	assert.Equal(t, first.Color, glow.Color)
	assert.Equal(t, first.Emissive, glow.Emissive)
	assert.Equal(t, c, glow.Emissive)
	assert.Equal(t, float32(15), glow.EmissiveIntensity)

	ApplyColor([]*scene.Material{body}, c)
	ApplyColor([]*scene.Material{body}, c)
	assert.Equal(t, c, body.Color)
}

func TestCloseDisposesOriginalsAndDropsCompletions(t *testing.T) {
	l := texture.NewLoader(nil, nil)
	defer l.Close()
	a := New(l, Options{})
	mesh := panel("FrontPanel")
	tex := texture.New(solid(2, 2), "orig")
	mesh.Material.SetMap(tex)
	a.Capture(mesh)
	assert.Equal(t, 2, tex.Refs())

	require.NoError(t, a.ApplyTexture([]*scene.Node{mesh}, frontSlot, texture.FromImage(solid(2, 2), "late")))
	a.Close()
	flush(t, l)

	assert.Same(t, tex, mesh.Material.Map, "completions after Close are discarded")
	assert.Equal(t, 1, tex.Refs())
	assert.NoError(t, a.ApplyTexture([]*scene.Node{mesh}, frontSlot, texture.FromImage(solid(2, 2), "x")))
	assert.Zero(t, l.Pending())
}
