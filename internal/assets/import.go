package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/cooler-configurator/internal/engine/scene"
	"github.com/Faultbox/cooler-configurator/internal/engine/texture"
	"github.com/Faultbox/cooler-configurator/pkg/math"
)

const extLights = "KHR_lights_punctual"

// Importer converts glTF documents into scene graphs.
type Importer struct {
	// Fetcher loads images referenced by URI, relative to the model.
	Fetcher texture.Fetcher
	Logger  *zap.Logger
}

type importState struct {
	ctx      context.Context
	doc      *gltf.Document
	log      *zap.Logger
	fetcher  texture.Fetcher
	textures map[int]*texture.Texture
	lights   []lightDef
}

type lightDef struct {
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Color     []float32 `json:"color"`
	Intensity *float32  `json:"intensity"`
}

// Import builds the default scene of doc. Every mesh primitive gets its
// own material; images are decoded once and shared between materials.
func (im *Importer) Import(ctx context.Context, doc *gltf.Document) (*scene.Node, error) {
	log := im.Logger
	if log == nil {
		log = zap.NewNop()
	}
	st := &importState{
		ctx:      ctx,
		doc:      doc,
		log:      log,
		fetcher:  im.Fetcher,
		textures: make(map[int]*texture.Texture),
	}
	st.lights = st.readLights()

	root := scene.NewGroup("Scene")
	for _, idx := range st.rootNodes() {
		n, err := st.node(idx, 0)
		if err != nil {
			root.Dispose()
			return nil, err
		}
		root.Add(n)
	}
	// Images no material ended up using
	for _, tex := range st.textures {
		if tex.Refs() == 0 {
			tex.Dispose()
		}
	}
	return root, nil
}

func (st *importState) rootNodes() []int {
	doc := st.doc
	if len(doc.Scenes) > 0 {
		si := 0
		if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
			si = int(*doc.Scene)
		}
		out := make([]int, 0, len(doc.Scenes[si].Nodes))
		for _, n := range doc.Scenes[si].Nodes {
			out = append(out, int(n))
		}
		return out
	}

	// No scene: every node without a parent is a root
	child := make(map[int]bool)
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			child[int(c)] = true
		}
	}
	var out []int
	for i := range doc.Nodes {
		if !child[i] {
			out = append(out, i)
		}
	}
	return out
}

func (st *importState) node(idx, depth int) (*scene.Node, error) {
	doc := st.doc
	if idx < 0 || idx >= len(doc.Nodes) {
		return nil, fmt.Errorf("node index %d out of range", idx)
	}
	if depth > len(doc.Nodes) {
		return nil, fmt.Errorf("node %d: cyclic hierarchy", idx)
	}
	src := doc.Nodes[idx]
	name := src.Name
	if name == "" {
		name = "node_" + strconv.Itoa(idx)
	}

	var n *scene.Node
	li := st.lightIndex(src.Extensions)
	switch {
	case src.Mesh != nil:
		var err error
		if n, err = st.mesh(name, int(*src.Mesh)); err != nil {
			return nil, fmt.Errorf("node %s: %w", name, err)
		}
	case li >= 0:
		n = st.light(name, li)
	default:
		n = scene.NewGroup(name)
	}
	n.Transform = nodeTransform(src)

	for _, c := range src.Children {
		child, err := st.node(int(c), depth+1)
		if err != nil {
			return nil, err
		}
		n.Add(child)
	}
	return n, nil
}

func nodeTransform(src *gltf.Node) scene.Transform {
	t := scene.IdentityTransform()
	var zero [16]float32
	if m := src.Matrix; m != zero && math.Mat4(m) != math.Identity() {
		t.Position, t.Rotation, t.Scale = math.Mat4(m).Decompose()
		return t
	}
	tr, r, s := src.Translation, src.Rotation, src.Scale
	t.Position = math.Vec3{X: float32(tr[0]), Y: float32(tr[1]), Z: float32(tr[2])}
	if q := (math.Quat{X: float32(r[0]), Y: float32(r[1]), Z: float32(r[2]), W: float32(r[3])}); q != (math.Quat{}) {
		t.Rotation = q.Normalize()
	}
	if sv := (math.Vec3{X: float32(s[0]), Y: float32(s[1]), Z: float32(s[2])}); sv != (math.Vec3{}) {
		t.Scale = sv
	}
	return t
}

// mesh converts a glTF mesh. A single primitive becomes one mesh node; more
// become a group of mesh children named name_0, name_1 and so on.
func (st *importState) mesh(name string, idx int) (*scene.Node, error) {
	doc := st.doc
	if idx < 0 || idx >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", idx)
	}
	prims := doc.Meshes[idx].Primitives
	if len(prims) == 1 {
		return st.primitive(name, prims[0])
	}
	group := scene.NewGroup(name)
	for i, p := range prims {
		m, err := st.primitive(name+"_"+strconv.Itoa(i), p)
		if err != nil {
			group.Dispose()
			return nil, err
		}
		group.Add(m)
	}
	return group, nil
}

func (st *importState) primitive(name string, p *gltf.Primitive) (*scene.Node, error) {
	var bounds scene.Bounds
	if pos, ok := p.Attributes["POSITION"]; ok {
		if int(pos) >= len(st.doc.Accessors) {
			return nil, fmt.Errorf("position accessor %d out of range", pos)
		}
		acc := st.doc.Accessors[int(pos)]
		if len(acc.Min) == 3 && len(acc.Max) == 3 {
			bounds.Min = math.Vec3{X: float32(acc.Min[0]), Y: float32(acc.Min[1]), Z: float32(acc.Min[2])}
			bounds.Max = math.Vec3{X: float32(acc.Max[0]), Y: float32(acc.Max[1]), Z: float32(acc.Max[2])}
		}
	}
	_, hasUV := p.Attributes["TEXCOORD_0"]

	mat := scene.NewMaterial("")
	if p.Material != nil {
		var err error
		if mat, err = st.material(int(*p.Material)); err != nil {
			return nil, err
		}
	}
	return scene.NewMesh(name, mat, hasUV, bounds), nil
}

func (st *importState) material(idx int) (*scene.Material, error) {
	if idx < 0 || idx >= len(st.doc.Materials) {
		return nil, fmt.Errorf("material index %d out of range", idx)
	}
	src := st.doc.Materials[idx]
	mat := scene.NewMaterial(src.Name)
	e := src.EmissiveFactor
	mat.Emissive = scene.Color{R: float32(e[0]), G: float32(e[1]), B: float32(e[2])}
	if src.DoubleSided {
		mat.Side = scene.DoubleSide
	}
	mat.Metalness = 1

	pbr := src.PBRMetallicRoughness
	if pbr == nil {
		return mat, nil
	}
	if c := pbr.BaseColorFactor; c != nil {
		mat.Color = scene.Color{R: float32(c[0]), G: float32(c[1]), B: float32(c[2])}
	}
	if pbr.MetallicFactor != nil {
		mat.Metalness = float32(*pbr.MetallicFactor)
	}
	if pbr.RoughnessFactor != nil {
		mat.Roughness = float32(*pbr.RoughnessFactor)
	}
	if info := pbr.BaseColorTexture; info != nil {
		tex, err := st.texture(int(info.Index))
		if err != nil {
			// A broken image should not prevent the model from loading
			st.log.Warn("base color texture skipped", zap.String("material", src.Name), zap.Error(err))
		} else {
			mat.SetMap(tex)
		}
	}
	return mat, nil
}

func (st *importState) texture(idx int) (*texture.Texture, error) {
	doc := st.doc
	if idx < 0 || idx >= len(doc.Textures) || doc.Textures[idx].Source == nil {
		return nil, fmt.Errorf("texture %d has no image", idx)
	}
	imgIdx := int(*doc.Textures[idx].Source)
	if tex, ok := st.textures[imgIdx]; ok {
		return tex, nil
	}
	if imgIdx >= len(doc.Images) {
		return nil, fmt.Errorf("image index %d out of range", imgIdx)
	}

	data, label, err := st.imageData(doc.Images[imgIdx])
	if err != nil {
		return nil, err
	}
	img, err := texture.Decode(data, label)
	if err != nil {
		return nil, err
	}
	tex := texture.New(img, label)
	tex.Name = doc.Images[imgIdx].Name
	// glTF UVs have their origin at the top left
	tex.FlipY = false
	tex.ColorSpace = texture.SRGB
	st.textures[imgIdx] = tex
	return tex, nil
}

func (st *importState) imageData(img *gltf.Image) ([]byte, string, error) {
	if img.BufferView != nil {
		bv := int(*img.BufferView)
		if bv >= len(st.doc.BufferViews) {
			return nil, "", fmt.Errorf("buffer view %d out of range", bv)
		}
		view := st.doc.BufferViews[bv]
		buf := st.doc.Buffers[int(view.Buffer)]
		start, end := int(view.ByteOffset), int(view.ByteOffset)+int(view.ByteLength)
		if end > len(buf.Data) {
			return nil, "", fmt.Errorf("buffer view %d exceeds buffer", bv)
		}
		return buf.Data[start:end], img.Name, nil
	}
	if img.URI == "" {
		return nil, "", fmt.Errorf("image %q has no data", img.Name)
	}
	if st.fetcher == nil {
		return nil, "", fmt.Errorf("image %q: no fetcher for external images", img.Name)
	}
	data, err := st.fetcher.Fetch(st.ctx, img.URI)
	if err != nil {
		return nil, "", err
	}
	return data, img.URI, nil
}

func (st *importState) readLights() []lightDef {
	raw, ok := rawExtension(st.doc.Extensions, extLights)
	if !ok {
		return nil
	}
	var ext struct {
		Lights []lightDef `json:"lights"`
	}
	if err := json.Unmarshal(raw, &ext); err != nil {
		st.log.Warn("ignoring malformed lights extension", zap.Error(err))
		return nil
	}
	return ext.Lights
}

func (st *importState) lightIndex(ext gltf.Extensions) int {
	raw, ok := rawExtension(ext, extLights)
	if !ok {
		return -1
	}
	var ref struct {
		Light *int `json:"light"`
	}
	if err := json.Unmarshal(raw, &ref); err != nil || ref.Light == nil || *ref.Light >= len(st.lights) {
		return -1
	}
	return *ref.Light
}

func (st *importState) light(name string, idx int) *scene.Node {
	def := st.lights[idx]
	l := scene.Light{Color: scene.White, Intensity: 1}
	if len(def.Color) == 3 {
		l.Color = scene.Color{R: def.Color[0], G: def.Color[1], B: def.Color[2]}
	}
	if def.Intensity != nil {
		l.Intensity = *def.Intensity
	}
	return scene.NewLight(name, l)
}

// rawExtension returns the JSON of an extension the decoder left
// uninterpreted.
func rawExtension(ext gltf.Extensions, name string) (json.RawMessage, bool) {
	v, ok := ext[name]
	if !ok {
		return nil, false
	}
	switch raw := v.(type) {
	case json.RawMessage:
		return raw, true
	case []byte:
		return raw, true
	default:
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, false
		}
		return data, true
	}
}
