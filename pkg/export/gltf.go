package export

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	gomath "math"

	"golang.org/x/image/draw"

	"github.com/Faultbox/relief-forge/pkg/material"
	"github.com/Faultbox/relief-forge/pkg/relief"
)

// GLTF writes glTF 2.0, Y up, one primitive per material group. Binary
// produces a single .glb; otherwise the buffer is embedded in the JSON as
// a base64 data URI. Textures are embedded as PNG.
type GLTF struct {
	Binary bool
}

func (g GLTF) Name() string {
	if g.Binary {
		return "glb"
	}
	return "gltf"
}

func (g GLTF) Extension() string { return g.Name() }

func (g GLTF) MediaType() string {
	if g.Binary {
		return "model/gltf-binary"
	}
	return "model/gltf+json"
}

func (g GLTF) Export(w io.Writer, m *relief.Mesh, opts Options) error {
	pm, err := prepare(m, opts, prepareOptions{yUp: true, keepGroups: true})
	if err != nil {
		return wrap(g.Name(), err)
	}

	doc, bin, err := buildGLTF(pm, opts)
	if err != nil {
		return wrap(g.Name(), err)
	}

	if g.Binary {
		return wrap(g.Name(), writeGLB(w, doc, bin))
	}

	doc.Buffers[0].URI = "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(bin)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return wrap(g.Name(), err)
	}
	_, err = w.Write(append(data, '\n'))
	return wrap(g.Name(), err)
}

// binBuilder lays out buffer views in a single 4-byte aligned buffer.
type binBuilder struct {
	buf   bytes.Buffer
	views []gltfBufferView
}

func (b *binBuilder) add(data []byte, target *int) int {
	for b.buf.Len()%4 != 0 {
		b.buf.WriteByte(0)
	}
	b.views = append(b.views, gltfBufferView{
		ByteOffset: b.buf.Len(),
		ByteLength: len(data),
		Target:     target,
	})
	b.buf.Write(data)
	return len(b.views) - 1
}

func (b *binBuilder) finish() []byte {
	for b.buf.Len()%4 != 0 {
		b.buf.WriteByte(0)
	}
	return b.buf.Bytes()
}

func float32Bytes(vals []float32) []byte {
	out := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], gomath.Float32bits(v))
	}
	return out
}

func uint32Bytes(vals []uint32) []byte {
	out := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

func buildGLTF(m *relief.Mesh, opts Options) (*gltfDocument, []byte, error) {
	doc := &gltfDocument{
		Asset:  gltfAsset{Version: "2.0", Generator: generator},
		Scene:  ptr(0),
		Scenes: []gltfScene{{Nodes: []int{0}}},
		Nodes:  []gltfNode{{Name: opts.objectName(), Mesh: ptr(0)}},
	}
	var bin binBuilder

	accessor := func(view int, a gltfAccessor) int {
		a.BufferView = ptr(view)
		doc.Accessors = append(doc.Accessors, a)
		return len(doc.Accessors) - 1
	}

	n := m.VertexCount()
	bounds := m.Bounds()
	attrs := map[string]int{
		"POSITION": accessor(bin.add(float32Bytes(m.Positions), ptr(gltfTargetArrayBuffer)), gltfAccessor{
			ComponentType: gltfComponentFloat, Count: n, Type: gltfTypeVec3,
			Min: bounds.Min[:], Max: bounds.Max[:],
		}),
		"NORMAL": accessor(bin.add(float32Bytes(m.Normals), ptr(gltfTargetArrayBuffer)), gltfAccessor{
			ComponentType: gltfComponentFloat, Count: n, Type: gltfTypeVec3,
		}),
	}
	hasUV := m.UVs != nil
	if hasUV {
		attrs["TEXCOORD_0"] = accessor(bin.add(float32Bytes(m.UVs), ptr(gltfTargetArrayBuffer)), gltfAccessor{
			ComponentType: gltfComponentFloat, Count: n, Type: gltfTypeVec2,
		})
	}

	indexView := bin.add(uint32Bytes(m.Indices), ptr(gltfTargetElementArrayBuffer))

	groups := m.Groups
	if len(groups) == 0 {
		groups = []relief.Group{{Start: 0, Count: len(m.Indices), Slot: relief.SlotTop}}
	}

	mats := opts.materials()
	var prims []gltfPrimitive
	for _, g := range groups {
		if g.Count == 0 {
			continue
		}
		if g.Slot < 0 || g.Slot >= len(mats) {
			return nil, nil, fmt.Errorf("group at %d uses unknown material slot %d", g.Start, g.Slot)
		}
		idx := accessor(indexView, gltfAccessor{
			ByteOffset: g.Start * 4, ComponentType: gltfComponentUnsignedInt, Count: g.Count, Type: gltfTypeScalar,
		})
		prims = append(prims, gltfPrimitive{
			Attributes: attrs,
			Indices:    ptr(idx),
			Material:   ptr(g.Slot),
			Mode:       ptr(gltfModeTriangles),
		})
	}
	doc.Meshes = []gltfMesh{{Name: opts.objectName(), Primitives: prims}}

	for i, mat := range mats {
		gm, err := gltfMaterialFor(doc, &bin, mat, i, hasUV)
		if err != nil {
			return nil, nil, err
		}
		doc.Materials = append(doc.Materials, gm)
	}

	doc.BufferViews = bin.views
	data := bin.finish()
	doc.Buffers = []gltfBuffer{{ByteLength: len(data)}}
	return doc, data, nil
}

func gltfMaterialFor(doc *gltfDocument, bin *binBuilder, mat material.Material, slot int, hasUV bool) (gltfMaterial, error) {
	c := mat.BaseColor().Linear()
	surf := mat.Finish()
	pbr := &gltfPbrMetallicRoughness{
		BaseColorFactor: &[4]float32{c[0], c[1], c[2], 1},
		MetallicFactor:  ptr(surf.Metalness),
		RoughnessFactor: ptr(surf.Roughness),
	}

	if img, ok := material.Texture(mat); ok && hasUV {
		// UV v runs up from the bottom of the image; glTF samples from the top.
		data, err := encodePNG(flipVertical(img))
		if err != nil {
			return gltfMaterial{}, fmt.Errorf("encode texture: %w", err)
		}
		doc.Images = append(doc.Images, gltfImage{
			MimeType:   "image/png",
			BufferView: ptr(bin.add(data, nil)),
		})
		doc.Samplers = append(doc.Samplers, gltfSampler{
			MagFilter: ptr(gltfFilterLinear),
			MinFilter: ptr(gltfFilterLinear),
			WrapS:     ptr(gltfWrapClampToEdge),
			WrapT:     ptr(gltfWrapClampToEdge),
		})
		doc.Textures = append(doc.Textures, gltfTexture{
			Sampler: ptr(len(doc.Samplers) - 1),
			Source:  ptr(len(doc.Images) - 1),
		})
		pbr.BaseColorTexture = &gltfTextureInfo{Index: len(doc.Textures) - 1}
	}

	return gltfMaterial{
		Name:                 fmt.Sprintf("Material%d", slot),
		PbrMetallicRoughness: pbr,
		DoubleSided:          surf.DoubleSided,
	}, nil
}

func writeGLB(w io.Writer, doc *gltfDocument, bin []byte) error {
	js, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}

	total := glbHeaderLen + glbChunkHead + len(js) + glbChunkHead + len(bin)
	var out bytes.Buffer
	out.Grow(total)

	le := binary.LittleEndian
	header := []uint32{glbMagic, glbVersion, uint32(total), uint32(len(js)), glbChunkJSON}
	if err := binary.Write(&out, le, header); err != nil {
		return err
	}
	out.Write(js)
	if err := binary.Write(&out, le, []uint32{uint32(len(bin)), glbChunkBIN}); err != nil {
		return err
	}
	out.Write(bin)

	_, err = w.Write(out.Bytes())
	return err
}

// flipVertical returns an NRGBA copy of img with its rows reversed.
func flipVertical(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	stride := dst.Stride
	tmp := make([]byte, stride)
	for top, bottom := 0, b.Dy()-1; top < bottom; top, bottom = top+1, bottom-1 {
		rt := dst.Pix[top*stride : (top+1)*stride]
		rb := dst.Pix[bottom*stride : (bottom+1)*stride]
		copy(tmp, rt)
		copy(rt, rb)
		copy(rb, tmp)
	}
	return dst
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
