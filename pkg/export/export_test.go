package export

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	gomath "math"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/model3d/model3d"

	"github.com/Faultbox/relief-forge/pkg/depthmap"
	"github.com/Faultbox/relief-forge/pkg/material"
	"github.com/Faultbox/relief-forge/pkg/math"
	"github.com/Faultbox/relief-forge/pkg/relief"
)

func testMesh(t *testing.T) *relief.Mesh {
	t.Helper()
	const w, h = 4, 3
	values := make([]float32, w*h)
	for i := range values {
		values[i] = float32(i%w) / float32(w-1)
	}
	m, err := relief.Build(depthmap.Grid{Width: w, Height: h, Values: values}, relief.Params{
		MeshWidthMm: 60, MeshHeightMm: 40, TargetDepthMm: 12, BaseThicknessMm: 4,
	})
	require.NoError(t, err)
	return m
}

type stlTriangle struct {
	normal math.Vec3
	v      [3]math.Vec3
}

func readBinarySTL(t *testing.T, data []byte) []stlTriangle {
	t.Helper()
	require.GreaterOrEqual(t, len(data), 84)
	count := int(binary.LittleEndian.Uint32(data[80:84]))
	require.Equal(t, 84+count*50, len(data))

	f := func(off int) float32 {
		return gomath.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
	}
	vec := func(off int) math.Vec3 { return math.Vec3{X: f(off), Y: f(off + 4), Z: f(off + 8)} }

	tris := make([]stlTriangle, count)
	for i := range tris {
		off := 84 + i*50
		tris[i].normal = vec(off)
		for k := range 3 {
			tris[i].v[k] = vec(off + 12 + k*12)
		}
	}
	return tris
}

func soupVolume(tris []stlTriangle) float64 {
	var vol float64
	for _, tr := range tris {
		a, b, c := tr.v[0], tr.v[1], tr.v[2]
		vol += float64(a.Dot(b.Cross(c)))
	}
	return vol / 6
}

func exportBytes(t *testing.T, e Exporter, m *relief.Mesh, opts Options) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, e.Export(&buf, m, opts))
	return buf.Bytes()
}

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{"stl", "stl-ascii", "obj", "ply", "ply-ascii", "glb", "gltf", "usdz"}, Names())

	for _, name := range Names() {
		e, err := Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, name, e.Name())
	}

	e, err := Lookup(" GLB ")
	require.NoError(t, err)
	assert.Equal(t, "relief.glb", DefaultFilename(e))

	e, _ = Lookup("stl-ascii")
	assert.Equal(t, "relief.stl", DefaultFilename(e))

	_, err = Lookup("fbx")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestExportDeterministicAndNonMutating(t *testing.T) {
	m := testMesh(t)
	before := m.Clone()

	tex := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	mats := material.Describe(material.Config{ShowTexture: true, DepthImage: tex, ItemColor: material.DefaultItemColor})
	opts := DefaultOptions()
	opts.Materials = &mats
	opts.Transform.Rotation = math.Vec3{X: gomath.Pi / 2, Y: gomath.Pi}

	for _, e := range Formats() {
		t.Run(e.Name(), func(t *testing.T) {
			first := exportBytes(t, e, m, opts)
			second := exportBytes(t, e, m, opts)
			assert.NotEmpty(t, first)
			assert.True(t, bytes.Equal(first, second), "output differs between runs")
		})
	}

	if diff := cmp.Diff(before, m); diff != "" {
		t.Errorf("mesh modified by export (-before +after):\n%s", diff)
	}
}

func TestSTLBinaryLayout(t *testing.T) {
	m := testMesh(t)
	data := exportBytes(t, STL{}, m, DefaultOptions())

	assert.False(t, bytes.HasPrefix(data, []byte("solid")))
	tris := readBinarySTL(t, data)
	assert.Len(t, tris, m.TriangleCount())

	// Identity transform keeps mesh coordinates and order.
	for k := range 3 {
		assert.Equal(t, math.V3(m.Positions, int(m.Indices[k])), tris[0].v[k])
	}
	for i, tr := range tris {
		want := math.FaceNormal(tr.v[0], tr.v[1], tr.v[2])
		assert.InDelta(t, 1, want.Dot(tr.normal), 1e-5, "triangle %d", i)
	}
}

func TestWindingFollowsDeterminant(t *testing.T) {
	m := testMesh(t)
	plain := readBinarySTL(t, exportBytes(t, STL{}, m, DefaultOptions()))

	mirrored := DefaultOptions()
	mirrored.Transform.Scale = math.Vec3{X: -1, Y: 1, Z: 1}
	flipped := readBinarySTL(t, exportBytes(t, STL{}, m, mirrored))
	require.Len(t, flipped, len(plain))

	mirror := func(v math.Vec3) math.Vec3 { return math.Vec3{X: -v.X, Y: v.Y, Z: v.Z} }
	for i := range plain {
		assert.Equal(t, mirror(plain[i].v[2]), flipped[i].v[0], "triangle %d", i)
		assert.Equal(t, mirror(plain[i].v[1]), flipped[i].v[1], "triangle %d", i)
		assert.Equal(t, mirror(plain[i].v[0]), flipped[i].v[2], "triangle %d", i)
	}

	vol := relief.SignedVolume(m.Positions, m.Indices)
	assert.InDelta(t, vol, soupVolume(plain), vol*1e-4)
	assert.InDelta(t, vol, soupVolume(flipped), vol*1e-4)
}

func TestTransformsKeepOutwardWinding(t *testing.T) {
	m := testMesh(t)
	vol := relief.SignedVolume(m.Positions, m.Indices)

	transforms := []math.Transform{
		{Rotation: math.Vec3{X: gomath.Pi / 2, Y: gomath.Pi}, Scale: math.Vec3{X: 1, Y: 1, Z: 1}},
		{Scale: math.Vec3{X: -1, Y: -1, Z: 1}},
		{Scale: math.Vec3{X: 1, Y: 1, Z: -1}, Position: math.Vec3{X: 5, Y: -3, Z: 2}},
		{Rotation: math.Vec3{Z: 0.7}, Scale: math.Vec3{X: 2, Y: 2, Z: -2}},
	}
	for i, tr := range transforms {
		opts := DefaultOptions()
		opts.Transform = tr
		tris := readBinarySTL(t, exportBytes(t, STL{}, m, opts))

		det := float64(tr.Matrix().Det3())
		want := vol * gomath.Abs(det)
		assert.InDelta(t, want, soupVolume(tris), want*1e-3, "transform %d", i)
	}
}

// readOBJ rebuilds the triangle list of an OBJ export from its v and f lines.
func readOBJ(t *testing.T, data []byte) []stlTriangle {
	t.Helper()
	var verts []math.Vec3
	var tris []stlTriangle
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 4 {
			continue
		}
		switch fields[0] {
		case "v":
			var c [3]float32
			for k := range 3 {
				f, err := strconv.ParseFloat(fields[k+1], 32)
				require.NoError(t, err)
				c[k] = float32(f)
			}
			verts = append(verts, math.Vec3{X: c[0], Y: c[1], Z: c[2]})
		case "f":
			var tr stlTriangle
			for k := range 3 {
				ref, _, _ := strings.Cut(fields[k+1], "/")
				idx, err := strconv.Atoi(ref)
				require.NoError(t, err)
				require.True(t, idx >= 1 && idx <= len(verts), "face index %d", idx)
				tr.v[k] = verts[idx-1]
			}
			tris = append(tris, tr)
		}
	}
	return tris
}

// readGLBTriangles resolves every primitive's indices against POSITION.
func readGLBTriangles(t *testing.T, data []byte) []stlTriangle {
	t.Helper()
	doc, bin := readGLB(t, data)
	le := binary.LittleEndian
	require.Len(t, doc.Meshes, 1)

	var tris []stlTriangle
	for _, p := range doc.Meshes[0].Primitives {
		pos := doc.Accessors[p.Attributes["POSITION"]]
		posBase := doc.BufferViews[*pos.BufferView].ByteOffset + pos.ByteOffset
		vertex := func(i uint32) math.Vec3 {
			off := posBase + int(i)*12
			f := func(o int) float32 { return gomath.Float32frombits(le.Uint32(bin[off+o:])) }
			return math.Vec3{X: f(0), Y: f(4), Z: f(8)}
		}

		ia := doc.Accessors[*p.Indices]
		require.Equal(t, gltfComponentUnsignedInt, ia.ComponentType)
		base := doc.BufferViews[*ia.BufferView].ByteOffset + ia.ByteOffset
		for i := 0; i < ia.Count; i += 3 {
			var tr stlTriangle
			for k := range 3 {
				tr.v[k] = vertex(le.Uint32(bin[base+(i+k)*4:]))
			}
			tris = append(tris, tr)
		}
	}
	return tris
}

func TestMirroredExportsKeepOutwardWinding(t *testing.T) {
	m := testMesh(t)
	vol := relief.SignedVolume(m.Positions, m.Indices)

	readers := map[string]func(*testing.T, []byte) []stlTriangle{
		"stl": readBinarySTL,
		"obj": readOBJ,
		"glb": readGLBTriangles,
	}
	signs := []float32{1, -1}
	for name, read := range readers {
		e, err := Lookup(name)
		require.NoError(t, err)
		t.Run(name, func(t *testing.T) {
			for _, sx := range signs {
				for _, sy := range signs {
					for _, sz := range signs {
						opts := DefaultOptions()
						opts.Transform.Scale = math.Vec3{X: sx, Y: sy, Z: sz}
						tris := read(t, exportBytes(t, e, m, opts))
						require.Len(t, tris, m.TriangleCount())
						assert.InDelta(t, vol, soupVolume(tris), vol*1e-3, "scale (%v,%v,%v)", sx, sy, sz)
					}
				}
			}
		})
	}
}

func TestSTLIsClosedManifold(t *testing.T) {
	tris := readBinarySTL(t, exportBytes(t, STL{}, testMesh(t), DefaultOptions()))

	coord := func(v math.Vec3) model3d.Coord3D {
		return model3d.Coord3D{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
	}
	soup := make([]*model3d.Triangle, len(tris))
	for i, tr := range tris {
		soup[i] = &model3d.Triangle{coord(tr.v[0]), coord(tr.v[1]), coord(tr.v[2])}
	}
	mesh := model3d.NewMeshTriangles(soup)
	assert.False(t, mesh.NeedsRepair(), "every edge should join exactly two triangles")
}

func TestSTLASCII(t *testing.T) {
	m := testMesh(t)
	out := string(exportBytes(t, STL{ASCII: true}, m, DefaultOptions()))

	assert.True(t, strings.HasPrefix(out, "solid ReliefModel\n"))
	assert.True(t, strings.HasSuffix(out, "endsolid ReliefModel\n"))
	assert.Equal(t, m.TriangleCount(), strings.Count(out, "facet normal"))
	assert.Equal(t, m.TriangleCount()*3, strings.Count(out, "    vertex "))
	assert.Equal(t, m.TriangleCount(), strings.Count(out, "endloop"))
}

func TestOBJ(t *testing.T) {
	m := testMesh(t)
	out := string(exportBytes(t, OBJ{}, m, Options{ObjectName: "Plaque"}))
	lines := strings.Split(strings.TrimSpace(out), "\n")

	count := func(prefix string) int {
		n := 0
		for _, l := range lines {
			if strings.HasPrefix(l, prefix) {
				n++
			}
		}
		return n
	}
	assert.Contains(t, lines, "o Plaque")
	assert.Equal(t, m.VertexCount(), count("v "))
	assert.Equal(t, m.VertexCount(), count("vt "))
	assert.Equal(t, m.VertexCount(), count("vn "))
	assert.Equal(t, m.TriangleCount(), count("f "))

	// Vertex 0 sits at (-30, -20, 0) in Z-up; Y-up turns (x, y, z) into (x, z, -y).
	assert.Contains(t, lines, "v -30 0 20")
	assert.Contains(t, lines, "f 1/1/1 2/2/2 5/5/5")

	m.UVs = nil
	out = string(exportBytes(t, OBJ{}, m, DefaultOptions()))
	assert.NotContains(t, out, "\nvt ")
	assert.Contains(t, out, "\nf 1//1 2//2 5//5\n")
}

func TestPLY(t *testing.T) {
	m := testMesh(t)
	data := exportBytes(t, PLY{}, m, DefaultOptions())

	end := bytes.Index(data, []byte("end_header\n"))
	require.Greater(t, end, 0)
	header := string(data[:end])
	assert.Contains(t, header, "format binary_little_endian 1.0")
	assert.Contains(t, header, "property float s\nproperty float t\n")

	body := len(data) - end - len("end_header\n")
	assert.Equal(t, m.VertexCount()*8*4+m.TriangleCount()*13, body)

	ascii := string(exportBytes(t, PLY{ASCII: true}, m, DefaultOptions()))
	sc := bufio.NewScanner(strings.NewReader(ascii))
	var faces int
	for sc.Scan() {
		if strings.HasPrefix(sc.Text(), "3 ") {
			faces++
		}
	}
	assert.Contains(t, ascii, "format ascii 1.0")
	assert.Equal(t, m.TriangleCount(), faces)
}

func readGLB(t *testing.T, data []byte) (gltfDocument, []byte) {
	t.Helper()
	le := binary.LittleEndian
	require.Equal(t, uint32(glbMagic), le.Uint32(data[0:]))
	require.Equal(t, uint32(2), le.Uint32(data[4:]))
	require.Equal(t, uint32(len(data)), le.Uint32(data[8:]))

	jsonLen := int(le.Uint32(data[12:]))
	require.Equal(t, uint32(glbChunkJSON), le.Uint32(data[16:]))
	require.Zero(t, jsonLen%4)

	var doc gltfDocument
	require.NoError(t, json.Unmarshal(data[20:20+jsonLen], &doc))

	binStart := 20 + jsonLen
	binLen := int(le.Uint32(data[binStart:]))
	require.Equal(t, uint32(glbChunkBIN), le.Uint32(data[binStart+4:]))
	return doc, data[binStart+8 : binStart+8+binLen]
}

func TestGLBStructure(t *testing.T) {
	m := testMesh(t)
	doc, bin := readGLB(t, exportBytes(t, GLTF{Binary: true}, m, DefaultOptions()))

	assert.Equal(t, "2.0", doc.Asset.Version)
	require.Len(t, doc.Meshes, 1)
	prims := doc.Meshes[0].Primitives
	require.Len(t, prims, 2)
	assert.Equal(t, 0, *prims[0].Material)
	assert.Equal(t, 1, *prims[1].Material)

	var total int
	for _, p := range prims {
		total += doc.Accessors[*p.Indices].Count
	}
	assert.Equal(t, len(m.Indices), total)

	require.Len(t, doc.Materials, 2)
	for _, mat := range doc.Materials {
		assert.True(t, mat.DoubleSided)
		assert.InDelta(t, 0.3, *mat.PbrMetallicRoughness.MetallicFactor, 1e-6)
		assert.InDelta(t, 0.7, *mat.PbrMetallicRoughness.RoughnessFactor, 1e-6)
	}
	assert.Empty(t, doc.Images, "solid materials embed no image")

	pos := doc.Accessors[prims[0].Attributes["POSITION"]]
	assert.Equal(t, m.VertexCount(), pos.Count)
	// Y-up: depth becomes Y, the mesh's Y becomes -Z.
	assert.Equal(t, []float32{-30, -4, -20}, pos.Min)
	assert.Equal(t, []float32{30, 12, 20}, pos.Max)
	assert.Equal(t, doc.Buffers[0].ByteLength, len(bin))
}

func TestGLBEmbedsFlippedTexture(t *testing.T) {
	m := testMesh(t)
	tex := image.NewNRGBA(image.Rect(0, 0, 1, 2))
	tex.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	tex.SetNRGBA(0, 1, color.NRGBA{B: 255, A: 255})

	mats := material.Describe(material.Config{ShowTexture: true, Texture: tex})
	opts := DefaultOptions()
	opts.Materials = &mats

	doc, bin := readGLB(t, exportBytes(t, GLTF{Binary: true}, m, opts))
	require.Len(t, doc.Images, 1)
	require.NotNil(t, doc.Materials[0].PbrMetallicRoughness.BaseColorTexture)
	assert.Nil(t, doc.Materials[1].PbrMetallicRoughness.BaseColorTexture)
	assert.Contains(t, doc.Meshes[0].Primitives[0].Attributes, "TEXCOORD_0")

	view := doc.BufferViews[*doc.Images[0].BufferView]
	img, err := png.Decode(bytes.NewReader(bin[view.ByteOffset : view.ByteOffset+view.ByteLength]))
	require.NoError(t, err)

	r, _, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0), r)
	assert.Equal(t, uint32(0xffff), b, "top row should hold the source's bottom row")
}

func TestGLBWithoutUVsDropsTexture(t *testing.T) {
	m := testMesh(t)
	m.UVs = nil
	m.Groups = []relief.Group{{Start: 0, Count: len(m.Indices), Slot: 0}}

	mats := material.Describe(material.Config{ShowTexture: true, Texture: image.NewGray(image.Rect(0, 0, 1, 1))})
	opts := DefaultOptions()
	opts.Materials = &mats

	doc, _ := readGLB(t, exportBytes(t, GLTF{Binary: true}, m, opts))
	assert.Len(t, doc.Meshes[0].Primitives, 1)
	assert.Empty(t, doc.Images)
	assert.NotContains(t, doc.Meshes[0].Primitives[0].Attributes, "TEXCOORD_0")
}

func TestGLTFDataURI(t *testing.T) {
	m := testMesh(t)
	var doc gltfDocument
	require.NoError(t, json.Unmarshal(exportBytes(t, GLTF{}, m, DefaultOptions()), &doc))

	require.Len(t, doc.Buffers, 1)
	uri := doc.Buffers[0].URI
	const prefix = "data:application/octet-stream;base64,"
	require.True(t, strings.HasPrefix(uri, prefix))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	require.NoError(t, err)
	assert.Equal(t, doc.Buffers[0].ByteLength, len(raw))
	assert.Equal(t, "ReliefModel", doc.Nodes[0].Name)
}

func TestUSDZ(t *testing.T) {
	m := testMesh(t)
	tex := image.NewNRGBA(image.Rect(0, 0, 3, 3))
	mats := material.Describe(material.Config{ShowTexture: true, Texture: tex})
	opts := DefaultOptions()
	opts.Materials = &mats

	data := exportBytes(t, USDZ{}, m, opts)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "model.usda", zr.File[0].Name)
	assert.Equal(t, "textures/texture0.png", zr.File[1].Name)

	for _, f := range zr.File {
		assert.Equal(t, zip.Store, f.Method, f.Name)
		off, err := f.DataOffset()
		require.NoError(t, err)
		assert.Zero(t, off%64, "%s data at %d", f.Name, off)
	}

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	usda, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	s := string(usda)
	assert.True(t, strings.HasPrefix(s, "#usda 1.0\n"))
	assert.Contains(t, s, `upAxis = "Y"`)
	assert.Contains(t, s, "metersPerUnit = 0.001")
	assert.Contains(t, s, `def Mesh "ReliefModel"`)
	assert.Contains(t, s, "texCoord2f[] primvars:st")
	assert.Contains(t, s, "@textures/texture0.png@")

	solid := exportBytes(t, USDZ{}, m, DefaultOptions())
	zr, err = zip.NewReader(bytes.NewReader(solid), int64(len(solid)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 1)
}

func TestAlignmentExtra(t *testing.T) {
	assert.Nil(t, alignmentExtra(128))
	for _, off := range []int64{1, 61, 62, 63, 64 + 3, 100} {
		extra := alignmentExtra(off)
		assert.Zero(t, (off+int64(len(extra)))%64, "offset %d", off)
		assert.GreaterOrEqual(t, len(extra), 4)
		assert.Equal(t, uint16(len(extra)-4), binary.LittleEndian.Uint16(extra[2:]))
	}
}

func TestExportErrors(t *testing.T) {
	broken := testMesh(t)
	broken.Indices[0] = 9999

	for _, e := range Formats() {
		err := e.Export(io.Discard, broken, DefaultOptions())
		var exportErr *Error
		require.True(t, errors.As(err, &exportErr), "%s: got %v", e.Name(), err)
		assert.Equal(t, e.Name(), exportErr.Format)
		assert.ErrorIs(t, err, relief.ErrInvalidMesh)
	}

	err := STL{}.Export(io.Discard, &relief.Mesh{}, DefaultOptions())
	assert.ErrorIs(t, err, ErrEmptyMesh)
}

func TestExportAll(t *testing.T) {
	m := testMesh(t)

	outcomes := ExportAll(context.Background(), m, DefaultOptions(), "stl", "obj", "bogus", "usdz")
	require.Len(t, outcomes, 4)

	assert.Equal(t, "relief.stl", outcomes[0].Filename)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, exportBytes(t, STL{}, m, DefaultOptions()), outcomes[0].Data)

	assert.Equal(t, "obj", outcomes[1].Format)
	assert.NotEmpty(t, outcomes[1].Data)

	assert.ErrorIs(t, outcomes[2].Err, ErrUnknownFormat)
	assert.Empty(t, outcomes[2].Data)

	assert.Equal(t, "relief.usdz", outcomes[3].Filename)
	assert.NoError(t, outcomes[3].Err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, o := range ExportAll(ctx, m, DefaultOptions(), "stl", "glb") {
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
}
