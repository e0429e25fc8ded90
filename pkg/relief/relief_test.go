package relief

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/relief-forge/pkg/depthmap"
	"github.com/Faultbox/relief-forge/pkg/math"
)

func gradientGrid(w, h int) depthmap.Grid {
	values := make([]float32, w*h)
	for i := range values {
		values[i] = float32(i) / float32(len(values)-1)
	}
	return depthmap.Grid{Width: w, Height: h, Values: values}
}

func flatGrid(w, h int, v float32) depthmap.Grid {
	values := make([]float32, w*h)
	for i := range values {
		values[i] = v
	}
	return depthmap.Grid{Width: w, Height: h, Values: values}
}

var defaultParams = Params{MeshWidthMm: 100, MeshHeightMm: 100, TargetDepthMm: 20, BaseThicknessMm: 10}

func TestBuildGradientScenario(t *testing.T) {
	m, err := Build(gradientGrid(4, 4), defaultParams)
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	assert.Equal(t, 32, m.VertexCount())
	assert.Equal(t, Resolution{Width: 4, Height: 4}, m.Resolution)

	var topMin, topMax float32 = 1e9, -1e9
	for i := range 16 {
		z := m.Positions[i*3+2]
		topMin = min(topMin, z)
		topMax = max(topMax, z)
	}
	assert.Equal(t, float32(0), topMin)
	assert.Equal(t, float32(20), topMax)

	for i := 16; i < 32; i++ {
		assert.Equal(t, float32(-10), m.Positions[i*3+2], "base vertex %d", i)
	}

	require.Len(t, m.Groups, 2)
	assert.Equal(t, Group{Start: 0, Count: 54, Slot: SlotTop}, m.Groups[0])
	assert.Equal(t, Group{Start: 54, Count: 126, Slot: SlotBase}, m.Groups[1])
	assert.Equal(t, len(m.Indices), m.Groups[0].Count+m.Groups[1].Count)
}

func TestIndexCount(t *testing.T) {
	for _, size := range [][2]int{{2, 2}, {3, 2}, {4, 4}, {7, 5}} {
		m, err := Build(flatGrid(size[0], size[1], 0.5), defaultParams)
		require.NoError(t, err)
		sx, sy := size[0]-1, size[1]-1
		want := 6*sx*sy + 6*sx*sy + 12*(sx+sy)
		assert.Equal(t, want, len(m.Indices), "grid %v", size)
		assert.Equal(t, want, IndexCount(size[0], size[1]))
	}
}

func TestBuildCentersMesh(t *testing.T) {
	p := Params{MeshWidthMm: 80, MeshHeightMm: 40, TargetDepthMm: 5, BaseThicknessMm: 2}
	m, err := Build(flatGrid(5, 3, 1), p)
	require.NoError(t, err)

	b := m.Bounds()
	assert.Equal(t, [3]float32{-40, -20, -2}, b.Min)
	assert.Equal(t, [3]float32{40, 20, 5}, b.Max)
	assert.Equal(t, [3]float32{80, 40, 7}, b.Size())
}

func TestBuildWindingFacesOutward(t *testing.T) {
	m, err := Build(gradientGrid(5, 4), defaultParams)
	require.NoError(t, err)

	top := m.Groups[0].Count
	face := func(i int) (n, centroid math.Vec3) {
		a := math.V3(m.Positions, int(m.Indices[i]))
		b := math.V3(m.Positions, int(m.Indices[i+1]))
		c := math.V3(m.Positions, int(m.Indices[i+2]))
		centroid = math.Vec3{X: (a.X + b.X + c.X) / 3, Y: (a.Y + b.Y + c.Y) / 3, Z: (a.Z + b.Z + c.Z) / 3}
		return math.FaceNormal(a, b, c), centroid
	}

	for i := 0; i < top; i += 3 {
		n, _ := face(i)
		assert.Greater(t, n.Z, float32(0), "top triangle %d", i/3)
	}
	for i := top; i < 2*top; i += 3 {
		n, _ := face(i)
		assert.Less(t, n.Z, float32(0), "base triangle %d", i/3)
	}
	for i := 2 * top; i < len(m.Indices); i += 3 {
		n, c := face(i)
		outward := n.X*c.X + n.Y*c.Y
		assert.Greater(t, outward, float32(0), "wall triangle %d", i/3)
		assert.InDelta(t, 0, n.Z, 1e-6, "wall triangle %d should be vertical", i/3)
	}

	assert.Greater(t, SignedVolume(m.Positions, m.Indices), 0.0)
}

func TestBuildUVs(t *testing.T) {
	m, err := Build(flatGrid(3, 3, 0), defaultParams)
	require.NoError(t, err)
	require.Len(t, m.UVs, 18*2)

	uv := func(i int) [2]float32 { return [2]float32{m.UVs[i*2], m.UVs[i*2+1]} }
	assert.Equal(t, [2]float32{0, 1}, uv(0))
	assert.Equal(t, [2]float32{1, 1}, uv(2))
	assert.Equal(t, [2]float32{0.5, 0.5}, uv(4))
	assert.Equal(t, [2]float32{1, 0}, uv(8))
	for i := 9; i < 18; i++ {
		assert.Equal(t, [2]float32{0, 0}, uv(i))
	}
}

func TestBuildNormals(t *testing.T) {
	m, err := Build(flatGrid(3, 3, 0.5), defaultParams)
	require.NoError(t, err)
	require.Len(t, m.Normals, len(m.Positions))

	// Center vertex only touches top triangles.
	assert.InDelta(t, 0, m.Normals[4*3], 1e-6)
	assert.InDelta(t, 0, m.Normals[4*3+1], 1e-6)
	assert.InDelta(t, 1, m.Normals[4*3+2], 1e-6)

	assert.InDelta(t, -1, m.Normals[(9+4)*3+2], 1e-6)
}

func TestFlatVolume(t *testing.T) {
	p := Params{MeshWidthMm: 100, MeshHeightMm: 50, TargetDepthMm: 20, BaseThicknessMm: 10}
	m, err := Build(flatGrid(6, 4, 0), p)
	require.NoError(t, err)
	assert.InDelta(t, 100*50*10, SignedVolume(m.Positions, m.Indices), 1e-2)
}

func TestRampVolume(t *testing.T) {
	g := depthmap.Grid{Width: 3, Height: 2, Values: []float32{0, 0.5, 1, 0, 0.5, 1}}
	p := Params{MeshWidthMm: 10, MeshHeightMm: 10, TargetDepthMm: 20, BaseThicknessMm: 5}
	m, err := Build(g, p)
	require.NoError(t, err)
	// Base slab plus a wedge of average height 10.
	assert.InDelta(t, 100*(5+10), SignedVolume(m.Positions, m.Indices), 1e-3)
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(flatGrid(1, 5, 0), defaultParams)
	assert.True(t, errors.Is(err, ErrGridTooSmall), "got %v", err)

	_, err = Build(flatGrid(5, 1, 0), defaultParams)
	assert.ErrorIs(t, err, ErrGridTooSmall)

	_, err = Build(depthmap.Grid{Width: 2, Height: 2, Values: []float32{0}}, defaultParams)
	assert.ErrorIs(t, err, depthmap.ErrInvalidGrid)

	bad := defaultParams
	bad.MeshWidthMm = 0
	_, err = Build(flatGrid(2, 2, 0), bad)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr bool
	}{
		{"defaults", func(*Params) {}, false},
		{"zero base", func(p *Params) { p.BaseThicknessMm = 0 }, false},
		{"negative base", func(p *Params) { p.BaseThicknessMm = -1 }, true},
		{"zero depth", func(p *Params) { p.TargetDepthMm = 0 }, true},
		{"negative height", func(p *Params) { p.MeshHeightMm = -5 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := defaultParams
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidParams)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	m, err := Build(flatGrid(2, 2, 0), defaultParams)
	require.NoError(t, err)

	c := m.Clone()
	c.Positions[0] = 999
	c.Indices[0] = 3
	c.Groups[0].Slot = 7
	c.UVs[0] = 0.25

	assert.NotEqual(t, float32(999), m.Positions[0])
	assert.Equal(t, uint32(0), m.Indices[0])
	assert.Equal(t, SlotTop, m.Groups[0].Slot)
	assert.Equal(t, float32(0), m.UVs[0])

	m.UVs = nil
	assert.Nil(t, m.Clone().UVs)
}

func TestValidateRejectsBrokenMeshes(t *testing.T) {
	m, err := Build(flatGrid(2, 2, 0), defaultParams)
	require.NoError(t, err)

	bad := m.Clone()
	bad.Indices[0] = 100
	assert.ErrorIs(t, bad.Validate(), ErrInvalidMesh)

	bad = m.Clone()
	bad.Groups[1].Start++
	assert.ErrorIs(t, bad.Validate(), ErrInvalidMesh)

	bad = m.Clone()
	bad.Groups = bad.Groups[:1]
	assert.ErrorIs(t, bad.Validate(), ErrInvalidMesh)

	bad = m.Clone()
	bad.Groups = nil
	assert.NoError(t, bad.Validate())
}

func TestDimensions(t *testing.T) {
	f := func(v float32) *float32 { return &v }

	w, h := Dimensions(2, nil, nil)
	assert.Equal(t, [2]float32{100, 50}, [2]float32{w, h})

	w, h = Dimensions(2, f(80), nil)
	assert.Equal(t, [2]float32{80, 40}, [2]float32{w, h})

	w, h = Dimensions(2, nil, f(30))
	assert.Equal(t, [2]float32{60, 30}, [2]float32{w, h})

	w, h = Dimensions(2, f(10), f(70))
	assert.Equal(t, [2]float32{10, 70}, [2]float32{w, h})
}

func TestTargetResolution(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{3024, 4032, 1024, 768, 1024},
		{2000, 1000, 1024, 1024, 512},
		{1000, 333, 100, 100, 33},
		{640, 480, 1024, 640, 480},
		{640, 480, 0, 640, 480},
		{1024, 1024, 1024, 1024, 1024},
	}
	for _, tt := range tests {
		gw, gh := TargetResolution(tt.w, tt.h, tt.max)
		assert.Equal(t, tt.wantW, gw, "%dx%d max %d", tt.w, tt.h, tt.max)
		assert.Equal(t, tt.wantH, gh, "%dx%d max %d", tt.w, tt.h, tt.max)
	}
}
