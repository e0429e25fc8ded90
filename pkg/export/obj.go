package export

import (
	"bufio"
	"io"
	"strconv"

	"github.com/Faultbox/relief-forge/pkg/relief"
)

// OBJ writes Wavefront OBJ text, Y up. Texture coordinates are included
// when the mesh still has them; no material library is written.
type OBJ struct{}

func (OBJ) Name() string      { return "obj" }
func (OBJ) Extension() string { return "obj" }
func (OBJ) MediaType() string { return "model/obj" }

func (o OBJ) Export(w io.Writer, m *relief.Mesh, opts Options) error {
	pm, err := prepare(m, opts, prepareOptions{yUp: true})
	if err != nil {
		return wrap(o.Name(), err)
	}

	tw := &textWriter{w: bufio.NewWriter(w)}
	tw.line("#", generator)
	tw.line("o", opts.objectName())

	n := pm.VertexCount()
	for i := range n {
		tw.floats("v", pm.Positions[i*3], pm.Positions[i*3+1], pm.Positions[i*3+2])
	}
	hasUV := pm.UVs != nil
	if hasUV {
		for i := range n {
			tw.floats("vt", pm.UVs[i*2], pm.UVs[i*2+1])
		}
	}
	for i := range n {
		tw.floats("vn", pm.Normals[i*3], pm.Normals[i*3+1], pm.Normals[i*3+2])
	}

	// OBJ indices are 1-based; every attribute shares the vertex index.
	ref := func(idx uint32) string {
		s := strconv.FormatUint(uint64(idx)+1, 10)
		if hasUV {
			return s + "/" + s + "/" + s
		}
		return s + "//" + s
	}
	for t := range pm.TriangleCount() {
		tw.line("f", ref(pm.Indices[t*3]), ref(pm.Indices[t*3+1]), ref(pm.Indices[t*3+2]))
	}

	return wrap(o.Name(), tw.flush())
}
