package export

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"

	"github.com/Faultbox/relief-forge/pkg/relief"
)

// PLY writes Stanford PLY with per-vertex positions, normals and, when
// present, texture coordinates. Coordinates stay Z up.
type PLY struct {
	ASCII bool
}

func (p PLY) Name() string {
	if p.ASCII {
		return "ply-ascii"
	}
	return "ply"
}

func (PLY) Extension() string { return "ply" }
func (PLY) MediaType() string { return "application/octet-stream" }

func (p PLY) Export(w io.Writer, m *relief.Mesh, opts Options) error {
	pm, err := prepare(m, opts, prepareOptions{})
	if err != nil {
		return wrap(p.Name(), err)
	}

	bw := bufio.NewWriter(w)
	if err := p.writeHeader(bw, pm, opts.objectName()); err != nil {
		return wrap(p.Name(), err)
	}
	if p.ASCII {
		err = writePLYASCII(bw, pm)
	} else {
		err = writePLYBinary(bw, pm)
	}
	if err == nil {
		err = bw.Flush()
	}
	return wrap(p.Name(), err)
}

func (p PLY) writeHeader(w io.Writer, m *relief.Mesh, name string) error {
	format := "binary_little_endian"
	if p.ASCII {
		format = "ascii"
	}
	props := []string{"x", "y", "z", "nx", "ny", "nz"}
	if m.UVs != nil {
		props = append(props, "s", "t")
	}

	_, err := fmt.Fprintf(w, "ply\nformat %s 1.0\ncomment generated by %s\nobj_info %s\nelement vertex %d\n",
		format, generator, name, m.VertexCount())
	if err != nil {
		return err
	}
	for _, prop := range props {
		if _, err := fmt.Fprintf(w, "property float %s\n", prop); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "element face %d\nproperty list uchar int vertex_indices\nend_header\n", m.TriangleCount())
	return err
}

func vertexRecord(m *relief.Mesh, i int, dst []float32) []float32 {
	dst = append(dst[:0],
		m.Positions[i*3], m.Positions[i*3+1], m.Positions[i*3+2],
		m.Normals[i*3], m.Normals[i*3+1], m.Normals[i*3+2])
	if m.UVs != nil {
		dst = append(dst, m.UVs[i*2], m.UVs[i*2+1])
	}
	return dst
}

func writePLYBinary(w io.Writer, m *relief.Mesh) error {
	rec := make([]float32, 0, 8)
	for i := range m.VertexCount() {
		rec = vertexRecord(m, i, rec)
		if err := binary.Write(w, binary.LittleEndian, rec); err != nil {
			return err
		}
	}

	var face [13]byte
	face[0] = 3
	for t := range m.TriangleCount() {
		for k := range 3 {
			binary.LittleEndian.PutUint32(face[1+k*4:], m.Indices[t*3+k])
		}
		if _, err := w.Write(face[:]); err != nil {
			return err
		}
	}
	return nil
}

func writePLYASCII(w *bufio.Writer, m *relief.Mesh) error {
	tw := &textWriter{w: w}
	rec := make([]float32, 0, 8)
	for i := range m.VertexCount() {
		rec = vertexRecord(m, i, rec)
		var line []string
		for _, v := range rec {
			line = append(line, strconv.FormatFloat(float64(v), 'f', -1, 32))
		}
		tw.line(line...)
	}
	for t := range m.TriangleCount() {
		tw.line("3",
			strconv.FormatUint(uint64(m.Indices[t*3]), 10),
			strconv.FormatUint(uint64(m.Indices[t*3+1]), 10),
			strconv.FormatUint(uint64(m.Indices[t*3+2]), 10))
	}
	return tw.err
}
