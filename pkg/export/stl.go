package export

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	gomath "math"

	"github.com/Faultbox/relief-forge/pkg/relief"
)

const (
	stlHeaderSize   = 80
	stlTriangleSize = 50
)

// STL writes an unindexed triangle soup with per-face normals, in mesh
// coordinates (Z up).
type STL struct {
	ASCII bool
}

func (s STL) Name() string {
	if s.ASCII {
		return "stl-ascii"
	}
	return "stl"
}

func (STL) Extension() string { return "stl" }

func (s STL) MediaType() string {
	if s.ASCII {
		return "model/stl"
	}
	return "application/octet-stream"
}

func (s STL) Export(w io.Writer, m *relief.Mesh, opts Options) error {
	pm, err := prepare(m, opts, prepareOptions{})
	if err != nil {
		return wrap(s.Name(), err)
	}
	if s.ASCII {
		return wrap(s.Name(), writeSTLASCII(w, pm, opts.objectName()))
	}
	return wrap(s.Name(), writeSTLBinary(w, pm, opts.objectName()))
}

func writeSTLBinary(w io.Writer, m *relief.Mesh, name string) error {
	bw := bufio.NewWriter(w)

	// A binary header must not start with "solid" or readers take it for ASCII.
	var header [stlHeaderSize]byte
	copy(header[:], fmt.Sprintf("binary STL %s %s", generator, name))
	if _, err := bw.Write(header[:]); err != nil {
		return err
	}

	count := m.TriangleCount()
	if err := binary.Write(bw, binary.LittleEndian, uint32(count)); err != nil {
		return err
	}

	var rec [stlTriangleSize]byte
	for t := range count {
		n := faceNormal(m, t)
		putFloats(rec[0:], n.X, n.Y, n.Z)
		for k := range 3 {
			i := int(m.Indices[t*3+k]) * 3
			putFloats(rec[12+k*12:], m.Positions[i], m.Positions[i+1], m.Positions[i+2])
		}
		// rec[48:50] is the attribute byte count, always zero.
		if _, err := bw.Write(rec[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func putFloats(dst []byte, vals ...float32) {
	for i, v := range vals {
		binary.LittleEndian.PutUint32(dst[i*4:], gomath.Float32bits(v))
	}
}

func writeSTLASCII(w io.Writer, m *relief.Mesh, name string) error {
	tw := &textWriter{w: bufio.NewWriter(w)}
	e := func(v float32) string { return fmt.Sprintf("%e", v) }

	tw.line("solid", name)
	for t := range m.TriangleCount() {
		n := faceNormal(m, t)
		tw.line("facet normal", e(n.X), e(n.Y), e(n.Z))
		tw.line("  outer loop")
		for k := range 3 {
			i := int(m.Indices[t*3+k]) * 3
			tw.line("    vertex", e(m.Positions[i]), e(m.Positions[i+1]), e(m.Positions[i+2]))
		}
		tw.line("  endloop")
		tw.line("endfacet")
	}
	tw.line("endsolid", name)
	return tw.flush()
}
