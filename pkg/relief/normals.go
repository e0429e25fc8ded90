package relief

import (
	gomath "math"

	"github.com/Faultbox/relief-forge/pkg/math"
)

// ComputeNormals returns per-vertex normals as the normalized sum of the
// unnormalized face normals around each vertex, which weights faces by
// their area. Vertices touched by no triangle get a zero normal.
func ComputeNormals(positions []float32, indices []uint32) []float32 {
	normals := make([]float32, len(positions))

	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		pa := math.V3(positions, int(a))
		pb := math.V3(positions, int(b))
		pc := math.V3(positions, int(c))
		fn := pb.Sub(pa).Cross(pc.Sub(pa))

		for _, v := range [3]uint32{a, b, c} {
			normals[v*3] += fn.X
			normals[v*3+1] += fn.Y
			normals[v*3+2] += fn.Z
		}
	}

	for i := 0; i+2 < len(normals); i += 3 {
		x, y, z := normals[i], normals[i+1], normals[i+2]
		l := float32(gomath.Sqrt(float64(x*x + y*y + z*z)))
		if l == 0 {
			continue
		}
		normals[i], normals[i+1], normals[i+2] = x/l, y/l, z/l
	}
	return normals
}

// SignedVolume returns the enclosed volume of a closed mesh by the
// divergence theorem. It is positive when triangles wind outward.
func SignedVolume(positions []float32, indices []uint32) float64 {
	var vol float64
	for i := 0; i+2 < len(indices); i += 3 {
		a := math.V3(positions, int(indices[i]))
		b := math.V3(positions, int(indices[i+1]))
		c := math.V3(positions, int(indices[i+2]))
		vol += float64(a.X)*(float64(b.Y)*float64(c.Z)-float64(b.Z)*float64(c.Y)) -
			float64(a.Y)*(float64(b.X)*float64(c.Z)-float64(b.Z)*float64(c.X)) +
			float64(a.Z)*(float64(b.X)*float64(c.Y)-float64(b.Y)*float64(c.X))
	}
	return vol / 6
}
