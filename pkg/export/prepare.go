package export

import (
	"github.com/Faultbox/relief-forge/pkg/math"
	"github.com/Faultbox/relief-forge/pkg/relief"
)

type prepareOptions struct {
	yUp        bool
	keepGroups bool
}

// prepare returns a transformed copy of m ready for serialization.
func prepare(m *relief.Mesh, opts Options, po prepareOptions) (*relief.Mesh, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.TriangleCount() == 0 {
		return nil, ErrEmptyMesh
	}

	out := m.Clone()
	if !po.keepGroups {
		out.Groups = nil
	}

	mat := opts.matrix()
	if po.yUp {
		mat = math.ZUpToYUp().Mul(mat)
	}
	mat.TransformPositions(out.Positions)

	if mat.Det3() < 0 {
		flipWinding(out.Indices)
	}

	out.RecomputeNormals()
	return out, nil
}

// flipWinding swaps the first and last index of every triangle.
func flipWinding(indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		indices[i], indices[i+2] = indices[i+2], indices[i]
	}
}

// faceNormal returns the unit normal of triangle t.
func faceNormal(m *relief.Mesh, t int) math.Vec3 {
	return math.FaceNormal(
		math.V3(m.Positions, int(m.Indices[t*3])),
		math.V3(m.Positions, int(m.Indices[t*3+1])),
		math.V3(m.Positions, int(m.Indices[t*3+2])),
	)
}
