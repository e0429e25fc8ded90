package math

// Transform is a position/rotation/scale triple in the style of a scene
// graph node. Rotation holds Euler angles in radians applied X, Y, Z.
type Transform struct {
	Position Vec3
	Rotation Vec3
	Scale    Vec3
}

// IdentityTransform returns a transform that leaves geometry untouched.
func IdentityTransform() Transform {
	return Transform{Scale: Vec3{1, 1, 1}}
}

// Matrix composes the transform as T * R * S.
func (t Transform) Matrix() Mat4 {
	return Translate(t.Position.X, t.Position.Y, t.Position.Z).
		Mul(EulerXYZ(t.Rotation.X, t.Rotation.Y, t.Rotation.Z)).
		Mul(Scale(t.Scale.X, t.Scale.Y, t.Scale.Z))
}

// Mirrors reports whether applying the transform flips handedness.
func (t Transform) Mirrors() bool {
	return t.Matrix().Det3() < 0
}
