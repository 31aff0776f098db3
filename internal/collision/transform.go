package collision

import "github.com/go-gl/mathgl/mgl32"

// Transform is a rigid transform: rotation followed by translation.
// Comparable with ==, equality is exact.
type Transform struct {
	Basis  mgl32.Quat
	Origin mgl32.Vec3
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Basis: mgl32.QuatIdent()}
}

// NewTransform builds a transform from a rotation and an origin.
func NewTransform(basis mgl32.Quat, origin mgl32.Vec3) Transform {
	return Transform{Basis: basis, Origin: origin}
}

// Translation builds a transform without rotation.
func Translation(origin mgl32.Vec3) Transform {
	return Transform{Basis: mgl32.QuatIdent(), Origin: origin}
}

// Apply transforms a point from local to world space.
func (t Transform) Apply(v mgl32.Vec3) mgl32.Vec3 {
	return t.Basis.Rotate(v).Add(t.Origin)
}

// Mul composes t with a child transform expressed in t's local space.
func (t Transform) Mul(child Transform) Transform {
	return Transform{
		Basis:  t.Basis.Mul(child.Basis),
		Origin: t.Apply(child.Origin),
	}
}
