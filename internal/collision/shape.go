// Package collision holds the collision shapes that feed navigation mesh
// geometry. Shapes are owned by the simulation; the navigator keeps
// references to them and reads them when it snapshots a tile.
package collision

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Shape is a collision shape in its local space.
type Shape interface {
	// AABB returns the world space bounds of the shape placed by t.
	AABB(t Transform) AABB
	// Triangles emits the surface triangles of the shape placed by t.
	Triangles(t Transform, fn func(a, b, c mgl32.Vec3))
}

// boxFaces lists the 12 triangles of a box as corner indices.
// Corner i has bit 0 = +X, bit 1 = +Y, bit 2 = +Z. Winding is CCW seen from outside.
var boxFaces = [12][3]int{
	{0, 2, 1}, {1, 2, 3}, // -Z
	{4, 5, 6}, {5, 7, 6}, // +Z
	{0, 1, 4}, {1, 5, 4}, // -Y
	{2, 6, 3}, {3, 6, 7}, // +Y
	{0, 4, 2}, {2, 4, 6}, // -X
	{1, 3, 5}, {3, 7, 5}, // +X
}

// Box is an oriented box centered at the local origin.
type Box struct {
	HalfExtents mgl32.Vec3
}

// NewBox creates a box shape.
func NewBox(halfExtents mgl32.Vec3) *Box {
	return &Box{HalfExtents: halfExtents}
}

func (b *Box) corners(t Transform) [8]mgl32.Vec3 {
	var out [8]mgl32.Vec3
	h := b.HalfExtents
	for i := range 8 {
		local := mgl32.Vec3{-h.X(), -h.Y(), -h.Z()}
		if i&1 != 0 {
			local[0] = h.X()
		}
		if i&2 != 0 {
			local[1] = h.Y()
		}
		if i&4 != 0 {
			local[2] = h.Z()
		}
		out[i] = t.Apply(local)
	}
	return out
}

// AABB implements Shape.
func (b *Box) AABB(t Transform) AABB {
	box := EmptyAABB()
	for _, c := range b.corners(t) {
		box = box.Extend(c)
	}
	return box
}

// Triangles implements Shape.
func (b *Box) Triangles(t Transform, fn func(a, b, c mgl32.Vec3)) {
	corners := b.corners(t)
	for _, f := range boxFaces {
		fn(corners[f[0]], corners[f[1]], corners[f[2]])
	}
}

// TriangleMesh is an indexed triangle soup, e.g. static terrain or a building.
type TriangleMesh struct {
	Vertices []mgl32.Vec3
	Indices  []int32
}

// NewTriangleMesh creates a triangle mesh shape.
// Panics if the index count is not a multiple of 3 or an index is out of range.
func NewTriangleMesh(vertices []mgl32.Vec3, indices []int32) *TriangleMesh {
	if len(indices)%3 != 0 {
		panic(fmt.Sprintf("triangle mesh: index count %d is not a multiple of 3", len(indices)))
	}
	for _, idx := range indices {
		if idx < 0 || int(idx) >= len(vertices) {
			panic(fmt.Sprintf("triangle mesh: index %d out of range [0, %d)", idx, len(vertices)))
		}
	}
	return &TriangleMesh{Vertices: vertices, Indices: indices}
}

// AABB implements Shape.
func (m *TriangleMesh) AABB(t Transform) AABB {
	box := EmptyAABB()
	for _, v := range m.Vertices {
		box = box.Extend(t.Apply(v))
	}
	return box
}

// Triangles implements Shape.
func (m *TriangleMesh) Triangles(t Transform, fn func(a, b, c mgl32.Vec3)) {
	for i := 0; i+2 < len(m.Indices); i += 3 {
		fn(t.Apply(m.Vertices[m.Indices[i]]),
			t.Apply(m.Vertices[m.Indices[i+1]]),
			t.Apply(m.Vertices[m.Indices[i+2]]))
	}
}

// Compound groups child shapes, each with its own local transform.
// Child transforms may be changed after creation (animated doors, platforms);
// the child count is expected to stay fixed once the shape is handed to the navigator.
type Compound struct {
	mu       sync.RWMutex
	children []compoundChild
}

type compoundChild struct {
	transform Transform
	shape     Shape
}

// NewCompound creates an empty compound shape.
func NewCompound() *Compound {
	return &Compound{}
}

// AddChild appends a child shape.
func (c *Compound) AddChild(transform Transform, shape Shape) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.children = append(c.children, compoundChild{transform: transform, shape: shape})
}

// UpdateChildTransform replaces the local transform of child i.
func (c *Compound) UpdateChildTransform(i int, transform Transform) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.children[i].transform = transform
}

// NumChildren returns the number of children.
func (c *Compound) NumChildren() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.children)
}

// ChildTransform returns the local transform of child i.
func (c *Compound) ChildTransform(i int) Transform {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.children[i].transform
}

// ChildShape returns the shape of child i.
func (c *Compound) ChildShape(i int) Shape {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.children[i].shape
}

// AABB implements Shape.
func (c *Compound) AABB(t Transform) AABB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	box := EmptyAABB()
	for _, child := range c.children {
		box = box.Union(child.shape.AABB(t.Mul(child.transform)))
	}
	return box
}

// Triangles implements Shape.
func (c *Compound) Triangles(t Transform, fn func(a, b, c mgl32.Vec3)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, child := range c.children {
		child.shape.Triangles(t.Mul(child.transform), fn)
	}
}
