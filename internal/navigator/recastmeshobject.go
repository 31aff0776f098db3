package navigator

import (
	"fmt"

	"github.com/udisondev/navgo/internal/collision"
)

// RecastMeshObject remembers the last transform an object was registered with,
// so an update can tell whether its geometry actually moved.
// For compound shapes it mirrors every child, recursively.
type RecastMeshObject struct {
	shape     collision.Shape
	transform collision.Transform
	areaType  AreaType
	children  []RecastMeshObject
}

// NewRecastMeshObject captures the current state of shape placed by transform.
func NewRecastMeshObject(shape collision.Shape, transform collision.Transform, areaType AreaType) RecastMeshObject {
	return RecastMeshObject{
		shape:     shape,
		transform: transform,
		areaType:  areaType,
		children:  makeChildrenObjects(shape, areaType),
	}
}

func makeChildrenObjects(shape collision.Shape, areaType AreaType) []RecastMeshObject {
	compound, ok := shape.(*collision.Compound)
	if !ok {
		return nil
	}
	n := compound.NumChildren()
	children := make([]RecastMeshObject, 0, n)
	for i := range n {
		children = append(children, NewRecastMeshObject(compound.ChildShape(i), compound.ChildTransform(i), areaType))
	}
	return children
}

// Update stores the new transform and area type and reports whether anything
// the geometry depends on has changed since the previous call.
// Panics if a compound shape gained or lost children.
func (o *RecastMeshObject) Update(transform collision.Transform, areaType AreaType) bool {
	changed := false
	if o.transform != transform {
		o.transform = transform
		changed = true
	}
	if o.areaType != areaType {
		o.areaType = areaType
		changed = true
	}
	if compound, ok := o.shape.(*collision.Compound); ok {
		changed = updateCompoundObject(compound, areaType, o.children) || changed
	}
	return changed
}

func updateCompoundObject(compound *collision.Compound, areaType AreaType, children []RecastMeshObject) bool {
	if n := compound.NumChildren(); n != len(children) {
		panic(fmt.Sprintf("compound shape children count changed: was %d, now %d", len(children), n))
	}
	changed := false
	for i := range children {
		changed = children[i].Update(compound.ChildTransform(i), areaType) || changed
	}
	return changed
}

// Shape returns the registered shape.
func (o *RecastMeshObject) Shape() collision.Shape {
	return o.shape
}

// Transform returns the last registered transform.
func (o *RecastMeshObject) Transform() collision.Transform {
	return o.transform
}

// AreaType returns the last registered area type.
func (o *RecastMeshObject) AreaType() AreaType {
	return o.areaType
}

// RemovedRecastMeshObject describes an object taken out of a tile.
type RemovedRecastMeshObject struct {
	Shape     collision.Shape
	Transform collision.Transform
	AreaType  AreaType
}
