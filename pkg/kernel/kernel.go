// Package kernel defines the solid modeling interface used to turn
// collision volumes into preview meshes. The sdfx subpackage provides the
// implementation; the interface keeps tessellation independent of it.
package kernel

import (
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/lddmodder/brickedit/pkg/geom"
)

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// Bounds returns the axis-aligned bounding box.
	Bounds() sdf.Box3
}

// Kernel builds solids and tessellates them.
type Kernel interface {
	// Primitives, centered on the origin. Box takes full extents.
	Box(size v3.Vec) Solid
	Sphere(radius float64) Solid

	Union(solids ...Solid) Solid

	// Transforms
	Translate(s Solid, offset v3.Vec) Solid
	Rotate(s Solid, euler v3.Vec) Solid // degrees, applied X then Y then Z

	ToMesh(s Solid) (*geom.Geometry, error)
}
