// Package sdfx implements kernel.Kernel with the github.com/deadsy/sdfx
// SDF library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/lddmodder/brickedit/pkg/geom"
	"github.com/lddmodder/brickedit/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Kernel = (*Kernel)(nil)

// DefaultMeshCells is the marching cubes resolution along the longest axis.
const DefaultMeshCells = 48

type solid struct {
	s sdf.SDF3
}

func (s *solid) Bounds() sdf.Box3 { return s.s.BoundingBox() }

// Kernel implements kernel.Kernel using sdfx.
type Kernel struct {
	cells int
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithMeshCells sets the marching cubes resolution.
func WithMeshCells(n int) Option {
	return func(k *Kernel) {
		if n > 0 {
			k.cells = n
		}
	}
}

func New(opts ...Option) *Kernel {
	k := &Kernel{cells: DefaultMeshCells}
	for _, o := range opts {
		o(k)
	}
	return k
}

func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*solid).s
}

func wrap(s sdf.SDF3) kernel.Solid {
	return &solid{s: s}
}

// Box creates a box of the given full extents centered on the origin.
func (k *Kernel) Box(size v3.Vec) kernel.Solid {
	s, err := sdf.Box3D(size, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	return wrap(s)
}

// Sphere creates a sphere centered on the origin.
func (k *Kernel) Sphere(radius float64) kernel.Solid {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Sphere3D: %v", err))
	}
	return wrap(s)
}

// Union merges solids. It panics when called without any.
func (k *Kernel) Union(solids ...kernel.Solid) kernel.Solid {
	if len(solids) == 0 {
		panic("sdfx.Union: no solids")
	}
	if len(solids) == 1 {
		return solids[0]
	}
	parts := make([]sdf.SDF3, len(solids))
	for i, s := range solids {
		parts[i] = unwrap(s)
	}
	return wrap(sdf.Union3D(parts...))
}

func (k *Kernel) Translate(s kernel.Solid, offset v3.Vec) kernel.Solid {
	return wrap(sdf.Transform3D(unwrap(s), sdf.Translate3d(offset)))
}

// Rotate rotates by Euler angles in degrees, X first.
func (k *Kernel) Rotate(s kernel.Solid, euler v3.Vec) kernel.Solid {
	const deg = math.Pi / 180
	m := sdf.RotateZ(euler.Z * deg).Mul(sdf.RotateY(euler.Y * deg)).Mul(sdf.RotateX(euler.X * deg))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// ToMesh tessellates a solid with marching cubes. Every triangle gets its
// own three vertices carrying the face normal.
func (k *Kernel) ToMesh(s kernel.Solid) (*geom.Geometry, error) {
	triangles := render.ToTriangles(unwrap(s), render.NewMarchingCubesUniform(k.cells))
	if len(triangles) == 0 {
		return nil, fmt.Errorf("sdfx: tessellation produced no triangles")
	}

	g := &geom.Geometry{
		Vertices: make([]geom.Vertex, 0, len(triangles)*3),
		Indices:  make([]int, 0, len(triangles)*3),
	}
	for _, tri := range triangles {
		n := tri.Normal()
		for j := 0; j < 3; j++ {
			g.Indices = append(g.Indices, len(g.Vertices))
			g.Vertices = append(g.Vertices, geom.Vertex{Position: tri[j], Normal: n})
		}
	}
	return g, nil
}
