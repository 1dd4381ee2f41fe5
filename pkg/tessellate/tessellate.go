// Package tessellate turns a project's collision volumes into preview
// meshes using a solid kernel. One mesh is produced per collision, bone
// collisions included.
package tessellate

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/lddmodder/brickedit/pkg/geom"
	"github.com/lddmodder/brickedit/pkg/kernel"
	"github.com/lddmodder/brickedit/pkg/project"
)

// Preview is the tessellated volume of one collision.
type Preview struct {
	ElementID string
	Name      string
	BoneID    int // -1 for part-level collisions
	Geometry  *geom.Geometry
}

// transformStack holds the placements enclosing the current element,
// outermost first.
type transformStack struct {
	items []project.ItemTransform
}

func (ts *transformStack) push(t project.ItemTransform) { ts.items = append(ts.items, t) }
func (ts *transformStack) pop()                         { ts.items = ts.items[:len(ts.items)-1] }

// place applies the innermost transform first: each rotation, then its
// translation.
func (ts *transformStack) place(k kernel.Kernel, s kernel.Solid) kernel.Solid {
	for i := len(ts.items) - 1; i >= 0; i-- {
		t := ts.items[i]
		if t.Rotation != (v3.Vec{}) {
			s = k.Rotate(s, t.Rotation)
		}
		if t.Position != (v3.Vec{}) {
			s = k.Translate(s, t.Position)
		}
	}
	return s
}

// Solid builds the placed solid of a collision. Box sizes are half
// extents.
func Solid(k kernel.Kernel, c *project.PartCollision) (kernel.Solid, error) {
	ts := &transformStack{}
	if b, ok := c.Parent().(*project.PartBone); ok {
		ts.push(b.Transform)
	}
	ts.push(c.Transform)
	return collisionSolid(k, c, ts)
}

func collisionSolid(k kernel.Kernel, c *project.PartCollision, ts *transformStack) (kernel.Solid, error) {
	var s kernel.Solid
	switch c.CollisionType {
	case project.CollisionBox:
		if c.Size.X <= 0 || c.Size.Y <= 0 || c.Size.Z <= 0 {
			return nil, fmt.Errorf("tessellate: box %s has non-positive size %v", c.ID, c.Size)
		}
		s = k.Box(c.Size.MulScalar(2))
	case project.CollisionSphere:
		if c.Radius <= 0 {
			return nil, fmt.Errorf("tessellate: sphere %s has non-positive radius %v", c.ID, c.Radius)
		}
		s = k.Sphere(c.Radius)
	default:
		return nil, fmt.Errorf("tessellate: collision %s has unsupported type %s", c.ID, c.CollisionType)
	}
	return ts.place(k, s), nil
}

func preview(k kernel.Kernel, c *project.PartCollision, boneID int, ts *transformStack) (Preview, error) {
	ts.push(c.Transform)
	defer ts.pop()
	s, err := collisionSolid(k, c, ts)
	if err != nil {
		return Preview{}, err
	}
	g, err := k.ToMesh(s)
	if err != nil {
		return Preview{}, fmt.Errorf("tessellate: ToMesh failed for %s: %w", c.ID, err)
	}
	name := c.Name
	if name == "" {
		name = c.ID
	}
	return Preview{ElementID: c.ID, Name: name, BoneID: boneID, Geometry: g}, nil
}

// Collisions tessellates every collision of p in traversal order. It never
// mutates the project.
func Collisions(p *project.PartProject, k kernel.Kernel) ([]Preview, error) {
	if p == nil {
		return nil, nil
	}
	ts := &transformStack{}
	var out []Preview
	for _, c := range p.Collisions.Items() {
		pv, err := preview(k, c, -1, ts)
		if err != nil {
			return nil, err
		}
		out = append(out, pv)
	}
	for _, b := range p.Bones.Items() {
		ts.push(b.Transform)
		for _, c := range b.Collisions.Items() {
			pv, err := preview(k, c, b.BoneID, ts)
			if err != nil {
				ts.pop()
				return nil, fmt.Errorf("tessellate: bone %d: %w", b.BoneID, err)
			}
			out = append(out, pv)
		}
		ts.pop()
	}
	return out, nil
}

// Merged tessellates the union of every collision into one mesh. A project
// without collisions yields nil.
func Merged(p *project.PartProject, k kernel.Kernel) (*geom.Geometry, error) {
	var solids []kernel.Solid
	for _, c := range p.AllCollisions() {
		s, err := Solid(k, c)
		if err != nil {
			return nil, err
		}
		solids = append(solids, s)
	}
	if len(solids) == 0 {
		return nil, nil
	}
	return k.ToMesh(k.Union(solids...))
}
