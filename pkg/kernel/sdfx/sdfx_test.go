package sdfx

import (
	"math"
	"testing"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// boundsNear compares boxes with a tolerance of one marching cubes cell.
func boundsNear(t *testing.T, got, want sdf.Box3, tol float64) {
	t.Helper()
	check := func(name string, a, b float64) {
		if math.Abs(a-b) > tol {
			t.Errorf("%s = %.3f, want %.3f (±%.3f)", name, a, b, tol)
		}
	}
	check("min.x", got.Min.X, want.Min.X)
	check("min.y", got.Min.Y, want.Min.Y)
	check("min.z", got.Min.Z, want.Min.Z)
	check("max.x", got.Max.X, want.Max.X)
	check("max.y", got.Max.Y, want.Max.Y)
	check("max.z", got.Max.Z, want.Max.Z)
}

func TestBox(t *testing.T) {
	k := New()
	box := k.Box(v3.Vec{X: 2, Y: 1, Z: 0.5})
	mesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() || mesh.TriangleCount() == 0 {
		t.Fatal("mesh is empty")
	}
	if len(mesh.Indices) != mesh.TriangleCount()*3 || len(mesh.Vertices) != len(mesh.Indices) {
		t.Fatalf("inconsistent buffers: %d vertices, %d indices", len(mesh.Vertices), len(mesh.Indices))
	}
	want := sdf.Box3{Min: v3.Vec{X: -1, Y: -0.5, Z: -0.25}, Max: v3.Vec{X: 1, Y: 0.5, Z: 0.25}}
	boundsNear(t, mesh.Bounds(), want, 2.0/DefaultMeshCells*2)
}

func TestSphere(t *testing.T) {
	k := New(WithMeshCells(32))
	mesh, err := k.ToMesh(k.Sphere(1))
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	for i, v := range mesh.Vertices {
		if d := v.Position.Length(); math.Abs(d-1) > 0.1 {
			t.Fatalf("vertex %d at distance %.3f from the center", i, d)
		}
	}
}

func TestTranslateAndRotate(t *testing.T) {
	k := New()
	box := k.Box(v3.Vec{X: 2, Y: 0.5, Z: 0.5})

	moved := k.Translate(box, v3.Vec{X: 10})
	b := moved.Bounds()
	if math.Abs(b.Min.X-9) > 1e-9 || math.Abs(b.Max.X-11) > 1e-9 {
		t.Errorf("translated bounds x = [%v, %v], want [9, 11]", b.Min.X, b.Max.X)
	}

	turned := k.Rotate(box, v3.Vec{Z: 90})
	mesh, err := k.ToMesh(turned)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	mb := mesh.Bounds()
	if w, h := mb.Max.X-mb.Min.X, mb.Max.Y-mb.Min.Y; w > h {
		t.Errorf("rotating 90° about Z should swap X and Y extents, got %.2f x %.2f", w, h)
	}
}

func TestUnion(t *testing.T) {
	k := New()
	a := k.Box(v3.Vec{X: 1, Y: 1, Z: 1})
	b := k.Translate(k.Sphere(0.5), v3.Vec{X: 3})
	if got := k.Union(a); got != a {
		t.Error("union of one solid should return it")
	}
	u := k.Union(a, b)
	bb := u.Bounds()
	if bb.Min.X > -0.5 || bb.Max.X < 3.5 {
		t.Errorf("union bounds x = [%v, %v]", bb.Min.X, bb.Max.X)
	}

	defer func() {
		if recover() == nil {
			t.Error("empty union should panic")
		}
	}()
	k.Union()
}
