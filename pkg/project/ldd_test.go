package project

import (
	"errors"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/lddmodder/brickedit/pkg/geom"
	"github.com/lddmodder/brickedit/pkg/lddenv"
)

type fakeEnv struct {
	prim     *lddenv.Primitive
	surfaces []lddenv.SurfaceMesh
}

func (e fakeEnv) Primitive(partID int) (*lddenv.Primitive, error) {
	if e.prim == nil || e.prim.PartID != partID {
		return nil, lddenv.ErrNotFound
	}
	return e.prim, nil
}

func (e fakeEnv) SurfaceMeshes(int) ([]lddenv.SurfaceMesh, error) {
	return e.surfaces, nil
}

// twoQuads joins two quads into one geometry with 12 indices.
func twoQuads(textured bool) *geom.Geometry {
	a, b := geom.Quad(2, textured), geom.Quad(1, textured)
	g := a.Clone()
	off := len(g.Vertices)
	g.Vertices = append(g.Vertices, b.Vertices...)
	for _, i := range b.Indices {
		g.Indices = append(g.Indices, i+off)
	}
	return g
}

func sampleEnv() fakeEnv {
	return fakeEnv{
		prim: &lddenv.Primitive{
			PartID:       3020,
			Name:         "Plate 2 x 4",
			Aliases:      []int{3020},
			PartVersion:  2,
			VersionMajor: 1,
			Collisions: []lddenv.Collision{
				{Shape: "Box", Size: v3.Vec{X: 1.6, Y: 0.16, Z: 0.8}},
			},
			Connectors: []lddenv.Connector{
				{Type: "Axel", Length: 1},
				{Type: "Custom2DField", Width: 8, Height: 4, FieldData: "0:4,0"},
				{Type: "Warp"},
			},
			FlexBones: []lddenv.FlexBone{
				{ID: 0, Connectors: []lddenv.Connector{{Type: "Ball"}}},
			},
			SurfaceMaterials: []int{7},
		},
		surfaces: []lddenv.SurfaceMesh{
			{
				SurfaceID: 0,
				Geometry:  twoQuads(false),
				Cullings: []lddenv.Culling{
					{Type: lddenv.CullingMain, IndexStart: 0, IndexCount: 6, StudConnectorIndex: -1},
					{Type: lddenv.CullingStud, IndexStart: 6, IndexCount: 6, StudConnectorIndex: 1},
				},
			},
			{
				SurfaceID: 1,
				Geometry:  geom.Quad(1, true),
				Cullings: []lddenv.Culling{
					{Type: lddenv.CullingMain, IndexStart: 0, IndexCount: 6, StudConnectorIndex: -1},
				},
			},
		},
	}
}

func TestCreateFromLddPart(t *testing.T) {
	p, err := CreateFromLddPart(sampleEnv(), 3020)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if p.PartID != 3020 || p.Description != "Plate 2 x 4" || p.PartVersion != 2 {
		t.Errorf("metadata = %d %q v%d", p.PartID, p.Description, p.PartVersion)
	}
	if !p.Decorated || !p.Flexible {
		t.Errorf("decorated=%v flexible=%v, want both", p.Decorated, p.Flexible)
	}
	if p.IsLoading() {
		t.Error("project should not be loading after import")
	}
	if got := p.Connections.Len(); got != 2 {
		t.Errorf("got %d connections, want 2 (unknown type skipped)", got)
	}
	if p.Surfaces.Len() != 2 || p.Meshes.Len() != 3 {
		t.Fatalf("got %d surfaces and %d meshes", p.Surfaces.Len(), p.Meshes.Len())
	}
	if mat := p.Surfaces.At(1).MaterialIndex; mat != 7 {
		t.Errorf("decoration material = %d, want 7", mat)
	}

	stud := p.MainSurface().Components.At(1)
	if stud.ComponentType != ComponentMaleStud {
		t.Fatalf("component type = %s", stud.ComponentType)
	}
	if linked := p.LinkedConnection(stud); linked != p.Connections.At(1) {
		t.Errorf("stud linked to %v, want the Custom2DField", linked)
	}
	if p.MainSurface().Components.At(0).ConnectionIndex != -1 {
		t.Error("part component should carry no connection index")
	}

	for _, r := range p.MainSurface().MeshRefs() {
		m := r.Mesh()
		if m == nil {
			t.Fatalf("mesh ref %s does not resolve", r.Name)
		}
		if m.TriangleCount() != 2 || m.FileName == "" {
			t.Errorf("mesh %s: %d triangles, file %q", m.Name, m.TriangleCount(), m.FileName)
		}
	}
	if !p.Meshes.At(2).IsTextured() {
		t.Error("decoration mesh should be textured")
	}

	assertUnique(t, p)
	if msgs := p.ValidatePart(); HasErrors(msgs) {
		t.Errorf("imported part has errors: %v", msgs)
	}
}

func TestCreateFromLddPartIsDeterministic(t *testing.T) {
	ids := func() []string {
		p, err := CreateFromLddPart(sampleEnv(), 3020)
		if err != nil {
			t.Fatalf("import: %v", err)
		}
		var out []string
		for _, e := range p.AllElements() {
			out = append(out, e.Base().ID)
		}
		return out
	}
	first, second := ids(), ids()
	if len(first) != len(second) {
		t.Fatalf("element counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("element %d: %s vs %s", i, first[i], second[i])
		}
	}
	if first[0] != DeterministicID(3020, 0) {
		t.Errorf("first ID = %s, want %s", first[0], DeterministicID(3020, 0))
	}
}

func TestCreateFromLddPartErrors(t *testing.T) {
	if _, err := CreateFromLddPart(sampleEnv(), 1); !errors.Is(err, lddenv.ErrNotFound) {
		t.Errorf("missing part: err = %v", err)
	}

	env := sampleEnv()
	env.prim.Collisions = append(env.prim.Collisions, lddenv.Collision{Shape: "Cone"})
	if _, err := CreateFromLddPart(env, 3020); err == nil {
		t.Error("unknown collision shape should fail the import")
	}
}
