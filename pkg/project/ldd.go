package project

import (
	"fmt"
	"slices"

	"github.com/deadsy/sdfx/sdf"
	"github.com/samber/lo"

	"github.com/lddmodder/brickedit/pkg/lddenv"
)

func transformFromLDD(t lddenv.Transform) ItemTransform {
	return TransformFromAxisAngle(t.Angle, t.Axis, t.Translation)
}

func collisionFromLDD(c lddenv.Collision) (*PartCollision, error) {
	t, err := ParseCollisionType(c.Shape)
	if err != nil {
		return nil, err
	}
	return &PartCollision{
		CollisionType: t,
		Size:          c.Size,
		Radius:        c.Radius,
		Transform:     transformFromLDD(c.Transform),
	}, nil
}

func connectionFromLDD(c lddenv.Connector) (*PartConnection, error) {
	t, err := ParseConnectorType(c.Type)
	if err != nil {
		return nil, err
	}
	return &PartConnection{
		ConnectorType: t,
		SubType:       c.SubType,
		Transform:     transformFromLDD(c.Transform),
		Length:        c.Length,
		Width:         c.Width,
		Height:        c.Height,
		FieldData:     c.FieldData,
	}, nil
}

var cullingComponentTypes = map[lddenv.CullingType]ComponentType{
	lddenv.CullingMain:       ComponentPart,
	lddenv.CullingStud:       ComponentMaleStud,
	lddenv.CullingFemaleStud: ComponentFemaleStud,
	lddenv.CullingTube:       ComponentBrickTube,
}

func cloneBox(b *sdf.Box3) *sdf.Box3 {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

// CreateFromLddPart builds a project from the primitive and surface meshes
// of an LDD part. IDs are deterministic so re-importing a part reproduces
// them; names are generated and culling components linked afterwards.
func CreateFromLddPart(env lddenv.Environment, partID int, opts ...Option) (*PartProject, error) {
	prim, err := env.Primitive(partID)
	if err != nil {
		return nil, err
	}
	surfaces, err := env.SurfaceMeshes(partID)
	if err != nil {
		return nil, err
	}

	p := New(opts...)
	p.loading = true
	defer func() { p.loading = false }()

	p.PartID = partID
	p.Description = prim.Name
	p.PartVersion = max(prim.PartVersion, 1)
	p.PrimitiveVersion = Version{Major: prim.VersionMajor, Minor: prim.VersionMinor}
	p.Aliases = slices.Clone(prim.Aliases)
	p.Flexible = len(prim.FlexBones) > 0
	p.Decorated = lo.ContainsBy(surfaces, func(s lddenv.SurfaceMesh) bool { return s.SurfaceID > 0 })
	if c := prim.Platform; c != nil {
		p.Platform = &Category{ID: c.ID, Name: c.Name}
	}
	if c := prim.MainGroup; c != nil {
		p.MainGroup = &Category{ID: c.ID, Name: c.Name}
	}
	if ph := prim.Physics; ph != nil {
		p.PhysicsAttributes = &PhysicsAttributes{
			InertiaTensor: ph.InertiaTensor,
			CenterOfMass:  ph.CenterOfMass,
			Mass:          ph.Mass,
			FrictionType:  ph.FrictionType,
		}
	}
	p.Bounding = cloneBox(prim.Bounding)
	p.GeometryBounding = cloneBox(prim.GeometryBounding)
	if t := prim.DefaultOrientation; t != nil {
		tr := transformFromLDD(*t)
		p.DefaultOrientation = &tr
	}

	for _, c := range prim.Collisions {
		col, err := collisionFromLDD(c)
		if err != nil {
			return nil, fmt.Errorf("project: import part %d: %w", partID, err)
		}
		p.Collisions.Add(col)
	}
	for _, c := range prim.Connectors {
		conn, err := connectionFromLDD(c)
		if err != nil {
			p.log.Warnw("skipping connector", "part", partID, "type", c.Type, "error", err)
			continue
		}
		p.Connections.Add(conn)
	}
	for _, fb := range prim.FlexBones {
		bone := NewBone(fb.ID)
		bone.Transform = transformFromLDD(fb.Transform)
		for _, c := range fb.Collisions {
			col, err := collisionFromLDD(c)
			if err != nil {
				return nil, fmt.Errorf("project: import part %d bone %d: %w", partID, fb.ID, err)
			}
			bone.Collisions.Add(col)
		}
		for _, c := range fb.Connectors {
			conn, err := connectionFromLDD(c)
			if err != nil {
				p.log.Warnw("skipping bone connector", "part", partID, "bone", fb.ID, "type", c.Type, "error", err)
				continue
			}
			bone.Connections.Add(conn)
		}
		p.Bones.Add(bone)
	}

	// Mesh references are bound to their meshes once IDs exist.
	refs := make(map[*MeshReference]*ModelMesh)
	for _, sm := range surfaces {
		surf := NewSurface(sm.SurfaceID, prim.SurfaceMaterialIndex(sm.SurfaceID))
		for _, cull := range sm.Cullings {
			comp := NewComponent(cullingComponentTypes[cull.Type])
			if comp.IsCulling() {
				comp.ConnectionIndex = cull.StudConnectorIndex
			}
			mesh := NewMesh(sm.CullingGeometry(cull))
			p.Meshes.Add(mesh)
			ref := NewMeshRef("")
			refs[ref] = mesh
			comp.Meshes.Add(ref)
			surf.Components.Add(comp)
		}
		p.Surfaces.Add(surf)
	}

	p.loading = false
	p.GenerateElementIDs(true)
	for ref, mesh := range refs {
		ref.MeshID = mesh.ID
	}
	p.GenerateElementNames()
	p.LinkConnections()
	p.GenerateMeshFileNames()
	return p, nil
}
