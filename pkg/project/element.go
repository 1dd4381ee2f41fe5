package project

import (
	"fmt"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Element is a node of the part project tree. The set of implementations is
// closed; use a type switch or Kind to dispatch.
type Element interface {
	Kind() ElementKind
	Base() *ElementBase
	// ChildCollections returns the collections the element owns, in
	// traversal order.
	ChildCollections() []ElementCollection
	sealed()
}

// ElementBase holds the state shared by every element. The back-references
// are non-owning and are written only by the collection that holds the
// element: project is set for members of a project-rooted collection,
// parent for members of an element-owned one.
type ElementBase struct {
	ID   string
	Name string

	project *PartProject
	parent  Element
}

func (b *ElementBase) Base() *ElementBase { return b }

// Parent returns the owning element, or nil for top-level and detached
// elements.
func (b *ElementBase) Parent() Element { return b.parent }

// Project resolves the owning project through the parent chain. Detached
// elements return nil.
func (b *ElementBase) Project() *PartProject {
	if b.project != nil {
		return b.project
	}
	if b.parent != nil {
		return b.parent.Base().Project()
	}
	return nil
}

// ----------------------------------------------------------------------------
// Enums
// ----------------------------------------------------------------------------

// ComponentType distinguishes the model component from culling components.
type ComponentType int

const (
	ComponentPart ComponentType = iota
	ComponentMaleStud
	ComponentFemaleStud
	ComponentBrickTube
)

var componentTypeNames = [...]string{"Part", "MaleStud", "FemaleStud", "BrickTube"}

func (t ComponentType) String() string {
	if t >= 0 && int(t) < len(componentTypeNames) {
		return componentTypeNames[t]
	}
	return fmt.Sprintf("ComponentType(%d)", int(t))
}

// ParseComponentType is the inverse of ComponentType.String.
func ParseComponentType(s string) (ComponentType, error) {
	for i, n := range componentTypeNames {
		if n == s {
			return ComponentType(i), nil
		}
	}
	return 0, fmt.Errorf("project: unknown component type %q", s)
}

// ConnectorType enumerates LDD connector families.
type ConnectorType int

const (
	ConnectorAxel ConnectorType = iota
	ConnectorBall
	ConnectorCustom2DField
	ConnectorFixed
	ConnectorGear
	ConnectorHinge
	ConnectorRail
	ConnectorSlider
)

var connectorTypeNames = [...]string{
	"Axel", "Ball", "Custom2DField", "Fixed", "Gear", "Hinge", "Rail", "Slider",
}

func (t ConnectorType) String() string {
	if t >= 0 && int(t) < len(connectorTypeNames) {
		return connectorTypeNames[t]
	}
	return fmt.Sprintf("ConnectorType(%d)", int(t))
}

// ParseConnectorType accepts the names produced by String in any case, so
// LDD element names ("custom2DField") also parse.
func ParseConnectorType(s string) (ConnectorType, error) {
	for i, n := range connectorTypeNames {
		if strings.EqualFold(n, s) {
			return ConnectorType(i), nil
		}
	}
	return 0, fmt.Errorf("project: unknown connector type %q", s)
}

// CollisionType is the shape of a collision volume.
type CollisionType int

const (
	CollisionBox CollisionType = iota
	CollisionSphere
)

func (t CollisionType) String() string {
	switch t {
	case CollisionBox:
		return "Box"
	case CollisionSphere:
		return "Sphere"
	default:
		return fmt.Sprintf("CollisionType(%d)", int(t))
	}
}

// ParseCollisionType is the inverse of CollisionType.String.
func ParseCollisionType(s string) (CollisionType, error) {
	switch strings.ToLower(s) {
	case "box":
		return CollisionBox, nil
	case "sphere":
		return CollisionSphere, nil
	}
	return 0, fmt.Errorf("project: unknown collision type %q", s)
}

// ----------------------------------------------------------------------------
// Concrete elements
// ----------------------------------------------------------------------------

// PartSurface is one renderable layer. Surface 0 is the main body; higher
// surfaces are decorations.
type PartSurface struct {
	ElementBase
	SurfaceID     int
	MaterialIndex int
	Components    *Collection[*SurfaceComponent]
}

func NewSurface(surfaceID, materialIndex int) *PartSurface {
	s := &PartSurface{SurfaceID: surfaceID, MaterialIndex: materialIndex}
	s.Components = newElementCollection[*SurfaceComponent](s, KindComponent)
	return s
}

func (s *PartSurface) Kind() ElementKind { return KindSurface }
func (s *PartSurface) ChildCollections() []ElementCollection {
	return []ElementCollection{s.Components}
}
func (*PartSurface) sealed() {}

// IsDecoration reports whether the surface is a decoration layer.
func (s *PartSurface) IsDecoration() bool { return s.SurfaceID > 0 }

// MeshRefs returns every mesh reference of every component, replacement
// meshes included.
func (s *PartSurface) MeshRefs() []*MeshReference {
	var out []*MeshReference
	for _, c := range s.Components.Items() {
		out = append(out, c.AllMeshRefs()...)
	}
	return out
}

// SurfaceComponent groups mesh references. Non-Part components are culling
// components and refer to a Custom2DField connection by index and ID.
type SurfaceComponent struct {
	ElementBase
	ComponentType     ComponentType
	ConnectionID      string
	ConnectionIndex   int
	Meshes            *Collection[*MeshReference]
	ReplacementMeshes *Collection[*MeshReference] // alternate meshes for female studs
}

func NewComponent(t ComponentType) *SurfaceComponent {
	c := &SurfaceComponent{ComponentType: t, ConnectionIndex: -1}
	c.Meshes = newElementCollection[*MeshReference](c, KindMeshRef)
	c.ReplacementMeshes = newElementCollection[*MeshReference](c, KindMeshRef)
	return c
}

func (c *SurfaceComponent) Kind() ElementKind { return KindComponent }
func (c *SurfaceComponent) ChildCollections() []ElementCollection {
	return []ElementCollection{c.Meshes, c.ReplacementMeshes}
}
func (*SurfaceComponent) sealed() {}

// IsCulling reports whether the component carries a connection reference.
func (c *SurfaceComponent) IsCulling() bool { return c.ComponentType != ComponentPart }

// Surface returns the owning surface, if any.
func (c *SurfaceComponent) Surface() *PartSurface {
	s, _ := c.parent.(*PartSurface)
	return s
}

// AllMeshRefs returns Meshes followed by ReplacementMeshes.
func (c *SurfaceComponent) AllMeshRefs() []*MeshReference {
	return append(c.Meshes.Items(), c.ReplacementMeshes.Items()...)
}

// MeshReference links a component to a mesh of the project pool. Several
// references may share one mesh.
type MeshReference struct {
	ElementBase
	MeshID    string
	Transform ItemTransform
}

func NewMeshRef(meshID string) *MeshReference {
	return &MeshReference{MeshID: meshID}
}

func (r *MeshReference) Kind() ElementKind                     { return KindMeshRef }
func (r *MeshReference) ChildCollections() []ElementCollection { return nil }
func (*MeshReference) sealed()                                 {}

// Mesh resolves the referenced pool mesh, or nil if it is dangling or the
// reference is detached.
func (r *MeshReference) Mesh() *ModelMesh {
	p := r.Project()
	if p == nil {
		return nil
	}
	return p.MeshByID(r.MeshID)
}

// PartConnection is a connector. Length applies to axles, sliders and
// rails; Width, Height and FieldData to Custom2DField grids.
type PartConnection struct {
	ElementBase
	ConnectorType ConnectorType
	SubType       int
	Transform     ItemTransform
	Length        float64
	Width         int
	Height        int
	FieldData     string
}

func NewConnection(t ConnectorType) *PartConnection {
	return &PartConnection{ConnectorType: t}
}

func (c *PartConnection) Kind() ElementKind                     { return KindConnection }
func (c *PartConnection) ChildCollections() []ElementCollection { return nil }
func (*PartConnection) sealed()                                 {}

// PartCollision is a collision volume. Size holds box half-extents; Radius
// applies to spheres.
type PartCollision struct {
	ElementBase
	CollisionType CollisionType
	Size          v3.Vec
	Radius        float64
	Transform     ItemTransform
}

func NewBoxCollision(size v3.Vec) *PartCollision {
	return &PartCollision{CollisionType: CollisionBox, Size: size}
}

func NewSphereCollision(radius float64) *PartCollision {
	return &PartCollision{CollisionType: CollisionSphere, Radius: radius}
}

func (c *PartCollision) Kind() ElementKind                     { return KindCollision }
func (c *PartCollision) ChildCollections() []ElementCollection { return nil }
func (*PartCollision) sealed()                                 {}

// PartBone is a flex bone with its own connections and collisions.
type PartBone struct {
	ElementBase
	BoneID      int
	Transform   ItemTransform
	Connections *Collection[*PartConnection]
	Collisions  *Collection[*PartCollision]
}

func NewBone(boneID int) *PartBone {
	b := &PartBone{BoneID: boneID}
	b.Connections = newElementCollection[*PartConnection](b, KindConnection)
	b.Collisions = newElementCollection[*PartCollision](b, KindCollision)
	return b
}

func (b *PartBone) Kind() ElementKind { return KindBone }
func (b *PartBone) ChildCollections() []ElementCollection {
	return []ElementCollection{b.Connections, b.Collisions}
}
func (*PartBone) sealed() {}
