package project

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ----------------------------------------------------------------------------
// Manifest documents
// ----------------------------------------------------------------------------

type manifestXML struct {
	XMLName     xml.Name       `xml:"LDDPART"`
	Properties  propertiesXML  `xml:"Properties"`
	Surfaces    surfacesXML    `xml:"ModelSurfaces"`
	Collisions  collisionsXML  `xml:"Collisions"`
	Connections connectionsXML `xml:"Connections"`
	Bones       *bonesXML      `xml:"Bones"`
	Meshes      *meshesXML     `xml:"Meshes"`
}

type propertiesXML struct {
	PartID             int           `xml:"PartID"`
	Aliases            string        `xml:"Aliases,omitempty"`
	Description        string        `xml:"Description"`
	PartVersion        int           `xml:"PartVersion"`
	PrimitiveVersion   *versionXML   `xml:"PrimitiveVersion"`
	Flexible           bool          `xml:"Flexible"`
	Decorated          bool          `xml:"Decorated"`
	Platform           *categoryXML  `xml:"Platform"`
	MainGroup          *categoryXML  `xml:"MainGroup"`
	PhysicsAttributes  *physicsXML   `xml:"PhysicsAttributes"`
	Bounding           *boxXML       `xml:"Bounding"`
	GeometryBounding   *boxXML       `xml:"GeometryBounding"`
	DefaultOrientation *transformXML `xml:"DefaultOrientation"`
	DefaultCamera      *cameraXML    `xml:"DefaultCamera"`
	Comments           string        `xml:"Comments,omitempty"`
}

type versionXML struct {
	Major int `xml:"Major,attr"`
	Minor int `xml:"Minor,attr"`
}

type categoryXML struct {
	ID   int    `xml:"ID,attr"`
	Name string `xml:"Name,attr"`
}

type physicsXML struct {
	InertiaTensor string  `xml:"InertiaTensor,attr"`
	CenterOfMass  string  `xml:"CenterOfMass,attr"`
	Mass          float64 `xml:"Mass,attr"`
	FrictionType  int     `xml:"FrictionType,attr"`
}

type vecXML struct {
	X float64 `xml:"X,attr"`
	Y float64 `xml:"Y,attr"`
	Z float64 `xml:"Z,attr"`
}

type boxXML struct {
	Min vecXML `xml:"Min"`
	Max vecXML `xml:"Max"`
}

type transformXML struct {
	Position vecXML `xml:"Position"`
	Rotation vecXML `xml:"Rotation"`
}

type cameraXML struct {
	Distance    float64      `xml:"Distance,attr"`
	FieldOfView float64      `xml:"FieldOfView,attr"`
	Transform   transformXML `xml:"Transform"`
}

// elementXML carries the attributes shared by every element node.
type elementXML struct {
	ID   string `xml:"ID,attr"`
	Name string `xml:"Name,attr"`
}

type surfacesXML struct {
	Items []surfaceXML `xml:"Surface"`
}

type surfaceXML struct {
	elementXML
	SurfaceID     int            `xml:"SurfaceID,attr"`
	MaterialIndex int            `xml:"MaterialIndex,attr"`
	Components    []componentXML `xml:"Components>Component"`
}

type componentXML struct {
	elementXML
	Type              string       `xml:"Type,attr"`
	ConnectionID      string       `xml:"ConnectionID,attr,omitempty"`
	ConnectionIndex   *int         `xml:"ConnectionIndex,attr,omitempty"`
	Meshes            []meshRefXML `xml:"Meshes>MeshRef"`
	ReplacementMeshes []meshRefXML `xml:"ReplacementMeshes>MeshRef"`
}

type meshRefXML struct {
	elementXML
	MeshID    string       `xml:"MeshID,attr"`
	Transform transformXML `xml:"Transform"`
}

type collisionsXML struct {
	Items []collisionXML `xml:"Collision"`
}

type collisionXML struct {
	elementXML
	Type      string       `xml:"Type,attr"`
	Radius    float64      `xml:"Radius,attr,omitempty"`
	Size      *vecXML      `xml:"Size"`
	Transform transformXML `xml:"Transform"`
}

type connectionsXML struct {
	Items []connectionXML `xml:"Connection"`
}

type connectionXML struct {
	elementXML
	Type      string       `xml:"Type,attr"`
	SubType   int          `xml:"SubType,attr"`
	Length    float64      `xml:"Length,attr,omitempty"`
	Width     int          `xml:"Width,attr,omitempty"`
	Height    int          `xml:"Height,attr,omitempty"`
	Transform transformXML `xml:"Transform"`
	FieldData string       `xml:"FieldData,omitempty"`
}

type bonesXML struct {
	Items []boneXML `xml:"Bone"`
}

type boneXML struct {
	elementXML
	BoneID      int             `xml:"BoneID,attr"`
	Transform   transformXML    `xml:"Transform"`
	Connections []connectionXML `xml:"Connections>Connection"`
	Collisions  []collisionXML  `xml:"Collisions>Collision"`
}

type meshesXML struct {
	Items []meshXML `xml:"Mesh"`
}

type meshXML struct {
	elementXML
	FileName      string `xml:"FileName,attr"`
	IsTextured    bool   `xml:"IsTextured,attr"`
	IsFlexible    bool   `xml:"IsFlexible,attr,omitempty"`
	VertexCount   int    `xml:"VertexCount,attr"`
	TriangleCount int    `xml:"TriangleCount,attr"`
}

// ----------------------------------------------------------------------------
// Value conversions
// ----------------------------------------------------------------------------

func toVecXML(v v3.Vec) vecXML { return vecXML{X: v.X, Y: v.Y, Z: v.Z} }
func (v vecXML) vec() v3.Vec   { return v3.Vec{X: v.X, Y: v.Y, Z: v.Z} }

func toBaseXML(b *ElementBase) elementXML {
	return elementXML{ID: b.ID, Name: b.Name}
}

func (x elementXML) apply(b *ElementBase) {
	b.ID = x.ID
	b.Name = x.Name
}

func toTransformXML(t ItemTransform) transformXML {
	return transformXML{Position: toVecXML(t.Position), Rotation: toVecXML(t.Rotation)}
}

func (x transformXML) transform() ItemTransform {
	return ItemTransform{Position: x.Position.vec(), Rotation: x.Rotation.vec()}
}

func toBoxXML(b *sdf.Box3) *boxXML {
	if b == nil {
		return nil
	}
	return &boxXML{Min: toVecXML(b.Min), Max: toVecXML(b.Max)}
}

func (x *boxXML) box() *sdf.Box3 {
	if x == nil {
		return nil
	}
	return &sdf.Box3{Min: x.Min.vec(), Max: x.Max.vec()}
}

func formatFloats(fs []float64) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func parseFloats(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

func toPhysicsXML(pa *PhysicsAttributes) *physicsXML {
	if pa == nil {
		return nil
	}
	return &physicsXML{
		InertiaTensor: formatFloats(pa.InertiaTensor[:]),
		CenterOfMass:  formatFloats([]float64{pa.CenterOfMass.X, pa.CenterOfMass.Y, pa.CenterOfMass.Z}),
		Mass:          pa.Mass,
		FrictionType:  pa.FrictionType,
	}
}

func (x *physicsXML) physics() (*PhysicsAttributes, error) {
	if x == nil {
		return nil, nil
	}
	pa := &PhysicsAttributes{Mass: x.Mass, FrictionType: x.FrictionType}
	it, err := parseFloats(x.InertiaTensor)
	if err != nil || (len(it) != 0 && len(it) != 9) {
		return nil, fmt.Errorf("project: bad inertia tensor %q", x.InertiaTensor)
	}
	copy(pa.InertiaTensor[:], it)
	com, err := parseFloats(x.CenterOfMass)
	if err != nil || (len(com) != 0 && len(com) != 3) {
		return nil, fmt.Errorf("project: bad center of mass %q", x.CenterOfMass)
	}
	if len(com) == 3 {
		pa.CenterOfMass = v3.Vec{X: com[0], Y: com[1], Z: com[2]}
	}
	return pa, nil
}

func formatAliases(partID int, aliases []int) string {
	var parts []string
	for _, a := range aliases {
		if a != partID {
			parts = append(parts, strconv.Itoa(a))
		}
	}
	return strings.Join(parts, ";")
}

func parseAliases(s string) []int {
	var out []int
	for _, part := range strings.Split(s, ";") {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// ----------------------------------------------------------------------------
// Element serialization
// ----------------------------------------------------------------------------

func (s *PartSurface) toXML() surfaceXML {
	x := surfaceXML{elementXML: toBaseXML(&s.ElementBase), SurfaceID: s.SurfaceID, MaterialIndex: s.MaterialIndex}
	for _, c := range s.Components.Items() {
		x.Components = append(x.Components, c.toXML())
	}
	return x
}

func (x surfaceXML) element() (*PartSurface, error) {
	s := NewSurface(x.SurfaceID, x.MaterialIndex)
	x.elementXML.apply(&s.ElementBase)
	for _, cx := range x.Components {
		c, err := cx.element()
		if err != nil {
			return nil, err
		}
		s.Components.Add(c)
	}
	return s, nil
}

func (c *SurfaceComponent) toXML() componentXML {
	x := componentXML{elementXML: toBaseXML(&c.ElementBase), Type: c.ComponentType.String()}
	if c.IsCulling() {
		idx, id := c.ConnectionIndex, c.ConnectionID
		// The stored index goes stale when connections move; write the
		// current position of the linked connection instead.
		if p := c.Project(); p != nil {
			idx, id = -1, ""
			if linked := p.LinkedConnection(c); linked != nil {
				idx, id = p.Connections.IndexOf(linked), linked.ID
			}
		}
		x.ConnectionID = id
		x.ConnectionIndex = &idx
	}
	for _, r := range c.Meshes.Items() {
		x.Meshes = append(x.Meshes, r.toXML())
	}
	for _, r := range c.ReplacementMeshes.Items() {
		x.ReplacementMeshes = append(x.ReplacementMeshes, r.toXML())
	}
	return x
}

func (x componentXML) element() (*SurfaceComponent, error) {
	t, err := ParseComponentType(x.Type)
	if err != nil {
		return nil, err
	}
	c := NewComponent(t)
	x.elementXML.apply(&c.ElementBase)
	c.ConnectionID = x.ConnectionID
	if x.ConnectionIndex != nil {
		c.ConnectionIndex = *x.ConnectionIndex
	}
	for _, rx := range x.Meshes {
		c.Meshes.Add(rx.element())
	}
	for _, rx := range x.ReplacementMeshes {
		c.ReplacementMeshes.Add(rx.element())
	}
	return c, nil
}

func (r *MeshReference) toXML() meshRefXML {
	return meshRefXML{elementXML: toBaseXML(&r.ElementBase), MeshID: r.MeshID, Transform: toTransformXML(r.Transform)}
}

func (x meshRefXML) element() *MeshReference {
	r := NewMeshRef(x.MeshID)
	x.elementXML.apply(&r.ElementBase)
	r.Transform = x.Transform.transform()
	return r
}

func (c *PartConnection) toXML() connectionXML {
	return connectionXML{
		elementXML: toBaseXML(&c.ElementBase),
		Type:       c.ConnectorType.String(),
		SubType:    c.SubType,
		Length:     c.Length,
		Width:      c.Width,
		Height:     c.Height,
		Transform:  toTransformXML(c.Transform),
		FieldData:  c.FieldData,
	}
}

func (x connectionXML) element() (*PartConnection, error) {
	t, err := ParseConnectorType(x.Type)
	if err != nil {
		return nil, err
	}
	c := NewConnection(t)
	x.elementXML.apply(&c.ElementBase)
	c.SubType = x.SubType
	c.Length = x.Length
	c.Width = x.Width
	c.Height = x.Height
	c.Transform = x.Transform.transform()
	c.FieldData = x.FieldData
	return c, nil
}

func (c *PartCollision) toXML() collisionXML {
	x := collisionXML{
		elementXML: toBaseXML(&c.ElementBase),
		Type:       c.CollisionType.String(),
		Transform:  toTransformXML(c.Transform),
	}
	switch c.CollisionType {
	case CollisionBox:
		size := toVecXML(c.Size)
		x.Size = &size
	case CollisionSphere:
		x.Radius = c.Radius
	}
	return x
}

func (x collisionXML) element() (*PartCollision, error) {
	t, err := ParseCollisionType(x.Type)
	if err != nil {
		return nil, err
	}
	c := &PartCollision{CollisionType: t, Radius: x.Radius, Transform: x.Transform.transform()}
	x.elementXML.apply(&c.ElementBase)
	if x.Size != nil {
		c.Size = x.Size.vec()
	}
	return c, nil
}

func (b *PartBone) toXML() boneXML {
	x := boneXML{elementXML: toBaseXML(&b.ElementBase), BoneID: b.BoneID, Transform: toTransformXML(b.Transform)}
	for _, c := range b.Connections.Items() {
		x.Connections = append(x.Connections, c.toXML())
	}
	for _, c := range b.Collisions.Items() {
		x.Collisions = append(x.Collisions, c.toXML())
	}
	return x
}

func (x boneXML) element() (*PartBone, error) {
	b := NewBone(x.BoneID)
	x.elementXML.apply(&b.ElementBase)
	b.Transform = x.Transform.transform()
	for _, cx := range x.Connections {
		c, err := cx.element()
		if err != nil {
			return nil, err
		}
		b.Connections.Add(c)
	}
	for _, cx := range x.Collisions {
		c, err := cx.element()
		if err != nil {
			return nil, err
		}
		b.Collisions.Add(c)
	}
	return b, nil
}

func (m *ModelMesh) toXML() meshXML {
	return meshXML{
		elementXML:    toBaseXML(&m.ElementBase),
		FileName:      m.FileName,
		IsTextured:    m.textured,
		IsFlexible:    m.flexible,
		VertexCount:   m.vertexCount,
		TriangleCount: m.triangleCount,
	}
}

func (x meshXML) element() *ModelMesh {
	m := &ModelMesh{
		FileName:      x.FileName,
		textured:      x.IsTextured,
		flexible:      x.IsFlexible,
		vertexCount:   x.VertexCount,
		triangleCount: x.TriangleCount,
	}
	x.elementXML.apply(&m.ElementBase)
	return m
}

// ----------------------------------------------------------------------------
// Project documents
// ----------------------------------------------------------------------------

// GenerateProjectXML serializes the project manifest.
func (p *PartProject) GenerateProjectXML() ([]byte, error) {
	doc := manifestXML{
		Properties: propertiesXML{
			PartID:            p.PartID,
			Aliases:           formatAliases(p.PartID, p.Aliases),
			Description:       p.Description,
			PartVersion:       p.PartVersion,
			PrimitiveVersion:  &versionXML{Major: p.PrimitiveVersion.Major, Minor: p.PrimitiveVersion.Minor},
			Flexible:          p.Flexible,
			Decorated:         p.Decorated,
			PhysicsAttributes: toPhysicsXML(p.PhysicsAttributes),
			Bounding:          toBoxXML(p.Bounding),
			GeometryBounding:  toBoxXML(p.GeometryBounding),
			Comments:          p.Comments,
		},
	}
	props := &doc.Properties
	if p.Platform != nil {
		props.Platform = &categoryXML{ID: p.Platform.ID, Name: p.Platform.Name}
	}
	if p.MainGroup != nil {
		props.MainGroup = &categoryXML{ID: p.MainGroup.ID, Name: p.MainGroup.Name}
	}
	if p.DefaultOrientation != nil {
		t := toTransformXML(*p.DefaultOrientation)
		props.DefaultOrientation = &t
	}
	if p.DefaultCamera != nil {
		props.DefaultCamera = &cameraXML{
			Distance:    p.DefaultCamera.Distance,
			FieldOfView: p.DefaultCamera.FieldOfView,
			Transform:   toTransformXML(p.DefaultCamera.Transform),
		}
	}

	for _, s := range p.Surfaces.Items() {
		doc.Surfaces.Items = append(doc.Surfaces.Items, s.toXML())
	}
	for _, c := range p.Collisions.Items() {
		doc.Collisions.Items = append(doc.Collisions.Items, c.toXML())
	}
	for _, c := range p.Connections.Items() {
		doc.Connections.Items = append(doc.Connections.Items, c.toXML())
	}
	if p.Bones.Len() > 0 {
		doc.Bones = &bonesXML{}
		for _, b := range p.Bones.Items() {
			doc.Bones.Items = append(doc.Bones.Items, b.toXML())
		}
	}
	if p.Meshes.Len() > 0 {
		doc.Meshes = &meshesXML{}
		for _, m := range p.Meshes.Items() {
			doc.Meshes.Items = append(doc.Meshes.Items, m.toXML())
		}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("project: encode manifest: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// CreateFromXML builds a project from a manifest.
func CreateFromXML(data []byte, opts ...Option) (*PartProject, error) {
	p := New(opts...)
	if err := p.LoadXML(data); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadXML replaces the project contents with the manifest in data. The
// collections are repopulated with notifications suppressed; missing IDs
// and names are then generated and culling components relinked.
func (p *PartProject) LoadXML(data []byte) error {
	var doc manifestXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("project: parse manifest: %w", err)
	}

	p.loading = true
	err := p.loadDocument(&doc)
	p.loading = false
	if err != nil {
		return err
	}

	p.nameHighs = make(map[ElementKind]int)
	p.GenerateElementIDs(false)
	p.GenerateElementNames()
	p.LinkConnections()
	return p.resolveMeshPaths()
}

func (p *PartProject) loadDocument(doc *manifestXML) error {
	for _, c := range p.Collections() {
		c.Clear()
	}

	props := doc.Properties
	p.PartID = props.PartID
	p.Aliases = parseAliases(props.Aliases)
	p.Description = props.Description
	p.Comments = props.Comments
	p.PartVersion = props.PartVersion
	if p.PartVersion == 0 {
		p.PartVersion = 1
	}
	p.PrimitiveVersion = Version{Major: 1}
	if v := props.PrimitiveVersion; v != nil {
		p.PrimitiveVersion = Version{Major: v.Major, Minor: v.Minor}
	}
	p.Flexible = props.Flexible
	p.Decorated = props.Decorated
	p.Platform, p.MainGroup = nil, nil
	if c := props.Platform; c != nil {
		p.Platform = &Category{ID: c.ID, Name: c.Name}
	}
	if c := props.MainGroup; c != nil {
		p.MainGroup = &Category{ID: c.ID, Name: c.Name}
	}
	pa, err := props.PhysicsAttributes.physics()
	if err != nil {
		return err
	}
	p.PhysicsAttributes = pa
	p.Bounding = props.Bounding.box()
	p.GeometryBounding = props.GeometryBounding.box()
	p.DefaultOrientation = nil
	if t := props.DefaultOrientation; t != nil {
		tr := t.transform()
		p.DefaultOrientation = &tr
	}
	p.DefaultCamera = nil
	if c := props.DefaultCamera; c != nil {
		p.DefaultCamera = &Camera{Distance: c.Distance, FieldOfView: c.FieldOfView, Transform: c.Transform.transform()}
	}

	for _, x := range doc.Surfaces.Items {
		s, err := x.element()
		if err != nil {
			return err
		}
		p.Surfaces.Add(s)
	}
	for _, x := range doc.Collisions.Items {
		c, err := x.element()
		if err != nil {
			return err
		}
		p.Collisions.Add(c)
	}
	for _, x := range doc.Connections.Items {
		c, err := x.element()
		if err != nil {
			return err
		}
		p.Connections.Add(c)
	}
	if doc.Bones != nil {
		for _, x := range doc.Bones.Items {
			b, err := x.element()
			if err != nil {
				return err
			}
			p.Bones.Add(b)
		}
	}
	if doc.Meshes != nil {
		for _, x := range doc.Meshes.Items {
			p.Meshes.Add(x.element())
		}
	}
	return nil
}

// resolveMeshPaths points each pool mesh at its file under WorkingDir. A
// file name that leaves WorkingDir fails the load.
func (p *PartProject) resolveMeshPaths() error {
	if p.WorkingDir == "" {
		return nil
	}
	for _, m := range p.Meshes.Items() {
		if m.FileName == "" {
			continue
		}
		dest, err := safeJoin(p.WorkingDir, m.FileName)
		if err != nil {
			return fmt.Errorf("project: mesh %s: %w", m.ID, err)
		}
		m.WorkingFilePath = dest
	}
	return nil
}
