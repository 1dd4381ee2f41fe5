package project

import (
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/lddmodder/brickedit/internal/observer"
)

// ManifestName is the manifest entry of a project archive.
const ManifestName = "project.xml"

// MeshDir is the archive directory holding geometry files.
const MeshDir = "Meshes"

// Version is a major/minor file version.
type Version struct {
	Major int
	Minor int
}

// Category is an LDD platform or main group.
type Category struct {
	ID   int
	Name string
}

// PhysicsAttributes mirrors the LDD primitive physics block.
type PhysicsAttributes struct {
	InertiaTensor [9]float64
	CenterOfMass  v3.Vec
	Mass          float64
	FrictionType  int
}

// Camera is the default viewing camera of a part.
type Camera struct {
	Transform   ItemTransform
	Distance    float64
	FieldOfView float64
}

// PartProject is the root of the element tree.
type PartProject struct {
	PartID             int
	Aliases            []int
	Description        string
	Comments           string
	PartVersion        int
	PrimitiveVersion   Version
	Flexible           bool
	Decorated          bool
	Platform           *Category
	MainGroup          *Category
	PhysicsAttributes  *PhysicsAttributes
	Bounding           *sdf.Box3
	GeometryBounding   *sdf.Box3
	DefaultOrientation *ItemTransform
	DefaultCamera      *Camera

	ProjectPath string // archive the project was opened from or saved to
	WorkingDir  string // directory holding extracted mesh files

	Surfaces    *Collection[*PartSurface]
	Connections *Collection[*PartConnection]
	Collisions  *Collection[*PartCollision]
	Bones       *Collection[*PartBone]
	Meshes      *Collection[*ModelMesh]

	loading   bool
	nameHighs map[ElementKind]int
	collSubs  observer.List[CollectionChangedEvent]
	propSubs  observer.List[PropertyChangedEvent]
	log       *zap.SugaredLogger
}

// Option configures a PartProject.
type Option func(*PartProject)

// WithLogger sets the logger used for non-fatal persistence diagnostics.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(p *PartProject) {
		if l != nil {
			p.log = l
		}
	}
}

// New returns an empty project.
func New(opts ...Option) *PartProject {
	p := &PartProject{
		PartVersion:      1,
		PrimitiveVersion: Version{Major: 1, Minor: 0},
		nameHighs:        make(map[ElementKind]int),
		log:              zap.NewNop().Sugar(),
	}
	p.Surfaces = newProjectCollection[*PartSurface](p, KindSurface)
	p.Connections = newProjectCollection[*PartConnection](p, KindConnection)
	p.Collisions = newProjectCollection[*PartCollision](p, KindCollision)
	p.Bones = newProjectCollection[*PartBone](p, KindBone)
	p.Meshes = newProjectCollection[*ModelMesh](p, KindMesh)
	for _, o := range opts {
		o(p)
	}
	return p
}

// NewEmpty returns a project holding only the main surface.
func NewEmpty(opts ...Option) *PartProject {
	p := New(opts...)
	p.Surfaces.Add(NewSurface(0, 0))
	return p
}

// IsLoading reports whether a manifest is being loaded.
func (p *PartProject) IsLoading() bool { return p.loading }

// Logger returns the project's logger.
func (p *PartProject) Logger() *zap.SugaredLogger { return p.log }

// OnElementCollectionChanged subscribes to every collection change in the
// tree.
func (p *PartProject) OnElementCollectionChanged(fn func(CollectionChangedEvent)) func() {
	return p.collSubs.Add(fn)
}

// OnElementPropertyChanged subscribes to property changes of the project and
// its attached elements.
func (p *PartProject) OnElementPropertyChanged(fn func(PropertyChangedEvent)) func() {
	return p.propSubs.Add(fn)
}

func (p *PartProject) onCollectionChanged(ev CollectionChangedEvent) {
	if ev.Action == ActionAdd {
		added := lo.FlatMap(ev.Elements, func(e Element, _ int) []Element {
			return append([]Element{e}, Descendants(e)...)
		})
		p.assignIDs(added)
		p.assignNames(added)
	}
	p.collSubs.Emit(ev)
}

func (p *PartProject) onPropertyChanged(ev PropertyChangedEvent) {
	if p.loading {
		return
	}
	p.propSubs.Emit(ev)
}

// ----------------------------------------------------------------------------
// Traversal
// ----------------------------------------------------------------------------

// Collections returns the project-rooted collections in traversal order.
func (p *PartProject) Collections() []ElementCollection {
	return []ElementCollection{p.Surfaces, p.Connections, p.Collisions, p.Bones, p.Meshes}
}

// Descendants returns every element below e, depth first.
func Descendants(e Element) []Element {
	var out []Element
	for _, c := range e.ChildCollections() {
		for _, child := range c.Elements() {
			out = append(out, child)
			out = append(out, Descendants(child)...)
		}
	}
	return out
}

// AllElements returns every element of the project, depth first in
// collection order.
func (p *PartProject) AllElements() []Element {
	var out []Element
	for _, c := range p.Collections() {
		for _, e := range c.Elements() {
			out = append(out, e)
			out = append(out, Descendants(e)...)
		}
	}
	return out
}

// ElementsOfKind returns all elements of kind k in traversal order.
func (p *PartProject) ElementsOfKind(k ElementKind) []Element {
	return lo.Filter(p.AllElements(), func(e Element, _ int) bool { return e.Kind() == k })
}

// FindByID returns the first element with the given ID.
func (p *PartProject) FindByID(id string) (Element, bool) {
	if id == "" {
		return nil, false
	}
	return lo.Find(p.AllElements(), func(e Element) bool { return e.Base().ID == id })
}

// Contains reports whether e is attached to p.
func (p *PartProject) Contains(e Element) bool {
	return e != nil && e.Base().Project() == p
}

// MeshByID returns the pool mesh with the given ID, or nil.
func (p *PartProject) MeshByID(id string) *ModelMesh {
	m, _ := lo.Find(p.Meshes.Items(), func(m *ModelMesh) bool { return m.ID == id })
	return m
}

// MeshSurface returns the first surface with a component referencing m.
func (p *PartProject) MeshSurface(m *ModelMesh) *PartSurface {
	s, _ := lo.Find(p.Surfaces.Items(), func(s *PartSurface) bool {
		return lo.ContainsBy(s.MeshRefs(), func(r *MeshReference) bool { return r.MeshID == m.ID })
	})
	return s
}

// SurfaceMeshes returns the distinct pool meshes referenced by s.
func (p *PartProject) SurfaceMeshes(s *PartSurface) []*ModelMesh {
	ids := lo.Uniq(lo.Map(s.MeshRefs(), func(r *MeshReference, _ int) string { return r.MeshID }))
	return lo.FilterMap(ids, func(id string, _ int) (*ModelMesh, bool) {
		m := p.MeshByID(id)
		return m, m != nil
	})
}

// UnassignedMeshes returns pool meshes no component references.
func (p *PartProject) UnassignedMeshes() []*ModelMesh {
	used := make(map[string]bool)
	for _, s := range p.Surfaces.Items() {
		for _, r := range s.MeshRefs() {
			used[r.MeshID] = true
		}
	}
	return lo.Reject(p.Meshes.Items(), func(m *ModelMesh, _ int) bool { return used[m.ID] })
}

// MainSurface returns surface 0, or nil.
func (p *PartProject) MainSurface() *PartSurface {
	s, _ := lo.Find(p.Surfaces.Items(), func(s *PartSurface) bool { return s.SurfaceID == 0 })
	return s
}

// AllConnections returns project connections followed by bone connections.
func (p *PartProject) AllConnections() []*PartConnection {
	out := p.Connections.Items()
	for _, b := range p.Bones.Items() {
		out = append(out, b.Connections.Items()...)
	}
	return out
}

// AllCollisions returns project collisions followed by bone collisions.
func (p *PartProject) AllCollisions() []*PartCollision {
	out := p.Collisions.Items()
	for _, b := range p.Bones.Items() {
		out = append(out, b.Collisions.Items()...)
	}
	return out
}

// LoadAllGeometry reads every pool mesh that has a working file. Failures
// only mark the mesh unavailable; the number of unavailable meshes is
// returned.
func (p *PartProject) LoadAllGeometry() int {
	failed := 0
	for _, m := range p.Meshes.Items() {
		if m.IsLoaded() {
			continue
		}
		if _, err := m.LoadGeometry(); err != nil {
			p.log.Warnw("mesh unavailable", "mesh", m.ID, "file", m.FileName, "error", err)
			failed++
		}
	}
	return failed
}
