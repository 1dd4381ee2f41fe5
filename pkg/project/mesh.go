package project

import (
	"fmt"

	"github.com/lddmodder/brickedit/pkg/geom"
)

// ModelMesh is an entry of the project mesh pool. Geometry is loaded lazily
// from WorkingFilePath; the cached statistics let the manifest describe a
// mesh whose geometry has not been read.
type ModelMesh struct {
	ElementBase
	FileName        string // archive-relative, slash separated
	WorkingFilePath string // absolute path of the extracted file, if any

	geometry      *geom.Geometry
	textured      bool
	flexible      bool
	vertexCount   int
	triangleCount int
	loadErr       error
}

func NewMesh(g *geom.Geometry) *ModelMesh {
	m := &ModelMesh{}
	m.SetGeometry(g)
	return m
}

func (m *ModelMesh) Kind() ElementKind                     { return KindMesh }
func (m *ModelMesh) ChildCollections() []ElementCollection { return nil }
func (*ModelMesh) sealed()                                 {}

// Geometry returns the loaded geometry, or nil.
func (m *ModelMesh) Geometry() *geom.Geometry { return m.geometry }

// SetGeometry replaces the geometry and refreshes the cached statistics.
func (m *ModelMesh) SetGeometry(g *geom.Geometry) {
	m.geometry = g
	m.loadErr = nil
	if g != nil {
		m.textured = g.IsTextured()
		m.flexible = g.IsFlexible()
		m.vertexCount = g.VertexCount()
		m.triangleCount = g.TriangleCount()
	}
}

func (m *ModelMesh) IsLoaded() bool     { return m.geometry != nil }
func (m *ModelMesh) IsTextured() bool   { return m.textured }
func (m *ModelMesh) IsFlexible() bool   { return m.flexible }
func (m *ModelMesh) VertexCount() int   { return m.vertexCount }
func (m *ModelMesh) TriangleCount() int { return m.triangleCount }

// Available reports whether the last load attempt succeeded (or none was
// made).
func (m *ModelMesh) Available() bool { return m.loadErr == nil }

// LoadGeometry returns the geometry, reading it from WorkingFilePath on first
// use. A failure marks the mesh unavailable and is returned to the caller.
func (m *ModelMesh) LoadGeometry() (*geom.Geometry, error) {
	if m.geometry != nil {
		return m.geometry, nil
	}
	if m.WorkingFilePath == "" {
		err := fmt.Errorf("%w: mesh %s has no working file", geom.ErrNotFound, m.ID)
		m.loadErr = err
		return nil, err
	}
	g, err := geom.FromFile(m.WorkingFilePath)
	if err != nil {
		m.loadErr = err
		return nil, err
	}
	m.SetGeometry(g)
	return g, nil
}
