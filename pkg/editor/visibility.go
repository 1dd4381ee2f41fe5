package editor

import (
	"fmt"

	"github.com/lddmodder/brickedit/pkg/project"
)

// Layer is a display toggle of the viewport.
type Layer int

const (
	LayerPartModels Layer = iota
	LayerCollisions
	LayerConnections
)

func (l Layer) String() string {
	switch l {
	case LayerPartModels:
		return "part models"
	case LayerCollisions:
		return "collisions"
	case LayerConnections:
		return "connections"
	default:
		return fmt.Sprintf("Layer(%d)", int(l))
	}
}

func (m *Manager) IsLayerVisible(l Layer) bool { return m.visible[l] }

// SetLayerVisible toggles a layer and notifies subscribers on change.
func (m *Manager) SetLayerVisible(l Layer, visible bool) {
	if m.visible[l] == visible {
		return
	}
	m.visible[l] = visible
	m.visibilityChanged.Emit(l)
}

// IsElementVisible reports whether e is drawn under the current toggles.
// Bones show with either collisions or connections.
func (m *Manager) IsElementVisible(e project.Element) bool {
	switch e.Kind() {
	case project.KindSurface, project.KindComponent, project.KindMeshRef, project.KindMesh:
		return m.visible[LayerPartModels]
	case project.KindCollision:
		return m.visible[LayerCollisions]
	case project.KindConnection:
		return m.visible[LayerConnections]
	case project.KindBone:
		return m.visible[LayerCollisions] || m.visible[LayerConnections]
	}
	return false
}
