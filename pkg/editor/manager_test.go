package editor

import (
	"path/filepath"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lddmodder/brickedit/pkg/geom"
	"github.com/lddmodder/brickedit/pkg/project"
)

func newManager(t *testing.T) (*Manager, *project.PartProject) {
	t.Helper()
	m := New(WithLogger(zaptest.NewLogger(t).Sugar()))
	p := project.NewEmpty()
	p.PartID = 3003
	p.Description = "Brick 2 x 2"
	p.Meshes.Add(project.NewMesh(geom.Quad(1, false)))
	m.SetCurrentProject(p)
	return m, p
}

func TestSetCurrentProject(t *testing.T) {
	m := New()
	changed, closed := 0, 0
	m.OnProjectChanged(func() { changed++ })
	m.OnProjectClosed(func() { closed++ })

	assert.False(t, m.IsProjectOpen())
	assert.Equal(t, "No active project", m.DisplayName())

	a, b := project.NewEmpty(), project.NewEmpty()
	m.SetCurrentProject(a)
	m.SetCurrentProject(a)
	assert.Equal(t, 1, changed, "setting the same project is a no-op")

	m.SetCurrentProject(b)
	assert.Equal(t, 2, changed, "switching fires ProjectChanged once")
	assert.Equal(t, 1, closed)
	assert.Same(t, b, m.CurrentProject())

	m.CloseCurrentProject()
	assert.Equal(t, 3, changed)
	assert.Equal(t, 2, closed)
	assert.Nil(t, m.CurrentProject())
}

func TestDisplayName(t *testing.T) {
	m := New()
	p := project.NewEmpty()
	m.SetCurrentProject(p)

	tests := []struct {
		partID int
		desc   string
		want   string
	}{
		{3001, "Brick 2 x 4", "3001 - Brick 2 x 4"},
		{3001, "", "Part 3001"},
		{0, "Custom tile", "Custom tile"},
		{0, "", "New part project"},
	}
	for _, tc := range tests {
		p.PartID, p.Description = tc.partID, tc.desc
		assert.Equal(t, tc.want, m.DisplayName())
	}
}

func TestModifiedTracksSavedChange(t *testing.T) {
	m, p := newManager(t)
	assert.False(t, m.IsModified(), "freshly opened project is unmodified")
	assert.True(t, m.IsNewProject())

	p.Connections.Add(project.NewConnection(project.ConnectorAxel))
	assert.True(t, m.IsModified())

	path := filepath.Join(t.TempDir(), "3003.lpp")
	require.NoError(t, m.SaveProject(path))
	assert.False(t, m.IsModified())
	assert.False(t, m.IsNewProject())
	assert.Equal(t, path, p.ProjectPath)

	require.True(t, m.Undo())
	assert.True(t, m.IsModified(), "undo past the save point is a modification")
	require.True(t, m.Redo())
	assert.False(t, m.IsModified(), "redo returns to the saved state")
}

func TestSaveWithoutProject(t *testing.T) {
	m := New()
	assert.ErrorIs(t, m.SaveProject("x.lpp"), ErrNoProject)
	assert.ErrorIs(t, m.SaveWorkingProject(), ErrNoProject)
}

func TestSaveWorkingProject(t *testing.T) {
	m, p := newManager(t)
	assert.Error(t, m.SaveWorkingProject(), "no working directory yet")

	dir := t.TempDir()
	require.NoError(t, p.SaveExtracted(dir))
	p.Description = "Renamed"
	require.NoError(t, m.SaveWorkingProject())

	q, err := project.LoadFromDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", q.Description)
}

func TestSelection(t *testing.T) {
	m, p := newManager(t)
	surface := p.MainSurface()
	comp := project.NewComponent(project.ComponentPart)
	surface.Components.Add(comp)
	mesh := p.Meshes.At(0)

	changes := 0
	m.OnSelectionChanged(func() { changes++ })

	m.SelectElement(surface)
	m.SelectElement(surface)
	assert.Equal(t, 1, changes)
	assert.Equal(t, project.Element(surface), m.SelectedElement())

	m.SetSelected(mesh, true)
	m.SetSelected(mesh, true)
	assert.Equal(t, 2, changes)
	assert.Len(t, m.SelectedElements(), 2)
	assert.True(t, m.IsSelected(mesh))

	assert.False(t, m.IsSelected(comp))
	assert.True(t, m.IsContainedInSelection(comp), "child of a selected surface")
	assert.Equal(t, 0, m.SelectionIndex(comp))
	assert.Equal(t, 1, m.SelectionIndex(mesh))

	m.SetSelected(surface, false)
	assert.Equal(t, -1, m.SelectionIndex(comp))

	m.SelectElements(surface, nil, surface, mesh)
	assert.Equal(t, []project.Element{surface, mesh}, m.SelectedElements())

	m.SelectElement(nil)
	assert.Nil(t, m.SelectedElement())
	m.ClearSelection()
	assert.Equal(t, 5, changes, "clearing an empty selection is silent")
}

func TestRemovalPrunesSelection(t *testing.T) {
	m, p := newManager(t)
	bone := project.NewBone(0)
	sphere := project.NewSphereCollision(0.5)
	bone.Collisions.Add(sphere)
	p.Bones.Add(bone)
	mesh := p.Meshes.At(0)

	m.SelectElements(sphere, mesh)
	changes := 0
	m.OnSelectionChanged(func() { changes++ })

	p.Bones.Remove(bone)
	assert.Equal(t, []project.Element{mesh}, m.SelectedElements(), "descendants of removed elements leave the selection")
	assert.Equal(t, 1, changes)

	p.Connections.Add(project.NewConnection(project.ConnectorBall))
	p.Connections.Clear()
	assert.Equal(t, 1, changes, "removals outside the selection are silent")
}

func TestElementsChangedIsDeferred(t *testing.T) {
	m, p := newManager(t)
	fired := 0
	m.OnElementsChanged(func() { fired++ })

	p.Collisions.Add(project.NewBoxCollision(v3.Vec{X: 1, Y: 1, Z: 1}))
	assert.Equal(t, 1, fired, "single edit notifies immediately")

	m.StartBatchChanges()
	p.Collisions.Add(project.NewSphereCollision(1))
	p.Connections.Add(project.NewConnection(project.ConnectorHinge))
	m.StartBatchChanges()
	p.Connections.Add(project.NewConnection(project.ConnectorHinge))
	m.EndBatchChanges()
	assert.Equal(t, 1, fired, "nothing fires inside a batch")
	m.EndBatchChanges()
	assert.Equal(t, 2, fired, "one notification for the whole batch")

	m.Undo()
	assert.Equal(t, 3, fired, "one notification per replay")
	assert.Equal(t, 1, p.Collisions.Len())
	assert.Equal(t, 0, p.Connections.Len())
}

func TestElementsChangedHandlerAfterUndoIsNotRecorded(t *testing.T) {
	m, p := newManager(t)
	p.Collisions.Add(project.NewSphereCollision(1))

	edits := 0
	m.OnElementsChanged(func() {
		if edits == 0 {
			edits++
			project.SetProjectProperty(p, "Comments", &p.Comments, "reacted")
		}
	})

	require.True(t, m.Undo())
	h := m.History()
	assert.Equal(t, 0, h.UndoCount())
	assert.Equal(t, 1, h.RedoCount())
	assert.True(t, m.CanRedo())

	require.True(t, m.Redo())
	assert.Equal(t, 1, h.UndoCount())
	assert.Equal(t, 0, h.RedoCount())
	assert.Equal(t, 1, p.Collisions.Len())
}

func TestBatchHelper(t *testing.T) {
	m, p := newManager(t)
	before := m.History().UndoCount()
	err := m.Batch(func() error {
		p.Connections.Add(project.NewConnection(project.ConnectorRail))
		project.SetProjectProperty(p, "Comments", &p.Comments, "rails")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, before+1, m.History().UndoCount())
	assert.False(t, m.IsExecutingBatchChanges())
}

func TestForwardedEvents(t *testing.T) {
	m, p := newManager(t)
	var props []string
	var colls []project.CollectionAction
	m.OnElementPropertyChanged(func(ev project.PropertyChangedEvent) { props = append(props, ev.Property) })
	m.OnElementCollectionChanged(func(ev project.CollectionChangedEvent) { colls = append(colls, ev.Action) })

	c := project.NewConnection(project.ConnectorGear)
	p.Connections.Add(c)
	project.SetName(c, "Gear")
	p.Connections.Remove(c)

	assert.Equal(t, []string{"Name"}, props)
	assert.Equal(t, []project.CollectionAction{project.ActionAdd, project.ActionRemove}, colls)

	m.CloseCurrentProject()
	p.Connections.Add(c)
	assert.Len(t, colls, 2, "closed project no longer forwards events")
}

func TestValidation(t *testing.T) {
	m, p := newManager(t)
	assert.False(t, m.IsPartValidated())

	finished := 0
	m.OnValidationStarted(func() { assert.True(t, m.IsValidatingProject()) })
	m.OnValidationFinished(func() { finished++ })

	m.ValidateProject()
	assert.Equal(t, 1, finished)
	assert.True(t, m.IsPartValidated())
	assert.True(t, m.IsPartValid(), "%v", m.ValidationMessages())

	p.Surfaces.RemoveAt(0)
	assert.False(t, m.IsPartValidated(), "an edit invalidates the result")
	m.ValidateProject()
	assert.True(t, m.IsPartValidated())
	assert.False(t, m.IsPartValid())
}

func TestValidationPanicBecomesFinding(t *testing.T) {
	m, p := newManager(t)
	// A nil collection makes traversal panic.
	p.Connections = nil

	m.ValidateProject()
	msgs := m.ValidationMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, CodeUnhandledException, msgs[0].Code)
	assert.Equal(t, SourceProject, msgs[0].Source)
	assert.False(t, m.IsPartValid())
}

func TestLayerVisibility(t *testing.T) {
	m, p := newManager(t)
	var toggled []Layer
	m.OnVisibilityChanged(func(l Layer) { toggled = append(toggled, l) })

	bone := project.NewBone(0)
	p.Bones.Add(bone)
	col := project.NewSphereCollision(1)
	p.Collisions.Add(col)

	assert.True(t, m.IsElementVisible(p.MainSurface()))
	assert.False(t, m.IsElementVisible(col))
	assert.False(t, m.IsElementVisible(bone))

	m.SetLayerVisible(LayerCollisions, true)
	m.SetLayerVisible(LayerCollisions, true)
	m.SetLayerVisible(LayerPartModels, false)
	assert.Equal(t, []Layer{LayerCollisions, LayerPartModels}, toggled)
	assert.True(t, m.IsElementVisible(col))
	assert.True(t, m.IsElementVisible(bone))
	assert.False(t, m.IsElementVisible(p.Meshes.At(0)))
	assert.Equal(t, "collisions", LayerCollisions.String())
}
