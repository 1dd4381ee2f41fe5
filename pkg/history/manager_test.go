package history

import (
	"testing"

	"github.com/lddmodder/brickedit/pkg/project"
)

func newAttached(t *testing.T) (*Manager, *project.PartProject) {
	t.Helper()
	p := project.NewEmpty()
	m := New(nil)
	m.Attach(p)
	return m, p
}

func connectionTypes(p *project.PartProject) []project.ConnectorType {
	var out []project.ConnectorType
	for _, c := range p.Connections.Items() {
		out = append(out, c.ConnectorType)
	}
	return out
}

func equalTypes(a, b []project.ConnectorType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestUndoRedoAdd(t *testing.T) {
	m, p := newAttached(t)
	c := project.NewConnection(project.ConnectorAxel)
	p.Connections.Add(c)

	if !m.CanUndo() || m.CanRedo() {
		t.Fatalf("after add: CanUndo=%v CanRedo=%v", m.CanUndo(), m.CanRedo())
	}
	if !m.Undo() {
		t.Fatal("Undo returned false")
	}
	if p.Connections.Len() != 0 || c.Project() != nil {
		t.Fatal("undo should remove and detach the connection")
	}
	if m.CanUndo() || !m.CanRedo() {
		t.Fatalf("after undo: CanUndo=%v CanRedo=%v", m.CanUndo(), m.CanRedo())
	}
	if !m.Redo() {
		t.Fatal("Redo returned false")
	}
	if p.Connections.Len() != 1 || p.Connections.At(0) != c {
		t.Fatal("redo should restore the same connection")
	}
	if m.UndoCount() != 1 || m.RedoCount() != 0 {
		t.Errorf("replay must not record: undo=%d redo=%d", m.UndoCount(), m.RedoCount())
	}
}

func TestUndoRestoresPositions(t *testing.T) {
	m, p := newAttached(t)
	p.Connections.AddRange(
		project.NewConnection(project.ConnectorAxel),
		project.NewConnection(project.ConnectorBall),
		project.NewConnection(project.ConnectorHinge),
		project.NewConnection(project.ConnectorRail),
	)
	want := connectionTypes(p)

	p.Connections.RemoveAt(1)
	p.Connections.RemoveAt(2)
	m.Undo()
	m.Undo()
	if got := connectionTypes(p); !equalTypes(got, want) {
		t.Errorf("after undoing removals got %v, want %v", got, want)
	}

	p.Connections.Clear()
	m.Undo()
	if got := connectionTypes(p); !equalTypes(got, want) {
		t.Errorf("after undoing clear got %v, want %v", got, want)
	}
	m.Redo()
	if p.Connections.Len() != 0 {
		t.Errorf("redo clear left %d connections", p.Connections.Len())
	}
}

func TestUndoProperty(t *testing.T) {
	m, p := newAttached(t)
	c := project.NewConnection(project.ConnectorAxel)
	p.Connections.Add(c)
	name := c.Name

	project.SetName(c, "Axle")
	project.SetProperty(c, "Length", &c.Length, 4.0)
	project.SetProjectProperty(p, "Description", &p.Description, "Technic axle")

	m.Undo()
	if p.Description != "" {
		t.Errorf("description = %q after undo", p.Description)
	}
	m.Undo()
	m.Undo()
	if c.Name != name || c.Length != 0 {
		t.Errorf("after undo: name %q length %v", c.Name, c.Length)
	}
	m.Redo()
	m.Redo()
	m.Redo()
	if c.Name != "Axle" || c.Length != 4 || p.Description != "Technic axle" {
		t.Errorf("after redo: %q %v %q", c.Name, c.Length, p.Description)
	}
}

func TestBatchIsOneStep(t *testing.T) {
	m, p := newAttached(t)
	start := m.UndoCount()

	m.StartBatchChanges()
	bone := project.NewBone(0)
	p.Bones.Add(bone)
	m.StartBatchChanges()
	bone.Collisions.Add(project.NewSphereCollision(0.5))
	project.SetProperty(bone, "BoneID", &bone.BoneID, 3)
	m.EndBatchChanges()
	if !m.IsInBatch() {
		t.Fatal("inner EndBatchChanges should not close the outer batch")
	}
	if m.CanUndo() {
		t.Error("undo should be unavailable inside a batch")
	}
	m.EndBatchChanges()

	if got := m.UndoCount() - start; got != 1 {
		t.Fatalf("batch recorded %d steps, want 1", got)
	}
	m.Undo()
	if p.Bones.Len() != 0 || bone.BoneID != 0 || bone.Collisions.Len() != 0 {
		t.Errorf("undo left bones=%d id=%d collisions=%d", p.Bones.Len(), bone.BoneID, bone.Collisions.Len())
	}
	m.Redo()
	if p.Bones.Len() != 1 || bone.BoneID != 3 || bone.Collisions.Len() != 1 {
		t.Errorf("redo gave bones=%d id=%d collisions=%d", p.Bones.Len(), bone.BoneID, bone.Collisions.Len())
	}
}

func TestEmptyBatchRecordsNothing(t *testing.T) {
	m, _ := newAttached(t)
	m.StartBatchChanges()
	m.EndBatchChanges()
	m.EndBatchChanges() // unbalanced end is ignored
	if m.UndoCount() != 0 || m.IsInBatch() {
		t.Errorf("undo=%d inBatch=%v", m.UndoCount(), m.IsInBatch())
	}
}

func TestChangeIDs(t *testing.T) {
	m, p := newAttached(t)
	if m.CurrentChangeID() != 0 {
		t.Fatal("fresh history should report change 0")
	}
	p.Collisions.Add(project.NewSphereCollision(1))
	saved := m.CurrentChangeID()
	if saved == 0 {
		t.Fatal("a recorded change should have a non-zero ID")
	}

	m.Undo()
	if m.CurrentChangeID() == saved {
		t.Error("undo past the saved change should look modified")
	}
	m.Redo()
	if m.CurrentChangeID() != saved {
		t.Error("redo should return to the saved change")
	}

	m.Undo()
	p.Collisions.Add(project.NewSphereCollision(2))
	if id := m.CurrentChangeID(); id == saved || id == 0 {
		t.Errorf("new change after undo reused ID %d", id)
	}
	if m.CanRedo() {
		t.Error("a new change should clear the redo stack")
	}
}

func TestReplayHooks(t *testing.T) {
	m, p := newAttached(t)
	var log []string
	m.OnBeginUndoRedo(func() {
		log = append(log, "begin")
		if !m.ExecutingUndoRedo() {
			t.Error("ExecutingUndoRedo should be set during replay")
		}
	})
	m.OnEndUndoRedo(func() { log = append(log, "end") })
	stop := m.OnHistoryChanged(func() { log = append(log, "history") })

	p.Connections.Add(project.NewConnection(project.ConnectorFixed))
	m.Undo()
	stop()
	m.Redo()

	want := []string{"history", "begin", "end", "history", "begin", "end"}
	if len(log) != len(want) {
		t.Fatalf("hooks = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("hook %d = %s, want %s", i, log[i], want[i])
		}
	}
}

func TestEndHookChangesAreNotRecorded(t *testing.T) {
	m, p := newAttached(t)
	m.OnEndUndoRedo(func() {
		project.SetProjectProperty(p, "Description", &p.Description, "touched")
	})

	p.Connections.Add(project.NewConnection(project.ConnectorFixed))
	if !m.Undo() {
		t.Fatal("Undo returned false")
	}
	if m.UndoCount() != 0 || m.RedoCount() != 1 {
		t.Fatalf("after undo: undo=%d redo=%d, want 0/1", m.UndoCount(), m.RedoCount())
	}
	if !m.Redo() {
		t.Fatal("Redo returned false")
	}
	if m.UndoCount() != 1 || m.RedoCount() != 0 {
		t.Fatalf("after redo: undo=%d redo=%d, want 1/0", m.UndoCount(), m.RedoCount())
	}
	if p.Connections.Len() != 1 {
		t.Errorf("connections = %d, want 1", p.Connections.Len())
	}
}

func TestDetachStopsRecording(t *testing.T) {
	m, p := newAttached(t)
	p.Connections.Add(project.NewConnection(project.ConnectorGear))
	m.Detach()
	if m.CanUndo() || m.Project() != nil {
		t.Fatal("detach should clear the history")
	}
	p.Connections.Add(project.NewConnection(project.ConnectorGear))
	if m.UndoCount() != 0 {
		t.Error("detached manager recorded a change")
	}
}

func TestLoadIsNotRecorded(t *testing.T) {
	src := project.NewEmpty()
	src.Connections.Add(project.NewConnection(project.ConnectorAxel))
	data, err := src.GenerateProjectXML()
	if err != nil {
		t.Fatalf("GenerateProjectXML: %v", err)
	}

	m, p := newAttached(t)
	if err := p.LoadXML(data); err != nil {
		t.Fatalf("LoadXML: %v", err)
	}
	if m.UndoCount() != 0 {
		t.Errorf("loading recorded %d steps", m.UndoCount())
	}
}
