package history

import (
	"go.uber.org/zap"

	"github.com/lddmodder/brickedit/internal/observer"
	"github.com/lddmodder/brickedit/pkg/project"
)

// Manager is the undo/redo log of one project at a time. It is not safe for
// concurrent use; like the project it belongs to the editing goroutine.
type Manager struct {
	project *project.PartProject
	unsubs  []func()
	log     *zap.SugaredLogger

	undoStack []*entry
	redoStack []*entry
	batch     *entry
	depth     int
	replaying bool
	lastID    int64

	historyChanged observer.Hooks
	beginUndoRedo  observer.Hooks
	endUndoRedo    observer.Hooks
}

// New returns a detached manager. A nil logger discards output.
func New(log *zap.SugaredLogger) *Manager {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Manager{log: log}
}

// Attach starts recording changes of p, detaching from any previous
// project and clearing the history.
func (m *Manager) Attach(p *project.PartProject) {
	m.Detach()
	m.project = p
	m.unsubs = []func(){
		p.OnElementCollectionChanged(m.onCollectionChanged),
		p.OnElementPropertyChanged(m.onPropertyChanged),
	}
}

// Detach stops recording and clears the history.
func (m *Manager) Detach() {
	for _, u := range m.unsubs {
		u()
	}
	m.unsubs = nil
	m.project = nil
	m.Clear()
}

// Project returns the attached project, or nil.
func (m *Manager) Project() *project.PartProject { return m.project }

// Clear drops every recorded step and any open batch.
func (m *Manager) Clear() {
	hadHistory := len(m.undoStack) > 0 || len(m.redoStack) > 0
	m.undoStack, m.redoStack = nil, nil
	m.batch, m.depth = nil, 0
	if hadHistory {
		m.historyChanged.Emit()
	}
}

func (m *Manager) CanUndo() bool           { return !m.replaying && m.depth == 0 && len(m.undoStack) > 0 }
func (m *Manager) CanRedo() bool           { return !m.replaying && m.depth == 0 && len(m.redoStack) > 0 }
func (m *Manager) IsInBatch() bool         { return m.depth > 0 }
func (m *Manager) ExecutingUndoRedo() bool { return m.replaying }

// CurrentChangeID identifies the state reached by the last applied step: the
// ID of the top of the undo stack, or 0 when nothing can be undone. IDs are
// never reused, so comparing against a saved value tells whether the project
// changed since.
func (m *Manager) CurrentChangeID() int64 {
	if n := len(m.undoStack); n > 0 {
		return m.undoStack[n-1].id
	}
	return 0
}

// UndoCount and RedoCount report the stack depths.
func (m *Manager) UndoCount() int { return len(m.undoStack) }
func (m *Manager) RedoCount() int { return len(m.redoStack) }

// OnHistoryChanged subscribes to changes of the undo or redo stacks.
func (m *Manager) OnHistoryChanged(fn func()) func() { return m.historyChanged.Add(fn) }

// OnBeginUndoRedo subscribes to the start of a replay.
func (m *Manager) OnBeginUndoRedo(fn func()) func() { return m.beginUndoRedo.Add(fn) }

// OnEndUndoRedo subscribes to the end of a replay.
func (m *Manager) OnEndUndoRedo(fn func()) func() { return m.endUndoRedo.Add(fn) }

// ----------------------------------------------------------------------------
// Batches
// ----------------------------------------------------------------------------

// StartBatchChanges opens a batch. Batches nest; the outermost
// EndBatchChanges commits every change since the outermost start as one
// step.
func (m *Manager) StartBatchChanges() {
	if m.depth == 0 {
		m.batch = &entry{}
	}
	m.depth++
}

// EndBatchChanges closes a batch. An empty outermost batch records nothing.
func (m *Manager) EndBatchChanges() {
	if m.depth == 0 {
		return
	}
	m.depth--
	if m.depth > 0 {
		return
	}
	b := m.batch
	m.batch = nil
	if len(b.changes) > 0 {
		m.push(b)
	}
}

// ----------------------------------------------------------------------------
// Replay
// ----------------------------------------------------------------------------

// Undo reverts the most recent step. It reports false when there is
// nothing to undo or a batch is open.
func (m *Manager) Undo() bool {
	if !m.CanUndo() {
		return false
	}
	e := m.undoStack[len(m.undoStack)-1]
	m.undoStack = m.undoStack[:len(m.undoStack)-1]
	m.replay(e, (*entry).undo, "undo", &m.redoStack)
	return true
}

// Redo reapplies the most recently undone step.
func (m *Manager) Redo() bool {
	if !m.CanRedo() {
		return false
	}
	e := m.redoStack[len(m.redoStack)-1]
	m.redoStack = m.redoStack[:len(m.redoStack)-1]
	m.replay(e, (*entry).redo, "redo", &m.undoStack)
	return true
}

// replay runs e and moves it onto target. The end hooks fire while
// replaying is still set, so changes they trigger are not recorded.
func (m *Manager) replay(e *entry, run func(*entry), op string, target *[]*entry) {
	m.log.Debugw("history replay", "op", op, "change", e.id, "steps", len(e.changes))
	m.replaying = true
	m.beginUndoRedo.Emit()
	func() {
		defer func() { m.replaying = false }()
		run(e)
		*target = append(*target, e)
		m.endUndoRedo.Emit()
	}()
	m.historyChanged.Emit()
}

// ----------------------------------------------------------------------------
// Recording
// ----------------------------------------------------------------------------

func (m *Manager) record(c change) {
	if m.replaying {
		return
	}
	if m.batch != nil {
		m.batch.changes = append(m.batch.changes, c)
		return
	}
	m.push(&entry{changes: []change{c}})
}

func (m *Manager) push(e *entry) {
	m.lastID++
	e.id = m.lastID
	m.undoStack = append(m.undoStack, e)
	m.redoStack = nil
	m.historyChanged.Emit()
}

func (m *Manager) onCollectionChanged(ev project.CollectionChangedEvent) {
	m.record(collectionChange{ev: ev})
}

func (m *Manager) onPropertyChanged(ev project.PropertyChangedEvent) {
	m.record(propertyChange{ev: ev})
}
