package editor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/lddmodder/brickedit/internal/observer"
	"github.com/lddmodder/brickedit/pkg/history"
	"github.com/lddmodder/brickedit/pkg/project"
)

// ErrNoProject is returned by operations that need an open project.
var ErrNoProject = errors.New("editor: no project is open")

// Manager tracks the current project and the editing session around it.
type Manager struct {
	log     *zap.SugaredLogger
	history *history.Manager

	current      *project.PartProject
	unsubs       []func()
	preventEvent bool

	selected []project.Element

	validation     []project.ValidationMessage
	validating     bool
	lastValidation int64
	lastSaved      int64

	// elementsDirty defers ElementsChanged to the end of a batch or replay.
	elementsDirty bool

	visible map[Layer]bool

	selectionChanged   observer.Hooks
	projectClosed      observer.Hooks
	projectChanged     observer.Hooks
	projectModified    observer.Hooks
	elementsChanged    observer.Hooks
	validationStarted  observer.Hooks
	validationFinished observer.Hooks
	collectionChanged  observer.List[project.CollectionChangedEvent]
	propertyChanged    observer.List[project.PropertyChangedEvent]
	visibilityChanged  observer.List[Layer]
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the session logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// New returns a manager with no open project. Part models are shown;
// collisions and connections are hidden.
func New(opts ...Option) *Manager {
	m := &Manager{
		log:            zap.NewNop().Sugar(),
		lastValidation: -1,
		visible:        map[Layer]bool{LayerPartModels: true},
	}
	for _, o := range opts {
		o(m)
	}
	m.history = history.New(m.log.Named("history"))
	m.history.OnHistoryChanged(m.projectModified.Emit)
	m.history.OnEndUndoRedo(m.flushElementsChanged)
	return m
}

func (m *Manager) CurrentProject() *project.PartProject { return m.current }
func (m *Manager) History() *history.Manager            { return m.history }
func (m *Manager) IsProjectOpen() bool                  { return m.current != nil }

// IsNewProject reports whether the open project has never been saved.
func (m *Manager) IsNewProject() bool {
	return m.current != nil && m.current.ProjectPath == ""
}

// IsModified reports whether the history moved since the last save.
func (m *Manager) IsModified() bool {
	return m.current != nil && m.lastSaved != m.history.CurrentChangeID()
}

// DisplayName is a short title for the open project.
func (m *Manager) DisplayName() string {
	p := m.current
	switch {
	case p == nil:
		return "No active project"
	case p.PartID > 0 && p.Description != "":
		return fmt.Sprintf("%d - %s", p.PartID, p.Description)
	case p.PartID > 0:
		return fmt.Sprintf("Part %d", p.PartID)
	case p.Description != "":
		return p.Description
	default:
		return "New part project"
	}
}

// ----------------------------------------------------------------------------
// Opening and closing
// ----------------------------------------------------------------------------

// SetCurrentProject closes the current project and makes p current. A nil p
// just closes. ProjectChanged fires once.
func (m *Manager) SetCurrentProject(p *project.PartProject) {
	if m.current == p {
		return
	}
	m.preventEvent = true
	m.CloseCurrentProject()
	m.preventEvent = false

	m.current = p
	if p != nil {
		m.attach(p)
		m.log.Infow("project opened", "part", p.PartID, "path", p.ProjectPath)
	}
	m.projectChanged.Emit()
}

// CloseCurrentProject detaches the current project and drops the session
// state tied to it.
func (m *Manager) CloseCurrentProject() {
	if m.current == nil {
		return
	}
	m.detach()
	m.projectClosed.Emit()
	m.log.Infow("project closed", "part", m.current.PartID)
	m.current = nil
	if !m.preventEvent {
		m.projectChanged.Emit()
	}
}

func (m *Manager) attach(p *project.PartProject) {
	m.unsubs = []func(){
		p.OnElementCollectionChanged(m.onCollectionChanged),
		p.OnElementPropertyChanged(m.propertyChanged.Emit),
	}
	m.history.Attach(p)
	m.lastSaved = m.history.CurrentChangeID()
	m.lastValidation = -1
}

func (m *Manager) detach() {
	for _, u := range m.unsubs {
		u()
	}
	m.unsubs = nil
	m.history.Detach()
	m.selected = nil
	m.validation = nil
	m.lastSaved = 0
	m.lastValidation = -1
	m.elementsDirty = false
}

// ----------------------------------------------------------------------------
// Saving
// ----------------------------------------------------------------------------

// SaveProject writes the project archive to path and marks the current
// history position as saved.
func (m *Manager) SaveProject(path string, opts ...project.SaveOption) error {
	if m.current == nil {
		return ErrNoProject
	}
	if err := m.current.Save(path, opts...); err != nil {
		return err
	}
	m.lastSaved = m.history.CurrentChangeID()
	m.log.Infow("project saved", "path", path, "change", m.lastSaved)
	m.projectModified.Emit()
	return nil
}

// SaveWorkingProject rewrites the manifest in the working directory. It
// does not affect the modified state.
func (m *Manager) SaveWorkingProject() error {
	if m.current == nil {
		return ErrNoProject
	}
	dir := m.current.WorkingDir
	if dir == "" {
		return errors.New("editor: project has no working directory")
	}
	data, err := m.current.GenerateProjectXML()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, project.ManifestName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("editor: save working project: %w", err)
	}
	m.log.Debugw("working manifest written", "path", path)
	return nil
}

// ----------------------------------------------------------------------------
// Undo and batches
// ----------------------------------------------------------------------------

func (m *Manager) CanUndo() bool                 { return m.history.CanUndo() }
func (m *Manager) CanRedo() bool                 { return m.history.CanRedo() }
func (m *Manager) Undo() bool                    { return m.history.Undo() }
func (m *Manager) Redo() bool                    { return m.history.Redo() }
func (m *Manager) IsExecutingUndoRedo() bool     { return m.history.ExecutingUndoRedo() }
func (m *Manager) IsExecutingBatchChanges() bool { return m.history.IsInBatch() }
func (m *Manager) StartBatchChanges()            { m.history.StartBatchChanges() }

// EndBatchChanges closes a batch; closing the outermost one fires a pending
// ElementsChanged.
func (m *Manager) EndBatchChanges() {
	m.history.EndBatchChanges()
	if !m.history.IsInBatch() {
		m.flushElementsChanged()
	}
}

// Batch runs fn inside one batch, so its changes undo as one step.
func (m *Manager) Batch(fn func() error) error {
	m.StartBatchChanges()
	defer m.EndBatchChanges()
	return fn()
}

func (m *Manager) flushElementsChanged() {
	if m.elementsDirty {
		m.elementsDirty = false
		m.elementsChanged.Emit()
	}
}

func (m *Manager) onCollectionChanged(ev project.CollectionChangedEvent) {
	if ev.Action == project.ActionRemove {
		m.pruneSelection(ev.Elements)
	}
	m.collectionChanged.Emit(ev)

	if m.IsExecutingUndoRedo() || m.IsExecutingBatchChanges() {
		m.elementsDirty = true
		return
	}
	m.elementsChanged.Emit()
}

// ----------------------------------------------------------------------------
// Events
// ----------------------------------------------------------------------------

func (m *Manager) OnSelectionChanged(fn func()) func()  { return m.selectionChanged.Add(fn) }
func (m *Manager) OnProjectClosed(fn func()) func()     { return m.projectClosed.Add(fn) }
func (m *Manager) OnProjectChanged(fn func()) func()    { return m.projectChanged.Add(fn) }
func (m *Manager) OnProjectModified(fn func()) func()   { return m.projectModified.Add(fn) }
func (m *Manager) OnValidationStarted(fn func()) func() { return m.validationStarted.Add(fn) }

func (m *Manager) OnValidationFinished(fn func()) func() { return m.validationFinished.Add(fn) }

// OnElementsChanged fires after the element tree changed: immediately for
// a single edit, once at the end of a batch or replay otherwise.
func (m *Manager) OnElementsChanged(fn func()) func() { return m.elementsChanged.Add(fn) }

func (m *Manager) OnElementCollectionChanged(fn func(project.CollectionChangedEvent)) func() {
	return m.collectionChanged.Add(fn)
}

func (m *Manager) OnElementPropertyChanged(fn func(project.PropertyChangedEvent)) func() {
	return m.propertyChanged.Add(fn)
}

func (m *Manager) OnVisibilityChanged(fn func(Layer)) func() {
	return m.visibilityChanged.Add(fn)
}
