package editor

import (
	"slices"

	"github.com/samber/lo"

	"github.com/lddmodder/brickedit/pkg/project"
)

// SelectedElement returns the primary selection, or nil.
func (m *Manager) SelectedElement() project.Element {
	if len(m.selected) == 0 {
		return nil
	}
	return m.selected[0]
}

// SelectedElements returns a copy of the selection in selection order.
func (m *Manager) SelectedElements() []project.Element { return slices.Clone(m.selected) }

func (m *Manager) ClearSelection() {
	if len(m.selected) == 0 {
		return
	}
	m.selected = nil
	m.selectionChanged.Emit()
}

// SelectElement makes e the only selected element. A nil e clears the
// selection.
func (m *Manager) SelectElement(e project.Element) {
	if e == nil {
		m.ClearSelection()
		return
	}
	if len(m.selected) == 1 && m.selected[0] == e {
		return
	}
	m.selected = []project.Element{e}
	m.selectionChanged.Emit()
}

// SetSelected adds e to or removes it from the selection.
func (m *Manager) SetSelected(e project.Element, selected bool) {
	if e == nil || m.IsSelected(e) == selected {
		return
	}
	if selected {
		m.selected = append(m.selected, e)
	} else {
		m.selected = slices.DeleteFunc(m.selected, func(x project.Element) bool { return x == e })
	}
	m.selectionChanged.Emit()
}

// SelectElements replaces the selection. Duplicates and nils are dropped.
func (m *Manager) SelectElements(elems ...project.Element) {
	m.selected = lo.Uniq(lo.Compact(elems))
	m.selectionChanged.Emit()
}

func (m *Manager) IsSelected(e project.Element) bool {
	return slices.Contains(m.selected, e)
}

// IsContainedInSelection reports whether e is selected or a descendant of a
// selected element.
func (m *Manager) IsContainedInSelection(e project.Element) bool {
	return m.SelectionIndex(e) >= 0
}

// SelectionIndex returns the index of the selected element that is e or an
// ancestor of e, or -1.
func (m *Manager) SelectionIndex(e project.Element) int {
	for i, s := range m.selected {
		if s == e || slices.Contains(project.Descendants(s), e) {
			return i
		}
	}
	return -1
}

// pruneSelection drops removed elements and their descendants.
func (m *Manager) pruneSelection(removed []project.Element) {
	gone := make(map[project.Element]bool)
	for _, e := range removed {
		gone[e] = true
		for _, d := range project.Descendants(e) {
			gone[d] = true
		}
	}
	n := len(m.selected)
	m.selected = slices.DeleteFunc(m.selected, func(x project.Element) bool { return gone[x] })
	if len(m.selected) != n {
		m.selectionChanged.Emit()
	}
}
