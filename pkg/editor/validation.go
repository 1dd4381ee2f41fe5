package editor

import (
	"fmt"
	"slices"

	"github.com/lddmodder/brickedit/pkg/project"
)

// Codes used for findings the editor adds itself.
const (
	SourceProject          = "PROJECT"
	CodeUnhandledException = "UNHANDLED_EXCEPTION"
)

// ValidateProject runs the part checks and records the result against the
// current history position. A panic inside the checks is reported as one
// error finding.
func (m *Manager) ValidateProject() {
	if m.current == nil {
		return
	}
	m.validating = true
	m.validationStarted.Emit()

	m.validation = m.runValidation()
	m.validating = false
	m.lastValidation = m.history.CurrentChangeID()
	m.log.Debugw("project validated", "findings", len(m.validation), "valid", !project.HasErrors(m.validation))

	m.validationFinished.Emit()
}

func (m *Manager) runValidation() (msgs []project.ValidationMessage) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Errorw("validation panicked", "panic", r)
			msgs = []project.ValidationMessage{{
				Source:  SourceProject,
				Code:    CodeUnhandledException,
				Level:   project.LevelError,
				Message: fmt.Sprint(r),
			}}
		}
	}()
	return m.current.ValidatePart()
}

// ValidationMessages returns the findings of the last validation.
func (m *Manager) ValidationMessages() []project.ValidationMessage {
	return slices.Clone(m.validation)
}

func (m *Manager) IsValidatingProject() bool { return m.validating }

// IsPartValidated reports whether the last validation ran at the current
// history position.
func (m *Manager) IsPartValidated() bool {
	return m.current != nil && m.lastValidation == m.history.CurrentChangeID()
}

// IsPartValid reports a current validation without error findings.
func (m *Manager) IsPartValid() bool {
	return m.IsPartValidated() && !project.HasErrors(m.validation)
}
