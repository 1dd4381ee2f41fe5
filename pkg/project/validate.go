package project

import (
	"fmt"
	"sort"
)

// ValidationLevel ranks a validation finding.
type ValidationLevel int

const (
	LevelInfo    ValidationLevel = iota // advisory
	LevelWarning                        // suspicious but loadable
	LevelError                          // the part will not work in LDD
)

func (l ValidationLevel) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("ValidationLevel(%d)", int(l))
	}
}

// ValidationMessage describes a single validation finding.
type ValidationMessage struct {
	Source  string          // element ID, empty for part-level findings
	Code    string          // stable machine-readable code
	Level   ValidationLevel // severity
	Message string          // human-readable description
}

func (m ValidationMessage) Error() string {
	if m.Source == "" {
		return fmt.Sprintf("[%s] %s: %s", m.Level, m.Code, m.Message)
	}
	return fmt.Sprintf("[%s] %s: element %s: %s", m.Level, m.Code, m.Source, m.Message)
}

// Validation codes.
const (
	CodeNoMainSurface        = "NO_MAIN_SURFACE"
	CodeDecoratedMismatch    = "DECORATED_MISMATCH"
	CodeDecorationNoUV       = "DECORATION_NO_UV"
	CodeDuplicateID          = "DUPLICATE_ID"
	CodeDuplicateName        = "DUPLICATE_NAME"
	CodeUnlinkedCulling      = "UNLINKED_CULLING"
	CodeDanglingMeshRef      = "DANGLING_MESH_REF"
	CodeDuplicateBoneID      = "DUPLICATE_BONE_ID"
	CodeFlexibleWithoutBones = "FLEXIBLE_NO_BONES"
	CodeNoCollisions         = "NO_COLLISIONS"
)

// ValidatePart runs every check and returns the findings.
// It is read-only and never mutates the project.
func (p *PartProject) ValidatePart() []ValidationMessage {
	var msgs []ValidationMessage
	msgs = append(msgs, validateSurfaces(p)...)
	msgs = append(msgs, validateUniqueness(p)...)
	msgs = append(msgs, validateReferences(p)...)
	msgs = append(msgs, validateBones(p)...)
	if len(p.AllCollisions()) == 0 {
		msgs = append(msgs, ValidationMessage{
			Code:    CodeNoCollisions,
			Level:   LevelInfo,
			Message: "part has no collision volumes",
		})
	}
	return msgs
}

// HasErrors reports whether any finding is error level.
func HasErrors(msgs []ValidationMessage) bool {
	for _, m := range msgs {
		if m.Level == LevelError {
			return true
		}
	}
	return false
}

func validateSurfaces(p *PartProject) []ValidationMessage {
	var msgs []ValidationMessage

	if p.MainSurface() == nil {
		msgs = append(msgs, ValidationMessage{
			Code:    CodeNoMainSurface,
			Level:   LevelError,
			Message: "part has no main surface (surface 0)",
		})
	}

	hasDecorations := false
	for _, s := range p.Surfaces.Items() {
		if !s.IsDecoration() {
			continue
		}
		hasDecorations = true
		for _, m := range p.SurfaceMeshes(s) {
			if !m.IsTextured() {
				msgs = append(msgs, ValidationMessage{
					Source:  m.ID,
					Code:    CodeDecorationNoUV,
					Level:   LevelError,
					Message: fmt.Sprintf("mesh %q on decoration surface %d has no texture coordinates", m.Name, s.SurfaceID),
				})
			}
		}
	}
	if hasDecorations != p.Decorated {
		msg := "part is marked as decorated but has no decoration surface"
		if hasDecorations {
			msg = "part has decoration surfaces but is not marked as decorated"
		}
		msgs = append(msgs, ValidationMessage{
			Code:    CodeDecoratedMismatch,
			Level:   LevelWarning,
			Message: msg,
		})
	}
	return msgs
}

// validateUniqueness reports duplicate IDs across the project and duplicate
// names within a kind.
func validateUniqueness(p *PartProject) []ValidationMessage {
	var msgs []ValidationMessage
	ids := make(map[string]int)
	names := make(map[ElementKind]map[string]int)
	for _, e := range p.AllElements() {
		b := e.Base()
		ids[b.ID]++
		if names[e.Kind()] == nil {
			names[e.Kind()] = make(map[string]int)
		}
		names[e.Kind()][b.Name]++
	}

	for _, id := range sortedKeys(ids) {
		if ids[id] > 1 {
			msgs = append(msgs, ValidationMessage{
				Source:  id,
				Code:    CodeDuplicateID,
				Level:   LevelError,
				Message: fmt.Sprintf("ID %q is used by %d elements", id, ids[id]),
			})
		}
	}
	for _, k := range AllKinds {
		for _, name := range sortedKeys(names[k]) {
			if n := names[k][name]; n > 1 {
				msgs = append(msgs, ValidationMessage{
					Code:    CodeDuplicateName,
					Level:   LevelWarning,
					Message: fmt.Sprintf("%s name %q is used %d times", k, name, n),
				})
			}
		}
	}
	return msgs
}

func validateReferences(p *PartProject) []ValidationMessage {
	var msgs []ValidationMessage
	for _, s := range p.Surfaces.Items() {
		for _, c := range s.Components.Items() {
			if c.IsCulling() && p.LinkedConnection(c) == nil {
				msgs = append(msgs, ValidationMessage{
					Source:  c.ID,
					Code:    CodeUnlinkedCulling,
					Level:   LevelError,
					Message: fmt.Sprintf("%s component %q is not linked to a connection", c.ComponentType, c.Name),
				})
			}
			for _, r := range c.AllMeshRefs() {
				if p.MeshByID(r.MeshID) == nil {
					msgs = append(msgs, ValidationMessage{
						Source:  r.ID,
						Code:    CodeDanglingMeshRef,
						Level:   LevelError,
						Message: fmt.Sprintf("mesh reference %q points at missing mesh %q", r.Name, r.MeshID),
					})
				}
			}
		}
	}
	return msgs
}

func validateBones(p *PartProject) []ValidationMessage {
	var msgs []ValidationMessage
	seen := make(map[int]string)
	for _, b := range p.Bones.Items() {
		if first, ok := seen[b.BoneID]; ok {
			msgs = append(msgs, ValidationMessage{
				Source:  b.ID,
				Code:    CodeDuplicateBoneID,
				Level:   LevelError,
				Message: fmt.Sprintf("bone ID %d is already used by %s", b.BoneID, first),
			})
			continue
		}
		seen[b.BoneID] = b.ID
	}
	if p.Flexible && p.Bones.Len() == 0 {
		msgs = append(msgs, ValidationMessage{
			Code:    CodeFlexibleWithoutBones,
			Level:   LevelError,
			Message: "part is marked as flexible but has no bones",
		})
	}
	return msgs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
