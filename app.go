package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/lddmodder/brickedit/pkg/editor"
	"github.com/lddmodder/brickedit/pkg/geom"
	"github.com/lddmodder/brickedit/pkg/kernel"
	"github.com/lddmodder/brickedit/pkg/kernel/sdfx"
	"github.com/lddmodder/brickedit/pkg/lddenv"
	"github.com/lddmodder/brickedit/pkg/project"
	"github.com/lddmodder/brickedit/pkg/script"
	"github.com/lddmodder/brickedit/pkg/tessellate"
)

// ErrNoLDDPath is returned by ImportPart when no LDD installation is
// configured.
var ErrNoLDDPath = errors.New("brickedit: ldd_path is not configured")

// App ties the project manager to the script engine and the collision
// kernel. Each CLI command drives one App.
type App struct {
	cfg    *Config
	log    *zap.SugaredLogger
	editor *editor.Manager
	engine *script.Engine
	kernel kernel.Kernel

	tmpDirs []string
}

// NewApp creates an App with the sdfx kernel. A nil log discards output.
func NewApp(cfg *Config, log *zap.SugaredLogger) *App {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &App{
		cfg:    cfg,
		log:    log,
		editor: editor.New(editor.WithLogger(log.Named("editor"))),
		engine: script.NewEngine(),
		kernel: sdfx.New(),
	}
}

// Editor returns the project manager.
func (a *App) Editor() *editor.Manager { return a.editor }

// Close closes the current project and removes extraction directories.
func (a *App) Close() error {
	a.editor.CloseCurrentProject()
	var errs []error
	for _, d := range a.tmpDirs {
		if err := os.RemoveAll(d); err != nil {
			errs = append(errs, err)
		}
	}
	a.tmpDirs = nil
	return errors.Join(errs...)
}

func (a *App) projectOptions() []project.Option {
	return []project.Option{project.WithLogger(a.log.Named("project"))}
}

func (a *App) saveOptions() []project.SaveOption {
	return []project.SaveOption{project.CompressionLevel(a.cfg.Compression)}
}

// extractDir creates a fresh directory under the configured work dir.
func (a *App) extractDir() (string, error) {
	if err := os.MkdirAll(a.cfg.WorkDir, 0o755); err != nil {
		return "", fmt.Errorf("brickedit: work dir: %w", err)
	}
	dir, err := os.MkdirTemp(a.cfg.WorkDir, "project-*")
	if err != nil {
		return "", fmt.Errorf("brickedit: work dir: %w", err)
	}
	a.tmpDirs = append(a.tmpDirs, dir)
	return dir, nil
}

func (a *App) currentProject() (*project.PartProject, error) {
	p := a.editor.CurrentProject()
	if p == nil {
		return nil, editor.ErrNoProject
	}
	return p, nil
}

// ----------------------------------------------------------------------------
// Opening projects
// ----------------------------------------------------------------------------

// NewProject makes a new project holding only the main surface current.
func (a *App) NewProject(partID int, description string) *project.PartProject {
	p := project.NewEmpty(a.projectOptions()...)
	p.PartID = partID
	p.Description = description
	a.editor.SetCurrentProject(p)
	return p
}

// ImportPart builds a project from the configured LDD installation.
func (a *App) ImportPart(partID int) (*project.PartProject, error) {
	if a.cfg.LDDPath == "" {
		return nil, ErrNoLDDPath
	}
	env := lddenv.NewDirEnvironment(a.cfg.LDDPath)
	p, err := project.CreateFromLddPart(env, partID, a.projectOptions()...)
	if err != nil {
		return nil, err
	}
	a.log.Infow("part imported", "part", partID, "surfaces", p.Surfaces.Len(), "meshes", p.Meshes.Len())
	a.editor.SetCurrentProject(p)
	return p, nil
}

// Open loads an archive or an extracted project directory.
func (a *App) Open(path string) (*project.PartProject, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("brickedit: open: %w", err)
	}

	var p *project.PartProject
	if st.IsDir() {
		p, err = project.LoadFromDirectory(path, a.projectOptions()...)
	} else {
		var dir string
		if dir, err = a.extractDir(); err != nil {
			return nil, err
		}
		p, err = project.OpenArchive(path, dir, a.projectOptions()...)
	}
	if err != nil {
		return nil, err
	}
	a.editor.SetCurrentProject(p)
	return p, nil
}

// ----------------------------------------------------------------------------
// Writing projects
// ----------------------------------------------------------------------------

// Save writes the current project as an archive.
func (a *App) Save(path string) error {
	return a.editor.SaveProject(path, a.saveOptions()...)
}

// Extract writes the current project unpacked into dir.
func (a *App) Extract(dir string) error {
	p, err := a.currentProject()
	if err != nil {
		return err
	}
	return p.SaveExtracted(dir)
}

// ----------------------------------------------------------------------------
// Inspection
// ----------------------------------------------------------------------------

// ProjectInfo summarizes a project for the info command.
type ProjectInfo struct {
	PartID      int           `yaml:"part_id"`
	Description string        `yaml:"description,omitempty"`
	Aliases     []int         `yaml:"aliases,omitempty"`
	Flexible    bool          `yaml:"flexible"`
	Decorated   bool          `yaml:"decorated"`
	Surfaces    []SurfaceInfo `yaml:"surfaces"`
	Connections int           `yaml:"connections"`
	Collisions  int           `yaml:"collisions"`
	Bones       int           `yaml:"bones"`
	Meshes      int           `yaml:"meshes"`
	Unassigned  int           `yaml:"unassigned_meshes,omitempty"`
}

type SurfaceInfo struct {
	ID         int `yaml:"id"`
	Material   int `yaml:"material"`
	Components int `yaml:"components"`
}

// Info describes the current project.
func (a *App) Info() (*ProjectInfo, error) {
	p, err := a.currentProject()
	if err != nil {
		return nil, err
	}
	return &ProjectInfo{
		PartID:      p.PartID,
		Description: p.Description,
		Aliases:     p.Aliases,
		Flexible:    p.Flexible,
		Decorated:   p.Decorated,
		Surfaces: lo.Map(p.Surfaces.Items(), func(s *project.PartSurface, _ int) SurfaceInfo {
			return SurfaceInfo{ID: s.SurfaceID, Material: s.MaterialIndex, Components: s.Components.Len()}
		}),
		Connections: len(p.AllConnections()),
		Collisions:  len(p.AllCollisions()),
		Bones:       p.Bones.Len(),
		Meshes:      p.Meshes.Len(),
		Unassigned:  len(p.UnassignedMeshes()),
	}, nil
}

// Validate runs validation on the current project.
func (a *App) Validate() ([]project.ValidationMessage, error) {
	if _, err := a.currentProject(); err != nil {
		return nil, err
	}
	a.editor.ValidateProject()
	return a.editor.ValidationMessages(), nil
}

// ----------------------------------------------------------------------------
// Scripts and previews
// ----------------------------------------------------------------------------

// ScriptError carries the errors reported by a failed script.
type ScriptError struct {
	Errors []script.EvalError
}

func (e *ScriptError) Error() string {
	return "script failed: " + strings.Join(lo.Map(e.Errors, func(ee script.EvalError, _ int) string {
		return ee.Error()
	}), "; ")
}

// RunScript evaluates source and applies the result to the current project
// as one undo step. It returns the applied edits.
func (a *App) RunScript(source string) ([]string, error) {
	p, err := a.currentProject()
	if err != nil {
		return nil, err
	}
	plan, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		return nil, err
	}
	if len(evalErrs) > 0 {
		return nil, &ScriptError{Errors: evalErrs}
	}
	if err := plan.Apply(p, a.editor); err != nil {
		return nil, err
	}
	a.log.Infow("script applied", "edits", plan.Len(), "change", a.editor.History().CurrentChangeID())
	return plan.Describe(), nil
}

// WriteCollisions tessellates every collision of the current project and
// writes one .geom file per collision into dir.
func (a *App) WriteCollisions(dir string) ([]string, error) {
	p, err := a.currentProject()
	if err != nil {
		return nil, err
	}
	previews, err := tessellate.Collisions(p, a.kernel)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(previews))
	for _, pv := range previews {
		path := filepath.Join(dir, previewFileName(pv))
		if err := geom.Save(path, pv.Geometry); err != nil {
			return paths, err
		}
		a.log.Debugw("collision written", "element", pv.ElementID, "bone", pv.BoneID,
			"triangles", pv.Geometry.TriangleCount())
		paths = append(paths, path)
	}
	return paths, nil
}

// previewFileName names a preview file after its element. Names that are
// not a single path element fall back to the element ID.
func previewFileName(pv tessellate.Preview) string {
	name := pv.Name
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\:`) {
		name = pv.ElementID
	}
	return name + geom.FileExt
}
