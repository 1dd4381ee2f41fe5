package lddenv

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/lddmodder/brickedit/pkg/geom"
)

// ErrNotFound is returned when a primitive or mesh file does not exist.
var ErrNotFound = errors.New("lddenv: not found")

// Environment provides primitive and mesh lookup by part ID.
type Environment interface {
	Primitive(partID int) (*Primitive, error)
	SurfaceMeshes(partID int) ([]SurfaceMesh, error)
}

// DirEnvironment reads an extracted LDD database rooted at Root (the
// directory holding db/).
type DirEnvironment struct {
	Root string
}

// NewDirEnvironment returns an environment for root.
func NewDirEnvironment(root string) *DirEnvironment {
	return &DirEnvironment{Root: root}
}

func (e *DirEnvironment) primitivesDir() string {
	return filepath.Join(e.Root, "db", "Primitives")
}

func (e *DirEnvironment) meshesDir() string {
	return filepath.Join(e.primitivesDir(), "LOD0")
}

// Primitive reads db/Primitives/{partID}.xml.
func (e *DirEnvironment) Primitive(partID int) (*Primitive, error) {
	path := filepath.Join(e.primitivesDir(), fmt.Sprintf("%d.xml", partID))
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: primitive %d", ErrNotFound, partID)
		}
		return nil, fmt.Errorf("lddenv: open primitive %d: %w", partID, err)
	}
	defer f.Close()
	return ReadPrimitive(f, partID)
}

// ParseSurfaceID extracts the surface ID from a mesh file name: ".g" is the
// main surface, ".gN" surface N.
func ParseSurfaceID(name string) (int, bool) {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	rest, ok := strings.CutPrefix(ext, "g")
	if !ok {
		return 0, false
	}
	if rest == "" {
		return 0, true
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// SurfaceMeshes reads every db/Primitives/LOD0/{partID}.g* file, ordered by
// surface ID.
func (e *DirEnvironment) SurfaceMeshes(partID int) ([]SurfaceMesh, error) {
	pattern := filepath.Join(e.meshesDir(), fmt.Sprintf("%d.g*", partID))
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("lddenv: list meshes: %w", err)
	}

	var out []SurfaceMesh
	for _, path := range paths {
		sid, ok := ParseSurfaceID(path)
		if !ok {
			continue
		}
		g, cullings, err := readMeshPath(path)
		if err != nil {
			return nil, err
		}
		out = append(out, SurfaceMesh{SurfaceID: sid, Path: path, Geometry: g, Cullings: cullings})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: meshes for part %d", ErrNotFound, partID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SurfaceID < out[j].SurfaceID })
	return out, nil
}

func readMeshPath(path string) (*geom.Geometry, []Culling, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("lddenv: open mesh: %w", err)
	}
	defer f.Close()
	g, c, err := ReadMeshFile(f)
	if err != nil {
		return nil, nil, fmt.Errorf("lddenv: %s: %w", filepath.Base(path), err)
	}
	return g, c, nil
}
