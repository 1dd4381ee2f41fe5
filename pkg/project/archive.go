package project

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/lddmodder/brickedit/pkg/geom"
)

var (
	// ErrMissingManifest is returned when an archive or directory has no
	// project.xml.
	ErrMissingManifest = errors.New("project: missing " + ManifestName)

	// ErrInvalidArchivePath is returned for archive entries that would be
	// extracted outside the target directory.
	ErrInvalidArchivePath = errors.New("project: archive entry escapes target directory")
)

// SaveOption configures archive writing.
type SaveOption func(*saveConfig)

type saveConfig struct {
	level int
}

// CompressionLevel sets the deflate level (flate.NoCompression through
// flate.BestCompression). The default is flate.BestSpeed.
func CompressionLevel(level int) SaveOption {
	return func(c *saveConfig) { c.level = level }
}

func newSaveConfig(opts []SaveOption) saveConfig {
	c := saveConfig{level: flate.BestSpeed}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// GenerateMeshFileNames gives every pool mesh an archive file name. Names
// are kept unless empty, stale (not containing the mesh ID) or escaping the
// archive root. Referenced meshes are named {SurfaceID}_{MeshID}.geom.
func (p *PartProject) GenerateMeshFileNames() {
	for _, m := range p.Meshes.Items() {
		if m.FileName != "" && strings.Contains(m.FileName, m.ID) && isSafeEntryName(m.FileName) {
			continue
		}
		name := m.ID + geom.FileExt
		if s := p.MeshSurface(m); s != nil {
			name = fmt.Sprintf("%d_%s%s", s.SurfaceID, m.ID, geom.FileExt)
		}
		m.FileName = path.Join(MeshDir, name)
	}
}

// meshSource opens the bytes to archive for m: the working file when it
// exists, else the in-memory geometry. ok is false when neither exists.
func meshSource(m *ModelMesh) (r io.ReadCloser, ok bool, err error) {
	if m.WorkingFilePath != "" {
		f, err := os.Open(m.WorkingFilePath)
		if err == nil {
			return f, true, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, false, fmt.Errorf("project: open mesh %s: %w", m.ID, err)
		}
	}
	if g := m.Geometry(); g != nil {
		var buf bytes.Buffer
		if err := geom.Write(&buf, g); err != nil {
			return nil, false, err
		}
		return io.NopCloser(&buf), true, nil
	}
	return nil, false, nil
}

// WriteArchive writes the project archive to w: the manifest followed by one
// entry per pool mesh with a resolvable source. Meshes without one are
// skipped.
func (p *PartProject) WriteArchive(w io.Writer, opts ...SaveOption) error {
	cfg := newSaveConfig(opts)
	p.GenerateMeshFileNames()
	manifest, err := p.GenerateProjectXML()
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, cfg.level)
	})

	if err := writeEntry(zw, ManifestName, bytes.NewReader(manifest)); err != nil {
		zw.Close()
		return err
	}
	for _, m := range p.Meshes.Items() {
		src, ok, err := meshSource(m)
		if err != nil {
			zw.Close()
			return err
		}
		if !ok {
			p.log.Debugw("skipping mesh without source", "mesh", m.ID)
			continue
		}
		err = writeEntry(zw, m.FileName, src)
		src.Close()
		if err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("project: finish archive: %w", err)
	}
	return nil
}

func writeEntry(zw *zip.Writer, name string, r io.Reader) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("project: create entry %s: %w", name, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("project: write entry %s: %w", name, err)
	}
	return nil
}

// Save writes the project archive to filename and records it as the
// project path.
func (p *PartProject) Save(filename string, opts ...SaveOption) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("project: save: %w", err)
	}
	if err := p.WriteArchive(f, opts...); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("project: save: %w", err)
	}
	p.ProjectPath = filename
	return nil
}

// safeJoin maps an archive entry name under dir, rejecting absolute names
// and names that climb out of dir. Backslash separators are accepted.
func safeJoin(dir, name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	if name == "" || path.IsAbs(name) || filepath.IsAbs(filepath.FromSlash(name)) || filepath.VolumeName(filepath.FromSlash(name)) != "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidArchivePath, name)
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidArchivePath, name)
	}
	return filepath.Join(dir, filepath.FromSlash(clean)), nil
}

func isSafeEntryName(name string) bool {
	_, err := safeJoin(".", name)
	return err == nil
}

// ExtractAndOpen extracts the archive held by r into targetDir and loads
// the project from there.
func ExtractAndOpen(r io.ReaderAt, size int64, targetDir string, opts ...Option) (*PartProject, error) {
	zr, err := zip.NewReader(r, size)
	if zr == nil {
		return nil, fmt.Errorf("project: read archive: %w", err)
	}
	// A reader returned alongside an error only flags insecure names, which
	// safeJoin rejects below.
	hasManifest := false
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, `\`, "/") == ManifestName {
			hasManifest = true
			break
		}
	}
	if !hasManifest {
		return nil, ErrMissingManifest
	}

	targetDir, err = filepath.Abs(targetDir)
	if err != nil {
		return nil, fmt.Errorf("project: extract: %w", err)
	}
	dests := make(map[*zip.File]string, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		dest, err := safeJoin(targetDir, f.Name)
		if err != nil {
			return nil, err
		}
		dests[f] = dest
	}
	for _, f := range zr.File {
		if dest, ok := dests[f]; ok {
			if err := extractFile(f, dest); err != nil {
				return nil, err
			}
		}
	}
	return LoadFromDirectory(targetDir, opts...)
}

func extractFile(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("project: extract %s: %w", f.Name, err)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("project: extract %s: %w", f.Name, err)
	}
	defer rc.Close()
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("project: extract %s: %w", f.Name, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("project: extract %s: %w", f.Name, err)
	}
	return out.Close()
}

// OpenArchive extracts the archive at filename into targetDir and loads it.
func OpenArchive(filename, targetDir string, opts ...Option) (*PartProject, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("project: open archive: %w", err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("project: open archive: %w", err)
	}
	p, err := ExtractAndOpen(f, st.Size(), targetDir, opts...)
	if err != nil {
		return nil, err
	}
	p.ProjectPath = filename
	return p, nil
}

// LoadFromDirectory loads an extracted project and sets it as the working
// directory.
func LoadFromDirectory(dir string, opts ...Option) (*PartProject, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("project: load: %w", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w in %s", ErrMissingManifest, dir)
		}
		return nil, fmt.Errorf("project: load: %w", err)
	}
	p := New(opts...)
	p.WorkingDir = dir
	if err := p.LoadXML(data); err != nil {
		return nil, err
	}
	return p, nil
}

// SaveExtracted writes the manifest and mesh files to dir and makes it the
// working directory. Loaded geometry is written out; otherwise the existing
// working file is copied.
func (p *PartProject) SaveExtracted(dir string) error {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("project: save extracted: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, MeshDir), 0o755); err != nil {
		return fmt.Errorf("project: save extracted: %w", err)
	}
	p.GenerateMeshFileNames()
	manifest, err := p.GenerateProjectXML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), manifest, 0o644); err != nil {
		return fmt.Errorf("project: save extracted: %w", err)
	}

	for _, m := range p.Meshes.Items() {
		dest, err := safeJoin(dir, m.FileName)
		if err != nil {
			return err
		}
		switch {
		case m.Geometry() != nil:
			if err := geom.Save(dest, m.Geometry()); err != nil {
				return err
			}
		case m.WorkingFilePath != "" && m.WorkingFilePath != dest:
			if err := copyFile(m.WorkingFilePath, dest); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					p.log.Debugw("skipping mesh without source", "mesh", m.ID)
					continue
				}
				return err
			}
		case m.WorkingFilePath == dest:
		default:
			p.log.Debugw("skipping mesh without source", "mesh", m.ID)
			continue
		}
		m.WorkingFilePath = dest
	}
	p.WorkingDir = dir
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
