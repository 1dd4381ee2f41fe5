package geom

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/ugorji/go/codec"
)

// FileExt is the extension of serialized geometry files.
const FileExt = ".geom"

// formatVersion is bumped whenever fileGeometry changes incompatibly.
const formatVersion = 1

// ErrNotFound is returned when a geometry file does not exist.
var ErrNotFound = errors.New("geom: geometry file not found")

// ErrUnsupportedVersion is returned for files written by a newer format.
var ErrUnsupportedVersion = errors.New("geom: unsupported file version")

var cborHandle = func() *codec.CborHandle {
	h := &codec.CborHandle{}
	h.Canonical = true
	return h
}()

// fileGeometry is the on-disk layout. Positions, normals and texture
// coordinates are stored as flat float32 runs.
type fileGeometry struct {
	Version     int            `codec:"v"`
	Positions   []float32      `codec:"pos"`
	Normals     []float32      `codec:"nrm"`
	TexCoords   []float32      `codec:"uv,omitempty"`
	BoneWeights [][]BoneWeight `codec:"bw,omitempty"`
	Indices     []uint32       `codec:"idx"`
}

// Write encodes g to w.
func Write(w io.Writer, g *Geometry) error {
	fg := fileGeometry{Version: formatVersion}
	fg.Positions, fg.Normals, fg.Indices = g.Flat()

	if g.IsTextured() {
		fg.TexCoords = make([]float32, 0, len(g.Vertices)*2)
		for _, v := range g.Vertices {
			fg.TexCoords = append(fg.TexCoords, float32(v.TexCoord.X), float32(v.TexCoord.Y))
		}
	}
	if g.IsFlexible() {
		fg.BoneWeights = make([][]BoneWeight, len(g.Vertices))
		for i, v := range g.Vertices {
			fg.BoneWeights[i] = v.BoneWeights
		}
	}

	if err := codec.NewEncoder(w, cborHandle).Encode(&fg); err != nil {
		return fmt.Errorf("geom: encode: %w", err)
	}
	return nil
}

// Read decodes a geometry from r.
func Read(r io.Reader) (*Geometry, error) {
	var fg fileGeometry
	if err := codec.NewDecoder(r, cborHandle).Decode(&fg); err != nil {
		return nil, fmt.Errorf("geom: decode: %w", err)
	}
	if fg.Version > formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, fg.Version)
	}
	if len(fg.Positions)%3 != 0 || len(fg.Indices)%3 != 0 {
		return nil, fmt.Errorf("geom: decode: truncated buffers (%d positions, %d indices)",
			len(fg.Positions), len(fg.Indices))
	}

	g := FromFlat(fg.Positions, fg.Normals, fg.Indices)
	for i, idx := range g.Indices {
		if idx < 0 || idx >= len(g.Vertices) {
			return nil, fmt.Errorf("geom: decode: index %d at %d out of range", idx, i)
		}
	}
	if len(fg.TexCoords) == len(g.Vertices)*2 {
		for i := range g.Vertices {
			g.Vertices[i].TexCoord = &v2.Vec{X: float64(fg.TexCoords[i*2]), Y: float64(fg.TexCoords[i*2+1])}
		}
	}
	if len(fg.BoneWeights) == len(g.Vertices) {
		for i := range g.Vertices {
			g.Vertices[i].BoneWeights = fg.BoneWeights[i]
		}
	}
	return g, nil
}

// Save writes g to path, creating parent directories.
func Save(path string, g *Geometry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("geom: save %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("geom: save %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if err := Write(bw, g); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("geom: save %s: %w", path, err)
	}
	return f.Close()
}

// FromFile reads a geometry file. A missing file yields an error wrapping
// ErrNotFound.
func FromFile(path string) (*Geometry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("geom: open %s: %w", path, err)
	}
	defer f.Close()
	return Read(bufio.NewReader(f))
}

// Quad returns a square of the given size in the XY plane made of two
// triangles. Handy for seeding new meshes and for tests.
func Quad(size float64, textured bool) *Geometry {
	h := size / 2
	pos := []v3.Vec{{X: -h, Y: -h}, {X: h, Y: -h}, {X: h, Y: h}, {X: -h, Y: h}}
	uv := []v2.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	g := &Geometry{Indices: []int{0, 1, 2, 0, 2, 3}}
	for i, p := range pos {
		v := Vertex{Position: p, Normal: v3.Vec{Z: 1}}
		if textured {
			tc := uv[i]
			v.TexCoord = &tc
		}
		g.Vertices = append(g.Vertices, v)
	}
	return g
}
