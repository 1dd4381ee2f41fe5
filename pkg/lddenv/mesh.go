package lddenv

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/lddmodder/brickedit/pkg/geom"
)

// CullingType classifies an index range of an LDD mesh.
type CullingType int

const (
	CullingMain CullingType = iota
	CullingStud
	CullingFemaleStud
	CullingTube
)

func (t CullingType) String() string {
	switch t {
	case CullingMain:
		return "main"
	case CullingStud:
		return "stud"
	case CullingFemaleStud:
		return "femaleStud"
	case CullingTube:
		return "tube"
	default:
		return fmt.Sprintf("CullingType(%d)", int(t))
	}
}

// Culling is an index range of a surface mesh. Non-main cullings point at
// the Custom2DField connector they render studs for.
type Culling struct {
	Type               CullingType
	IndexStart         int
	IndexCount         int
	StudConnectorIndex int
}

// SurfaceMesh is the geometry of one part surface.
type SurfaceMesh struct {
	SurfaceID int
	Path      string
	Geometry  *geom.Geometry
	Cullings  []Culling
}

// CullingGeometry returns the sub-mesh of culling c.
func (s SurfaceMesh) CullingGeometry(c Culling) *geom.Geometry {
	return s.Geometry.Subset(c.IndexStart, c.IndexCount)
}

// .g file layout: "10GB", vertex count, index count and mesh type (all
// little-endian int32), then positions, normals, optional texture
// coordinates and indices. Trailing culling and bone sections are not read.
const meshMagic = "10GB"

const (
	meshStandard         = 0x3A
	meshTextured         = 0x3B
	meshFlexible         = 0x3E
	meshFlexibleTextured = 0x3F
)

// maxMeshElements bounds header counts so a corrupt file can't force a huge
// allocation.
const maxMeshElements = 1 << 24

// ErrBadMesh is returned for files that are not LDD meshes.
var ErrBadMesh = errors.New("lddenv: not an LDD mesh file")

type meshHeader struct {
	Magic       [4]byte
	VertexCount int32
	IndexCount  int32
	MeshType    int32
}

// ReadMeshFile reads the geometry section of an LDD .g file. The whole
// index range is returned as a single main culling.
func ReadMeshFile(r io.Reader) (*geom.Geometry, []Culling, error) {
	br := bufio.NewReader(r)
	var h meshHeader
	if err := binary.Read(br, binary.LittleEndian, &h); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBadMesh, err)
	}
	if string(h.Magic[:]) != meshMagic {
		return nil, nil, fmt.Errorf("%w: magic %q", ErrBadMesh, h.Magic[:])
	}
	if h.VertexCount < 0 || h.IndexCount < 0 || h.VertexCount > maxMeshElements || h.IndexCount > maxMeshElements {
		return nil, nil, fmt.Errorf("%w: %d vertices, %d indices", ErrBadMesh, h.VertexCount, h.IndexCount)
	}
	textured := h.MeshType == meshTextured || h.MeshType == meshFlexibleTextured
	switch h.MeshType {
	case meshStandard, meshTextured, meshFlexible, meshFlexibleTextured:
	default:
		return nil, nil, fmt.Errorf("%w: mesh type %#x", ErrBadMesh, h.MeshType)
	}

	vc, ic := int(h.VertexCount), int(h.IndexCount)
	pos := make([]float32, vc*3)
	nrm := make([]float32, vc*3)
	idx := make([]uint32, ic)
	if err := binary.Read(br, binary.LittleEndian, pos); err != nil {
		return nil, nil, fmt.Errorf("lddenv: read positions: %w", err)
	}
	if err := binary.Read(br, binary.LittleEndian, nrm); err != nil {
		return nil, nil, fmt.Errorf("lddenv: read normals: %w", err)
	}
	var uv []float32
	if textured {
		uv = make([]float32, vc*2)
		if err := binary.Read(br, binary.LittleEndian, uv); err != nil {
			return nil, nil, fmt.Errorf("lddenv: read texture coordinates: %w", err)
		}
	}
	if err := binary.Read(br, binary.LittleEndian, idx); err != nil {
		return nil, nil, fmt.Errorf("lddenv: read indices: %w", err)
	}
	for i, n := range idx {
		if int(n) >= vc {
			return nil, nil, fmt.Errorf("%w: index %d at %d out of range", ErrBadMesh, n, i)
		}
	}

	g := geom.FromFlat(pos, nrm, idx)
	if textured {
		for i := range g.Vertices {
			tc := v2.Vec{X: float64(uv[i*2]), Y: float64(uv[i*2+1])}
			g.Vertices[i].TexCoord = &tc
		}
	}
	fixNormals(g)
	return g, []Culling{{Type: CullingMain, IndexCount: ic, StudConnectorIndex: -1}}, nil
}

// WriteMeshFile writes g in the layout read by ReadMeshFile.
func WriteMeshFile(w io.Writer, g *geom.Geometry) error {
	h := meshHeader{VertexCount: int32(g.VertexCount()), IndexCount: int32(len(g.Indices)), MeshType: meshStandard}
	copy(h.Magic[:], meshMagic)
	textured := g.IsTextured()
	if textured {
		h.MeshType = meshTextured
	}
	pos, nrm, idx := g.Flat()
	bw := bufio.NewWriter(w)
	parts := []any{h, pos, nrm}
	if textured {
		uv := make([]float32, 0, len(g.Vertices)*2)
		for _, v := range g.Vertices {
			uv = append(uv, float32(v.TexCoord.X), float32(v.TexCoord.Y))
		}
		parts = append(parts, uv)
	}
	parts = append(parts, idx)
	for _, part := range parts {
		if err := binary.Write(bw, binary.LittleEndian, part); err != nil {
			return fmt.Errorf("lddenv: write mesh: %w", err)
		}
	}
	return bw.Flush()
}

// unitNormal reports whether n looks like a usable normal.
func unitNormal(n v3.Vec) bool {
	l := n.Length()
	return !math.IsNaN(l) && math.Abs(l-1) < 1e-3
}

// fixNormals recomputes normals for meshes exported without them.
func fixNormals(g *geom.Geometry) {
	for _, v := range g.Vertices {
		if !unitNormal(v.Normal) {
			g.ComputeFaceNormals()
			return
		}
	}
}
