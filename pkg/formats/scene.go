// LSC (lodtiler scene cache) reader and writer.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/Faultbox/lodtiler/pkg/math"
	"github.com/Faultbox/lodtiler/pkg/scene"
)

// LSC format errors.
var (
	ErrInvalidLSCMagic       = errors.New("invalid LSC magic: expected 'LSCN'")
	ErrUnsupportedLSCVersion = errors.New("unsupported LSC version")
	ErrTruncatedLSCData      = errors.New("truncated LSC data")
	ErrInvalidNodeParent     = errors.New("invalid LSC node parent")
	ErrSceneCycle            = errors.New("scene node reachable twice")
)

// LSCVersion is the version WriteScene emits.
var LSCVersion = Version{Major: 1, Minor: 0}

// Attribute mask bits stored per mesh.
const (
	lscNormals   uint8 = 1 << 0
	lscTexCoords uint8 = 1 << 1
	lscColors    uint8 = 1 << 2
)

const lscHeaderSize = 6

// Layout (little-endian):
//
//	"LSCN" major minor
//	u32 meshCount, then per mesh:
//	  name, u8 mask, u32 vertexCount, u32 indexCount,
//	  f64 positions[3n], f32 normals[3n]?, f32 texcoords[2n]?, f32 colors[4n]?,
//	  u32 indices[indexCount]
//	u32 nodeCount, then per node in pre-order:
//	  name, i32 parent (-1 for roots), f64 transform[16], u32 meshRefs, i32 refs[]
//
// Names are u16 length-prefixed.

// ParseScene parses LSC data from a byte slice.
func ParseScene(data []byte) (*scene.Scene, error) {
	if len(data) < lscHeaderSize {
		return nil, ErrTruncatedLSCData
	}
	if string(data[0:4]) != "LSCN" {
		return nil, ErrInvalidLSCMagic
	}
	version := Version{Major: data[4], Minor: data[5]}
	if version.Major != LSCVersion.Major {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLSCVersion, version)
	}

	r := bytes.NewReader(data[lscHeaderSize:])
	s := &scene.Scene{}

	var meshCount uint32
	if err := binary.Read(r, binary.LittleEndian, &meshCount); err != nil {
		return nil, fmt.Errorf("%w: reading mesh count", ErrTruncatedLSCData)
	}
	if !fits(r, meshCount, 11) {
		return nil, fmt.Errorf("%w: %d meshes", ErrTruncatedLSCData, meshCount)
	}
	s.Meshes = make([]*scene.Mesh, meshCount)
	for i := range s.Meshes {
		m, err := parseLSCMesh(r)
		if err != nil {
			return nil, fmt.Errorf("parsing mesh %d: %w", i, err)
		}
		s.Meshes[i] = m
	}

	var nodeCount uint32
	if err := binary.Read(r, binary.LittleEndian, &nodeCount); err != nil {
		return nil, fmt.Errorf("%w: reading node count", ErrTruncatedLSCData)
	}
	if !fits(r, nodeCount, 2+4+16*8+4) {
		return nil, fmt.Errorf("%w: %d nodes", ErrTruncatedLSCData, nodeCount)
	}
	nodes := make([]*scene.Node, nodeCount)
	for i := range nodes {
		n, parent, err := parseLSCNode(r)
		if err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, err)
		}
		nodes[i] = n
		switch {
		case parent == -1:
			s.Roots = append(s.Roots, n)
		case parent >= 0 && int(parent) < i:
			nodes[parent].Children = append(nodes[parent].Children, n)
		default:
			return nil, fmt.Errorf("%w: node %d parent %d", ErrInvalidNodeParent, i, parent)
		}
	}

	return s, nil
}

func parseLSCMesh(r *bytes.Reader) (*scene.Mesh, error) {
	name, err := readName(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading name", ErrTruncatedLSCData)
	}
	m := &scene.Mesh{Name: name}

	var header struct {
		Mask     uint8
		Vertices uint32
		Indices  uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: reading mesh header", ErrTruncatedLSCData)
	}
	stride := 24
	if header.Mask&lscNormals != 0 {
		stride += 12
	}
	if header.Mask&lscTexCoords != 0 {
		stride += 8
	}
	if header.Mask&lscColors != 0 {
		stride += 16
	}
	if !fits(r, header.Vertices, stride) || !fits(r, header.Indices, 4) {
		return nil, fmt.Errorf("%w: mesh %q with %d vertices, %d indices", ErrTruncatedLSCData, name, header.Vertices, header.Indices)
	}

	n := int(header.Vertices)
	pos := make([]float64, n*3)
	if err := binary.Read(r, binary.LittleEndian, pos); err != nil {
		return nil, fmt.Errorf("%w: reading positions", ErrTruncatedLSCData)
	}
	m.Positions = make([]math.Vec3, n)
	for i := range m.Positions {
		m.Positions[i] = math.Vec3{X: pos[i*3], Y: pos[i*3+1], Z: pos[i*3+2]}
	}

	if header.Mask&lscNormals != 0 {
		v := make([]float32, n*3)
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("%w: reading normals", ErrTruncatedLSCData)
		}
		m.Normals = make([]math.Vec3, n)
		for i := range m.Normals {
			m.Normals[i] = math.Vec3{X: float64(v[i*3]), Y: float64(v[i*3+1]), Z: float64(v[i*3+2])}
		}
	}
	if header.Mask&lscTexCoords != 0 {
		v := make([]float32, n*2)
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("%w: reading texcoords", ErrTruncatedLSCData)
		}
		m.TexCoords = make([]math.Vec2, n)
		for i := range m.TexCoords {
			m.TexCoords[i] = math.Vec2{X: float64(v[i*2]), Y: float64(v[i*2+1])}
		}
	}
	if header.Mask&lscColors != 0 {
		m.Colors = make([][4]float32, n)
		if err := binary.Read(r, binary.LittleEndian, m.Colors); err != nil {
			return nil, fmt.Errorf("%w: reading colors", ErrTruncatedLSCData)
		}
	}

	m.Indices = make([]uint32, header.Indices)
	if err := binary.Read(r, binary.LittleEndian, m.Indices); err != nil {
		return nil, fmt.Errorf("%w: reading indices", ErrTruncatedLSCData)
	}
	return m, nil
}

func parseLSCNode(r *bytes.Reader) (*scene.Node, int32, error) {
	name, err := readName(r)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: reading name", ErrTruncatedLSCData)
	}
	n := &scene.Node{Name: name}

	var parent int32
	if err := binary.Read(r, binary.LittleEndian, &parent); err != nil {
		return nil, 0, fmt.Errorf("%w: reading parent", ErrTruncatedLSCData)
	}
	if err := binary.Read(r, binary.LittleEndian, &n.Transform); err != nil {
		return nil, 0, fmt.Errorf("%w: reading transform", ErrTruncatedLSCData)
	}

	var refCount uint32
	if err := binary.Read(r, binary.LittleEndian, &refCount); err != nil {
		return nil, 0, fmt.Errorf("%w: reading mesh refs", ErrTruncatedLSCData)
	}
	if !fits(r, refCount, 4) {
		return nil, 0, fmt.Errorf("%w: %d mesh refs", ErrTruncatedLSCData, refCount)
	}
	refs := make([]int32, refCount)
	if err := binary.Read(r, binary.LittleEndian, refs); err != nil {
		return nil, 0, fmt.Errorf("%w: reading mesh refs", ErrTruncatedLSCData)
	}
	for _, ref := range refs {
		n.Meshes = append(n.Meshes, int(ref))
	}
	return n, parent, nil
}

// ParseSceneFile parses an LSC file from disk.
func ParseSceneFile(path string) (*scene.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading LSC file: %w", err)
	}
	return ParseScene(data)
}

// EncodeScene serializes s. Nodes are written in pre-order; a node reachable
// more than once is rejected since the format stores a single parent.
func EncodeScene(s *scene.Scene) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteString("LSCN")
	buf.WriteByte(LSCVersion.Major)
	buf.WriteByte(LSCVersion.Minor)

	binary.Write(buf, binary.LittleEndian, uint32(len(s.Meshes)))
	for _, m := range s.Meshes {
		if err := encodeLSCMesh(buf, m); err != nil {
			return nil, err
		}
	}

	type entry struct {
		node   *scene.Node
		parent int32
	}
	var order []entry
	seen := make(map[*scene.Node]bool)
	var visit func(n *scene.Node, parent int32) error
	visit = func(n *scene.Node, parent int32) error {
		if seen[n] {
			return fmt.Errorf("%w: %q", ErrSceneCycle, n.Name)
		}
		seen[n] = true
		self := int32(len(order))
		order = append(order, entry{n, parent})
		for _, c := range n.Children {
			if err := visit(c, self); err != nil {
				return err
			}
		}
		return nil
	}
	for _, root := range s.Roots {
		if err := visit(root, -1); err != nil {
			return nil, err
		}
	}

	binary.Write(buf, binary.LittleEndian, uint32(len(order)))
	for _, e := range order {
		if err := writeName(buf, e.node.Name); err != nil {
			return nil, err
		}
		binary.Write(buf, binary.LittleEndian, e.parent)
		binary.Write(buf, binary.LittleEndian, e.node.Transform)
		binary.Write(buf, binary.LittleEndian, uint32(len(e.node.Meshes)))
		for _, ref := range e.node.Meshes {
			binary.Write(buf, binary.LittleEndian, int32(ref))
		}
	}
	return buf.Bytes(), nil
}

func encodeLSCMesh(buf *bytes.Buffer, m *scene.Mesh) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if err := writeName(buf, m.Name); err != nil {
		return err
	}
	var mask uint8
	if len(m.Normals) > 0 {
		mask |= lscNormals
	}
	if len(m.TexCoords) > 0 {
		mask |= lscTexCoords
	}
	if len(m.Colors) > 0 {
		mask |= lscColors
	}
	buf.WriteByte(mask)
	binary.Write(buf, binary.LittleEndian, uint32(len(m.Positions)))
	binary.Write(buf, binary.LittleEndian, uint32(len(m.Indices)))

	for _, p := range m.Positions {
		binary.Write(buf, binary.LittleEndian, [3]float64{p.X, p.Y, p.Z})
	}
	for _, n := range m.Normals {
		binary.Write(buf, binary.LittleEndian, [3]float32{float32(n.X), float32(n.Y), float32(n.Z)})
	}
	for _, t := range m.TexCoords {
		binary.Write(buf, binary.LittleEndian, [2]float32{float32(t.X), float32(t.Y)})
	}
	if len(m.Colors) > 0 {
		binary.Write(buf, binary.LittleEndian, m.Colors)
	}
	binary.Write(buf, binary.LittleEndian, m.Indices)
	return nil
}

// WriteScene writes s to path as an LSC file.
func WriteScene(path string, s *scene.Scene) error {
	data, err := EncodeScene(s)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}
