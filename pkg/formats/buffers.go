// LMB (LOD mesh buffer) reader and writer.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/Faultbox/lodtiler/pkg/halfedge"
)

// LMB format errors.
var (
	ErrInvalidLMBMagic       = errors.New("invalid LMB magic: expected 'LMBF'")
	ErrUnsupportedLMBVersion = errors.New("unsupported LMB version")
	ErrTruncatedLMBData      = errors.New("truncated LMB data")
	ErrInvalidLMBBuffers     = errors.New("invalid LMB buffer lengths")
)

// LMBVersion is the version WriteBuffers emits.
var LMBVersion = Version{Major: 1, Minor: 0}

// LMB attribute mask bits.
const (
	lmbNormals   uint8 = 1 << 0
	lmbTexCoords uint8 = 1 << 1
	lmbColors    uint8 = 1 << 2
)

// LMBHeader is the fixed part of an LMB file.
type LMBHeader struct {
	Mask     uint8
	Vertices uint32
	Indices  uint32
	Min      [3]float32
	Max      [3]float32
}

// LMB is a parsed mesh buffer file.
type LMB struct {
	Version Version
	Header  LMBHeader
	Buffers *halfedge.Buffers
}

// EncodeBuffers serializes b. Attribute arrays must be empty or sized to
// the vertex count.
func EncodeBuffers(b *halfedge.Buffers) ([]byte, error) {
	n := b.VertexCount()
	if len(b.Positions) != n*3 ||
		(len(b.Normals) != 0 && len(b.Normals) != n*3) ||
		(len(b.TexCoords) != 0 && len(b.TexCoords) != n*2) ||
		(len(b.Colors) != 0 && len(b.Colors) != n*4) ||
		len(b.Indices)%3 != 0 {
		return nil, ErrInvalidLMBBuffers
	}
	for _, idx := range b.Indices {
		if int(idx) >= n {
			return nil, fmt.Errorf("%w: index %d with %d vertices", ErrInvalidLMBBuffers, idx, n)
		}
	}

	h := LMBHeader{Vertices: uint32(n), Indices: uint32(len(b.Indices))}
	if len(b.Normals) > 0 {
		h.Mask |= lmbNormals
	}
	if len(b.TexCoords) > 0 {
		h.Mask |= lmbTexCoords
	}
	if len(b.Colors) > 0 {
		h.Mask |= lmbColors
	}
	if box := b.Bounds(); !box.IsEmpty() {
		h.Min = [3]float32{float32(box.Min.X), float32(box.Min.Y), float32(box.Min.Z)}
		h.Max = [3]float32{float32(box.Max.X), float32(box.Max.Y), float32(box.Max.Z)}
	}

	buf := new(bytes.Buffer)
	buf.WriteString("LMBF")
	buf.WriteByte(LMBVersion.Major)
	buf.WriteByte(LMBVersion.Minor)
	binary.Write(buf, binary.LittleEndian, h)
	binary.Write(buf, binary.LittleEndian, b.Positions)
	binary.Write(buf, binary.LittleEndian, b.Normals)
	binary.Write(buf, binary.LittleEndian, b.TexCoords)
	binary.Write(buf, binary.LittleEndian, b.Colors)
	binary.Write(buf, binary.LittleEndian, b.Indices)
	return buf.Bytes(), nil
}

// WriteBuffers writes b to path as an LMB file.
func WriteBuffers(path string, b *halfedge.Buffers) error {
	data, err := EncodeBuffers(b)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// ParseBuffers parses LMB data from a byte slice.
func ParseBuffers(data []byte) (*LMB, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedLMBData
	}
	if string(data[0:4]) != "LMBF" {
		return nil, ErrInvalidLMBMagic
	}
	lmb := &LMB{
		Version: Version{Major: data[4], Minor: data[5]},
		Buffers: &halfedge.Buffers{},
	}
	if lmb.Version.Major != LMBVersion.Major {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLMBVersion, lmb.Version)
	}

	r := bytes.NewReader(data[6:])
	if err := binary.Read(r, binary.LittleEndian, &lmb.Header); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedLMBData)
	}
	h := lmb.Header
	if h.Indices%3 != 0 {
		return nil, fmt.Errorf("%w: %d indices", ErrInvalidLMBBuffers, h.Indices)
	}

	stride := 12
	if h.Mask&lmbNormals != 0 {
		stride += 12
	}
	if h.Mask&lmbTexCoords != 0 {
		stride += 8
	}
	if h.Mask&lmbColors != 0 {
		stride += 16
	}
	if !fits(r, h.Vertices, stride) || !fits(r, h.Indices, 4) {
		return nil, fmt.Errorf("%w: %d vertices, %d indices", ErrTruncatedLMBData, h.Vertices, h.Indices)
	}

	n := int(h.Vertices)
	read := func(name string, count int) ([]float32, error) {
		v := make([]float32, count)
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("%w: reading %s", ErrTruncatedLMBData, name)
		}
		return v, nil
	}

	var err error
	b := lmb.Buffers
	if b.Positions, err = read("positions", n*3); err != nil {
		return nil, err
	}
	if h.Mask&lmbNormals != 0 {
		if b.Normals, err = read("normals", n*3); err != nil {
			return nil, err
		}
	}
	if h.Mask&lmbTexCoords != 0 {
		if b.TexCoords, err = read("texcoords", n*2); err != nil {
			return nil, err
		}
	}
	if h.Mask&lmbColors != 0 {
		if b.Colors, err = read("colors", n*4); err != nil {
			return nil, err
		}
	}
	b.Indices = make([]uint32, h.Indices)
	if err := binary.Read(r, binary.LittleEndian, b.Indices); err != nil {
		return nil, fmt.Errorf("%w: reading indices", ErrTruncatedLMBData)
	}
	for _, idx := range b.Indices {
		if int(idx) >= n {
			return nil, fmt.Errorf("%w: index %d with %d vertices", ErrInvalidLMBBuffers, idx, n)
		}
	}
	return lmb, nil
}

// ParseBuffersFile parses an LMB file from disk.
func ParseBuffersFile(path string) (*LMB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading LMB file: %w", err)
	}
	return ParseBuffers(data)
}
