// Package formats reads and writes lodtiler's little-endian binary files:
// the .lsc scene cache and the .lmb LOD mesh buffer.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNameTooLong is returned when a name does not fit its uint16 length prefix.
var ErrNameTooLong = errors.New("name longer than 65535 bytes")

// Version is a file format version, stored as [major, minor].
type Version struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v Version) AtLeast(major, minor uint8) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

// writeName writes a uint16 length-prefixed string.
func writeName(buf *bytes.Buffer, s string) error {
	if len(s) > 0xFFFF {
		return fmt.Errorf("%w: %d", ErrNameTooLong, len(s))
	}
	binary.Write(buf, binary.LittleEndian, uint16(len(s)))
	buf.WriteString(s)
	return nil
}

// readName reads a uint16 length-prefixed string.
func readName(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if int(n) > r.Len() {
		return "", io.ErrUnexpectedEOF
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

// fits reports whether count elements of size bytes each remain in r.
// Counts are checked before allocating so corrupt headers fail fast.
func fits(r *bytes.Reader, count uint32, size int) bool {
	return uint64(count)*uint64(size) <= uint64(r.Len())
}

// writeFile writes data to path, creating or truncating it.
func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
