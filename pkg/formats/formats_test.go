package formats

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	v := Version{Major: 1, Minor: 2}
	if v.String() != "1.2" {
		t.Errorf("String() = %q, want 1.2", v.String())
	}

	tests := []struct {
		major, minor uint8
		want         bool
	}{
		{1, 0, true},
		{1, 2, true},
		{1, 3, false},
		{0, 9, true},
		{2, 0, false},
	}
	for _, tt := range tests {
		if got := v.AtLeast(tt.major, tt.minor); got != tt.want {
			t.Errorf("AtLeast(%d, %d) = %v, want %v", tt.major, tt.minor, got, tt.want)
		}
	}
}

func TestNames(t *testing.T) {
	buf := new(bytes.Buffer)
	for _, s := range []string{"", "plate", "node/mesh"} {
		if err := writeName(buf, s); err != nil {
			t.Fatalf("writeName(%q) error: %v", s, err)
		}
	}
	r := bytes.NewReader(buf.Bytes())
	for _, want := range []string{"", "plate", "node/mesh"} {
		got, err := readName(r)
		if err != nil {
			t.Fatalf("readName error: %v", err)
		}
		if got != want {
			t.Errorf("readName = %q, want %q", got, want)
		}
	}

	if err := writeName(new(bytes.Buffer), strings.Repeat("x", 70000)); !errors.Is(err, ErrNameTooLong) {
		t.Errorf("long name error = %v, want ErrNameTooLong", err)
	}

	// Length prefix promising more bytes than remain.
	if _, err := readName(bytes.NewReader([]byte{10, 0, 'a'})); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("short name error = %v, want io.ErrUnexpectedEOF", err)
	}
}
