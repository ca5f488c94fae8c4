package module

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"

	"github.com/signadot/serialgen/layout"
)

func geoModule(t *testing.T) *Module {
	t.Helper()
	m := New("geo", "1.2.3", layout.Map)
	for _, v := range []any{Point{}, Route{}, Celsius(0)} {
		if err := m.Add(compile(t, v)); err != nil {
			t.Fatal(err)
		}
	}
	return m
}

func TestWriteRead(t *testing.T) {
	m := geoModule(t)
	data, err := Bytes(m)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("SGMOD\x01")) {
		t.Fatalf("header = %q", data[:6])
	}
	got, err := Read(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "geo" || got.Version != "1.2.3" || got.Layout != layout.Map {
		t.Errorf("identity = %s %s %v", got.Name, got.Version, got.Layout)
	}
	if diff := cmp.Diff(m.Routines(), got.Routines()); diff != "" {
		t.Errorf("routines mismatch (-want +got):\n%s", diff)
	}
}

func TestBytesDeterministic(t *testing.T) {
	a, err := Bytes(geoModule(t))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Bytes(geoModule(t))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("equal modules encode differently")
	}
}

func TestReadBad(t *testing.T) {
	good, err := Bytes(geoModule(t))
	if err != nil {
		t.Fatal(err)
	}
	version := append([]byte{}, good...)
	version[5] = 9
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"magic", []byte("NOPE!\x01")},
		{"version", version},
		{"truncated", good[:len(good)/2]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.data))
			if !errors.Is(err, ErrBadModule) {
				t.Fatalf("err = %v, want ErrBadModule", err)
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "geo.sgm")
	if err := Save(path, geoModule(t)); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "geo.sgm" {
		t.Fatalf("dir holds %v", entries)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Routines()) != 3 {
		t.Errorf("loaded %d routines, want 3", len(m.Routines()))
	}
}

func TestWriteFileMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "x.sgm")
	if err := WriteFile(path, []byte("x"), 0644); err == nil {
		t.Fatal("write into missing directory succeeded")
	}
}
