package module

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/signadot/serialgen/layout"
)

var magic = []byte("SGMOD")

// FormatVersion is the version of the module file layout written by Write.
const FormatVersion = 1

type fileBody struct {
	Name     string     `msgpack:"name"`
	Version  string     `msgpack:"version"`
	Layout   uint8      `msgpack:"layout"`
	Routines []*Routine `msgpack:"routines"`
}

// Write encodes m to w. The encoding depends only on the module's content,
// so equal modules produce equal bytes.
func Write(w io.Writer, m *Module) error {
	body := &fileBody{
		Name:     m.Name,
		Version:  m.Version,
		Layout:   uint8(m.Layout),
		Routines: m.routines,
	}
	if body.Routines == nil {
		body.Routines = []*Routine{}
	}
	if _, err := w.Write(magic); err != nil {
		return err
	}
	if _, err := w.Write([]byte{FormatVersion}); err != nil {
		return err
	}
	enc := msgpack.NewEncoder(w)
	return enc.Encode(body)
}

// Bytes returns the encoding of m.
func Bytes(m *Module) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Read decodes a module written by Write.
func Read(r io.Reader) (*Module, error) {
	br := bufio.NewReader(r)
	head := make([]byte, len(magic)+1)
	if _, err := io.ReadFull(br, head); err != nil {
		return nil, errors.Wrapf(ErrBadModule, "reading header: %v", err)
	}
	if !bytes.Equal(head[:len(magic)], magic) {
		return nil, errors.Wrap(ErrBadModule, "missing magic")
	}
	if v := head[len(magic)]; v != FormatVersion {
		return nil, errors.Wrapf(ErrBadModule, "format version %d, want %d", v, FormatVersion)
	}
	body := &fileBody{}
	if err := msgpack.NewDecoder(br).Decode(body); err != nil {
		return nil, errors.Wrapf(ErrBadModule, "decoding body: %v", err)
	}
	l := layout.Layout(body.Layout)
	if !l.Valid() {
		return nil, errors.Wrapf(ErrBadModule, "layout %d", body.Layout)
	}
	m := New(body.Name, body.Version, l)
	for _, r := range body.Routines {
		if r == nil || r.Body == nil {
			return nil, errors.Wrap(ErrBadModule, "empty routine")
		}
		if err := m.Add(r); err != nil {
			return nil, errors.Mark(err, ErrBadModule)
		}
	}
	return m, nil
}

// Load reads the module file at path.
func Load(path string) (*Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	return m, nil
}

// WriteFile writes data to path through a temporary file in the same
// directory, so path never holds a partial file.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Save writes m to path.
func Save(path string, m *Module) error {
	data, err := Bytes(m)
	if err != nil {
		return err
	}
	return WriteFile(path, data, 0644)
}
