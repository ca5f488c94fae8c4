package serialgen_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/signadot/serialgen"
	"github.com/signadot/serialgen/layout"
	"github.com/signadot/serialgen/module"
	"github.com/signadot/serialgen/typeinfo"
)

type Point struct {
	X int
	Y int
}

type Route struct {
	Name   string
	Points []Point
	Next   *Route
}

type Bad struct {
	C chan int
}

var (
	pointType = reflect.TypeOf(Point{})
	routeType = reflect.TypeOf(Route{})
	badType   = reflect.TypeOf(Bad{})
)

func outDir(t *testing.T) string {
	return filepath.Join(t.TempDir(), "out")
}

func assertMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("%s exists after failure (stat err %v)", path, err)
	}
}

func TestSourceTextDuplicatePoint(t *testing.T) {
	dir := outDir(t)
	cfg := &serialgen.SourceTextConfig{OutputDirectory: dir, Layout: layout.Array}
	paths, err := serialgen.GenerateSourceText(cfg, []reflect.Type{pointType, pointType})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{filepath.Join(dir, "Point.go")}, paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("%s holds %d entries, want 1", dir, len(entries))
	}
	code, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	src := string(code)
	if !strings.Contains(src, "enc.EncodeArrayLen(2)") {
		t.Errorf("expected array layout, got:\n%s", src)
	}
	x, y := strings.Index(src, "v.X"), strings.Index(src, "v.Y")
	if x < 0 || y < 0 || x > y {
		t.Errorf("fields not in declared order, got:\n%s", src)
	}
}

func TestDeterminism(t *testing.T) {
	types := []reflect.Type{routeType, pointType}
	read := func(path string) []byte {
		t.Helper()
		d, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		return d
	}
	for _, l := range layout.All() {
		t.Run("binary "+l.String(), func(t *testing.T) {
			var got [][]byte
			for i := 0; i < 2; i++ {
				cfg := &serialgen.BinaryModuleConfig{ModuleName: "geo", OutputDirectory: outDir(t), Layout: l}
				path, err := serialgen.GenerateBinaryModule(cfg, types)
				if err != nil {
					t.Fatal(err)
				}
				got = append(got, read(path))
			}
			if !bytes.Equal(got[0], got[1]) {
				t.Error("module files differ between runs")
			}
		})
		t.Run("source "+l.String(), func(t *testing.T) {
			var got [][]byte
			for i := 0; i < 2; i++ {
				cfg := &serialgen.SourceTextConfig{OutputDirectory: outDir(t), Layout: l}
				paths, err := serialgen.GenerateSourceText(cfg, types)
				if err != nil {
					t.Fatal(err)
				}
				var all []byte
				for _, p := range paths {
					all = append(all, read(p)...)
				}
				got = append(got, all)
			}
			if !bytes.Equal(got[0], got[1]) {
				t.Error("source files differ between runs")
			}
		})
	}
}

func TestBinaryClosure(t *testing.T) {
	cfg := &serialgen.BinaryModuleConfig{ModuleName: "geo", Version: "1.0.0", OutputDirectory: outDir(t)}
	path, err := serialgen.GenerateBinaryModule(cfg, []reflect.Type{routeType})
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(path) || filepath.Base(path) != "geo.sgm" {
		t.Errorf("path = %s", path)
	}
	m, err := module.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	routeID := typeinfo.FromReflect(routeType).ID()
	pointID := typeinfo.FromReflect(pointType).ID()
	var got []string
	for _, r := range m.Routines() {
		got = append(got, r.Type)
	}
	if diff := cmp.Diff([]string{routeID, pointID}, got); diff != "" {
		t.Errorf("routines mismatch (-want +got):\n%s", diff)
	}
	if m.Version != "1.0.0" {
		t.Errorf("version = %q", m.Version)
	}

	c := module.NewCodec(m)
	in := &Route{Name: "a", Points: []Point{{1, 2}}, Next: &Route{Name: "b"}}
	data, err := c.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	out := &Route{}
	if err := c.Unmarshal(data, out); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSourceExact(t *testing.T) {
	dir := outDir(t)
	paths, err := serialgen.GenerateSourceText(&serialgen.SourceTextConfig{OutputDirectory: dir}, []reflect.Type{routeType})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{filepath.Join(dir, "Route.go")}, paths); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestFailFast(t *testing.T) {
	types := []reflect.Type{pointType, badType, routeType}
	t.Run("binary", func(t *testing.T) {
		dir := outDir(t)
		_, err := serialgen.GenerateBinaryModule(&serialgen.BinaryModuleConfig{ModuleName: "geo", OutputDirectory: dir}, types)
		assertGenerationError(t, err, badType)
		assertMissing(t, dir)
	})
	t.Run("source", func(t *testing.T) {
		dir := outDir(t)
		_, err := serialgen.GenerateSourceText(&serialgen.SourceTextConfig{OutputDirectory: dir}, types)
		assertGenerationError(t, err, badType)
		assertMissing(t, dir)
	})
}

func assertGenerationError(t *testing.T, err error, rt reflect.Type) {
	t.Helper()
	var gerr *serialgen.GenerationError
	if !errors.As(err, &gerr) {
		t.Fatalf("err = %v, want *GenerationError", err)
	}
	if want := typeinfo.FromReflect(rt).ID(); gerr.Type != want {
		t.Errorf("failing type = %s, want %s", gerr.Type, want)
	}
	if gerr.Unwrap() == nil {
		t.Error("generation error has no cause")
	}
}

func TestValidationFirst(t *testing.T) {
	tests := []struct {
		name  string
		field string
		run   func(dir string) error
	}{
		{"empty module name", "ModuleName", func(dir string) error {
			_, err := serialgen.GenerateBinaryModule(&serialgen.BinaryModuleConfig{OutputDirectory: dir}, []reflect.Type{pointType})
			return err
		}},
		{"bad module name", "ModuleName", func(dir string) error {
			_, err := serialgen.GenerateBinaryModule(&serialgen.BinaryModuleConfig{ModuleName: "9lives", OutputDirectory: dir}, []reflect.Type{})
			return err
		}},
		{"bad version", "Version", func(dir string) error {
			_, err := serialgen.GenerateBinaryModule(&serialgen.BinaryModuleConfig{ModuleName: "geo", Version: "one", OutputDirectory: dir}, []reflect.Type{})
			return err
		}},
		{"bad binary layout", "Layout", func(dir string) error {
			_, err := serialgen.GenerateBinaryModule(&serialgen.BinaryModuleConfig{ModuleName: "geo", Layout: 5, OutputDirectory: dir}, []reflect.Type{})
			return err
		}},
		{"bad source layout", "Layout", func(dir string) error {
			_, err := serialgen.GenerateSourceText(&serialgen.SourceTextConfig{Layout: -1, OutputDirectory: dir}, []reflect.Type{})
			return err
		}},
		{"bad language", "Language", func(dir string) error {
			_, err := serialgen.GenerateSourceText(&serialgen.SourceTextConfig{Language: "csharp", OutputDirectory: dir}, []reflect.Type{})
			return err
		}},
		{"bad package", "Package", func(dir string) error {
			_, err := serialgen.GenerateSourceText(&serialgen.SourceTextConfig{Package: "my-pkg", OutputDirectory: dir}, []reflect.Type{})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := outDir(t)
			err := tt.run(dir)
			var cerr *serialgen.ConfigurationError
			if !errors.As(err, &cerr) {
				t.Fatalf("err = %v, want *ConfigurationError", err)
			}
			if cerr.Field != tt.field {
				t.Errorf("field = %s, want %s", cerr.Field, tt.field)
			}
			assertMissing(t, dir)
		})
	}
}

func TestArguments(t *testing.T) {
	dir := outDir(t)
	var aerr *serialgen.ArgumentError
	_, err := serialgen.GenerateBinaryModule(nil, []reflect.Type{pointType})
	if !errors.As(err, &aerr) {
		t.Errorf("nil config: err = %v", err)
	}
	_, err = serialgen.GenerateBinaryModule(&serialgen.BinaryModuleConfig{ModuleName: "geo", OutputDirectory: dir}, nil)
	if !errors.As(err, &aerr) {
		t.Errorf("nil types: err = %v", err)
	}
	_, err = serialgen.GenerateSourceText(&serialgen.SourceTextConfig{OutputDirectory: dir}, []reflect.Type{pointType, nil})
	if !errors.As(err, &aerr) {
		t.Errorf("nil type: err = %v", err)
	}
	assertMissing(t, dir)
}

func TestEmptyInput(t *testing.T) {
	dir := outDir(t)
	paths, err := serialgen.GenerateSourceText(&serialgen.SourceTextConfig{OutputDirectory: dir}, []reflect.Type{})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 0 {
		t.Errorf("paths = %v, want none", paths)
	}

	path, err := serialgen.GenerateBinaryModule(&serialgen.BinaryModuleConfig{ModuleName: "empty", OutputDirectory: dir}, []reflect.Type{})
	if err != nil {
		t.Fatal(err)
	}
	m, err := module.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Routines()) != 0 || m.Version != serialgen.DefaultVersion {
		t.Errorf("module = %+v", m)
	}
}

func TestSourceCollision(t *testing.T) {
	a := &typeinfo.Type{Kind: typeinfo.Struct, PkgPath: "example.com/a", Name: "Point"}
	b := &typeinfo.Type{Kind: typeinfo.Struct, PkgPath: "example.com/b", Name: "Point"}
	dir := outDir(t)
	_, err := serialgen.GenerateSourceTextTypes(&serialgen.SourceTextConfig{OutputDirectory: dir}, []*typeinfo.Type{a, b})
	var gerr *serialgen.GenerationError
	if !errors.As(err, &gerr) || gerr.Type != "example.com/b.Point" {
		t.Fatalf("err = %v, want *GenerationError for example.com/b.Point", err)
	}
	assertMissing(t, dir)
}

func TestDefaultSourceConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	paths, err := serialgen.GenerateSourceText(nil, []reflect.Type{pointType})
	if err != nil {
		t.Fatal(err)
	}
	code, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(code), "package serializers") {
		t.Errorf("expected default package, got:\n%s", code)
	}
	if filepath.Base(paths[0]) != "Point.go" || !filepath.IsAbs(paths[0]) {
		t.Errorf("path = %s", paths[0])
	}
}

func TestOutputDirError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	cfg := &serialgen.BinaryModuleConfig{ModuleName: "geo", OutputDirectory: filepath.Join(file, "out")}
	_, err := serialgen.GenerateBinaryModule(cfg, []reflect.Type{pointType})
	var ioerr *serialgen.IOError
	if !errors.As(err, &ioerr) || ioerr.Op != "mkdir" {
		t.Fatalf("err = %v, want mkdir *IOError", err)
	}
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cfg := &serialgen.BinaryModuleConfig{ModuleName: "geo", OutputDirectory: outDir(t)}
	if _, err := serialgen.GenerateBinaryModule(cfg, []reflect.Type{routeType}, serialgen.WithLogger(zap.New(core))); err != nil {
		t.Fatal(err)
	}
	var msgs []string
	for _, e := range logs.All() {
		msgs = append(msgs, e.Message)
	}
	want := []string{"generation started", "generated", "discovered dependents", "generated", "wrote artifacts"}
	if diff := cmp.Diff(want, msgs); diff != "" {
		t.Errorf("log records mismatch (-want +got):\n%s", diff)
	}
}

type Label struct {
	Text string
}

type Dup struct {
	A int `msgpack:"x"`
	B int `serialgen:"key=x"`
}

func TestDuplicateKeys(t *testing.T) {
	dupType := reflect.TypeOf(Dup{})
	for _, l := range layout.All() {
		t.Run("binary "+l.String(), func(t *testing.T) {
			dir := outDir(t)
			_, err := serialgen.GenerateBinaryModule(&serialgen.BinaryModuleConfig{ModuleName: "dup", OutputDirectory: dir, Layout: l}, []reflect.Type{dupType})
			assertGenerationError(t, err, dupType)
			if !errors.Is(err, typeinfo.ErrDuplicateKey) {
				t.Errorf("err = %v, want ErrDuplicateKey", err)
			}
			assertMissing(t, dir)
		})
		t.Run("source "+l.String(), func(t *testing.T) {
			dir := outDir(t)
			_, err := serialgen.GenerateSourceText(&serialgen.SourceTextConfig{OutputDirectory: dir, Layout: l}, []reflect.Type{dupType})
			assertGenerationError(t, err, dupType)
			if !errors.Is(err, typeinfo.ErrDuplicateKey) {
				t.Errorf("err = %v, want ErrDuplicateKey", err)
			}
			assertMissing(t, dir)
		})
	}
}

func TestSourceWriteRollback(t *testing.T) {
	dir := outDir(t)
	if err := os.MkdirAll(filepath.Join(dir, "Route.go"), 0755); err != nil {
		t.Fatal(err)
	}
	old := []byte("package serializers\n")
	pointFile := filepath.Join(dir, "Point.go")
	if err := os.WriteFile(pointFile, old, 0600); err != nil {
		t.Fatal(err)
	}
	_, err := serialgen.GenerateSourceText(&serialgen.SourceTextConfig{OutputDirectory: dir}, []reflect.Type{pointType, reflect.TypeOf(Label{}), routeType})
	var ioerr *serialgen.IOError
	if !errors.As(err, &ioerr) || ioerr.Op != "write" || ioerr.Path != filepath.Join(dir, "Route.go") {
		t.Fatalf("err = %v, want write *IOError for Route.go", err)
	}
	got, err := os.ReadFile(pointFile)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(string(old), string(got)); diff != "" {
		t.Errorf("Point.go not restored (-want +got):\n%s", diff)
	}
	info, err := os.Stat(pointFile)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
	assertMissing(t, filepath.Join(dir, "Label.go"))
}
