package typeinfo

import (
	"testing"
)

const geoPkg = "github.com/signadot/serialgen/typeinfo/testdata/geo"

func TestLoaderLookup(t *testing.T) {
	if testing.Short() {
		t.Skip("runs the go command")
	}
	l := NewLoader(".")
	p, err := l.Lookup(geoPkg + ".Path")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.Kind != Struct {
		t.Fatalf("kind = %v, want struct", p.Kind)
	}
	var names []string
	for _, f := range p.Fields {
		names = append(names, f.Name)
	}
	want := []string{"Name", "Points", "Tags", "Seen", "Temp", "Next"}
	if len(names) != len(want) {
		t.Fatalf("fields = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("fields = %v, want %v", names, want)
		}
	}
	if p.Fields[3].Type.Kind != Time {
		t.Errorf("Seen kind = %v, want time", p.Fields[3].Type.Kind)
	}
	if p.Fields[4].Type.Kind != Float64 || p.Fields[4].Type.ID() != geoPkg+".Celsius" {
		t.Errorf("Temp = %v %s", p.Fields[4].Type.Kind, p.Fields[4].Type.ID())
	}
	if p.Fields[5].Type.Elem != p {
		t.Error("Next should point back at Path")
	}
	if p.Fields[1].Type.Elem.Fields[1].Key != "y" {
		t.Error("Point.Y key should come from the msgpack tag")
	}
}

func TestLoaderPackageTypes(t *testing.T) {
	if testing.Short() {
		t.Skip("runs the go command")
	}
	l := NewLoader(".")
	ts, err := l.PackageTypes("./testdata/geo")
	if err != nil {
		t.Fatalf("PackageTypes: %v", err)
	}
	var ids []string
	for _, ty := range ts {
		ids = append(ids, ty.ID())
	}
	want := []string{geoPkg + ".Path", geoPkg + ".Point"}
	if len(ids) != 2 || ids[0] != want[0] || ids[1] != want[1] {
		t.Errorf("PackageTypes = %v, want %v", ids, want)
	}
}

func TestLoaderLookupErrors(t *testing.T) {
	if testing.Short() {
		t.Skip("runs the go command")
	}
	l := NewLoader(".")
	for _, name := range []string{"Point", geoPkg + ".Missing", "."} {
		if _, err := l.Lookup(name); err == nil {
			t.Errorf("Lookup(%q) succeeded, want error", name)
		}
	}
}
