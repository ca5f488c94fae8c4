package module

import (
	"bytes"
	"reflect"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/signadot/serialgen/layout"
)

func codecFor(t *testing.T, l layout.Layout, vs ...any) *Codec {
	t.Helper()
	m := New("test", "0.0.0", l)
	for _, v := range vs {
		if err := m.Add(compile(t, v)); err != nil {
			t.Fatal(err)
		}
	}
	return NewCodec(m)
}

func sampleRoute() *Route {
	return &Route{
		Name:   "loop",
		Points: []Point{{1, 2}, {3, -4}},
		Tags:   map[string]string{"k": "v"},
		When:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Temp:   21.5,
		Next:   &Route{Name: "tail", Grid: [2]uint8{7, 8}},
		Raw:    []byte{1, 2, 3},
		Grid:   [2]uint8{1, 2},
		Extra:  "x",
	}
}

func TestCodecRoundTrip(t *testing.T) {
	for _, l := range layout.All() {
		t.Run(l.String(), func(t *testing.T) {
			c := codecFor(t, l, Point{}, Route{})
			in := sampleRoute()
			data, err := c.Marshal(in)
			if err != nil {
				t.Fatal(err)
			}
			out := &Route{}
			if err := c.Unmarshal(data, out); err != nil {
				t.Fatal(err)
			}
			opts := cmp.AllowUnexported(Route{})
			if diff := cmp.Diff(in, out, opts); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCodecArrayLayout(t *testing.T) {
	c := codecFor(t, layout.Array, Point{})
	data, err := c.Marshal(Point{X: 5, Y: 6})
	if err != nil {
		t.Fatal(err)
	}
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	var got []int
	if err := dec.Decode(&got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{5, 6}, got); diff != "" {
		t.Errorf("array encoding mismatch (-want +got):\n%s", diff)
	}
}

func TestCodecMapLayout(t *testing.T) {
	c := codecFor(t, layout.Map, Point{}, Route{})
	data, err := c.Marshal(&Route{Name: "r"})
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := msgpack.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if _, ok := got["Tags"]; ok {
		t.Error("empty Tags not omitted")
	}
	if got["Name"] != "r" {
		t.Errorf("Name = %v", got["Name"])
	}

	data, err = c.Marshal(Point{X: 1, Y: 2})
	if err != nil {
		t.Fatal(err)
	}
	var pt map[string]int
	if err := msgpack.Unmarshal(data, &pt); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]int{"X": 1, "y": 2}, pt); diff != "" {
		t.Errorf("map encoding mismatch (-want +got):\n%s", diff)
	}
}

func TestCodecSkipsUnknown(t *testing.T) {
	c := codecFor(t, layout.Map, Point{})
	data, err := msgpack.Marshal(map[string]any{"X": 1, "Z": []int{1}, "y": 3})
	if err != nil {
		t.Fatal(err)
	}
	var p Point
	if err := c.Unmarshal(data, &p); err != nil {
		t.Fatal(err)
	}
	if p != (Point{1, 3}) {
		t.Errorf("p = %+v", p)
	}

	c = codecFor(t, layout.Array, Point{})
	data, err = msgpack.Marshal([]int{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	p = Point{}
	if err := c.Unmarshal(data, &p); err != nil {
		t.Fatal(err)
	}
	if p != (Point{1, 2}) {
		t.Errorf("p = %+v", p)
	}
}

func TestCodecOverflow(t *testing.T) {
	type Small struct{ B int8 }
	c := codecFor(t, layout.Array, Small{})
	data, err := msgpack.Marshal([]int{300})
	if err != nil {
		t.Fatal(err)
	}
	var s Small
	if err := c.Unmarshal(data, &s); err == nil {
		t.Fatal("overflowing value accepted")
	}
}

func TestCodecNoRoutine(t *testing.T) {
	c := codecFor(t, layout.Array, Route{})
	_, err := c.Marshal(sampleRoute())
	if !errors.Is(err, ErrNoRoutine) {
		t.Fatalf("err = %v, want ErrNoRoutine", err)
	}
	if err := c.Bind(reflect.TypeOf(Celsius(0))); !errors.Is(err, ErrNoRoutine) {
		t.Fatalf("err = %v, want ErrNoRoutine", err)
	}
}

func TestCodecShape(t *testing.T) {
	m := New("test", "0.0.0", layout.Array)
	r := compile(t, Point{})
	r.Body.Fields = r.Body.Fields[:1]
	if err := m.Add(r); err != nil {
		t.Fatal(err)
	}
	c := NewCodec(m)
	if err := c.Bind(reflect.TypeOf(Point{})); !errors.Is(err, ErrShape) {
		t.Fatalf("err = %v, want ErrShape", err)
	}
}

func TestCodecLoadedModule(t *testing.T) {
	data, err := Bytes(codecFor(t, layout.Array, Point{}, Route{}).Module())
	if err != nil {
		t.Fatal(err)
	}
	m, err := Read(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	c := NewCodec(m)
	in := sampleRoute()
	enc, err := c.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out Route
	if err := c.Unmarshal(enc, &out); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, &out, cmp.AllowUnexported(Route{})); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
