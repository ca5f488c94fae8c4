package layout

import (
	"errors"
	"fmt"
)

type Layout int

const (
	Array Layout = iota
	Map
)

var ErrBadLayout = errors.New("bad layout")

// Parse parses "array", "map" or their one-letter abbreviations.
func Parse(v string) (Layout, error) {
	l, ok := map[string]Layout{
		"a":     Array,
		"array": Array,
		"m":     Map,
		"map":   Map,
	}[v]
	if ok {
		return l, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrBadLayout, v)
}

// Valid reports whether l is one of the two legal layouts.
func (l Layout) Valid() bool {
	return l == Array || l == Map
}

func (l Layout) String() string {
	d, err := l.MarshalText()
	if err != nil {
		return err.Error()
	}
	return string(d)
}

func (l Layout) MarshalText() ([]byte, error) {
	switch l {
	case Array:
		return []byte("array"), nil
	case Map:
		return []byte("map"), nil
	default:
		return nil, fmt.Errorf("<err: %d is not a layout>", l)
	}
}

func (l *Layout) UnmarshalText(d []byte) error {
	pl, err := Parse(string(d))
	if err != nil {
		return err
	}
	*l = pl
	return nil
}

func (l Layout) IsArray() bool { return l == Array }
func (l Layout) IsMap() bool   { return l == Map }

// All returns the legal layouts, default first.
func All() []Layout {
	return []Layout{Array, Map}
}
