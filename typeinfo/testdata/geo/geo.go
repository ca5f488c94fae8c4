package geo

import "time"

type Celsius float64

type Point struct {
	X int
	Y int `msgpack:"y"`
}

type Path struct {
	Name   string
	Points []Point
	Tags   map[string]string `msgpack:",omitempty"`
	Seen   time.Time
	Temp   Celsius
	Next   *Path
	hidden int
	Skip   bool `msgpack:"-"`
}

type notExported struct {
	A int
}

type Handler func()
