package typeinfo

// Dependencies returns the distinct referable types used by t's fields or
// elements, in first-use order. Named scalar types are encoded inline and
// are walked through rather than returned. t itself is included when it
// refers to itself.
func Dependencies(t *Type) []*Type {
	d := &depWalker{seen: map[string]bool{}, visited: map[*Type]bool{t: true}}
	d.body(t)
	return d.deps
}

type depWalker struct {
	deps    []*Type
	seen    map[string]bool
	visited map[*Type]bool
}

// body walks the definition of t without treating t as a reference.
func (d *depWalker) body(t *Type) {
	switch t.Kind {
	case Pointer, Slice, Array:
		d.ref(t.Elem)
	case Map:
		d.ref(t.Key)
		d.ref(t.Elem)
	case Struct:
		for _, f := range t.Fields {
			d.ref(f.Type)
		}
	}
}

func (d *depWalker) ref(t *Type) {
	if t == nil {
		return
	}
	if t.Referable() {
		id := t.ID()
		if !d.seen[id] {
			d.seen[id] = true
			d.deps = append(d.deps, t)
		}
		return
	}
	if d.visited[t] {
		return
	}
	d.visited[t] = true
	d.body(t)
}
