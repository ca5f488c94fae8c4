package serialgen

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/signadot/serialgen/gosrc"
	"github.com/signadot/serialgen/module"
	"github.com/signadot/serialgen/typeinfo"
)

type sourceStrategy struct{}

func (sourceStrategy) name() string { return "source" }

func (sourceStrategy) newContext(cfg *SourceTextConfig, dir string) (*sourceContext, error) {
	return &sourceContext{
		opts:   gosrc.Options{Package: cfg.packageName(), Layout: cfg.LayoutMode()},
		byName: map[string]*unit{},
	}, nil
}

func (sourceStrategy) newGenerator(t *typeinfo.Type) codeGenerator[*sourceContext] {
	return &sourceGenerator{t: t}
}

// unit is the text generated for one type.
type unit struct {
	file string
	typ  string
	text []byte
}

// sourceContext holds the generated units in request order.
type sourceContext struct {
	opts   gosrc.Options
	units  []*unit
	byName map[string]*unit
}

// discovered is always empty: source units name the types they use without
// generating them.
func (c *sourceContext) discovered() []*typeinfo.Type {
	return nil
}

// finalize writes the units in order. If a write fails, the files written
// before it are put back as they were: restored when they existed, removed
// otherwise.
func (c *sourceContext) finalize(dir string) ([]string, error) {
	paths := make([]string, 0, len(c.units))
	var undo []func()
	for _, u := range c.units {
		path := filepath.Join(dir, u.file)
		restore, err := snapshot(path)
		if err == nil {
			err = module.WriteFile(path, u.text, 0644)
		}
		if err != nil {
			for i := len(undo) - 1; i >= 0; i-- {
				undo[i]()
			}
			return nil, &IOError{Path: path, Op: "write", Err: err}
		}
		undo = append(undo, restore)
		paths = append(paths, path)
	}
	return paths, nil
}

// snapshot returns a function putting the file at path back to its current
// state.
func snapshot(path string) (func(), error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return func() { os.Remove(path) }, nil
	}
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, errors.Newf("%s is not a regular file", path)
	}
	old, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return func() { module.WriteFile(path, old, info.Mode().Perm()) }, nil
}

type sourceGenerator struct {
	t *typeinfo.Type
}

func (g *sourceGenerator) buildContribution(ctx *sourceContext) error {
	file := gosrc.FileName(g.t)
	if other, ok := ctx.byName[file]; ok {
		return errors.Newf("unit %s collides with the unit of %s", file, other.typ)
	}
	text, err := gosrc.Emit(g.t, ctx.opts)
	if err != nil {
		return err
	}
	u := &unit{file: file, typ: g.t.ID(), text: text}
	ctx.units = append(ctx.units, u)
	ctx.byName[file] = u
	return nil
}
