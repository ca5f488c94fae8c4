package serialgen

import (
	"path/filepath"

	"github.com/signadot/serialgen/module"
	"github.com/signadot/serialgen/typeinfo"
)

type binaryStrategy struct{}

func (binaryStrategy) name() string { return "binary" }

func (binaryStrategy) newContext(cfg *BinaryModuleConfig, dir string) (*binaryContext, error) {
	return &binaryContext{
		module: module.New(cfg.ModuleName, cfg.ModuleVersion(), cfg.LayoutMode()),
	}, nil
}

func (binaryStrategy) newGenerator(t *typeinfo.Type) codeGenerator[*binaryContext] {
	return &binaryGenerator{t: t}
}

// binaryContext holds the module under construction.
type binaryContext struct {
	module  *module.Module
	pending []*typeinfo.Type
}

func (c *binaryContext) discovered() []*typeinfo.Type {
	res := c.pending
	c.pending = nil
	return res
}

func (c *binaryContext) finalize(dir string) ([]string, error) {
	path := filepath.Join(dir, c.module.FileName())
	if err := module.Save(path, c.module); err != nil {
		return nil, &IOError{Path: path, Op: "write", Err: err}
	}
	return []string{path}, nil
}

type binaryGenerator struct {
	t *typeinfo.Type
}

// buildContribution adds the routine of the type and reports the types it
// refers to that have no routine yet.
func (g *binaryGenerator) buildContribution(ctx *binaryContext) error {
	r, err := module.Compile(g.t)
	if err != nil {
		return err
	}
	if err := ctx.module.Add(r); err != nil {
		return err
	}
	for _, d := range typeinfo.Dependencies(g.t) {
		if !ctx.module.Has(d.ID()) {
			ctx.pending = append(ctx.pending, d)
		}
	}
	return nil
}
