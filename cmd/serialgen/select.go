package main

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/signadot/serialgen/typeinfo"
)

// typeEnv is what -where expressions see of a type.
type typeEnv struct {
	Name    string
	PkgPath string
	ID      string
	Fields  int
}

func compileWhere(where string) (*vm.Program, error) {
	prog, err := expr.Compile(where, expr.Env(typeEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling -where %q: %w", where, err)
	}
	return prog, nil
}

// filterTypes returns the types of ts for which where holds, all of them
// if where is empty.
func filterTypes(ts []*typeinfo.Type, where string) ([]*typeinfo.Type, error) {
	if where == "" {
		return ts, nil
	}
	prog, err := compileWhere(where)
	if err != nil {
		return nil, err
	}
	var res []*typeinfo.Type
	for _, t := range ts {
		env := typeEnv{Name: t.Name, PkgPath: t.PkgPath, ID: t.ID(), Fields: len(t.Fields)}
		ok, err := expr.Run(prog, env)
		if err != nil {
			return nil, fmt.Errorf("evaluating -where on %s: %w", t, err)
		}
		if ok.(bool) {
			res = append(res, t)
		}
	}
	return res, nil
}

// selectTypes resolves the types of req with l. Named types come first, in
// request order, followed by the selected package types.
func selectTypes(l *typeinfo.Loader, req *Request) ([]*typeinfo.Type, error) {
	res := []*typeinfo.Type{}
	for _, name := range req.Types {
		t, err := l.Lookup(name)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	for _, pkg := range req.Packages {
		ts, err := l.PackageTypes(pkg)
		if err != nil {
			return nil, err
		}
		ts, err = filterTypes(ts, req.Where)
		if err != nil {
			return nil, err
		}
		res = append(res, ts...)
	}
	return res, nil
}
