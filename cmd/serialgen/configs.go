package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"
	"go.uber.org/zap"

	"github.com/signadot/serialgen/debug"
)

type MainConfig struct {
	Dir   string `cli:"name=C desc='directory in which packages are loaded'"`
	Color bool   `cli:"name=color desc='color output even when not a terminal'"`
	Gops  bool   `cli:"name=gops desc='start a gops agent for diagnostics'"`

	Main *cli.Command
}

// logger is the logger of generation runs, verbose with
// SERIALGEN_DEBUG_PIPELINE set.
func (cfg *MainConfig) logger() (*zap.Logger, error) {
	if !debug.Pipeline() {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

// colors decides whether cc.Out gets colored output.
func (cfg *MainConfig) colors(cc *cli.Context) {
	if cfg.Color {
		color.NoColor = false
		return
	}
	f, ok := cc.Out.(*os.File)
	color.NoColor = !ok || !isatty.IsTerminal(f.Fd())
}

// TypeOpts select the generated types, in addition to the type arguments.
type TypeOpts struct {
	File     string
	Overlay  string
	Packages string
	Where    string
}

type ModuleConfig struct {
	*MainConfig

	File     string `cli:"name=f desc='request file (.yaml, .yml, .toml or .json)'"`
	Overlay  string `cli:"name=overlay desc='JSON merge patch applied to the request'"`
	Packages string `cli:"name=pkg desc='comma separated package patterns whose exported structs are generated'"`
	Where    string `cli:"name=where desc='expression selecting package types, e.g. Fields > 2'"`

	Name    string `cli:"name=name desc='module name'"`
	Version string `cli:"name=version desc='module version'"`
	Out     string `cli:"name=o desc='output directory (default current directory)'"`
	Layout  string `cli:"name=layout desc='array or map'"`

	Module *cli.Command
}

func (cfg *ModuleConfig) typeOpts() TypeOpts {
	return TypeOpts{File: cfg.File, Overlay: cfg.Overlay, Packages: cfg.Packages, Where: cfg.Where}
}

type SourceConfig struct {
	*MainConfig

	File     string `cli:"name=f desc='request file (.yaml, .yml, .toml or .json)'"`
	Overlay  string `cli:"name=overlay desc='JSON merge patch applied to the request'"`
	Packages string `cli:"name=pkg desc='comma separated package patterns whose exported structs are generated'"`
	Where    string `cli:"name=where desc='expression selecting package types, e.g. Fields > 2'"`

	Out     string `cli:"name=o desc='output directory (default current directory)'"`
	Layout  string `cli:"name=layout desc='array or map'"`
	Package string `cli:"name=package desc='package clause of generated files (default serializers)'"`

	Source *cli.Command
}

func (cfg *SourceConfig) typeOpts() TypeOpts {
	return TypeOpts{File: cfg.File, Overlay: cfg.Overlay, Packages: cfg.Packages, Where: cfg.Where}
}

type CheckConfig struct {
	*SourceConfig

	Check *cli.Command
}
