package main

import (
	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Main, "serialgen").
		WithSynopsis("serialgen [opts] command [opts]").
		WithDescription("serialgen generates MessagePack serializers for Go types.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return serialgenMain(cfg, cc, args)
		}).
		WithSubs(
			ModuleCommand(cfg),
			SourceCommand(cfg),
			CheckCommand(cfg))
}

func ModuleCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ModuleConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Module, "module").
		WithAliases("m", "mod").
		WithSynopsis("module [opts] [pkgpath.Type...]").
		WithDescription("generate a module file holding serializers for types and their dependencies").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return moduleRun(cfg, cc, args)
		})
}

func SourceCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &SourceConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Source, "source").
		WithAliases("s", "src").
		WithSynopsis("source [opts] [pkgpath.Type...]").
		WithDescription("generate one Go source file per type").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return sourceRun(cfg, cc, args)
		})
}

func CheckCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &CheckConfig{SourceConfig: &SourceConfig{MainConfig: mainCfg}}
	opts, err := cli.StructOpts(cfg.SourceConfig)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Check, "check").
		WithAliases("c").
		WithSynopsis("check [opts] [pkgpath.Type...]").
		WithDescription("report generated source files that are out of date").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return checkRun(cfg, cc, args)
		})
}
