package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/gops/agent"
	"github.com/scott-cotton/cli"

	"github.com/signadot/serialgen"
	"github.com/signadot/serialgen/layout"
	"github.com/signadot/serialgen/typeinfo"
)

func serialgenMain(cfg *MainConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Main.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return cli.ErrNoCommandProvided
	}
	stop, err := startAgent(cfg.Gops)
	if err != nil {
		return err
	}
	defer stop()
	cfg.colors(cc)
	sub := cfg.Main.FindSub(cc, args[0])
	if sub == nil {
		return fmt.Errorf("%w: %q not found", cli.ErrNoSuchCommand, args[0])
	}
	err = sub.Run(cc, args[1:])
	if errors.Is(err, cli.ErrUsage) {
		sub.Usage(cc, err)
		os.Exit(sub.Exit(cc, err))
	}
	return err
}

var listenAgent = agent.Listen

// startAgent starts the gops agent if enabled and returns the function
// stopping it.
func startAgent(enabled bool) (func(), error) {
	if !enabled {
		return func() {}, nil
	}
	if err := listenAgent(agent.Options{}); err != nil {
		return nil, fmt.Errorf("starting gops agent: %w", err)
	}
	return agent.Close, nil
}

func parseLayout(v string, l *layout.Layout) error {
	if v == "" {
		return nil
	}
	pl, err := layout.Parse(v)
	if err != nil {
		return fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	*l = pl
	return nil
}

func moduleRun(cfg *ModuleConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Module.Parse(cc, args)
	if err != nil {
		return err
	}
	req, err := buildRequest(cfg.typeOpts(), args)
	if err != nil {
		return err
	}
	mc := &serialgen.BinaryModuleConfig{}
	if req.Module != nil {
		*mc = *req.Module
	}
	if cfg.Name != "" {
		mc.ModuleName = cfg.Name
	}
	if cfg.Version != "" {
		mc.Version = cfg.Version
	}
	if cfg.Out != "" {
		mc.OutputDirectory = cfg.Out
	}
	if err := parseLayout(cfg.Layout, &mc.Layout); err != nil {
		return err
	}
	types, err := selectTypes(typeinfo.NewLoader(cfg.Dir), req)
	if err != nil {
		return err
	}
	log, err := cfg.logger()
	if err != nil {
		return err
	}
	defer log.Sync()
	path, err := serialgen.GenerateBinaryModuleTypes(mc, types, serialgen.WithLogger(log))
	if err != nil {
		return err
	}
	fmt.Fprintln(cc.Out, path)
	return nil
}

// sourceRequest builds the source configuration and types of a source or
// check run from parsed args.
func sourceRequest(cfg *SourceConfig, args []string) (*serialgen.SourceTextConfig, []*typeinfo.Type, error) {
	req, err := buildRequest(cfg.typeOpts(), args)
	if err != nil {
		return nil, nil, err
	}
	sc := &serialgen.SourceTextConfig{}
	if req.Source != nil {
		*sc = *req.Source
	}
	if cfg.Out != "" {
		sc.OutputDirectory = cfg.Out
	}
	if cfg.Package != "" {
		sc.Package = cfg.Package
	}
	if err := parseLayout(cfg.Layout, &sc.Layout); err != nil {
		return nil, nil, err
	}
	types, err := selectTypes(typeinfo.NewLoader(cfg.Dir), req)
	if err != nil {
		return nil, nil, err
	}
	return sc, types, nil
}

func sourceRun(cfg *SourceConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Source.Parse(cc, args)
	if err != nil {
		return err
	}
	sc, types, err := sourceRequest(cfg, args)
	if err != nil {
		return err
	}
	log, err := cfg.logger()
	if err != nil {
		return err
	}
	defer log.Sync()
	paths, err := serialgen.GenerateSourceTextTypes(sc, types, serialgen.WithLogger(log))
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(cc.Out, p)
	}
	return nil
}
