package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/scott-cotton/cli"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/signadot/serialgen"
)

func checkRun(cfg *CheckConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Check.Parse(cc, args)
	if err != nil {
		return err
	}
	sc, types, err := sourceRequest(cfg.SourceConfig, args)
	if err != nil {
		return err
	}
	dir, err := sc.OutputDir()
	if err != nil {
		return err
	}
	tmp, err := os.MkdirTemp("", "serialgen-check-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	gen := *sc
	gen.OutputDirectory = tmp
	log, err := cfg.logger()
	if err != nil {
		return err
	}
	defer log.Sync()
	paths, err := serialgen.GenerateSourceTextTypes(&gen, types, serialgen.WithLogger(log))
	if err != nil {
		return err
	}
	stale, err := compareFiles(cc.Out, dir, paths)
	if err != nil {
		return err
	}
	if stale != 0 {
		return fmt.Errorf("%d of %d generated files out of date in %s", stale, len(paths), dir)
	}
	return nil
}

// compareFiles compares each generated file with the file of the same name
// in dir, reporting differences to w, and returns the number that differ.
func compareFiles(w io.Writer, dir string, generated []string) (int, error) {
	stale := 0
	for _, p := range generated {
		want, err := os.ReadFile(p)
		if err != nil {
			return 0, err
		}
		name := filepath.Base(p)
		path := filepath.Join(dir, name)
		have, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			fmt.Fprintf(w, "%s %s\n", color.RedString("missing"), path)
			stale++
			continue
		}
		if err != nil {
			return 0, err
		}
		if bytes.Equal(have, want) {
			continue
		}
		stale++
		renderDiff(w, path, string(have), string(want))
	}
	return stale, nil
}

// renderDiff writes the lines changed from have to want.
func renderDiff(w io.Writer, name, have, want string) {
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(have, want)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	fmt.Fprintf(w, "--- %s\n+++ %s (generated)\n", name, name)
	for _, d := range diffs {
		var prefix string
		var paint func(string, ...any) string
		switch d.Type {
		case diffpatch.DiffInsert:
			prefix, paint = "+", color.GreenString
		case diffpatch.DiffDelete:
			prefix, paint = "-", color.RedString
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			fmt.Fprint(w, paint("%s%s", prefix, strings.TrimSuffix(line, "\n")), "\n")
		}
	}
}
