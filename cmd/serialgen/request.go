package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	jsonpatch "github.com/evanphx/json-patch"
	"github.com/goccy/go-yaml"
	"github.com/samber/lo"
	"github.com/scott-cotton/cli"

	"github.com/signadot/serialgen"
)

// Request is the content of a request file.
type Request struct {
	Module   *serialgen.BinaryModuleConfig `json:"module,omitempty"`
	Source   *serialgen.SourceTextConfig   `json:"source,omitempty"`
	Types    []string                      `json:"types,omitempty"`
	Packages []string                      `json:"packages,omitempty"`
	Where    string                        `json:"where,omitempty"`
}

// LoadRequest reads the request file at path, applying the merge patch
// file at overlay if it is not empty.
func LoadRequest(path, overlay string) (*Request, error) {
	doc, err := readDoc(path)
	if err != nil {
		return nil, err
	}
	if overlay != "" {
		patch, err := readDoc(overlay)
		if err != nil {
			return nil, err
		}
		doc, err = jsonpatch.MergePatch(doc, patch)
		if err != nil {
			return nil, fmt.Errorf("applying %s to %s: %w", overlay, path, err)
		}
	}
	req := &Request{}
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		return nil, fmt.Errorf("decoding request %s: %w", path, err)
	}
	return req, nil
}

// readDoc reads a yaml, toml or json file as json.
func readDoc(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var v any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if !json.Valid(data) {
			return nil, fmt.Errorf("%s: invalid json", path)
		}
		return data, nil
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	case ".toml":
		m := map[string]any{}
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		v = m
	default:
		return nil, fmt.Errorf("%w: unknown request file extension %q", cli.ErrUsage, ext)
	}
	return json.Marshal(v)
}

// buildRequest combines the request file of opts with the command line.
func buildRequest(opts TypeOpts, args []string) (*Request, error) {
	req := &Request{}
	if opts.File != "" {
		var err error
		req, err = LoadRequest(opts.File, opts.Overlay)
		if err != nil {
			return nil, err
		}
	} else if opts.Overlay != "" {
		return nil, fmt.Errorf("%w: -overlay requires -f", cli.ErrUsage)
	}
	req.Types = append(req.Types, args...)
	pkgs := lo.Map(strings.Split(opts.Packages, ","), func(p string, _ int) string {
		return strings.TrimSpace(p)
	})
	req.Packages = append(req.Packages, lo.Compact(pkgs)...)
	if opts.Where != "" {
		req.Where = opts.Where
	}
	if len(req.Types) == 0 && len(req.Packages) == 0 {
		return nil, fmt.Errorf("%w: no types requested", cli.ErrUsage)
	}
	return req, nil
}
