package serialgen

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/signadot/serialgen/typeinfo"
)

// strategy binds the orchestration to one delivery form.
type strategy[C Configuration, X generationContext] interface {
	name() string
	// newContext returns a fresh context for one run writing to dir.
	newContext(cfg C, dir string) (X, error)
	newGenerator(t *typeinfo.Type) codeGenerator[X]
}

// generationContext accumulates the contributions of one run.
type generationContext interface {
	// discovered returns the dependent types found by the contributions
	// since the last call.
	discovered() []*typeinfo.Type
	// finalize writes the artifacts into dir, which exists, and returns
	// their paths.
	finalize(dir string) ([]string, error)
}

type codeGenerator[X any] interface {
	buildContribution(ctx X) error
}

// worklist is a queue of types, distinct by identity over its lifetime.
type worklist struct {
	seen    map[string]bool
	pending []*typeinfo.Type
}

func (w *worklist) push(ts ...*typeinfo.Type) []*typeinfo.Type {
	var added []*typeinfo.Type
	for _, t := range ts {
		id := t.ID()
		if w.seen[id] {
			continue
		}
		w.seen[id] = true
		w.pending = append(w.pending, t)
		added = append(added, t)
	}
	return added
}

func (w *worklist) pop() (*typeinfo.Type, bool) {
	if len(w.pending) == 0 {
		return nil, false
	}
	t := w.pending[0]
	w.pending = w.pending[1:]
	return t, true
}

func ids(ts []*typeinfo.Type) []string {
	return lo.Map(ts, func(t *typeinfo.Type, _ int) string { return t.ID() })
}

// generate runs one generation with strategy s.
func generate[C Configuration, X generationContext](s strategy[C, X], cfg C, types []*typeinfo.Type, log *zap.Logger) ([]string, error) {
	if types == nil {
		return nil, &ArgumentError{Name: "targetTypes"}
	}
	if lo.Contains(types, nil) {
		return nil, &ArgumentError{Name: "targetTypes", Message: "nil type in request"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dir, err := cfg.OutputDir()
	if err != nil {
		return nil, &IOError{Op: "resolve", Err: err}
	}
	ctx, err := s.newContext(cfg, dir)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("strategy", s.name()), zap.String("dir", dir))
	log.Debug("generation started", zap.Int("requested", len(types)))

	w := &worklist{seen: map[string]bool{}}
	w.push(types...)
	for {
		t, ok := w.pop()
		if !ok {
			break
		}
		if err := s.newGenerator(t).buildContribution(ctx); err != nil {
			return nil, &GenerationError{Type: t.ID(), Err: err}
		}
		log.Debug("generated", zap.String("type", t.ID()))
		if added := w.push(ctx.discovered()...); len(added) != 0 {
			log.Debug("discovered dependents", zap.String("type", t.ID()), zap.Strings("dependents", ids(added)))
		}
	}

	created := missingRoot(dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &IOError{Path: dir, Op: "mkdir", Err: err}
	}
	paths, err := ctx.finalize(dir)
	if err != nil {
		removeCreated(dir, created)
		return nil, err
	}
	log.Debug("wrote artifacts", zap.Strings("paths", paths))
	return paths, nil
}

// missingRoot returns the outermost of dir and its ancestors that does not
// exist, or "" if dir exists.
func missingRoot(dir string) string {
	root := ""
	for p := dir; ; p = filepath.Dir(p) {
		if _, err := os.Lstat(p); !errors.Is(err, fs.ErrNotExist) {
			return root
		}
		root = p
		if filepath.Dir(p) == p {
			return root
		}
	}
}

// removeCreated removes the empty directories from dir up to root, which
// were created by the run.
func removeCreated(dir, root string) {
	if root == "" {
		return
	}
	for p := dir; ; p = filepath.Dir(p) {
		if os.Remove(p) != nil || p == root {
			return
		}
	}
}
