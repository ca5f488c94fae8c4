// Package serialgen generates MessagePack serializers for Go types ahead of
// time.
//
// GenerateBinaryModule compiles the requested types, and every named
// composite type they reach, into one module file that a module.Codec
// executes at run time. GenerateSourceText writes one Go source file per
// requested type and nothing else.
//
// Both validate their configuration before touching the file system and
// write nothing unless every requested type could be generated.
package serialgen

import (
	"reflect"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/signadot/serialgen/typeinfo"
)

type options struct {
	log *zap.Logger
}

// Option configures a generation run.
type Option func(*options)

// WithLogger sets the logger receiving debug records of the run.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

func buildOptions(opts []Option) *options {
	o := &options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func fromReflect(rts []reflect.Type) []*typeinfo.Type {
	if rts == nil {
		return nil
	}
	return lo.Map(rts, func(rt reflect.Type, _ int) *typeinfo.Type {
		if rt == nil {
			return nil
		}
		return typeinfo.FromReflect(rt)
	})
}

// GenerateBinaryModule writes the module holding serializers for
// targetTypes and the types they depend on, and returns its absolute path.
func GenerateBinaryModule(cfg *BinaryModuleConfig, targetTypes []reflect.Type, opts ...Option) (string, error) {
	return GenerateBinaryModuleTypes(cfg, fromReflect(targetTypes), opts...)
}

// GenerateBinaryModuleTypes is GenerateBinaryModule for types described by
// typeinfo.
func GenerateBinaryModuleTypes(cfg *BinaryModuleConfig, targetTypes []*typeinfo.Type, opts ...Option) (string, error) {
	if cfg == nil {
		return "", &ArgumentError{Name: "cfg"}
	}
	paths, err := generate[*BinaryModuleConfig, *binaryContext](binaryStrategy{}, cfg, targetTypes, buildOptions(opts).log)
	if err != nil {
		return "", err
	}
	return paths[0], nil
}

// GenerateSourceText writes one Go file per distinct type of targetTypes,
// in request order, and returns their absolute paths. A nil cfg selects the
// defaults.
func GenerateSourceText(cfg *SourceTextConfig, targetTypes []reflect.Type, opts ...Option) ([]string, error) {
	return GenerateSourceTextTypes(cfg, fromReflect(targetTypes), opts...)
}

// GenerateSourceTextTypes is GenerateSourceText for types described by
// typeinfo.
func GenerateSourceTextTypes(cfg *SourceTextConfig, targetTypes []*typeinfo.Type, opts ...Option) ([]string, error) {
	if cfg == nil {
		cfg = &SourceTextConfig{}
	}
	return generate[*SourceTextConfig, *sourceContext](sourceStrategy{}, cfg, targetTypes, buildOptions(opts).log)
}
