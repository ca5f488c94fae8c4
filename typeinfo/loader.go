package typeinfo

import (
	"fmt"
	"go/types"
	"reflect"
	"sort"
	"strings"
	"sync"

	"golang.org/x/tools/go/packages"
)

// Loader resolves types from Go source through golang.org/x/tools/go/packages.
// Loaded packages are cached for the lifetime of the Loader.
type Loader struct {
	// Dir is the directory the go command runs in; empty means the
	// current directory.
	Dir string

	cache map[string]*packages.Package
	mu    sync.RWMutex
}

// NewLoader creates a Loader running the go command in dir.
func NewLoader(dir string) *Loader {
	return &Loader{
		Dir:   dir,
		cache: make(map[string]*packages.Package),
	}
}

const loadMode = packages.NeedName | packages.NeedFiles | packages.NeedImports | packages.NeedTypes | packages.NeedTypesSizes | packages.NeedTypesInfo

// LoadPackage loads a package by import path or relative pattern.
func (l *Loader) LoadPackage(pattern string) (*packages.Package, error) {
	l.mu.RLock()
	if pkg, ok := l.cache[pattern]; ok {
		l.mu.RUnlock()
		return pkg, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	if pkg, ok := l.cache[pattern]; ok {
		return pkg, nil
	}

	cfg := &packages.Config{Mode: loadMode, Dir: l.Dir}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to load package %q: %w", pattern, err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("package %q not found", pattern)
	}
	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, fmt.Errorf("errors loading package %q: %v", pattern, pkg.Errors[0])
	}
	if pkg.Types == nil {
		return nil, fmt.Errorf("package %q has no type information", pattern)
	}
	l.cache[pattern] = pkg
	return pkg, nil
}

// Lookup resolves a qualified type name such as
// "github.com/acme/geo.Point".
func (l *Loader) Lookup(qualified string) (*Type, error) {
	i := strings.LastIndexByte(qualified, '.')
	if i <= 0 || i == len(qualified)-1 {
		return nil, fmt.Errorf("%q is not a qualified type name (want importpath.Name)", qualified)
	}
	pkgPath, name := qualified[:i], qualified[i+1:]
	pkg, err := l.LoadPackage(pkgPath)
	if err != nil {
		return nil, err
	}
	obj := pkg.Types.Scope().Lookup(name)
	if obj == nil {
		return nil, fmt.Errorf("type %q not found in package %q", name, pkg.PkgPath)
	}
	tn, ok := obj.(*types.TypeName)
	if !ok {
		return nil, fmt.Errorf("%q is not a type name", qualified)
	}
	named, ok := types.Unalias(tn.Type()).(*types.Named)
	if !ok {
		return nil, fmt.Errorf("%q is not a named type", qualified)
	}
	if named.TypeParams().Len() > 0 {
		return nil, fmt.Errorf("%q is generic; only instantiated types can be serialized", qualified)
	}
	return FromGoType(named), nil
}

// PackageTypes returns every exported, non-generic named struct type of the
// package matched by pattern, sorted by name.
func (l *Loader) PackageTypes(pattern string) ([]*Type, error) {
	pkg, err := l.LoadPackage(pattern)
	if err != nil {
		return nil, err
	}
	scope := pkg.Types.Scope()
	names := scope.Names()
	sort.Strings(names)

	c := newGoTypeConverter()
	var res []*Type
	for _, name := range names {
		tn, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || !tn.Exported() || tn.IsAlias() {
			continue
		}
		named, ok := tn.Type().(*types.Named)
		if !ok || named.TypeParams().Len() > 0 {
			continue
		}
		if _, ok := named.Underlying().(*types.Struct); !ok {
			continue
		}
		res = append(res, c.convert(named))
	}
	return res, nil
}

// FromGoType builds the Type of a type-checked Go type.
func FromGoType(t types.Type) *Type {
	return newGoTypeConverter().convert(t)
}

type goTypeConverter struct {
	seen map[string]*Type
}

func newGoTypeConverter() *goTypeConverter {
	return &goTypeConverter{seen: map[string]*Type{}}
}

func pathQualifier(p *types.Package) string {
	return p.Path()
}

var basicKinds = map[types.BasicKind]Kind{
	types.Bool:    Bool,
	types.Int:     Int,
	types.Int8:    Int8,
	types.Int16:   Int16,
	types.Int32:   Int32,
	types.Int64:   Int64,
	types.Uint:    Uint,
	types.Uint8:   Uint8,
	types.Uint16:  Uint16,
	types.Uint32:  Uint32,
	types.Uint64:  Uint64,
	types.Float32: Float32,
	types.Float64: Float64,
	types.String:  String,
}

func (c *goTypeConverter) convert(gt types.Type) *Type {
	gt = types.Unalias(gt)
	named, isNamed := gt.(*types.Named)
	if !isNamed {
		return c.underlying(&Type{}, gt)
	}

	obj := named.Obj()
	if obj.Pkg() == nil {
		// predeclared, e.g. error
		return c.underlying(&Type{}, named.Underlying())
	}
	t := &Type{PkgPath: obj.Pkg().Path(), Name: instanceName(named)}
	id := t.ID()
	if seen, ok := c.seen[id]; ok {
		return seen
	}
	c.seen[id] = t
	if t.PkgPath == "time" && t.Name == "Time" {
		t.Kind = Time
		return t
	}
	return c.underlying(t, named.Underlying())
}

// instanceName spells a named type the way reflect does, type arguments
// included without spaces.
func instanceName(named *types.Named) string {
	name := named.Obj().Name()
	args := named.TypeArgs()
	if args.Len() == 0 {
		return name
	}
	parts := make([]string, args.Len())
	for i := range parts {
		parts[i] = types.TypeString(args.At(i), pathQualifier)
	}
	return name + "[" + strings.Join(parts, ",") + "]"
}

func (c *goTypeConverter) underlying(t *Type, u types.Type) *Type {
	switch u := u.(type) {
	case *types.Basic:
		k, ok := basicKinds[u.Kind()]
		if !ok {
			t.Kind = Unsupported
			t.Repr = u.String()
			break
		}
		t.Kind = k
	case *types.Slice:
		if b, ok := types.Unalias(u.Elem()).(*types.Basic); ok && b.Kind() == types.Uint8 {
			t.Kind = Bytes
			break
		}
		t.Kind = Slice
		t.Elem = c.convert(u.Elem())
	case *types.Array:
		t.Kind = Array
		t.Len = int(u.Len())
		t.Elem = c.convert(u.Elem())
	case *types.Map:
		t.Kind = Map
		t.Key = c.convert(u.Key())
		t.Elem = c.convert(u.Elem())
	case *types.Pointer:
		t.Kind = Pointer
		t.Elem = c.convert(u.Elem())
	case *types.Interface:
		if u.NumMethods() != 0 || !u.IsMethodSet() {
			t.Kind = Unsupported
			t.Repr = u.String()
			break
		}
		t.Kind = Any
	case *types.Struct:
		t.Kind = Struct
		for i := 0; i < u.NumFields(); i++ {
			v := u.Field(i)
			if !v.Exported() {
				continue
			}
			tag := parseFieldTag(reflect.StructTag(u.Tag(i)))
			if tag.Skip {
				continue
			}
			key := tag.Key
			if key == "" {
				key = v.Name()
			}
			t.Fields = append(t.Fields, &Field{
				Name:      v.Name(),
				Key:       key,
				Index:     i,
				Type:      c.convert(v.Type()),
				OmitEmpty: tag.OmitEmpty,
			})
		}
	default:
		t.Kind = Unsupported
		t.Repr = types.TypeString(u, pathQualifier)
	}
	return t
}
