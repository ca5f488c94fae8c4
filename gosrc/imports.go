package gosrc

import (
	"fmt"
	"go/token"
	"sort"
	"strings"
)

const (
	msgpackPath  = "github.com/vmihailenco/msgpack/v5"
	msgpcodePath = "github.com/vmihailenco/msgpack/v5/msgpcode"
)

// importSet assigns import names to package paths in order of first use.
type importSet struct {
	names map[string]string
	taken map[string]bool
	used  map[string]bool
}

func newImportSet(pkg string) *importSet {
	s := &importSet{
		names: map[string]string{},
		taken: map[string]bool{pkg: true},
		used:  map[string]bool{},
	}
	// Names of receivers, parameters and locals of the emitted methods.
	for _, name := range []string{"s", "v", "enc", "dec", "data", "buf", "err"} {
		s.taken[name] = true
	}
	for _, p := range []string{"bytes", "time", msgpackPath, msgpcodePath} {
		name := assumedName(p)
		s.names[p] = name
		s.taken[name] = true
	}
	return s
}

// use marks path as imported and returns its name.
func (s *importSet) use(path string) string {
	s.used[path] = true
	if name, ok := s.names[path]; ok {
		return name
	}
	base := assumedName(path)
	name := base
	for i := 2; s.taken[name] || token.IsKeyword(name); i++ {
		name = fmt.Sprintf("%s%d", base, i)
	}
	s.names[path] = name
	s.taken[name] = true
	return name
}

// decl renders the import declaration of the used paths.
func (s *importSet) decl() string {
	var paths []string
	for p := range s.used {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	var sb strings.Builder
	sb.WriteString("import (\n")
	for _, p := range paths {
		name := s.names[p]
		if name == assumedName(p) && name == lastElem(p) {
			fmt.Fprintf(&sb, "\t%q\n", p)
			continue
		}
		fmt.Fprintf(&sb, "\t%s %q\n", name, p)
	}
	sb.WriteString(")\n")
	return sb.String()
}

func lastElem(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// assumedName is an identifier derived from the last element of path that
// is not a major version suffix.
func assumedName(path string) string {
	elems := strings.Split(path, "/")
	name := elems[len(elems)-1]
	if len(elems) > 1 && isMajorVersion(name) {
		name = elems[len(elems)-2]
	}
	var sb strings.Builder
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			sb.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 {
		return "pkg"
	}
	return sb.String()
}

func isMajorVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
