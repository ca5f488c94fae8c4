package debug

import (
	"encoding/hex"
	"fmt"

	"github.com/goccy/go-yaml"
)

// YAML formats its value as YAML when logged.
type YAML struct{ V any }

func (y YAML) String() string {
	d, err := yaml.Marshal(y.V)
	if err != nil {
		return fmt.Sprintf("[raw] %v", y.V)
	}
	return string(d)
}

// Hex formats bytes as a hex dump when logged.
type Hex []byte

func (h Hex) String() string {
	return hex.Dump(h)
}

func render(args []any) []any {
	res := make([]any, len(args))
	for i, a := range args {
		switch x := a.(type) {
		case map[string]any, []any:
			res[i] = YAML{x}.String()
		case []byte:
			res[i] = Hex(x).String()
		default:
			res[i] = a
		}
	}
	return res
}
