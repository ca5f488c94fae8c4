package debug

import (
	"strings"
	"testing"
)

func TestBoolEnv(t *testing.T) {
	tests := []struct {
		val  string
		want bool
	}{
		{"", false},
		{"1", true},
		{"true", true},
		{"no", false},
		{"0", false},
	}
	for _, tt := range tests {
		t.Setenv("SERIALGEN_TEST_TOGGLE", tt.val)
		if got := boolEnv("SERIALGEN_TEST_TOGGLE"); got != tt.want {
			t.Errorf("boolEnv(%q) = %v, want %v", tt.val, got, tt.want)
		}
	}
}

func TestRender(t *testing.T) {
	got := render([]any{map[string]any{"a": 1}, []byte("hi"), 3})
	if !strings.Contains(got[0].(string), "a: 1") {
		t.Errorf("map rendered as %q", got[0])
	}
	if !strings.Contains(got[1].(string), "68 69") {
		t.Errorf("bytes rendered as %q", got[1])
	}
	if got[2] != 3 {
		t.Errorf("int rendered as %v", got[2])
	}
}
