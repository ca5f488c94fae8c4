package debug

import (
	"fmt"
	"os"
	"strconv"
)

type debug struct {
	Pipeline bool
	Emit     bool
	Codec    bool
}

var d *debug

func init() {
	d = &debug{}
	d.Pipeline = boolEnv("SERIALGEN_DEBUG_PIPELINE")
	d.Emit = boolEnv("SERIALGEN_DEBUG_EMIT")
	d.Codec = boolEnv("SERIALGEN_DEBUG_CODEC")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

// Pipeline reports whether SERIALGEN_DEBUG_PIPELINE is set.
func Pipeline() bool {
	return d.Pipeline
}

// Emit reports whether SERIALGEN_DEBUG_EMIT is set.
func Emit() bool {
	return d.Emit
}

// Codec reports whether SERIALGEN_DEBUG_CODEC is set.
func Codec() bool {
	return d.Codec
}

// Set overrides the toggles read from the environment, for tests.
func Set(pipeline, emit, codec bool) {
	d.Pipeline = pipeline
	d.Emit = emit
	d.Codec = codec
}

func LogAny(v any) {
	Logf("%s\n", YAML{v})
}

// Logf writes to stderr, rendering maps as YAML and byte slices as hex.
func Logf(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, msg, render(args)...)
}
