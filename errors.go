package serialgen

import "fmt"

// ArgumentError reports a missing required input.
type ArgumentError struct {
	Name    string
	Message string
}

func (e *ArgumentError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("argument %s: %s", e.Name, e.Message)
	}
	return fmt.Sprintf("argument %s is required", e.Name)
}

// ConfigurationError reports a structurally invalid configuration.
type ConfigurationError struct {
	Field   string // Offending field (e.g., "ModuleName")
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error for %s: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// GenerationError reports a type whose serializer could not be generated.
type GenerationError struct {
	Type string // Identity of the offending type
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating %s: %v", e.Type, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IOError reports an output location that could not be created or written.
type IOError struct {
	Path string
	Op   string // "resolve", "mkdir" or "write"
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
