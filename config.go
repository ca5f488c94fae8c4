package serialgen

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/signadot/serialgen/gosrc"
	"github.com/signadot/serialgen/layout"
)

const (
	// DefaultVersion is the module version recorded when none is set.
	DefaultVersion = "0.0.0"
	// DefaultLanguage is the only language source text is emitted in.
	DefaultLanguage = "go"
	// DefaultPackage is the package clause of emitted files when none is
	// set.
	DefaultPackage = "serializers"
)

var moduleNameRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.-]*$`)

// Configuration is the settings of one generation run. It is implemented by
// *BinaryModuleConfig and *SourceTextConfig only.
type Configuration interface {
	// Validate checks the configuration, returning a *ConfigurationError.
	Validate() error
	// OutputDir is the absolute output directory.
	OutputDir() (string, error)
	// LayoutMode is the layout of the generated serializers.
	LayoutMode() layout.Layout

	configuration()
}

// BinaryModuleConfig configures the generation of a module file.
type BinaryModuleConfig struct {
	// ModuleName names the module and its file. Required.
	ModuleName string `json:"moduleName,omitempty"`
	// Version is a semantic version, DefaultVersion when empty.
	Version string `json:"version,omitempty"`
	// OutputDirectory defaults to the working directory.
	OutputDirectory string        `json:"outputDirectory,omitempty"`
	Layout          layout.Layout `json:"layout,omitempty"`
}

func (c *BinaryModuleConfig) configuration() {}

// Validate checks that ModuleName is set and well formed, that Version is
// empty or a semantic version and that Layout is known.
func (c *BinaryModuleConfig) Validate() error {
	if c.ModuleName == "" {
		return &ConfigurationError{Field: "ModuleName", Message: "required"}
	}
	if !moduleNameRE.MatchString(c.ModuleName) {
		return &ConfigurationError{Field: "ModuleName", Message: "must match " + moduleNameRE.String()}
	}
	if c.Version != "" {
		if _, err := semver.StrictNewVersion(c.Version); err != nil {
			return &ConfigurationError{Field: "Version", Message: "not a semantic version", Err: err}
		}
	}
	if !c.Layout.Valid() {
		return &ConfigurationError{Field: "Layout", Message: c.Layout.String()}
	}
	return nil
}

// OutputDir returns the absolute OutputDirectory, or the working directory
// when it is empty.
func (c *BinaryModuleConfig) OutputDir() (string, error) {
	return outputDir(c.OutputDirectory)
}

// LayoutMode returns Layout.
func (c *BinaryModuleConfig) LayoutMode() layout.Layout {
	return c.Layout
}

// ModuleVersion is the version recorded in the module.
func (c *BinaryModuleConfig) ModuleVersion() string {
	if c.Version == "" {
		return DefaultVersion
	}
	return c.Version
}

// SourceTextConfig configures the generation of Go source files.
type SourceTextConfig struct {
	// OutputDirectory defaults to the working directory.
	OutputDirectory string        `json:"outputDirectory,omitempty"`
	Layout          layout.Layout `json:"layout,omitempty"`
	// Language is the dialect of the emitted text. Only "go" is supported.
	Language string `json:"language,omitempty"`
	// Package is the package clause of emitted files, DefaultPackage when
	// empty.
	Package string `json:"package,omitempty"`
}

func (c *SourceTextConfig) configuration() {}

// Validate checks that Layout is known, Language is supported and Package
// is a valid package name.
func (c *SourceTextConfig) Validate() error {
	if !c.Layout.Valid() {
		return &ConfigurationError{Field: "Layout", Message: c.Layout.String()}
	}
	if lang := c.language(); lang != DefaultLanguage {
		return &ConfigurationError{Field: "Language", Message: "unsupported language " + lang}
	}
	if !gosrc.ValidPackage(c.packageName()) {
		return &ConfigurationError{Field: "Package", Message: "not a Go package name: " + c.Package}
	}
	return nil
}

// OutputDir returns the absolute OutputDirectory, or the working directory
// when it is empty.
func (c *SourceTextConfig) OutputDir() (string, error) {
	return outputDir(c.OutputDirectory)
}

// LayoutMode returns Layout.
func (c *SourceTextConfig) LayoutMode() layout.Layout {
	return c.Layout
}

func (c *SourceTextConfig) language() string {
	if c.Language == "" {
		return DefaultLanguage
	}
	return strings.ToLower(c.Language)
}

func (c *SourceTextConfig) packageName() string {
	if c.Package == "" {
		return DefaultPackage
	}
	return c.Package
}

func outputDir(dir string) (string, error) {
	if dir == "" {
		return os.Getwd()
	}
	return filepath.Abs(dir)
}
