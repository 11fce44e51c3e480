package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xyproto/env/v2"
)

// DefaultIncludeLine is written at the top of every generated file.
const DefaultIncludeLine = `#include "../../Structs.h"`

// Output layouts.
const (
	LayoutFiles = "files"
	LayoutUnit  = "unit"
)

// Config holds the inputs, output location and output options of a run.
type Config struct {
	// Paths
	Image     string `json:"image"`
	Module    string `json:"module"`
	OutputDir string `json:"output_dir"`

	// Output settings
	IncludeLine string `json:"include_line"`
	Layout      string `json:"layout"`
	Manifest    *bool  `json:"manifest"`
	Verbose     bool   `json:"verbose"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve applies environment overrides, then CLI flags, then fills in
// defaults for anything still empty.
func (c *Config) Resolve(flags Flags) {
	// Environment overrides config file. env caches os.Environ on first
	// use, so refresh it to see changes made since.
	env.Load()
	c.OutputDir = env.Str("SADXDECOMP_OUTPUT", c.OutputDir)
	c.IncludeLine = env.Str("SADXDECOMP_INCLUDE", c.IncludeLine)
	c.Layout = env.Str("SADXDECOMP_LAYOUT", c.Layout)
	if env.Has("SADXDECOMP_VERBOSE") {
		c.Verbose = env.Bool("SADXDECOMP_VERBOSE")
	}

	// CLI flags override both
	if flags.Image != "" {
		c.Image = flags.Image
	}
	if flags.Module != "" {
		c.Module = flags.Module
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Layout != "" {
		c.Layout = flags.Layout
	}
	if flags.NoManifest {
		c.Manifest = boolPtr(false)
	}
	if flags.Verbose {
		c.Verbose = true
	}

	// Defaults
	if c.OutputDir == "" && c.Image != "" {
		base := strings.TrimSuffix(filepath.Base(c.Image), filepath.Ext(c.Image))
		c.OutputDir = filepath.Join(filepath.Dir(c.Image), base+"-src")
	}
	if c.IncludeLine == "" {
		c.IncludeLine = DefaultIncludeLine
	}
	if c.Layout == "" {
		c.Layout = LayoutFiles
	}
	if c.Manifest == nil {
		c.Manifest = boolPtr(true)
	}
}

// Validate reports settings that cannot be used for a run.
func (c *Config) Validate() error {
	if c.Image == "" {
		return fmt.Errorf("config: no image given")
	}
	if c.Module == "" {
		return fmt.Errorf("config: no module description given")
	}
	if c.Layout != LayoutFiles && c.Layout != LayoutUnit {
		return fmt.Errorf("config: unknown layout %q (want %s or %s)", c.Layout, LayoutFiles, LayoutUnit)
	}
	return nil
}

// WriteManifest reports whether a manifest should be written.
func (c *Config) WriteManifest() bool {
	return c.Manifest == nil || *c.Manifest
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	Image      string
	Module     string
	OutputDir  string
	Layout     string
	NoManifest bool
	Verbose    bool
}

func boolPtr(b bool) *bool { return &b }
