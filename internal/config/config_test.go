package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"SADXDECOMP_OUTPUT", "SADXDECOMP_INCLUDE", "SADXDECOMP_VERBOSE", "SADXDECOMP_LAYOUT"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"image": "sonic.exe", "module": "chao.xml", "layout": "unit", "manifest": false}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Image != "sonic.exe" || cfg.Module != "chao.xml" || cfg.Layout != LayoutUnit {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.WriteManifest() {
		t.Error("manifest: false was ignored")
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestResolveDefaults(t *testing.T) {
	clearEnv(t)
	cfg := Config{Image: filepath.Join("game", "CHRMODELS.dll")}
	cfg.Resolve(Flags{Module: "chr.xml"})

	if cfg.Module != "chr.xml" {
		t.Errorf("Module = %q", cfg.Module)
	}
	if want := filepath.Join("game", "CHRMODELS-src"); cfg.OutputDir != want {
		t.Errorf("OutputDir = %q, want %q", cfg.OutputDir, want)
	}
	if cfg.IncludeLine != DefaultIncludeLine {
		t.Errorf("IncludeLine = %q", cfg.IncludeLine)
	}
	if cfg.Layout != LayoutFiles {
		t.Errorf("Layout = %q", cfg.Layout)
	}
	if !cfg.WriteManifest() {
		t.Error("manifest disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Error(err)
	}
}

func TestResolvePrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("SADXDECOMP_OUTPUT", "from-env")
	t.Setenv("SADXDECOMP_INCLUDE", `#include "SADXStructs.h"`)
	t.Setenv("SADXDECOMP_LAYOUT", LayoutUnit)
	t.Setenv("SADXDECOMP_VERBOSE", "true")

	cfg := Config{OutputDir: "from-file", Layout: LayoutFiles}
	cfg.Resolve(Flags{})
	if cfg.OutputDir != "from-env" || cfg.Layout != LayoutUnit || !cfg.Verbose {
		t.Errorf("env did not override file: %+v", cfg)
	}
	if cfg.IncludeLine != `#include "SADXStructs.h"` {
		t.Errorf("IncludeLine = %q", cfg.IncludeLine)
	}

	cfg.Resolve(Flags{OutputDir: "from-flag", Layout: LayoutFiles, NoManifest: true})
	if cfg.OutputDir != "from-flag" || cfg.Layout != LayoutFiles {
		t.Errorf("flags did not override env: %+v", cfg)
	}
	if cfg.WriteManifest() {
		t.Error("NoManifest flag ignored")
	}
}

func TestResolveSeesLaterEnv(t *testing.T) {
	clearEnv(t)
	cfg := Config{OutputDir: "from-file"}
	cfg.Resolve(Flags{})
	if cfg.OutputDir != "from-file" {
		t.Fatalf("OutputDir = %q", cfg.OutputDir)
	}

	t.Setenv("SADXDECOMP_OUTPUT", "set-later")
	cfg = Config{OutputDir: "from-file"}
	cfg.Resolve(Flags{})
	if cfg.OutputDir != "set-later" {
		t.Errorf("OutputDir = %q, env change after first Resolve ignored", cfg.OutputDir)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no image", Config{Module: "m.xml", Layout: LayoutFiles}},
		{"no module", Config{Image: "a.exe", Layout: LayoutFiles}},
		{"bad layout", Config{Image: "a.exe", Module: "m.xml", Layout: "tree"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
