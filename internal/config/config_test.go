package config

import (
	"os"
	"path/filepath"
	"testing"
)

func withEnv(t *testing.T, kv map[string]string, fn func()) {
	t.Helper()
	var unset []string
	for k, v := range kv {
		old, had := os.LookupEnv(k)
		os.Setenv(k, v)
		if had {
			defer os.Setenv(k, old)
		} else {
			unset = append(unset, k)
		}
	}
	for _, k := range unset {
		k := k
		defer os.Unsetenv(k)
	}
	fn()
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	withEnv(t, map[string]string{
		"CARB_HOME":       dir,
		"JOBS":            "",
		"PAR2":            "",
		"PAR2_REDUNDANCY": "",
		"PAR2_BLOCKSIZE":  "",
		"ENABLE_MIME":     "",
		"EXCLUDE_GLOBS":   "",
		"TMPDIR":          "",
	}, func() {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if !cfg.ParityEnabled {
			t.Error("ParityEnabled should default to true")
		}
		if cfg.ParityRedundancy != defaultRedundancy {
			t.Errorf("ParityRedundancy = %d, want %d", cfg.ParityRedundancy, defaultRedundancy)
		}
		if cfg.RedundancyConfigured {
			t.Error("RedundancyConfigured should be false when PAR2_REDUNDANCY is unset")
		}
		if cfg.Home != dir {
			t.Errorf("Home = %q, want %q", cfg.Home, dir)
		}
		if cfg.TmpDir != filepath.Join(dir, "tmp") {
			t.Errorf("TmpDir = %q", cfg.TmpDir)
		}
	})
}

func TestLoadRejectsInvalidJobs(t *testing.T) {
	withEnv(t, map[string]string{"JOBS": "0"}, func() {
		if _, err := Load(); err == nil {
			t.Fatal("expected an error for JOBS=0")
		}
	})
}

func TestLoadClampsRedundancy(t *testing.T) {
	dir := t.TempDir()
	withEnv(t, map[string]string{"CARB_HOME": dir, "PAR2_REDUNDANCY": "200"}, func() {
		cfg, err := Load()
		if err != nil {
			t.Fatal(err)
		}
		if cfg.ParityRedundancy != maxRedundancy {
			t.Errorf("ParityRedundancy = %d, want clamped to %d", cfg.ParityRedundancy, maxRedundancy)
		}
		if !cfg.RedundancyConfigured {
			t.Error("RedundancyConfigured should be true when PAR2_REDUNDANCY is set")
		}
	})
}

func TestLoadParsesExcludeGlobs(t *testing.T) {
	dir := t.TempDir()
	withEnv(t, map[string]string{"CARB_HOME": dir, "EXCLUDE_GLOBS": "*.swp, *.tmp"}, func() {
		cfg, err := Load()
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"*.swp", "*.tmp"}
		if len(cfg.ExcludeGlobs) != len(want) {
			t.Fatalf("ExcludeGlobs = %v, want %v", cfg.ExcludeGlobs, want)
		}
		for i, g := range want {
			if cfg.ExcludeGlobs[i] != g {
				t.Errorf("ExcludeGlobs[%d] = %q, want %q", i, cfg.ExcludeGlobs[i], g)
			}
		}
	})
}

func TestEnsureLayoutCreatesDirectories(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "home")
	withEnv(t, map[string]string{"CARB_HOME": dir}, func() {
		cfg, err := Load()
		if err != nil {
			t.Fatal(err)
		}
		if err := cfg.EnsureLayout(); err != nil {
			t.Fatal(err)
		}
		for _, d := range []string{cfg.Home, cfg.BlobDir(), cfg.ParityDir(), cfg.TmpDir, cfg.ManifestRoot()} {
			if fi, err := os.Stat(d); err != nil || !fi.IsDir() {
				t.Errorf("expected directory %q to exist", d)
			}
		}
	})
}
