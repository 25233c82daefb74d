package projectconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew_ReturnsAllDefaults(t *testing.T) {
	cfg := New()

	assertEqual(t, "Paths.Variants", "variants/", cfg.Paths.Variants)
	assertEqual(t, "Paths.Results", "results/", cfg.Paths.Results)

	assertEqualInt(t, "Defaults.Bins", 51, cfg.Defaults.Bins)
	assertEqualInt(t, "Defaults.Workers", 4, cfg.Defaults.Workers)
	assertEqual(t, "Defaults.Valuation", "quality_loss", cfg.Defaults.Valuation)
	assertEqual(t, "Defaults.Algorithm", "brute_force", cfg.Defaults.Algorithm)
	assertEqual(t, "Defaults.QcStrategy", "", cfg.Defaults.QcStrategy)

	assertBoolPtr(t, "Cache.Enabled", false, cfg.Cache.Enabled)
	assertEqual(t, "Cache.Dir", ".tolstack-cache", cfg.Cache.Dir)
}

func TestLoad_FullConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, `
paths:
  variants: "custom-variants/"
  results: "custom-results/"
defaults:
  bins: 101
  workers: 8
  valuation: cpk
  algorithm: brute_force
  qc_strategy: individual_assembly
cache:
  enabled: true
  dir: ".my-cache"
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	assertEqual(t, "Paths.Variants", "custom-variants/", cfg.Paths.Variants)
	assertEqual(t, "Paths.Results", "custom-results/", cfg.Paths.Results)
	assertEqualInt(t, "Defaults.Bins", 101, cfg.Defaults.Bins)
	assertEqualInt(t, "Defaults.Workers", 8, cfg.Defaults.Workers)
	assertEqual(t, "Defaults.Valuation", "cpk", cfg.Defaults.Valuation)
	assertEqual(t, "Defaults.QcStrategy", "individual_assembly", cfg.Defaults.QcStrategy)
	assertBoolPtr(t, "Cache.Enabled", true, cfg.Cache.Enabled)
	assertEqual(t, "Cache.Dir", ".my-cache", cfg.Cache.Dir)
}

func TestLoad_PartialConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, `
defaults:
  workers: 2
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	assertEqualInt(t, "Defaults.Workers", 2, cfg.Defaults.Workers)
	assertEqualInt(t, "Defaults.Bins", DefaultBins, cfg.Defaults.Bins)
	assertEqual(t, "Paths.Variants", DefaultVariantsDir, cfg.Paths.Variants)
	assertBoolPtr(t, "Cache.Enabled", false, cfg.Cache.Enabled)
}

func TestLoad_MissingFile_ReturnsDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	defaults := New()
	assertEqualInt(t, "Defaults.Bins", defaults.Defaults.Bins, cfg.Defaults.Bins)
	assertEqual(t, "Defaults.Valuation", defaults.Defaults.Valuation, cfg.Defaults.Valuation)
	assertEqual(t, "Cache.Dir", defaults.Cache.Dir, cfg.Cache.Dir)
}

func TestLoad_InvalidYAML_ReturnsError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, `
defaults:
  bins: [not valid yaml
    this is broken
`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("Load() should return error for invalid YAML")
	}
}

func TestLoad_WalksUpDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, FileName, `
defaults:
  valuation: mean_std
`)

	child := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(child, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(child)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	assertEqual(t, "Defaults.Valuation", "mean_std", cfg.Defaults.Valuation)
	assertEqualInt(t, "Defaults.Bins", DefaultBins, cfg.Defaults.Bins)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, `
defaults:
  workers: 2
  bins: 21
`)
	t.Setenv("TOLSTACK_WORKERS", "16")
	t.Setenv("TOLSTACK_CACHE_ENABLED", "true")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	assertEqualInt(t, "Defaults.Workers", 16, cfg.Defaults.Workers)
	assertEqualInt(t, "Defaults.Bins", 21, cfg.Defaults.Bins)
	assertBoolPtr(t, "Cache.Enabled", true, cfg.Cache.Enabled)
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	t.Setenv("TOLSTACK_BINS", "not-an-int")

	_, err := Load(t.TempDir())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ci.yaml", `
paths:
  variants: "ci-variants/"
defaults:
  workers: 3
`)

	cfg, err := LoadFile(filepath.Join(dir, "ci.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	assertEqual(t, "Paths.Variants", "ci-variants/", cfg.Paths.Variants)
	assertEqualInt(t, "Defaults.Workers", 3, cfg.Defaults.Workers)
	assertEqualInt(t, "Defaults.Bins", DefaultBins, cfg.Defaults.Bins)

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestBoolPointerFields(t *testing.T) {
	t.Run("defaults preserved when not set in YAML", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, FileName, `
defaults:
  bins: 11
`)
		cfg, err := Load(dir)
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		assertBoolPtr(t, "Cache.Enabled", false, cfg.Cache.Enabled)
	})

	t.Run("explicitly true", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, FileName, `
cache:
  enabled: true
`)
		cfg, err := Load(dir)
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		assertBoolPtr(t, "Cache.Enabled", true, cfg.Cache.Enabled)
	})
}

// --- test helpers ---

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func assertEqual(t *testing.T, field, want, got string) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %q, want %q", field, got, want)
	}
}

func assertEqualInt(t *testing.T, field string, want, got int) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %d, want %d", field, got, want)
	}
}

func assertBoolPtr(t *testing.T, field string, want bool, got *bool) {
	t.Helper()
	if got == nil {
		t.Errorf("%s is nil, want *%v", field, want)
		return
	}
	if *got != want {
		t.Errorf("%s = %v, want %v", field, *got, want)
	}
}
