package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"seqwork/internal/config"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be reported missing")
	}
	if cfg.Workflow.MaxWorkers != 4 {
		t.Fatalf("unexpected default max_workers: %d", cfg.Workflow.MaxWorkers)
	}
	if cfg.Archive.GetBinary != "iget" {
		t.Fatalf("unexpected default get_binary: %q", cfg.Archive.GetBinary)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
archive_root = "/seq/analysis/"
staging_root = "` + filepath.Join(dir, "staging") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[workflow]
max_workers = 8

[worktypes.ARTICNextflow]
command = "artic-wrapper"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: exists=%v path=%q", exists, resolved)
	}
	if cfg.Paths.ArchiveRoot != "/seq/analysis" {
		t.Fatalf("archive root not trimmed: %q", cfg.Paths.ArchiveRoot)
	}
	if cmd, ok := cfg.WorkTypeCommand("articnextflow"); !ok || cmd != "artic-wrapper" {
		t.Fatalf("work type section not folded: %q %v", cmd, ok)
	}
}

func TestWorkerCountClamped(t *testing.T) {
	cfg := config.Default()
	cfg.Workflow.MaxWorkers = 100
	if got := cfg.WorkerCount(); got != config.MaxWorkersLimit {
		t.Fatalf("expected clamp to %d, got %d", config.MaxWorkersLimit, got)
	}
	cfg.Workflow.MaxWorkers = 0
	if got := cfg.WorkerCount(); got != 1 {
		t.Fatalf("expected floor of 1, got %d", got)
	}
}

func TestValidateRejectsRelativeArchiveRoot(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.ArchiveRoot = "seq/analysis"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "archive_root") {
		t.Fatalf("expected archive_root error, got %v", err)
	}
}
