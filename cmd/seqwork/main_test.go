package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"seqwork/internal/config"
	"seqwork/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	script := filepath.Join(t.TempDir(), "analyse.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write analysis stub: %v", err)
	}

	cfg := testsupport.NewConfig(t,
		testsupport.WithStubbedBinaries(),
		testsupport.WithWorkTypeCommand("empty", script),
	)

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg, script)

	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config, analyseScript string) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
archive_root = %q
staging_root = %q
log_dir = %q

[workflow]
max_workers = 2

[worktypes.empty]
command = %q
`,
		cfg.Paths.ArchiveRoot,
		cfg.Paths.StagingRoot,
		cfg.Paths.LogDir,
		analyseScript,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestCLIEnqueueListCancel(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"enqueue", "--type", "empty", "/seq/run1"}, env.configPath)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	requireContains(t, out, "queued #1")
	requireContains(t, out, "Queued 1 of 1 candidate(s)")

	out, _, err = runCLI(t, []string{"enqueue", "--type", "Empty", "/seq/run1/"}, env.configPath)
	if err != nil {
		t.Fatalf("enqueue duplicate: %v", err)
	}
	requireContains(t, out, "already active as #1")

	out, _, err = runCLI(t, []string{"list"}, env.configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "/seq/run1")
	requireContains(t, out, "queued")

	out, _, err = runCLI(t, []string{"cancel", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	requireContains(t, out, "Cancelled instance 1")

	if _, _, err = runCLI(t, []string{"cancel", "1"}, env.configPath); err == nil {
		t.Fatal("expected cancel of resolved instance to fail")
	}
}

func TestCLIEnqueueRejectsBadIdentity(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"enqueue", "--type", "empty", "relative/path"}, env.configPath)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	requireContains(t, out, "rejected relative/path")
	requireContains(t, out, "Queued 0 of 1 candidate(s)")

	if _, _, err := runCLI(t, []string{"enqueue", "--type", "bogus", "/seq/run1"}, env.configPath); err == nil {
		t.Fatal("expected unknown --type to fail")
	}
}

func TestCLIHistoryShowsAllInstances(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"enqueue", "--type", "empty", "/seq/run2"}, env.configPath); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, _, err := runCLI(t, []string{"cancel", "1"}, env.configPath); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, _, err := runCLI(t, []string{"enqueue", "--type", "empty", "/seq/run2"}, env.configPath); err != nil {
		t.Fatalf("re-enqueue: %v", err)
	}

	out, _, err := runCLI(t, []string{"history", "/seq/run2", "empty"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "cancelled")
	requireContains(t, out, "queued")
}

func TestCLIStatusShowsCountsAndPreflight(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"enqueue", "--type", "empty", "/seq/run3"}, env.configPath); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "queued")
	requireContains(t, out, "Preflight:")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, env.configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, env.configPath); err == nil {
		t.Fatal("expected init without --overwrite to fail on existing file")
	}
}
