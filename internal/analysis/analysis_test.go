package analysis_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"seqwork/internal/analysis"
	"seqwork/internal/testsupport"
	"seqwork/internal/worktype"
)

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	target := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return target
}

func TestRunInvokesCommandWithStandardArguments(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	script := writeScript(t, "analyse", `echo "$@" > `+argsFile+`
pwd >> `+argsFile)

	cfg := testsupport.NewConfig(t, testsupport.WithWorkTypeCommand("empty", script))
	runner := analysis.NewCommandRunner(cfg, nil)

	inputDir := filepath.Join(t.TempDir(), "input")
	outputDir := filepath.Join(t.TempDir(), "output")
	if err := runner.Run(context.Background(), worktype.Empty, inputDir, outputDir); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	recorded, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(recorded)), "\n")
	if len(lines) != 2 {
		t.Fatalf("unexpected capture: %q", recorded)
	}
	if want := "-i " + inputDir + " -o " + outputDir + " -v"; lines[0] != want {
		t.Fatalf("args: want %q, got %q", want, lines[0])
	}
	// The command runs inside the output directory.
	if resolved, err := filepath.EvalSymlinks(outputDir); err == nil {
		outputDir = resolved
	}
	if cwd, err := filepath.EvalSymlinks(lines[1]); err != nil || cwd != outputDir {
		t.Fatalf("cwd: want %q, got %q (err %v)", outputDir, lines[1], err)
	}
}

func TestRunReportsExitCodeAndStderr(t *testing.T) {
	script := writeScript(t, "analyse", `echo "reference genome missing" >&2
exit 3`)
	cfg := testsupport.NewConfig(t, testsupport.WithWorkTypeCommand("empty", script))
	runner := analysis.NewCommandRunner(cfg, nil)

	err := runner.Run(context.Background(), worktype.Empty, t.TempDir(), filepath.Join(t.TempDir(), "out"))
	if err == nil {
		t.Fatal("expected failure for non-zero exit")
	}
	if !strings.Contains(err.Error(), "exited 3") || !strings.Contains(err.Error(), "reference genome missing") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunRejectsUnconfiguredWorkType(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.WorkTypes = nil
	runner := analysis.NewCommandRunner(cfg, nil)

	err := runner.Run(context.Background(), worktype.ARTICNextflow, t.TempDir(), t.TempDir())
	if !errors.Is(err, analysis.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
