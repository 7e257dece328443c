// Package analysis invokes the configured analysis command for a work type.
// The command contract is fixed: it receives "-i <input> -o <output> -v",
// runs with the output directory as its working directory and must exit
// zero on success. Everything else about the analysis is opaque.
package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"seqwork/internal/config"
	"seqwork/internal/logging"
	"seqwork/internal/worktype"
)

var commandContext = exec.CommandContext

// ErrNotConfigured indicates no analysis command exists for a work type.
var ErrNotConfigured = errors.New("no analysis command configured")

// Runner defines analysis execution behaviour.
type Runner interface {
	Run(ctx context.Context, workType worktype.Type, inputDir, outputDir string) error
}

// CommandRunner runs analysis commands from configuration.
type CommandRunner struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewCommandRunner constructs a runner backed by the worktypes configuration.
func NewCommandRunner(cfg *config.Config, logger *slog.Logger) *CommandRunner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CommandRunner{cfg: cfg, logger: logger}
}

// Run executes the analysis for workType against the staged input, writing
// results into outputDir. A non-zero exit is an analysis failure.
func (r *CommandRunner) Run(ctx context.Context, workType worktype.Type, inputDir, outputDir string) error {
	command, ok := r.cfg.WorkTypeCommand(string(workType))
	if !ok {
		return fmt.Errorf("work type %s: %w", workType, ErrNotConfigured)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	parts := strings.Fields(command)
	args := append(parts[1:], "-i", inputDir, "-o", outputDir, "-v")

	logger := logging.WithContext(ctx, r.logger)
	logger.Info("running analysis",
		logging.String("command", parts[0]),
		logging.String(logging.FieldWorkType, string(workType)))

	cmd := commandContext(ctx, parts[0], args...) //nolint:gosec
	cmd.Dir = outputDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("analysis %s exited %d: %s",
				parts[0], exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("run analysis %s: %w", parts[0], err)
	}
	return nil
}

var _ Runner = (*CommandRunner)(nil)
