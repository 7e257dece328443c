package preflight

import (
	"context"
	"sort"

	"seqwork/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all preflight checks for the given config.
func RunAll(_ context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Staging root", cfg.Paths.StagingRoot),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckFreeSpace("Staging free space", cfg.Paths.StagingRoot, minStagingBytes),
	}

	for _, binary := range cfg.Archive.Binaries() {
		results = append(results, CheckBinary("Archive client "+binary, binary))
	}

	names := make([]string, 0, len(cfg.WorkTypes))
	for name := range cfg.WorkTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		results = append(results, CheckWorkTypeCommand(cfg, name))
	}

	return results
}

// AllPassed reports whether every check passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
