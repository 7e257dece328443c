package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.ArchiveRoot) == "" {
		return errors.New("paths.archive_root must be set")
	}
	if !strings.HasPrefix(c.Paths.ArchiveRoot, "/") {
		return fmt.Errorf("paths.archive_root %q must be absolute", c.Paths.ArchiveRoot)
	}
	if strings.TrimSpace(c.Paths.StagingRoot) == "" {
		return errors.New("paths.staging_root must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateArchive() error {
	for key, value := range map[string]string{
		"archive.get_binary":    c.Archive.GetBinary,
		"archive.put_binary":    c.Archive.PutBinary,
		"archive.meta_binary":   c.Archive.MetaBinary,
		"archive.list_binary":   c.Archive.ListBinary,
		"archive.mkdir_binary":  c.Archive.MkdirBinary,
		"archive.remove_binary": c.Archive.RemoveBinary,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.MaxWorkers < 1 {
		return errors.New("workflow.max_workers must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

// WorkerCount returns the configured worker count clamped to the hard limit.
func (c *Config) WorkerCount() int {
	workers := c.Workflow.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > MaxWorkersLimit {
		workers = MaxWorkersLimit
	}
	return workers
}
