package config

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

var keyFolder = cases.Fold()

func (c *Config) normalize() error {
	var err error
	if c.Paths.StagingRoot, err = expandPath(c.Paths.StagingRoot); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	c.Paths.ArchiveRoot = strings.TrimRight(strings.TrimSpace(c.Paths.ArchiveRoot), "/")
	if c.Paths.ArchiveRoot == "" {
		c.Paths.ArchiveRoot = "/"
	}

	// Work type section names are matched case-insensitively against the
	// controlled vocabulary, so fold the keys once here.
	if len(c.WorkTypes) > 0 {
		folded := make(map[string]WorkTypeConfig, len(c.WorkTypes))
		for name, wt := range c.WorkTypes {
			key := keyFolder.String(strings.TrimSpace(name))
			if _, dup := folded[key]; dup {
				return fmt.Errorf("worktypes: duplicate section %q after case folding", name)
			}
			folded[key] = wt
		}
		c.WorkTypes = folded
	}

	return nil
}
