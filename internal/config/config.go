package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	ArchiveRoot string `toml:"archive_root"`
	StagingRoot string `toml:"staging_root"`
	LogDir      string `toml:"log_dir"`
}

// Archive contains configuration for the archive client executables.
type Archive struct {
	GetBinary    string `toml:"get_binary"`
	PutBinary    string `toml:"put_binary"`
	MetaBinary   string `toml:"meta_binary"`
	ListBinary   string `toml:"list_binary"`
	MkdirBinary  string `toml:"mkdir_binary"`
	RemoveBinary string `toml:"remove_binary"`
	Zone         string `toml:"zone"`
}

// Binaries returns every configured archive executable name.
func (a Archive) Binaries() []string {
	return []string{
		a.GetBinary, a.PutBinary, a.MetaBinary,
		a.ListBinary, a.MkdirBinary, a.RemoveBinary,
	}
}

// Workflow contains configuration for batch execution.
type Workflow struct {
	MaxWorkers int `toml:"max_workers"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// WorkTypeConfig describes how to invoke the analysis for one work type.
type WorkTypeConfig struct {
	Command string `toml:"command"`
}

// Config encapsulates all configuration values for seqwork.
//
// Configuration sections by subsystem:
//   - Paths: archive root, staging root, and log directory
//   - Archive: archive client executables and zone
//   - Workflow: worker pool bounds
//   - Logging: log format and level
//   - WorkTypes: per-work-type analysis commands, keyed by canonical name
type Config struct {
	Paths     Paths                     `toml:"paths"`
	Archive   Archive                   `toml:"archive"`
	Workflow  Workflow                  `toml:"workflow"`
	Logging   Logging                   `toml:"logging"`
	WorkTypes map[string]WorkTypeConfig `toml:"worktypes"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/seqwork/config.toml")
}

// SampleConfig returns the embedded sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("seqwork.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories required for a batch run.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingRoot, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the work instance database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.LogDir, "seqwork.db")
}

// WorkTypeCommand returns the configured analysis command for a canonical
// work type name, if any.
func (c *Config) WorkTypeCommand(name string) (string, bool) {
	wt, ok := c.WorkTypes[name]
	if !ok {
		return "", false
	}
	command := strings.TrimSpace(wt.Command)
	return command, command != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && pathValue[1] == '/' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
