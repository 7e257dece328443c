package config

const (
	defaultArchiveRoot  = "/seq/analysis"
	defaultStagingRoot  = "~/.local/share/seqwork/staging"
	defaultLogDir       = "~/.local/share/seqwork/logs"
	defaultGetBinary    = "iget"
	defaultPutBinary    = "iput"
	defaultMetaBinary   = "imeta"
	defaultListBinary   = "ils"
	defaultMkdirBinary  = "imkdir"
	defaultRemoveBinary = "irm"
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
	defaultMaxWorkers   = 4

	// MaxWorkersLimit caps the worker pool regardless of configuration. The
	// archive and the analysis host both have finite concurrent capacity.
	MaxWorkersLimit = 16
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ArchiveRoot: defaultArchiveRoot,
			StagingRoot: defaultStagingRoot,
			LogDir:      defaultLogDir,
		},
		Archive: Archive{
			GetBinary:    defaultGetBinary,
			PutBinary:    defaultPutBinary,
			MetaBinary:   defaultMetaBinary,
			ListBinary:   defaultListBinary,
			MkdirBinary:  defaultMkdirBinary,
			RemoveBinary: defaultRemoveBinary,
		},
		Workflow: Workflow{
			MaxWorkers: defaultMaxWorkers,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		WorkTypes: map[string]WorkTypeConfig{
			"empty": {Command: "true"},
		},
	}
}
