package archive

import "fmt"

// Error reports a failure from an archive client executable.
type Error struct {
	Op       string
	Path     string
	ExitCode int
	Stderr   string
}

func (e *Error) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("archive %s %s: exit %d: %s", e.Op, e.Path, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("archive %s %s: exit %d", e.Op, e.Path, e.ExitCode)
}
