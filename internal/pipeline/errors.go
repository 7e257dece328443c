package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrClaimLost means another runner claimed the instance first. Callers
	// skip the instance silently.
	ErrClaimLost = errors.New("claim lost")
	// ErrAlreadyStarted means the instance was found Started before any
	// claim attempt. A previous runner died without transitioning it, so it
	// needs operator attention and is left untouched.
	ErrAlreadyStarted = errors.New("instance already started")
	// ErrStepFailed marks a pipeline step failure recorded on the instance.
	ErrStepFailed = errors.New("step failed")
	// ErrStore marks a work database failure.
	ErrStore = errors.New("store failure")
)

// Wrap builds an error message that includes step context while tagging it
// with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, step, operation, message string, err error) error {
	detail := buildDetail(step, operation, message)
	if marker == nil {
		marker = ErrStepFailed
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(step, operation, message string) string {
	parts := make([]string, 0, 3)
	if step = strings.TrimSpace(step); step != "" {
		parts = append(parts, step)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
