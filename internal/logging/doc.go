// Package logging builds the shared slog logger and provides attribute
// helpers plus context-derived fields used across the work queue.
//
// Loggers are constructed once at process start from configuration and
// passed down explicitly. Context carries the current instance id, work
// type, pipeline step, and correlation id so that WithContext can stamp
// them onto every record without threading attrs by hand.
package logging
