// Package preflight validates the environment before a batch run: staging
// and log directories, free disk space, and the external executables the
// pipeline shells out to. Checks report results instead of failing fast so
// operators see everything wrong at once.
package preflight
