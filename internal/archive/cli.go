package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path"
	"sort"
	"strings"

	"seqwork/internal/config"
)

var commandContext = exec.CommandContext

// finalReportSuffix marks a sequencing run as finished writing. The
// instrument uploads it last.
const finalReportSuffix = "final_report.txt.gz"

// CLI shells out to the configured archive executables.
type CLI struct {
	get    string
	put    string
	meta   string
	list   string
	mkdir  string
	remove string
	zone   string
}

// NewCLI constructs a CLI client from archive configuration.
func NewCLI(cfg config.Archive) *CLI {
	return &CLI{
		get:    cfg.GetBinary,
		put:    cfg.PutBinary,
		meta:   cfg.MetaBinary,
		list:   cfg.ListBinary,
		mkdir:  cfg.MkdirBinary,
		remove: cfg.RemoveBinary,
		zone:   cfg.Zone,
	}
}

func (c *CLI) run(ctx context.Context, op, target, binary string, args ...string) (string, error) {
	cmd := commandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return "", fmt.Errorf("run %s: %w", binary, err)
		}
		return "", &Error{
			Op:       op,
			Path:     target,
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(stderr.String()),
		}
	}
	return stdout.String(), nil
}

// Exists reports whether the archive path is present.
func (c *CLI) Exists(ctx context.Context, remotePath string) (bool, error) {
	_, err := c.run(ctx, "list", remotePath, c.list, remotePath)
	if err == nil {
		return true, nil
	}
	var archErr *Error
	if errors.As(err, &archErr) && strings.Contains(archErr.Stderr, "does not exist") {
		return false, nil
	}
	return false, err
}

// List returns the immediate contents of a collection. The listing output
// has the collection path on the first line, data objects indented below it
// and sub-collections prefixed with "C- ".
func (c *CLI) List(ctx context.Context, remotePath string) ([]string, error) {
	out, err := c.run(ctx, "list", remotePath, c.list, remotePath)
	if err != nil {
		return nil, err
	}

	var contents []string
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		entry := strings.TrimSpace(line)
		if i == 0 || entry == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(entry, "C- "); ok {
			contents = append(contents, strings.TrimSpace(rest))
			continue
		}
		contents = append(contents, path.Join(remotePath, entry))
	}
	return contents, nil
}

// IsComplete reports whether the dataset has its final report present.
func (c *CLI) IsComplete(ctx context.Context, remotePath string) (bool, error) {
	exists, err := c.Exists(ctx, remotePath)
	if err != nil || !exists {
		return false, err
	}

	contents, err := c.List(ctx, remotePath)
	if err != nil {
		return false, err
	}
	for _, entry := range contents {
		if strings.HasSuffix(entry, finalReportSuffix) {
			return true, nil
		}
	}
	return false, nil
}

// Download copies a collection into localDir with checksum verification.
func (c *CLI) Download(ctx context.Context, remotePath, localDir string) error {
	_, err := c.run(ctx, "get", remotePath, c.get, "-f", "-K", "-r", remotePath, localDir)
	return err
}

// Upload copies a local directory into the archive, creating the destination
// collection first.
func (c *CLI) Upload(ctx context.Context, localPath, remotePath string) error {
	if _, err := c.run(ctx, "mkdir", remotePath, c.mkdir, "-p", remotePath); err != nil {
		return err
	}
	_, err := c.run(ctx, "put", remotePath, c.put, "-f", "-K", "-r", localPath, remotePath)
	return err
}

// Annotate adds attribute/value metadata to a collection, one attribute per
// invocation, in sorted attribute order.
func (c *CLI) Annotate(ctx context.Context, remotePath string, attrs map[string]string) error {
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, err := c.run(ctx, "annotate", remotePath, c.meta,
			"add", "-C", remotePath, key, attrs[key]); err != nil {
			return err
		}
	}
	return nil
}

// QuerySince returns collections whose attribute value is at or after since.
func (c *CLI) QuerySince(ctx context.Context, attribute, since string) ([]string, error) {
	args := []string{"qu"}
	if c.zone != "" {
		args = append(args, "-z", c.zone)
	}
	args = append(args, "-C", attribute, ">=", since)

	out, err := c.run(ctx, "query", attribute, c.meta, args...)
	if err != nil {
		return nil, err
	}

	var found []string
	for _, line := range strings.Split(out, "\n") {
		entry := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(entry, "collection:"); ok {
			if collection := strings.TrimSpace(rest); collection != "" {
				found = append(found, collection)
			}
		}
	}
	return found, nil
}

// Remove deletes a collection recursively.
func (c *CLI) Remove(ctx context.Context, remotePath string) error {
	_, err := c.run(ctx, "remove", remotePath, c.remove, "-r", "-f", remotePath)
	return err
}

var _ Client = (*CLI)(nil)
