package archive_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"seqwork/internal/archive"
	"seqwork/internal/config"
)

func writeStub(t *testing.T, dir, name, script string) string {
	t.Helper()
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}

func newStubClient(t *testing.T, stubs map[string]string) *archive.CLI {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default().Archive
	for name, script := range stubs {
		path := writeStub(t, dir, name, script)
		switch name {
		case "iget":
			cfg.GetBinary = path
		case "iput":
			cfg.PutBinary = path
		case "imeta":
			cfg.MetaBinary = path
		case "ils":
			cfg.ListBinary = path
		case "imkdir":
			cfg.MkdirBinary = path
		case "irm":
			cfg.RemoveBinary = path
		default:
			t.Fatalf("unknown stub %s", name)
		}
	}
	return archive.NewCLI(cfg)
}

func TestListParsesCollectionContents(t *testing.T) {
	client := newStubClient(t, map[string]string{
		"ils": `cat <<'LISTING'
/seq/run42:
  report_PAE1234.pdf
  sequencing_summary.txt
  C- /seq/run42/fast5_pass
LISTING`,
	})

	contents, err := client.List(context.Background(), "/seq/run42")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{
		"/seq/run42/report_PAE1234.pdf",
		"/seq/run42/sequencing_summary.txt",
		"/seq/run42/fast5_pass",
	}
	if len(contents) != len(want) {
		t.Fatalf("unexpected contents: %v", contents)
	}
	for i, entry := range want {
		if contents[i] != entry {
			t.Fatalf("entry %d: want %q, got %q", i, entry, contents[i])
		}
	}
}

func TestExistsFalseWhenPathMissing(t *testing.T) {
	client := newStubClient(t, map[string]string{
		"ils": `echo "ERROR: lsUtil: srcPath /seq/nope does not exist or user lacks access permission" >&2
exit 4`,
	})

	exists, err := client.Exists(context.Background(), "/seq/nope")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing path to report false")
	}
}

func TestExistsPropagatesOtherFailures(t *testing.T) {
	client := newStubClient(t, map[string]string{
		"ils": `echo "ERROR: connection refused" >&2
exit 2`,
	})

	_, err := client.Exists(context.Background(), "/seq/run42")
	var archErr *archive.Error
	if !errors.As(err, &archErr) {
		t.Fatalf("expected archive.Error, got %v", err)
	}
	if archErr.ExitCode != 2 || !strings.Contains(archErr.Stderr, "connection refused") {
		t.Fatalf("unexpected error detail: %#v", archErr)
	}
}

func TestIsCompleteRequiresFinalReport(t *testing.T) {
	client := newStubClient(t, map[string]string{
		"ils": `cat <<'LISTING'
/seq/run42:
  sequencing_summary.txt
LISTING`,
	})
	complete, err := client.IsComplete(context.Background(), "/seq/run42")
	if err != nil {
		t.Fatalf("IsComplete failed: %v", err)
	}
	if complete {
		t.Fatal("expected incomplete without final report")
	}

	client = newStubClient(t, map[string]string{
		"ils": `cat <<'LISTING'
/seq/run42:
  sequencing_summary.txt
  report_final_report.txt.gz
LISTING`,
	})
	complete, err = client.IsComplete(context.Background(), "/seq/run42")
	if err != nil {
		t.Fatalf("IsComplete failed: %v", err)
	}
	if !complete {
		t.Fatal("expected complete with final report present")
	}
}

func TestAnnotateAddsEachAttribute(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "imeta.log")
	client := newStubClient(t, map[string]string{
		"imeta": `echo "$@" >> ` + logPath,
	})

	err := client.Annotate(context.Background(), "/seq/analysis/articnextflow/7", map[string]string{
		"seqwork:work_type":   "articnextflow",
		"seqwork:instance_id": "7",
	})
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}

	logged, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(logged)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected one invocation per attribute, got %d", len(lines))
	}
	// Sorted attribute order keeps invocations deterministic.
	if !strings.Contains(lines[0], "seqwork:instance_id 7") {
		t.Fatalf("unexpected first invocation: %q", lines[0])
	}
	if !strings.Contains(lines[1], "seqwork:work_type articnextflow") {
		t.Fatalf("unexpected second invocation: %q", lines[1])
	}
}

func TestQuerySinceParsesCollections(t *testing.T) {
	client := newStubClient(t, map[string]string{
		"imeta": `cat <<'RESULTS'
collection: /seq/run42
----
collection: /seq/run43
RESULTS`,
	})

	found, err := client.QuerySince(context.Background(), "seqwork:annotated_at", "2026-08-01T00:00:00Z")
	if err != nil {
		t.Fatalf("QuerySince failed: %v", err)
	}
	if len(found) != 2 || found[0] != "/seq/run42" || found[1] != "/seq/run43" {
		t.Fatalf("unexpected results: %v", found)
	}
}

func TestUploadCreatesCollectionFirst(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "calls.log")
	client := newStubClient(t, map[string]string{
		"imkdir": `echo "mkdir $@" >> ` + logPath,
		"iput":   `echo "put $@" >> ` + logPath,
	})

	if err := client.Upload(context.Background(), "/tmp/out", "/seq/analysis/7"); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	logged, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(logged)), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "mkdir") || !strings.HasPrefix(lines[1], "put") {
		t.Fatalf("unexpected call order: %v", lines)
	}
}
