package testsupport

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sync"

	"seqwork/internal/archive"
)

// FakeArchive is an in-memory archive.Client for tests. Collections maps a
// collection path to entry basenames; Download materializes those entries as
// empty files the way the real client materializes a collection.
type FakeArchive struct {
	mu          sync.Mutex
	Collections map[string][]string
	Metadata    map[string]map[string]string
	Uploads     map[string]string
	Removed     []string
	Errs        map[string]error
}

// NewFakeArchive returns an empty fake archive.
func NewFakeArchive() *FakeArchive {
	return &FakeArchive{
		Collections: map[string][]string{},
		Metadata:    map[string]map[string]string{},
		Uploads:     map[string]string{},
		Errs:        map[string]error{},
	}
}

// AddCollection registers a collection and its entry basenames.
func (f *FakeArchive) AddCollection(collection string, entries ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Collections[collection] = append(f.Collections[collection], entries...)
}

// FailWith injects an error for one operation: "download", "upload",
// "annotate", "remove", "list" or "query".
func (f *FakeArchive) FailWith(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errs[op] = err
}

func (f *FakeArchive) Exists(_ context.Context, collection string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["list"]; err != nil {
		return false, err
	}
	_, ok := f.Collections[collection]
	return ok, nil
}

func (f *FakeArchive) List(_ context.Context, collection string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["list"]; err != nil {
		return nil, err
	}
	entries := f.Collections[collection]
	listed := make([]string, 0, len(entries))
	for _, entry := range entries {
		listed = append(listed, path.Join(collection, entry))
	}
	return listed, nil
}

func (f *FakeArchive) IsComplete(ctx context.Context, collection string) (bool, error) {
	entries, err := f.List(ctx, collection)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if path.Base(entry) == "final_report.txt.gz" {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeArchive) Download(_ context.Context, remotePath, localDir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["download"]; err != nil {
		return err
	}
	target := filepath.Join(localDir, path.Base(remotePath))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return err
	}
	for _, entry := range f.Collections[remotePath] {
		if err := os.WriteFile(filepath.Join(target, entry), nil, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (f *FakeArchive) Upload(_ context.Context, localPath, remotePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["upload"]; err != nil {
		return err
	}
	f.Uploads[remotePath] = localPath
	if _, ok := f.Collections[remotePath]; !ok {
		f.Collections[remotePath] = nil
	}
	return nil
}

func (f *FakeArchive) Annotate(_ context.Context, collection string, attrs map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["annotate"]; err != nil {
		return err
	}
	existing := f.Metadata[collection]
	if existing == nil {
		existing = map[string]string{}
		f.Metadata[collection] = existing
	}
	for key, value := range attrs {
		existing[key] = value
	}
	return nil
}

func (f *FakeArchive) QuerySince(_ context.Context, attribute, since string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["query"]; err != nil {
		return nil, err
	}
	var found []string
	for collection, attrs := range f.Metadata {
		if value, ok := attrs[attribute]; ok && value >= since {
			found = append(found, collection)
		}
	}
	return found, nil
}

func (f *FakeArchive) Remove(_ context.Context, collection string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["remove"]; err != nil {
		return err
	}
	delete(f.Collections, collection)
	f.Removed = append(f.Removed, collection)
	return nil
}

var _ archive.Client = (*FakeArchive)(nil)
