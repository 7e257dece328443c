package archive

import "context"

// Client defines the archive operations the pipeline depends on.
type Client interface {
	// Exists reports whether the archive path is present.
	Exists(ctx context.Context, path string) (bool, error)
	// List returns the immediate contents of an archive collection as
	// absolute archive paths.
	List(ctx context.Context, path string) ([]string, error)
	// IsComplete reports whether the dataset at path has finished writing
	// and is ready to process.
	IsComplete(ctx context.Context, path string) (bool, error)
	// Download copies an archive collection into localDir recursively.
	Download(ctx context.Context, remotePath, localDir string) error
	// Upload copies a local directory into the archive recursively, creating
	// the destination collection as needed.
	Upload(ctx context.Context, localPath, remotePath string) error
	// Annotate attaches attribute/value metadata to an archive collection.
	Annotate(ctx context.Context, path string, attrs map[string]string) error
	// QuerySince returns collections whose attribute value is at or after
	// since. Values compare lexically, so timestamp attributes must be
	// RFC 3339 UTC.
	QuerySince(ctx context.Context, attribute, since string) ([]string, error)
	// Remove deletes an archive collection recursively.
	Remove(ctx context.Context, path string) error
}
