// Package datalake adapts a first-generation datalake service client to the
// fsys contract. Unlike the blob projection, the service is natively
// hierarchical, so every operation is a thin passthrough that normalizes the
// service's entry shape into the shared Entry model.
package datalake

import "context"

// EntryInfo is one entry as the datalake service reports it: upper-case
// type tags and a Length field instead of a size.
type EntryInfo struct {
	Name             string
	Type             string // "FILE" or "DIRECTORY"
	Length           int64
	ModificationTime int64 // epoch milliseconds
}

// Client is the injected service collaborator. Implementations own
// credential acquisition and transport.
type Client interface {
	// List returns the entries directly under path.
	List(ctx context.Context, path string) ([]EntryInfo, error)

	// Stat returns the single entry at path.
	Stat(ctx context.Context, path string) (EntryInfo, error)

	// Glob returns the paths matching pattern, service-side.
	Glob(ctx context.Context, pattern string) ([]string, error)

	// ReadRange returns length bytes of the file at path starting at off.
	// A negative length reads to the end.
	ReadRange(ctx context.Context, path string, off, length int64) ([]byte, error)
}
