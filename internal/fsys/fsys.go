// Package fsys defines the hierarchical-filesystem capability interface that
// every storage generation implements, together with the shared path codec,
// glob matcher and listing entry model.
//
// The two generations (Datalake Gen1 passthrough, Blob/Gen2 projection) share
// no behavior, only this contract. Callers depend on this package, never on
// a specific generation package.
//
// Usage:
//
//	fs := blob.New(store, nil)
//	entries, err := fs.Ls(ctx, "container/dir/")
package fsys

import (
	"context"
	"io"
)

// NoDepthLimit disables the recursion cap on walk/find operations.
const NoDepthLimit = -1

// Mode selects the direction of a file handle.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

// CachePolicy selects the read-side caching strategy chosen at open time.
type CachePolicy string

const (
	// CacheNone issues a fresh range fetch for every read.
	CacheNone CachePolicy = "none"
	// CacheReadahead fetches one block beyond the requested range to
	// satisfy sequential access. The default.
	CacheReadahead CachePolicy = "readahead"
	// CacheBytes materializes the whole object on first read.
	CacheBytes CachePolicy = "bytes"
	// CacheBlock keeps the most recent block-aligned fetch.
	CacheBlock CachePolicy = "blockcache"
)

// OpenOptions configures a file handle at open time. The zero value opens
// for reading with the filesystem's default block size and readahead cache.
type OpenOptions struct {
	Mode      Mode
	BlockSize int64
	Cache     CachePolicy
}

// File is a seekable handle over a flat remote object. Read handles satisfy
// reads via range fetches through the selected cache policy; write handles
// buffer and stage fixed-size blocks, committing the block list on close.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer

	// Tell returns the current cursor position.
	Tell() int64

	// Size returns the object's total size. For write handles this is the
	// number of bytes written so far.
	Size() int64

	// Flush stages the current buffer as a block. With force set it also
	// commits the accumulated block list, sealing the object; the handle
	// can then only be closed.
	Flush(force bool) error
}

// WalkFunc receives one directory level during a walk: the directory path,
// its child directories and its child files. Returning an error stops the
// walk.
type WalkFunc func(dir string, dirs, files []Entry) error

// FindOptions controls Find. A zero MaxDepth means no depth limit.
type FindOptions struct {
	MaxDepth int
	WithDirs bool
}

// FileSystem is the capability contract shared by all storage generations.
type FileSystem interface {
	// Ls lists the entries at path. Listing a missing non-root path
	// returns a not-found error; the account root lists containers.
	Ls(ctx context.Context, path string) ([]Entry, error)

	// Info returns the entry at path, or a not-found error.
	Info(ctx context.Context, path string) (Entry, error)

	// Glob returns the sorted paths matching a wildcard pattern. A pattern
	// without wildcards degrades to an existence check: zero matches is
	// success, not an error.
	Glob(ctx context.Context, pattern string) ([]string, error)

	// Exists reports whether an entry exists at path. Any failure,
	// transient ones included, reads as false.
	Exists(ctx context.Context, path string) bool

	// Open returns a file handle for path. A nil opts opens for reading.
	Open(ctx context.Context, path string, opts *OpenOptions) (File, error)
}
