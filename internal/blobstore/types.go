package blobstore

import "time"

// ContainerInfo describes a top-level container (bucket / filesystem root).
type ContainerInfo struct {
	// Name is the container name.
	Name string

	// CreatedAt is when the container was created.
	// May be zero if the backend does not expose creation time.
	CreatedAt time.Time
}

// BlobItem describes a single result of a blob listing.
type BlobItem struct {
	// Key is the full blob key within the container (e.g. "a/b/c.txt").
	// Prefix items carry a trailing delimiter.
	Key string

	// Size is the byte size of the blob. 0 for prefix items.
	Size int64

	// IsPrefix is true when the item is a common prefix from a
	// hierarchical (non-recursive) listing, not a stored blob. Prefix
	// items carry no object metadata.
	IsPrefix bool

	// ETag is the blob's entity tag, as returned by the backend.
	ETag string

	// LastModified is when the blob was last written.
	LastModified time.Time
}

// ListOptions controls how ListBlobs filters results.
type ListOptions struct {
	// Prefix restricts results to blobs whose key starts with this string.
	// Use "" to list the whole container.
	Prefix string

	// Recursive, when true, lists all blobs under the prefix without
	// grouping by virtual directories. When false (default), common
	// prefixes are returned as IsPrefix items.
	Recursive bool

	// Limit caps the number of results returned. 0 means no cap.
	Limit int

	// Marker resumes listing after the given key. Pass "" to start from
	// the beginning.
	Marker string
}
