// Package blobstore defines the wire-client interface the filesystem layers
// depend on for actual network I/O.
//
// All providers (MinIO, in-memory, …) implement the Client interface.
// Callers depend only on this package, never on a specific provider
// package. Pagination cursors are a driver concern: ListBlobs returns the
// fully drained result for the given options.
//
// Usage:
//
//	cfg := blobstore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	containers, err := store.ListContainers(ctx)
package blobstore

import "context"

// Client is the single interface all store providers must implement.
// Implementations must be safe for concurrent use: independent file handles
// share one long-lived client.
type Client interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources (connections, goroutines, etc.).
	Close() error

	// ListContainers returns all containers accessible with the configured
	// credentials.
	ListContainers(ctx context.Context) ([]ContainerInfo, error)

	// CreateContainer creates a new container.
	CreateContainer(ctx context.Context, name string) error

	// DeleteContainer removes a container.
	DeleteContainer(ctx context.Context, name string) error

	// ListBlobs returns the blobs in container that match opts. Virtual
	// directory entries (common prefixes) are included when opts.Recursive
	// is false.
	ListBlobs(ctx context.Context, container string, opts ListOptions) ([]BlobItem, error)

	// StatBlob returns metadata for the blob at key without downloading
	// its content.
	StatBlob(ctx context.Context, container, key string) (*BlobItem, error)

	// GetBlobRange downloads bytes [off, off+length) of the blob at key.
	// A negative length reads to the end of the object. A range extending
	// past the object returns only the available bytes.
	GetBlobRange(ctx context.Context, container, key string, off, length int64) ([]byte, error)

	// PutBlob uploads data as a whole object, overwriting any existing
	// blob at key.
	PutBlob(ctx context.Context, container, key string, data []byte) error

	// DeleteBlob removes the blob at key.
	DeleteBlob(ctx context.Context, container, key string) error

	// StageBlock uploads one block of a multipart upload under blockID.
	// Staged blocks are invisible until committed.
	StageBlock(ctx context.Context, container, key, blockID string, data []byte) error

	// CommitBlockList assembles previously staged blocks, in the given
	// order, into the finalized object at key.
	CommitBlockList(ctx context.Context, container, key string, blockIDs []string) error

	// AbortUpload discards any staged, uncommitted blocks for key.
	AbortUpload(ctx context.Context, container, key string) error
}
