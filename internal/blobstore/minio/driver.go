// Package minio provides a MinIO implementation of blobstore.Client.
//
// Usage:
//
//	cfg := blobstore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	items, err := store.ListBlobs(ctx, "data", blobstore.ListOptions{Prefix: "logs/"})
//
// Azure-style block staging is mapped onto the S3 multipart protocol: the
// driver opens one multipart session per key on the first StageBlock call and
// resolves block IDs to part numbers at commit time.
package minio

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/nimbusfs/azfs/internal/blobstore"
	"github.com/nimbusfs/azfs/internal/errs"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Driver is a MinIO implementation of blobstore.Client.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client *miniogo.Client
	core   *miniogo.Core

	mu       sync.Mutex
	sessions map[string]*uploadSession
}

// uploadSession tracks one in-flight multipart upload for a key.
type uploadSession struct {
	uploadID string
	parts    map[string]miniogo.CompletePart // staged parts by block ID
	next     int                             // next part number, 1-based
}

// New connects to MinIO using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *blobstore.Config) (*Driver, error) {
	core, err := miniogo.NewCore(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create minio client", err)
	}

	d := &Driver{
		client:   core.Client,
		core:     core,
		sessions: make(map[string]*uploadSession),
	}

	if err := d.Ping(ctx); err != nil {
		return nil, err
	}

	return d, nil
}

// --- blobstore.Client implementation ---

// Ping verifies the MinIO server is reachable by listing buckets.
func (d *Driver) Ping(ctx context.Context) error {
	_, err := d.client.ListBuckets(ctx)
	if err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close is a no-op for MinIO; the SDK client holds no persistent connections.
func (d *Driver) Close() error {
	return nil
}

// ListContainers returns all buckets accessible with the configured credentials.
func (d *Driver) ListContainers(ctx context.Context) ([]blobstore.ContainerInfo, error) {
	raw, err := d.client.ListBuckets(ctx)
	if err != nil {
		return nil, mapError(err, "failed to list containers")
	}

	containers := make([]blobstore.ContainerInfo, len(raw))
	for i, b := range raw {
		containers[i] = blobstore.ContainerInfo{
			Name:      b.Name,
			CreatedAt: b.CreationDate,
		}
	}
	return containers, nil
}

// CreateContainer creates a new bucket.
func (d *Driver) CreateContainer(ctx context.Context, name string) error {
	err := d.client.MakeBucket(ctx, name, miniogo.MakeBucketOptions{})
	if err != nil {
		return mapError(err, "failed to create container")
	}
	return nil
}

// DeleteContainer removes a bucket.
func (d *Driver) DeleteContainer(ctx context.Context, name string) error {
	err := d.client.RemoveBucket(ctx, name)
	if err != nil {
		return mapError(err, "failed to delete container")
	}
	return nil
}

// ListBlobs returns the blobs in container that match opts.
func (d *Driver) ListBlobs(ctx context.Context, container string, opts blobstore.ListOptions) ([]blobstore.BlobItem, error) {
	listOpts := miniogo.ListObjectsOptions{
		Prefix:     opts.Prefix,
		Recursive:  opts.Recursive,
		StartAfter: opts.Marker,
	}

	var results []blobstore.BlobItem
	count := 0

	for obj := range d.client.ListObjects(ctx, container, listOpts) {
		if obj.Err != nil {
			return nil, mapError(obj.Err, "failed to list blobs")
		}

		results = append(results, blobstore.BlobItem{
			Key:          obj.Key,
			Size:         obj.Size,
			IsPrefix:     strings.HasSuffix(obj.Key, "/") && obj.Size == 0 && obj.ETag == "",
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})

		count++
		if opts.Limit > 0 && count >= opts.Limit {
			break
		}
	}

	return results, nil
}

// StatBlob returns metadata for the blob at key without downloading its content.
func (d *Driver) StatBlob(ctx context.Context, container, key string) (*blobstore.BlobItem, error) {
	stat, err := d.client.StatObject(ctx, container, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to stat blob")
	}

	return &blobstore.BlobItem{
		Key:          stat.Key,
		Size:         stat.Size,
		ETag:         stat.ETag,
		LastModified: stat.LastModified,
	}, nil
}

// GetBlobRange downloads bytes [off, off+length) of the blob at key.
func (d *Driver) GetBlobRange(ctx context.Context, container, key string, off, length int64) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}

	getOpts := miniogo.GetObjectOptions{}
	if length < 0 {
		if off > 0 {
			if err := getOpts.SetRange(off, 0); err != nil {
				return nil, errs.Wrap(errs.ErrKindInvalidInput, "bad byte range", err)
			}
		}
	} else {
		if err := getOpts.SetRange(off, off+length-1); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "bad byte range", err)
		}
	}

	obj, err := d.client.GetObject(ctx, container, key, getOpts)
	if err != nil {
		return nil, mapError(err, "failed to get blob")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		// A start offset at or past the object end is not an error for
		// callers: the available bytes are simply exhausted.
		if miniogo.ToErrorResponse(err).Code == "InvalidRange" {
			return nil, nil
		}
		return nil, mapError(err, "failed to read blob range")
	}
	return data, nil
}

// PutBlob uploads data as a whole object, overwriting any existing blob.
func (d *Driver) PutBlob(ctx context.Context, container, key string, data []byte) error {
	_, err := d.client.PutObject(ctx, container, key, bytes.NewReader(data), int64(len(data)), miniogo.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return mapError(err, "failed to put blob")
	}
	return nil
}

// DeleteBlob removes the blob at key.
func (d *Driver) DeleteBlob(ctx context.Context, container, key string) error {
	err := d.client.RemoveObject(ctx, container, key, miniogo.RemoveObjectOptions{})
	if err != nil {
		return mapError(err, "failed to delete blob")
	}
	return nil
}

// StageBlock uploads one block under blockID, opening a multipart session
// for the key on the first call.
func (d *Driver) StageBlock(ctx context.Context, container, key, blockID string, data []byte) error {
	sess, err := d.session(ctx, container, key)
	if err != nil {
		return err
	}

	d.mu.Lock()
	partID := sess.next
	sess.next++
	d.mu.Unlock()

	part, err := d.core.PutObjectPart(ctx, container, key, sess.uploadID, partID,
		bytes.NewReader(data), int64(len(data)), miniogo.PutObjectPartOptions{})
	if err != nil {
		return mapError(err, "failed to stage block")
	}

	d.mu.Lock()
	sess.parts[blockID] = miniogo.CompletePart{PartNumber: part.PartNumber, ETag: part.ETag}
	d.mu.Unlock()
	return nil
}

// CommitBlockList assembles the staged blocks, in the given order, into the
// finalized object at key.
func (d *Driver) CommitBlockList(ctx context.Context, container, key string, blockIDs []string) error {
	d.mu.Lock()
	sess, ok := d.sessions[sessionKey(container, key)]
	if ok {
		delete(d.sessions, sessionKey(container, key))
	}
	d.mu.Unlock()

	if !ok {
		if len(blockIDs) == 0 {
			// Committing an empty block list creates an empty object.
			return d.PutBlob(ctx, container, key, nil)
		}
		return errs.Newf(errs.ErrKindInvalidState, "no staged blocks for %s/%s", container, key)
	}

	parts := make([]miniogo.CompletePart, 0, len(blockIDs))
	for _, id := range blockIDs {
		part, ok := sess.parts[id]
		if !ok {
			return errs.Newf(errs.ErrKindInvalidState, "block %q was never staged for %s/%s", id, container, key)
		}
		parts = append(parts, part)
	}

	_, err := d.core.CompleteMultipartUpload(ctx, container, key, sess.uploadID, parts, miniogo.PutObjectOptions{})
	if err != nil {
		return mapError(err, "failed to commit block list")
	}
	return nil
}

// AbortUpload discards any staged, uncommitted blocks for key.
func (d *Driver) AbortUpload(ctx context.Context, container, key string) error {
	d.mu.Lock()
	sess, ok := d.sessions[sessionKey(container, key)]
	if ok {
		delete(d.sessions, sessionKey(container, key))
	}
	d.mu.Unlock()

	if !ok {
		return nil
	}
	if err := d.core.AbortMultipartUpload(ctx, container, key, sess.uploadID); err != nil {
		return mapError(err, "failed to abort upload")
	}
	return nil
}

// session returns the multipart session for key, starting one if needed.
func (d *Driver) session(ctx context.Context, container, key string) (*uploadSession, error) {
	d.mu.Lock()
	sess, ok := d.sessions[sessionKey(container, key)]
	d.mu.Unlock()
	if ok {
		return sess, nil
	}

	uploadID, err := d.core.NewMultipartUpload(ctx, container, key, miniogo.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return nil, mapError(err, "failed to start multipart upload")
	}

	sess, stored := d.storeSession(container, key, uploadID)
	if !stored {
		// Another goroutine opened a session for this key while we were
		// talking to the server. Keep theirs and discard ours.
		if err := d.core.AbortMultipartUpload(ctx, container, key, uploadID); err != nil {
			return nil, mapError(err, "failed to abort duplicate multipart upload")
		}
	}
	return sess, nil
}

// storeSession records a new session for key unless one appeared since the
// caller's lookup. It returns the winning session and whether ours was kept.
func (d *Driver) storeSession(container, key, uploadID string) (*uploadSession, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if raced, ok := d.sessions[sessionKey(container, key)]; ok {
		return raced, false
	}
	sess := &uploadSession{
		uploadID: uploadID,
		parts:    make(map[string]miniogo.CompletePart),
		next:     1,
	}
	d.sessions[sessionKey(container, key)] = sess
	return sess, true
}

func sessionKey(container, key string) string {
	return container + "/" + key
}
