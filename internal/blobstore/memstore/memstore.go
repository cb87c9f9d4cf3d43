// Package memstore provides an in-memory implementation of blobstore.Client.
//
// It mirrors the remote store's semantics closely enough to back the
// filesystem test suites and the runnable examples: sorted keys, delimiter
// grouping into common prefixes, ranged reads clamped to the object size,
// and staged-block upload sessions that stay invisible until committed.
package memstore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nimbusfs/azfs/internal/blobstore"
	"github.com/nimbusfs/azfs/internal/errs"
)

const delimiter = "/"

type blobData struct {
	data     []byte
	etag     string
	modified time.Time
}

type containerData struct {
	created time.Time
	blobs   map[string]blobData
}

type uploadData struct {
	blocks map[string][]byte
}

// Store is an in-memory blobstore.Client. Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	containers map[string]*containerData
	uploads    map[string]*uploadData
	committed  map[string][]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		containers: make(map[string]*containerData),
		uploads:    make(map[string]*uploadData),
		committed:  make(map[string][]string),
	}
}

// Seed creates the container if needed and stores data at key. Test helper.
func (s *Store) Seed(container, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[container]
	if !ok {
		c = &containerData{created: time.Now(), blobs: make(map[string]blobData)}
		s.containers[container] = c
	}
	c.blobs[key] = newBlob(data)
}

// CommittedBlocks returns the block IDs from the most recent CommitBlockList
// for key, in commit order. Test helper.
func (s *Store) CommittedBlocks(container, key string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed[container+delimiter+key]
}

func newBlob(data []byte) blobData {
	sum := md5.Sum(data)
	return blobData{
		data:     data,
		etag:     hex.EncodeToString(sum[:]),
		modified: time.Now(),
	}
}

// --- blobstore.Client implementation ---

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) ListContainers(_ context.Context) ([]blobstore.ContainerInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.containers))
	for name := range s.containers {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]blobstore.ContainerInfo, len(names))
	for i, name := range names {
		out[i] = blobstore.ContainerInfo{Name: name, CreatedAt: s.containers[name].created}
	}
	return out, nil
}

func (s *Store) CreateContainer(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[name]; ok {
		return errs.Newf(errs.ErrKindInvalidInput, "container %q already exists", name)
	}
	s.containers[name] = &containerData{created: time.Now(), blobs: make(map[string]blobData)}
	return nil
}

func (s *Store) DeleteContainer(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[name]; !ok {
		return errs.Newf(errs.ErrKindNotFound, "container %q does not exist", name)
	}
	delete(s.containers, name)
	return nil
}

func (s *Store) ListBlobs(_ context.Context, container string, opts blobstore.ListOptions) ([]blobstore.BlobItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.containers[container]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "container %q does not exist", container)
	}

	keys := make([]string, 0, len(c.blobs))
	for key := range c.blobs {
		if strings.HasPrefix(key, opts.Prefix) && key > opts.Marker {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var items []blobstore.BlobItem
	seenPrefix := make(map[string]bool)

	for _, key := range keys {
		if opts.Recursive {
			b := c.blobs[key]
			items = append(items, blobstore.BlobItem{
				Key: key, Size: int64(len(b.data)), ETag: b.etag, LastModified: b.modified,
			})
		} else {
			rest := key[len(opts.Prefix):]
			if i := strings.Index(rest, delimiter); i >= 0 {
				// Collapse deeper keys into a common-prefix item.
				p := opts.Prefix + rest[:i+1]
				if !seenPrefix[p] {
					seenPrefix[p] = true
					items = append(items, blobstore.BlobItem{Key: p, IsPrefix: true})
				}
			} else {
				b := c.blobs[key]
				items = append(items, blobstore.BlobItem{
					Key: key, Size: int64(len(b.data)), ETag: b.etag, LastModified: b.modified,
				})
			}
		}
		if opts.Limit > 0 && len(items) >= opts.Limit {
			break
		}
	}

	return items, nil
}

func (s *Store) StatBlob(_ context.Context, container, key string) (*blobstore.BlobItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, err := s.blob(container, key)
	if err != nil {
		return nil, err
	}
	return &blobstore.BlobItem{
		Key: key, Size: int64(len(b.data)), ETag: b.etag, LastModified: b.modified,
	}, nil
}

func (s *Store) GetBlobRange(_ context.Context, container, key string, off, length int64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, err := s.blob(container, key)
	if err != nil {
		return nil, err
	}

	size := int64(len(b.data))
	if off < 0 {
		return nil, errs.New(errs.ErrKindInvalidInput, "negative range offset")
	}
	if off >= size {
		return nil, nil
	}
	end := size
	if length >= 0 && off+length < size {
		end = off + length
	}

	out := make([]byte, end-off)
	copy(out, b.data[off:end])
	return out, nil
}

func (s *Store) PutBlob(_ context.Context, container, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.containers[container]
	if !ok {
		return errs.Newf(errs.ErrKindNotFound, "container %q does not exist", container)
	}
	c.blobs[key] = newBlob(append([]byte(nil), data...))
	return nil
}

func (s *Store) DeleteBlob(_ context.Context, container, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.containers[container]
	if !ok {
		return errs.Newf(errs.ErrKindNotFound, "container %q does not exist", container)
	}
	if _, ok := c.blobs[key]; !ok {
		return errs.Newf(errs.ErrKindNotFound, "blob %q does not exist", key)
	}
	delete(c.blobs, key)
	return nil
}

func (s *Store) StageBlock(_ context.Context, container, key, blockID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.containers[container]; !ok {
		return errs.Newf(errs.ErrKindNotFound, "container %q does not exist", container)
	}

	id := container + delimiter + key
	up, ok := s.uploads[id]
	if !ok {
		up = &uploadData{blocks: make(map[string][]byte)}
		s.uploads[id] = up
	}
	up.blocks[blockID] = append([]byte(nil), data...)
	return nil
}

func (s *Store) CommitBlockList(_ context.Context, container, key string, blockIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.containers[container]
	if !ok {
		return errs.Newf(errs.ErrKindNotFound, "container %q does not exist", container)
	}

	id := container + delimiter + key
	up, ok := s.uploads[id]
	if !ok {
		if len(blockIDs) == 0 {
			// Committing an empty block list creates an empty blob.
			c.blobs[key] = newBlob(nil)
			s.committed[id] = []string{}
			return nil
		}
		return errs.Newf(errs.ErrKindInvalidState, "no staged blocks for %q", id)
	}

	var data []byte
	for _, blockID := range blockIDs {
		block, ok := up.blocks[blockID]
		if !ok {
			return errs.Newf(errs.ErrKindInvalidState, "block %q was never staged for %q", blockID, id)
		}
		data = append(data, block...)
	}

	c.blobs[key] = newBlob(data)
	s.committed[id] = append([]string(nil), blockIDs...)
	delete(s.uploads, id)
	return nil
}

func (s *Store) AbortUpload(_ context.Context, container, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.uploads, container+delimiter+key)
	return nil
}

// blob looks up a stored blob. Callers must hold at least a read lock.
func (s *Store) blob(container, key string) (blobData, error) {
	c, ok := s.containers[container]
	if !ok {
		return blobData{}, errs.Newf(errs.ErrKindNotFound, "container %q does not exist", container)
	}
	b, ok := c.blobs[key]
	if !ok {
		return blobData{}, errs.Newf(errs.ErrKindNotFound, "blob %q does not exist", key)
	}
	return b, nil
}

// Compile-time interface check.
var _ blobstore.Client = (*Store)(nil)
