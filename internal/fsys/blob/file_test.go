package blob

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusfs/azfs/internal/blobstore/memstore"
	"github.com/nimbusfs/azfs/internal/errs"
	"github.com/nimbusfs/azfs/internal/fsys"
)

func writeFS(t *testing.T) (*FileSystem, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	require.NoError(t, store.CreateContainer(context.Background(), "data"))
	return New(store, nil), store
}

func readAllVia(t *testing.T, fs *FileSystem, path string, opts *fsys.OpenOptions) []byte {
	t.Helper()
	f, err := fs.Open(context.Background(), path, opts)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	return data
}

func TestWriteThenRead(t *testing.T) {
	fs, store := writeFS(t)
	ctx := context.Background()

	w, err := fs.Open(ctx, "data/out.txt", &fsys.OpenOptions{Mode: fsys.ModeWrite})
	require.NoError(t, err)

	n, err := w.Write([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, int64(11), w.Tell())
	assert.Equal(t, int64(11), w.Size())

	require.NoError(t, w.Close())

	assert.Equal(t, []string{"0000000"}, store.CommittedBlocks("data", "out.txt"))
	assert.Equal(t, []byte("hello world"), readAllVia(t, fs, "data/out.txt", nil))
}

func TestWriteStagesAtBlockBoundary(t *testing.T) {
	fs, store := writeFS(t)
	ctx := context.Background()

	w, err := fs.Open(ctx, "data/blocks.bin", &fsys.OpenOptions{Mode: fsys.ModeWrite, BlockSize: 4})
	require.NoError(t, err)

	_, err = w.Write([]byte("0123456789"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// Ten bytes over a four-byte block size: two full blocks plus a tail,
	// identifiers assigned in staging order.
	assert.Equal(t, []string{"0000000", "0000001", "0000002"}, store.CommittedBlocks("data", "blocks.bin"))
	assert.Equal(t, []byte("0123456789"), readAllVia(t, fs, "data/blocks.bin", nil))
}

func TestWriteLargePayloadPreservesOrder(t *testing.T) {
	fs, _ := writeFS(t)
	ctx := context.Background()

	payload := bytes.Repeat([]byte("abcdefgh"), 1024)
	w, err := fs.Open(ctx, "data/big.bin", &fsys.OpenOptions{Mode: fsys.ModeWrite, BlockSize: 512})
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, payload, readAllVia(t, fs, "data/big.bin", nil))
}

func TestForcedFlushIsTerminal(t *testing.T) {
	fs, _ := writeFS(t)
	ctx := context.Background()

	w, err := fs.Open(ctx, "data/f.txt", &fsys.OpenOptions{Mode: fsys.ModeWrite})
	require.NoError(t, err)
	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)

	require.NoError(t, w.Flush(true))

	_, err = w.Write([]byte("more"))
	assert.True(t, errs.IsInvalidState(err))

	err = w.Flush(true)
	assert.True(t, errs.IsInvalidState(err))

	// A plain flush after sealing stays silent, and close still works.
	require.NoError(t, w.Flush(false))
	require.NoError(t, w.Close())
	assert.Equal(t, []byte("abc"), readAllVia(t, fs, "data/f.txt", nil))
}

func TestFlushBelowThresholdIsNoop(t *testing.T) {
	fs, store := writeFS(t)
	ctx := context.Background()

	w, err := fs.Open(ctx, "data/f.txt", &fsys.OpenOptions{Mode: fsys.ModeWrite, BlockSize: 16})
	require.NoError(t, err)
	_, err = w.Write([]byte("tiny"))
	require.NoError(t, err)

	require.NoError(t, w.Flush(false))
	assert.Nil(t, store.CommittedBlocks("data", "f.txt"))
	require.NoError(t, w.Close())
	assert.Equal(t, []string{"0000000"}, store.CommittedBlocks("data", "f.txt"))
}

func TestWriteOverwritesExistingBlob(t *testing.T) {
	fs, store := writeFS(t)
	ctx := context.Background()
	store.Seed("data", "old.txt", []byte("previous content"))

	w, err := fs.Open(ctx, "data/old.txt", &fsys.OpenOptions{Mode: fsys.ModeWrite})
	require.NoError(t, err)
	_, err = w.Write([]byte("new"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, []byte("new"), readAllVia(t, fs, "data/old.txt", nil))
}

func TestWriteEmptyFile(t *testing.T) {
	fs, _ := writeFS(t)
	ctx := context.Background()

	w, err := fs.Open(ctx, "data/empty.txt", &fsys.OpenOptions{Mode: fsys.ModeWrite})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	size, err := fs.Size(ctx, "data/empty.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)
}

func TestCloseIsIdempotent(t *testing.T) {
	fs, _ := writeFS(t)
	ctx := context.Background()

	w, err := fs.Open(ctx, "data/x.txt", &fsys.OpenOptions{Mode: fsys.ModeWrite})
	require.NoError(t, err)
	_, err = w.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("y"))
	assert.True(t, errs.IsInvalidState(err))
	err = w.Flush(false)
	assert.True(t, errs.IsInvalidState(err))
}

func TestCloseMakesWriteVisibleInListings(t *testing.T) {
	fs, _ := writeFS(t)
	ctx := context.Background()

	// Prime both the container listing and the (missing) file lookup.
	_, err := fs.Ls(ctx, "data")
	require.NoError(t, err)
	assert.False(t, fs.Exists(ctx, "data/new.txt"))

	w, err := fs.Open(ctx, "data/new.txt", &fsys.OpenOptions{Mode: fsys.ModeWrite})
	require.NoError(t, err)
	_, err = w.Write([]byte("fresh"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.True(t, fs.Exists(ctx, "data/new.txt"))
}

func TestModeMismatch(t *testing.T) {
	fs, store := writeFS(t)
	ctx := context.Background()
	store.Seed("data", "r.txt", []byte("read me"))

	r, err := fs.Open(ctx, "data/r.txt", nil)
	require.NoError(t, err)
	defer r.Close()
	_, err = r.Write([]byte("nope"))
	assert.True(t, errs.IsInvalidInput(err))

	w, err := fs.Open(ctx, "data/w.txt", &fsys.OpenOptions{Mode: fsys.ModeWrite})
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = w.Read(buf)
	assert.True(t, errs.IsInvalidInput(err))
	_, err = w.Seek(0, io.SeekStart)
	assert.True(t, errs.IsInvalidInput(err))
	require.NoError(t, w.Close())
}

func TestOpenReadErrors(t *testing.T) {
	fs, store := writeFS(t)
	ctx := context.Background()
	store.Seed("data", "dir/child.txt", []byte("x"))

	_, err := fs.Open(ctx, "data/ghost.txt", nil)
	assert.True(t, errs.IsNotFound(err))

	_, err = fs.Open(ctx, "data/dir", nil)
	assert.True(t, errs.IsInvalidInput(err))

	_, err = fs.Open(ctx, "data", nil)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestSeekAndRead(t *testing.T) {
	fs, store := writeFS(t)
	ctx := context.Background()
	store.Seed("data", "s.txt", []byte("0123456789"))

	f, err := fs.Open(ctx, "data/s.txt", nil)
	require.NoError(t, err)
	defer f.Close()

	pos, err := f.Seek(4, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(4), pos)
	assert.Equal(t, int64(4), f.Tell())

	buf := make([]byte, 3)
	n, err := f.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "456", string(buf[:n]))

	pos, err = f.Seek(-2, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(5), pos)

	pos, err = f.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(10), pos)

	pos, err = f.Seek(-3, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(7), pos)
	rest, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "789", string(rest))

	// Past the end is allowed; the next read is EOF.
	_, err = f.Seek(5, io.SeekEnd)
	require.NoError(t, err)
	_, err = f.Read(buf)
	assert.ErrorIs(t, err, io.EOF)

	_, err = f.Seek(-1, io.SeekStart)
	assert.True(t, errs.IsInvalidInput(err))
	_, err = f.Seek(0, 42)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestReadCachePolicies(t *testing.T) {
	fs, store := writeFS(t)
	content := []byte(strings.Repeat("the quick brown fox ", 64))
	store.Seed("data", "c.txt", content)

	policies := []fsys.CachePolicy{fsys.CacheNone, fsys.CacheReadahead, fsys.CacheBytes, fsys.CacheBlock}
	for _, policy := range policies {
		t.Run(string(policy), func(t *testing.T) {
			got := readAllVia(t, fs, "data/c.txt", &fsys.OpenOptions{Cache: policy, BlockSize: 64})
			assert.Equal(t, content, got)
		})
	}
}

func TestReadAfterSeekBackwards(t *testing.T) {
	fs, store := writeFS(t)
	store.Seed("data", "b.txt", []byte("abcdefghij"))

	for _, policy := range []fsys.CachePolicy{fsys.CacheReadahead, fsys.CacheBlock} {
		t.Run(string(policy), func(t *testing.T) {
			f, err := fs.Open(context.Background(), "data/b.txt", &fsys.OpenOptions{Cache: policy, BlockSize: 4})
			require.NoError(t, err)
			defer f.Close()

			buf := make([]byte, 4)
			_, err = f.Seek(6, io.SeekStart)
			require.NoError(t, err)
			n, err := f.Read(buf)
			require.NoError(t, err)
			assert.Equal(t, "ghij", string(buf[:n]))

			_, err = f.Seek(0, io.SeekStart)
			require.NoError(t, err)
			n, err = f.Read(buf)
			require.NoError(t, err)
			assert.Equal(t, "abcd", string(buf[:n]))
		})
	}
}
