package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusfs/azfs/internal/blobstore"
	"github.com/nimbusfs/azfs/internal/errs"
)

func TestContainerLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateContainer(ctx, "c1"))
	err := s.CreateContainer(ctx, "c1")
	assert.True(t, errs.IsInvalidInput(err))

	containers, err := s.ListContainers(ctx)
	require.NoError(t, err)
	require.Len(t, containers, 1)
	assert.Equal(t, "c1", containers[0].Name)

	require.NoError(t, s.DeleteContainer(ctx, "c1"))
	err = s.DeleteContainer(ctx, "c1")
	assert.True(t, errs.IsNotFound(err))
}

func TestListBlobsDelimiterGrouping(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Seed("c", "a/one", []byte("1"))
	s.Seed("c", "a/two", []byte("2"))
	s.Seed("c", "b", []byte("3"))

	items, err := s.ListBlobs(ctx, "c", blobstore.ListOptions{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a/", items[0].Key)
	assert.True(t, items[0].IsPrefix)
	assert.Equal(t, "b", items[1].Key)
	assert.False(t, items[1].IsPrefix)

	items, err = s.ListBlobs(ctx, "c", blobstore.ListOptions{Prefix: "a/"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a/one", items[0].Key)
	assert.Equal(t, "a/two", items[1].Key)
}

func TestListBlobsRecursive(t *testing.T) {
	s := New()
	s.Seed("c", "a/one", []byte("1"))
	s.Seed("c", "a/b/two", []byte("22"))

	items, err := s.ListBlobs(context.Background(), "c", blobstore.ListOptions{Recursive: true})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a/b/two", items[0].Key)
	assert.Equal(t, int64(2), items[0].Size)
	assert.Equal(t, "a/one", items[1].Key)
}

func TestListBlobsMarkerAndLimit(t *testing.T) {
	s := New()
	s.Seed("c", "a", []byte("1"))
	s.Seed("c", "b", []byte("2"))
	s.Seed("c", "d", []byte("3"))

	items, err := s.ListBlobs(context.Background(), "c", blobstore.ListOptions{Marker: "a", Limit: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].Key)
}

func TestGetBlobRangeClamping(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Seed("c", "k", []byte("0123456789"))

	data, err := s.GetBlobRange(ctx, "c", "k", 2, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("2345"), data)

	// Negative length reads to the end.
	data, err = s.GetBlobRange(ctx, "c", "k", 7, -1)
	require.NoError(t, err)
	assert.Equal(t, []byte("789"), data)

	// Length past the end is clamped.
	data, err = s.GetBlobRange(ctx, "c", "k", 8, 100)
	require.NoError(t, err)
	assert.Equal(t, []byte("89"), data)

	// Offset at or past the end yields no bytes and no error.
	data, err = s.GetBlobRange(ctx, "c", "k", 10, 4)
	require.NoError(t, err)
	assert.Nil(t, data)

	_, err = s.GetBlobRange(ctx, "c", "k", -1, 4)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestStageAndCommit(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateContainer(ctx, "c"))

	require.NoError(t, s.StageBlock(ctx, "c", "k", "0000000", []byte("hello ")))
	require.NoError(t, s.StageBlock(ctx, "c", "k", "0000001", []byte("world")))

	// Staged blocks are invisible until commit.
	_, err := s.StatBlob(ctx, "c", "k")
	assert.True(t, errs.IsNotFound(err))

	require.NoError(t, s.CommitBlockList(ctx, "c", "k", []string{"0000000", "0000001"}))
	data, err := s.GetBlobRange(ctx, "c", "k", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), data)
	assert.Equal(t, []string{"0000000", "0000001"}, s.CommittedBlocks("c", "k"))
}

func TestCommitUnstagedBlock(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateContainer(ctx, "c"))
	require.NoError(t, s.StageBlock(ctx, "c", "k", "0000000", []byte("x")))

	err := s.CommitBlockList(ctx, "c", "k", []string{"0000000", "0000009"})
	assert.True(t, errs.IsInvalidState(err))
}

func TestCommitEmptyBlockList(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateContainer(ctx, "c"))

	require.NoError(t, s.CommitBlockList(ctx, "c", "k", nil))
	stat, err := s.StatBlob(ctx, "c", "k")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stat.Size)
}

func TestAbortUploadDiscardsBlocks(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateContainer(ctx, "c"))
	require.NoError(t, s.StageBlock(ctx, "c", "k", "0000000", []byte("x")))
	require.NoError(t, s.AbortUpload(ctx, "c", "k"))

	err := s.CommitBlockList(ctx, "c", "k", []string{"0000000"})
	assert.True(t, errs.IsInvalidState(err))
}
