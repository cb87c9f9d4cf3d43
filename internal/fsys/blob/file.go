package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/nimbusfs/azfs/internal/errs"
	"github.com/nimbusfs/azfs/internal/fsys"
)

// File is a seekable handle over one blob. Read handles satisfy reads
// through the cache policy chosen at open time; write handles buffer bytes
// and stage them as numbered blocks, committing the block list when flushed
// with force or on close.
//
// A File is not safe for concurrent use. The context passed to Open bounds
// every store round-trip the handle makes.
type File struct {
	ctx  context.Context
	fs   *FileSystem
	path string

	container string
	key       string

	mode      fsys.Mode
	blocksize int64
	loc       int64
	closed    bool

	// read state
	size  int64
	cache readCache

	// write state
	buffer   []byte
	blockIDs []string
	written  int64
	started  bool
	forced   bool
}

func newFile(ctx context.Context, fs *FileSystem, path string, mode fsys.Mode, blocksize int64, policy fsys.CachePolicy) (*File, error) {
	container, key := fsys.SplitPath(path)
	if container == "" || key == "" {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "cannot open %q: not a file path", path)
	}

	f := &File{
		ctx:       ctx,
		fs:        fs,
		path:      path,
		container: container,
		key:       key,
		mode:      mode,
		blocksize: blocksize,
	}

	if mode == fsys.ModeRead {
		info, err := fs.Info(ctx, path)
		if err != nil {
			return nil, err
		}
		if info.Kind == fsys.KindDirectory {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "cannot open directory %q", path)
		}
		f.size = info.Size
		f.cache = newReadCache(policy, f.fetchRange, f.size, blocksize)
	}
	return f, nil
}

func (f *File) fetchRange(start, end int64) ([]byte, error) {
	f.fs.log.Debugf("fetch %q [%d, %d)", f.path, start, end)
	return f.fs.store.GetBlobRange(f.ctx, f.container, f.key, start, end-start)
}

// Read reads up to len(p) bytes at the current cursor.
func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		return 0, errs.New(errs.ErrKindInvalidState, "read from closed file")
	}
	if f.mode != fsys.ModeRead {
		return 0, errs.New(errs.ErrKindInvalidInput, "file not open for reading")
	}
	if f.loc >= f.size {
		return 0, io.EOF
	}
	data, err := f.cache.fetch(f.loc, f.loc+int64(len(p)))
	if err != nil {
		return 0, err
	}
	n := copy(p, data)
	f.loc += int64(n)
	return n, nil
}

// Seek moves the read cursor. Seeking is only available in read mode, and
// the resulting position must not be negative. Positions past the end are
// permitted; the next read reports EOF.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, errs.New(errs.ErrKindInvalidState, "seek on closed file")
	}
	if f.mode != fsys.ModeRead {
		return 0, errs.New(errs.ErrKindInvalidInput, "seek only available in read mode")
	}

	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = f.loc + offset
	case io.SeekEnd:
		next = f.size + offset
	default:
		return 0, errs.Newf(errs.ErrKindInvalidInput, "invalid whence %d", whence)
	}
	if next < 0 {
		return 0, errs.Newf(errs.ErrKindInvalidInput, "seek before start: %d", next)
	}
	f.loc = next
	return next, nil
}

// Write buffers p, staging full blocks whenever the buffer reaches the
// block size.
func (f *File) Write(p []byte) (int, error) {
	if f.closed {
		return 0, errs.New(errs.ErrKindInvalidState, "write to closed file")
	}
	if f.mode != fsys.ModeWrite {
		return 0, errs.New(errs.ErrKindInvalidInput, "file not open for writing")
	}
	if f.forced {
		return 0, errs.New(errs.ErrKindInvalidState, "write after forced flush")
	}

	f.buffer = append(f.buffer, p...)
	f.written += int64(len(p))
	f.loc += int64(len(p))

	for int64(len(f.buffer)) >= f.blocksize {
		if err := f.Flush(false); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Flush stages the buffered bytes as the next block. Without force it is a
// no-op until a full block has accumulated; with force it stages whatever
// remains and commits the block list, after which the handle only accepts
// Close. A second forced flush is an error. Flushing a read handle does
// nothing.
func (f *File) Flush(force bool) error {
	if f.closed {
		return errs.New(errs.ErrKindInvalidState, "flush on closed file")
	}
	if f.mode != fsys.ModeWrite {
		return nil
	}
	if f.forced {
		if force {
			return errs.New(errs.ErrKindInvalidState, "file already force-flushed")
		}
		return nil
	}
	if !force && int64(len(f.buffer)) < f.blocksize {
		return nil
	}

	if !f.started {
		if err := f.initUpload(); err != nil {
			return err
		}
		f.started = true
	}

	for int64(len(f.buffer)) >= f.blocksize {
		if err := f.stageBlock(f.buffer[:f.blocksize]); err != nil {
			return err
		}
		f.buffer = f.buffer[f.blocksize:]
	}

	if force {
		if len(f.buffer) > 0 {
			if err := f.stageBlock(f.buffer); err != nil {
				return err
			}
			f.buffer = nil
		}
		if err := f.fs.store.CommitBlockList(f.ctx, f.container, f.key, f.blockIDs); err != nil {
			return errs.Wrap(errs.ErrKindConnectionFailed, "commit block list", err)
		}
		f.forced = true
	}
	return nil
}

// initUpload clears any blob already at the target path so the staged
// blocks land on a clean object. A missing blob is fine.
func (f *File) initUpload() error {
	f.fs.log.Debugf("begin upload %q", f.path)
	err := f.fs.store.DeleteBlob(f.ctx, f.container, f.key)
	if err != nil && !errs.IsNotFound(err) {
		return err
	}
	return nil
}

func (f *File) stageBlock(data []byte) error {
	blockID := fmt.Sprintf("%07d", len(f.blockIDs))
	if err := f.fs.store.StageBlock(f.ctx, f.container, f.key, blockID, data); err != nil {
		return err
	}
	f.blockIDs = append(f.blockIDs, blockID)
	return nil
}

// Tell returns the current cursor position.
func (f *File) Tell() int64 { return f.loc }

// Size returns the object size for read handles and the number of bytes
// written so far for write handles.
func (f *File) Size() int64 {
	if f.mode == fsys.ModeWrite {
		return f.written
	}
	return f.size
}

// Close seals the handle. For write handles it force-flushes first unless
// that already happened, committing the object; it then drops the cached
// listings for the path and its parent so the new object is visible.
// Closing twice is harmless.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	if f.mode == fsys.ModeWrite && !f.forced {
		if err := f.Flush(true); err != nil {
			return err
		}
	}
	f.closed = true
	if f.mode == fsys.ModeWrite {
		f.fs.InvalidateCache(f.path)
		f.fs.InvalidateCache(fsys.ParentPath(fsys.StripProtocol(f.path)))
	}
	return nil
}

var _ fsys.File = (*File)(nil)
