package datalake

import (
	"context"
	"io"

	"github.com/nimbusfs/azfs/internal/errs"
	"github.com/nimbusfs/azfs/internal/fsys"
)

// File is a read-only handle over one datalake file. Reads go straight to
// the service as range requests. Not safe for concurrent use.
type File struct {
	ctx    context.Context
	client Client
	path   string
	size   int64
	loc    int64
	closed bool
}

func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		return 0, errs.New(errs.ErrKindInvalidState, "read from closed file")
	}
	if f.loc >= f.size {
		return 0, io.EOF
	}
	length := int64(len(p))
	if f.loc+length > f.size {
		length = f.size - f.loc
	}
	data, err := f.client.ReadRange(f.ctx, f.path, f.loc, length)
	if err != nil {
		return 0, err
	}
	n := copy(p, data)
	f.loc += int64(n)
	return n, nil
}

// Seek moves the cursor. The resulting position must not be negative;
// positions past the end are permitted and read as EOF.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, errs.New(errs.ErrKindInvalidState, "seek on closed file")
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

func (f *File) Write(p []byte) (int, error) {
	return 0, errs.New(errs.ErrKindInvalidInput, "file not open for writing")
}

// Flush is a no-op on a read handle.
func (f *File) Flush(force bool) error {
	if f.closed {
		return errs.New(errs.ErrKindInvalidState, "flush on closed file")
	}
	return nil
}

// Tell returns the current cursor position.
func (f *File) Tell() int64 { return f.loc }

// Size returns the file's total size.
func (f *File) Size() int64 { return f.size }

// Close marks the handle closed. Closing twice is harmless.
func (f *File) Close() error {
	f.closed = true
	return nil
}

var _ fsys.File = (*File)(nil)
