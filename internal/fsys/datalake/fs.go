package datalake

import (
	"context"
	"strconv"
	"strings"

	"github.com/nimbusfs/azfs/internal/errs"
	"github.com/nimbusfs/azfs/internal/fsys"
	"github.com/nimbusfs/azfs/internal/logger"
)

// FileSystem implements fsys.FileSystem over a Client.
type FileSystem struct {
	client Client
	log    *logger.Logger
}

// New returns a FileSystem over client. A nil log uses the default logger.
func New(client Client, log *logger.Logger) *FileSystem {
	if log == nil {
		log = logger.New(nil)
	}
	return &FileSystem{client: client, log: log}
}

// normalize maps the service entry shape onto the shared model: types fold
// to lower case and directories carry the trailing delimiter with size zero.
func normalize(info EntryInfo) fsys.Entry {
	name := fsys.StripProtocol(info.Name)
	kind := fsys.KindFile
	size := info.Length
	if strings.EqualFold(info.Type, "DIRECTORY") {
		kind = fsys.KindDirectory
		size = 0
		if !strings.HasSuffix(name, fsys.Delimiter) {
			name += fsys.Delimiter
		}
	}
	return fsys.Entry{Name: name, Size: size, Kind: kind}
}

// Ls lists the entries directly under path.
func (f *FileSystem) Ls(ctx context.Context, path string) ([]fsys.Entry, error) {
	p := fsys.StripProtocol(path)
	f.log.Debugf("datalake ls %q", p)
	infos, err := f.client.List(ctx, p)
	if err != nil {
		return nil, err
	}
	entries := make([]fsys.Entry, len(infos))
	for i, info := range infos {
		entries[i] = normalize(info)
	}
	return entries, nil
}

// Info returns the entry at path.
func (f *FileSystem) Info(ctx context.Context, path string) (fsys.Entry, error) {
	info, err := f.client.Stat(ctx, fsys.StripProtocol(path))
	if err != nil {
		return fsys.Entry{}, err
	}
	return normalize(info), nil
}

// Glob delegates matching to the service.
func (f *FileSystem) Glob(ctx context.Context, pattern string) ([]string, error) {
	return f.client.Glob(ctx, fsys.StripProtocol(pattern))
}

// Exists reports whether an entry exists at path.
func (f *FileSystem) Exists(ctx context.Context, path string) bool {
	_, err := f.Info(ctx, path)
	return err == nil
}

// Ukey returns a change token for the file at path, derived from its
// modification time.
func (f *FileSystem) Ukey(ctx context.Context, path string) (string, error) {
	info, err := f.client.Stat(ctx, fsys.StripProtocol(path))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(info.ModificationTime, 10), nil
}

// ReadBlock returns length bytes of the file at path starting at offset,
// without going through a handle.
func (f *FileSystem) ReadBlock(ctx context.Context, path string, offset, length int64) ([]byte, error) {
	return f.client.ReadRange(ctx, fsys.StripProtocol(path), offset, length)
}

// Open returns a read handle for the file at path. The generation is
// read-only through this adapter; write mode is rejected.
func (f *FileSystem) Open(ctx context.Context, path string, opts *fsys.OpenOptions) (fsys.File, error) {
	if opts != nil && opts.Mode == fsys.ModeWrite {
		return nil, errs.New(errs.ErrKindInvalidInput, "datalake handles are read-only")
	}
	p := fsys.StripProtocol(path)
	info, err := f.client.Stat(ctx, p)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(info.Type, "DIRECTORY") {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "cannot open directory %q", path)
	}
	return &File{ctx: ctx, client: f.client, path: p, size: info.Length}, nil
}

var _ fsys.FileSystem = (*FileSystem)(nil)
