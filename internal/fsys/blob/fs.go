// Package blob projects a flat, container/blob-keyed object store onto the
// hierarchical filesystem contract in fsys.
//
// Directories are synthetic: they exist only as prefixes implied by blob
// keys, except container-level entries, which the store reports
// authoritatively. All listing, glob, walk and find operations are built on
// bounded-depth prefix scans; the file handles in this package turn the
// store's whole-object GET/PUT surface into seekable, buffered, block-staged
// streams.
//
// The projection is best-effort: it provides no consistency guarantees
// against concurrent external mutators beyond what the store itself offers.
package blob

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nimbusfs/azfs/internal/blobstore"
	"github.com/nimbusfs/azfs/internal/errs"
	"github.com/nimbusfs/azfs/internal/fsys"
	"github.com/nimbusfs/azfs/internal/logger"
)

// DefaultBlockSize is the default read-fetch and write-stage granularity.
const DefaultBlockSize = 5 * 1 << 20

// deleteConcurrency bounds parallel blob deletions during a recursive Rm.
const deleteConcurrency = 8

// Options tunes a FileSystem. The zero value is usable.
type Options struct {
	// BlockSize is the default block size for file handles.
	// Defaults to DefaultBlockSize.
	BlockSize int64

	// Logger receives debug events around every network round-trip.
	Logger *logger.Logger
}

// FileSystem implements fsys.FileSystem over a blobstore.Client.
//
// A FileSystem is safe for concurrent use: every listing call builds its
// own result locally, and each file handle carries its own buffer, cursor
// and cache state over the shared client.
type FileSystem struct {
	store     blobstore.Client
	blocksize int64
	log       *logger.Logger

	// dircache memoizes Ls results per normalized path. Writer close,
	// mkdir and delete invalidate the affected paths.
	mu       sync.RWMutex
	dircache map[string][]fsys.Entry
}

// New returns a FileSystem over store. A nil opts uses defaults.
func New(store blobstore.Client, opts *Options) *FileSystem {
	if opts == nil {
		opts = &Options{}
	}
	blocksize := opts.BlockSize
	if blocksize <= 0 {
		blocksize = DefaultBlockSize
	}
	log := opts.Logger
	if log == nil {
		log = logger.New(nil)
	}
	return &FileSystem{
		store:     store,
		blocksize: blocksize,
		log:       log,
		dircache:  make(map[string][]fsys.Entry),
	}
}

// cacheKey normalizes a path for dircache lookup.
func cacheKey(path string) string {
	return withoutSlash(fsys.StripProtocol(path))
}

// InvalidateCache drops cached listing entries for path, or all entries when
// path is empty.
func (f *FileSystem) InvalidateCache(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if path == "" {
		f.dircache = make(map[string][]fsys.Entry)
		return
	}
	delete(f.dircache, cacheKey(path))
}

func (f *FileSystem) cachedLs(path string) ([]fsys.Entry, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	entries, ok := f.dircache[cacheKey(path)]
	return entries, ok
}

func (f *FileSystem) storeLs(path string, entries []fsys.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dircache[cacheKey(path)] = entries
}

// Ls lists the entries at path. The account root ("" or "/") lists all
// containers as directory entries. A missing non-root path is a not-found
// error; an existing but empty container root yields an empty result.
func (f *FileSystem) Ls(ctx context.Context, path string) ([]fsys.Entry, error) {
	if entries, ok := f.cachedLs(path); ok {
		return entries, nil
	}
	entries, err := f.list(ctx, path)
	if err != nil {
		return nil, err
	}
	f.storeLs(path, entries)
	return entries, nil
}

func (f *FileSystem) list(ctx context.Context, path string) ([]fsys.Entry, error) {
	container, key := fsys.SplitPath(path)
	f.log.Debugf("ls %q (container=%q key=%q)", path, container, key)

	if container == "" && key == "" {
		return f.listContainers(ctx)
	}

	items, err := f.store.ListBlobs(ctx, container, blobstore.ListOptions{Prefix: key})
	if err != nil {
		return nil, err
	}

	switch {
	case len(items) == 0:
		if key == "" {
			// An existing but empty container root.
			return []fsys.Entry{}, nil
		}
		return nil, errs.Newf(errs.ErrKindNotFound, "no entry at %q", path)

	case len(items) == 1 && items[0].IsPrefix && withoutSlash(items[0].Key) == withoutSlash(key):
		// The requested key is itself a directory: re-list one level
		// below the resolved prefix.
		items, err = f.store.ListBlobs(ctx, container, blobstore.ListOptions{Prefix: items[0].Key})
		if err != nil {
			return nil, err
		}
		return synthesizeEntries(container, items)

	default:
		// One or more blobs and/or prefixes: a single file hit, a leaf
		// file listing, or sibling prefixes one level deep. All shapes
		// collapse to the same synthesis.
		return synthesizeEntries(container, items)
	}
}

func (f *FileSystem) listContainers(ctx context.Context) ([]fsys.Entry, error) {
	containers, err := f.store.ListContainers(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]fsys.Entry, len(containers))
	for i, c := range containers {
		entries[i] = fsys.Entry{
			Name: c.Name + fsys.Delimiter,
			Size: 0,
			Kind: fsys.KindDirectory,
		}
	}
	return entries, nil
}

// Info returns the entry at path. It first looks for path among its parent's
// listing; failing that it lists path itself, reading one exact hit as a
// file and any other non-empty shape as a synthetic directory.
func (f *FileSystem) Info(ctx context.Context, path string) (fsys.Entry, error) {
	p := withoutSlash(fsys.StripProtocol(path))
	if p == "" {
		return fsys.Entry{Name: "", Size: 0, Kind: fsys.KindDirectory}, nil
	}

	if entries, err := f.Ls(ctx, fsys.ParentPath(p)); err == nil {
		for _, e := range entries {
			if withoutSlash(e.Name) == p {
				return e, nil
			}
		}
	}

	entries, err := f.Ls(ctx, p)
	if err != nil {
		return fsys.Entry{}, err
	}

	var exact []fsys.Entry
	for _, e := range entries {
		if withoutSlash(e.Name) == p {
			exact = append(exact, e)
		}
	}
	switch {
	case len(exact) == 1:
		return exact[0], nil
	case len(exact) > 1 || len(entries) > 0:
		return fsys.Entry{Name: p + fsys.Delimiter, Size: 0, Kind: fsys.KindDirectory}, nil
	default:
		return fsys.Entry{}, errs.Newf(errs.ErrKindNotFound, "no entry at %q", path)
	}
}

// Exists reports whether an entry exists at path. Any failure, transient
// ones included, reads as false.
func (f *FileSystem) Exists(ctx context.Context, path string) bool {
	_, err := f.Info(ctx, path)
	return err == nil
}

// IsDir reports whether path names a directory.
func (f *FileSystem) IsDir(ctx context.Context, path string) bool {
	e, err := f.Info(ctx, path)
	return err == nil && e.Kind == fsys.KindDirectory
}

// IsFile reports whether path names a file.
func (f *FileSystem) IsFile(ctx context.Context, path string) bool {
	e, err := f.Info(ctx, path)
	return err == nil && e.Kind == fsys.KindFile
}

// Size returns the byte size of the file at path.
func (f *FileSystem) Size(ctx context.Context, path string) (int64, error) {
	e, err := f.Info(ctx, path)
	if err != nil {
		return 0, err
	}
	return e.Size, nil
}

// Walk yields the tree rooted at path to fn in pre-order, one directory
// level per call. maxdepth caps recursion: fsys.NoDepthLimit descends until
// no subdirectories remain; any smaller value stops once the cap check
// (decrement, then "< 1 → stop") fails. A root that never existed yields
// nothing.
func (f *FileSystem) Walk(ctx context.Context, path string, maxdepth int, fn fsys.WalkFunc) error {
	p := withoutSlash(fsys.StripProtocol(path))

	listing, err := f.Ls(ctx, p)
	if err != nil {
		if errs.IsNotFound(err) {
			listing = nil
		} else {
			return err
		}
	}

	var dirs, files []fsys.Entry
	for _, e := range listing {
		pathname := withoutSlash(e.Name)
		switch {
		case e.Kind == fsys.KindDirectory && pathname != p:
			dirs = append(dirs, e)
		case pathname == p:
			// File-like entry with the same name as the walked path.
			files = append(files, e)
		default:
			files = append(files, e)
		}
	}

	if err := fn(p, dirs, files); err != nil {
		return err
	}

	if maxdepth != fsys.NoDepthLimit {
		maxdepth--
		if maxdepth < 1 {
			return nil
		}
	}

	for _, d := range dirs {
		if err := f.Walk(ctx, withoutSlash(d.Name), maxdepth, fn); err != nil {
			return err
		}
	}
	return nil
}

// Find flattens Walk output into one sorted listing. When path itself names
// a file it is included even though Walk only descends directories, and a
// root that never existed yields an empty result rather than an error.
func (f *FileSystem) Find(ctx context.Context, path string, opts fsys.FindOptions) ([]fsys.Entry, error) {
	maxdepth := opts.MaxDepth
	if maxdepth == 0 {
		maxdepth = fsys.NoDepthLimit
	}

	out := make(map[string]fsys.Entry)
	err := f.Walk(ctx, path, maxdepth, func(_ string, dirs, files []fsys.Entry) error {
		if opts.WithDirs {
			for _, d := range dirs {
				out[withoutSlash(d.Name)] = d
			}
		}
		for _, fe := range files {
			out[withoutSlash(fe.Name)] = fe
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p := withoutSlash(fsys.StripProtocol(path))
	if _, ok := out[p]; !ok {
		if e, err := f.Info(ctx, p); err == nil && e.Kind == fsys.KindFile {
			out[p] = e
		}
	}

	names := make([]string, 0, len(out))
	for name := range out {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]fsys.Entry, len(names))
	for i, name := range names {
		entries[i] = out[name]
	}
	return entries, nil
}

// Glob returns the sorted paths matching pattern. A pattern without
// wildcards degrades to an existence check; a trailing slash on a
// non-wildcard pattern lists that directory. Zero matches is success.
func (f *FileSystem) Glob(ctx context.Context, pattern string) ([]string, error) {
	entries, err := f.GlobEntries(ctx, pattern)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = withoutSlash(e.Name)
	}
	return names, nil
}

// GlobEntries is Glob with entry details.
func (f *FileSystem) GlobEntries(ctx context.Context, pattern string) ([]fsys.Entry, error) {
	trailing := strings.HasSuffix(pattern, fsys.Delimiter)
	p := fsys.StripProtocol(pattern)

	if !fsys.HasWildcard(p) {
		if !trailing {
			e, err := f.Info(ctx, p)
			if err != nil {
				// Glob of a nonexistent literal path matches nothing.
				return nil, nil
			}
			return []fsys.Entry{e}, nil
		}
		// "list this directory" shortcut
		p += "*"
	}

	g, err := fsys.CompileGlob(p)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "bad glob pattern", err)
	}

	all, err := f.Find(ctx, g.Root, fsys.FindOptions{MaxDepth: g.Depth, WithDirs: true})
	if err != nil {
		return nil, err
	}

	var out []fsys.Entry
	for _, e := range all {
		if g.Match(e.Name) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Mkdir creates a container when path names a bare container, or an empty
// prefix-marker blob inside an existing container otherwise. With existsOK
// set, creating inside an existing container is the only permitted form and
// conflicts are ignored.
func (f *FileSystem) Mkdir(ctx context.Context, path string, existsOK bool) error {
	container, key := fsys.SplitPath(path)
	defer f.InvalidateCache(fsys.ParentPath(fsys.StripProtocol(path)))
	defer f.InvalidateCache("")

	exists, err := f.containerExists(ctx, container)
	if err != nil {
		return err
	}

	if existsOK {
		if exists && key != "" {
			return f.store.PutBlob(ctx, container, key, nil)
		}
		return nil
	}

	switch {
	case !exists && key == "":
		return f.store.CreateContainer(ctx, container)
	case exists && key != "":
		return f.store.PutBlob(ctx, container, key, nil)
	default:
		return errs.Newf(errs.ErrKindAmbiguous, "cannot create %q", fsys.JoinPath(container, key))
	}
}

// Rmdir deletes the container named by path, if path is a bare container
// that exists. Anything else is a no-op.
func (f *FileSystem) Rmdir(ctx context.Context, path string) error {
	container, key := fsys.SplitPath(path)
	if key != "" {
		return nil
	}
	exists, err := f.containerExists(ctx, container)
	if err != nil || !exists {
		return err
	}
	defer f.InvalidateCache("")
	return f.store.DeleteContainer(ctx, container)
}

// RmFile deletes the single entry at path. A missing entry is swallowed so
// repeated deletes succeed silently; a bare-container directory is deleted
// as a container; a synthetic directory is a no-op.
func (f *FileSystem) RmFile(ctx context.Context, path string) error {
	info, err := f.Info(ctx, path)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil
		}
		return err
	}

	container, key := fsys.SplitPath(path)
	defer f.InvalidateCache(fsys.ParentPath(fsys.StripProtocol(path)))
	defer f.InvalidateCache(path)

	switch info.Kind {
	case fsys.KindFile:
		f.log.Debugf("delete blob %q in %q", key, container)
		err := f.store.DeleteBlob(ctx, container, key)
		if err != nil && !errs.IsNotFound(err) {
			return err
		}
		return nil
	case fsys.KindDirectory:
		if key == "" {
			exists, err := f.containerExists(ctx, container)
			if err != nil {
				return err
			}
			if exists {
				f.log.Debugf("delete container %q", container)
				return f.store.DeleteContainer(ctx, container)
			}
		}
		// Synthetic directories vanish with their children.
		return nil
	default:
		return errs.Newf(errs.ErrKindAmbiguous, "unable to delete %q", path)
	}
}

// Rm deletes the files matched by path (a literal path or a glob). With
// recursive set, directories are expanded and removed deepest-first. Blob
// deletions fan out over a bounded worker group; container deletions run
// last, after their contents are gone.
func (f *FileSystem) Rm(ctx context.Context, path string, recursive bool, maxdepth int) error {
	paths, err := f.ExpandPath(ctx, []string{path}, recursive, maxdepth)
	if err != nil {
		return err
	}

	// Reverse-sorted, so children precede their parents.
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deleteConcurrency)

	var containers []string
	for _, p := range paths {
		if !strings.Contains(p, fsys.Delimiter) {
			containers = append(containers, p)
			continue
		}
		target := p
		g.Go(func() error {
			return f.RmFile(gctx, target)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, c := range containers {
		if err := f.RmFile(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// ExpandPath turns one or more globs or directories into the sorted list of
// all matching paths. An empty expansion is a not-found error.
func (f *FileSystem) ExpandPath(ctx context.Context, paths []string, recursive bool, maxdepth int) ([]string, error) {
	out := make(map[string]bool)
	for _, p := range paths {
		p = fsys.StripProtocol(p)
		if fsys.HasWildcard(p) {
			matches, err := f.Glob(ctx, p)
			if err != nil {
				return nil, err
			}
			for _, m := range matches {
				out[m] = true
				if recursive {
					expanded, err := f.ExpandPath(ctx, []string{m}, recursive, maxdepth)
					if err != nil && !errs.IsNotFound(err) {
						return nil, err
					}
					for _, e := range expanded {
						out[e] = true
					}
				}
			}
			continue
		}
		if recursive {
			found, err := f.Find(ctx, p, fsys.FindOptions{MaxDepth: maxdepth, WithDirs: true})
			if err != nil {
				return nil, err
			}
			for _, e := range found {
				out[withoutSlash(e.Name)] = true
			}
		}
		out[withoutSlash(p)] = true
	}

	if len(out) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "nothing matches %v", paths)
	}

	result := make([]string, 0, len(out))
	for p := range out {
		result = append(result, p)
	}
	sort.Strings(result)
	return result, nil
}

// Open returns a file handle for path. A nil opts opens for reading with
// the filesystem's block size and the readahead cache.
func (f *FileSystem) Open(ctx context.Context, path string, opts *fsys.OpenOptions) (fsys.File, error) {
	if opts == nil {
		opts = &fsys.OpenOptions{}
	}
	blocksize := opts.BlockSize
	if blocksize <= 0 {
		blocksize = f.blocksize
	}
	cache := opts.Cache
	if cache == "" {
		cache = fsys.CacheReadahead
	}
	fh, err := newFile(ctx, f, path, opts.Mode, blocksize, cache)
	if err != nil {
		return nil, err
	}
	return fh, nil
}

func (f *FileSystem) containerExists(ctx context.Context, name string) (bool, error) {
	containers, err := f.store.ListContainers(ctx)
	if err != nil {
		return false, err
	}
	for _, c := range containers {
		if c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// Compile-time interface check.
var _ fsys.FileSystem = (*FileSystem)(nil)
