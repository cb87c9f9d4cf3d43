package blob

import (
	"strings"

	"github.com/nimbusfs/azfs/internal/blobstore"
	"github.com/nimbusfs/azfs/internal/errs"
	"github.com/nimbusfs/azfs/internal/fsys"
)

// synthesizeEntries turns one hierarchical listing of container into listing
// entries: one directory entry per common prefix, one file entry per blob.
//
// A zero-length blob whose key also appears as a common prefix is an empty
// directory marker, not user data, and is dropped in favor of the directory
// entry. The function is pure and never touches the network.
func synthesizeEntries(container string, items []blobstore.BlobItem) ([]fsys.Entry, error) {
	prefixes := make(map[string]bool, len(items))
	for _, it := range items {
		if it.IsPrefix {
			prefixes[it.Key] = true
		}
	}

	entries := make([]fsys.Entry, 0, len(items))
	for _, it := range items {
		switch {
		case it.IsPrefix && it.Size > 0:
			// A prefix is implied hierarchy; it cannot carry bytes.
			return nil, errs.Newf(errs.ErrKindAmbiguous,
				"unable to classify listing result %q in container %q", it.Key, container)
		case it.IsPrefix:
			entries = append(entries, fsys.Entry{
				Name: fsys.JoinPath(container, withSlash(it.Key)),
				Size: 0,
				Kind: fsys.KindDirectory,
			})
		case it.Size == 0 && prefixes[withSlash(it.Key)]:
			// Empty placeholder object shadowed by a real prefix.
			continue
		default:
			entries = append(entries, fsys.Entry{
				Name: fsys.JoinPath(container, it.Key),
				Size: it.Size,
				Kind: fsys.KindFile,
			})
		}
	}
	return entries, nil
}

func withSlash(key string) string {
	if strings.HasSuffix(key, fsys.Delimiter) {
		return key
	}
	return key + fsys.Delimiter
}

func withoutSlash(key string) string {
	return strings.TrimRight(key, fsys.Delimiter)
}
