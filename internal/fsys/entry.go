package fsys

// Kind classifies a listing entry.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
)

// String returns the lowercase wire form ("file" / "directory") regardless of
// the backend's native casing.
func (k Kind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "file"
}

// Entry describes a single listing result. Directory entries are synthetic,
// existing only as prefixes implied by blob keys, except container-level
// entries, which the store reports authoritatively.
//
// Directory names carry a trailing slash; file names never do.
// Size is always 0 for directories.
type Entry struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Kind Kind   `json:"-"`
}

// Type returns the entry kind as its lowercase wire form.
func (e Entry) Type() string {
	return e.Kind.String()
}

// IsDir reports whether the entry is a (synthetic or container) directory.
func (e Entry) IsDir() bool {
	return e.Kind == KindDirectory
}
