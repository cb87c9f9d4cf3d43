package fsys

import "strings"

// Delimiter separates path segments. Blob keys containing it are interpreted
// as hierarchy.
const Delimiter = "/"

// StripProtocol removes a scheme prefix from path and folds the host into the
// path head, so "abfs://container/a/b" becomes "container/a/b". Leading
// slashes are removed. Malformed scheme strings degrade to a best-effort
// pass-through: any non-empty path yields a usable container/key form.
func StripProtocol(path string) string {
	if i := strings.Index(path, "://"); i >= 0 {
		path = path[i+3:]
	}
	return strings.TrimLeft(path, Delimiter)
}

// SplitPath normalizes a path into its (container, key) pair. The container
// is the first segment; the key is the remainder, empty when the path names
// a bare container. An empty path or "/" yields ("", "").
//
//	SplitPath("abfs://my_container/path/to/file")
//	→ ("my_container", "path/to/file")
func SplitPath(path string) (container, key string) {
	if path == "" || path == Delimiter {
		return "", ""
	}
	path = StripProtocol(path)
	if !strings.Contains(path, Delimiter) {
		// The whole path is the container name.
		return path, ""
	}
	parts := strings.SplitN(path, Delimiter, 2)
	return parts[0], parts[1]
}

// JoinPath joins a container and key back into a full path.
func JoinPath(container, key string) string {
	if key == "" {
		return container
	}
	return container + Delimiter + key
}

// ParentPath returns the parent of path: everything up to the last
// non-trailing delimiter, or "" when the path is a bare container or empty.
func ParentPath(path string) string {
	path = strings.TrimRight(StripProtocol(path), Delimiter)
	i := strings.LastIndex(path, Delimiter)
	if i < 0 {
		return ""
	}
	return path[:i]
}

// BaseName returns the last segment of path, with any trailing delimiter
// removed first.
func BaseName(path string) string {
	path = strings.TrimRight(path, Delimiter)
	i := strings.LastIndex(path, Delimiter)
	if i < 0 {
		return path
	}
	return path[i+1:]
}
