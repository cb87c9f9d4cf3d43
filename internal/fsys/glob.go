package fsys

import (
	"regexp"
	"strings"
)

// MaxGlobDepth is the hard recursion cap substituted for unbounded descent
// when a pattern contains "**".
const MaxGlobDepth = 20

// HasWildcard reports whether path contains glob metacharacters.
func HasWildcard(path string) bool {
	return strings.ContainsAny(path, "*?[")
}

// GlobPattern is a compiled glob. Root is the longest non-wildcard prefix,
// used to scope the prefix walk; Depth is the number of path segments below
// Root to descend.
type GlobPattern struct {
	Root  string
	Depth int

	re *regexp.Regexp
}

// CompileGlob compiles a pattern containing "*", "**", "?" or "[...]" into a
// matcher. The path must already be protocol-stripped.
func CompileGlob(pattern string) (*GlobPattern, error) {
	root, depth := globRoot(pattern)
	re, err := globRegexp(pattern)
	if err != nil {
		return nil, err
	}
	return &GlobPattern{Root: root, Depth: depth, re: re}, nil
}

// Match reports whether the candidate path matches the pattern. Duplicate
// separators are collapsed and a trailing separator is ignored, so synthetic
// directory names ("a/b/") compare equal to their plain form.
func (g *GlobPattern) Match(path string) bool {
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	return g.re.MatchString(strings.TrimRight(path, Delimiter))
}

// globRoot computes the non-wildcard prefix and walk depth for a pattern.
// The root is trimmed back to the last separator before the first wildcard;
// "**" forces the depth cap, otherwise the depth is the number of segments
// in the wildcard suffix (minimum 1).
func globRoot(pattern string) (string, int) {
	ind := len(pattern)
	for _, c := range []string{"*", "?", "["} {
		if i := strings.Index(pattern, c); i >= 0 && i < ind {
			ind = i
		}
	}

	if !strings.Contains(pattern[:ind], Delimiter) {
		if strings.Contains(pattern, "**") {
			return "", MaxGlobDepth
		}
		return "", 1
	}

	ind2 := strings.LastIndex(pattern[:ind], Delimiter)
	root := pattern[:ind2+1]
	if strings.Contains(pattern, "**") {
		return root, MaxGlobDepth
	}
	return root, strings.Count(pattern[ind2+1:], Delimiter) + 1
}

// globRegexp translates glob syntax into an anchored regular expression.
// "**" is tokenized before single-"*" substitution so it is not expanded
// twice.
func globRegexp(pattern string) (*regexp.Regexp, error) {
	const placeholder = "\x00"

	p := pattern
	p = strings.ReplaceAll(p, `\`, `\\`)
	p = strings.ReplaceAll(p, ".", `\.`)
	p = strings.ReplaceAll(p, "+", `\+`)
	p = strings.ReplaceAll(p, "//", "/")
	p = strings.ReplaceAll(p, "(", `\(`)
	p = strings.ReplaceAll(p, ")", `\)`)
	p = strings.ReplaceAll(p, "|", `\|`)
	p = strings.TrimRight(p, Delimiter)
	p = strings.ReplaceAll(p, "?", ".")
	p = strings.ReplaceAll(p, "**", placeholder)
	p = strings.ReplaceAll(p, "*", "[^/]*")
	p = strings.ReplaceAll(p, placeholder, ".*")

	return regexp.Compile("^" + p + "$")
}
