package source

import (
	"path/filepath"
	"strings"
)

// Matcher filters repository paths against include/exclude glob patterns.
//
// Patterns use glob syntax with ** for recursive matching. A pattern without
// a slash matches against the file's base name, so "*.go" selects Go files
// at any depth. Excludes win over includes; an empty include list selects
// everything not excluded.
//
// A Matcher is safe for concurrent use after creation.
type Matcher struct {
	includes []string
	excludes []string
}

// NewMatcher creates a matcher with the given include and exclude patterns.
func NewMatcher(includes, excludes []string) *Matcher {
	return &Matcher{includes: includes, excludes: excludes}
}

// Match returns true if the path should be included.
func (m *Matcher) Match(path string) bool {
	path = filepath.ToSlash(path)

	for _, pattern := range m.excludes {
		if matchGlob(pattern, path) {
			return false
		}
	}

	if len(m.includes) == 0 {
		return true
	}
	for _, pattern := range m.includes {
		if matchGlob(pattern, path) {
			return true
		}
	}
	return false
}

func matchGlob(pattern, path string) bool {
	pattern = filepath.ToSlash(strings.TrimSpace(pattern))
	if pattern == "" {
		return false
	}

	// Bare patterns apply to the file name at any depth.
	if !strings.Contains(pattern, "/") && !strings.Contains(pattern, "**") {
		matched, _ := filepath.Match(pattern, lastSegment(path))
		return matched
	}

	return matchSegments(strings.Split(pattern, "/"), strings.Split(path, "/"))
}

// matchSegments matches slash-separated pattern segments against path
// segments, with ** consuming zero or more segments.
func matchSegments(pat, segs []string) bool {
	if len(pat) == 0 {
		return len(segs) == 0
	}
	if pat[0] == "**" {
		if matchSegments(pat[1:], segs) {
			return true
		}
		if len(segs) > 0 {
			return matchSegments(pat, segs[1:])
		}
		return false
	}
	if len(segs) == 0 {
		return false
	}
	matched, err := filepath.Match(pat[0], segs[0])
	if err != nil || !matched {
		return false
	}
	return matchSegments(pat[1:], segs[1:])
}

func lastSegment(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
