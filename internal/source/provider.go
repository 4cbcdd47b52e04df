package source

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"tutorial-backend/internal/extract"
)

// ErrSourceUnavailable indicates the repository reference could not be read.
var ErrSourceUnavailable = errors.New("source unavailable")

// File is one repository file surviving the filters.
type File struct {
	Path    string
	Content string
}

// Filters narrow the fetched file set.
type Filters struct {
	IncludePatterns []string
	ExcludePatterns []string
	MaxFileSize     int64
}

// Provider yields filtered file contents for a repository reference. The
// returned slice is ordered by path so a run is deterministic for identical
// inputs.
type Provider interface {
	Fetch(ctx context.Context, repoRef string, filters Filters) ([]File, error)
}

// DefaultMaxFileSize bounds file content when the caller does not set one.
const DefaultMaxFileSize = 100_000

// Default glob patterns for common source files.
var (
	DefaultIncludes = []string{
		"*.go",
		"*.py",
		"*.js",
		"*.jsx",
		"*.ts",
		"*.tsx",
		"*.java",
		"*.rs",
		"*.c",
		"*.h",
		"*.cpp",
		"*.md",
		"*.pdf",
	}

	DefaultExcludes = []string{
		".git/**",
		"vendor/**",
		"node_modules/**",
		"dist/**",
		"build/**",
		"**/testdata/**",
	}
)

// Resolve picks a provider for the repository reference: URLs go to GitHub,
// anything else is treated as a local directory.
func Resolve(repoRef string) Provider {
	ref := strings.TrimSpace(repoRef)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "github.com/") {
		return NewGitHubProvider("")
	}
	return &LocalProvider{}
}

func (f Filters) normalized() (Filters, *Matcher) {
	out := f
	if len(out.IncludePatterns) == 0 {
		out.IncludePatterns = DefaultIncludes
	}
	if len(out.ExcludePatterns) == 0 {
		out.ExcludePatterns = DefaultExcludes
	}
	if out.MaxFileSize <= 0 {
		out.MaxFileSize = DefaultMaxFileSize
	}
	return out, NewMatcher(out.IncludePatterns, out.ExcludePatterns)
}

// fileContent turns raw bytes into tutorial evidence. Document formats are
// run through text extraction; binary payloads are skipped (ok=false).
func fileContent(ctx context.Context, path string, data []byte) (string, bool) {
	if extract.IsDocFile(path) {
		text, err := extract.DocText(ctx, path, data)
		if err != nil || strings.TrimSpace(text) == "" {
			return "", false
		}
		return text, true
	}
	if isBinary(data) {
		return "", false
	}
	return string(data), true
}

func isBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	probe := data
	if len(probe) > 8000 {
		probe = probe[:8000]
	}
	for _, b := range probe {
		if b == 0 {
			return true
		}
	}
	return !utf8.Valid(probe)
}
