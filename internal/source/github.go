package source

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"
)

// GitHubProvider downloads a repository snapshot as a zipball through the
// GitHub API. A token (optional, for private repos and rate limits) comes
// from the constructor or the GITHUB_TOKEN environment variable.
type GitHubProvider struct {
	token      string
	httpClient *http.Client
	baseURL    string
}

// NewGitHubProvider constructs a provider with a sane download timeout.
func NewGitHubProvider(token string) *GitHubProvider {
	if strings.TrimSpace(token) == "" {
		token = strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))
	}
	return &GitHubProvider{
		token:      token,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    "https://api.github.com",
	}
}

// Fetch downloads and unpacks the repository, returning the filtered files.
func (p *GitHubProvider) Fetch(ctx context.Context, repoRef string, filters Filters) ([]File, error) {
	owner, repo, ref, err := parseGitHubRef(repoRef)
	if err != nil {
		return nil, err
	}

	archiveURL := fmt.Sprintf("%s/repos/%s/%s/zipball", p.baseURL, owner, repo)
	if ref != "" {
		archiveURL += "/" + url.PathEscape(ref)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s/%s: %v", ErrSourceUnavailable, owner, repo, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: download %s/%s: http status %d", ErrSourceUnavailable, owner, repo, resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read archive: %v", ErrSourceUnavailable, err)
	}

	return unpackZip(ctx, payload, filters)
}

func unpackZip(ctx context.Context, payload []byte, filters Filters) ([]File, error) {
	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, fmt.Errorf("%w: open archive: %v", ErrSourceUnavailable, err)
	}

	filters, matcher := filters.normalized()

	var files []File
	for _, entry := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.FileInfo().IsDir() {
			continue
		}
		// Zipballs wrap everything in a "<owner>-<repo>-<sha>/" directory.
		rel := stripTopDir(strings.ReplaceAll(entry.Name, "\\", "/"))
		if rel == "" {
			continue
		}
		if !matcher.Match(rel) {
			continue
		}
		if entry.UncompressedSize64 > uint64(filters.MaxFileSize) {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(rc, filters.MaxFileSize+1))
		rc.Close()
		if err != nil || int64(len(data)) > filters.MaxFileSize {
			continue
		}
		content, ok := fileContent(ctx, rel, data)
		if !ok {
			continue
		}
		files = append(files, File{Path: rel, Content: content})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func stripTopDir(name string) string {
	idx := strings.IndexByte(name, '/')
	if idx < 0 {
		return ""
	}
	return name[idx+1:]
}

func parseGitHubRef(repoRef string) (owner, repo, ref string, err error) {
	ref = ""
	raw := strings.TrimSpace(repoRef)
	raw = strings.TrimPrefix(raw, "http://")
	raw = strings.TrimPrefix(raw, "https://")
	if !strings.HasPrefix(raw, "github.com/") {
		return "", "", "", fmt.Errorf("%w: unsupported repository reference %q", ErrSourceUnavailable, repoRef)
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(raw, "github.com/"), "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("%w: repository reference %q missing owner/repo", ErrSourceUnavailable, repoRef)
	}
	owner = parts[0]
	repo = strings.TrimSuffix(parts[1], ".git")
	// Optional /tree/<ref> suffix pins a branch or tag.
	if len(parts) >= 4 && parts[2] == "tree" {
		ref = strings.Join(parts[3:], "/")
	}
	return owner, repo, ref, nil
}

var _ Provider = (*GitHubProvider)(nil)
