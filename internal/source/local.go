package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalProvider reads a repository from a local directory.
type LocalProvider struct{}

// Fetch walks the directory and returns the filtered file set.
func (p *LocalProvider) Fetch(ctx context.Context, repoRef string, filters Filters) ([]File, error) {
	root := filepath.Clean(repoRef)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", ErrSourceUnavailable, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrSourceUnavailable, root)
	}

	filters, matcher := filters.normalized()

	var files []File
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !matcher.Match(rel) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		if fi.Size() > filters.MaxFileSize {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		content, ok := fileContent(ctx, rel, data)
		if !ok {
			return nil
		}
		files = append(files, File{Path: rel, Content: content})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: walk %s: %v", ErrSourceUnavailable, root, err)
	}
	return files, nil
}

var _ Provider = (*LocalProvider)(nil)
