package jobs

import (
	"context"
	"database/sql"
	"errors"
)

// PGChapterCache persists generated chapter content by fingerprint so cache
// hits survive process restarts. Satisfies pipeline.ChapterCache.
type PGChapterCache struct {
	DB *sql.DB
}

func (c *PGChapterCache) Get(ctx context.Context, fingerprint string) (string, bool, error) {
	const query = `SELECT content FROM chapter_cache WHERE fingerprint = $1 LIMIT 1`
	var content string
	err := c.DB.QueryRowContext(ctx, query, fingerprint).Scan(&content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return content, true, nil
}

func (c *PGChapterCache) Put(ctx context.Context, fingerprint, content string) error {
	const query = `
INSERT INTO chapter_cache (fingerprint, content, created_at)
VALUES ($1, $2, now())
ON CONFLICT (fingerprint) DO UPDATE SET content = EXCLUDED.content`
	_, err := c.DB.ExecContext(ctx, query, fingerprint, content)
	return err
}
