package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"tutorial-backend/internal/llm"
	"tutorial-backend/internal/shared/metrics"
	"tutorial-backend/internal/shared/util"
)

// ChapterCache stores generated chapter content keyed by fingerprint so
// repeat runs over the same inputs skip the language-model call.
type ChapterCache interface {
	Get(ctx context.Context, fingerprint string) (content string, ok bool, err error)
	Put(ctx context.Context, fingerprint, content string) error
}

// MemoryChapterCache is the in-process cache used in tests and single-node
// deployments.
type MemoryChapterCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryChapterCache() *MemoryChapterCache {
	return &MemoryChapterCache{entries: make(map[string]string)}
}

func (c *MemoryChapterCache) Get(_ context.Context, fingerprint string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	content, ok := c.entries[fingerprint]
	return content, ok, nil
}

func (c *MemoryChapterCache) Put(_ context.Context, fingerprint, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fingerprint] = content
	return nil
}

// Generator writes one chapter per sequenced abstraction, feeding summaries
// of the chapters already written as context for the next one.
type Generator struct {
	LLM             llm.Client
	Cache           ChapterCache
	Language        string
	Model           string
	MaxTokens       int
	MaxContextChars int
}

const defaultMaxContextChars = 4000

// NewGenerator returns a generator with the default context budget.
func NewGenerator(client llm.Client, cache ChapterCache, language, model string) *Generator {
	return &Generator{
		LLM:             client,
		Cache:           cache,
		Language:        language,
		Model:           model,
		MaxContextChars: defaultMaxContextChars,
	}
}

// Generate produces chapters in sequence order. When useCache is set and the
// cache holds content for a chapter's fingerprint, that content is returned
// without a model call. Any chapter failure aborts the whole run; partial
// chapters are discarded by the caller, never persisted.
func (g *Generator) Generate(ctx context.Context, seq []Abstraction, useCache bool) ([]Chapter, error) {
	chapters := make([]Chapter, 0, len(seq))
	var summaries []string

	for i, a := range seq {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		contextSummary := joinContext(summaries, g.maxContextChars())
		fp := util.Fingerprint(
			a.Name,
			a.Description,
			strings.Join(a.Files, "\n"),
			contextSummary,
			PromptVersion,
			g.Language,
			g.Model,
		)

		content, fromCache, err := g.chapterContent(ctx, a, i, len(seq), contextSummary, fp, useCache)
		if err != nil {
			return nil, err
		}

		chapters = append(chapters, Chapter{
			Index:       i + 1,
			Title:       a.Name,
			Content:     content,
			Fingerprint: fp,
			FromCache:   fromCache,
		})
		summaries = append(summaries, summarize(a.Name, content))
	}
	return chapters, nil
}

func (g *Generator) chapterContent(ctx context.Context, a Abstraction, idx, total int, contextSummary, fp string, useCache bool) (string, bool, error) {
	if useCache && g.Cache != nil {
		cached, ok, err := g.Cache.Get(ctx, fp)
		if err == nil && ok {
			metrics.IncChapterCacheHit()
			return cached, true, nil
		}
	}
	metrics.IncChapterCacheMiss()

	prompt := buildChapterPrompt(a, idx+1, total, contextSummary, g.Language)
	content, err := g.LLM.Complete(ctx, prompt, g.MaxTokens)
	if err != nil {
		return "", false, fmt.Errorf("generate chapter %q: %w", a.Name, err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", false, fmt.Errorf("generate chapter %q: %w", a.Name, ErrBadModelOutput)
	}

	if g.Cache != nil {
		// Cache writes are best effort; the chapter itself succeeded.
		_ = g.Cache.Put(ctx, fp, content)
	}
	return content, false, nil
}

func (g *Generator) maxContextChars() int {
	if g.MaxContextChars > 0 {
		return g.MaxContextChars
	}
	return defaultMaxContextChars
}

// joinContext concatenates chapter summaries newest-last, dropping the
// oldest entries first when the budget is exceeded.
func joinContext(summaries []string, budget int) string {
	if len(summaries) == 0 {
		return ""
	}
	start := 0
	total := 0
	for i := len(summaries) - 1; i >= 0; i-- {
		total += len(summaries[i]) + 1
		if total > budget {
			start = i + 1
			break
		}
	}
	if start >= len(summaries) {
		start = len(summaries) - 1
	}
	return strings.Join(summaries[start:], "\n")
}

// summarize derives a short context line from a chapter locally, so building
// context for later chapters costs no extra model calls.
func summarize(title, content string) string {
	first := content
	if idx := strings.Index(first, "\n\n"); idx > 0 {
		first = first[:idx]
	}
	first = strings.Join(strings.Fields(first), " ")
	const maxLen = 300
	if len(first) > maxLen {
		cut := strings.LastIndexByte(first[:maxLen], ' ')
		if cut <= 0 {
			cut = maxLen
		}
		first = first[:cut] + "…"
	}
	return fmt.Sprintf("- %s: %s", title, first)
}
