package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"tutorial-backend/internal/llm"
	"tutorial-backend/internal/source"
)

// Extractor identifies the conceptual abstractions of a source corpus by
// prompting the language model over bounded chunks of the file set.
type Extractor struct {
	LLM           llm.Client
	Language      string
	MaxChunkBytes int
	MaxConcurrent int
	MaxTokens     int
}

const (
	defaultMaxChunkBytes = 60_000
	defaultMaxConcurrent = 4
)

// NewExtractor returns an extractor with default chunking bounds.
func NewExtractor(client llm.Client, language string) *Extractor {
	return &Extractor{
		LLM:           client,
		Language:      language,
		MaxChunkBytes: defaultMaxChunkBytes,
		MaxConcurrent: defaultMaxConcurrent,
	}
}

// Extract prompts the model with the corpus (chunked when it exceeds the
// input bound) and merges the per-chunk results into at most maxAbstractions
// abstractions. When truncation is needed, abstractions with the most
// supporting files win; ties break on name.
func (e *Extractor) Extract(ctx context.Context, files []source.File, maxAbstractions int) ([]Abstraction, error) {
	if len(files) == 0 {
		return nil, nil
	}

	known := make(map[string]bool, len(files))
	for _, f := range files {
		known[f.Path] = true
	}

	chunks := e.chunkCorpus(files)
	results := make([][]Abstraction, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	limit := e.MaxConcurrent
	if limit <= 0 {
		limit = defaultMaxConcurrent
	}
	g.SetLimit(limit)
	for i, chunk := range chunks {
		g.Go(func() error {
			prompt := buildExtractionPrompt(chunk, maxAbstractions, e.Language)
			raw, err := e.LLM.Complete(gctx, prompt, e.MaxTokens)
			if err != nil {
				return fmt.Errorf("extract abstractions: %w", err)
			}
			var parsed []Abstraction
			if err := decodeModelJSON(raw, &parsed); err != nil {
				return fmt.Errorf("extract abstractions: %w", err)
			}
			results[i] = parsed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge per-chunk results by name, unioning evidence files. Chunk order
	// keeps the merge deterministic regardless of completion order.
	merged := make(map[string]*Abstraction)
	var order []string
	for _, parsed := range results {
		for _, a := range parsed {
			name := strings.TrimSpace(a.Name)
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			existing, ok := merged[key]
			if !ok {
				existing = &Abstraction{Name: name, Description: strings.TrimSpace(a.Description)}
				merged[key] = existing
				order = append(order, key)
			}
			for _, path := range a.Files {
				path = strings.TrimSpace(path)
				if known[path] && !containsString(existing.Files, path) {
					existing.Files = append(existing.Files, path)
				}
			}
		}
	}

	out := make([]Abstraction, 0, len(order))
	for _, key := range order {
		a := *merged[key]
		sort.Strings(a.Files)
		out = append(out, a)
	}

	if maxAbstractions > 0 && len(out) > maxAbstractions {
		sort.SliceStable(out, func(i, j int) bool {
			if len(out[i].Files) != len(out[j].Files) {
				return len(out[i].Files) > len(out[j].Files)
			}
			return out[i].Name < out[j].Name
		})
		out = out[:maxAbstractions]
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// chunkCorpus renders files as "--- path ---\ncontent" blocks and packs them
// into chunks under MaxChunkBytes. A single oversized file becomes its own
// chunk rather than being dropped.
func (e *Extractor) chunkCorpus(files []source.File) []string {
	maxBytes := e.MaxChunkBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxChunkBytes
	}

	var chunks []string
	var b strings.Builder
	for _, f := range files {
		block := fmt.Sprintf("--- %s ---\n%s\n\n", f.Path, f.Content)
		if b.Len() > 0 && b.Len()+len(block) > maxBytes {
			chunks = append(chunks, b.String())
			b.Reset()
		}
		b.WriteString(block)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
