package pipeline

import (
	"context"
	"errors"
	"fmt"

	"tutorial-backend/internal/llm"
	"tutorial-backend/internal/source"
)

// ErrEmptyArtifact marks a run that produced nothing to assemble: no
// abstractions were identified or no chapters were written.
var ErrEmptyArtifact = errors.New("empty artifact")

// Stage labels, also the current_step value persisted on the job.
const (
	StepFetchSource   = "fetch source"
	StepAbstractions  = "identify abstractions"
	StepRelationships = "map relationships"
	StepSequence      = "order chapters"
	StepChapters      = "write chapters"
	StepAssemble      = "assemble tutorial"
)

// Progress checkpoints persisted after each stage completes.
const (
	ProgressFetched       = 10
	ProgressAbstractions  = 30
	ProgressRelationships = 50
	ProgressSequenced     = 70
	ProgressChapters      = 90
	ProgressDone          = 100
)

// Request carries the per-job generation configuration into the pipeline.
type Request struct {
	RepoRef         string
	ProjectName     string
	IncludePatterns []string
	ExcludePatterns []string
	MaxFileSize     int64
	Language        string
	UseCache        bool
	MaxAbstractions int
}

// ReportFunc receives a progress update after each completed stage. The
// orchestrator persists these as job progress and log entries.
type ReportFunc func(step string, progress int, message string)

// Runner executes the six pipeline stages in order for one job. Stages are
// strictly sequential; cancellation is observed at every stage boundary.
type Runner struct {
	// Provider overrides repository resolution; nil means source.Resolve.
	Provider  source.Provider
	LLM       llm.Client
	Cache     ChapterCache
	Model     string
	MaxTokens int
}

// NewRunner builds a runner over the given model client and chapter cache.
func NewRunner(client llm.Client, cache ChapterCache, model string) *Runner {
	return &Runner{LLM: client, Cache: cache, Model: model}
}

// Run executes the pipeline and returns the assembled artifact. Any stage
// error aborts the run; later stages never execute.
func (r *Runner) Run(ctx context.Context, req Request, report ReportFunc) (Artifact, error) {
	if report == nil {
		report = func(string, int, string) {}
	}

	provider := r.Provider
	if provider == nil {
		provider = source.Resolve(req.RepoRef)
	}
	files, err := provider.Fetch(ctx, req.RepoRef, source.Filters{
		IncludePatterns: req.IncludePatterns,
		ExcludePatterns: req.ExcludePatterns,
		MaxFileSize:     req.MaxFileSize,
	})
	if err != nil {
		return Artifact{}, err
	}
	report(StepFetchSource, ProgressFetched, fmt.Sprintf("fetched %d source files", len(files)))
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}

	extractor := NewExtractor(r.LLM, req.Language)
	extractor.MaxTokens = r.MaxTokens
	abstractions, err := extractor.Extract(ctx, files, req.MaxAbstractions)
	if err != nil {
		return Artifact{}, err
	}
	if len(abstractions) == 0 {
		return Artifact{}, fmt.Errorf("%w: no abstractions identified", ErrEmptyArtifact)
	}
	report(StepAbstractions, ProgressAbstractions, fmt.Sprintf("identified %d abstractions", len(abstractions)))
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}

	mapper := NewMapper(r.LLM)
	mapper.MaxTokens = r.MaxTokens
	relationships, err := mapper.Map(ctx, abstractions)
	if err != nil {
		return Artifact{}, err
	}
	report(StepRelationships, ProgressRelationships, fmt.Sprintf("mapped %d relationships", len(relationships)))
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}

	seq := Sequence(abstractions, relationships)
	report(StepSequence, ProgressSequenced, fmt.Sprintf("ordered %d chapters", len(seq)))
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}

	generator := NewGenerator(r.LLM, r.Cache, req.Language, r.Model)
	generator.MaxTokens = r.MaxTokens
	chapters, err := generator.Generate(ctx, seq, req.UseCache)
	if err != nil {
		return Artifact{}, err
	}
	if len(chapters) == 0 {
		return Artifact{}, fmt.Errorf("%w: no chapters generated", ErrEmptyArtifact)
	}
	report(StepChapters, ProgressChapters, fmt.Sprintf("wrote %d chapters", len(chapters)))
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}

	artifact := Assemble(req.ProjectName, chapters)
	report(StepAssemble, ProgressDone, "tutorial assembled")
	return artifact, nil
}
