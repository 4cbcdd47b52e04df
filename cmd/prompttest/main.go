package main

// Iterate on pipeline prompts against a local repository:
//   go run ./cmd/prompttest -repo ./some/checkout -out tutorial.json

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tutorial-backend/internal/llm"
	openai "tutorial-backend/internal/llm/openai"
	"tutorial-backend/internal/pipeline"
	"tutorial-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	repoPath := flag.String("repo", "", "Path to a local repository checkout")
	projectName := flag.String("project", "", "Project name for the tutorial (defaults to the repo dir name)")
	language := flag.String("language", cfg.TutorialLanguage, "Tutorial language")
	maxAbstractions := flag.Int("max-abstractions", cfg.MaxAbstractions, "Abstraction cap")
	outPath := flag.String("out", "", "Path to write the artifact JSON (optional)")
	model := flag.String("model", cfg.LLMModel, "LLM model")
	flag.Parse()

	if strings.TrimSpace(*repoPath) == "" {
		exitErr("repo path is required")
	}

	client, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"), *model)
	if err != nil {
		exitErr(err.Error())
	}

	name := strings.TrimSpace(*projectName)
	if name == "" {
		name = filepath.Base(strings.TrimRight(*repoPath, "/"))
	}

	runner := pipeline.NewRunner(llm.Client(client), pipeline.NewMemoryChapterCache(), *model)
	artifact, err := runner.Run(context.Background(), pipeline.Request{
		RepoRef:         *repoPath,
		ProjectName:     name,
		Language:        *language,
		MaxAbstractions: *maxAbstractions,
		MaxFileSize:     cfg.MaxFileSizeBytes,
		UseCache:        false,
	}, func(step string, progress int, message string) {
		fmt.Printf("[%3d%%] %-20s %s\n", progress, step, message)
	})
	if err != nil {
		exitErr(err.Error())
	}

	payload, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		exitErr(err.Error())
	}

	if strings.TrimSpace(*outPath) == "" {
		fmt.Println(string(payload))
		return
	}
	if err := os.WriteFile(*outPath, payload, 0o644); err != nil {
		exitErr(err.Error())
	}
	fmt.Printf("OK: wrote %s (%d chapters)\n", *outPath, len(artifact.Chapters))
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
