package main

// Preview the HTML renderer against a sample artifact:
//   go run ./cmd/renderdemo -out ./out/sample_tutorial.html

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tutorial-backend/internal/pipeline"
	"tutorial-backend/internal/render"
)

func main() {
	outPath := flag.String("out", "./out/sample_tutorial.html", "output path for the rendered HTML")
	flag.Parse()

	artifact := sampleArtifact()

	html := render.HTML(artifact)

	if err := writeOutput(*outPath, html); err != nil {
		fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
		os.Exit(1)
	}

	if err := validateRenderedHTML(*outPath); err != nil {
		fmt.Fprintf(os.Stderr, "render validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OK: wrote %s\n", *outPath)
}

func sampleArtifact() pipeline.Artifact {
	chapters := []pipeline.Chapter{
		{
			Index: 1,
			Title: "Request Router",
			Content: "## Chapter 1: Request Router\n\nThe router matches an incoming path " +
				"against registered patterns and dispatches to a handler.\n\n```go\n" +
				"mux.Handle(\"/jobs\", jobsHandler)\n```\n\nEach pattern is checked in " +
				"registration order, so more specific routes go first.",
		},
		{
			Index: 2,
			Title: "Middleware Chain",
			Content: "## Chapter 2: Middleware Chain\n\nMiddleware wraps a handler with " +
				"behavior that runs before and after it. The chain from the previous " +
				"chapter's router is built outside-in:\n\n1. request id\n2. logging\n3. recovery",
		},
	}
	return pipeline.Assemble("Sample Web Framework", chapters)
}

func writeOutput(path, html string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(html), 0o644)
}

func validateRenderedHTML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	content := string(data)
	for _, marker := range []string{"<!DOCTYPE html>", "<h2", "Table of Contents", "</html>"} {
		if !strings.Contains(content, marker) {
			return fmt.Errorf("rendered HTML missing %q", marker)
		}
	}
	return nil
}
