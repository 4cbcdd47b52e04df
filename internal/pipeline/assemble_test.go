package pipeline

import (
	"strings"
	"testing"
)

func TestAssembleBuildsDocument(t *testing.T) {
	chapters := []Chapter{
		{Index: 1, Title: "Router", Content: "Routing prose."},
		{Index: 2, Title: "Job Queue", Content: "Queue prose."},
	}
	artifact := Assemble("demo-project", chapters)

	if artifact.ProjectName != "demo-project" {
		t.Errorf("project name = %q", artifact.ProjectName)
	}
	if len(artifact.Chapters) != 2 || artifact.Chapters[1].Title != "Job Queue" {
		t.Errorf("navigation metadata = %v", artifact.Chapters)
	}
	for _, want := range []string{
		"# demo-project",
		"## Table of Contents",
		"1. [Router](#chapter-1-router)",
		"2. [Job Queue](#chapter-2-job-queue)",
		"## Chapter 1: Router",
		"Routing prose.",
		"## Chapter 2: Job Queue",
	} {
		if !strings.Contains(artifact.Content, want) {
			t.Errorf("document missing %q", want)
		}
	}
	if idx1, idx2 := strings.Index(artifact.Content, "## Chapter 1"), strings.Index(artifact.Content, "## Chapter 2"); idx1 > idx2 {
		t.Error("chapters out of order")
	}
}

func TestAssembleIsPure(t *testing.T) {
	chapters := []Chapter{{Index: 1, Title: "A", Content: "body"}}
	first := Assemble("p", chapters)
	second := Assemble("p", chapters)
	if first.Content != second.Content {
		t.Error("assemble is not deterministic")
	}
}

func TestAssembleEmptyChapterList(t *testing.T) {
	artifact := Assemble("p", nil)
	if len(artifact.Chapters) != 0 {
		t.Errorf("unexpected chapters %v", artifact.Chapters)
	}
	if strings.Contains(artifact.Content, "Table of Contents") {
		t.Error("empty document should carry no table of contents")
	}
}
