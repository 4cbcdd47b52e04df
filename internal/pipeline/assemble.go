package pipeline

import (
	"fmt"
	"strings"
)

// Assemble concatenates chapters in sequence order into one self-contained
// markdown document with a table of contents. Pure: same chapters in, same
// artifact out.
func Assemble(projectName string, chapters []Chapter) Artifact {
	refs := make([]ChapterRef, 0, len(chapters))
	for _, ch := range chapters {
		refs = append(refs, ChapterRef{Index: ch.Index, Title: ch.Title})
	}

	var b strings.Builder
	title := strings.TrimSpace(projectName)
	if title == "" {
		title = "Codebase Tutorial"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	if len(chapters) > 0 {
		b.WriteString("## Table of Contents\n\n")
		for _, ch := range chapters {
			fmt.Fprintf(&b, "%d. [%s](#%s)\n", ch.Index, ch.Title, anchor(ch.Index, ch.Title))
		}
		b.WriteString("\n")
	}

	for _, ch := range chapters {
		fmt.Fprintf(&b, "## Chapter %d: %s\n\n", ch.Index, ch.Title)
		b.WriteString(strings.TrimSpace(ch.Content))
		b.WriteString("\n\n")
	}

	return Artifact{
		ProjectName: title,
		Chapters:    refs,
		Content:     strings.TrimRight(b.String(), "\n") + "\n",
	}
}

// anchor mirrors the heading ids markdown renderers derive from
// "## Chapter N: Title".
func anchor(index int, title string) string {
	slug := strings.ToLower(fmt.Sprintf("chapter %d %s", index, title))
	var b strings.Builder
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return b.String()
}
