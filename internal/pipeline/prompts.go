package pipeline

import (
	"fmt"
	"strings"
)

// PromptVersion feeds the chapter fingerprint so cached content is never
// reused across prompt template changes.
const PromptVersion = "v1"

func buildExtractionPrompt(corpus string, maxAbstractions int, language string) string {
	var b strings.Builder
	b.WriteString("Analyze the following codebase excerpt and identify the core conceptual abstractions ")
	b.WriteString("(modules, classes, subsystems) a newcomer must understand.\n\n")
	fmt.Fprintf(&b, "Identify at most %d abstractions. For each, give a short name, a one-paragraph beginner-friendly description", maxAbstractions)
	if language != "" && !strings.EqualFold(language, "english") {
		fmt.Fprintf(&b, " written in %s", language)
	}
	b.WriteString(", and the list of file paths that evidence it.\n\n")
	b.WriteString("Respond with a JSON array only, no prose:\n")
	b.WriteString(`[{"name": "...", "description": "...", "files": ["path1", "path2"]}]`)
	b.WriteString("\n\nCodebase:\n\n")
	b.WriteString(corpus)
	return b.String()
}

func buildRelationshipPrompt(abstractions []Abstraction) string {
	var b strings.Builder
	b.WriteString("Given these codebase abstractions, identify the directed relationships between them. ")
	b.WriteString("Use labels like \"uses\" or \"contains\". An edge from A to B labeled \"uses\" means A depends on B.\n\n")
	b.WriteString("Abstractions:\n")
	for _, a := range abstractions {
		fmt.Fprintf(&b, "- %s: %s\n", a.Name, a.Description)
	}
	b.WriteString("\nRespond with a JSON array only, no prose:\n")
	b.WriteString(`[{"from": "...", "to": "...", "label": "uses"}]`)
	return b.String()
}

func buildChapterPrompt(a Abstraction, position, total int, context, language string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write chapter %d of %d of a beginner-friendly tutorial about this codebase.\n\n", position, total)
	fmt.Fprintf(&b, "This chapter covers the abstraction %q: %s\n\n", a.Name, a.Description)
	if len(a.Files) > 0 {
		b.WriteString("Relevant files:\n")
		for _, f := range a.Files {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		b.WriteString("\n")
	}
	if context != "" {
		b.WriteString("Earlier chapters covered:\n")
		b.WriteString(context)
		b.WriteString("\n\n")
	}
	lang := language
	if lang == "" {
		lang = "english"
	}
	fmt.Fprintf(&b, "Write the chapter in %s as markdown. Start directly with the prose; do not repeat the chapter title. ", lang)
	b.WriteString("Explain the concept from first principles, reference the files above, and keep the tone welcoming.")
	return b.String()
}
