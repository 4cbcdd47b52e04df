package pipeline

// Abstraction is a named conceptual unit of the analyzed codebase together
// with the source files that evidence it. Produced by the extractor and
// read-only afterwards.
type Abstraction struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Files       []string `json:"files"`
}

// Relationship is a directed, labeled edge between two abstractions.
// Weight counts how often the same directed pair was reported.
type Relationship struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Label  string `json:"label"`
	Weight int    `json:"weight"`
}

// Chapter is generated prose for one abstraction at its position in the
// teaching sequence.
type Chapter struct {
	Index       int    `json:"index"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Fingerprint string `json:"fingerprint"`
	FromCache   bool   `json:"fromCache"`
}

// ChapterRef is the navigation metadata kept on the assembled artifact.
type ChapterRef struct {
	Index int    `json:"index"`
	Title string `json:"title"`
}

// Artifact is the assembled tutorial document. Immutable once produced.
type Artifact struct {
	ProjectName string       `json:"projectName"`
	Chapters    []ChapterRef `json:"chapters"`
	Content     string       `json:"content"`
}
