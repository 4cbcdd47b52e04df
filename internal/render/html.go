package render

import (
	"fmt"
	"html"
	"strings"

	"gitlab.com/golang-commonmark/markdown"

	"tutorial-backend/internal/pipeline"
)

var md = markdown.New(
	markdown.XHTMLOutput(true),
	markdown.Typographer(false),
	markdown.Linkify(true),
)

// HTML renders the assembled tutorial as a standalone HTML document suitable
// for download.
func HTML(artifact pipeline.Artifact) string {
	body := md.RenderToString([]byte(artifact.Content))

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\"/>\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\"/>\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(artifact.ProjectName))
	b.WriteString("<style>\n")
	b.WriteString(documentStyle)
	b.WriteString("</style>\n</head>\n<body>\n<main>\n")
	b.WriteString(body)
	b.WriteString("</main>\n</body>\n</html>\n")
	return b.String()
}

const documentStyle = `body { margin: 0; font-family: -apple-system, "Segoe UI", Roboto, sans-serif; color: #1f2430; background: #f7f7f9; }
main { max-width: 760px; margin: 0 auto; padding: 2rem 1.25rem 4rem; background: #fff; }
h1, h2, h3 { line-height: 1.25; }
h2 { margin-top: 2.5rem; border-bottom: 1px solid #e3e5ea; padding-bottom: .3rem; }
pre { background: #f0f1f4; padding: .75rem 1rem; overflow-x: auto; border-radius: 6px; }
code { font-family: "SF Mono", Consolas, monospace; font-size: .92em; }
a { color: #2458c5; }
`
