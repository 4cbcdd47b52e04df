package extract

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// IsDocFile reports whether a repository file should be run through document
// text extraction instead of being read verbatim.
func IsDocFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".pdf"
}

// DocText extracts plain text from an in-memory document payload so
// repository docs (design notes, manuals) can serve as abstraction evidence.
// Library used: github.com/ledongthuc/pdf.
func DocText(ctx context.Context, path string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return extractPDF(data)
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
