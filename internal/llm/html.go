// Package llm - html.go post-processes model replies that should contain
// a complete HTML document.
package llm

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	docStartMarker = "<!DOCTYPE"
	docEndMarker   = "</html>"
)

// dataURIPattern matches url(data:...) blobs large enough to have caused
// output truncation (embedded fonts and images are the usual culprits).
var dataURIPattern = regexp.MustCompile(`url\(data:[^)]{1000,}\)`)

// ExtractHTMLDocument slices a complete HTML document out of a model reply,
// discarding any surrounding prose. If the document start marker is present
// but the end marker is missing, the output was truncated and a best-effort
// repair is applied. The returned document is validated to contain both
// markers; an error means the attempt should be retried.
func ExtractHTMLDocument(text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("no text content in model response")
	}

	start := strings.Index(text, docStartMarker)
	end := strings.LastIndex(text, docEndMarker)

	switch {
	case start >= 0 && end >= 0:
		text = text[start : end+len(docEndMarker)]
	case start >= 0:
		text = RepairTruncatedHTML(text[start:])
	}

	if err := ValidateHTMLDocument(text); err != nil {
		return "", err
	}
	return text, nil
}

// RepairTruncatedHTML attempts to salvage a truncated HTML document:
// oversized embedded data URIs are stripped (they are the most common
// cause of truncation) and missing structural closing tags are appended.
func RepairTruncatedHTML(text string) string {
	text = dataURIPattern.ReplaceAllString(text, "url()")

	if !strings.Contains(text, "</style>") {
		text += "\n</style>"
	}
	if !strings.Contains(text, "</body>") {
		text += "\n</body>"
	}
	if !strings.Contains(text, docEndMarker) {
		text += "\n" + docEndMarker
	}
	return text
}

// ValidateHTMLDocument checks that text contains the opening and closing
// document markers.
func ValidateHTMLDocument(text string) error {
	if !strings.Contains(text, "<html") || !strings.Contains(text, docEndMarker) {
		return fmt.Errorf("model response is not a complete HTML document")
	}
	return nil
}
