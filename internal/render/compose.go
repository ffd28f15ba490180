// Package render composes documents from markdown and brand templates,
// and prints them to PDF with a headless browser.
package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Format selects the document layout.
type Format string

const (
	FormatReport Format = "report"
	FormatSlides Format = "slides"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// contentRegionPattern matches the template's content region. (?s) lets
// the region span lines.
var contentRegionPattern = regexp.MustCompile(`(?s)<div id="content">.*?</div>`)

var slideHeadingPattern = regexp.MustCompile(`(?i)<h2[^>]*>`)

// Compose converts markdown to HTML and injects it into the template's
// content region. Templates without a content region get the content
// appended before </body>. Slides content is additionally split into
// slide sections at second-level headings.
func Compose(templateHTML, markdownSource string, format Format) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(markdownSource), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}

	content := buf.String()
	if format == FormatSlides {
		content = wrapSlides(content)
	}

	return injectContent(templateHTML, content), nil
}

// injectContent places content into the template. ReplaceAllLiteralString
// keeps $ sequences in the generated content intact.
func injectContent(templateHTML, content string) string {
	wrapped := `<div id="content">` + content + `</div>`
	if contentRegionPattern.MatchString(templateHTML) {
		return contentRegionPattern.ReplaceAllLiteralString(templateHTML, wrapped)
	}
	if strings.Contains(templateHTML, "</body>") {
		return strings.Replace(templateHTML, "</body>", wrapped+"\n</body>", 1)
	}
	return templateHTML + wrapped
}

// wrapSlides splits content at <h2> headings and wraps each segment in a
// slide section. Content before the first heading becomes its own slide.
func wrapSlides(content string) string {
	matches := slideHeadingPattern.FindAllStringIndex(content, -1)
	if len(matches) == 0 {
		return `<section class="slide">` + content + `</section>`
	}

	var segments []string
	if lead := strings.TrimSpace(content[:matches[0][0]]); lead != "" {
		segments = append(segments, lead)
	}
	for i, m := range matches {
		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		segments = append(segments, content[m[0]:end])
	}

	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(`<section class="slide">`)
		b.WriteString(seg)
		b.WriteString("</section>\n")
	}
	return b.String()
}
