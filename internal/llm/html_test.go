package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completeDoc = `<!DOCTYPE html>
<html>
<head><style>body { color: red; }</style></head>
<body><h1>Design System</h1></body>
</html>`

func TestExtractHTMLDocument_StripsSurroundingProse(t *testing.T) {
	reply := "Here is the design system you asked for:\n\n" + completeDoc + "\n\nLet me know if you want changes."

	doc, err := ExtractHTMLDocument(reply)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE"))
	assert.True(t, strings.HasSuffix(doc, "</html>"))
	assert.NotContains(t, doc, "Let me know")
}

func TestExtractHTMLDocument_IntactDocumentUnchanged(t *testing.T) {
	doc, err := ExtractHTMLDocument(completeDoc)
	require.NoError(t, err)
	assert.Equal(t, completeDoc, doc)
}

func TestExtractHTMLDocument_EmptyResponse(t *testing.T) {
	_, err := ExtractHTMLDocument("")
	require.Error(t, err)
}

func TestExtractHTMLDocument_NoDocumentAtAll(t *testing.T) {
	_, err := ExtractHTMLDocument("Sorry, I cannot help with that.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a complete HTML document")
}

func TestExtractHTMLDocument_TruncatedIsRepaired(t *testing.T) {
	truncated := `<!DOCTYPE html>
<html>
<head><style>
body { background: url(data:font/woff2;base64,` + strings.Repeat("A", 2000) + `) }
h1 { color: blue; }`

	doc, err := ExtractHTMLDocument(truncated)
	require.NoError(t, err)
	assert.Contains(t, doc, "url()")
	assert.NotContains(t, doc, "AAAA")
	assert.Contains(t, doc, "</style>")
	assert.Contains(t, doc, "</body>")
	assert.True(t, strings.HasSuffix(doc, "</html>"))
}

func TestRepairTruncatedHTML_SmallDataURIsKept(t *testing.T) {
	in := `<!DOCTYPE html><html><head><style>h1 { background: url(data:image/png;base64,SHORT) }</style></head><body></body>`
	out := RepairTruncatedHTML(in)
	assert.Contains(t, out, "url(data:image/png;base64,SHORT)")
	assert.True(t, strings.HasSuffix(out, "</html>"))
}

func TestRepairTruncatedHTML_DoesNotDuplicateClosingTags(t *testing.T) {
	in := `<!DOCTYPE html><html><head><style>a{}</style></head><body><p>hi</p></body>`
	out := RepairTruncatedHTML(in)
	assert.Equal(t, 1, strings.Count(out, "</style>"))
	assert.Equal(t, 1, strings.Count(out, "</body>"))
	assert.Equal(t, 1, strings.Count(out, "</html>"))
}

func TestValidateHTMLDocument(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"complete", completeDoc, false},
		{"missing closing tag", "<!DOCTYPE html><html><body>", true},
		{"missing opening tag", "some text </html>", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHTMLDocument(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
