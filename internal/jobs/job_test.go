package jobs

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/brandforge/internal/documents"
)

func TestDecodeExtractionPayload(t *testing.T) {
	brandID := uuid.New()
	raw := []byte(`{
		"brandId": "` + brandID.String() + `",
		"slug": "acme",
		"sourceType": "url",
		"sourceUrl": "https://acme.com"
	}`)

	payload, err := decodePayload[ExtractionPayload](raw)
	require.NoError(t, err)
	assert.Equal(t, brandID, payload.BrandID)
	assert.Equal(t, "acme", payload.Slug)
	assert.Equal(t, "url", payload.SourceType)
	assert.Empty(t, payload.Sources)
}

func TestDecodeExtractionPayloadWithSources(t *testing.T) {
	raw := []byte(`{
		"brandId": "` + uuid.NewString() + `",
		"slug": "acme",
		"sources": [
			{"type": "url", "url": "https://acme.com"},
			{"type": "pdf", "storagePath": "brands/acme/source.pdf"}
		]
	}`)

	payload, err := decodePayload[ExtractionPayload](raw)
	require.NoError(t, err)
	require.Len(t, payload.Sources, 2)
	assert.Equal(t, "url", payload.Sources[0].Type)
	assert.Equal(t, "brands/acme/source.pdf", payload.Sources[1].StoragePath)
}

func TestDecodePayloadMissingRequiredField(t *testing.T) {
	_, err := decodePayload[TemplatePayload]([]byte(`{"slug": "acme"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid payload")
}

func TestDecodeRenderPayloadRejectsBadFormat(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"documentId": uuid.NewString(),
		"brandId":    uuid.NewString(),
		"brandSlug":  "acme",
		"format":     "poster",
	})
	require.NoError(t, err)

	_, decodeErr := decodePayload[RenderPayload](raw)
	require.Error(t, decodeErr)
}

func TestDecodeRenderPayload(t *testing.T) {
	docID := uuid.New()
	raw, err := json.Marshal(RenderPayload{
		DocumentID: docID,
		BrandID:    uuid.New(),
		BrandSlug:  "acme",
		Format:     documents.FormatReport,
	})
	require.NoError(t, err)

	payload, decodeErr := decodePayload[RenderPayload](raw)
	require.NoError(t, decodeErr)
	assert.Equal(t, docID, payload.DocumentID)
	assert.Equal(t, documents.FormatReport, payload.Format)
}

func TestDecodePayloadMalformedJSON(t *testing.T) {
	_, err := decodePayload[TemplatePayload]([]byte(`{`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode payload")
}
