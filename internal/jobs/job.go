// Package jobs provides the durable job store and the scheduler that
// drives the extraction, template generation, and render pipelines.
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/brandforge/internal/brands"
	"github.com/jonathan/brandforge/internal/documents"
)

// Type discriminates job payloads and selects the pipeline handler.
type Type string

const (
	TypeBrandExtraction         Type = "brand_extraction"
	TypeBrandTemplateGeneration Type = "brand_template_generation"
	TypeDocumentRender          Type = "document_render"
)

// Status is the job lifecycle state. Transitions are monotonic:
// queued -> running -> completed | failed.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Entity types a job may be tied to.
const (
	EntityBrand    = "brand"
	EntityDocument = "document"
)

// ProgressEntry is one append-only progress log line.
type ProgressEntry struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Job is a job row. Payload stays raw until the handler decodes it into
// the variant matching Type.
type Job struct {
	ID           uuid.UUID
	Type         Type
	Status       Status
	EntityType   string
	EntityID     uuid.UUID
	Payload      json.RawMessage
	Result       json.RawMessage
	ErrorMessage string
	ProgressLog  []ProgressEntry
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
}

// ExtractionPayload drives a brand_extraction job. Either Sources, or
// SourceType with its matching field, must be set.
type ExtractionPayload struct {
	BrandID        uuid.UUID       `json:"brandId" validate:"required"`
	Slug           string          `json:"slug" validate:"required"`
	SourceType     string          `json:"sourceType,omitempty"`
	SourceURL      string          `json:"sourceUrl,omitempty"`
	PDFStoragePath string          `json:"pdfStoragePath,omitempty"`
	Sources        []brands.Source `json:"sources,omitempty" validate:"dive"`
}

// TemplatePayload drives a brand_template_generation job.
type TemplatePayload struct {
	BrandID uuid.UUID `json:"brandId" validate:"required"`
	Slug    string    `json:"slug" validate:"required"`
}

// RenderPayload drives a document_render job.
type RenderPayload struct {
	DocumentID uuid.UUID        `json:"documentId" validate:"required"`
	BrandID    uuid.UUID        `json:"brandId" validate:"required"`
	BrandSlug  string           `json:"brandSlug" validate:"required"`
	Format     documents.Format `json:"format" validate:"required,oneof=report slides"`
}

var validate = validator.New()

// decodePayload unmarshals and validates a typed payload.
func decodePayload[T any](raw json.RawMessage) (T, error) {
	var payload T
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, fmt.Errorf("failed to decode payload: %w", err)
	}
	if err := validate.Struct(payload); err != nil {
		return payload, fmt.Errorf("invalid payload: %w", err)
	}
	return payload, nil
}
