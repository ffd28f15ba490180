// Package brands provides the brand entity service. Brand status
// transitions are driven by job outcomes via the job runner, plus the
// explicit approve / re-extract / regenerate actions.
package brands

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the brand lifecycle state.
type Status string

const (
	StatusPending             Status = "pending"
	StatusExtracting          Status = "extracting"
	StatusExtracted           Status = "extracted"
	StatusAwaitingReview      Status = "awaiting_review"
	StatusGeneratingTemplates Status = "generating_templates"
	StatusReady               Status = "ready"
	StatusFailed              Status = "failed"
)

// Asset types stored per brand.
const (
	AssetDesignSystem   = "design_system"
	AssetReportTemplate = "report_template"
	AssetSlidesTemplate = "slides_template"
)

// Brand is a brand row.
type Brand struct {
	ID           uuid.UUID
	Slug         string
	Name         string
	SourceURL    string
	SourceType   string
	Sources      []Source
	Status       Status
	ErrorMessage string
	Archived     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Asset is a stored file belonging to a brand.
type Asset struct {
	ID        uuid.UUID
	BrandID   uuid.UUID
	AssetType string
	FilePath  string
	CreatedAt time.Time
}

// Source is one brand source in a multi-source extraction.
type Source struct {
	Type        string `json:"type" validate:"required,oneof=url pdf"`
	URL         string `json:"url,omitempty"`
	StoragePath string `json:"storagePath,omitempty"`
}

// Storage path helpers. Pipelines and the job runner agree on these
// layouts, so they live here with the owning entity.

// DesignSystemPath returns the storage path for a brand's design system.
func DesignSystemPath(slug string) string {
	return fmt.Sprintf("brands/%s/design-system.html", slug)
}

// ReportTemplatePath returns the storage path for a brand's report template.
func ReportTemplatePath(slug string) string {
	return fmt.Sprintf("brands/%s/report-template.html", slug)
}

// SlidesTemplatePath returns the storage path for a brand's slides template.
func SlidesTemplatePath(slug string) string {
	return fmt.Sprintf("brands/%s/slides-template.html", slug)
}

// SourcePDFPath returns the storage path for a brand's uploaded source PDF.
func SourcePDFPath(slug string) string {
	return fmt.Sprintf("brands/%s/source.pdf", slug)
}
