// Package documents provides the document entity service. A document is
// created alongside its render job; status transitions are driven by that
// job's outcome.
package documents

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/brandforge/internal/logger"
	"github.com/jonathan/brandforge/internal/storage"
)

// Status is the document lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRendering Status = "rendering"
	StatusReady     Status = "ready"
	StatusFailed    Status = "failed"
)

// Format is the output format discriminator.
type Format string

const (
	FormatReport Format = "report"
	FormatSlides Format = "slides"
)

// Document is a document row.
type Document struct {
	ID           uuid.UUID
	BrandID      uuid.UUID
	Title        string
	Format       Format
	MarkdownPath string
	PDFPath      string
	RenderedHTML string
	EditedHTML   string
	Status       Status
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MarkdownPathFor returns the storage path for a document's source markdown.
func MarkdownPathFor(docID uuid.UUID) string {
	return fmt.Sprintf("documents/%s/input.md", docID)
}

// PDFPathFor returns the storage path for a document's rendered output.
func PDFPathFor(docID uuid.UUID) string {
	return fmt.Sprintf("documents/%s/output.pdf", docID)
}

// RenderJobEnqueuer creates render jobs. Implemented by the job store.
type RenderJobEnqueuer interface {
	EnqueueRender(ctx context.Context, documentID, brandID uuid.UUID, brandSlug string, format Format) (uuid.UUID, error)
}

// Service owns document rows.
type Service struct {
	pool    *pgxpool.Pool
	jobs    RenderJobEnqueuer
	storage storage.Provider
	log     *logger.Logger
}

// NewService creates a document service.
func NewService(pool *pgxpool.Pool, jobs RenderJobEnqueuer, store storage.Provider, log *logger.Logger) *Service {
	return &Service{pool: pool, jobs: jobs, storage: store, log: log.WithComponent("documents")}
}

// CreateParams describes a new document.
type CreateParams struct {
	BrandID         uuid.UUID
	BrandSlug       string
	Title           string
	Format          Format
	MarkdownContent string
}

// Create inserts a document in pending status, saves its markdown, and
// enqueues the render job.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Document, uuid.UUID, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO documents (brand_id, title, format, markdown_path)
		 VALUES ($1, $2, $3, 'pending')
		 RETURNING id, brand_id, COALESCE(title, ''), format, markdown_path, COALESCE(pdf_path, ''),
		           COALESCE(rendered_html, ''), COALESCE(edited_html, ''), status,
		           COALESCE(error_message, ''), created_at, updated_at`,
		params.BrandID, nullable(params.Title), string(params.Format),
	)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("failed to create document: %w", err)
	}

	mdPath := MarkdownPathFor(doc.ID)
	if err := s.storage.Save(ctx, mdPath, []byte(params.MarkdownContent)); err != nil {
		return nil, uuid.Nil, err
	}

	if _, err := s.pool.Exec(ctx,
		`UPDATE documents SET markdown_path = $2 WHERE id = $1`, doc.ID, mdPath,
	); err != nil {
		return nil, uuid.Nil, fmt.Errorf("failed to set markdown path: %w", err)
	}
	doc.MarkdownPath = mdPath

	jobID, err := s.jobs.EnqueueRender(ctx, doc.ID, params.BrandID, params.BrandSlug, params.Format)
	if err != nil {
		return nil, uuid.Nil, err
	}

	s.log.WithField("document", doc.ID.String()).Infof("document created, render job %s", jobID)
	return doc, jobID, nil
}

// GetByID returns a document by ID, or nil if absent.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, brand_id, COALESCE(title, ''), format, markdown_path, COALESCE(pdf_path, ''),
		        COALESCE(rendered_html, ''), COALESCE(edited_html, ''), status,
		        COALESCE(error_message, ''), created_at, updated_at
		 FROM documents WHERE id = $1`,
		id,
	)
	doc, err := scanDocument(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListByBrand returns a brand's documents, newest first.
func (s *Service) ListByBrand(ctx context.Context, brandID uuid.UUID) ([]Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, brand_id, COALESCE(title, ''), format, markdown_path, COALESCE(pdf_path, ''),
		        COALESCE(rendered_html, ''), COALESCE(edited_html, ''), status,
		        COALESCE(error_message, ''), created_at, updated_at
		 FROM documents WHERE brand_id = $1 ORDER BY created_at DESC`,
		brandID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		out = append(out, *doc)
	}
	return out, nil
}

// UpdateStatus sets the document status and error message. Invoked by the
// job runner on job outcomes.
func (s *Service) UpdateStatus(ctx context.Context, docID uuid.UUID, status Status, errorMessage string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE documents SET status = $2, error_message = $3, updated_at = NOW() WHERE id = $1`,
		docID, string(status), nullable(errorMessage),
	)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	return nil
}

// SetRendered records the render outputs and marks the document ready.
// The composed markup is retained so the document can later be edited and
// re-rendered without repeating content conversion.
func (s *Service) SetRendered(ctx context.Context, docID uuid.UUID, pdfPath, renderedHTML string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE documents SET pdf_path = $2, rendered_html = $3, status = $4, updated_at = NOW() WHERE id = $1`,
		docID, pdfPath, renderedHTML, string(StatusReady),
	)
	if err != nil {
		return fmt.Errorf("failed to set render outputs: %w", err)
	}
	return nil
}

// SaveEditedHTML stores a user-edited copy of the composed markup.
func (s *Service) SaveEditedHTML(ctx context.Context, docID uuid.UUID, html string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE documents SET edited_html = $2, updated_at = NOW() WHERE id = $1`,
		docID, html,
	)
	if err != nil {
		return fmt.Errorf("failed to save edited html: %w", err)
	}
	return nil
}

// GetEditableHTML returns the markup to edit or re-render: the edited copy
// if one exists, else the composed markup from the last render.
func (s *Service) GetEditableHTML(ctx context.Context, docID uuid.UUID) (string, error) {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return "", err
	}
	if doc == nil {
		return "", fmt.Errorf("document not found: %s", docID)
	}
	if doc.EditedHTML != "" {
		return doc.EditedHTML, nil
	}
	return doc.RenderedHTML, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var d Document
	var format, status string
	err := row.Scan(&d.ID, &d.BrandID, &d.Title, &format, &d.MarkdownPath, &d.PDFPath,
		&d.RenderedHTML, &d.EditedHTML, &status, &d.ErrorMessage, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.Format = Format(format)
	d.Status = Status(status)
	return &d, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
