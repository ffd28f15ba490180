package brands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/brandforge/internal/logger"
	"github.com/jonathan/brandforge/internal/storage"
)

// ExtractionRequest is the source material a new extraction job starts from.
type ExtractionRequest struct {
	BrandID        uuid.UUID
	Slug           string
	SourceType     string
	SourceURL      string
	PDFStoragePath string
	Sources        []Source
}

// JobEnqueuer creates the follow-up jobs that drive the brand lifecycle.
// Implemented by the job store.
type JobEnqueuer interface {
	EnqueueExtraction(ctx context.Context, req ExtractionRequest) (uuid.UUID, error)
	EnqueueTemplateGeneration(ctx context.Context, brandID uuid.UUID, slug string) (uuid.UUID, error)
}

// Service owns brand rows and their assets.
type Service struct {
	pool    *pgxpool.Pool
	jobs    JobEnqueuer
	storage storage.Provider
	log     *logger.Logger
}

// NewService creates a brand service.
func NewService(pool *pgxpool.Pool, jobs JobEnqueuer, store storage.Provider, log *logger.Logger) *Service {
	return &Service{pool: pool, jobs: jobs, storage: store, log: log.WithComponent("brands")}
}

// CreateParams describes a new brand.
type CreateParams struct {
	Name           string
	Slug           string
	SourceType     string
	SourceURL      string
	PDFStoragePath string
	Sources        []Source
}

// Create inserts a brand in pending status and enqueues its extraction job.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Brand, uuid.UUID, error) {
	sourcesJSON, err := json.Marshal(params.Sources)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("failed to marshal sources: %w", err)
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO brands (name, slug, source_url, source_type, sources)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, slug, name, COALESCE(source_url, ''), source_type, sources, status,
		           COALESCE(error_message, ''), archived, created_at, updated_at`,
		params.Name, params.Slug, nullable(params.SourceURL), params.SourceType, sourcesJSON,
	)
	brand, err := scanBrand(row)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("failed to create brand: %w", err)
	}

	jobID, err := s.jobs.EnqueueExtraction(ctx, ExtractionRequest{
		BrandID:        brand.ID,
		Slug:           brand.Slug,
		SourceType:     params.SourceType,
		SourceURL:      params.SourceURL,
		PDFStoragePath: params.PDFStoragePath,
		Sources:        params.Sources,
	})
	if err != nil {
		return nil, uuid.Nil, err
	}

	s.log.WithField("brand", brand.Slug).Infof("brand created, extraction job %s", jobID)
	return brand, jobID, nil
}

// Approve moves a reviewed brand out of awaiting_review and enqueues
// template generation.
func (s *Service) Approve(ctx context.Context, slug string) (uuid.UUID, error) {
	brand, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return uuid.Nil, err
	}
	if brand == nil {
		return uuid.Nil, fmt.Errorf("brand not found: %s", slug)
	}
	if brand.Status != StatusAwaitingReview {
		return uuid.Nil, fmt.Errorf("brand must be in awaiting_review status to approve (current: %s)", brand.Status)
	}

	if err := s.UpdateStatus(ctx, brand.ID, StatusExtracted, ""); err != nil {
		return uuid.Nil, err
	}
	return s.jobs.EnqueueTemplateGeneration(ctx, brand.ID, brand.Slug)
}

// ReExtract re-enters the state machine from a terminal or ready state by
// creating a fresh extraction job from the brand's stored source.
func (s *Service) ReExtract(ctx context.Context, slug string) (uuid.UUID, error) {
	brand, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return uuid.Nil, err
	}
	if brand == nil {
		return uuid.Nil, fmt.Errorf("brand not found: %s", slug)
	}
	if brand.SourceType == "url" && brand.SourceURL == "" && len(brand.Sources) == 0 {
		return uuid.Nil, fmt.Errorf("brand has no source URL to re-extract from")
	}

	if err := s.UpdateStatus(ctx, brand.ID, StatusPending, ""); err != nil {
		return uuid.Nil, err
	}

	req := ExtractionRequest{
		BrandID:    brand.ID,
		Slug:       brand.Slug,
		SourceType: brand.SourceType,
		SourceURL:  brand.SourceURL,
		Sources:    brand.Sources,
	}
	if brand.SourceType == "pdf" {
		req.PDFStoragePath = SourcePDFPath(brand.Slug)
	}
	return s.jobs.EnqueueExtraction(ctx, req)
}

// RegenerateTemplates enqueues a fresh template generation job.
func (s *Service) RegenerateTemplates(ctx context.Context, slug string) (uuid.UUID, error) {
	brand, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return uuid.Nil, err
	}
	if brand == nil {
		return uuid.Nil, fmt.Errorf("brand not found: %s", slug)
	}
	return s.jobs.EnqueueTemplateGeneration(ctx, brand.ID, brand.Slug)
}

// UpdateStatus sets the brand status and error message. Invoked by the job
// runner on job outcomes and by the explicit lifecycle actions above.
func (s *Service) UpdateStatus(ctx context.Context, brandID uuid.UUID, status Status, errorMessage string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE brands SET status = $2, error_message = $3, updated_at = NOW() WHERE id = $1`,
		brandID, string(status), nullable(errorMessage),
	)
	if err != nil {
		return fmt.Errorf("failed to update brand status: %w", err)
	}
	return nil
}

// UpsertAsset records the storage path of a generated asset.
func (s *Service) UpsertAsset(ctx context.Context, brandID uuid.UUID, assetType, filePath string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO brand_assets (brand_id, asset_type, file_path)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (brand_id, asset_type) DO UPDATE SET file_path = $3, created_at = NOW()`,
		brandID, assetType, filePath,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert asset %s: %w", assetType, err)
	}
	return nil
}

// GetAssetByType returns a brand asset, or nil if absent.
func (s *Service) GetAssetByType(ctx context.Context, brandID uuid.UUID, assetType string) (*Asset, error) {
	var a Asset
	err := s.pool.QueryRow(ctx,
		`SELECT id, brand_id, asset_type, file_path, created_at
		 FROM brand_assets WHERE brand_id = $1 AND asset_type = $2`,
		brandID, assetType,
	).Scan(&a.ID, &a.BrandID, &a.AssetType, &a.FilePath, &a.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get asset %s: %w", assetType, err)
	}
	return &a, nil
}

// GetAssets returns all assets for a brand.
func (s *Service) GetAssets(ctx context.Context, brandID uuid.UUID) ([]Asset, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, brand_id, asset_type, file_path, created_at FROM brand_assets WHERE brand_id = $1`,
		brandID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.ID, &a.BrandID, &a.AssetType, &a.FilePath, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, nil
}

// GetBySlug returns a non-archived brand by slug, or nil if absent.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Brand, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, slug, name, COALESCE(source_url, ''), source_type, sources, status,
		        COALESCE(error_message, ''), archived, created_at, updated_at
		 FROM brands WHERE slug = $1 AND archived = FALSE`,
		slug,
	)
	brand, err := scanBrand(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get brand: %w", err)
	}
	return brand, nil
}

// List returns all non-archived brands, newest first.
func (s *Service) List(ctx context.Context) ([]Brand, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, slug, name, COALESCE(source_url, ''), source_type, sources, status,
		        COALESCE(error_message, ''), archived, created_at, updated_at
		 FROM brands WHERE archived = FALSE ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	defer rows.Close()

	var out []Brand
	for rows.Next() {
		brand, err := scanBrand(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan brand: %w", err)
		}
		out = append(out, *brand)
	}
	return out, nil
}

// Archive soft-deletes a brand.
func (s *Service) Archive(ctx context.Context, slug string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE brands SET archived = TRUE WHERE slug = $1`, slug)
	if err != nil {
		return fmt.Errorf("failed to archive brand: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("brand not found: %s", slug)
	}
	return nil
}

// DeletePermanently removes a brand row and best-effort deletes its
// stored assets.
func (s *Service) DeletePermanently(ctx context.Context, slug string) error {
	brand, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if brand == nil {
		return fmt.Errorf("brand not found: %s", slug)
	}

	assets, err := s.GetAssets(ctx, brand.ID)
	if err != nil {
		return err
	}
	for _, a := range assets {
		if err := s.storage.Delete(ctx, a.FilePath); err != nil {
			s.log.WithField("path", a.FilePath).Warnf("failed to delete asset file: %v", err)
		}
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM brands WHERE id = $1`, brand.ID); err != nil {
		return fmt.Errorf("failed to delete brand: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBrand(row rowScanner) (*Brand, error) {
	var b Brand
	var sourcesJSON []byte
	var status string
	err := row.Scan(&b.ID, &b.Slug, &b.Name, &b.SourceURL, &b.SourceType, &sourcesJSON,
		&status, &b.ErrorMessage, &b.Archived, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Status = Status(status)
	if len(sourcesJSON) > 0 {
		if err := json.Unmarshal(sourcesJSON, &b.Sources); err != nil {
			return nil, fmt.Errorf("failed to decode sources: %w", err)
		}
	}
	return &b, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
