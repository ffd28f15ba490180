package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/brandforge/internal/brands"
	"github.com/jonathan/brandforge/internal/documents"
	"github.com/jonathan/brandforge/internal/logger"
)

const jobColumns = `id, type, status, entity_type, entity_id, payload, result, error_message, progress_log, started_at, completed_at, created_at`

// Store persists jobs in Postgres. It is safe for concurrent use, and
// the claim operation is safe across multiple processes.
type Store struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewStore creates a job store backed by the given pool.
func NewStore(pool *pgxpool.Pool, log *logger.Logger) *Store {
	return &Store{pool: pool, log: log.WithComponent("jobs")}
}

// CreateParams describes a new job.
type CreateParams struct {
	Type       Type
	EntityType string
	EntityID   uuid.UUID
	Payload    any
}

// Create inserts a queued job.
func (s *Store) Create(ctx context.Context, params CreateParams) (uuid.UUID, error) {
	payload, err := json.Marshal(params.Payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}

	var id uuid.UUID
	err = s.pool.QueryRow(ctx,
		`INSERT INTO jobs (type, entity_type, entity_id, payload)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		string(params.Type), params.EntityType, params.EntityID, payload,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.log.WithJob(id.String()).Infof("job created (%s)", params.Type)
	return id, nil
}

// ClaimBatch atomically claims up to limit queued jobs, oldest first,
// marking them running. SKIP LOCKED keeps concurrent claimers from
// taking the same job.
func (s *Store) ClaimBatch(ctx context.Context, limit int) ([]Job, error) {
	rows, err := s.pool.Query(ctx,
		`UPDATE jobs SET status = 'running', started_at = NOW()
		 WHERE id IN (
		   SELECT id FROM jobs WHERE status = 'queued' ORDER BY created_at ASC LIMIT $1
		   FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+jobColumns,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to claim jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// MarkCompleted transitions a running job to completed, recording an
// optional result payload. Jobs already in a terminal state are left
// untouched.
func (s *Store) MarkCompleted(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	if result == nil {
		result = json.RawMessage(`{}`)
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = 'completed', completed_at = NOW(), result = $2
		 WHERE id = $1 AND status = 'running'`,
		id, result,
	)
	if err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}
	return nil
}

// MarkFailed transitions a running job to failed with an error message.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = 'failed', completed_at = NOW(), error_message = $2
		 WHERE id = $1 AND status = 'running'`,
		id, errorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return nil
}

// AppendProgress appends one entry to the job's progress log.
func (s *Store) AppendProgress(ctx context.Context, id uuid.UUID, message string) error {
	entry, err := json.Marshal([]ProgressEntry{{Message: message, Timestamp: time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("failed to marshal progress entry: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE jobs SET progress_log = progress_log || $2::jsonb WHERE id = $1`,
		id, string(entry),
	)
	if err != nil {
		return fmt.Errorf("failed to append progress: %w", err)
	}
	s.log.WithJob(id.String()).Debug(message)
	return nil
}

// GetByID loads a job, or nil when absent.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return job, err
}

// GetLatestForEntity returns the most recent job for an entity, or nil.
func (s *Store) GetLatestForEntity(ctx context.Context, entityType string, entityID uuid.UUID) (*Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs
		 WHERE entity_type = $1 AND entity_id = $2
		 ORDER BY created_at DESC LIMIT 1`,
		entityType, entityID,
	)
	job, err := scanJob(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return job, err
}

// EnqueueExtraction implements brands.JobEnqueuer.
func (s *Store) EnqueueExtraction(ctx context.Context, req brands.ExtractionRequest) (uuid.UUID, error) {
	return s.Create(ctx, CreateParams{
		Type:       TypeBrandExtraction,
		EntityType: EntityBrand,
		EntityID:   req.BrandID,
		Payload: ExtractionPayload{
			BrandID:        req.BrandID,
			Slug:           req.Slug,
			SourceType:     req.SourceType,
			SourceURL:      req.SourceURL,
			PDFStoragePath: req.PDFStoragePath,
			Sources:        req.Sources,
		},
	})
}

// EnqueueTemplateGeneration implements brands.JobEnqueuer.
func (s *Store) EnqueueTemplateGeneration(ctx context.Context, brandID uuid.UUID, slug string) (uuid.UUID, error) {
	return s.Create(ctx, CreateParams{
		Type:       TypeBrandTemplateGeneration,
		EntityType: EntityBrand,
		EntityID:   brandID,
		Payload:    TemplatePayload{BrandID: brandID, Slug: slug},
	})
}

// EnqueueRender implements documents.RenderJobEnqueuer.
func (s *Store) EnqueueRender(ctx context.Context, documentID, brandID uuid.UUID, brandSlug string, format documents.Format) (uuid.UUID, error) {
	return s.Create(ctx, CreateParams{
		Type:       TypeDocumentRender,
		EntityType: EntityDocument,
		EntityID:   documentID,
		Payload: RenderPayload{
			DocumentID: documentID,
			BrandID:    brandID,
			BrandSlug:  brandSlug,
			Format:     format,
		},
	})
}

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	var jobType, status string
	var entityType *string
	var entityID *uuid.UUID
	var errorMessage *string
	var progressLog []byte
	err := row.Scan(&j.ID, &jobType, &status, &entityType, &entityID, &j.Payload,
		&j.Result, &errorMessage, &progressLog, &j.StartedAt, &j.CompletedAt, &j.CreatedAt)
	if err != nil {
		return nil, err
	}
	j.Type = Type(jobType)
	j.Status = Status(status)
	if entityType != nil {
		j.EntityType = *entityType
	}
	if entityID != nil {
		j.EntityID = *entityID
	}
	if errorMessage != nil {
		j.ErrorMessage = *errorMessage
	}
	if len(progressLog) > 0 {
		if err := json.Unmarshal(progressLog, &j.ProgressLog); err != nil {
			return nil, fmt.Errorf("failed to decode progress log: %w", err)
		}
	}
	return &j, nil
}
