package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/brandforge/internal/brands"
	"github.com/jonathan/brandforge/internal/documents"
	"github.com/jonathan/brandforge/internal/extraction"
	"github.com/jonathan/brandforge/internal/logger"
	"github.com/jonathan/brandforge/internal/render"
	"github.com/jonathan/brandforge/internal/storage"
)

const (
	DefaultConcurrency  = 3
	DefaultPollInterval = 2 * time.Second
)

// RunnerStore is the job store surface the runner needs.
type RunnerStore interface {
	ClaimBatch(ctx context.Context, limit int) ([]Job, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, result json.RawMessage) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error
	AppendProgress(ctx context.Context, id uuid.UUID, message string) error
	EnqueueTemplateGeneration(ctx context.Context, brandID uuid.UUID, slug string) (uuid.UUID, error)
}

// BrandDirectory is the brand service surface the handlers need.
type BrandDirectory interface {
	UpdateStatus(ctx context.Context, brandID uuid.UUID, status brands.Status, errorMessage string) error
	UpsertAsset(ctx context.Context, brandID uuid.UUID, assetType, filePath string) error
	GetAssetByType(ctx context.Context, brandID uuid.UUID, assetType string) (*brands.Asset, error)
}

// DocumentDirectory is the document service surface the handlers need.
type DocumentDirectory interface {
	UpdateStatus(ctx context.Context, docID uuid.UUID, status documents.Status, errorMessage string) error
	GetByID(ctx context.Context, id uuid.UUID) (*documents.Document, error)
	SetRendered(ctx context.Context, docID uuid.UUID, pdfPath, renderedHTML string) error
}

// Extractor produces design system HTML from brand sources.
type Extractor interface {
	ExtractFromURL(ctx context.Context, brandID uuid.UUID, url string) (string, error)
	ExtractFromPDF(ctx context.Context, brandID uuid.UUID, storagePath string) (string, error)
	ExtractFromSources(ctx context.Context, brandID uuid.UUID, sources []extraction.SourceInput) (string, error)
}

// TemplateGenerator produces brand templates from a design system.
type TemplateGenerator interface {
	GenerateReport(ctx context.Context, brandID uuid.UUID, designSystemHTML string) (string, error)
	GenerateSlides(ctx context.Context, brandID uuid.UUID, designSystemHTML string) (string, error)
}

// Renderer prints documents to PDF.
type Renderer interface {
	RenderToPDF(ctx context.Context, req render.Request) (string, error)
}

// RunnerConfig tunes the scheduler.
type RunnerConfig struct {
	Concurrency  int
	PollInterval time.Duration
}

// Runner polls the job store and dispatches claimed jobs to pipeline
// handlers through a bounded worker pool. The pool size enforces the
// concurrency limit; the poller only claims as many jobs as there are
// free slots.
type Runner struct {
	store     RunnerStore
	brands    BrandDirectory
	documents DocumentDirectory
	extractor Extractor
	templates TemplateGenerator
	renderer  Renderer
	storage   storage.Provider
	log       *logger.Logger

	concurrency  int
	pollInterval time.Duration

	queue    chan Job
	inflight atomic.Int64
	stopCh   chan struct{}
	pollDone chan struct{}
	wg       sync.WaitGroup
}

// RunnerDeps collects the runner's collaborators.
type RunnerDeps struct {
	Store     RunnerStore
	Brands    BrandDirectory
	Documents DocumentDirectory
	Extractor Extractor
	Templates TemplateGenerator
	Renderer  Renderer
	Storage   storage.Provider
	Log       *logger.Logger
}

// NewRunner creates a runner. Zero config fields take defaults.
func NewRunner(deps RunnerDeps, cfg RunnerConfig) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Runner{
		store:        deps.Store,
		brands:       deps.Brands,
		documents:    deps.Documents,
		extractor:    deps.Extractor,
		templates:    deps.Templates,
		renderer:     deps.Renderer,
		storage:      deps.Storage,
		log:          deps.Log.WithComponent("runner"),
		concurrency:  cfg.Concurrency,
		pollInterval: cfg.PollInterval,
		queue:        make(chan Job, cfg.Concurrency),
		stopCh:       make(chan struct{}),
		pollDone:     make(chan struct{}),
	}
}

// Start launches the worker pool and the poll loop.
func (r *Runner) Start(ctx context.Context) {
	r.log.Infof("job runner started (concurrency: %d)", r.concurrency)

	for i := 0; i < r.concurrency; i++ {
		r.wg.Add(1)
		go r.worker(ctx)
	}

	go r.pollLoop(ctx)
}

// Stop halts polling, drains the queue, and waits for in-flight jobs.
func (r *Runner) Stop() {
	close(r.stopCh)
	<-r.pollDone
	close(r.queue)
	r.wg.Wait()
	r.log.Info("job runner stopped")
}

func (r *Runner) pollLoop(ctx context.Context) {
	defer close(r.pollDone)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.poll(ctx)
		}
	}
}

// poll claims up to the number of free worker slots and feeds the queue.
func (r *Runner) poll(ctx context.Context) {
	slots := r.concurrency - int(r.inflight.Load())
	if slots <= 0 {
		return
	}

	jobs, err := r.store.ClaimBatch(ctx, slots)
	if err != nil {
		r.log.Errorf("job polling error: %v", err)
		return
	}

	for _, job := range jobs {
		r.inflight.Add(1)
		select {
		case r.queue <- job:
		case <-ctx.Done():
			r.inflight.Add(-1)
			return
		}
	}
}

func (r *Runner) worker(ctx context.Context) {
	defer r.wg.Done()
	for job := range r.queue {
		r.execute(ctx, job)
		r.inflight.Add(-1)
	}
}

// execute runs one job to a terminal state. A handler error or panic
// fails the job and cascades the failure to the owning entity.
func (r *Runner) execute(ctx context.Context, job Job) {
	log := r.log.WithJob(job.ID.String())
	log.Infof("executing job (%s)", job.Type)

	err := r.dispatch(ctx, job)
	if err == nil {
		if err := r.store.MarkCompleted(ctx, job.ID, nil); err != nil {
			log.Errorf("failed to mark job completed: %v", err)
			return
		}
		log.Info("job completed")
		return
	}

	log.Errorf("job failed: %v", err)
	if markErr := r.store.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
		log.Errorf("failed to mark job failed: %v", markErr)
	}
	r.failEntity(ctx, job, err)
}

func (r *Runner) dispatch(ctx context.Context, job Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job handler panicked: %v", rec)
		}
	}()

	switch job.Type {
	case TypeBrandExtraction:
		return r.handleExtraction(ctx, job)
	case TypeBrandTemplateGeneration:
		return r.handleTemplateGeneration(ctx, job)
	case TypeDocumentRender:
		return r.handleRender(ctx, job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// failEntity pushes the owning entity into its terminal failure state.
func (r *Runner) failEntity(ctx context.Context, job Job, jobErr error) {
	if job.EntityID == uuid.Nil {
		return
	}
	var err error
	switch job.EntityType {
	case EntityBrand:
		err = r.brands.UpdateStatus(ctx, job.EntityID, brands.StatusFailed, jobErr.Error())
	case EntityDocument:
		err = r.documents.UpdateStatus(ctx, job.EntityID, documents.StatusFailed, jobErr.Error())
	default:
		return
	}
	if err != nil {
		r.log.WithJob(job.ID.String()).Errorf("failed to update entity status: %v", err)
	}
}
