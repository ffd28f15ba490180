package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/brandforge/internal/brands"
	"github.com/jonathan/brandforge/internal/documents"
	"github.com/jonathan/brandforge/internal/extraction"
	"github.com/jonathan/brandforge/internal/render"
)

// handleExtraction runs a brand_extraction job: gather the brand's
// sources, synthesize the design system, persist it as a brand asset,
// and either hand off to review (multi-source) or chain straight into
// template generation.
func (r *Runner) handleExtraction(ctx context.Context, job Job) error {
	payload, err := decodePayload[ExtractionPayload](job.Payload)
	if err != nil {
		return err
	}

	if err := r.brands.UpdateStatus(ctx, payload.BrandID, brands.StatusExtracting, ""); err != nil {
		return err
	}

	var designSystemHTML string
	multiSource := len(payload.Sources) > 0

	switch {
	case multiSource:
		r.progress(ctx, job, "Fetching content from multiple sources...")
		designSystemHTML, err = r.extractor.ExtractFromSources(ctx, payload.BrandID, toSourceInputs(payload.Sources))
	case payload.SourceType == "url" && payload.SourceURL != "":
		r.progress(ctx, job, "Fetching website content...")
		designSystemHTML, err = r.extractor.ExtractFromURL(ctx, payload.BrandID, payload.SourceURL)
	case payload.SourceType == "pdf" && payload.PDFStoragePath != "":
		r.progress(ctx, job, "Reading PDF document...")
		designSystemHTML, err = r.extractor.ExtractFromPDF(ctx, payload.BrandID, payload.PDFStoragePath)
	default:
		return fmt.Errorf("invalid extraction source")
	}
	if err != nil {
		r.progress(ctx, job, fmt.Sprintf("Extraction failed: %v", err))
		return err
	}

	r.progress(ctx, job, "Saving design system...")
	dsPath := brands.DesignSystemPath(payload.Slug)
	if err := r.storage.Save(ctx, dsPath, []byte(designSystemHTML)); err != nil {
		return fmt.Errorf("failed to save design system: %w", err)
	}
	if err := r.brands.UpsertAsset(ctx, payload.BrandID, brands.AssetDesignSystem, dsPath); err != nil {
		return err
	}

	// Multi-source extraction pauses for review instead of chaining
	// straight into template generation.
	if multiSource {
		if err := r.brands.UpdateStatus(ctx, payload.BrandID, brands.StatusAwaitingReview, ""); err != nil {
			return err
		}
		r.progress(ctx, job, "Extraction complete, awaiting your review")
		return nil
	}

	if err := r.brands.UpdateStatus(ctx, payload.BrandID, brands.StatusExtracted, ""); err != nil {
		return err
	}
	r.progress(ctx, job, "Extraction complete, queuing template generation...")

	if _, err := r.store.EnqueueTemplateGeneration(ctx, payload.BrandID, payload.Slug); err != nil {
		return fmt.Errorf("failed to enqueue template generation: %w", err)
	}
	return nil
}

// handleTemplateGeneration runs a brand_template_generation job. The
// two generations are independent: one failure is logged as progress
// and the brand still becomes ready; only both failing fails the job.
func (r *Runner) handleTemplateGeneration(ctx context.Context, job Job) error {
	payload, err := decodePayload[TemplatePayload](job.Payload)
	if err != nil {
		return err
	}

	if err := r.brands.UpdateStatus(ctx, payload.BrandID, brands.StatusGeneratingTemplates, ""); err != nil {
		return err
	}

	r.progress(ctx, job, "Loading design system...")
	designSystemHTML, err := r.storage.Get(ctx, brands.DesignSystemPath(payload.Slug))
	if err != nil {
		return fmt.Errorf("failed to load design system: %w", err)
	}

	// Generating and persisting a template share one failure scope, so a
	// save error on one template cannot stop the other from being tried.
	generate := func(label string, gen func(context.Context, uuid.UUID, string) (string, error), assetType, path string) error {
		r.progress(ctx, job, fmt.Sprintf("Generating %s template...", label))
		html, err := gen(ctx, payload.BrandID, string(designSystemHTML))
		if err != nil {
			return err
		}
		if err := r.storage.Save(ctx, path, []byte(html)); err != nil {
			return fmt.Errorf("failed to save %s template: %w", label, err)
		}
		return r.brands.UpsertAsset(ctx, payload.BrandID, assetType, path)
	}

	reportFailed := false
	if err := generate("report", r.templates.GenerateReport, brands.AssetReportTemplate, brands.ReportTemplatePath(payload.Slug)); err != nil {
		reportFailed = true
		r.log.WithJob(job.ID.String()).Errorf("report template generation failed: %v", err)
		r.progress(ctx, job, fmt.Sprintf("Report template failed: %v", err))
	}

	slidesFailed := false
	if err := generate("slides", r.templates.GenerateSlides, brands.AssetSlidesTemplate, brands.SlidesTemplatePath(payload.Slug)); err != nil {
		slidesFailed = true
		r.log.WithJob(job.ID.String()).Errorf("slides template generation failed: %v", err)
		r.progress(ctx, job, fmt.Sprintf("Slides template failed: %v", err))
	}

	if reportFailed && slidesFailed {
		return fmt.Errorf("both report and slides template generation failed")
	}

	if reportFailed || slidesFailed {
		r.progress(ctx, job, "Templates partially complete (some failed)")
	} else {
		r.progress(ctx, job, "Templates complete")
	}
	return r.brands.UpdateStatus(ctx, payload.BrandID, brands.StatusReady, "")
}

// handleRender runs a document_render job: load the brand template for
// the requested format, convert the document's markdown, print the PDF,
// and persist both the PDF path and the composed HTML.
func (r *Runner) handleRender(ctx context.Context, job Job) error {
	payload, err := decodePayload[RenderPayload](job.Payload)
	if err != nil {
		return err
	}

	if err := r.documents.UpdateStatus(ctx, payload.DocumentID, documents.StatusRendering, ""); err != nil {
		return err
	}

	r.progress(ctx, job, "Loading template...")
	assetType := brands.AssetReportTemplate
	if payload.Format == documents.FormatSlides {
		assetType = brands.AssetSlidesTemplate
	}
	asset, err := r.brands.GetAssetByType(ctx, payload.BrandID, assetType)
	if err != nil {
		return err
	}
	if asset == nil {
		return fmt.Errorf("template not found for brand %s (%s)", payload.BrandSlug, assetType)
	}
	templateHTML, err := r.storage.Get(ctx, asset.FilePath)
	if err != nil {
		return fmt.Errorf("failed to load template: %w", err)
	}

	doc, err := r.documents.GetByID(ctx, payload.DocumentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("document not found: %s", payload.DocumentID)
	}

	r.progress(ctx, job, "Converting content...")
	markdown, err := r.storage.Get(ctx, doc.MarkdownPath)
	if err != nil {
		return fmt.Errorf("failed to load document markdown: %w", err)
	}

	r.progress(ctx, job, "Rendering PDF...")
	pdfPath := documents.PDFPathFor(payload.DocumentID)
	renderedHTML, err := r.renderer.RenderToPDF(ctx, render.Request{
		TemplateHTML: string(templateHTML),
		Markdown:     string(markdown),
		Format:       render.Format(payload.Format),
		OutputPath:   pdfPath,
	})
	if err != nil {
		return err
	}

	return r.documents.SetRendered(ctx, payload.DocumentID, pdfPath, renderedHTML)
}

// progress appends a progress entry, logging but not failing the job on
// persistence errors.
func (r *Runner) progress(ctx context.Context, job Job, message string) {
	if err := r.store.AppendProgress(ctx, job.ID, message); err != nil {
		r.log.WithJob(job.ID.String()).Warnf("failed to record progress: %v", err)
	}
}

func toSourceInputs(sources []brands.Source) []extraction.SourceInput {
	inputs := make([]extraction.SourceInput, len(sources))
	for i, s := range sources {
		inputs[i] = extraction.SourceInput{Type: s.Type, URL: s.URL, StoragePath: s.StoragePath}
	}
	return inputs
}
