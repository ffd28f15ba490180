package render

import (
	"context"
	"fmt"

	"github.com/jonathan/brandforge/internal/logger"
	"github.com/jonathan/brandforge/internal/storage"
)

// Request describes one document render.
type Request struct {
	TemplateHTML string
	Markdown     string
	Format       Format
	// OutputPath is the storage path for the printed PDF.
	OutputPath string
}

// Service renders documents to PDF and persists them.
type Service struct {
	storage    storage.Provider
	chromePath string
	// pdfEngine is overridable for tests.
	pdfEngine func(ctx context.Context, html string, format Format, chromePath string) ([]byte, error)
	log       *logger.Logger
}

// NewService creates a render service. chromePath optionally pins the
// browser executable used for printing.
func NewService(store storage.Provider, chromePath string, log *logger.Logger) *Service {
	return &Service{
		storage:    store,
		chromePath: chromePath,
		pdfEngine:  printToPDF,
		log:        log.WithComponent("render"),
	}
}

// RenderToPDF composes the document from markdown and template, prints
// it, saves the PDF to req.OutputPath, and returns the composed HTML so
// callers can persist it for later editing and re-rendering.
func (s *Service) RenderToPDF(ctx context.Context, req Request) (string, error) {
	if req.Format != FormatReport && req.Format != FormatSlides {
		return "", fmt.Errorf("unknown render format: %q", req.Format)
	}

	composed, err := Compose(req.TemplateHTML, req.Markdown, req.Format)
	if err != nil {
		return "", err
	}

	if err := s.print(ctx, composed, req.Format, req.OutputPath); err != nil {
		return "", err
	}
	return composed, nil
}

// RenderHTMLDirectly prints already-composed HTML to PDF, used when a
// document's HTML has been edited or refined after the initial render.
func (s *Service) RenderHTMLDirectly(ctx context.Context, html string, format Format, outputPath string) error {
	if format != FormatReport && format != FormatSlides {
		return fmt.Errorf("unknown render format: %q", format)
	}
	return s.print(ctx, html, format, outputPath)
}

func (s *Service) print(ctx context.Context, html string, format Format, outputPath string) error {
	s.log.WithField("format", string(format)).WithField("path", outputPath).Info("printing PDF")

	pdf, err := s.pdfEngine(ctx, html, format, s.chromePath)
	if err != nil {
		return err
	}
	if err := s.storage.Save(ctx, outputPath, pdf); err != nil {
		return fmt.Errorf("failed to save PDF to %s: %w", outputPath, err)
	}
	return nil
}
