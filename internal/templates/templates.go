// Package templates generates brand-styled document templates from an
// approved design system.
package templates

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/brandforge/internal/llm"
	"github.com/jonathan/brandforge/internal/logger"
	"github.com/jonathan/brandforge/internal/prompts"
)

// PromptSource resolves the effective template prompts for a brand.
type PromptSource interface {
	Effective(ctx context.Context, t prompts.Type, brandID uuid.UUID) (string, error)
}

// Service generates report and slides templates.
type Service struct {
	llm     llm.Client
	prompts PromptSource
	retry   llm.RetryOptions
	log     *logger.Logger
}

// NewService creates a template generation service.
func NewService(client llm.Client, promptSource PromptSource, log *logger.Logger) *Service {
	return &Service{
		llm:     client,
		prompts: promptSource,
		retry:   llm.DefaultRetryOptions(),
		log:     log.WithComponent("templates"),
	}
}

// GenerateReport produces the brand's report template from its design
// system HTML.
func (s *Service) GenerateReport(ctx context.Context, brandID uuid.UUID, designSystemHTML string) (string, error) {
	return s.generate(ctx, prompts.TypeReportTemplate, brandID, designSystemHTML)
}

// GenerateSlides produces the brand's slides template from its design
// system HTML.
func (s *Service) GenerateSlides(ctx context.Context, brandID uuid.UUID, designSystemHTML string) (string, error) {
	return s.generate(ctx, prompts.TypeSlidesTemplate, brandID, designSystemHTML)
}

func (s *Service) generate(ctx context.Context, t prompts.Type, brandID uuid.UUID, designSystemHTML string) (string, error) {
	template, err := s.prompts.Effective(ctx, t, brandID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s prompt: %w", t, err)
	}
	prompt := prompts.Format(template, prompts.PlaceholderDesignSystemHTML, designSystemHTML)

	s.log.WithField("type", string(t)).Info("generating template")
	return llm.WithRetry(ctx, s.retry, func(ctx context.Context) (string, error) {
		reply, err := s.llm.Generate(ctx, prompt)
		if err != nil {
			return "", err
		}
		return llm.ExtractHTMLDocument(reply)
	})
}
