package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/brandforge/internal/llm"
	"github.com/jonathan/brandforge/internal/logger"
	"github.com/jonathan/brandforge/internal/prompts"
	"github.com/jonathan/brandforge/internal/storage"
)

// Content truncation caps keep the synthesis prompt inside the model's
// context window. Multi-source extraction uses tighter per-source caps
// since several pages share the window.
const (
	maxHTMLChars = 100_000
	maxCSSChars  = 100_000

	maxSourceHTMLChars = 80_000
	maxSourceCSSChars  = 50_000
)

// PromptSource resolves the effective extraction prompt for a brand.
type PromptSource interface {
	Effective(ctx context.Context, t prompts.Type, brandID uuid.UUID) (string, error)
}

// PageFetcher retrieves brand source pages.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*PageContent, error)
}

// Service synthesizes a brand's design system from its sources.
type Service struct {
	fetcher PageFetcher
	llm     llm.Client
	prompts PromptSource
	storage storage.Provider
	retry   llm.RetryOptions
	log     *logger.Logger
}

// NewService creates an extraction service.
func NewService(fetcher PageFetcher, client llm.Client, promptSource PromptSource, store storage.Provider, log *logger.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		llm:     client,
		prompts: promptSource,
		storage: store,
		retry:   llm.DefaultRetryOptions(),
		log:     log.WithComponent("extraction"),
	}
}

// ExtractFromURL fetches a single website and synthesizes the design
// system from its content.
func (s *Service) ExtractFromURL(ctx context.Context, brandID uuid.UUID, url string) (string, error) {
	page, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}

	content := formatPageContent(page, maxHTMLChars, maxCSSChars)
	prompt, err := s.buildPrompt(ctx, brandID, content)
	if err != nil {
		return "", err
	}

	s.log.WithField("url", url).Info("synthesizing design system from website")
	return s.callModel(ctx, prompt)
}

// ExtractFromPDF synthesizes the design system from an uploaded brand
// document stored at storagePath.
func (s *Service) ExtractFromPDF(ctx context.Context, brandID uuid.UUID, storagePath string) (string, error) {
	data, err := s.storage.Get(ctx, storagePath)
	if err != nil {
		return "", fmt.Errorf("failed to load source PDF %s: %w", storagePath, err)
	}

	prompt, err := s.buildPrompt(ctx, brandID, "[See attached PDF document]")
	if err != nil {
		return "", err
	}

	s.log.WithField("path", storagePath).Info("synthesizing design system from PDF")
	return s.callModel(ctx, prompt, llm.Attachment{MIMEType: "application/pdf", Data: data})
}

// ExtractFromSources aggregates several brand sources into one synthesis
// call. URL sources are fetched with failures recorded in place; PDF
// sources are attached as binary parts. Extraction proceeds as long as
// at least one source succeeds.
func (s *Service) ExtractFromSources(ctx context.Context, brandID uuid.UUID, sources []SourceInput) (string, error) {
	if len(sources) == 0 {
		return "", fmt.Errorf("no sources provided")
	}

	sections := make([]string, len(sources))
	var attachments []llm.Attachment
	var failures []string

	for i, src := range sources {
		header := fmt.Sprintf("--- SOURCE %d (%s) ---", i+1, src.Describe())

		switch src.Type {
		case "url":
			page, err := s.fetcher.Fetch(ctx, src.URL)
			if err != nil {
				s.log.WithField("url", src.URL).Warnf("source fetch failed: %v", err)
				failures = append(failures, fmt.Sprintf("%s: %v", src.URL, err))
				sections[i] = header + "\n[FAILED TO FETCH]"
				continue
			}
			sections[i] = header + "\n" + formatPageContent(page, maxSourceHTMLChars, maxSourceCSSChars)

		case "pdf":
			data, err := s.storage.Get(ctx, src.StoragePath)
			if err != nil {
				s.log.WithField("path", src.StoragePath).Warnf("source PDF load failed: %v", err)
				failures = append(failures, fmt.Sprintf("%s: %v", src.StoragePath, err))
				sections[i] = header + "\n[FAILED TO FETCH]"
				continue
			}
			attachments = append(attachments, llm.Attachment{MIMEType: "application/pdf", Data: data})
			sections[i] = header + "\n[See attached PDF document]"

		default:
			failures = append(failures, fmt.Sprintf("source %d: unknown type %q", i+1, src.Type))
			sections[i] = header + "\n[FAILED TO FETCH]"
		}
	}

	if len(failures) == len(sources) {
		return "", fmt.Errorf("all sources failed to fetch:\n%s", strings.Join(failures, "\n"))
	}

	prompt, err := s.buildPrompt(ctx, brandID, strings.Join(sections, "\n\n"))
	if err != nil {
		return "", err
	}

	s.log.WithField("sources", len(sources)).Info("synthesizing design system from sources")
	return s.callModel(ctx, prompt, attachments...)
}

// SourceInput is one source for multi-source extraction.
type SourceInput struct {
	Type        string
	URL         string
	StoragePath string
}

// Describe names the source for the aggregated prompt header.
func (s SourceInput) Describe() string {
	if s.Type == "pdf" {
		return "PDF: " + s.StoragePath
	}
	return s.URL
}

// buildPrompt resolves the effective extraction prompt for the brand and
// substitutes the gathered content.
func (s *Service) buildPrompt(ctx context.Context, brandID uuid.UUID, content string) (string, error) {
	template, err := s.prompts.Effective(ctx, prompts.TypeExtraction, brandID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve extraction prompt: %w", err)
	}
	return prompts.Format(template, prompts.PlaceholderWebsiteContent, content), nil
}

// callModel runs the synthesis with retry and extracts the HTML document
// from the reply.
func (s *Service) callModel(ctx context.Context, prompt string, attachments ...llm.Attachment) (string, error) {
	return llm.WithRetry(ctx, s.retry, func(ctx context.Context) (string, error) {
		reply, err := s.llm.Generate(ctx, prompt, attachments...)
		if err != nil {
			return "", err
		}
		return llm.ExtractHTMLDocument(reply)
	})
}

// formatPageContent assembles the HTML and harvested CSS of one page,
// truncated to the given caps.
func formatPageContent(page *PageContent, htmlCap, cssCap int) string {
	var b strings.Builder
	b.WriteString("HTML:\n")
	b.WriteString(truncate(page.HTML, htmlCap))
	if page.CSS != "" {
		b.WriteString("\n\nCSS:\n")
		b.WriteString(truncate(page.CSS, cssCap))
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n... [truncated]"
}
