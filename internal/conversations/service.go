package conversations

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/brandforge/internal/brands"
	"github.com/jonathan/brandforge/internal/llm"
	"github.com/jonathan/brandforge/internal/logger"
	"github.com/jonathan/brandforge/internal/storage"
)

// ErrConversationComplete is returned when a refinement round is
// requested after the conversation has reached its round bound.
var ErrConversationComplete = errors.New("conversation has reached its maximum rounds")

const maxRefineHTMLChars = 50_000

var updatedHTMLPattern = regexp.MustCompile(`(?s)<UPDATED_HTML>(.*?)</UPDATED_HTML>`)

// ConversationStore is the persistence surface Refine needs.
type ConversationStore interface {
	Create(ctx context.Context, brandID uuid.UUID, maxRounds int) (*Conversation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error)
	GetLatest(ctx context.Context, brandID uuid.UUID) (*Conversation, error)
	AppendMessage(ctx context.Context, id uuid.UUID, role, content string) error
	IncrementRound(ctx context.Context, id uuid.UUID) (int, error)
	Complete(ctx context.Context, id uuid.UUID) error
}

// AssetDirectory locates a brand's stored assets.
type AssetDirectory interface {
	GetAssetByType(ctx context.Context, brandID uuid.UUID, assetType string) (*brands.Asset, error)
}

// Result is the outcome of one refinement round.
type Result struct {
	Response    string
	RoundNumber int
	MaxRounds   int
	IsComplete  bool
	// UpdatedDesignSystem reports that the round changed the stored
	// design system.
	UpdatedDesignSystem bool
}

// Service runs the design-system refinement loop.
type Service struct {
	store   ConversationStore
	assets  AssetDirectory
	storage storage.Provider
	llm     llm.Client
	retry   llm.RetryOptions
	log     *logger.Logger
}

// NewService creates a refinement service.
func NewService(store ConversationStore, assets AssetDirectory, storageProvider storage.Provider, client llm.Client, log *logger.Logger) *Service {
	return &Service{
		store:   store,
		assets:  assets,
		storage: storageProvider,
		llm:     client,
		retry:   llm.DefaultRetryOptions(),
		log:     log.WithComponent("conversations"),
	}
}

// StartNew opens a fresh conversation for a brand, reopening refinement
// after a previous conversation completed.
func (s *Service) StartNew(ctx context.Context, brandID uuid.UUID, maxRounds int) (*Conversation, error) {
	return s.store.Create(ctx, brandID, maxRounds)
}

// Refine runs one refinement round for a brand: the user's feedback and
// the current design system go to the model, any returned update
// replaces the stored design system, and the conversation advances one
// round. A conversation at its round bound rejects the request before
// any state changes; further rounds require StartNew.
func (s *Service) Refine(ctx context.Context, brandID uuid.UUID, brandSlug, message string) (*Result, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("message is required")
	}

	conv, err := s.store.GetLatest(ctx, brandID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		conv, err = s.store.Create(ctx, brandID, DefaultMaxRounds)
		if err != nil {
			return nil, err
		}
	}

	// Reject exhausted conversations before any mutation.
	if conv.Status == StatusCompleted || conv.RoundNumber >= conv.MaxRounds {
		return nil, ErrConversationComplete
	}

	currentHTML, err := s.loadDesignSystem(ctx, brandID)
	if err != nil {
		return nil, err
	}

	prompt := buildRefinePrompt(currentHTML, message, conv.Messages)
	reply, err := llm.WithRetry(ctx, s.retry, func(ctx context.Context) (string, error) {
		return s.llm.Generate(ctx, prompt)
	})
	if err != nil {
		return nil, err
	}

	text, updatedHTML := splitUpdatedHTML(reply)

	if updatedHTML != "" {
		if err := s.storage.Save(ctx, brands.DesignSystemPath(brandSlug), []byte(updatedHTML)); err != nil {
			return nil, fmt.Errorf("failed to save refined design system: %w", err)
		}
	}

	if err := s.store.AppendMessage(ctx, conv.ID, "user", message); err != nil {
		return nil, err
	}
	if err := s.store.AppendMessage(ctx, conv.ID, "assistant", text); err != nil {
		return nil, err
	}
	round, err := s.store.IncrementRound(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	complete := round >= conv.MaxRounds
	if complete {
		if err := s.store.Complete(ctx, conv.ID); err != nil {
			return nil, err
		}
	}

	s.log.WithField("brand", brandSlug).WithField("round", round).Info("refinement round complete")
	return &Result{
		Response:            text,
		RoundNumber:         round,
		MaxRounds:           conv.MaxRounds,
		IsComplete:          complete,
		UpdatedDesignSystem: updatedHTML != "",
	}, nil
}

func (s *Service) loadDesignSystem(ctx context.Context, brandID uuid.UUID) (string, error) {
	asset, err := s.assets.GetAssetByType(ctx, brandID, brands.AssetDesignSystem)
	if err != nil {
		return "", err
	}
	if asset == nil {
		return "", nil
	}
	data, err := s.storage.Get(ctx, asset.FilePath)
	if err != nil {
		return "", fmt.Errorf("failed to load design system: %w", err)
	}
	return string(data), nil
}

func buildRefinePrompt(currentHTML, message string, history []Message) string {
	html := currentHTML
	if len(html) > maxRefineHTMLChars {
		html = html[:maxRefineHTMLChars]
	}

	var historyLines []string
	for _, m := range history {
		historyLines = append(historyLines, strings.ToUpper(m.Role)+": "+m.Content)
	}

	return fmt.Sprintf(`You are a design system expert helping refine a brand's design system.

Current Design System HTML:
%s

Conversation History:
%s

User's Latest Feedback: %s

Respond to the user's feedback about the design system. If they request specific changes (colors, fonts, spacing, etc.), provide an updated version of the design system HTML.

Format your response as follows:
1. First, provide a natural language response addressing the user's feedback.
2. If changes are needed, include the complete updated HTML between <UPDATED_HTML> and </UPDATED_HTML> tags.

If no changes are needed (e.g., the user is asking a question), just respond with text.`,
		html, strings.Join(historyLines, "\n\n"), message)
}

// splitUpdatedHTML separates the model's text reply from an optional
// updated HTML block.
func splitUpdatedHTML(reply string) (text, updatedHTML string) {
	match := updatedHTMLPattern.FindStringSubmatch(reply)
	if match == nil {
		return strings.TrimSpace(reply), ""
	}
	text = strings.TrimSpace(updatedHTMLPattern.ReplaceAllString(reply, ""))
	return text, strings.TrimSpace(match[1])
}
