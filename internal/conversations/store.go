// Package conversations implements the bounded design-system refinement
// loop: a per-brand chat whose rounds each feed user feedback and the
// current design system to the model, applying returned updates.
package conversations

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultMaxRounds bounds a refinement conversation.
const DefaultMaxRounds = 5

// Status is the conversation lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Message is one turn in a refinement conversation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is a brand's refinement conversation.
type Conversation struct {
	ID          uuid.UUID
	BrandID     uuid.UUID
	Messages    []Message
	RoundNumber int
	MaxRounds   int
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store persists refinement conversations.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a conversation store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create starts a conversation for a brand. maxRounds <= 0 uses the
// default bound.
func (s *Store) Create(ctx context.Context, brandID uuid.UUID, maxRounds int) (*Conversation, error) {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO brand_conversations (brand_id, max_rounds)
		 VALUES ($1, $2)
		 RETURNING id, brand_id, messages, round_number, max_rounds, status, created_at, updated_at`,
		brandID, maxRounds,
	)
	return scanConversation(row)
}

// GetByID loads a conversation, or nil when absent.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, brand_id, messages, round_number, max_rounds, status, created_at, updated_at
		 FROM brand_conversations WHERE id = $1`,
		id,
	)
	conv, err := scanConversation(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return conv, err
}

// GetLatest returns the brand's most recent conversation regardless of
// status, or nil. A completed latest conversation means refinement is
// closed until a new conversation is started.
func (s *Store) GetLatest(ctx context.Context, brandID uuid.UUID) (*Conversation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, brand_id, messages, round_number, max_rounds, status, created_at, updated_at
		 FROM brand_conversations
		 WHERE brand_id = $1
		 ORDER BY created_at DESC LIMIT 1`,
		brandID,
	)
	conv, err := scanConversation(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return conv, err
}

// AppendMessage adds one message to the conversation's jsonb log.
func (s *Store) AppendMessage(ctx context.Context, id uuid.UUID, role, content string) error {
	msg, err := json.Marshal([]Message{{Role: role, Content: content, Timestamp: time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE brand_conversations
		 SET messages = messages || $2::jsonb, updated_at = NOW()
		 WHERE id = $1`,
		id, string(msg),
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// IncrementRound advances the round counter and returns the new value.
func (s *Store) IncrementRound(ctx context.Context, id uuid.UUID) (int, error) {
	var round int
	err := s.pool.QueryRow(ctx,
		`UPDATE brand_conversations
		 SET round_number = round_number + 1, updated_at = NOW()
		 WHERE id = $1
		 RETURNING round_number`,
		id,
	).Scan(&round)
	if err != nil {
		return 0, fmt.Errorf("failed to increment round: %w", err)
	}
	return round, nil
}

// Complete marks the conversation finished.
func (s *Store) Complete(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE brand_conversations SET status = 'completed', updated_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete conversation: %w", err)
	}
	return nil
}

func scanConversation(row pgx.Row) (*Conversation, error) {
	var c Conversation
	var messages []byte
	var status string
	err := row.Scan(&c.ID, &c.BrandID, &messages, &c.RoundNumber, &c.MaxRounds, &status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(messages) > 0 {
		if err := json.Unmarshal(messages, &c.Messages); err != nil {
			return nil, fmt.Errorf("failed to decode conversation messages: %w", err)
		}
	}
	c.Status = Status(status)
	return &c, nil
}
