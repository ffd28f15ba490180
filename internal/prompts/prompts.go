// Package prompts manages the LLM prompt templates used by the pipelines.
// Defaults are embedded at compile time; per-brand overrides and edited
// defaults live in the prompts table.
package prompts

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed *.prompt.txt
var promptFiles embed.FS

// Type identifies a prompt template.
type Type string

const (
	TypeExtraction     Type = "extraction"
	TypeReportTemplate Type = "report_template"
	TypeSlidesTemplate Type = "slides_template"
)

// Placeholder tokens substituted into prompt templates.
const (
	PlaceholderWebsiteContent   = "{{WEBSITE_CONTENT}}"
	PlaceholderDesignSystemHTML = "{{DESIGN_SYSTEM_HTML}}"
)

var promptFilenames = map[Type]string{
	TypeExtraction:     "extraction.prompt.txt",
	TypeReportTemplate: "report-template.prompt.txt",
	TypeSlidesTemplate: "slides-template.prompt.txt",
}

// Default returns the embedded default template for a prompt type.
func Default(t Type) (string, error) {
	filename, ok := promptFilenames[t]
	if !ok {
		return "", fmt.Errorf("unknown prompt type: %q", t)
	}
	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}
	return string(data), nil
}

// Format replaces a placeholder token with a value.
func Format(template, placeholder, value string) string {
	return strings.ReplaceAll(template, placeholder, value)
}

// Store resolves effective prompts, applying per-brand overrides.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a prompt store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// SeedDefaults inserts the embedded default prompts if none exist yet.
func (s *Store) SeedDefaults(ctx context.Context) error {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM prompts WHERE is_default = TRUE`,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count default prompts: %w", err)
	}
	if count > 0 {
		return nil
	}

	for t := range promptFilenames {
		content, err := Default(t)
		if err != nil {
			return err
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO prompts (type, content, is_default) VALUES ($1, $2, TRUE)
			 ON CONFLICT DO NOTHING`,
			string(t), content,
		)
		if err != nil {
			return fmt.Errorf("failed to seed prompt %s: %w", t, err)
		}
	}
	return nil
}

// Effective returns the prompt to use for a brand: the brand-specific
// override if present, else the stored default, else the embedded file.
func (s *Store) Effective(ctx context.Context, t Type, brandID uuid.UUID) (string, error) {
	if brandID != uuid.Nil {
		var content string
		err := s.pool.QueryRow(ctx,
			`SELECT content FROM prompts WHERE type = $1 AND brand_id = $2`,
			string(t), brandID,
		).Scan(&content)
		if err == nil {
			return content, nil
		}
		if err != pgx.ErrNoRows {
			return "", fmt.Errorf("failed to load brand prompt: %w", err)
		}
	}

	var content string
	err := s.pool.QueryRow(ctx,
		`SELECT content FROM prompts WHERE type = $1 AND is_default = TRUE`,
		string(t),
	).Scan(&content)
	if err == nil {
		return content, nil
	}
	if err != pgx.ErrNoRows {
		return "", fmt.Errorf("failed to load default prompt: %w", err)
	}

	return Default(t)
}

// Upsert stores a prompt override for a brand, or updates the default
// when brandID is nil.
func (s *Store) Upsert(ctx context.Context, t Type, brandID uuid.UUID, content string) error {
	if _, ok := promptFilenames[t]; !ok {
		return fmt.Errorf("unknown prompt type: %q", t)
	}

	if brandID == uuid.Nil {
		_, err := s.pool.Exec(ctx,
			`UPDATE prompts SET content = $1, updated_at = NOW() WHERE type = $2 AND is_default = TRUE`,
			content, string(t),
		)
		if err != nil {
			return fmt.Errorf("failed to update default prompt: %w", err)
		}
		return nil
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO prompts (type, brand_id, content, is_default)
		 VALUES ($1, $2, $3, FALSE)
		 ON CONFLICT (type, brand_id) DO UPDATE SET content = $3, updated_at = NOW()`,
		string(t), brandID, content,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert brand prompt: %w", err)
	}
	return nil
}
