package conversations

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/brandforge/internal/brands"
	"github.com/jonathan/brandforge/internal/llm"
	"github.com/jonathan/brandforge/internal/logger"
)

type memStore struct {
	conversations map[uuid.UUID]*Conversation
}

func newMemStore() *memStore {
	return &memStore{conversations: make(map[uuid.UUID]*Conversation)}
}

func (m *memStore) Create(_ context.Context, brandID uuid.UUID, maxRounds int) (*Conversation, error) {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	conv := &Conversation{
		ID:        uuid.New(),
		BrandID:   brandID,
		MaxRounds: maxRounds,
		Status:    StatusActive,
		CreatedAt: time.Now(),
	}
	m.conversations[conv.ID] = conv
	return conv, nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*Conversation, error) {
	return m.conversations[id], nil
}

func (m *memStore) GetLatest(_ context.Context, brandID uuid.UUID) (*Conversation, error) {
	var latest *Conversation
	for _, c := range m.conversations {
		if c.BrandID != brandID {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	return latest, nil
}

func (m *memStore) AppendMessage(_ context.Context, id uuid.UUID, role, content string) error {
	c, ok := m.conversations[id]
	if !ok {
		return errors.New("not found")
	}
	c.Messages = append(c.Messages, Message{Role: role, Content: content, Timestamp: time.Now()})
	return nil
}

func (m *memStore) IncrementRound(_ context.Context, id uuid.UUID) (int, error) {
	c, ok := m.conversations[id]
	if !ok {
		return 0, errors.New("not found")
	}
	c.RoundNumber++
	return c.RoundNumber, nil
}

func (m *memStore) Complete(_ context.Context, id uuid.UUID) error {
	c, ok := m.conversations[id]
	if !ok {
		return errors.New("not found")
	}
	c.Status = StatusCompleted
	return nil
}

type fakeAssets struct {
	asset *brands.Asset
}

func (f *fakeAssets) GetAssetByType(_ context.Context, _ uuid.UUID, _ string) (*brands.Asset, error) {
	return f.asset, nil
}

type fakeStorage struct {
	files map[string][]byte
}

func (f *fakeStorage) Save(_ context.Context, path string, content []byte) error {
	if f.files == nil {
		f.files = make(map[string][]byte)
	}
	f.files[path] = content
	return nil
}

func (f *fakeStorage) Get(_ context.Context, path string) ([]byte, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func (f *fakeStorage) GetStream(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStorage) Delete(_ context.Context, _ string) error           { return nil }
func (f *fakeStorage) List(_ context.Context, _ string) ([]string, error) { return nil, nil }
func (f *fakeStorage) Exists(_ context.Context, _ string) (bool, error)   { return false, nil }
func (f *fakeStorage) PublicURL(path string) string                       { return "/api/storage/" + path }

type fakeLLM struct {
	reply   string
	prompts []string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ ...llm.Attachment) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, nil
}

func (f *fakeLLM) Close() error { return nil }

func newTestRefinement(store ConversationStore, model *fakeLLM, files *fakeStorage) *Service {
	assets := &fakeAssets{asset: &brands.Asset{
		AssetType: brands.AssetDesignSystem,
		FilePath:  "brands/acme/design-system.html",
	}}
	if files == nil {
		files = &fakeStorage{files: map[string][]byte{
			"brands/acme/design-system.html": []byte("<html>current ds</html>"),
		}}
	}
	svc := NewService(store, assets, files, model, logger.Discard())
	svc.retry.Sleep = func(_ context.Context, _ time.Duration) error { return nil }
	return svc
}

func TestRefineAppliesUpdate(t *testing.T) {
	store := newMemStore()
	files := &fakeStorage{files: map[string][]byte{
		"brands/acme/design-system.html": []byte("<html>current ds</html>"),
	}}
	model := &fakeLLM{reply: "Changed the primary color.\n<UPDATED_HTML><html>new ds</html></UPDATED_HTML>"}
	svc := newTestRefinement(store, model, files)

	brandID := uuid.New()
	result, err := svc.Refine(context.Background(), brandID, "acme", "make the primary color blue")
	require.NoError(t, err)

	assert.Equal(t, "Changed the primary color.", result.Response)
	assert.Equal(t, 1, result.RoundNumber)
	assert.Equal(t, DefaultMaxRounds, result.MaxRounds)
	assert.False(t, result.IsComplete)
	assert.True(t, result.UpdatedDesignSystem)
	assert.Equal(t, []byte("<html>new ds</html>"), files.files["brands/acme/design-system.html"])

	// The prompt carried the current design system and the feedback.
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "<html>current ds</html>")
	assert.Contains(t, model.prompts[0], "make the primary color blue")

	conv, _ := store.GetLatest(context.Background(), brandID)
	require.NotNil(t, conv)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "user", conv.Messages[0].Role)
	assert.Equal(t, "assistant", conv.Messages[1].Role)
}

func TestRefineTextOnlyReply(t *testing.T) {
	store := newMemStore()
	files := &fakeStorage{files: map[string][]byte{
		"brands/acme/design-system.html": []byte("<html>current ds</html>"),
	}}
	model := &fakeLLM{reply: "The current palette already meets contrast guidelines."}
	svc := newTestRefinement(store, model, files)

	result, err := svc.Refine(context.Background(), uuid.New(), "acme", "is the contrast ok?")
	require.NoError(t, err)

	assert.False(t, result.UpdatedDesignSystem)
	assert.Equal(t, []byte("<html>current ds</html>"), files.files["brands/acme/design-system.html"])
}

func TestRefineCompletesAtMaxRounds(t *testing.T) {
	store := newMemStore()
	model := &fakeLLM{reply: "ok"}
	svc := newTestRefinement(store, model, nil)
	brandID := uuid.New()

	var last *Result
	for i := 0; i < DefaultMaxRounds; i++ {
		var err error
		last, err = svc.Refine(context.Background(), brandID, "acme", "tweak something")
		require.NoError(t, err)
	}

	assert.True(t, last.IsComplete)
	assert.Equal(t, DefaultMaxRounds, last.RoundNumber)

	// The bound holds: the next round is rejected before any mutation.
	_, err := svc.Refine(context.Background(), brandID, "acme", "one more")
	require.ErrorIs(t, err, ErrConversationComplete)

	// A new conversation reopens refinement.
	_, err = svc.StartNew(context.Background(), brandID, 0)
	require.NoError(t, err)
	result, err := svc.Refine(context.Background(), brandID, "acme", "one more")
	require.NoError(t, err)
	assert.Equal(t, 1, result.RoundNumber)
}

func TestRefineRejectsExhaustedConversationBeforeMutation(t *testing.T) {
	store := newMemStore()
	conv, _ := store.Create(context.Background(), uuid.New(), 2)
	conv.RoundNumber = 2

	model := &fakeLLM{reply: "ok"}
	svc := newTestRefinement(store, model, nil)

	_, err := svc.Refine(context.Background(), conv.BrandID, "acme", "change fonts")
	require.ErrorIs(t, err, ErrConversationComplete)
	assert.Empty(t, model.prompts)
	assert.Empty(t, conv.Messages)
	assert.Equal(t, 2, conv.RoundNumber)
}

func TestRefineEmptyMessage(t *testing.T) {
	svc := newTestRefinement(newMemStore(), &fakeLLM{}, nil)
	_, err := svc.Refine(context.Background(), uuid.New(), "acme", "   ")
	require.Error(t, err)
}

func TestSplitUpdatedHTML(t *testing.T) {
	text, html := splitUpdatedHTML("before\n<UPDATED_HTML>\n<html>x</html>\n</UPDATED_HTML>\nafter")
	assert.Equal(t, "before\n\nafter", text)
	assert.Equal(t, "<html>x</html>", html)

	text, html = splitUpdatedHTML("plain answer")
	assert.Equal(t, "plain answer", text)
	assert.Empty(t, html)
}
