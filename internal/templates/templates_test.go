package templates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/brandforge/internal/llm"
	"github.com/jonathan/brandforge/internal/logger"
	"github.com/jonathan/brandforge/internal/prompts"
)

const templateHTML = `<!DOCTYPE html><html><head><title>Report</title></head><body><div id="content"></div></body></html>`

type fakeLLM struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ ...llm.Attachment) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) Close() error { return nil }

type fakePrompts struct {
	byType map[prompts.Type]string
}

func (f fakePrompts) Effective(_ context.Context, t prompts.Type, _ uuid.UUID) (string, error) {
	if tmpl, ok := f.byType[t]; ok {
		return tmpl, nil
	}
	return "", errors.New("no prompt")
}

func newTestService(model *fakeLLM) *Service {
	source := fakePrompts{byType: map[prompts.Type]string{
		prompts.TypeReportTemplate: "REPORT from " + prompts.PlaceholderDesignSystemHTML,
		prompts.TypeSlidesTemplate: "SLIDES from " + prompts.PlaceholderDesignSystemHTML,
	}}
	svc := NewService(model, source, logger.Discard())
	svc.retry.Sleep = func(_ context.Context, _ time.Duration) error { return nil }
	return svc
}

func TestGenerateReport(t *testing.T) {
	model := &fakeLLM{reply: "Here you go:\n" + templateHTML + "\ntrailing notes"}
	svc := newTestService(model)

	result, err := svc.GenerateReport(context.Background(), uuid.New(), "<html>ds</html>")
	require.NoError(t, err)
	assert.Equal(t, templateHTML, result)

	require.Len(t, model.prompts, 1)
	assert.Equal(t, "REPORT from <html>ds</html>", model.prompts[0])
}

func TestGenerateSlides(t *testing.T) {
	model := &fakeLLM{reply: templateHTML}
	svc := newTestService(model)

	_, err := svc.GenerateSlides(context.Background(), uuid.New(), "<html>ds</html>")
	require.NoError(t, err)
	assert.Equal(t, "SLIDES from <html>ds</html>", model.prompts[0])
}

func TestGenerateRetriesAndFails(t *testing.T) {
	model := &fakeLLM{err: errors.New("overloaded")}
	svc := newTestService(model)

	_, err := svc.GenerateReport(context.Background(), uuid.New(), "<html>ds</html>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Len(t, model.prompts, llm.DefaultRetryAttempts)
}

func TestGeneratePromptResolutionError(t *testing.T) {
	svc := NewService(&fakeLLM{reply: templateHTML}, fakePrompts{}, logger.Discard())
	_, err := svc.GenerateReport(context.Background(), uuid.New(), "<html>ds</html>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report_template")
}
