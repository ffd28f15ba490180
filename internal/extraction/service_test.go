package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/brandforge/internal/llm"
	"github.com/jonathan/brandforge/internal/logger"
	"github.com/jonathan/brandforge/internal/prompts"
)

const designSystemHTML = "<!DOCTYPE html><html><head><style>:root{--brand:#123}</style></head><body>palette</body></html>"

type fakeFetcher struct {
	pages map[string]*PageContent
	errs  map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*PageContent, error) {
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if page, ok := f.pages[url]; ok {
		return page, nil
	}
	return nil, fmt.Errorf("unexpected url %s", url)
}

type fakeLLM struct {
	reply       string
	err         error
	prompts     []string
	attachments [][]llm.Attachment
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, attachments ...llm.Attachment) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.attachments = append(f.attachments, attachments)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) Close() error { return nil }

type fakePrompts struct{}

func (fakePrompts) Effective(_ context.Context, t prompts.Type, _ uuid.UUID) (string, error) {
	return "PROMPT[" + prompts.PlaceholderWebsiteContent + "]", nil
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
		return nil, fmt.Errorf("not found: %s", path)
	}
	return data, nil
}

func (f *fakeStorage) GetStream(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStorage) Delete(_ context.Context, path string) error {
	delete(f.files, path)
	return nil
}

func (f *fakeStorage) List(_ context.Context, _ string) ([]string, error) { return nil, nil }

func (f *fakeStorage) Exists(_ context.Context, path string) (bool, error) {
	_, ok := f.files[path]
	return ok, nil
}

func (f *fakeStorage) PublicURL(path string) string { return "/api/storage/" + path }

func newTestService(fetcher *fakeFetcher, model *fakeLLM, store *fakeStorage) *Service {
	if store == nil {
		store = &fakeStorage{}
	}
	svc := NewService(fetcher, model, fakePrompts{}, store, logger.Discard())
	svc.retry.Sleep = func(_ context.Context, _ time.Duration) error { return nil }
	return svc
}

func TestExtractFromURL(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*PageContent{
		"https://acme.com": {HTML: "<html>acme</html>", CSS: "body{color:blue}"},
	}}
	model := &fakeLLM{reply: "sure, here it is:\n" + designSystemHTML}
	svc := newTestService(fetcher, model, nil)

	result, err := svc.ExtractFromURL(context.Background(), uuid.New(), "https://acme.com")
	require.NoError(t, err)
	assert.Equal(t, designSystemHTML, result)

	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "HTML:\n<html>acme</html>")
	assert.Contains(t, model.prompts[0], "CSS:\nbody{color:blue}")
	assert.Contains(t, model.prompts[0], "PROMPT[")
}

func TestExtractFromURLFetchError(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[string]error{
		"https://down.com": &Error{URL: "https://down.com", Message: "HTTP status 503"},
	}}
	svc := newTestService(fetcher, &fakeLLM{}, nil)

	_, err := svc.ExtractFromURL(context.Background(), uuid.New(), "https://down.com")
	require.Error(t, err)

	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
}

func TestExtractFromPDF(t *testing.T) {
	store := &fakeStorage{files: map[string][]byte{
		"brands/acme/source.pdf": []byte("%PDF-1.4 fake"),
	}}
	model := &fakeLLM{reply: designSystemHTML}
	svc := newTestService(&fakeFetcher{}, model, store)

	result, err := svc.ExtractFromPDF(context.Background(), uuid.New(), "brands/acme/source.pdf")
	require.NoError(t, err)
	assert.Equal(t, designSystemHTML, result)

	require.Len(t, model.attachments, 1)
	require.Len(t, model.attachments[0], 1)
	assert.Equal(t, "application/pdf", model.attachments[0][0].MIMEType)
	assert.Contains(t, model.prompts[0], "[See attached PDF document]")
}

func TestExtractFromSources(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string]*PageContent{
			"https://acme.com": {HTML: "<html>acme</html>"},
		},
		errs: map[string]error{
			"https://down.com": errors.New("connection refused"),
		},
	}
	store := &fakeStorage{files: map[string][]byte{
		"brands/acme/source.pdf": []byte("%PDF-1.4"),
	}}
	model := &fakeLLM{reply: designSystemHTML}
	svc := newTestService(fetcher, model, store)

	sources := []SourceInput{
		{Type: "url", URL: "https://acme.com"},
		{Type: "url", URL: "https://down.com"},
		{Type: "pdf", StoragePath: "brands/acme/source.pdf"},
	}
	result, err := svc.ExtractFromSources(context.Background(), uuid.New(), sources)
	require.NoError(t, err)
	assert.Equal(t, designSystemHTML, result)

	prompt := model.prompts[0]
	assert.Contains(t, prompt, "--- SOURCE 1 (https://acme.com) ---")
	assert.Contains(t, prompt, "--- SOURCE 2 (https://down.com) ---\n[FAILED TO FETCH]")
	assert.Contains(t, prompt, "--- SOURCE 3 (PDF: brands/acme/source.pdf) ---\n[See attached PDF document]")
	require.Len(t, model.attachments[0], 1)
}

func TestExtractFromSourcesAllFail(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[string]error{
		"https://a.com": errors.New("timeout"),
		"https://b.com": errors.New("dns failure"),
	}}
	svc := newTestService(fetcher, &fakeLLM{}, nil)

	sources := []SourceInput{
		{Type: "url", URL: "https://a.com"},
		{Type: "url", URL: "https://b.com"},
	}
	_, err := svc.ExtractFromSources(context.Background(), uuid.New(), sources)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all sources failed to fetch")
	assert.Contains(t, err.Error(), "timeout")
	assert.Contains(t, err.Error(), "dns failure")
}

func TestExtractFromSourcesEmpty(t *testing.T) {
	svc := newTestService(&fakeFetcher{}, &fakeLLM{}, nil)
	_, err := svc.ExtractFromSources(context.Background(), uuid.New(), nil)
	require.Error(t, err)
}

func TestExtractRetriesModelErrors(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*PageContent{
		"https://acme.com": {HTML: "<html>acme</html>"},
	}}
	model := &fakeLLM{err: errors.New("model unavailable")}
	svc := newTestService(fetcher, model, nil)

	_, err := svc.ExtractFromURL(context.Background(), uuid.New(), "https://acme.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Len(t, model.prompts, llm.DefaultRetryAttempts)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	out := truncate("abcdef", 3)
	assert.Contains(t, out, "abc")
	assert.Contains(t, out, "[truncated]")
}
