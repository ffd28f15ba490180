package extraction

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/brandforge/internal/logger"
)

func newTestFetcher() *Fetcher {
	f := NewFetcher(logger.Discard(), "")
	f.browse = func(ctx context.Context, url string) (string, error) {
		return "", errors.New("browser disabled in tests")
	}
	return f
}

func TestFetchDirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "BrandForge")
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer server.Close()

	f := newTestFetcher()
	page, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, page.HTML, "hello")
	assert.False(t, page.UsedBrowser)
}

func TestFetchFallsBackToBrowser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	f := newTestFetcher()
	f.browse = func(ctx context.Context, url string) (string, error) {
		return "<html><body>rendered</body></html>", nil
	}

	page, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, page.HTML, "rendered")
	assert.True(t, page.UsedBrowser)
	assert.Empty(t, page.CSS)
}

func TestFetchBothPathsFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := newTestFetcher()
	_, err := f.Fetch(context.Background(), server.URL)
	require.Error(t, err)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, server.URL, fetchErr.URL)
	assert.Contains(t, fetchErr.Message, "HTTP status 500")
	assert.Contains(t, fetchErr.Message, "browser disabled")
}

func TestFetchInvalidURL(t *testing.T) {
	f := newTestFetcher()
	_, err := f.direct(context.Background(), "not-a-url")
	require.Error(t, err)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "invalid URL", fetchErr.Message)
}

func TestFetchRedirectLimit(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	f := newTestFetcher()
	_, err := f.direct(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirects")
}

func TestFetchBodySizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", maxBodyBytes+1)))
	}))
	defer server.Close()

	f := newTestFetcher()
	_, err := f.direct(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}
