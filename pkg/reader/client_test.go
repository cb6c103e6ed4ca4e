package reader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/https://example.com/page", r.URL.Path)
		assert.Equal(t, "text/plain", r.Header.Get("Accept"))
		w.Write([]byte("extracted page text"))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	text, err := c.Fetch(context.Background(), "https://example.com/page")
	require.NoError(t, err)
	assert.Equal(t, "extracted page text", text)
}

func TestFetchSendsBearerKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte("ok text"))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithKey("secret"))
	_, err := c.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
}

func TestFetchTruncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 500)))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithMaxChars(100))
	text, err := c.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Len(t, text, 100)
}

func TestFetchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.Fetch(context.Background(), "https://example.com/missing")
	assert.Error(t, err)
}
