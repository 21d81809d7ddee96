package agentcore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandshakeSucceedsWhenUserFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"id":"U001"}}`))
	}))
	defer srv.Close()

	err := Handshake(context.Background(), srv.Client(), srv.URL, "U001")
	require.NoError(t, err)
}

func TestHandshakeReturnsErrUserNotFoundOn404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := Handshake(context.Background(), srv.Client(), srv.URL, "U999")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestHandshakeIsNonFatalWhenServerUnreachable(t *testing.T) {
	client := &http.Client{Timeout: 100 * time.Millisecond}
	err := Handshake(context.Background(), client, "http://127.0.0.1:1", "U001")
	assert.NoError(t, err)
}

func TestHandshakeIsNonFatalOnUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := Handshake(context.Background(), srv.Client(), srv.URL, "U001")
	assert.NoError(t, err)
}
