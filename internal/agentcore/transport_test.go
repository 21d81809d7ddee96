package agentcore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashgrover/insiderwatch/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleActivity() model.Activity {
	return model.Activity{
		UserID:    "U001",
		Timestamp: time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC),
		Kind:      model.KindLogon,
		Details:   model.ActivityDetails{Logon: &model.LogonDetails{}},
	}
}

func TestSendActivitySucceedsOnOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	tr := NewTransport(srv.URL, time.Second, 2, time.Millisecond)
	err := tr.SendActivity(context.Background(), sampleActivity())
	require.NoError(t, err)
}

func TestSendActivityReturnsErrUnknownUserOn404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tr := NewTransport(srv.URL, time.Second, 2, time.Millisecond)
	err := tr.SendActivity(context.Background(), sampleActivity())
	assert.True(t, errors.Is(err, ErrUnknownUser))
}

func TestSendActivityDoesNotRetryOn404(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tr := NewTransport(srv.URL, time.Second, 3, time.Millisecond)
	_ = tr.SendActivity(context.Background(), sampleActivity())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSendActivityRetriesOnTransientFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	tr := NewTransport(srv.URL, time.Second, 3, time.Millisecond)
	err := tr.SendActivity(context.Background(), sampleActivity())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSendActivityExhaustsRetryBudgetOnPersistentFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr := NewTransport(srv.URL, time.Second, 2, time.Millisecond)
	err := tr.SendActivity(context.Background(), sampleActivity())
	assert.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSendActivityInputInvalidDoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	tr := NewTransport(srv.URL, time.Second, 3, time.Millisecond)
	err := tr.SendActivity(context.Background(), sampleActivity())
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
