package agentcore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goccyjson "github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/ashgrover/insiderwatch/internal/logging"
	"github.com/ashgrover/insiderwatch/internal/metrics"
	"github.com/ashgrover/insiderwatch/internal/model"
)

// retryableStatus names the response codes worth a retry-with-backoff
// rather than an immediate give-up (§7).
var retryableStatus = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

// ErrUnknownUser is returned when the server responds 404 to an ingest
// post: the configured user id doesn't exist server-side, a fatal
// condition for that event rather than a transient one (§7).
var ErrUnknownUser = errors.New("agentcore: user id not recognized by server")

// errInputInvalid marks a non-retryable 4xx response: the server rejected
// the request body, so resending it unchanged cannot succeed (§7).
var errInputInvalid = errors.New("agentcore: input-invalid")

// IngestResponse mirrors the ingest service's response envelope closely
// enough to read the fields the agent cares about.
type IngestResponse struct {
	Status string `json:"status"`
	Data   struct {
		AnomalyDetected bool `json:"anomaly_detected"`
	} `json:"data"`
}

// Transport sends activities to the ingest service over HTTP, wrapped in a
// circuit breaker (tripping after a run of consecutive failures so a dead
// server doesn't pile up retries) and rate-limited so bursts of observer
// output don't hammer the server on flush (§7).
type Transport struct {
	client      *http.Client
	serverURL   string
	retryBudget int
	retryBase   time.Duration
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker[*IngestResponse]
}

func NewTransport(serverURL string, connectTimeout time.Duration, retryBudget int, retryBaseDelay time.Duration) *Transport {
	settings := gobreaker.Settings{
		Name:        "agentcore-transport",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("agent transport circuit breaker state change")
		},
	}

	return &Transport{
		client:      &http.Client{Timeout: connectTimeout},
		serverURL:   serverURL,
		retryBudget: retryBudget,
		retryBase:   retryBaseDelay,
		limiter:     rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		breaker:     gobreaker.NewCircuitBreaker[*IngestResponse](settings),
	}
}

// SendActivity posts a single activity, retrying transient failures up to
// retryBudget additional times with doubling backoff (§7). A 404
// (ErrUnknownUser) or any other non-retryable 4xx short-circuits
// immediately: retrying won't make the user exist or the body valid.
func (t *Transport) SendActivity(ctx context.Context, a model.Activity) error {
	delay := t.retryBase
	var lastErr error

	for attempt := 0; attempt <= t.retryBudget; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}

		_, err := t.breaker.Execute(func() (*IngestResponse, error) {
			return t.post(ctx, a)
		})
		if err == nil {
			metrics.AgentUploadTotal.WithLabelValues("success").Inc()
			return nil
		}
		lastErr = err

		if errors.Is(err, ErrUnknownUser) || errors.Is(err, errInputInvalid) {
			metrics.AgentUploadTotal.WithLabelValues("dropped").Inc()
			return err
		}
		metrics.AgentUploadTotal.WithLabelValues("retryable_failure").Inc()
	}

	return fmt.Errorf("agentcore: send exhausted retry budget: %w", lastErr)
}

func (t *Transport) post(ctx context.Context, a model.Activity) (*IngestResponse, error) {
	body, err := goccyjson.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("agentcore: marshal activity: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.serverURL+"/api/v1/activities", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("agentcore: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agentcore: transient-transport: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrUnknownUser
	}
	if _, retryable := retryableStatus[resp.StatusCode]; retryable {
		return nil, fmt.Errorf("agentcore: transient-transport: server returned %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: server returned %d", errInputInvalid, resp.StatusCode)
	}

	var out IngestResponse
	if err := goccyjson.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("agentcore: decode response: %w", err)
	}
	return &out, nil
}
