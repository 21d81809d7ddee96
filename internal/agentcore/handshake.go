package agentcore

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	goccyjson "github.com/goccy/go-json"

	"github.com/ashgrover/insiderwatch/internal/logging"
)

// ErrUserNotFound is returned by Handshake when the server affirmatively
// rejects the configured user id, which aborts startup (§4.2: a user the
// server has never heard of will never have its events accepted).
var ErrUserNotFound = errors.New("agentcore: configured user id not recognized by server")

// Handshake verifies the configured user id against the server's user
// profile endpoint before the agent starts observing. A server that can't
// be reached at all is not fatal: the agent proceeds with minimal defaults
// and relies on the offline queue and retrying transport to catch up once
// the server returns (§7).
func Handshake(ctx context.Context, client *http.Client, serverURL, userID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serverURL+"/api/v1/users/"+userID, nil)
	if err != nil {
		return fmt.Errorf("agentcore: build handshake request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		logging.Warn().Err(err).Str("server_url", serverURL).
			Msg("agent could not reach server at startup, proceeding with defaults")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrUserNotFound
	}
	if resp.StatusCode != http.StatusOK {
		logging.Warn().Int("status", resp.StatusCode).Msg("agent handshake received a non-OK, non-404 response, proceeding anyway")
		return nil
	}

	var profile struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := goccyjson.NewDecoder(resp.Body).Decode(&profile); err != nil {
		logging.Warn().Err(err).Msg("agent could not decode handshake response, proceeding anyway")
	}
	return nil
}
