// Command agent runs the endpoint Activity Agent (§4.1, §4.2): it watches
// file, process, network and login activity on the local machine and
// reports it to the Ingest Service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/ashgrover/insiderwatch/internal/agentcore"
	"github.com/ashgrover/insiderwatch/internal/config"
	"github.com/ashgrover/insiderwatch/internal/logging"
	"github.com/ashgrover/insiderwatch/internal/supervisor"
	"github.com/ashgrover/insiderwatch/internal/supervisor/services"
)

// userIDPattern matches the spec's user id format, e.g. U4231 (§6).
var userIDPattern = regexp.MustCompile(`^U\d+$`)

func main() {
	cfg := config.DefaultAgentConfig()

	var (
		userID        = flag.String("user-id", "", "monitored user id, e.g. U4231 (required)")
		serverURL     = flag.String("server", cfg.ServerURL, "ingest service base URL")
		pollInterval  = flag.Duration("interval", cfg.ActivityPollInterval, "observer drain interval")
		alertInterval = flag.Duration("alert-interval", cfg.UploadInterval, "upload flush interval")
	)
	flag.Parse()

	if !userIDPattern.MatchString(*userID) {
		fmt.Fprintf(os.Stderr, "agent: --user-id must match %s, got %q\n", userIDPattern.String(), *userID)
		os.Exit(2)
	}

	cfg.UserID = *userID
	cfg.ServerURL = *serverURL
	cfg.ActivityPollInterval = *pollInterval
	cfg.UploadInterval = *alertInterval

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "agent: invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logging.Init(logging.DefaultConfig())
	logging.Info().Str("user_id", cfg.UserID).Str("server_url", cfg.ServerURL).Msg("starting insiderwatch agent")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ag := agentcore.New(cfg)
	if err := ag.Handshake(ctx); err != nil {
		logging.Fatal().Err(err).Msg("agent handshake failed, refusing to start")
	}

	tree, err := supervisor.NewSupervisorTree("agent", logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}
	for _, obs := range ag.Observers() {
		tree.AddCollectionService(services.NewObserverService(obs))
	}
	tree.AddTransportService(services.NewAggregatorService(ag.Aggregator()))

	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Fatal().Err(err).Msg("agent exited with error")
	}

	stats := ag.Stats()
	logging.Info().
		Int("send_queue_depth", stats.SendQueueDepth).
		Int("offline_queue_depth", stats.OfflineQueueDepth).
		Msg("agent shut down cleanly")
	fmt.Printf("insiderwatch agent stopped: %d events pending send, %d queued offline\n",
		stats.SendQueueDepth, stats.OfflineQueueDepth)
}
