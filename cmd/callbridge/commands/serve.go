package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/callbridge/cmd/callbridge/internal/build"
	"github.com/haivivi/callbridge/cmd/callbridge/internal/config"
	"github.com/haivivi/callbridge/pkg/acceptor"
	"github.com/haivivi/callbridge/pkg/bridge"
	"github.com/haivivi/callbridge/pkg/tracker"
)

const shutdownTimeout = 30 * time.Second

var (
	flagListen    string
	flagPublicURL string
	flagLogLevel  string
	flagLogFormat string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept media streams and bridge calls",
	Long: `Start the HTTP server that accepts telephony media streams.

Routes:
  GET  /media-stream/{callID}/{agentID}   media-stream WebSocket
  GET  /media-stream?callId=&agentId=     same, identifiers in the query
  POST /twiml/{callID}/{agentID}          voice webhook answering with TwiML
  GET  /sessions                          live calls (JSON)
  GET  /healthz                           liveness

The model API key is read from model.api_key or OPENAI_API_KEY.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&flagPublicURL, "public-url", "", "public base URL used in TwiML (overrides config)")
	serveCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	serveCmd.Flags().StringVar(&flagLogFormat, "log-format", "", "log format: text or json")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	if flagListen != "" {
		cfg.Listen = flagListen
	}
	if flagPublicURL != "" {
		cfg.PublicURL = flagPublicURL
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Log.Format = flagLogFormat
	}

	logger, err := newLogger(cfg.Log, os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	client, err := cfg.RealtimeClient()
	if err != nil {
		return err
	}
	profiles, err := cfg.OpenProfiles()
	if err != nil {
		return err
	}

	var rec tracker.Recorder = tracker.Nop{}
	var async *tracker.Async
	store, err := cfg.OpenStore(logger)
	switch {
	case errors.Is(err, config.ErrNoTracker):
		logger.Info("call tracking disabled")
	case err != nil:
		return err
	default:
		defer store.Close()
		async = tracker.NewAsync(tracker.NewKV(store), tracker.AsyncConfig{
			Timeout: cfg.Tracker.Timeout.Duration(),
			Logger:  logger,
		})
		rec = async
	}

	acc := acceptor.New(cfg.AcceptorConfig(profiles, bridge.RealtimeDialer(client), rec, logger))
	srv := &http.Server{
		Handler:           acc,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Listen, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("callbridge: serving",
		"addr", ln.Addr().String(),
		"version", build.Version,
		"model", client.Model(),
		"profiles", cfg.Profiles.Backend,
		"tracker", cfg.Tracker.Backend,
	)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("callbridge: shutting down", "sessions", acc.Len())
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn("callbridge: http shutdown", "error", err)
	}
	if err := acc.Shutdown(sctx); err != nil {
		logger.Warn("callbridge: calls still open", "error", err)
	}
	if async != nil {
		async.Wait()
	}
	logger.Info("callbridge: stopped")
	return nil
}

func newLogger(cfg config.Log, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch cfg.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", cfg.Format)
}
