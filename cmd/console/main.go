package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bvrai/campaign-console/internal/campaign"
	"github.com/bvrai/campaign-console/internal/config"
	"github.com/bvrai/campaign-console/internal/poller"
	"github.com/bvrai/campaign-console/internal/session"
	"github.com/bvrai/campaign-console/internal/store"
	"github.com/bvrai/campaign-console/pkg/sparkai"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root, a := newRootCommand()
	err := root.ExecuteContext(ctx)
	a.shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app holds the components every subcommand shares
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	store     *store.FileStore
	client    *sparkai.Client
	sessions  *session.Manager
	campaigns *campaign.Controller
	polls     *poller.Manager
}

// newRootCommand builds the command tree. The caller owns the returned app
// and shuts it down once the command has run.
func newRootCommand() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:           "console",
		Short:         "Spark AI campaign console",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	root.AddCommand(
		newServeCommand(a),
		newLoginCommand(a),
		newLogoutCommand(a),
		newWhoamiCommand(a),
		newCampaignsCommand(a),
		newWatchCommand(a),
	)
	for _, action := range []campaign.Action{campaign.ActionStart, campaign.ActionPause, campaign.ActionResume, campaign.ActionStop} {
		root.AddCommand(newTransitionCommand(a, action))
	}
	return root, a
}

// init loads configuration and builds the shared components
func (a *app) init() error {
	// A missing .env file is fine; the environment wins either way
	_ = godotenv.Load()

	logger := initLogger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	st, err := store.OpenFileStore(cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	a.cfg, a.logger, a.store = cfg, logger, st

	// The client reads the token from the session manager, which in turn
	// calls the client; closures break the cycle.
	a.client, err = sparkai.NewClient(
		sparkai.WithBaseURL(cfg.APIURL),
		sparkai.WithTimeout(cfg.APITimeout),
		sparkai.WithMaxRetries(cfg.MaxRetries),
		sparkai.WithTokenSource(func() string { return a.sessions.Token() }),
		sparkai.WithOnUnauthorized(func() { a.sessions.HandleUnauthorized() }),
		sparkai.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	a.sessions = session.NewManager(a.client.Auth, a.client.Credits, st, session.Options{
		AuthTimeout:      cfg.AuthTimeout,
		DemoLoginEnabled: cfg.DemoLoginEnabled,
	}, logger)
	a.campaigns = campaign.NewController(a.client.Campaigns, a.client.Uploads, a.sessions, logger)
	a.polls = poller.NewManager(
		poller.New(a.client.Campaigns, a.sessions, poller.Options{Interval: cfg.PollInterval}, logger),
		logger,
	)
	return nil
}

// resolveSession waits for the backend to confirm or deny the cached session
func (a *app) resolveSession(ctx context.Context) session.State {
	st, done := a.sessions.CheckStatus(ctx)
	for s := range done {
		st = s
	}
	return st
}

// requireSession is the CLI counterpart of the protected-route guard
func (a *app) requireSession(ctx context.Context) (session.State, error) {
	st := a.resolveSession(ctx)
	if !st.Authenticated() {
		return st, fmt.Errorf("not logged in, run `console login` first")
	}
	return st, nil
}

// shutdown stops polling loops; it is a no-op before init ran
func (a *app) shutdown() {
	if a.polls == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.polls.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Poller shutdown error")
	}
}

func initLogger() zerolog.Logger {
	// Check log format from environment
	logFormat := os.Getenv("LOG_FORMAT")
	logLevel := os.Getenv("LOG_LEVEL")

	// Set log level
	level := zerolog.InfoLevel
	switch logLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "trace":
		level = zerolog.TraceLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Logs go to stderr so command output stays pipeable
	if logFormat == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Caller().Logger()
	}

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(output).With().Timestamp().Logger()
}
