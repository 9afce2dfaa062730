package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bvrai/campaign-console/internal/api"
	"github.com/bvrai/campaign-console/internal/campaign"
	"github.com/bvrai/campaign-console/internal/session"
	"github.com/bvrai/campaign-console/pkg/sparkai"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local dashboard backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	logger := a.logger
	logger.Info().Msg("Starting campaign console")

	logger.Info().
		Str("api_url", a.cfg.APIURL).
		Str("storage", a.cfg.StoragePath).
		Dur("poll_interval", a.cfg.PollInterval).
		Msg("Configuration loaded")

	// /ready answers 503 until the cached session is reconciled
	go a.resolveSession(ctx)

	router := api.NewRouter(a.cfg, a.sessions, a.campaigns, a.polls, a.client.Voices, a.store, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         a.cfg.Address(),
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", a.cfg.Address()).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	// Stop polling loops first so no snapshot is pushed to a closing stream
	if err := router.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Status polling shutdown error")
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("Campaign console stopped")
	return nil
}

func newLoginCommand(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				p, err := prompt(cmd.InOrStdin(), cmd.OutOrStdout(), "Password: ")
				if err != nil {
					return err
				}
				password = p
			}

			st, err := a.sessions.Login(cmd.Context(), email, password)
			var loginErr *session.LoginError
			if errors.As(err, &loginErr) {
				return fmt.Errorf("login failed: %s", loginErr.Message)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSession(st))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	return cmd
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the local session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.resolveSession(cmd.Context()).Authenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), styles.muted.Render("Not logged in"))
				return nil
			}
			a.sessions.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), styles.ok.Render("Logged out"))
			return nil
		},
	}
}

func newWhoamiCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and credit balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			if err := a.sessions.RefreshCredits(cmd.Context()); err != nil {
				a.logger.Warn().Err(err).Msg("Credit refresh failed, showing cached balance")
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSession(a.sessions.Snapshot()))
			return nil
		},
	}
}

func newCampaignsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "campaigns",
		Aliases: []string{"ls"},
		Short:   "List campaigns",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			campaigns, err := a.campaigns.List(cmd.Context())
			if err != nil {
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderCampaignTable(campaigns))
			return nil
		},
	}
}

func newTransitionCommand(a *app, action campaign.Action) *cobra.Command {
	var yes, watch bool

	cmd := &cobra.Command{
		Use:   string(action) + " <campaign-id>",
		Short: transitionShort[action],
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			c, err := a.campaigns.Load(ctx, args[0])
			if err != nil {
				return describe(err)
			}

			var confirm campaign.Confirmer = campaign.Confirmed
			if !yes {
				confirm = &stdinConfirmer{in: bufio.NewReader(cmd.InOrStdin()), out: out}
			}

			err = a.campaigns.Transition(ctx, action, confirm)
			if errors.Is(err, campaign.ErrNotConfirmed) {
				fmt.Fprintln(out, styles.muted.Render("Cancelled"))
				return nil
			}
			if err != nil {
				return describe(err)
			}

			view := a.campaigns.Snapshot()
			fmt.Fprintf(out, "%s %s\n", styles.title.Render(c.Name), renderControl(view.Control))

			if watch && action == campaign.ActionStart {
				return a.watch(ctx, c.ID, c.Name, out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	if action == campaign.ActionStart {
		cmd.Flags().BoolVarP(&watch, "watch", "w", false, "follow progress after starting")
	}
	return cmd
}

var transitionShort = map[campaign.Action]string{
	campaign.ActionStart:  "Start dialing a campaign's leads",
	campaign.ActionPause:  "Pause a running campaign",
	campaign.ActionResume: "Resume a paused campaign",
	campaign.ActionStop:   "Stop a running or paused campaign",
}

func newWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <campaign-id>",
		Short: "Follow a campaign's progress until it completes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}

			name := args[0]
			if c, err := a.campaigns.Load(ctx, args[0]); err == nil {
				name = c.Name
			} else {
				a.logger.Debug().Err(err).Msg("Campaign details unavailable, watching by id")
			}
			return a.watch(ctx, args[0], name, cmd.OutOrStdout())
		},
	}
}

// watch renders a status panel on every snapshot until the campaign
// completes or ctx is cancelled
func (a *app) watch(ctx context.Context, campaignID, name string, out io.Writer) error {
	updates, unsubscribe := a.polls.Subscribe(8)
	defer unsubscribe()

	a.polls.Watch(ctx, campaignID)
	defer a.polls.Close(campaignID)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, styles.muted.Render("Stopped watching"))
			return nil

		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			if snap.CampaignID != campaignID || snap.Report == nil {
				continue
			}
			fmt.Fprintln(out, renderStatusPanel(name, snap, a.sessions.Credits()))
			if snap.Done {
				return nil
			}
		}
	}
}

// stdinConfirmer asks a yes/no question on the terminal
type stdinConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func (c *stdinConfirmer) Confirm(ctx context.Context, question string) bool {
	fmt.Fprintf(c.out, "%s [y/N] ", styles.warn.Render(question))
	answer, err := c.in.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func prompt(in io.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// describe turns an error kind into the message a user can act on
func describe(err error) error {
	switch sparkai.KindOf(err) {
	case sparkai.KindInsufficientCredits:
		return fmt.Errorf("insufficient credits, upgrade your plan to continue: %s", sparkai.Message(err))
	case sparkai.KindUnauthorized:
		return fmt.Errorf("session expired, run `console login` again")
	case sparkai.KindNetwork:
		return fmt.Errorf("backend unreachable: %w", err)
	default:
		return err
	}
}
