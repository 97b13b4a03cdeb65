package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/meet/internal/adapters/devices"
	router "github.com/dkeye/meet/internal/adapters/http"
	"github.com/dkeye/meet/internal/adapters/route"
	signaling "github.com/dkeye/meet/internal/adapters/signal"
	"github.com/dkeye/meet/internal/adapters/token"
	"github.com/dkeye/meet/internal/adapters/ui"
	"github.com/dkeye/meet/internal/app"
	"github.com/dkeye/meet/internal/core"
	"github.com/dkeye/meet/internal/domain"
	transport "github.com/dkeye/meet/internal/transport/http"
)

func joinCommand() *cobra.Command {
	var (
		meetingURL string
		channel    string
		link       string
	)
	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join a meeting and serve the local control API",
		RunE: func(_ *cobra.Command, _ []string) error {
			params := route.Params{Link: domain.LinkToken(link), Channel: domain.ChannelName(channel)}
			if meetingURL != "" {
				var err error
				if params, err = route.FromURL(meetingURL); err != nil {
					return err
				}
			}
			return runJoin(params)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&meetingURL, "url", "", "meeting url with ?link= or ?channel=")
	flags.StringVar(&channel, "channel", "", "channel to join")
	flags.StringVar(&link, "link", "", "share link to resolve")
	cmd.MarkFlagsMutuallyExclusive("url", "channel", "link")
	cmd.MarkFlagsOneRequired("url", "channel", "link")
	return cmd
}

func tokenSource() (core.TokenSource, error) {
	if cfg.TokenURL != "" {
		return &token.HTTPSource{URL: cfg.TokenURL}, nil
	}
	iss, err := token.NewIssuer(cfg.Secret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	return iss, nil
}

func runJoin(params route.Params) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tokens, err := tokenSource()
	if err != nil {
		return fmt.Errorf("token source: %w", err)
	}

	sdk := signaling.NewClient(signaling.Options{
		URL:         cfg.SignalURL,
		DisplayName: cfg.DisplayName,
		PingPeriod:  cfg.PingPeriod,
		ReadLimit:   cfg.ReadLimit,
		ICEServers:  cfg.ICEServers,
	})
	defer sdk.Close()

	nav := ui.NewNavigator(cancel)
	meeting := app.NewMeeting(app.Deps{
		Route:   params,
		Devices: devices.NewStore(cfg.DevicesFile),
		Links:   token.NewLinkCodec(),
		Tokens:  tokens,
		SDK:     sdk,
		Nav:     nav,
		Notify:  ui.NewNotifier(os.Stderr),
	})
	defer meeting.Close()

	r := router.SetupRouter(cfg, &transport.Handlers{Meeting: meeting})
	addr := fmt.Sprintf("127.0.0.1:%d", cfg.ControlPort)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("control api started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
	}()

	go func() {
		if err := meeting.Start(ctx); err != nil {
			log.Error().Err(err).Msg("meeting start")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if meeting.State().Phase == app.PhaseJoined {
		if err := meeting.Leave(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("leave on shutdown")
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Meeting exited gracefully")
	return nil
}
