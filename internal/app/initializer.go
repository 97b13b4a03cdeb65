package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/meet/internal/core"
	"github.com/dkeye/meet/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type sessionInput struct {
	params  domain.RouteParams
	devices domain.DeviceSelection
}

// gather reads the route parameters and the three device ids concurrently
// and returns once all four are available. No deadline beyond ctx.
func gather(ctx context.Context, route core.RouteSource, devices core.DeviceSource) (sessionInput, error) {
	var in sessionInput
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.params, err = route.Params(ctx)
		return err
	})
	g.Go(func() (err error) {
		in.devices.AudioInput, err = devices.AudioInput(ctx)
		return err
	})
	g.Go(func() (err error) {
		in.devices.AudioOutput, err = devices.AudioOutput(ctx)
		return err
	})
	g.Go(func() (err error) {
		in.devices.VideoInput, err = devices.VideoInput(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return sessionInput{}, err
	}
	return in, nil
}

// initialize resolves the session, fetches a token and joins.
func (m *Meeting) initialize(ctx context.Context) error {
	in, err := gather(ctx, m.deps.Route, m.deps.Devices)
	if err != nil {
		return m.fail(ctx, ErrSessionParams, err)
	}

	channel := in.params.Channel
	if in.params.Link != "" {
		channel, err = m.deps.Links.Resolve(in.params.Link)
		if err != nil {
			log.Warn().Err(err).Str("module", "app.meeting").Str("link", string(in.params.Link)).Msg("link resolution failed")
			m.deps.Notify.Alert(err.Error())
			m.deps.Nav.ToParent()
			m.setPhase(PhaseNotJoined)
			return fmt.Errorf("%w: %w", ErrLinkResolve, err)
		}
	}
	if channel == "" {
		return m.fail(ctx, ErrNoChannel, nil)
	}

	m.mu.Lock()
	m.channel = channel
	m.devices = in.devices
	m.mu.Unlock()
	m.setPhase(PhaseJoining)

	token, err := m.deps.Tokens.Token(ctx, channel)
	if err != nil {
		return m.fail(ctx, ErrTokenFetch, err)
	}
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	return m.join(ctx)
}

func (m *Meeting) join(ctx context.Context) error {
	m.mu.Lock()
	opts := core.NewJoin(m.channel, m.token).
		WithCameraAndMicrophone(m.devices.AudioInput, m.devices.VideoInput)
	m.mu.Unlock()

	track, err := m.deps.SDK.Join(ctx, opts)
	if err != nil {
		return m.fail(ctx, ErrJoin, err)
	}

	m.mu.Lock()
	if m.ended() {
		err := ErrLeft
		if m.closed {
			err = ErrClosed
		}
		m.mu.Unlock()
		track.Stop()
		if lerr := m.deps.SDK.Leave(context.Background()); lerr != nil && !errors.Is(lerr, core.ErrNotJoined) {
			log.Warn().Err(lerr).Str("module", "app.meeting").Msg("leave after late join")
		}
		return err
	}
	m.track = track
	m.phase = PhaseJoined
	m.mu.Unlock()

	log.Info().Str("module", "app.meeting").Str("channel", string(opts.Channel)).Str("track", track.ID()).Msg("joined")
	return nil
}

// fail leaves the meeting in the not-joined state and alerts the user.
// No alert is shown when ctx was cancelled; a left or closed meeting keeps
// its phase.
func (m *Meeting) fail(ctx context.Context, kind, cause error) error {
	err := kind
	if cause != nil {
		err = fmt.Errorf("%w: %w", kind, cause)
	}
	m.setPhase(PhaseNotJoined)
	if ctx.Err() != nil {
		log.Info().Err(err).Str("module", "app.meeting").Msg("meeting start cancelled")
		return err
	}
	log.Error().Err(err).Str("module", "app.meeting").Msg("meeting not joined")
	m.deps.Notify.Alert(err.Error())
	return err
}
