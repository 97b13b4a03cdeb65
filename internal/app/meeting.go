package app

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/meet/internal/core"
	"github.com/dkeye/meet/internal/domain"
	"github.com/rs/zerolog/log"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInitializing
	PhaseJoining
	PhaseJoined
	PhaseNotJoined
	PhaseLeft
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInitializing:
		return "initializing"
	case PhaseJoining:
		return "joining"
	case PhaseJoined:
		return "joined"
	case PhaseNotJoined:
		return "not_joined"
	case PhaseLeft:
		return "left"
	case PhaseClosed:
		return "closed"
	}
	return "unknown"
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Deps are the collaborators a meeting is wired with.
type Deps struct {
	Route   core.RouteSource
	Devices core.DeviceSource
	Links   core.LinkResolver
	Tokens  core.TokenSource
	SDK     core.SDK
	Nav     core.Navigator
	Notify  core.Notifier
}

// Meeting is one meeting view: it joins a channel once, tracks the roster
// from SDK events and serves the user's mute, camera, pin and leave actions.
// All state changes happen under one lock, one event at a time.
type Meeting struct {
	deps Deps

	mu      sync.Mutex
	roster  *Roster
	phase   Phase
	channel domain.ChannelName
	token   domain.Token
	devices domain.DeviceSelection
	track   core.MediaTrack
	subs    []core.Subscription
	cancel  context.CancelFunc
	closed  bool
}

func NewMeeting(deps Deps) *Meeting {
	return &Meeting{deps: deps, roster: NewRoster()}
}

// Start subscribes to the SDK events, then resolves the session and joins.
// It blocks until joined or failed; Close cancels it.
func (m *Meeting) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.phase != PhaseIdle {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.phase = PhaseInitializing
	m.subs = []core.Subscription{
		m.deps.SDK.OnRemoteUserLeft(m.onRemoteLeft),
		m.deps.SDK.OnRemoteUserStatusChanged(m.onRemoteStatus),
		m.deps.SDK.OnRemoteUserConnected(m.onRemoteConnected),
		m.deps.SDK.OnLocalUserJoined(m.onLocalJoined),
	}
	m.mu.Unlock()

	log.Info().Str("module", "app.meeting").Msg("starting")
	return m.initialize(ctx)
}

// Close releases all subscriptions together and cancels an in-flight
// token fetch or join. Events arriving afterwards are ignored.
func (m *Meeting) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.phase = PhaseClosed
	subs, cancel := m.subs, m.cancel
	m.subs = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, s := range subs {
		s.Unsubscribe()
	}
	log.Info().Str("module", "app.meeting").Int("subscriptions", len(subs)).Msg("closed")
}

// ended reports whether the meeting was left or closed. Callers hold mu.
func (m *Meeting) ended() bool {
	return m.closed || m.phase == PhaseLeft
}

// setPhase moves to p unless the meeting already ended.
func (m *Meeting) setPhase(p Phase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ended() {
		m.phase = p
	}
}

// update runs fn against the roster unless the meeting is closed.
func (m *Meeting) update(fn func(r *Roster)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	fn(m.roster)
}

func (m *Meeting) onRemoteConnected(u domain.RemoteUser) {
	m.update(func(r *Roster) { r.RemoteConnected(u) })
}

func (m *Meeting) onRemoteStatus(ch core.StatusChange) {
	m.update(func(r *Roster) { r.RemoteStatusChanged(ch) })
}

func (m *Meeting) onRemoteLeft(u domain.RemoteUser) {
	m.update(func(r *Roster) { r.RemoteLeft(u) })
}

func (m *Meeting) onLocalJoined(t core.MediaTrack) {
	m.update(func(r *Roster) { r.LocalJoined(t) })
}

func (m *Meeting) joinedTrack() (core.MediaTrack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.track == nil || m.phase != PhaseJoined {
		return nil, ErrNotJoined
	}
	return m.track, nil
}

// SetMicrophoneMuted mutes or unmutes the local microphone.
func (m *Meeting) SetMicrophoneMuted(muted bool) error {
	t, err := m.joinedTrack()
	if err != nil {
		return err
	}
	if muted {
		t.MuteMicrophone()
	} else {
		t.UnmuteMicrophone()
	}
	return nil
}

// SetCameraOff turns the local camera off or back on.
func (m *Meeting) SetCameraOff(off bool) error {
	t, err := m.joinedTrack()
	if err != nil {
		return err
	}
	if off {
		t.CameraOff()
	} else {
		t.CameraOn()
	}
	return nil
}

func (m *Meeting) PinEntry(p domain.Participant) (domain.PinState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roster.Pin(p)
}

// Pin toggles the pin on the remote participant with the given id.
func (m *Meeting) Pin(id domain.UserID) (domain.PinState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.roster.Find(id)
	if !ok {
		return m.roster.PinState(), ErrUnknownParticipant
	}
	return m.roster.Pin(p)
}

func (m *Meeting) TogglePinLocal() (domain.PinState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roster.PinLocal()
}

// Leave leaves the channel, stops the local track and navigates away.
// An in-flight token fetch or join is cancelled; a join that still
// completes is left right away.
func (m *Meeting) Leave(ctx context.Context) error {
	m.mu.Lock()
	track, cancel := m.track, m.cancel
	m.track = nil
	if !m.closed {
		m.phase = PhaseLeft
	}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	err := m.deps.SDK.Leave(ctx)
	if errors.Is(err, core.ErrNotJoined) {
		log.Debug().Str("module", "app.meeting").Msg("leave before join")
		err = nil
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "app.meeting").Msg("sdk leave")
	}
	if track != nil {
		track.Stop()
	}
	m.deps.Nav.ToParent()
	return err
}

func (m *Meeting) Participants() []domain.Participant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roster.Entries()
}

func (m *Meeting) Unpinned() []domain.Participant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roster.Unpinned()
}

func (m *Meeting) Pinned() (domain.Participant, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roster.Pinned()
}

// State is a read-only view of the meeting for APIs.
type State struct {
	Phase           Phase                  `json:"phase"`
	Channel         domain.ChannelName     `json:"channel,omitempty"`
	Devices         domain.DeviceSelection `json:"devices"`
	MicrophoneMuted bool                   `json:"microphone_muted"`
	CameraEnabled   bool                   `json:"camera_enabled"`
	Participants    int                    `json:"participants"`
	Pinned          *domain.ParticipantDTO `json:"pinned,omitempty"`
}

func (m *Meeting) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := State{
		Phase:        m.phase,
		Channel:      m.channel,
		Devices:      m.devices,
		Participants: m.roster.Len(),
	}
	if m.track != nil {
		s.MicrophoneMuted = m.track.MicrophoneMuted()
		s.CameraEnabled = m.track.CameraEnabled()
	}
	if p, ok := m.roster.Pinned(); ok {
		dto := p.DTO()
		dto.Pinned = true
		s.Pinned = &dto
	}
	return s
}

func (m *Meeting) PinState() domain.PinState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roster.PinState()
}
