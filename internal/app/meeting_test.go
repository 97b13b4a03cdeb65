package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/meet/internal/core"
	"github.com/dkeye/meet/internal/core/mock_core"
	"github.com/dkeye/meet/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fakeTrack struct {
	mu      sync.Mutex
	id      string
	muted   bool
	off     bool
	stopped bool
}

func (t *fakeTrack) ID() string            { return t.id }
func (t *fakeTrack) MuteMicrophone()       { t.set(func() { t.muted = true }) }
func (t *fakeTrack) UnmuteMicrophone()     { t.set(func() { t.muted = false }) }
func (t *fakeTrack) CameraOn()             { t.set(func() { t.off = false }) }
func (t *fakeTrack) CameraOff()            { t.set(func() { t.off = true }) }
func (t *fakeTrack) Stop()                 { t.set(func() { t.stopped = true }) }
func (t *fakeTrack) MicrophoneMuted() bool { t.mu.Lock(); defer t.mu.Unlock(); return t.muted }
func (t *fakeTrack) CameraEnabled() bool   { t.mu.Lock(); defer t.mu.Unlock(); return !t.off }
func (t *fakeTrack) isStopped() bool       { t.mu.Lock(); defer t.mu.Unlock(); return t.stopped }
func (t *fakeTrack) set(fn func())         { t.mu.Lock(); fn(); t.mu.Unlock() }

// fakeSDK delivers events synchronously on the caller's goroutine.
type fakeSDK struct {
	mu        sync.Mutex
	join      func(ctx context.Context, opts core.JoinOptions) (core.MediaTrack, error)
	joined    []core.JoinOptions
	leaves    int
	leaveErr  error
	nextID    int
	connected map[int]func(domain.RemoteUser)
	status    map[int]func(core.StatusChange)
	left      map[int]func(domain.RemoteUser)
	local     map[int]func(core.MediaTrack)
}

func newFakeSDK(track core.MediaTrack) *fakeSDK {
	s := &fakeSDK{
		connected: map[int]func(domain.RemoteUser){},
		status:    map[int]func(core.StatusChange){},
		left:      map[int]func(domain.RemoteUser){},
		local:     map[int]func(core.MediaTrack){},
	}
	s.join = func(context.Context, core.JoinOptions) (core.MediaTrack, error) {
		s.fireLocalJoined(track)
		return track, nil
	}
	return s
}

type fakeSub struct{ release func() }

func (f fakeSub) Unsubscribe() { f.release() }

func subscribe[T any](s *fakeSDK, m map[int]T, cb T) core.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	m[id] = cb
	return fakeSub{release: func() {
		s.mu.Lock()
		delete(m, id)
		s.mu.Unlock()
	}}
}

func listeners[T any](s *fakeSDK, m map[int]T) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, 0, len(m))
	for _, cb := range m {
		out = append(out, cb)
	}
	return out
}

func (s *fakeSDK) Join(ctx context.Context, opts core.JoinOptions) (core.MediaTrack, error) {
	s.mu.Lock()
	s.joined = append(s.joined, opts)
	s.mu.Unlock()
	return s.join(ctx, opts)
}

func (s *fakeSDK) Leave(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaves++
	return s.leaveErr
}

func (s *fakeSDK) leaveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaves
}

func (s *fakeSDK) OnRemoteUserConnected(cb func(domain.RemoteUser)) core.Subscription {
	return subscribe(s, s.connected, cb)
}

func (s *fakeSDK) OnRemoteUserStatusChanged(cb func(core.StatusChange)) core.Subscription {
	return subscribe(s, s.status, cb)
}

func (s *fakeSDK) OnRemoteUserLeft(cb func(domain.RemoteUser)) core.Subscription {
	return subscribe(s, s.left, cb)
}

func (s *fakeSDK) OnLocalUserJoined(cb func(core.MediaTrack)) core.Subscription {
	return subscribe(s, s.local, cb)
}

func (s *fakeSDK) fireConnected(u domain.RemoteUser) {
	for _, cb := range listeners(s, s.connected) {
		cb(u)
	}
}

func (s *fakeSDK) fireStatus(ch core.StatusChange) {
	for _, cb := range listeners(s, s.status) {
		cb(ch)
	}
}

func (s *fakeSDK) fireLeft(u domain.RemoteUser) {
	for _, cb := range listeners(s, s.left) {
		cb(u)
	}
}

func (s *fakeSDK) fireLocalJoined(t core.MediaTrack) {
	for _, cb := range listeners(s, s.local) {
		cb(t)
	}
}

func (s *fakeSDK) subscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connected) + len(s.status) + len(s.left) + len(s.local)
}

type fixture struct {
	route   *mock_core.MockRouteSource
	devices *mock_core.MockDeviceSource
	links   *mock_core.MockLinkResolver
	tokens  *mock_core.MockTokenSource
	nav     *mock_core.MockNavigator
	notify  *mock_core.MockNotifier
	sdk     *fakeSDK
	track   *fakeTrack
	meeting *Meeting
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		route:   mock_core.NewMockRouteSource(ctrl),
		devices: mock_core.NewMockDeviceSource(ctrl),
		links:   mock_core.NewMockLinkResolver(ctrl),
		tokens:  mock_core.NewMockTokenSource(ctrl),
		nav:     mock_core.NewMockNavigator(ctrl),
		notify:  mock_core.NewMockNotifier(ctrl),
		track:   &fakeTrack{id: "local-track"},
	}
	f.sdk = newFakeSDK(f.track)
	f.meeting = NewMeeting(Deps{
		Route:   f.route,
		Devices: f.devices,
		Links:   f.links,
		Tokens:  f.tokens,
		SDK:     f.sdk,
		Nav:     f.nav,
		Notify:  f.notify,
	})
	t.Cleanup(f.meeting.Close)
	return f
}

func (f *fixture) expectSession(params domain.RouteParams) {
	f.route.EXPECT().Params(gomock.Any()).Return(params, nil)
	f.devices.EXPECT().AudioInput(gomock.Any()).Return("mic-1", nil)
	f.devices.EXPECT().AudioOutput(gomock.Any()).Return("spk-1", nil)
	f.devices.EXPECT().VideoInput(gomock.Any()).Return("cam-1", nil)
}

func (f *fixture) joined(t *testing.T) {
	t.Helper()
	f.expectSession(domain.RouteParams{Channel: "daily"})
	f.tokens.EXPECT().Token(gomock.Any(), domain.ChannelName("daily")).Return(domain.Token("tok"), nil)
	require.NoError(t, f.meeting.Start(context.Background()))
}

func TestMeeting_StartByChannel(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.joined(t)

	require.Len(t, f.sdk.joined, 1)
	assert.Equal(t, core.JoinOptions{
		Channel:    "daily",
		Token:      "tok",
		AudioInput: "mic-1",
		VideoInput: "cam-1",
		Camera:     true,
		Microphone: true,
	}, f.sdk.joined[0])

	st := f.meeting.State()
	assert.Equal(t, PhaseJoined, st.Phase)
	assert.Equal(t, domain.ChannelName("daily"), st.Channel)
	assert.Equal(t, domain.DeviceSelection{AudioInput: "mic-1", AudioOutput: "spk-1", VideoInput: "cam-1"}, st.Devices)
	assert.True(t, st.CameraEnabled)
	assert.False(t, st.MicrophoneMuted)

	ps := f.meeting.Participants()
	require.Len(t, ps, 1)
	assert.True(t, ps[0].IsLocal())
}

func TestMeeting_StartByLink(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.expectSession(domain.RouteParams{Link: "abc", Channel: "ignored"})
	f.links.EXPECT().Resolve(domain.LinkToken("abc")).Return(domain.ChannelName("resolved"), nil)
	f.tokens.EXPECT().Token(gomock.Any(), domain.ChannelName("resolved")).Return(domain.Token("tok"), nil)

	require.NoError(t, f.meeting.Start(context.Background()))
	assert.Equal(t, domain.ChannelName("resolved"), f.sdk.joined[0].Channel)
}

func TestMeeting_LinkError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.expectSession(domain.RouteParams{Link: "bad"})
	f.links.EXPECT().Resolve(domain.LinkToken("bad")).Return(domain.ChannelName(""), errors.New("link expired"))
	f.notify.EXPECT().Alert("link expired")
	f.nav.EXPECT().ToParent()

	err := f.meeting.Start(context.Background())
	assert.ErrorIs(t, err, ErrLinkResolve)
	assert.Empty(t, f.sdk.joined)
	assert.Equal(t, PhaseNotJoined, f.meeting.State().Phase)
}

func TestMeeting_SessionParamsError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	boom := errors.New("no camera permission")
	f.route.EXPECT().Params(gomock.Any()).Return(domain.RouteParams{Channel: "daily"}, nil)
	f.devices.EXPECT().AudioInput(gomock.Any()).Return("mic-1", nil).AnyTimes()
	f.devices.EXPECT().AudioOutput(gomock.Any()).Return("spk-1", nil).AnyTimes()
	f.devices.EXPECT().VideoInput(gomock.Any()).Return("", boom)
	f.notify.EXPECT().Alert(gomock.Any())

	err := f.meeting.Start(context.Background())
	assert.ErrorIs(t, err, ErrSessionParams)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, f.sdk.joined)
}

func TestMeeting_NoChannel(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.expectSession(domain.RouteParams{})
	f.notify.EXPECT().Alert(gomock.Any())

	assert.ErrorIs(t, f.meeting.Start(context.Background()), ErrNoChannel)
	assert.Equal(t, PhaseNotJoined, f.meeting.State().Phase)
}

func TestMeeting_TokenError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.expectSession(domain.RouteParams{Channel: "daily"})
	f.tokens.EXPECT().Token(gomock.Any(), gomock.Any()).Return(domain.Token(""), errors.New("503"))
	f.notify.EXPECT().Alert(gomock.Any())

	err := f.meeting.Start(context.Background())
	assert.ErrorIs(t, err, ErrTokenFetch)
	assert.Empty(t, f.sdk.joined)

	st := f.meeting.State()
	assert.Equal(t, PhaseNotJoined, st.Phase)
	assert.Equal(t, domain.ChannelName("daily"), st.Channel)
	assert.ErrorIs(t, f.meeting.SetMicrophoneMuted(true), ErrNotJoined)
}

func TestMeeting_JoinError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.expectSession(domain.RouteParams{Channel: "daily"})
	f.tokens.EXPECT().Token(gomock.Any(), gomock.Any()).Return(domain.Token("tok"), nil)
	f.notify.EXPECT().Alert(gomock.Any())
	f.sdk.join = func(context.Context, core.JoinOptions) (core.MediaTrack, error) {
		return nil, errors.New("rejected")
	}

	assert.ErrorIs(t, f.meeting.Start(context.Background()), ErrJoin)
	assert.Equal(t, PhaseNotJoined, f.meeting.State().Phase)
	assert.ErrorIs(t, f.meeting.SetCameraOff(true), ErrNotJoined)
}

func TestMeeting_StartTwice(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.joined(t)
	assert.ErrorIs(t, f.meeting.Start(context.Background()), ErrAlreadyStarted)
}

func TestMeeting_CloseCancelsJoin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.expectSession(domain.RouteParams{Channel: "daily"})
	f.tokens.EXPECT().Token(gomock.Any(), gomock.Any()).Return(domain.Token("tok"), nil)
	entered := make(chan struct{})
	f.sdk.join = func(ctx context.Context, _ core.JoinOptions) (core.MediaTrack, error) {
		close(entered)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	errc := make(chan error, 1)
	go func() { errc <- f.meeting.Start(context.Background()) }()
	<-entered
	f.meeting.Close()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("start did not return after close")
	}
	assert.Equal(t, PhaseClosed, f.meeting.State().Phase)
	assert.Zero(t, f.sdk.subscriptions())
}

func TestMeeting_JoinCompletesAfterClose(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.expectSession(domain.RouteParams{Channel: "daily"})
	f.tokens.EXPECT().Token(gomock.Any(), gomock.Any()).Return(domain.Token("tok"), nil)
	f.sdk.join = func(context.Context, core.JoinOptions) (core.MediaTrack, error) {
		f.meeting.Close()
		return f.track, nil
	}

	assert.ErrorIs(t, f.meeting.Start(context.Background()), ErrClosed)
	assert.True(t, f.track.isStopped())
	assert.Equal(t, 1, f.sdk.leaves)
}

func TestMeeting_CloseReleasesSubscriptions(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.joined(t)
	assert.Equal(t, 4, f.sdk.subscriptions())

	f.meeting.Close()
	f.meeting.Close()
	assert.Zero(t, f.sdk.subscriptions())
	assert.ErrorIs(t, f.meeting.Start(context.Background()), ErrClosed)
}

func TestMeeting_EventsAfterCloseIgnored(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.joined(t)

	connected := listeners(f.sdk, f.sdk.connected)
	f.meeting.Close()
	for _, cb := range connected {
		cb(remote("late"))
	}
	assert.Len(t, f.meeting.Participants(), 1)
}

func TestMeeting_RosterFromEvents(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.joined(t)

	f.sdk.fireConnected(remote("1"))
	f.sdk.fireConnected(remote("2"))
	f.sdk.fireConnected(remote("1"))
	assert.Equal(t, []string{"local", "1", "2"}, ids(f.meeting.Participants()))

	_, err := f.meeting.Pin("1")
	require.NoError(t, err)
	assert.Equal(t, []string{"local", "2"}, ids(f.meeting.Unpinned()))

	f.sdk.fireStatus(core.StatusChange{User: remote("1"), State: domain.StateReconnecting})
	p, ok := f.meeting.Pinned()
	require.True(t, ok)
	u, _ := p.Remote()
	assert.Equal(t, domain.StateReconnecting, u.State)
	assert.Equal(t, domain.StateReconnecting, f.meeting.State().Pinned.State)

	f.sdk.fireLeft(remote("1"))
	_, ok = f.meeting.Pinned()
	assert.False(t, ok)
	assert.Nil(t, f.meeting.State().Pinned)
	assert.Equal(t, []string{"local", "2"}, ids(f.meeting.Participants()))

	f.sdk.fireStatus(core.StatusChange{User: remote("3"), State: domain.StateConnected})
	assert.Equal(t, []string{"local", "2", "3"}, ids(f.meeting.Participants()))
}

func TestMeeting_PinLocalThenRemoteConnects(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.joined(t)

	st, err := f.meeting.TogglePinLocal()
	require.NoError(t, err)
	require.True(t, st.IsLocal())

	f.sdk.fireConnected(remote("3"))
	p, ok := f.meeting.Pinned()
	require.True(t, ok)
	assert.True(t, p.IsLocal())

	st, err = f.meeting.Pin("3")
	require.NoError(t, err)
	id, _ := st.RemoteID()
	assert.Equal(t, domain.UserID("3"), id)
	assert.Equal(t, []string{"local"}, ids(f.meeting.Unpinned()))
}

func TestMeeting_PinUnknown(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.joined(t)

	_, err := f.meeting.Pin("nobody")
	assert.ErrorIs(t, err, ErrUnknownParticipant)
	_, err = f.meeting.PinEntry(domain.NewRemoteParticipant(remote("nobody")))
	assert.ErrorIs(t, err, ErrUnknownParticipant)
}

func TestMeeting_MediaControls(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.joined(t)

	require.NoError(t, f.meeting.SetMicrophoneMuted(true))
	require.NoError(t, f.meeting.SetCameraOff(true))
	st := f.meeting.State()
	assert.True(t, st.MicrophoneMuted)
	assert.False(t, st.CameraEnabled)

	require.NoError(t, f.meeting.SetMicrophoneMuted(false))
	require.NoError(t, f.meeting.SetCameraOff(false))
	st = f.meeting.State()
	assert.False(t, st.MicrophoneMuted)
	assert.True(t, st.CameraEnabled)
}

func TestMeeting_Leave(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.joined(t)
	f.nav.EXPECT().ToParent()

	require.NoError(t, f.meeting.Leave(context.Background()))
	assert.Equal(t, 1, f.sdk.leaves)
	assert.True(t, f.track.isStopped())
	assert.Equal(t, PhaseLeft, f.meeting.State().Phase)
	assert.ErrorIs(t, f.meeting.SetMicrophoneMuted(true), ErrNotJoined)
}

func TestPhase_String(t *testing.T) {
	t.Parallel()

	b, err := PhaseNotJoined.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "not_joined", string(b))
	assert.Equal(t, "unknown", Phase(99).String())
}

func TestMeeting_LeaveDuringJoin(t *testing.T) {
	t.Parallel()

	t.Run("join completes anyway", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.expectSession(domain.RouteParams{Channel: "daily"})
		f.tokens.EXPECT().Token(gomock.Any(), gomock.Any()).Return(domain.Token("tok"), nil)
		f.nav.EXPECT().ToParent()
		entered, release := make(chan struct{}), make(chan struct{})
		f.sdk.join = func(context.Context, core.JoinOptions) (core.MediaTrack, error) {
			close(entered)
			<-release
			return f.track, nil
		}

		errc := make(chan error, 1)
		go func() { errc <- f.meeting.Start(context.Background()) }()
		<-entered
		require.NoError(t, f.meeting.Leave(context.Background()))
		close(release)

		select {
		case err := <-errc:
			assert.ErrorIs(t, err, ErrLeft)
		case <-time.After(time.Second):
			t.Fatal("start did not return")
		}
		assert.Equal(t, PhaseLeft, f.meeting.State().Phase)
		assert.True(t, f.track.isStopped())
		assert.Equal(t, 2, f.sdk.leaveCount())
		assert.ErrorIs(t, f.meeting.SetMicrophoneMuted(true), ErrNotJoined)
	})

	t.Run("join cancelled", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.expectSession(domain.RouteParams{Channel: "daily"})
		f.tokens.EXPECT().Token(gomock.Any(), gomock.Any()).Return(domain.Token("tok"), nil)
		f.nav.EXPECT().ToParent()
		entered := make(chan struct{})
		f.sdk.join = func(ctx context.Context, _ core.JoinOptions) (core.MediaTrack, error) {
			close(entered)
			<-ctx.Done()
			return nil, ctx.Err()
		}

		errc := make(chan error, 1)
		go func() { errc <- f.meeting.Start(context.Background()) }()
		<-entered
		require.NoError(t, f.meeting.Leave(context.Background()))

		select {
		case err := <-errc:
			assert.ErrorIs(t, err, ErrJoin)
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("leave did not cancel the join")
		}
		assert.Equal(t, PhaseLeft, f.meeting.State().Phase)
	})
}

func TestMeeting_LeaveBeforeJoin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.sdk.leaveErr = core.ErrNotJoined
	f.nav.EXPECT().ToParent()

	require.NoError(t, f.meeting.Leave(context.Background()))
	assert.Equal(t, PhaseLeft, f.meeting.State().Phase)
	assert.Equal(t, 1, f.sdk.leaveCount())
}

func TestMeeting_LeaveError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.joined(t)
	boom := errors.New("socket gone")
	f.sdk.leaveErr = boom
	f.nav.EXPECT().ToParent()

	assert.ErrorIs(t, f.meeting.Leave(context.Background()), boom)
	assert.True(t, f.track.isStopped())
}

func TestMeeting_ParentCancelled(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.expectSession(domain.RouteParams{Channel: "daily"})
	f.tokens.EXPECT().Token(gomock.Any(), gomock.Any()).Return(domain.Token("tok"), nil)
	entered := make(chan struct{})
	f.sdk.join = func(ctx context.Context, _ core.JoinOptions) (core.MediaTrack, error) {
		close(entered)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- f.meeting.Start(ctx) }()
	<-entered
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("start did not return after cancel")
	}
	// No alert: the notifier mock has no expectation.
	assert.Equal(t, PhaseNotJoined, f.meeting.State().Phase)
}
