package signal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dkeye/meet/internal/adapters/rtc"
	"github.com/dkeye/meet/internal/core"
	"github.com/dkeye/meet/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

type joinResult struct {
	self domain.UserID
	err  error
}

type joinPayload struct {
	Type       string `json:"type"`
	Room       string `json:"room"`
	Token      string `json:"token"`
	Name       string `json:"name,omitempty"`
	AudioInput string `json:"audio_input,omitempty"`
	VideoInput string `json:"video_input,omitempty"`
}

type memberPayload struct {
	Type  string            `json:"type"`
	User  domain.RemoteUser `json:"user"`
	State string            `json:"state,omitempty"`
}

// Join dials the signaling server, joins the channel and publishes the local
// tracks. It returns once the server has sent the room state.
func (cl *Client) Join(ctx context.Context, opts core.JoinOptions) (core.MediaTrack, error) {
	cl.mu.Lock()
	busy := cl.conn != nil
	cl.mu.Unlock()
	if busy {
		return nil, ErrAlreadyJoined
	}

	ws, _, err := cl.opts.Dialer.DialContext(ctx, cl.opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial signaling: %w", err)
	}
	if cl.opts.ReadLimit > 0 {
		ws.SetReadLimit(cl.opts.ReadLimit)
	}
	conn := newWsSignalConn(ws)
	pending := make(chan joinResult, 1)
	pumpCtx, cancel := context.WithCancel(context.Background())

	cl.mu.Lock()
	if cl.conn != nil {
		cl.mu.Unlock()
		cancel()
		_ = ws.Close()
		return nil, ErrAlreadyJoined
	}
	cl.conn, cl.cancel, cl.pending = conn, cancel, pending
	cl.members = make(map[domain.UserID]domain.RemoteUser)
	cl.mu.Unlock()

	go cl.writePump(pumpCtx, conn)
	go cl.readPump(pumpCtx, conn)

	log.Info().Str("module", "signal").Str("room", string(opts.Channel)).Msg("join")
	cl.sendJSON(conn, joinPayload{
		Type:       "join",
		Room:       string(opts.Channel),
		Token:      string(opts.Token),
		Name:       cl.opts.DisplayName,
		AudioInput: opts.AudioInput,
		VideoInput: opts.VideoInput,
	})

	var res joinResult
	select {
	case <-ctx.Done():
		cl.teardown(conn)
		return nil, ctx.Err()
	case res = <-pending:
	}
	if res.err != nil {
		cl.teardown(conn)
		return nil, res.err
	}

	track, err := NewLocalTrack(opts.AudioInput, opts.VideoInput, opts.Microphone, opts.Camera)
	if err != nil {
		cl.teardown(conn)
		return nil, err
	}
	track.onChange = func() { cl.announceMedia(track) }

	cl.mu.Lock()
	cl.track = track
	cl.mu.Unlock()

	cl.negotiate(conn, res.self, track)
	cl.PublishLocalJoined(track)
	return track, nil
}

// Leave tells the server we are going, flushes the socket and releases media.
func (cl *Client) Leave(ctx context.Context) error {
	cl.mu.Lock()
	c := cl.conn
	cl.mu.Unlock()
	if c == nil {
		return ErrNotJoined
	}

	cl.sendJSON(c, map[string]string{"type": "leave"})
	c.drain()

	var err error
	select {
	case <-c.done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	cl.teardown(c)
	log.Info().Str("module", "signal").Msg("left")
	return err
}

// teardown releases everything bound to c. It returns the members known at
// that moment, or nil when c was already released.
func (cl *Client) teardown(c *wsSignalConn) map[domain.UserID]domain.RemoteUser {
	cl.mu.Lock()
	if cl.conn != c {
		cl.mu.Unlock()
		return nil
	}
	cancel, track, media, members, pending := cl.cancel, cl.track, cl.media, cl.members, cl.pending
	cl.conn, cl.cancel, cl.pending = nil, nil, nil
	cl.track, cl.media, cl.members, cl.self = nil, nil, nil, ""
	cl.mu.Unlock()

	// A join still waiting for the room state fails now.
	if pending != nil {
		pending <- joinResult{err: ErrConnClosed}
	}
	cancel()
	c.Close()
	if media != nil {
		media.Close()
	}
	if track != nil {
		track.Stop()
	}
	return members
}

// onDrop runs when the read pump exits. A drop we did not ask for fails a
// pending join, or marks every known member disconnected.
func (cl *Client) onDrop(c *wsSignalConn) {
	cl.mu.Lock()
	if cl.conn != c {
		cl.mu.Unlock()
		return
	}
	pending := cl.pending
	cl.pending = nil
	cl.mu.Unlock()

	if pending != nil {
		pending <- joinResult{err: ErrUnexpectedDrop}
		return
	}
	log.Warn().Str("module", "signal").Msg("signaling connection dropped")
	for _, u := range cl.teardown(c) {
		cl.PublishStatusChanged(u.WithState(domain.StateDisconnected), domain.StateDisconnected)
	}
}

func (cl *Client) negotiate(c *wsSignalConn, self domain.UserID, track *LocalTrack) {
	mc, err := rtc.NewConnection(rtc.DefaultWebRTCConfig(cl.opts.ICEServers), string(self))
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("webrtc new pc")
		return
	}
	for _, t := range track.Tracks() {
		if _, err := mc.AddLocalTrack(t); err != nil {
			log.Error().Err(err).Str("module", "signal").Str("track", t.ID()).Msg("webrtc add track")
			mc.Close()
			return
		}
	}
	mc.OnICECandidate(func(ci webrtc.ICECandidateInit) { cl.sendCandidate(c, ci) })
	mc.OnClosed(func() { cl.mediaClosed(mc) })

	cl.mu.Lock()
	if cl.conn != c {
		cl.mu.Unlock()
		mc.Close()
		return
	}
	cl.media = mc
	cl.mu.Unlock()

	offer, err := mc.CreateAndSetOffer()
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("webrtc create offer")
		return
	}
	cl.sendJSON(c, map[string]string{
		"type": "offer",
		"sdp":  offer.SDP,
	})
}

// mediaClosed forgets a peer connection that failed or was closed. Answers
// and candidates arriving later are dropped.
func (cl *Client) mediaClosed(mc core.MediaConnection) {
	cl.mu.Lock()
	current := cl.media == mc
	if current {
		cl.media = nil
	}
	cl.mu.Unlock()
	if current {
		log.Warn().Str("module", "signal").Msg("peer connection closed")
	}
}

func (cl *Client) announceMedia(t *LocalTrack) {
	cl.send(map[string]any{
		"type":  "media",
		"audio": t.HasAudio() && !t.MicrophoneMuted(),
		"video": t.CameraEnabled(),
	})
}

func (cl *Client) handleRoomState(data []byte) {
	var p struct {
		Type    string              `json:"type"`
		Room    string              `json:"room"`
		Self    domain.UserID       `json:"self"`
		Members []domain.RemoteUser `json:"members"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad room_state payload")
		return
	}

	cl.mu.Lock()
	pending := cl.pending
	cl.pending = nil
	cl.self = p.Self
	fresh := make([]domain.RemoteUser, 0, len(p.Members))
	for _, raw := range p.Members {
		m, err := remoteUser(raw)
		if err != nil || m.ID == p.Self {
			continue
		}
		if cl.members != nil {
			cl.members[m.ID] = m
		}
		fresh = append(fresh, m)
	}
	cl.mu.Unlock()

	log.Info().Str("module", "signal").Str("room", p.Room).Int("members", len(fresh)).Msg("room state")
	for _, m := range fresh {
		cl.PublishRemoteConnected(m)
	}
	if pending != nil {
		pending <- joinResult{self: p.Self}
	}
}

// remoteUser validates a descriptor sent by the server. A missing or
// unknown state reads as connected.
func remoteUser(raw domain.RemoteUser) (domain.RemoteUser, error) {
	u, err := domain.NewRemoteUser(raw.ID, raw.Username)
	if err != nil {
		return u, err
	}
	u.Audio, u.Video = raw.Audio, raw.Video
	if st, err := domain.ParseConnectionState(string(raw.State)); err == nil {
		u.State = st
	}
	return u, nil
}

func (cl *Client) decodeMember(data []byte) (memberPayload, bool) {
	var p memberPayload
	err := json.Unmarshal(data, &p)
	if err == nil {
		p.User, err = remoteUser(p.User)
	}
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad member payload")
		return p, false
	}
	cl.mu.Lock()
	self := cl.self
	cl.mu.Unlock()
	return p, p.User.ID != self
}

func (cl *Client) handleMemberJoined(data []byte) {
	p, ok := cl.decodeMember(data)
	if !ok {
		return
	}
	u := p.User.WithState(domain.StateConnected)
	cl.remember(u)
	cl.PublishRemoteConnected(u)
}

func (cl *Client) handleMemberLeft(data []byte) {
	p, ok := cl.decodeMember(data)
	if !ok {
		return
	}
	cl.mu.Lock()
	delete(cl.members, p.User.ID)
	cl.mu.Unlock()
	cl.PublishRemoteLeft(p.User)
}

func (cl *Client) handleMemberState(data []byte) {
	p, ok := cl.decodeMember(data)
	if !ok {
		return
	}
	st, err := domain.ParseConnectionState(p.State)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("state", p.State).Msg("member_state")
		return
	}
	u := p.User.WithState(st)
	cl.remember(u)
	cl.PublishStatusChanged(u, st)
}

func (cl *Client) remember(u domain.RemoteUser) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.members != nil {
		cl.members[u.ID] = u
	}
}

func (cl *Client) handleError(data []byte) {
	var p struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(data, &p)

	cl.mu.Lock()
	pending := cl.pending
	cl.pending = nil
	cl.mu.Unlock()

	if pending != nil {
		pending <- joinResult{err: fmt.Errorf("%w: %s", ErrJoinRejected, p.Error)}
		return
	}
	log.Warn().Str("module", "signal").Str("error", p.Error).Msg("server error")
}
