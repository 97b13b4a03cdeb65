package signal

import (
	"errors"
	"sync/atomic"

	"github.com/dkeye/meet/internal/core"
	"github.com/google/uuid"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

var ErrNoSuchTrack = errors.New("no track of that kind")

// LocalTrack is the local capture handle: one audio and one video RTP track
// bound to the selected devices. Packets written while muted, off or stopped
// are dropped.
type LocalTrack struct {
	id         string
	audioInput string
	videoInput string

	audio *webrtc.TrackLocalStaticRTP
	video *webrtc.TrackLocalStaticRTP

	micMuted atomic.Bool
	camOff   atomic.Bool
	stopped  atomic.Bool

	onChange func()
}

var _ core.MediaTrack = (*LocalTrack)(nil)

func NewLocalTrack(audioInput, videoInput string, microphone, camera bool) (*LocalTrack, error) {
	t := &LocalTrack{
		id:         uuid.NewString(),
		audioInput: audioInput,
		videoInput: videoInput,
	}
	var err error
	if microphone {
		t.audio, err = webrtc.NewTrackLocalStaticRTP(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", t.id)
		if err != nil {
			return nil, err
		}
	}
	if camera {
		t.video, err = webrtc.NewTrackLocalStaticRTP(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", t.id)
		if err != nil {
			return nil, err
		}
	} else {
		t.camOff.Store(true)
	}
	return t, nil
}

func (t *LocalTrack) ID() string         { return t.id }
func (t *LocalTrack) AudioInput() string { return t.audioInput }
func (t *LocalTrack) VideoInput() string { return t.videoInput }
func (t *LocalTrack) HasAudio() bool     { return t.audio != nil }

// Tracks returns the RTP tracks to publish.
func (t *LocalTrack) Tracks() []*webrtc.TrackLocalStaticRTP {
	out := make([]*webrtc.TrackLocalStaticRTP, 0, 2)
	if t.audio != nil {
		out = append(out, t.audio)
	}
	if t.video != nil {
		out = append(out, t.video)
	}
	return out
}

func (t *LocalTrack) MuteMicrophone()   { t.set(&t.micMuted, true) }
func (t *LocalTrack) UnmuteMicrophone() { t.set(&t.micMuted, false) }
func (t *LocalTrack) CameraOff()        { t.set(&t.camOff, true) }

func (t *LocalTrack) CameraOn() {
	if t.video == nil {
		return
	}
	t.set(&t.camOff, false)
}

func (t *LocalTrack) MicrophoneMuted() bool { return t.micMuted.Load() }
func (t *LocalTrack) CameraEnabled() bool   { return t.video != nil && !t.camOff.Load() }
func (t *LocalTrack) Stopped() bool         { return t.stopped.Load() }

func (t *LocalTrack) Stop() {
	t.stopped.Store(true)
}

// WriteRTP forwards a captured packet unless the source is muted or off.
func (t *LocalTrack) WriteRTP(kind webrtc.RTPCodecType, pkt *rtp.Packet) error {
	if t.stopped.Load() {
		return nil
	}
	switch kind {
	case webrtc.RTPCodecTypeAudio:
		if t.audio == nil {
			return ErrNoSuchTrack
		}
		if t.micMuted.Load() {
			return nil
		}
		return t.audio.WriteRTP(pkt)
	case webrtc.RTPCodecTypeVideo:
		if t.video == nil {
			return ErrNoSuchTrack
		}
		if t.camOff.Load() {
			return nil
		}
		return t.video.WriteRTP(pkt)
	}
	return ErrNoSuchTrack
}

func (t *LocalTrack) set(flag *atomic.Bool, v bool) {
	if t.stopped.Load() {
		return
	}
	if flag.Swap(v) != v && t.onChange != nil {
		t.onChange()
	}
}
