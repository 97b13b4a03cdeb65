package core

import (
	"github.com/dkeye/meet/internal/domain"
	"github.com/pion/webrtc/v4"
)

// MediaTrack is the local capture handle returned by a join.
type MediaTrack interface {
	domain.Track
	MuteMicrophone()
	UnmuteMicrophone()
	CameraOn()
	CameraOff()
	// Stop releases the capture; further writes are dropped.
	Stop()
	MicrophoneMuted() bool
	CameraEnabled() bool
}

// MediaConnection is the publishing side of a peer connection.
type MediaConnection interface {
	// AddLocalTrack attaches a local static RTP track to the underlying PeerConnection.
	AddLocalTrack(track *webrtc.TrackLocalStaticRTP) (*webrtc.RTPSender, error)
	CreateAndSetOffer() (*webrtc.SessionDescription, error)
	ApplyAnswer(webrtc.SessionDescription) error
	// AddICECandidate applies a remote ICE candidate.
	AddICECandidate(webrtc.ICECandidateInit) error
	// OnICECandidate sets a callback for newly gathered local ICE candidates.
	OnICECandidate(func(webrtc.ICECandidateInit))
	// OnClosed sets a callback for cleanup media session.
	OnClosed(func())
	Close()
}
