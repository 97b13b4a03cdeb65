package core

import (
	"context"
	"errors"

	"github.com/dkeye/meet/internal/domain"
)

// ErrNotJoined is returned by SDK.Leave when there is no channel to leave.
var ErrNotJoined = errors.New("not joined")

// Subscription is a long-lived event registration.
// Unsubscribe is safe to call more than once.
type Subscription interface {
	Unsubscribe()
}

// StatusChange is a remote user's connection status transition.
type StatusChange struct {
	User  domain.RemoteUser
	State domain.ConnectionState
}

// JoinOptions parameterize SDK.Join.
type JoinOptions struct {
	Channel    domain.ChannelName
	Token      domain.Token
	AudioInput string
	VideoInput string
	Camera     bool
	Microphone bool
}

func NewJoin(channel domain.ChannelName, token domain.Token) JoinOptions {
	return JoinOptions{Channel: channel, Token: token}
}

// WithCameraAndMicrophone asks the SDK to acquire both devices.
func (o JoinOptions) WithCameraAndMicrophone(audioIn, videoIn string) JoinOptions {
	o.AudioInput = audioIn
	o.VideoInput = videoIn
	o.Camera = true
	o.Microphone = true
	return o
}

// SDK is the communication client the meeting is built on.
// Event callbacks of one SDK may fire from any goroutine.
type SDK interface {
	Join(ctx context.Context, opts JoinOptions) (MediaTrack, error)
	Leave(ctx context.Context) error

	OnRemoteUserConnected(func(domain.RemoteUser)) Subscription
	OnRemoteUserStatusChanged(func(StatusChange)) Subscription
	OnRemoteUserLeft(func(domain.RemoteUser)) Subscription
	OnLocalUserJoined(func(MediaTrack)) Subscription
}
