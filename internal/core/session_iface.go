package core

import (
	"context"

	"github.com/dkeye/meet/internal/domain"
)

//go:generate mockgen -source=session_iface.go -destination=mock_core/mock_session.go -package=mock_core

// RouteSource yields the parameters the meeting was opened with.
type RouteSource interface {
	Params(ctx context.Context) (domain.RouteParams, error)
}

// DeviceSource yields the previously selected device identifiers.
type DeviceSource interface {
	AudioInput(ctx context.Context) (string, error)
	AudioOutput(ctx context.Context) (string, error)
	VideoInput(ctx context.Context) (string, error)
}

// LinkResolver maps a share link to a channel. The error text is shown to the user.
type LinkResolver interface {
	Resolve(link domain.LinkToken) (domain.ChannelName, error)
}

// TokenSource issues one access token per request.
type TokenSource interface {
	Token(ctx context.Context, channel domain.ChannelName) (domain.Token, error)
}

// Navigator leaves the meeting view.
type Navigator interface {
	ToParent()
}

// Notifier shows a message to the user.
type Notifier interface {
	Alert(msg string)
}
