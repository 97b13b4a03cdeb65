package domain

import "errors"

const MaxChannelLen = 64

var (
	ErrChannelEmpty   = errors.New("channel name empty")
	ErrChannelTooLong = errors.New("channel name too long")
)

type (
	ChannelName string
	Token       string
	LinkToken   string
)

func NewChannelName(s string) (ChannelName, error) {
	if s == "" {
		return "", ErrChannelEmpty
	}
	if len(s) > MaxChannelLen {
		return "", ErrChannelTooLong
	}
	return ChannelName(s), nil
}

// RouteParams are the session parameters the meeting is opened with.
// Link takes precedence over Channel when both are set.
type RouteParams struct {
	Link    LinkToken   `json:"link,omitempty"`
	Channel ChannelName `json:"channel,omitempty"`
}

// DeviceSelection holds the previously chosen device identifiers.
type DeviceSelection struct {
	AudioInput  string `json:"audio_input" mapstructure:"audio_input"`
	AudioOutput string `json:"audio_output" mapstructure:"audio_output"`
	VideoInput  string `json:"video_input" mapstructure:"video_input"`
}
