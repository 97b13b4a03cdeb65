// Package domain contains entities without transport, just meta-data
package domain

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const MaxUsernameLen = 36

var (
	ErrUserIDEmpty            = errors.New("user id empty")
	ErrUnknownConnectionState = errors.New("unknown connection state")
)

type UserID string

// ConnectionState is the connection status the SDK reports for a remote user.
type ConnectionState string

const (
	StateConnected     ConnectionState = "connected"
	StateDisconnected  ConnectionState = "disconnected"
	StateDisconnecting ConnectionState = "disconnecting"
	StateReconnecting  ConnectionState = "reconnecting"
)

func ParseConnectionState(s string) (ConnectionState, error) {
	switch st := ConnectionState(strings.ToLower(s)); st {
	case StateConnected, StateDisconnected, StateDisconnecting, StateReconnecting:
		return st, nil
	}
	return "", ErrUnknownConnectionState
}

// RemoteUser is the descriptor of a remote participant. It is a value:
// an edit replaces the stored copy, it never mutates a shared one.
type RemoteUser struct {
	ID       UserID          `json:"id"`
	Username string          `json:"username"`
	State    ConnectionState `json:"state,omitempty"`
	Audio    bool            `json:"audio"`
	Video    bool            `json:"video"`
}

// NewRemoteUser builds a connected descriptor. Usernames longer than
// MaxUsernameLen characters are cut on a rune boundary.
func NewRemoteUser(id UserID, username string) (RemoteUser, error) {
	if id == "" {
		return RemoteUser{}, ErrUserIDEmpty
	}
	if utf8.RuneCountInString(username) > MaxUsernameLen {
		username = string([]rune(username)[:MaxUsernameLen])
	}
	return RemoteUser{ID: id, Username: username, State: StateConnected}, nil
}

// WithState returns a copy of u carrying the given state.
func (u RemoteUser) WithState(st ConnectionState) RemoteUser {
	u.State = st
	return u
}
