package app

import "errors"

var (
	ErrAlreadyStarted     = errors.New("meeting already started")
	ErrClosed             = errors.New("meeting closed")
	ErrLeft               = errors.New("meeting left")
	ErrNotJoined          = errors.New("not joined")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrSessionParams      = errors.New("session parameters unavailable")
	ErrLinkResolve        = errors.New("link resolution failed")
	ErrNoChannel          = errors.New("no channel to join")
	ErrTokenFetch         = errors.New("token fetch failed")
	ErrJoin               = errors.New("join failed")
)
