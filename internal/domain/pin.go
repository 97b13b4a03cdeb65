package domain

type PinKind int

const (
	PinNone PinKind = iota
	PinLocal
	PinRemote
)

// PinState is the pinned selection: nothing, the local entry, or one remote
// entry identified by its user id. The remote descriptor is kept so a pinned
// view can be rendered without a roster lookup.
type PinState struct {
	kind PinKind
	user RemoteUser
}

func NoPin() PinState    { return PinState{} }
func LocalPin() PinState { return PinState{kind: PinLocal} }

func RemotePin(user RemoteUser) PinState {
	return PinState{kind: PinRemote, user: user}
}

func (s PinState) Kind() PinKind  { return s.kind }
func (s PinState) IsEmpty() bool  { return s.kind == PinNone }
func (s PinState) IsLocal() bool  { return s.kind == PinLocal }
func (s PinState) IsRemote() bool { return s.kind == PinRemote }

// RemoteID returns the pinned remote id when a remote entry is pinned.
func (s PinState) RemoteID() (UserID, bool) {
	if s.kind != PinRemote {
		return "", false
	}
	return s.user.ID, true
}

func (s PinState) Remote() (RemoteUser, bool) {
	if s.kind != PinRemote {
		return RemoteUser{}, false
	}
	return s.user, true
}

// Matches reports whether p is the pinned entry, by kind and user id.
func (s PinState) Matches(p Participant) bool {
	switch s.kind {
	case PinLocal:
		return p.IsLocal()
	case PinRemote:
		id, ok := p.ID()
		return ok && id == s.user.ID
	}
	return false
}
