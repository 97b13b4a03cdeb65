package domain

// Kind tags a roster entry.
type Kind int

const (
	KindLocal Kind = iota + 1
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindRemote:
		return "remote"
	}
	return "unknown"
}

// Track is the part of a local media handle the roster needs to know about.
type Track interface {
	ID() string
}

// Participant is one roster entry: either the local user with its media
// track, or a remote user with its descriptor. The zero value is invalid.
type Participant struct {
	kind  Kind
	track Track
	user  RemoteUser
}

func NewLocalParticipant(track Track) Participant {
	return Participant{kind: KindLocal, track: track}
}

func NewRemoteParticipant(user RemoteUser) Participant {
	return Participant{kind: KindRemote, user: user}
}

func (p Participant) Kind() Kind     { return p.kind }
func (p Participant) IsLocal() bool  { return p.kind == KindLocal }
func (p Participant) IsRemote() bool { return p.kind == KindRemote }

// Remote returns the descriptor of a remote entry.
func (p Participant) Remote() (RemoteUser, bool) {
	if p.kind != KindRemote {
		return RemoteUser{}, false
	}
	return p.user, true
}

// Track returns the media handle of the local entry.
func (p Participant) Track() (Track, bool) {
	if p.kind != KindLocal || p.track == nil {
		return nil, false
	}
	return p.track, true
}

// ID returns the remote user id. The local entry has none.
func (p Participant) ID() (UserID, bool) {
	if p.kind != KindRemote {
		return "", false
	}
	return p.user.ID, true
}

// ParticipantDTO is a read-only view for APIs.
type ParticipantDTO struct {
	Kind     string          `json:"kind"`
	ID       UserID          `json:"id,omitempty"`
	Username string          `json:"username,omitempty"`
	State    ConnectionState `json:"state,omitempty"`
	TrackID  string          `json:"track_id,omitempty"`
	Pinned   bool            `json:"pinned"`
}

func (p Participant) DTO() ParticipantDTO {
	dto := ParticipantDTO{Kind: p.kind.String()}
	if u, ok := p.Remote(); ok {
		dto.ID = u.ID
		dto.Username = u.Username
		dto.State = u.State
	}
	if t, ok := p.Track(); ok {
		dto.TrackID = t.ID()
	}
	return dto
}
