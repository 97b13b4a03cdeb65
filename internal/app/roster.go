package app

import (
	"slices"

	"github.com/dkeye/meet/internal/core"
	"github.com/dkeye/meet/internal/domain"
	"github.com/rs/zerolog/log"
)

// Roster is the ordered participant list plus the pinned selection.
// Every mutating method is one event's worth of state change and leaves
// entries and pin consistent. Roster is not safe for concurrent use.
type Roster struct {
	entries []domain.Participant
	pin     domain.PinState
}

func NewRoster() *Roster {
	return &Roster{}
}

func (r *Roster) indexOf(id domain.UserID) int {
	return slices.IndexFunc(r.entries, func(p domain.Participant) bool {
		pid, ok := p.ID()
		return ok && pid == id
	})
}

// RemoteConnected appends u unless an entry with its id exists.
func (r *Roster) RemoteConnected(u domain.RemoteUser) bool {
	if r.indexOf(u.ID) >= 0 {
		return false
	}
	r.entries = append(r.entries, domain.NewRemoteParticipant(u))
	log.Debug().Str("module", "app.roster").Str("user", string(u.ID)).Msg("remote added")
	return true
}

// RemoteStatusChanged treats "connected" as a connect and every other state
// as an edit of the existing entry.
func (r *Roster) RemoteStatusChanged(ch core.StatusChange) bool {
	st := ch.State
	if st == "" {
		st = ch.User.State
	}
	u := ch.User.WithState(st)
	switch st {
	case domain.StateConnected:
		return r.RemoteConnected(u)
	case domain.StateDisconnected, domain.StateDisconnecting, domain.StateReconnecting:
		return r.edit(u)
	}
	log.Warn().Str("module", "app.roster").Str("user", string(u.ID)).Str("state", string(st)).Msg("unknown state")
	return false
}

func (r *Roster) edit(u domain.RemoteUser) bool {
	i := r.indexOf(u.ID)
	if i < 0 {
		return false
	}
	r.entries[i] = domain.NewRemoteParticipant(u)
	if id, ok := r.pin.RemoteID(); ok && id == u.ID {
		r.pin = domain.RemotePin(u)
	}
	log.Debug().Str("module", "app.roster").Str("user", string(u.ID)).Str("state", string(u.State)).Msg("remote edited")
	return true
}

// RemoteLeft removes the entry of u and clears the pin if it targeted u.
func (r *Roster) RemoteLeft(u domain.RemoteUser) bool {
	i := r.indexOf(u.ID)
	if id, ok := r.pin.RemoteID(); ok && id == u.ID {
		r.pin = domain.NoPin()
	}
	if i < 0 {
		return false
	}
	r.entries = slices.Delete(r.entries, i, i+1)
	log.Debug().Str("module", "app.roster").Str("user", string(u.ID)).Msg("remote removed")
	return true
}

// LocalJoined appends the local entry. There is at most one.
func (r *Roster) LocalJoined(t domain.Track) bool {
	if _, ok := r.Local(); ok {
		return false
	}
	r.entries = append(r.entries, domain.NewLocalParticipant(t))
	return true
}

func (r *Roster) Local() (domain.Participant, bool) {
	i := slices.IndexFunc(r.entries, domain.Participant.IsLocal)
	if i < 0 {
		return domain.Participant{}, false
	}
	return r.entries[i], true
}

func (r *Roster) Find(id domain.UserID) (domain.Participant, bool) {
	i := r.indexOf(id)
	if i < 0 {
		return domain.Participant{}, false
	}
	return r.entries[i], true
}

// Entries returns a copy of the roster in arrival order.
func (r *Roster) Entries() []domain.Participant {
	return slices.Clone(r.entries)
}

func (r *Roster) Len() int { return len(r.entries) }
