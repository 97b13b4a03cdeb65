package app

import (
	"github.com/dkeye/meet/internal/domain"
)

// nextPin is the pin transition table:
//
//	target local:  local pinned -> none, otherwise -> local
//	target remote: same remote pinned -> none, otherwise -> that remote
//
// Pinning a remote while local is pinned switches straight to the remote.
func nextPin(cur domain.PinState, target domain.Participant) domain.PinState {
	if target.IsLocal() {
		if cur.IsLocal() {
			return domain.NoPin()
		}
		return domain.LocalPin()
	}
	u, ok := target.Remote()
	if !ok {
		return cur
	}
	if id, ok := cur.RemoteID(); ok && id == u.ID {
		return domain.NoPin()
	}
	return domain.RemotePin(u)
}

// Pin applies the transition for target, which must be in the roster.
func (r *Roster) Pin(target domain.Participant) (domain.PinState, error) {
	switch {
	case target.IsLocal():
		if _, ok := r.Local(); !ok {
			return r.pin, ErrUnknownParticipant
		}
	case target.IsRemote():
		id, _ := target.ID()
		cur, ok := r.Find(id)
		if !ok {
			return r.pin, ErrUnknownParticipant
		}
		// Pin the stored copy, not whatever descriptor the caller holds.
		target = cur
	default:
		return r.pin, ErrUnknownParticipant
	}
	r.pin = nextPin(r.pin, target)
	return r.pin, nil
}

// PinLocal toggles the pin on the local entry.
func (r *Roster) PinLocal() (domain.PinState, error) {
	local, ok := r.Local()
	if !ok {
		return r.pin, ErrUnknownParticipant
	}
	return r.Pin(local)
}

func (r *Roster) PinState() domain.PinState { return r.pin }

// Pinned resolves the pinned selection to its roster entry.
func (r *Roster) Pinned() (domain.Participant, bool) {
	switch {
	case r.pin.IsLocal():
		return r.Local()
	case r.pin.IsRemote():
		id, _ := r.pin.RemoteID()
		return r.Find(id)
	}
	return domain.Participant{}, false
}

// Unpinned returns every entry except the pinned one, in roster order.
func (r *Roster) Unpinned() []domain.Participant {
	out := make([]domain.Participant, 0, len(r.entries))
	for _, p := range r.entries {
		if r.pin.Matches(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}
