// Package events fans SDK notifications out to subscribers over a hub.
package events

import (
	"slices"
	"sync"

	"github.com/dkeye/meet/internal/core"
	"github.com/dkeye/meet/internal/domain"
	"github.com/leandro-lugaresi/hub"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

const (
	RemoteUserConnected     = "remote.connected"
	RemoteUserStatusChanged = "remote.status"
	RemoteUserLeft          = "remote.left"
	LocalUserJoined         = "local.joined"
)

const subscriptionCap = 32

var topics = []string{RemoteUserConnected, RemoteUserStatusChanged, RemoteUserLeft, LocalUserJoined}

// Dispatcher publishes the four meeting event streams and hands out
// subscriptions to them. All streams share one hub subscription and one
// delivery goroutine, so callbacks see events in publish order.
type Dispatcher struct {
	hub *hub.Hub
	wg  conc.WaitGroup

	mu   sync.RWMutex
	subs map[string][]*subscription
}

func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		hub:  hub.New(),
		subs: make(map[string][]*subscription),
	}
	sub := d.hub.Subscribe(subscriptionCap, topics...)
	d.wg.Go(func() {
		for m := range sub.Receiver {
			d.dispatch(m)
		}
		log.Debug().Str("module", "adapters.events").Msg("dispatcher stopped")
	})
	return d
}

func (d *Dispatcher) PublishRemoteConnected(u domain.RemoteUser) {
	d.hub.Publish(hub.Message{Name: RemoteUserConnected, Fields: hub.Fields{"user": u}})
}

func (d *Dispatcher) PublishStatusChanged(u domain.RemoteUser, st domain.ConnectionState) {
	d.hub.Publish(hub.Message{Name: RemoteUserStatusChanged, Fields: hub.Fields{"user": u, "state": st}})
}

func (d *Dispatcher) PublishRemoteLeft(u domain.RemoteUser) {
	d.hub.Publish(hub.Message{Name: RemoteUserLeft, Fields: hub.Fields{"user": u}})
}

func (d *Dispatcher) PublishLocalJoined(t core.MediaTrack) {
	d.hub.Publish(hub.Message{Name: LocalUserJoined, Fields: hub.Fields{"track": t}})
}

func (d *Dispatcher) OnRemoteUserConnected(fn func(domain.RemoteUser)) core.Subscription {
	return d.subscribe(RemoteUserConnected, func(m hub.Message) {
		if u, ok := m.Fields["user"].(domain.RemoteUser); ok {
			fn(u)
		}
	})
}

func (d *Dispatcher) OnRemoteUserStatusChanged(fn func(core.StatusChange)) core.Subscription {
	return d.subscribe(RemoteUserStatusChanged, func(m hub.Message) {
		u, ok := m.Fields["user"].(domain.RemoteUser)
		if !ok {
			return
		}
		st, _ := m.Fields["state"].(domain.ConnectionState)
		fn(core.StatusChange{User: u, State: st})
	})
}

func (d *Dispatcher) OnRemoteUserLeft(fn func(domain.RemoteUser)) core.Subscription {
	return d.subscribe(RemoteUserLeft, func(m hub.Message) {
		if u, ok := m.Fields["user"].(domain.RemoteUser); ok {
			fn(u)
		}
	})
}

func (d *Dispatcher) OnLocalUserJoined(fn func(core.MediaTrack)) core.Subscription {
	return d.subscribe(LocalUserJoined, func(m hub.Message) {
		if t, ok := m.Fields["track"].(core.MediaTrack); ok {
			fn(t)
		}
	})
}

// Close stops the hub. Wait returns once queued events are delivered.
func (d *Dispatcher) Close() {
	d.hub.Close()
}

func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) dispatch(m hub.Message) {
	d.mu.RLock()
	targets := d.subs[m.Name]
	d.mu.RUnlock()
	for _, s := range targets {
		s.deliver(m)
	}
}

func (d *Dispatcher) subscribe(topic string, deliver func(hub.Message)) core.Subscription {
	s := &subscription{d: d, topic: topic, fn: deliver}
	d.mu.Lock()
	d.subs[topic] = append(d.subs[topic], s)
	d.mu.Unlock()
	log.Debug().Str("module", "adapters.events").Str("topic", topic).Msg("subscribed")
	return s
}

func (d *Dispatcher) remove(s *subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs[s.topic] = slices.DeleteFunc(slices.Clone(d.subs[s.topic]), func(x *subscription) bool { return x == s })
}

// subscription is one callback on one topic. Once Unsubscribe returns the
// callback is never invoked again; a callback must not unsubscribe itself.
type subscription struct {
	d     *Dispatcher
	topic string
	fn    func(hub.Message)

	mu     sync.Mutex
	closed bool
}

func (s *subscription) deliver(m hub.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.fn(m)
	}
}

func (s *subscription) Unsubscribe() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.d.remove(s)
}
