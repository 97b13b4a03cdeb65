// Package ui holds the user-facing side effects of the meeting client.
package ui

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dkeye/meet/internal/core"
	"github.com/rs/zerolog/log"
)

// Notifier writes alerts to w and the log.
type Notifier struct {
	mu sync.Mutex
	w  io.Writer
}

var _ core.Notifier = (*Notifier)(nil)

func NewNotifier(w io.Writer) *Notifier {
	return &Notifier{w: w}
}

func (n *Notifier) Alert(msg string) {
	log.Warn().Str("module", "ui").Str("alert", msg).Msg("alert")
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintf(n.w, "! %s\n", msg)
}

// Navigator leaves the meeting by cancelling the context it runs under.
type Navigator struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

var _ core.Navigator = (*Navigator)(nil)

func NewNavigator(cancel context.CancelFunc) *Navigator {
	return &Navigator{cancel: cancel, done: make(chan struct{})}
}

func (n *Navigator) ToParent() {
	n.once.Do(func() {
		log.Info().Str("module", "ui").Msg("navigate to parent")
		close(n.done)
		if n.cancel != nil {
			n.cancel()
		}
	})
}

// Done is closed once ToParent has been called.
func (n *Navigator) Done() <-chan struct{} { return n.done }
