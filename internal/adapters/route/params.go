// Package route reads the parameters a meeting is opened with.
package route

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/dkeye/meet/internal/core"
	"github.com/dkeye/meet/internal/domain"
)

var ErrNoParams = errors.New("meeting url has neither link nor channel")

// Params is a fixed RouteSource.
type Params domain.RouteParams

var _ core.RouteSource = Params{}

func (p Params) Params(ctx context.Context) (domain.RouteParams, error) {
	if err := ctx.Err(); err != nil {
		return domain.RouteParams{}, err
	}
	return domain.RouteParams(p), nil
}

// FromURL reads ?link= and ?channel= from a meeting url, e.g.
// https://meet.example.org/meeting?channel=standup.
func FromURL(raw string) (Params, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Params{}, fmt.Errorf("parse meeting url: %w", err)
	}
	q := u.Query()
	p := Params{
		Link:    domain.LinkToken(q.Get("link")),
		Channel: domain.ChannelName(q.Get("channel")),
	}
	if p.Link == "" && p.Channel == "" {
		return Params{}, ErrNoParams
	}
	return p, nil
}
