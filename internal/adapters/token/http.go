package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dkeye/meet/internal/core"
	"github.com/dkeye/meet/internal/domain"
)

var ErrTokenUnavailable = errors.New("token unavailable")

// HTTPSource fetches tokens from a token endpoint:
// GET <URL>?channel=<name> -> {"token": "..."}.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

var _ core.TokenSource = (*HTTPSource)(nil)

func (s *HTTPSource) Token(ctx context.Context, channel domain.ChannelName) (domain.Token, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return "", fmt.Errorf("token url: %w", err)
	}
	q := u.Query()
	q.Set("channel", string(channel))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrTokenUnavailable, resp.StatusCode)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenUnavailable, err)
	}
	if body.Token == "" {
		return "", fmt.Errorf("%w: empty token", ErrTokenUnavailable)
	}
	return domain.Token(body.Token), nil
}
