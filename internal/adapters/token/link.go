package token

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/dkeye/meet/internal/core"
	"github.com/dkeye/meet/internal/domain"
	"github.com/jxskiss/base62"
)

var (
	ErrInvalidLink = errors.New("invalid meeting link")
	ErrLinkExpired = errors.New("meeting link has expired")
)

// LinkCodec turns channel names into shareable link tokens and back.
// A link encodes "channel|expiry" with expiry as unix seconds, 0 for never.
type LinkCodec struct {
	now func() time.Time
}

var _ core.LinkResolver = (*LinkCodec)(nil)

func NewLinkCodec() *LinkCodec {
	return &LinkCodec{now: time.Now}
}

func (c *LinkCodec) Encode(channel domain.ChannelName, ttl time.Duration) domain.LinkToken {
	var exp int64
	if ttl > 0 {
		exp = c.now().Add(ttl).Unix()
	}
	raw := string(channel) + "|" + strconv.FormatInt(exp, 10)
	return domain.LinkToken(base62.EncodeToString([]byte(raw)))
}

func (c *LinkCodec) Resolve(link domain.LinkToken) (domain.ChannelName, error) {
	raw, err := base62.DecodeString(string(link))
	if err != nil {
		return "", ErrInvalidLink
	}
	s := string(raw)
	i := strings.LastIndexByte(s, '|')
	if i < 0 {
		return "", ErrInvalidLink
	}
	exp, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil {
		return "", ErrInvalidLink
	}
	channel, err := domain.NewChannelName(s[:i])
	if err != nil {
		return "", ErrInvalidLink
	}
	if exp > 0 && c.now().Unix() >= exp {
		return "", ErrLinkExpired
	}
	return channel, nil
}
