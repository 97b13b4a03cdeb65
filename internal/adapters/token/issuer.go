// Package token issues and fetches channel access tokens and resolves share links.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/meet/internal/core"
	"github.com/dkeye/meet/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrNoSecret     = errors.New("token secret not configured")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are carried by a channel access token.
type Claims struct {
	Channel string `json:"channel"`
	jwt.RegisteredClaims
}

// Issuer mints HS256 channel tokens locally.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

var _ core.TokenSource = (*Issuer)(nil)

func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (i *Issuer) Token(ctx context.Context, channel domain.ChannelName) (domain.Token, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	now := i.now()
	claims := Claims{
		Channel: string(channel),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return domain.Token(signed), nil
}

// Verify checks the signature and expiry and returns the channel the token grants.
func (i *Issuer) Verify(token domain.Token) (domain.ChannelName, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(string(token), &claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return domain.ChannelName(claims.Channel), nil
}
