// Package accesstoken mints the short-lived JWTs the media backend accepts
// for joining a room.
package accesstoken

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTTL is the token lifetime when the caller does not ask for one.
	DefaultTTL = 15 * time.Minute

	// MaxTTL caps caller-requested lifetimes.
	MaxTTL = 4 * time.Hour
)

// VideoGrant describes what the token holder may do in the room. The shape
// matches what the media backend decodes from the "video" claim.
type VideoGrant struct {
	Room         string `json:"room"`
	RoomJoin     bool   `json:"roomJoin"`
	CanPublish   bool   `json:"canPublish"`
	CanSubscribe bool   `json:"canSubscribe"`
}

// Claims is the full claim set embedded in an access token.
type Claims struct {
	jwt.RegisteredClaims
	Video    VideoGrant `json:"video"`
	Name     string     `json:"name,omitempty"`
	Metadata string     `json:"metadata,omitempty"`
}

// Issuer signs access tokens with the media backend's shared API secret.
type Issuer struct {
	apiKey    string
	apiSecret []byte
}

// NewIssuer creates a token issuer for the given API key pair.
func NewIssuer(apiKey, apiSecret string) (*Issuer, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("media API key and secret are required")
	}
	return &Issuer{apiKey: apiKey, apiSecret: []byte(apiSecret)}, nil
}

// Params describes one token request.
type Params struct {
	Identity    string
	DisplayName string
	RoomName    string
	Metadata    string
	TTL         time.Duration
}

// Issue mints a signed access token for the given participant and room.
// The returned expiry is the token's embedded exp claim.
func (i *Issuer) Issue(p Params) (token string, expiresAt time.Time, err error) {
	if p.Identity == "" {
		return "", time.Time{}, fmt.Errorf("identity is required")
	}
	if p.RoomName == "" {
		return "", time.Time{}, fmt.Errorf("room name is required")
	}

	ttl := p.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if ttl > MaxTTL {
		ttl = MaxTTL
	}

	now := time.Now()
	expiresAt = now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.apiKey,
			Subject:   p.Identity,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Video: VideoGrant{
			Room:         p.RoomName,
			RoomJoin:     true,
			CanPublish:   true,
			CanSubscribe: true,
		},
		Name:     p.DisplayName,
		Metadata: p.Metadata,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.apiSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, expiresAt, nil
}
