// Package reconnect implements the reconnection subsystem of spec.md §4.8:
// token issuance, a process-local store keyed by (playerId, roomId),
// single-use consumption, and a background expiration sweeper.
package reconnect

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/riftsignal/signalserver/internal/types"
)

// ErrExpired is returned by verify when the token parses and is signed
// correctly but its exp claim has passed. golang-jwt/jwt's default claims
// validator rejects expired tokens inside ParseWithClaims itself, before
// Store.Consume ever gets a chance to compare against its own Entry.ExpiresAt,
// so callers must check for this distinctly to return CodeReconnectionExpired
// instead of CodeReconnectionTokenInvalid.
var ErrExpired = errors.New("reconnect: token expired")

// claims is the payload carried by a reconnection token. Tokens are opaque
// to the client; HMAC signing (not RS256/JWKS, unlike the teacher's bearer
// tokens) is sufficient since this server is both issuer and verifier.
type claims struct {
	PlayerId     types.PlayerId `json:"pid"`
	RoomId       types.RoomId   `json:"rid"`
	LastEventSeq uint64         `json:"seq"`
	jwt.RegisteredClaims
}

// TokenSigner encodes and verifies reconnection tokens with a single
// server-held HMAC secret.
type TokenSigner struct {
	secret []byte
}

func NewTokenSigner(secret []byte) *TokenSigner {
	return &TokenSigner{secret: secret}
}

// Sign issues a compact JWT carrying the player/room pair and the event
// sequence number observed at disconnect time.
func (s *TokenSigner) Sign(playerID types.PlayerId, roomID types.RoomId, lastEventSeq uint64, ttl time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		PlayerId:     playerID,
		RoomId:       roomID,
		LastEventSeq: lastEventSeq,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("reconnect: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// verify parses and checks a token's signature and expiry, returning its claims.
func (s *TokenSigner) verify(token string) (*claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, err
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("reconnect: token claims invalid")
	}
	return c, nil
}
