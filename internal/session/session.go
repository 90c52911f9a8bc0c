// Package session issues and verifies the bearer tokens handed out on join.
// A token binds one participant to one room; it carries no other authority.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

var (
	ErrInvalidToken  = errors.New("invalid session token")
	ErrInvalidIssuer = errors.New("invalid token issuer")
	ErrTokenExpired  = errors.New("session token expired")
	ErrWrongRoom     = errors.New("token issued for another room")
)

// Claims carry the participant id in Subject and the room code in Audience.
type Claims struct {
	jwt.StandardClaims
	Name string `json:"name,omitempty"`
}

func (c *Claims) ParticipantID() string { return c.Subject }
func (c *Claims) RoomCode() string      { return c.Audience }

// Manager signs tokens with HS256.
type Manager struct {
	secret    []byte
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration
	now       func() time.Time
}

func NewManager(secret, issuer string, ttl, clockSkew time.Duration) *Manager {
	return &Manager{
		secret:    []byte(secret),
		issuer:    issuer,
		ttl:       ttl,
		clockSkew: clockSkew,
		now:       time.Now,
	}
}

func (m *Manager) TTL() time.Duration { return m.ttl }

func (m *Manager) Issue(roomCode, participantID, name string) (string, error) {
	now := m.now()
	claims := Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   participantID,
			Audience:  roomCode,
			Issuer:    m.issuer,
			IssuedAt:  now.Unix(),
			NotBefore: now.Add(-m.clockSkew).Unix(),
			ExpiresAt: now.Add(m.ttl).Unix(),
		},
		Name: name,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	// временные клеймы проверяем сами, с допуском clockSkew
	parser := &jwt.Parser{SkipClaimsValidation: true}
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if !claims.VerifyIssuer(m.issuer, true) {
		return nil, ErrInvalidIssuer
	}
	if claims.Subject == "" || claims.Audience == "" {
		return nil, ErrInvalidToken
	}

	now := m.now()
	nbf := time.Unix(claims.NotBefore, 0).Add(-m.clockSkew)
	exp := time.Unix(claims.ExpiresAt, 0).Add(m.clockSkew)
	if now.Before(nbf) || now.After(exp) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

// ParseForRoom also checks that the token was issued for roomCode.
func (m *Manager) ParseForRoom(tokenStr, roomCode string) (*Claims, error) {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if !claims.VerifyAudience(roomCode, true) {
		return nil, ErrWrongRoom
	}
	return claims, nil
}
