package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(now time.Time) *Manager {
	m := NewManager("test-secret", "listening-room", time.Hour, 5*time.Second)
	m.now = func() time.Time { return now }
	return m
}

func TestIssueAndParse(t *testing.T) {
	now := time.Now()
	m := newTestManager(now)

	tok, err := m.Issue("ABCDEF", "p-1", "Mia")
	require.NoError(t, err)

	claims, err := m.ParseForRoom(tok, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, "p-1", claims.ParticipantID())
	assert.Equal(t, "ABCDEF", claims.RoomCode())
	assert.Equal(t, "Mia", claims.Name)

	_, err = m.ParseForRoom(tok, "QWERTY")
	assert.ErrorIs(t, err, ErrWrongRoom)
}

func TestParse_Rejects(t *testing.T) {
	now := time.Now()
	m := newTestManager(now)
	tok, err := m.Issue("ABCDEF", "p-1", "Mia")
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewManager("another-secret", "listening-room", time.Hour, 0)
		_, err := other.Parse(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other issuer", func(t *testing.T) {
		other := NewManager("test-secret", "someone-else", time.Hour, 0)
		_, err := other.Parse(tok)
		assert.ErrorIs(t, err, ErrInvalidIssuer)
	})

	t.Run("expired", func(t *testing.T) {
		later := newTestManager(now.Add(2 * time.Hour))
		_, err := later.Parse(tok)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("within clock skew", func(t *testing.T) {
		later := newTestManager(now.Add(time.Hour + 2*time.Second))
		_, err := later.Parse(tok)
		assert.NoError(t, err)
	})

	t.Run("alg none", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			StandardClaims: jwt.StandardClaims{Subject: "p-1", Audience: "ABCDEF", Issuer: "listening-room"},
		})
		s, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.Parse(s)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
