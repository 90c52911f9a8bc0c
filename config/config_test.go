package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/voicecanvas/listening-room/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
http: {addr: ":8080"}
grpc: {addr: ":9090"}
session: {secret: s3cret}
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, "listening-room", cfg.Logging.Service)
	assert.Equal(t, "std", cfg.Logging.Backend)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL)

	r := cfg.Rooms
	assert.Equal(t, 50, r.MaxParticipants)
	assert.Equal(t, 6, r.CodeLength)
	assert.Equal(t, 8, r.CodeAttempts)
	assert.Equal(t, 2*time.Second, r.LockTimeout)
	assert.Equal(t, 30*time.Second, r.EmptyGrace)
	assert.Equal(t, 2*time.Minute, r.PresenceTimeout)
	assert.Equal(t, 20, r.HistorySize)
	assert.Equal(t, 4000, r.MaxMessageLen)
	assert.True(t, r.AnnounceEnabled())
	assert.True(t, r.AutoAdvanceEnabled())

	assert.Equal(t, RateLimitOff, cfg.RateLimit.Backend)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no http addr", `{grpc: {addr: ":1"}, session: {secret: x}}`},
		{"no grpc addr", `{http: {addr: ":1"}, session: {secret: x}}`},
		{"no secret", `{http: {addr: ":1"}, grpc: {addr: ":2"}}`},
		{"bad backend", minimal + "rateLimit: {backend: memcached}"},
		{"redis without addr", minimal + "rateLimit: {backend: redis}"},
		{"short code", minimal + "rooms: {codeLength: 2}"},
		{"bad library duration", minimal + `library: [{title: x, duration: "3:7"}]`},
		{"library without title", minimal + `library: [{title: "", duration: "3:07"}]`},
		{"not yaml", "http: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParse_Switches(t *testing.T) {
	cfg, err := Parse([]byte(minimal + "rooms: {announce: false, autoAdvance: false}"))
	require.NoError(t, err)
	assert.False(t, cfg.Rooms.AnnounceEnabled())
	assert.False(t, cfg.Rooms.AutoAdvanceEnabled())
}

func TestLoadConfig_BundledFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", "config.yaml")
	cfg, err := LoadConfig()
	require.NoError(t, err)

	lib, err := cfg.LibraryTracks()
	require.NoError(t, err)
	require.Len(t, lib, 5)
	assert.Equal(t, "Midnight Dreams", lib[0].Title)
	assert.Equal(t, 3*time.Minute+45*time.Second, lib[0].Duration)
	assert.Equal(t, domain.SourceLibrary, lib[0].Source)
	assert.Equal(t, RateLimitMemory, cfg.RateLimit.Backend)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := LoadConfig()
	assert.ErrorIs(t, err, os.ErrNotExist)
}
