package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/voicecanvas/listening-room/internal/domain"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr         string        `yaml:"addr"`         // ":8080"
	ReadTimeout  time.Duration `yaml:"readTimeout"`  // "15s"
	WriteTimeout time.Duration `yaml:"writeTimeout"` // "30s"
	IdleTimeout  time.Duration `yaml:"idleTimeout"`  // "60s"
}

type GRPC struct {
	Addr string `yaml:"addr"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // listening-room
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	Level     string `yaml:"level"`     // debug|info|warn|error
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Session struct {
	Secret    string        `yaml:"secret"`
	Issuer    string        `yaml:"issuer"`
	TTL       time.Duration `yaml:"ttl"`
	ClockSkew time.Duration `yaml:"clockSkew"`
}

type Rooms struct {
	MaxParticipants int           `yaml:"maxParticipants"`
	CodeLength      int           `yaml:"codeLength"`
	CodeAttempts    int           `yaml:"codeAttempts"`
	LockTimeout     time.Duration `yaml:"lockTimeout"`
	EmptyGrace      time.Duration `yaml:"emptyGrace"`
	PresenceTimeout time.Duration `yaml:"presenceTimeout"`
	SweepEvery      time.Duration `yaml:"sweepEvery"`
	HistorySize     int           `yaml:"historySize"`
	ChatTail        int           `yaml:"chatTail"`
	MaxMessageLen   int           `yaml:"maxMessageLen"`
	Announce        *bool         `yaml:"announce"`
	AutoAdvance     *bool         `yaml:"autoAdvance"`
}

func (r Rooms) AnnounceEnabled() bool    { return r.Announce == nil || *r.Announce }
func (r Rooms) AutoAdvanceEnabled() bool { return r.AutoAdvance == nil || *r.AutoAdvance }

// LibraryTrack: трек из каталога, которым засевается каждая новая комната.
type LibraryTrack struct {
	Title    string `yaml:"title"`
	Artist   string `yaml:"artist"`
	Duration string `yaml:"duration"` // "3:42" или "222s"
}

type RateLimitBackend string

const (
	RateLimitOff    RateLimitBackend = "off"
	RateLimitMemory RateLimitBackend = "memory"
	RateLimitRedis  RateLimitBackend = "redis"
)

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RateLimit struct {
	Backend   RateLimitBackend `yaml:"backend"`
	Limit     int              `yaml:"limit"`  // запросов на окно
	Window    time.Duration    `yaml:"window"` // "10s"
	KeyPrefix string           `yaml:"keyPrefix"`
	Redis     Redis            `yaml:"redis"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type Config struct {
	HTTP      HTTP           `yaml:"http"`
	GRPC      GRPC           `yaml:"grpc"`
	Logging   Logging        `yaml:"logging"`
	Session   Session        `yaml:"session"`
	Rooms     Rooms          `yaml:"rooms"`
	Library   []LibraryTrack `yaml:"library"`
	RateLimit RateLimit      `yaml:"rateLimit"`
	CORS      CORS           `yaml:"cors"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LibraryTracks converts the configured catalog into track descriptors.
func (c *Config) LibraryTracks() ([]domain.TrackDescriptor, error) {
	out := make([]domain.TrackDescriptor, 0, len(c.Library))
	for i, lt := range c.Library {
		d, err := domain.ParseDuration(lt.Duration)
		if err != nil {
			return nil, fmt.Errorf("library[%d] %q: %w", i, lt.Title, err)
		}
		desc := domain.TrackDescriptor{
			Title:    lt.Title,
			Artist:   lt.Artist,
			Duration: d,
			Source:   domain.SourceLibrary,
		}
		if err := desc.Validate(); err != nil {
			return nil, fmt.Errorf("library[%d]: %w", i, err)
		}
		out = append(out, desc)
	}
	return out, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.GRPC.Addr == "" {
		return errors.New("grpc.addr is required")
	}
	if c.Session.Secret == "" {
		return errors.New("session.secret is required")
	}

	// установка дефолтов, если значения не указаны
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 30 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}

	if c.Logging.Service == "" {
		c.Logging.Service = "listening-room"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}

	if c.Session.Issuer == "" {
		c.Session.Issuer = "listening-room"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 12 * time.Hour
	}
	if c.Session.ClockSkew == 0 {
		c.Session.ClockSkew = 30 * time.Second
	}

	r := &c.Rooms
	if r.MaxParticipants == 0 {
		r.MaxParticipants = 50
	}
	if r.CodeLength == 0 {
		r.CodeLength = 6
	}
	if r.CodeLength < 4 {
		return fmt.Errorf("rooms.codeLength must be at least 4, got %d", r.CodeLength)
	}
	if r.CodeAttempts <= 0 {
		r.CodeAttempts = 8
	}
	if r.LockTimeout == 0 {
		r.LockTimeout = 2 * time.Second
	}
	if r.EmptyGrace == 0 {
		r.EmptyGrace = 30 * time.Second
	}
	if r.PresenceTimeout == 0 {
		r.PresenceTimeout = 2 * time.Minute
	}
	if r.SweepEvery == 0 {
		r.SweepEvery = 30 * time.Second
	}
	if r.HistorySize == 0 {
		r.HistorySize = 20
	}
	if r.ChatTail == 0 {
		r.ChatTail = 50
	}
	if r.MaxMessageLen == 0 {
		r.MaxMessageLen = 4000
	}

	rl := &c.RateLimit
	switch rl.Backend {
	case "":
		rl.Backend = RateLimitOff
	case RateLimitOff, RateLimitMemory:
	case RateLimitRedis:
		if rl.Redis.Addr == "" {
			return errors.New("rateLimit.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("rateLimit.backend: unknown value %q", rl.Backend)
	}
	if rl.Limit == 0 {
		rl.Limit = 20
	}
	if rl.Window == 0 {
		rl.Window = 10 * time.Second
	}
	if rl.KeyPrefix == "" {
		rl.KeyPrefix = "listening-room:rl:"
	}

	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}

	if _, err := c.LibraryTracks(); err != nil {
		return err
	}
	return nil
}
