package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Moderation ModerationConfig
	Matcher    MatcherConfig
	Reply      ReplyConfig
	Support    SupportConfig
	Knowledge  KnowledgeConfig
	Log        LogConfig
	API        APIConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	Backend  string // sqlite, redis or memory
	DataDir  string
	RedisURL string
}

type ModerationConfig struct {
	WarningThreshold int
	BlockHours       int
}

type MatcherConfig struct {
	SimilarityThreshold float64
}

type ReplyConfig struct {
	Delay string // Go duration, e.g. "800ms"
}

type SupportConfig struct {
	Email string
	Phone string
	Hours string
}

type KnowledgeConfig struct {
	// Path to a YAML knowledge base; empty uses the embedded one.
	Path string
}

type LogConfig struct {
	Level string
}

type APIConfig struct {
	Token string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Storage: StorageConfig{
			Backend:  "sqlite",
			DataDir:  defaultDataDir(),
			RedisURL: "redis://localhost:6379/0",
		},
		Moderation: ModerationConfig{
			WarningThreshold: 1,
			BlockHours:       24,
		},
		Matcher: MatcherConfig{
			SimilarityThreshold: 0.3,
		},
		Reply: ReplyConfig{
			Delay: "800ms",
		},
		Support: SupportConfig{
			Email: "support@binbuddy.io",
			Phone: "+1 (800) 246-2839",
			Hours: "Monday to Friday, 8 am to 6 pm",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and environment
// variables.
//
// On macOS the backend is UserDefaults (domain: com.binbuddy.app).
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/binbuddy/config.json.
//
// Environment variables (BINBUDDY_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	switch strings.ToLower(c.Storage.Backend) {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("invalid storage.backend %q (want sqlite, redis or memory)", c.Storage.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Moderation.WarningThreshold < 1 {
		return fmt.Errorf("moderation.warning_threshold must be at least 1, got %d", c.Moderation.WarningThreshold)
	}
	if c.Moderation.BlockHours < 1 {
		return fmt.Errorf("moderation.block_hours must be at least 1, got %d", c.Moderation.BlockHours)
	}
	if t := c.Matcher.SimilarityThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("matcher.similarity_threshold must be in (0, 1], got %v", t)
	}
	return nil
}

// ReplyDelay parses Reply.Delay, falling back to 800ms when it is invalid.
func (c Config) ReplyDelay() time.Duration {
	d, err := time.ParseDuration(c.Reply.Delay)
	if err != nil || d < 0 {
		slog.Warn("invalid reply delay, using default 800ms", "value", c.Reply.Delay, "error", err)
		return 800 * time.Millisecond
	}
	return d
}

// LogLevel maps Log.Level to a slog level.
func (c Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
