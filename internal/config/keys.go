package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "BINBUDDY_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.backend", typ: kString, env: "BINBUDDY_STORAGE_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Storage.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Backend },
	},
	{
		key: "storage.data_dir", typ: kString, env: "BINBUDDY_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.redis_url", typ: kString, env: "BINBUDDY_REDIS_URL",
		apply:   func(cfg *Config, v any) { cfg.Storage.RedisURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.RedisURL },
	},
	{
		key: "moderation.warning_threshold", typ: kInt, env: "BINBUDDY_MODERATION_WARNING_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Moderation.WarningThreshold = v.(int) },
		extract: func(cfg Config) any { return cfg.Moderation.WarningThreshold },
	},
	{
		key: "moderation.block_hours", typ: kInt, env: "BINBUDDY_MODERATION_BLOCK_HOURS",
		apply:   func(cfg *Config, v any) { cfg.Moderation.BlockHours = v.(int) },
		extract: func(cfg Config) any { return cfg.Moderation.BlockHours },
	},
	{
		key: "matcher.similarity_threshold", typ: kFloat, env: "BINBUDDY_MATCHER_SIMILARITY_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Matcher.SimilarityThreshold = v.(float64) },
		extract: func(cfg Config) any { return cfg.Matcher.SimilarityThreshold },
	},
	{
		key: "reply.delay", typ: kString, env: "BINBUDDY_REPLY_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Reply.Delay = v.(string) },
		extract: func(cfg Config) any { return cfg.Reply.Delay },
	},
	{
		key: "support.email", typ: kString, env: "BINBUDDY_SUPPORT_EMAIL",
		apply:   func(cfg *Config, v any) { cfg.Support.Email = v.(string) },
		extract: func(cfg Config) any { return cfg.Support.Email },
	},
	{
		key: "support.phone", typ: kString, env: "BINBUDDY_SUPPORT_PHONE",
		apply:   func(cfg *Config, v any) { cfg.Support.Phone = v.(string) },
		extract: func(cfg Config) any { return cfg.Support.Phone },
	},
	{
		key: "support.hours", typ: kString, env: "BINBUDDY_SUPPORT_HOURS",
		apply:   func(cfg *Config, v any) { cfg.Support.Hours = v.(string) },
		extract: func(cfg Config) any { return cfg.Support.Hours },
	},
	{
		key: "knowledge.path", typ: kString, env: "BINBUDDY_KNOWLEDGE_PATH",
		apply:   func(cfg *Config, v any) { cfg.Knowledge.Path = v.(string) },
		extract: func(cfg Config) any { return cfg.Knowledge.Path },
	},
	{
		key: "log.level", typ: kString, env: "BINBUDDY_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "api.token", typ: kString, env: "BINBUDDY_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.API.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.API.Token },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
