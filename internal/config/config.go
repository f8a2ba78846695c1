package config

import (
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Runtime holds process-level settings read once at startup. The moderation
// settings themselves live in the durable store, Seed only provides their
// first-run values.
type Runtime struct {
	DatabaseURL     string        `yaml:"database_url"`
	LogLevel        string        `yaml:"log_level"`
	RetentionDays   int           `yaml:"retention_days"`
	ShutdownSeconds int           `yaml:"shutdown_seconds"`
	Health          HealthConfig  `yaml:"health"`
	Metrics         MetricsConfig `yaml:"metrics"`
	Seed            Settings      `yaml:"seed"`
}

type HealthConfig struct {
	Enabled bool `yaml:"enabled"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

func DefaultRuntime() Runtime {
	return Runtime{
		DatabaseURL:     "eta.db",
		LogLevel:        "info",
		RetentionDays:   14,
		ShutdownSeconds: 10,
		Health:          HealthConfig{Enabled: true},
		Metrics:         MetricsConfig{Enabled: true},
		Seed:            DefaultSettings(),
	}
}

func Load() (Runtime, error) {
	cfg := DefaultRuntime()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Runtime{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.ShutdownSeconds <= 0 {
		cfg.ShutdownSeconds = 10
	}
	return cfg, nil
}

func applyEnv(cfg *Runtime) {
	cfg.DatabaseURL = envString("DATABASE_URL", cfg.DatabaseURL)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.RetentionDays = envInt("RETENTION_DAYS", cfg.RetentionDays)
	cfg.ShutdownSeconds = envInt("SHUTDOWN_SECONDS", cfg.ShutdownSeconds)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Metrics.Enabled = envBool("METRICS_ENABLED", cfg.Metrics.Enabled)

	cfg.Seed.Token = envString("DISCORD_TOKEN", cfg.Seed.Token)
	cfg.Seed.TargetRoleID = envString("TARGET_ROLE_ID", cfg.Seed.TargetRoleID)
	cfg.Seed.Prefix = envString("ETA_PREFIX", cfg.Seed.Prefix)
	cfg.Seed.MinTimeout = envInt("MIN_TIMEOUT", cfg.Seed.MinTimeout)
	cfg.Seed.MaxTimeout = envInt("MAX_TIMEOUT", cfg.Seed.MaxTimeout)
	cfg.Seed.CooldownSeconds = envInt("COOLDOWN_SECONDS", cfg.Seed.CooldownSeconds)
	cfg.Seed.WebPort = envInt("WEB_PORT", cfg.Seed.WebPort)
	cfg.Seed.WebPassword = envString("WEB_PASSWORD", cfg.Seed.WebPassword)
	if value := os.Getenv("ENABLED_GUILDS"); value != "" {
		cfg.Seed.EnabledGuilds = splitList(value)
	}
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
