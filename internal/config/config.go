package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML. An empty
// databaseURL selects the in-memory store, which is only meant for
// local development.
type FileConfig struct {
	Port                       string  `yaml:"port"`
	DatabaseURL                string  `yaml:"databaseURL"`
	RedisAddr                  string  `yaml:"redisAddr"`
	RedisPassword              string  `yaml:"redisPassword"`
	SessionSecret              string  `yaml:"sessionSecret"`
	SessionTTL                 string  `yaml:"sessionTTL"`
	LogLevel                   string  `yaml:"logLevel"`
	TrustProxyHeaders          bool    `yaml:"trustProxyHeaders"`
	LoginRateLimitPerMinute    int     `yaml:"loginRateLimitPerMinute"`
	RegisterRateLimitPerMinute int     `yaml:"registerRateLimitPerMinute"`
	ChatRateLimitPerMinute     int     `yaml:"chatRateLimitPerMinute"`
	ConversationReuseWindow    string  `yaml:"conversationReuseWindow"`
	SuggestionCooldown         string  `yaml:"suggestionCooldown"`
	BootstrapAdminEmail        string  `yaml:"bootstrapAdminEmail"`
	BootstrapAdminPassword     string  `yaml:"bootstrapAdminPassword"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		cfg.SessionSecret = v
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		cfg.SessionTTL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("BOOTSTRAP_ADMIN_EMAIL"); v != "" {
		cfg.BootstrapAdminEmail = v
	}
	if v := os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"); v != "" {
		cfg.BootstrapAdminPassword = v
	}
	if v := os.Getenv("LOGIN_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LoginRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("REGISTER_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RegisterRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("CHAT_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ChatRateLimitPerMinute = n
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required for sessions and caching")
	}
	if strings.TrimSpace(cfg.SessionSecret) == "" {
		return errors.New("config: sessionSecret is required (set SESSION_SECRET)")
	}
	if cfg.LoginRateLimitPerMinute < 0 || cfg.RegisterRateLimitPerMinute < 0 || cfg.ChatRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	return nil
}

// ParseSessionTTL parses the optional session TTL duration string.
func ParseSessionTTL(ttlStr string) (time.Duration, error) {
	if ttlStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(ttlStr)
	if err != nil {
		return 0, fmt.Errorf("invalid sessionTTL duration: %w", err)
	}
	return dur, nil
}

// ParseWindow parses an optional duration string, falling back to def
// when empty.
func ParseWindow(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	if dur <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", raw)
	}
	return dur, nil
}
