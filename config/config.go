package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ServerPort    string
	DBPath        string
	SessionSecret string
	SessionTTL    time.Duration
	CSRFKey       string
	CSRFSecure    bool
	LogLevel      string
	MetricsPort   int
	RecentWindow  int
	ActionRate    float64
	ActionBurst   int
}

// Load reads defaults, an optional config file, a .env file, and THEMIND_*
// environment variables, in increasing order of precedence.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("themind")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", ":8080")
	v.SetDefault("db.path", "./themind.db")
	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", 7*24*time.Hour)
	v.SetDefault("csrf.key", "")
	v.SetDefault("csrf.secure", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.port", 0)
	v.SetDefault("game.recent_window", 5)
	v.SetDefault("ratelimit.actions_per_second", 5.0)
	v.SetDefault("ratelimit.burst", 10)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		ServerPort:    v.GetString("server.port"),
		DBPath:        v.GetString("db.path"),
		SessionSecret: v.GetString("session.secret"),
		SessionTTL:    v.GetDuration("session.ttl"),
		CSRFKey:       v.GetString("csrf.key"),
		CSRFSecure:    v.GetBool("csrf.secure"),
		LogLevel:      v.GetString("log.level"),
		MetricsPort:   v.GetInt("metrics.port"),
		RecentWindow:  v.GetInt("game.recent_window"),
		ActionRate:    v.GetFloat64("ratelimit.actions_per_second"),
		ActionBurst:   v.GetInt("ratelimit.burst"),
	}

	// Generated secrets do not survive a restart; sessions are dropped with them.
	if cfg.SessionSecret == "" {
		secret, err := generateSecret()
		if err != nil {
			return nil, err
		}
		cfg.SessionSecret = secret
	}
	if cfg.CSRFKey == "" {
		key, err := generateSecret()
		if err != nil {
			return nil, err
		}
		cfg.CSRFKey = key
	}
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = 5
	}

	return cfg, nil
}

// Key decodes a base64 secret into raw key bytes, truncated or rejected to fit
// the 32-byte keys gorilla/csrf and securecookie expect.
func Key(secret string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		raw = []byte(secret)
	}
	if len(raw) < 32 {
		return nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(raw))
	}
	return raw[:32], nil
}

func generateSecret() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(bytes), nil
}
