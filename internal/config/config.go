package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppCfg struct {
	Env         string `mapstructure:"env"`
	Development bool   `mapstructure:"development"`
}

// AuthCfg carries the token and identity issued at login. The client never
// inspects the token; the server is the sole authority on its validity.
type AuthCfg struct {
	Token    string `mapstructure:"token"`
	UserID   int64  `mapstructure:"user_id"`
	FullName string `mapstructure:"full_name"`
	Role     string `mapstructure:"role"`
}

type APICfg struct {
	BaseURL                string `mapstructure:"base_url"`
	TimeoutSeconds         int    `mapstructure:"timeout_seconds"`
	RetryMaxElapsedSeconds int    `mapstructure:"retry_max_elapsed_seconds"`
}

type SocketCfg struct {
	URL                  string `mapstructure:"url"`
	PingIntervalSeconds  int    `mapstructure:"ping_interval_seconds"`
	WriteDeadlineSeconds int    `mapstructure:"write_deadline_seconds"`
	MaxMessageSizeBytes  int64  `mapstructure:"max_message_size_bytes"`
	SendBuffer           int    `mapstructure:"send_buffer"`
}

type ChatCfg struct {
	TypingDebounceMillis      int `mapstructure:"typing_debounce_millis"`
	SummaryRefreshDelayMillis int `mapstructure:"summary_refresh_delay_millis"`
}

type Config struct {
	App    AppCfg    `mapstructure:"app"`
	Auth   AuthCfg   `mapstructure:"auth"`
	API    APICfg    `mapstructure:"api"`
	Socket SocketCfg `mapstructure:"socket"`
	Chat   ChatCfg   `mapstructure:"chat"`

	// Derived
	APITimeout          time.Duration
	RetryMaxElapsed     time.Duration
	PingInterval        time.Duration
	WriteDeadline       time.Duration
	TypingDebounce      time.Duration
	SummaryRefreshDelay time.Duration
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("api.base_url is required")
	}
	if cfg.Auth.Token == "" {
		return nil, fmt.Errorf("auth.token is required")
	}
	if cfg.Auth.UserID == 0 {
		return nil, fmt.Errorf("auth.user_id is required")
	}

	if cfg.API.TimeoutSeconds == 0 {
		cfg.API.TimeoutSeconds = 15
	}
	if cfg.API.RetryMaxElapsedSeconds == 0 {
		cfg.API.RetryMaxElapsedSeconds = 30
	}
	if cfg.Socket.URL == "" {
		u, err := socketURLFromBase(cfg.API.BaseURL)
		if err != nil {
			return nil, err
		}
		cfg.Socket.URL = u
	}
	if cfg.Socket.PingIntervalSeconds == 0 {
		cfg.Socket.PingIntervalSeconds = 25
	}
	if cfg.Socket.WriteDeadlineSeconds == 0 {
		cfg.Socket.WriteDeadlineSeconds = 10
	}
	if cfg.Socket.MaxMessageSizeBytes == 0 {
		cfg.Socket.MaxMessageSizeBytes = 65536
	}
	if cfg.Socket.SendBuffer == 0 {
		cfg.Socket.SendBuffer = 256
	}
	if cfg.Chat.TypingDebounceMillis == 0 {
		cfg.Chat.TypingDebounceMillis = 1000
	}
	if cfg.Chat.SummaryRefreshDelayMillis == 0 {
		cfg.Chat.SummaryRefreshDelayMillis = 500
	}

	cfg.APITimeout = time.Duration(cfg.API.TimeoutSeconds) * time.Second
	cfg.RetryMaxElapsed = time.Duration(cfg.API.RetryMaxElapsedSeconds) * time.Second
	cfg.PingInterval = time.Duration(cfg.Socket.PingIntervalSeconds) * time.Second
	cfg.WriteDeadline = time.Duration(cfg.Socket.WriteDeadlineSeconds) * time.Second
	cfg.TypingDebounce = time.Duration(cfg.Chat.TypingDebounceMillis) * time.Millisecond
	cfg.SummaryRefreshDelay = time.Duration(cfg.Chat.SummaryRefreshDelayMillis) * time.Millisecond
	return &cfg, nil
}

// socketURLFromBase maps the REST base URL onto the realtime endpoint on the
// same host (http -> ws, https -> wss).
func socketURLFromBase(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("api.base_url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("api.base_url: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/socket"
	return u.String(), nil
}
