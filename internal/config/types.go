package config

import (
	"time"

	"sigrun/internal/retry"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Loop     LoopConfig     `mapstructure:"loop"`
	Guard    GuardConfig    `mapstructure:"guard"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Signals  SignalsConfig  `mapstructure:"signals"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Store    StoreConfig    `mapstructure:"store"`
}

type AppConfig struct {
	LoopID   string `mapstructure:"loop_id"` // optional, generated when empty
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
}

type LoopConfig struct {
	BatchSize                int `mapstructure:"batch_size"`
	PollIntervalSeconds      int `mapstructure:"poll_interval_seconds"`
	HeartbeatIntervalSeconds int `mapstructure:"heartbeat_interval_seconds"`
}

func (l LoopConfig) PollInterval() time.Duration {
	return time.Duration(l.PollIntervalSeconds) * time.Second
}

func (l LoopConfig) HeartbeatInterval() time.Duration {
	return time.Duration(l.HeartbeatIntervalSeconds) * time.Second
}

type GuardConfig struct {
	ThresholdPercent      int `mapstructure:"threshold_percent"`
	CheckIntervalSeconds  int `mapstructure:"check_interval_seconds"`
	RecoveryBufferPercent int `mapstructure:"recovery_buffer_percent"`
}

func (g GuardConfig) CheckInterval() time.Duration {
	return time.Duration(g.CheckIntervalSeconds) * time.Second
}

type RetryConfig struct {
	MaxRetries     int     `mapstructure:"max_retries"`
	BaseDelayMS    int     `mapstructure:"base_delay_ms"`
	Multiplier     float64 `mapstructure:"multiplier"`
	JitterFraction float64 `mapstructure:"jitter_fraction"`
	MaxDelayMS     int     `mapstructure:"max_delay_ms"`
}

// Policy converts the section into the retry value object the loop uses.
func (r RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts:    r.MaxRetries,
		BaseDelay:      time.Duration(r.BaseDelayMS) * time.Millisecond,
		Multiplier:     r.Multiplier,
		JitterFraction: r.JitterFraction,
		MaxDelay:       time.Duration(r.MaxDelayMS) * time.Millisecond,
	}
}

type SignalsConfig struct {
	APIURL         string `mapstructure:"api_url"`
	APIToken       string `mapstructure:"api_token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func (s SignalsConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

type ExchangeConfig struct {
	APIKey        string `mapstructure:"api_key"`
	APISecret     string `mapstructure:"api_secret"`
	OrderQuantity string `mapstructure:"order_quantity"` // base-asset quantity per order
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}
