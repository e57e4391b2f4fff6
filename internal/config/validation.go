package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func validate(c *Config) error {
	if err := c.Loop.validate(); err != nil {
		return err
	}
	if err := c.Guard.validate(); err != nil {
		return err
	}
	if err := c.Retry.validate(); err != nil {
		return err
	}
	if err := c.Signals.validate(); err != nil {
		return err
	}
	if err := c.Exchange.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	if err := c.Store.validate(); err != nil {
		return err
	}
	return nil
}

func (l *LoopConfig) validate() error {
	if l.BatchSize < 1 {
		return fmt.Errorf("loop.batch_size must be >= 1")
	}
	if l.PollIntervalSeconds < 1 {
		return fmt.Errorf("loop.poll_interval_seconds must be >= 1")
	}
	if l.HeartbeatIntervalSeconds < 1 {
		return fmt.Errorf("loop.heartbeat_interval_seconds must be >= 1")
	}
	return nil
}

func (g *GuardConfig) validate() error {
	if g.ThresholdPercent < 1 || g.ThresholdPercent > 99 {
		return fmt.Errorf("guard.threshold_percent must be in [1, 99]")
	}
	if g.CheckIntervalSeconds < 1 {
		return fmt.Errorf("guard.check_interval_seconds must be >= 1")
	}
	if g.RecoveryBufferPercent < 0 {
		return fmt.Errorf("guard.recovery_buffer_percent must be >= 0")
	}
	return nil
}

func (r *RetryConfig) validate() error {
	return r.Policy().Validate()
}

func (s *SignalsConfig) validate() error {
	if strings.TrimSpace(s.APIURL) == "" {
		return fmt.Errorf("signals.api_url cannot be empty")
	}
	if s.TimeoutSeconds < 1 {
		return fmt.Errorf("signals.timeout_seconds must be >= 1")
	}
	return nil
}

func (e *ExchangeConfig) validate() error {
	if strings.TrimSpace(e.APIKey) == "" || strings.TrimSpace(e.APISecret) == "" {
		return fmt.Errorf("exchange requires api_key and api_secret")
	}
	qty, err := decimal.NewFromString(strings.TrimSpace(e.OrderQuantity))
	if err != nil {
		return fmt.Errorf("exchange.order_quantity must be a decimal number: %w", err)
	}
	if qty.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("exchange.order_quantity must be > 0")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if n.Telegram.BotToken == "" || n.Telegram.ChatID == "" {
			return fmt.Errorf("telegram notification enabled but missing bot_token or chat_id")
		}
	}
	return nil
}

func (s *StoreConfig) validate() error {
	if s.Enabled && strings.TrimSpace(s.Path) == "" {
		return fmt.Errorf("store.path cannot be empty when store is enabled")
	}
	return nil
}
