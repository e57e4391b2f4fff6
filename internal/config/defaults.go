package config

import "github.com/spf13/viper"

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.log_level", "info")

	v.SetDefault("loop.batch_size", 10)
	v.SetDefault("loop.poll_interval_seconds", 5)
	v.SetDefault("loop.heartbeat_interval_seconds", 10)

	v.SetDefault("guard.threshold_percent", 20)
	v.SetDefault("guard.check_interval_seconds", 30)
	v.SetDefault("guard.recovery_buffer_percent", 0)

	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.base_delay_ms", 500)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.1)
	v.SetDefault("retry.max_delay_ms", 10000)

	v.SetDefault("signals.timeout_seconds", 10)

	v.SetDefault("exchange.order_quantity", "0.001")

	v.SetDefault("store.enabled", false)
	v.SetDefault("store.path", "data/sigrun.db")
}
