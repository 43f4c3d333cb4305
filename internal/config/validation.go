package config

import "fmt"

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if c.Backtest.MaxConcurrent < 0 {
		return fmt.Errorf("backtest.max_concurrent must be >= 0")
	}
	if c.Backtest.WarmupDays < 0 {
		return fmt.Errorf("backtest.warmup_days must be >= 0")
	}
	if c.Data.Root == "" {
		return fmt.Errorf("data.root cannot be empty")
	}
	return nil
}
