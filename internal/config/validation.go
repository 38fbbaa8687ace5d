package config

import "fmt"

func validate(c *Config) error {
	switch c.Mode {
	case "live", "backtest":
	default:
		return fmt.Errorf("mode 只支持 live/backtest: %s", c.Mode)
	}
	if c.Mode == "live" && (c.Venue.APIKey == "" || c.Venue.APISecret == "") {
		return fmt.Errorf("live 模式需要配置 venue.api_key/api_secret")
	}
	if c.Mode == "backtest" {
		if c.Backtest.Dataset == "" {
			return fmt.Errorf("backtest 模式需要配置 backtest.dataset")
		}
		if c.Backtest.Start == "" || c.Backtest.End == "" {
			return fmt.Errorf("backtest 模式需要配置 backtest.start/end")
		}
	}
	if c.Strategy.PollSec > c.Strategy.MaxWaitSec {
		return fmt.Errorf("strategy.poll_sec 不能大于 max_wait_sec")
	}
	if c.Strategy.TakerFee < 0 || c.Strategy.MakerRebate < 0 {
		return fmt.Errorf("手续费率不能为负")
	}
	return nil
}
