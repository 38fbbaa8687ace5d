package config

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Mode == "" {
		c.Mode = "backtest"
	}
	if c.Venue.Name == "" {
		c.Venue.Name = "bitmex"
	}
	// 各端点自带 /api/v1 前缀, 这里只到主机
	if c.Venue.RESTBaseURL == "" {
		c.Venue.RESTBaseURL = "https://www.bitmex.com"
	}
	if c.Venue.WSBaseURL == "" {
		c.Venue.WSBaseURL = "wss://www.bitmex.com/realtime"
	}
	if c.Venue.Pair == "" {
		c.Venue.Pair = "XBTUSD"
	}
	if c.Venue.HTTPTimeoutSec <= 0 {
		c.Venue.HTTPTimeoutSec = 15
	}

	s := &c.Strategy
	if s.CandleType == "" {
		s.CandleType = "1m"
	}
	if s.Amount <= 0 {
		s.Amount = 1
	}
	if s.RotationSec <= 0 {
		s.RotationSec = 300
	}
	if s.MaxWaitSec <= 0 {
		s.MaxWaitSec = 300
	}
	if s.PollSec <= 0 {
		s.PollSec = 5
	}
	if s.RushWindowSec <= 0 {
		s.RushWindowSec = 3
	}
	if s.DepthScope <= 0 {
		s.DepthScope = 3
	}
	if s.DepthThreshold <= 0 {
		s.DepthThreshold = 10000
	}
	if s.Shift <= 0 {
		s.Shift = 0.5
	}
	if s.DotenOffset <= 0 {
		s.DotenOffset = 2
	}
	if s.HorizonScope <= 0 {
		s.HorizonScope = 1000
	}
	if s.NearHorizon <= 0 {
		s.NearHorizon = 10
	}
	if s.MakerRebate == 0 {
		s.MakerRebate = 0.00025 // 2.5bps 返佣
	}
	if s.TakerFee == 0 {
		s.TakerFee = 0.00075 // 7.5bps
	}
	if s.RestartLimit <= 0 {
		s.RestartLimit = 5
	}
	if s.RestartWaitSec <= 0 {
		s.RestartWaitSec = 3
	}

	if c.Horizon.MinWickLen <= 0 {
		c.Horizon.MinWickLen = 2
	}
	if c.Horizon.WickThreshold <= 0 {
		c.Horizon.WickThreshold = 0.5
	}
	if c.Horizon.LookbackSec <= 0 {
		c.Horizon.LookbackSec = 3600
	}

	if c.Collector.OutDir == "" {
		c.Collector.OutDir = "data/collect"
	}
	if c.Collector.Depth <= 0 {
		c.Collector.Depth = 25
	}

	if c.Rush.ListenAddr == "" {
		c.Rush.ListenAddr = "127.0.0.1:8080"
	}
	if c.Rush.DBPath == "" {
		c.Rush.DBPath = "data/rush.db"
	}
	if c.Rush.Board == "" {
		c.Rush.Board = "BitMEX_XBTUSD"
	}

	if c.Backtest.ResultsDB == "" {
		c.Backtest.ResultsDB = "data/results.db"
	}
	if c.Backtest.ReportDir == "" {
		c.Backtest.ReportDir = "data/reports"
	}
}
