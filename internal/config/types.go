package config

// Config 为整个进程的显式配置，启动时构造一次并沿构造函数传递。
// 不使用任何包级可变状态。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Mode      string          `mapstructure:"mode"` // live | backtest
	Venue     VenueConfig     `mapstructure:"venue"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Horizon   HorizonConfig   `mapstructure:"horizon"`
	Collector CollectorConfig `mapstructure:"collector"`
	Rush      RushConfig      `mapstructure:"rush"`
	Backtest  BacktestConfig  `mapstructure:"backtest"`
	Notify    NotifyConfig    `mapstructure:"notify"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
}

// VenueConfig 描述交易所接入信息（凭证只在这里出现）。
type VenueConfig struct {
	Name           string `mapstructure:"name"`
	RESTBaseURL    string `mapstructure:"rest_base_url"`
	WSBaseURL      string `mapstructure:"ws_base_url"`
	APIKey         string `mapstructure:"api_key"`
	APISecret      string `mapstructure:"api_secret"`
	Pair           string `mapstructure:"pair"`
	HTTPTimeoutSec int    `mapstructure:"http_timeout_sec"`
}

// StrategyConfig 是策略的可热更新参数块。
// 时间类参数单位为秒，价格类参数单位为报价货币。
type StrategyConfig struct {
	CandleType     string  `mapstructure:"candle_type"`
	Amount         float64 `mapstructure:"amount"`
	RotationSec    int64   `mapstructure:"rotation_sec"`
	MaxWaitSec     int64   `mapstructure:"max_wait_sec"`
	PollSec        int64   `mapstructure:"poll_sec"`
	RushWindowSec  int64   `mapstructure:"rush_window_sec"`
	DepthScope     int     `mapstructure:"depth_scope"`
	DepthThreshold float64 `mapstructure:"depth_threshold"`
	Shift          float64 `mapstructure:"shift"`
	DotenOffset    float64 `mapstructure:"doten_offset"`
	HorizonScope   float64 `mapstructure:"horizon_scope"`
	NearHorizon    float64 `mapstructure:"near_horizon"`
	MakerRebate    float64 `mapstructure:"maker_rebate"`
	TakerFee       float64 `mapstructure:"taker_fee"`
	RestartLimit   int     `mapstructure:"restart_limit"`
	RestartWaitSec int     `mapstructure:"restart_wait_sec"`
}

// HorizonConfig 控制水平线检测。
type HorizonConfig struct {
	MinWickLen    float64 `mapstructure:"min_wick_len"`
	WickThreshold float64 `mapstructure:"wick_threshold"`
	LookbackSec   int64   `mapstructure:"lookback_sec"`
	MaxROCPStd    float64 `mapstructure:"max_rocp_std"` // 0 表示不启用波动率闸门
}

type CollectorConfig struct {
	OutDir string `mapstructure:"out_dir"`
	Depth  int    `mapstructure:"depth"`
}

type RushConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	DBPath     string `mapstructure:"db_path"`
	Board      string `mapstructure:"board"`
}

type BacktestConfig struct {
	Dataset   string `mapstructure:"dataset"`
	ResultsDB string `mapstructure:"results_db"`
	ReportDir string `mapstructure:"report_dir"`
	Start     string `mapstructure:"start"` // "2006-01-02 15:04:05"
	End       string `mapstructure:"end"`
}

type NotifyConfig struct {
	TelegramToken  string `mapstructure:"telegram_token"`
	TelegramChatID string `mapstructure:"telegram_chat_id"`
}
