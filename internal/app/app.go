package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"skyline/internal/backtest"
	"skyline/internal/clock"
	"skyline/internal/config"
	"skyline/internal/datasource"
	"skyline/internal/exchange"
	"skyline/internal/logger"
	"skyline/internal/notify"
	"skyline/internal/rush"
	"skyline/internal/strategy"
)

// App 按配置的 mode 装配并运行整套系统。
type App struct {
	cfg     *config.Config
	cfgPath string
}

func New(cfg *config.Config, cfgPath string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	return &App{cfg: cfg, cfgPath: cfgPath}, nil
}

func (a *App) Run(ctx context.Context) error {
	switch a.cfg.Mode {
	case "backtest":
		return a.runBacktest(ctx)
	case "live":
		return a.runLive(ctx)
	default:
		return fmt.Errorf("未知的运行模式: %q", a.cfg.Mode)
	}
}

func (a *App) runBacktest(ctx context.Context) error {
	result, err := backtest.Execute(ctx, a.cfg.Backtest, a.cfg.Strategy, a.cfg.Horizon)
	if err != nil {
		return err
	}
	logger.Infof("[app] 回测 %s 完成: 收益 %s, 委托 %d 笔", result.RunID, result.Profit, result.Orders)
	if result.ReportPath != "" {
		logger.Infof("[app] 报告: %s", result.ReportPath)
	}
	return nil
}

// runLive 组装实盘链路: 签名 REST 连接 + 动量事件库 + 热更新参数,
// 策略在有界重启的监督下运行。
func (a *App) runLive(ctx context.Context) error {
	var opts []exchange.LiveOption
	if a.cfg.Venue.RESTBaseURL != "" {
		opts = append(opts, exchange.WithBaseURL(a.cfg.Venue.RESTBaseURL))
	}
	if a.cfg.Venue.HTTPTimeoutSec > 0 {
		opts = append(opts, exchange.WithHTTPClient(&http.Client{
			Timeout: time.Duration(a.cfg.Venue.HTTPTimeoutSec) * time.Second,
		}))
	}
	conn := exchange.NewLive(a.cfg.Venue.APIKey, a.cfg.Venue.APISecret, opts...)

	var store *rush.Store
	if a.cfg.Rush.DBPath != "" {
		s, err := rush.NewStore(a.cfg.Rush.DBPath)
		if err != nil {
			return fmt.Errorf("打开动量事件库失败: %w", err)
		}
		defer s.Close()
		store = s
	}
	src := datasource.NewLive(conn, store)

	tuning, err := config.NewTuning(a.cfgPath, a.cfg.Strategy)
	if err != nil {
		return err
	}

	var notifier notify.TextNotifier = notify.Noop{}
	if a.cfg.Notify.TelegramToken != "" {
		notifier = notify.NewTelegram(a.cfg.Notify.TelegramToken, a.cfg.Notify.TelegramChatID)
	}

	wall := clock.Wall{}
	limit := a.cfg.Strategy.RestartLimit
	wait := time.Duration(a.cfg.Strategy.RestartWaitSec) * time.Second
	logger.Infof("[app] 实盘启动: %s @ %s", a.cfg.Venue.Pair, a.cfg.Venue.Name)

	return strategy.Supervise(ctx, limit, wait, wall, func(ctx context.Context) error {
		eng, err := strategy.New(strategy.Options{
			Pair:     a.cfg.Venue.Pair,
			Source:   src,
			Conn:     conn,
			Clock:    wall,
			Waiter:   wall,
			Params:   tuning,
			Horizon:  a.cfg.Horizon,
			Notifier: notifier,
		})
		if err != nil {
			return err
		}
		return eng.Run(ctx)
	})
}
