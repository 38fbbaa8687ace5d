package strategy

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"skyline/internal/clock"
	"skyline/internal/config"
	"skyline/internal/datasource"
	"skyline/internal/exchange"
	"skyline/internal/horizon"
	"skyline/internal/logger"
	"skyline/internal/market"
	"skyline/internal/notify"
	"skyline/internal/rush"
)

// ParamSource 提供策略参数快照, 实盘由热更新注册表实现。
type ParamSource interface {
	Snapshot() config.StrategyConfig
}

// StaticParams 是不变的参数快照, 回测与测试用。
type StaticParams config.StrategyConfig

func (p StaticParams) Snapshot() config.StrategyConfig {
	return config.StrategyConfig(p)
}

// Options 描述引擎的全部依赖。
type Options struct {
	Pair     string
	Source   datasource.Source
	Conn     exchange.Connector
	Clock    clock.Clock
	Waiter   clock.Waiter
	Params   ParamSource
	Horizon  config.HorizonConfig
	Notifier notify.TextNotifier

	// RunUntil 为回测终点(Unix ms), 0 表示一直运行
	RunUntil int64
}

// Engine 是单线程的策略主循环:
// 定期在水平位附近布防限价单, 动量事件触发后等待入场成交,
// 随即反手挂单, 超时则市价离场。等待一律通过 Waiter,
// 回测中体现为推进虚拟钟。
type Engine struct {
	pair     string
	src      datasource.Source
	conn     exchange.Connector
	clk      clock.Clock
	waiter   clock.Waiter
	params   ParamSource
	hcfg     config.HorizonConfig
	notifier notify.TextNotifier
	runUntil int64

	horizons  []horizon.Horizon
	entries   map[float64]*exchange.Order
	profits   decimal.Decimal
	lastEvent int64
}

func New(opts Options) (*Engine, error) {
	if opts.Pair == "" {
		return nil, fmt.Errorf("pair 不能为空")
	}
	if opts.Source == nil || opts.Conn == nil {
		return nil, fmt.Errorf("数据源与交易连接不能为空")
	}
	if opts.Clock == nil || opts.Waiter == nil {
		return nil, fmt.Errorf("时钟与等待器不能为空")
	}
	if opts.Params == nil {
		return nil, fmt.Errorf("策略参数不能为空")
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Engine{
		pair:     opts.Pair,
		src:      opts.Source,
		conn:     opts.Conn,
		clk:      opts.Clock,
		waiter:   opts.Waiter,
		params:   opts.Params,
		hcfg:     opts.Horizon,
		notifier: notifier,
		runUntil: opts.RunUntil,
		entries:  make(map[float64]*exchange.Order),
	}, nil
}

// Profits 返回本轮运行的累计点差收益。
func (e *Engine) Profits() decimal.Decimal {
	return e.profits
}

// Run 执行主循环, 直到 ctx 取消、到达 RunUntil 或出现致命错误。
func (e *Engine) Run(ctx context.Context) error {
	cfg := e.params.Snapshot()
	if err := e.rotate(ctx, cfg); err != nil {
		return err
	}
	rotationStart := e.clk.Now()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.runUntil > 0 && e.clk.Now() >= e.runUntil {
			logger.Infof("[engine] 到达回放终点, 累计收益 %s", e.profits)
			return nil
		}
		cfg = e.params.Snapshot()

		ticker, err := e.src.FetchTicker(ctx, e.pair)
		if err != nil {
			return err
		}
		logger.Debugf("[engine] t=%d price=%v", e.clk.Now(), ticker.Close)

		if err := e.pollRush(ctx, cfg, ticker.Close); err != nil {
			return err
		}

		if err := e.waiter.Wait(ctx, time.Second); err != nil {
			return err
		}

		if e.clk.Now()-rotationStart > cfg.RotationSec*1000 {
			if err := e.rotate(ctx, cfg); err != nil {
				return err
			}
			rotationStart = e.clk.Now()
		}
	}
}

// rotate 重画水平位并重新布防: 撤掉上一轮的所有入场单,
// 在仍然有效、且附近挂单量够厚的水平位内侧各挂一张限价单。
func (e *Engine) rotate(ctx context.Context, cfg config.StrategyConfig) error {
	for value, order := range e.entries {
		if order.Active() {
			if _, err := e.conn.CancelOrder(ctx, order.ID); err != nil {
				logger.Warnf("[engine] 撤单 %s 失败: %v", order.ID, err)
			}
		}
		delete(e.entries, value)
	}

	bars, err := e.lookbackBars(ctx, cfg)
	if err != nil {
		return err
	}
	e.horizons = horizon.Detect(bars, horizon.Params{
		MinWickLen:    e.hcfg.MinWickLen,
		WickThreshold: e.hcfg.WickThreshold,
	})
	logger.Infof("[engine] 水平位刷新: %d 条", len(e.horizons))

	if e.hcfg.MaxROCPStd > 0 {
		rocp, err := market.ROCPStd(market.Closes(bars))
		if err != nil {
			logger.Warnf("[engine] 波动率计算失败, 本轮不启用闸门: %v", err)
		} else if rocp > e.hcfg.MaxROCPStd {
			logger.Infof("[engine] 波动过大 (rocp_std=%.6f), 本轮不布防", rocp)
			return nil
		}
	}

	ticker, err := e.src.FetchTicker(ctx, e.pair)
	if err != nil {
		return err
	}
	book, err := e.src.FetchOrderBook(ctx, e.pair, 0)
	if err != nil {
		return err
	}
	rows := mergeBook(book)

	for _, h := range e.horizons {
		price, ok := calcOrderPrice(rows, h.Value, cfg.DepthScope, cfg.DepthThreshold, cfg.Shift)
		if !ok {
			continue
		}
		side := market.SideBuy
		if price > ticker.Close {
			side = market.SideSell
		}
		order, err := e.conn.CreateOrder(ctx, e.pair, exchange.OrderTypeLimit, side, cfg.Amount, price)
		if err != nil {
			return fmt.Errorf("布防挂单失败: %w", err)
		}
		e.entries[h.Value] = order
		logger.Infof("[engine] 水平位 %.2f 布防 %s@%v (order %s)", h.Value, side, price, order.ID)
	}
	return nil
}

// lookbackBars 取回看窗口内的已收盘 K 线(去掉最后一根未确定足)。
func (e *Engine) lookbackBars(ctx context.Context, cfg config.StrategyConfig) ([]market.Candle, error) {
	tf, err := market.ParseTimeframe(cfg.CandleType)
	if err != nil {
		return nil, err
	}
	since := e.clk.Now() - e.hcfg.LookbackSec*1000
	bars, err := e.src.FetchOHLCV(ctx, e.pair, tf, since, 0)
	if err != nil {
		return nil, err
	}
	if len(bars) > 0 {
		bars = bars[:len(bars)-1]
	}
	return bars, nil
}

// pollRush 检查尾随窗口内的动量事件, 有新事件则按最近一条反应。
func (e *Engine) pollRush(ctx context.Context, cfg config.StrategyConfig, currPrice float64) error {
	now := e.clk.Now()
	events, err := e.src.RushEvents(ctx, now-cfg.RushWindowSec*1000, now)
	if err != nil {
		return err
	}
	latest := -1
	for i, evt := range events {
		if evt.Timestamp > e.lastEvent {
			latest = i
		}
	}
	if latest < 0 {
		return nil
	}
	evt := events[latest]
	e.lastEvent = evt.Timestamp
	logger.Infof("[engine] 动量事件: side=%s volume=%v", evt.TakerSide, evt.Volume)
	return e.reactToRush(ctx, cfg, evt, currPrice)
}

func (e *Engine) reactToRush(ctx context.Context, cfg config.StrategyConfig, evt rush.Event, currPrice float64) error {
	side, err := evt.Direction()
	if err != nil {
		logger.Warnf("[engine] 动量事件方向非法: %v", err)
		return nil
	}
	dir := horizon.DirectionLower
	if side == market.SideBuy {
		dir = horizon.DirectionUpper
	}
	target, ok := horizon.NearestToPrice(e.horizons, currPrice, cfg.HorizonScope, dir)
	if !ok {
		return nil
	}
	if math.Abs(target.Value-currPrice) >= cfg.NearHorizon {
		return nil
	}
	entry, ok := e.entries[target.Value]
	if !ok || entry == nil {
		logger.Debugf("[engine] 水平位 %.2f 没有布防单, 忽略动量", target.Value)
		return nil
	}

	entry, filled, err := e.awaitFill(ctx, cfg, entry, nil)
	if err != nil {
		return err
	}
	if !filled {
		return nil
	}
	logger.Infof("[engine] 入场单 %s 成交 %s@%v", entry.ID, entry.Side, entry.Price)

	// 反手: 以最新收盘价为基准, 顺动量方向小幅让价挂单
	price, err := e.lastClose(ctx, cfg)
	if err != nil {
		return err
	}
	dotenPrice := price + cfg.DotenOffset
	if side == market.SideBuy {
		dotenPrice = price - cfg.DotenOffset
	}
	doten, err := e.conn.CreateOrder(ctx, e.pair, exchange.OrderTypeLimit, side, cfg.Amount, dotenPrice)
	if err != nil {
		return fmt.Errorf("反手挂单失败: %w", err)
	}
	logger.Infof("[engine] 反手单 %s %s@%v", doten.ID, side, dotenPrice)

	penetrated := func(cur float64) bool {
		if entry.Side == market.SideBuy {
			return target.Value < cur
		}
		return target.Value > cur
	}
	doten, dotenFilled, err := e.awaitFill(ctx, cfg, doten, penetrated)
	if err != nil {
		return err
	}

	var profit decimal.Decimal
	var exitNote string
	entryPrice := decimal.NewFromFloat(entry.Price)
	if dotenFilled {
		dotenPx := decimal.NewFromFloat(doten.Price)
		spread := entryPrice.Sub(dotenPx)
		if entry.Side == market.SideBuy {
			spread = dotenPx.Sub(entryPrice)
		}
		profit = spread.Add(dotenPx.Mul(decimal.NewFromFloat(cfg.MakerRebate)))
		exitNote = fmt.Sprintf("反手 %s@%v 成交", doten.Side, doten.Price)
		logger.Infof("[engine] 反手单 %s 成交, 本笔收益 %s", doten.ID, profit)
	} else {
		exit, err := e.conn.CreateOrder(ctx, e.pair, exchange.OrderTypeMarket, side, cfg.Amount, 0)
		if err != nil {
			return fmt.Errorf("市价离场失败: %w", err)
		}
		exitPx := decimal.NewFromFloat(exit.Price)
		spread := entryPrice.Sub(exitPx)
		if entry.Side == market.SideBuy {
			spread = exitPx.Sub(entryPrice)
		}
		profit = spread.Sub(exitPx.Mul(decimal.NewFromFloat(cfg.TakerFee)))
		exitNote = fmt.Sprintf("超时市价离场 %s@%v", exit.Side, exit.Price)
		if _, err := e.conn.CancelOrder(ctx, doten.ID); err != nil {
			logger.Warnf("[engine] 撤反手单 %s 失败: %v", doten.ID, err)
		}
		logger.Infof("[engine] 反手超时, 市价离场 %s@%v, 本笔收益 %s", exit.ID, exit.Price, profit)
	}

	e.profits = e.profits.Add(profit)
	delete(e.entries, target.Value)
	logger.Infof("[engine] 累计收益 %s", e.profits)
	msg := fmt.Sprintf("*%s* 入场 %s@%v, %s\n本笔收益 %s, 累计 %s",
		e.pair, entry.Side, entry.Price, exitNote, profit, e.profits)
	if err := e.notifier.SendText(msg); err != nil {
		logger.Warnf("[engine] 推送失败: %v", err)
	}
	return nil
}

// awaitFill 以固定节奏轮询订单, 直到成交、超时或(可选)水平位被穿透。
func (e *Engine) awaitFill(ctx context.Context, cfg config.StrategyConfig, order *exchange.Order, penetrated func(cur float64) bool) (*exchange.Order, bool, error) {
	start := e.clk.Now()
	poll := time.Duration(cfg.PollSec) * time.Second
	for {
		if order.Status == exchange.StatusClosed {
			return order, true, nil
		}
		if e.clk.Now()-start > cfg.MaxWaitSec*1000 {
			logger.Debugf("[engine] 订单 %s 等待超时", order.ID)
			return order, false, nil
		}
		if penetrated != nil {
			cur, err := e.lastClose(ctx, cfg)
			if err != nil {
				return order, false, err
			}
			if penetrated(cur) {
				logger.Debugf("[engine] 水平位已被穿透, 放弃等待 %s", order.ID)
				return order, false, nil
			}
		}
		if err := e.waiter.Wait(ctx, poll); err != nil {
			return order, false, err
		}
		next, err := e.conn.FetchOrder(ctx, order.ID)
		if err != nil {
			return order, false, err
		}
		order = next
	}
}

// lastClose 返回最近一根 K 线的收盘价。
func (e *Engine) lastClose(ctx context.Context, cfg config.StrategyConfig) (float64, error) {
	tf, err := market.ParseTimeframe(cfg.CandleType)
	if err != nil {
		return 0, err
	}
	since := e.clk.Now() - tf.Millis()
	bars, err := e.src.FetchOHLCV(ctx, e.pair, tf, since, 0)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("窗口内没有 K 线")
	}
	return bars[len(bars)-1].Close, nil
}
