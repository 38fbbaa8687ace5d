package collector

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"skyline/internal/logger"
	"skyline/internal/market"
)

const localLayout = "2006-01-02 15:04:05"

// Options 描述采集进程的接入与落盘位置。
type Options struct {
	WSURL  string
	Pair   string
	Depth  int
	OutDir string
}

// Collector 订阅场所的成交与 L2 增量流, 维护盘口状态,
// 并把成交行与两侧盘口快照写进轮转日志。
// 连接断开不做自动重连: 记录原因后退出, 由外层进程管理器决定重启。
type Collector struct {
	opts Options
	book *market.OrderBookState

	exec *RotatingWriter
	bids *RotatingWriter
	asks *RotatingWriter
}

func New(opts Options) (*Collector, error) {
	if opts.WSURL == "" || opts.Pair == "" {
		return nil, fmt.Errorf("ws 地址与交易对不能为空")
	}
	if opts.Depth <= 0 {
		opts.Depth = 25
	}
	exec, err := NewRotatingWriter(filepath.Join(opts.OutDir, "executions"), "execution.", time.Hour)
	if err != nil {
		return nil, err
	}
	bids, err := NewRotatingWriter(filepath.Join(opts.OutDir, "orderbook", "bids"), "bid.", time.Hour)
	if err != nil {
		return nil, err
	}
	asks, err := NewRotatingWriter(filepath.Join(opts.OutDir, "orderbook", "asks"), "ask.", time.Hour)
	if err != nil {
		return nil, err
	}
	return &Collector{
		opts: opts,
		book: market.NewOrderBookState(),
		exec: exec,
		bids: bids,
		asks: asks,
	}, nil
}

// Run 连接并消费消息流, 直到 ctx 取消或连接出错。
func (c *Collector) Run(ctx context.Context) error {
	defer c.exec.Close()
	defer c.bids.Close()
	defer c.asks.Close()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.opts.WSURL, nil)
	if err != nil {
		return fmt.Errorf("连接 %s 失败: %w", c.opts.WSURL, err)
	}
	defer conn.Close()

	sub := map[string]any{
		"op": "subscribe",
		"args": []string{
			"trade:" + c.opts.Pair,
			fmt.Sprintf("orderBookL2_%d:%s", c.opts.Depth, c.opts.Pair),
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("订阅失败: %w", err)
	}
	logger.Infof("[collector] 已订阅 %s 的成交与 %d 档盘口", c.opts.Pair, c.opts.Depth)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		conn.Close()
		return ctx.Err()
	})
	g.Go(func() error {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return fmt.Errorf("读消息失败: %w", err)
			}
			if err := c.handleFrame(raw); err != nil {
				return err
			}
		}
	})
	err = g.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// handleFrame 按 table 字段分发一帧。订阅回执等无数据帧直接跳过。
func (c *Collector) handleFrame(raw []byte) error {
	frame := gjson.ParseBytes(raw)
	if !frame.Get("data").Exists() {
		return nil
	}
	switch frame.Get("table").String() {
	case "trade":
		return c.handleTrades(frame)
	case fmt.Sprintf("orderBookL2_%d", c.opts.Depth):
		return c.handleDepth(frame)
	default:
		return nil
	}
}

func (c *Collector) handleTrades(frame gjson.Result) error {
	now := time.Now()
	nowMs := now.UnixMilli()
	for _, d := range frame.Get("data").Array() {
		venueTS := d.Get("timestamp").String()
		venueLocal := venueTS
		if parsed, err := time.Parse(time.RFC3339, venueTS); err == nil {
			venueLocal = parsed.Local().Format(localLayout)
		}
		line := fmt.Sprintf("%d,%s,%s,%v,%v,%s,%s",
			nowMs,
			venueTS,
			d.Get("side").String(),
			d.Get("price").Value(),
			d.Get("size").Value(),
			now.Format(localLayout),
			venueLocal,
		)
		if err := c.exec.WriteLine(line); err != nil {
			return fmt.Errorf("写成交日志失败: %w", err)
		}
	}
	return nil
}

func (c *Collector) handleDepth(frame gjson.Result) error {
	action, err := market.ParseDepthAction(frame.Get("action").String())
	if err != nil {
		return err
	}
	msg := market.DepthMessage{Action: action}
	for _, d := range frame.Get("data").Array() {
		side, err := market.ParseSide(d.Get("side").String())
		if err != nil {
			return err
		}
		msg.Entries = append(msg.Entries, market.DepthEntry{
			ID:    d.Get("id").Int(),
			Side:  side,
			Price: d.Get("price").Float(),
			Size:  d.Get("size").Float(),
		})
	}
	if err := c.book.Apply(msg); err != nil {
		return fmt.Errorf("盘口状态损坏: %w", err)
	}

	now := time.Now().UnixMilli()
	if err := c.bids.WriteLine(c.book.SnapshotLine(now, market.SideBuy, c.opts.Depth)); err != nil {
		return fmt.Errorf("写买侧快照失败: %w", err)
	}
	if err := c.asks.WriteLine(c.book.SnapshotLine(now, market.SideSell, c.opts.Depth)); err != nil {
		return fmt.Errorf("写卖侧快照失败: %w", err)
	}
	return nil
}
