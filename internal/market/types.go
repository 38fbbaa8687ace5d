package market

import (
	"fmt"
	"strings"
)

// Side 为成交/报价方向。约定 Buy 为主动买（taker buy）。
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide 归一化交易所侧的大小写写法（"Buy"/"Sell"）。
func ParseSide(raw string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy":
		return SideBuy, nil
	case "sell":
		return SideSell, nil
	default:
		return "", fmt.Errorf("unknown side: %q", raw)
	}
}

// Opposite 返回反方向。
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Tick 是一笔成交回报。Timestamp 为本地接收时间（Unix ms）。
type Tick struct {
	Timestamp int64
	Side      Side
	Price     float64
	Size      float64
}

// Candle 是一根 OHLCV K 线，Timestamp 为桶起始时间（Unix ms）。
// 不变量: Low <= Open,Close <= High。
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Ticker 是 1 秒粒度的成交快照：卖方成交充当 bid、买方成交充当 ask。
type Ticker struct {
	Timestamp int64
	Bid       float64
	BidVolume float64
	Ask       float64
	AskVolume float64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// BookLevel 是盘口单档。
type BookLevel struct {
	Price float64
	Size  float64
}

// BookSnapshot 是某一时刻的盘口切片，Bids/Asks 均为最优档在前。
type BookSnapshot struct {
	Timestamp int64
	Bids      []BookLevel
	Asks      []BookLevel
}

// BestBid 返回最优买档，不存在时返回 false。
func (s BookSnapshot) BestBid() (BookLevel, bool) {
	if len(s.Bids) == 0 {
		return BookLevel{}, false
	}
	return s.Bids[0], true
}

// BestAsk 返回最优卖档，不存在时返回 false。
func (s BookSnapshot) BestAsk() (BookLevel, bool) {
	if len(s.Asks) == 0 {
		return BookLevel{}, false
	}
	return s.Asks[0], true
}
