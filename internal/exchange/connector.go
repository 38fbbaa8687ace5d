package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"skyline/internal/market"
)

// OrderType 下单类型。
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// OrderStatus 订单生命周期状态。
type OrderStatus string

const (
	StatusOpen     OrderStatus = "open"
	StatusClosed   OrderStatus = "closed"
	StatusCanceled OrderStatus = "canceled"
)

// ErrOrderNotFound 查询/撤销不存在的订单时返回。
var ErrOrderNotFound = errors.New("订单不存在")

// Order 是一笔委托的本地视图。
type Order struct {
	ID     string
	Pair   string
	Type   OrderType
	Side   market.Side
	Price  float64
	Amount float64
	Status OrderStatus
}

// Active 报告订单是否还挂在场内。
func (o *Order) Active() bool {
	return o != nil && o.Status == StatusOpen
}

// MarketData 是行情侧的最小读取面, 模拟撮合与策略都只依赖它。
type MarketData interface {
	FetchTicker(ctx context.Context, pair string) (market.Ticker, error)
	FetchOHLCV(ctx context.Context, pair string, tf market.Timeframe, since int64, limit int) ([]market.Candle, error)
	FetchOrderBook(ctx context.Context, pair string, depth int) (market.BookSnapshot, error)
}

// Connector 统一实盘与模拟的交易入口。
// 订单状态采用拉取式: 只有 FetchOrder 才会让模拟端的成交判定前进。
type Connector interface {
	MarketData
	CreateOrder(ctx context.Context, pair string, typ OrderType, side market.Side, amount, price float64) (*Order, error)
	CancelOrder(ctx context.Context, id string) (*Order, error)
	FetchOrder(ctx context.Context, id string) (*Order, error)
}

// ParseOrderType 校验配置/接口传入的订单类型。
func ParseOrderType(raw string) (OrderType, error) {
	switch OrderType(strings.ToLower(strings.TrimSpace(raw))) {
	case OrderTypeLimit:
		return OrderTypeLimit, nil
	case OrderTypeMarket:
		return OrderTypeMarket, nil
	default:
		return "", fmt.Errorf("未知订单类型: %q", raw)
	}
}
