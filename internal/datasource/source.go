package datasource

import (
	"context"
	"errors"

	"skyline/internal/market"
	"skyline/internal/rush"
)

// ErrDataGap 表示回放数据在当前时刻缺帧。
// 回放数据是离线整理的, 缺口意味着数据集损坏, 调用方应视为致命错误。
var ErrDataGap = errors.New("回放数据缺口")

// Source 是策略侧的行情与事件读取面。
// 回放实现按虚拟钟取帧, 实盘实现转发给场所连接与事件库。
type Source interface {
	FetchTicker(ctx context.Context, pair string) (market.Ticker, error)
	FetchOHLCV(ctx context.Context, pair string, tf market.Timeframe, since int64, limit int) ([]market.Candle, error)
	FetchOrderBook(ctx context.Context, pair string, depth int) (market.BookSnapshot, error)
	RushEvents(ctx context.Context, start, end int64) ([]rush.Event, error)
}
