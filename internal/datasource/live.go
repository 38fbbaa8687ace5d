package datasource

import (
	"context"

	"skyline/internal/exchange"
	"skyline/internal/market"
	"skyline/internal/rush"
)

// Live 把行情读取转发给场所连接, 动量事件从本地入库库读取。
type Live struct {
	conn  exchange.MarketData
	store *rush.Store
}

func NewLive(conn exchange.MarketData, store *rush.Store) *Live {
	return &Live{conn: conn, store: store}
}

func (l *Live) FetchTicker(ctx context.Context, pair string) (market.Ticker, error) {
	return l.conn.FetchTicker(ctx, pair)
}

func (l *Live) FetchOHLCV(ctx context.Context, pair string, tf market.Timeframe, since int64, limit int) ([]market.Candle, error) {
	return l.conn.FetchOHLCV(ctx, pair, tf, since, limit)
}

func (l *Live) FetchOrderBook(ctx context.Context, pair string, depth int) (market.BookSnapshot, error) {
	return l.conn.FetchOrderBook(ctx, pair, depth)
}

func (l *Live) RushEvents(ctx context.Context, start, end int64) ([]rush.Event, error) {
	if l.store == nil {
		return nil, nil
	}
	return l.store.Range(ctx, start, end)
}
