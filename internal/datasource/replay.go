package datasource

import (
	"context"
	"fmt"

	"skyline/internal/clock"
	"skyline/internal/market"
	"skyline/internal/replay"
	"skyline/internal/rush"
)

// Replay 按虚拟钟从内存数据集取帧。
type Replay struct {
	dataset *replay.Dataset
	clk     clock.Clock
}

func NewReplay(dataset *replay.Dataset, clk clock.Clock) *Replay {
	return &Replay{dataset: dataset, clk: clk}
}

func (r *Replay) nowSec() int64 {
	return market.AlignDown(r.clk.Now(), 1000)
}

func (r *Replay) FetchTicker(_ context.Context, pair string) (market.Ticker, error) {
	now := r.nowSec()
	row, ok := r.dataset.TickerAt(now)
	if !ok {
		return market.Ticker{}, fmt.Errorf("%w: ticker@%d", ErrDataGap, now)
	}
	return row, nil
}

func (r *Replay) FetchOHLCV(_ context.Context, pair string, tf market.Timeframe, since int64, limit int) ([]market.Candle, error) {
	candles, ok := r.dataset.CandlesSince(tf.Key, since, limit)
	if !ok {
		return nil, fmt.Errorf("%w: ohlcv %s since %d", ErrDataGap, tf.Key, since)
	}
	return candles, nil
}

func (r *Replay) FetchOrderBook(_ context.Context, pair string, depth int) (market.BookSnapshot, error) {
	now := r.nowSec()
	snap, ok := r.dataset.BookAt(now)
	if !ok {
		return market.BookSnapshot{}, fmt.Errorf("%w: orderbook@%d", ErrDataGap, now)
	}
	if depth > 0 {
		if len(snap.Bids) > depth {
			snap.Bids = snap.Bids[:depth]
		}
		if len(snap.Asks) > depth {
			snap.Asks = snap.Asks[:depth]
		}
	}
	return snap, nil
}

func (r *Replay) RushEvents(_ context.Context, start, end int64) ([]rush.Event, error) {
	return r.dataset.RushBetween(start, end), nil
}
