package replay

import (
	"context"
	"fmt"
	"sort"
	"time"

	"skyline/internal/logger"
	"skyline/internal/market"
	"skyline/internal/rush"
)

var datasetTimeframes = []string{"1m", "5m", "1h"}

// Build 把采集端的轮转日志整理成按秒索引的数据集。
// 成交日志推导 ticker 与各周期 OHLCV, 盘口日志按秒取末帧并前向填充,
// 动量事件(如配置)从入库库文件整段取出。
func Build(ctx context.Context, m Manifest, start, end time.Time) (*Dataset, error) {
	ticks, err := loadTicks(m.Executions, start, end)
	if err != nil {
		return nil, err
	}
	if len(ticks) == 0 {
		return nil, fmt.Errorf("窗口 [%s, %s] 内没有成交数据", start, end)
	}

	tickerRows, err := market.GenerateTicker(ticks)
	if err != nil {
		return nil, err
	}
	seconds, err := market.GenerateSeconds(ticks)
	if err != nil {
		return nil, err
	}

	ohlcv := map[string][]market.Candle{"1s": seconds}
	for _, key := range datasetTimeframes {
		tf, err := market.ParseTimeframe(key)
		if err != nil {
			return nil, err
		}
		ohlcv[key] = market.Resample(seconds, tf)
	}

	bids, err := loadBookSide(m.Bids, start, end)
	if err != nil {
		return nil, fmt.Errorf("载入买侧盘口失败: %w", err)
	}
	asks, err := loadBookSide(m.Asks, start, end)
	if err != nil {
		return nil, fmt.Errorf("载入卖侧盘口失败: %w", err)
	}

	d := &Dataset{
		Pair:    m.Pair,
		tickers: make(map[int64]market.Ticker, len(tickerRows)),
		ohlcv:   ohlcv,
		bids:    bids,
		asks:    asks,
	}
	for _, row := range tickerRows {
		d.tickers[row.Timestamp] = row
	}

	if m.RushDB != "" {
		store, err := rush.NewStore(m.RushDB)
		if err != nil {
			return nil, fmt.Errorf("打开动量事件库失败: %w", err)
		}
		defer store.Close()
		events, err := store.Range(ctx, start.UnixMilli(), end.UnixMilli())
		if err != nil {
			return nil, err
		}
		d.rush = events
	}

	d.firstSec, d.lastSec = commonSpan(d)
	if d.firstSec > d.lastSec {
		return nil, fmt.Errorf("ticker 与盘口日志没有重叠时段")
	}
	logger.Infof("[replay] 数据集 %s 就绪: %d ticker 秒, %d/%d 盘口秒, %d 动量事件",
		m.Name, len(d.tickers), len(d.bids), len(d.asks), len(d.rush))
	return d, nil
}

func loadTicks(src LogSource, start, end time.Time) ([]market.Tick, error) {
	lines, err := readWindow(src.Dir, src.Prefix, start, end)
	if err != nil {
		return nil, err
	}
	ticks := make([]market.Tick, 0, len(lines))
	for _, line := range lines {
		tick, err := parseExecLine(line)
		if err != nil {
			logger.Warnf("[replay] 跳过坏行: %v", err)
			continue
		}
		ticks = append(ticks, tick)
	}
	sort.SliceStable(ticks, func(i, j int) bool { return ticks[i].Timestamp < ticks[j].Timestamp })
	return ticks, nil
}

// loadBookSide 把一侧的快照行整理成 秒→档位 映射:
// 同一秒取最后一帧, 空秒沿用上一帧。
func loadBookSide(src LogSource, start, end time.Time) (map[int64][]market.BookLevel, error) {
	lines, err := readWindow(src.Dir, src.Prefix, start, end)
	if err != nil {
		return nil, err
	}
	type row struct {
		sec    int64
		levels []market.BookLevel
	}
	rows := make([]row, 0, len(lines))
	for _, line := range lines {
		ts, levels, err := market.ParseSnapshotLine(line)
		if err != nil {
			logger.Warnf("[replay] 跳过坏行: %v", err)
			continue
		}
		rows = append(rows, row{sec: market.AlignDown(ts, 1000), levels: levels})
	}
	if len(rows) == 0 {
		return map[int64][]market.BookLevel{}, nil
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].sec < rows[j].sec })

	out := make(map[int64][]market.BookLevel)
	for _, r := range rows {
		out[r.sec] = r.levels
	}
	var last []market.BookLevel
	for sec := rows[0].sec; sec <= rows[len(rows)-1].sec; sec += 1000 {
		if levels, ok := out[sec]; ok {
			last = levels
			continue
		}
		out[sec] = last
	}
	return out, nil
}

// commonSpan 取各序列都有数据的公共时段: 起点为各自最早秒的最大值,
// 终点为各自最晚秒的最小值。
func commonSpan(d *Dataset) (int64, int64) {
	var (
		first, last int64
		seen        bool
	)
	scan := func(keys []int64) {
		if len(keys) == 0 {
			return
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		lo, hi := keys[0], keys[len(keys)-1]
		if !seen {
			first, last = lo, hi
			seen = true
			return
		}
		if lo > first {
			first = lo
		}
		if hi < last {
			last = hi
		}
	}
	scan(mapKeys(d.tickers))
	scan(mapKeys(d.bids))
	scan(mapKeys(d.asks))
	return first, last
}

func mapKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
