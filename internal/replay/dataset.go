package replay

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"skyline/internal/market"
	"skyline/internal/rush"
)

// LogSource 指向一组按小时轮转的日志文件。
type LogSource struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

// Manifest 描述一份回测数据集的原始日志位置。
type Manifest struct {
	Name       string    `yaml:"name"`
	Pair       string    `yaml:"pair"`
	Depth      int       `yaml:"depth"`
	Executions LogSource `yaml:"executions"`
	Bids       LogSource `yaml:"bids"`
	Asks       LogSource `yaml:"asks"`
	RushDB     string    `yaml:"rush_db"`
}

// LoadManifest 读取数据集清单, 未知字段视为书写错误。
func LoadManifest(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("读取数据集清单失败: %w", err)
	}
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("解析数据集清单失败: %w", err)
	}
	if m.Pair == "" {
		return Manifest{}, fmt.Errorf("数据集清单缺少 pair")
	}
	if m.Depth <= 0 {
		m.Depth = 25
	}
	return m, nil
}

// Dataset 是完全载入内存、按秒索引的回测数据。
// 访问方法按虚拟钟的整秒时刻查询, 缺口由调用方判定为致命。
type Dataset struct {
	Pair string

	tickers map[int64]market.Ticker
	ohlcv   map[string][]market.Candle
	bids    map[int64][]market.BookLevel
	asks    map[int64][]market.BookLevel
	rush    []rush.Event

	firstSec int64
	lastSec  int64
}

// NewDataset 从已就绪的序列直接组装数据集, 供合成数据场景使用。
func NewDataset(pair string, tickers []market.Ticker, ohlcv map[string][]market.Candle,
	bids, asks map[int64][]market.BookLevel, events []rush.Event) *Dataset {
	d := &Dataset{
		Pair:    pair,
		tickers: make(map[int64]market.Ticker, len(tickers)),
		ohlcv:   ohlcv,
		bids:    bids,
		asks:    asks,
		rush:    events,
	}
	if d.ohlcv == nil {
		d.ohlcv = map[string][]market.Candle{}
	}
	if d.bids == nil {
		d.bids = map[int64][]market.BookLevel{}
	}
	if d.asks == nil {
		d.asks = map[int64][]market.BookLevel{}
	}
	for _, row := range tickers {
		d.tickers[row.Timestamp] = row
	}
	d.firstSec, d.lastSec = commonSpan(d)
	return d
}

// Span 返回数据覆盖的秒级时间范围(Unix ms)。
func (d *Dataset) Span() (first, last int64) {
	return d.firstSec, d.lastSec
}

// TickerAt 返回恰好落在 now(整秒, Unix ms) 上的 ticker。
func (d *Dataset) TickerAt(now int64) (market.Ticker, bool) {
	t, ok := d.tickers[now]
	return t, ok
}

// CandlesSince 返回时间戳严格大于 since 的 K 线, 最多 limit 根(0 表示不限)。
func (d *Dataset) CandlesSince(tfKey string, since int64, limit int) ([]market.Candle, bool) {
	series, ok := d.ohlcv[tfKey]
	if !ok {
		return nil, false
	}
	var out []market.Candle
	for _, c := range series {
		if c.Timestamp <= since {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// BookAt 返回 now 时刻两侧的盘口切片, 任一侧缺失即视为缺口。
func (d *Dataset) BookAt(now int64) (market.BookSnapshot, bool) {
	bids, ok := d.bids[now]
	if !ok {
		return market.BookSnapshot{}, false
	}
	asks, ok := d.asks[now]
	if !ok {
		return market.BookSnapshot{}, false
	}
	return market.BookSnapshot{Timestamp: now, Bids: bids, Asks: asks}, true
}

// RushBetween 返回入库时刻落在 [start, end] 内的动量事件。
func (d *Dataset) RushBetween(start, end int64) []rush.Event {
	var out []rush.Event
	for _, e := range d.rush {
		if e.Timestamp < start || e.Timestamp > end {
			continue
		}
		out = append(out, e)
	}
	return out
}
