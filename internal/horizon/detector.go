package horizon

import (
	"math"
	"sort"

	"skyline/internal/market"
)

// Direction 限定取线方向: 只看价格上方、下方或两侧。
type Direction string

const (
	DirectionBoth  Direction = "both"
	DirectionUpper Direction = "upper"
	DirectionLower Direction = "lower"
)

// Horizon 是一条由上影线几何推出的水平位。
// Supporters 为支撑该线的 K 线起始时间（去重后, 升序）。
type Horizon struct {
	Value      float64
	Supporters []int64
}

// Params 控制检测灵敏度。
type Params struct {
	// MinWickLen 上影线最短长度, 过滤掉影线不明显的 K 线
	MinWickLen float64
	// WickThreshold 两根 K 线极值被视为同一水平位的最大间距
	WickThreshold float64
}

// 距最新收盘价过近的线没有操作空间, 直接丢弃
const minPriceGap = 1.0

// upperWick 只量上影线: 最高价减实体上沿。
func upperWick(c market.Candle) float64 {
	body := c.Close
	if c.Open >= c.Close {
		body = c.Open
	}
	return c.High - body
}

// Detect 从 K 线序列中找出仍然有效的水平位。
//
// 流程: 先选出上影线足够长的 K 线; 两两比较其高/低四种极值组合,
// 间距在阈值内的取均值登记为候选线, 两根 K 线都记为支点;
// 随后剔除两类线: 在最早支点之后被某根 K 线实体横穿
// (bar.Low < value < bar.High, 严格不等) 的, 以及贴着最新收盘价的。
// 返回值按线值升序。
func Detect(bars []market.Candle, p Params) []Horizon {
	if len(bars) == 0 {
		return nil
	}

	var picked []market.Candle
	for _, c := range bars {
		if upperWick(c) >= p.MinWickLen {
			picked = append(picked, c)
		}
	}

	supporters := make(map[float64][]int64)
	record := func(a, b float64, t1, t2 int64) {
		if math.Abs(a-b) <= p.WickThreshold {
			v := (a + b) / 2
			supporters[v] = append(supporters[v], t1, t2)
		}
	}
	for i, c1 := range picked {
		for j, c2 := range picked {
			if i == j {
				continue
			}
			record(c1.High, c2.High, c1.Timestamp, c2.Timestamp)
			record(c1.High, c2.Low, c1.Timestamp, c2.Timestamp)
			record(c1.Low, c2.Low, c1.Timestamp, c2.Timestamp)
			record(c1.Low, c2.High, c1.Timestamp, c2.Timestamp)
		}
	}

	lastClose := bars[len(bars)-1].Close
	out := make([]Horizon, 0, len(supporters))
	for value, ts := range supporters {
		uniq := dedupe(ts)
		if crossedAfter(bars, uniq[0], value) {
			continue
		}
		if math.Abs(value-lastClose) <= minPriceGap {
			continue
		}
		out = append(out, Horizon{Value: value, Supporters: uniq})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}

// crossedAfter 检查最早支点之后是否有 K 线横穿该线。
func crossedAfter(bars []market.Candle, earliest int64, value float64) bool {
	for _, c := range bars {
		if c.Timestamp <= earliest {
			continue
		}
		if c.High > value && c.Low < value {
			return true
		}
	}
	return false
}

func dedupe(ts []int64) []int64 {
	seen := make(map[int64]struct{}, len(ts))
	out := make([]int64, 0, len(ts))
	for _, t := range ts {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NearestToPrice 在 scope 价差范围内找距当前价最近的线。
// direction 为 upper 时只看价格上方, lower 只看下方。没有命中返回 false。
func NearestToPrice(horizons []Horizon, price, scope float64, dir Direction) (Horizon, bool) {
	var (
		best    Horizon
		minDist = math.Inf(1)
		found   bool
	)
	for _, h := range horizons {
		switch dir {
		case DirectionUpper:
			if h.Value <= price || h.Value >= price+scope {
				continue
			}
		case DirectionLower:
			if h.Value >= price || h.Value <= price-scope {
				continue
			}
		default:
			if h.Value <= price-scope || h.Value >= price+scope {
				continue
			}
		}
		if d := math.Abs(h.Value - price); d < minDist {
			minDist = d
			best = h
			found = true
		}
	}
	return best, found
}
