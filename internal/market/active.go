package market

import "math"

// ActiveProjector 从 1 秒序列投影当前周期内未收盘的那根 K 线。
// 每当 1 秒桶时间戳落在周期网格上就开启新的一根；随后每一秒都
// 并入最新的收盘价、最高最低与成交量，使持有者始终看到"进行中"的形态。
type ActiveProjector struct {
	tf      Timeframe
	bar     Candle
	started bool
}

func NewActiveProjector(tf Timeframe) *ActiveProjector {
	return &ActiveProjector{tf: tf}
}

// Update 并入一根 1 秒 K 线，返回更新后的进行中 K 线。
func (p *ActiveProjector) Update(sec Candle) Candle {
	step := p.tf.Millis()
	if !p.started || sec.Timestamp%step == 0 {
		p.bar = Candle{
			Timestamp: AlignDown(sec.Timestamp, step),
			Open:      sec.Open,
			High:      math.Inf(-1),
			Low:       math.Inf(1),
		}
		p.started = true
	}
	p.bar.Close = sec.Close
	p.bar.Volume += sec.Volume
	if sec.High > p.bar.High {
		p.bar.High = sec.High
	}
	if sec.Low < p.bar.Low {
		p.bar.Low = sec.Low
	}
	return p.bar
}

// Bar 返回当前进行中的 K 线；尚未喂入任何数据时返回 false。
func (p *ActiveProjector) Bar() (Candle, bool) {
	return p.bar, p.started
}
