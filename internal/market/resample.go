package market

// Resample 将 1 秒序列下采样到目标周期。
// 桶起点对齐到周期网格；空桶以上一收盘价平移、零成交量补齐，
// 使输出在 [first, last] 区间内严格连续。输入须按时间升序。
func Resample(series []Candle, tf Timeframe) []Candle {
	if len(series) == 0 {
		return nil
	}
	step := tf.Millis()
	first := AlignDown(series[0].Timestamp, step)
	last := AlignDown(series[len(series)-1].Timestamp, step)

	buckets := make(map[int64]*Candle, len(series))
	for _, c := range series {
		key := AlignDown(c.Timestamp, step)
		agg, ok := buckets[key]
		if !ok {
			cp := c
			cp.Timestamp = key
			buckets[key] = &cp
			continue
		}
		if c.High > agg.High {
			agg.High = c.High
		}
		if c.Low < agg.Low {
			agg.Low = c.Low
		}
		agg.Close = c.Close
		agg.Volume += c.Volume
	}

	out := make([]Candle, 0, (last-first)/step+1)
	var prevClose float64
	for key := first; key <= last; key += step {
		if agg, ok := buckets[key]; ok {
			out = append(out, *agg)
			prevClose = agg.Close
			continue
		}
		out = append(out, Candle{Timestamp: key, Open: prevClose, High: prevClose, Low: prevClose, Close: prevClose})
	}
	return out
}

// Closes 提取收盘价序列，供指标计算使用。
func Closes(series []Candle) []float64 {
	out := make([]float64, len(series))
	for i, c := range series {
		out[i] = c.Close
	}
	return out
}
