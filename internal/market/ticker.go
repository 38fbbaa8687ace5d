package market

import "fmt"

const secondMillis = int64(1000)

func checkOrdered(ticks []Tick) error {
	for i := 1; i < len(ticks); i++ {
		if ticks[i].Timestamp < ticks[i-1].Timestamp {
			return fmt.Errorf("ticks out of order at %d", ticks[i].Timestamp)
		}
	}
	return nil
}

// GenerateTicker 将成交流聚合为 1 秒粒度的 ticker 序列。
//
// 约定来自采集端：卖方成交抬到 bid（最近一笔 sell 的价格/数量作为
// bid/bid_volume），买方成交压到 ask；OHLCV 由卖方成交按秒重采样得到。
// 输入须按时间升序。输出从 bid 与 ask 首次同时可得的那一秒开始，
// 之后每秒一行；无卖方成交的秒以上一收盘价平移、零成交量补齐。
func GenerateTicker(ticks []Tick) ([]Ticker, error) {
	if len(ticks) == 0 {
		return nil, nil
	}
	if err := checkOrdered(ticks); err != nil {
		return nil, err
	}
	var (
		out       []Ticker
		lastSell  *Tick
		lastBuy   *Tick
		prevClose float64
		havePrev  bool
	)
	first := AlignDown(ticks[0].Timestamp, secondMillis)
	last := AlignDown(ticks[len(ticks)-1].Timestamp, secondMillis)
	idx := 0
	for sec := first; sec <= last; sec += secondMillis {
		var bucket []Tick
		for idx < len(ticks) && AlignDown(ticks[idx].Timestamp, secondMillis) == sec {
			bucket = append(bucket, ticks[idx])
			idx++
		}

		var candle *Candle
		for _, t := range bucket {
			switch t.Side {
			case SideSell:
				cp := t
				lastSell = &cp
				if candle == nil {
					candle = &Candle{Timestamp: sec, Open: t.Price, High: t.Price, Low: t.Price, Close: t.Price, Volume: t.Size}
				} else {
					if t.Price > candle.High {
						candle.High = t.Price
					}
					if t.Price < candle.Low {
						candle.Low = t.Price
					}
					candle.Close = t.Price
					candle.Volume += t.Size
				}
			case SideBuy:
				cp := t
				lastBuy = &cp
			}
		}

		if lastSell == nil || lastBuy == nil {
			continue
		}
		if candle == nil {
			// 首行可能落在只有买方成交的秒上, 此时用最近卖价起步
			base := prevClose
			if !havePrev {
				base = lastSell.Price
			}
			candle = &Candle{Timestamp: sec, Open: base, High: base, Low: base, Close: base}
		}
		prevClose = candle.Close
		havePrev = true
		out = append(out, Ticker{
			Timestamp: sec,
			Bid:       lastSell.Price,
			BidVolume: lastSell.Size,
			Ask:       lastBuy.Price,
			AskVolume: lastBuy.Size,
			Open:      candle.Open,
			High:      candle.High,
			Low:       candle.Low,
			Close:     candle.Close,
			Volume:    candle.Volume,
		})
	}
	return out, nil
}

// GenerateSeconds 将成交流聚合为 1 秒 OHLCV 序列（仅卖方成交），
// 空秒以上一收盘价补平。作为重采样与未确定足投影的输入。
func GenerateSeconds(ticks []Tick) ([]Candle, error) {
	if len(ticks) == 0 {
		return nil, nil
	}
	if err := checkOrdered(ticks); err != nil {
		return nil, err
	}
	var (
		out       []Candle
		prevClose float64
		havePrev  bool
	)
	first := AlignDown(ticks[0].Timestamp, secondMillis)
	last := AlignDown(ticks[len(ticks)-1].Timestamp, secondMillis)
	idx := 0
	for sec := first; sec <= last; sec += secondMillis {
		var candle *Candle
		for idx < len(ticks) && AlignDown(ticks[idx].Timestamp, secondMillis) == sec {
			t := ticks[idx]
			idx++
			if t.Side != SideSell {
				continue
			}
			if candle == nil {
				candle = &Candle{Timestamp: sec, Open: t.Price, High: t.Price, Low: t.Price, Close: t.Price, Volume: t.Size}
				continue
			}
			if t.Price > candle.High {
				candle.High = t.Price
			}
			if t.Price < candle.Low {
				candle.Low = t.Price
			}
			candle.Close = t.Price
			candle.Volume += t.Size
		}
		if candle == nil {
			if !havePrev {
				continue
			}
			candle = &Candle{Timestamp: sec, Open: prevClose, High: prevClose, Low: prevClose, Close: prevClose}
		}
		prevClose = candle.Close
		havePrev = true
		out = append(out, *candle)
	}
	return out, nil
}
