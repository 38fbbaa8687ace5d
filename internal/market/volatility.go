package market

import (
	"fmt"

	talib "github.com/markcheno/go-talib"
)

const bbandsPeriod = 5

// ROCPStd 以布林带宽度衡量近期波动：取 1 分钟收盘序列上
// BBANDS(period=5, 1σ, EMA) 的 中轨-下轨 宽度，再除以最新收盘价归一化。
// 值越大说明行情越不稳定，策略用它做开仓前的波动闸门。
func ROCPStd(closes []float64) (float64, error) {
	if len(closes) < bbandsPeriod {
		return 0, fmt.Errorf("波动率计算样本不足: %d < %d", len(closes), bbandsPeriod)
	}
	_, middle, lower := talib.BBands(closes, bbandsPeriod, 1, 1, talib.EMA)
	last := len(closes) - 1
	if closes[last] == 0 {
		return 0, fmt.Errorf("最新收盘价为零, 无法归一化")
	}
	return (middle[last] - lower[last]) / closes[last], nil
}
