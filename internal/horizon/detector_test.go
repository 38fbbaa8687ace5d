package horizon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyline/internal/market"
)

func bar(ts int64, o, h, l, c float64) market.Candle {
	return market.Candle{Timestamp: ts, Open: o, High: h, Low: l, Close: c}
}

func TestDetectPairsCloseHighs(t *testing.T) {
	bars := []market.Candle{
		// 两根上影线明显且高点接近的 K 线
		bar(1000, 95.0, 100.4, 94.0, 95.5),
		bar(2000, 95.5, 100.0, 93.0, 95.0),
		// 远离水平位的收盘, 避免触发贴价剔除
		bar(3000, 95.0, 95.2, 94.8, 95.0),
	}
	out := Detect(bars, Params{MinWickLen: 2.0, WickThreshold: 0.5})
	require.Len(t, out, 1)
	assert.InDelta(t, 100.2, out[0].Value, 1e-9)
	assert.Equal(t, []int64{1000, 2000}, out[0].Supporters)
}

func TestDetectDiscardsCrossedLine(t *testing.T) {
	bars := []market.Candle{
		bar(1000, 95.0, 100.4, 94.0, 95.5),
		bar(2000, 95.5, 100.0, 93.0, 95.0),
		// 最早支点之后一根 K 线横穿 100.2
		bar(3000, 99.0, 101.0, 99.0, 99.5),
		bar(4000, 95.0, 95.2, 94.8, 95.0),
	}
	out := Detect(bars, Params{MinWickLen: 2.0, WickThreshold: 0.5})
	assert.Empty(t, out)
}

func TestDetectDiscardsLineNearLastClose(t *testing.T) {
	bars := []market.Candle{
		bar(1000, 95.0, 100.4, 94.0, 95.5),
		bar(2000, 95.5, 100.0, 93.0, 95.0),
		// 收盘贴着 100.2
		bar(3000, 99.9, 99.9, 99.8, 99.9),
	}
	out := Detect(bars, Params{MinWickLen: 2.0, WickThreshold: 0.5})
	assert.Empty(t, out)
}

func TestDetectIgnoresShortWicks(t *testing.T) {
	bars := []market.Candle{
		// 影线不足 MinWickLen
		bar(1000, 99.5, 100.0, 99.0, 99.8),
		bar(2000, 99.6, 100.1, 99.1, 99.9),
		bar(3000, 95.0, 95.2, 94.8, 95.0),
	}
	out := Detect(bars, Params{MinWickLen: 2.0, WickThreshold: 0.5})
	assert.Empty(t, out)
}

func TestDetectUsesUpperWickOnly(t *testing.T) {
	// 下影线很长但上影线为零, 不应入选
	bars := []market.Candle{
		bar(1000, 100.0, 100.0, 90.0, 99.5),
		bar(2000, 100.0, 100.0, 90.2, 99.5),
		bar(3000, 95.0, 95.2, 94.8, 95.0),
	}
	out := Detect(bars, Params{MinWickLen: 2.0, WickThreshold: 0.5})
	assert.Empty(t, out)
}

func TestNearestToPrice(t *testing.T) {
	horizons := []Horizon{
		{Value: 98.0},
		{Value: 102.0},
		{Value: 110.0},
	}

	h, ok := NearestToPrice(horizons, 100.0, 1000, DirectionBoth)
	require.True(t, ok)
	assert.Equal(t, 98.0, h.Value)

	h, ok = NearestToPrice(horizons, 100.0, 1000, DirectionUpper)
	require.True(t, ok)
	assert.Equal(t, 102.0, h.Value)

	h, ok = NearestToPrice(horizons, 100.0, 1000, DirectionLower)
	require.True(t, ok)
	assert.Equal(t, 98.0, h.Value)

	// scope 之外的线不可见
	_, ok = NearestToPrice(horizons, 100.0, 1.5, DirectionBoth)
	assert.False(t, ok)

	_, ok = NearestToPrice(nil, 100.0, 1000, DirectionBoth)
	assert.False(t, ok)
}
