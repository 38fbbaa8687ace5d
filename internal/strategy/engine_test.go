package strategy

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyline/internal/clock"
	"skyline/internal/config"
	"skyline/internal/datasource"
	"skyline/internal/exchange"
	"skyline/internal/market"
	"skyline/internal/notify"
	"skyline/internal/replay"
	"skyline/internal/rush"
)

// 2019-03-25 01:00:00 UTC, 对齐到小时
const t0 int64 = 1553475600000

func testParams() StaticParams {
	return StaticParams{
		CandleType:     "1m",
		Amount:         1,
		RotationSec:    300,
		MaxWaitSec:     300,
		PollSec:        5,
		RushWindowSec:  3,
		DepthScope:     3,
		DepthThreshold: 10000,
		Shift:          0.5,
		DotenOffset:    2,
		HorizonScope:   1000,
		NearHorizon:    10,
		MakerRebate:    0.00025,
		TakerFee:       0.00075,
	}
}

func testHorizonConfig() config.HorizonConfig {
	return config.HorizonConfig{
		MinWickLen:    2,
		WickThreshold: 0.5,
		LookbackSec:   3600,
	}
}

// buildDataset 构造一份合成数据集:
//   - 两根上影线在 t0-40min / t0-30min 处共同确立 9005.0 的水平位;
//   - 现价一直在 9000 附近, 卖二 9005.5 上压着 2 万张的大单;
//   - t0+2s 有一条买方放量事件;
//   - t0+8s 起最优买价抬到 9005, 让入场卖单能成交。
//
// finalClose 决定入场成交后取到的最新收盘价(序列最后一根 K 线),
// dotenAskFrom > 0 时从该时刻起把卖一压到 9003.5, 让反手买单成交。
func buildDataset(finalClose float64, dotenAskFrom int64) *replay.Dataset {
	var tickers []market.Ticker
	bids := map[int64][]market.BookLevel{}
	asks := map[int64][]market.BookLevel{}
	for sec := t0 - 5000; sec <= t0+25000; sec += 1000 {
		tickers = append(tickers, market.Ticker{
			Timestamp: sec,
			Bid:       8999.5, BidVolume: 10,
			Ask:  9000.5,
			Open: 9000, High: 9000, Low: 9000, Close: 9000, Volume: 1,
		})
		switch {
		case dotenAskFrom > 0 && sec >= dotenAskFrom:
			asks[sec] = []market.BookLevel{{Price: 9003.5, Size: 20000}}
		case sec >= t0+8000:
			asks[sec] = []market.BookLevel{{Price: 9005.5, Size: 20000}}
		default:
			asks[sec] = []market.BookLevel{{Price: 9000.5, Size: 5000}, {Price: 9005.5, Size: 20000}}
		}
		if sec >= t0+8000 {
			bids[sec] = []market.BookLevel{{Price: 9005.0, Size: 100}}
		} else {
			bids[sec] = []market.BookLevel{{Price: 8999.5, Size: 100}}
		}
	}

	var bars []market.Candle
	for ts := t0 - 3600000; ts <= t0+300000; ts += 60000 {
		bar := market.Candle{Timestamp: ts, Open: 9000, High: 9001, Low: 8999, Close: 9000, Volume: 1}
		switch {
		case ts == t0-2400000:
			bar.High, bar.Low = 9005.2, 8995
		case ts == t0-1800000:
			bar.High, bar.Low = 9004.8, 8990
		case ts >= t0:
			bar = market.Candle{Timestamp: ts, Open: 9003.5, High: 9004, Low: 9000, Close: 9003.5, Volume: 1}
		}
		bars = append(bars, bar)
	}
	// 最后一根只在成交后作为最新收盘价被读到, 检测窗口已把它丢弃
	last := &bars[len(bars)-1]
	last.Open, last.Close = finalClose, finalClose
	last.High, last.Low = finalClose+0.5, finalClose-0.5

	events := []rush.Event{{
		BoardName: "XBTUSD", TakerSide: "buy",
		Volume: 1000, LastPrice: 9000,
		Timestamp: t0 + 2000,
	}}
	return replay.NewDataset("XBTUSD", tickers, map[string][]market.Candle{"1m": bars}, bids, asks, events)
}

type recordingNotifier struct {
	msgs []string
}

func (r *recordingNotifier) SendText(text string) error {
	r.msgs = append(r.msgs, text)
	return nil
}

func newTestEngine(t *testing.T, dataset *replay.Dataset, notifier notify.TextNotifier) (*Engine, *exchange.Sim, *clock.Virtual) {
	t.Helper()
	clk := clock.NewVirtual(t0)
	src := datasource.NewReplay(dataset, clk)
	sim := exchange.NewSim(src)
	eng, err := New(Options{
		Pair:     "XBTUSD",
		Source:   src,
		Conn:     sim,
		Clock:    clk,
		Waiter:   clk,
		Params:   testParams(),
		Horizon:  testHorizonConfig(),
		Notifier: notifier,
		RunUntil: t0 + 20000,
	})
	require.NoError(t, err)
	return eng, sim, clk
}

// 反手单不成交: 最新收盘价 9003.5 低于 9005 的水平位,
// 对空头入场而言水平位已被穿透, 立即市价离场。
func TestEngineRushEntryThenMarketExit(t *testing.T) {
	recorder := &recordingNotifier{}
	eng, sim, _ := newTestEngine(t, buildDataset(9003.5, 0), recorder)
	require.NoError(t, eng.Run(context.Background()))

	// 入场 sell@9005, 市价买回 9005.5, 再扣 taker 手续费
	spread := decimal.NewFromFloat(9005).Sub(decimal.NewFromFloat(9005.5))
	fee := decimal.NewFromFloat(9005.5).Mul(decimal.NewFromFloat(0.00075))
	want := spread.Sub(fee)
	assert.True(t, eng.Profits().Equal(want), "got %s want %s", eng.Profits(), want)

	// 模拟撮合端按成交配对只看点差
	assert.True(t, sim.Profit().Equal(decimal.NewFromFloat(-0.5)), "got %s", sim.Profit())

	// 反手单被撤掉
	doten, err := sim.FetchOrder(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusCanceled, doten.Status)

	// 推送带上入场与离场明细
	require.Len(t, recorder.msgs, 1)
	assert.Contains(t, recorder.msgs[0], "XBTUSD")
	assert.Contains(t, recorder.msgs[0], "入场 sell@9005")
	assert.Contains(t, recorder.msgs[0], "超时市价离场")
}

// 反手单成交: 最新收盘价抬到 9006, 水平位未被穿透,
// 反手买单 9004 等到卖一砸下来后成交, 吃 maker 返佣。
func TestEngineRushEntryThenDotenFill(t *testing.T) {
	eng, sim, _ := newTestEngine(t, buildDataset(9006, t0+15000), nil)
	require.NoError(t, eng.Run(context.Background()))

	spread := decimal.NewFromFloat(9005).Sub(decimal.NewFromFloat(9004))
	rebate := decimal.NewFromFloat(9004).Mul(decimal.NewFromFloat(0.00025))
	want := spread.Add(rebate)
	assert.True(t, eng.Profits().Equal(want), "got %s want %s", eng.Profits(), want)
	assert.True(t, sim.Profit().Equal(decimal.NewFromFloat(1)), "got %s", sim.Profit())
}

// 水平位太远时动量事件被忽略, 布防单原样留着。
func TestEngineRushTooFarIgnored(t *testing.T) {
	dataset := buildDataset(9003.5, 0)
	clk := clock.NewVirtual(t0)
	src := datasource.NewReplay(dataset, clk)
	sim := exchange.NewSim(src)
	params := testParams()
	params.NearHorizon = 3 // 水平位离现价 5, 超出贴近阈值
	eng, err := New(Options{
		Pair: "XBTUSD", Source: src, Conn: sim,
		Clock: clk, Waiter: clk,
		Params: params, Horizon: testHorizonConfig(),
		RunUntil: t0 + 20000,
	})
	require.NoError(t, err)
	require.NoError(t, eng.Run(context.Background()))

	assert.True(t, eng.Profits().IsZero())
	entry, err := sim.FetchOrder(context.Background(), "0")
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusClosed, entry.Status) // 买价抬上来后布防单自然成交
}

// 数据缺口必须原样冒出来, 由监督层判定为致命。
func TestEngineDataGapFatal(t *testing.T) {
	dataset := buildDataset(9003.5, 0)
	clk := clock.NewVirtual(t0 + 60000) // 越过 ticker 覆盖范围
	src := datasource.NewReplay(dataset, clk)
	sim := exchange.NewSim(src)
	eng, err := New(Options{
		Pair: "XBTUSD", Source: src, Conn: sim,
		Clock: clk, Waiter: clk,
		Params: testParams(), Horizon: testHorizonConfig(),
		RunUntil: t0 + 120000,
	})
	require.NoError(t, err)
	assert.ErrorIs(t, eng.Run(context.Background()), datasource.ErrDataGap)
}
