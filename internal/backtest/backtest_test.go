package backtest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyline/internal/config"
	"skyline/internal/exchange"
	"skyline/internal/market"
	"skyline/internal/replay"
)

const t0 int64 = 1553475600000 // 2019-03-25 01:00:00 UTC

func TestResultStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewResultStore(filepath.Join(dir, "results", "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	run := Run{
		ID: "run-1", Pair: "XBTUSD", Dataset: "demo",
		Status: RunStatusRunning, StartTS: t0, EndTS: t0 + 60000,
	}
	require.NoError(t, store.InsertRun(ctx, run))

	orders := []*exchange.Order{
		{ID: "0", Pair: "XBTUSD", Type: exchange.OrderTypeLimit, Side: market.SideSell, Price: 9005, Amount: 1, Status: exchange.StatusClosed},
		{ID: "1", Pair: "XBTUSD", Type: exchange.OrderTypeMarket, Side: market.SideBuy, Price: 9003, Amount: 1, Status: exchange.StatusClosed},
	}
	require.NoError(t, store.InsertOrders(ctx, run.ID, orders))
	require.NoError(t, store.InsertCurve(ctx, run.ID, []CurvePoint{{Seq: 1, Profit: 2}}))
	require.NoError(t, store.FinishRun(ctx, run.ID, RunStatusDone, 2, 2, ""))

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusDone, got.Status)
	assert.Equal(t, 2.0, got.Profit)
	assert.Equal(t, 2, got.Orders)
	assert.NotZero(t, got.CompletedAt)

	list, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	curve, err := store.ListCurve(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, curve, 1)
	assert.Equal(t, 2.0, curve[0].Profit)
}

func TestProfitCurvePairsClosedOrders(t *testing.T) {
	orders := []*exchange.Order{
		{ID: "0", Side: market.SideSell, Price: 9005, Status: exchange.StatusClosed},
		{ID: "1", Side: market.SideBuy, Price: 9001.5, Status: exchange.StatusCanceled}, // 撤掉的不参与
		{ID: "2", Side: market.SideBuy, Price: 9003, Status: exchange.StatusClosed},
		{ID: "3", Side: market.SideBuy, Price: 9000, Status: exchange.StatusClosed},
		{ID: "4", Side: market.SideSell, Price: 9004, Status: exchange.StatusClosed},
		{ID: "5", Side: market.SideBuy, Price: 9010, Status: exchange.StatusClosed}, // 落单, 不计
	}
	curve := profitCurve(orders)
	require.Len(t, curve, 2)
	assert.Equal(t, 2.0, curve[0].Profit)
	assert.Equal(t, 6.0, curve[1].Profit)
}

// 平盘数据集: 没有上影线就没有水平位, 全程不开仓, 跑完落库为 done。
func TestRunDatasetFlatMarket(t *testing.T) {
	var tickers []market.Ticker
	bids := map[int64][]market.BookLevel{}
	asks := map[int64][]market.BookLevel{}
	for sec := t0; sec <= t0+10000; sec += 1000 {
		tickers = append(tickers, market.Ticker{Timestamp: sec, Bid: 8999.5, Ask: 9000.5, Close: 9000})
		bids[sec] = []market.BookLevel{{Price: 8999.5, Size: 100}}
		asks[sec] = []market.BookLevel{{Price: 9000.5, Size: 100}}
	}
	var bars []market.Candle
	for ts := t0 - 600000; ts <= t0; ts += 60000 {
		bars = append(bars, market.Candle{Timestamp: ts, Open: 9000, High: 9000, Low: 9000, Close: 9000, Volume: 1})
	}
	dataset := replay.NewDataset("XBTUSD", tickers, map[string][]market.Candle{"1m": bars}, bids, asks, nil)

	dir := t.TempDir()
	store, err := NewResultStore(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	strat := config.StrategyConfig{
		CandleType: "1m", Amount: 1,
		RotationSec: 300, MaxWaitSec: 60, PollSec: 5, RushWindowSec: 3,
		DepthScope: 3, DepthThreshold: 10000, Shift: 0.5,
		DotenOffset: 2, HorizonScope: 1000, NearHorizon: 10,
		MakerRebate: 0.00025, TakerFee: 0.00075,
	}
	hz := config.HorizonConfig{MinWickLen: 2, WickThreshold: 0.5, LookbackSec: 3600}

	reportDir := filepath.Join(dir, "reports")
	result, err := RunDataset(context.Background(), store, dataset, "flat", reportDir, strat, hz)
	require.NoError(t, err)
	assert.True(t, result.Profit.IsZero())
	assert.Equal(t, 0, result.Orders)

	run, err := store.GetRun(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusDone, run.Status)
	assert.Equal(t, t0, run.StartTS)
	assert.Equal(t, t0+10000, run.EndTS)

	html, err := os.ReadFile(result.ReportPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(html), "echarts"))
}
