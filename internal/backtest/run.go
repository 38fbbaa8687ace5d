package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"skyline/internal/clock"
	"skyline/internal/config"
	"skyline/internal/datasource"
	"skyline/internal/exchange"
	"skyline/internal/logger"
	"skyline/internal/market"
	"skyline/internal/replay"
	"skyline/internal/strategy"
)

const timeLayout = "2006-01-02 15:04:05"

// Result 汇总一次回测。
type Result struct {
	RunID      string
	Profit     decimal.Decimal
	Orders     int
	ReportPath string
}

// Execute 按清单装载数据集并完整跑一遍策略, 结果落库, 可选渲染报告。
func Execute(ctx context.Context, cfg config.BacktestConfig, strat config.StrategyConfig, hz config.HorizonConfig) (Result, error) {
	manifest, err := replay.LoadManifest(cfg.Dataset)
	if err != nil {
		return Result{}, err
	}
	start, err := parseTime(cfg.Start, time.UnixMilli(0))
	if err != nil {
		return Result{}, fmt.Errorf("回测起点非法: %w", err)
	}
	end, err := parseTime(cfg.End, time.Now().Add(24*time.Hour))
	if err != nil {
		return Result{}, fmt.Errorf("回测终点非法: %w", err)
	}

	dataset, err := replay.Build(ctx, manifest, start, end)
	if err != nil {
		return Result{}, err
	}

	store, err := NewResultStore(cfg.ResultsDB)
	if err != nil {
		return Result{}, err
	}
	defer store.Close()

	return RunDataset(ctx, store, dataset, manifest.Name, cfg.ReportDir, strat, hz)
}

// RunDataset 在已就绪的数据集上执行回测。虚拟钟从数据集起点起步,
// 跑到数据集终点为止, 运行期间所有等待都只推进虚拟钟。
func RunDataset(ctx context.Context, store *ResultStore, dataset *replay.Dataset, datasetName, reportDir string,
	strat config.StrategyConfig, hz config.HorizonConfig) (Result, error) {
	first, last := dataset.Span()
	if first >= last {
		return Result{}, fmt.Errorf("数据集时间范围为空")
	}

	clk := clock.NewVirtual(first)
	src := datasource.NewReplay(dataset, clk)
	sim := exchange.NewSim(src)
	eng, err := strategy.New(strategy.Options{
		Pair:     dataset.Pair,
		Source:   src,
		Conn:     sim,
		Clock:    clk,
		Waiter:   clk,
		Params:   strategy.StaticParams(strat),
		Horizon:  hz,
		RunUntil: last,
	})
	if err != nil {
		return Result{}, err
	}

	run := Run{
		ID: uuid.NewString(), Pair: dataset.Pair, Dataset: datasetName,
		Status: RunStatusRunning, StartTS: first, EndTS: last,
	}
	if err := store.InsertRun(ctx, run); err != nil {
		return Result{}, err
	}
	logger.Infof("[backtest] run %s: %s %s ~ %s", run.ID, dataset.Pair,
		time.UnixMilli(first).Format(timeLayout), time.UnixMilli(last).Format(timeLayout))

	if err := eng.Run(ctx); err != nil {
		if ferr := store.FinishRun(ctx, run.ID, RunStatusFailed, 0, 0, err.Error()); ferr != nil {
			logger.Errorf("[backtest] run %s 状态落库失败: %v", run.ID, ferr)
		}
		return Result{RunID: run.ID}, err
	}

	orders := sim.Orders()
	curve := profitCurve(orders)
	profit := eng.Profits()

	if err := store.InsertOrders(ctx, run.ID, orders); err != nil {
		return Result{RunID: run.ID}, err
	}
	if err := store.InsertCurve(ctx, run.ID, curve); err != nil {
		return Result{RunID: run.ID}, err
	}
	pf, _ := profit.Float64()
	if err := store.FinishRun(ctx, run.ID, RunStatusDone, pf, len(orders), ""); err != nil {
		return Result{RunID: run.ID}, err
	}

	result := Result{RunID: run.ID, Profit: profit, Orders: len(orders)}
	if reportDir != "" {
		saved, err := store.GetRun(ctx, run.ID)
		if err != nil {
			return result, err
		}
		path, err := WriteReport(reportDir, saved, curve)
		if err != nil {
			return result, fmt.Errorf("渲染报告失败: %w", err)
		}
		result.ReportPath = path
		logger.Infof("[backtest] run %s 报告: %s", run.ID, path)
	}
	logger.Infof("[backtest] run %s 完成: 收益 %s, 委托 %d 笔", run.ID, profit, len(orders))
	return result, nil
}

// profitCurve 按创建顺序把已成交委托两两配对, 累计出逐笔收益曲线。
// 配对口径与模拟撮合端一致: 偶数位开仓、奇数位平仓, 落单的一笔不计。
func profitCurve(orders []*exchange.Order) []CurvePoint {
	var out []CurvePoint
	total := decimal.Zero
	var prev decimal.Decimal
	n := 0
	for _, order := range orders {
		if order.Status != exchange.StatusClosed {
			continue
		}
		price := decimal.NewFromFloat(order.Price)
		if n%2 == 0 {
			prev = price
		} else {
			leg := price.Sub(prev)
			if order.Side == market.SideBuy {
				leg = prev.Sub(price)
			}
			total = total.Add(leg)
			v, _ := total.Float64()
			out = append(out, CurvePoint{Seq: len(out) + 1, Profit: v})
		}
		n++
	}
	return out
}

func parseTime(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	return time.ParseInLocation(timeLayout, raw, time.Local)
}
