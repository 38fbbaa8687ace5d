package backtest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteReport 把收益曲线渲染成单页 HTML, 返回文件路径。
func WriteReport(dir string, run Run, curve []CurvePoint) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	var xAxis []string
	var series []opts.LineData
	xAxis = append(xAxis, "0")
	series = append(series, opts.LineData{Value: 0.0})
	for _, p := range curve {
		xAxis = append(xAxis, strconv.Itoa(p.Seq))
		series = append(series, opts.LineData{Value: p.Profit})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: fmt.Sprintf("backtest %s", run.ID),
			Width:     "1200px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s 累计收益", run.Pair),
			Subtitle: fmt.Sprintf("%s ~ %s, %d 笔委托",
				time.UnixMilli(run.StartTS).Format("2006-01-02 15:04:05"),
				time.UnixMilli(run.EndTS).Format("2006-01-02 15:04:05"),
				run.Orders),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)
	line.SetXAxis(xAxis)
	line.AddSeries("profit", series,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	path := filepath.Join(dir, run.ID+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := line.Render(f); err != nil {
		return "", err
	}
	return path, nil
}
