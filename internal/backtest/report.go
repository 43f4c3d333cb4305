package backtest

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const (
	reportThemeBG = "#060c1b"
	colorEquity   = "#34d399"
	colorDrawdown = "#f87171"
)

// RenderReport 把完成的 run 渲染成独立 HTML 报告：资金曲线 + 回撤曲线。
func RenderReport(run Run) ([]byte, error) {
	if run.Result == nil {
		return nil, fmt.Errorf("run %s 尚无结果可渲染", run.ID)
	}
	res := run.Result

	dates := make([]string, len(res.EquityCurve))
	equity := make([]opts.LineData, len(res.EquityCurve))
	drawdown := make([]opts.LineData, len(res.EquityCurve))
	peak := 0.0
	for i, p := range res.EquityCurve {
		dates[i] = p.Date.Format("2006-01-02")
		equity[i] = opts.LineData{Value: p.Value}
		if p.Value > peak {
			peak = p.Value
		}
		dd := 0.0
		if peak > 0 {
			dd = (peak - p.Value) / peak * 100
		}
		drawdown[i] = opts.LineData{Value: -dd}
	}

	equityChart := charts.NewLine()
	equityChart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			BackgroundColor: reportThemeBG,
			Width:           "1200px",
			Height:          "420px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("回测 %s · %s", run.ID[:8], run.Config.StrategyType),
			Subtitle: fmt.Sprintf("总收益 %.2f%% · 夏普 %.2f · 最大回撤 %.2f%% · 交易 %d 笔", res.TotalReturn, res.SharpeRatio, res.MaxDrawdown, res.NumTrades),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)
	equityChart.SetXAxis(dates).
		AddSeries("equity", equity, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: colorEquity}))

	ddChart := charts.NewLine()
	ddChart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			BackgroundColor: reportThemeBG,
			Width:           "1200px",
			Height:          "260px",
		}),
		charts.WithTitleOpts(opts.Title{Title: "drawdown %"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)
	ddChart.SetXAxis(dates).
		AddSeries("drawdown", drawdown,
			charts.WithLineStyleOpts(opts.LineStyle{Color: colorDrawdown}),
			charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.25)}))

	page := components.NewPage()
	page.AddCharts(equityChart, ddChart)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, fmt.Errorf("渲染报告失败: %w", err)
	}
	return buf.Bytes(), nil
}
