package backtest

import (
	"fmt"
	"math"
	"time"

	"coinsight/internal/market"
	"coinsight/internal/risk"
)

// assetTape 维护单资产的价格游标：cursor 始终指向最后一个
// 时间戳不晚于当前边界的采样点。
type assetTape struct {
	symbol string
	series market.Series
	prices []float64
	cursor int
}

func (t *assetTape) advance(ts int64) {
	for t.cursor+1 < len(t.series) && t.series[t.cursor+1].Timestamp <= ts {
		t.cursor++
	}
}

func (t *assetTape) price() float64 {
	return t.series[t.cursor].Price
}

// history 返回截至当前边界的全部价格（含数据源提供的 warmup 段）。
func (t *assetTape) history() []float64 {
	return t.prices[:t.cursor+1]
}

// holding 按均价摊销法记账，costBasis 含手续费与滑点。
type holding struct {
	qty       float64
	costBasis float64
}

// Simulate 执行一次回测：按时间顺序遍历再平衡边界，将持仓向策略
// 给出的目标权重调整，产出成交流水、资金曲线与绩效指标。
//
// 纯计算、无 I/O；边界间存在组合状态依赖，必须严格顺序处理。
// 模拟结束时未平仓位按市价计入资金曲线，但不强制平仓。
func Simulate(cfg Config, seriesByAsset map[string]market.Series) (result Result, err error) {
	if err = cfg.Validate(); err != nil {
		return Result{}, err
	}
	signal, _ := signalFor(cfg.StrategyType)

	defer func() {
		if r := recover(); r != nil {
			result = Result{}
			err = fmt.Errorf("backtest: signal panic: %v", r)
		}
	}()

	startMs := cfg.StartDate.UnixMilli()
	endMs := cfg.EndDate.UnixMilli()

	tapes := make([]*assetTape, 0, len(cfg.Assets))
	seen := map[string]bool{}
	for _, asset := range cfg.Assets {
		if seen[asset] {
			continue
		}
		seen[asset] = true
		series := seriesByAsset[asset]
		if !series.Covers(startMs, endMs) {
			return Result{}, fmt.Errorf("%w: %s 未覆盖回测区间", ErrInsufficientHistory, asset)
		}
		tapes = append(tapes, &assetTape{symbol: asset, series: series, prices: series.Prices()})
	}

	bounds := boundaries(cfg.StartDate, cfg.EndDate, cfg.RebalanceFrequency)

	cash := cfg.InitialCapital
	holdings := make(map[string]*holding, len(tapes))
	var trades []Trade
	equityCurve := []EquityPoint{{Date: cfg.StartDate, Value: cfg.InitialCapital}}

	markEquity := func() float64 {
		total := cash
		for _, t := range tapes {
			if h := holdings[t.symbol]; h != nil {
				total += h.qty * t.price()
			}
		}
		return total
	}

	for _, boundary := range bounds {
		ts := boundary.UnixMilli()
		for _, t := range tapes {
			t.advance(ts)
		}

		// 止损/止盈优先于信号：按未实现盈亏强制平仓
		for _, t := range tapes {
			h := holdings[t.symbol]
			if h == nil || h.qty <= 0 || h.costBasis <= 0 {
				continue
			}
			unrealized := (h.qty*t.price() - h.costBasis) / h.costBasis
			stopHit := cfg.StopLoss > 0 && unrealized <= -cfg.StopLoss
			profitHit := cfg.TakeProfit > 0 && unrealized >= cfg.TakeProfit
			if stopHit || profitHit {
				trades = append(trades, sellFill(cfg, boundary, t.symbol, t.price(), h, h.qty, &cash))
				delete(holdings, t.symbol)
			}
		}

		equity := markEquity()
		for _, t := range tapes {
			weight, ok := signal(t.history())
			if !ok {
				continue
			}
			// 不支持做空，负权重按空仓处理
			weight = math.Max(0, math.Min(1, weight))

			h := holdings[t.symbol]
			currentValue := 0.0
			if h != nil {
				currentValue = h.qty * t.price()
			}
			targetValue := weight * cfg.PositionSize * equity
			delta := targetValue - currentValue
			if math.Abs(delta) <= equity*1e-9 {
				continue
			}

			if delta > 0 {
				if h == nil {
					h = &holding{}
					holdings[t.symbol] = h
				}
				if trade, ok := buyFill(cfg, boundary, t.symbol, t.price(), h, delta, &cash); ok {
					trades = append(trades, trade)
				}
			} else if h != nil && h.qty > 0 {
				fillPrice := t.price() * (1 - cfg.Slippage)
				qty := math.Min(h.qty, -delta/fillPrice)
				if qty > 0 {
					trades = append(trades, sellFill(cfg, boundary, t.symbol, t.price(), h, qty, &cash))
					if h.qty <= 0 {
						delete(holdings, t.symbol)
					}
				}
			}
		}

		equityCurve = append(equityCurve, EquityPoint{Date: boundary, Value: markEquity()})
	}

	return summarize(cfg, equityCurve, trades), nil
}

// buyFill 以 price*(1+slippage) 成交，手续费计入持仓成本；
// 现金不足时按可用现金缩量。
func buyFill(cfg Config, date time.Time, asset string, marketPrice float64, h *holding, notional float64, cash *float64) (Trade, bool) {
	fillPrice := marketPrice * (1 + cfg.Slippage)
	qty := notional / fillPrice
	maxQty := *cash / (fillPrice * (1 + cfg.TransactionCost))
	if qty > maxQty {
		qty = maxQty
	}
	if qty <= 0 || fillPrice <= 0 {
		return Trade{}, false
	}
	value := qty * fillPrice
	fee := value * cfg.TransactionCost
	*cash -= value + fee
	h.qty += qty
	h.costBasis += value + fee
	return Trade{
		Date:     date,
		Asset:    asset,
		Action:   "buy",
		Price:    fillPrice,
		Quantity: qty,
		Value:    value,
	}, true
}

// sellFill 以 price*(1-slippage) 成交，手续费从收入中扣除；
// PnL = 净收入 − 按数量比例摊销的持仓成本。
func sellFill(cfg Config, date time.Time, asset string, marketPrice float64, h *holding, qty float64, cash *float64) Trade {
	fillPrice := marketPrice * (1 - cfg.Slippage)
	value := qty * fillPrice
	fee := value * cfg.TransactionCost
	proceeds := value - fee
	portionCost := h.costBasis * qty / h.qty
	pnl := proceeds - portionCost

	*cash += proceeds
	h.qty -= qty
	h.costBasis -= portionCost

	return Trade{
		Date:     date,
		Asset:    asset,
		Action:   "sell",
		Price:    fillPrice,
		Quantity: qty,
		Value:    value,
		PnL:      pnl,
	}
}

// periodsPerYear 把再平衡频率映射为年化因子，供资金曲线收益统计使用。
func periodsPerYear(frequency string) float64 {
	switch frequency {
	case FrequencyWeekly:
		return 52
	case FrequencyMonthly:
		return 12
	default:
		return risk.DefaultPeriodsPerYear
	}
}

// summarize 由资金曲线与成交流水推导最终绩效指标。
// 夏普与最大回撤通过风险引擎在资金曲线的期间收益上计算。
func summarize(cfg Config, equityCurve []EquityPoint, trades []Trade) Result {
	res := Result{
		EquityCurve: equityCurve,
		Trades:      trades,
		NumTrades:   len(trades),
	}

	finalEquity := equityCurve[len(equityCurve)-1].Value
	res.TotalReturn = (finalEquity/cfg.InitialCapital - 1) * 100

	years := cfg.EndDate.Sub(cfg.StartDate).Hours() / 24 / 365.25
	if years > 0 && finalEquity > 0 {
		res.AnnualizedReturn = (math.Pow(finalEquity/cfg.InitialCapital, 1/years) - 1) * 100
	} else {
		res.AnnualizedReturn = res.TotalReturn
	}

	values := make([]float64, len(equityCurve))
	for i, p := range equityCurve {
		values[i] = p.Value
	}
	if rets, err := risk.Returns(values, risk.ReturnSimple); err == nil {
		res.SharpeRatio = risk.SharpeRatio(rets, 0, periodsPerYear(cfg.RebalanceFrequency))
	}
	res.MaxDrawdown = risk.MaxDrawdown(values).MaxDrawdown * 100

	wins := 0
	closed := 0
	winSum := 0.0
	lossSum := 0.0
	for _, t := range trades {
		if t.Action != "sell" {
			continue
		}
		closed++
		if t.PnL > 0 {
			wins++
			winSum += t.PnL
		} else {
			lossSum += -t.PnL
		}
	}
	if closed > 0 {
		res.WinRate = float64(wins) / float64(closed)
	}
	if lossSum > 0 {
		res.ProfitFactor = winSum / lossSum
	}
	return res
}
