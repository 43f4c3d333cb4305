package backtest

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidConfig 表示策略配置不合法，模拟未开始即失败。
	ErrInvalidConfig = errors.New("backtest: invalid config")
	// ErrUnknownStrategy 表示 strategy_type 没有对应的已注册信号函数。
	ErrUnknownStrategy = errors.New("backtest: unknown strategy")
	// ErrInsufficientHistory 表示价格数据未覆盖回测区间。
	ErrInsufficientHistory = errors.New("backtest: insufficient history")
)

// 再平衡频率。
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Config 是一次回测的全部输入参数，模拟开始前完成校验，此后不可变。
// 字段名与前端既有协议保持一致。
type Config struct {
	StrategyType       string    `json:"strategy_type"`
	Assets             []string  `json:"assets"`
	StartDate          time.Time `json:"start_date"`
	EndDate            time.Time `json:"end_date"`
	InitialCapital     float64   `json:"initial_capital"`
	PositionSize       float64   `json:"position_size"`
	RebalanceFrequency string    `json:"rebalance_frequency"`
	TransactionCost    float64   `json:"transaction_cost"`
	Slippage           float64   `json:"slippage"`
	StopLoss           float64   `json:"stop_loss,omitempty"`   // (0,1]，0 表示不启用
	TakeProfit         float64   `json:"take_profit,omitempty"` // (0,1]，0 表示不启用
}

// Validate 做快速失败校验：配置错误一律在任何模拟工作开始前暴露。
func (c Config) Validate() error {
	if !c.StartDate.Before(c.EndDate) {
		return fmt.Errorf("%w: start_date 必须早于 end_date", ErrInvalidConfig)
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial_capital 必须大于 0", ErrInvalidConfig)
	}
	if c.PositionSize <= 0 || c.PositionSize > 1 {
		return fmt.Errorf("%w: position_size 必须在 (0,1]", ErrInvalidConfig)
	}
	if len(c.Assets) == 0 {
		return fmt.Errorf("%w: assets 不能为空", ErrInvalidConfig)
	}
	if c.TransactionCost < 0 {
		return fmt.Errorf("%w: transaction_cost 不能为负", ErrInvalidConfig)
	}
	if c.Slippage < 0 {
		return fmt.Errorf("%w: slippage 不能为负", ErrInvalidConfig)
	}
	if c.StopLoss < 0 || c.StopLoss > 1 {
		return fmt.Errorf("%w: stop_loss 必须在 (0,1]", ErrInvalidConfig)
	}
	if c.TakeProfit < 0 || c.TakeProfit > 1 {
		return fmt.Errorf("%w: take_profit 必须在 (0,1]", ErrInvalidConfig)
	}
	switch c.RebalanceFrequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
	default:
		return fmt.Errorf("%w: rebalance_frequency 必须是 daily/weekly/monthly", ErrInvalidConfig)
	}
	if !Registered(c.StrategyType) {
		return fmt.Errorf("%w: %s", ErrUnknownStrategy, c.StrategyType)
	}
	return nil
}

// boundaries 按再平衡频率展开 [start, end] 内的时间边界（含起点，
// 终点落在 end 之内），严格递增。
func boundaries(start, end time.Time, frequency string) []time.Time {
	var out []time.Time
	cur := start
	for !cur.After(end) {
		out = append(out, cur)
		switch frequency {
		case FrequencyWeekly:
			cur = cur.AddDate(0, 0, 7)
		case FrequencyMonthly:
			cur = cur.AddDate(0, 1, 0)
		default:
			cur = cur.AddDate(0, 0, 1)
		}
	}
	return out
}
