package backtest

import (
	"fmt"
	"time"
)

const (
	RunStatusPending = "pending"
	RunStatusRunning = "running"
	RunStatusDone    = "done"
	RunStatusFailed  = "failed"
)

// Run 表示一次回测任务及其生命周期状态。
// 状态机：pending → running → done | failed；failed 的 run
// 不携带 Result，半成品状态不会对外暴露。
type Run struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Config      Config    `json:"config"`
	Result      *Result   `json:"result,omitempty"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// RunRequest 为 HTTP 提交使用，日期接受 2006-01-02 或 RFC3339。
type RunRequest struct {
	StrategyType       string   `json:"strategy_type" binding:"required"`
	Assets             []string `json:"assets" binding:"required"`
	StartDate          string   `json:"start_date" binding:"required"`
	EndDate            string   `json:"end_date" binding:"required"`
	InitialCapital     float64  `json:"initial_capital"`
	PositionSize       float64  `json:"position_size"`
	RebalanceFrequency string   `json:"rebalance_frequency"`
	TransactionCost    float64  `json:"transaction_cost"`
	Slippage           float64  `json:"slippage"`
	StopLoss           float64  `json:"stop_loss"`
	TakeProfit         float64  `json:"take_profit"`
}

// ToConfig 填充缺省值并转换为不可变的 Config。
func (r RunRequest) ToConfig() (Config, error) {
	start, err := parseDate(r.StartDate)
	if err != nil {
		return Config{}, fmt.Errorf("%w: start_date 无效: %v", ErrInvalidConfig, err)
	}
	end, err := parseDate(r.EndDate)
	if err != nil {
		return Config{}, fmt.Errorf("%w: end_date 无效: %v", ErrInvalidConfig, err)
	}
	cfg := Config{
		StrategyType:       r.StrategyType,
		Assets:             r.Assets,
		StartDate:          start,
		EndDate:            end,
		InitialCapital:     r.InitialCapital,
		PositionSize:       r.PositionSize,
		RebalanceFrequency: r.RebalanceFrequency,
		TransactionCost:    r.TransactionCost,
		Slippage:           r.Slippage,
		StopLoss:           r.StopLoss,
		TakeProfit:         r.TakeProfit,
	}
	if cfg.InitialCapital == 0 {
		cfg.InitialCapital = 10000
	}
	if cfg.PositionSize == 0 {
		cfg.PositionSize = 1
	}
	if cfg.RebalanceFrequency == "" {
		cfg.RebalanceFrequency = FrequencyDaily
	}
	return cfg, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
