package backtest

import "time"

// Trade 是追加式成交记录。PnL 仅在平仓 sell 上填充，等于扣除
// 手续费与滑点后的净收入减去按均价摊销的持仓成本。
type Trade struct {
	Date     time.Time `json:"date"`
	Asset    string    `json:"asset"`
	Action   string    `json:"action"` // buy/sell
	Price    float64   `json:"price"`
	Quantity float64   `json:"quantity"`
	Value    float64   `json:"value"`
	PnL      float64   `json:"pnl,omitempty"`
}

// EquityPoint 是每个再平衡边界的组合市值。
type EquityPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Result 是一次完成的模拟产出，不可变。
// total_return / annualized_return / max_drawdown 为百分比，
// win_rate 为平仓交易中盈利交易的占比 [0,1]。
type Result struct {
	TotalReturn      float64       `json:"total_return"`
	AnnualizedReturn float64       `json:"annualized_return"`
	SharpeRatio      float64       `json:"sharpe_ratio"`
	MaxDrawdown      float64       `json:"max_drawdown"`
	WinRate          float64       `json:"win_rate"`
	ProfitFactor     float64       `json:"profit_factor"`
	NumTrades        int           `json:"num_trades"`
	EquityCurve      []EquityPoint `json:"equity_curve"`
	Trades           []Trade       `json:"trades"`
}
