package risk

// Metrics 汇总单一收益序列的全套风险/绩效指标。
// 字段名与既有前端消费方保持一致，不可改动。
type Metrics struct {
	Volatility   float64 `json:"volatility"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
	SortinoRatio float64 `json:"sortino_ratio"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	CalmarRatio  float64 `json:"calmar_ratio"`
	Alpha        float64 `json:"alpha"`
	Beta         float64 `json:"beta"`
	RSquared     float64 `json:"r_squared"`
	Skewness     float64 `json:"skewness"`
	Kurtosis     float64 `json:"kurtosis"`
}

// Params 是 Compute 的入参。WindowSize 为年化因子，缺省 252。
type Params struct {
	Returns          []float64 `json:"returns"`
	BenchmarkReturns []float64 `json:"benchmark_returns,omitempty"`
	RiskFreeRate     float64   `json:"risk_free_rate"`
	WindowSize       float64   `json:"window_size"`
}

// Compute 由一条收益序列组装完整 Metrics。
//
// 回撤与卡玛比率基于由收益重建的合成价格路径（基点 100 逐期复利），
// 而非真实资产价格；因此与直接对真实价格调用 MaxDrawdown 的结果
// 可能不同，这是刻意保留的口径。
func Compute(p Params) Metrics {
	windowSize := p.WindowSize
	if windowSize <= 0 {
		windowSize = DefaultPeriodsPerYear
	}

	m := Metrics{
		Volatility:   Volatility(p.Returns, windowSize),
		SharpeRatio:  SharpeRatio(p.Returns, p.RiskFreeRate, windowSize),
		SortinoRatio: SortinoRatio(p.Returns, p.RiskFreeRate, windowSize),
		Skewness:     Skewness(p.Returns),
		Kurtosis:     Kurtosis(p.Returns),
	}

	prices := syntheticIndex(p.Returns)
	m.MaxDrawdown = MaxDrawdown(prices).MaxDrawdown
	m.CalmarRatio = CalmarRatio(p.Returns, prices, windowSize)

	if len(p.BenchmarkReturns) > 0 && len(p.BenchmarkReturns) == len(p.Returns) {
		reg, err := AlphaBeta(p.Returns, p.BenchmarkReturns, p.RiskFreeRate)
		if err == nil {
			m.Alpha = reg.Alpha
			m.Beta = reg.Beta
			m.RSquared = reg.RSquared
		}
	}
	return m
}

// syntheticIndex 把收益序列复利成基点 100 的指数路径，长度 len(returns)+1。
func syntheticIndex(returns []float64) []float64 {
	prices := make([]float64, len(returns)+1)
	prices[0] = 100
	for i, r := range returns {
		prices[i+1] = prices[i] * (1 + r)
	}
	return prices
}

// RollingWindow 对定长滑动窗口逐一应用 fn，窗口不足时返回空结果。
func RollingWindow(data []float64, windowSize int, fn func(window []float64) float64) []float64 {
	if windowSize <= 0 || len(data) < windowSize {
		return nil
	}
	out := make([]float64, 0, len(data)-windowSize+1)
	for i := windowSize - 1; i < len(data); i++ {
		out = append(out, fn(data[i-windowSize+1:i+1]))
	}
	return out
}
