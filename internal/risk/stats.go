package risk

import "math"

// DefaultPeriodsPerYear 为默认年化因子（按交易日计）。
const DefaultPeriodsPerYear = 252

// Volatility 返回年化波动率：总体标准差 × sqrt(periodsPerYear)。
// 空序列或单元素序列返回 0。
func Volatility(returns []float64, periodsPerYear float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	return stdDev(returns) * math.Sqrt(periodsPerYear)
}

// SharpeRatio 返回年化夏普比率。波动率为 0（含空输入）时返回 0，
// 不向调用方传播 NaN/Inf。
func SharpeRatio(returns []float64, riskFreeRate, periodsPerYear float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	annualized := mean(returns) * periodsPerYear
	vol := Volatility(returns, periodsPerYear)
	if vol == 0 {
		return 0
	}
	return (annualized - riskFreeRate) / vol
}

// SortinoRatio 返回年化索提诺比率。下行偏差只累计负收益的平方，
// 但分母使用全样本数量。无负收益且输入非空时返回 +Inf（显式哨兵）。
func SortinoRatio(returns []float64, riskFreeRate, periodsPerYear float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	annualized := mean(returns) * periodsPerYear

	negatives := 0
	downsideSum := 0.0
	for _, r := range returns {
		if r < 0 {
			negatives++
			downsideSum += r * r
		}
	}
	if negatives == 0 {
		return math.Inf(1)
	}
	downsideDev := math.Sqrt(downsideSum/float64(len(returns))) * math.Sqrt(periodsPerYear)
	if downsideDev == 0 {
		return 0
	}
	return (annualized - riskFreeRate) / downsideDev
}

// CalmarRatio 返回年化收益与最大回撤之比，最大回撤为 0 时返回 0。
func CalmarRatio(returns, prices []float64, periodsPerYear float64) float64 {
	dd := MaxDrawdown(prices)
	if dd.MaxDrawdown == 0 || len(returns) == 0 {
		return 0
	}
	annualized := mean(returns) * periodsPerYear
	return annualized / dd.MaxDrawdown
}

// Skewness 返回三阶标准化总体矩。空输入或零标准差返回 0。
func Skewness(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	m := mean(returns)
	sd := stdDev(returns)
	if sd == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range returns {
		z := (r - m) / sd
		sum += z * z * z
	}
	return sum / float64(len(returns))
}

// Kurtosis 返回超额峰度（四阶标准化总体矩减 3）。空输入或零标准差返回 0。
func Kurtosis(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	m := mean(returns)
	sd := stdDev(returns)
	if sd == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range returns {
		z := (r - m) / sd
		sum += z * z * z * z
	}
	return sum/float64(len(returns)) - 3
}
