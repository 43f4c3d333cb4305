package risk

import (
	"math"
	"sort"
)

// VaRMethod 指定 VaR 的估计方式。
type VaRMethod string

const (
	VaRHistorical VaRMethod = "historical"
	VaRParametric VaRMethod = "parametric"
)

// ValueAtRisk 返回给定置信水平下的在险价值（正数表示损失幅度）。
//
// historical 取经验分位数：第 floor((1-confidence)*n) 小的收益取负；
// parametric 用均值/标准差 z 值近似，且仅支持固定 z：95% 用 1.645，
// 其余置信水平一律用 2.326（99%）。这是已知限制，调用方若需其他
// 置信水平应使用 historical。空输入返回 0。
func ValueAtRisk(returns []float64, confidenceLevel float64, method VaRMethod) float64 {
	if len(returns) == 0 {
		return 0
	}
	if method == VaRParametric {
		zScore := 2.326
		if confidenceLevel == 0.95 {
			zScore = 1.645
		}
		return -(mean(returns) - zScore*stdDev(returns))
	}
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)
	idx := int(math.Floor((1 - confidenceLevel) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return -sorted[idx]
}

// ExpectedShortfall 返回尾部均值损失：对所有不高于 -VaR 的收益取均值再取负。
// 尾部为空时退化为 VaR 本身，空输入返回 0。
func ExpectedShortfall(returns []float64, confidenceLevel float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	varValue := ValueAtRisk(returns, confidenceLevel, VaRHistorical)
	cutoff := -varValue
	sum := 0.0
	count := 0
	for _, r := range returns {
		if r <= cutoff {
			sum += r
			count++
		}
	}
	if count == 0 {
		return varValue
	}
	return -sum / float64(count)
}
