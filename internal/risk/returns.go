package risk

import (
	"errors"
	"math"
)

var (
	// ErrInsufficientData 表示序列长度不足以计算请求的统计量。
	ErrInsufficientData = errors.New("risk: insufficient data")
	// ErrLengthMismatch 表示资产与基准收益序列长度不一致。
	ErrLengthMismatch = errors.New("risk: series length mismatch")
)

// ReturnKind 指定收益率的计算方式。
type ReturnKind string

const (
	ReturnSimple ReturnKind = "simple"
	ReturnLog    ReturnKind = "log"
)

// Returns 由价格序列计算收益率序列，长度恒为 len(prices)-1。
// 风险统计默认使用对数收益。
func Returns(prices []float64, kind ReturnKind) ([]float64, error) {
	if len(prices) < 2 {
		return nil, ErrInsufficientData
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if kind == ReturnSimple {
			out = append(out, (prices[i]-prices[i-1])/prices[i-1])
		} else {
			out = append(out, math.Log(prices[i]/prices[i-1]))
		}
	}
	return out, nil
}

// mean 返回算术平均值，空序列返回 0。
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// variance 返回总体方差（除以 N，而非 N-1）。全部统计量保持同一口径。
func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return sum / float64(len(xs))
}

func stdDev(xs []float64) float64 {
	return math.Sqrt(variance(xs))
}
