package risk

// Drawdown 描述一段价格序列的最大回撤及发生位置。
type Drawdown struct {
	MaxDrawdown float64 `json:"max_drawdown"` // 回撤比例 [0,1]
	PeakIndex   int     `json:"peak_index"`
	TroughIndex int     `json:"trough_index"`
	Duration    int     `json:"duration"`
}

// MaxDrawdown 采用运行峰值算法：跟踪迄今最高价，在每个点计算
// (peak-price)/peak，记录最大值及对应的峰谷下标。
// 空序列或单点序列返回全零。
func MaxDrawdown(prices []float64) Drawdown {
	if len(prices) < 2 {
		return Drawdown{}
	}
	var dd Drawdown
	currentPeak := prices[0]
	currentPeakIdx := 0
	for i := 1; i < len(prices); i++ {
		if prices[i] > currentPeak {
			currentPeak = prices[i]
			currentPeakIdx = i
		}
		drawdown := (currentPeak - prices[i]) / currentPeak
		if drawdown > dd.MaxDrawdown {
			dd.MaxDrawdown = drawdown
			dd.PeakIndex = currentPeakIdx
			dd.TroughIndex = i
		}
	}
	dd.Duration = dd.TroughIndex - dd.PeakIndex
	return dd
}
