package market

// PricePoint 是价格序列中的单个采样点（毫秒时间戳）。
type PricePoint struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
}

// Series 是按时间戳严格递增排列的价格序列。
// 序列一经产出视为不可变，消费方只读。
type Series []PricePoint

// Prices 抽出价格列，供风险统计使用。
func (s Series) Prices() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Price
	}
	return out
}

// Covers 判断序列是否完整覆盖 [start, end]（毫秒）。
func (s Series) Covers(start, end int64) bool {
	if len(s) == 0 {
		return false
	}
	return s[0].Timestamp <= start && s[len(s)-1].Timestamp >= end
}

// Slice 返回落在 [start, end] 内的子序列（共享底层数组）。
func (s Series) Slice(start, end int64) Series {
	lo := 0
	for lo < len(s) && s[lo].Timestamp < start {
		lo++
	}
	hi := lo
	for hi < len(s) && s[hi].Timestamp <= end {
		hi++
	}
	return s[lo:hi]
}

// Normalize 剔除非法采样（非递增时间戳、非正价格）并返回结果。
// 导入层在入库前调用；分析核心假定输入已经有效。
func Normalize(points []PricePoint) Series {
	out := points[:0]
	var lastTS int64 = -1
	for _, p := range points {
		if p.Price <= 0 || p.Timestamp <= lastTS {
			continue
		}
		out = append(out, p)
		lastTS = p.Timestamp
	}
	return Series(out)
}
