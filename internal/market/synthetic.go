package market

import (
	"math"
	"math/rand"
	"time"
)

// SyntheticSpec 描述随机游走生成参数。相同 Seed 的输出完全可复现。
type SyntheticSpec struct {
	Points    int
	StartTime time.Time
	Step      time.Duration
	BasePrice float64
	Drift     float64 // 每期对数漂移
	Vol       float64 // 每期对数波动
	Seed      int64
}

// GenerateSeries 生成对数随机游走价格序列，供演示与测试在没有
// 真实数据源时使用。
func GenerateSeries(spec SyntheticSpec) Series {
	if spec.Points <= 0 {
		return nil
	}
	if spec.BasePrice <= 0 {
		spec.BasePrice = 100
	}
	if spec.Step <= 0 {
		spec.Step = 24 * time.Hour
	}
	if spec.StartTime.IsZero() {
		spec.StartTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	rng := rand.New(rand.NewSource(spec.Seed))
	series := make(Series, spec.Points)
	price := spec.BasePrice
	for i := 0; i < spec.Points; i++ {
		if i > 0 {
			price *= math.Exp(spec.Drift + spec.Vol*rng.NormFloat64())
		}
		series[i] = PricePoint{
			Timestamp: spec.StartTime.Add(time.Duration(i) * spec.Step).UnixMilli(),
			Price:     price,
			Volume:    1000 + 500*rng.Float64(),
		}
	}
	return series
}
