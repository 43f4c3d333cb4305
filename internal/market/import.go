package market

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// ParseMarketChart 解析行情提供方的 market_chart JSON：
//
//	{"prices": [[ts,price],...], "total_volumes": [[ts,vol],...]}
//
// volumes 缺失时按 0 处理；返回前做 Normalize。
func ParseMarketChart(data []byte) (Series, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("market chart payload 不是合法 JSON")
	}
	prices := gjson.GetBytes(data, "prices")
	if !prices.Exists() || !prices.IsArray() {
		return nil, fmt.Errorf("market chart payload 缺少 prices 数组")
	}

	volumeByTS := make(map[int64]float64)
	gjson.GetBytes(data, "total_volumes").ForEach(func(_, row gjson.Result) bool {
		pair := row.Array()
		if len(pair) == 2 {
			volumeByTS[pair[0].Int()] = pair[1].Float()
		}
		return true
	})

	var points []PricePoint
	var badRows int
	prices.ForEach(func(_, row gjson.Result) bool {
		pair := row.Array()
		if len(pair) != 2 {
			badRows++
			return true
		}
		ts := pair[0].Int()
		points = append(points, PricePoint{
			Timestamp: ts,
			Price:     pair[1].Float(),
			Volume:    volumeByTS[ts],
		})
		return true
	})
	if badRows > 0 && len(points) == 0 {
		return nil, fmt.Errorf("market chart payload 无可用行情行")
	}
	return Normalize(points), nil
}
