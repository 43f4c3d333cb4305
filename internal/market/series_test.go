package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesSlice(t *testing.T) {
	s := Series{
		{Timestamp: 100, Price: 1},
		{Timestamp: 200, Price: 2},
		{Timestamp: 300, Price: 3},
		{Timestamp: 400, Price: 4},
	}

	t.Run("inner range", func(t *testing.T) {
		got := s.Slice(150, 350)
		require.Len(t, got, 2)
		assert.Equal(t, int64(200), got[0].Timestamp)
		assert.Equal(t, int64(300), got[1].Timestamp)
	})

	t.Run("covers", func(t *testing.T) {
		assert.True(t, s.Covers(100, 400))
		assert.True(t, s.Covers(150, 350))
		assert.False(t, s.Covers(50, 400))
		assert.False(t, s.Covers(100, 500))
		assert.False(t, Series{}.Covers(0, 1))
	})
}

func TestNormalize(t *testing.T) {
	points := []PricePoint{
		{Timestamp: 100, Price: 1},
		{Timestamp: 100, Price: 2},  // 重复时间戳
		{Timestamp: 90, Price: 3},   // 时间倒流
		{Timestamp: 200, Price: 0},  // 非正价格
		{Timestamp: 300, Price: 4},
	}
	got := Normalize(points)
	require.Len(t, got, 2)
	assert.Equal(t, int64(100), got[0].Timestamp)
	assert.Equal(t, int64(300), got[1].Timestamp)
}

func TestParseMarketChart(t *testing.T) {
	t.Run("prices with volumes", func(t *testing.T) {
		payload := []byte(`{
			"prices": [[1700000000000, 42000.5], [1700086400000, 42850.0]],
			"total_volumes": [[1700000000000, 1.5e9], [1700086400000, 1.2e9]]
		}`)
		series, err := ParseMarketChart(payload)
		require.NoError(t, err)
		require.Len(t, series, 2)
		assert.Equal(t, 42000.5, series[0].Price)
		assert.Equal(t, 1.5e9, series[0].Volume)
	})

	t.Run("missing volumes", func(t *testing.T) {
		series, err := ParseMarketChart([]byte(`{"prices": [[1, 10.0], [2, 11.0]]}`))
		require.NoError(t, err)
		require.Len(t, series, 2)
		assert.Equal(t, 0.0, series[0].Volume)
	})

	t.Run("invalid payload", func(t *testing.T) {
		_, err := ParseMarketChart([]byte(`{"prices": 1}`))
		assert.Error(t, err)
		_, err = ParseMarketChart([]byte(`not json`))
		assert.Error(t, err)
	})
}

func TestGenerateSeries(t *testing.T) {
	spec := SyntheticSpec{
		Points:    100,
		StartTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Step:      24 * time.Hour,
		BasePrice: 50000,
		Drift:     0.001,
		Vol:       0.02,
		Seed:      7,
	}

	a := GenerateSeries(spec)
	b := GenerateSeries(spec)
	require.Len(t, a, 100)
	assert.Equal(t, a, b, "相同 seed 应当可复现")
	assert.Equal(t, 50000.0, a[0].Price)
	for i := 1; i < len(a); i++ {
		assert.Greater(t, a[i].Timestamp, a[i-1].Timestamp)
		assert.Greater(t, a[i].Price, 0.0)
	}
}
