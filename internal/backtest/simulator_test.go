package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinsight/internal/market"
	"coinsight/internal/risk"
)

func dailySeries(start time.Time, prices []float64) market.Series {
	s := make(market.Series, len(prices))
	for i, p := range prices {
		s[i] = market.PricePoint{
			Timestamp: start.AddDate(0, 0, i).UnixMilli(),
			Price:     p,
		}
	}
	return s
}

func rampPrices(start float64, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func baseConfig(strategy string, start, end time.Time) Config {
	return Config{
		StrategyType:       strategy,
		Assets:             []string{"BTC"},
		StartDate:          start,
		EndDate:            end,
		InitialCapital:     10000,
		PositionSize:       1,
		RebalanceFrequency: FrequencyDaily,
	}
}

func TestSimulateBuyAndHold(t *testing.T) {
	RegisterStrategy("test_always_long", func(history []float64) (float64, bool) {
		return 1, true
	})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 30)
	prices := rampPrices(100, 2, 31)
	series := map[string]market.Series{"BTC": dailySeries(start, prices)}

	res, err := Simulate(baseConfig("test_always_long", start, end), series)
	require.NoError(t, err)

	// 零摩擦下首个边界满仓买入，之后目标仓位与持仓恒等，不再成交
	require.Equal(t, 1, res.NumTrades)
	require.Equal(t, "buy", res.Trades[0].Action)
	assert.Zero(t, res.WinRate)

	qty := res.Trades[0].Quantity
	finalPrice := prices[len(prices)-1]
	final := res.EquityCurve[len(res.EquityCurve)-1].Value
	assert.InDelta(t, qty*finalPrice, final, 1e-6)
	assert.InDelta(t, (final/10000-1)*100, res.TotalReturn, 1e-9)
	assert.True(t, res.MaxDrawdown == 0)
}

func TestSimulateSharpeMatchesRiskEngine(t *testing.T) {
	RegisterStrategy("test_always_long2", func(history []float64) (float64, bool) {
		return 1, true
	})

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 20)
	prices := []float64{100, 104, 99, 103, 101, 108, 105, 110, 107, 112,
		109, 115, 111, 118, 114, 120, 117, 123, 119, 125, 122}
	series := map[string]market.Series{"BTC": dailySeries(start, prices)}

	res, err := Simulate(baseConfig("test_always_long2", start, end), series)
	require.NoError(t, err)

	values := make([]float64, len(res.EquityCurve))
	for i, p := range res.EquityCurve {
		values[i] = p.Value
	}
	rets, err := risk.Returns(values, risk.ReturnSimple)
	require.NoError(t, err)
	want := risk.SharpeRatio(rets, 0, risk.DefaultPeriodsPerYear)
	assert.InDelta(t, want, res.SharpeRatio, 1e-12)
}

func TestSimulateStopLoss(t *testing.T) {
	RegisterStrategy("test_sl_long", func(history []float64) (float64, bool) {
		return 1, true
	})

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 5)
	// 首日买入后连续下跌，跌幅超过 10% 触发止损
	prices := []float64{100, 98, 85, 80, 78, 75}
	series := map[string]market.Series{"BTC": dailySeries(start, prices)}

	cfg := baseConfig("test_sl_long", start, end)
	cfg.StopLoss = 0.10

	res, err := Simulate(cfg, series)
	require.NoError(t, err)

	var sells []Trade
	for _, tr := range res.Trades {
		if tr.Action == "sell" {
			sells = append(sells, tr)
		}
	}
	require.NotEmpty(t, sells)
	assert.Negative(t, sells[0].PnL)
	assert.Zero(t, res.WinRate)
}

func TestSimulateTakeProfit(t *testing.T) {
	RegisterStrategy("test_tp_long", func(history []float64) (float64, bool) {
		return 1, true
	})

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 4)
	prices := []float64{100, 110, 130, 135, 140}
	series := map[string]market.Series{"BTC": dailySeries(start, prices)}

	cfg := baseConfig("test_tp_long", start, end)
	cfg.TakeProfit = 0.20

	res, err := Simulate(cfg, series)
	require.NoError(t, err)

	var firstSell *Trade
	for i := range res.Trades {
		if res.Trades[i].Action == "sell" {
			firstSell = &res.Trades[i]
			break
		}
	}
	require.NotNil(t, firstSell)
	assert.Positive(t, firstSell.PnL)
	assert.Equal(t, 1.0, res.WinRate)
}

func TestSimulateFrictionsReduceReturn(t *testing.T) {
	RegisterStrategy("test_friction_long", func(history []float64) (float64, bool) {
		return 1, true
	})

	start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 10)
	prices := rampPrices(100, 1, 11)
	series := map[string]market.Series{"BTC": dailySeries(start, prices)}

	free, err := Simulate(baseConfig("test_friction_long", start, end), series)
	require.NoError(t, err)

	cfg := baseConfig("test_friction_long", start, end)
	cfg.TransactionCost = 0.002
	cfg.Slippage = 0.001
	costly, err := Simulate(cfg, series)
	require.NoError(t, err)

	assert.Less(t, costly.TotalReturn, free.TotalReturn)
}

func TestSimulateNegativeWeightClamped(t *testing.T) {
	RegisterStrategy("test_short_signal", func(history []float64) (float64, bool) {
		return -1, true
	})

	start := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 5)
	series := map[string]market.Series{"BTC": dailySeries(start, rampPrices(100, -2, 6))}

	res, err := Simulate(baseConfig("test_short_signal", start, end), series)
	require.NoError(t, err)
	assert.Zero(t, res.NumTrades)
	assert.Zero(t, res.TotalReturn)
}

func TestSimulateInsufficientHistory(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 30)
	// 数据只覆盖到第 10 天
	series := map[string]market.Series{"BTC": dailySeries(start, rampPrices(100, 1, 10))}

	_, err := Simulate(baseConfig("momentum", start, end), series)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestSimulatePanicRecovered(t *testing.T) {
	RegisterStrategy("test_panics", func(history []float64) (float64, bool) {
		panic("boom")
	})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 5)
	series := map[string]market.Series{"BTC": dailySeries(start, rampPrices(100, 1, 6))}

	_, err := Simulate(baseConfig("test_panics", start, end), series)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signal panic")
}

func TestConfigValidate(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	valid := baseConfig("momentum", start, start.AddDate(0, 0, 10))
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
		target error
	}{
		{"start after end", func(c *Config) { c.EndDate = c.StartDate }, ErrInvalidConfig},
		{"zero capital", func(c *Config) { c.InitialCapital = 0 }, ErrInvalidConfig},
		{"position size over 1", func(c *Config) { c.PositionSize = 1.5 }, ErrInvalidConfig},
		{"no assets", func(c *Config) { c.Assets = nil }, ErrInvalidConfig},
		{"negative cost", func(c *Config) { c.TransactionCost = -0.01 }, ErrInvalidConfig},
		{"negative slippage", func(c *Config) { c.Slippage = -0.01 }, ErrInvalidConfig},
		{"stop loss over 1", func(c *Config) { c.StopLoss = 1.5 }, ErrInvalidConfig},
		{"bad frequency", func(c *Config) { c.RebalanceFrequency = "hourly" }, ErrInvalidConfig},
		{"unknown strategy", func(c *Config) { c.StrategyType = "no_such" }, ErrUnknownStrategy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tc.target)
		})
	}
}

func TestBoundaries(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("daily inclusive", func(t *testing.T) {
		b := boundaries(start, start.AddDate(0, 0, 9), FrequencyDaily)
		require.Len(t, b, 10)
		assert.Equal(t, start, b[0])
		assert.Equal(t, start.AddDate(0, 0, 9), b[9])
	})

	t.Run("weekly step", func(t *testing.T) {
		b := boundaries(start, start.AddDate(0, 0, 21), FrequencyWeekly)
		require.Len(t, b, 4)
		assert.Equal(t, start.AddDate(0, 0, 7), b[1])
	})

	t.Run("monthly step", func(t *testing.T) {
		b := boundaries(start, start.AddDate(0, 3, 0), FrequencyMonthly)
		require.Len(t, b, 4)
		assert.Equal(t, start.AddDate(0, 1, 0), b[1])
	})

	t.Run("strictly increasing", func(t *testing.T) {
		b := boundaries(start, start.AddDate(0, 2, 0), FrequencyWeekly)
		for i := 1; i < len(b); i++ {
			assert.True(t, b[i].After(b[i-1]))
		}
	})
}

func TestRunRequestToConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		req := RunRequest{
			StrategyType: "momentum",
			Assets:       []string{"BTC"},
			StartDate:    "2024-01-01",
			EndDate:      "2024-06-01",
		}
		cfg, err := req.ToConfig()
		require.NoError(t, err)
		assert.Equal(t, 10000.0, cfg.InitialCapital)
		assert.Equal(t, 1.0, cfg.PositionSize)
		assert.Equal(t, FrequencyDaily, cfg.RebalanceFrequency)
		require.NoError(t, cfg.Validate())
	})

	t.Run("rfc3339 dates", func(t *testing.T) {
		req := RunRequest{
			StrategyType: "momentum",
			Assets:       []string{"BTC"},
			StartDate:    "2024-01-01T00:00:00Z",
			EndDate:      "2024-06-01T00:00:00Z",
		}
		cfg, err := req.ToConfig()
		require.NoError(t, err)
		assert.Equal(t, 2024, cfg.StartDate.Year())
	})

	t.Run("bad date", func(t *testing.T) {
		req := RunRequest{StartDate: "01/02/2024", EndDate: "2024-06-01"}
		_, err := req.ToConfig()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}
