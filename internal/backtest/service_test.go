package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinsight/internal/market"
)

func newTestService(t *testing.T) (*Service, *market.Store) {
	t.Helper()
	prices, err := market.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = prices.Close() })

	svc, err := NewService(ServiceConfig{
		Prices:     prices,
		Results:    newTestStore(t),
		WarmupDays: 30,
	})
	require.NoError(t, err)
	return svc, prices
}

func seedPrices(t *testing.T, store *market.Store, symbol string, start time.Time, prices []float64) {
	t.Helper()
	_, err := store.InsertPrices(context.Background(), symbol, dailySeries(start, prices))
	require.NoError(t, err)
}

func TestServiceStartRun(t *testing.T) {
	svc, prices := newTestService(t)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// 含 warmup 段在内的完整历史
	seedPrices(t, prices, "BTC", start.AddDate(0, 0, -40), rampPrices(100, 1, 120))

	run, err := svc.StartRun(RunRequest{
		StrategyType: "momentum",
		Assets:       []string{"BTC"},
		StartDate:    "2024-01-01",
		EndDate:      "2024-03-01",
	})
	require.NoError(t, err)
	assert.Equal(t, RunStatusPending, run.Status)
	assert.NotEmpty(t, run.ID)

	done, err := svc.WaitIdle(run.ID, 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, RunStatusDone, done.Status)
	require.NotNil(t, done.Result)
	assert.NotEmpty(t, done.Result.EquityCurve)
	// 单调上涨行情下动量策略应当盈利
	assert.Positive(t, done.Result.TotalReturn)
}

func TestServiceStartRunValidatesFirst(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.StartRun(RunRequest{
		StrategyType: "no_such_strategy",
		Assets:       []string{"BTC"},
		StartDate:    "2024-01-01",
		EndDate:      "2024-03-01",
	})
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestServiceRunFailsWithoutData(t *testing.T) {
	svc, _ := newTestService(t)

	run, err := svc.StartRun(RunRequest{
		StrategyType: "momentum",
		Assets:       []string{"ETH"},
		StartDate:    "2024-01-01",
		EndDate:      "2024-03-01",
	})
	require.NoError(t, err)

	done, err := svc.WaitIdle(run.ID, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, done.Status)
	assert.NotEmpty(t, done.Message)
	assert.Nil(t, done.Result)
}
