package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterStrategy(t *testing.T) {
	assert.True(t, Registered("momentum"))
	assert.True(t, Registered("mean_reversion"))
	assert.True(t, Registered("breakout"))
	assert.False(t, Registered("nope"))

	// 名称匹配不区分大小写与首尾空白
	RegisterStrategy("  My_Custom ", func([]float64) (float64, bool) { return 0, false })
	assert.True(t, Registered("my_custom"))
	assert.True(t, Registered("MY_CUSTOM"))
}

func TestMomentumSignal(t *testing.T) {
	t.Run("insufficient history", func(t *testing.T) {
		_, ok := momentumSignal(rampPrices(100, 1, momentumLookback))
		assert.False(t, ok)
	})

	t.Run("rising goes long", func(t *testing.T) {
		w, ok := momentumSignal(rampPrices(100, 1, 40))
		require.True(t, ok)
		assert.Equal(t, 1.0, w)
	})

	t.Run("falling goes flat", func(t *testing.T) {
		w, ok := momentumSignal(rampPrices(100, -1, 40))
		require.True(t, ok)
		assert.Equal(t, 0.0, w)
	})
}

func TestMeanReversionSignal(t *testing.T) {
	t.Run("insufficient history", func(t *testing.T) {
		_, ok := meanReversionSignal(rampPrices(100, 1, rsiPeriod))
		assert.False(t, ok)
	})

	t.Run("oversold buys", func(t *testing.T) {
		// 连续下跌 → RSI 趋近 0
		w, ok := meanReversionSignal(rampPrices(100, -1, 30))
		require.True(t, ok)
		assert.Equal(t, 1.0, w)
	})

	t.Run("overbought exits", func(t *testing.T) {
		w, ok := meanReversionSignal(rampPrices(100, 1, 30))
		require.True(t, ok)
		assert.Equal(t, 0.0, w)
	})
}

func TestBreakoutSignal(t *testing.T) {
	t.Run("insufficient history", func(t *testing.T) {
		_, ok := breakoutSignal(rampPrices(100, 1, breakoutLookback))
		assert.False(t, ok)
	})

	t.Run("new high buys", func(t *testing.T) {
		prices := rampPrices(100, 0, 30)
		prices[len(prices)-1] = 120
		w, ok := breakoutSignal(prices)
		require.True(t, ok)
		assert.Equal(t, 1.0, w)
	})

	t.Run("new low exits", func(t *testing.T) {
		prices := rampPrices(100, 0, 30)
		prices[len(prices)-1] = 80
		w, ok := breakoutSignal(prices)
		require.True(t, ok)
		assert.Equal(t, 0.0, w)
	})

	t.Run("inside range holds", func(t *testing.T) {
		prices := rampPrices(100, 0, 30)
		prices[10] = 120
		prices[12] = 80
		_, ok := breakoutSignal(prices)
		assert.False(t, ok)
	})
}
