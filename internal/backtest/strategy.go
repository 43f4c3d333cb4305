package backtest

import (
	"strings"
	"sync"

	talib "github.com/markcheno/go-talib"
)

// SignalFunc 在每个再平衡边界消费截至当前的价格历史，给出目标仓位权重
// [-1,1]（负数代表做空，当前模拟器不支持做空，负值会被钳到 0），
// ok=false 表示维持现有仓位不变。
type SignalFunc func(history []float64) (weight float64, ok bool)

var (
	strategyMu sync.RWMutex
	strategies = map[string]SignalFunc{}
)

// RegisterStrategy 注册信号函数，自定义策略（strategy_type=custom）
// 需由调用方在 Validate 前注册。
func RegisterStrategy(name string, fn SignalFunc) {
	strategyMu.Lock()
	defer strategyMu.Unlock()
	strategies[strings.ToLower(strings.TrimSpace(name))] = fn
}

// Registered 判断 strategy_type 是否已有信号函数。
func Registered(name string) bool {
	strategyMu.RLock()
	defer strategyMu.RUnlock()
	_, ok := strategies[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

func signalFor(name string) (SignalFunc, bool) {
	strategyMu.RLock()
	defer strategyMu.RUnlock()
	fn, ok := strategies[strings.ToLower(strings.TrimSpace(name))]
	return fn, ok
}

// 内置策略的回看窗口。
const (
	momentumLookback = 20
	rsiPeriod        = 14
	breakoutLookback = 20
)

func init() {
	RegisterStrategy("momentum", momentumSignal)
	RegisterStrategy("mean_reversion", meanReversionSignal)
	RegisterStrategy("breakout", breakoutSignal)
}

// momentumSignal：近 20 期收益为正则满仓，否则空仓。
func momentumSignal(history []float64) (float64, bool) {
	if len(history) <= momentumLookback {
		return 0, false
	}
	roc := talib.Roc(history, momentumLookback)
	if roc[len(roc)-1] > 0 {
		return 1, true
	}
	return 0, true
}

// meanReversionSignal：RSI(14) 低于 30 买入、高于 70 清仓，中间不动。
func meanReversionSignal(history []float64) (float64, bool) {
	if len(history) <= rsiPeriod {
		return 0, false
	}
	rsi := talib.Rsi(history, rsiPeriod)
	latest := rsi[len(rsi)-1]
	switch {
	case latest < 30:
		return 1, true
	case latest > 70:
		return 0, true
	default:
		return 0, false
	}
}

// breakoutSignal：突破前 20 期最高价买入，跌破前 20 期最低价清仓。
func breakoutSignal(history []float64) (float64, bool) {
	if len(history) <= breakoutLookback {
		return 0, false
	}
	prior := history[:len(history)-1]
	highs := talib.Max(prior, breakoutLookback)
	lows := talib.Min(prior, breakoutLookback)
	cur := history[len(history)-1]
	switch {
	case cur > highs[len(highs)-1]:
		return 1, true
	case cur < lows[len(lows)-1]:
		return 0, true
	default:
		return 0, false
	}
}
