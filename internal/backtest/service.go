package backtest

import (
	"context"
	"fmt"
	"time"

	"coinsight/internal/logger"
	"coinsight/internal/market"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// ServiceConfig 描述回测服务的依赖与并发上限。
type ServiceConfig struct {
	Prices        *market.Store
	Results       *ResultStore
	MaxConcurrent int64
	WarmupDays    int
}

// Service 负责接收回测请求、装载历史数据并在后台执行模拟。
// 单个 run 内部严格串行；run 之间由信号量限制并发。
type Service struct {
	prices  *market.Store
	results *ResultStore
	sem     *semaphore.Weighted
	warmup  int
	baseCtx context.Context
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Prices == nil {
		return nil, fmt.Errorf("price store 不能为空")
	}
	if cfg.Results == nil {
		return nil, fmt.Errorf("result store 不能为空")
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	warmup := cfg.WarmupDays
	if warmup <= 0 {
		warmup = 90
	}
	return &Service{
		prices:  cfg.Prices,
		results: cfg.Results,
		sem:     semaphore.NewWeighted(maxConcurrent),
		warmup:  warmup,
		baseCtx: context.Background(),
	}, nil
}

// SetContext 绑定服务生命周期上下文（用于优雅退出）。
func (s *Service) SetContext(ctx context.Context) {
	if ctx != nil {
		s.baseCtx = ctx
	}
}

// StartRun 校验配置、落盘 pending run 并立即返回，模拟在后台执行。
// 配置错误在任何模拟工作开始前暴露（fail fast）。
func (s *Service) StartRun(req RunRequest) (Run, error) {
	cfg, err := req.ToConfig()
	if err != nil {
		return Run{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Run{}, err
	}
	run := Run{
		ID:     uuid.NewString(),
		Status: RunStatusPending,
		Config: cfg,
	}
	if err := s.results.InsertRun(s.baseCtx, run); err != nil {
		return Run{}, err
	}
	go s.runLoop(run.ID, cfg)
	return run, nil
}

func (s *Service) runLoop(runID string, cfg Config) {
	ctx := s.baseCtx
	if err := s.sem.Acquire(ctx, 1); err != nil {
		_ = s.results.UpdateRunStatus(ctx, runID, RunStatusFailed, err.Error())
		return
	}
	defer s.sem.Release(1)

	_ = s.results.UpdateRunStatus(ctx, runID, RunStatusRunning, "装载历史数据…")
	series, err := s.loadSeries(ctx, cfg)
	if err != nil {
		logger.Warnf("[backtest] run %s 失败: %v", runID, err)
		_ = s.results.UpdateRunStatus(ctx, runID, RunStatusFailed, err.Error())
		return
	}

	result, err := Simulate(cfg, series)
	if err != nil {
		logger.Warnf("[backtest] run %s 失败: %v", runID, err)
		_ = s.results.UpdateRunStatus(ctx, runID, RunStatusFailed, err.Error())
		return
	}
	if err := s.results.CompleteRun(ctx, runID, result); err != nil {
		logger.Errorf("[backtest] run %s 结果落盘失败: %v", runID, err)
		_ = s.results.UpdateRunStatus(ctx, runID, RunStatusFailed, err.Error())
		return
	}
	logger.Infof("[backtest] run %s 完成: return=%.2f%% trades=%d", runID, result.TotalReturn, result.NumTrades)
}

// loadSeries 为每个资产装载 [start-warmup, end] 的序列，warmup 段
// 供策略信号回看使用，覆盖校验由模拟器完成。
func (s *Service) loadSeries(ctx context.Context, cfg Config) (map[string]market.Series, error) {
	warmStart := cfg.StartDate.AddDate(0, 0, -s.warmup).UnixMilli()
	endMs := cfg.EndDate.UnixMilli()
	out := make(map[string]market.Series, len(cfg.Assets))
	for _, asset := range cfg.Assets {
		series, err := s.prices.Range(ctx, asset, warmStart, endMs)
		if err != nil {
			return nil, err
		}
		if len(series) == 0 {
			return nil, fmt.Errorf("%w: %s 无历史数据", ErrInsufficientHistory, asset)
		}
		out[asset] = series
	}
	return out, nil
}

// WaitIdle 供测试用：轮询直到 run 离开运行态或超时。
func (s *Service) WaitIdle(runID string, timeout time.Duration) (Run, error) {
	deadline := time.Now().Add(timeout)
	for {
		run, err := s.results.GetRun(s.baseCtx, runID)
		if err != nil {
			return Run{}, err
		}
		if run.Status == RunStatusDone || run.Status == RunStatusFailed {
			return run, nil
		}
		if time.Now().After(deadline) {
			return run, fmt.Errorf("run %s 超时未完成", runID)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
