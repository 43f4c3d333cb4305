package app

import (
	"context"
	"fmt"

	"coinsight/internal/backtest"
	cscfg "coinsight/internal/config"
	"coinsight/internal/logger"
	"coinsight/internal/market"
	apihttp "coinsight/internal/transport/http/api"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化存储与回测服务→启动 HTTP API。
type App struct {
	cfg     *cscfg.Config
	prices  *market.Store
	results *backtest.ResultStore
	svc     *backtest.Service
	api     *apihttp.Server
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *cscfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	prices, err := market.NewStore(cfg.Data.Root)
	if err != nil {
		return nil, fmt.Errorf("初始化价格存储失败: %w", err)
	}
	results, err := backtest.NewResultStore(cfg.Data.Root)
	if err != nil {
		_ = prices.Close()
		return nil, fmt.Errorf("初始化回测结果存储失败: %w", err)
	}
	svc, err := backtest.NewService(backtest.ServiceConfig{
		Prices:        prices,
		Results:       results,
		MaxConcurrent: int64(cfg.Backtest.MaxConcurrent),
		WarmupDays:    cfg.Backtest.WarmupDays,
	})
	if err != nil {
		_ = prices.Close()
		_ = results.Close()
		return nil, fmt.Errorf("初始化回测服务失败: %w", err)
	}
	api, err := apihttp.NewServer(apihttp.Config{
		Addr:    cfg.App.HTTPAddr,
		Prices:  prices,
		Service: svc,
		Results: results,
	})
	if err != nil {
		_ = prices.Close()
		_ = results.Close()
		return nil, fmt.Errorf("初始化 HTTP 服务失败: %w", err)
	}

	return &App{cfg: cfg, prices: prices, results: results, svc: svc, api: api}, nil
}

// Run 启动 HTTP 服务并阻塞到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	a.svc.SetContext(ctx)
	logger.Infof("✓ coinsight 启动（环境=%s，数据目录=%s）", a.cfg.App.Env, a.cfg.Data.Root)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.api.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	err := group.Wait()
	a.Close()
	return err
}

// Close 释放底层存储连接。
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.prices != nil {
		_ = a.prices.Close()
	}
	if a.results != nil {
		_ = a.results.Close()
	}
}
