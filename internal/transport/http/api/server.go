package apihttp

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"coinsight/internal/backtest"
	"coinsight/internal/logger"
	"coinsight/internal/market"
	"coinsight/internal/risk"

	"github.com/gin-gonic/gin"
)

// Server 提供风险分析与回测的 HTTP API。
type Server struct {
	addr    string
	prices  *market.Store
	svc     *backtest.Service
	results *backtest.ResultStore
	router  *gin.Engine
	srv     *http.Server
}

// Config 描述 HTTP Server 的依赖。
type Config struct {
	Addr    string
	Prices  *market.Store
	Service *backtest.Service
	Results *backtest.ResultStore
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Prices == nil {
		return nil, errors.New("price store 不能为空")
	}
	if cfg.Service == nil {
		return nil, errors.New("backtest service 不能为空")
	}
	if cfg.Results == nil {
		return nil, errors.New("result store 不能为空")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9980"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		addr:    cfg.Addr,
		prices:  cfg.Prices,
		svc:     cfg.Service,
		results: cfg.Results,
		router:  router,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	api := s.router.Group("/api")

	mkt := api.Group("/market")
	mkt.GET("", s.handleSymbols)
	mkt.GET("/:symbol", s.handleManifest)
	mkt.POST("/:symbol/import", s.handleImport)
	mkt.POST("/:symbol/synthetic", s.handleSynthetic)

	rk := api.Group("/risk")
	rk.POST("/metrics", s.handleRiskMetrics)
	rk.POST("/var", s.handleVaR)
	rk.GET("/:symbol", s.handleSymbolRisk)
	rk.GET("/:symbol/rolling", s.handleRolling)

	bt := api.Group("/backtest")
	bt.POST("/runs", s.handleRunStart)
	bt.GET("/runs", s.handleRunList)
	bt.GET("/runs/:id", s.handleRunDetail)
	bt.GET("/runs/:id/trades", s.handleRunTrades)
	bt.GET("/runs/:id/equity", s.handleRunEquity)
	bt.GET("/runs/:id/report", s.handleRunReport)
}

// Start 启动监听并阻塞到 ctx 取消后优雅退出。
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("[http] 监听 %s", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// ---- market ----

func (s *Server) handleSymbols(c *gin.Context) {
	symbols, err := s.prices.Symbols(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbols": symbols})
}

func (s *Server) handleManifest(c *gin.Context) {
	m, err := s.prices.ManifestFor(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, m)
}

// handleImport 接收行情提供方 market_chart 原始 JSON 并入库。
func (s *Server) handleImport(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 32<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	series, err := market.ParseMarketChart(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := s.prices.InsertPrices(c.Request.Context(), c.Param("symbol"), series)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": n})
}

func (s *Server) handleSynthetic(c *gin.Context) {
	var req struct {
		Points    int     `json:"points"`
		StartDate string  `json:"start_date"`
		BasePrice float64 `json:"base_price"`
		Drift     float64 `json:"drift"`
		Vol       float64 `json:"vol"`
		Seed      int64   `json:"seed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start := time.Time{}
	if req.StartDate != "" {
		t, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_date 无效"})
			return
		}
		start = t
	}
	series := market.GenerateSeries(market.SyntheticSpec{
		Points:    req.Points,
		StartTime: start,
		BasePrice: req.BasePrice,
		Drift:     req.Drift,
		Vol:       req.Vol,
		Seed:      req.Seed,
	})
	n, err := s.prices.InsertPrices(c.Request.Context(), c.Param("symbol"), series)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"generated": n})
}

// ---- risk ----

func (s *Server) handleRiskMetrics(c *gin.Context) {
	var params risk.Params
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, risk.Compute(params))
}

func (s *Server) handleVaR(c *gin.Context) {
	var req struct {
		Returns         []float64 `json:"returns"`
		ConfidenceLevel float64   `json:"confidence_level"`
		Method          string    `json:"method"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ConfidenceLevel <= 0 || req.ConfidenceLevel >= 1 {
		req.ConfidenceLevel = 0.95
	}
	method := risk.VaRHistorical
	if req.Method == string(risk.VaRParametric) {
		method = risk.VaRParametric
	}
	c.JSON(http.StatusOK, gin.H{
		"value_at_risk":      risk.ValueAtRisk(req.Returns, req.ConfidenceLevel, method),
		"expected_shortfall": risk.ExpectedShortfall(req.Returns, req.ConfidenceLevel),
	})
}

// handleSymbolRisk 对库内序列计算全套指标；回撤同时给出基于真实价格
// 的结果（聚合 Metrics 内部使用合成指数，两者口径不同）。
func (s *Server) handleSymbolRisk(c *gin.Context) {
	series, ok := s.seriesFromQuery(c)
	if !ok {
		return
	}
	prices := series.Prices()
	rets, err := risk.Returns(prices, risk.ReturnLog)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "序列太短，无法计算收益"})
		return
	}
	rf, _ := strconv.ParseFloat(c.DefaultQuery("risk_free_rate", "0"), 64)
	metrics := risk.Compute(risk.Params{Returns: rets, RiskFreeRate: rf})
	c.JSON(http.StatusOK, gin.H{
		"symbol":             c.Param("symbol"),
		"samples":            len(series),
		"metrics":            metrics,
		"price_drawdown":     risk.MaxDrawdown(prices),
		"value_at_risk":      risk.ValueAtRisk(rets, 0.95, risk.VaRHistorical),
		"expected_shortfall": risk.ExpectedShortfall(rets, 0.95),
	})
}

func (s *Server) handleRolling(c *gin.Context) {
	series, ok := s.seriesFromQuery(c)
	if !ok {
		return
	}
	window, _ := strconv.Atoi(c.DefaultQuery("window", "30"))
	rets, err := risk.Returns(series.Prices(), risk.ReturnLog)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "序列太短，无法计算收益"})
		return
	}
	metric := c.DefaultQuery("metric", "volatility")
	var fn func([]float64) float64
	switch metric {
	case "volatility":
		fn = func(w []float64) float64 { return risk.Volatility(w, risk.DefaultPeriodsPerYear) }
	case "sharpe":
		fn = func(w []float64) float64 { return risk.SharpeRatio(w, 0, risk.DefaultPeriodsPerYear) }
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "metric 仅支持 volatility/sharpe"})
		return
	}
	values := risk.RollingWindow(rets, window, fn)
	c.JSON(http.StatusOK, gin.H{
		"symbol": c.Param("symbol"),
		"window": window,
		"metric": metric,
		"values": values,
	})
}

func (s *Server) seriesFromQuery(c *gin.Context) (market.Series, bool) {
	start, _ := strconv.ParseInt(c.DefaultQuery("start_ts", "0"), 10, 64)
	end, _ := strconv.ParseInt(c.DefaultQuery("end_ts", "0"), 10, 64)
	series, err := s.prices.Range(c.Request.Context(), c.Param("symbol"), start, end)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	if len(series) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "无历史数据"})
		return nil, false
	}
	return series, true
}

// ---- backtest ----

func (s *Server) handleRunStart(c *gin.Context) {
	var req backtest.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	run, err := s.svc.StartRun(req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, backtest.ErrInsufficientHistory) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run": run})
}

func (s *Server) handleRunList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := s.results.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) runByID(c *gin.Context) (backtest.Run, bool) {
	run, err := s.results.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return backtest.Run{}, false
	}
	return run, true
}

func (s *Server) handleRunDetail(c *gin.Context) {
	run, ok := s.runByID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleRunTrades(c *gin.Context) {
	run, ok := s.runByID(c)
	if !ok {
		return
	}
	trades, err := s.results.TradesForRun(c.Request.Context(), run.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handleRunEquity(c *gin.Context) {
	run, ok := s.runByID(c)
	if !ok {
		return
	}
	points, err := s.results.EquityForRun(c.Request.Context(), run.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"equity_curve": points})
}

func (s *Server) handleRunReport(c *gin.Context) {
	run, ok := s.runByID(c)
	if !ok {
		return
	}
	if run.Status != backtest.RunStatusDone || run.Result == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "run 尚未完成"})
		return
	}
	html, err := backtest.RenderReport(run)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}
