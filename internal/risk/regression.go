package risk

// Regression 保存资产对基准的回归结果。
type Regression struct {
	Alpha    float64 `json:"alpha"`
	Beta     float64 `json:"beta"`
	RSquared float64 `json:"r_squared"`
}

// AlphaBeta 对超额收益做最小二乘回归：beta = cov/var，
// alpha 为截距按固定 252 年化（与其他统计量的 periodsPerYear 无关，
// 沿用既有口径）。长度不一致返回 ErrLengthMismatch；
// 空输入或基准方差为 0 时返回全零结果。
func AlphaBeta(assetReturns, benchmarkReturns []float64, riskFreeRate float64) (Regression, error) {
	if len(assetReturns) != len(benchmarkReturns) {
		return Regression{}, ErrLengthMismatch
	}
	if len(assetReturns) == 0 {
		return Regression{}, nil
	}

	n := len(assetReturns)
	perPeriodRF := riskFreeRate / 252
	assetExcess := make([]float64, n)
	benchExcess := make([]float64, n)
	for i := 0; i < n; i++ {
		assetExcess[i] = assetReturns[i] - perPeriodRF
		benchExcess[i] = benchmarkReturns[i] - perPeriodRF
	}
	assetMean := mean(assetExcess)
	benchMean := mean(benchExcess)

	covariance := 0.0
	benchVariance := 0.0
	for i := 0; i < n; i++ {
		ad := assetExcess[i] - assetMean
		bd := benchExcess[i] - benchMean
		covariance += ad * bd
		benchVariance += bd * bd
	}
	covariance /= float64(n)
	benchVariance /= float64(n)
	if benchVariance == 0 {
		return Regression{}, nil
	}

	beta := covariance / benchVariance
	alpha := (assetMean - beta*benchMean) * 252

	totalSS := 0.0
	residualSS := 0.0
	for i := 0; i < n; i++ {
		d := assetExcess[i] - assetMean
		totalSS += d * d
		resid := assetExcess[i] - beta*benchExcess[i]
		residualSS += resid * resid
	}
	rSquared := 0.0
	if totalSS != 0 {
		rSquared = 1 - residualSS/totalSS
	}
	return Regression{Alpha: alpha, Beta: beta, RSquared: rSquared}, nil
}
