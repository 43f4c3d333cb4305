package config

// Config 是 coinsight 的主配置载体。
type Config struct {
	App      AppConfig      `toml:"app"`
	Data     DataConfig     `toml:"data"`
	Backtest BacktestConfig `toml:"backtest"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// DataConfig 描述价格与回测结果的存储位置。
type DataConfig struct {
	Root string `toml:"root"`
}

// BacktestConfig 控制回测服务的并发与数据装载。
type BacktestConfig struct {
	MaxConcurrent int `toml:"max_concurrent"` // 同时执行的 run 数上限
	WarmupDays    int `toml:"warmup_days"`    // 回测起点前额外装载的历史天数
}
