package market

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Manifest 记录某个 symbol 在库内的统计信息。
type Manifest struct {
	Symbol  string `json:"symbol"`
	MinTime int64  `json:"min_time"`
	MaxTime int64  `json:"max_time"`
	Rows    int64  `json:"rows"`
}

// Store 管理按 symbol 归档的历史价格（sqlite，WAL）。
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("data root 不能为空")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(root, "prices.db")
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS prices (
			symbol TEXT NOT NULL,
			ts INTEGER NOT NULL,
			price REAL NOT NULL,
			volume REAL NOT NULL DEFAULT 0,
			PRIMARY KEY(symbol, ts)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_prices_symbol_ts ON prices(symbol, ts);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertPrices 批量写入采样点（重复 ts 将被覆盖）。
func (s *Store) InsertPrices(ctx context.Context, symbol string, points []PricePoint) (int, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return 0, fmt.Errorf("symbol 不能为空")
	}
	if len(points) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO prices (symbol, ts, price, volume)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(symbol, ts) DO UPDATE SET
		    price=excluded.price,
		    volume=excluded.volume`)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()
	count := 0
	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, symbol, p.Timestamp, p.Price, p.Volume); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

// Range 读取 [start, end] 内的序列，end<=0 表示不设上限。
func (s *Store) Range(ctx context.Context, symbol string, start, end int64) (Series, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol 不能为空")
	}
	if end <= 0 {
		end = time.Now().UnixMilli()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, price, volume FROM prices
		WHERE symbol = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC`, symbol, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var series Series
	for rows.Next() {
		var p PricePoint
		if err := rows.Scan(&p.Timestamp, &p.Price, &p.Volume); err != nil {
			return nil, err
		}
		series = append(series, p)
	}
	return series, rows.Err()
}

// ManifestFor 返回 symbol 的库内统计。
func (s *Store) ManifestFor(ctx context.Context, symbol string) (Manifest, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return Manifest{}, fmt.Errorf("symbol 不能为空")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MIN(ts),0), COALESCE(MAX(ts),0), COUNT(*) FROM prices WHERE symbol = ?`, symbol)
	m := Manifest{Symbol: symbol}
	if err := row.Scan(&m.MinTime, &m.MaxTime, &m.Rows); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Symbols 列出库内全部 symbol。
func (s *Store) Symbols(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM prices ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
