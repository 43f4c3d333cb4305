package backtest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ResultStore 管理 backtest_runs/trades/equity 表（sqlite，WAL）。
type ResultStore struct {
	mu sync.Mutex
	db *sql.DB
}

func NewResultStore(root string) (*ResultStore, error) {
	if root == "" {
		return nil, fmt.Errorf("result store root 不能为空")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(root, "runs.db")
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureResultSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &ResultStore{db: db}, nil
}

func (s *ResultStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureResultSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			config_json TEXT NOT NULL,
			result_json TEXT,
			message TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			completed_at INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS backtest_trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			date INTEGER NOT NULL,
			asset TEXT NOT NULL,
			action TEXT NOT NULL,
			price REAL NOT NULL,
			quantity REAL NOT NULL,
			value REAL NOT NULL,
			pnl REAL,
			FOREIGN KEY(run_id) REFERENCES backtest_runs(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS backtest_equity (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			value REAL NOT NULL,
			FOREIGN KEY(run_id) REFERENCES backtest_runs(id) ON DELETE CASCADE
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun 写入新建的 run（pending）。
func (s *ResultStore) InsertRun(ctx context.Context, run Run) error {
	cfgJSON, err := json.Marshal(run.Config)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO backtest_runs (id, status, config_json, message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Status, string(cfgJSON), run.Message, now, now)
	return err
}

// UpdateRunStatus 更新状态与提示信息。
func (s *ResultStore) UpdateRunStatus(ctx context.Context, id, status, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		UPDATE backtest_runs SET status = ?, message = ?, updated_at = ? WHERE id = ?`,
		status, message, time.Now().UnixMilli(), id)
	return err
}

// CompleteRun 落盘完整结果：run 汇总 + 成交流水 + 资金曲线。
func (s *ResultStore) CompleteRun(ctx context.Context, id string, result Result) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE backtest_runs SET status = ?, result_json = ?, message = '', updated_at = ?, completed_at = ?
		WHERE id = ?`,
		RunStatusDone, string(resultJSON), now, now, id); err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, t := range result.Trades {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO backtest_trades (run_id, date, asset, action, price, quantity, value, pnl)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, t.Date.UnixMilli(), t.Asset, t.Action, t.Price, t.Quantity, t.Value, t.PnL); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	for _, p := range result.EquityCurve {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO backtest_equity (run_id, ts, value) VALUES (?, ?, ?)`,
			id, p.Date.UnixMilli(), p.Value); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetRun 读取单个 run（含已落盘的 Result）。
func (s *ResultStore) GetRun(ctx context.Context, id string) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, config_json, COALESCE(result_json,''), COALESCE(message,''),
		       created_at, updated_at, COALESCE(completed_at,0)
		FROM backtest_runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns 按创建时间倒序列出最近 limit 条。
func (s *ResultStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, config_json, COALESCE(result_json,''), COALESCE(message,''),
		       created_at, updated_at, COALESCE(completed_at,0)
		FROM backtest_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var cfgJSON, resultJSON string
	var createdAt, updatedAt, completedAt int64
	if err := row.Scan(&run.ID, &run.Status, &cfgJSON, &resultJSON, &run.Message,
		&createdAt, &updatedAt, &completedAt); err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(cfgJSON), &run.Config); err != nil {
		return Run{}, fmt.Errorf("config json 解析失败: %w", err)
	}
	if resultJSON != "" {
		var result Result
		if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
			return Run{}, fmt.Errorf("result json 解析失败: %w", err)
		}
		run.Result = &result
	}
	run.CreatedAt = time.UnixMilli(createdAt)
	run.UpdatedAt = time.UnixMilli(updatedAt)
	if completedAt > 0 {
		run.CompletedAt = time.UnixMilli(completedAt)
	}
	return run, nil
}

// TradesForRun 读取成交流水（按时间升序）。
func (s *ResultStore) TradesForRun(ctx context.Context, id string) ([]Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, asset, action, price, quantity, value, COALESCE(pnl,0)
		FROM backtest_trades WHERE run_id = ? ORDER BY date ASC, id ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var trades []Trade
	for rows.Next() {
		var t Trade
		var ts int64
		if err := rows.Scan(&ts, &t.Asset, &t.Action, &t.Price, &t.Quantity, &t.Value, &t.PnL); err != nil {
			return nil, err
		}
		t.Date = time.UnixMilli(ts)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// EquityForRun 读取资金曲线（按时间升序）。
func (s *ResultStore) EquityForRun(ctx context.Context, id string) ([]EquityPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, value FROM backtest_equity WHERE run_id = ? ORDER BY ts ASC, id ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var points []EquityPoint
	for rows.Next() {
		var ts int64
		var p EquityPoint
		if err := rows.Scan(&ts, &p.Value); err != nil {
			return nil, err
		}
		p.Date = time.UnixMilli(ts)
		points = append(points, p)
	}
	return points, rows.Err()
}
