package backtest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"skyline/internal/exchange"
)

// Run 状态流转: running -> done | failed。
const (
	RunStatusRunning = "running"
	RunStatusDone    = "done"
	RunStatusFailed  = "failed"
)

// Run 是一次回测的落库记录。时间均为 Unix 毫秒。
type Run struct {
	ID          string
	Pair        string
	Dataset     string
	Status      string
	StartTS     int64
	EndTS       int64
	Profit      float64
	Orders      int
	Message     string
	CreatedAt   int64
	UpdatedAt   int64
	CompletedAt int64
}

// CurvePoint 是收益曲线上的一个点: 第 Seq 笔平仓后的累计点差。
type CurvePoint struct {
	Seq    int
	Profit float64
}

// ResultStore 管理 backtest_runs/orders/curve 三张表。
type ResultStore struct {
	mu sync.Mutex
	db *sql.DB
}

func NewResultStore(path string) (*ResultStore, error) {
	if path == "" {
		return nil, fmt.Errorf("结果库路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureResultSchema(db); err != nil {
		db.Close()
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
			pair TEXT NOT NULL,
			dataset TEXT NOT NULL,
			status TEXT NOT NULL,
			start_ts INTEGER NOT NULL,
			end_ts INTEGER NOT NULL,
			profit REAL NOT NULL DEFAULT 0,
			orders INTEGER NOT NULL DEFAULT 0,
			message TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			completed_at INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS backtest_orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			order_id TEXT NOT NULL,
			side TEXT NOT NULL,
			type TEXT NOT NULL,
			price REAL NOT NULL,
			amount REAL NOT NULL,
			status TEXT NOT NULL,
			FOREIGN KEY(run_id) REFERENCES backtest_runs(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS backtest_curve (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			profit REAL NOT NULL,
			FOREIGN KEY(run_id) REFERENCES backtest_runs(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_bt_orders_run ON backtest_orders(run_id);`,
		`CREATE INDEX IF NOT EXISTS idx_bt_curve_run ON backtest_curve(run_id, seq);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun 登记一次新的回测。
func (s *ResultStore) InsertRun(ctx context.Context, run Run) error {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO backtest_runs
			(id, pair, dataset, status, start_ts, end_ts, profit, orders, message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Pair, run.Dataset, run.Status, run.StartTS, run.EndTS,
		run.Profit, run.Orders, run.Message, now, now)
	return err
}

// FinishRun 落定终态与最终指标。
func (s *ResultStore) FinishRun(ctx context.Context, id, status string, profit float64, orders int, message string) error {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		UPDATE backtest_runs
		SET status=?, profit=?, orders=?, message=?, updated_at=?, completed_at=?
		WHERE id=?`,
		status, profit, orders, message, now, now, id)
	return err
}

// InsertOrders 批量保存一次回测产生的全部委托。
func (s *ResultStore) InsertOrders(ctx context.Context, runID string, orders []*exchange.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, order := range orders {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO backtest_orders (run_id, order_id, side, type, price, amount, status)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, order.ID, string(order.Side), string(order.Type),
			order.Price, order.Amount, string(order.Status)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// InsertCurve 保存收益曲线。
func (s *ResultStore) InsertCurve(ctx context.Context, runID string, points []CurvePoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, p := range points {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO backtest_curve (run_id, seq, profit) VALUES (?, ?, ?)`,
			runID, p.Seq, p.Profit); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *ResultStore) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, pair, dataset, status, start_ts, end_ts, profit, orders, message,
		       created_at, updated_at, completed_at
		FROM backtest_runs WHERE id=?`, id)
	var run Run
	var message sql.NullString
	var completed sql.NullInt64
	if err := row.Scan(&run.ID, &run.Pair, &run.Dataset, &run.Status, &run.StartTS, &run.EndTS,
		&run.Profit, &run.Orders, &message, &run.CreatedAt, &run.UpdatedAt, &completed); err != nil {
		return Run{}, err
	}
	run.Message = message.String
	if completed.Valid {
		run.CompletedAt = completed.Int64
	}
	return run, nil
}

func (s *ResultStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pair, dataset, status, start_ts, end_ts, profit, orders, message,
		       created_at, updated_at, completed_at
		FROM backtest_runs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var run Run
		var message sql.NullString
		var completed sql.NullInt64
		if err := rows.Scan(&run.ID, &run.Pair, &run.Dataset, &run.Status, &run.StartTS, &run.EndTS,
			&run.Profit, &run.Orders, &message, &run.CreatedAt, &run.UpdatedAt, &completed); err != nil {
			return nil, err
		}
		run.Message = message.String
		if completed.Valid {
			run.CompletedAt = completed.Int64
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (s *ResultStore) ListCurve(ctx context.Context, runID string) ([]CurvePoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, profit FROM backtest_curve WHERE run_id=? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CurvePoint
	for rows.Next() {
		var p CurvePoint
		if err := rows.Scan(&p.Seq, &p.Profit); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
