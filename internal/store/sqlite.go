package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/me/ticksched/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Each connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Runs ---

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", run.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, plan_name, tick_period_ms, capacity, state, ticks, fires, overruns, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.PlanName, run.TickPeriodMs, run.Capacity, string(run.State),
		int64(run.Ticks), int64(run.Fires), int64(run.Overruns), run.Error,
		run.StartedAt.Format(time.RFC3339Nano), formatTimePtr(run.FinishedAt),
	)
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "id", id)

	row := s.db.QueryRowContext(ctx,
		`SELECT id, plan_name, tick_period_ms, capacity, state, ticks, fires, overruns, error, started_at, finished_at
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, opts model.ListOptions) ([]*model.Run, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "runs", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	var whereClauses []string
	var countArgs []any
	if opts.State != "" {
		whereClauses = append(whereClauses, "state = ?")
		countArgs = append(countArgs, opts.State)
	}
	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`+whereSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT id, plan_name, tick_period_ms, capacity, state, ticks, fires, overruns, error, started_at, finished_at
		FROM runs` + whereSQL + ` ORDER BY started_at DESC LIMIT ? OFFSET ?`
	listArgs := append(countArgs, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "update", "table", "runs", "id", run.ID, "state", run.State)

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET state = ?, ticks = ?, fires = ?, overruns = ?, error = ?, finished_at = ?
		 WHERE id = ?`,
		string(run.State), int64(run.Ticks), int64(run.Fires), int64(run.Overruns), run.Error,
		formatTimePtr(run.FinishedAt), run.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("update run %s: not found", run.ID)
	}
	return nil
}

// --- Fires ---

func (s *SQLiteStore) RecordFires(ctx context.Context, fires []model.Fire) error {
	if len(fires) == 0 {
		return nil
	}
	s.logger.Debug("sql", "op", "insert", "table", "fires", "count", len(fires))

	return s.inTx(ctx, `INSERT INTO fires (run_id, tick, slot_id, task_name, at) VALUES (?, ?, ?, ?, ?)`,
		len(fires), func(stmt *sql.Stmt, i int) error {
			f := fires[i]
			_, err := stmt.ExecContext(ctx, f.RunID, int64(f.Tick), f.SlotID, f.TaskName, f.At.Format(time.RFC3339Nano))
			return err
		})
}

func (s *SQLiteStore) ListFires(ctx context.Context, runID string, opts model.ListOptions) ([]model.Fire, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "fires", "run_id", runID)
	opts.Clamp()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fires WHERE run_id = ?`, runID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, tick, slot_id, task_name, at FROM fires
		 WHERE run_id = ? ORDER BY tick, id LIMIT ? OFFSET ?`,
		runID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var fires []model.Fire
	for rows.Next() {
		var f model.Fire
		var tick int64
		var at string
		if err := rows.Scan(&f.ID, &f.RunID, &tick, &f.SlotID, &f.TaskName, &at); err != nil {
			return nil, 0, err
		}
		f.Tick = uint64(tick)
		f.At = parseTime(at)
		fires = append(fires, f)
	}
	return fires, total, rows.Err()
}

// --- Overruns ---

func (s *SQLiteStore) RecordOverruns(ctx context.Context, overruns []model.Overrun) error {
	if len(overruns) == 0 {
		return nil
	}
	s.logger.Debug("sql", "op", "insert", "table", "overruns", "count", len(overruns))

	return s.inTx(ctx, `INSERT INTO overruns (run_id, tick, pending, at) VALUES (?, ?, ?, ?)`,
		len(overruns), func(stmt *sql.Stmt, i int) error {
			o := overruns[i]
			_, err := stmt.ExecContext(ctx, o.RunID, int64(o.Tick), int64(o.Pending), o.At.Format(time.RFC3339Nano))
			return err
		})
}

func (s *SQLiteStore) ListOverruns(ctx context.Context, runID string, opts model.ListOptions) ([]model.Overrun, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "overruns", "run_id", runID)
	opts.Clamp()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM overruns WHERE run_id = ?`, runID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, tick, pending, at FROM overruns
		 WHERE run_id = ? ORDER BY tick, id LIMIT ? OFFSET ?`,
		runID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Overrun
	for rows.Next() {
		var o model.Overrun
		var tick, pending int64
		var at string
		if err := rows.Scan(&o.ID, &o.RunID, &tick, &pending, &at); err != nil {
			return nil, 0, err
		}
		o.Tick = uint64(tick)
		o.Pending = uint32(pending)
		o.At = parseTime(at)
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// --- Helpers ---

// inTx prepares query once and executes it n times in a single transaction.
func (s *SQLiteStore) inTx(ctx context.Context, query string, n int, exec func(stmt *sql.Stmt, i int) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if err := exec(stmt, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.Run, error) {
	var run model.Run
	var state, startedAt string
	var finishedAt *string
	var ticks, fires, overruns int64

	if err := row.Scan(&run.ID, &run.PlanName, &run.TickPeriodMs, &run.Capacity, &state,
		&ticks, &fires, &overruns, &run.Error, &startedAt, &finishedAt); err != nil {
		return nil, err
	}

	run.State = model.RunState(state)
	run.Ticks = uint64(ticks)
	run.Fires = uint64(fires)
	run.Overruns = uint64(overruns)
	run.StartedAt = parseTime(startedAt)
	if finishedAt != nil {
		t := parseTime(*finishedAt)
		run.FinishedAt = &t
	}
	return &run, nil
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339Nano)
	return &s
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
