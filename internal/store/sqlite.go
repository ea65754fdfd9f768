package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const defaultListLimit = 50

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB

	insertRunStmt    *sql.Stmt
	insertModelStmt  *sql.Stmt
	getRunStmt       *sql.Stmt
	modelsByRunStmt  *sql.Stmt
	modelHistoryStmt *sql.Stmt
	leaderboardStmt  *sql.Stmt
}

var (
	sqliteOpen              = sql.Open
	sqlitePrepareStatements = (*SQLiteStore).prepareStatements
)

// NewSQLiteStore opens or creates a SQLite store at the given path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("store: empty sqlite path")
	}
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: create sqlite dir: %w", err)
			}
		}
	}

	db, err := sqliteOpen("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}

	if err := initSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	st := &SQLiteStore{db: db}
	if err := sqlitePrepareStatements(st); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func initSQLiteSchema(db *sql.DB) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON`,
		`PRAGMA journal_mode = WAL`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			dataset TEXT NOT NULL,
			total_models INTEGER NOT NULL,
			total_items INTEGER NOT NULL,
			fuzzy_threshold INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS model_results (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			model TEXT NOT NULL,
			total INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			accuracy REAL NOT NULL,
			exact INTEGER NOT NULL,
			alias INTEGER NOT NULL,
			avg_fuzzy REAL NOT NULL,
			elapsed_s REAL NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_model_results_run_id ON model_results(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_model_results_model ON model_results(model)`,
		`CREATE INDEX IF NOT EXISTS idx_model_results_created_at ON model_results(created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("store: init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) prepareStatements() error {
	if s == nil || s.db == nil {
		return errors.New("store: nil sqlite store")
	}

	ctx := context.Background()
	type stmtSpec struct {
		dst    **sql.Stmt
		query  string
		errFmt string
	}

	specs := []stmtSpec{
		{
			dst: &s.insertRunStmt,
			query: `
				INSERT INTO runs (
					id, started_at, finished_at, dataset, total_models, total_items, fuzzy_threshold
				) VALUES (?, ?, ?, ?, ?, ?, ?)
			`,
			errFmt: "store: prepare insert run: %w",
		},
		{
			dst: &s.insertModelStmt,
			query: `
				INSERT INTO model_results (
					id, run_id, model, total, correct, accuracy, exact, alias,
					avg_fuzzy, elapsed_s, error, created_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
			errFmt: "store: prepare insert model result: %w",
		},
		{
			dst: &s.getRunStmt,
			query: `
				SELECT id, started_at, finished_at, dataset, total_models, total_items, fuzzy_threshold
				FROM runs WHERE id = ?
			`,
			errFmt: "store: prepare get run: %w",
		},
		{
			dst: &s.modelsByRunStmt,
			query: `
				SELECT id, run_id, model, total, correct, accuracy, exact, alias,
					avg_fuzzy, elapsed_s, error, created_at
				FROM model_results
				WHERE run_id = ?
				ORDER BY accuracy DESC, model ASC
			`,
			errFmt: "store: prepare models by run: %w",
		},
		{
			dst: &s.modelHistoryStmt,
			query: `
				SELECT id, run_id, model, total, correct, accuracy, exact, alias,
					avg_fuzzy, elapsed_s, error, created_at
				FROM model_results
				WHERE model = ?
				ORDER BY created_at DESC
				LIMIT ?
			`,
			errFmt: "store: prepare model history: %w",
		},
		{
			dst: &s.leaderboardStmt,
			query: `
				SELECT model, COUNT(*), AVG(accuracy), MAX(accuracy), MAX(created_at)
				FROM model_results
				WHERE total > 0
				GROUP BY model
				ORDER BY AVG(accuracy) DESC, model ASC
				LIMIT ?
			`,
			errFmt: "store: prepare leaderboard: %w",
		},
	}

	for _, spec := range specs {
		stmt, err := s.db.PrepareContext(ctx, spec.query)
		if err != nil {
			return fmt.Errorf(spec.errFmt, err)
		}
		*spec.dst = stmt
	}

	return nil
}

// Close releases database resources.
func (s *SQLiteStore) Close() error {
	if s == nil {
		return nil
	}
	stmts := []*sql.Stmt{
		s.insertRunStmt,
		s.insertModelStmt,
		s.getRunStmt,
		s.modelsByRunStmt,
		s.modelHistoryStmt,
		s.leaderboardStmt,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun persists a run summary.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *RunRecord) error {
	if s == nil {
		return errors.New("store: nil sqlite store")
	}
	if ctx == nil {
		return errors.New("store: nil context")
	}
	if run == nil {
		return errors.New("store: nil run")
	}

	id := strings.TrimSpace(run.ID)
	if id == "" {
		return errors.New("store: empty run id")
	}
	if run.StartedAt.IsZero() || run.FinishedAt.IsZero() {
		return errors.New("store: missing run timestamps")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin run tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt := tx.StmtContext(ctx, s.insertRunStmt)
	defer stmt.Close()

	_, err = stmt.ExecContext(
		ctx,
		id,
		run.StartedAt.UTC().UnixMilli(),
		run.FinishedAt.UTC().UnixMilli(),
		run.Dataset,
		run.TotalModels,
		run.TotalItems,
		run.FuzzyThreshold,
	)
	if err != nil {
		return fmt.Errorf("store: insert run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit run: %w", err)
	}
	return nil
}

// SaveModelResult persists one model's aggregate result.
func (s *SQLiteStore) SaveModelResult(ctx context.Context, result *ModelRecord) error {
	if s == nil {
		return errors.New("store: nil sqlite store")
	}
	if ctx == nil {
		return errors.New("store: nil context")
	}
	if result == nil {
		return errors.New("store: nil model result")
	}

	id := strings.TrimSpace(result.ID)
	if id == "" {
		return errors.New("store: empty result id")
	}
	if strings.TrimSpace(result.RunID) == "" {
		return errors.New("store: empty run id")
	}
	if strings.TrimSpace(result.Model) == "" {
		return errors.New("store: empty model name")
	}

	createdAt := result.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin model tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt := tx.StmtContext(ctx, s.insertModelStmt)
	defer stmt.Close()

	_, err = stmt.ExecContext(
		ctx,
		id,
		result.RunID,
		result.Model,
		result.Total,
		result.Correct,
		result.Accuracy,
		result.Exact,
		result.Alias,
		result.AvgFuzzy,
		result.ElapsedS,
		result.Error,
		createdAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("store: insert model result: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit model result: %w", err)
	}
	return nil
}

// GetRun loads a run by id.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	if s == nil {
		return nil, errors.New("store: nil sqlite store")
	}
	if ctx == nil {
		return nil, errors.New("store: nil context")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("store: empty run id")
	}

	row := s.getRunStmt.QueryRowContext(ctx, id)
	var (
		runID          string
		startedAtMS    int64
		finishedAtMS   int64
		ds             string
		totalModels    int
		totalItems     int
		fuzzyThreshold int
	)
	if err := row.Scan(&runID, &startedAtMS, &finishedAtMS, &ds, &totalModels, &totalItems, &fuzzyThreshold); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("store: get run: %w", err)
	}

	return &RunRecord{
		ID:             runID,
		StartedAt:      time.UnixMilli(startedAtMS).UTC(),
		FinishedAt:     time.UnixMilli(finishedAtMS).UTC(),
		Dataset:        ds,
		TotalModels:    totalModels,
		TotalItems:     totalItems,
		FuzzyThreshold: fuzzyThreshold,
	}, nil
}

// ListRuns returns runs matching the filter, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]*RunRecord, error) {
	if s == nil {
		return nil, errors.New("store: nil sqlite store")
	}
	if ctx == nil {
		return nil, errors.New("store: nil context")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var sb strings.Builder
	sb.WriteString(`SELECT id, started_at, finished_at, dataset, total_models, total_items, fuzzy_threshold FROM runs WHERE 1=1`)

	var args []any
	if ds := strings.TrimSpace(filter.Dataset); ds != "" {
		sb.WriteString(` AND dataset = ?`)
		args = append(args, ds)
	}
	if !filter.Since.IsZero() {
		sb.WriteString(` AND started_at >= ?`)
		args = append(args, filter.Since.UTC().UnixMilli())
	}
	if !filter.Until.IsZero() {
		sb.WriteString(` AND started_at <= ?`)
		args = append(args, filter.Until.UTC().UnixMilli())
	}
	sb.WriteString(` ORDER BY started_at DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()
	return scanRunRows(rows)
}

func scanRunRows(rows *sql.Rows) ([]*RunRecord, error) {
	var out []*RunRecord
	for rows.Next() {
		var (
			runID          string
			startedAtMS    int64
			finishedAtMS   int64
			ds             string
			totalModels    int
			totalItems     int
			fuzzyThreshold int
		)
		if err := rows.Scan(&runID, &startedAtMS, &finishedAtMS, &ds, &totalModels, &totalItems, &fuzzyThreshold); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		out = append(out, &RunRecord{
			ID:             runID,
			StartedAt:      time.UnixMilli(startedAtMS).UTC(),
			FinishedAt:     time.UnixMilli(finishedAtMS).UTC(),
			Dataset:        ds,
			TotalModels:    totalModels,
			TotalItems:     totalItems,
			FuzzyThreshold: fuzzyThreshold,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	return out, nil
}

// GetModelResults lists model results for a run, best accuracy first.
func (s *SQLiteStore) GetModelResults(ctx context.Context, runID string) ([]*ModelRecord, error) {
	if s == nil {
		return nil, errors.New("store: nil sqlite store")
	}
	if ctx == nil {
		return nil, errors.New("store: nil context")
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, errors.New("store: empty run id")
	}

	rows, err := s.modelsByRunStmt.QueryContext(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("store: get model results: %w", err)
	}
	defer rows.Close()

	return scanModelRows(rows)
}

// ModelHistory returns recent results for one model across runs.
func (s *SQLiteStore) ModelHistory(ctx context.Context, model string, limit int) ([]*ModelRecord, error) {
	if s == nil {
		return nil, errors.New("store: nil sqlite store")
	}
	if ctx == nil {
		return nil, errors.New("store: nil context")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("store: empty model name")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.modelHistoryStmt.QueryContext(ctx, model, limit)
	if err != nil {
		return nil, fmt.Errorf("store: model history: %w", err)
	}
	defer rows.Close()

	return scanModelRows(rows)
}

// Leaderboard aggregates accuracy per model across all runs.
func (s *SQLiteStore) Leaderboard(ctx context.Context, limit int) ([]*LeaderboardEntry, error) {
	if s == nil {
		return nil, errors.New("store: nil sqlite store")
	}
	if ctx == nil {
		return nil, errors.New("store: nil context")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.leaderboardStmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("store: leaderboard: %w", err)
	}
	defer rows.Close()

	var out []*LeaderboardEntry
	for rows.Next() {
		var (
			model      string
			runs       int
			avgAcc     float64
			bestAcc    float64
			lastSeenMS int64
		)
		if err := rows.Scan(&model, &runs, &avgAcc, &bestAcc, &lastSeenMS); err != nil {
			return nil, fmt.Errorf("store: scan leaderboard: %w", err)
		}
		out = append(out, &LeaderboardEntry{
			Model:        model,
			Runs:         runs,
			AvgAccuracy:  avgAcc,
			BestAccuracy: bestAcc,
			LastSeen:     time.UnixMilli(lastSeenMS).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: leaderboard rows: %w", err)
	}
	return out, nil
}

func scanModelRows(rows *sql.Rows) ([]*ModelRecord, error) {
	var out []*ModelRecord
	for rows.Next() {
		var (
			id          string
			runID       string
			model       string
			total       int
			correct     int
			accuracy    float64
			exact       int
			alias       int
			avgFuzzy    float64
			elapsedS    float64
			errText     string
			createdAtMS int64
		)
		if err := rows.Scan(
			&id,
			&runID,
			&model,
			&total,
			&correct,
			&accuracy,
			&exact,
			&alias,
			&avgFuzzy,
			&elapsedS,
			&errText,
			&createdAtMS,
		); err != nil {
			return nil, fmt.Errorf("store: scan model result: %w", err)
		}

		out = append(out, &ModelRecord{
			ID:        id,
			RunID:     runID,
			Model:     model,
			Total:     total,
			Correct:   correct,
			Accuracy:  accuracy,
			Exact:     exact,
			Alias:     alias,
			AvgFuzzy:  avgFuzzy,
			ElapsedS:  elapsedS,
			Error:     errText,
			CreatedAt: time.UnixMilli(createdAtMS).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: scan model rows: %w", err)
	}
	return out, nil
}
