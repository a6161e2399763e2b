package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/crosslogic/fieldmap-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	unit       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	stats      TEXT,
	usage      TEXT,
	cost_usd   REAL NOT NULL DEFAULT 0,
	elapsed_ms INTEGER NOT NULL DEFAULT 0,
	detail     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS match_results (
	run_id  TEXT NOT NULL REFERENCES runs(id),
	ordinal INTEGER NOT NULL,
	status  TEXT NOT NULL,
	percent INTEGER NOT NULL DEFAULT 0,
	result  TEXT NOT NULL,
	PRIMARY KEY (run_id, ordinal)
);

CREATE TABLE IF NOT EXISTS dead_letters (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	field_id   TEXT NOT NULL,
	field_name TEXT NOT NULL,
	row_index  INTEGER NOT NULL,
	err_kind   TEXT NOT NULL,
	err_detail TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_unit ON runs(unit);
CREATE INDEX IF NOT EXISTS idx_match_results_run_id ON match_results(run_id);
CREATE INDEX IF NOT EXISTS idx_dead_letters_run_id ON dead_letters(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, unit string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, unit, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, unit, string(RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &Run{
		ID:        id,
		Unit:      unit,
		Status:    RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CompleteRun records the outcome, its per-field results and dead letters for
// error-status fields in a single transaction.
func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, outcome *model.BatchOutcome, usage map[string]model.TokenUsage, costUSD float64) error {
	statsJSON, err := json.Marshal(outcome.Stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stats")
	}
	var usageJSON []byte
	if len(usage) > 0 {
		if usageJSON, err = json.Marshal(usage); err != nil {
			return eris.Wrap(err, "sqlite: marshal usage")
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin complete run")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE runs SET status = ?, stats = ?, usage = ?, cost_usd = ?, elapsed_ms = ?, updated_at = ? WHERE id = ?`,
		string(RunStatusComplete), string(statsJSON), nullString(usageJSON),
		costUSD, outcome.Elapsed.Milliseconds(), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	if err := checkRowsAffected(res, "run", runID); err != nil {
		return err
	}

	for i, result := range outcome.Results {
		resultJSON, err := json.Marshal(result)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal result")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO match_results (run_id, ordinal, status, percent, result) VALUES (?, ?, ?, ?, ?)`,
			runID, i, string(result.Status), result.Percent, string(resultJSON),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert result %d", i)
		}

		if result.Status != model.StatusError {
			continue
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO dead_letters (id, run_id, field_id, field_name, row_index, err_kind, err_detail, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), runID, result.Field.ID, result.Field.FieldName,
			result.Field.RowIndex, string(result.ErrKind), result.ErrDetail, time.Now().UTC(),
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: insert dead letter")
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit complete run")
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID, detail string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, detail = ?, updated_at = ? WHERE id = ?`,
		string(RunStatusFailed), detail, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, unit, status, stats, usage, cost_usd, elapsed_ms, detail, created_at, updated_at
		 FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, unit, status, stats, usage, cost_usd, elapsed_ms, detail, created_at, updated_at
	 FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Unit != "" {
		query += ` AND unit = ?`
		args = append(args, filter.Unit)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) ListResults(ctx context.Context, runID string) ([]model.MatchResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT result FROM match_results WHERE run_id = ? ORDER BY ordinal`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list results")
	}
	defer rows.Close()

	var results []model.MatchResult
	for rows.Next() {
		var resultJSON string
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		var r model.MatchResult
		if err := json.Unmarshal([]byte(resultJSON), &r); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list results iterate")
}

func (s *SQLiteStore) ListDeadLetters(ctx context.Context, limit int) ([]DeadLetter, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, field_id, field_name, row_index, err_kind, err_detail, created_at
		 FROM dead_letters ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list dead letters")
	}
	defer rows.Close()

	var letters []DeadLetter
	for rows.Next() {
		var dl DeadLetter
		var detail sql.NullString
		err := rows.Scan(&dl.ID, &dl.RunID, &dl.FieldID, &dl.FieldName, &dl.RowIndex,
			&dl.ErrKind, &detail, &dl.CreatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dead letter")
		}
		dl.ErrDetail = detail.String
		letters = append(letters, dl)
	}
	return letters, eris.Wrap(rows.Err(), "sqlite: list dead letters iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func nullString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	var stats, usage, detail sql.NullString
	var elapsedMS int64

	err := row.Scan(&r.ID, &r.Unit, &r.Status, &stats, &usage, &r.CostUSD,
		&elapsedMS, &detail, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	r.Detail = detail.String
	if stats.Valid {
		if err := json.Unmarshal([]byte(stats.String), &r.Stats); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal stats")
		}
	}
	if usage.Valid {
		if err := json.Unmarshal([]byte(usage.String), &r.Usage); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal usage")
		}
	}
	return &r, nil
}
