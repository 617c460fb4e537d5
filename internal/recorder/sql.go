package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"IndexLens/internal/model"
	"IndexLens/internal/pipeline"
)

// Dialect captures the differences between the supported databases.
type Dialect struct {
	Driver     string
	numbered   bool // $1 placeholders instead of ?
	serialPK   string
	setupStmts []string
}

var (
	SQLite = Dialect{
		Driver:   "sqlite",
		serialPK: "INTEGER PRIMARY KEY AUTOINCREMENT",
		// WAL mode lets readers query while a run is being written.
		setupStmts: []string{"PRAGMA journal_mode=WAL"},
	}
	Postgres = Dialect{
		Driver:   "postgres",
		numbered: true,
		serialPK: "BIGSERIAL PRIMARY KEY",
	}
)

// DialectFor returns the dialect registered under driver.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite":
		return SQLite, nil
	case "postgres":
		return Postgres, nil
	}
	return Dialect{}, fmt.Errorf("unsupported recorder driver %q", driver)
}

// rebind rewrites ? placeholders for dialects that number them.
func (d Dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLRecorder persists runs through database/sql.
type SQLRecorder struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewSQLRecorder opens (or creates) the database and runs migrations.
func NewSQLRecorder(driver, dsn string, logger *zap.Logger) (*SQLRecorder, error) {
	d, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Driver, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.Driver, err)
	}

	for _, s := range d.setupStmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup %q: %w", s, err)
		}
	}

	r := &SQLRecorder{db: db, dialect: d, logger: logger}
	if err := r.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("recorder opened", zap.String("driver", d.Driver))
	return r, nil
}

func (r *SQLRecorder) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id      TEXT PRIMARY KEY,
			started_at  BIGINT NOT NULL,
			finished_at BIGINT NOT NULL,
			source      TEXT,
			symbols     INTEGER,
			failed      INTEGER,
			row_count   INTEGER,
			stage       TEXT,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS run_rows (
			id                    ` + r.dialect.serialPK + `,
			run_id                TEXT NOT NULL,
			datetime              BIGINT NOT NULL,
			symbol                TEXT NOT NULL,
			adj_close             DOUBLE PRECISION,
			close                 DOUBLE PRECISION,
			high                  DOUBLE PRECISION,
			low                   DOUBLE PRECISION,
			open                  DOUBLE PRECISION,
			volume                DOUBLE PRECISION,
			ret                   DOUBLE PRECISION,
			company_name          TEXT,
			industry              TEXT,
			sub_industry          TEXT,
			headquarters_location TEXT,
			date_added            TEXT,
			founded               TEXT,
			dollar_return         DOUBLE PRECISION
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_rows_run ON run_rows(run_id, symbol)`,
	}

	for _, s := range stmts {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("exec %q: %w", snippet(s, 40), err)
		}
	}
	return nil
}

// snippet returns at most n bytes of s for error messages.
func snippet(s string, n int) string {
	return s[:min(len(s), n)]
}

// RecordRun writes the run summary and every final row in one transaction.
// Failed runs are recorded without rows.
func (r *SQLRecorder) RecordRun(ctx context.Context, rec *RunRecord) error {
	if rec == nil || rec.Result == nil {
		return fmt.Errorf("record run: nothing to record")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	res := rec.Result
	var stage, errText sql.NullString
	if rec.Err != nil {
		errText = sql.NullString{String: rec.Err.Error(), Valid: true}
		var se *pipeline.StageError
		if errors.As(rec.Err, &se) {
			stage = sql.NullString{String: se.Stage.String(), Valid: true}
		}
	}
	rows := 0
	if res.Final != nil {
		rows = res.Final.Len()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.dialect.rebind(`INSERT INTO runs
		(run_id, started_at, finished_at, source, symbols, failed, row_count, stage, error)
		VALUES (?,?,?,?,?,?,?,?,?)`),
		res.RunID, res.StartedAt.Unix(), res.FinishedAt.Unix(), res.Source,
		len(res.Symbols), len(res.Failed()), rows, stage, errText,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if res.Final != nil {
		stmt, err := tx.PrepareContext(ctx, r.dialect.rebind(`INSERT INTO run_rows
			(run_id, datetime, symbol, adj_close, close, high, low, open, volume, ret,
			 company_name, industry, sub_industry, headquarters_location, date_added, founded,
			 dollar_return)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`))
		if err != nil {
			return fmt.Errorf("prepare rows: %w", err)
		}
		defer stmt.Close()

		for _, row := range res.Final.Rows {
			if _, err := stmt.ExecContext(ctx, rowArgs(res.RunID, row)...); err != nil {
				return fmt.Errorf("insert row %s@%s: %w", row.Symbol, row.Datetime.Format(time.RFC3339), err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.logger.Info("run recorded", zap.String("run_id", res.RunID), zap.Int("rows", rows))
	return nil
}

func rowArgs(runID string, row model.TidyRow) []any {
	var info model.CompanyInfo
	matched := row.Company != nil
	if matched {
		info = *row.Company
	}
	text := func(s string) sql.NullString { return sql.NullString{String: s, Valid: matched} }
	return []any{
		runID, row.Datetime.Unix(), row.Symbol,
		nullable(row.AdjClose), nullable(row.Close), nullable(row.High), nullable(row.Low),
		nullable(row.Open), nullable(row.Volume), nullable(row.Return),
		text(info.CompanyName), text(info.Industry), text(info.SubIndustry),
		text(info.HeadquartersLocation), text(info.DateAdded), text(info.Founded),
		nullable(row.DollarReturn),
	}
}

// nullable stores NaN as NULL.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func (r *SQLRecorder) Close() error {
	r.logger.Info("closing recorder", zap.String("driver", r.dialect.Driver))
	return r.db.Close()
}
