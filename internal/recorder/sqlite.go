package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"SpreadSentinel/internal/model"
)

// SQLiteRecorder persists emitted reports to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS deviation_reports (
			id                   INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id               TEXT NOT NULL,
			timestamp            INTEGER NOT NULL,
			trigger              TEXT,
			success              INTEGER NOT NULL,
			error                TEXT,
			source_errors        TEXT,
			actual_pair          TEXT,
			leg_a_pair           TEXT,
			leg_b_pair           TEXT,
			current_percent_diff REAL,
			classification       TEXT,
			usual_classification TEXT,
			actual_price         REAL,
			implied_price        REAL,
			leg_a_price          REAL,
			leg_b_price          REAL,
			statistics_defined   INTEGER,
			samples              INTEGER,
			min_diff             REAL,
			p5                   REAL,
			p25                  REAL,
			median_diff          REAL,
			p75                  REAL,
			p90                  REAL,
			max_diff             REAL,
			notified             INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_ts ON deviation_reports(timestamp)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_reports_run ON deviation_reports(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// nullable maps a missing price to SQL NULL.
func nullable(p model.Price) sql.NullFloat64 {
	return sql.NullFloat64{Float64: p.Value, Valid: p.Valid}
}

// definedOnly stores v only when the summary is defined.
func definedOnly(defined bool, v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: defined}
}

func (r *SQLiteRecorder) RecordReport(evt *ReportEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := evt.At
	if at.IsZero() {
		at = time.Now()
	}
	res := evt.Result

	var srcErrs sql.NullString
	if len(res.SourceErrors) > 0 {
		b, err := json.Marshal(res.SourceErrors)
		if err != nil {
			return fmt.Errorf("encode source errors: %w", err)
		}
		srcErrs = sql.NullString{String: string(b), Valid: true}
	}

	rep := res.Report
	if rep == nil {
		rep = &model.DeviationReport{}
	}
	s := rep.Summary

	_, err := r.db.Exec(`INSERT INTO deviation_reports
		(run_id, timestamp, trigger, success, error, source_errors,
		 actual_pair, leg_a_pair, leg_b_pair,
		 current_percent_diff, classification, usual_classification,
		 actual_price, implied_price, leg_a_price, leg_b_price,
		 statistics_defined, samples,
		 min_diff, p5, p25, median_diff, p75, p90, max_diff, notified)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		evt.RunID, at.Unix(), evt.Trigger, res.Success, res.Error, srcErrs,
		rep.Pairs.Actual, rep.Pairs.LegA, rep.Pairs.LegB,
		nullable(rep.CurrentPercentDiff), string(rep.Classification), string(rep.UsualClassification),
		nullable(rep.ActualPrice), nullable(rep.ImpliedPrice), nullable(rep.LegAPrice), nullable(rep.LegBPrice),
		rep.StatisticsDefined, rep.Samples,
		definedOnly(s.Defined, s.Min), definedOnly(s.Defined, s.P5), definedOnly(s.Defined, s.P25),
		definedOnly(s.Defined, s.Median), definedOnly(s.Defined, s.P75), definedOnly(s.Defined, s.P90),
		definedOnly(s.Defined, s.Max), evt.Notified,
	)
	return err
}

// CountReports returns the number of stored reports.
func (r *SQLiteRecorder) CountReports() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM deviation_reports`).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
