// Package storage keeps the last generated report of each name in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"finreport/internal/core"
	"finreport/internal/log"

	_ "modernc.org/sqlite"
)

// ErrReportNotFound is returned by LastRun for a name that was never written.
var ErrReportNotFound = errors.New("report not found")

// Run describes the last write of a report.
type Run struct {
	ReportName  string
	RunID       string
	RecordCount int
	WrittenAt   time.Time
}

type ReportRepository struct {
	db     *sql.DB
	logger *log.Logger
	now    func() time.Time
}

func NewReportRepository(dbPath string, logger *log.Logger) (*ReportRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &ReportRepository{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
		now:    time.Now,
	}, nil
}

func (r *ReportRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the connection; used by the readiness probe.
func (r *ReportRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ReplaceReport swaps the stored rows of name for records in one
// transaction. Readers never see a half-written report.
func (r *ReportRepository) ReplaceReport(ctx context.Context, name, runID string, records []core.Transaction) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM report_records WHERE report_name = ?`, name); err != nil {
		return fmt.Errorf("clear report %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO report_records
		(report_name, position, operation_date, amount, category, card_number, record_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		payload, encErr := json.Marshal(rec)
		if encErr != nil {
			return fmt.Errorf("encode record %d: %w", i, encErr)
		}
		category := sql.NullString{String: rec.Category, Valid: rec.HasCategory()}
		if _, err = stmt.ExecContext(ctx, name, i, rec.OperationDate, rec.Amount, category, rec.CardNumber, string(payload)); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO report_runs (report_name, run_id, record_count, written_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(report_name) DO UPDATE SET
			run_id = excluded.run_id,
			record_count = excluded.record_count,
			written_at = excluded.written_at`,
		name, runID, len(records), r.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit report %s: %w", name, err)
	}

	r.logger.DebugContext(ctx, "report stored",
		log.FieldReport, name,
		log.FieldRunID, runID,
		log.FieldRecords, len(records))
	return nil
}

// ReportRecords returns the stored records of name in their original order.
func (r *ReportRepository) ReportRecords(ctx context.Context, name string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT record_json FROM report_records WHERE report_name = ? ORDER BY position`, name)
	if err != nil {
		return nil, fmt.Errorf("query report %s: %w", name, err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var tx core.Transaction
		if err := json.Unmarshal([]byte(payload), &tx); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// LastRun returns the metadata of the last write of name.
func (r *ReportRepository) LastRun(ctx context.Context, name string) (Run, error) {
	run := Run{ReportName: name}
	var writtenAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT run_id, record_count, written_at FROM report_runs WHERE report_name = ?`, name).
		Scan(&run.RunID, &run.RecordCount, &writtenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrReportNotFound, name)
	}
	if err != nil {
		return Run{}, fmt.Errorf("query run %s: %w", name, err)
	}
	if run.WrittenAt, err = time.Parse(time.RFC3339Nano, writtenAt); err != nil {
		return Run{}, fmt.Errorf("parse run time: %w", err)
	}
	return run, nil
}
