package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/gulfshield/claims-engine/internal/model"
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
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS decisions (
	id          TEXT PRIMARY KEY,
	module      TEXT NOT NULL,
	case_number TEXT NOT NULL,
	model       TEXT NOT NULL,
	report      TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_decisions_module ON decisions(module);
CREATE INDEX IF NOT EXISTS idx_decisions_case_number ON decisions(case_number);
CREATE INDEX IF NOT EXISTS idx_decisions_created_at ON decisions(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordDecision(ctx context.Context, report *model.DecisionReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal report")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO decisions (id, module, case_number, model, report, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		report.ID, string(report.Module), report.CaseNumber, report.Model, string(reportJSON), report.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert decision %s", report.ID)
}

func (s *SQLiteStore) GetDecision(ctx context.Context, id string) (*model.DecisionReport, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT report FROM decisions WHERE id = ?`, id,
	)

	var reportJSON string
	err := row.Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("decision not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get decision")
	}
	return unmarshalReport(reportJSON)
}

func (s *SQLiteStore) ListDecisions(ctx context.Context, filter DecisionFilter) ([]model.DecisionReport, error) {
	query := `SELECT report FROM decisions WHERE 1=1`
	var args []any

	if filter.Module != "" {
		query += ` AND module = ?`
		args = append(args, string(filter.Module))
	}
	if filter.CaseNumber != "" {
		query += ` AND case_number = ?`
		args = append(args, filter.CaseNumber)
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
		return nil, eris.Wrap(err, "sqlite: list decisions")
	}
	defer rows.Close()

	var reports []model.DecisionReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan decision")
		}
		r, err := unmarshalReport(reportJSON)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, eris.Wrap(rows.Err(), "sqlite: list decisions iterate")
}

func unmarshalReport(reportJSON string) (*model.DecisionReport, error) {
	var r model.DecisionReport
	if err := json.Unmarshal([]byte(reportJSON), &r); err != nil {
		return nil, eris.Wrap(err, "unmarshal report")
	}
	return &r, nil
}
