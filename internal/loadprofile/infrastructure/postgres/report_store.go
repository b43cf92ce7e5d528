package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	loadprofile "feeder-analytics/internal/loadprofile/domain"
)

// ReportStore writes report tables with drop-and-recreate semantics.
type ReportStore struct {
	db *sql.DB
}

// NewReportStore constructs a report store.
func NewReportStore(db *sql.DB) *ReportStore {
	return &ReportStore{db: db}
}

// ReplaceTables recreates every table inside one transaction.
func (s *ReportStore) ReplaceTables(ctx context.Context, tables []loadprofile.Table) error {
	if s == nil || s.db == nil {
		return errors.New("report store: nil db")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, table := range tables {
		if err := replaceTable(ctx, tx, table); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("report store: replace %s: %w", table.Name, err)
		}
	}
	return tx.Commit()
}

func replaceTable(ctx context.Context, tx *sql.Tx, table loadprofile.Table) error {
	if table.Name == "" {
		return loadprofile.ErrEmptyTable
	}
	if len(table.Columns) == 0 {
		return errors.New("no columns")
	}
	name := pgx.Identifier{table.Name}.Sanitize()
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", name)); err != nil {
		return err
	}

	defs := make([]string, 0, len(table.Columns))
	cols := make([]string, 0, len(table.Columns))
	placeholders := make([]string, 0, len(table.Columns))
	for i, col := range table.Columns {
		sqlType, err := columnSQLType(col.Type)
		if err != nil {
			return err
		}
		ident := pgx.Identifier{col.Name}.Sanitize()
		defs = append(defs, ident+" "+sqlType)
		cols = append(cols, ident)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", name, strings.Join(defs, ",\n\t"))); err != nil {
		return err
	}
	if len(table.Rows) == 0 {
		return nil
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", name, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range table.Rows {
		if len(row) != len(table.Columns) {
			return fmt.Errorf("row %d: %d values for %d columns", i, len(row), len(table.Columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

func columnSQLType(t loadprofile.ColumnType) (string, error) {
	switch t {
	case loadprofile.ColumnText:
		return "TEXT", nil
	case loadprofile.ColumnInteger:
		return "BIGINT", nil
	case loadprofile.ColumnFloat:
		return "DOUBLE PRECISION", nil
	default:
		return "", fmt.Errorf("unsupported column type %q", t)
	}
}
