package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	loadprofile "feeder-analytics/internal/loadprofile/domain"
)

var recordColumns = []string{"time", "substation", "value", "value_text"}

// RecordStore is a Postgres record store. A replacement writes into a staging table and
// commit swaps it with the live table in one transaction, so readers see either the old
// or the new content.
type RecordStore struct {
	db *sql.DB
}

// NewRecordStore constructs a store on an open pgx-backed *sql.DB.
func NewRecordStore(db *sql.DB) *RecordStore {
	return &RecordStore{db: db}
}

// Ping checks connectivity.
func (s *RecordStore) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("%w: nil db", loadprofile.ErrStoreUnavailable)
	}
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", loadprofile.ErrStoreUnavailable, err)
	}
	return nil
}

// BeginReplace creates an empty staging table for table.
func (s *RecordStore) BeginReplace(ctx context.Context, table string) (loadprofile.RecordBatch, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("record store: nil db")
	}
	if table == "" {
		return nil, loadprofile.ErrEmptyTable
	}
	staging := stagingName(table)
	query := fmt.Sprintf(`
CREATE TABLE %s (
	time TIMESTAMPTZ NOT NULL,
	substation TEXT NOT NULL,
	value DOUBLE PRECISION,
	value_text TEXT
)`, pgx.Identifier{staging}.Sanitize())
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return nil, err
	}
	return &replaceBatch{db: s.db, table: table, staging: staging}, nil
}

// QueryAll returns every record of table ordered by time and series.
func (s *RecordStore) QueryAll(ctx context.Context, table string) ([]loadprofile.Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("record store: nil db")
	}
	if table == "" {
		return nil, loadprofile.ErrEmptyTable
	}
	query := fmt.Sprintf(`
SELECT time, substation, value, value_text
FROM %s
ORDER BY time ASC, substation ASC`, pgx.Identifier{table}.Sanitize())

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []loadprofile.Record
	for rows.Next() {
		var (
			rec       loadprofile.Record
			value     sql.NullFloat64
			valueText sql.NullString
		)
		if err := rows.Scan(&rec.Time, &rec.SeriesID, &value, &valueText); err != nil {
			return nil, err
		}
		rec.Time = rec.Time.UTC()
		switch {
		case value.Valid:
			rec.Value = loadprofile.NumberCell(value.Float64)
		case valueText.Valid:
			rec.Value = loadprofile.TextCell(valueText.String)
		default:
			rec.Value = loadprofile.EmptyCell()
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type replaceBatch struct {
	db      *sql.DB
	table   string
	staging string
	done    bool
}

// Append bulk-loads records into the staging table with COPY.
func (b *replaceBatch) Append(ctx context.Context, records []loadprofile.Record) error {
	if b.done {
		return errors.New("record store: batch already finished")
	}
	if len(records) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		var (
			value     any
			valueText any
		)
		switch rec.Value.Kind {
		case loadprofile.CellNumber:
			value = rec.Value.Number
		case loadprofile.CellText:
			valueText = rec.Value.Text
		}
		rows = append(rows, []any{rec.Time.UTC(), rec.SeriesID, value, valueText})
	}

	conn, err := b.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return conn.Raw(func(driverConn any) error {
		stdConn, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("record store: unexpected driver connection %T", driverConn)
		}
		copied, err := stdConn.Conn().CopyFrom(ctx, pgx.Identifier{b.staging}, recordColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return err
		}
		if copied != int64(len(rows)) {
			return fmt.Errorf("record store: copied %d of %d rows", copied, len(rows))
		}
		return nil
	})
}

// Commit drops the live table and renames staging in its place.
func (b *replaceBatch) Commit(ctx context.Context) error {
	if b.done {
		return errors.New("record store: batch already finished")
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	live := pgx.Identifier{b.table}.Sanitize()
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", live)); err != nil {
		_ = tx.Rollback()
		return err
	}
	rename := fmt.Sprintf("ALTER TABLE %s RENAME TO %s", pgx.Identifier{b.staging}.Sanitize(), live)
	if _, err := tx.ExecContext(ctx, rename); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	b.done = true
	return nil
}

// Abort drops the staging table and leaves the live table untouched.
func (b *replaceBatch) Abort(ctx context.Context) error {
	if b.done {
		return nil
	}
	b.done = true
	_, err := b.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", pgx.Identifier{b.staging}.Sanitize()))
	return err
}

func stagingName(table string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	name := table + "_staging_" + suffix
	// Postgres truncates identifiers at 63 bytes.
	if len(name) > 63 {
		name = name[len(name)-63:]
	}
	return name
}
