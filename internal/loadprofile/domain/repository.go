package loadprofile

import "context"

// RecordStore persists normalized records. A table is only ever rewritten as a whole:
// BeginReplace stages the new content and Commit swaps it in.
type RecordStore interface {
	Ping(ctx context.Context) error
	BeginReplace(ctx context.Context, table string) (RecordBatch, error)
	QueryAll(ctx context.Context, table string) ([]Record, error)
}

// RecordBatch is an in-progress full replacement of one table.
// Until Commit returns nil the live table keeps its previous content.
type RecordBatch interface {
	Append(ctx context.Context, records []Record) error
	Commit(ctx context.Context) error
	Abort(ctx context.Context) error
}

// ColumnType is the storage type of a report column.
type ColumnType string

const (
	ColumnText    ColumnType = "text"
	ColumnInteger ColumnType = "integer"
	ColumnFloat   ColumnType = "float"
)

// Column describes one report table column.
type Column struct {
	Name string
	Type ColumnType
}

// Table is a fully materialized report table.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// ReportStore replaces report tables wholesale.
type ReportStore interface {
	ReplaceTables(ctx context.Context, tables []Table) error
}
