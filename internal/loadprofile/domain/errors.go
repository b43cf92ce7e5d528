package loadprofile

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrStoreUnavailable is returned when the record store cannot be reached at the start of a run.
	ErrStoreUnavailable = errors.New("loadprofile: store unavailable")
	// ErrSchemaMismatch is returned when a sheet has no usable time or series columns.
	ErrSchemaMismatch = errors.New("loadprofile: schema mismatch")
	// ErrTimeParse is returned when a time cell cannot be parsed.
	ErrTimeParse = errors.New("loadprofile: unparseable time")
	// ErrDuplicateKey is returned when a (time, series) pair occurs more than once.
	ErrDuplicateKey = errors.New("loadprofile: duplicate time/series key")
	// ErrNoMatchingSeries is reported when no series matches the keyword in a period.
	ErrNoMatchingSeries = errors.New("loadprofile: no matching series")
	// ErrInsufficientSamples is returned when the sampling interval cannot be inferred.
	ErrInsufficientSamples = errors.New("loadprofile: insufficient samples")
	// ErrInvalidValue is returned when a cell cannot be coerced to a number.
	ErrInvalidValue = errors.New("loadprofile: invalid value")
	// ErrInvalidYearRange is returned when start year is after end year.
	ErrInvalidYearRange = errors.New("loadprofile: invalid year range")
	// ErrEmptyTable is returned when a store table name is empty.
	ErrEmptyTable = errors.New("loadprofile: empty table name")
)

// SheetError binds a sheet-level failure to its file and sheet.
type SheetError struct {
	File  string
	Sheet string
	Err   error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("file %q sheet %q: %v", e.File, e.Sheet, e.Err)
}

func (e *SheetError) Unwrap() error { return e.Err }

// DuplicateKeyError reports the first ambiguous pivot key.
type DuplicateKeyError struct {
	Time     time.Time
	SeriesID string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%v: time=%s series=%q", ErrDuplicateKey, e.Time.Format(time.RFC3339), e.SeriesID)
}

func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicateKey }

// PeriodError binds an aggregation failure to a period and series.
type PeriodError struct {
	Year     int
	Month    int
	SeriesID string
	Err      error
}

func (e *PeriodError) Error() string {
	return fmt.Sprintf("period %s series %q: %v", PeriodLabel(e.Year, e.Month), e.SeriesID, e.Err)
}

func (e *PeriodError) Unwrap() error { return e.Err }
