package energy

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientRows is matched by InsufficientRowsError.
	ErrInsufficientRows = errors.New("energy: insufficient rows")
	// ErrInvalidBuilding is returned when a building identifier is not in the canonical set.
	ErrInvalidBuilding = errors.New("energy: invalid building")
	// ErrNoData is returned when a query that cannot render without data finds none.
	ErrNoData = errors.New("energy: no data")
	// ErrPersistence is matched by PersistenceError.
	ErrPersistence = errors.New("energy: persistence failure")
	// ErrUnknownSourceKind is returned for an unsupported upload kind.
	ErrUnknownSourceKind = errors.New("energy: unknown source kind")
	// ErrUnknownTable is returned for an unsupported table identity.
	ErrUnknownTable = errors.New("energy: unknown table")
	// ErrInvalidDate is returned when a date or timestamp is present but cannot be parsed.
	ErrInvalidDate = errors.New("energy: invalid date")
)

// InsufficientRowsError reports a source file shorter than its layout requires.
type InsufficientRowsError struct {
	Kind SourceKind
	Got  int
	Need int
}

func (e *InsufficientRowsError) Error() string {
	return fmt.Sprintf("energy: %s source has %d rows, need at least %d", e.Kind, e.Got, e.Need)
}

// Is makes errors.Is(err, ErrInsufficientRows) succeed.
func (e *InsufficientRowsError) Is(target error) bool {
	return target == ErrInsufficientRows
}

// PersistenceError wraps a storage failure for one row of a batch.
// Rows before Row were committed and are not rolled back.
type PersistenceError struct {
	Table Table
	Row   int
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("energy: persist %s row %d: %v", e.Table, e.Row, e.Err)
}

// Is makes errors.Is(err, ErrPersistence) succeed.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func (e *PersistenceError) Unwrap() error { return e.Err }
