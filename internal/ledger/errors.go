package ledger

import "errors"

var (
	// ErrAlreadyRecorded indicates the target already has a success row.
	ErrAlreadyRecorded = errors.New("success already recorded")

	// ErrColumnCount indicates a row does not match the table's columns.
	ErrColumnCount = errors.New("wrong number of fields")
)
