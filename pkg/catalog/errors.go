package catalog

import "errors"

var (
	// ErrEmptyCatalog indicates the listing produced no exercise links.
	ErrEmptyCatalog = errors.New("no exercise links found in listing")

	// ErrEmptyInput indicates stdin was selected but carried no data.
	ErrEmptyInput = errors.New("listing input is empty")

	// ErrNoSource indicates no listing source was configured.
	ErrNoSource = errors.New("no listing source: pass a URL, --html-file or --stdin-html")

	// ErrInvalidGender indicates an unknown gender filter value.
	ErrInvalidGender = errors.New("invalid gender")
)
