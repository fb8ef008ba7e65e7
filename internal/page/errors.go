package page

import "errors"

// ErrFetchFailed indicates a page could not be retrieved.
var ErrFetchFailed = errors.New("page fetch failed")
