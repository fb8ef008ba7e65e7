package download

import "errors"

// Sentinel errors for the download package.
var (
	// ErrDownloadFailed wraps every transfer or filesystem failure.
	ErrDownloadFailed = errors.New("download failed")

	// ErrBadStatus indicates the server answered with a non-2xx status.
	ErrBadStatus = errors.New("unexpected http status")

	// ErrStalled indicates no response or body data arrived within the timeout.
	ErrStalled = errors.New("transfer stalled")
)
