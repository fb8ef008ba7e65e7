package ytdlp

import "errors"

var (
	// ErrNotInstalled indicates the yt-dlp binary is not on PATH.
	ErrNotInstalled = errors.New("yt-dlp is not installed or not on PATH")

	// ErrFailed indicates yt-dlp exited unsuccessfully.
	ErrFailed = errors.New("yt-dlp failed")
)
