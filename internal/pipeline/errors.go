package pipeline

import "errors"

var (
	// ErrUnknownStrategy indicates an unrecognized --method value.
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrNoYTDLP indicates the yt-dlp strategy was selected without a client.
	ErrNoYTDLP = errors.New("yt-dlp strategy requires a yt-dlp client")

	// ErrNoAngles indicates an angle-based strategy ran with no angles.
	ErrNoAngles = errors.New("no angles configured")
)
