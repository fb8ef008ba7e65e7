package ledger

import "unicode/utf8"

// Reason is the failure code recorded in the failure ledger.
type Reason string

const (
	// ReasonNoGuess means candidate URLs were generated but none existed.
	ReasonNoGuess Reason = "no_guess"
	// ReasonNoMP4InPage means the page carried no usable .mp4 link.
	ReasonNoMP4InPage Reason = "no_mp4_in_page"
	// ReasonNoGuessOrParse means auto mode exhausted both strategies.
	ReasonNoGuessOrParse Reason = "no_guess_or_parse"
	// ReasonDownloadFailed means the URL resolved but the transfer failed.
	ReasonDownloadFailed Reason = "download_failed"
)

// maxReasonLen caps free-form error reasons.
const maxReasonLen = 200

// ErrorReason converts an unexpected error into the catch-all reason: its
// message, truncated to 200 characters.
func ErrorReason(err error) Reason {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if utf8.RuneCountInString(msg) > maxReasonLen {
		msg = string([]rune(msg)[:maxReasonLen])
	}
	return Reason(msg)
}

// Known reports whether r is one of the fixed codes.
func (r Reason) Known() bool {
	switch r {
	case ReasonNoGuess, ReasonNoMP4InPage, ReasonNoGuessOrParse, ReasonDownloadFailed:
		return true
	}
	return false
}
