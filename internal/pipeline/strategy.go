package pipeline

import (
	"fmt"
	"strings"
)

// Strategy selects how a target's media URL is resolved.
type Strategy string

const (
	StrategyGuess  Strategy = "guess"      // probe generated candidate URLs
	StrategyParse  Strategy = "parse"      // read video URLs from the exercise page
	StrategyAuto   Strategy = "auto"       // guess, then parse
	StrategyDirect Strategy = "direct-mp4" // one angle-less video per page
	StrategyYTDLP  Strategy = "yt-dlp"     // hand the page to yt-dlp
	StrategyBoth   Strategy = "both"       // retry only: parse, then guess
)

// ParseStrategy maps a configured method name to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "guess", "guess-mp4":
		return StrategyGuess, nil
	case "parse":
		return StrategyParse, nil
	case "", "auto":
		return StrategyAuto, nil
	case "direct", "direct-mp4":
		return StrategyDirect, nil
	case "yt-dlp", "ytdlp":
		return StrategyYTDLP, nil
	case "both":
		return StrategyBoth, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// perAngle reports whether the strategy resolves one video per angle.
func (s Strategy) perAngle() bool {
	switch s {
	case StrategyDirect, StrategyYTDLP:
		return false
	}
	return true
}

// Method values recorded in the ledger.
const (
	MethodGuess      = "guess-mp4"
	MethodParse      = "parse"
	MethodAuto       = "auto"
	MethodAutoGuess  = "auto-guess"
	MethodAutoParse  = "auto-parse"
	MethodDirect     = "direct-mp4"
	MethodYTDLP      = "yt-dlp"
	MethodRetry      = "retry"
	MethodRetryGuess = "retry-guess"
	MethodRetryParse = "retry-parse"
	MethodHarvest    = "harvest"
)
