package title

import (
	"regexp"

	"github.com/hbollon/go-edlib"
)

// numberRegex extracts numbers from titles (e.g., "45" in "45 degree")
var numberRegex = regexp.MustCompile(`\b(\d+)\b`)

// MatchConfidence represents the confidence level of a title match.
type MatchConfidence int

const (
	ConfidenceNone   MatchConfidence = iota // Score < 0.80
	ConfidenceLow                           // Score >= 0.80
	ConfidenceMedium                        // Score >= 0.90
	ConfidenceHigh                          // Score >= 0.97
)

func (c MatchConfidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceLow:
		return "low"
	default:
		return "none"
	}
}

// MatchResult represents the result of a fuzzy title match.
type MatchResult struct {
	Title      string          // The matched candidate, as passed in
	Score      float64         // Jaro-Winkler similarity score (0.0-1.0)
	Confidence MatchConfidence // Confidence level based on score
}

// MatchTitle finds the best match for an exercise title among candidates.
// Uses Jaro-Winkler similarity over cleaned titles; titles that carry
// numbers are penalized when the candidate's numbers differ ("45 degree"
// must not match "90 degree"). Exercise names are short and share long
// prefixes, so thresholds sit higher than for general text.
func MatchTitle(want string, candidates []string) MatchResult {
	best := MatchResult{Confidence: ConfidenceNone}
	if len(candidates) == 0 {
		return best
	}

	normalized := CleanTitle(want)
	wantNumbers := numberRegex.FindAllString(normalized, -1)

	for _, candidate := range candidates {
		normalizedCandidate := CleanTitle(candidate)
		score := float64(edlib.JaroWinklerSimilarity(normalized, normalizedCandidate))
		score = adjustScoreForNumbers(score, wantNumbers, numberRegex.FindAllString(normalizedCandidate, -1))

		if score > best.Score {
			best.Title = candidate
			best.Score = score
		}
	}

	switch {
	case best.Score >= 0.97:
		best.Confidence = ConfidenceHigh
	case best.Score >= 0.90:
		best.Confidence = ConfidenceMedium
	case best.Score >= 0.80:
		best.Confidence = ConfidenceLow
	default:
		best.Confidence = ConfidenceNone
		best.Title = ""
	}

	return best
}

// adjustScoreForNumbers penalizes candidates whose numbers disagree with
// the wanted title's numbers and rewards an exact agreement.
func adjustScoreForNumbers(score float64, wantNums, candidateNums []string) float64 {
	if len(wantNums) == 0 {
		return score
	}
	if len(candidateNums) == 0 {
		return score * 0.85
	}

	candidateSet := make(map[string]bool, len(candidateNums))
	for _, n := range candidateNums {
		candidateSet[n] = true
	}
	for _, n := range wantNums {
		if !candidateSet[n] {
			return score * 0.90
		}
	}
	return min(score*1.02, 1.0)
}
