// Package title normalizes exercise names and fuzzy-matches them against
// names found on disk or in ledgers.
package title

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var numberWords = map[string]string{
	"one": "1", "two": "2", "three": "3", "four": "4", "five": "5",
	"six": "6", "seven": "7", "eight": "8", "nine": "9", "ten": "10",
}

// CleanTitle normalizes an exercise title for matching purposes.
// Lowercases, removes accents and punctuation, turns number words into
// digits and collapses whitespace. "Single-Arm Dumbbell Row (Bench)" becomes
// "single arm dumbbell row bench".
func CleanTitle(title string) string {
	s := strings.ToLower(title)
	s = removeAccents(s)

	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, "’", "")

	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	for i, f := range fields {
		if d, ok := numberWords[f]; ok {
			fields[i] = d
		}
	}
	return strings.Join(fields, " ")
}

func removeAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// StripFileDecorations reduces a video file name to its exercise title:
// "Biceps - Dumbbell Curl - Male-front.mp4" becomes "Dumbbell Curl".
// Names that do not follow the "{muscle} - {title} - {gender}" layout are
// returned without their extension.
func StripFileDecorations(name string) string {
	name = strings.TrimSuffix(name, ".mp4")
	name = strings.TrimSuffix(name, ".MP4")
	parts := strings.Split(name, " - ")
	if len(parts) < 3 {
		return name
	}
	return strings.Join(parts[1:len(parts)-1], " - ")
}
