package catalog

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// illegalChars are characters not allowed in filenames on common filesystems.
var illegalChars = regexp.MustCompile(`[<>:"/\\|?*\x00]`)

// multiSpace matches multiple consecutive spaces.
var multiSpace = regexp.MustCompile(`\s+`)

// SanitizeFilename replaces characters that are unsafe in file names and
// collapses whitespace.
func SanitizeFilename(name string) string {
	name = illegalChars.ReplaceAllString(name, "_")
	name = multiSpace.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// MuscleDisplay turns a muscle path segment into its display form,
// e.g. "lower-back" becomes "Lower Back".
func MuscleDisplay(muscle string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(muscle, "-", " "))
}

// VideoFilename builds "{Muscle} - {Title} - {Gender}-{angle}.mp4", or the
// angle-less "{Muscle} - {Title} - {Gender}.mp4" when angle is empty.
func VideoFilename(muscle, title string, g Gender, angle string) string {
	base := SanitizeFilename(MuscleDisplay(muscle) + " - " + title + " - " + g.Display())
	if base == "" {
		base = "video"
	}
	if angle == "" {
		return base + ".mp4"
	}
	return base + "-" + SanitizeFilename(angle) + ".mp4"
}
