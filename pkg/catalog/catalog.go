// Package catalog extracts exercise targets from a static listing page.
package catalog

import (
	"fmt"
	"net/url"
	"strings"
)

// Gender is the gendered variant of an exercise page.
type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

// ParseGender parses a lowercase or capitalized gender label.
func ParseGender(s string) (Gender, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return Male, true
	case "female":
		return Female, true
	}
	return "", false
}

// Display returns the capitalized form used in titles and file names.
func (g Gender) Display() string {
	switch g {
	case Male:
		return "Male"
	case Female:
		return "Female"
	}
	return string(g)
}

// GenderFilter selects which gendered links to keep.
type GenderFilter string

const (
	FilterBoth   GenderFilter = "both"
	FilterMale   GenderFilter = "male"
	FilterFemale GenderFilter = "female"
)

// ParseGenderFilter parses a --gender value. Empty means both.
func ParseGenderFilter(s string) (GenderFilter, error) {
	switch GenderFilter(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterBoth:
		return FilterBoth, nil
	case FilterMale:
		return FilterMale, nil
	case FilterFemale:
		return FilterFemale, nil
	}
	return "", fmt.Errorf("%w: %q (want male, female or both)", ErrInvalidGender, s)
}

// Allows reports whether g passes the filter.
func (f GenderFilter) Allows(g Gender) bool {
	return f == "" || f == FilterBoth || string(f) == string(g)
}

// ExerciseRef identifies one exercise independent of gender.
type ExerciseRef struct {
	Title     string
	Equipment string
	Muscle    string
	Slug      string
}

// Key returns the gender-independent uniqueness key.
func (r ExerciseRef) Key() string {
	return r.Equipment + "|" + r.Muscle + "|" + r.Slug
}

// Entry is one gendered exercise page found in the listing.
type Entry struct {
	ExerciseRef
	Gender  Gender
	URL     string
	Section string // listing section header, usually the muscle group
}

// DisplayTitle returns the title recorded in the run ledger.
func (e Entry) DisplayTitle() string {
	return e.Title + " - " + e.Gender.Display()
}

// Filename returns the local file name for an angle. An empty angle yields
// the angle-less name.
func (e Entry) Filename(angle string) string {
	return VideoFilename(e.Muscle, e.Title, e.Gender, angle)
}

// PagePath is the decoded path of an exercise page:
// /{equipment}/{gender}/{muscle}/{slug}.
type PagePath struct {
	Equipment string
	Gender    Gender
	Muscle    string
	Slug      string
}

// minPathSegments is the number of path segments an exercise link needs.
const minPathSegments = 4

// ParsePagePath decodes an absolute or relative exercise page URL. ok is false
// when the path has too few segments or the gender segment is unknown.
func ParsePagePath(rawURL string) (PagePath, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return PagePath{}, false
	}
	var parts []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < minPathSegments {
		return PagePath{}, false
	}
	g, ok := ParseGender(parts[1])
	if !ok {
		return PagePath{}, false
	}
	return PagePath{
		Equipment: parts[0],
		Gender:    g,
		Muscle:    parts[2],
		Slug:      parts[len(parts)-1],
	}, true
}

// Exercise groups the gendered entries of one ExerciseRef.
type Exercise struct {
	ExerciseRef
	Genders []Gender // first-seen order
	URLs    map[Gender]string
}

// Consolidate groups entries by ExerciseRef.Key, keeping first-seen order.
func Consolidate(entries []Entry) []Exercise {
	index := make(map[string]int)
	var out []Exercise
	for _, e := range entries {
		key := e.Key()
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, Exercise{ExerciseRef: e.ExerciseRef, URLs: make(map[Gender]string)})
		}
		ex := &out[i]
		if _, dup := ex.URLs[e.Gender]; dup {
			continue
		}
		ex.URLs[e.Gender] = e.URL
		ex.Genders = append(ex.Genders, e.Gender)
	}
	return out
}
