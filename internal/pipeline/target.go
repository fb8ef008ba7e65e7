package pipeline

import (
	"path/filepath"
	"strings"

	"github.com/vmunix/exvid/internal/ledger"
	"github.com/vmunix/exvid/pkg/catalog"
)

// Target is one (exercise, gender, angle) unit of work. Angle is empty for
// strategies that fetch a single video per page.
type Target struct {
	catalog.Entry
	Angle string
}

// Key returns the ledger key of the target.
func (t Target) Key() ledger.Key {
	return ledger.Key{PageURL: t.URL, Angle: t.Angle}
}

// Label is the progress label, "Push-up - Male (front)".
func (t Target) Label() string {
	if t.Angle == "" {
		return t.DisplayTitle()
	}
	return t.DisplayTitle() + " (" + t.Angle + ")"
}

// record starts a ledger record for the target.
func (t Target) record(method string) ledger.Record {
	return ledger.Record{
		Title:     t.DisplayTitle(),
		PageURL:   t.URL,
		Method:    method,
		Angle:     t.Angle,
		Equipment: t.Equipment,
		Slug:      t.Slug,
	}
}

// expand turns entries into targets, one per angle for per-angle strategies.
func expand(entries []catalog.Entry, s Strategy, angles []string) []Target {
	var out []Target
	for _, e := range entries {
		if !s.perAngle() {
			out = append(out, Target{Entry: e})
			continue
		}
		for _, a := range angles {
			out = append(out, Target{Entry: e, Angle: a})
		}
	}
	return out
}

// exerciseName recovers the exercise title from a ledger title. The trailing
// gender part is dropped, and so is a leading muscle part written by older
// runs ("Chest - Push-up - Male").
func exerciseName(title, muscle string) string {
	parts := strings.Split(title, " - ")
	if len(parts) > 1 {
		if _, ok := catalog.ParseGender(parts[len(parts)-1]); ok {
			parts = parts[:len(parts)-1]
		}
	}
	if len(parts) > 1 && muscle != "" && strings.EqualFold(parts[0], catalog.MuscleDisplay(muscle)) {
		parts = parts[1:]
	}
	return strings.TrimSpace(strings.Join(parts, " - "))
}

// pageForGender rewrites the gender segment of an exercise page URL.
func pageForGender(pageURL string, from, to catalog.Gender) string {
	if from == to {
		return pageURL
	}
	return strings.Replace(pageURL, "/"+string(from)+"/", "/"+string(to)+"/", 1)
}

// dest is the output path of a target's video.
func (p *Pipeline) dest(t Target) string {
	return filepath.Join(p.cfg.OutputDir, t.Filename(t.Angle))
}
