// Package audit compares the catalog against the video directory and the
// instructions CSV and reports what is still missing.
package audit

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmunix/exvid/internal/ledger"
	"github.com/vmunix/exvid/pkg/catalog"
)

// Default report file names.
const (
	MissingVideosFile       = "missing_videos.csv"
	MissingInstructionsFile = "missing_instructions.csv"
)

// Report columns.
var (
	MissingVideoColumns       = []string{"title", "url", "equipment", "gender", "muscle", "slug", "missing_angle", "exercise_key"}
	MissingInstructionColumns = []string{"title", "url", "equipment", "gender", "muscle", "slug"}
)

// Options configures an audit.
type Options struct {
	VideoDir        string
	InstructionsCSV string // optional; missing file means no instructions yet
	Angles          []string
	NearMisses      bool // fuzzy-match misnamed files for missing videos
}

// MissingVideo is one expected file that does not exist.
type MissingVideo struct {
	Entry    catalog.Entry
	Angle    string
	NearMiss string // existing file that probably is this video, if any
}

// Report is the outcome of an audit.
type Report struct {
	Angles              []string
	URLs                int
	Exercises           int
	ExpectedVideos      int
	WithAllVideos       int
	WithSomeVideos      int
	WithNoVideos        int
	MissingVideos       []MissingVideo
	WithInstructions    int
	MissingInstructions []catalog.Entry
}

// FoundVideos returns the number of expected files present on disk.
func (r *Report) FoundVideos() int {
	return r.ExpectedVideos - len(r.MissingVideos)
}

// Auditor runs audits.
type Auditor struct {
	logger *slog.Logger
}

// New creates an auditor.
func New(logger *slog.Logger) *Auditor {
	return &Auditor{logger: logger.With("component", "audit")}
}

// Run checks every (exercise, gender, angle) file the catalog implies.
func (a *Auditor) Run(entries []catalog.Entry, opts Options) (*Report, error) {
	if len(opts.Angles) == 0 {
		return nil, fmt.Errorf("audit: no angles configured")
	}

	withInstructions := map[string]bool{}
	if opts.InstructionsCSV != "" {
		var err error
		withInstructions, err = ledger.ProcessedURLs(opts.InstructionsCSV, "url")
		if err != nil {
			return nil, fmt.Errorf("load instructions: %w", err)
		}
	}

	var index *dirIndex
	if opts.NearMisses {
		var err error
		index, err = indexDir(opts.VideoDir)
		if err != nil {
			return nil, err
		}
	}

	byGender := make(map[string]map[catalog.Gender]catalog.Entry)
	for _, e := range entries {
		if byGender[e.Key()] == nil {
			byGender[e.Key()] = make(map[catalog.Gender]catalog.Entry)
		}
		if _, ok := byGender[e.Key()][e.Gender]; !ok {
			byGender[e.Key()][e.Gender] = e
		}
	}

	exercises := catalog.Consolidate(entries)
	r := &Report{
		Angles:    opts.Angles,
		URLs:      len(entries),
		Exercises: len(exercises),
	}

	for _, ex := range exercises {
		expected := len(ex.Genders) * len(opts.Angles)
		r.ExpectedVideos += expected
		found := 0
		for _, g := range ex.Genders {
			e := byGender[ex.Key()][g]
			// The consolidated title wins so every gender checks the same name.
			e.Title = ex.Title
			for _, angle := range opts.Angles {
				name := e.Filename(angle)
				if fileExists(filepath.Join(opts.VideoDir, name)) {
					found++
					continue
				}
				mv := MissingVideo{Entry: e, Angle: angle}
				if index != nil {
					mv.NearMiss = index.nearMiss(e, angle)
				}
				r.MissingVideos = append(r.MissingVideos, mv)
			}
		}
		switch {
		case found == expected:
			r.WithAllVideos++
		case found > 0:
			r.WithSomeVideos++
		default:
			r.WithNoVideos++
		}
	}

	for _, e := range entries {
		if withInstructions[e.URL] {
			r.WithInstructions++
			continue
		}
		r.MissingInstructions = append(r.MissingInstructions, e)
	}

	a.logger.Info("audit complete",
		"exercises", r.Exercises,
		"expected_videos", r.ExpectedVideos,
		"missing_videos", len(r.MissingVideos),
		"missing_instructions", len(r.MissingInstructions))
	return r, nil
}

// WriteMissingVideos writes the missing-video report, replacing any previous
// one. Nothing is written when no video is missing.
func (r *Report) WriteMissingVideos(path string) error {
	if len(r.MissingVideos) == 0 {
		return nil
	}
	t, err := ledger.Create(path, MissingVideoColumns)
	if err != nil {
		return err
	}
	for _, mv := range r.MissingVideos {
		e := mv.Entry
		row := []string{e.Title, e.URL, e.Equipment, string(e.Gender), e.Muscle, e.Slug, mv.Angle, e.Key()}
		if err := t.Append(row); err != nil {
			_ = t.Close()
			return err
		}
	}
	return t.Close()
}

// WriteMissingInstructions writes the missing-instructions report, replacing
// any previous one. Nothing is written when nothing is missing.
func (r *Report) WriteMissingInstructions(path string) error {
	if len(r.MissingInstructions) == 0 {
		return nil
	}
	t, err := ledger.Create(path, MissingInstructionColumns)
	if err != nil {
		return err
	}
	for _, e := range r.MissingInstructions {
		if err := t.Append([]string{e.Title, e.URL, e.Equipment, string(e.Gender), e.Muscle, e.Slug}); err != nil {
			_ = t.Close()
			return err
		}
	}
	return t.Close()
}

// Print writes the human-readable summary.
func (r *Report) Print(w io.Writer) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(w, "%s\nSUMMARY\n%s\n", rule, rule)

	fmt.Fprintf(w, "\nEXERCISE ANALYSIS:\n")
	fmt.Fprintf(w, "  Total exercise URLs: %d\n", r.URLs)
	fmt.Fprintf(w, "  Unique exercises: %d\n", r.Exercises)
	fmt.Fprintf(w, "  Expected total videos: %d\n", r.ExpectedVideos)

	fmt.Fprintf(w, "\nVIDEO ANALYSIS:\n")
	fmt.Fprintf(w, "  Exercises with all videos (%d angles): %d\n", len(r.Angles), r.WithAllVideos)
	fmt.Fprintf(w, "  Exercises with some videos: %d\n", r.WithSomeVideos)
	fmt.Fprintf(w, "  Exercises with no videos: %d\n", r.WithNoVideos)
	fmt.Fprintf(w, "  Total missing video files: %d\n", len(r.MissingVideos))
	fmt.Fprintf(w, "  Video collection completion: %.1f%% (%d/%d)\n",
		percent(r.FoundVideos(), r.ExpectedVideos), r.FoundVideos(), r.ExpectedVideos)

	nearMisses := 0
	for _, mv := range r.MissingVideos {
		if mv.NearMiss != "" {
			if nearMisses == 0 {
				fmt.Fprintf(w, "\nPROBABLY MISNAMED:\n")
			}
			nearMisses++
			fmt.Fprintf(w, "  %s  <-  %s\n", mv.Entry.Filename(mv.Angle), mv.NearMiss)
		}
	}

	fmt.Fprintf(w, "\nINSTRUCTION ANALYSIS:\n")
	fmt.Fprintf(w, "  Exercises with instructions: %d\n", r.WithInstructions)
	fmt.Fprintf(w, "  Exercises missing instructions: %d\n", len(r.MissingInstructions))
	fmt.Fprintf(w, "  Instruction completion: %.1f%% (%d/%d)\n",
		percent(r.WithInstructions, r.URLs), r.WithInstructions, r.URLs)
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
