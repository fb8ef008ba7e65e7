package audit

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/exvid/internal/ledger"
	"github.com/vmunix/exvid/pkg/catalog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func entry(title, muscle, slug string, g catalog.Gender) catalog.Entry {
	return catalog.Entry{
		ExerciseRef: catalog.ExerciseRef{Title: title, Equipment: "dumbbells", Muscle: muscle, Slug: slug},
		Gender:      g,
		URL:         "https://site.example/dumbbells/" + string(g) + "/" + muscle + "/" + slug,
	}
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
}

func fixture(t *testing.T) ([]catalog.Entry, string) {
	t.Helper()
	dir := t.TempDir()
	entries := []catalog.Entry{
		entry("Dumbbell Curl", "biceps", "dumbbell-curl", catalog.Male),
		entry("Dumbbell Curl", "biceps", "dumbbell-curl", catalog.Female),
		entry("Dumbbell Fly", "chest", "dumbbell-fly", catalog.Male),
		entry("Dumbbell Fly", "chest", "dumbbell-fly", catalog.Female),
		entry("Dumbbell Shrug", "traps", "dumbbell-shrug", catalog.Male),
	}
	// Curl: complete. Fly: one of four. Shrug: none, but misnamed on disk.
	for _, g := range []string{"Male", "Female"} {
		for _, a := range []string{"front", "side"} {
			touch(t, dir, "Biceps - Dumbbell Curl - "+g+"-"+a+".mp4")
		}
	}
	touch(t, dir, "Chest - Dumbbell Fly - Male-front.mp4")
	touch(t, dir, "Traps - Dumbell Shrugs - Male-front.mp4")
	return entries, dir
}

func TestAuditor_Run(t *testing.T) {
	entries, dir := fixture(t)

	instr := filepath.Join(t.TempDir(), "instructions.csv")
	a, err := ledger.OpenAppender(instr, []string{"title", "url"})
	require.NoError(t, err)
	require.NoError(t, a.Append([]string{"Dumbbell Curl", entries[0].URL}))
	require.NoError(t, a.Close())

	r, err := New(testLogger()).Run(entries, Options{
		VideoDir:        dir,
		InstructionsCSV: instr,
		Angles:          []string{"front", "side"},
		NearMisses:      true,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, r.URLs)
	assert.Equal(t, 3, r.Exercises)
	assert.Equal(t, 10, r.ExpectedVideos)
	assert.Equal(t, 1, r.WithAllVideos)
	assert.Equal(t, 1, r.WithSomeVideos)
	assert.Equal(t, 1, r.WithNoVideos)
	require.Len(t, r.MissingVideos, 5)
	assert.Equal(t, 5, r.FoundVideos())

	var shrugFront MissingVideo
	for _, mv := range r.MissingVideos {
		if mv.Entry.Slug == "dumbbell-shrug" && mv.Angle == "front" {
			shrugFront = mv
		}
		if mv.Entry.Slug == "dumbbell-fly" {
			assert.Empty(t, mv.NearMiss, "a different exercise is not a near miss")
		}
	}
	assert.Equal(t, "Traps - Dumbell Shrugs - Male-front.mp4", shrugFront.NearMiss)

	assert.Equal(t, 1, r.WithInstructions)
	assert.Len(t, r.MissingInstructions, 4)
}

func TestAuditor_NoAngles(t *testing.T) {
	_, err := New(testLogger()).Run(nil, Options{VideoDir: t.TempDir()})
	assert.Error(t, err)
}

func TestAuditor_MissingVideoDir(t *testing.T) {
	entries, _ := fixture(t)
	r, err := New(testLogger()).Run(entries, Options{
		VideoDir:   filepath.Join(t.TempDir(), "nope"),
		Angles:     []string{"front"},
		NearMisses: true,
	})
	require.NoError(t, err)
	assert.Len(t, r.MissingVideos, 5)
	assert.Equal(t, 3, r.WithNoVideos)
	assert.Len(t, r.MissingInstructions, 5)
}

func TestReport_WriteCSVs(t *testing.T) {
	entries, dir := fixture(t)
	r, err := New(testLogger()).Run(entries, Options{VideoDir: dir, Angles: []string{"front", "side"}})
	require.NoError(t, err)

	out := t.TempDir()
	videos := filepath.Join(out, MissingVideosFile)
	instr := filepath.Join(out, MissingInstructionsFile)
	require.NoError(t, r.WriteMissingVideos(videos))
	require.NoError(t, r.WriteMissingInstructions(instr))
	// A second write replaces the report instead of appending.
	require.NoError(t, r.WriteMissingVideos(videos))

	rows, err := ledger.Rows(videos)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "dumbbells|chest|dumbbell-fly", rows[0]["exercise_key"])
	assert.Equal(t, "side", rows[0]["missing_angle"])
	assert.Equal(t, "male", rows[0]["gender"])

	rows, err = ledger.Rows(instr)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestReport_WriteNothingWhenComplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), MissingVideosFile)
	require.NoError(t, (&Report{}).WriteMissingVideos(path))
	assert.NoFileExists(t, path)
}

func TestReport_Print(t *testing.T) {
	entries, dir := fixture(t)
	r, err := New(testLogger()).Run(entries, Options{VideoDir: dir, Angles: []string{"front", "side"}, NearMisses: true})
	require.NoError(t, err)

	var buf bytes.Buffer
	r.Print(&buf)
	out := buf.String()
	assert.Contains(t, out, "Video collection completion: 50.0% (5/10)")
	assert.Contains(t, out, "Exercises with all videos (2 angles): 1")
	assert.Contains(t, out, "PROBABLY MISNAMED")
	assert.Contains(t, out, "Instruction completion: 0.0% (0/5)")
}
