package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/exvid/internal/download"
	"github.com/vmunix/exvid/internal/ledger"
	"github.com/vmunix/exvid/internal/probe"
	"github.com/vmunix/exvid/internal/probe/mocks"
	"github.com/vmunix/exvid/pkg/candidate"
	"github.com/vmunix/exvid/pkg/catalog"
)

const (
	testOrigin = "https://media.example"
	pushUpPage = "https://site.example/bodyweight/male/chest/push-up"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pushUpEntry() catalog.Entry {
	return catalog.Entry{
		ExerciseRef: catalog.ExerciseRef{Title: "Push-up", Equipment: "bodyweight", Muscle: "chest", Slug: "push-up"},
		Gender:      catalog.Male,
		URL:         pushUpPage,
		Section:     "Chest",
	}
}

func branded(name string) string { return candidate.Branded.Expand(testOrigin, name) }
func plain(name string) string   { return candidate.Plain.Expand(testOrigin, name) }

// fakePages serves fixed video lists and counts fetches per page.
type fakePages struct {
	mu     sync.Mutex
	videos map[string][]string
	calls  map[string]int
}

func newFakePages(videos map[string][]string) *fakePages {
	return &fakePages{videos: videos, calls: make(map[string]int)}
}

func (f *fakePages) Videos(_ context.Context, pageURL string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[pageURL]++
	urls, ok := f.videos[pageURL]
	if !ok {
		return nil, errors.New("404")
	}
	return urls, nil
}

type fetchCall struct {
	URL          string
	Dest         string
	SkipExisting bool
}

// fakeDownloader writes a small file per call unless told to fail.
type fakeDownloader struct {
	mu    sync.Mutex
	calls []fetchCall
	fail  map[string]bool
}

func (f *fakeDownloader) Fetch(_ context.Context, url, dest string, skipExisting bool) (download.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fetchCall{URL: url, Dest: dest, SkipExisting: skipExisting})
	if f.fail[url] {
		return download.Outcome{}, errors.New("connection reset")
	}
	if _, err := os.Stat(dest); err == nil && skipExisting {
		return download.Outcome{Path: dest, Skipped: true}, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return download.Outcome{}, err
	}
	if err := os.WriteFile(dest, []byte("mp4"), 0o644); err != nil {
		return download.Outcome{}, err
	}
	return download.Outcome{Path: dest, Bytes: 3}, nil
}

// existsOnly returns a prober that knows exactly one URL.
func existsOnly(want string) probe.Prober {
	return probe.ProberFunc(func(_ context.Context, url string) (bool, error) {
		return url == want, nil
	})
}

type harness struct {
	dir        string
	out        string
	pages      *fakePages
	downloader *fakeDownloader
	ledger     *ledger.Ledger
	stdout     *bytes.Buffer
}

func newHarness(t *testing.T, videos map[string][]string) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		dir:        dir,
		out:        filepath.Join(dir, "videos"),
		pages:      newFakePages(videos),
		downloader: &fakeDownloader{fail: map[string]bool{}},
		stdout:     &bytes.Buffer{},
	}
	h.reopen(t)
	return h
}

func (h *harness) reopen(t *testing.T) {
	t.Helper()
	if h.ledger != nil {
		require.NoError(t, h.ledger.Close())
	}
	l, err := ledger.Open(h.dir, testLogger())
	require.NoError(t, err)
	h.ledger = l
	t.Cleanup(func() { _ = l.Close() })
}

func (h *harness) pipeline(cfg Config, prober probe.Prober) *Pipeline {
	cfg.MediaOrigin = testOrigin
	cfg.OutputDir = h.out
	if cfg.Angles == nil {
		cfg.Angles = []string{"front", "side"}
	}
	return New(cfg, Deps{
		Resolver:   probe.NewResolver(prober, 4, testLogger()),
		Pages:      h.pages,
		Downloader: h.downloader,
		Done:       h.ledger,
		Reporter:   NewLedgerReporter(h.ledger, nil, h.stdout),
	}, testLogger())
}

func (h *harness) successes(t *testing.T) []ledger.Record {
	t.Helper()
	records, err := ledger.ReadRecords(filepath.Join(h.dir, ledger.SuccessFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	return records
}

func (h *harness) failures(t *testing.T) []ledger.Record {
	t.Helper()
	records, err := ledger.ReadRecords(filepath.Join(h.dir, ledger.FailureFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	return records
}

func TestRun_AutoGuessThenParse(t *testing.T) {
	sideURL := testOrigin + "/media/uploads/videos/branded/male-push-up-side.mp4"
	h := newHarness(t, map[string][]string{pushUpPage: {sideURL}})
	frontURL := branded("male-Bodyweight-push-up-front")

	p := h.pipeline(Config{Strategy: StrategyAuto}, existsOnly(frontURL))
	sum, err := p.Run(context.Background(), []catalog.Entry{pushUpEntry()})
	require.NoError(t, err)
	assert.Equal(t, Summary{Resolved: 2}, sum)
	assert.Equal(t, 0, sum.ExitCode())

	got := h.successes(t)
	require.Len(t, got, 2)
	assert.Equal(t, MethodAutoGuess, got[0].Method)
	assert.Equal(t, "front", got[0].Angle)
	assert.Equal(t, frontURL, got[0].FinalURL)
	assert.Equal(t, filepath.Join(h.out, "Chest - Push-up - Male-front.mp4"), got[0].Filename)
	assert.Equal(t, "Push-up - Male", got[0].Title)

	assert.Equal(t, MethodAutoParse, got[1].Method)
	assert.Equal(t, sideURL, got[1].FinalURL)
	assert.FileExists(t, filepath.Join(h.out, "Chest - Push-up - Male-side.mp4"))

	assert.Equal(t, 1, h.pages.calls[pushUpPage], "page fetched once for both angles")
	assert.Contains(t, h.stdout.String(), "✓ Push-up - Male (front)")
}

func TestRun_ResumeSkipsLedgerTargets(t *testing.T) {
	h := newHarness(t, map[string][]string{pushUpPage: {}})
	frontURL := branded("male-push-up-front")
	sideURL := branded("male-push-up-side")
	prober := probe.ProberFunc(func(_ context.Context, url string) (bool, error) {
		return url == frontURL || url == sideURL, nil
	})

	_, err := h.pipeline(Config{Strategy: StrategyGuess}, prober).Run(context.Background(), []catalog.Entry{pushUpEntry()})
	require.NoError(t, err)
	first := h.successes(t)
	require.Len(t, first, 2)
	require.Len(t, h.downloader.calls, 2)

	h.reopen(t)
	sum, err := h.pipeline(Config{Strategy: StrategyGuess}, prober).Run(context.Background(), []catalog.Entry{pushUpEntry()})
	require.NoError(t, err)
	assert.Equal(t, Summary{Skipped: 2}, sum)
	assert.Len(t, h.downloader.calls, 2, "no new downloads")
	assert.Equal(t, first, h.successes(t))
	assert.Contains(t, h.stdout.String(), "(skipped: ledger)")
}

func TestRun_SkipExistingFile(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, os.MkdirAll(h.out, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(h.out, "Chest - Push-up - Male-front.mp4"), []byte("x"), 0o644))

	p := h.pipeline(Config{Strategy: StrategyGuess, Angles: []string{"front"}, SkipExisting: true}, existsOnly(""))
	sum, err := p.Run(context.Background(), []catalog.Entry{pushUpEntry()})
	require.NoError(t, err)
	assert.Equal(t, Summary{Skipped: 1}, sum)
	assert.Empty(t, h.downloader.calls)
}

func TestRun_GuessFailureRecorded(t *testing.T) {
	h := newHarness(t, nil)
	p := h.pipeline(Config{Strategy: StrategyGuess, Angles: []string{"front"}}, existsOnly(""))

	sum, err := p.Run(context.Background(), []catalog.Entry{pushUpEntry()})
	require.NoError(t, err)
	assert.Equal(t, Summary{Failed: 1}, sum)
	assert.Equal(t, 2, sum.ExitCode())

	got := h.failures(t)
	require.Len(t, got, 1)
	assert.Equal(t, ledger.Record{
		Title:     "Push-up - Male",
		PageURL:   pushUpPage,
		Method:    MethodGuess,
		Angle:     "front",
		Reason:    ledger.ReasonNoGuess,
		Equipment: "bodyweight",
		Slug:      "push-up",
	}, got[0])
}

func TestRun_AutoExhausted(t *testing.T) {
	h := newHarness(t, nil)
	p := h.pipeline(Config{Strategy: StrategyAuto, Angles: []string{"front"}}, existsOnly(""))

	sum, err := p.Run(context.Background(), []catalog.Entry{pushUpEntry()})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	got := h.failures(t)
	require.Len(t, got, 1)
	assert.Equal(t, MethodAuto, got[0].Method)
	assert.Equal(t, ledger.ReasonNoGuessOrParse, got[0].Reason)
}

func TestRun_DownloadFailure(t *testing.T) {
	frontURL := branded("male-push-up-front")
	h := newHarness(t, nil)
	h.downloader.fail[frontURL] = true
	p := h.pipeline(Config{Strategy: StrategyGuess, Angles: []string{"front"}}, existsOnly(frontURL))

	sum, err := p.Run(context.Background(), []catalog.Entry{pushUpEntry()})
	require.NoError(t, err)
	assert.Equal(t, Summary{Failed: 1}, sum)
	assert.Empty(t, h.successes(t))
	got := h.failures(t)
	require.Len(t, got, 1)
	assert.Equal(t, ledger.ReasonDownloadFailed, got[0].Reason)
}

func TestRun_AnglelessFallback(t *testing.T) {
	anglelessURL := testOrigin + "/media/uploads/videos/branded/male-push-up.mp4"
	videos := map[string][]string{pushUpPage: {anglelessURL}}

	t.Run("disabled", func(t *testing.T) {
		h := newHarness(t, videos)
		sum, err := h.pipeline(Config{Strategy: StrategyParse}, existsOnly("")).Run(context.Background(), []catalog.Entry{pushUpEntry()})
		require.NoError(t, err)
		assert.Equal(t, Summary{Failed: 2}, sum)
		assert.Empty(t, h.downloader.calls)
		for _, r := range h.failures(t) {
			assert.Equal(t, ledger.ReasonNoMP4InPage, r.Reason)
		}
	})

	t.Run("enabled", func(t *testing.T) {
		h := newHarness(t, videos)
		cfg := Config{Strategy: StrategyParse, AllowAnglelessFallback: true}
		sum, err := h.pipeline(cfg, existsOnly("")).Run(context.Background(), []catalog.Entry{pushUpEntry()})
		require.NoError(t, err)
		assert.Equal(t, Summary{Resolved: 2}, sum)

		dest := filepath.Join(h.out, "Chest - Push-up - Male.mp4")
		require.Len(t, h.downloader.calls, 2)
		for _, c := range h.downloader.calls {
			assert.Equal(t, fetchCall{URL: anglelessURL, Dest: dest, SkipExisting: true}, c)
		}
		got := h.successes(t)
		require.Len(t, got, 2, "one row per angle the file stands in for")
		assert.Equal(t, "front", got[0].Angle)
		assert.Equal(t, "side", got[1].Angle)
		for _, r := range got {
			assert.Equal(t, MethodParse, r.Method)
			assert.Equal(t, anglelessURL, r.FinalURL)
			assert.Equal(t, dest, r.Filename)
		}
	})

	t.Run("resumes without refetching", func(t *testing.T) {
		h := newHarness(t, videos)
		cfg := Config{Strategy: StrategyParse, AllowAnglelessFallback: true}
		var probes atomic.Int64
		prober := probe.ProberFunc(func(context.Context, string) (bool, error) {
			probes.Add(1)
			return false, nil
		})

		_, err := h.pipeline(cfg, prober).Run(context.Background(), []catalog.Entry{pushUpEntry()})
		require.NoError(t, err)
		require.Equal(t, 1, h.pages.calls[pushUpPage])
		downloads := len(h.downloader.calls)

		h.reopen(t)
		h.pages.calls = make(map[string]int)
		probes.Store(0)

		sum, err := h.pipeline(cfg, prober).Run(context.Background(), []catalog.Entry{pushUpEntry()})
		require.NoError(t, err)
		assert.Equal(t, Summary{Skipped: 2}, sum)
		assert.Zero(t, h.pages.calls[pushUpPage])
		assert.Zero(t, probes.Load())
		assert.Len(t, h.downloader.calls, downloads)
		assert.Len(t, h.successes(t), 2)
	})

	t.Run("does not shadow a real angle", func(t *testing.T) {
		sideURL := testOrigin + "/media/uploads/videos/branded/male-push-up-side.mp4"
		h := newHarness(t, map[string][]string{pushUpPage: {anglelessURL, sideURL}})
		cfg := Config{Strategy: StrategyParse, AllowAnglelessFallback: true}

		sum, err := h.pipeline(cfg, existsOnly("")).Run(context.Background(), []catalog.Entry{pushUpEntry()})
		require.NoError(t, err)
		assert.Equal(t, Summary{Resolved: 2}, sum)

		got := h.successes(t)
		require.Len(t, got, 2)
		assert.Equal(t, anglelessURL, got[0].FinalURL)
		assert.Equal(t, sideURL, got[1].FinalURL)
		assert.Equal(t, filepath.Join(h.out, "Chest - Push-up - Male-side.mp4"), got[1].Filename)
	})
}

func TestRun_ParsePrefersAngleMatch(t *testing.T) {
	sideURL := testOrigin + "/media/uploads/videos/branded/male-push-up-side.mp4"
	anglelessURL := testOrigin + "/media/uploads/videos/branded/male-push-up.mp4"
	h := newHarness(t, map[string][]string{pushUpPage: {anglelessURL, sideURL}})

	cfg := Config{Strategy: StrategyParse, Angles: []string{"side"}, AllowAnglelessFallback: true}
	_, err := h.pipeline(cfg, existsOnly("")).Run(context.Background(), []catalog.Entry{pushUpEntry()})
	require.NoError(t, err)

	got := h.successes(t)
	require.Len(t, got, 1)
	assert.Equal(t, sideURL, got[0].FinalURL)
	assert.Equal(t, "side", got[0].Angle)
}

func TestRun_DryRun(t *testing.T) {
	frontURL := branded("male-push-up-front")
	h := newHarness(t, nil)
	var out bytes.Buffer
	p := New(Config{
		Strategy:    StrategyGuess,
		MediaOrigin: testOrigin,
		Angles:      []string{"front"},
		OutputDir:   h.out,
		DryRun:      true,
	}, Deps{
		Resolver:   probe.NewResolver(existsOnly(frontURL), 2, testLogger()),
		Pages:      h.pages,
		Downloader: h.downloader,
		Reporter:   NewDryRunReporter(&out),
	}, testLogger())

	sum, err := p.Run(context.Background(), []catalog.Entry{pushUpEntry()})
	require.NoError(t, err)
	assert.Equal(t, Summary{Resolved: 1}, sum)
	assert.Empty(t, h.downloader.calls)
	assert.NoDirExists(t, h.out)
	assert.NoFileExists(t, filepath.Join(h.dir, ledger.SuccessFile))
	assert.Contains(t, out.String(), "✓ Would download: Push-up - Male (front)")
	assert.Contains(t, out.String(), frontURL)
}

func TestRun_Direct(t *testing.T) {
	first := testOrigin + "/media/uploads/videos/branded/male-push-up-front.mp4"
	h := newHarness(t, map[string][]string{pushUpPage: {first, "https://media.example/other.mp4"}})

	sum, err := h.pipeline(Config{Strategy: StrategyDirect}, existsOnly("")).Run(context.Background(), []catalog.Entry{pushUpEntry()})
	require.NoError(t, err)
	assert.Equal(t, Summary{Resolved: 1}, sum)
	require.Len(t, h.downloader.calls, 1)
	assert.Equal(t, first, h.downloader.calls[0].URL)
	assert.Equal(t, filepath.Join(h.out, "Chest - Push-up - Male.mp4"), h.downloader.calls[0].Dest)

	got := h.successes(t)
	require.Len(t, got, 1)
	assert.Equal(t, MethodDirect, got[0].Method)
	assert.Equal(t, "", got[0].Angle)
}

type fakeTool struct {
	err   error
	calls []string
}

func (f *fakeTool) Download(_ context.Context, pageURL, outputDir, title string, _ bool) (string, error) {
	f.calls = append(f.calls, pageURL)
	if f.err != nil {
		return "", f.err
	}
	return filepath.Join(outputDir, title+".mp4"), nil
}

func TestRun_YTDLP(t *testing.T) {
	h := newHarness(t, nil)
	tool := &fakeTool{}
	p := h.pipeline(Config{Strategy: StrategyYTDLP}, existsOnly(""))
	p.deps.VideoTool = tool

	sum, err := p.Run(context.Background(), []catalog.Entry{pushUpEntry()})
	require.NoError(t, err)
	assert.Equal(t, Summary{Resolved: 1}, sum)
	assert.Equal(t, []string{pushUpPage}, tool.calls)
	got := h.successes(t)
	require.Len(t, got, 1)
	assert.Equal(t, MethodYTDLP, got[0].Method)
	assert.Equal(t, filepath.Join(h.out, "Push-up - Male.mp4"), got[0].Filename)

	h2 := newHarness(t, nil)
	p2 := h2.pipeline(Config{Strategy: StrategyYTDLP}, existsOnly(""))
	p2.deps.VideoTool = &fakeTool{err: errors.New("yt-dlp failed: HTTP Error 403")}
	sum, err = p2.Run(context.Background(), []catalog.Entry{pushUpEntry()})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, ledger.Reason("yt-dlp failed: HTTP Error 403"), h2.failures(t)[0].Reason)
}

func TestRun_ConfigErrors(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.pipeline(Config{Strategy: StrategyYTDLP}, existsOnly("")).Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoYTDLP)

	_, err = h.pipeline(Config{Strategy: StrategyGuess, Angles: []string{}}, existsOnly("")).Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoAngles)

	_, err = h.pipeline(Config{Strategy: StrategyBoth}, existsOnly("")).Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestRun_Canceled(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.pipeline(Config{Strategy: StrategyGuess}, existsOnly("")).Run(ctx, []catalog.Entry{pushUpEntry()})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.failures(t), "cancellation is not a target failure")
}

func TestRetry_PushUp(t *testing.T) {
	h := newHarness(t, map[string][]string{pushUpPage: {}})

	unrelated := ledger.Record{
		Title:     "Squat - Female",
		PageURL:   "https://site.example/barbell/female/quads/squat",
		Method:    MethodAutoGuess,
		Angle:     "front",
		FinalURL:  branded("female-barbell-squat-front"),
		Filename:  "videos/Quads - Squat - Female-front.mp4",
		Equipment: "barbell",
		Slug:      "squat",
	}
	require.NoError(t, h.ledger.RecordSuccess(unrelated))
	failed := ledger.Record{
		Title:     "Push-up - Male",
		PageURL:   pushUpPage,
		Method:    MethodAuto,
		Angle:     "front",
		Reason:    ledger.ReasonNoGuessOrParse,
		Equipment: "bodyweight",
		Slug:      "push-up",
	}
	require.NoError(t, h.ledger.RecordFailure(failed))
	failuresBefore, err := os.ReadFile(filepath.Join(h.dir, ledger.FailureFile))
	require.NoError(t, err)

	want := plain("male-bodyweight-push-up-front")
	ctrl := gomock.NewController(t)
	prober := mocks.NewMockProber(ctrl)
	prober.EXPECT().Exists(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, url string) (bool, error) {
			return url == want, nil
		}).AnyTimes()

	p := h.pipeline(Config{}, prober)
	sum, err := p.Retry(context.Background(), []ledger.Record{failed})
	require.NoError(t, err)
	assert.Equal(t, Summary{Resolved: 1}, sum)

	got := h.successes(t)
	require.Len(t, got, 2)
	assert.Equal(t, unrelated, got[0])
	assert.Equal(t, ledger.Record{
		Title:     "Push-up - Male",
		PageURL:   pushUpPage,
		Method:    MethodRetryGuess,
		Angle:     "front",
		FinalURL:  want,
		Filename:  filepath.Join(h.out, "Chest - Push-up - Male-front.mp4"),
		Equipment: "bodyweight",
		Slug:      "push-up",
	}, got[1])

	failuresAfter, err := os.ReadFile(filepath.Join(h.dir, ledger.FailureFile))
	require.NoError(t, err)
	assert.Equal(t, failuresBefore, failuresAfter)
	assert.Equal(t, 1, h.pages.calls[pushUpPage], "parse is tried first")
}

func TestRetry_SkipsSucceededAndExpandsAngles(t *testing.T) {
	h := newHarness(t, map[string][]string{pushUpPage: {
		testOrigin + "/media/uploads/videos/branded/male-push-up-side.mp4",
	}})
	done := ledger.Record{Title: "Push-up - Male", PageURL: pushUpPage, Method: MethodGuess, Angle: "front"}
	require.NoError(t, h.ledger.RecordSuccess(done))

	rows := []ledger.Record{
		{Title: "Chest - Push-up - Male", PageURL: pushUpPage, Method: MethodParse, Reason: ledger.ReasonNoMP4InPage},
		{Title: "Push-up - Male", PageURL: pushUpPage, Method: MethodParse, Angle: "side", Reason: ledger.ReasonNoMP4InPage},
		{Title: "Broken", PageURL: "https://site.example/nope"},
	}
	p := h.pipeline(Config{RetryStrategy: StrategyParse}, existsOnly(""))
	sum, err := p.Retry(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, Summary{Resolved: 1, Skipped: 1}, sum)

	got := h.successes(t)
	require.Len(t, got, 2)
	assert.Equal(t, "side", got[1].Angle)
	assert.Equal(t, MethodRetryParse, got[1].Method)
	assert.Equal(t, "Push-up - Male", got[1].Title)
}

func TestRetry_FailureReason(t *testing.T) {
	h := newHarness(t, map[string][]string{pushUpPage: {}})
	row := ledger.Record{Title: "Push-up - Male", PageURL: pushUpPage, Angle: "front"}

	sum, err := h.pipeline(Config{RetryStrategy: StrategyBoth}, existsOnly("")).Retry(context.Background(), []ledger.Record{row})
	require.NoError(t, err)
	assert.Equal(t, Summary{Failed: 1}, sum)

	got := h.failures(t)
	require.Len(t, got, 1)
	assert.Equal(t, MethodRetry, got[0].Method)
	assert.Equal(t, ledger.ReasonNoGuessOrParse, got[0].Reason)

	_, err = h.pipeline(Config{RetryStrategy: StrategyAuto}, existsOnly("")).Retry(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestHarvest(t *testing.T) {
	front := testOrigin + "/media/uploads/videos/branded/male-push-up-front.mp4"
	femaleSide := testOrigin + "/media/uploads/videos/branded/female-push-up-side.mp4"
	angleless := testOrigin + "/media/uploads/videos/branded/male-push-up.mp4"
	missingPage := "https://site.example/bodyweight/male/chest/dip"

	h := newHarness(t, map[string][]string{pushUpPage: {front, femaleSide, angleless}})
	rows := []ledger.Record{
		{Title: "Push-up - Male", PageURL: pushUpPage, Angle: "front", Equipment: "bodyweight", Slug: "push-up"},
		{Title: "Push-up - Male", PageURL: pushUpPage, Angle: "side", Equipment: "bodyweight", Slug: "push-up"},
		{Title: "Dip - Male", PageURL: missingPage, Angle: "front"},
	}

	sum, err := h.pipeline(Config{}, existsOnly("")).Harvest(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, Summary{Resolved: 3, Failed: 1}, sum)
	assert.Equal(t, 1, h.pages.calls[pushUpPage])

	require.Len(t, h.downloader.calls, 3)
	assert.Equal(t, filepath.Join(h.out, "Chest - Push-up - Male-front.mp4"), h.downloader.calls[0].Dest)
	assert.Equal(t, filepath.Join(h.out, "Chest - Push-up - Female-side.mp4"), h.downloader.calls[1].Dest)
	assert.Equal(t, fetchCall{URL: angleless, Dest: filepath.Join(h.out, "Chest - Push-up - Male.mp4"), SkipExisting: true}, h.downloader.calls[2])

	got := h.successes(t)
	require.Len(t, got, 3)
	assert.Equal(t, "https://site.example/bodyweight/female/chest/push-up", got[1].PageURL)
	assert.Equal(t, "Push-up - Female", got[1].Title)
	for _, r := range got {
		assert.Equal(t, MethodHarvest, r.Method)
	}

	fails := h.failures(t)
	require.Len(t, fails, 1)
	assert.Equal(t, missingPage, fails[0].PageURL)
	assert.Equal(t, ledger.ReasonNoMP4InPage, fails[0].Reason)

	// A second harvest finds everything in the ledger.
	h.reopen(t)
	sum, err = h.pipeline(Config{}, existsOnly("")).Harvest(context.Background(), rows[:2])
	require.NoError(t, err)
	assert.Equal(t, Summary{Skipped: 3}, sum)
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want Strategy
	}{
		{"", StrategyAuto},
		{"guess-mp4", StrategyGuess},
		{"Parse", StrategyParse},
		{"direct", StrategyDirect},
		{"ytdlp", StrategyYTDLP},
		{"both", StrategyBoth},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := ParseStrategy("scrape")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestExerciseName(t *testing.T) {
	assert.Equal(t, "Push-up", exerciseName("Push-up - Male", "chest"))
	assert.Equal(t, "Push-up", exerciseName("Chest - Push-up - Male", "chest"))
	assert.Equal(t, "Bench - Press", exerciseName("Bench - Press - Female", "chest"))
	assert.Equal(t, "Lower Back - Superman", exerciseName("Lower Back - Superman", "glutes"))
	assert.Equal(t, "Superman", exerciseName("Lower Back - Superman - Male", "lower-back"))
}

func TestPageForGender(t *testing.T) {
	assert.Equal(t, "https://site.example/bodyweight/female/chest/push-up",
		pageForGender(pushUpPage, catalog.Male, catalog.Female))
	assert.Equal(t, pushUpPage, pageForGender(pushUpPage, catalog.Male, catalog.Male))
}

func TestSummary(t *testing.T) {
	s := Summary{Resolved: 3, Failed: 1, Skipped: 2}
	assert.Equal(t, 2, s.ExitCode())
	assert.True(t, strings.Contains(s.String(), "3 resolved, 1 failed, 2 skipped"))
}
