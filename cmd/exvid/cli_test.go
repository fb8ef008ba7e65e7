package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/exvid/internal/ledger"
)

// execute runs the CLI with args and returns the exit code and stdout.
// Flag values persist on the global commands, so every flag is reset first.
func execute(t *testing.T, args ...string) (int, string) {
	t.Helper()
	t.Setenv("EXVID_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	return Execute(), out.String()
}

const listingHTML = `<html><body><table><tbody>
<tr><th colspan="2">Chest</th></tr>
<tr>
  <td><a href="/bodyweight/male/chest/push-up">Push-up</a></td>
  <td><a href="/bodyweight/male/chest/push-up">Male</a> <a href="/bodyweight/female/chest/push-up">Female</a></td>
</tr>
</tbody></table></body></html>`

// newSite serves a listing, exercise pages and one media file.
func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/directory", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(listingHTML))
	})
	mux.HandleFunc("/bodyweight/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>no videos</body></html>`))
	})
	mux.HandleFunc("/media/uploads/videos/branded/male-push-up-front.mp4", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		http.ServeContent(w, r, "video.mp4", time.Time{}, strings.NewReader("fake-mp4-data"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_EndToEnd(t *testing.T) {
	srv := newSite(t)
	dir := t.TempDir()
	args := []string{"fetch", srv.URL + "/directory",
		"--origin", srv.URL,
		"--method", "guess",
		"--angles", "front",
		"--log-dir", filepath.Join(dir, "logs"),
		"--output-dir", filepath.Join(dir, "videos"),
	}

	code, out := execute(t, args...)
	assert.Equal(t, 2, code, "female target has no video")
	assert.Contains(t, out, "✓ Push-up - Male (front)")
	assert.Contains(t, out, "✗ Push-up - Female (front) - no_guess")
	assert.Contains(t, out, "Summary: 1 resolved, 1 failed, 0 skipped")
	assert.Contains(t, out, "Downloaded: 1 files (13 B), 0 already present")

	data, err := os.ReadFile(filepath.Join(dir, "videos", "Chest - Push-up - Male-front.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "fake-mp4-data", string(data))

	successes, err := ledger.ReadRecords(filepath.Join(dir, "logs", ledger.SuccessFile))
	require.NoError(t, err)
	require.Len(t, successes, 1)
	assert.Equal(t, "guess-mp4", successes[0].Method)
	assert.FileExists(t, filepath.Join(dir, "logs", "exvid.db"))

	// Second run resumes from the ledger.
	code, out = execute(t, args...)
	assert.Equal(t, 2, code)
	assert.Contains(t, out, "Summary: 0 resolved, 1 failed, 1 skipped")
	successes, err = ledger.ReadRecords(filepath.Join(dir, "logs", ledger.SuccessFile))
	require.NoError(t, err)
	assert.Len(t, successes, 1)

	code, out = execute(t, "events", "--log-dir", filepath.Join(dir, "logs"), "-n", "100")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "run.finished")
	assert.Contains(t, out, "download.completed")
	assert.Contains(t, out, "0 resolved, 1 failed, 1 skipped")
	assert.Contains(t, out, "guess-mp4: no_guess")
}

func TestFetch_DryRun(t *testing.T) {
	srv := newSite(t)
	dir := t.TempDir()

	code, out := execute(t, "fetch", srv.URL+"/directory",
		"--origin", srv.URL, "--method", "guess", "--angles", "front", "--gender", "male", "--dry-run",
		"--log-dir", filepath.Join(dir, "logs"), "--output-dir", filepath.Join(dir, "videos"))
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "✓ Would download: Push-up - Male (front)")
	assert.NoDirExists(t, filepath.Join(dir, "videos"))
	assert.NoFileExists(t, filepath.Join(dir, "logs", ledger.SuccessFile))
}

func TestFetch_EmptyCatalog(t *testing.T) {
	dir := t.TempDir()
	listing := filepath.Join(dir, "listing.html")
	require.NoError(t, os.WriteFile(listing, []byte("<html><body><p>nothing</p></body></html>"), 0o644))

	code, _ := execute(t, "fetch", "--html-file", listing, "--log-dir", filepath.Join(dir, "logs"))
	assert.Equal(t, 1, code)
	assert.NoFileExists(t, filepath.Join(dir, "logs", ledger.SuccessFile))
	assert.NoFileExists(t, filepath.Join(dir, "logs", ledger.FailureFile))
}

func TestFetch_InvalidMethod(t *testing.T) {
	code, _ := execute(t, "fetch", "--method", "scrape", "--log-dir", t.TempDir())
	assert.Equal(t, 1, code)
}

func TestVariants(t *testing.T) {
	code, out := execute(t, "variants", "bodyweight", "push-up", "--angles", "front", "--origin", "https://media.example")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "https://media.example/media/uploads/videos/branded/male-push-up-front.mp4")
	assert.Contains(t, out, "candidates")

	code, out = execute(t, "variants", "bodyweight", "push-up", "--angles", "side", "--gender", "female", "--names")
	assert.Equal(t, 0, code)
	assert.Equal(t, "female-push-up-side", strings.SplitN(out, "\n", 2)[0])
}

func TestConfigInitAndTest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exvid.toml")

	code, out := execute(t, "config", "init", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Wrote "+path)

	code, _ = execute(t, "config", "init", path)
	assert.Equal(t, 1, code, "existing file needs --force")
	code, _ = execute(t, "config", "init", path, "--force")
	assert.Equal(t, 0, code)

	code, out = execute(t, "config", "test", path)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Configuration valid!")

	require.NoError(t, os.WriteFile(path, []byte("[resolve]\nworkers = 0\nmethod = \"scrape\"\n"), 0o644))
	code, out = execute(t, "config", "test", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "resolve.method")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLogLevel("debug").String())
	assert.Equal(t, "WARN", parseLogLevel("WARN").String())
	assert.Equal(t, "INFO", parseLogLevel("chatty").String())
}

func TestFormatTimeAgo(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{50 * time.Hour, "2d ago"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatTimeAgo(time.Now().Add(-tt.ago)))
	}
	assert.Equal(t, "never", formatTimeAgo(time.Time{}))
}
