package page

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/exvid/pkg/catalog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const media = "https://media.example.com"

const detailPage = `<html><body>
<video src="/media/uploads/videos/branded/male-barbell-curl-front.mp4"></video>
<video data-src="https://cdn.example.com/clip.webm">
  <source src="/media/uploads/videos/branded/male-barbell-curl-side.mp4?v=2">
</video>
<a href="/download/male-barbell-curl-front.mp4">download</a>
<a href="/about">about</a>
<a href="/media/uploads/videos/branded/male-barbell-curl-front.mp4">dup</a>
<script id="__NEXT_DATA__" type="application/json">
{"videos":[{"url":"https:\/\/media.example.com\/media\/uploads\/videos\/branded\/female-barbell-curl-front.mp4"}]}
</script>
</body></html>`

func TestExtractVideos(t *testing.T) {
	got := ExtractVideos(detailPage, "https://site.example/barbell/male/biceps/barbell-curl", media)

	assert.Equal(t, []string{
		"https://site.example/media/uploads/videos/branded/male-barbell-curl-front.mp4",
		"https://site.example/media/uploads/videos/branded/male-barbell-curl-side.mp4?v=2",
		"https://site.example/download/male-barbell-curl-front.mp4",
		"https://media.example.com/media/uploads/videos/branded/female-barbell-curl-front.mp4",
	}, got)
}

func TestExtractVideos_NoneFound(t *testing.T) {
	assert.Empty(t, ExtractVideos(`<html><a href="/x.webm">x</a></html>`, "https://site.example/", media))
}

func TestIsMP4(t *testing.T) {
	assert.True(t, IsMP4("https://x/a.MP4"))
	assert.True(t, IsMP4("/a.mp4?token=1"))
	assert.False(t, IsMP4("/a.mp4.html"))
	assert.False(t, IsMP4("/a.webm"))
}

func TestPickForAngle(t *testing.T) {
	angles := []string{"front", "side"}

	u, matched, ok := PickForAngle([]string{
		"https://m/male-row-front.mp4",
		"https://m/male-row-side.mp4",
	}, "side", angles)
	require.True(t, ok)
	assert.True(t, matched)
	assert.Equal(t, "https://m/male-row-side.mp4", u)

	u, matched, ok = PickForAngle([]string{
		"https://m/male-row-front.mp4",
		"https://m/male-row.mp4",
	}, "side", angles)
	require.True(t, ok)
	assert.False(t, matched, "angle-less fallback")
	assert.Equal(t, "https://m/male-row.mp4", u)

	_, _, ok = PickForAngle([]string{"https://m/male-row-front.mp4"}, "side", angles)
	assert.False(t, ok, "another angle's video is never a fallback")
}

func TestInferAngleAndGender(t *testing.T) {
	angles := []string{"front", "side"}
	assert.Equal(t, "front", InferAngle("https://m/branded/female-row-front.mp4", angles))
	assert.Equal(t, "side", InferAngle("https://m/branded/male-side-plank-side.mp4", angles))
	assert.Equal(t, "", InferAngle("https://m/branded/male-row.mp4", angles))

	assert.Equal(t, catalog.Female, InferGender("https://m/branded/female-row-front.mp4", catalog.Male))
	assert.Equal(t, catalog.Male, InferGender("https://m/branded/male-row-front.mp4", catalog.Female))
	assert.Equal(t, catalog.Female, InferGender("https://m/branded/row-front.mp4", catalog.Female))
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func TestClient_FetchUsesCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(detailPage))
	}))
	defer srv.Close()

	cache := &memCache{data: make(map[string][]byte)}
	c := NewClient(testLogger(), WithHTTPClient(srv.Client()), WithCache(cache, time.Hour), WithMediaOrigin(media))

	ctx := context.Background()
	first, err := c.Videos(ctx, srv.URL+"/barbell/male/biceps/barbell-curl")
	require.NoError(t, err)
	second, err := c.Videos(ctx, srv.URL+"/barbell/male/biceps/barbell-curl")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 4)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_FetchError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := NewClient(testLogger(), WithHTTPClient(srv.Client()))
	_, err := c.Fetch(context.Background(), srv.URL+"/missing")
	assert.ErrorIs(t, err, ErrFetchFailed)
}
