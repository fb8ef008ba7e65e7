package page

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/vmunix/exvid/pkg/catalog"
)

// DefaultMediaOrigin is where branded videos are served from.
const DefaultMediaOrigin = "https://media.musclewiki.com"

// ExtractVideos returns the .mp4 URLs embedded in a page, in discovery order:
// <video> src or data-src and its <source> children, then <a href> links,
// then branded media URLs found in inline page-state JSON. Relative URLs are
// resolved against pageURL. The result has no duplicates.
func ExtractVideos(html, pageURL, mediaOrigin string) []string {
	base, _ := url.Parse(pageURL)
	var out []string
	seen := make(map[string]bool)
	add := func(raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" || !IsMP4(raw) {
			return
		}
		if base != nil {
			if ref, err := base.Parse(raw); err == nil {
				raw = ref.String()
			}
		}
		if seen[raw] {
			return
		}
		seen[raw] = true
		out = append(out, raw)
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		doc.Find("video").Each(func(_ int, v *goquery.Selection) {
			add(srcOf(v))
			v.Find("source").Each(func(_ int, s *goquery.Selection) {
				add(srcOf(s))
			})
		})
		doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			add(href)
		})
	}

	for _, u := range pageStateVideos(html, mediaOrigin) {
		add(u)
	}
	return out
}

func srcOf(s *goquery.Selection) string {
	if src, ok := s.Attr("src"); ok && strings.TrimSpace(src) != "" {
		return src
	}
	src, _ := s.Attr("data-src")
	return src
}

// pageStateVideos finds branded media URLs inside inline JSON, which escapes
// slashes as "\/".
func pageStateVideos(html, mediaOrigin string) []string {
	if mediaOrigin == "" {
		mediaOrigin = DefaultMediaOrigin
	}
	re := brandedPattern(mediaOrigin)
	return re.FindAllString(strings.ReplaceAll(html, `\/`, "/"), -1)
}

func brandedPattern(mediaOrigin string) *regexp.Regexp {
	origin := regexp.QuoteMeta(strings.TrimRight(mediaOrigin, "/"))
	return regexp.MustCompile(origin + `/media/uploads/videos/branded/[^\s"'<>\\]+\.mp4`)
}

// IsMP4 reports whether a URL's path ends in .mp4, ignoring query and case.
func IsMP4(raw string) bool {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	return strings.HasSuffix(strings.ToLower(raw), ".mp4")
}

// PickForAngle selects the URL for an angle. A URL whose file name ends in
// "-{angle}.mp4" wins; otherwise the first URL carrying none of the known
// angles is returned with matched=false. ok is false when neither exists.
func PickForAngle(urls []string, angle string, known []string) (u string, matched, ok bool) {
	want := "-" + strings.ToLower(angle) + ".mp4"
	for _, candidate := range urls {
		if strings.HasSuffix(fileName(candidate), want) {
			return candidate, true, true
		}
	}
	for _, candidate := range urls {
		if InferAngle(candidate, known) == "" {
			return candidate, false, true
		}
	}
	return "", false, false
}

// InferAngle returns the angle token in a media file name, or "".
func InferAngle(rawURL string, known []string) string {
	name := fileName(rawURL)
	for _, a := range known {
		a = strings.ToLower(a)
		if strings.HasSuffix(name, "-"+a+".mp4") {
			return a
		}
	}
	for _, a := range known {
		a = strings.ToLower(a)
		if strings.Contains(name, "-"+a+"-") || strings.Contains(name, "-"+a+".") {
			return a
		}
	}
	return ""
}

// InferGender reads the gender prefix of a media file name, falling back
// when the name carries none.
func InferGender(rawURL string, fallback catalog.Gender) catalog.Gender {
	name := fileName(rawURL)
	switch {
	case strings.HasPrefix(name, "female-"):
		return catalog.Female
	case strings.HasPrefix(name, "male-"):
		return catalog.Male
	}
	return fallback
}

func fileName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return strings.ToLower(path.Base(u.Path))
	}
	return strings.ToLower(path.Base(rawURL))
}
