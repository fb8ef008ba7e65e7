package audit

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/vmunix/exvid/pkg/catalog"
	"github.com/vmunix/exvid/pkg/title"
)

// dirIndex groups the video directory's files by muscle and
// "{Gender}-{angle}" suffix so a missing file is only compared with files of
// the same muscle and variant.
type dirIndex struct {
	byVariant map[string][]string // variant -> exercise titles
	files     map[string]string   // variant + "\x00" + title -> file name
}

func variantKey(muscle, suffix string) string {
	return muscle + "\x00" + suffix
}

func indexDir(dir string) (*dirIndex, error) {
	idx := &dirIndex{
		byVariant: make(map[string][]string),
		files:     make(map[string]string),
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read video dir: %w", err)
	}
	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(strings.ToLower(name), ".mp4") {
			continue
		}
		first, last := strings.Index(name, " - "), strings.LastIndex(name, " - ")
		if first < 0 || first == last {
			continue
		}
		key := variantKey(name[:first], name[last+3:])
		t := title.StripFileDecorations(name)
		idx.byVariant[key] = append(idx.byVariant[key], t)
		idx.files[key+"\x00"+t] = name
	}
	return idx, nil
}

// nearMiss returns an existing file whose title closely matches e's title
// within the same muscle and variant.
func (d *dirIndex) nearMiss(e catalog.Entry, angle string) string {
	key := variantKey(
		catalog.SanitizeFilename(catalog.MuscleDisplay(e.Muscle)),
		e.Gender.Display()+"-"+catalog.SanitizeFilename(angle)+".mp4",
	)
	candidates := d.byVariant[key]
	if len(candidates) == 0 {
		return ""
	}
	m := title.MatchTitle(e.Title, candidates)
	if m.Confidence < title.ConfidenceMedium {
		return ""
	}
	return d.files[key+"\x00"+m.Title]
}
