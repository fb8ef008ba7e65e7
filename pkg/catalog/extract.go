package catalog

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Result is the outcome of one extraction.
type Result struct {
	Entries []Entry
	// Seen holds every absolute URL accepted by this call.
	Seen map[string]bool
	// Malformed counts links dropped for a short or inconsistent path.
	Malformed int
}

// labelTitles are header cells that look like rows.
var labelTitles = map[string]bool{
	"male":     true,
	"female":   true,
	"exercise": true,
}

// Extract parses a listing page into gendered entries.
//
// Each row's first cell names the exercise, as a link to one gendered page
// or as plain text. Further links labeled Male or Female point at the
// gendered pages. The name link usually duplicates the Male link, so entries
// are deduplicated by absolute URL and the first occurrence wins. Links whose
// path is too short are dropped without failing the extraction.
func Extract(html, origin string, filter GenderFilter) (*Result, error) {
	base, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse origin %q: %w", origin, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	scope := doc.Find("tbody").First()
	if scope.Length() == 0 {
		scope = doc.Selection
	}

	res := &Result{Seen: make(map[string]bool)}
	var section string

	scope.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if th := row.Find("th[colspan]").First(); th.Length() > 0 {
			if s := strings.TrimSpace(th.Text()); s != "" {
				section = s
			}
			return
		}

		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		nameCell := cells.First()
		nameLink := nameCell.Find("a[href]").First()
		var title string
		if nameLink.Length() > 0 {
			title = cleanText(nameLink.Text())
		} else {
			title = cleanText(nameCell.Text())
		}
		if title == "" || labelTitles[strings.ToLower(title)] {
			return
		}

		add := func(a *goquery.Selection, labeled bool) {
			label, isGenderLink := ParseGender(a.Text())
			if labeled && !isGenderLink {
				return
			}
			href, _ := a.Attr("href")
			path, ok := ParsePagePath(href)
			if !ok {
				res.Malformed++
				return
			}
			if labeled && path.Gender != label {
				res.Malformed++
				return
			}
			if !filter.Allows(path.Gender) {
				return
			}
			ref, err := base.Parse(strings.TrimSpace(href))
			if err != nil {
				res.Malformed++
				return
			}
			abs := ref.String()
			if res.Seen[abs] {
				return
			}
			res.Seen[abs] = true
			res.Entries = append(res.Entries, Entry{
				ExerciseRef: ExerciseRef{
					Title:     title,
					Equipment: path.Equipment,
					Muscle:    path.Muscle,
					Slug:      path.Slug,
				},
				Gender:  path.Gender,
				URL:     abs,
				Section: section,
			})
		}

		if nameLink.Length() > 0 {
			add(nameLink, false)
		}
		row.Find("a[href]").NotSelection(nameLink).Each(func(_ int, a *goquery.Selection) {
			add(a, true)
		})
	})

	if len(res.Entries) == 0 {
		return res, ErrEmptyCatalog
	}
	return res, nil
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
