// Package candidate builds ranked media URLs from slug and equipment variants.
package candidate

import (
	"fmt"
	"strings"
)

// Template is a media path relative to the media origin. The {name}
// placeholder receives "{gender}[-{equipment}][-{middle}]-{slug}-{angle}".
type Template string

const (
	// Branded is the folder the host serves watermarked videos from.
	Branded Template = "/media/uploads/videos/branded/{name}.mp4"
	// Plain is the older unbranded folder.
	Plain Template = "/media/uploads/videos/{name}.mp4"
)

// ParseTemplate maps a configured template name or literal path to a Template.
func ParseTemplate(s string) (Template, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "branded":
		return Branded, nil
	case "plain":
		return Plain, nil
	}
	if !strings.Contains(s, "{name}") {
		return "", fmt.Errorf("template %q: missing {name} placeholder", s)
	}
	return Template(s), nil
}

// Expand renders the template for a file name.
func (t Template) Expand(origin, name string) string {
	return strings.TrimRight(origin, "/") + strings.Replace(string(t), "{name}", name, 1)
}

// Candidate is a guessed media URL. Lower rank means more likely.
type Candidate struct {
	URL  string
	Rank int
}

// Spec describes the candidate space for one gendered target.
type Spec struct {
	Origin    string
	Gender    string
	Equipment []string // equipment variants, "" meaning no equipment token
	Slugs     []string
	Middles   []string // optional tokens between equipment and slug
	Angles    []string
	Templates []Template
}

// Build returns every candidate URL for spec in rank order. The loop order is
// slug, equipment, middle token, angle, template; exact duplicates keep the
// first rank.
func Build(spec Spec) []Candidate {
	names := Names(spec)
	templates := spec.Templates
	if len(templates) == 0 {
		templates = []Template{Branded}
	}

	out := make([]Candidate, 0, len(names)*len(templates))
	seen := make(map[string]bool, cap(out))
	for _, name := range names {
		for _, tmpl := range templates {
			u := tmpl.Expand(spec.Origin, name)
			if seen[u] {
				continue
			}
			seen[u] = true
			out = append(out, Candidate{URL: u, Rank: len(out)})
		}
	}
	return out
}

// Names returns the media file names (without extension) in rank order.
func Names(spec Spec) []string {
	if len(spec.Slugs) == 0 || len(spec.Angles) == 0 {
		return nil
	}
	equipment := spec.Equipment
	if len(equipment) == 0 {
		equipment = []string{""}
	}
	middles := []string{""}
	for _, m := range spec.Middles {
		if m = strings.TrimSpace(m); m != "" {
			middles = append(middles, m)
		}
	}

	var names []string
	for _, slug := range spec.Slugs {
		for _, eq := range equipment {
			for _, mid := range middles {
				for _, angle := range spec.Angles {
					names = append(names, name(spec.Gender, eq, mid, slug, angle))
				}
			}
		}
	}
	return names
}

func name(gender, equipment, middle, slug, angle string) string {
	var b strings.Builder
	b.WriteString(gender)
	if equipment != "" {
		b.WriteString("-")
		b.WriteString(equipment)
	}
	if middle != "" {
		b.WriteString("-")
		b.WriteString(middle)
	}
	b.WriteString("-")
	b.WriteString(slug)
	b.WriteString("-")
	b.WriteString(angle)
	return b.String()
}
