// Package instructions extracts exercise steps and classification metadata
// from exercise pages into a resumable CSV.
package instructions

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Metadata is what one exercise page yields.
type Metadata struct {
	URL          string
	Instructions []string
	Difficulty   string
	Force        string
	Grips        string
	Mechanic     string
}

var (
	// correctSteps captures the first correct_steps array of the page state.
	correctSteps = regexp.MustCompile(`(?s)correct_steps.*?\[(.*?)\]`)
	// stepText captures long string values of text-like keys inside it. In
	// escaped page state the capture ends with the backslash of \".
	stepText = regexp.MustCompile(`text.*?:.*?"([^"]{20,})"`)
	// label matches "Force: Push" or a bare "Force" with the value on the next line.
	label = regexp.MustCompile(`(?i)^(difficulty|force|grips?|mechanic)\s*(?::\s*(.*))?$`)

	jsonUnescaper = strings.NewReplacer(`\n`, " ", `\/`, "/", `\"`, `"`, `\\`, `\`)
)

const (
	minStepLen     = 10 // shorter steps are layout noise
	minJSONStepLen = 20
)

// Parse extracts instructions and metadata from an exercise page.
func Parse(html string) Metadata {
	var m Metadata
	seen := make(map[string]bool)
	add := func(step string) {
		step = strings.TrimSpace(step)
		if len(step) > minStepLen && !seen[step] {
			seen[step] = true
			m.Instructions = append(m.Instructions, step)
		}
	}

	if match := correctSteps.FindStringSubmatch(html); match != nil {
		for _, s := range stepText.FindAllStringSubmatch(match[1], -1) {
			add(jsonUnescaper.Replace(strings.TrimRight(s[1], `\`)))
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return m
	}

	if len(m.Instructions) == 0 {
		doc.Find("ol li").Each(func(_ int, li *goquery.Selection) {
			add(strings.Join(strings.Fields(li.Text()), " "))
		})
	}

	labels(doc, &m)

	doc.Find(`script[type="application/json"]`).Each(func(_ int, s *goquery.Selection) {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return
		}
		walkJSON(data, &m, add)
	})

	return m
}

// labels scans the page's visible text lines for classification labels.
// The first occurrence of each label wins.
func labels(doc *goquery.Document, m *Metadata) {
	lines := textLines(doc)
	for i, line := range lines {
		match := label.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		value := strings.TrimSpace(match[2])
		if value == "" && i+1 < len(lines) {
			value = lines[i+1]
		}
		if value == "" {
			continue
		}
		var field *string
		switch strings.ToLower(match[1]) {
		case "difficulty":
			field = &m.Difficulty
		case "force":
			field = &m.Force
		case "grip", "grips":
			field = &m.Grips
		case "mechanic":
			field = &m.Mechanic
		}
		if *field == "" {
			*field = value
		}
	}
}

// textLines returns the trimmed, non-empty text nodes outside scripts and
// styles, in document order.
func textLines(doc *goquery.Document) []string {
	var lines []string
	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, c *goquery.Selection) {
			switch goquery.NodeName(c) {
			case "#text":
				if t := strings.Join(strings.Fields(c.Text()), " "); t != "" {
					lines = append(lines, t)
				}
			case "script", "style", "noscript", "#comment":
			default:
				walk(c)
			}
		})
	}
	walk(doc.Find("body"))
	return lines
}

// walkJSON searches embedded page state for steps and metadata keys. Map keys
// are visited in sorted order so results are deterministic.
func walkJSON(v any, m *Metadata, add func(string)) {
	switch obj := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			val := obj[k]
			lk := strings.ToLower(k)
			str, isStr := val.(string)
			switch {
			case strings.Contains(lk, "instruction") || strings.Contains(lk, "step"):
				items, ok := val.([]any)
				if !ok {
					walkJSON(val, m, add)
					continue
				}
				for _, item := range items {
					switch it := item.(type) {
					case string:
						if len(it) > minJSONStepLen {
							add(it)
						}
					case map[string]any:
						if text, ok := it["text"].(string); ok {
							add(text)
						}
					}
				}
			case strings.Contains(lk, "difficulty") && isStr:
				m.Difficulty = str
			case strings.Contains(lk, "force") && isStr:
				m.Force = str
			case strings.Contains(lk, "grip") && isStr:
				m.Grips = str
			case strings.Contains(lk, "mechanic") && isStr:
				m.Mechanic = str
			default:
				walkJSON(val, m, add)
			}
		}
	case []any:
		for _, item := range obj {
			walkJSON(item, m, add)
		}
	}
}
