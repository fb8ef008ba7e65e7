// Package variant generates the spellings under which the media host may
// have stored an exercise's equipment and slug tokens.
//
// The host's file names are not derivable from its page slugs with full
// reliability, so the generator enumerates empirically observed deviations.
// Output is an ordered set: the same input always yields the same sequence,
// tightest variant first.
package variant

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Generate returns the equipment and slug variants for one exercise.
func Generate(equipment, slug string, r Rules) (equipmentVariants, slugVariants []string) {
	return Equipment(equipment), Slugs(equipment, slug, r)
}

// Equipment returns casing, hyphenation and plural variants of an equipment
// token. The empty variant always comes first because some media paths omit
// the equipment token entirely.
func Equipment(equipment string) []string {
	set := orderedSet{}
	set.add("")

	base := strings.Trim(equipment, "/")
	if base == "" {
		return set.items
	}

	bases := []string{base, strings.ReplaceAll(base, "-", "")}
	if strings.HasSuffix(base, "s") {
		singular := strings.TrimSuffix(base, "s")
		bases = append(bases, singular, strings.ReplaceAll(singular, "-", ""))
	}

	for _, b := range bases {
		for _, form := range equipmentForms {
			set.add(form(b))
		}
	}
	return set.items
}

var equipmentForms = []func(string) string{
	func(s string) string { return s },
	capitalize,
	titleCase,
}

// Slugs returns the slug variants in preference order.
func Slugs(equipment, slug string, r Rules) []string {
	if slug == "" {
		return nil
	}
	in := input{
		slug:      slug,
		equipment: strings.ToLower(strings.Trim(equipment, "/")),
		rules:     r,
	}

	set := orderedSet{skipEmpty: true}
	for _, s := range slugSteps {
		set.add(s(in)...)
	}
	return set.items
}

type input struct {
	slug      string
	equipment string
	rules     Rules
}

type step func(in input) []string

// slugSteps run in order; each contributes zero or more variants.
var slugSteps = []step{
	identity,
	dropVariation,
	numberWords,
	substitute,
	stripEquipment,
	stripModifiers,
	dropHyphens,
	singularize,
}

func identity(in input) []string {
	return []string{in.slug}
}

func dropVariation(in input) []string {
	tok := in.rules.VariationToken
	if tok == "" || !strings.Contains(in.slug, tok) {
		return nil
	}
	return []string{strings.ReplaceAll(in.slug, tok, "")}
}

func numberWords(in input) []string {
	var out []string
	tok := in.rules.VariationToken
	for _, nw := range in.rules.NumberWords {
		replaced, ok := replaceWord(in.slug, nw.From, nw.To)
		if !ok {
			continue
		}
		out = append(out, replaced)
		if tok != "" && strings.Contains(replaced, tok) {
			out = append(out, strings.ReplaceAll(replaced, tok, ""))
		}
	}
	return out
}

func substitute(in input) []string {
	var out []string
	for _, sub := range in.rules.Substitutions {
		if strings.Contains(in.slug, sub.From) {
			out = append(out, strings.ReplaceAll(in.slug, sub.From, sub.To))
		}
	}
	return out
}

func stripEquipment(in input) []string {
	if in.equipment == "" {
		return nil
	}
	prefixes := []string{
		in.equipment,
		strings.TrimRight(in.equipment, "s"),
		strings.ReplaceAll(in.equipment, "-", ""),
	}
	return trimPrefixes(in.slug, prefixes)
}

func stripModifiers(in input) []string {
	var out []string
	for _, prefix := range in.rules.ModifierPrefixes {
		if !strings.Contains(in.slug, prefix) {
			continue
		}
		simplified := strings.ReplaceAll(in.slug, prefix, "")
		out = append(out, simplified)
		if in.equipment != "" {
			out = append(out, trimPrefixes(simplified, []string{
				in.equipment,
				strings.TrimRight(in.equipment, "s"),
			})...)
		}
	}
	return out
}

func dropHyphens(in input) []string {
	return []string{strings.ReplaceAll(in.slug, "-", "")}
}

func singularize(in input) []string {
	if !strings.HasSuffix(in.slug, "s") {
		return nil
	}
	singular := strings.TrimSuffix(in.slug, "s")
	return []string{singular, strings.ReplaceAll(singular, "-", "")}
}

// trimPrefixes returns slug with each "<prefix>-" removed, for every prefix
// the slug starts with (case-insensitive).
func trimPrefixes(slug string, prefixes []string) []string {
	lower := strings.ToLower(slug)
	var out []string
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		if strings.HasPrefix(lower, p+"-") {
			out = append(out, slug[len(p)+1:])
		}
	}
	return out
}

// replaceWord swaps every hyphen-delimited occurrence of word. Matching whole
// tokens keeps "extension" from turning into "ex10sion".
func replaceWord(slug, word, with string) (string, bool) {
	parts := strings.Split(slug, "-")
	found := false
	for i, p := range parts {
		if p == word {
			parts[i] = with
			found = true
		}
	}
	if !found {
		return slug, false
	}
	return strings.Join(parts, "-"), true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

// orderedSet keeps first-seen order and drops duplicates.
type orderedSet struct {
	items     []string
	seen      map[string]bool
	skipEmpty bool
}

func (o *orderedSet) add(values ...string) {
	if o.seen == nil {
		o.seen = make(map[string]bool)
	}
	for _, v := range values {
		if o.seen[v] || (o.skipEmpty && v == "") {
			continue
		}
		o.seen[v] = true
		o.items = append(o.items, v)
	}
}
