package variant

// Replacement maps one slug fragment to another.
type Replacement struct {
	From string
	To   string
}

// Rules holds the data tables that drive slug variant generation.
// Adding a rule means adding a row here, not a new branch in the generator.
type Rules struct {
	// VariationToken is removed from slugs such as "stretch-variation-1".
	VariationToken string

	// NumberWords are hyphen-delimited words replaced by their digit form.
	NumberWords []Replacement

	// Substitutions are known typos and synonyms on the source site.
	Substitutions []Replacement

	// ModifierPrefixes are movement modifiers the media file names often drop.
	ModifierPrefixes []string
}

var defaultNumberWords = []Replacement{
	{"one", "1"}, {"two", "2"}, {"three", "3"}, {"four", "4"}, {"five", "5"},
	{"six", "6"}, {"seven", "7"}, {"eight", "8"}, {"nine", "9"}, {"ten", "10"},
}

var substitutions = []Replacement{
	{"supinating", "rotating"},
	{"row-bar", "v-bar"},
	{"corpe", "corpse"},
}

var modifierPrefixes = []string{
	"single-arm-",
	"double-",
	"alternating-",
	"single-leg-",
	"dual-",
}

// DefaultRules returns the rule set used by the main fetch pass.
func DefaultRules() Rules {
	return Rules{
		VariationToken:   "-variation",
		NumberWords:      append([]Replacement(nil), defaultNumberWords...),
		Substitutions:    append([]Replacement(nil), substitutions...),
		ModifierPrefixes: append([]string(nil), modifierPrefixes...),
	}
}

// ExpandedRules returns a superset of DefaultRules for retrying failures.
func ExpandedRules() Rules {
	r := DefaultRules()
	r.Substitutions = append(r.Substitutions,
		Replacement{"dumbbell", "db"},
		Replacement{"barbell", "bb"},
		Replacement{"pushup", "push-up"},
		Replacement{"pullup", "pull-up"},
	)
	r.ModifierPrefixes = append(r.ModifierPrefixes,
		"one-arm-",
		"two-arm-",
		"seated-",
		"standing-",
	)
	return r
}
