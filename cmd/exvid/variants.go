package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmunix/exvid/pkg/candidate"
	"github.com/vmunix/exvid/pkg/catalog"
	"github.com/vmunix/exvid/pkg/variant"
)

var variantsCmd = &cobra.Command{
	Use:   "variants <equipment> <slug>",
	Short: "Print the candidate media URLs generated for an exercise",
	Long: `Prints the equipment and slug variants and every candidate URL, in the
rank order the resolver probes them. Useful for debugging a target that
fails to resolve.

  exvid variants dumbbells incline-bench-press --gender female --angles front`,
	Args: cobra.ExactArgs(2),
	RunE: runVariants,
}

func init() {
	rootCmd.AddCommand(variantsCmd)
	f := variantsCmd.Flags()
	f.String("gender", "male", "male or female")
	f.StringSlice("angles", nil, "Camera angles, e.g. front,side")
	f.StringSlice("middle-tokens", nil, "Extra tokens between equipment and slug")
	f.StringSlice("templates", nil, "Media path templates: branded, plain or a path with {name}")
	f.String("origin", "", "Media origin")
	f.Bool("expanded", false, "Use the expanded rules of the retry pass")
	f.Bool("names", false, "Print file names only")
}

func runVariants(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	gs, _ := cmd.Flags().GetString("gender")
	g, ok := catalog.ParseGender(gs)
	if !ok {
		return fmt.Errorf("%w: %q", catalog.ErrInvalidGender, gs)
	}
	templates, err := parseTemplates(cfg.Media.Templates)
	if err != nil {
		return err
	}

	rules := variant.DefaultRules()
	if expanded, _ := cmd.Flags().GetBool("expanded"); expanded {
		rules = variant.ExpandedRules()
		templates = []candidate.Template{candidate.Branded, candidate.Plain}
	}
	eqs, slugs := variant.Generate(args[0], args[1], rules)
	spec := candidate.Spec{
		Origin:    cfg.Media.Origin,
		Gender:    string(g),
		Equipment: eqs,
		Slugs:     slugs,
		Middles:   cfg.Media.Middles,
		Angles:    cfg.Media.Angles,
		Templates: templates,
	}

	out := cmd.OutOrStdout()
	if namesOnly, _ := cmd.Flags().GetBool("names"); namesOnly {
		for _, n := range candidate.Names(spec) {
			fmt.Fprintln(out, n)
		}
		return nil
	}

	fmt.Fprintf(out, "Equipment variants (%d): %q\n", len(eqs), eqs)
	fmt.Fprintf(out, "Slug variants (%d): %q\n\n", len(slugs), slugs)
	cands := candidate.Build(spec)
	for _, c := range cands {
		fmt.Fprintf(out, "%5d  %s\n", c.Rank, c.URL)
	}
	fmt.Fprintf(out, "\n%d candidates\n", len(cands))
	return nil
}
