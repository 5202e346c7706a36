package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/arbiter/internal/ir"
)

// PatternDetail is a pattern with its application strategy.
type PatternDetail struct {
	ir.PatternRecord
	Strategy []ir.Phase `json:"strategy"`
}

// NewPatternCommand creates the pattern command group.
func NewPatternCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pattern",
		Short: "Inspect and extend the pattern catalog",
	}
	cmd.AddCommand(newPatternListCommand(rootOpts))
	cmd.AddCommand(newPatternShowCommand(rootOpts))
	cmd.AddCommand(newPatternAddCommand(rootOpts))
	cmd.AddCommand(newPatternReviseCommand(rootOpts))
	return cmd
}

func newPatternListCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		category string
		minConf  float64
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List patterns in registration order",
		Long: `List catalog patterns in registration order, optionally restricted
to one category. With --min, list the patterns at or above that
confidence, highest first.

Examples:
  arbiter pattern list
  arbiter pattern list --category quality
  arbiter pattern list --min 80`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(rootOpts, cmd, false, func(s *session) (result, error) {
				var (
					recs []ir.PatternRecord
					err  error
				)
				switch {
				case category != "":
					recs, err = s.engine.PatternsByCategory(ir.Category(category))
				case cmd.Flags().Changed("min"):
					recs = s.engine.PatternsAbove(minConf)
				default:
					recs = s.engine.Patterns()
				}
				if err != nil {
					return result{}, err
				}
				if cmd.Flags().Changed("min") && category != "" {
					recs = filterAbove(recs, minConf)
				}
				if recs == nil {
					recs = []ir.PatternRecord{}
				}
				return result{data: recs, text: func(w io.Writer) { printPatterns(w, recs) }}, nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "restrict to one category")
	cmd.Flags().Float64Var(&minConf, "min", 0, "minimum confidence")
	return cmd
}

func filterAbove(recs []ir.PatternRecord, floor float64) []ir.PatternRecord {
	out := recs[:0]
	for _, r := range recs {
		if r.Confidence >= floor {
			out = append(out, r)
		}
	}
	return out
}

func printPatterns(w io.Writer, recs []ir.PatternRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No patterns.")
		return
	}
	for _, r := range recs {
		fmt.Fprintf(w, "%-32s %-14s %6.2f\n", r.Name, r.Category, r.Confidence)
	}
}

func newPatternShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show one pattern and its strategy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(rootOpts, cmd, false, func(s *session) (result, error) {
				rec, err := s.engine.Pattern(args[0])
				if err != nil {
					return result{}, err
				}
				phases, err := s.engine.BestStrategy(args[0])
				if err != nil {
					return result{}, err
				}
				if phases == nil {
					phases = []ir.Phase{}
				}
				detail := PatternDetail{PatternRecord: rec, Strategy: phases}
				return result{data: detail, text: func(w io.Writer) { printPatternDetail(w, detail) }}, nil
			})
		},
	}
}

func printPatternDetail(w io.Writer, d PatternDetail) {
	fmt.Fprintf(w, "%s (%s, %.2f)\n", d.Name, d.Category, d.Confidence)
	if d.Description != "" {
		fmt.Fprintf(w, "  %s\n", d.Description)
	}
	for i, ph := range d.Strategy {
		fmt.Fprintf(w, "  %d. %s\n", i+1, ph.Name)
		for _, step := range ph.Steps {
			fmt.Fprintf(w, "     - %s\n", step)
		}
	}
}

func newPatternAddCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		rec    ir.PatternRecord
		cat    string
		phases []string
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a new pattern",
		Long: `Register a new pattern. Names are unique; registering an existing
name fails with DUPLICATE_NAME and leaves the catalog unchanged.

Each --phase is "name" or "name:step one;step two" and phases keep
their flag order.

Examples:
  arbiter pattern add feature-flags --category workflow --confidence 75
  arbiter pattern add small-prs --category quality --confidence 88 \
    --phase "split:one concern per change" --phase "review:request two reviewers"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec.Name = args[0]
			rec.Category = ir.Category(cat)
			parsed, err := parsePhases(phases)
			if err != nil {
				return rootOpts.formatter(cmd).Fail(err)
			}
			rec.Phases = parsed
			return runSession(rootOpts, cmd, true, func(s *session) (result, error) {
				if err := s.engine.Register(rec); err != nil {
					return result{}, err
				}
				stored, err := s.engine.Pattern(rec.Name)
				if err != nil {
					return result{}, err
				}
				return result{data: stored, text: func(w io.Writer) {
					fmt.Fprintf(w, "Registered %s (%s, %.2f)\n", stored.Name, stored.Category, stored.Confidence)
				}}, nil
			})
		},
	}
	cmd.Flags().StringVar(&cat, "category", "", "pattern category")
	cmd.Flags().Float64Var(&rec.Confidence, "confidence", 0, "confidence in [0,100]")
	cmd.Flags().StringVar(&rec.Description, "description", "", "free-text description")
	cmd.Flags().StringArrayVar(&phases, "phase", nil, `strategy phase "name:step;step" (repeatable)`)
	return cmd
}

// parsePhases parses "name:step one;step two" phase flags.
func parsePhases(specs []string) ([]ir.Phase, error) {
	var out []ir.Phase
	for _, spec := range specs {
		name, steps, _ := strings.Cut(spec, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, ir.NewInvalidInput("parse phase", fmt.Sprintf("phase %q has no name", spec))
		}
		ph := ir.Phase{Name: name}
		for _, step := range strings.Split(steps, ";") {
			if step = strings.TrimSpace(step); step != "" {
				ph.Steps = append(ph.Steps, step)
			}
		}
		out = append(out, ph)
	}
	return out, nil
}

func newPatternReviseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "revise <name> <confidence>",
		Short: "Replace a pattern's confidence",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return rootOpts.formatter(cmd).Fail(
					ir.NewInvalidInput("revise pattern", fmt.Sprintf("confidence %q is not a number", args[1])))
			}
			return runSession(rootOpts, cmd, true, func(s *session) (result, error) {
				if err := s.engine.ReviseConfidence(args[0], c); err != nil {
					return result{}, err
				}
				rec, err := s.engine.Pattern(args[0])
				if err != nil {
					return result{}, err
				}
				return result{data: rec, text: func(w io.Writer) {
					fmt.Fprintf(w, "Revised %s to %.2f\n", rec.Name, rec.Confidence)
				}}, nil
			})
		},
	}
}
