package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/arbiter/internal/engine"
	"github.com/roach88/arbiter/internal/ir"
)

// DecideOptions holds flags for the decide command.
type DecideOptions struct {
	*RootOptions
	Evidence  int
	Alignment string
	Pattern   string
	Base      float64
	DryRun    bool
}

// ScoreResult is the output of a dry run.
type ScoreResult struct {
	Title      string  `json:"title"`
	Confidence float64 `json:"confidence"`
	Tier       ir.Tier `json:"tier"`
	Guidance   string  `json:"guidance"`
}

// NewDecideCommand creates the decide command.
func NewDecideCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecideOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decide <title>",
		Short: "Classify a proposed action and log the decision",
		Long: `Score a proposed action, classify it into a tier and append it to the
decision log. The base confidence comes from --pattern, --base or the
policy's neutral base. A blocked classification is not an error.

Tiers:
  autonomous - execute without confirmation
  validated  - execute, then verify the result
  flagged    - surface to the requester before proceeding
  blocked    - do not execute; supply more evidence or alignment

Examples:
  arbiter decide "centralize config" --evidence 3 --alignment strong --pattern config-centralization
  arbiter decide "rewrite parser" --evidence 0 --alignment weak --base 40
  arbiter decide "rename module" --evidence 1 --alignment moderate --dry-run`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecide(opts, strings.Join(args, " "), cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Evidence, "evidence", "e", 0, "number of supporting evidence items")
	cmd.Flags().StringVarP(&opts.Alignment, "alignment", "a", "", "alignment strength (weak|moderate|strong)")
	cmd.Flags().StringVarP(&opts.Pattern, "pattern", "p", "", "pattern supplying the base confidence")
	cmd.Flags().Float64Var(&opts.Base, "base", 0, "explicit base confidence in [0,100]")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "score without logging a decision")

	return cmd
}

func runDecide(opts *DecideOptions, title string, cmd *cobra.Command) error {
	req := engine.Request{
		Title:         title,
		EvidenceCount: opts.Evidence,
		Alignment:     ir.Alignment(opts.Alignment),
		PatternName:   opts.Pattern,
	}
	if cmd.Flags().Changed("base") {
		req.BaseConfidence = engine.Base(opts.Base)
	}

	return runSession(opts.RootOptions, cmd, !opts.DryRun, func(s *session) (result, error) {
		if opts.DryRun {
			c, tier, err := s.engine.Score(req)
			if err != nil {
				return result{}, err
			}
			out := ScoreResult{Title: title, Confidence: c, Tier: tier, Guidance: tier.Guidance()}
			return result{data: out, text: func(w io.Writer) {
				fmt.Fprintf(w, "%s %.2f (dry run)\n", tier, c)
				fmt.Fprintf(w, "  %s\n", tier.Guidance())
			}}, nil
		}

		d, err := s.engine.Submit(req)
		if err != nil {
			return result{}, err
		}
		return result{data: d, text: func(w io.Writer) { printDecision(w, d) }}, nil
	})
}

func printDecision(w io.Writer, d ir.DecisionRecord) {
	fmt.Fprintf(w, "#%d %s %.2f  %s\n", d.Seq, d.Tier, d.Confidence, d.Title)
	fmt.Fprintf(w, "  %s\n", d.Rationale)
	if d.Retained {
		fmt.Fprintf(w, "  retained as core memory (threshold %.2f)\n", d.Threshold)
	} else {
		fmt.Fprintf(w, "  not retained (threshold %.2f)\n", d.Threshold)
	}
}
