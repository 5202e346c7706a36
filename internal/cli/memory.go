package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/arbiter/internal/ir"
)

// ThresholdStatus is the output of the threshold command.
type ThresholdStatus struct {
	Threshold    float64         `json:"threshold"`
	Outcomes     int             `json:"outcomes"`
	CoreMemories int             `json:"core_memories"`
	History      []ir.Adjustment `json:"history,omitempty"`
	Core         []ir.CoreMemory `json:"core,omitempty"`
}

// OutcomeReport is the output of the outcome command.
type OutcomeReport struct {
	Confidence float64        `json:"confidence"`
	Correct    bool           `json:"correct"`
	Adjusted   bool           `json:"adjusted"`
	Threshold  float64        `json:"threshold"`
	Streak     int            `json:"streak"`
	Adjustment *ir.Adjustment `json:"adjustment,omitempty"`
}

// NewThresholdCommand creates the threshold command.
func NewThresholdCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		history bool
		core    bool
	)
	cmd := &cobra.Command{
		Use:   "threshold",
		Short: "Show the core memory retention threshold",
		Long: `Show the current retention threshold. Decisions whose confidence is
at or above it are retained as core memories.

Examples:
  arbiter threshold
  arbiter threshold --history --core`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(rootOpts, cmd, false, func(s *session) (result, error) {
				out := ThresholdStatus{
					Threshold:    s.engine.Threshold(),
					Outcomes:     len(s.engine.Outcomes()),
					CoreMemories: len(s.engine.CoreMemories()),
				}
				if history {
					out.History = s.engine.ThresholdHistory()
				}
				if core {
					out.Core = s.engine.CoreMemories()
				}
				return result{data: out, text: func(w io.Writer) { printThreshold(w, out) }}, nil
			})
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "include the adjustment history")
	cmd.Flags().BoolVar(&core, "core", false, "include retained core memories")
	return cmd
}

func printThreshold(w io.Writer, s ThresholdStatus) {
	fmt.Fprintf(w, "threshold %.2f (%d outcomes, %d core memories)\n", s.Threshold, s.Outcomes, s.CoreMemories)
	for _, a := range s.History {
		fmt.Fprintf(w, "  %s  %.2f -> %.2f  %s", a.Timestamp.Format("2006-01-02 15:04:05"), a.From, a.To, a.Reason)
		if a.Note != "" {
			fmt.Fprintf(w, " (%s)", a.Note)
		}
		fmt.Fprintln(w)
	}
	for _, c := range s.Core {
		fmt.Fprintf(w, "  #%d %.2f  %s\n", c.Seq, c.Confidence, c.Title)
	}
}

// NewOutcomeCommand creates the outcome command.
func NewOutcomeCommand(rootOpts *RootOptions) *cobra.Command {
	var wrong bool
	cmd := &cobra.Command{
		Use:   "outcome <confidence>",
		Short: "Record whether an acted-on decision turned out right",
		Long: `Feed back one outcome. A run of confirming outcomes relaxes the
retention threshold by one step, never below the floor. A wrong
outcome only resets the run.

Examples:
  arbiter outcome 92
  arbiter outcome 60 --wrong`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return rootOpts.formatter(cmd).Fail(
					ir.NewInvalidInput("record outcome", fmt.Sprintf("confidence %q is not a number", args[0])))
			}
			return runSession(rootOpts, cmd, true, func(s *session) (result, error) {
				res, err := s.engine.RecordOutcome(c, !wrong)
				if err != nil {
					return result{}, err
				}
				out := OutcomeReport{
					Confidence: c,
					Correct:    !wrong,
					Adjusted:   res.Adjusted,
					Threshold:  res.Threshold,
					Streak:     res.Streak,
					Adjustment: res.Adjustment,
				}
				return result{data: out, text: func(w io.Writer) { printOutcome(w, out) }}, nil
			})
		},
	}
	cmd.Flags().BoolVar(&wrong, "wrong", false, "the decision turned out wrong")
	return cmd
}

func printOutcome(w io.Writer, o OutcomeReport) {
	switch {
	case o.Adjusted:
		fmt.Fprintf(w, "threshold %.2f -> %.2f (%s)\n", o.Adjustment.From, o.Adjustment.To, o.Adjustment.Reason)
	case o.Adjustment != nil:
		fmt.Fprintf(w, "threshold %.2f (%s)\n", o.Threshold, o.Adjustment.Reason)
	default:
		fmt.Fprintf(w, "threshold %.2f (streak %d)\n", o.Threshold, o.Streak)
	}
}

// NewTightenCommand creates the tighten command.
func NewTightenCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tighten [note]",
		Short: "Raise the retention threshold by one step",
		Long: `Raise the retention threshold by one step, never above the ceiling.
The note is kept in the adjustment history.

Examples:
  arbiter tighten
  arbiter tighten too many stale memories`,
		RunE: func(cmd *cobra.Command, args []string) error {
			note := strings.Join(args, " ")
			return runSession(rootOpts, cmd, true, func(s *session) (result, error) {
				adj := s.engine.Tighten(note)
				return result{data: adj, text: func(w io.Writer) {
					fmt.Fprintf(w, "threshold %.2f -> %.2f (%s)\n", adj.From, adj.To, adj.Reason)
				}}, nil
			})
		},
	}
}
