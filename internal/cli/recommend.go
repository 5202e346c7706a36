package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/arbiter/internal/ir"
)

// Recommendation is one ranked pattern.
type Recommendation struct {
	Name       string      `json:"name"`
	Category   ir.Category `json:"category"`
	Confidence float64     `json:"confidence"`
	Score      int         `json:"score"`
}

// NewRecommendCommand creates the recommend command.
func NewRecommendCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend <context>",
		Short: "Rank catalog patterns against a free-text context",
		Long: `Rank catalog patterns by how many context keywords they share,
best first. Ties go to the higher confidence, then to the name.
No match is not an error.

Examples:
  arbiter recommend "configuration defaults"
  arbiter recommend review the pull request --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecommend(rootOpts, strings.Join(args, " "), cmd)
		},
	}
	return cmd
}

func runRecommend(opts *RootOptions, context string, cmd *cobra.Command) error {
	return runSession(opts, cmd, false, func(s *session) (result, error) {
		recs := []Recommendation{}
		for _, m := range s.engine.Recommend(context) {
			recs = append(recs, Recommendation{
				Name:       m.Record.Name,
				Category:   m.Record.Category,
				Confidence: m.Record.Confidence,
				Score:      m.Score,
			})
		}
		return result{data: recs, text: func(w io.Writer) {
			if len(recs) == 0 {
				fmt.Fprintln(w, "No matching patterns.")
				return
			}
			for i, r := range recs {
				fmt.Fprintf(w, "%d. %s (%s, %.2f) score %d\n", i+1, r.Name, r.Category, r.Confidence, r.Score)
			}
		}}, nil
	})
}
