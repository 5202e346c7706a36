package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/arbiter/internal/ir"
	"github.com/roach88/arbiter/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Session string
	Tier    string
	Limit   int
	Digest  bool
}

// LogEntry is one decision in the log output.
type LogEntry struct {
	ir.DecisionRecord
	Digest string `json:"digest,omitempty"`
}

// LogResult holds the log output.
type LogResult struct {
	Entries []LogEntry `json:"entries"`
	Stats   LogStats   `json:"stats"`
}

// LogStats summarizes the listed decisions.
type LogStats struct {
	Total    int             `json:"total"`
	Retained int             `json:"retained"`
	ByTier   map[ir.Tier]int `json:"by_tier"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List the decision log",
		Long: `List stored decisions in seq order. The log is append-only: every
decide call adds exactly one entry, blocked decisions included.

With --digest each entry carries its content digest, which changes if
any field of the stored record does.

Examples:
  arbiter log
  arbiter log --session 01928a3c-... --tier blocked
  arbiter log --limit 10 --digest --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Session, "session", "", "only decisions of this session")
	cmd.Flags().StringVar(&opts.Tier, "tier", "", "only decisions of this tier")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "only the last n matching decisions")
	cmd.Flags().BoolVar(&opts.Digest, "digest", false, "include content digests")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := commandContext(cmd)

	if opts.Tier != "" && !ir.Tier(opts.Tier).Valid() {
		return f.Fail(ir.NewInvalidInput("log", fmt.Sprintf("unknown tier %q", opts.Tier)))
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return f.Fail(err)
	}

	// Open database
	st, err := store.Open(cfg.Database)
	if err != nil {
		return f.Fail(withCode(ErrCodeStore, fmt.Errorf("open database %s: %w", cfg.Database, err)))
	}
	defer st.Close()

	decisions, err := st.ReadDecisions(ctx, opts.Session)
	if err != nil {
		return f.Fail(withCode(ErrCodeStore, err))
	}
	f.VerboseLog("Read %d decision(s) from %s", len(decisions), cfg.Database)

	res, err := buildLog(decisions, opts)
	if err != nil {
		return f.Fail(err)
	}
	return f.Render(res, func(w io.Writer) { printLog(w, res) })
}

func buildLog(decisions []ir.DecisionRecord, opts *LogOptions) (LogResult, error) {
	res := LogResult{
		Entries: []LogEntry{},
		Stats:   LogStats{ByTier: map[ir.Tier]int{}},
	}
	for _, d := range decisions {
		if opts.Tier != "" && d.Tier != ir.Tier(opts.Tier) {
			continue
		}
		entry := LogEntry{DecisionRecord: d}
		if opts.Digest {
			digest, err := ir.DecisionDigest(d)
			if err != nil {
				return LogResult{}, err
			}
			entry.Digest = digest
		}
		res.Entries = append(res.Entries, entry)
	}
	if opts.Limit > 0 && len(res.Entries) > opts.Limit {
		res.Entries = res.Entries[len(res.Entries)-opts.Limit:]
	}

	for _, e := range res.Entries {
		res.Stats.Total++
		res.Stats.ByTier[e.Tier]++
		if e.Retained {
			res.Stats.Retained++
		}
	}
	return res, nil
}

func printLog(w io.Writer, res LogResult) {
	if len(res.Entries) == 0 {
		fmt.Fprintln(w, "No decisions.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tTIER\tCONF\tRET\tTITLE")
	for _, e := range res.Entries {
		ret := "-"
		if e.Retained {
			ret = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%s\t%s\n", e.Seq, e.Tier, e.Confidence, ret, e.Title)
		if e.Digest != "" {
			fmt.Fprintf(tw, "\t\t\t\t%s\n", e.Digest)
		}
	}
	_ = tw.Flush()

	fmt.Fprintf(w, "\n%d decision(s), %d retained", res.Stats.Total, res.Stats.Retained)
	for _, t := range ir.Tiers {
		if n := res.Stats.ByTier[t]; n > 0 {
			fmt.Fprintf(w, ", %d %s", n, t)
		}
	}
	fmt.Fprintln(w)
}
