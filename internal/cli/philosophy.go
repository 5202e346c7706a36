package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/arbiter/internal/ir"
)

// TopicFacts is the content of one philosophy topic.
type TopicFacts struct {
	Topic ir.Topic                `json:"topic"`
	Facts map[string]ir.FactValue `json:"facts"`
}

// NewPhilosophyCommand creates the philosophy command group.
func NewPhilosophyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "philosophy",
		Short: "Read and record preference facts",
		Long: `Preference facts are grouped by topic: identity, methodology,
communication, quality and project. A fact is a text or a list.`,
	}
	cmd.AddCommand(newPhilosophyGetCommand(rootOpts))
	cmd.AddCommand(newPhilosophySetCommand(rootOpts))
	return cmd
}

func newPhilosophyGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get [topic]",
		Short: "Show the facts of one topic, or of every topic",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(rootOpts, cmd, false, func(s *session) (result, error) {
				topics := ir.Topics
				if len(args) == 1 {
					t, err := ir.ParseTopic(args[0])
					if err != nil {
						return result{}, err
					}
					topics = []ir.Topic{t}
				}

				out := make([]TopicFacts, 0, len(topics))
				for _, t := range topics {
					facts := s.engine.Philosophy(t)
					if facts == nil {
						facts = map[string]ir.FactValue{}
					}
					out = append(out, TopicFacts{Topic: t, Facts: facts})
				}
				return result{data: out, text: func(w io.Writer) { printTopics(w, out) }}, nil
			})
		},
	}
}

func printTopics(w io.Writer, topics []TopicFacts) {
	for _, tf := range topics {
		fmt.Fprintf(w, "%s:\n", tf.Topic)
		keys := make([]string, 0, len(tf.Facts))
		for k := range tf.Facts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %s\n", k, tf.Facts[k])
		}
	}
}

func newPhilosophySetCommand(rootOpts *RootOptions) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "set <topic> <key> <value>...",
		Short: "Record a preference fact",
		Long: `Record a fact, replacing any previous value under the same key.
The value words are joined into one text, or kept as separate items
with --list.

Examples:
  arbiter philosophy set communication style terse
  arbiter philosophy set communication channels chat email --list`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := ir.Text(strings.Join(args[2:], " "))
			if list {
				value = ir.List(args[2:]...)
			}
			return runSession(rootOpts, cmd, true, func(s *session) (result, error) {
				topic, err := ir.ParseTopic(args[0])
				if err != nil {
					return result{}, err
				}
				if err := s.engine.RecordPhilosophy(topic, args[1], value); err != nil {
					return result{}, err
				}
				out := TopicFacts{Topic: topic, Facts: map[string]ir.FactValue{args[1]: value}}
				return result{data: out, text: func(w io.Writer) {
					fmt.Fprintf(w, "%s.%s = %s\n", topic, args[1], value)
				}}, nil
			})
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "store the value words as a list")
	return cmd
}
