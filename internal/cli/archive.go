package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/arbiter/internal/ir"
)

// maxSnapshotFileSize bounds the files accepted by import.
const maxSnapshotFileSize = 64 * 1024 * 1024

// ArchiveResult reports what export or import moved.
type ArchiveResult struct {
	Path      string  `json:"path,omitempty"`
	Digest    string  `json:"digest"`
	Patterns  int     `json:"patterns"`
	Decisions int     `json:"decisions"`
	Threshold float64 `json:"threshold"`
}

func summarize(path string, snap *ir.Snapshot) (ArchiveResult, error) {
	digest, err := ir.SnapshotDigest(snap)
	if err != nil {
		return ArchiveResult{}, err
	}
	return ArchiveResult{
		Path:      path,
		Digest:    digest,
		Patterns:  len(snap.Patterns),
		Decisions: len(snap.Decisions),
		Threshold: snap.Memory.Threshold,
	}, nil
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the complete state as a YAML snapshot",
		Long: `Write catalog, philosophy, decision log and memory state as one YAML
snapshot. Without --output the snapshot goes to stdout.

Examples:
  arbiter export -o backup.yaml
  arbiter export > backup.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(rootOpts, cmd, false, func(s *session) (result, error) {
				snap := s.engine.Snapshot()
				data, err := ir.EncodeSnapshot(snap)
				if err != nil {
					return result{}, err
				}
				sum, err := summarize(output, snap)
				if err != nil {
					return result{}, err
				}

				if output == "" {
					if rootOpts.Format == "json" {
						return result{data: snap}, nil
					}
					return result{text: func(w io.Writer) { _, _ = w.Write(data) }}, nil
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return result{}, withCode(ErrCodeWriteFailed, fmt.Errorf("write snapshot: %w", err))
				}
				return result{data: sum, text: func(w io.Writer) {
					fmt.Fprintf(w, "Exported %d pattern(s), %d decision(s) to %s\n", sum.Patterns, sum.Decisions, output)
					fmt.Fprintf(w, "digest %s\n", sum.Digest)
				}}, nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "snapshot file to write")
	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <snapshot.yaml>",
		Short: "Load a YAML snapshot into an empty database",
		Long: `Load a snapshot written by export. The database must be empty: the
decision log is append-only and is never merged or rewritten.

Examples:
  arbiter --db restored.db import backup.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], cmd)
		},
	}
}

func runImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := commandContext(cmd)

	snap, err := readSnapshotFile(path)
	if err != nil {
		return f.Fail(err)
	}

	s, err := openSession(ctx, opts, cmd, leaveEmpty)
	if err != nil {
		return f.Fail(err)
	}
	defer s.close()

	if !s.fresh {
		return f.Fail(withCode(ErrCodeStore,
			fmt.Errorf("database %s already holds state; import needs an empty database", s.cfg.Database)))
	}
	if err := s.engine.Restore(snap); err != nil {
		return f.Fail(err)
	}
	if err := s.save(ctx); err != nil {
		return f.Fail(err)
	}

	sum, err := summarize(path, s.engine.Snapshot())
	if err != nil {
		return f.Fail(err)
	}
	return f.Render(sum, func(w io.Writer) {
		fmt.Fprintf(w, "Imported %d pattern(s), %d decision(s) from %s\n", sum.Patterns, sum.Decisions, path)
		fmt.Fprintf(w, "digest %s\n", sum.Digest)
	})
}

func readSnapshotFile(path string) (*ir.Snapshot, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, withCode(ErrCodeNotFound, fmt.Errorf("snapshot file not found: %s", path))
	}
	if err != nil {
		return nil, withCode(ErrCodeReadFailed, err)
	}
	if info.IsDir() {
		return nil, withCode(ErrCodeReadFailed, fmt.Errorf("snapshot path is a directory: %s", path))
	}
	if info.Size() > maxSnapshotFileSize {
		return nil, withCode(ErrCodeReadFailed,
			fmt.Errorf("snapshot file too large: %d bytes (max %d)", info.Size(), maxSnapshotFileSize))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, withCode(ErrCodeReadFailed, fmt.Errorf("read snapshot: %w", err))
	}
	snap, err := ir.DecodeSnapshot(data)
	if err != nil {
		if ir.CodeOf(err) != "" {
			return nil, err
		}
		return nil, withCode(ErrCodeReadFailed, err)
	}
	return snap, nil
}
