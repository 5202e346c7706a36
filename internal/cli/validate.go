package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/arbiter/internal/engine"
	"github.com/roach88/arbiter/internal/ir"
	"github.com/roach88/arbiter/internal/seed"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	File     string            `json:"file"`
	Patterns int               `json:"patterns"`
	Facts    int               `json:"facts"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationError is one problem found in a seed file.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <seed.cue>",
		Short: "Validate a seed file without touching the database",
		Long: `Validate a CUE seed file against the seed schema and load it into a
throwaway engine. Errors carry file:line:col positions.

Exit codes:
  0 - Seed is valid
  1 - Seed is invalid
  2 - Command error (file not found, etc.)

Examples:
  arbiter validate seeds/team.cue
  arbiter validate seeds/team.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sd, err := seed.LoadFile(path)
	var seedErr *seed.Error
	switch {
	case errors.As(err, &seedErr):
		return outputValidation(formatter, ValidationResult{
			File:   path,
			Errors: []ValidationError{fromSeedError(seedErr)},
		})
	case err != nil:
		return formatter.Fail(withCode(ErrCodeReadFailed, err))
	}
	formatter.VerboseLog("Loaded %d pattern(s) from %s", len(sd.Patterns), path)

	res := ValidationResult{File: path, Patterns: len(sd.Patterns)}
	for _, facts := range sd.Philosophy {
		res.Facts += len(facts)
	}

	eng, err := engine.New()
	if err != nil {
		return formatter.Fail(err)
	}
	if err := seed.Apply(sd, eng); err != nil {
		res.Errors = append(res.Errors, ValidationError{Code: string(ir.CodeOf(err)), Message: err.Error()})
	}
	return outputValidation(formatter, res)
}

func fromSeedError(e *seed.Error) ValidationError {
	v := ValidationError{Code: ErrCodeSeed, Message: e.Message}
	if e.Pos.IsValid() {
		v.Line = e.Pos.Line()
		v.Column = e.Pos.Column()
	}
	return v
}

func outputValidation(f *OutputFormatter, res ValidationResult) error {
	res.Valid = len(res.Errors) == 0

	if f.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: res}
		if !res.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeSeed,
				Message: fmt.Sprintf("%d validation error(s)", len(res.Errors)),
			}
		}
		if err := f.encode(resp); err != nil {
			return err
		}
	} else {
		printValidation(f.Writer, res)
	}

	if !res.Valid {
		return &ExitError{
			Code:     ExitFailure,
			Message:  fmt.Sprintf("%s: %d validation error(s)", res.File, len(res.Errors)),
			Reported: true,
		}
	}
	return nil
}

func printValidation(w io.Writer, res ValidationResult) {
	if res.Valid {
		fmt.Fprintf(w, "✓ %s: %d pattern(s), %d fact(s)\n", res.File, res.Patterns, res.Facts)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", res.File)
	for _, e := range res.Errors {
		if e.Line > 0 {
			fmt.Fprintf(w, "  line %d:%d: %s\n", e.Line, e.Column, e.Message)
			continue
		}
		fmt.Fprintf(w, "  %s\n", e.Message)
	}
}
