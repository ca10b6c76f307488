package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/worm/internal/harness"
)

// ValidateResult lists scenario files and their load errors.
type ValidateResult struct {
	Valid   []string          `json:"valid"`
	Invalid map[string]string `json:"invalid,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-file-or-dir>...",
		Short: "Check scenario files without running them",
		Long: `Parse and validate scenario files (.yaml, .yml, .cue).

Unknown fields, unknown ops, and steps that need a record before one exists
are reported. Exit code 1 if any file is invalid.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateScenarios(rootOpts, args, cmd)
		},
	}
	return cmd
}

func validateScenarios(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	files, err := collectScenarioFiles(paths, "", opts.configFileUsed())
	if err != nil {
		_ = out.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	if len(files) == 0 {
		_ = out.Error(ErrCodeNoFiles, "no scenario files found", paths)
		return NewExitError(ExitCommandError, "no scenario files found")
	}

	result := ValidateResult{Valid: []string{}}
	for _, file := range files {
		out.VerboseLog("validating %s", file)
		if _, err := harness.LoadScenario(file); err != nil {
			if result.Invalid == nil {
				result.Invalid = make(map[string]string)
			}
			result.Invalid[file] = err.Error()
			continue
		}
		result.Valid = append(result.Valid, file)
	}

	if len(result.Invalid) > 0 {
		if !out.IsJSON() {
			for _, file := range files {
				if msg, bad := result.Invalid[file]; bad {
					fmt.Fprintf(out.Writer, "✗ %s: %s\n", file, msg)
				}
			}
		}
		_ = out.Error(ErrCodeLoadFailed, fmt.Sprintf("%d of %d scenario files invalid", len(result.Invalid), len(files)), result.Invalid)
		return NewExitError(ExitFailure, "invalid scenario files")
	}

	if out.IsJSON() {
		return out.Success(result)
	}
	return out.Success(fmt.Sprintf("%d scenario files valid", len(result.Valid)))
}
