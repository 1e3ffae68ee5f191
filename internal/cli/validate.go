package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/cartridge/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool                       `json:"valid"`
	Cartridges []string                   `json:"cartridges"`
	Errors     []compiler.ValidationError `json:"errors,omitempty"`
	Warnings   []compiler.ValidationError `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate cartridges",
		Long: `Load every cartridge under path and check its structure.

Reports unknown transition and timeout targets, undefined guard
variables, empty guard groups, duplicate ids, negative delays and
other errors. Warnings (unreachable states, self targets, long delays)
are reported but do not fail validation.

Exit codes:
  0 - No errors (warnings allowed)
  1 - Validation errors
  2 - Command error (path not found, etc.)`,
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
	f := opts.formatter(cmd)

	loaded, loadErrs := compiler.Load(path, compiler.LoadModeCollectAll)
	if loaded == nil && len(loadErrs) > 0 {
		return f.Error(loadErrorCode(loadErrs[0]), loadErrs[0].Error(), nil)
	}
	f.VerboseLog("Found %d cartridge file(s) in %s", loaded.FileCount, path)

	result := ValidationResult{Cartridges: []string{}}
	for _, c := range loaded.Cartridges {
		result.Cartridges = append(result.Cartridges, c.ID)
	}

	var findings []compiler.ValidationError
	for _, err := range loadErrs {
		findings = append(findings, loadErrorFinding(err))
	}
	findings = append(findings, loaded.Validate(compiler.Options{MaxDelay: opts.cfg().Runtime.MaxDelay})...)
	result.Errors, result.Warnings = compiler.Split(findings)
	result.Valid = len(result.Errors) == 0

	if !result.Valid {
		msg := fmt.Sprintf("validation failed with %d error(s)", len(result.Errors))
		return f.Failure(result.Errors[0].Code, msg, result, func(w io.Writer) {
			fmt.Fprintln(w, "✗ Validation failed")
			fmt.Fprintln(w)
			printFindings(w, result.Errors)
			printFindings(w, result.Warnings)
		})
	}

	return f.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %d cartridge(s) valid\n", len(result.Cartridges))
		if len(result.Warnings) > 0 {
			fmt.Fprintln(w)
			printFindings(w, result.Warnings)
		}
	})
}

func printFindings(w io.Writer, findings []compiler.ValidationError) {
	for _, finding := range findings {
		fmt.Fprintf(w, "  %s\n", finding.Error())
	}
}
