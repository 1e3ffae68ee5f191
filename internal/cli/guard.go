package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/cartridge/internal/guard"
	"github.com/roach88/cartridge/internal/ir"
)

// GuardOptions holds flags for the guard command.
type GuardOptions struct {
	*RootOptions
	Vars    []string
	Context string
}

// GuardResult describes one guard tree.
type GuardResult struct {
	Expression string        `json:"expression"`
	Valid      bool          `json:"valid"`
	Errors     []GuardIssue `json:"errors,omitempty"`
	Warnings   []GuardIssue `json:"warnings,omitempty"`
	Result     *bool        `json:"result,omitempty"`
}

// GuardIssue is a guard validation finding.
type GuardIssue struct {
	Code    string `json:"code"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func newGuardIssue(i guard.Issue) GuardIssue {
	return GuardIssue{Code: string(i.Code), Path: i.Path, Message: i.Message}
}

func (i GuardIssue) String() string {
	if i.Path == "" {
		return fmt.Sprintf("%s: %s", i.Code, i.Message)
	}
	return fmt.Sprintf("%s at %s: %s", i.Code, i.Path, i.Message)
}

// NewGuardCommand creates the guard command.
func NewGuardCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GuardOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "guard <json>",
		Short: "Render, check and evaluate a guard tree",
		Long: `Print a guard tree as a readable expression and check it.

With --var, variables outside the given names are reported as
undefined. With --context, the guard is evaluated against that JSON
object and its variables are taken from the object's keys.

Examples:
  cartridge guard '{"leftKey":"coins","operator":"gt","rightValue":0}'
  cartridge guard "$(cat guard.json)" --var coins --var lives
  cartridge guard '{"leftKey":"hp","operator":"lte","rightValue":"0"}' --context '{"hp":0}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGuard(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Vars, "var", nil, "context variable name (repeatable)")
	cmd.Flags().StringVar(&opts.Context, "context", "", "JSON object to evaluate the guard against")
	return cmd
}

func runGuard(opts *GuardOptions, raw string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	g, err := ir.UnmarshalGuard([]byte(raw))
	if err != nil {
		return f.Error("E212", err.Error(), nil)
	}

	var ctx map[string]any
	if opts.Context != "" {
		if err := json.Unmarshal([]byte(opts.Context), &ctx); err != nil {
			return f.Error("E001", fmt.Sprintf("invalid --context: %v", err), nil)
		}
	}

	vars := make(map[string]bool)
	for _, v := range opts.Vars {
		vars[v] = true
	}
	for k := range ctx {
		vars[k] = true
	}
	checkVars := len(opts.Vars) > 0 || ctx != nil

	res := guard.Validate(g, vars)
	out := GuardResult{Expression: guard.Format(g)}
	for _, issue := range res.Errors {
		if issue.Code == guard.CodeUndefinedVariable && !checkVars {
			continue
		}
		out.Errors = append(out.Errors, newGuardIssue(issue))
	}
	for _, issue := range res.Warnings {
		out.Warnings = append(out.Warnings, newGuardIssue(issue))
	}
	out.Valid = len(out.Errors) == 0

	if ctx != nil {
		v := guard.Evaluate(g, ctx)
		out.Result = &v
	}

	text := func(w io.Writer) {
		fmt.Fprintln(w, out.Expression)
		for _, issue := range out.Errors {
			fmt.Fprintf(w, "  error: %s\n", issue)
		}
		for _, issue := range out.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", issue)
		}
		if out.Result != nil {
			fmt.Fprintf(w, "=> %t\n", *out.Result)
		}
	}

	if !out.Valid {
		return f.Failure(out.Errors[0].Code, "guard is invalid", out, text)
	}
	return f.Success(out, text)
}
