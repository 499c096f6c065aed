package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getmockd/intercept/pkg/cli/internal/output"
	"github.com/getmockd/intercept/pkg/config"
	"github.com/getmockd/intercept/pkg/engine"
	"github.com/getmockd/intercept/pkg/logging"
)

// ValidateResult is the outcome for one argument of the validate command.
type ValidateResult struct {
	Path         string   `json:"path"`
	Valid        bool     `json:"valid"`
	Scopes       int      `json:"scopes"`
	Expectations int      `json:"expectations"`
	Errors       []string `json:"errors,omitempty"`
}

func newValidateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file|glob>...",
		Short: "Validate definition files",
		Long: `Validate expectation definition files without making any request.

This command checks:
  - YAML/JSON syntax and unknown fields
  - Origins, statuses and body matcher combinations
  - Every matcher compiles (regex, glob, expression, JSONPath, JSON schema)
  - Reply bodies and reply files resolve`,
		Example: `  # Validate a single file
  interceptctl validate mocks/users.yaml

  # Validate every definition file in a tree
  interceptctl validate 'mocks/**/*.yaml'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]ValidateResult, 0, len(args))
			failed := 0
			for _, path := range args {
				r := validatePath(path)
				if !r.Valid {
					failed++
				}
				results = append(results, r)
			}

			w := cmd.OutOrStdout()
			if err := printResult(w, g, results, func() { printValidation(w, results) }); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("validation failed for %d of %d path(s)", failed, len(args))
			}
			return nil
		},
	}
}

// validatePath loads path and defines it on a scratch engine.
func validatePath(path string) ValidateResult {
	r := ValidateResult{Path: path}
	defs, err := loadDefinitions(path)
	if err != nil {
		r.Errors = splitErrors(err)
		return r
	}
	r.Scopes = len(defs.Scopes)

	e := engine.New(engine.WithLogger(logging.Nop()))
	exps, err := config.Define(e, defs)
	r.Expectations = len(exps)
	if err != nil {
		r.Errors = splitErrors(err)
		return r
	}
	r.Valid = true
	return r
}

// splitErrors flattens errors.Join output into one line per error.
func splitErrors(err error) []string {
	var out []string
	for _, line := range strings.Split(err.Error(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func printValidation(w io.Writer, results []ValidateResult) {
	tw := output.Table(w)
	for _, r := range results {
		if r.Valid {
			fmt.Fprintf(tw, "%s\tvalid\t%d scope(s), %d expectation(s)\n", r.Path, r.Scopes, r.Expectations)
			continue
		}
		fmt.Fprintf(tw, "%s\tinvalid\t\n", r.Path)
	}
	_ = tw.Flush()
	for _, r := range results {
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  - %s: %s\n", r.Path, e)
		}
	}
}
