package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getmockd/intercept/pkg/cli/internal/output"
	"github.com/getmockd/intercept/pkg/config"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	jsonOutput bool
	logLevel   string
}

// NewRootCmd builds the interceptctl command tree.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:   "interceptctl",
		Short: "Check HTTP interception definitions without running any tests",
		Long: `interceptctl loads expectation definition files (YAML or JSON) the same way
the test harness does.

Use "validate" to compile every matcher and reply in a file, and "explain" to see
which expectation would answer a request and why the others did not.`,
		SilenceUsage:  true,
		SilenceErrors: true, // We handle errors in Execute()
	}

	rootCmd.PersistentFlags().BoolVar(&g.jsonOutput, "json", false, "Output command results in JSON format")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Engine log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newVersionCmd(g),
		newValidateCmd(g),
		newExplainCmd(g),
	)
	return rootCmd
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadDefinitions loads a single file, or every file matching a glob.
func loadDefinitions(path string) (*config.Definitions, error) {
	if strings.ContainsAny(path, "*?[{") {
		return config.LoadDefinitionsGlob(path)
	}
	return config.LoadDefinitions(path)
}

// engineConfig returns the engine section of defs with the --log-level
// flag applied when the file sets no level.
func (g *globalFlags) engineConfig(defs *config.Definitions) *config.EngineConfig {
	cfg := config.EngineConfig{}
	if defs != nil && defs.Engine != nil {
		cfg = *defs.Engine
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = g.logLevel
	}
	return &cfg
}

func printResult(w io.Writer, g *globalFlags, data any, textFn func()) error {
	if g.jsonOutput {
		return output.JSON(w, data)
	}
	textFn()
	return nil
}
