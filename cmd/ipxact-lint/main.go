// =============================================================================
// IP-XACT Linter - Main Entry Point
// =============================================================================
//
// This tool treats a directory of IP-XACT XML as a library of documents keyed
// by VLNV and checks it the way a design environment would before generating
// anything from it.
//
// THE PIPELINE:
//   1. Config resolves library globs into document files
//   2. The library store indexes every document by VLNV
//   3. Parameter and mode validators check each component
//   4. The hierarchy walker follows views, designs and configurations
//   5. CUE validates the fact tables (crash on schema mismatch)
//   6. OPA evaluates cross-document rules
//   7. Violations are reported with document and file locations
//
// WHEN INVESTIGATING FALSE POSITIVES:
//   Start at the beginning of the pipeline, not the end!
//   Reader issues → Validator issues → Fact issues → Policy issues
// =============================================================================

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/lint"
)

// errViolations makes the process exit non-zero without another message;
// the report already explains why.
var errViolations = errors.New("error severity violations found")

type globalOptions struct {
	configPath string
	format     string
	logLevel   string
	verbose    bool
}

func (o *globalOptions) flags(flags *pflag.FlagSet) {
	flags.StringVarP(&o.configPath, "config", "c", "", "configuration file (default: searched next to the project)")
	flags.StringVarP(&o.format, "format", "f", lint.FormatText, "output format: text, json or yaml")
	flags.StringVar(&o.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "print configuration and timing details")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCommand(stdin, stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errViolations) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "ipxact-lint [options] [command] <path>",
		Short: "Validate IP-XACT libraries",
		Long: `ipxact-lint validates the parameters, hierarchies and cross references of an
IP-XACT library.

Configuration:
  ipxact-lint looks for configuration in:
    1. ./ipxact_lint.{json,toml} and ./.ipxact_lint.{json,toml}
    2. the same names in <path>
    3. ~/.config/ipxact_lint/config.{json,toml}

  Run 'ipxact-lint init' to create a default configuration file.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validateFormat(opts.format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runCheck(cmd.Context(), opts, args[0], stdout, stderr)
		},
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	opts.flags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newCheckCommand(opts, stdout, stderr),
		newInitCommand(stdin, stdout),
		newWatchCommand(opts, stdout, stderr),
		newEvalCommand(opts, stdout, stderr),
		newTreeCommand(opts, stdout, stderr),
		newFilesCommand(opts, stdout, stderr),
		newImpactCommand(opts, stdout, stderr),
		newFactsCommand(opts, stdout, stderr),
	)
	return rootCmd
}

func validateFormat(format string) error {
	for _, f := range lint.Formats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
}

func pathArg(args []string, index int) string {
	if len(args) > index {
		return args[index]
	}
	return "."
}
