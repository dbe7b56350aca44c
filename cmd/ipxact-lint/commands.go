package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/samber/do"
	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/config"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/lint"
)

// =============================================================================
// check
// =============================================================================

func newCheckCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "check [path]",
		Short: "Lint the IP-XACT library under path (default command)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), opts, pathArg(args, 0), stdout, stderr)
		},
	}
}

func runCheck(ctx context.Context, opts *globalOptions, path string, stdout, stderr io.Writer) error {
	injector := newInjector(ctx, opts, path, stderr)
	linter, err := do.Invoke[*lint.Linter](injector)
	if err != nil {
		return err
	}
	if opts.verbose && opts.format == lint.FormatText {
		cfg := do.MustInvoke[*config.Config](injector)
		fmt.Fprintf(stdout, "Loaded configuration with %d libraries\n", len(cfg.Libraries))
	}

	result, runErr := linter.Run(ctx, path)
	if result == nil {
		return runErr
	}
	var stages []lint.Stage
	if opts.verbose {
		stages = result.Stages
	}
	if err := lint.Render(stdout, result.Report, opts.format, stages); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if result.Report.HasErrors() {
		return errViolations
	}
	return nil
}

// =============================================================================
// init
// =============================================================================

func newInitCommand(stdin io.Reader, stdout io.Writer) *cobra.Command {
	var useTOML, force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an ipxact_lint configuration file in the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := "ipxact_lint.json"
			if useTOML {
				configPath = "ipxact_lint.toml"
			}
			return runInit(configPath, force, stdin, stdout)
		},
	}
	cmd.Flags().BoolVar(&useTOML, "toml", false, "write TOML instead of JSON")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file without asking")
	return cmd
}

func runInit(configPath string, force bool, stdin io.Reader, stdout io.Writer) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		fmt.Fprintf(stdout, "Config file %s already exists. Overwrite? [y/N]: ", configPath)
		response, _ := bufio.NewReader(stdin).ReadString('\n')
		response = strings.TrimSpace(response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(stdout, "Aborted.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("creating config: %w", err)
	}

	fmt.Fprintf(stdout, "Created %s\n", configPath)
	fmt.Fprintln(stdout, "\nEdit this file to configure:")
	fmt.Fprintln(stdout, "  - Library document patterns")
	fmt.Fprintln(stdout, "  - Default IP-XACT revision")
	fmt.Fprintln(stdout, "  - Third-party library detection")
	fmt.Fprintln(stdout, "  - Lint rule severities")
	return nil
}

// =============================================================================
// watch
// =============================================================================

func newWatchCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [path]",
		Short: "Lint the library and re-lint whenever a document changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := pathArg(args, 0)
			injector := newInjector(cmd.Context(), opts, path, stderr)
			linter, err := do.Invoke[*lint.Linter](injector)
			if err != nil {
				return err
			}
			return linter.Watch(cmd.Context(), path, func(u lint.Update) {
				printUpdate(stdout, stderr, opts, u)
			})
		},
	}
}

func printUpdate(stdout, stderr io.Writer, opts *globalOptions, u lint.Update) {
	if opts.format == lint.FormatText {
		fmt.Fprintf(stdout, "\n--- %s ---\n", time.Now().Format(time.TimeOnly))
		for _, c := range u.Changes {
			fmt.Fprintf(stdout, "changed: %s\n", c.Path)
		}
		if len(u.Changes) > 0 {
			fmt.Fprintf(stdout, "facts: +%d -%d\n", u.Delta.Added.Len(), u.Delta.Removed.Len())
		}
	}
	if u.Err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", u.Err)
	}
	if u.Result == nil {
		return
	}
	var stages []lint.Stage
	if opts.verbose {
		stages = u.Result.Stages
	}
	if err := lint.Render(stdout, u.Result.Report, opts.format, stages); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
}
