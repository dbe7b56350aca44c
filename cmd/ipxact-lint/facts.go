package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/samber/do"
	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/facts"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/lint"
)

type factsOptions struct {
	output    string
	deltaFrom string
	deltaOut  string
	documents []string
}

func newFactsCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	fo := &factsOptions{}
	cmd := &cobra.Command{
		Use:   "facts [path]",
		Short: "Dump the fact tables the policies are evaluated against",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (fo.deltaFrom == "") != (fo.deltaOut == "") {
				return errors.New("--delta-from and --delta-out must be used together")
			}
			path := pathArg(args, 0)
			injector := newInjector(cmd.Context(), opts, path, stderr)
			linter, err := do.Invoke[*lint.Linter](injector)
			if err != nil {
				return err
			}
			result, runErr := linter.Run(cmd.Context(), path)
			if result == nil {
				return runErr
			}

			tables := result.Tables
			if len(fo.documents) > 0 {
				keep := make(map[string]bool, len(fo.documents))
				for _, d := range fo.documents {
					keep[d] = true
				}
				tables = facts.FilterTablesByDocuments(tables, keep)
			}

			if fo.output != "" {
				if err := writeJSON(fo.output, tables); err != nil {
					return fmt.Errorf("writing facts: %w", err)
				}
			} else {
				format := opts.format
				if format == lint.FormatText {
					format = lint.FormatJSON
				}
				if err := encode(stdout, format, tables); err != nil {
					return fmt.Errorf("encoding facts: %w", err)
				}
			}

			if fo.deltaFrom != "" {
				prev, err := readTables(fo.deltaFrom)
				if err != nil {
					return fmt.Errorf("reading delta-from: %w", err)
				}
				if err := writeJSON(fo.deltaOut, facts.ComputeDelta(prev, tables)); err != nil {
					return fmt.Errorf("writing delta: %w", err)
				}
			}
			return runErr
		},
	}
	cmd.Flags().StringVarP(&fo.output, "output", "o", "", "write facts JSON to file (default: stdout)")
	cmd.Flags().StringVar(&fo.deltaFrom, "delta-from", "", "previous facts JSON to compute delta from")
	cmd.Flags().StringVar(&fo.deltaOut, "delta-out", "", "write delta JSON to file (requires --delta-from)")
	cmd.Flags().StringArrayVar(&fo.documents, "document", nil, "only rows owned by this VLNV (repeatable)")
	return cmd
}

func readTables(path string) (facts.Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return facts.Tables{}, err
	}
	defer func() { _ = f.Close() }()

	var tables facts.Tables
	if err := json.NewDecoder(f).Decode(&tables); err != nil {
		return facts.Tables{}, err
	}
	return tables, nil
}

func writeJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
