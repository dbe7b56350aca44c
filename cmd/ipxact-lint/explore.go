package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/samber/do"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/config"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/expression"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/hierarchy"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/ipxact"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/library"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/lint"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/vlnv"
)

// encode writes v as JSON or YAML. Text output is left to the caller.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case lint.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case lint.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q", format)
}

// resolveVLNV accepts "vendor:library:name:version", or
// "vendor:library:name" for the latest version in the library.
func resolveVLNV(store *library.Store, arg string) (vlnv.VLNV, error) {
	parts := strings.Split(arg, ":")
	if len(parts) == 3 {
		id, ok := store.Latest(parts[0], parts[1], parts[2])
		if !ok {
			return vlnv.VLNV{}, fmt.Errorf("%w: %s", library.ErrNotFound, arg)
		}
		return id, nil
	}
	id, err := vlnv.Parse(arg, vlnv.Component)
	if err != nil {
		return vlnv.VLNV{}, err
	}
	if !store.Contains(id) {
		return vlnv.VLNV{}, fmt.Errorf("%w: %s", library.ErrNotFound, id)
	}
	return id, nil
}

type session struct {
	store  *library.Store
	config *config.Config
	logger *slog.Logger
}

func openSession(cmd *cobra.Command, opts *globalOptions, path string, stderr io.Writer) (*session, error) {
	injector := newInjector(cmd.Context(), opts, path, stderr)
	store, err := do.Invoke[*library.Store](injector)
	if err != nil {
		return nil, err
	}
	return &session{
		store:  store,
		config: do.MustInvoke[*config.Config](injector),
		logger: do.MustInvoke[*slog.Logger](injector),
	}, nil
}

// =============================================================================
// eval
// =============================================================================

func newEvalCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var params []string
	var component, path string
	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate an IP-XACT expression",
		Long: `Evaluate an IP-XACT expression. Parameter references resolve against
--param id=value pairs, or against the parameters of --component.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var finder expression.ParameterFinder
			values := expression.MapFinder{}
			for _, p := range params {
				id, value, ok := strings.Cut(p, "=")
				if !ok || id == "" {
					return fmt.Errorf("invalid --param %q (want id=value)", p)
				}
				values[id] = value
			}
			finder = values

			if component != "" {
				s, err := openSession(cmd, opts, path, stderr)
				if err != nil {
					return err
				}
				id, err := resolveVLNV(s.store, component)
				if err != nil {
					return err
				}
				doc, err := s.store.GetModel(id)
				if err != nil {
					return err
				}
				comp, ok := doc.(*ipxact.Component)
				if !ok {
					return fmt.Errorf("%s is a %s, not a component", id, s.store.GetDocumentType(id))
				}
				finder = expression.NewComponentFinder(comp)
			}

			parser := expression.NewIPXactParser(finder)
			value, ok := parser.Evaluate(args[0])
			if opts.format != lint.FormatText {
				return encode(stdout, opts.format, map[string]any{
					"expression": args[0],
					"value":      value,
					"valid":      ok,
				})
			}
			fmt.Fprintln(stdout, value)
			if !ok {
				return fmt.Errorf("invalid expression %q", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "parameter value as id=value (repeatable)")
	cmd.Flags().StringVar(&component, "component", "", "resolve references against this component's parameters")
	cmd.Flags().StringVar(&path, "library", ".", "library path used with --component")
	return cmd
}

// =============================================================================
// tree
// =============================================================================

type treeOutput struct {
	Root   string           `json:"root" yaml:"root"`
	Nodes  []hierarchy.Node `json:"nodes" yaml:"nodes"`
	Errors []string         `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func newTreeCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var maxDepth int
	cmd := &cobra.Command{
		Use:   "tree <vlnv> [path]",
		Short: "Print the instance hierarchy below a component",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts, pathArg(args, 1), stderr)
			if err != nil {
				return err
			}
			id, err := resolveVLNV(s.store, args[0])
			if err != nil {
				return err
			}

			rec := &hierarchy.Recorder{}
			walker := hierarchy.NewWalker(s.store, hierarchy.Tee{rec, hierarchy.NewSlogReporter(s.logger)})
			walker.MaxDepth = s.config.Analysis.MaxDepth
			if cmd.Flags().Changed("max-depth") {
				walker.MaxDepth = maxDepth
			}
			nodes := walker.Expand(id)

			if opts.format != lint.FormatText {
				return encode(stdout, opts.format, treeOutput{Root: id.String(), Nodes: nodes, Errors: rec.Errors()})
			}
			for _, n := range nodes {
				label := n.VLNV.String()
				if n.Instance != "" {
					label = n.Instance + " (" + label + ")"
				}
				fmt.Fprintf(stdout, "%s%s\n", strings.Repeat("  ", n.Depth), label)
			}
			printErrors(stdout, rec.Errors())
			return nil
		},
	}
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "stop below this many levels (0 = unlimited)")
	return cmd
}

func printErrors(w io.Writer, errs []string) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintf(w, "\n=== Hierarchy Errors ===\n")
	for _, e := range errs {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// =============================================================================
// files
// =============================================================================

type filesOutput struct {
	Root   string   `json:"root" yaml:"root"`
	View   string   `json:"view,omitempty" yaml:"view,omitempty"`
	Files  []string `json:"files" yaml:"files"`
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func newFilesCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var view string
	cmd := &cobra.Command{
		Use:   "files <vlnv> [path]",
		Short: "List the RTL files of a component hierarchy in compile order",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts, pathArg(args, 1), stderr)
			if err != nil {
				return err
			}
			id, err := resolveVLNV(s.store, args[0])
			if err != nil {
				return err
			}

			rec := &hierarchy.Recorder{}
			walker := hierarchy.NewWalker(s.store, hierarchy.Tee{rec, hierarchy.NewSlogReporter(s.logger)})
			files := walker.CollectFiles(id, view)

			if opts.format != lint.FormatText {
				if files == nil {
					files = []string{}
				}
				return encode(stdout, opts.format, filesOutput{Root: id.String(), View: view, Files: files, Errors: rec.Errors()})
			}
			for _, f := range files {
				fmt.Fprintln(stdout, f)
			}
			printErrors(stdout, rec.Errors())
			return nil
		},
	}
	cmd.Flags().StringVar(&view, "view", "", "top-level view to start from (default: all file sets of the component)")
	return cmd
}

// =============================================================================
// impact
// =============================================================================

func newImpactCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "impact <vlnv> [path]",
		Short: "List the documents affected by a change to a document",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts, pathArg(args, 1), stderr)
			if err != nil {
				return err
			}
			id, err := resolveVLNV(s.store, args[0])
			if err != nil {
				return err
			}

			report := hierarchy.BuildDependents(s.store, s.store.AllVLNVs()).Impact(id)
			if opts.format != lint.FormatText {
				return encode(stdout, opts.format, report)
			}
			fmt.Fprintf(stdout, "\n=== Impact ===\n")
			fmt.Fprint(stdout, report.String())
			return nil
		},
	}
}
