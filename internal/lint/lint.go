// =============================================================================
// IP-XACT Lint Pipeline
// =============================================================================
//
// THE PIPELINE:
//   1. Config resolves library globs into document files
//   2. Store identifies every document by VLNV (identity cache, timing log)
//   3. Documents are parsed in parallel, components validated per revision
//   4. Hierarchies are expanded; walker errors become diagnostics
//   5. Fact tables are built and checked against the CUE contract
//   6. OPA evaluates cross-document rules over the facts
//   7. The report is checked against its contract and rendered
//
// WHEN INVESTIGATING FALSE POSITIVES:
//   Start at the beginning of the pipeline, not the end!
//   Reader issues → Validator issues → Fact issues → Policy issues
// =============================================================================

// Package lint runs the whole ipxact-lint pipeline over a project.
package lint

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/config"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/contract"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/facts"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/hierarchy"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/ipxact"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/library"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/policy"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/validator"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/vlnv"
)

// Linter runs the pipeline with one configuration.
type Linter struct {
	Config *config.Config
	Logger *slog.Logger
}

// New returns a linter for cfg. A nil cfg is loaded from the project root on
// the first run.
func New(cfg *config.Config, logger *slog.Logger) *Linter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Linter{Config: cfg, Logger: logger.With(slog.String("component", "lint"))}
}

// Stage is the wall time of one pipeline step.
type Stage struct {
	Name     string
	Duration time.Duration
}

// Result is everything one analysis produced.
type Result struct {
	Report Report
	Tables facts.Tables
	Stages []Stage
}

// Run opens the project at rootPath and analyzes it once.
func (l *Linter) Run(ctx context.Context, rootPath string) (*Result, error) {
	store, err := l.Open(ctx, rootPath)
	if err != nil {
		return nil, err
	}
	return l.Analyze(ctx, rootPath, store)
}

func (l *Linter) config(rootPath string) (*config.Config, error) {
	if l.Config == nil {
		cfg, err := config.Load(rootPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		l.Config = cfg
	}
	return l.Config, nil
}

// Open resolves the configured libraries and indexes their documents.
func (l *Linter) Open(ctx context.Context, rootPath string) (*library.Store, error) {
	cfg, err := l.config(rootPath)
	if err != nil {
		return nil, err
	}
	files, err := cfg.GetAllFiles(rootPath)
	if err != nil {
		return nil, fmt.Errorf("resolve libraries: %w", err)
	}
	l.Logger.Debug("resolved libraries",
		slog.Int("libraries", len(cfg.Libraries)),
		slog.Int("files", len(files)))

	store, err := library.Open(ctx, files,
		library.WithLogger(l.Logger),
		library.WithCache(cfg.CacheDir(rootPath)),
		library.WithTiming(cfg.TimingPath(rootPath)),
		library.WithParallelism(cfg.Analysis.MaxParallelFiles),
		library.WithFilter(func(path string) bool {
			return cfg.Includes(rootPath, path)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("open library: %w", err)
	}
	return store, nil
}

// Analyze validates every document of store and evaluates the policies.
// Findings are reported in the result; only failures of the pipeline itself
// are returned as errors.
func (l *Linter) Analyze(ctx context.Context, rootPath string, store *library.Store) (*Result, error) {
	cfg, err := l.config(rootPath)
	if err != nil {
		return nil, err
	}
	pipelineErrs := make([]error, 0)
	recordPipelineErr := func(err error) {
		pipelineErrs = append(pipelineErrs, err)
	}
	result := &Result{}
	stage := func(name string, start time.Time) {
		result.Stages = append(result.Stages, Stage{Name: name, Duration: time.Since(start)})
	}
	runStart := time.Now()

	// 1. Parse and validate every document
	stepStart := time.Now()
	ids := store.AllVLNVs()
	diagnostics, err := l.validateDocuments(ctx, store, ids, cfg.DefaultRevision())
	if err != nil {
		return nil, err
	}
	stage("validate", stepStart)

	// 2. Expand hierarchies
	stepStart = time.Now()
	diagnostics = append(diagnostics, l.walkHierarchies(store, ids, cfg.Analysis.MaxDepth)...)
	stage("hierarchy", stepStart)

	// 3. Build facts and enforce the data contract
	stepStart = time.Now()
	thirdParty, err := cfg.ThirdPartyFiles(rootPath)
	if err != nil {
		recordPipelineErr(fmt.Errorf("third-party libraries: %w", err))
	}
	tables := facts.BuildTables(store, ids, thirdParty, diagnostics)
	factsValidator, err := contract.NewFactsValidator()
	if err != nil {
		return nil, fmt.Errorf("facts contract: %w", err)
	}
	if err := factsValidator.Validate(tables); err != nil {
		return nil, fmt.Errorf("facts violate contract: %w", err)
	}
	result.Tables = tables
	stage("facts", stepStart)

	// 4. Policy
	stepStart = time.Now()
	engine, err := policy.New(ctx,
		policy.WithPolicyDir(cfg.PolicyDir(rootPath)),
		policy.WithSeverities(cfg.Lint.Rules),
	)
	if err != nil {
		return nil, fmt.Errorf("initialize policy engine: %w", err)
	}
	evaluated, err := engine.Evaluate(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("policy evaluation failed: %w", err)
	}
	stage("policy", stepStart)

	result.Report = Report{
		Root:       rootPath,
		Documents:  len(ids),
		Violations: evaluated.Violations,
		Summary:    evaluated.Summary,
	}
	for _, err := range pipelineErrs {
		result.Report.Errors = append(result.Report.Errors, err.Error())
	}

	reportValidator, err := contract.NewReportValidator()
	if err != nil {
		return nil, fmt.Errorf("report contract: %w", err)
	}
	if err := reportValidator.Validate(result.Report); err != nil {
		return nil, fmt.Errorf("report violates contract: %w", err)
	}
	stage("total", runStart)

	l.Logger.Debug("analysis finished",
		slog.Int("documents", len(ids)),
		slog.Int("violations", len(evaluated.Violations)),
		slog.Duration("elapsed", time.Since(runStart)))

	if len(pipelineErrs) > 0 {
		return result, fmt.Errorf("pipeline errors:\n%s", formatPipelineErrors(pipelineErrs))
	}
	return result, nil
}

// validateDocuments loads every document in parallel and validates the
// components. Documents that fail to load become "load" diagnostics.
// Components without a recognised revision are validated as def.
func (l *Linter) validateDocuments(ctx context.Context, store *library.Store, ids []vlnv.VLNV, def ipxact.Revision) ([]facts.DiagnosticRow, error) {
	perDoc := make([][]facts.DiagnosticRow, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	if n := l.Config.Analysis.MaxParallelFiles; n > 0 {
		g.SetLimit(n)
	}
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perDoc[i] = validateDocument(store, id, def)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("validate documents: %w", err)
	}

	var out []facts.DiagnosticRow
	for _, rows := range perDoc {
		out = append(out, rows...)
	}
	return out, nil
}

func validateDocument(store *library.Store, id vlnv.VLNV, def ipxact.Revision) []facts.DiagnosticRow {
	doc, err := store.GetModel(id)
	if err != nil {
		return []facts.DiagnosticRow{{
			Document: id.String(),
			Source:   "load",
			Subject:  store.GetPath(id),
			Severity: policy.SeverityError,
			Message:  err.Error(),
		}}
	}
	comp, ok := doc.(*ipxact.Component)
	if !ok {
		return nil
	}
	if comp.Revision == ipxact.RevisionUnknown {
		comp.Revision = def
	}

	var rows []facts.DiagnosticRow
	for _, issue := range validator.NewComponentValidator(comp).Issues() {
		rows = append(rows, facts.DiagnosticRow{
			Document: id.String(),
			Source:   issue.Kind,
			Subject:  issue.Subject,
			Severity: policy.SeverityError,
			Message:  issue.Message,
		})
	}
	return rows
}

// walkHierarchies expands every component that has a hierarchical view. Each
// distinct walker error is reported once, against the first component whose
// walk produced it.
func (l *Linter) walkHierarchies(store *library.Store, ids []vlnv.VLNV, maxDepth int) []facts.DiagnosticRow {
	seen := make(map[string]bool)
	var rows []facts.DiagnosticRow
	for _, id := range ids {
		if store.GetDocumentType(id) != vlnv.Component {
			continue
		}
		doc, err := store.GetModel(id)
		if err != nil {
			continue
		}
		comp, ok := doc.(*ipxact.Component)
		if !ok || len(comp.HierarchicalViewNames()) == 0 {
			continue
		}

		rec := &hierarchy.Recorder{}
		walker := hierarchy.NewWalker(store, rec)
		walker.MaxDepth = maxDepth
		nodes := walker.Expand(id)
		l.Logger.Debug("expanded hierarchy", slog.String("vlnv", id.String()), slog.Int("components", len(nodes)))

		for _, msg := range rec.Errors() {
			if seen[msg] {
				continue
			}
			seen[msg] = true
			rows = append(rows, facts.DiagnosticRow{
				Document: id.String(),
				Source:   "hierarchy",
				Severity: policy.SeverityError,
				Message:  msg,
			})
		}
	}
	return rows
}

// =============================================================================
// Watch
// =============================================================================

// Update is delivered for the initial analysis and after every change.
type Update struct {
	Result *Result
	// Changes lists the files behind this update; empty for the first one.
	Changes []library.Change
	// Delta holds the fact rows of the changed documents that appeared or
	// disappeared since the previous analysis.
	Delta facts.Delta
	Err   error
}

// Watch analyzes the project, then re-analyzes it whenever a document file
// changes, until ctx is done.
func (l *Linter) Watch(ctx context.Context, rootPath string, onUpdate func(Update)) error {
	store, err := l.Open(ctx, rootPath)
	if err != nil {
		return err
	}
	prev, err := l.Analyze(ctx, rootPath, store)
	if err != nil && prev == nil {
		return err
	}
	onUpdate(Update{Result: prev, Delta: facts.ComputeDelta(facts.Tables{}, prev.Tables), Err: err})

	return store.Watch(ctx, func(change library.Change) {
		next, err := l.Analyze(ctx, rootPath, store)
		if next == nil {
			onUpdate(Update{Changes: []library.Change{change}, Err: err})
			return
		}
		touched := make(map[string]bool)
		for _, id := range []vlnv.VLNV{change.Removed, change.Added} {
			if !id.IsEmpty() {
				touched[id.String()] = true
			}
		}
		delta := facts.FilterDeltaByDocuments(facts.ComputeDelta(prev.Tables, next.Tables), touched)
		prev = next
		onUpdate(Update{Result: next, Changes: []library.Change{change}, Delta: delta, Err: err})
	})
}

func formatPipelineErrors(errs []error) string {
	var b strings.Builder
	for i, err := range errs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(err.Error())
	}
	return b.String()
}
