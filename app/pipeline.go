// Package app wires the result pipeline: parallel log parsing, table
// assembly, significance annotation and matrix rendering.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gencorr/adapters/ldsc"
	"gencorr/domain/core"
	dm "gencorr/domain/manifest"
	"gencorr/domain/rg"
)

// ManifestSource loads raw manifest entries
type ManifestSource interface {
	Read() ([]dm.Entry, error)
}

// MatrixRenderer draws one annotated heatmap artifact
type MatrixRenderer interface {
	RenderHeatmap(m *rg.Matrix, title, path string) error
}

// TableExporter writes the unified result table and flat grid tables
type TableExporter interface {
	ExportResults(results []rg.AnnotatedResult, basePath string) error
	ExportGrid(rows []rg.GridRow, basePath string) error
}

// ResultStore optionally persists annotated results for a run
type ResultStore interface {
	SaveResults(ctx context.Context, runID core.RunID, config string, results []rg.AnnotatedResult) error
}

// MatrixConfig is one pipeline invocation: a directory of completed-run
// logs plus the shape of the matrix built from them
type MatrixConfig struct {
	Name        string   // artifact key, e.g. "trait_metric"
	LogDir      string   // directory of per-pair estimator logs
	Square      bool     // metric-vs-metric: self pairs out, unit diagonal in
	ColumnOrder []string // metric axis order; first-seen order when empty
}

// PipelineConfig is the full run specification. The pipeline runs once per
// MatrixConfig with no shared mutable state between invocations.
type PipelineConfig struct {
	Traits    []string // trait display names to resolve and include
	OutputDir string
	Assemble  AssembleConfig
	Matrices  []MatrixConfig
}

// MatrixRun is the product of one pipeline invocation
type MatrixRun struct {
	Config   MatrixConfig        `json:"config"`
	Results  []rg.AnnotatedResult `json:"results"`
	Matrix   *rg.Matrix          `json:"matrix"`
	Report   *AssemblyReport     `json:"report"`
	RowOrder []string            `json:"row_order"`
}

// RunArtifacts collects everything one run produced
type RunArtifacts struct {
	RunID     core.RunID            `json:"run_id"`
	StartedAt core.Timestamp        `json:"started_at"`
	Runs      map[string]*MatrixRun `json:"runs"`
}

// Pipeline is the batch job tying the components together
type Pipeline struct {
	manifest ManifestSource
	resolver *dm.Resolver
	renderer MatrixRenderer
	exporter TableExporter
	store    ResultStore // nil disables persistence
	cfg      PipelineConfig
}

// NewPipeline assembles a pipeline; store may be nil
func NewPipeline(src ManifestSource, resolver *dm.Resolver, renderer MatrixRenderer, exporter TableExporter, store ResultStore, cfg PipelineConfig) *Pipeline {
	return &Pipeline{
		manifest: src,
		resolver: resolver,
		renderer: renderer,
		exporter: exporter,
		store:    store,
		cfg:      cfg,
	}
}

// Run executes every configured matrix invocation. Manifest ambiguity is
// the only fatal error class: it would silently corrupt every downstream
// join. Per-file problems never abort the batch.
func (p *Pipeline) Run(ctx context.Context) (*RunArtifacts, error) {
	entries, err := p.manifest.Read()
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	resolved, err := p.resolver.ResolveAll(p.cfg.Traits, entries)
	if err != nil {
		return nil, err
	}
	log.Printf("[Pipeline] resolved %d trait identifiers", len(resolved))

	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	artifacts := &RunArtifacts{
		RunID:     core.RunID(core.NewID()),
		StartedAt: core.Now(),
		Runs:      make(map[string]*MatrixRun),
	}
	for _, mc := range p.cfg.Matrices {
		run, err := p.runOne(ctx, mc, resolved)
		if err != nil {
			return nil, fmt.Errorf("configuration %s: %w", mc.Name, err)
		}
		artifacts.Runs[mc.Name] = run

		if p.store != nil {
			if err := p.store.SaveResults(ctx, artifacts.RunID, mc.Name, run.Results); err != nil {
				// persistence is best-effort; artifacts on disk are canonical
				log.Printf("[Pipeline] persisting %s results failed: %v", mc.Name, err)
			}
		}
	}

	if err := WriteReport(artifacts, filepath.Join(p.cfg.OutputDir, "report.md")); err != nil {
		return nil, err
	}
	return artifacts, nil
}

func (p *Pipeline) runOne(ctx context.Context, mc MatrixConfig, resolved map[string]dm.SumstatRecord) (*MatrixRun, error) {
	paths, err := ldsc.ListLogs(mc.LogDir)
	if err != nil {
		return nil, err
	}

	acfg := p.cfg.Assemble
	acfg.MetricSubjects = mc.Square
	assembler := NewAssembler(resolved, acfg)
	results, report := assembler.Assemble(ctx, paths)
	annotated := rg.Annotate(results)

	// an empty configuration is a bounded problem, not a batch failure
	if len(annotated) == 0 {
		log.Printf("[Pipeline] %s: no rows assembled from %s, skipping configuration", mc.Name, mc.LogDir)
		return &MatrixRun{Config: mc, Report: report}, nil
	}

	colOrder := mc.ColumnOrder
	if len(colOrder) == 0 {
		colOrder = rg.DistinctSubjectsB(annotated)
	}

	var matrix *rg.Matrix
	var rowOrder []string
	if mc.Square {
		matrix, err = rg.PivotSquare(annotated, colOrder)
		rowOrder = colOrder
	} else {
		// most significant trait renders at the top
		rowOrder = rg.Reverse(rg.OrderBySignificance(annotated))
		matrix, err = rg.Pivot(annotated, rowOrder, colOrder)
	}
	if err != nil {
		return nil, err
	}

	// config names come from configuration; sanitize before they touch paths
	base := filepath.Join(p.cfg.OutputDir, dm.SanitizeName(mc.Name))
	if err := p.renderer.RenderHeatmap(matrix, mc.Name, base+"_heatmap.png"); err != nil {
		return nil, fmt.Errorf("rendering heatmap: %w", err)
	}
	if err := p.exporter.ExportResults(annotated, base+"_results"); err != nil {
		return nil, fmt.Errorf("exporting results: %w", err)
	}
	if err := p.exporter.ExportGrid(matrix.Flatten(), base+"_grid"); err != nil {
		return nil, fmt.Errorf("exporting grid: %w", err)
	}

	log.Printf("[Pipeline] %s: %d logs in, %d rows retained, %dx%d matrix",
		mc.Name, report.LogsFound, report.Retained, len(matrix.RowIDs), len(matrix.ColIDs))

	return &MatrixRun{Config: mc, Results: annotated, Matrix: matrix, Report: report, RowOrder: rowOrder}, nil
}
