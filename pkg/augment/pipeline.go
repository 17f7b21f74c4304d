// Package augment ties the page, devops and render packages together: it
// decides when the variable groups view is showing, runs the
// extract → wait → fetch → render pipeline, and re-runs it when the single
// page application navigates.
package augment

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/entrhq/vgtabs/pkg/devops"
	"github.com/entrhq/vgtabs/pkg/logging"
	"github.com/entrhq/vgtabs/pkg/page"
	"github.com/entrhq/vgtabs/pkg/render"
)

// DefaultTableSelector matches the body of the library list table.
const DefaultTableSelector = "tbody.relative"

var (
	// ErrWrongView is returned when the page is not the variable groups list.
	ErrWrongView = errors.New("not on the variable groups view")

	// ErrSuperseded is returned when a newer run started before this one
	// could render.
	ErrSuperseded = errors.New("run superseded by a newer navigation")
)

// Fetcher loads the variable groups of a project.
type Fetcher interface {
	VariableGroups(ctx context.Context, pc devops.PageContext) ([]devops.VariableGroup, error)
}

// Options tunes selectors and timing of a Pipeline.
type Options struct {
	TableSelector         string
	DataProvidersSelector string
	Timeout               time.Duration
}

func (o Options) withDefaults() Options {
	if o.TableSelector == "" {
		o.TableSelector = DefaultTableSelector
	}
	if o.DataProvidersSelector == "" {
		o.DataProvidersSelector = devops.DataProvidersSelector
	}
	if o.Timeout <= 0 {
		o.Timeout = page.DefaultTimeout
	}
	return o
}

// Result describes a completed run.
type Result struct {
	Generation uint64
	Context    devops.PageContext
	Groups     int
}

// Pipeline performs one augmentation of a document per Run.
type Pipeline struct {
	doc      page.Document
	fetcher  Fetcher
	renderer *render.Renderer
	log      *logging.Logger
	opts     Options

	generation atomic.Uint64
}

// NewPipeline creates a Pipeline.
func NewPipeline(doc page.Document, fetcher Fetcher, renderer *render.Renderer, log *logging.Logger, opts Options) *Pipeline {
	return &Pipeline{
		doc:      doc,
		fetcher:  fetcher,
		renderer: renderer,
		log:      log,
		opts:     opts.withDefaults(),
	}
}

// Begin issues a new generation token. Runs holding an older token will not
// render.
func (p *Pipeline) Begin() uint64 {
	return p.generation.Add(1)
}

// Current returns the latest issued generation.
func (p *Pipeline) Current() uint64 {
	return p.generation.Load()
}

// RunOnce issues a generation and runs the pipeline with it.
func (p *Pipeline) RunOnce(ctx context.Context) (Result, error) {
	return p.Run(ctx, p.Begin())
}

// Run executes the pipeline as generation gen. Any stage failure aborts the
// run before the table is touched.
func (p *Pipeline) Run(ctx context.Context, gen uint64) (Result, error) {
	res := Result{Generation: gen}

	if !IsVariableGroupsView(p.doc.URL()) {
		p.log.Infof("Not on the Variable Groups view, will not run.")
		return res, ErrWrongView
	}

	p.log.Infof("Variable groups new tab opener starting (run %d)...", gen)

	pc, err := devops.ExtractContext(ctx, p.doc, p.opts.DataProvidersSelector)
	if err != nil {
		return res, fmt.Errorf("extract page context: %w", err)
	}
	res.Context = pc
	p.log.Infof("Organization: %s, Project: %s", pc.OrgName, pc.ProjectName)

	tbody, err := page.WaitFor(ctx, p.doc, p.opts.TableSelector, p.opts.Timeout)
	if err != nil {
		return res, fmt.Errorf("wait for table: %w", err)
	}
	p.log.Infof("Table found, loading data...")

	groups, err := p.fetcher.VariableGroups(ctx, pc)
	if err != nil {
		return res, err
	}
	res.Groups = len(groups)
	p.log.Infof("Found %d variable groups.", len(groups))

	if latest := p.Current(); gen != latest {
		p.log.Debugf("Run %d superseded by run %d, discarding result.", gen, latest)
		return res, ErrSuperseded
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if !IsVariableGroupsView(p.doc.URL()) {
		p.log.Infof("Left the Variable Groups view, discarding result.")
		return res, ErrWrongView
	}

	if err := p.renderer.Render(ctx, tbody, pc, groups); err != nil {
		return res, err
	}
	p.log.Infof("Successfully loaded %d variable groups.", len(groups))

	return res, nil
}
