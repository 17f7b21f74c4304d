package augment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/entrhq/vgtabs/pkg/logging"
	"github.com/entrhq/vgtabs/pkg/page"
)

// State is the monitor's view of the pipeline.
type State int

const (
	// Idle means no run is scheduled or in flight.
	Idle State = iota
	// Armed means a qualifying URL was seen and a run is about to start.
	Armed
	// Running means a pipeline run is in flight.
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// RunReport is passed to MonitorOptions.OnRunComplete after every run.
type RunReport struct {
	URL    string
	Result Result
	Err    error
}

// MonitorOptions configures a Monitor.
type MonitorOptions struct {
	// Matcher selects library page URLs. Defaults to DefaultLibraryPatterns.
	Matcher *Matcher

	// OnRunComplete, when set, is called after each run finishes.
	OnRunComplete func(RunReport)
}

// Monitor re-runs a Pipeline whenever the document navigates into the
// library page. It owns its state explicitly: the last observed URL, the DOM
// subscription and the cancel function of the in-flight run.
type Monitor struct {
	doc      page.Document
	pipeline *Pipeline
	matcher  *Matcher
	log      *logging.Logger
	onDone   func(RunReport)

	mu        sync.Mutex
	started   bool
	state     State
	lastURL   string
	sub       *page.Subscription
	ctx       context.Context
	cancel    context.CancelFunc
	cancelRun context.CancelFunc
	activeGen uint64
	wg        sync.WaitGroup
}

// NewMonitor creates a Monitor. It does nothing until Start.
func NewMonitor(doc page.Document, pipeline *Pipeline, log *logging.Logger, opts MonitorOptions) (*Monitor, error) {
	matcher := opts.Matcher
	if matcher == nil {
		var err error
		matcher, err = NewMatcher()
		if err != nil {
			return nil, err
		}
	}

	return &Monitor{
		doc:      doc,
		pipeline: pipeline,
		matcher:  matcher,
		log:      log,
		onDone:   opts.OnRunComplete,
	}, nil
}

// Start records the current URL, subscribes to DOM mutations and runs the
// pipeline immediately when the page already qualifies.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.New("monitor already started")
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.started = true
	m.state = Idle
	m.lastURL = m.doc.URL()
	initial := m.lastURL
	m.mu.Unlock()

	sub := m.doc.Subscribe(m.onMutation)

	m.mu.Lock()
	if !m.started {
		// Stopped while subscribing.
		m.mu.Unlock()
		sub.Close()
		return nil
	}
	m.sub = sub
	m.mu.Unlock()

	m.log.Debugf("Watching %s for navigation.", initial)
	if m.matcher.Match(initial) {
		m.trigger(initial)
	}
	return nil
}

// Stop detaches from the document, cancels any in-flight run and waits for
// it to return. Safe to call more than once.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	sub := m.sub
	m.sub = nil
	cancel := m.cancel
	m.mu.Unlock()

	sub.Close()
	cancel()
	m.wg.Wait()

	m.mu.Lock()
	m.state = Idle
	m.cancelRun = nil
	m.mu.Unlock()
}

// State returns the current state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastURL returns the most recently observed location.
func (m *Monitor) LastURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastURL
}

// onMutation runs on the document's notification path and must not block.
func (m *Monitor) onMutation() {
	current := m.doc.URL()

	m.mu.Lock()
	if !m.started || current == m.lastURL {
		m.mu.Unlock()
		return
	}
	m.lastURL = current
	m.supersede()
	m.mu.Unlock()

	if !m.matcher.Match(current) {
		m.log.Debugf("Navigated to %s, not a library page.", current)
		return
	}
	m.trigger(current)
}

// supersede cancels the in-flight run and issues a fresh generation so that
// whatever it fetched is never rendered on the page now showing. Callers
// hold m.mu.
func (m *Monitor) supersede() {
	if m.cancelRun == nil {
		return
	}
	m.cancelRun()
	m.cancelRun = nil
	m.activeGen = m.pipeline.Begin()
	m.state = Idle
}

func (m *Monitor) trigger(url string) {
	if !IsVariableGroupsView(url) {
		m.log.Infof("Not on the Variable Groups view, will not run.")
		return
	}

	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	if m.cancelRun != nil {
		// The older run may still be fetching; abort it.
		m.cancelRun()
	}
	runCtx, cancel := context.WithCancel(m.ctx)
	gen := m.pipeline.Begin()
	m.cancelRun = cancel
	m.activeGen = gen
	m.state = Armed
	m.wg.Add(1)
	m.mu.Unlock()

	go m.drive(runCtx, cancel, gen, url)
}

func (m *Monitor) drive(ctx context.Context, cancel context.CancelFunc, gen uint64, url string) {
	defer m.wg.Done()
	defer cancel()

	m.mu.Lock()
	if m.activeGen == gen {
		m.state = Running
	}
	m.mu.Unlock()

	res, err := m.pipeline.Run(ctx, gen)
	m.report(gen, err)

	m.mu.Lock()
	if m.activeGen == gen {
		m.state = Idle
		m.cancelRun = nil
	}
	m.mu.Unlock()

	if m.onDone != nil {
		m.onDone(RunReport{URL: url, Result: res, Err: err})
	}
}

func (m *Monitor) report(gen uint64, err error) {
	switch {
	case err == nil:
	case errors.Is(err, ErrWrongView):
	case errors.Is(err, ErrSuperseded):
		m.log.Debugf("Run %d superseded.", gen)
	case errors.Is(err, context.Canceled) && gen != m.pipeline.Current():
		m.log.Debugf("Run %d canceled by a newer navigation.", gen)
	case errors.Is(err, context.Canceled):
		m.log.Debugf("Run %d canceled.", gen)
	default:
		m.log.Errorf("Run %d failed: %v", gen, err)
		root := err
		for next := errors.Unwrap(root); next != nil; next = errors.Unwrap(root) {
			root = next
		}
		m.log.Errorf("Details: %T: %v", root, root)
	}
}
