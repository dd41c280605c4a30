package operations

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultInterval    = 1000 * time.Millisecond
	defaultMaxAttempts = 60
)

// FetchResult is one poll sample from the agent: the accumulated log
// text for the target and its coarse status field.
type FetchResult struct {
	Logs   string `json:"logs"`
	Status string `json:"status"`
}

// FetchFunc retrieves the current logs and status for a target. Failures
// are treated as transient and retried on the next tick.
type FetchFunc func(ctx context.Context, target string) (FetchResult, error)

// Config holds tracker timing. The zero value polls every second with a
// ceiling of 60 attempts, matching the agent's operation horizon.
type Config struct {
	Interval    time.Duration
	MaxAttempts int
	// OnClose runs after a progress view for the target is closed, for
	// external cache invalidation.
	OnClose func(target string)
}

// Tracker drives live progress for remote operations. At most one run
// per target is polled at a time; starting a new run for a target
// supersedes the previous one and its late results are discarded.
type Tracker struct {
	cfg  Config
	mu   sync.Mutex
	runs map[string]*Handle
}

// NewTracker creates a tracker with defaults filled in.
func NewTracker(cfg Config) *Tracker {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	return &Tracker{cfg: cfg, runs: make(map[string]*Handle)}
}

// Handle identifies one started run and owns its polling loop.
type Handle struct {
	runID  string
	target string
	model  *Model
	cancel context.CancelFunc
	done   chan struct{}
}

// RunID returns the run's unique identity.
func (h *Handle) RunID() string { return h.runID }

// Model returns the observable state for this run.
func (h *Handle) Model() *Model { return h.model }

// Done is closed when the polling loop has fully exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Stop halts polling. It is idempotent; results of any in-flight fetch
// are discarded. The run keeps its last state and stays readable until
// the view is closed or a new run supersedes it.
func (h *Handle) Stop() { h.cancel() }

// Start begins tracking a fresh run for target. An active run for the
// same target is stopped and superseded; its model stops receiving
// updates immediately.
func (t *Tracker) Start(kind Kind, target, title string, fetch FetchFunc) *Handle {
	ctx, cancel := context.WithCancel(context.Background())

	run := Run{
		ID:        uuid.New().String(),
		Kind:      kind,
		Target:    target,
		Title:     title,
		Steps:     StepsFor(kind),
		Progress:  progressFor(kind, 0),
		Status:    RunPending,
		StartedAt: time.Now(),
	}

	h := &Handle{
		runID:  run.ID,
		target: target,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	h.model = newModel(run, func() { t.closeHandle(h) })

	t.mu.Lock()
	if prev, ok := t.runs[target]; ok {
		prev.Stop()
	}
	t.runs[target] = h
	t.mu.Unlock()

	go t.loop(ctx, h, run, fetch)
	return h
}

// Get returns the handle currently associated with target, terminal runs
// included, until the view is closed or a new run replaces it.
func (t *Tracker) Get(target string) (*Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.runs[target]
	return h, ok
}

// Snapshot returns the current view state for target.
func (t *Tracker) Snapshot(target string) (Snapshot, bool) {
	h, ok := t.Get(target)
	if !ok {
		return Snapshot{}, false
	}
	return h.model.Snapshot(), true
}

// Stop halts the active run for target, if any.
func (t *Tracker) Stop(target string) {
	if h, ok := t.Get(target); ok {
		h.Stop()
	}
}

// closeHandle runs when a progress view is closed: the handle is
// released (unless already superseded) and the invalidation hook fires.
func (t *Tracker) closeHandle(h *Handle) {
	h.Stop()

	t.mu.Lock()
	if t.runs[h.target] == h {
		delete(t.runs, h.target)
	}
	t.mu.Unlock()

	if t.cfg.OnClose != nil {
		t.cfg.OnClose(h.target)
	}
}

// loop is the interval-driven poll cycle. Every state write goes through
// the handle's model; nothing else mutates the run.
func (t *Tracker) loop(ctx context.Context, h *Handle, run Run, fetch FetchFunc) {
	defer close(h.done)

	run.Status = RunRunning
	markSteps(&run, 0, OutcomeNone)
	if ctx.Err() == nil {
		h.model.apply(run)
	}

	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	prevStep := 0
	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		attempts++
		res, err := fetch(ctx, run.Target)
		if err != nil {
			// Transient fetch failure: no state change this tick, but
			// the attempt budget is still spent.
			if attempts >= t.cfg.MaxAttempts {
				return
			}
			continue
		}
		if ctx.Err() != nil {
			// Superseded or stopped while the fetch was in flight.
			return
		}

		cls := Classify(run.Kind, res.Logs, res.Status, prevStep)
		prevStep = cls.StepIndex

		run.Attempts = attempts
		run.LogTail = res.Logs
		if cls.Progress > run.Progress {
			run.Progress = cls.Progress
		}

		switch cls.Outcome {
		case OutcomeSuccess:
			run.Progress = 100
			run.Status = RunCompleted
			markSteps(&run, cls.StepIndex, OutcomeSuccess)
			h.model.apply(run)
			return

		case OutcomeError:
			run.Progress = 100
			run.Status = RunError
			run.ErrorMessage = TranslateError(res.Logs)
			markSteps(&run, cls.StepIndex, OutcomeError)
			h.model.apply(run)
			return

		default:
			markSteps(&run, cls.StepIndex, OutcomeNone)
			h.model.apply(run)
			if attempts >= t.cfg.MaxAttempts {
				// Attempt budget exhausted without a terminal outcome:
				// polling stops and the run keeps its last state.
				return
			}
		}
	}
}

// markSteps recomputes step statuses for the current step index. Steps
// before the current one are complete; the current one is running, or
// errored on an error outcome; success completes everything. Step
// statuses only ever move forward because the index never regresses.
func markSteps(run *Run, stepIndex int, outcome Outcome) {
	if len(run.Steps) == 0 {
		return
	}
	cur := stepIndex
	if cur < 1 {
		cur = 1
	}
	if cur > len(run.Steps) {
		cur = len(run.Steps)
	}

	for i := range run.Steps {
		idx := i + 1
		switch {
		case outcome == OutcomeSuccess:
			run.Steps[i].Status = StepCompleted
		case idx < cur:
			run.Steps[i].Status = StepCompleted
		case idx == cur:
			if outcome == OutcomeError {
				run.Steps[i].Status = StepError
			} else {
				run.Steps[i].Status = StepRunning
			}
		default:
			run.Steps[i].Status = StepPending
		}
	}
}
