package operations

import "sync"

// Model is the observable state for one operation run. The tracker loop
// that created it is its only writer; the presentation layer reads
// snapshots and registers watchers. Closing the view is a model-level
// concern and never touches the run itself.
type Model struct {
	mu       sync.RWMutex
	run      Run
	open     bool
	watchers map[int]func(Snapshot)
	nextID   int
	onClose  func()
	closed   bool
}

func newModel(run Run, onClose func()) *Model {
	return &Model{
		run:      run,
		open:     true,
		watchers: make(map[int]func(Snapshot)),
		onClose:  onClose,
	}
}

// Snapshot returns a read-only copy of the current state.
func (m *Model) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Model) snapshotLocked() Snapshot {
	steps := make([]StepView, len(m.run.Steps))
	for i, s := range m.run.Steps {
		steps[i] = StepView{Label: s.Label, Status: s.Status.String()}
	}
	return Snapshot{
		Title:        m.run.Title,
		Kind:         m.run.Kind.String(),
		Target:       m.run.Target,
		Status:       m.run.Status.String(),
		Progress:     m.run.Progress,
		Steps:        steps,
		LogTail:      m.run.LogTail,
		ErrorMessage: m.run.ErrorMessage,
		Open:         m.open,
	}
}

// Subscribe registers a watcher invoked with a fresh snapshot after every
// write. The returned id unsubscribes it.
func (m *Model) Subscribe(fn func(Snapshot)) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.watchers[m.nextID] = fn
	return m.nextID
}

// Unsubscribe removes a watcher. Unknown ids are a no-op.
func (m *Model) Unsubscribe(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.watchers, id)
}

// Close clears the open flag and fires the close hook once. The run
// state is left untouched; any external cache invalidation happens in
// the hook.
func (m *Model) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.open = false
	hook := m.onClose
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// apply stores a new run state and notifies watchers. Only the owning
// tracker loop may call it.
func (m *Model) apply(run Run) {
	m.mu.Lock()
	m.run = run
	snap := m.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(m.watchers))
	for _, fn := range m.watchers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
