package operations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRun() Run {
	return Run{
		ID:       "run-1",
		Kind:     KindDeploy,
		Target:   "app-1",
		Title:    "Deploying my-app",
		Steps:    StepsFor(KindDeploy),
		Progress: 20,
		Status:   RunRunning,
	}
}

func TestModelSnapshot(t *testing.T) {
	t.Run("Should project the run into view form", func(t *testing.T) {
		m := newModel(testRun(), nil)

		snap := m.Snapshot()

		assert.Equal(t, "Deploying my-app", snap.Title)
		assert.Equal(t, "deploy", snap.Kind)
		assert.Equal(t, "app-1", snap.Target)
		assert.Equal(t, "running", snap.Status)
		assert.Equal(t, 20, snap.Progress)
		assert.True(t, snap.Open)
		require.Len(t, snap.Steps, 5)
		assert.Equal(t, "Downloading source code", snap.Steps[0].Label)
		assert.Equal(t, "pending", snap.Steps[0].Status)
	})

	t.Run("Should hand out isolated copies", func(t *testing.T) {
		m := newModel(testRun(), nil)

		snap := m.Snapshot()
		snap.Steps[0].Status = "completed"
		snap.Progress = 99

		fresh := m.Snapshot()
		assert.Equal(t, "pending", fresh.Steps[0].Status)
		assert.Equal(t, 20, fresh.Progress)
	})
}

func TestModelSubscription(t *testing.T) {
	t.Run("Should notify watchers on every write", func(t *testing.T) {
		m := newModel(testRun(), nil)

		var seen []Snapshot
		m.Subscribe(func(s Snapshot) { seen = append(seen, s) })

		run := testRun()
		run.Progress = 45
		m.apply(run)

		run.Progress = 60
		m.apply(run)

		require.Len(t, seen, 2)
		assert.Equal(t, 45, seen[0].Progress)
		assert.Equal(t, 60, seen[1].Progress)
	})

	t.Run("Should stop notifying after unsubscribe", func(t *testing.T) {
		m := newModel(testRun(), nil)

		calls := 0
		id := m.Subscribe(func(Snapshot) { calls++ })

		run := testRun()
		m.apply(run)
		m.Unsubscribe(id)
		m.apply(run)

		assert.Equal(t, 1, calls)
	})

	t.Run("Should tolerate unknown watcher ids", func(t *testing.T) {
		m := newModel(testRun(), nil)
		m.Unsubscribe(42)
	})
}

func TestModelClose(t *testing.T) {
	t.Run("Should clear the open flag without touching the run", func(t *testing.T) {
		hookCalls := 0
		m := newModel(testRun(), func() { hookCalls++ })

		m.Close()

		snap := m.Snapshot()
		assert.False(t, snap.Open)
		assert.Equal(t, "running", snap.Status)
		assert.Equal(t, 20, snap.Progress)
		assert.Equal(t, 1, hookCalls)
	})

	t.Run("Should fire the close hook only once", func(t *testing.T) {
		hookCalls := 0
		m := newModel(testRun(), func() { hookCalls++ })

		m.Close()
		m.Close()

		assert.Equal(t, 1, hookCalls)
	})

	t.Run("Should work without a hook", func(t *testing.T) {
		m := newModel(testRun(), nil)
		m.Close()
		assert.False(t, m.Snapshot().Open)
	})
}
