package autosave

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testDelay = 50 * time.Millisecond

// saveRecorder records every value handed to the save callback.
type saveRecorder struct {
	mu     sync.Mutex
	values []string
	err    error
}

func (r *saveRecorder) save(value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, value)
	return r.err
}

func (r *saveRecorder) saved() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.values...)
}

func TestCoordinator_BaselineNeverSaves(t *testing.T) {
	recorder := &saveRecorder{}
	coordinator := New(recorder.save, testDelay, true)
	defer coordinator.Close()

	// the first observed value is the just-loaded draft
	coordinator.Observe("loaded draft")

	time.Sleep(3 * testDelay)
	assert.Empty(t, recorder.saved())
}

func TestCoordinator_DebouncesToLatest(t *testing.T) {
	recorder := &saveRecorder{}
	coordinator := New(recorder.save, testDelay, true)
	defer coordinator.Close()

	coordinator.Observe("v0")

	// a burst of edits inside one debounce window
	coordinator.Observe("v1")
	time.Sleep(testDelay / 4)
	coordinator.Observe("v2")
	time.Sleep(testDelay / 4)
	coordinator.Observe("v3")

	// nothing fires before the countdown elapses
	assert.Empty(t, recorder.saved())

	assert.Eventually(t, func() bool {
		return len(recorder.saved()) == 1
	}, 10*testDelay, testDelay/10)

	// only the latest value is persisted
	assert.Equal(t, []string{"v3"}, recorder.saved())

	// quiet period, then another edit triggers a second save
	coordinator.Observe("v4")
	assert.Eventually(t, func() bool {
		return len(recorder.saved()) == 2
	}, 10*testDelay, testDelay/10)
	assert.Equal(t, []string{"v3", "v4"}, recorder.saved())
}

func TestCoordinator_Disabled(t *testing.T) {
	recorder := &saveRecorder{}
	coordinator := New(recorder.save, testDelay, false)

	coordinator.Observe("v0")
	coordinator.Observe("v1")
	time.Sleep(3 * testDelay)
	coordinator.Close()

	assert.Empty(t, recorder.saved())
}

func TestCoordinator_CloseFlushesPendingChange(t *testing.T) {
	recorder := &saveRecorder{}
	coordinator := New(recorder.save, testDelay, true)

	coordinator.Observe("v0")
	coordinator.Observe("v1")

	// close lands before the debounce elapses
	coordinator.Close()

	assert.Equal(t, []string{"v1"}, recorder.saved())

	// observed values after close are dropped
	coordinator.Observe("v2")
	time.Sleep(2 * testDelay)
	assert.Equal(t, []string{"v1"}, recorder.saved())
}

func TestCoordinator_CloseWithoutChanges(t *testing.T) {
	recorder := &saveRecorder{}
	coordinator := New(recorder.save, testDelay, true)

	coordinator.Observe("v0")
	coordinator.Close()

	assert.Empty(t, recorder.saved())
}

func TestCoordinator_FailedSaveNotRetried(t *testing.T) {
	recorder := &saveRecorder{err: errors.New("disk full")}
	coordinator := New(recorder.save, testDelay, true)
	defer coordinator.Close()

	coordinator.Observe("v0")
	coordinator.Observe("v1")

	assert.Eventually(t, func() bool {
		return len(recorder.saved()) == 1
	}, 10*testDelay, testDelay/10)

	// no retry without a new change
	time.Sleep(3 * testDelay)
	assert.Len(t, recorder.saved(), 1)
}
