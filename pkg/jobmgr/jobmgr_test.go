package jobmgr

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reports struct {
	mu   sync.Mutex
	msgs []string
}

func (r *reports) add(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *reports) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func TestStartAsyncRejectsDuplicates(t *testing.T) {
	m := NewManager(nil)
	block := make(chan struct{})

	require.NoError(t, m.StartAsync("poller", func(ctx context.Context) error {
		<-block
		return nil
	}))
	assert.Error(t, m.StartAsync("poller", func(ctx context.Context) error { return nil }))
	assert.Equal(t, []string{"poller"}, m.List())

	close(block)
}

func TestStopCancelsJob(t *testing.T) {
	m := NewManager(nil)
	done := make(chan struct{})

	require.NoError(t, m.StartAsync("poller", func(ctx context.Context) error {
		<-ctx.Done()
		close(done)
		return nil
	}))
	require.NoError(t, m.Stop("poller"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not observe cancellation")
	}

	assert.Error(t, m.Stop("poller"), "stopped jobs are forgotten")
	assert.Empty(t, m.List())
}

func TestStopAll(t *testing.T) {
	m := NewManager(nil)
	var wg sync.WaitGroup

	for _, name := range []string{"a", "b", "c"} {
		wg.Add(1)
		require.NoError(t, m.StartAsync(name, func(ctx context.Context) error {
			defer wg.Done()
			<-ctx.Done()
			return nil
		}))
	}
	require.Len(t, m.List(), 3)

	m.StopAll()
	wg.Wait()
	assert.Empty(t, m.List())
}

func TestReporterSeesLifecycle(t *testing.T) {
	r := &reports{}
	m := NewManager(r.add)

	finished := make(chan struct{})
	m.Reporter = func(msg string) {
		r.add(msg)
		if msg == "done:quick" || msg == "error:failing:boom" {
			finished <- struct{}{}
		}
	}

	require.NoError(t, m.StartAsync("quick", func(ctx context.Context) error { return nil }))
	<-finished
	require.NoError(t, m.StartAsync("failing", func(ctx context.Context) error {
		return errors.New("boom")
	}))
	<-finished

	msgs := r.all()
	assert.Contains(t, msgs, "running:quick")
	assert.Contains(t, msgs, "done:quick")
	assert.Contains(t, msgs, "running:failing")
	assert.Contains(t, msgs, "error:failing:boom")
}

func TestStatus(t *testing.T) {
	m := NewManager(nil)
	assert.Equal(t, "No jobs are running.", m.Status())

	block := make(chan struct{})
	require.NoError(t, m.StartAsync("poller", func(ctx context.Context) error {
		<-block
		return nil
	}))
	assert.Contains(t, m.Status(), "poller")
	close(block)
}
