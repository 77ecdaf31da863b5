package schedule

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatwarden/datastore"
	"chatwarden/pkg/jobmgr"
)

func newTestScheduler(t *testing.T, store *datastore.Store) (*Scheduler, *time.Time) {
	t.Helper()

	s, err := New(store, jobmgr.NewManager(nil), func() time.Duration { return time.Minute }, zerolog.Nop())
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestScheduleAndCancel(t *testing.T) {
	s, clock := newTestScheduler(t, nil)

	_, err := s.Schedule("remind", 10*time.Millisecond, nil)
	assert.Error(t, err, "sub-second intervals are rejected")

	task, err := s.Schedule("remind", time.Hour, map[string]string{"text": "stand up"})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "remind", task.Name)
	assert.True(t, task.Enabled)
	assert.Equal(t, clock.Add(time.Hour), task.NextRun)

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, task.ID, tasks[0].ID)

	assert.True(t, s.Cancel(task.ID))
	assert.Empty(t, s.Tasks())
	assert.False(t, s.Cancel(task.ID), "second cancel finds nothing")
}

func TestTasksOrderedByNextRun(t *testing.T) {
	s, _ := newTestScheduler(t, nil)

	later, err := s.Schedule("remind", 2*time.Hour, nil)
	require.NoError(t, err)
	sooner, err := s.Schedule("remind", time.Hour, nil)
	require.NoError(t, err)

	tasks := s.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, sooner.ID, tasks[0].ID)
	assert.Equal(t, later.ID, tasks[1].ID)
}

func TestRunDueFiresAndReschedules(t *testing.T) {
	s, clock := newTestScheduler(t, nil)

	var fired []Task
	s.RegisterHandler("remind", func(ctx context.Context, task Task) error {
		fired = append(fired, task)
		return nil
	})

	task, err := s.Schedule("remind", time.Hour, map[string]string{"text": "stand up"})
	require.NoError(t, err)

	// Not due yet.
	s.runDue(context.Background())
	assert.Empty(t, fired)

	*clock = clock.Add(time.Hour + time.Minute)
	s.runDue(context.Background())
	require.Len(t, fired, 1)
	assert.Equal(t, task.ID, fired[0].ID)
	assert.Equal(t, "stand up", fired[0].Payload["text"])

	// Rescheduled one interval from the poll that fired it.
	got := s.Tasks()[0]
	assert.Equal(t, *clock, got.LastRun)
	assert.Equal(t, clock.Add(time.Hour), got.NextRun)

	// Stays quiet until the next interval elapses.
	s.runDue(context.Background())
	assert.Len(t, fired, 1)
}

func TestRunDueHandlerErrorKeepsTask(t *testing.T) {
	s, clock := newTestScheduler(t, nil)

	calls := 0
	s.RegisterHandler("remind", func(ctx context.Context, task Task) error {
		calls++
		return errors.New("delivery failed")
	})

	_, err := s.Schedule("remind", time.Hour, nil)
	require.NoError(t, err)

	*clock = clock.Add(2 * time.Hour)
	s.runDue(context.Background())
	assert.Equal(t, 1, calls)
	assert.Len(t, s.Tasks(), 1, "a failing handler must not unschedule the task")

	*clock = clock.Add(2 * time.Hour)
	s.runDue(context.Background())
	assert.Equal(t, 2, calls)
}

func TestRunDueWithoutHandler(t *testing.T) {
	s, clock := newTestScheduler(t, nil)

	_, err := s.Schedule("unknown", time.Hour, nil)
	require.NoError(t, err)

	*clock = clock.Add(2 * time.Hour)
	s.runDue(context.Background())

	// Still rescheduled, so a handler registered later picks it up.
	assert.Equal(t, clock.Add(time.Hour), s.Tasks()[0].NextRun)
}

func TestHandlerNamesAreCaseInsensitive(t *testing.T) {
	s, clock := newTestScheduler(t, nil)

	fired := false
	s.RegisterHandler("Remind", func(ctx context.Context, task Task) error {
		fired = true
		return nil
	})

	_, err := s.Schedule("REMIND", time.Hour, nil)
	require.NoError(t, err)

	*clock = clock.Add(2 * time.Hour)
	s.runDue(context.Background())
	assert.True(t, fired)
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	store, err := datastore.New(path)
	require.NoError(t, err)

	s, _ := newTestScheduler(t, store)
	task, err := s.Schedule("remind", time.Hour, map[string]string{"chat": "group1", "text": "stand up"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store2, err := datastore.New(path)
	require.NoError(t, err)
	defer store2.Close()

	s2, _ := newTestScheduler(t, store2)
	tasks := s2.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, task.ID, tasks[0].ID)
	assert.Equal(t, time.Hour, tasks[0].Every)
	assert.Equal(t, "stand up", tasks[0].Payload["text"])
	assert.True(t, tasks[0].Enabled)
}

func TestStartStop(t *testing.T) {
	s, _ := newTestScheduler(t, nil)

	require.NoError(t, s.Start())
	assert.Error(t, s.Start(), "the polling job is a singleton")
	s.Stop()
}
