// Package schedule runs recurring tasks on a fixed polling loop. Tasks are
// persisted, so reminders survive restarts; handlers are registered by name
// at startup and looked up when a task comes due.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chatwarden/datastore"
	"chatwarden/pkg/jobmgr"
)

const jobName = "scheduler"

// MinInterval is the smallest recurrence a task may have. Anything tighter
// than the polling loop would just fire once per poll anyway.
const MinInterval = time.Second

// Task is one recurring unit of work.
type Task struct {
	ID      string
	Name    string
	Every   time.Duration
	Payload map[string]string
	LastRun time.Time
	NextRun time.Time
	Enabled bool
}

// Handler executes a due task. Returning an error only logs it; the task
// stays scheduled.
type Handler func(ctx context.Context, task Task) error

// Scheduler polls its task table at a fixed interval and fires whatever is
// due. It is safe for concurrent use.
type Scheduler struct {
	mu       sync.Mutex
	tasks    map[string]*Task
	handlers map[string]Handler

	store    *datastore.Store
	jobs     *jobmgr.Manager
	interval func() time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// New loads any persisted tasks and returns a stopped scheduler. The store
// may be nil, in which case tasks live only in memory. interval is read on
// every poll so the cadence can be changed at runtime.
func New(store *datastore.Store, jobs *jobmgr.Manager, interval func() time.Duration, log zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		tasks:    make(map[string]*Task),
		handlers: make(map[string]Handler),
		store:    store,
		jobs:     jobs,
		interval: interval,
		now:      time.Now,
		log:      log.With().Str("component", "schedule").Logger(),
	}
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("load scheduled tasks: %w", err)
	}
	return s, nil
}

// RegisterHandler binds a handler to a task name. Tasks whose name has no
// handler are skipped with a warning when they come due.
func (s *Scheduler) RegisterHandler(name string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[strings.ToLower(name)] = h
}

// Schedule adds a recurring task and persists it. The first run happens one
// interval from now.
func (s *Scheduler) Schedule(name string, every time.Duration, payload map[string]string) (Task, error) {
	if every < MinInterval {
		return Task{}, fmt.Errorf("interval %s is below the minimum of %s", every, MinInterval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t := &Task{
		ID:      uuid.NewString(),
		Name:    strings.ToLower(name),
		Every:   every,
		Payload: payload,
		NextRun: now.Add(every),
		Enabled: true,
	}
	s.tasks[t.ID] = t
	s.persist()

	s.log.Info().
		Str("id", t.ID).
		Str("name", t.Name).
		Dur("every", every).
		Msg("task scheduled")
	return *t, nil
}

// Cancel removes a task by ID. It reports whether a task was removed.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return false
	}
	delete(s.tasks, id)
	s.persist()
	s.log.Info().Str("id", id).Msg("task cancelled")
	return true
}

// Tasks returns a snapshot of all tasks, ordered by next run time.
func (s *Scheduler) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextRun.Before(out[j].NextRun) })
	return out
}

// Start launches the polling loop as a managed background job.
func (s *Scheduler) Start() error {
	return s.jobs.StartAsync(jobName, s.run)
}

// Stop cancels the polling loop if it is running.
func (s *Scheduler) Stop() {
	_ = s.jobs.Stop(jobName)
}

func (s *Scheduler) run(ctx context.Context) error {
	for {
		wait := s.interval()
		if wait <= 0 {
			wait = time.Minute
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
			s.runDue(ctx)
		}
	}
}

// runDue fires every enabled task whose next run time has passed. A task
// that fires is rescheduled from the current poll, not from its nominal due
// time, so a slow handler cannot cause a burst of catch-up runs.
func (s *Scheduler) runDue(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	var due []Task
	for _, t := range s.tasks {
		if t.Enabled && !now.Before(t.NextRun) {
			due = append(due, *t)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		h := s.handler(t.Name)
		if h == nil {
			s.log.Warn().Str("id", t.ID).Str("name", t.Name).Msg("no handler for due task")
		} else if err := h(ctx, t); err != nil {
			s.log.Error().Err(err).Str("id", t.ID).Str("name", t.Name).Msg("task failed")
		}

		s.mu.Lock()
		if live, ok := s.tasks[t.ID]; ok {
			live.LastRun = now
			live.NextRun = now.Add(live.Every)
		}
		s.mu.Unlock()
	}

	if len(due) > 0 {
		s.mu.Lock()
		s.persist()
		s.mu.Unlock()
	}
}

func (s *Scheduler) handler(name string) Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlers[name]
}
