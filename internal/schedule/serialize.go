package schedule

import (
	"fmt"
	"time"
)

// storeKey is the datastore key the task table lives under.
const storeKey = "scheduled_tasks"

// taskV1 is the persisted form of a Task. Durations are stored as
// milliseconds to keep the on-disk JSON free of Go-specific encodings.
type taskV1 struct {
	Version int               `json:"version"`
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	EveryMs int64             `json:"every_ms"`
	Payload map[string]string `json:"payload,omitempty"`
	LastRun time.Time         `json:"last_run,omitempty"`
	NextRun time.Time         `json:"next_run"`
	Enabled bool              `json:"enabled"`
}

const taskVersion = 1

func encodeTask(t *Task) taskV1 {
	return taskV1{
		Version: taskVersion,
		ID:      t.ID,
		Name:    t.Name,
		EveryMs: t.Every.Milliseconds(),
		Payload: t.Payload,
		LastRun: t.LastRun,
		NextRun: t.NextRun,
		Enabled: t.Enabled,
	}
}

func decodeTask(v taskV1) (*Task, error) {
	if v.Version != taskVersion {
		return nil, fmt.Errorf("unsupported task version %d", v.Version)
	}
	if v.ID == "" {
		return nil, fmt.Errorf("task has no id")
	}
	return &Task{
		ID:      v.ID,
		Name:    v.Name,
		Every:   time.Duration(v.EveryMs) * time.Millisecond,
		Payload: v.Payload,
		LastRun: v.LastRun,
		NextRun: v.NextRun,
		Enabled: v.Enabled,
	}, nil
}

func (s *Scheduler) load() error {
	if s.store == nil {
		return nil
	}

	var persisted []taskV1
	found, err := s.store.Get(storeKey, &persisted)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range persisted {
		t, err := decodeTask(v)
		if err != nil {
			s.log.Warn().Err(err).Str("id", v.ID).Msg("skipping persisted task")
			continue
		}
		s.tasks[t.ID] = t
	}
	s.log.Info().Int("count", len(s.tasks)).Msg("loaded scheduled tasks")
	return nil
}

// persist writes the task table to the store. Callers must hold s.mu.
func (s *Scheduler) persist() {
	if s.store == nil {
		return
	}

	persisted := make([]taskV1, 0, len(s.tasks))
	for _, t := range s.tasks {
		persisted = append(persisted, encodeTask(t))
	}
	if err := s.store.Set(storeKey, persisted); err != nil {
		s.log.Error().Err(err).Msg("failed to persist scheduled tasks")
	}
}
