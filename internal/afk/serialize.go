package afk

import (
	"fmt"
	"time"
)

// storeKey is the datastore key all away records live under.
const storeKey = "afk_records"

// recordV1 is the persisted form of a Record. It is deliberately decoupled
// from the in-memory type so either can change independently.
type recordV1 struct {
	Version      int                  `json:"version"`
	Reason       string               `json:"reason"`
	Since        time.Time            `json:"since"`
	LastNotified map[string]time.Time `json:"last_notified,omitempty"`
}

const recordVersion = 1

func encodeRecord(rec *Record) recordV1 {
	return recordV1{
		Version:      recordVersion,
		Reason:       rec.Reason,
		Since:        rec.Since,
		LastNotified: rec.LastNotified,
	}
}

func decodeRecord(v recordV1) (*Record, error) {
	if v.Version != recordVersion {
		return nil, fmt.Errorf("unsupported away record version %d", v.Version)
	}
	rec := &Record{
		Reason:       v.Reason,
		Since:        v.Since,
		LastNotified: v.LastNotified,
	}
	if rec.LastNotified == nil {
		rec.LastNotified = make(map[string]time.Time)
	}
	return rec, nil
}

func (r *Registry) load() error {
	if r.store == nil {
		return nil
	}

	var persisted map[string]recordV1
	found, err := r.store.Get(storeKey, &persisted)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for identity, v := range persisted {
		rec, err := decodeRecord(v)
		if err != nil {
			r.log.Warn().Err(err).Str("identity", identity).Msg("skipping away record")
			continue
		}
		r.records[identity] = rec
	}
	r.log.Info().Int("count", len(r.records)).Msg("loaded away records")
	return nil
}

func (r *Registry) save() {
	if r.store == nil {
		return
	}

	r.mu.Lock()
	persisted := make(map[string]recordV1, len(r.records))
	for identity, rec := range r.records {
		persisted[identity] = encodeRecord(rec)
	}
	r.mu.Unlock()

	if err := r.store.Set(storeKey, persisted); err != nil {
		r.log.Error().Err(err).Msg("failed to persist away records")
	}
}
