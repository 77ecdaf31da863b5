// Package afk is the absence registry: per-identity away records plus a
// per-notifier notification cooldown. Records persist across restarts; the
// notification throttle does not, matching the rest of the rate governor.
package afk

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatwarden/datastore"
	"chatwarden/internal/guard"
)

// NotifyCooldown is the fixed per-(notifier, target) notification cooldown.
const NotifyCooldown = 3600 * time.Second

// Record is one identity's away status. It exists from the moment absence
// is declared until it is explicitly cleared; there is no automatic expiry.
type Record struct {
	Reason       string
	Since        time.Time
	LastNotified map[string]time.Time // notifier identity -> last delivered notification
}

// Registry stores away records. Notification throttling delegates to its own
// rate governor instance, keyed by a composite action name per target.
type Registry struct {
	mu      sync.Mutex
	records map[string]*Record
	guard   *guard.Guard
	store   *datastore.Store
	log     zerolog.Logger
}

// New creates a Registry backed by store, loading any persisted records.
// A nil store keeps the registry memory-only (used in tests).
func New(store *datastore.Store, log zerolog.Logger) *Registry {
	log = log.With().Str("component", "afk").Logger()
	r := &Registry{
		records: make(map[string]*Record),
		guard:   guard.New(log, nil),
		store:   store,
		log:     log,
	}
	if err := r.load(); err != nil {
		r.log.Error().Err(err).Msg("failed to load away records")
	}
	return r
}

// SetAbsent declares identity away. Any prior record is overwritten,
// notifier history included.
func (r *Registry) SetAbsent(identity, reason string) {
	r.mu.Lock()
	r.records[identity] = &Record{
		Reason:       reason,
		Since:        time.Now(),
		LastNotified: make(map[string]time.Time),
	}
	r.mu.Unlock()

	r.save()
	r.log.Info().Str("identity", identity).Str("reason", reason).Msg("identity is now away")
}

// ClearAbsent removes identity's away record. Returns false if none existed.
func (r *Registry) ClearAbsent(identity string) bool {
	r.mu.Lock()
	_, existed := r.records[identity]
	delete(r.records, identity)
	r.mu.Unlock()

	if existed {
		r.save()
		r.log.Info().Str("identity", identity).Msg("identity is back")
	}
	return existed
}

// Get returns a copy of identity's away record, if any.
func (r *Registry) Get(identity string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[identity]
	if !ok {
		return Record{}, false
	}
	out := Record{
		Reason:       rec.Reason,
		Since:        rec.Since,
		LastNotified: make(map[string]time.Time, len(rec.LastNotified)),
	}
	for k, v := range rec.LastNotified {
		out.LastNotified[k] = v
	}
	return out, true
}

// TryNotify asks whether notifier may be told about target being away right
// now. A permitted attempt immediately arms the (notifier, target) cooldown,
// whether or not the notification is later delivered.
func (r *Registry) TryNotify(notifier, target string) bool {
	r.mu.Lock()
	_, exists := r.records[target]
	r.mu.Unlock()
	if !exists {
		return false
	}

	res := r.guard.Check(notifier, "afk_notify:"+target, true, NotifyCooldown)
	return res.Allowed
}

// MarkNotified records that a notification about target was actually
// delivered to notifier. Suppressed attempts must not be marked.
func (r *Registry) MarkNotified(notifier, target string) {
	r.mu.Lock()
	rec, ok := r.records[target]
	if ok {
		if rec.LastNotified == nil {
			rec.LastNotified = make(map[string]time.Time)
		}
		rec.LastNotified[notifier] = time.Now()
	}
	r.mu.Unlock()

	if ok {
		r.save()
	}
}
