package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatwarden/datastore"
	"chatwarden/internal/access"
)

// PrefixMode controls how command prefixes are recognized.
type PrefixMode string

const (
	// PrefixMulti accepts any prefix from the configured list.
	PrefixMulti PrefixMode = "multi"
	// PrefixSingle accepts only the first configured prefix.
	PrefixSingle PrefixMode = "single"
	// PrefixNone treats the leading word of any message as a candidate
	// command token, no prefix required.
	PrefixNone PrefixMode = "none"
)

// NotifyLevel controls whether guard and access denials are echoed to users.
type NotifyLevel string

const (
	NotifyVerbose NotifyLevel = "verbose"
	NotifyQuiet   NotifyLevel = "quiet"
)

// settingsKey is the datastore key the settings blob lives under.
const settingsKey = "settings"

// settingsV1 is the persisted form, decoupled from accessor-level types.
type settingsV1 struct {
	Version           int      `json:"version"`
	PrefixMode        string   `json:"prefix_mode"`
	Prefixes          []string `json:"prefixes"`
	NotifyLevel       string   `json:"user_notification_level"`
	BotIdentity       string   `json:"bot_identity"`
	OwnerIdentity     string   `json:"owner_identity"`
	AccessMode        string   `json:"bot_access_mode"`
	AntiSpamGlobal    bool     `json:"anti_spam_global"`
	SchedulePollingMs int64    `json:"schedule_polling_interval_ms"`
}

const settingsVersion = 1

func defaultSettings() settingsV1 {
	return settingsV1{
		Version:           settingsVersion,
		PrefixMode:        string(PrefixMulti),
		Prefixes:          []string{"!", "#", "/"},
		NotifyLevel:       string(NotifyVerbose),
		AccessMode:        string(access.ModePublic),
		AntiSpamGlobal:    true,
		SchedulePollingMs: 60000,
	}
}

// Settings is the runtime settings store. Reads are cheap; writes persist
// through the datastore, which flushes asynchronously.
type Settings struct {
	mu    sync.RWMutex
	cur   settingsV1
	store *datastore.Store
	log   zerolog.Logger
}

// NewSettings loads persisted settings, falling back to defaults, and seeds
// bot/owner identity from cfg when the persisted value is empty.
// A nil store keeps settings memory-only (used in tests).
func NewSettings(store *datastore.Store, cfg *Config, log zerolog.Logger) (*Settings, error) {
	s := &Settings{
		cur:   defaultSettings(),
		store: store,
		log:   log.With().Str("component", "settings").Logger(),
	}

	if store != nil {
		var persisted settingsV1
		found, err := store.Get(settingsKey, &persisted)
		if err != nil {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
		if found {
			if persisted.Version != settingsVersion {
				return nil, fmt.Errorf("unsupported settings version %d", persisted.Version)
			}
			s.cur = persisted
		}
	}

	if cfg != nil {
		if s.cur.BotIdentity == "" {
			s.cur.BotIdentity = cfg.BotIdentity
		}
		if s.cur.OwnerIdentity == "" {
			s.cur.OwnerIdentity = cfg.OwnerIdentity
		}
	}
	if len(s.cur.Prefixes) == 0 {
		s.cur.Prefixes = defaultSettings().Prefixes
	}

	s.persist()
	return s, nil
}

func (s *Settings) persist() {
	if s.store == nil {
		return
	}
	if err := s.store.Set(settingsKey, s.cur); err != nil {
		s.log.Error().Err(err).Msg("failed to persist settings")
	}
}

// PrefixModeValue returns the current prefix mode.
func (s *Settings) PrefixModeValue() PrefixMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return PrefixMode(s.cur.PrefixMode)
}

// Prefixes returns the ordered prefix list.
func (s *Settings) Prefixes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.cur.Prefixes))
	copy(out, s.cur.Prefixes)
	return out
}

// SetPrefixMode sets how command prefixes are recognized.
func (s *Settings) SetPrefixMode(mode PrefixMode) error {
	switch mode {
	case PrefixMulti, PrefixSingle, PrefixNone:
	default:
		return fmt.Errorf("invalid prefix mode %q", mode)
	}
	s.mu.Lock()
	s.cur.PrefixMode = string(mode)
	s.mu.Unlock()
	s.persist()
	return nil
}

// SetPrefixes replaces the ordered prefix list.
func (s *Settings) SetPrefixes(prefixes []string) {
	s.mu.Lock()
	s.cur.Prefixes = append([]string(nil), prefixes...)
	s.mu.Unlock()
	s.persist()
}

// SetNotifyLevel sets the user notification level.
func (s *Settings) SetNotifyLevel(level NotifyLevel) error {
	if level != NotifyVerbose && level != NotifyQuiet {
		return fmt.Errorf("invalid notification level %q", level)
	}
	s.mu.Lock()
	s.cur.NotifyLevel = string(level)
	s.mu.Unlock()
	s.persist()
	return nil
}

// NotifyLevelValue returns the current user notification level.
func (s *Settings) NotifyLevelValue() NotifyLevel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return NotifyLevel(s.cur.NotifyLevel)
}

// Verbose reports whether user-facing denial notices are enabled.
func (s *Settings) Verbose() bool {
	return s.NotifyLevelValue() == NotifyVerbose
}

// BotIdentity returns the bot's own identity.
func (s *Settings) BotIdentity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.BotIdentity
}

// SetBotIdentity records the bot's own identity (learned from the transport
// once it is connected).
func (s *Settings) SetBotIdentity(id string) {
	s.mu.Lock()
	s.cur.BotIdentity = id
	s.mu.Unlock()
	s.persist()
	s.log.Info().Str("identity", id).Msg("bot identity set")
}

// OwnerIdentity returns the owner identity.
func (s *Settings) OwnerIdentity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.OwnerIdentity
}

// SetOwnerIdentity records the owner identity.
func (s *Settings) SetOwnerIdentity(id string) {
	s.mu.Lock()
	s.cur.OwnerIdentity = id
	s.mu.Unlock()
	s.persist()
	s.log.Info().Str("identity", id).Msg("owner identity set")
}

// AccessMode returns the global access mode.
func (s *Settings) AccessMode() access.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return access.Mode(s.cur.AccessMode)
}

// SetAccessMode sets the global access mode.
func (s *Settings) SetAccessMode(mode access.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid access mode %q", mode)
	}
	s.mu.Lock()
	s.cur.AccessMode = string(mode)
	s.mu.Unlock()
	s.persist()
	s.log.Info().Str("mode", string(mode)).Msg("access mode changed")
	return nil
}

// AntiSpamGlobal reports whether the spam detector is globally enabled.
func (s *Settings) AntiSpamGlobal() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.AntiSpamGlobal
}

// SetAntiSpamGlobal toggles the global spam detector.
func (s *Settings) SetAntiSpamGlobal(on bool) {
	s.mu.Lock()
	s.cur.AntiSpamGlobal = on
	s.mu.Unlock()
	s.persist()
}

// SchedulePollingInterval returns the scheduler polling interval.
func (s *Settings) SchedulePollingInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.cur.SchedulePollingMs) * time.Millisecond
}
