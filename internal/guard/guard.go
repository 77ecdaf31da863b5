// Package guard is the rate governor: per-identity, per-action cooldowns
// plus a spam detector with escalating blacklists. All state is in memory
// and does not survive a restart.
package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultCooldown applies when an action declares no cooldown of its own.
	DefaultCooldown = 5 * time.Second

	// SpamWindow is the burst-detection window.
	SpamWindow = 1000 * time.Millisecond

	// spamThreshold is how many actions within SpamWindow count as spam.
	spamThreshold = 3
)

// blacklistDurations maps warning level N to the blacklist applied at that
// level; levels past the end stay at the last entry.
var blacklistDurations = []time.Duration{
	5 * time.Minute,
	30 * time.Minute,
	60 * time.Minute,
	24 * time.Hour,
}

// Result is the outcome of a single governed check. Message is set only the
// first time a given block is observed; repeat checks against the same block
// come back silent.
type Result struct {
	Allowed            bool
	Message            string
	CooldownRemaining  time.Duration
	BlacklistRemaining time.Duration
}

type cooldownRecord struct {
	expiresAt time.Time
	notified  bool
}

type spamRecord struct {
	recent           []time.Time
	warningLevel     int
	blacklistExpires time.Time
	notified         bool
}

// Guard holds cooldown and spam state for all identities.
// Check is a synchronous critical section: state is never mutated across a
// suspension point, so interleaved events cannot race on the same key.
type Guard struct {
	mu        sync.Mutex
	cooldowns map[string]*cooldownRecord // "identity:action"
	spam      map[string]*spamRecord     // identity
	enabled   func() bool                // global anti-spam switch
	now       func() time.Time
	log       zerolog.Logger
}

// New creates a Guard. globalAntiSpam gates the spam detector; pass a
// function returning true to keep it always on.
func New(log zerolog.Logger, globalAntiSpam func() bool) *Guard {
	if globalAntiSpam == nil {
		globalAntiSpam = func() bool { return true }
	}
	return &Guard{
		cooldowns: make(map[string]*cooldownRecord),
		spam:      make(map[string]*spamRecord),
		enabled:   globalAntiSpam,
		now:       time.Now,
		log:       log.With().Str("component", "guard").Logger(),
	}
}

// Check decides whether identity may perform action right now. The spam
// check runs first when enabled; a spam block returns immediately and the
// cooldown step is never reached for that call. Passing the cooldown step
// records a fresh cooldown of the given duration (DefaultCooldown when
// cooldown <= 0).
func (g *Guard) Check(identity, action string, antiSpam bool, cooldown time.Duration) Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()

	if antiSpam && g.enabled() {
		rec := g.spam[identity]
		if rec == nil {
			rec = &spamRecord{}
			g.spam[identity] = rec
		}

		if !rec.blacklistExpires.IsZero() {
			if now.Before(rec.blacklistExpires) {
				remaining := rec.blacklistExpires.Sub(now)
				if !rec.notified {
					rec.notified = true
					g.log.Warn().
						Str("identity", identity).
						Int("level", rec.warningLevel).
						Dur("remaining", remaining).
						Msg("blacklisted identity attempted action")
					return Result{
						Message: fmt.Sprintf(
							"You are blocked for spam activity. Try again in %d seconds.",
							ceilSeconds(remaining)),
						BlacklistRemaining: remaining,
					}
				}
				return Result{BlacklistRemaining: remaining}
			}
			// Blacklist served out: the identity starts over from a clean
			// record, warning level included.
			g.log.Info().Str("identity", identity).Msg("spam blacklist expired, record reset")
			rec = &spamRecord{}
			g.spam[identity] = rec
		}

		// Record this action, keeping history bounded to 3x the window.
		cutoff := now.Add(-3 * SpamWindow)
		kept := rec.recent[:0]
		for _, t := range rec.recent {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		rec.recent = append(kept, now)

		inWindow := 0
		for _, t := range rec.recent {
			if now.Sub(t) < SpamWindow {
				inWindow++
			}
		}
		if inWindow >= spamThreshold {
			rec.warningLevel++
			idx := rec.warningLevel - 1
			if idx >= len(blacklistDurations) {
				idx = len(blacklistDurations) - 1
			}
			duration := blacklistDurations[idx]
			rec.blacklistExpires = now.Add(duration)
			rec.notified = false
			g.log.Warn().
				Str("identity", identity).
				Str("action", action).
				Int("level", rec.warningLevel).
				Dur("duration", duration).
				Msg("spam detected, identity blacklisted")
			return Result{
				Message: fmt.Sprintf(
					"Your activity was detected as spam (level %d). You are blocked for %d seconds.",
					rec.warningLevel, ceilSeconds(duration)),
				BlacklistRemaining: duration,
			}
		}
	}

	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	key := identity + ":" + action
	if c := g.cooldowns[key]; c != nil && now.Before(c.expiresAt) {
		remaining := c.expiresAt.Sub(now)
		if !c.notified {
			c.notified = true
			g.log.Debug().
				Str("key", key).
				Dur("remaining", remaining).
				Msg("cooldown active, notifying")
			return Result{
				Message: fmt.Sprintf(
					"Command *%s* is on cooldown. Try again in %d seconds.",
					action, ceilSeconds(remaining)),
				CooldownRemaining: remaining,
			}
		}
		return Result{CooldownRemaining: remaining}
	}

	g.cooldowns[key] = &cooldownRecord{expiresAt: now.Add(cooldown)}
	return Result{Allowed: true}
}

// Status reports the live throttling state for one identity: remaining
// per-action cooldowns and the blacklist, if any.
type Status struct {
	Cooldowns          map[string]time.Duration
	Blacklisted        bool
	BlacklistRemaining time.Duration
	Level              int
}

// Status returns the current cooldown and blacklist state for identity.
func (g *Guard) Status(identity string) Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	st := Status{Cooldowns: make(map[string]time.Duration)}

	prefix := identity + ":"
	for key, c := range g.cooldowns {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			if remaining := c.expiresAt.Sub(now); remaining > 0 {
				st.Cooldowns[key[len(prefix):]] = remaining
			}
		}
	}

	if rec := g.spam[identity]; rec != nil && now.Before(rec.blacklistExpires) {
		st.Blacklisted = true
		st.BlacklistRemaining = rec.blacklistExpires.Sub(now)
		st.Level = rec.warningLevel
	}
	return st
}

// RunCleaner drops expired cooldown entries every minute until ctx is done.
// Purely housekeeping; expired entries are harmless either way.
func (g *Guard) RunCleaner(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.dropExpired()
		}
	}
}

func (g *Guard) dropExpired() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for key, c := range g.cooldowns {
		if !now.Before(c.expiresAt) {
			delete(g.cooldowns, key)
		}
	}
}

func ceilSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
