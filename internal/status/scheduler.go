package status

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/SHIBINSOJU/SHOT-MC/internal/store"
)

// Registry owns one recurring refresh timer per subscribed guild. Timers are
// cancel-and-replace: arming a guild that already has a timer tears the old
// one down first, so at most one timer exists per guild.
type Registry struct {
	store      *store.Store
	reconciler *Reconciler
	log        zerolog.Logger

	mu     sync.Mutex
	timers map[string]*timerHandle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type timerHandle struct {
	cancel context.CancelFunc
}

func NewRegistry(st *store.Store, rec *Reconciler, log zerolog.Logger) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		store:      st,
		reconciler: rec,
		log:        log.With().Str("component", "scheduler").Logger(),
		timers:     make(map[string]*timerHandle),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start arms a timer for every guild persisted with an active subscription.
// Each timer reconciles immediately, then on its interval.
func (r *Registry) Start() error {
	guilds, err := r.store.FindAllSubscribed()
	if err != nil {
		return err
	}
	for _, g := range guilds {
		r.Ensure(g.GuildID, g.Interval())
	}
	r.log.Info().Int("guilds", len(guilds)).Msg("status scheduler started")
	return nil
}

// Ensure (re)arms the timer for a guild, replacing any existing one.
func (r *Registry) Ensure(guildID string, interval time.Duration) {
	if interval <= 0 {
		// A corrupt row must not become a busy loop.
		interval = time.Minute
	}

	r.mu.Lock()
	if old, ok := r.timers[guildID]; ok {
		old.cancel()
	}
	ctx, cancel := context.WithCancel(r.ctx)
	h := &timerHandle{cancel: cancel}
	r.timers[guildID] = h
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(ctx, h, guildID, interval)
}

// Remove cancels a guild's timer if present.
func (r *Registry) Remove(guildID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.timers[guildID]; ok {
		h.cancel()
		delete(r.timers, guildID)
	}
}

// Stop cancels every timer and waits for in-flight ticks to finish.
func (r *Registry) Stop() {
	r.cancel()
	r.wg.Wait()
}

// Active reports whether a guild currently has a live timer.
func (r *Registry) Active(guildID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[guildID]
	return ok
}

func (r *Registry) run(ctx context.Context, h *timerHandle, guildID string, interval time.Duration) {
	defer r.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run immediately on arm
	if next, ok := r.tick(ctx, guildID, interval); !ok {
		r.drop(guildID, h)
		return
	} else if next != interval {
		interval = next
		ticker.Reset(interval)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			next, ok := r.tick(ctx, guildID, interval)
			if !ok {
				r.drop(guildID, h)
				return
			}
			if next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

// tick re-fetches the record from storage (never the value captured when the
// timer was armed), reconciles if the guild still qualifies, and reports
// whether the timer should stay alive plus the interval currently on record.
func (r *Registry) tick(ctx context.Context, guildID string, interval time.Duration) (next time.Duration, keep bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Str("guild_id", guildID).Interface("panic", rec).Msg("reconcile panicked")
			next, keep = interval, true
		}
	}()

	g, err := r.store.FindByGuild(guildID)
	if errors.Is(err, store.ErrNotFound) {
		r.log.Info().Str("guild_id", guildID).Msg("guild no longer configured, stopping timer")
		return 0, false
	}
	if err != nil {
		r.log.Error().Err(err).Str("guild_id", guildID).Msg("refresh record")
		return interval, true
	}
	if !g.Subscribed() {
		r.log.Info().Str("guild_id", guildID).Msg("guild unsubscribed, stopping timer")
		return 0, false
	}

	if _, err := r.reconciler.Reconcile(ctx, guildID); err != nil {
		r.log.Error().Err(err).Str("guild_id", guildID).Msg("reconcile failed")
	}

	next = g.Interval()
	if next <= 0 {
		next = interval
	}
	return next, true
}

// drop removes the handle only if it is still the live one; a replacement
// armed meanwhile must not be torn down.
func (r *Registry) drop(guildID string, h *timerHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.timers[guildID]; ok && cur == h {
		h.cancel()
		delete(r.timers, guildID)
	}
}
