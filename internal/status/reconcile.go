package status

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/SHIBINSOJU/SHOT-MC/internal/probe"
	"github.com/SHIBINSOJU/SHOT-MC/internal/store"
)

// Reconciler converges one managed status message per subscribed guild onto
// the current probe outcome. Reconcile is idempotent: with no intervening
// external change it creates at most one message and only edits it afterward.
type Reconciler struct {
	store        *store.Store
	prober       probe.Prober
	sink         Sink
	feed         *Feed
	log          zerolog.Logger
	probeTimeout time.Duration
	sinkTimeout  time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewReconciler(st *store.Store, prober probe.Prober, sink Sink, feed *Feed,
	probeTimeout, sinkTimeout time.Duration, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:        st,
		prober:       prober,
		sink:         sink,
		feed:         feed,
		log:          log.With().Str("component", "reconciler").Logger(),
		probeTimeout: probeTimeout,
		sinkTimeout:  sinkTimeout,
		locks:        make(map[string]*sync.Mutex),
	}
}

// lockFor returns the guild's serialization lock. Reconciliation for a guild
// must never run concurrently with itself: two racing passes could both see
// an empty message ref and create two messages.
func (r *Reconciler) lockFor(guildID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[guildID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[guildID] = l
	}
	return l
}

// Reconcile probes the guild's server and upserts its status message.
// Delivery failures are logged and swallowed here; the returned error covers
// only storage faults. The probe outcome is returned for interactive callers.
func (r *Reconciler) Reconcile(ctx context.Context, guildID string) (*probe.Status, error) {
	l := r.lockFor(guildID)
	l.Lock()
	defer l.Unlock()

	// Always a fresh read: the record may have changed since the caller
	// decided to reconcile.
	rec, err := r.store.FindByGuild(guildID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !rec.Subscribed() || !rec.Configured() {
		return nil, nil
	}

	log := r.log.With().Str("guild_id", guildID).Logger()

	// Destination first. A vanished channel is terminal for the
	// subscription: clear both refs and stop, nobody is waiting on a tick.
	chCtx, cancel := context.WithTimeout(ctx, r.sinkTimeout)
	err = r.sink.ResolveChannel(chCtx, rec.StatusChannelID)
	cancel()
	if errors.Is(err, ErrNotFound) {
		log.Warn().Str("channel_id", rec.StatusChannelID).Msg("status channel gone, clearing subscription")
		return nil, r.store.ClearSubscription(guildID)
	}
	if err != nil {
		log.Error().Err(err).Msg("resolve status channel")
		return nil, nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	st := probe.Check(probeCtx, r.prober, rec.ServerIP, rec.ServerPort, rec.ServerEdition)
	cancel()
	if r.feed != nil {
		r.feed.Publish(guildID, st)
	}

	content := Render(rec, st)
	r.upsert(ctx, log, rec, content)
	return st, nil
}

// upsert applies create-if-absent, edit-if-present to the managed message.
// A deleted message self-heals (ref cleared, new message created); any other
// delivery failure is logged and retried naturally on the next cycle.
func (r *Reconciler) upsert(ctx context.Context, log zerolog.Logger, rec *store.GuildConfig, content *Content) {
	messageID := rec.StatusMessageID

	if messageID != "" {
		opCtx, cancel := context.WithTimeout(ctx, r.sinkTimeout)
		err := r.sink.FetchMessage(opCtx, rec.StatusChannelID, messageID)
		cancel()
		switch {
		case errors.Is(err, ErrNotFound):
			log.Warn().Str("message_id", messageID).Msg("status message gone, recreating")
			if err := r.store.ClearMessageID(rec.GuildID); err != nil {
				log.Error().Err(err).Msg("clear message ref")
				return
			}
			messageID = ""
		case err != nil:
			// The message may still exist; keep the ref and retry later.
			log.Error().Err(err).Msg("fetch status message")
			return
		}
	}

	if messageID != "" {
		opCtx, cancel := context.WithTimeout(ctx, r.sinkTimeout)
		err := r.sink.Edit(opCtx, rec.StatusChannelID, messageID, content)
		cancel()
		if errors.Is(err, ErrNotFound) {
			// Deleted between fetch and edit; fall through to create.
			log.Warn().Str("message_id", messageID).Msg("status message vanished mid-edit, recreating")
			if err := r.store.ClearMessageID(rec.GuildID); err != nil {
				log.Error().Err(err).Msg("clear message ref")
				return
			}
			messageID = ""
		} else if err != nil {
			log.Error().Err(err).Msg("edit status message")
			return
		} else {
			return
		}
	}

	opCtx, cancel := context.WithTimeout(ctx, r.sinkTimeout)
	newID, err := r.sink.Send(opCtx, rec.StatusChannelID, content)
	cancel()
	if errors.Is(err, ErrNotFound) {
		log.Warn().Str("channel_id", rec.StatusChannelID).Msg("status channel gone on send, clearing subscription")
		if err := r.store.ClearSubscription(rec.GuildID); err != nil {
			log.Error().Err(err).Msg("clear subscription")
		}
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("send status message")
		return
	}
	if err := r.store.SetMessageID(rec.GuildID, newID); err != nil {
		log.Error().Err(err).Msg("persist message ref")
	}
}

// Probe runs the probe path alone, for interactive replies that post their
// own message and must not touch the managed ref.
func (r *Reconciler) Probe(ctx context.Context, rec *store.GuildConfig) *probe.Status {
	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()
	st := probe.Check(probeCtx, r.prober, rec.ServerIP, rec.ServerPort, rec.ServerEdition)
	if r.feed != nil {
		r.feed.Publish(rec.GuildID, st)
	}
	return st
}
