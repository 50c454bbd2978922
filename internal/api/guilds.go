package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/SHIBINSOJU/SHOT-MC/internal/auth"
	"github.com/SHIBINSOJU/SHOT-MC/internal/probe"
	"github.com/SHIBINSOJU/SHOT-MC/internal/status"
	"github.com/SHIBINSOJU/SHOT-MC/internal/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type GuildHandler struct {
	store *store.Store
	feed  *status.Feed
	auth  *auth.Service
	log   zerolog.Logger
}

type GuildStatus struct {
	*store.GuildConfig
	Status *probe.Status `json:"status,omitempty"`
}

func NewGuildHandler(st *store.Store, feed *status.Feed, authSvc *auth.Service, log zerolog.Logger) *GuildHandler {
	return &GuildHandler{
		store: st,
		feed:  feed,
		auth:  authSvc,
		log:   log.With().Str("component", "api").Logger(),
	}
}

// List returns every configured guild with its latest known probe outcome.
func (h *GuildHandler) List(w http.ResponseWriter, r *http.Request) {
	guilds, err := h.store.FindAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query guilds")
		return
	}

	out := make([]GuildStatus, 0, len(guilds))
	for _, g := range guilds {
		out = append(out, GuildStatus{GuildConfig: g, Status: h.feed.Latest(g.GuildID)})
	}
	writeJSON(w, http.StatusOK, out)
}

// Get returns one guild's record and latest known probe outcome.
func (h *GuildHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	g, err := h.store.FindByGuild(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "guild not found")
		return
	}
	writeJSON(w, http.StatusOK, GuildStatus{GuildConfig: g, Status: h.feed.Latest(id)})
}

// Live streams probe outcomes for one guild over a websocket. Auth comes via
// query param since browsers cannot set headers on websocket upgrades.
func (h *GuildHandler) Live(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.ValidateSession(r.URL.Query().Get("token")); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired session")
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := h.store.FindByGuild(id); err != nil {
		writeError(w, http.StatusNotFound, "guild not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := h.feed.Subscribe(id)
	defer h.feed.Unsubscribe(id, ch)

	if latest := h.feed.Latest(id); latest != nil {
		if err := conn.WriteJSON(latest); err != nil {
			return
		}
	}

	// Drain client reads so close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case st, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(st); err != nil {
				return
			}
		}
	}
}
