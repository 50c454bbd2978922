package server

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SHIBINSOJU/SHOT-MC/internal/config"
	"github.com/SHIBINSOJU/SHOT-MC/internal/db"
	"github.com/SHIBINSOJU/SHOT-MC/internal/probe"
	"github.com/SHIBINSOJU/SHOT-MC/internal/status"
	"github.com/SHIBINSOJU/SHOT-MC/internal/store"
)

type testEnv struct {
	srv   *httptest.Server
	db    *sql.DB
	store *store.Store
	feed  *status.Feed
}

func newTestEnv(t *testing.T, ready GatewayReady) *testEnv {
	t.Helper()
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(database))
	t.Cleanup(func() { database.Close() })

	st := store.New(database, 5*time.Second)
	feed := status.NewFeed()
	cfg := &config.Config{OperatorUser: "admin", OperatorPass: "swordfish"}

	s, err := New(cfg, database, st, feed, ready, zerolog.Nop())
	require.NoError(t, err)

	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, db: database, store: st, feed: feed}
}

func (e *testEnv) login(t *testing.T, username, password string) (string, int) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(e.srv.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]string
	json.NewDecoder(resp.Body).Decode(&out)
	return out["token"], resp.StatusCode
}

func (e *testEnv) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, func() bool { return true })
	resp, err := http.Get(env.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthzGatewayDown(t *testing.T) {
	env := newTestEnv(t, func() bool { return false })
	resp, err := http.Get(env.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, nil)

	_, code := env.login(t, "admin", "wrong")
	assert.Equal(t, http.StatusUnauthorized, code)

	token, code := env.login(t, "admin", "swordfish")
	assert.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, token)
}

func TestGuildEndpointsRequireAuth(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.get(t, "/api/v1/guilds", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.get(t, "/api/v1/guilds", "bogus-token")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGuildList(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.store.SetServer("g1", "play.example.com", 25565, store.EditionJava))
	env.feed.Publish("g1", &probe.Status{Online: true, OnlinePlayers: 3, MaxPlayers: 20})

	token, _ := env.login(t, "admin", "swordfish")
	resp := env.get(t, "/api/v1/guilds", token)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var guilds []struct {
		GuildID string `json:"guild_id"`
		Status  *struct {
			Online        bool `json:"online"`
			OnlinePlayers int  `json:"online_players"`
		} `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&guilds))
	require.Len(t, guilds, 1)
	assert.Equal(t, "g1", guilds[0].GuildID)
	require.NotNil(t, guilds[0].Status)
	assert.True(t, guilds[0].Status.Online)
	assert.Equal(t, 3, guilds[0].Status.OnlinePlayers)
}

func TestGuildGetNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	token, _ := env.login(t, "admin", "swordfish")

	resp := env.get(t, "/api/v1/guilds/missing/status", token)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGuildResponseOmitsRconPassword(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.store.SetServer("g1", "h", 25565, store.EditionJava))
	require.NoError(t, env.store.SetRcon("g1", 25575, "supersecret"))

	token, _ := env.login(t, "admin", "swordfish")
	resp := env.get(t, "/api/v1/guilds/g1/status", token)
	defer resp.Body.Close()

	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	assert.NotContains(t, buf.String(), "supersecret")
}

func TestLiveStream(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.store.SetServer("g1", "h", 25565, store.EditionJava))
	env.feed.Publish("g1", &probe.Status{Online: true, OnlinePlayers: 1})

	token, _ := env.login(t, "admin", "swordfish")
	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/api/v1/guilds/g1/status/live?token=" + token

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The latest known status arrives first, then live updates.
	var first probe.Status
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, 1, first.OnlinePlayers)

	env.feed.Publish("g1", &probe.Status{Online: true, OnlinePlayers: 2})
	var second probe.Status
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, 2, second.OnlinePlayers)
}

func TestLiveStreamRejectsBadToken(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.store.SetServer("g1", "h", 25565, store.EditionJava))

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/api/v1/guilds/g1/status/live?token=bogus"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
