package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebAPIProberOnline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/play.example.com:25565", r.URL.Path)
		w.Write([]byte(`{
			"online": true,
			"motd": {"clean": ["Line one", "Line two"]},
			"version": "1.21",
			"protocol": {"version": 767},
			"players": {"online": 4, "max": 40, "list": [
				{"name": "alex", "uuid": "853c80ef-3c37-49fd-aa49-938b674adae6"}
			]}
		}`))
	}))
	defer srv.Close()

	st, err := NewWebAPIProber(srv.URL).Probe(context.Background(), "play.example.com", 25565, "java")
	require.NoError(t, err)
	assert.True(t, st.Online)
	assert.Equal(t, "Line one Line two", st.MOTD)
	assert.Equal(t, "1.21", st.VersionName)
	assert.Equal(t, 767, st.ProtocolVersion)
	assert.Equal(t, 4, st.OnlinePlayers)
	assert.Equal(t, 40, st.MaxPlayers)
	require.Len(t, st.Players, 1)
	assert.Equal(t, "alex", st.Players[0].Name)
}

func TestWebAPIProberBedrockPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bedrock/3/play.example.com:19132", r.URL.Path)
		w.Write([]byte(`{"online": true, "players": {"online": 1, "max": 10}}`))
	}))
	defer srv.Close()

	st, err := NewWebAPIProber(srv.URL).Probe(context.Background(), "play.example.com", 19132, "bedrock")
	require.NoError(t, err)
	assert.True(t, st.Online)
	assert.Equal(t, 1, st.OnlinePlayers)
}

func TestWebAPIProberOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"online": false}`))
	}))
	defer srv.Close()

	st, err := NewWebAPIProber(srv.URL).Probe(context.Background(), "h", 25565, "java")
	require.NoError(t, err)
	assert.False(t, st.Online)
	assert.False(t, st.CheckedAt.IsZero())
}

func TestWebAPIProberServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewWebAPIProber(srv.URL).Probe(context.Background(), "h", 25565, "java")
	require.Error(t, err)
}

func TestRegistryBackends(t *testing.T) {
	require.NotNil(t, Get("query"))
	require.NotNil(t, Get("webapi"))
	assert.Nil(t, Get("nope"))
}
