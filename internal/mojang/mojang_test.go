package mojang

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/profiles/minecraft/Notch", r.URL.Path)
		w.Write([]byte(`{"id": "069a79f444e94726a5befca90e38aaf5", "name": "Notch"}`))
	}))
	defer srv.Close()

	p, err := NewClientWithBase(srv.URL).Lookup(context.Background(), "Notch")
	require.NoError(t, err)
	assert.Equal(t, "Notch", p.Name)
	assert.Equal(t, "069a79f4-44e9-4726-a5be-fca90e38aaf5", p.ID.String())
	assert.Equal(t, "https://crafatar.com/skins/069a79f4-44e9-4726-a5be-fca90e38aaf5", p.SkinURL())
	assert.Equal(t, "https://crafatar.com/renders/body/069a79f4-44e9-4726-a5be-fca90e38aaf5", p.BodyRenderURL())
}

func TestLookupNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClientWithBase(srv.URL).Lookup(context.Background(), "does_not_exist")
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestLookupErrorBody(t *testing.T) {
	// Some deployments answer unknown names with 200 plus an error object.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "NOT_FOUND", "errorMessage": "Couldn't find any profile"}`))
	}))
	defer srv.Close()

	_, err := NewClientWithBase(srv.URL).Lookup(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrProfileNotFound)
}
