package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SHIBINSOJU/SHOT-MC/internal/db"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(database))
	t.Cleanup(func() { database.Close() })
	return New(database, 5*time.Second)
}

func TestFindByGuildNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.FindByGuild("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetServerUpsert(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.SetServer("g1", "a.example.com", 25565, EditionJava))

	g, err := s.FindByGuild("g1")
	require.NoError(t, err)
	assert.Equal(t, "a.example.com", g.ServerIP)
	assert.Equal(t, 25565, g.ServerPort)
	assert.Equal(t, EditionJava, g.ServerEdition)
	assert.True(t, g.Configured())
	assert.False(t, g.Subscribed())
	assert.Equal(t, time.Minute, g.Interval())

	// Re-registering replaces connection details without touching the rest.
	require.NoError(t, s.SetRcon("g1", 25575, "hunter2"))
	require.NoError(t, s.SetServer("g1", "b.example.com", 19132, EditionBedrock))
	g, err = s.FindByGuild("g1")
	require.NoError(t, err)
	assert.Equal(t, "b.example.com", g.ServerIP)
	assert.Equal(t, EditionBedrock, g.ServerEdition)
	assert.Equal(t, 25575, g.RconPort)
	assert.Equal(t, "hunter2", g.RconPassword)
	assert.True(t, g.RconConfigured())
}

func TestSetServerValidation(t *testing.T) {
	s := testStore(t)
	require.ErrorIs(t, s.SetServer("g1", "h", 0, EditionJava), ErrInvalidPort)
	require.ErrorIs(t, s.SetServer("g1", "h", 70000, EditionJava), ErrInvalidPort)
	require.ErrorIs(t, s.SetServer("g1", "h", 25565, "pocket"), ErrInvalidEdition)
	require.ErrorIs(t, s.SetRcon("g1", -1, "pw"), ErrInvalidPort)

	_, err := s.FindByGuild("g1")
	require.ErrorIs(t, err, ErrNotFound, "rejected writes must not create a record")
}

func TestSetDisplay(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.SetServer("g1", "h", 25565, EditionJava))
	require.NoError(t, s.SetDisplay("g1", "My Server", "Come play!", "https://x/b.png", "https://x/t.png"))

	g, err := s.FindByGuild("g1")
	require.NoError(t, err)
	assert.Equal(t, "My Server", g.DisplayName)
	assert.Equal(t, "Come play!", g.Description)
	assert.Equal(t, "https://x/b.png", g.BannerURL)
	assert.Equal(t, "https://x/t.png", g.ThumbnailURL)
	assert.Equal(t, "h", g.ServerIP, "display writes leave connection info alone")
}

func TestRconBeforeServer(t *testing.T) {
	// RCON details may arrive before the server registration; the record is
	// created either way and merged later.
	s := testStore(t)
	require.NoError(t, s.SetRcon("g1", 25575, "pw"))
	g, err := s.FindByGuild("g1")
	require.NoError(t, err)
	assert.False(t, g.Configured())
	assert.True(t, g.RconConfigured())
}

func TestSetStatusChannelClearsMessageRef(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.SetServer("g1", "h", 25565, EditionJava))
	require.NoError(t, s.SetStatusChannel("g1", "c1"))
	require.NoError(t, s.SetMessageID("g1", "m1"))

	require.NoError(t, s.SetStatusChannel("g1", "c2"))
	g, err := s.FindByGuild("g1")
	require.NoError(t, err)
	assert.Equal(t, "c2", g.StatusChannelID)
	assert.Empty(t, g.StatusMessageID, "a message in the old channel is not ours anymore")
}

func TestSetIntervalFloor(t *testing.T) {
	s := testStore(t)
	require.ErrorIs(t, s.SetInterval("g1", 2*time.Second), ErrIntervalTooShort)
	assert.Equal(t, 5*time.Second, s.IntervalFloor())

	require.NoError(t, s.SetInterval("g1", 30*time.Second))
	g, err := s.FindByGuild("g1")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, g.Interval())
}

func TestClearSubscriptionKeepsRecord(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.SetServer("g1", "h", 25565, EditionJava))
	require.NoError(t, s.SetStatusChannel("g1", "c1"))
	require.NoError(t, s.SetMessageID("g1", "m1"))

	require.NoError(t, s.ClearSubscription("g1"))
	g, err := s.FindByGuild("g1")
	require.NoError(t, err)
	assert.Empty(t, g.StatusChannelID)
	assert.Empty(t, g.StatusMessageID)
	assert.True(t, g.Configured(), "unsubscribing must not forget the server")
}

func TestClearMessageIDKeepsChannel(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.SetServer("g1", "h", 25565, EditionJava))
	require.NoError(t, s.SetStatusChannel("g1", "c1"))
	require.NoError(t, s.SetMessageID("g1", "m1"))

	require.NoError(t, s.ClearMessageID("g1"))
	g, err := s.FindByGuild("g1")
	require.NoError(t, err)
	assert.Equal(t, "c1", g.StatusChannelID)
	assert.Empty(t, g.StatusMessageID)
}

func TestFindAllSubscribed(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.SetServer("g1", "h", 25565, EditionJava))
	require.NoError(t, s.SetStatusChannel("g1", "c1"))
	require.NoError(t, s.SetServer("g2", "h", 25565, EditionJava))

	subs, err := s.FindAllSubscribed()
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "g1", subs[0].GuildID)

	all, err := s.FindAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGuildConfigNilHelpers(t *testing.T) {
	var g *GuildConfig
	assert.False(t, g.Configured())
	assert.False(t, g.Subscribed())
	assert.False(t, g.RconConfigured())
}
