package rcon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhitelistCommand(t *testing.T) {
	cmd, err := WhitelistCommand("add", "Notch")
	require.NoError(t, err)
	assert.Equal(t, "whitelist add Notch", cmd)

	cmd, err = WhitelistCommand("remove", "x_Steve_99")
	require.NoError(t, err)
	assert.Equal(t, "whitelist remove x_Steve_99", cmd)
}

func TestWhitelistCommandRejectsBadInput(t *testing.T) {
	for _, name := range []string{
		"",
		"name with spaces",
		"seventeen_chars_x",
		"semi;colon",
		"a\nb",
		"Notch; stop",
	} {
		_, err := WhitelistCommand("add", name)
		assert.ErrorIs(t, err, ErrInvalidUsername, "username %q", name)
	}

	_, err := WhitelistCommand("ban", "Notch")
	assert.Error(t, err)
}

func TestExecHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(time.Second).Exec(ctx, "127.0.0.1", 25575, "pw", "list")
	require.ErrorIs(t, err, context.Canceled)
}
