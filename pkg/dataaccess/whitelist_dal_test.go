package dataaccess

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestWhitelistDal(t *testing.T) IWhitelistDal {
	t.Helper()
	store := newTestStore(t)
	return NewWhitelistDal(slog.New(slog.NewTextHandler(io.Discard, nil)), store)
}

func TestWhitelistDal_Defaults(t *testing.T) {
	dal := newTestWhitelistDal(t)

	// A whitelist that was never written reads as empty, not as an error.
	wl, err := dal.GetWhitelist()
	require.NoError(t, err)
	require.Empty(t, wl.GuildIDs)

	ok, err := dal.IsWhitelisted("guild-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWhitelistDal_AddRemove(t *testing.T) {
	dal := newTestWhitelistDal(t)

	added, err := dal.AddGuild("guild-1")
	require.NoError(t, err)
	require.True(t, added)

	// Adding again is a no-op.
	added, err = dal.AddGuild("guild-1")
	require.NoError(t, err)
	require.False(t, added)

	ok, err := dal.IsWhitelisted("guild-1")
	require.NoError(t, err)
	require.True(t, ok)

	removed, err := dal.RemoveGuild("guild-1")
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = dal.RemoveGuild("guild-1")
	require.NoError(t, err)
	require.False(t, removed)

	ok, err = dal.IsWhitelisted("guild-1")
	require.NoError(t, err)
	require.False(t, ok)
}
