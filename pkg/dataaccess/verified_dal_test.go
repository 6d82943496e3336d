package dataaccess

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taka-vending/hanbaiki/pkg/entities"
)

func newTestVerifiedDal(t *testing.T) IVerifiedDal {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return NewVerifiedDal(slog.New(slog.NewTextHandler(io.Discard, nil)), store)
}

func TestVerifiedDal_MutateUser(t *testing.T) {
	dal := newTestVerifiedDal(t)

	require.NoError(t, dal.UpsertUser(&entities.VerifiedUser{UserID: "user-1", AccessToken: "tok"}))

	require.NoError(t, dal.MutateUser("user-1", func(u *entities.VerifiedUser) {
		u.GuildID = "guild-1"
	}))

	users, err := dal.GetUsers()
	require.NoError(t, err)
	require.Equal(t, "guild-1", users["user-1"].GuildID)
	require.Equal(t, "tok", users["user-1"].AccessToken)
}

func TestVerifiedDal_MutateUserMissing(t *testing.T) {
	dal := newTestVerifiedDal(t)

	require.NoError(t, dal.UpsertUser(&entities.VerifiedUser{UserID: "user-1", AccessToken: "tok"}))
	require.ErrorIs(t, dal.MutateUser("stranger", func(*entities.VerifiedUser) {}), ErrNotExists)
}
