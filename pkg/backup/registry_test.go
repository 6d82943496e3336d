package backup

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taka-vending/hanbaiki/pkg/dataaccess"
	"github.com/taka-vending/hanbaiki/pkg/entities"
	"golang.org/x/time/rate"
)

// fakeGuildOps records the guild membership calls a recall makes.
type fakeGuildOps struct {
	members map[string]bool

	// onIsMember runs at the start of every membership check, mid-recall.
	onIsMember func(userID string)

	rolesAdded   []string
	membersAdded []string
}

func (f *fakeGuildOps) IsMember(_, userID string) (bool, error) {
	if f.onIsMember != nil {
		f.onIsMember(userID)
	}
	return f.members[userID], nil
}

func (f *fakeGuildOps) AddRole(_, userID, _ string) error {
	f.rolesAdded = append(f.rolesAdded, userID)
	return nil
}

func (f *fakeGuildOps) AddMember(_, userID, accessToken string, _ []string) error {
	f.membersAdded = append(f.membersAdded, userID)
	return nil
}

func newTestRegistry(t *testing.T) (*Registry, dataaccess.IVerifiedDal) {
	t.Helper()
	store, err := dataaccess.NewStore(t.TempDir())
	require.NoError(t, err)

	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	dal := dataaccess.NewVerifiedDal(l, store)
	return NewRegistry(l, dal, rate.Inf), dal
}

func TestRegistry_Count(t *testing.T) {
	reg, _ := newTestRegistry(t)

	count, err := reg.Count()
	require.NoError(t, err)
	require.Zero(t, count)

	require.NoError(t, reg.Record(&entities.VerifiedUser{UserID: "user-1", AccessToken: "tok-1"}))
	require.NoError(t, reg.Record(&entities.VerifiedUser{UserID: "user-2", AccessToken: "tok-2"}))

	// Re-recording the same user overwrites, not duplicates.
	require.NoError(t, reg.Record(&entities.VerifiedUser{UserID: "user-1", AccessToken: "tok-1b"}))

	count, err = reg.Count()
	require.NoError(t, err)
	require.Equal(t, 2, count)

	require.NoError(t, reg.Remove("user-2"))
	count, err = reg.Count()
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestRegistry_Role(t *testing.T) {
	reg, _ := newTestRegistry(t)

	// Unconfigured guilds read as no role.
	roleID, err := reg.Role("guild-1")
	require.NoError(t, err)
	require.Empty(t, roleID)

	require.NoError(t, reg.SetRole("guild-1", "role-1"))
	roleID, err = reg.Role("guild-1")
	require.NoError(t, err)
	require.Equal(t, "role-1", roleID)
}

func TestRegistry_RecallMixed(t *testing.T) {
	reg, _ := newTestRegistry(t)

	// A current member, a departed user with a stored token and a departed
	// user whose token was never stored.
	require.NoError(t, reg.Record(&entities.VerifiedUser{UserID: "member", AccessToken: "tok-m"}))
	require.NoError(t, reg.Record(&entities.VerifiedUser{UserID: "departed", AccessToken: "tok-d"}))
	require.NoError(t, reg.Record(&entities.VerifiedUser{UserID: "tokenless"}))

	ops := &fakeGuildOps{members: map[string]bool{"member": true}}

	res, err := reg.Recall(context.Background(), ops, "guild-1", nil, "role-1")
	require.NoError(t, err)
	require.Equal(t, 2, res.Recalled)
	require.Equal(t, 1, res.Failed)

	require.Equal(t, []string{"member"}, ops.rolesAdded)
	require.Equal(t, []string{"departed"}, ops.membersAdded)
}

func TestRegistry_RecallSelected(t *testing.T) {
	reg, _ := newTestRegistry(t)

	require.NoError(t, reg.Record(&entities.VerifiedUser{UserID: "user-1", AccessToken: "tok-1"}))
	require.NoError(t, reg.Record(&entities.VerifiedUser{UserID: "user-2", AccessToken: "tok-2"}))

	ops := &fakeGuildOps{members: map[string]bool{}}

	// Only the named users are processed; unknown names count as failures.
	res, err := reg.Recall(context.Background(), ops, "guild-1", []string{"user-1", "stranger"}, "")
	require.NoError(t, err)
	require.Equal(t, 1, res.Recalled)
	require.Equal(t, 1, res.Failed)
	require.Equal(t, []string{"user-1"}, ops.membersAdded)
}

func TestRegistry_RecallKeepsConcurrentRecord(t *testing.T) {
	reg, dal := newTestRegistry(t)

	require.NoError(t, reg.Record(&entities.VerifiedUser{UserID: "departed", AccessToken: "tok-d"}))

	// A user completes the verification flow while the recall is running,
	// after it has read its snapshot of the user map.
	ops := &fakeGuildOps{
		members: map[string]bool{},
		onIsMember: func(string) {
			require.NoError(t, reg.Record(&entities.VerifiedUser{UserID: "new", AccessToken: "tok-n"}))
		},
	}

	res, err := reg.Recall(context.Background(), ops, "guild-1", nil, "")
	require.NoError(t, err)
	require.Equal(t, 1, res.Recalled)

	count, err := reg.Count()
	require.NoError(t, err)
	require.Equal(t, 2, count)

	users, err := dal.GetUsers()
	require.NoError(t, err)
	require.Equal(t, "tok-n", users["new"].AccessToken)

	// The recall still lands its own bookkeeping.
	require.Equal(t, "guild-1", users["departed"].GuildID)
}

func TestRegistry_RecallMemberWithoutRole(t *testing.T) {
	reg, _ := newTestRegistry(t)

	require.NoError(t, reg.Record(&entities.VerifiedUser{UserID: "member", AccessToken: "tok"}))

	ops := &fakeGuildOps{members: map[string]bool{"member": true}}

	// With no role to grant, a current member is a no-op success.
	res, err := reg.Recall(context.Background(), ops, "guild-1", nil, "")
	require.NoError(t, err)
	require.Equal(t, 1, res.Recalled)
	require.Empty(t, ops.rolesAdded)
	require.Empty(t, ops.membersAdded)
}
