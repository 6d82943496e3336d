package tickets

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taka-vending/hanbaiki/pkg/dataaccess"
)

// fakeChannelOps records the Discord side effects the manager requests.
type fakeChannelOps struct {
	mu        sync.Mutex
	renames   []string
	granted   []string
	revoked   []string
	deleted   []string
	renameErr error

	// onDelete runs inside Delete, before the call is recorded.
	onDelete func(channelID string)
}

func (f *fakeChannelOps) Rename(_, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.renameErr != nil {
		return f.renameErr
	}
	f.renames = append(f.renames, name)
	return nil
}

func (f *fakeChannelOps) GrantMember(_, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.granted = append(f.granted, userID)
	return nil
}

func (f *fakeChannelOps) RevokeMember(_, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, userID)
	return nil
}

func (f *fakeChannelOps) Delete(channelID string) error {
	if f.onDelete != nil {
		f.onDelete(channelID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, channelID)
	return nil
}

func newTestManager(t *testing.T) (*Manager, *fakeChannelOps) {
	t.Helper()
	store, err := dataaccess.NewStore(t.TempDir())
	require.NoError(t, err)

	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	ops := new(fakeChannelOps)
	return NewManager(l, dataaccess.NewTicketDal(l, store), ops, 0), ops
}

func TestManager_OpenDuplicate(t *testing.T) {
	mgr, _ := newTestManager(t)

	ticket, err := mgr.Open("guild-1", "chan-1", "user-1", "Alice Smith")
	require.NoError(t, err)
	require.Equal(t, "ticket-alice-smith", ticket.Name())

	// A second open by the same user in the same guild is refused, even for
	// another channel.
	_, err = mgr.Open("guild-1", "chan-2", "user-1", "Alice Smith")
	require.ErrorIs(t, err, ErrAlreadyOpen)

	// Other users and other guilds are unaffected.
	_, err = mgr.Open("guild-1", "chan-3", "user-2", "Bob")
	require.NoError(t, err)
	_, err = mgr.Open("guild-2", "chan-4", "user-1", "Alice Smith")
	require.NoError(t, err)
}

func TestManager_OpenTicketFor(t *testing.T) {
	mgr, _ := newTestManager(t)

	got, err := mgr.OpenTicketFor("guild-1", "user-1")
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = mgr.Open("guild-1", "chan-1", "user-1", "Alice")
	require.NoError(t, err)

	got, err = mgr.OpenTicketFor("guild-1", "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "chan-1", got.ChannelID)
}

func TestManager_ClaimOrdering(t *testing.T) {
	mgr, ops := newTestManager(t)

	_, err := mgr.Open("guild-1", "chan-1", "user-1", "Alice")
	require.NoError(t, err)

	_, err = mgr.Claim("guild-1", "chan-1", "staff-A", "Anna")
	require.NoError(t, err)
	_, err = mgr.Claim("guild-1", "chan-1", "staff-B", "Ben")
	require.NoError(t, err)

	// Re-claiming moves the handler to the tail instead of duplicating it.
	ticket, err := mgr.Claim("guild-1", "chan-1", "staff-A", "Anna")
	require.NoError(t, err)
	require.Equal(t, []string{"staff-B", "staff-A"}, ticket.HandlerIDs)
	require.Equal(t, "staff-A", ticket.LastHandler())
	require.Equal(t, "ticket-alice-anna", ticket.Name())

	require.Equal(t, []string{"staff-A", "staff-B", "staff-A"}, ops.granted)
	require.Equal(t, "ticket-alice-anna", ops.renames[len(ops.renames)-1])
}

func TestManager_ClaimRenameFailureIsSwallowed(t *testing.T) {
	mgr, ops := newTestManager(t)
	ops.renameErr = errors.New("rate limited")

	_, err := mgr.Open("guild-1", "chan-1", "user-1", "Alice")
	require.NoError(t, err)

	// The claim stands even though the rename failed.
	ticket, err := mgr.Claim("guild-1", "chan-1", "staff-A", "Anna")
	require.NoError(t, err)
	require.Equal(t, []string{"staff-A"}, ticket.HandlerIDs)
}

func TestManager_RemoveHandler(t *testing.T) {
	mgr, ops := newTestManager(t)

	_, err := mgr.Open("guild-1", "chan-1", "user-1", "Alice")
	require.NoError(t, err)
	_, err = mgr.Claim("guild-1", "chan-1", "staff-A", "Anna")
	require.NoError(t, err)

	// Removing someone that never claimed is an error.
	_, err = mgr.RemoveHandler("guild-1", "chan-1", "staff-B")
	require.ErrorIs(t, err, ErrNotHandler)

	ticket, err := mgr.RemoveHandler("guild-1", "chan-1", "staff-A")
	require.NoError(t, err)
	require.Empty(t, ticket.HandlerIDs)
	require.Equal(t, "ticket-alice", ticket.Name())
	require.Equal(t, []string{"staff-A"}, ops.revoked)
}

func TestManager_CloseDeletesRecordFirst(t *testing.T) {
	mgr, ops := newTestManager(t)

	_, err := mgr.Open("guild-1", "chan-1", "user-1", "Alice")
	require.NoError(t, err)

	// By the time the channel deletion is requested, the record must already
	// be gone, so a crash in between cannot leave a phantom open ticket.
	ops.onDelete = func(string) {
		_, err := mgr.Get("guild-1", "chan-1")
		require.ErrorIs(t, err, ErrNotFound)
	}

	require.NoError(t, mgr.Close("guild-1", "chan-1"))
	require.Equal(t, []string{"chan-1"}, ops.deleted)

	// The opener can open a new ticket straight away.
	_, err = mgr.Open("guild-1", "chan-2", "user-1", "Alice")
	require.NoError(t, err)
}

func TestManager_CloseUnknown(t *testing.T) {
	mgr, _ := newTestManager(t)

	err := mgr.Close("guild-1", "chan-404")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestManager_SetWelcomeMessage(t *testing.T) {
	mgr, _ := newTestManager(t)

	_, err := mgr.Open("guild-1", "chan-1", "user-1", "Alice")
	require.NoError(t, err)

	require.NoError(t, mgr.SetWelcomeMessage("guild-1", "chan-1", "msg-1"))

	ticket, err := mgr.Get("guild-1", "chan-1")
	require.NoError(t, err)
	require.Equal(t, "msg-1", ticket.WelcomeMessageID)

	err = mgr.SetWelcomeMessage("guild-1", "chan-404", "msg-1")
	require.ErrorIs(t, err, ErrNotFound)
}
