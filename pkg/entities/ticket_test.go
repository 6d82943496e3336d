package entities

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeChannelName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain",
			in:   "alice",
			want: "alice",
		},
		{
			name: "uppercase and spaces",
			in:   "Alice Smith",
			want: "alice-smith",
		},
		{
			name: "symbols stripped",
			in:   "al!ce_99",
			want: "alce99",
		},
		{
			name: "nothing left",
			in:   "!!!",
			want: "user",
		},
		{
			name: "surrounding whitespace",
			in:   "  Bob  ",
			want: "bob",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, SanitizeChannelName(tt.in))
		})
	}
}

func TestTicket_Name(t *testing.T) {
	ticket := NewTicket("guild-1", "chan-1", "user-1", "Alice Smith")
	require.Equal(t, "ticket-alice-smith", ticket.Name())

	ticket.Claim("staff-A", "Anna")
	require.Equal(t, "ticket-alice-smith-anna", ticket.Name())
}

func TestTicket_ClaimOrder(t *testing.T) {
	ticket := NewTicket("guild-1", "chan-1", "user-1", "Alice")

	ticket.Claim("staff-A", "Anna")
	ticket.Claim("staff-B", "Ben")
	ticket.Claim("staff-A", "Anna")

	require.Equal(t, []string{"staff-B", "staff-A"}, ticket.HandlerIDs)
	require.Equal(t, "staff-A", ticket.LastHandler())
}

func TestTicket_RemoveHandler(t *testing.T) {
	ticket := NewTicket("guild-1", "chan-1", "user-1", "Alice")
	ticket.Claim("staff-A", "Anna")

	require.False(t, ticket.RemoveHandler("staff-B"))
	require.True(t, ticket.RemoveHandler("staff-A"))
	require.Empty(t, ticket.HandlerIDs)
	require.Empty(t, ticket.LastHandler())
}

func TestTicket_Validate(t *testing.T) {
	ticket := NewTicket("guild-1", "chan-1", "user-1", "Alice")
	require.NoError(t, ticket.Validate())

	require.Error(t, NewTicket("", "chan-1", "user-1", "Alice").Validate())
	require.Error(t, NewTicket("guild-1", "", "user-1", "Alice").Validate())
	require.Error(t, NewTicket("guild-1", "chan-1", "", "Alice").Validate())
}
