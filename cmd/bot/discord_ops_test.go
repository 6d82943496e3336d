package main

import (
	"testing"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/stretchr/testify/require"
)

func TestTicketMemberPermissions(t *testing.T) {
	// Claim handlers get the text permissions but never mention-everyone,
	// the same as the overwrites ticket channels are created with.
	require.NotZero(t, ticketMemberPermissions&discordgo.PermissionSendMessages)
	require.NotZero(t, ticketMemberPermissions&discordgo.PermissionViewChannel)
	require.NotZero(t, ticketDeniedPermissions&discordgo.PermissionMentionEveryone)
}
