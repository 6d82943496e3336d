package main

import (
	"testing"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/stretchr/testify/require"
	"github.com/taka-vending/hanbaiki/pkg/entities"
)

func interactionFrom(member *discordgo.Member) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{Member: member}}
}

func TestCanCloseTicket(t *testing.T) {
	ticket := &entities.Ticket{OpenerID: "opener"}

	tests := []struct {
		name   string
		member *discordgo.Member
		want   bool
	}{
		{
			name:   "opener",
			member: &discordgo.Member{User: &discordgo.User{ID: "opener"}},
			want:   true,
		},
		{
			name: "staff",
			member: &discordgo.Member{
				User:  &discordgo.User{ID: "staffer"},
				Roles: []string{"staff-role"},
			},
			want: true,
		},
		{
			name: "admin",
			member: &discordgo.Member{
				User:        &discordgo.User{ID: "admin"},
				Permissions: discordgo.PermissionAdministrator,
			},
			want: true,
		},
		{
			name:   "bystander",
			member: &discordgo.Member{User: &discordgo.User{ID: "bystander"}},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := canCloseTicket(interactionFrom(tt.member), ticket, "staff-role")
			require.Equal(t, tt.want, got)
		})
	}
}
