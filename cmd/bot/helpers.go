package main

import (
	"github.com/Jacobbrewer1/discordgo"
	"github.com/taka-vending/hanbaiki/pkg/messages"
)

func respondSlashError(a IApp, i *discordgo.InteractionCreate) error {
	return respondEphemeral(a, i, messages.ErrUserErrorProcessing)
}

func respondEphemeral(a IApp, i *discordgo.InteractionCreate, content string) error {
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func respondEphemeralEmbed(a IApp, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

func deferEphemeral(a IApp, i *discordgo.InteractionCreate) error {
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

func followupEphemeral(a IApp, i *discordgo.InteractionCreate, content string) error {
	_, err := a.Session().FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	return err
}

// hasRole reports whether the member holds the given role.
func hasRole(member *discordgo.Member, roleID string) bool {
	for _, r := range member.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// isAdmin reports whether the interaction's member is a guild administrator.
func isAdmin(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator == discordgo.PermissionAdministrator
}

// isStaff reports whether the interaction's member may manage tickets: a
// guild administrator or a holder of the configured staff role.
func isStaff(i *discordgo.InteractionCreate, staffRoleID string) bool {
	if isAdmin(i) {
		return true
	}
	return i.Member != nil && staffRoleID != "" && hasRole(i.Member, staffRoleID)
}

// displayName returns the member's display name, preferring the guild nick.
func displayName(member *discordgo.Member) string {
	if member == nil || member.User == nil {
		return "user"
	}
	if member.Nick != "" {
		return member.Nick
	}
	return member.User.Username
}

// subCommand returns the name and options of the interaction's sub command.
func subCommand(i *discordgo.InteractionCreate) (string, []*discordgo.ApplicationCommandInteractionDataOption) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return "", nil
	}
	return data.Options[0].Name, data.Options[0].Options
}

// optionMap indexes sub command options by name.
func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}
