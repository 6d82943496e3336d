package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/taka-vending/hanbaiki/cmd/bot/config"
	"github.com/taka-vending/hanbaiki/pkg/logging"
	"github.com/taka-vending/hanbaiki/pkg/messages"
)

const (
	// BackupCmdName is the command for the member backup.
	BackupCmdName = "backup"

	// BackupVerifyCmdName is the sub command for posting the verification
	// panel.
	BackupVerifyCmdName = "verify"

	// BackupCallCmdName is the sub command for recalling backed up members.
	BackupCallCmdName = "call"

	// BackupCountCmdName is the sub command for counting backed up members.
	BackupCountCmdName = "count"
)

// mentionRegex extracts user IDs from raw mention markup.
var mentionRegex = regexp.MustCompile(`<@!?(\d+)>`)

// backupCmd is the command for the member backup.
var backupCmd = &discordgo.ApplicationCommand{
	Name:        BackupCmdName,
	Type:        discordgo.ChatApplicationCommand,
	Description: "This is the command for the member backup.",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        BackupVerifyCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "This posts the verification panel in the current channel.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "role",
					Type:        discordgo.ApplicationCommandOptionRole,
					Description: "The role granted to members that verify.",
					Required:    true,
				},
			},
		},
		{
			Name:        BackupCallCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "This recalls backed up members into this server.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "members",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "Mentions of the members to recall. Leave empty to recall everyone.",
					Required:    false,
				},
				{
					Name:        "role",
					Type:        discordgo.ApplicationCommandOptionRole,
					Description: "The role granted to recalled members.",
					Required:    false,
				},
			},
		},
		{
			Name:        BackupCountCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "This counts the backed up members.",
		},
	},
}

// backupCmdController is the controller for the backup command.
func backupCmdController(a IApp, i *discordgo.InteractionCreate) (commandProcessor, error) {
	if !isAdmin(i) {
		if err := respondEphemeral(a, i, "You need to be an administrator to manage the member backup."); err != nil {
			return nil, fmt.Errorf("error responding to interaction: %w", err)
		}
		return nil, nil
	}

	if !config.OAuthConfigured() {
		if err := respondEphemeral(a, i, "The verification flow is not configured on this bot."); err != nil {
			return nil, fmt.Errorf("error responding to interaction: %w", err)
		}
		return nil, nil
	}

	sub, _ := subCommand(i)
	switch sub {
	case BackupVerifyCmdName:
		return backupVerifyHandler, nil
	case BackupCallCmdName:
		return backupCallHandler, nil
	case BackupCountCmdName:
		return backupCountHandler, nil
	default:
		return nil, fmt.Errorf("unknown sub command %s", sub)
	}
}

// authorizeURL builds the Discord OAuth2 authorize URL for the guild. The
// guild ID rides on the state parameter so the callback knows where the
// verification started.
func authorizeURL(guildID string) string {
	q := url.Values{}
	q.Set("client_id", config.OAuthClientId)
	q.Set("redirect_uri", config.OAuthRedirectUrl)
	q.Set("response_type", "code")
	q.Set("scope", "identify guilds.join")
	q.Set("state", guildID)
	return "https://discord.com/oauth2/authorize?" + q.Encode()
}

// backupVerifyHandler records the verification role for the guild and posts
// the panel with the authorization link.
func backupVerifyHandler(a IApp, i *discordgo.InteractionCreate) error {
	_, opts := subCommand(i)
	role := optionMap(opts)["role"].RoleValue(nil, i.GuildID)

	if err := a.Backup().SetRole(i.GuildID, role.ID); err != nil {
		return fmt.Errorf("error saving verification role: %w", err)
	}

	if _, err := a.Session().ChannelMessageSendComplex(i.ChannelID, &discordgo.MessageSend{
		Embed: &discordgo.MessageEmbed{
			Title:       "Member Verification",
			Description: fmt.Sprintf("Click the button below to verify and receive <@&%s>.", role.ID),
			Color:       0x5865f2,
		},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label: "Verify",
						Style: discordgo.LinkButton,
						URL:   authorizeURL(i.GuildID),
					},
				},
			},
		},
	}); err != nil {
		return fmt.Errorf("error sending verification panel: %w", err)
	}

	return respondEphemeral(a, i, "Verification panel has been posted.")
}

// backupCallHandler recalls backed up members into the guild. The recall is
// rate limited, so the response is deferred and the tally follows up.
func backupCallHandler(a IApp, i *discordgo.InteractionCreate) error {
	_, opts := subCommand(i)
	om := optionMap(opts)

	// nil recalls every backed up member.
	var userIDs []string
	if opt, ok := om["members"]; ok {
		for _, m := range mentionRegex.FindAllStringSubmatch(opt.StringValue(), -1) {
			userIDs = append(userIDs, m[1])
		}
		if userIDs == nil {
			return respondEphemeral(a, i, "No member mentions found in the members option.")
		}
	}

	roleID := ""
	if opt, ok := om["role"]; ok {
		roleID = opt.RoleValue(nil, i.GuildID).ID
	}

	if err := deferEphemeral(a, i); err != nil {
		return fmt.Errorf("error deferring response: %w", err)
	}

	// The interaction is already acknowledged, so errors from here on have
	// to go out as a followup instead of bubbling to the error response.
	res, err := a.Backup().Recall(context.Background(), newSessionGuildOps(a), i.GuildID, userIDs, roleID)
	if err != nil {
		a.Log().Error("Error recalling members",
			slog.String(logging.KeyGuild, i.GuildID),
			slog.String(logging.KeyError, err.Error()),
		)
		return followupEphemeral(a, i, messages.ErrUserErrorProcessing)
	}

	return followupEphemeral(a, i, fmt.Sprintf("Recall finished. Recalled: %d, Failed: %d.", res.Recalled, res.Failed))
}

// backupCountHandler counts the backed up members.
func backupCountHandler(a IApp, i *discordgo.InteractionCreate) error {
	count, err := a.Backup().Count()
	if err != nil {
		return fmt.Errorf("error counting backed up members: %w", err)
	}

	return respondEphemeralEmbed(a, i, &discordgo.MessageEmbed{
		Title:       "Member Backup",
		Description: fmt.Sprintf("There are **%d** backed up members.", count),
		Color:       0x5865f2,
	})
}
