package main

import (
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/taka-vending/hanbaiki/pkg/logging"
	"github.com/taka-vending/hanbaiki/pkg/vending"
)

const (
	// NotifyCmdName is the command for configuring purchase notifications.
	NotifyCmdName = "notify"

	// NotifyChannelCmdName is the sub command for setting the notification
	// channel.
	NotifyChannelCmdName = "channel"
)

// notifyCmd is the command for configuring purchase notifications.
var notifyCmd = &discordgo.ApplicationCommand{
	Name:        NotifyCmdName,
	Type:        discordgo.ChatApplicationCommand,
	Description: "This is the command for configuring purchase notifications.",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        NotifyChannelCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "This sets the channel purchase notifications get sent to.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "channel",
					Type:        discordgo.ApplicationCommandOptionChannel,
					Description: "The channel to send purchase notifications to.",
					ChannelTypes: []discordgo.ChannelType{
						discordgo.ChannelTypeGuildText,
					},
					Required: true,
				},
			},
		},
	},
}

// notifyCmdController is the controller for the notify command.
func notifyCmdController(a IApp, i *discordgo.InteractionCreate) (commandProcessor, error) {
	if !isAdmin(i) {
		if err := respondEphemeral(a, i, "You need to be an administrator to configure notifications."); err != nil {
			return nil, fmt.Errorf("error responding to interaction: %w", err)
		}
		return nil, nil
	}

	sub, _ := subCommand(i)
	switch sub {
	case NotifyChannelCmdName:
		return notifyChannelHandler, nil
	default:
		return nil, fmt.Errorf("unknown sub command %s", sub)
	}
}

func notifyChannelHandler(a IApp, i *discordgo.InteractionCreate) error {
	_, opts := subCommand(i)
	channel := optionMap(opts)["channel"].ChannelValue(nil)

	if err := a.Notifications().SetChannel(i.GuildID, channel.ID); err != nil {
		return fmt.Errorf("error setting notification channel: %w", err)
	}

	return respondEphemeral(a, i, fmt.Sprintf("Purchase notifications will be sent to <#%s>.", channel.ID))
}

// sendPurchaseNotification announces a sale in the guild's configured
// notification channel. Best-effort; a guild without a configured channel is
// skipped silently.
func sendPurchaseNotification(a IApp, guildID, buyerID string, sale *vending.Sale) {
	cfg, err := a.Notifications().GetConfig(guildID)
	if err != nil {
		a.Log().Warn("Error getting notification config",
			slog.String(logging.KeyGuild, guildID),
			slog.String(logging.KeyError, err.Error()),
		)
		return
	}
	if cfg.ChannelID == "" {
		return
	}

	if _, err := a.Session().ChannelMessageSendEmbed(cfg.ChannelID, &discordgo.MessageEmbed{
		Title: "Purchase",
		Color: 0xfee75c,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Buyer",
				Value:  fmt.Sprintf("<@%s>", buyerID),
				Inline: true,
			},
			{
				Name:   "Machine",
				Value:  sale.MachineName,
				Inline: true,
			},
			{
				Name:   "Product",
				Value:  sale.ProductName,
				Inline: true,
			},
			{
				Name:   "Price",
				Value:  fmt.Sprintf("%d", sale.Price),
				Inline: true,
			},
		},
	}); err != nil {
		a.Log().Warn("Error sending purchase notification",
			slog.String(logging.KeyGuild, guildID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}
