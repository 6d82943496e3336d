package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/taka-vending/hanbaiki/pkg/dataaccess"
	"github.com/taka-vending/hanbaiki/pkg/entities"
	"github.com/taka-vending/hanbaiki/pkg/logging"
	"github.com/taka-vending/hanbaiki/pkg/tickets"
)

const (
	// PanelCmdName is the command for managing the ticket panel.
	PanelCmdName = "panel"

	// PanelSetCmdName is the sub command for configuring and posting the
	// ticket panel.
	PanelSetCmdName = "set"

	// OpenTicketButtonID is the ID for the open ticket button on the panel.
	OpenTicketButtonID = "open_ticket_button"
)

// panelCmd is the command for managing the ticket panel.
var panelCmd = &discordgo.ApplicationCommand{
	Name:        PanelCmdName,
	Type:        discordgo.ChatApplicationCommand,
	Description: "This is the command for managing the ticket panel.",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        PanelSetCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "This configures the ticket panel and posts it in the current channel.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "category",
					Type:        discordgo.ApplicationCommandOptionChannel,
					Description: "The category that ticket channels get created under.",
					ChannelTypes: []discordgo.ChannelType{
						discordgo.ChannelTypeGuildCategory,
					},
					Required: true,
				},
				{
					Name:        "staff-role",
					Type:        discordgo.ApplicationCommandOptionRole,
					Description: "The role that can see and claim tickets.",
					Required:    true,
				},
				{
					Name:        "welcome-message",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The message sent into every new ticket channel.",
					Required:    true,
				},
				{
					Name:        "button-label",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The label for the open ticket button.",
					Required:    false,
				},
			},
		},
	},
}

// panelCmdController is the controller for the panel command.
func panelCmdController(a IApp, i *discordgo.InteractionCreate) (commandProcessor, error) {
	if !isAdmin(i) {
		if err := respondEphemeral(a, i, "You need to be an administrator to manage the ticket panel."); err != nil {
			return nil, fmt.Errorf("error responding to interaction: %w", err)
		}
		return nil, nil
	}

	sub, _ := subCommand(i)
	switch sub {
	case PanelSetCmdName:
		return panelSetHandler, nil
	default:
		return nil, fmt.Errorf("unknown sub command %s", sub)
	}
}

// panelSetHandler saves the panel settings and posts the panel message with
// the open ticket button in the channel the command was executed in.
func panelSetHandler(a IApp, i *discordgo.InteractionCreate) error {
	_, opts := subCommand(i)
	om := optionMap(opts)

	settings := &entities.PanelSettings{
		GuildID:        i.GuildID,
		CategoryID:     om["category"].ChannelValue(nil).ID,
		StaffRoleID:    om["staff-role"].RoleValue(nil, i.GuildID).ID,
		WelcomeMessage: om["welcome-message"].StringValue(),
		PanelChannelID: i.ChannelID,
	}
	if opt, ok := om["button-label"]; ok {
		settings.ButtonLabel = opt.StringValue()
	}

	// Post the panel message.
	msg, err := a.Session().ChannelMessageSendComplex(i.ChannelID, &discordgo.MessageSend{
		Embed: &discordgo.MessageEmbed{
			Title:       "Support Tickets",
			Description: "Need help? Click the button below to open a ticket with the staff.",
			Color:       0x5865f2,
		},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    settings.Label(),
						Style:    discordgo.PrimaryButton,
						CustomID: OpenTicketButtonID,
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("error sending panel message: %w", err)
	}
	settings.PanelMessageID = msg.ID

	if err := a.Panels().SavePanel(settings); err != nil {
		return fmt.Errorf("error saving panel settings: %w", err)
	}

	return respondEphemeral(a, i, "Ticket panel has been posted.")
}

// openTicketHandler is the processor for the open ticket button. One open
// ticket per user per guild; the record store is the authority, not the
// channel list.
func openTicketHandler(a IApp, i *discordgo.InteractionCreate) error {
	settings, err := a.Panels().GetPanel(i.GuildID)
	if err != nil {
		if errors.Is(err, dataaccess.ErrNotExists) {
			return respondEphemeral(a, i, "The ticket panel has not been configured for this server.")
		}
		return fmt.Errorf("error getting panel settings: %w", err)
	}

	existing, err := a.Tickets().OpenTicketFor(i.GuildID, i.Member.User.ID)
	if err != nil {
		return fmt.Errorf("error checking for open ticket: %w", err)
	} else if existing != nil {
		return respondEphemeral(a, i, fmt.Sprintf("You already have an open ticket: <#%s>", existing.ChannelID))
	}

	openerName := displayName(i.Member)

	// Create the ticket channel only the staff role and the opener can see.
	channel, err := a.Session().GuildChannelCreateComplex(i.GuildID, discordgo.GuildChannelCreateData{
		Name:  fmt.Sprintf("ticket-%s", entities.SanitizeChannelName(openerName)),
		Type:  discordgo.ChannelTypeGuildText,
		Topic: fmt.Sprintf("Ticket opened by %s", openerName),
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			// Deny @everyone from seeing the ticket.
			{
				ID:    i.GuildID,
				Type:  discordgo.PermissionOverwriteTypeRole,
				Allow: 0,
				Deny:  discordgo.PermissionAll,
			},
			// The opener can see the ticket.
			{
				ID:    i.Member.User.ID,
				Type:  discordgo.PermissionOverwriteTypeMember,
				Allow: ticketMemberPermissions,
				Deny:  ticketDeniedPermissions,
			},
			// The staff role can see the ticket.
			{
				ID:    settings.StaffRoleID,
				Type:  discordgo.PermissionOverwriteTypeRole,
				Allow: ticketMemberPermissions,
				Deny:  ticketDeniedPermissions,
			},
		},
		ParentID: settings.CategoryID,
	})
	if err != nil {
		return fmt.Errorf("error creating ticket channel: %w", err)
	}

	ticket, err := a.Tickets().Open(i.GuildID, channel.ID, i.Member.User.ID, openerName)
	if err != nil {
		if errors.Is(err, tickets.ErrAlreadyOpen) {
			// Lost the race against a concurrent open; drop the channel again.
			if _, derr := a.Session().ChannelDelete(channel.ID); derr != nil {
				a.Log().Warn("Error deleting surplus ticket channel",
					slog.String(logging.KeyChannel, channel.ID),
					slog.String(logging.KeyError, derr.Error()),
				)
			}
			return respondEphemeral(a, i, "You already have an open ticket.")
		}
		return fmt.Errorf("error opening ticket: %w", err)
	}

	go func() {
		if err := setupTicketChannel(a, ticket, settings); err != nil {
			a.Log().Error("Error setting up ticket channel", slog.String(logging.KeyError, err.Error()))
		}
	}()

	return respondEphemeralEmbed(a, i, &discordgo.MessageEmbed{
		Title:       "Ticket Created",
		Description: fmt.Sprintf("<@%s>, your ticket has been created.", i.Member.User.ID),
		Color:       0x00ff00,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Ticket Channel",
				Value:  fmt.Sprintf("<#%s>", ticket.ChannelID),
				Inline: true,
			},
		},
	})
}

// setupTicketChannel sends the welcome message with the claim and close
// buttons into the new ticket channel and records its message ID.
func setupTicketChannel(a IApp, ticket *entities.Ticket, settings *entities.PanelSettings) error {
	msg, err := a.Session().ChannelMessageSendComplex(ticket.ChannelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("<@%s> %s", ticket.OpenerID, settings.WelcomeMessage),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    fmt.Sprintf("%s Claim", ClaimEmoji),
						Style:    discordgo.PrimaryButton,
						CustomID: ClaimTicketButtonID,
					},
					discordgo.Button{
						Label:    fmt.Sprintf("%s Close", CloseEmoji),
						Style:    discordgo.DangerButton,
						CustomID: CloseTicketButtonID,
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("error sending welcome message: %w", err)
	}

	if err := a.Session().ChannelMessagePin(ticket.ChannelID, msg.ID); err != nil {
		a.Log().Warn("Error pinning welcome message", slog.String(logging.KeyError, err.Error()))
	}

	if err := a.Tickets().SetWelcomeMessage(ticket.GuildID, ticket.ChannelID, msg.ID); err != nil {
		return fmt.Errorf("error recording welcome message: %w", err)
	}
	return nil
}
