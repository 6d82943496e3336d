package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/taka-vending/hanbaiki/pkg/dataaccess"
	"github.com/taka-vending/hanbaiki/pkg/entities"
	"github.com/taka-vending/hanbaiki/pkg/logging"
	"github.com/taka-vending/hanbaiki/pkg/tickets"
)

const (
	// ClaimTicketButtonID is the ID for the claim ticket button.
	ClaimTicketButtonID = "claim_ticket_button"

	// CloseTicketButtonID is the ID for the close ticket button.
	CloseTicketButtonID = "close_ticket_button"

	// CloseConfirmButtonID is the ID for the close confirmation button.
	CloseConfirmButtonID = "close_confirm_button"

	// CloseCancelButtonID is the ID for the close cancellation button.
	CloseCancelButtonID = "close_cancel_button"

	// UnclaimSelectID is the ID for the unclaim handler select menu.
	UnclaimSelectID = "unclaim_select"

	// UnclaimConfirmButtonID is the ID prefix for the unclaim confirmation
	// button. The selected handler ID is appended to it.
	UnclaimConfirmButtonID = "unclaim_confirm_"

	// UnclaimCancelButtonID is the ID for the unclaim cancellation button.
	UnclaimCancelButtonID = "unclaim_cancel_button"

	// DismissButtonID is the ID for the generic dismiss button.
	DismissButtonID = "dismiss_button"
)

const (
	// ClaimEmoji is the emoji that will be used for the claim button. (Ticket)
	ClaimEmoji = "\U0001F3AB"

	// CloseEmoji is the emoji that will be used for the close button. (Padlock)
	CloseEmoji = "\U0001F510"
)

const (
	// TicketCmdName is the command for controlling tickets.
	TicketCmdName = "ticket"

	// UnclaimCmdName is the sub command for removing a handler from a ticket.
	UnclaimCmdName = "unclaim"

	// CloseCmdName is the sub command for closing a ticket.
	CloseCmdName = "close"
)

// ticketCmd is the command for controlling tickets.
var ticketCmd = &discordgo.ApplicationCommand{
	Name:        TicketCmdName,
	Type:        discordgo.ChatApplicationCommand,
	Description: "This is the command for controlling tickets.",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        UnclaimCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "This removes a handler from the ticket in this channel.",
		},
		{
			Name:        CloseCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "This closes the ticket in this channel.",
		},
	},
}

// ticketCmdController is the controller for the ticket command.
func ticketCmdController(a IApp, i *discordgo.InteractionCreate) (commandProcessor, error) {
	sub, _ := subCommand(i)
	switch sub {
	case UnclaimCmdName:
		return unclaimCmdHandler, nil
	case CloseCmdName:
		return closeRequestHandler, nil
	default:
		return nil, fmt.Errorf("unknown sub command %s", sub)
	}
}

// staffRole returns the configured staff role for the guild, if any.
func staffRole(a IApp, guildID string) (string, error) {
	settings, err := a.Panels().GetPanel(guildID)
	if err != nil {
		if errors.Is(err, dataaccess.ErrNotExists) {
			return "", nil
		}
		return "", err
	}
	return settings.StaffRoleID, nil
}

// claimTicketHandler is the processor for the claim ticket button. Claiming
// again moves the handler to the tail of the handler list; the last handler
// to touch the ticket is the one named in the channel.
func claimTicketHandler(a IApp, i *discordgo.InteractionCreate) error {
	roleID, err := staffRole(a, i.GuildID)
	if err != nil {
		return fmt.Errorf("error getting staff role: %w", err)
	}

	if !isStaff(i, roleID) {
		return respondEphemeral(a, i, "You need the staff role to claim tickets.")
	}

	ticket, err := a.Tickets().Claim(i.GuildID, i.ChannelID, i.Member.User.ID, displayName(i.Member))
	if err != nil {
		if errors.Is(err, tickets.ErrNotFound) {
			return respondEphemeral(a, i, "This channel is not a ticket.")
		}
		return fmt.Errorf("error claiming ticket: %w", err)
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("<@%s> is now handling this ticket. [%s]", i.Member.User.ID, ticket.Name()),
		},
	})
}

// unclaimCmdHandler starts the unclaim flow with an ephemeral select menu of
// the ticket's distinct handlers.
func unclaimCmdHandler(a IApp, i *discordgo.InteractionCreate) error {
	roleID, err := staffRole(a, i.GuildID)
	if err != nil {
		return fmt.Errorf("error getting staff role: %w", err)
	}

	if !isStaff(i, roleID) {
		return respondEphemeral(a, i, "You need the staff role to unclaim tickets.")
	}

	ticket, err := a.Tickets().Get(i.GuildID, i.ChannelID)
	if err != nil {
		if errors.Is(err, tickets.ErrNotFound) {
			return respondEphemeral(a, i, "This channel is not a ticket.")
		}
		return fmt.Errorf("error getting ticket: %w", err)
	}

	if len(ticket.HandlerIDs) == 0 {
		return respondEphemeral(a, i, "This ticket has no handlers to remove.")
	}

	options := make([]discordgo.SelectMenuOption, 0, len(ticket.HandlerIDs))
	seen := make(map[string]struct{}, len(ticket.HandlerIDs))
	for _, handlerID := range ticket.HandlerIDs {
		if _, ok := seen[handlerID]; ok {
			continue
		}
		seen[handlerID] = struct{}{}
		options = append(options, discordgo.SelectMenuOption{
			Label: handlerLabel(a, i.GuildID, handlerID),
			Value: handlerID,
		})
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags:   discordgo.MessageFlagsEphemeral,
			Content: "Select the handler to remove from this ticket.",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.SelectMenu{
							CustomID: UnclaimSelectID,
							Options:  options,
						},
					},
				},
			},
		},
	})
}

// handlerLabel resolves a handler ID to a display name for the select menu,
// falling back to the raw ID when the member lookup fails.
func handlerLabel(a IApp, guildID, handlerID string) string {
	member, err := a.Session().GuildMember(guildID, handlerID)
	if err != nil {
		a.Log().Debug("Error resolving handler member",
			slog.String(logging.KeyUser, handlerID),
			slog.String(logging.KeyError, err.Error()),
		)
		return handlerID
	}
	return displayName(member)
}

// unclaimSelectHandler is the processor for the unclaim select menu. It swaps
// the menu for a confirm/cancel prompt carrying the selected handler ID.
func unclaimSelectHandler(a IApp, i *discordgo.InteractionCreate) error {
	values := i.MessageComponentData().Values
	if len(values) != 1 {
		return respondEphemeral(a, i, "Select exactly one handler.")
	}
	handlerID := values[0]

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Flags:   discordgo.MessageFlagsEphemeral,
			Content: fmt.Sprintf("Remove <@%s> from this ticket?", handlerID),
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Label:    "Yes",
							Style:    discordgo.DangerButton,
							CustomID: UnclaimConfirmButtonID + handlerID,
						},
						discordgo.Button{
							Label:    "No",
							Style:    discordgo.SecondaryButton,
							CustomID: UnclaimCancelButtonID,
						},
					},
				},
			},
		},
	})
}

// unclaimConfirmHandler is the processor for the unclaim confirmation button.
// The handler ID rides on the custom ID.
func unclaimConfirmHandler(a IApp, i *discordgo.InteractionCreate) error {
	handlerID := strings.TrimPrefix(i.MessageComponentData().CustomID, UnclaimConfirmButtonID)

	ticket, err := a.Tickets().RemoveHandler(i.GuildID, i.ChannelID, handlerID)
	if err != nil {
		switch {
		case errors.Is(err, tickets.ErrNotFound):
			return respondUpdate(a, i, "This channel is not a ticket.")
		case errors.Is(err, tickets.ErrNotHandler):
			return respondUpdate(a, i, fmt.Sprintf("<@%s> is not a handler of this ticket.", handlerID))
		default:
			return fmt.Errorf("error removing handler: %w", err)
		}
	}

	return respondUpdate(a, i, fmt.Sprintf("Removed <@%s> from this ticket. [%s]", handlerID, ticket.Name()))
}

// canCloseTicket reports whether the member may close the ticket: the
// opener, a holder of the staff role or a guild administrator.
func canCloseTicket(i *discordgo.InteractionCreate, ticket *entities.Ticket, staffRoleID string) bool {
	if i.Member != nil && i.Member.User != nil && i.Member.User.ID == ticket.OpenerID {
		return true
	}
	return isStaff(i, staffRoleID)
}

// closeRequestHandler asks for confirmation before closing the ticket in the
// channel. Both the close button and the close sub command land here.
func closeRequestHandler(a IApp, i *discordgo.InteractionCreate) error {
	ticket, err := a.Tickets().Get(i.GuildID, i.ChannelID)
	if err != nil {
		if errors.Is(err, tickets.ErrNotFound) {
			return respondEphemeral(a, i, "This channel is not a ticket.")
		}
		return fmt.Errorf("error getting ticket: %w", err)
	}

	roleID, err := staffRole(a, i.GuildID)
	if err != nil {
		return fmt.Errorf("error getting staff role: %w", err)
	}
	if !canCloseTicket(i, ticket, roleID) {
		return respondEphemeral(a, i, "Only the ticket opener or the staff can close tickets.")
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags:   discordgo.MessageFlagsEphemeral,
			Content: "Close this ticket? The channel will be deleted.",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Label:    "Yes",
							Style:    discordgo.DangerButton,
							CustomID: CloseConfirmButtonID,
						},
						discordgo.Button{
							Label:    "No",
							Style:    discordgo.SecondaryButton,
							CustomID: CloseCancelButtonID,
						},
					},
				},
			},
		},
	})
}

// closeConfirmHandler is the processor for the close confirmation button. The
// ticket record is deleted immediately; the channel follows after the grace
// period.
func closeConfirmHandler(a IApp, i *discordgo.InteractionCreate) error {
	if err := respondUpdate(a, i, "Closing this ticket."); err != nil {
		return fmt.Errorf("error responding to interaction: %w", err)
	}

	if _, err := a.Session().ChannelMessageSend(i.ChannelID,
		fmt.Sprintf("Ticket closed by <@%s>. This channel will be deleted in %d seconds.",
			i.Member.User.ID, int(closeGracePeriod.Seconds()))); err != nil {
		a.Log().Warn("Error announcing ticket close", slog.String(logging.KeyError, err.Error()))
	}

	guildID, channelID := i.GuildID, i.ChannelID
	go func() {
		if err := a.Tickets().Close(guildID, channelID); err != nil && !errors.Is(err, tickets.ErrNotFound) {
			a.Log().Error("Error closing ticket",
				slog.String(logging.KeyChannel, channelID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	}()
	return nil
}

// dismissHandler is the processor for every cancellation button.
func dismissHandler(a IApp, i *discordgo.InteractionCreate) error {
	return respondUpdate(a, i, "Cancelled.")
}

// respondUpdate replaces the component message with plain content and drops
// its components.
func respondUpdate(a IApp, i *discordgo.InteractionCreate, content string) error {
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: []discordgo.MessageComponent{},
		},
	})
}
