package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/taka-vending/hanbaiki/pkg/entities"
)

const (
	// SlotCmdName is the command for managing slot channels.
	SlotCmdName = "slot"

	// SlotCreateCmdName is the sub command for creating a slot channel.
	SlotCreateCmdName = "create"
)

const (
	// SlotDurationWeek keeps the slot channel for a week.
	SlotDurationWeek = "1-week"

	// SlotDurationMonth keeps the slot channel for a month.
	SlotDurationMonth = "1-month"

	// SlotDurationPermanent keeps the slot channel indefinitely.
	SlotDurationPermanent = "permanent"
)

// slotCmd is the command for managing slot channels.
var slotCmd = &discordgo.ApplicationCommand{
	Name:        SlotCmdName,
	Type:        discordgo.ChatApplicationCommand,
	Description: "This is the command for managing slot channels.",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        SlotCreateCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "This creates a slot channel for a member.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "owner",
					Type:        discordgo.ApplicationCommandOptionUser,
					Description: "The member the slot channel belongs to.",
					Required:    true,
				},
				{
					Name:        "category",
					Type:        discordgo.ApplicationCommandOptionChannel,
					Description: "The category that the slot channel gets created under.",
					ChannelTypes: []discordgo.ChannelType{
						discordgo.ChannelTypeGuildCategory,
					},
					Required: true,
				},
				{
					Name:        "public",
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Description: "Whether everyone can see the slot channel.",
					Required:    true,
				},
				{
					Name:        "duration",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "How long the slot channel runs for.",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "1 week", Value: SlotDurationWeek},
						{Name: "1 month", Value: SlotDurationMonth},
						{Name: "Permanent", Value: SlotDurationPermanent},
					},
				},
				{
					Name:        "members",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "Mentions of extra members that can see the slot channel.",
					Required:    false,
				},
			},
		},
	},
}

// slotCmdController is the controller for the slot command.
func slotCmdController(a IApp, i *discordgo.InteractionCreate) (commandProcessor, error) {
	if !isAdmin(i) {
		if err := respondEphemeral(a, i, "You need to be an administrator to manage slot channels."); err != nil {
			return nil, fmt.Errorf("error responding to interaction: %w", err)
		}
		return nil, nil
	}

	sub, _ := subCommand(i)
	switch sub {
	case SlotCreateCmdName:
		return slotCreateHandler, nil
	default:
		return nil, fmt.Errorf("unknown sub command %s", sub)
	}
}

// slotChannelName builds the slot channel name. The end date rides on the
// name; nothing deletes the channel when it passes.
func slotChannelName(ownerName, duration string, now time.Time) string {
	base := fmt.Sprintf("slot-%s", entities.SanitizeChannelName(ownerName))
	switch duration {
	case SlotDurationWeek:
		return fmt.Sprintf("%s-until-%s", base, strings.ToLower(now.AddDate(0, 0, 7).Format("Jan-2")))
	case SlotDurationMonth:
		return fmt.Sprintf("%s-until-%s", base, strings.ToLower(now.AddDate(0, 0, 30).Format("Jan-2")))
	default:
		return base
	}
}

// slotCreateHandler creates the slot channel with the requested visibility
// and announces it to the owner.
func slotCreateHandler(a IApp, i *discordgo.InteractionCreate) error {
	_, opts := subCommand(i)
	om := optionMap(opts)

	ownerID := om["owner"].UserValue(nil).ID
	ownerName := handlerLabel(a, i.GuildID, ownerID)

	// Everyone is denied unless the slot is public; the owner and any extra
	// members always get in.
	everyone := &discordgo.PermissionOverwrite{
		ID:   i.GuildID,
		Type: discordgo.PermissionOverwriteTypeRole,
		Deny: discordgo.PermissionAll,
	}
	if om["public"].BoolValue() {
		everyone.Allow = ticketMemberPermissions
		everyone.Deny = ticketDeniedPermissions
	}

	overwrites := []*discordgo.PermissionOverwrite{
		everyone,
		{
			ID:    ownerID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: ticketMemberPermissions,
			Deny:  ticketDeniedPermissions,
		},
	}
	if opt, ok := om["members"]; ok {
		for _, m := range mentionRegex.FindAllStringSubmatch(opt.StringValue(), -1) {
			overwrites = append(overwrites, &discordgo.PermissionOverwrite{
				ID:    m[1],
				Type:  discordgo.PermissionOverwriteTypeMember,
				Allow: ticketMemberPermissions,
				Deny:  ticketDeniedPermissions,
			})
		}
	}

	channel, err := a.Session().GuildChannelCreateComplex(i.GuildID, discordgo.GuildChannelCreateData{
		Name:                 slotChannelName(ownerName, om["duration"].StringValue(), time.Now()),
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                fmt.Sprintf("Slot channel for %s", ownerName),
		PermissionOverwrites: overwrites,
		ParentID:             om["category"].ChannelValue(nil).ID,
	})
	if err != nil {
		return fmt.Errorf("error creating slot channel: %w", err)
	}

	if _, err := a.Session().ChannelMessageSendEmbed(channel.ID, &discordgo.MessageEmbed{
		Title:       "Slot Channel",
		Description: fmt.Sprintf("This channel belongs to <@%s>.", ownerID),
		Color:       0x00ff00,
	}); err != nil {
		return fmt.Errorf("error sending slot channel message: %w", err)
	}

	return respondEphemeral(a, i, fmt.Sprintf("Slot channel <#%s> has been created for <@%s>.", channel.ID, ownerID))
}
