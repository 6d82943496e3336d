package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Jacobbrewer1/discordgo"
)

const (
	// HelpCmdName is the command for browsing the feature overview.
	HelpCmdName = "help"

	// HelpPrevButtonID is the ID prefix for the previous page button. The
	// current page index is appended to it.
	HelpPrevButtonID = "help_prev_"

	// HelpNextButtonID is the ID prefix for the next page button. The
	// current page index is appended to it.
	HelpNextButtonID = "help_next_"
)

// helpCmd is the command for browsing the feature overview.
var helpCmd = &discordgo.ApplicationCommand{
	Name:        HelpCmdName,
	Type:        discordgo.ChatApplicationCommand,
	Description: "This shows every feature of the bot, one page at a time.",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        "page",
			Type:        discordgo.ApplicationCommandOptionInteger,
			Description: "The page to open on.",
			Required:    false,
		},
	},
}

// helpCmdController is the controller for the help command.
func helpCmdController(_ IApp, _ *discordgo.InteractionCreate) (commandProcessor, error) {
	return helpCmdHandler, nil
}

// helpPages are the feature overview pages, one embed per feature area.
func helpPages() []*discordgo.MessageEmbed {
	pages := []*discordgo.MessageEmbed{
		{
			Title:       "Tickets",
			Description: "Support channels opened from the panel, one per member.",
			Color:       0x5865f2,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "/panel set", Value: "Configures the ticket panel and posts it in the current channel."},
				{Name: "/ticket unclaim", Value: "Removes a handler from the ticket in this channel."},
				{Name: "/ticket close", Value: "Closes the ticket in this channel."},
			},
		},
		{
			Title:       "Vending Machines",
			Description: "Machines selling popped-stock products from a panel.",
			Color:       0x57f287,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "/vending create", Value: "Creates a vending machine."},
				{Name: "/vending add-product", Value: "Adds a product to a machine."},
				{Name: "/vending add-stock", Value: "Adds stock items to a product."},
				{Name: "/vending set-infinite", Value: "Makes a product sell the same item forever."},
				{Name: "/vending post", Value: "Posts the machine panel in the current channel."},
				{Name: "/vending remove-product, /vending delete", Value: "Removes a product or the whole machine."},
			},
		},
		{
			Title:       "Member Backup",
			Description: "OAuth2 verification that lets the bot recall members later.",
			Color:       0xfaa61a,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "/backup verify", Value: "Posts the verification panel."},
				{Name: "/backup call", Value: "Recalls backed up members into this server."},
				{Name: "/backup count", Value: "Counts the backed up members."},
			},
		},
		{
			Title:       "Utilities",
			Description: "Everything else the bot does.",
			Color:       0xeb459e,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "/notify channel", Value: "Sets the channel purchase notifications go to."},
				{Name: "/slot create", Value: "Creates a member's own channel for a week, a month or forever."},
				{Name: "/help", Value: "Shows this overview."},
			},
		},
	}

	for idx, p := range pages {
		p.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Page %d of %d", idx+1, len(pages)),
		}
	}
	return pages
}

// clampPage clamps a zero-based page index into the pages.
func clampPage(idx, pages int) int {
	if idx < 0 {
		return 0
	}
	if idx >= pages {
		return pages - 1
	}
	return idx
}

// helpComponents builds the pager buttons for the page, disabling whichever
// direction has nowhere to go.
func helpComponents(idx, pages int) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Previous",
					Style:    discordgo.SecondaryButton,
					CustomID: HelpPrevButtonID + strconv.Itoa(idx),
					Disabled: idx == 0,
				},
				discordgo.Button{
					Label:    "Next",
					Style:    discordgo.PrimaryButton,
					CustomID: HelpNextButtonID + strconv.Itoa(idx),
					Disabled: idx == pages-1,
				},
			},
		},
	}
}

// helpCmdHandler shows the feature overview starting at the requested page.
func helpCmdHandler(a IApp, i *discordgo.InteractionCreate) error {
	pages := helpPages()

	idx := 0
	if opt, ok := optionMap(i.ApplicationCommandData().Options)["page"]; ok {
		idx = clampPage(int(opt.IntValue())-1, len(pages))
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags:      discordgo.MessageFlagsEphemeral,
			Embeds:     []*discordgo.MessageEmbed{pages[idx]},
			Components: helpComponents(idx, len(pages)),
		},
	})
}

// helpPageHandler is the processor for both pager buttons. The current page
// index rides on the custom ID.
func helpPageHandler(a IApp, i *discordgo.InteractionCreate) error {
	customID := i.MessageComponentData().CustomID
	pages := helpPages()

	var idx int
	switch {
	case strings.HasPrefix(customID, HelpPrevButtonID):
		cur, err := strconv.Atoi(strings.TrimPrefix(customID, HelpPrevButtonID))
		if err != nil {
			return fmt.Errorf("error parsing help page %q: %w", customID, err)
		}
		idx = clampPage(cur-1, len(pages))
	case strings.HasPrefix(customID, HelpNextButtonID):
		cur, err := strconv.Atoi(strings.TrimPrefix(customID, HelpNextButtonID))
		if err != nil {
			return fmt.Errorf("error parsing help page %q: %w", customID, err)
		}
		idx = clampPage(cur+1, len(pages))
	default:
		return fmt.Errorf("unknown help pager button %q", customID)
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{pages[idx]},
			Components: helpComponents(idx, len(pages)),
		},
	})
}
