package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/taka-vending/hanbaiki/cmd/bot/config"
	"github.com/taka-vending/hanbaiki/cmd/bot/monitoring"
	"github.com/taka-vending/hanbaiki/pkg/logging"
)

const (
	// WhitelistAddCmd is the owner message command for whitelisting a guild.
	WhitelistAddCmd = "ab#agl"

	// WhitelistRemoveCmd is the owner message command for removing a guild
	// from the whitelist.
	WhitelistRemoveCmd = "ab#dgl"

	// WhitelistListCmd is the owner message command for listing the
	// whitelisted guilds.
	WhitelistListCmd = "ab#cgl"
)

func guildJoinedHandler(a IApp) func(s *discordgo.Session, g *discordgo.GuildCreate) {
	return func(_ *discordgo.Session, g *discordgo.GuildCreate) {
		a.Log().Info(fmt.Sprintf("Joined guild %s", g.Name))

		// Increment the total number of guilds.
		monitoring.TotalDiscordGuilds.Inc()
	}
}

func guildLeaveHandler(a IApp) func(s *discordgo.Session, g *discordgo.GuildDelete) {
	return func(_ *discordgo.Session, g *discordgo.GuildDelete) {
		a.Log().Info(fmt.Sprintf("Left guild %s", g.Name))

		// Decrement the total number of guilds.
		monitoring.TotalDiscordGuilds.Dec()
	}
}

// whitelistMessageHandler processes the owner's whitelist message commands.
// These are plain messages, not slash commands, so they work before the guild
// is whitelisted. Anyone but the configured owner is ignored.
func whitelistMessageHandler(a IApp) func(s *discordgo.Session, m *discordgo.MessageCreate) {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.ID != config.OwnerId || config.OwnerId == "" {
			return
		}

		fields := strings.Fields(m.Content)
		if len(fields) == 0 {
			return
		}

		var reply string
		switch fields[0] {
		case WhitelistAddCmd:
			if len(fields) != 2 {
				reply = fmt.Sprintf("Usage: %s <guild ID>", WhitelistAddCmd)
				break
			}
			added, err := a.Whitelist().AddGuild(fields[1])
			if err != nil {
				a.Log().Error("Error whitelisting guild",
					slog.String(logging.KeyGuild, fields[1]),
					slog.String(logging.KeyError, err.Error()),
				)
				reply = "Error whitelisting guild."
				break
			} else if !added {
				reply = fmt.Sprintf("Guild %s is already whitelisted.", fields[1])
				break
			}
			reply = fmt.Sprintf("Guild %s has been whitelisted.", fields[1])
		case WhitelistRemoveCmd:
			if len(fields) != 2 {
				reply = fmt.Sprintf("Usage: %s <guild ID>", WhitelistRemoveCmd)
				break
			}
			removed, err := a.Whitelist().RemoveGuild(fields[1])
			if err != nil {
				a.Log().Error("Error removing guild from whitelist",
					slog.String(logging.KeyGuild, fields[1]),
					slog.String(logging.KeyError, err.Error()),
				)
				reply = "Error removing guild from whitelist."
				break
			} else if !removed {
				reply = fmt.Sprintf("Guild %s is not whitelisted.", fields[1])
				break
			}
			reply = fmt.Sprintf("Guild %s has been removed from the whitelist.", fields[1])
		case WhitelistListCmd:
			wl, err := a.Whitelist().GetWhitelist()
			if err != nil {
				a.Log().Error("Error getting whitelist", slog.String(logging.KeyError, err.Error()))
				reply = "Error getting whitelist."
				break
			}
			if len(wl.GuildIDs) == 0 {
				reply = "The whitelist is empty."
				break
			}
			reply = "Whitelisted guilds:\n" + strings.Join(wl.GuildIDs, "\n")
		default:
			return
		}

		if _, err := s.ChannelMessageSend(m.ChannelID, reply); err != nil {
			a.Log().Warn("Error replying to whitelist command", slog.String(logging.KeyError, err.Error()))
		}
	}
}
