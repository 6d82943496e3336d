package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Jacobbrewer1/discordgo"
)

// ticketMemberPermissions are the permissions granted to a member on a
// ticket channel; ticketDeniedPermissions are denied alongside, matching
// the overwrites the channel is created with.
const (
	ticketMemberPermissions = discordgo.PermissionAllText
	ticketDeniedPermissions = discordgo.PermissionMentionEveryone
)

// sessionChannelOps performs ticket channel operations through the live
// discord session.
type sessionChannelOps struct {
	a IApp
}

func newSessionChannelOps(a IApp) *sessionChannelOps {
	return &sessionChannelOps{a: a}
}

func (o *sessionChannelOps) Rename(channelID, name string) error {
	if _, err := o.a.Session().ChannelEditComplex(channelID, &discordgo.ChannelEdit{
		Name: name,
	}); err != nil {
		return fmt.Errorf("error renaming channel %s: %w", channelID, err)
	}
	return nil
}

func (o *sessionChannelOps) GrantMember(channelID, userID string) error {
	if err := o.a.Session().ChannelPermissionSet(channelID, userID, discordgo.PermissionOverwriteTypeMember,
		ticketMemberPermissions, ticketDeniedPermissions); err != nil {
		return fmt.Errorf("error granting member %s on channel %s: %w", userID, channelID, err)
	}
	return nil
}

func (o *sessionChannelOps) RevokeMember(channelID, userID string) error {
	if err := o.a.Session().ChannelPermissionDelete(channelID, userID); err != nil {
		return fmt.Errorf("error revoking member %s on channel %s: %w", userID, channelID, err)
	}
	return nil
}

func (o *sessionChannelOps) Delete(channelID string) error {
	if _, err := o.a.Session().ChannelDelete(channelID); err != nil {
		return fmt.Errorf("error deleting channel %s: %w", channelID, err)
	}
	return nil
}

// sessionGuildOps performs guild membership operations through the live
// discord session.
type sessionGuildOps struct {
	a IApp
}

func newSessionGuildOps(a IApp) *sessionGuildOps {
	return &sessionGuildOps{a: a}
}

func (o *sessionGuildOps) IsMember(guildID, userID string) (bool, error) {
	if _, err := o.a.Session().GuildMember(guildID, userID); err != nil {
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("error getting member %s in guild %s: %w", userID, guildID, err)
	}
	return true, nil
}

func (o *sessionGuildOps) AddRole(guildID, userID, roleID string) error {
	if err := o.a.Session().GuildMemberRoleAdd(guildID, userID, roleID); err != nil {
		return fmt.Errorf("error adding role %s to member %s in guild %s: %w", roleID, userID, guildID, err)
	}
	return nil
}

func (o *sessionGuildOps) AddMember(guildID, userID, accessToken string, roleIDs []string) error {
	if err := o.a.Session().GuildMemberAdd(guildID, userID, &discordgo.GuildMemberAddParams{
		AccessToken: accessToken,
		Roles:       roleIDs,
	}); err != nil {
		return fmt.Errorf("error adding member %s to guild %s: %w", userID, guildID, err)
	}
	return nil
}
