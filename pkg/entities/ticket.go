package entities

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/taka-vending/hanbaiki/pkg/custom"
)

// channelNameInvalid matches every rune that Discord strips from channel names.
var channelNameInvalid = regexp.MustCompile(`[^a-z0-9-]`)

// SanitizeChannelName lowers a display name into a form usable as part of a
// Discord channel name.
func SanitizeChannelName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "-")
	name = channelNameInvalid.ReplaceAllString(name, "")
	if name == "" {
		name = "user"
	}
	return name
}

// Ticket is a support ticket backed by a dedicated guild channel.
type Ticket struct {
	// ChannelID is the ID of the channel that the ticket is in.
	ChannelID string `json:"channel_id"`

	// GuildID is the ID of the guild that the ticket is in.
	GuildID string `json:"guild_id"`

	// OpenerID is the ID of the user that opened the ticket. Immutable after
	// creation.
	OpenerID string `json:"opener_id"`

	// OpenerName is the sanitized display name of the opener at open time.
	OpenerName string `json:"opener_name"`

	// HandlerIDs are the IDs of the staff members that have claimed the
	// ticket, ordered by last touch. A handler appears at most once.
	HandlerIDs []string `json:"handler_ids"`

	// HandlerName is the sanitized display name of the last handler. Used
	// for the channel rename on claim.
	HandlerName string `json:"handler_name"`

	// WelcomeMessageID is the ID of the welcome message sent into the ticket
	// channel.
	WelcomeMessageID string `json:"welcome_message_id"`

	// CreatedAt is the time that the ticket was opened.
	CreatedAt custom.Datetime `json:"created_at"`
}

// NewTicket creates a ticket for the given channel.
func NewTicket(guildID, channelID, openerID, openerName string) *Ticket {
	return &Ticket{
		ChannelID:  channelID,
		GuildID:    guildID,
		OpenerID:   openerID,
		OpenerName: SanitizeChannelName(openerName),
		HandlerIDs: make([]string, 0),
	}
}

// Validate reports whether the ticket was loaded with all of its required
// fields populated.
func (t *Ticket) Validate() error {
	switch {
	case t.ChannelID == "":
		return errors.New("ticket has no channel id")
	case t.GuildID == "":
		return errors.New("ticket has no guild id")
	case t.OpenerID == "":
		return errors.New("ticket has no opener id")
	}
	return nil
}

// Name returns the channel name for the ticket. Unclaimed tickets are named
// after the opener; claimed tickets embed the last handler's name.
func (t *Ticket) Name() string {
	if len(t.HandlerIDs) == 0 || t.HandlerName == "" {
		return fmt.Sprintf("ticket-%s", t.OpenerName)
	}
	return fmt.Sprintf("ticket-%s-%s", t.OpenerName, t.HandlerName)
}

// Claim moves the given handler to the tail of the handler list. A handler
// that is already present is removed first, so the list holds at most one
// entry per handler and its order is "last touched".
func (t *Ticket) Claim(handlerID, handlerName string) {
	t.RemoveHandler(handlerID)
	t.HandlerIDs = append(t.HandlerIDs, handlerID)
	t.HandlerName = SanitizeChannelName(handlerName)
}

// RemoveHandler removes every occurrence of the given handler from the
// handler list. It reports whether the handler was present.
func (t *Ticket) RemoveHandler(handlerID string) bool {
	removed := false
	kept := t.HandlerIDs[:0]
	for _, id := range t.HandlerIDs {
		if id == handlerID {
			removed = true
			continue
		}
		kept = append(kept, id)
	}
	t.HandlerIDs = kept
	return removed
}

// LastHandler returns the ID of the handler that touched the ticket last, or
// an empty string for an unclaimed ticket.
func (t *Ticket) LastHandler() string {
	if len(t.HandlerIDs) == 0 {
		return ""
	}
	return t.HandlerIDs[len(t.HandlerIDs)-1]
}
