package entities

import "errors"

// DefaultButtonLabel is the label used for the open-ticket button when the
// panel was configured without one.
const DefaultButtonLabel = "\U0001F4E9 Open Ticket"

// PanelSettings is the per-guild configuration for the ticket panel.
type PanelSettings struct {
	// GuildID is the ID of the guild that the panel belongs to.
	GuildID string `json:"guild_id"`

	// CategoryID is the ID of the category that ticket channels are created
	// under.
	CategoryID string `json:"category_id"`

	// StaffRoleID is the ID of the role that may claim and manage tickets.
	StaffRoleID string `json:"staff_role_id"`

	// WelcomeMessage is the message sent into a freshly opened ticket
	// channel.
	WelcomeMessage string `json:"welcome_message"`

	// ButtonLabel is the label of the open-ticket button on the panel.
	ButtonLabel string `json:"button_label"`

	// PanelChannelID is the ID of the channel that the panel was posted in.
	PanelChannelID string `json:"panel_channel_id"`

	// PanelMessageID is the ID of the posted panel message.
	PanelMessageID string `json:"panel_message_id"`
}

// Validate reports whether the settings were loaded with all of their
// required fields populated.
func (p *PanelSettings) Validate() error {
	switch {
	case p.GuildID == "":
		return errors.New("panel settings have no guild id")
	case p.StaffRoleID == "":
		return errors.New("panel settings have no staff role id")
	}
	return nil
}

// Label returns the configured button label, falling back to the default.
func (p *PanelSettings) Label() string {
	if p.ButtonLabel == "" {
		return DefaultButtonLabel
	}
	return p.ButtonLabel
}
