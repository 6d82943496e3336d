package entities

// NotificationConfig is the per-guild configuration for purchase
// notifications.
type NotificationConfig struct {
	// GuildID is the ID of the guild that the config belongs to.
	GuildID string `json:"guild_id"`

	// ChannelID is the ID of the channel that purchase notifications are
	// sent to. Empty disables notifications.
	ChannelID string `json:"notification_channel_id"`
}
