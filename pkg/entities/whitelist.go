package entities

// Whitelist is the set of guilds permitted to invoke the bot's commands.
type Whitelist struct {
	// GuildIDs are the whitelisted guild IDs.
	GuildIDs []string `json:"guild_ids"`
}

// Contains reports whether the given guild is whitelisted.
func (w *Whitelist) Contains(guildID string) bool {
	for _, id := range w.GuildIDs {
		if id == guildID {
			return true
		}
	}
	return false
}

// Add adds the given guild. It reports whether the guild was newly added.
func (w *Whitelist) Add(guildID string) bool {
	if w.Contains(guildID) {
		return false
	}
	w.GuildIDs = append(w.GuildIDs, guildID)
	return true
}

// Remove removes the given guild. It reports whether the guild was present.
func (w *Whitelist) Remove(guildID string) bool {
	kept := w.GuildIDs[:0]
	removed := false
	for _, id := range w.GuildIDs {
		if id == guildID {
			removed = true
			continue
		}
		kept = append(kept, id)
	}
	w.GuildIDs = kept
	return removed
}
