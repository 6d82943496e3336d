package messages

const (
	// ErrUserErrorProcessing is the generic user-facing error.
	ErrUserErrorProcessing = "Something went wrong processing your request. Please try again."

	// ErrUserNotAdmin is shown when a non-administrator runs an admin
	// command.
	ErrUserNotAdmin = "You must be an administrator to use this command."

	// ErrGuildNotWhitelisted is shown when a guild is not on the whitelist.
	ErrGuildNotWhitelisted = "This server is not permitted to use the bot. Ask the bot owner to enable it."
)
