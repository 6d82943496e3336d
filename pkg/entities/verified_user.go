package entities

import "errors"

// VerifiedUser is a user that completed the OAuth2 verification flow. The
// stored access token is reused as-is for re-invites; there is no refresh
// exchange, so the token eventually expires with no renewal path.
type VerifiedUser struct {
	// UserID is the ID of the verified user.
	UserID string `json:"user_id"`

	// AccessToken is the OAuth2 access token granted on verification. A
	// record without one can still be stored; recalling it fails when the
	// user has to be re-added to the guild.
	AccessToken string `json:"access_token"`

	// RefreshToken is the OAuth2 refresh token granted on verification.
	RefreshToken string `json:"refresh_token"`

	// GuildID is the ID of the guild that the user verified in. Updated on
	// every recall.
	GuildID string `json:"guild_id"`

	// RoleID is the ID of the role granted on verification, if any.
	RoleID string `json:"role_id"`
}

// Validate reports whether the user was loaded with all of its required
// fields populated.
func (u *VerifiedUser) Validate() error {
	if u.UserID == "" {
		return errors.New("verified user has no user id")
	}
	return nil
}

// BackupSettings is the per-guild configuration for the verification flow.
type BackupSettings struct {
	// GuildID is the ID of the guild that the settings belong to.
	GuildID string `json:"guild_id"`

	// RoleID is the ID of the role granted to users on verification.
	RoleID string `json:"role_id"`
}
