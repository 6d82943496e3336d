// Package backup records users that completed the OAuth2 verification flow
// and recalls them later: members get the role re-granted, non-members get
// re-added to the guild with their stored access token.
package backup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taka-vending/hanbaiki/pkg/dataaccess"
	"github.com/taka-vending/hanbaiki/pkg/entities"
	"github.com/taka-vending/hanbaiki/pkg/logging"
	"golang.org/x/time/rate"
)

// GuildOps are the Discord side effects a recall needs.
type GuildOps interface {
	// IsMember reports whether the user is currently a member of the guild.
	IsMember(guildID, userID string) (bool, error)

	// AddRole grants the role to a current member.
	AddRole(guildID, userID, roleID string) error

	// AddMember re-adds a non-member to the guild using their stored OAuth2
	// access token.
	AddMember(guildID, userID, accessToken string, roleIDs []string) error
}

// RecallResult tallies one bulk recall invocation. Failed entries are not
// retried within the invocation.
type RecallResult struct {
	// Recalled is the number of users successfully processed.
	Recalled int

	// Failed is the number of users that could not be processed (missing
	// token, expired token, permission failure).
	Failed int
}

// Registry owns the verified user map.
type Registry struct {
	// l is the logger.
	l *slog.Logger

	// users is the verified user data access layer.
	users dataaccess.IVerifiedDal

	// limiter paces the guild-member re-add calls.
	limiter *rate.Limiter
}

// NewRegistry creates a verification registry. recallRate caps the recall
// operations per second.
func NewRegistry(l *slog.Logger, users dataaccess.IVerifiedDal, recallRate rate.Limit) *Registry {
	return &Registry{
		l:       l,
		users:   users,
		limiter: rate.NewLimiter(recallRate, 1),
	}
}

// Record upserts a verified user. An existing record for the user is
// overwritten.
func (r *Registry) Record(user *entities.VerifiedUser) error {
	return r.users.UpsertUser(user)
}

// Remove removes a verified user.
func (r *Registry) Remove(userID string) error {
	return r.users.RemoveUser(userID)
}

// Count counts the verified users.
func (r *Registry) Count() (int, error) {
	return r.users.CountUsers()
}

// SetRole records the role granted on verification in the guild.
func (r *Registry) SetRole(guildID, roleID string) error {
	return r.users.SaveSettings(&entities.BackupSettings{
		GuildID: guildID,
		RoleID:  roleID,
	})
}

// Role returns the role granted on verification in the guild, if configured.
func (r *Registry) Role(guildID string) (string, error) {
	settings, err := r.users.GetSettings(guildID)
	if err != nil {
		return "", err
	}
	return settings.RoleID, nil
}

// Recall processes the given users (every known user when userIDs is nil):
// current members optionally get roleID granted, non-members are re-added to
// the guild with their stored access token. Stored access tokens are used
// as-is; a missing or expired token counts as a failure. The user map is
// only snapshotted for reading; each recalled user is written back through
// the map's lock, so a verification that completes mid-recall is kept.
func (r *Registry) Recall(ctx context.Context, ops GuildOps, guildID string, userIDs []string, roleID string) (*RecallResult, error) {
	users, err := r.users.GetUsers()
	if err != nil {
		return nil, fmt.Errorf("error getting verified users: %w", err)
	}

	if userIDs == nil {
		userIDs = make([]string, 0, len(users))
		for id := range users {
			userIDs = append(userIDs, id)
		}
	}

	var roles []string
	if roleID != "" {
		roles = []string{roleID}
	}

	res := new(RecallResult)
	for _, userID := range userIDs {
		user, ok := users[userID]
		if !ok {
			res.Failed++
			continue
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return res, fmt.Errorf("error waiting for recall slot: %w", err)
		}

		if err := r.recallOne(ops, guildID, user, roleID, roles); err != nil {
			r.l.Warn("Error recalling user",
				slog.String(logging.KeyUser, userID),
				slog.String(logging.KeyGuild, guildID),
				slog.String(logging.KeyError, err.Error()),
			)
			res.Failed++
			continue
		}

		// Track where the user last got recalled to. A user removed
		// mid-recall stays removed.
		if err := r.users.MutateUser(userID, func(u *entities.VerifiedUser) {
			u.GuildID = guildID
			if roleID != "" {
				u.RoleID = roleID
			}
		}); err != nil {
			r.l.Warn("Error recording recall",
				slog.String(logging.KeyUser, userID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
		res.Recalled++
	}
	return res, nil
}

func (r *Registry) recallOne(ops GuildOps, guildID string, user *entities.VerifiedUser, roleID string, roles []string) error {
	member, err := ops.IsMember(guildID, user.UserID)
	if err != nil {
		return fmt.Errorf("error checking membership: %w", err)
	}

	if member {
		if roleID == "" {
			return nil
		}
		if err := ops.AddRole(guildID, user.UserID, roleID); err != nil {
			return fmt.Errorf("error granting role: %w", err)
		}
		return nil
	}

	if user.AccessToken == "" {
		return fmt.Errorf("no stored access token for user %s", user.UserID)
	}

	if err := ops.AddMember(guildID, user.UserID, user.AccessToken, roles); err != nil {
		return fmt.Errorf("error re-adding member: %w", err)
	}
	return nil
}
