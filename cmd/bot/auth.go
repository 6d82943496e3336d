package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/taka-vending/hanbaiki/cmd/bot/config"
	"github.com/taka-vending/hanbaiki/cmd/bot/monitoring"
	"github.com/taka-vending/hanbaiki/pkg/entities"
	"github.com/taka-vending/hanbaiki/pkg/logging"
	"golang.org/x/oauth2"
)

const (
	// discordAPIMe is the endpoint for the authenticated user's identity.
	discordAPIMe = "https://discord.com/api/users/@me"

	authSuccessHTML = `<html><body><h1>Verified</h1><p>You have been verified. You can close this tab.</p></body></html>`

	authFailureHTML = `<html><body><h1>Verification failed</h1><p>Something went wrong. Please try again.</p></body></html>`
)

// discordEndpoint is the Discord OAuth2 endpoint.
var discordEndpoint = oauth2.Endpoint{
	AuthURL:  "https://discord.com/oauth2/authorize",
	TokenURL: "https://discord.com/api/oauth2/token",
}

// oauthConfig builds the OAuth2 config for the verification flow.
func oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     config.OAuthClientId,
		ClientSecret: config.OAuthClientSecret,
		RedirectURL:  config.OAuthRedirectUrl,
		Scopes:       []string{"identify", "guilds.join"},
		Endpoint:     discordEndpoint,
	}
}

// discordUser is the slice of the /users/@me response the callback needs.
type discordUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// oauthCallback completes the verification flow: it exchanges the code for a
// token, resolves the user's identity, records the user in the backup and
// grants the configured role. The token is stored as issued; it is not
// refreshed later, so a recall after it expires fails for that user.
func (a *App) oauthCallback() Controller {
	return func(w http.ResponseWriter, r *http.Request) {
		guildID := r.URL.Query().Get("state")
		code := r.URL.Query().Get("code")
		if guildID == "" || code == "" {
			a.l.Warn("Verification callback missing state or code")
			authRespond(w, http.StatusBadRequest, authFailureHTML)
			return
		}

		cfg := oauthConfig()
		token, err := cfg.Exchange(r.Context(), code)
		if err != nil {
			a.l.Error("Error exchanging verification code", slog.String(logging.KeyError, err.Error()))
			authRespond(w, http.StatusBadGateway, authFailureHTML)
			return
		}

		user, err := fetchIdentity(cfg, token, r)
		if err != nil {
			a.l.Error("Error resolving verified identity", slog.String(logging.KeyError, err.Error()))
			authRespond(w, http.StatusBadGateway, authFailureHTML)
			return
		}

		roleID, err := a.registry.Role(guildID)
		if err != nil {
			a.l.Error("Error getting verification role",
				slog.String(logging.KeyGuild, guildID),
				slog.String(logging.KeyError, err.Error()),
			)
			authRespond(w, http.StatusInternalServerError, authFailureHTML)
			return
		}

		if err := a.registry.Record(&entities.VerifiedUser{
			UserID:       user.ID,
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			GuildID:      guildID,
			RoleID:       roleID,
		}); err != nil {
			a.l.Error("Error recording verified user",
				slog.String(logging.KeyUser, user.ID),
				slog.String(logging.KeyError, err.Error()),
			)
			authRespond(w, http.StatusInternalServerError, authFailureHTML)
			return
		}

		// Grant the role to the freshly verified member. A failure here does
		// not undo the record; the user can be recalled later.
		if roleID != "" {
			if err := a.Session().GuildMemberRoleAdd(guildID, user.ID, roleID); err != nil {
				a.l.Warn("Error granting verification role",
					slog.String(logging.KeyUser, user.ID),
					slog.String(logging.KeyGuild, guildID),
					slog.String(logging.KeyError, err.Error()),
				)
			}
		}

		monitoring.TotalVerifications.Inc()
		a.l.Info("User verified",
			slog.String(logging.KeyUser, user.ID),
			slog.String(logging.KeyGuild, guildID),
		)
		authRespond(w, http.StatusOK, authSuccessHTML)
	}
}

// fetchIdentity resolves the token owner's identity through /users/@me.
func fetchIdentity(cfg *oauth2.Config, token *oauth2.Token, r *http.Request) (*discordUser, error) {
	client := cfg.Client(r.Context(), token)
	resp, err := client.Get(discordAPIMe)
	if err != nil {
		return nil, fmt.Errorf("error getting identity: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected identity response status %d", resp.StatusCode)
	}

	user := new(discordUser)
	if err := json.NewDecoder(resp.Body).Decode(user); err != nil {
		return nil, fmt.Errorf("error decoding identity: %w", err)
	}
	return user, nil
}

func authRespond(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
