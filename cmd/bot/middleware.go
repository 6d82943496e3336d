package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/taka-vending/hanbaiki/cmd/bot/monitoring"
	"github.com/taka-vending/hanbaiki/pkg/logging"
	"github.com/taka-vending/hanbaiki/pkg/messages"
	"github.com/taka-vending/hanbaiki/pkg/request"
)

// commandController resolves an interaction to the processor for its sub
// command. A controller that has already responded (e.g. a failed permission
// check) returns a nil processor and nil error.
type commandController func(a IApp, i *discordgo.InteractionCreate) (commandProcessor, error)

// commandProcessor is the processor for a slash command or a message
// component.
type commandProcessor func(a IApp, i *discordgo.InteractionCreate) error

type Controller func(w http.ResponseWriter, r *http.Request)

func middlewareHttp(handler Controller, a IApp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		cw := request.NewClientWriter(w)

		// Recover from any panics that occur in the handler.
		defer func() {
			if rec := recover(); rec != nil {
				a.Log().Error("Panic in handler",
					slog.String(logging.KeyError, fmt.Sprintf("%v", rec)),
					slog.String("stack", string(debug.Stack())),
				)
				cw.WriteHeader(http.StatusInternalServerError)
				if err := json.NewEncoder(cw).Encode(request.NewMessage(request.ErrInternalServer.Error())); err != nil {
					a.Log().Error("Error encoding response", slog.String(logging.KeyError, err.Error()))
				}
			}
		}()

		var path string
		route := mux.CurrentRoute(r)
		if route != nil { // The route may be nil if the request is not routed.
			var err error
			path, err = route.GetPathTemplate()
			if err != nil {
				// An error here is only returned if the route does not define a path.
				a.Log().Error("Error getting path template", slog.String(logging.KeyError, err.Error()))
				path = r.URL.Path // If the route does not define a path, use the URL path.
			}
		} else {
			path = r.URL.Path // If the route is nil, use the URL path.
		}

		defer func() {
			// Run the deferred function after the request has been handled, as the status code will not be available until then.
			monitoring.HttpTotalRequests.WithLabelValues(path, r.Method, fmt.Sprintf("%d", cw.StatusCode())).Inc()
			monitoring.HttpRequestDuration.WithLabelValues(path, r.Method, fmt.Sprintf("%d", cw.StatusCode())).Observe(time.Since(now).Seconds())
		}()

		handler(cw, r)
	}
}

// interactionHandler dispatches slash commands through their controllers and
// message components through the processor whose custom ID matches, exactly
// or by the longest registered prefix (component IDs may embed a machine ID
// or a product name after the prefix).
func interactionHandler(a IApp, controllers map[string]commandController, components map[string]commandProcessor) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			handleSlashCommand(a, i, controllers)
		case discordgo.InteractionMessageComponent:
			handleComponent(a, i, components)
		}
	}
}

func handleSlashCommand(a IApp, i *discordgo.InteractionCreate, controllers map[string]commandController) {
	name := i.ApplicationCommandData().Name
	a.Log().Debug("Handling interaction " + name)

	if !guildAllowed(a, i) {
		if err := respondEphemeral(a, i, messages.ErrGuildNotWhitelisted); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
		return
	}

	controller, ok := controllers[name]
	if !ok {
		a.Log().Error("No controller found for command " + name)

		if err := respondSlashError(a, i); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
		return
	}

	t := prometheus.NewTimer(monitoring.DiscordCommandDuration.WithLabelValues(name))
	defer t.ObserveDuration()

	processor, err := controller(a, i)
	if err != nil {
		a.Log().Error(fmt.Sprintf("Error getting processor for command %s", name),
			slog.String(logging.KeyError, err.Error()))

		if err := respondSlashError(a, i); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
		return
	} else if processor == nil {
		// The controller has already responded.
		return
	}

	if err := processor(a, i); err != nil {
		a.Log().Error(fmt.Sprintf("Error processing command %s", name),
			slog.String(logging.KeyError, err.Error()))

		if err := respondSlashError(a, i); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
	}
}

func handleComponent(a IApp, i *discordgo.InteractionCreate, components map[string]commandProcessor) {
	id := i.MessageComponentData().CustomID
	a.Log().Debug("Handling component " + id)

	if !guildAllowed(a, i) {
		if err := respondEphemeral(a, i, messages.ErrGuildNotWhitelisted); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
		return
	}

	processor, ok := components[id]
	if !ok {
		// Fall back to the longest registered prefix.
		best := ""
		for prefix, p := range components {
			if strings.HasPrefix(id, prefix) && len(prefix) > len(best) {
				best = prefix
				processor = p
			}
		}
		ok = best != ""
	}

	if !ok {
		a.Log().Error("No processor found for component " + id)

		if err := respondSlashError(a, i); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
		return
	}

	if err := processor(a, i); err != nil {
		a.Log().Error(fmt.Sprintf("Error processing component %s", id),
			slog.String(logging.KeyError, err.Error()))

		if err := respondSlashError(a, i); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
	}
}

// guildAllowed reports whether the interaction's guild may use the bot.
// Interactions outside a guild are refused.
func guildAllowed(a IApp, i *discordgo.InteractionCreate) bool {
	if i.GuildID == "" {
		return false
	}

	ok, err := a.Whitelist().IsWhitelisted(i.GuildID)
	if err != nil {
		a.Log().Error("Error checking whitelist",
			slog.String(logging.KeyGuild, i.GuildID),
			slog.String(logging.KeyError, err.Error()))
		return false
	}
	return ok
}
