package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/taka-vending/hanbaiki/cmd/bot/config"
	"github.com/taka-vending/hanbaiki/cmd/bot/monitoring"
	"github.com/taka-vending/hanbaiki/pkg/backup"
	"github.com/taka-vending/hanbaiki/pkg/dataaccess"
	"github.com/taka-vending/hanbaiki/pkg/logging"
	"github.com/taka-vending/hanbaiki/pkg/request"
	"github.com/taka-vending/hanbaiki/pkg/tickets"
	"github.com/taka-vending/hanbaiki/pkg/vending"
	"golang.org/x/time/rate"
)

// closeGracePeriod is how long a closing ticket channel stays up after the
// close is announced.
const closeGracePeriod = 5 * time.Second

// recallRate caps the bulk-recall operations per second.
const recallRate = rate.Limit(2)

// IApp is the interface for the application.
type IApp interface {
	// Session returns the discord session.
	Session() *discordgo.Session

	// Log returns the logger.
	Log() *slog.Logger

	// Tickets returns the ticket lifecycle manager.
	Tickets() *tickets.Manager

	// Vending returns the vending machine manager.
	Vending() *vending.Manager

	// Backup returns the verification registry.
	Backup() *backup.Registry

	// Panels returns the panel settings data access layer.
	Panels() dataaccess.IPanelDal

	// Notifications returns the notification config data access layer.
	Notifications() dataaccess.INotificationDal

	// Whitelist returns the guild whitelist data access layer.
	Whitelist() dataaccess.IWhitelistDal
}

type App struct {
	// l is the logger.
	l *slog.Logger

	// r is the router for the application.
	r *mux.Router

	// svr is the server for the application.
	svr *http.Server

	// s is the discord session.
	s *discordgo.Session

	// eventNotifier is the channel for notifying of events.
	eventNotifier chan any

	// store is the record store.
	store *dataaccess.Store

	// ticketMgr is the ticket lifecycle manager.
	ticketMgr *tickets.Manager

	// vendingMgr is the vending machine manager.
	vendingMgr *vending.Manager

	// registry is the verification registry.
	registry *backup.Registry

	// panels is the panel settings data access layer.
	panels dataaccess.IPanelDal

	// notifications is the notification config data access layer.
	notifications dataaccess.INotificationDal

	// whitelist is the guild whitelist data access layer.
	whitelist dataaccess.IWhitelistDal

	// registeredCommands are the created slash commands per guild,
	// remembered for the shutdown cleanup.
	registeredCommands map[string][]*discordgo.ApplicationCommand
}

// NewApp creates a new instance of App.
func NewApp(l *slog.Logger, r *mux.Router) *App {
	return &App{
		l:                  l,
		r:                  r,
		registeredCommands: make(map[string][]*discordgo.ApplicationCommand),
	}
}

func (a *App) Run() error {
	// Set up the record store and everything layered on it.
	if err := a.setupStores(); err != nil {
		return fmt.Errorf("error setting up record store: %w", err)
	}

	// Register bot.
	if err := a.RegisterBot(); err != nil {
		return fmt.Errorf("error registering bot: %w", err)
	}

	a.s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		a.l.Info(fmt.Sprintf("Logged in as %s#%s", r.User.Username, r.User.Discriminator))
	})

	if err := a.RegisterDiscordHandlers(); err != nil {
		return fmt.Errorf("error registering discord handlers: %w", err)
	}

	// Start event listener.
	go a.eventListener()

	// Open websocket.
	if err := a.s.Open(); err != nil {
		return fmt.Errorf("error opening connection to Discord: %w", err)
	}

	// Register slash commands.
	if err := a.registerSlashCommands(); err != nil {
		return fmt.Errorf("error registering slash commands: %w", err)
	}

	a.l.Info("Bot is now running.")

	a.generateServer()
	a.setupRoutes()
	a.runServer()

	// Register listener for shutdown signal.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	// Process shutdown signal.
	for sig := range c {
		a.l.Info("Received shutdown signal", slog.String("signal", sig.String()))
		if err := a.ShutdownHook(); err != nil {
			a.l.Error("Error shutting down application", slog.String(logging.KeyError, err.Error()))
		}
		os.Exit(0)
	}
	return nil
}

// setupStores creates the record store, the data access layers and the
// managers. The store is owned by the app instance; nothing here is a
// package-level global, so tests can build their own instances.
func (a *App) setupStores() error {
	store, err := dataaccess.NewStore(config.DataDir)
	if err != nil {
		return err
	}
	a.store = store

	a.panels = dataaccess.NewPanelDal(a.l, store)
	a.notifications = dataaccess.NewNotificationDal(a.l, store)
	a.whitelist = dataaccess.NewWhitelistDal(a.l, store)

	a.ticketMgr = tickets.NewManager(a.l, dataaccess.NewTicketDal(a.l, store), newSessionChannelOps(a), closeGracePeriod)
	a.vendingMgr = vending.NewManager(a.l, dataaccess.NewVendingDal(a.l, store))
	a.registry = backup.NewRegistry(a.l, dataaccess.NewVerifiedDal(a.l, store), recallRate)
	return nil
}

func (a *App) ShutdownHook() error {
	// Reset the total number of guilds to 0.
	monitoring.TotalDiscordGuilds.Set(0)

	// Unregister slash commands.
	if err := a.unregisterSlashCommands(); err != nil {
		return fmt.Errorf("error unregistering slash commands: %w", err)
	}

	// Close the connection to Discord.
	if err := a.s.Close(); err != nil {
		return fmt.Errorf("error closing connection to Discord: %w", err)
	}
	return nil
}

func (a *App) RegisterBot() error {
	// Default the number of guilds to 0.
	monitoring.TotalDiscordGuilds.Set(0)

	dg, err := discordgo.New("Bot " + config.BotToken)
	if err != nil {
		return fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsAll)

	if a.eventNotifier == nil {
		// Create event notifier. This is used to observe events. It is buffered to prevent blocking.
		a.eventNotifier = make(chan any, 100)
	}

	dg.SetEventNotifier(a.eventNotifier)

	a.s = dg
	return nil
}

func (a *App) runServer() {
	go func() {
		a.l.Info("Starting monitoring server")
		if err := a.svr.ListenAndServe(); err != nil {
			a.l.Error("Error starting monitoring server", slog.String(logging.KeyError, err.Error()))
			a.l.Warn("Monitoring server will not be available")
		}
	}()
}

func (a *App) setupRoutes() {
	// PathMetrics is the path for metrics.
	a.r.HandleFunc(PathMetrics, promhttp.Handler().ServeHTTP).Methods(http.MethodGet)

	// PathHealth is the path for health check.
	a.r.HandleFunc(PathHealth, middlewareHttp(a.healthCheck(), a)).Methods(http.MethodGet)

	// PathAuth is the OAuth2 callback for the backup verification flow.
	a.r.HandleFunc(PathAuth, middlewareHttp(a.oauthCallback(), a)).Methods(http.MethodGet)

	// NotFoundHandler is the handler for 404.
	a.r.NotFoundHandler = request.NotFoundHandler(a.l)

	// MethodNotAllowedHandler is the handler for 405.
	a.r.MethodNotAllowedHandler = request.MethodNotAllowedHandler(a.l)
}

func (a *App) generateServer() {
	a.svr = &http.Server{
		Addr:    ":" + config.MonitoringPort,
		Handler: a.r,
	}
}

func (a *App) GetJoinedGuilds() ([]*discordgo.UserGuild, error) {
	guilds, err := a.s.UserGuilds(0, "", "")
	if err != nil {
		return nil, fmt.Errorf("error getting guilds: %w", err)
	}
	return guilds, nil
}

func (a *App) RegisterDiscordHandlers() error {
	// Bot joined guild.
	a.s.AddHandler(guildJoinedHandler(a))

	// Bot left guild.
	a.s.AddHandler(guildLeaveHandler(a))

	// Owner whitelist commands arrive as plain messages.
	a.s.AddHandler(whitelistMessageHandler(a))

	// Interaction create handler.
	a.s.AddHandler(interactionHandler(a,
		// Slash Controllers
		map[string]commandController{
			panelCmd.Name:   panelCmdController,
			ticketCmd.Name:  ticketCmdController,
			vendingCmd.Name: vendingCmdController,
			notifyCmd.Name:  notifyCmdController,
			backupCmd.Name:  backupCmdController,
			slotCmd.Name:    slotCmdController,
			helpCmd.Name:    helpCmdController,
		},
		// Component Controllers
		map[string]commandProcessor{
			OpenTicketButtonID:      openTicketHandler,
			ClaimTicketButtonID:     claimTicketHandler,
			CloseTicketButtonID:     closeRequestHandler,
			UnclaimSelectID:         unclaimSelectHandler,
			UnclaimConfirmButtonID:  unclaimConfirmHandler,
			UnclaimCancelButtonID:   dismissHandler,
			CloseConfirmButtonID:    closeConfirmHandler,
			CloseCancelButtonID:     dismissHandler,
			DismissButtonID:         dismissHandler,
			VendingSelectIDPrefix:   vendingSelectHandler,
			VendingPurchaseIDPrefix: vendingPurchaseHandler,
			HelpPrevButtonID:        helpPageHandler,
			HelpNextButtonID:        helpPageHandler,
		}))
	return nil
}

func (a *App) eventListener() {
	for e := range a.eventNotifier {
		switch t := e.(type) {
		case *discordgo.Event:
			if t.Type != "" {
				monitoring.TotalDiscordEvents.WithLabelValues(t.Type).Inc()
			} else {
				// If there is no type, then use the operation name.
				monitoring.TotalDiscordEvents.WithLabelValues(strings.ToUpper(t.Operation.String())).Inc()
			}
		default:
			a.l.Error("Unknown event type", slog.String("type", fmt.Sprintf("%T", e)))
			monitoring.TotalDiscordEvents.WithLabelValues("UNKNOWN").Inc()
		}
	}
}

// commands are the slash commands registered in every joined guild.
var commands = []*discordgo.ApplicationCommand{
	panelCmd,
	ticketCmd,
	vendingCmd,
	notifyCmd,
	backupCmd,
	slotCmd,
	helpCmd,
}

func (a *App) registerSlashCommands() error {
	// Get all guilds the bot is in.
	guilds, err := a.GetJoinedGuilds()
	if err != nil {
		return fmt.Errorf("error getting guilds: %w", err)
	}

	// Register slash commands for each guild.
	for _, g := range guilds {
		for _, cmd := range commands {
			created, err := a.Session().ApplicationCommandCreate(config.ApplicationId, g.ID, cmd)
			if err != nil {
				return fmt.Errorf("error creating %s command for guild %s: %w", cmd.Name, g.ID, err)
			}
			a.registeredCommands[g.ID] = append(a.registeredCommands[g.ID], created)
		}
	}
	return nil
}

func (a *App) unregisterSlashCommands() error {
	for guildID, cmds := range a.registeredCommands {
		for _, cmd := range cmds {
			if err := a.s.ApplicationCommandDelete(config.ApplicationId, guildID, cmd.ID); err != nil {
				return fmt.Errorf("error deleting %s command for guild %s: %w", cmd.Name, guildID, err)
			}
		}
	}
	return nil
}

func (a *App) Session() *discordgo.Session {
	return a.s
}

func (a *App) Log() *slog.Logger {
	return a.l
}

func (a *App) Tickets() *tickets.Manager {
	return a.ticketMgr
}

func (a *App) Vending() *vending.Manager {
	return a.vendingMgr
}

func (a *App) Backup() *backup.Registry {
	return a.registry
}

func (a *App) Panels() dataaccess.IPanelDal {
	return a.panels
}

func (a *App) Notifications() dataaccess.INotificationDal {
	return a.notifications
}

func (a *App) Whitelist() dataaccess.IWhitelistDal {
	return a.whitelist
}
