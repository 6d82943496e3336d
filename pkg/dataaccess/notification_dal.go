package dataaccess

import (
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/taka-vending/hanbaiki/pkg/dataaccess/monitoring"
	"github.com/taka-vending/hanbaiki/pkg/entities"
	"github.com/taka-vending/hanbaiki/pkg/logging"
)

const notificationDalName = "notification_dal"

type INotificationDal interface {
	// GetConfig gets the notification config for a guild. A guild that has
	// never been configured yields an empty config, not an error.
	GetConfig(guildID string) (*entities.NotificationConfig, error)

	// SetChannel sets the purchase-notification channel for a guild.
	SetChannel(guildID, channelID string) error
}

type notificationDal struct {
	// l is the logger.
	l *slog.Logger

	// store is the record store.
	store *Store
}

// NewNotificationDal creates a new notification config data access layer.
func NewNotificationDal(l *slog.Logger, store *Store) INotificationDal {
	return &notificationDal{
		l:     l.With(slog.String(logging.KeyDal, notificationDalName)),
		store: store,
	}
}

func notificationKey(guildID string) string {
	return path.Join("notifications", guildID)
}

func (d *notificationDal) GetConfig(guildID string) (*entities.NotificationConfig, error) {
	monitoring.StoreTotalRequests.WithLabelValues(notificationDalName, "get_config").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(notificationDalName, "get_config"))
	defer t.ObserveDuration()

	cfg := new(entities.NotificationConfig)
	if err := d.store.Load(notificationKey(guildID), cfg); err != nil {
		if errors.Is(err, ErrNotExists) {
			return &entities.NotificationConfig{GuildID: guildID}, nil
		}
		return nil, fmt.Errorf("error getting notification config: %w", err)
	}
	return cfg, nil
}

func (d *notificationDal) SetChannel(guildID, channelID string) error {
	monitoring.StoreTotalRequests.WithLabelValues(notificationDalName, "set_channel").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(notificationDalName, "set_channel"))
	defer t.ObserveDuration()

	cfg := &entities.NotificationConfig{GuildID: guildID}
	err := d.store.Upsert(notificationKey(guildID), cfg, func() error {
		cfg.GuildID = guildID
		cfg.ChannelID = channelID
		return nil
	})
	if err != nil {
		return fmt.Errorf("error saving notification config: %w", err)
	}
	return nil
}
