package dataaccess

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/taka-vending/hanbaiki/pkg/dataaccess/monitoring"
	"github.com/taka-vending/hanbaiki/pkg/entities"
	"github.com/taka-vending/hanbaiki/pkg/logging"
)

const whitelistDalName = "whitelist_dal"

// whitelistKey is the key of the guild whitelist record.
const whitelistKey = "guilds"

type IWhitelistDal interface {
	// GetWhitelist gets the guild whitelist. A whitelist that has never been
	// written is empty, not an error.
	GetWhitelist() (*entities.Whitelist, error)

	// AddGuild adds a guild to the whitelist. It reports whether the guild
	// was newly added.
	AddGuild(guildID string) (bool, error)

	// RemoveGuild removes a guild from the whitelist. It reports whether the
	// guild was present.
	RemoveGuild(guildID string) (bool, error)

	// IsWhitelisted reports whether the guild is on the whitelist.
	IsWhitelisted(guildID string) (bool, error)
}

type whitelistDal struct {
	// l is the logger.
	l *slog.Logger

	// store is the record store.
	store *Store
}

// NewWhitelistDal creates a new guild whitelist data access layer.
func NewWhitelistDal(l *slog.Logger, store *Store) IWhitelistDal {
	return &whitelistDal{
		l:     l.With(slog.String(logging.KeyDal, whitelistDalName)),
		store: store,
	}
}

func (d *whitelistDal) GetWhitelist() (*entities.Whitelist, error) {
	monitoring.StoreTotalRequests.WithLabelValues(whitelistDalName, "get_whitelist").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(whitelistDalName, "get_whitelist"))
	defer t.ObserveDuration()

	wl := new(entities.Whitelist)
	if err := d.store.Load(whitelistKey, wl); err != nil {
		if errors.Is(err, ErrNotExists) {
			return wl, nil
		}
		return nil, fmt.Errorf("error getting whitelist: %w", err)
	}
	return wl, nil
}

func (d *whitelistDal) AddGuild(guildID string) (bool, error) {
	monitoring.StoreTotalRequests.WithLabelValues(whitelistDalName, "add_guild").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(whitelistDalName, "add_guild"))
	defer t.ObserveDuration()

	wl := new(entities.Whitelist)
	added := false
	err := d.store.Upsert(whitelistKey, wl, func() error {
		added = wl.Add(guildID)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("error adding guild to whitelist: %w", err)
	}
	return added, nil
}

func (d *whitelistDal) RemoveGuild(guildID string) (bool, error) {
	monitoring.StoreTotalRequests.WithLabelValues(whitelistDalName, "remove_guild").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(whitelistDalName, "remove_guild"))
	defer t.ObserveDuration()

	wl := new(entities.Whitelist)
	removed := false
	err := d.store.Upsert(whitelistKey, wl, func() error {
		removed = wl.Remove(guildID)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("error removing guild from whitelist: %w", err)
	}
	return removed, nil
}

func (d *whitelistDal) IsWhitelisted(guildID string) (bool, error) {
	monitoring.StoreTotalRequests.WithLabelValues(whitelistDalName, "is_whitelisted").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(whitelistDalName, "is_whitelisted"))
	defer t.ObserveDuration()

	wl, err := d.GetWhitelist()
	if err != nil {
		return false, err
	}
	return wl.Contains(guildID), nil
}
