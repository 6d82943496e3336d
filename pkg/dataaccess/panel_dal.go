package dataaccess

import (
	"fmt"
	"log/slog"
	"path"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/taka-vending/hanbaiki/pkg/dataaccess/monitoring"
	"github.com/taka-vending/hanbaiki/pkg/entities"
	"github.com/taka-vending/hanbaiki/pkg/logging"
)

const panelDalName = "panel_dal"

type IPanelDal interface {
	// SavePanel saves the panel settings for a guild. An existing panel is
	// overwritten.
	SavePanel(settings *entities.PanelSettings) error

	// GetPanel gets the panel settings for a guild.
	GetPanel(guildID string) (*entities.PanelSettings, error)

	// ListPanels lists the panel settings of every configured guild.
	ListPanels() ([]*entities.PanelSettings, error)
}

type panelDal struct {
	// l is the logger.
	l *slog.Logger

	// store is the record store.
	store *Store
}

// NewPanelDal creates a new panel settings data access layer.
func NewPanelDal(l *slog.Logger, store *Store) IPanelDal {
	return &panelDal{
		l:     l.With(slog.String(logging.KeyDal, panelDalName)),
		store: store,
	}
}

func panelKey(guildID string) string {
	return path.Join("panels", guildID)
}

func (d *panelDal) SavePanel(settings *entities.PanelSettings) error {
	monitoring.StoreTotalRequests.WithLabelValues(panelDalName, "save_panel").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(panelDalName, "save_panel"))
	defer t.ObserveDuration()

	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid panel settings: %w", err)
	}

	if err := d.store.Save(panelKey(settings.GuildID), settings); err != nil {
		return fmt.Errorf("error saving panel settings: %w", err)
	}
	return nil
}

func (d *panelDal) GetPanel(guildID string) (*entities.PanelSettings, error) {
	monitoring.StoreTotalRequests.WithLabelValues(panelDalName, "get_panel").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(panelDalName, "get_panel"))
	defer t.ObserveDuration()

	settings := new(entities.PanelSettings)
	if err := d.store.Load(panelKey(guildID), settings); err != nil {
		return nil, fmt.Errorf("error getting panel settings: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid panel settings: %w", err)
	}
	return settings, nil
}

func (d *panelDal) ListPanels() ([]*entities.PanelSettings, error) {
	monitoring.StoreTotalRequests.WithLabelValues(panelDalName, "list_panels").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(panelDalName, "list_panels"))
	defer t.ObserveDuration()

	keys, err := d.store.List("panels")
	if err != nil {
		return nil, fmt.Errorf("error listing panel settings: %w", err)
	}

	panels := make([]*entities.PanelSettings, 0, len(keys))
	for _, key := range keys {
		settings := new(entities.PanelSettings)
		if err := d.store.Load(key, settings); err != nil {
			return nil, fmt.Errorf("error getting panel settings: %w", err)
		}
		panels = append(panels, settings)
	}
	return panels, nil
}
