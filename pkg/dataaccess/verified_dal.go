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

const verifiedDalName = "verified_dal"

// verifiedUsersKey is the key of the whole-map verified users record. The
// map is read fully and rewritten fully on every mutation.
const verifiedUsersKey = "verified_users"

type IVerifiedDal interface {
	// GetUsers gets the full verified user map. A map that has never been
	// written is empty, not an error.
	GetUsers() (map[string]*entities.VerifiedUser, error)

	// UpsertUser adds or replaces one user in the map.
	UpsertUser(user *entities.VerifiedUser) error

	// RemoveUser removes one user from the map.
	RemoveUser(userID string) error

	// MutateUser applies fn to one user in the map while holding the map's
	// lock, so a concurrent upsert of another user is never lost. A user
	// that is not in the map returns ErrNotExists.
	MutateUser(userID string, fn func(user *entities.VerifiedUser)) error

	// CountUsers counts the verified users.
	CountUsers() (int, error)

	// GetSettings gets the per-guild verification settings.
	GetSettings(guildID string) (*entities.BackupSettings, error)

	// SaveSettings saves the per-guild verification settings.
	SaveSettings(settings *entities.BackupSettings) error
}

type verifiedDal struct {
	// l is the logger.
	l *slog.Logger

	// store is the record store.
	store *Store
}

// NewVerifiedDal creates a new verified user data access layer.
func NewVerifiedDal(l *slog.Logger, store *Store) IVerifiedDal {
	return &verifiedDal{
		l:     l.With(slog.String(logging.KeyDal, verifiedDalName)),
		store: store,
	}
}

func backupSettingsKey(guildID string) string {
	return path.Join("backup", guildID)
}

func (d *verifiedDal) GetUsers() (map[string]*entities.VerifiedUser, error) {
	monitoring.StoreTotalRequests.WithLabelValues(verifiedDalName, "get_users").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(verifiedDalName, "get_users"))
	defer t.ObserveDuration()

	users := make(map[string]*entities.VerifiedUser)
	if err := d.store.Load(verifiedUsersKey, &users); err != nil {
		if errors.Is(err, ErrNotExists) {
			return users, nil
		}
		return nil, fmt.Errorf("error getting verified users: %w", err)
	}
	return users, nil
}

func (d *verifiedDal) UpsertUser(user *entities.VerifiedUser) error {
	monitoring.StoreTotalRequests.WithLabelValues(verifiedDalName, "upsert_user").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(verifiedDalName, "upsert_user"))
	defer t.ObserveDuration()

	if err := user.Validate(); err != nil {
		return fmt.Errorf("invalid verified user: %w", err)
	}

	users := make(map[string]*entities.VerifiedUser)
	err := d.store.Upsert(verifiedUsersKey, &users, func() error {
		users[user.UserID] = user
		return nil
	})
	if err != nil {
		return fmt.Errorf("error upserting verified user: %w", err)
	}
	return nil
}

func (d *verifiedDal) RemoveUser(userID string) error {
	monitoring.StoreTotalRequests.WithLabelValues(verifiedDalName, "remove_user").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(verifiedDalName, "remove_user"))
	defer t.ObserveDuration()

	users := make(map[string]*entities.VerifiedUser)
	err := d.store.Upsert(verifiedUsersKey, &users, func() error {
		delete(users, userID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("error removing verified user: %w", err)
	}
	return nil
}

func (d *verifiedDal) MutateUser(userID string, fn func(user *entities.VerifiedUser)) error {
	monitoring.StoreTotalRequests.WithLabelValues(verifiedDalName, "mutate_user").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(verifiedDalName, "mutate_user"))
	defer t.ObserveDuration()

	users := make(map[string]*entities.VerifiedUser)
	err := d.store.Mutate(verifiedUsersKey, &users, func() (bool, error) {
		user, ok := users[userID]
		if !ok {
			return false, ErrNotExists
		}
		fn(user)
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("error mutating verified user %s: %w", userID, err)
	}
	return nil
}

func (d *verifiedDal) CountUsers() (int, error) {
	monitoring.StoreTotalRequests.WithLabelValues(verifiedDalName, "count_users").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(verifiedDalName, "count_users"))
	defer t.ObserveDuration()

	users, err := d.GetUsers()
	if err != nil {
		return 0, err
	}
	return len(users), nil
}

func (d *verifiedDal) GetSettings(guildID string) (*entities.BackupSettings, error) {
	monitoring.StoreTotalRequests.WithLabelValues(verifiedDalName, "get_settings").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(verifiedDalName, "get_settings"))
	defer t.ObserveDuration()

	settings := new(entities.BackupSettings)
	if err := d.store.Load(backupSettingsKey(guildID), settings); err != nil {
		if errors.Is(err, ErrNotExists) {
			return &entities.BackupSettings{GuildID: guildID}, nil
		}
		return nil, fmt.Errorf("error getting backup settings: %w", err)
	}
	return settings, nil
}

func (d *verifiedDal) SaveSettings(settings *entities.BackupSettings) error {
	monitoring.StoreTotalRequests.WithLabelValues(verifiedDalName, "save_settings").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(verifiedDalName, "save_settings"))
	defer t.ObserveDuration()

	if settings.GuildID == "" {
		return errors.New("backup settings have no guild id")
	}

	if err := d.store.Save(backupSettingsKey(settings.GuildID), settings); err != nil {
		return fmt.Errorf("error saving backup settings: %w", err)
	}
	return nil
}
