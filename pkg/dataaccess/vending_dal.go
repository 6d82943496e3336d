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

const vendingDalName = "vending_dal"

type IVendingDal interface {
	// SaveMachine saves a vending machine.
	SaveMachine(vm *entities.VendingMachine) error

	// GetMachine gets a vending machine by ID.
	GetMachine(guildID, vmID string) (*entities.VendingMachine, error)

	// GetMachineByName gets a vending machine by its admin-facing name.
	GetMachineByName(guildID, name string) (*entities.VendingMachine, error)

	// MutateMachine runs fn against the machine under the record's lock. fn
	// reports whether the machine changed.
	MutateMachine(guildID, vmID string, fn func(vm *entities.VendingMachine) (bool, error)) (*entities.VendingMachine, error)

	// DeleteMachine deletes a vending machine.
	DeleteMachine(guildID, vmID string) error

	// ListMachines lists every machine owned by a guild.
	ListMachines(guildID string) ([]*entities.VendingMachine, error)
}

type vendingDal struct {
	// l is the logger.
	l *slog.Logger

	// store is the record store.
	store *Store
}

// NewVendingDal creates a new vending machine data access layer.
func NewVendingDal(l *slog.Logger, store *Store) IVendingDal {
	return &vendingDal{
		l:     l.With(slog.String(logging.KeyDal, vendingDalName)),
		store: store,
	}
}

func machineKey(guildID, vmID string) string {
	return path.Join("vending", guildID, vmID)
}

func (d *vendingDal) SaveMachine(vm *entities.VendingMachine) error {
	monitoring.StoreTotalRequests.WithLabelValues(vendingDalName, "save_machine").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(vendingDalName, "save_machine"))
	defer t.ObserveDuration()

	if err := vm.Validate(); err != nil {
		return fmt.Errorf("invalid vending machine: %w", err)
	}

	if err := d.store.Save(machineKey(vm.GuildID, vm.VMID), vm); err != nil {
		return fmt.Errorf("error saving vending machine: %w", err)
	}
	return nil
}

func (d *vendingDal) GetMachine(guildID, vmID string) (*entities.VendingMachine, error) {
	monitoring.StoreTotalRequests.WithLabelValues(vendingDalName, "get_machine").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(vendingDalName, "get_machine"))
	defer t.ObserveDuration()

	vm := new(entities.VendingMachine)
	if err := d.store.Load(machineKey(guildID, vmID), vm); err != nil {
		return nil, fmt.Errorf("error getting vending machine: %w", err)
	}

	if err := vm.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vending machine: %w", err)
	}
	return vm, nil
}

func (d *vendingDal) GetMachineByName(guildID, name string) (*entities.VendingMachine, error) {
	monitoring.StoreTotalRequests.WithLabelValues(vendingDalName, "get_machine_by_name").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(vendingDalName, "get_machine_by_name"))
	defer t.ObserveDuration()

	machines, err := d.ListMachines(guildID)
	if err != nil {
		return nil, err
	}

	for _, vm := range machines {
		if vm.Name == name {
			return vm, nil
		}
	}
	return nil, ErrNotExists
}

func (d *vendingDal) MutateMachine(guildID, vmID string, fn func(vm *entities.VendingMachine) (bool, error)) (*entities.VendingMachine, error) {
	monitoring.StoreTotalRequests.WithLabelValues(vendingDalName, "mutate_machine").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(vendingDalName, "mutate_machine"))
	defer t.ObserveDuration()

	vm := new(entities.VendingMachine)
	err := d.store.Mutate(machineKey(guildID, vmID), vm, func() (bool, error) {
		if err := vm.Validate(); err != nil {
			return false, fmt.Errorf("invalid vending machine: %w", err)
		}
		return fn(vm)
	})
	if err != nil {
		return nil, fmt.Errorf("error mutating vending machine: %w", err)
	}
	return vm, nil
}

func (d *vendingDal) DeleteMachine(guildID, vmID string) error {
	monitoring.StoreTotalRequests.WithLabelValues(vendingDalName, "delete_machine").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(vendingDalName, "delete_machine"))
	defer t.ObserveDuration()

	if err := d.store.Delete(machineKey(guildID, vmID)); err != nil {
		return fmt.Errorf("error deleting vending machine: %w", err)
	}
	return nil
}

func (d *vendingDal) ListMachines(guildID string) ([]*entities.VendingMachine, error) {
	monitoring.StoreTotalRequests.WithLabelValues(vendingDalName, "list_machines").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(vendingDalName, "list_machines"))
	defer t.ObserveDuration()

	keys, err := d.store.List(path.Join("vending", guildID))
	if err != nil {
		return nil, fmt.Errorf("error listing vending machines: %w", err)
	}

	machines := make([]*entities.VendingMachine, 0, len(keys))
	for _, key := range keys {
		vm := new(entities.VendingMachine)
		if err := d.store.Load(key, vm); err != nil {
			if errors.Is(err, ErrNotExists) {
				continue
			}
			return nil, fmt.Errorf("error getting vending machine: %w", err)
		}
		machines = append(machines, vm)
	}
	return machines, nil
}
