// Package vending owns the vending machine records: machine and product
// administration plus the purchase path. Purchases run under the record
// store's per-key mutation, so a unit of stock is never sold twice.
package vending

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/taka-vending/hanbaiki/pkg/dataaccess"
	"github.com/taka-vending/hanbaiki/pkg/entities"
)

var (
	// ErrMachineExists is returned when creating a machine whose name is
	// taken in the guild.
	ErrMachineExists = errors.New("vending machine already exists")

	// ErrMachineNotFound is returned when no machine matches.
	ErrMachineNotFound = errors.New("vending machine not found")

	// ErrProductExists is returned when adding a product whose name is
	// taken on the machine.
	ErrProductExists = errors.New("product already exists")

	// ErrProductNotFound is returned when no product matches.
	ErrProductNotFound = errors.New("product not found")

	// ErrOutOfStock is returned when purchasing a product with no stock
	// left.
	ErrOutOfStock = errors.New("product is out of stock")
)

// Sale is the result of a successful purchase.
type Sale struct {
	// MachineName is the name of the machine the sale happened on.
	MachineName string

	// ProductName is the name of the purchased product.
	ProductName string

	// Price is the price paid in whole currency units.
	Price int

	// Item is the item payload handed to the buyer.
	Item string
}

// Manager owns the vending machine records for every guild.
type Manager struct {
	// l is the logger.
	l *slog.Logger

	// machines is the vending machine data access layer.
	machines dataaccess.IVendingDal
}

// NewManager creates a vending machine manager.
func NewManager(l *slog.Logger, machines dataaccess.IVendingDal) *Manager {
	return &Manager{
		l:        l,
		machines: machines,
	}
}

// Create creates an empty machine. It fails with ErrMachineExists if the
// name is taken in the guild.
func (m *Manager) Create(guildID, name string) (*entities.VendingMachine, error) {
	if _, err := m.machines.GetMachineByName(guildID, name); err == nil {
		return nil, ErrMachineExists
	} else if !errors.Is(err, dataaccess.ErrNotExists) {
		return nil, err
	}

	vm, err := entities.NewVendingMachine(guildID, name)
	if err != nil {
		return nil, fmt.Errorf("error creating vending machine: %w", err)
	}

	if err := m.machines.SaveMachine(vm); err != nil {
		return nil, err
	}
	return vm, nil
}

// Delete deletes the named machine.
func (m *Manager) Delete(guildID, name string) error {
	vm, err := m.FindByName(guildID, name)
	if err != nil {
		return err
	}
	return m.machines.DeleteMachine(guildID, vm.VMID)
}

// FindByName returns the named machine.
func (m *Manager) FindByName(guildID, name string) (*entities.VendingMachine, error) {
	vm, err := m.machines.GetMachineByName(guildID, name)
	if err != nil {
		if errors.Is(err, dataaccess.ErrNotExists) {
			return nil, ErrMachineNotFound
		}
		return nil, err
	}
	return vm, nil
}

// Get returns the machine with the given ID.
func (m *Manager) Get(guildID, vmID string) (*entities.VendingMachine, error) {
	vm, err := m.machines.GetMachine(guildID, vmID)
	if err != nil {
		if errors.Is(err, dataaccess.ErrNotExists) {
			return nil, ErrMachineNotFound
		}
		return nil, err
	}
	return vm, nil
}

// Machines returns every machine owned by the guild.
func (m *Manager) Machines(guildID string) ([]*entities.VendingMachine, error) {
	return m.machines.ListMachines(guildID)
}

// AddProduct adds an empty product slot to the named machine. It fails with
// ErrProductExists if the product name is taken.
func (m *Manager) AddProduct(guildID, vmName, productName string, price int, description string) error {
	vm, err := m.FindByName(guildID, vmName)
	if err != nil {
		return err
	}

	_, err = m.machines.MutateMachine(guildID, vm.VMID, func(vm *entities.VendingMachine) (bool, error) {
		if _, ok := vm.Products[productName]; ok {
			return false, ErrProductExists
		}
		vm.Products[productName] = &entities.Product{
			Price:       price,
			Description: description,
			Stock:       make([]string, 0),
		}
		return true, nil
	})
	return err
}

// RemoveProduct removes a product slot from the named machine.
func (m *Manager) RemoveProduct(guildID, vmName, productName string) error {
	vm, err := m.FindByName(guildID, vmName)
	if err != nil {
		return err
	}

	_, err = m.machines.MutateMachine(guildID, vm.VMID, func(vm *entities.VendingMachine) (bool, error) {
		if _, ok := vm.Products[productName]; !ok {
			return false, ErrProductNotFound
		}
		delete(vm.Products, productName)
		return true, nil
	})
	return err
}

// AddStock appends item payloads to the tail of a product's stock.
func (m *Manager) AddStock(guildID, vmName, productName string, items ...string) (int, error) {
	vm, err := m.FindByName(guildID, vmName)
	if err != nil {
		return 0, err
	}

	total := 0
	_, err = m.machines.MutateMachine(guildID, vm.VMID, func(vm *entities.VendingMachine) (bool, error) {
		product, ok := vm.Products[productName]
		if !ok {
			return false, ErrProductNotFound
		}
		product.Stock = append(product.Stock, items...)
		total = len(product.Stock)
		return true, nil
	})
	return total, err
}

// SetInfinite marks a product as infinite with the given fixed payload, or
// clears the flag when item is empty.
func (m *Manager) SetInfinite(guildID, vmName, productName, item string) error {
	vm, err := m.FindByName(guildID, vmName)
	if err != nil {
		return err
	}

	_, err = m.machines.MutateMachine(guildID, vm.VMID, func(vm *entities.VendingMachine) (bool, error) {
		product, ok := vm.Products[productName]
		if !ok {
			return false, ErrProductNotFound
		}
		product.InfiniteStock = item != ""
		product.InfiniteItem = item
		return true, nil
	})
	return err
}

// Purchase sells one unit of the product. An infinite product hands out its
// fixed payload without touching the record; a finite product pops the head
// of its stock and persists the decrement before the sale is reported.
// Delivery of the sold item is the caller's problem; a failed delivery does
// not roll the stock back.
func (m *Manager) Purchase(guildID, vmID, productName string) (*Sale, error) {
	sale := new(Sale)
	_, err := m.machines.MutateMachine(guildID, vmID, func(vm *entities.VendingMachine) (bool, error) {
		product, ok := vm.Products[productName]
		if !ok {
			return false, ErrProductNotFound
		}

		sale.MachineName = vm.Name
		sale.ProductName = productName
		sale.Price = product.Price

		if product.InfiniteStock {
			sale.Item = product.InfiniteItem
			return false, nil
		}

		if len(product.Stock) == 0 {
			return false, ErrOutOfStock
		}

		sale.Item = product.Stock[0]
		product.Stock = product.Stock[1:]
		return true, nil
	})
	if err != nil {
		if errors.Is(err, dataaccess.ErrNotExists) {
			return nil, ErrMachineNotFound
		}
		return nil, err
	}
	return sale, nil
}
