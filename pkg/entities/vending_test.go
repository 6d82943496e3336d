package entities

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewVendingMachine(t *testing.T) {
	vm, err := NewVendingMachine("guild-1", "Shop")
	require.NoError(t, err)
	require.Equal(t, "Shop", vm.Name)
	require.Len(t, vm.VMID, 16)
	require.NotNil(t, vm.Products)

	// The ID carries a random salt, so two machines with the same name do not
	// collide.
	other, err := NewVendingMachine("guild-1", "Shop")
	require.NoError(t, err)
	require.NotEqual(t, vm.VMID, other.VMID)
}

func TestProduct_StockCount(t *testing.T) {
	p := &Product{Stock: []string{"a", "b"}}
	require.Equal(t, "2", p.StockCount())

	p.InfiniteStock = true
	require.Equal(t, "∞", p.StockCount())
}

func TestVendingMachine_Validate(t *testing.T) {
	vm, err := NewVendingMachine("guild-1", "Shop")
	require.NoError(t, err)
	require.NoError(t, vm.Validate())

	// Validate repairs a nil product map from an old record.
	vm.Products = nil
	require.NoError(t, vm.Validate())
	require.NotNil(t, vm.Products)

	vm.Name = ""
	require.Error(t, vm.Validate())
}
