package vending

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taka-vending/hanbaiki/pkg/dataaccess"
)

func newTestManager(t *testing.T) (*Manager, *dataaccess.Store) {
	t.Helper()
	store, err := dataaccess.NewStore(t.TempDir())
	require.NoError(t, err)

	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(l, dataaccess.NewVendingDal(l, store)), store
}

func TestManager_CreateDuplicate(t *testing.T) {
	mgr, _ := newTestManager(t)

	vm, err := mgr.Create("guild-1", "Shop")
	require.NoError(t, err)
	require.Len(t, vm.VMID, 16)

	_, err = mgr.Create("guild-1", "Shop")
	require.ErrorIs(t, err, ErrMachineExists)

	// The same name in another guild is fine.
	_, err = mgr.Create("guild-2", "Shop")
	require.NoError(t, err)
}

func TestManager_PurchaseDrainsStock(t *testing.T) {
	mgr, _ := newTestManager(t)

	vm, err := mgr.Create("guild-1", "Shop")
	require.NoError(t, err)

	require.NoError(t, mgr.AddProduct("guild-1", "Shop", "Gem Pack", 500, "a pack of gems"))

	total, err := mgr.AddStock("guild-1", "Shop", "Gem Pack", "code-A", "code-B")
	require.NoError(t, err)
	require.Equal(t, 2, total)

	// Stock pops head first.
	sale, err := mgr.Purchase("guild-1", vm.VMID, "Gem Pack")
	require.NoError(t, err)
	require.Equal(t, "code-A", sale.Item)
	require.Equal(t, 500, sale.Price)
	require.Equal(t, "Shop", sale.MachineName)

	sale, err = mgr.Purchase("guild-1", vm.VMID, "Gem Pack")
	require.NoError(t, err)
	require.Equal(t, "code-B", sale.Item)

	// The drained product stays on the machine at zero stock.
	_, err = mgr.Purchase("guild-1", vm.VMID, "Gem Pack")
	require.ErrorIs(t, err, ErrOutOfStock)

	got, err := mgr.Get("guild-1", vm.VMID)
	require.NoError(t, err)
	require.Empty(t, got.Products["Gem Pack"].Stock)
}

func TestManager_PurchaseUnknownProduct(t *testing.T) {
	mgr, _ := newTestManager(t)

	vm, err := mgr.Create("guild-1", "Shop")
	require.NoError(t, err)

	_, err = mgr.Purchase("guild-1", vm.VMID, "Nope")
	require.ErrorIs(t, err, ErrProductNotFound)

	_, err = mgr.Purchase("guild-1", "0000000000000000", "Nope")
	require.ErrorIs(t, err, ErrMachineNotFound)
}

func TestManager_InfinitePurchaseDoesNotTouchRecord(t *testing.T) {
	mgr, store := newTestManager(t)

	vm, err := mgr.Create("guild-1", "Shop")
	require.NoError(t, err)

	require.NoError(t, mgr.AddProduct("guild-1", "Shop", "Role", 100, ""))
	require.NoError(t, mgr.SetInfinite("guild-1", "Shop", "Role", "role-token"))

	path := filepath.Join(store.Dir(), "vending", "guild-1", vm.VMID+".json")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	for n := 0; n < 3; n++ {
		sale, err := mgr.Purchase("guild-1", vm.VMID, "Role")
		require.NoError(t, err)
		require.Equal(t, "role-token", sale.Item)
	}

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestManager_SetInfiniteClear(t *testing.T) {
	mgr, _ := newTestManager(t)

	vm, err := mgr.Create("guild-1", "Shop")
	require.NoError(t, err)

	require.NoError(t, mgr.AddProduct("guild-1", "Shop", "Role", 100, ""))
	require.NoError(t, mgr.SetInfinite("guild-1", "Shop", "Role", "role-token"))

	// Clearing makes the product finite again, with whatever stock it holds.
	require.NoError(t, mgr.SetInfinite("guild-1", "Shop", "Role", ""))

	_, err = mgr.Purchase("guild-1", vm.VMID, "Role")
	require.ErrorIs(t, err, ErrOutOfStock)
}

func TestManager_ConcurrentPurchaseSingleUnit(t *testing.T) {
	mgr, _ := newTestManager(t)

	vm, err := mgr.Create("guild-1", "Shop")
	require.NoError(t, err)

	require.NoError(t, mgr.AddProduct("guild-1", "Shop", "Gem Pack", 500, ""))
	_, err = mgr.AddStock("guild-1", "Shop", "Gem Pack", "only-one")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	for n := 0; n < 2; n++ {
		go func(n int) {
			defer wg.Done()
			_, errs[n] = mgr.Purchase("guild-1", vm.VMID, "Gem Pack")
		}(n)
	}
	wg.Wait()

	// Exactly one of the two concurrent purchases gets the unit.
	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			require.ErrorIs(t, err, ErrOutOfStock)
		}
	}
	require.Equal(t, 1, successes)
}

func TestManager_SurvivesRestart(t *testing.T) {
	mgr, store := newTestManager(t)

	vm, err := mgr.Create("guild-1", "Shop")
	require.NoError(t, err)
	require.NoError(t, mgr.AddProduct("guild-1", "Shop", "Gem Pack", 500, ""))
	_, err = mgr.AddStock("guild-1", "Shop", "Gem Pack", "code-A")
	require.NoError(t, err)

	// A fresh manager over the same store sees everything.
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	fresh := NewManager(l, dataaccess.NewVendingDal(l, store))

	sale, err := fresh.Purchase("guild-1", vm.VMID, "Gem Pack")
	require.NoError(t, err)
	require.Equal(t, "code-A", sale.Item)
}

func TestManager_RemoveProduct(t *testing.T) {
	mgr, _ := newTestManager(t)

	_, err := mgr.Create("guild-1", "Shop")
	require.NoError(t, err)
	require.NoError(t, mgr.AddProduct("guild-1", "Shop", "Gem Pack", 500, ""))

	require.NoError(t, mgr.RemoveProduct("guild-1", "Shop", "Gem Pack"))
	err = mgr.RemoveProduct("guild-1", "Shop", "Gem Pack")
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestManager_DeleteMachine(t *testing.T) {
	mgr, _ := newTestManager(t)

	_, err := mgr.Create("guild-1", "Shop")
	require.NoError(t, err)

	require.NoError(t, mgr.Delete("guild-1", "Shop"))
	err = mgr.Delete("guild-1", "Shop")
	require.ErrorIs(t, err, ErrMachineNotFound)

	machines, err := mgr.Machines("guild-1")
	require.NoError(t, err)
	require.Empty(t, machines)
}
