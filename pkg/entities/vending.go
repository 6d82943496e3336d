package entities

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// Product is a single product slot in a vending machine.
type Product struct {
	// Price is the price of the product in whole currency units.
	Price int `json:"price"`

	// Description is the product description shown on the machine.
	Description string `json:"description"`

	// Stock is the ordered list of item payloads. A purchase pops the head.
	Stock []string `json:"stock"`

	// InfiniteStock marks the product as never running out. Stock is not
	// consulted while this is set.
	InfiniteStock bool `json:"infinite_stock"`

	// InfiniteItem is the fixed payload handed out while InfiniteStock is
	// set.
	InfiniteItem string `json:"infinite_item"`
}

// StockCount returns the display form of the remaining stock.
func (p *Product) StockCount() string {
	if p.InfiniteStock {
		return "∞"
	}
	return fmt.Sprintf("%d", len(p.Stock))
}

// VendingMachine is a named collection of products owned by one guild.
type VendingMachine struct {
	// Name is the admin-facing name of the machine, unique per guild.
	Name string `json:"name"`

	// VMID is the stable ID of the machine, embedded into component custom
	// IDs.
	VMID string `json:"vm_id"`

	// GuildID is the ID of the guild that owns the machine.
	GuildID string `json:"guild_id"`

	// Products are the product slots keyed by product name.
	Products map[string]*Product `json:"products"`
}

// NewVendingMachine creates an empty machine with a freshly derived VMID.
func NewVendingMachine(guildID, name string) (*VendingMachine, error) {
	id, err := deriveVMID(guildID, name)
	if err != nil {
		return nil, fmt.Errorf("error deriving machine id: %w", err)
	}

	return &VendingMachine{
		Name:     name,
		VMID:     id,
		GuildID:  guildID,
		Products: make(map[string]*Product),
	}, nil
}

// deriveVMID hashes the guild, the name and a random salt into a short stable
// ID.
func deriveVMID(guildID, name string) (string, error) {
	salt := make([]byte, 8)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("error reading salt: %w", err)
	}

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s_%s_%s", guildID, name, hex.EncodeToString(salt))))
	return hex.EncodeToString(sum[:])[:16], nil
}

// Validate reports whether the machine was loaded with all of its required
// fields populated.
func (v *VendingMachine) Validate() error {
	switch {
	case v.Name == "":
		return errors.New("vending machine has no name")
	case v.VMID == "":
		return errors.New("vending machine has no id")
	case v.GuildID == "":
		return errors.New("vending machine has no guild id")
	}
	if v.Products == nil {
		v.Products = make(map[string]*Product)
	}
	return nil
}
