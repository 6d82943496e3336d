package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/taka-vending/hanbaiki/cmd/bot/monitoring"
	"github.com/taka-vending/hanbaiki/pkg/entities"
	"github.com/taka-vending/hanbaiki/pkg/logging"
	"github.com/taka-vending/hanbaiki/pkg/vending"
)

const (
	// VendingCmdName is the command for managing vending machines.
	VendingCmdName = "vending"

	// VendingCreateCmdName is the sub command for creating a machine.
	VendingCreateCmdName = "create"

	// VendingDeleteCmdName is the sub command for deleting a machine.
	VendingDeleteCmdName = "delete"

	// VendingAddProductCmdName is the sub command for adding a product.
	VendingAddProductCmdName = "add-product"

	// VendingRemoveProductCmdName is the sub command for removing a product.
	VendingRemoveProductCmdName = "remove-product"

	// VendingAddStockCmdName is the sub command for stocking a product.
	VendingAddStockCmdName = "add-stock"

	// VendingSetInfiniteCmdName is the sub command for marking a product as
	// infinite.
	VendingSetInfiniteCmdName = "set-infinite"

	// VendingPostCmdName is the sub command for posting a machine panel.
	VendingPostCmdName = "post"
)

const (
	// VendingSelectIDPrefix is the ID prefix for the product select menu on a
	// machine panel. The machine ID is appended to it.
	VendingSelectIDPrefix = "vending_select_"

	// VendingPurchaseIDPrefix is the ID prefix for the purchase confirmation
	// button. The machine ID and product name are appended to it.
	VendingPurchaseIDPrefix = "vending_buy_"
)

// vendingCmd is the command for managing vending machines.
var vendingCmd = &discordgo.ApplicationCommand{
	Name:        VendingCmdName,
	Type:        discordgo.ChatApplicationCommand,
	Description: "This is the command for managing vending machines.",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        VendingCreateCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "This creates an empty vending machine.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "name",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The name of the machine.",
					Required:    true,
				},
			},
		},
		{
			Name:        VendingDeleteCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "This deletes a vending machine and everything in it.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "name",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The name of the machine.",
					Required:    true,
				},
			},
		},
		{
			Name:        VendingAddProductCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "This adds an empty product slot to a machine.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "machine",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The name of the machine.",
					Required:    true,
				},
				{
					Name:        "name",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The name of the product.",
					Required:    true,
				},
				{
					Name:        "price",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Description: "The price of the product in whole currency units.",
					Required:    true,
				},
				{
					Name:        "description",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The description of the product.",
					Required:    false,
				},
			},
		},
		{
			Name:        VendingRemoveProductCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "This removes a product slot from a machine.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "machine",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The name of the machine.",
					Required:    true,
				},
				{
					Name:        "name",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The name of the product.",
					Required:    true,
				},
			},
		},
		{
			Name:        VendingAddStockCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "This appends stock items to a product.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "machine",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The name of the machine.",
					Required:    true,
				},
				{
					Name:        "product",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The name of the product.",
					Required:    true,
				},
				{
					Name:        "items",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The item payloads, separated by commas.",
					Required:    true,
				},
			},
		},
		{
			Name:        VendingSetInfiniteCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "This marks a product as infinite with a fixed payload.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "machine",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The name of the machine.",
					Required:    true,
				},
				{
					Name:        "product",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The name of the product.",
					Required:    true,
				},
				{
					Name:        "item",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The fixed payload. Leave empty to make the product finite again.",
					Required:    false,
				},
			},
		},
		{
			Name:        VendingPostCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "This posts a machine panel in the current channel.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "name",
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The name of the machine.",
					Required:    true,
				},
			},
		},
	},
}

// vendingCmdController is the controller for the vending command. Every sub
// command is administrative; purchases come in through the panel components.
func vendingCmdController(a IApp, i *discordgo.InteractionCreate) (commandProcessor, error) {
	if !isAdmin(i) {
		if err := respondEphemeral(a, i, "You need to be an administrator to manage vending machines."); err != nil {
			return nil, fmt.Errorf("error responding to interaction: %w", err)
		}
		return nil, nil
	}

	sub, _ := subCommand(i)
	switch sub {
	case VendingCreateCmdName:
		return vendingCreateHandler, nil
	case VendingDeleteCmdName:
		return vendingDeleteHandler, nil
	case VendingAddProductCmdName:
		return vendingAddProductHandler, nil
	case VendingRemoveProductCmdName:
		return vendingRemoveProductHandler, nil
	case VendingAddStockCmdName:
		return vendingAddStockHandler, nil
	case VendingSetInfiniteCmdName:
		return vendingSetInfiniteHandler, nil
	case VendingPostCmdName:
		return vendingPostHandler, nil
	default:
		return nil, fmt.Errorf("unknown sub command %s", sub)
	}
}

func vendingCreateHandler(a IApp, i *discordgo.InteractionCreate) error {
	_, opts := subCommand(i)
	name := optionMap(opts)["name"].StringValue()

	vm, err := a.Vending().Create(i.GuildID, name)
	if err != nil {
		if errors.Is(err, vending.ErrMachineExists) {
			return respondEphemeral(a, i, fmt.Sprintf("A vending machine named **%s** already exists.", name))
		}
		return fmt.Errorf("error creating vending machine: %w", err)
	}

	return respondEphemeral(a, i, fmt.Sprintf("Vending machine **%s** has been created. [ID: %s]", vm.Name, vm.VMID))
}

func vendingDeleteHandler(a IApp, i *discordgo.InteractionCreate) error {
	_, opts := subCommand(i)
	name := optionMap(opts)["name"].StringValue()

	if err := a.Vending().Delete(i.GuildID, name); err != nil {
		if errors.Is(err, vending.ErrMachineNotFound) {
			return respondEphemeral(a, i, fmt.Sprintf("No vending machine named **%s** exists.", name))
		}
		return fmt.Errorf("error deleting vending machine: %w", err)
	}

	return respondEphemeral(a, i, fmt.Sprintf("Vending machine **%s** has been deleted.", name))
}

func vendingAddProductHandler(a IApp, i *discordgo.InteractionCreate) error {
	_, opts := subCommand(i)
	om := optionMap(opts)

	machine := om["machine"].StringValue()
	name := om["name"].StringValue()
	price := int(om["price"].IntValue())
	description := ""
	if opt, ok := om["description"]; ok {
		description = opt.StringValue()
	}

	if err := a.Vending().AddProduct(i.GuildID, machine, name, price, description); err != nil {
		switch {
		case errors.Is(err, vending.ErrMachineNotFound):
			return respondEphemeral(a, i, fmt.Sprintf("No vending machine named **%s** exists.", machine))
		case errors.Is(err, vending.ErrProductExists):
			return respondEphemeral(a, i, fmt.Sprintf("A product named **%s** already exists on **%s**.", name, machine))
		default:
			return fmt.Errorf("error adding product: %w", err)
		}
	}

	return respondEphemeral(a, i, fmt.Sprintf("Product **%s** has been added to **%s**.", name, machine))
}

func vendingRemoveProductHandler(a IApp, i *discordgo.InteractionCreate) error {
	_, opts := subCommand(i)
	om := optionMap(opts)

	machine := om["machine"].StringValue()
	name := om["name"].StringValue()

	if err := a.Vending().RemoveProduct(i.GuildID, machine, name); err != nil {
		switch {
		case errors.Is(err, vending.ErrMachineNotFound):
			return respondEphemeral(a, i, fmt.Sprintf("No vending machine named **%s** exists.", machine))
		case errors.Is(err, vending.ErrProductNotFound):
			return respondEphemeral(a, i, fmt.Sprintf("No product named **%s** exists on **%s**.", name, machine))
		default:
			return fmt.Errorf("error removing product: %w", err)
		}
	}

	return respondEphemeral(a, i, fmt.Sprintf("Product **%s** has been removed from **%s**.", name, machine))
}

func vendingAddStockHandler(a IApp, i *discordgo.InteractionCreate) error {
	_, opts := subCommand(i)
	om := optionMap(opts)

	machine := om["machine"].StringValue()
	product := om["product"].StringValue()
	items := splitStockItems(om["items"].StringValue())
	if len(items) == 0 {
		return respondEphemeral(a, i, "No stock items were provided.")
	}

	total, err := a.Vending().AddStock(i.GuildID, machine, product, items...)
	if err != nil {
		switch {
		case errors.Is(err, vending.ErrMachineNotFound):
			return respondEphemeral(a, i, fmt.Sprintf("No vending machine named **%s** exists.", machine))
		case errors.Is(err, vending.ErrProductNotFound):
			return respondEphemeral(a, i, fmt.Sprintf("No product named **%s** exists on **%s**.", product, machine))
		default:
			return fmt.Errorf("error adding stock: %w", err)
		}
	}

	return respondEphemeral(a, i, fmt.Sprintf("Added %d item(s) to **%s**. Stock is now %d.", len(items), product, total))
}

// splitStockItems splits the raw items option on commas and newlines,
// dropping empty entries.
func splitStockItems(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n'
	})
	items := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			items = append(items, f)
		}
	}
	return items
}

func vendingSetInfiniteHandler(a IApp, i *discordgo.InteractionCreate) error {
	_, opts := subCommand(i)
	om := optionMap(opts)

	machine := om["machine"].StringValue()
	product := om["product"].StringValue()
	item := ""
	if opt, ok := om["item"]; ok {
		item = opt.StringValue()
	}

	if err := a.Vending().SetInfinite(i.GuildID, machine, product, item); err != nil {
		switch {
		case errors.Is(err, vending.ErrMachineNotFound):
			return respondEphemeral(a, i, fmt.Sprintf("No vending machine named **%s** exists.", machine))
		case errors.Is(err, vending.ErrProductNotFound):
			return respondEphemeral(a, i, fmt.Sprintf("No product named **%s** exists on **%s**.", product, machine))
		default:
			return fmt.Errorf("error setting infinite stock: %w", err)
		}
	}

	if item == "" {
		return respondEphemeral(a, i, fmt.Sprintf("Product **%s** is finite again.", product))
	}
	return respondEphemeral(a, i, fmt.Sprintf("Product **%s** now has infinite stock.", product))
}

func vendingPostHandler(a IApp, i *discordgo.InteractionCreate) error {
	_, opts := subCommand(i)
	name := optionMap(opts)["name"].StringValue()

	vm, err := a.Vending().FindByName(i.GuildID, name)
	if err != nil {
		if errors.Is(err, vending.ErrMachineNotFound) {
			return respondEphemeral(a, i, fmt.Sprintf("No vending machine named **%s** exists.", name))
		}
		return fmt.Errorf("error getting vending machine: %w", err)
	}

	if len(vm.Products) == 0 {
		return respondEphemeral(a, i, fmt.Sprintf("**%s** has no products to sell yet.", vm.Name))
	}

	if _, err := a.Session().ChannelMessageSendComplex(i.ChannelID, machinePanel(vm)); err != nil {
		return fmt.Errorf("error sending machine panel: %w", err)
	}

	return respondEphemeral(a, i, fmt.Sprintf("Panel for **%s** has been posted.", vm.Name))
}

// machinePanel renders a machine as a public embed with a product select
// menu.
func machinePanel(vm *entities.VendingMachine) *discordgo.MessageSend {
	fields := make([]*discordgo.MessageEmbedField, 0, len(vm.Products))
	options := make([]discordgo.SelectMenuOption, 0, len(vm.Products))
	for name, product := range vm.Products {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   name,
			Value:  fmt.Sprintf("Price: %d\nStock: %s", product.Price, product.StockCount()),
			Inline: true,
		})
		options = append(options, discordgo.SelectMenuOption{
			Label:       name,
			Value:       name,
			Description: product.Description,
		})
	}

	return &discordgo.MessageSend{
		Embed: &discordgo.MessageEmbed{
			Title:       vm.Name,
			Description: "Pick a product from the menu below to buy it.",
			Color:       0xfee75c,
			Fields:      fields,
		},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.SelectMenu{
						CustomID:    VendingSelectIDPrefix + vm.VMID,
						Placeholder: "Select a product",
						Options:     options,
					},
				},
			},
		},
	}
}

// vendingSelectHandler is the processor for the product select menu on a
// machine panel. It answers with a private purchase confirmation so the
// shared panel stays untouched.
func vendingSelectHandler(a IApp, i *discordgo.InteractionCreate) error {
	data := i.MessageComponentData()
	vmID := strings.TrimPrefix(data.CustomID, VendingSelectIDPrefix)
	if len(data.Values) != 1 {
		return respondEphemeral(a, i, "Select exactly one product.")
	}
	product := data.Values[0]

	vm, err := a.Vending().Get(i.GuildID, vmID)
	if err != nil {
		if errors.Is(err, vending.ErrMachineNotFound) {
			return respondEphemeral(a, i, "This vending machine no longer exists.")
		}
		return fmt.Errorf("error getting vending machine: %w", err)
	}

	p, ok := vm.Products[product]
	if !ok {
		return respondEphemeral(a, i, fmt.Sprintf("**%s** is no longer sold on **%s**.", product, vm.Name))
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags:   discordgo.MessageFlagsEphemeral,
			Content: fmt.Sprintf("Buy **%s** from **%s** for %d? [Stock: %s]", product, vm.Name, p.Price, p.StockCount()),
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Label:    "Buy",
							Style:    discordgo.SuccessButton,
							CustomID: VendingPurchaseIDPrefix + vmID + "_" + product,
						},
						discordgo.Button{
							Label:    "Cancel",
							Style:    discordgo.SecondaryButton,
							CustomID: DismissButtonID,
						},
					},
				},
			},
		},
	})
}

// vendingPurchaseHandler is the processor for the purchase confirmation
// button. The machine ID and product name ride on the custom ID. The stock
// decrement is persisted before delivery; a failed DM does not roll it back.
func vendingPurchaseHandler(a IApp, i *discordgo.InteractionCreate) error {
	raw := strings.TrimPrefix(i.MessageComponentData().CustomID, VendingPurchaseIDPrefix)
	vmID, product, found := strings.Cut(raw, "_")
	if !found {
		return fmt.Errorf("malformed purchase custom ID %q", raw)
	}

	sale, err := a.Vending().Purchase(i.GuildID, vmID, product)
	if err != nil {
		switch {
		case errors.Is(err, vending.ErrMachineNotFound):
			monitoring.TotalPurchases.WithLabelValues("machine_missing").Inc()
			return respondUpdate(a, i, "This vending machine no longer exists.")
		case errors.Is(err, vending.ErrProductNotFound):
			monitoring.TotalPurchases.WithLabelValues("product_missing").Inc()
			return respondUpdate(a, i, fmt.Sprintf("**%s** is no longer sold here.", product))
		case errors.Is(err, vending.ErrOutOfStock):
			monitoring.TotalPurchases.WithLabelValues("out_of_stock").Inc()
			return respondUpdate(a, i, fmt.Sprintf("**%s** is out of stock.", product))
		default:
			monitoring.TotalPurchases.WithLabelValues("error").Inc()
			return fmt.Errorf("error purchasing product: %w", err)
		}
	}
	monitoring.TotalPurchases.WithLabelValues("success").Inc()

	// Deliver the item payload by DM.
	delivered := deliverItem(a, i.Member.User.ID, sale)

	// Announce the sale in the configured notification channel.
	sendPurchaseNotification(a, i.GuildID, i.Member.User.ID, sale)

	if !delivered {
		return respondUpdate(a, i,
			fmt.Sprintf("You bought **%s** for %d, but your DMs are closed. Your item: ||%s||",
				sale.ProductName, sale.Price, sale.Item))
	}
	return respondUpdate(a, i, fmt.Sprintf("You bought **%s** for %d. Check your DMs for the item.", sale.ProductName, sale.Price))
}

// deliverItem DMs the sold item payload to the buyer. Delivery is
// best-effort; the sale stands either way.
func deliverItem(a IApp, userID string, sale *vending.Sale) bool {
	dm, err := a.Session().UserChannelCreate(userID)
	if err != nil {
		a.Log().Warn("Error creating DM channel",
			slog.String(logging.KeyUser, userID),
			slog.String(logging.KeyError, err.Error()),
		)
		return false
	}

	if _, err := a.Session().ChannelMessageSendEmbed(dm.ID, &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Your purchase from %s", sale.MachineName),
		Description: fmt.Sprintf("**%s**\n```%s```", sale.ProductName, sale.Item),
		Color:       0x00ff00,
	}); err != nil {
		a.Log().Warn("Error delivering item by DM",
			slog.String(logging.KeyUser, userID),
			slog.String(logging.KeyError, err.Error()),
		)
		return false
	}
	return true
}
