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

const ticketDalName = "ticket_dal"

type ITicketDal interface {
	// SaveTicket saves a ticket.
	SaveTicket(ticket *entities.Ticket) error

	// GetTicket gets a ticket by channel.
	GetTicket(guildID, channelID string) (*entities.Ticket, error)

	// GetOpenTicketByOpener gets the open ticket for the given opener, if
	// any.
	GetOpenTicketByOpener(guildID, openerID string) (*entities.Ticket, error)

	// MutateTicket runs fn against the ticket under the record's lock. fn
	// reports whether the ticket changed.
	MutateTicket(guildID, channelID string, fn func(t *entities.Ticket) (bool, error)) (*entities.Ticket, error)

	// DeleteTicket deletes a ticket.
	DeleteTicket(guildID, channelID string) error
}

type ticketDal struct {
	// l is the logger.
	l *slog.Logger

	// store is the record store.
	store *Store
}

// NewTicketDal creates a new ticket data access layer.
func NewTicketDal(l *slog.Logger, store *Store) ITicketDal {
	return &ticketDal{
		l:     l.With(slog.String(logging.KeyDal, ticketDalName)),
		store: store,
	}
}

func ticketKey(guildID, channelID string) string {
	return path.Join("tickets", guildID, channelID)
}

func (d *ticketDal) SaveTicket(ticket *entities.Ticket) error {
	monitoring.StoreTotalRequests.WithLabelValues(ticketDalName, "save_ticket").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(ticketDalName, "save_ticket"))
	defer t.ObserveDuration()

	if err := ticket.Validate(); err != nil {
		return fmt.Errorf("invalid ticket: %w", err)
	}

	if err := d.store.Save(ticketKey(ticket.GuildID, ticket.ChannelID), ticket); err != nil {
		return fmt.Errorf("error saving ticket: %w", err)
	}
	return nil
}

func (d *ticketDal) GetTicket(guildID, channelID string) (*entities.Ticket, error) {
	monitoring.StoreTotalRequests.WithLabelValues(ticketDalName, "get_ticket").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(ticketDalName, "get_ticket"))
	defer t.ObserveDuration()

	ticket := new(entities.Ticket)
	if err := d.store.Load(ticketKey(guildID, channelID), ticket); err != nil {
		return nil, fmt.Errorf("error getting ticket: %w", err)
	}

	if err := ticket.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ticket: %w", err)
	}
	return ticket, nil
}

func (d *ticketDal) GetOpenTicketByOpener(guildID, openerID string) (*entities.Ticket, error) {
	monitoring.StoreTotalRequests.WithLabelValues(ticketDalName, "get_open_ticket_by_opener").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(ticketDalName, "get_open_ticket_by_opener"))
	defer t.ObserveDuration()

	keys, err := d.store.List(path.Join("tickets", guildID))
	if err != nil {
		return nil, fmt.Errorf("error listing tickets: %w", err)
	}

	for _, key := range keys {
		ticket := new(entities.Ticket)
		if err := d.store.Load(key, ticket); err != nil {
			if errors.Is(err, ErrNotExists) {
				// Deleted between the listing and the load.
				continue
			}
			return nil, fmt.Errorf("error getting ticket: %w", err)
		}

		if ticket.OpenerID == openerID {
			return ticket, nil
		}
	}
	return nil, ErrNotExists
}

func (d *ticketDal) MutateTicket(guildID, channelID string, fn func(t *entities.Ticket) (bool, error)) (*entities.Ticket, error) {
	monitoring.StoreTotalRequests.WithLabelValues(ticketDalName, "mutate_ticket").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(ticketDalName, "mutate_ticket"))
	defer t.ObserveDuration()

	ticket := new(entities.Ticket)
	err := d.store.Mutate(ticketKey(guildID, channelID), ticket, func() (bool, error) {
		if err := ticket.Validate(); err != nil {
			return false, fmt.Errorf("invalid ticket: %w", err)
		}
		return fn(ticket)
	})
	if err != nil {
		return nil, fmt.Errorf("error mutating ticket: %w", err)
	}
	return ticket, nil
}

func (d *ticketDal) DeleteTicket(guildID, channelID string) error {
	monitoring.StoreTotalRequests.WithLabelValues(ticketDalName, "delete_ticket").Inc()
	t := prometheus.NewTimer(monitoring.StoreLatency.WithLabelValues(ticketDalName, "delete_ticket"))
	defer t.ObserveDuration()

	if err := d.store.Delete(ticketKey(guildID, channelID)); err != nil {
		return fmt.Errorf("error deleting ticket: %w", err)
	}
	return nil
}
