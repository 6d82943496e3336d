// Package tickets drives the ticket lifecycle: open, claim, remove handler,
// close. Discord side effects go through the ChannelOps interface so the
// lifecycle can be exercised without a gateway session.
package tickets

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taka-vending/hanbaiki/pkg/custom"
	"github.com/taka-vending/hanbaiki/pkg/dataaccess"
	"github.com/taka-vending/hanbaiki/pkg/entities"
	"github.com/taka-vending/hanbaiki/pkg/logging"
)

var (
	// ErrAlreadyOpen is returned when the opener already has an open ticket
	// in the guild.
	ErrAlreadyOpen = errors.New("opener already has an open ticket")

	// ErrNotFound is returned when no ticket exists for the channel.
	ErrNotFound = errors.New("ticket not found")

	// ErrNotHandler is returned when removing a handler that never claimed
	// the ticket.
	ErrNotHandler = errors.New("user is not a handler of the ticket")
)

// ChannelOps are the Discord side effects the lifecycle needs.
type ChannelOps interface {
	// Rename renames the ticket channel.
	Rename(channelID, name string) error

	// GrantMember grants a member explicit view/send permission on the
	// ticket channel.
	GrantMember(channelID, userID string) error

	// RevokeMember resets a member's permission overwrite on the ticket
	// channel.
	RevokeMember(channelID, userID string) error

	// Delete deletes the ticket channel.
	Delete(channelID string) error
}

// Manager owns the ticket lifecycle for every guild.
type Manager struct {
	// l is the logger.
	l *slog.Logger

	// tickets is the ticket data access layer.
	tickets dataaccess.ITicketDal

	// ops are the Discord side effects.
	ops ChannelOps

	// closeDelay is the grace period between announcing a close and
	// deleting the channel.
	closeDelay time.Duration
}

// NewManager creates a ticket lifecycle manager.
func NewManager(l *slog.Logger, tickets dataaccess.ITicketDal, ops ChannelOps, closeDelay time.Duration) *Manager {
	return &Manager{
		l:          l,
		tickets:    tickets,
		ops:        ops,
		closeDelay: closeDelay,
	}
}

// OpenTicketFor returns the opener's existing open ticket in the guild, if
// any. The record store is the authority here; channel names are not
// consulted.
func (m *Manager) OpenTicketFor(guildID, openerID string) (*entities.Ticket, error) {
	ticket, err := m.tickets.GetOpenTicketByOpener(guildID, openerID)
	if err != nil {
		if errors.Is(err, dataaccess.ErrNotExists) {
			return nil, nil
		}
		return nil, fmt.Errorf("error finding open ticket: %w", err)
	}
	return ticket, nil
}

// Open records a freshly created ticket channel. It fails with
// ErrAlreadyOpen if the opener already has an open ticket in the guild.
func (m *Manager) Open(guildID, channelID, openerID, openerName string) (*entities.Ticket, error) {
	existing, err := m.OpenTicketFor(guildID, openerID)
	if err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrAlreadyOpen
	}

	ticket := entities.NewTicket(guildID, channelID, openerID, openerName)
	ticket.CreatedAt = custom.Datetime(time.Now().UTC())

	if err := m.tickets.SaveTicket(ticket); err != nil {
		return nil, fmt.Errorf("error saving ticket: %w", err)
	}
	return ticket, nil
}

// Get returns the ticket for the channel.
func (m *Manager) Get(guildID, channelID string) (*entities.Ticket, error) {
	ticket, err := m.tickets.GetTicket(guildID, channelID)
	if err != nil {
		if errors.Is(err, dataaccess.ErrNotExists) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return ticket, nil
}

// SetWelcomeMessage records the ID of the welcome message sent into the
// ticket channel.
func (m *Manager) SetWelcomeMessage(guildID, channelID, messageID string) error {
	_, err := m.tickets.MutateTicket(guildID, channelID, func(t *entities.Ticket) (bool, error) {
		t.WelcomeMessageID = messageID
		return true, nil
	})
	if errors.Is(err, dataaccess.ErrNotExists) {
		return ErrNotFound
	}
	return err
}

// Claim moves the claiming handler to the tail of the ticket's handler list,
// renames the channel to embed the handler's name and grants the handler
// explicit view/send permission. The rename is best-effort; a rename failure
// is logged and otherwise ignored.
func (m *Manager) Claim(guildID, channelID, handlerID, handlerName string) (*entities.Ticket, error) {
	ticket, err := m.tickets.MutateTicket(guildID, channelID, func(t *entities.Ticket) (bool, error) {
		t.Claim(handlerID, handlerName)
		return true, nil
	})
	if err != nil {
		if errors.Is(err, dataaccess.ErrNotExists) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := m.ops.GrantMember(channelID, handlerID); err != nil {
		return nil, fmt.Errorf("error granting channel permission: %w", err)
	}

	if err := m.ops.Rename(channelID, ticket.Name()); err != nil {
		m.l.Warn("Error renaming ticket channel",
			slog.String(logging.KeyChannel, channelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
	return ticket, nil
}

// RemoveHandler removes every occurrence of the handler from the ticket,
// resets the handler's permission overwrite and renames the channel after
// the remaining handlers. The rename is best-effort.
func (m *Manager) RemoveHandler(guildID, channelID, handlerID string) (*entities.Ticket, error) {
	ticket, err := m.tickets.MutateTicket(guildID, channelID, func(t *entities.Ticket) (bool, error) {
		if !t.RemoveHandler(handlerID) {
			return false, ErrNotHandler
		}
		if len(t.HandlerIDs) == 0 {
			t.HandlerName = ""
		}
		return true, nil
	})
	if err != nil {
		if errors.Is(err, dataaccess.ErrNotExists) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := m.ops.RevokeMember(channelID, handlerID); err != nil {
		return nil, fmt.Errorf("error resetting channel permission: %w", err)
	}

	if err := m.ops.Rename(channelID, ticket.Name()); err != nil {
		m.l.Warn("Error renaming ticket channel",
			slog.String(logging.KeyChannel, channelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
	return ticket, nil
}

// Close deletes the ticket record, waits out the close delay and then
// requests the channel deletion. The record is gone before the deletion is
// attempted, so a crash in between never resurrects a phantom open ticket.
// A channel deletion failure is logged and swallowed; the channel may
// already be gone.
func (m *Manager) Close(guildID, channelID string) error {
	if _, err := m.tickets.GetTicket(guildID, channelID); err != nil {
		if errors.Is(err, dataaccess.ErrNotExists) {
			return ErrNotFound
		}
		return err
	}

	if err := m.tickets.DeleteTicket(guildID, channelID); err != nil {
		return fmt.Errorf("error deleting ticket: %w", err)
	}

	if m.closeDelay > 0 {
		time.Sleep(m.closeDelay)
	}

	if err := m.ops.Delete(channelID); err != nil {
		m.l.Warn("Error deleting ticket channel",
			slog.String(logging.KeyChannel, channelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
	return nil
}
