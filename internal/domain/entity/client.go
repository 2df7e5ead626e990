package entity

import (
	"time"

	"github.com/facturio/facturio/internal/domain/paymentterm"
)

// Client represents a billable customer owned by one user account.
type Client struct {
	ID          int64            `json:"id"`
	UserID      int64            `json:"user_id"`
	Name        string           `json:"name"`
	Address     string           `json:"address"`
	PostalCode  string           `json:"postal_code"`
	City        string           `json:"city"`
	Country     string           `json:"country"`
	VATNumber   string           `json:"vat_number,omitempty"`
	PaymentTerm paymentterm.Term `json:"payment_term"`
	Contacts    []Contact        `json:"contacts"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Contact is an email recipient attached to a client. Exactly one contact
// per client carries the default flag.
type Contact struct {
	ID        int64  `json:"id"`
	ClientID  int64  `json:"client_id"`
	Email     string `json:"email"`
	IsDefault bool   `json:"is_default"`
}

// DefaultContact returns the contact flagged as default, falling back to the
// first contact when the flag is missing on legacy rows.
func (c *Client) DefaultContact() *Contact {
	for i := range c.Contacts {
		if c.Contacts[i].IsDefault {
			return &c.Contacts[i]
		}
	}
	if len(c.Contacts) > 0 {
		return &c.Contacts[0]
	}
	return nil
}

// ClientSnapshot is the denormalized client copy embedded in an invoice at
// creation time. Later edits to the client never change issued invoices.
type ClientSnapshot struct {
	ClientID    int64            `json:"client_id"`
	Name        string           `json:"name"`
	Address     string           `json:"address"`
	PostalCode  string           `json:"postal_code"`
	City        string           `json:"city"`
	Country     string           `json:"country"`
	VATNumber   string           `json:"vat_number,omitempty"`
	PaymentTerm paymentterm.Term `json:"payment_term"`
	Email       string           `json:"email,omitempty"`
}

// Snapshot copies the fields an invoice needs from the client.
func (c *Client) Snapshot() ClientSnapshot {
	snap := ClientSnapshot{
		ClientID:    c.ID,
		Name:        c.Name,
		Address:     c.Address,
		PostalCode:  c.PostalCode,
		City:        c.City,
		Country:     c.Country,
		VATNumber:   c.VATNumber,
		PaymentTerm: c.PaymentTerm,
	}
	if contact := c.DefaultContact(); contact != nil {
		snap.Email = contact.Email
	}
	return snap
}
