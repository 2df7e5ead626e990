package entity

import "time"

// InvoiceStatus represents the financial status of an invoice.
type InvoiceStatus string

const (
	StatusPending       InvoiceStatus = "PENDING"
	StatusSent          InvoiceStatus = "SENT"
	StatusPaid          InvoiceStatus = "PAID"
	StatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	StatusToChase       InvoiceStatus = "TO_CHASE"
)

var validStatuses = map[InvoiceStatus]bool{
	StatusPending:       true,
	StatusSent:          true,
	StatusPaid:          true,
	StatusPartiallyPaid: true,
	StatusToChase:       true,
}

// IsValid returns true if the status is a recognized invoice status.
func (s InvoiceStatus) IsValid() bool {
	return validStatuses[s]
}

// IsSettled returns true for the statuses owned by the payment ledger.
func (s InvoiceStatus) IsSettled() bool {
	return s == StatusPaid || s == StatusPartiallyPaid
}

// String returns the string representation of the status.
func (s InvoiceStatus) String() string {
	return string(s)
}

// LineItemKind distinguishes billable lines from free-text comment lines.
type LineItemKind string

const (
	LineItemBillable LineItemKind = "BILLABLE"
	LineItemComment  LineItemKind = "COMMENT"
)

// LineItem is a single line of an invoice or a recurring template.
// Comment lines carry only the description.
type LineItem struct {
	Kind        LineItemKind `json:"kind"`
	Description string       `json:"description"`
	Quantity    float64      `json:"quantity,omitempty"`
	UnitPrice   float64      `json:"unit_price,omitempty"`
	TaxRate     float64      `json:"tax_rate,omitempty"`
}

// Invoice represents an issued invoice with its payment ledger.
type Invoice struct {
	ID              int64          `json:"id"`
	UserID          int64          `json:"user_id"`
	Number          string         `json:"number"`
	Client          ClientSnapshot `json:"client"`
	LineItems       []LineItem     `json:"line_items"`
	TotalExclTax    float64        `json:"total_excl_tax"`
	TotalInclTax    float64        `json:"total_incl_tax"`
	CreationDate    time.Time      `json:"creation_date"`
	Status          InvoiceStatus  `json:"status"`
	Payments        []Payment      `json:"payments"`
	AmountPaid      float64        `json:"amount_paid"`
	AmountRemaining float64        `json:"amount_remaining"`

	// Version is the optimistic concurrency token. Every ledger mutation
	// bumps it; stale writers lose with ErrConflict.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
