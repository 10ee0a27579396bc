package invoicing

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus enumerates invoice lifecycle values.
type InvoiceStatus string

const (
	InvoiceStatusDraft  InvoiceStatus = "DRAFT"
	InvoiceStatusPosted InvoiceStatus = "POSTED"
	InvoiceStatusVoid   InvoiceStatus = "VOID"
)

var (
	// ErrInvoiceNotFound indicates a missing invoice.
	ErrInvoiceNotFound = errors.New("invoicing: invoice not found")
	// ErrInvalidStatus indicates the requested action does not fit the invoice status.
	ErrInvalidStatus = errors.New("invoicing: invalid invoice status for this action")
)

// MissingItemsError lists the line items an invoice request could not be billed
// with. All offending lines are collected so the caller can fix them in one pass.
type MissingItemsError struct {
	Items []string
}

func (e MissingItemsError) Error() string {
	return "invoicing: unbillable line items: " + strings.Join(e.Items, "; ")
}

// Invoice is a billable document for an outlet (restaurant, bar, front desk).
// Posting an invoice produces the journal entry recorded in JournalEntryID.
type Invoice struct {
	ID             int64
	Number         string
	OutletID       int64
	GuestName      string
	Subtotal       decimal.Decimal
	TaxRate        decimal.Decimal // percentage, e.g. 10 for 10%
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
	Status         InvoiceStatus
	JournalEntryID *int64
	DueAt          time.Time
	CreatedBy      int64
	PostedBy       *int64
	PostedAt       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Lines          []InvoiceLine
}

// InvoiceLine is one billed item. RevenueAccountID selects the revenue account the
// line's share is recognised against; zero falls back to the configured default.
type InvoiceLine struct {
	ID               int64
	InvoiceID        int64
	Description      string
	Quantity         decimal.Decimal
	UnitPrice        decimal.Decimal
	LineTotal        decimal.Decimal
	RevenueAccountID int64
}

// CreateInvoiceInput groups fields for creating a draft invoice.
type CreateInvoiceInput struct {
	OutletID  int64
	GuestName string
	TaxRate   decimal.Decimal
	DueAt     time.Time
	ActorID   int64
	Lines     []CreateInvoiceLineInput
}

// CreateInvoiceLineInput is one requested invoice line.
type CreateInvoiceLineInput struct {
	Description      string
	Quantity         decimal.Decimal
	UnitPrice        decimal.Decimal
	RevenueAccountID int64
}
