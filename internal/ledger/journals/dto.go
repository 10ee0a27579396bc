package journals

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CreateEntryInput groups fields for a free-standing journal entry. The status
// intent may only be DRAFT or POSTED at creation; later transitions go through the
// lifecycle operations.
type CreateEntryInput struct {
	EntryDate   time.Time
	Description string
	Lines       []LineInput
	Status      EntryStatus
	// EntryNo reserves a caller-supplied number; empty means allocate.
	EntryNo   string
	ClientRef string
	ActorID   int64
}

// Validate checks request shape; line-level rules live in ValidateLines.
func (in CreateEntryInput) Validate() error {
	if in.Description == "" {
		return errors.New("ledger: description required")
	}
	switch in.Status {
	case "", EntryStatusDraft, EntryStatusPosted:
	default:
		return fmt.Errorf("ledger: status %q not allowed at creation", in.Status)
	}
	return nil
}

// UpdateEntryInput patches an existing entry. Nil fields are left unchanged; a
// non-nil Lines replaces the whole line set. Force permits rewriting a non-draft
// entry and is audited with the previous snapshot.
type UpdateEntryInput struct {
	EntryDate   *time.Time
	Description *string
	Lines       []LineInput
	Force       bool
	ActorID     int64
}

// PostInvoiceInput is the document-creation contract: an invoice's totals and its
// revenue distribution targets.
type PostInvoiceInput struct {
	InvoiceID int64
	InvoiceNo string
	EntryDate time.Time
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Items     []AllocationItem
	ActorID   int64
}

// Validate checks the posting request shape.
func (in PostInvoiceInput) Validate() error {
	if in.InvoiceID == 0 {
		return errors.New("ledger: invoice id required")
	}
	if !in.Subtotal.IsPositive() {
		return errors.New("ledger: subtotal must be positive")
	}
	if in.TaxAmount.IsNegative() {
		return errors.New("ledger: tax amount cannot be negative")
	}
	return nil
}
