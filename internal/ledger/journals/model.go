package journals

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus enumerates journal entry lifecycle values.
type EntryStatus string

const (
	EntryStatusDraft    EntryStatus = "DRAFT"
	EntryStatusApproved EntryStatus = "APPROVED"
	EntryStatusPosted   EntryStatus = "POSTED"
)

// CanTransitionTo reports whether the lifecycle allows moving to next. The chain is
// linear, DRAFT -> APPROVED -> POSTED, with no regression; approval may be skipped.
func (s EntryStatus) CanTransitionTo(next EntryStatus) bool {
	switch s {
	case EntryStatusDraft:
		return next == EntryStatusApproved || next == EntryStatusPosted
	case EntryStatusApproved:
		return next == EntryStatusPosted
	default:
		return false
	}
}

// JournalEntry is a balanced financial transaction header. Its lines are owned
// exclusively: they are inserted, replaced, and deleted together with the entry.
type JournalEntry struct {
	ID          int64
	EntryNo     string
	EntryDate   time.Time
	Description string
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	Status      EntryStatus
	// SourceModule/SourceRef tie the entry to the business document that produced
	// it, e.g. "invoicing" and the invoice number.
	SourceModule string
	SourceRef    string
	// ClientRef attributes entries created through the external API surface.
	ClientRef  string
	CreatedBy  int64
	ApprovedBy *int64
	PostedBy   *int64
	PostedAt   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Lines      []JournalLine
}

// JournalLine stores one debit or credit leg against an account.
type JournalLine struct {
	ID          int64
	EntryID     int64
	AccountID   int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
	CreatedAt   time.Time
}

// mutable reports whether the entry accepts line rewrites. Drafts always do; any
// other status requires the explicit force override, which the service audits.
func (e JournalEntry) mutable(force bool) bool {
	return e.Status == EntryStatusDraft || force
}

// deletable reports whether the entry may be removed. Only drafts qualify; posted
// and approved history is protected.
func (e JournalEntry) deletable() bool {
	return e.Status == EntryStatusDraft
}
