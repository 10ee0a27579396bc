package invoicing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harborview-hms/harborview/internal/ledger/journals"
	internalShared "github.com/harborview-hms/harborview/internal/shared"
)

// PostingPort is the slice of the ledger the invoicing service needs.
type PostingPort interface {
	PostInvoiceJournal(ctx context.Context, in journals.PostInvoiceInput) (journals.JournalEntry, error)
}

// AuditPort records invoicing actions.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Service drives invoice lifecycle: draft, post (which books the journal entry), void.
type Service struct {
	repo    RepositoryPort
	posting PostingPort
	audit   AuditPort
	now     func() time.Time
}

func NewService(repo RepositoryPort, posting PostingPort, audit AuditPort) *Service {
	return &Service{repo: repo, posting: posting, audit: audit, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateInvoice computes totals from the requested lines and stores a draft.
func (s *Service) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (Invoice, error) {
	if len(in.Lines) == 0 {
		return Invoice{}, MissingItemsError{Items: []string{"no line items"}}
	}
	if in.TaxRate.IsNegative() {
		return Invoice{}, errors.New("invoicing: tax rate cannot be negative")
	}

	var missing []string
	subtotal := decimal.Zero
	lines := make([]InvoiceLine, len(in.Lines))
	for i, l := range in.Lines {
		switch {
		case l.Description == "":
			missing = append(missing, fmt.Sprintf("line %d: description required", i+1))
			continue
		case !l.Quantity.IsPositive():
			missing = append(missing, fmt.Sprintf("line %d: quantity must be positive", i+1))
			continue
		case l.UnitPrice.IsNegative():
			missing = append(missing, fmt.Sprintf("line %d: unit price cannot be negative", i+1))
			continue
		}
		total := l.Quantity.Mul(l.UnitPrice).Round(2)
		lines[i] = InvoiceLine{
			Description:      l.Description,
			Quantity:         l.Quantity,
			UnitPrice:        l.UnitPrice,
			LineTotal:        total,
			RevenueAccountID: l.RevenueAccountID,
		}
		subtotal = subtotal.Add(total)
	}
	if len(missing) > 0 {
		return Invoice{}, MissingItemsError{Items: missing}
	}
	if !subtotal.IsPositive() {
		return Invoice{}, errors.New("invoicing: invoice subtotal must be positive")
	}

	tax := subtotal.Mul(in.TaxRate).Div(decimal.NewFromInt(100)).Round(2)
	now := s.now()

	number, err := s.repo.NextInvoiceNumber(ctx, now.Year())
	if err != nil {
		return Invoice{}, fmt.Errorf("allocate invoice number: %w", err)
	}

	inv := Invoice{
		Number:    number,
		OutletID:  in.OutletID,
		GuestName: in.GuestName,
		Subtotal:  subtotal,
		TaxRate:   in.TaxRate,
		TaxAmount: tax,
		Total:     subtotal.Add(tax),
		Status:    InvoiceStatusDraft,
		DueAt:     in.DueAt,
		CreatedBy: in.ActorID,
		Lines:     lines,
	}
	created, err := s.repo.CreateInvoice(ctx, inv)
	if err != nil {
		return Invoice{}, err
	}
	s.record(ctx, in.ActorID, "invoice.create", created.ID, map[string]any{
		"number": created.Number,
		"total":  created.Total.StringFixed(2),
	})
	return created, nil
}

// GetInvoice returns an invoice with its lines.
func (s *Service) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

// ListInvoices returns invoice headers, optionally filtered by status.
func (s *Service) ListInvoices(ctx context.Context, status InvoiceStatus) ([]Invoice, error) {
	return s.repo.ListInvoices(ctx, status)
}

// PostInvoice books the draft invoice to the general ledger and marks it posted.
// The journal entry is written first; if marking the invoice fails afterwards the
// entry stands and the mismatch shows up in the integrity sweep.
func (s *Service) PostInvoice(ctx context.Context, id int64, actorID int64) (Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Status != InvoiceStatusDraft {
		return Invoice{}, ErrInvalidStatus
	}

	items := make([]journals.AllocationItem, len(inv.Lines))
	for i, l := range inv.Lines {
		items[i] = journals.AllocationItem{
			AccountID:   l.RevenueAccountID,
			Amount:      l.LineTotal,
			Description: l.Description,
		}
	}
	entry, err := s.posting.PostInvoiceJournal(ctx, journals.PostInvoiceInput{
		InvoiceID: inv.ID,
		InvoiceNo: inv.Number,
		EntryDate: s.now(),
		Subtotal:  inv.Subtotal,
		TaxAmount: inv.TaxAmount,
		Items:     items,
		ActorID:   actorID,
	})
	if err != nil {
		return Invoice{}, fmt.Errorf("post invoice %s: %w", inv.Number, err)
	}

	postedAt := s.now()
	if err := s.repo.MarkPosted(ctx, inv.ID, entry.ID, actorID, postedAt); err != nil {
		return Invoice{}, fmt.Errorf("mark invoice %s posted: %w", inv.Number, err)
	}
	inv.Status = InvoiceStatusPosted
	inv.JournalEntryID = &entry.ID
	inv.PostedBy = &actorID
	inv.PostedAt = &postedAt

	s.record(ctx, actorID, "invoice.post", inv.ID, map[string]any{
		"number":   inv.Number,
		"entry_no": entry.EntryNo,
	})
	return inv, nil
}

// VoidInvoice cancels a draft invoice. Posted invoices cannot be voided here;
// they need a reversing journal entry instead.
func (s *Service) VoidInvoice(ctx context.Context, id int64, actorID int64) error {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status != InvoiceStatusDraft {
		return ErrInvalidStatus
	}
	if err := s.repo.MarkVoid(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "invoice.void", id, map[string]any{"number": inv.Number})
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "invoice",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
		At:       s.now().UTC(),
	})
}
