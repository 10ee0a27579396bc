package journals

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/harborview-hms/harborview/internal/ledger/accounts"
	"github.com/harborview-hms/harborview/internal/ledger/shared"
	internalShared "github.com/harborview-hms/harborview/internal/shared"
)

// RegistryPort is the slice of the accounts registry the engine needs.
type RegistryPort interface {
	FindInvalidAccountIDs(ctx context.Context, ids []int64) ([]int64, error)
	FallbackRevenueAccount(ctx context.Context) (accounts.Account, error)
	ControlAccount(ctx context.Context, code string) (accounts.Account, error)
}

// AuditPort records lifecycle events.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// PostingConfig names the control accounts the invoice flow posts against.
type PostingConfig struct {
	ReceivableAccountCode string
	SalesTaxAccountCode   string
}

// maxNumberRetries bounds re-allocation when concurrent postings collide on the
// entry_no unique constraint.
const maxNumberRetries = 3

// Service is the posting engine: it validates candidate entries, allocates
// distribution lines and entry numbers, persists header+lines atomically, and
// enforces the entry lifecycle.
type Service struct {
	repo     Repository
	registry RegistryPort
	audit    AuditPort
	cfg      PostingConfig
	now      func() time.Time
}

func NewService(repo Repository, registry RegistryPort, audit AuditPort, cfg PostingConfig) *Service {
	return &Service{repo: repo, registry: registry, audit: audit, cfg: cfg, now: time.Now}
}

// WithNow overrides the clock for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) GetEntry(ctx context.Context, id int64) (JournalEntry, error) {
	return s.repo.GetEntry(ctx, id)
}

func (s *Service) ListEntries(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	return s.repo.ListEntries(ctx, filter)
}

// CreateEntry validates and persists a free-standing journal entry.
func (s *Service) CreateEntry(ctx context.Context, in CreateEntryInput) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	totals, err := ValidateLines(in.Lines)
	if err != nil {
		return JournalEntry{}, err
	}
	if err := s.checkAccounts(ctx, in.Lines); err != nil {
		return JournalEntry{}, err
	}

	status := in.Status
	if status == "" {
		status = EntryStatusDraft
	}
	entryDate := in.EntryDate
	if entryDate.IsZero() {
		entryDate = s.now().UTC()
	}

	entry := JournalEntry{
		EntryDate:   entryDate,
		Description: in.Description,
		TotalDebit:  totals.Debit,
		TotalCredit: totals.Credit,
		Status:      status,
		ClientRef:   in.ClientRef,
		CreatedBy:   in.ActorID,
	}
	if status == EntryStatusPosted {
		now := s.now().UTC()
		entry.PostedAt = &now
		entry.PostedBy = &in.ActorID
	}

	created, err := s.insertNumbered(ctx, entry, toJournalLines(in.Lines), in.EntryNo)
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, in.ActorID, "journal.create", created.ID, map[string]any{
		"entry_no": created.EntryNo,
		"status":   string(created.Status),
	})
	return created, nil
}

// PostInvoiceJournal turns an invoice into a balanced, immediately posted journal
// entry: one receivable debit for subtotal+tax, revenue credits from the allocation
// algorithm, and a single sales-tax credit when tax is positive. Everything
// persists in one transaction or not at all.
func (s *Service) PostInvoiceJournal(ctx context.Context, in PostInvoiceInput) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}

	receivable, err := s.registry.ControlAccount(ctx, s.cfg.ReceivableAccountCode)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			return JournalEntry{}, fmt.Errorf("%w: receivable %q", shared.ErrNoControlAccount, s.cfg.ReceivableAccountCode)
		}
		return JournalEntry{}, err
	}

	var fallbackID int64
	fallback, err := s.registry.FallbackRevenueAccount(ctx)
	switch {
	case err == nil:
		fallbackID = fallback.ID
	case errors.Is(err, accounts.ErrAccountNotFound):
		// No fallback; unattributed allocation items are skipped.
	default:
		return JournalEntry{}, err
	}

	total := in.Subtotal.Add(in.TaxAmount).Round(2)
	lines := []LineInput{{
		AccountID:   receivable.ID,
		Debit:       total,
		Description: "Accounts receivable",
	}}
	for _, alloc := range AllocateRevenue(in.Subtotal, in.Items, fallbackID) {
		lines = append(lines, LineInput{
			AccountID:   alloc.AccountID,
			Credit:      alloc.Amount,
			Description: alloc.Description,
		})
	}
	if in.TaxAmount.IsPositive() {
		taxAccount, err := s.registry.ControlAccount(ctx, s.cfg.SalesTaxAccountCode)
		if err != nil {
			if errors.Is(err, accounts.ErrAccountNotFound) {
				return JournalEntry{}, fmt.Errorf("%w: sales tax %q", shared.ErrNoControlAccount, s.cfg.SalesTaxAccountCode)
			}
			return JournalEntry{}, err
		}
		lines = append(lines, LineInput{
			AccountID:   taxAccount.ID,
			Credit:      in.TaxAmount.Round(2),
			Description: "Sales tax payable",
		})
	}

	totals, err := ValidateLines(lines)
	if err != nil {
		return JournalEntry{}, err
	}
	if err := s.checkAccounts(ctx, lines); err != nil {
		return JournalEntry{}, err
	}

	entryDate := in.EntryDate
	if entryDate.IsZero() {
		entryDate = s.now().UTC()
	}
	now := s.now().UTC()
	entry := JournalEntry{
		EntryDate:    entryDate,
		Description:  fmt.Sprintf("Invoice %s", in.InvoiceNo),
		TotalDebit:   totals.Debit,
		TotalCredit:  totals.Credit,
		Status:       EntryStatusPosted,
		SourceModule: "invoicing",
		SourceRef:    strconv.FormatInt(in.InvoiceID, 10),
		CreatedBy:    in.ActorID,
		PostedBy:     &in.ActorID,
		PostedAt:     &now,
	}

	created, err := s.insertNumbered(ctx, entry, toJournalLines(lines), "")
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, in.ActorID, "journal.post", created.ID, map[string]any{
		"entry_no":   created.EntryNo,
		"invoice_id": in.InvoiceID,
	})
	return created, nil
}

// UpdateEntry patches header fields and optionally replaces the line set
// wholesale. Non-draft entries refuse mutation unless forced; a forced rewrite is
// audited with the previous line snapshot.
func (s *Service) UpdateEntry(ctx context.Context, id int64, in UpdateEntryInput) (JournalEntry, error) {
	var updated JournalEntry
	var snapshot []JournalLine
	var forced bool

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !current.mutable(in.Force) {
			return shared.ErrImmutableEntry
		}
		forced = in.Force && current.Status != EntryStatusDraft
		if forced {
			snapshot = current.Lines
		}

		candidate := toLineInputs(current.Lines)
		if in.Lines != nil {
			candidate = in.Lines
		}
		totals, err := ValidateLines(candidate)
		if err != nil {
			return err
		}
		if in.Lines != nil {
			if err := s.checkAccounts(ctx, in.Lines); err != nil {
				return err
			}
			if err := tx.DeleteLines(ctx, current.ID); err != nil {
				return err
			}
			replacement := toJournalLines(in.Lines)
			if err := tx.InsertLines(ctx, current.ID, replacement); err != nil {
				return err
			}
			current.Lines = replacement
		}

		if in.EntryDate != nil {
			current.EntryDate = *in.EntryDate
		}
		if in.Description != nil {
			current.Description = *in.Description
		}
		current.TotalDebit = totals.Debit
		current.TotalCredit = totals.Credit

		if err := tx.UpdateEntryHeader(ctx, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}

	if forced {
		s.record(ctx, in.ActorID, "journal.force_rewrite", updated.ID, map[string]any{
			"entry_no":       updated.EntryNo,
			"status":         string(updated.Status),
			"previous_lines": snapshotMeta(snapshot),
		})
	} else {
		s.record(ctx, in.ActorID, "journal.update", updated.ID, map[string]any{
			"entry_no": updated.EntryNo,
		})
	}
	return updated, nil
}

// DeleteEntry removes a draft entry and its lines. Approved and posted entries are
// part of the financial record and refuse deletion.
func (s *Service) DeleteEntry(ctx context.Context, id int64, actorID int64) error {
	var entryNo string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !current.deletable() {
			return shared.ErrImmutableEntry
		}
		entryNo = current.EntryNo
		if err := tx.DeleteLines(ctx, current.ID); err != nil {
			return err
		}
		return tx.DeleteEntry(ctx, current.ID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, "journal.delete", id, map[string]any{"entry_no": entryNo})
	return nil
}

// ApproveEntry advances a draft to APPROVED.
func (s *Service) ApproveEntry(ctx context.Context, id int64, actorID int64) (JournalEntry, error) {
	return s.transition(ctx, id, EntryStatusApproved, actorID, "journal.approve")
}

// PostEntry finalises an entry. Posting happens exactly once; the entry becomes
// immutable afterwards.
func (s *Service) PostEntry(ctx context.Context, id int64, actorID int64) (JournalEntry, error) {
	return s.transition(ctx, id, EntryStatusPosted, actorID, "journal.finalize")
}

func (s *Service) transition(ctx context.Context, id int64, target EntryStatus, actorID int64, action string) (JournalEntry, error) {
	var updated JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(target) {
			if current.Status == EntryStatusPosted {
				return shared.ErrImmutableEntry
			}
			return shared.ErrInvalidTransition
		}
		// The persisted line set must still satisfy the double-entry invariants
		// before the transition commits.
		if _, err := ValidateLines(toLineInputs(current.Lines)); err != nil {
			return err
		}
		now := s.now().UTC()
		if err := tx.UpdateEntryStatus(ctx, current.ID, target, actorID, now); err != nil {
			return err
		}
		current.Status = target
		switch target {
		case EntryStatusApproved:
			current.ApprovedBy = &actorID
		case EntryStatusPosted:
			current.PostedBy = &actorID
			current.PostedAt = &now
		}
		updated = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, actorID, action, updated.ID, map[string]any{
		"entry_no": updated.EntryNo,
		"status":   string(updated.Status),
	})
	return updated, nil
}

// insertNumbered persists header and lines in one transaction, allocating the
// entry number inside that same transaction. Automatic numbers retry on a
// duplicate-number collision; explicit numbers fail straight back to the caller.
func (s *Service) insertNumbered(ctx context.Context, entry JournalEntry, lines []JournalLine, explicitNo string) (JournalEntry, error) {
	attempts := maxNumberRetries
	if explicitNo != "" {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		var created JournalEntry
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			entryNo := explicitNo
			if entryNo == "" {
				var err error
				entryNo, err = nextEntryNumber(ctx, tx, entry.EntryDate)
				if err != nil {
					return err
				}
			} else if err := reserveEntryNumber(ctx, tx, entryNo); err != nil {
				return err
			}
			entry.EntryNo = entryNo
			inserted, err := tx.InsertEntry(ctx, entry)
			if err != nil {
				return err
			}
			if err := tx.InsertLines(ctx, inserted.ID, lines); err != nil {
				return err
			}
			inserted.Lines = lines
			created = inserted
			return nil
		})
		if err == nil {
			return created, nil
		}
		if explicitNo != "" || !errors.Is(err, shared.ErrDuplicateNumber) {
			return JournalEntry{}, err
		}
		lastErr = err
	}
	return JournalEntry{}, lastErr
}

func (s *Service) checkAccounts(ctx context.Context, lines []LineInput) error {
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.AccountID)
	}
	invalid, err := s.registry.FindInvalidAccountIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("validate accounts: %w", err)
	}
	if len(invalid) > 0 {
		return shared.InvalidAccountsError{AccountIDs: invalid}
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entryID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: strconv.FormatInt(entryID, 10),
		Meta:     meta,
		At:       s.now().UTC(),
	})
}

func toJournalLines(inputs []LineInput) []JournalLine {
	out := make([]JournalLine, 0, len(inputs))
	for _, in := range inputs {
		out = append(out, JournalLine{
			AccountID:   in.AccountID,
			Debit:       in.Debit,
			Credit:      in.Credit,
			Description: in.Description,
		})
	}
	return out
}

func toLineInputs(lines []JournalLine) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineInput{
			AccountID:   l.AccountID,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		})
	}
	return out
}

func snapshotMeta(lines []JournalLine) []map[string]any {
	out := make([]map[string]any, 0, len(lines))
	for _, l := range lines {
		out = append(out, map[string]any{
			"account_id": l.AccountID,
			"debit":      l.Debit.String(),
			"credit":     l.Credit.String(),
		})
	}
	return out
}
