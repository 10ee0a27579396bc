package invoicing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/harborview-hms/harborview/internal/ledger/journals"
	internalShared "github.com/harborview-hms/harborview/internal/shared"
)

type fakeRepo struct {
	invoices map[int64]Invoice
	nextID   int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{invoices: map[int64]Invoice{}, nextID: 1}
}

func (f *fakeRepo) CreateInvoice(_ context.Context, inv Invoice) (Invoice, error) {
	inv.ID = f.nextID
	f.nextID++
	for i := range inv.Lines {
		inv.Lines[i].InvoiceID = inv.ID
	}
	f.invoices[inv.ID] = inv
	return inv, nil
}

func (f *fakeRepo) GetInvoice(_ context.Context, id int64) (Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (f *fakeRepo) ListInvoices(_ context.Context, status InvoiceStatus) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range f.invoices {
		if status == "" || inv.Status == status {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f *fakeRepo) MarkPosted(_ context.Context, id int64, journalEntryID int64, postedBy int64, postedAt time.Time) error {
	inv, ok := f.invoices[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	if inv.Status != InvoiceStatusDraft {
		return ErrInvalidStatus
	}
	inv.Status = InvoiceStatusPosted
	inv.JournalEntryID = &journalEntryID
	inv.PostedBy = &postedBy
	inv.PostedAt = &postedAt
	f.invoices[id] = inv
	return nil
}

func (f *fakeRepo) MarkVoid(_ context.Context, id int64) error {
	inv, ok := f.invoices[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	if inv.Status != InvoiceStatusDraft {
		return ErrInvalidStatus
	}
	inv.Status = InvoiceStatusVoid
	f.invoices[id] = inv
	return nil
}

func (f *fakeRepo) NextInvoiceNumber(_ context.Context, year int) (string, error) {
	return fmt.Sprintf("INV-%d-%04d", year, len(f.invoices)+1), nil
}

type fakePosting struct {
	lastInput journals.PostInvoiceInput
	entry     journals.JournalEntry
	err       error
}

func (f *fakePosting) PostInvoiceJournal(_ context.Context, in journals.PostInvoiceInput) (journals.JournalEntry, error) {
	f.lastInput = in
	if f.err != nil {
		return journals.JournalEntry{}, f.err
	}
	return f.entry, nil
}

type fakeAudit struct {
	actions []string
}

func (f *fakeAudit) Record(_ context.Context, log internalShared.AuditLog) error {
	f.actions = append(f.actions, log.Action)
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeRepo, *fakePosting, *fakeAudit) {
	t.Helper()
	repo := newFakeRepo()
	posting := &fakePosting{entry: journals.JournalEntry{ID: 42, EntryNo: "JE-2026-0042"}}
	audit := &fakeAudit{}
	svc := NewService(repo, posting, audit).WithNow(func() time.Time {
		return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	})
	return svc, repo, posting, audit
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreateInvoiceComputesTotals(t *testing.T) {
	svc, _, _, audit := newTestService(t)

	inv, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		OutletID:  1,
		GuestName: "Room 214",
		TaxRate:   d("10"),
		ActorID:   7,
		Lines: []CreateInvoiceLineInput{
			{Description: "Dinner", Quantity: d("2"), UnitPrice: d("45.50"), RevenueAccountID: 401},
			{Description: "Wine", Quantity: d("1"), UnitPrice: d("30.00"), RevenueAccountID: 402},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "121.00", inv.Subtotal.StringFixed(2))
	require.Equal(t, "12.10", inv.TaxAmount.StringFixed(2))
	require.Equal(t, "133.10", inv.Total.StringFixed(2))
	require.Equal(t, InvoiceStatusDraft, inv.Status)
	require.Equal(t, "INV-2026-0001", inv.Number)
	require.Contains(t, audit.actions, "invoice.create")
}

func TestCreateInvoiceRejectsEmptyLines(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		OutletID:  1,
		GuestName: "Room 101",
	})
	var missing MissingItemsError
	require.ErrorAs(t, err, &missing)
}

func TestCreateInvoiceCollectsAllBadLines(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		OutletID:  1,
		GuestName: "Room 101",
		Lines: []CreateInvoiceLineInput{
			{Description: "Dinner", Quantity: decimal.Zero, UnitPrice: d("10.00")},
			{Description: "Wine", Quantity: d("1"), UnitPrice: d("30.00")},
			{Description: "", Quantity: d("1"), UnitPrice: d("5.00")},
		},
	})
	var missing MissingItemsError
	require.ErrorAs(t, err, &missing)
	require.Len(t, missing.Items, 2)
	require.Contains(t, missing.Items[0], "line 1")
	require.Contains(t, missing.Items[1], "line 3")
}

func TestPostInvoiceBooksJournalAndMarksPosted(t *testing.T) {
	svc, repo, posting, audit := newTestService(t)

	inv, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		OutletID:  1,
		GuestName: "Room 214",
		TaxRate:   d("10"),
		ActorID:   7,
		Lines: []CreateInvoiceLineInput{
			{Description: "Dinner", Quantity: d("1"), UnitPrice: d("100.00"), RevenueAccountID: 401},
		},
	})
	require.NoError(t, err)

	posted, err := svc.PostInvoice(context.Background(), inv.ID, 9)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPosted, posted.Status)
	require.NotNil(t, posted.JournalEntryID)
	require.Equal(t, int64(42), *posted.JournalEntryID)

	require.Equal(t, inv.ID, posting.lastInput.InvoiceID)
	require.Equal(t, "100.00", posting.lastInput.Subtotal.StringFixed(2))
	require.Equal(t, "10.00", posting.lastInput.TaxAmount.StringFixed(2))
	require.Len(t, posting.lastInput.Items, 1)
	require.Equal(t, int64(401), posting.lastInput.Items[0].AccountID)

	stored, err := repo.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPosted, stored.Status)
	require.Contains(t, audit.actions, "invoice.post")
}

func TestPostInvoiceTwiceFails(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	inv, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		OutletID:  1,
		GuestName: "Room 214",
		Lines: []CreateInvoiceLineInput{
			{Description: "Dinner", Quantity: d("1"), UnitPrice: d("100.00")},
		},
	})
	require.NoError(t, err)

	_, err = svc.PostInvoice(context.Background(), inv.ID, 9)
	require.NoError(t, err)

	_, err = svc.PostInvoice(context.Background(), inv.ID, 9)
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestPostInvoicePropagatesLedgerFailure(t *testing.T) {
	svc, repo, posting, _ := newTestService(t)
	posting.err = fmt.Errorf("ledger unavailable")

	inv, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		OutletID:  1,
		GuestName: "Room 214",
		Lines: []CreateInvoiceLineInput{
			{Description: "Dinner", Quantity: d("1"), UnitPrice: d("100.00")},
		},
	})
	require.NoError(t, err)

	_, err = svc.PostInvoice(context.Background(), inv.ID, 9)
	require.Error(t, err)

	stored, err := repo.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusDraft, stored.Status)
}

func TestVoidInvoiceDraftOnly(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	inv, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		OutletID:  1,
		GuestName: "Room 214",
		Lines: []CreateInvoiceLineInput{
			{Description: "Dinner", Quantity: d("1"), UnitPrice: d("100.00")},
		},
	})
	require.NoError(t, err)

	require.NoError(t, svc.VoidInvoice(context.Background(), inv.ID, 7))
	stored, err := repo.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusVoid, stored.Status)

	require.ErrorIs(t, svc.VoidInvoice(context.Background(), inv.ID, 7), ErrInvalidStatus)
}
