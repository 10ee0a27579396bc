package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborview-hms/harborview/internal/platform/db"
)

// RepositoryPort defines data access for invoices.
type RepositoryPort interface {
	CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	ListInvoices(ctx context.Context, status InvoiceStatus) ([]Invoice, error)
	MarkPosted(ctx context.Context, id int64, journalEntryID int64, postedBy int64, postedAt time.Time) error
	MarkVoid(ctx context.Context, id int64) error
	NextInvoiceNumber(ctx context.Context, year int) (string, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) RepositoryPort {
	return &repository{pool: pool}
}

const invoiceColumns = `id, number, outlet_id, guest_name, subtotal, tax_rate, tax_amount, total,
status, journal_entry_id, due_at, created_by, posted_by, posted_at, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.OutletID, &inv.GuestName, &inv.Subtotal, &inv.TaxRate,
		&inv.TaxAmount, &inv.Total, &inv.Status, &inv.JournalEntryID, &inv.DueAt, &inv.CreatedBy,
		&inv.PostedBy, &inv.PostedAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		return Invoice{}, err
	}
	return inv, nil
}

// CreateInvoice persists the header and its lines in one transaction.
func (r *repository) CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `INSERT INTO invoices
(number, outlet_id, guest_name, subtotal, tax_rate, tax_amount, total, status, due_at, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING id, created_at, updated_at`,
			inv.Number, inv.OutletID, inv.GuestName, inv.Subtotal, inv.TaxRate, inv.TaxAmount,
			inv.Total, inv.Status, inv.DueAt, inv.CreatedBy)
		if err := row.Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return err
		}
		for i := range inv.Lines {
			line := &inv.Lines[i]
			line.InvoiceID = inv.ID
			if err := tx.QueryRow(ctx, `INSERT INTO invoice_lines
(invoice_id, description, quantity, unit_price, line_total, revenue_account_id)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
				line.InvoiceID, line.Description, line.Quantity, line.UnitPrice, line.LineTotal,
				nullInt(line.RevenueAccountID)).Scan(&line.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Invoice{}, fmt.Errorf("create invoice: %w", err)
	}
	return inv, nil
}

func (r *repository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, id))
	if err != nil {
		return Invoice{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, invoice_id, description, quantity, unit_price, line_total, COALESCE(revenue_account_id, 0)
FROM invoice_lines WHERE invoice_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return Invoice{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.Description, &l.Quantity, &l.UnitPrice, &l.LineTotal, &l.RevenueAccountID); err != nil {
			return Invoice{}, err
		}
		inv.Lines = append(inv.Lines, l)
	}
	return inv, rows.Err()
}

func (r *repository) ListInvoices(ctx context.Context, status InvoiceStatus) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	var args []any
	if status != "" {
		query += ` WHERE status=$1`
		args = append(args, status)
	}
	query += ` ORDER BY id DESC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.OutletID, &inv.GuestName, &inv.Subtotal, &inv.TaxRate,
			&inv.TaxAmount, &inv.Total, &inv.Status, &inv.JournalEntryID, &inv.DueAt, &inv.CreatedBy,
			&inv.PostedBy, &inv.PostedAt, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *repository) MarkPosted(ctx context.Context, id int64, journalEntryID int64, postedBy int64, postedAt time.Time) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE invoices
SET status='POSTED', journal_entry_id=$2, posted_by=$3, posted_at=$4, updated_at=NOW()
WHERE id=$1 AND status='DRAFT'`, id, journalEntryID, postedBy, postedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvalidStatus
	}
	return nil
}

func (r *repository) MarkVoid(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE invoices SET status='VOID', updated_at=NOW() WHERE id=$1 AND status='DRAFT'`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvalidStatus
	}
	return nil
}

func (r *repository) NextInvoiceNumber(ctx context.Context, year int) (string, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE EXTRACT(YEAR FROM created_at)=$1`, year).Scan(&count); err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%d-%04d", year, count+1), nil
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}
