package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/harborview-hms/harborview/internal/jobs"
)

// IntegrityChecker scans the ledger for conditions the write path should have
// prevented. It reports findings, it does not repair them.
type IntegrityChecker struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

func NewIntegrityChecker(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *IntegrityChecker {
	return &IntegrityChecker{pool: pool, logger: logger, metrics: metrics}
}

// Handle processes TaskGLIntegrity tasks. The three checks run concurrently.
func (c *IntegrityChecker) Handle(ctx context.Context, _ *asynq.Task) error {
	tracker := c.metrics.Track("gl_integrity")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.checkUnbalancedEntries(ctx) })
	g.Go(func() error { return c.checkHeaderLineDrift(ctx) })
	g.Go(func() error { return c.checkOrphanedInvoices(ctx) })

	if err := g.Wait(); err != nil {
		c.logger.Error("gl integrity scan failed", slog.Any("error", err))
		return tracker.End(err)
	}
	return tracker.End(nil)
}

// checkUnbalancedEntries finds posted entries whose stored totals differ by more
// than the accepted rounding tolerance.
func (c *IntegrityChecker) checkUnbalancedEntries(ctx context.Context) error {
	rows, err := c.pool.Query(ctx, `SELECT id, entry_no, total_debit, total_credit
FROM journal_entries
WHERE status='POSTED' AND ABS(total_debit - total_credit) > 0.01`)
	if err != nil {
		return err
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		var id int64
		var entryNo, debit, credit string
		if err := rows.Scan(&id, &entryNo, &debit, &credit); err != nil {
			return err
		}
		count++
		c.logger.Warn("unbalanced posted entry",
			slog.Int64("entry_id", id),
			slog.String("entry_no", entryNo),
			slog.String("total_debit", debit),
			slog.String("total_credit", credit))
	}
	c.metrics.AddImbalances("unbalanced_entry", count)
	return rows.Err()
}

// checkHeaderLineDrift finds entries whose header totals disagree with the sum
// of their lines.
func (c *IntegrityChecker) checkHeaderLineDrift(ctx context.Context) error {
	rows, err := c.pool.Query(ctx, `SELECT e.id, e.entry_no
FROM journal_entries e
JOIN (
	SELECT entry_id, COALESCE(SUM(debit),0) AS d, COALESCE(SUM(credit),0) AS c
	FROM journal_lines GROUP BY entry_id
) l ON l.entry_id = e.id
WHERE ABS(e.total_debit - l.d) > 0.01 OR ABS(e.total_credit - l.c) > 0.01`)
	if err != nil {
		return err
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		var id int64
		var entryNo string
		if err := rows.Scan(&id, &entryNo); err != nil {
			return err
		}
		count++
		c.logger.Warn("entry header drifted from lines",
			slog.Int64("entry_id", id),
			slog.String("entry_no", entryNo))
	}
	c.metrics.AddImbalances("header_drift", count)
	return rows.Err()
}

// checkOrphanedInvoices finds invoices marked posted that never got linked to a
// journal entry. This is the expected symptom when marking the invoice failed
// after the entry was booked.
func (c *IntegrityChecker) checkOrphanedInvoices(ctx context.Context) error {
	rows, err := c.pool.Query(ctx, `SELECT id, number FROM invoices
WHERE status='POSTED' AND journal_entry_id IS NULL`)
	if err != nil {
		return err
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		var id int64
		var number string
		if err := rows.Scan(&id, &number); err != nil {
			return err
		}
		count++
		c.logger.Warn("posted invoice without journal entry",
			slog.Int64("invoice_id", id),
			slog.String("number", number))
	}
	c.metrics.AddImbalances("orphaned_invoice", count)
	return rows.Err()
}
