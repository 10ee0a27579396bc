package journals

import (
	"context"
	"fmt"
	"time"

	"github.com/harborview-hms/harborview/internal/ledger/shared"
)

// Entry numbers are human-readable and monotonically increasing per calendar year:
// JE-2025-0001, JE-2025-0002, ... The sequence is derived from the count of entries
// already created in the year, inside the same transaction as the entry insert. A
// UNIQUE constraint on entry_no backstops the count under concurrent postings; the
// service retries the whole transaction on a duplicate.

// FormatEntryNumber renders the canonical entry number for a year and sequence.
func FormatEntryNumber(year int, seq int64) string {
	return fmt.Sprintf("JE-%d-%04d", year, seq)
}

// nextEntryNumber computes the next number for the fiscal year of at.
func nextEntryNumber(ctx context.Context, tx TxRepository, at time.Time) (string, error) {
	year := at.Year()
	count, err := tx.CountEntriesInYear(ctx, year)
	if err != nil {
		return "", fmt.Errorf("count entries for %d: %w", year, err)
	}
	return FormatEntryNumber(year, count+1), nil
}

// reserveEntryNumber verifies a caller-supplied number is free.
func reserveEntryNumber(ctx context.Context, tx TxRepository, entryNo string) error {
	taken, err := tx.EntryNumberExists(ctx, entryNo)
	if err != nil {
		return err
	}
	if taken {
		return shared.ErrDuplicateNumber
	}
	return nil
}
