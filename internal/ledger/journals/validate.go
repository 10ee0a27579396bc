package journals

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/harborview-hms/harborview/internal/ledger/shared"
)

// LineInput is one candidate journal line. Exactly one of Debit/Credit must be
// positive; the other must be exactly zero.
type LineInput struct {
	AccountID   int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// Totals carries the summed sides of a validated line set.
type Totals struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// balanceTolerance absorbs rounding noise when comparing the two sides.
var balanceTolerance = decimal.New(1, -2) // 0.01

// ValidateLines enforces the double-entry invariants on a candidate line set. It is
// pure: no storage access, and running it twice on the same input yields the same
// result. Rules run in order so callers get the most specific failure first.
func ValidateLines(lines []LineInput) (Totals, error) {
	if len(lines) < 2 {
		return Totals{}, shared.ErrInsufficientLines
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for i, line := range lines {
		if line.AccountID == 0 {
			return Totals{}, fmt.Errorf("line %d: %w", i+1, shared.ErrMissingAccount)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return Totals{}, fmt.Errorf("line %d: negative amount: %w", i+1, shared.ErrEmptyLine)
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return Totals{}, fmt.Errorf("line %d: %w", i+1, shared.ErrAmbiguousLine)
		}
		if line.Debit.IsZero() && line.Credit.IsZero() {
			return Totals{}, fmt.Errorf("line %d: %w", i+1, shared.ErrEmptyLine)
		}
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}

	if totalDebit.Sub(totalCredit).Abs().GreaterThan(balanceTolerance) {
		return Totals{}, shared.UnbalancedError{TotalDebit: totalDebit, TotalCredit: totalCredit}
	}

	return Totals{Debit: totalDebit, Credit: totalCredit}, nil
}
