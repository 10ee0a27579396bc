// Package shared holds the error taxonomy of the ledger core. Handlers translate
// these into HTTP statuses; services and repositories return them as-is.
package shared

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientLines indicates fewer than two lines; double-entry needs a
	// debit leg and a credit leg.
	ErrInsufficientLines = errors.New("ledger: journal entry requires at least two lines")
	// ErrMissingAccount indicates a line without an account reference.
	ErrMissingAccount = errors.New("ledger: journal line is missing an account reference")
	// ErrAmbiguousLine indicates a line carrying both a debit and a credit.
	ErrAmbiguousLine = errors.New("ledger: journal line cannot carry both a debit and a credit")
	// ErrEmptyLine indicates a line carrying neither a debit nor a credit.
	ErrEmptyLine = errors.New("ledger: journal line must carry a debit or a credit")
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrImmutableEntry indicates a mutation attempt on a non-draft entry without override.
	ErrImmutableEntry = errors.New("ledger: entry is no longer a draft and cannot be modified")
	// ErrDuplicateNumber indicates an entry number collision.
	ErrDuplicateNumber = errors.New("ledger: entry number already exists")
	// ErrInvalidTransition indicates a lifecycle regression or repeat transition.
	ErrInvalidTransition = errors.New("ledger: invalid status transition")
	// ErrNoControlAccount indicates the configured control account could not be resolved.
	ErrNoControlAccount = errors.New("ledger: control account is not configured or inactive")
)

// UnbalancedError reports a debit/credit mismatch. Both totals are carried so the
// caller can see exactly what was summed.
type UnbalancedError struct {
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

func (e UnbalancedError) Error() string {
	return fmt.Sprintf("ledger: entry does not balance: total debit %s, total credit %s",
		e.TotalDebit.String(), e.TotalCredit.String())
}

// InvalidAccountsError lists account ids that are unknown or inactive.
type InvalidAccountsError struct {
	AccountIDs []int64
}

func (e InvalidAccountsError) Error() string {
	ids := make([]string, len(e.AccountIDs))
	for i, id := range e.AccountIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return "ledger: unknown or inactive accounts: " + strings.Join(ids, ", ")
}
