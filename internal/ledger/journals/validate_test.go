package journals

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/harborview-hms/harborview/internal/ledger/shared"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestValidateLinesBalanced(t *testing.T) {
	totals, err := ValidateLines([]LineInput{
		{AccountID: 1, Debit: dec("110.00")},
		{AccountID: 2, Credit: dec("100.00")},
		{AccountID: 3, Credit: dec("10.00")},
	})
	require.NoError(t, err)
	require.Equal(t, "110.00", totals.Debit.StringFixed(2))
	require.Equal(t, "110.00", totals.Credit.StringFixed(2))
}

func TestValidateLinesWithinTolerance(t *testing.T) {
	// One cent of rounding drift is accepted.
	_, err := ValidateLines([]LineInput{
		{AccountID: 1, Debit: dec("100.00")},
		{AccountID: 2, Credit: dec("99.99")},
	})
	require.NoError(t, err)
}

func TestValidateLinesUnbalanced(t *testing.T) {
	_, err := ValidateLines([]LineInput{
		{AccountID: 1, Debit: dec("100.00")},
		{AccountID: 2, Credit: dec("99.98")},
	})
	var unbalanced shared.UnbalancedError
	require.ErrorAs(t, err, &unbalanced)
	require.Equal(t, "100", unbalanced.TotalDebit.String())
	require.Equal(t, "99.98", unbalanced.TotalCredit.String())
}

func TestValidateLinesTooFew(t *testing.T) {
	_, err := ValidateLines([]LineInput{{AccountID: 1, Debit: dec("50.00")}})
	require.ErrorIs(t, err, shared.ErrInsufficientLines)

	_, err = ValidateLines(nil)
	require.ErrorIs(t, err, shared.ErrInsufficientLines)
}

func TestValidateLinesMissingAccount(t *testing.T) {
	_, err := ValidateLines([]LineInput{
		{AccountID: 1, Debit: dec("50.00")},
		{AccountID: 0, Credit: dec("50.00")},
	})
	require.ErrorIs(t, err, shared.ErrMissingAccount)
	require.Contains(t, err.Error(), "line 2")
}

func TestValidateLinesBothSidesSet(t *testing.T) {
	_, err := ValidateLines([]LineInput{
		{AccountID: 1, Debit: dec("50.00"), Credit: dec("50.00")},
		{AccountID: 2, Credit: dec("50.00")},
	})
	require.ErrorIs(t, err, shared.ErrAmbiguousLine)
}

func TestValidateLinesEmptyLine(t *testing.T) {
	_, err := ValidateLines([]LineInput{
		{AccountID: 1, Debit: dec("50.00")},
		{AccountID: 2},
	})
	require.ErrorIs(t, err, shared.ErrEmptyLine)
}

func TestValidateLinesNegativeAmount(t *testing.T) {
	_, err := ValidateLines([]LineInput{
		{AccountID: 1, Debit: dec("-50.00")},
		{AccountID: 2, Credit: dec("50.00")},
	})
	require.ErrorIs(t, err, shared.ErrEmptyLine)
}

func TestValidateLinesRuleOrder(t *testing.T) {
	// A line with no account and no amount reports the missing account first.
	_, err := ValidateLines([]LineInput{
		{AccountID: 1, Debit: dec("50.00")},
		{AccountID: 0},
	})
	require.ErrorIs(t, err, shared.ErrMissingAccount)
}

func TestValidateLinesIdempotent(t *testing.T) {
	lines := []LineInput{
		{AccountID: 1, Debit: dec("75.25")},
		{AccountID: 2, Credit: dec("75.25")},
	}
	first, err1 := ValidateLines(lines)
	second, err2 := ValidateLines(lines)
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.True(t, first.Debit.Equal(second.Debit))
	require.True(t, first.Credit.Equal(second.Credit))
}
