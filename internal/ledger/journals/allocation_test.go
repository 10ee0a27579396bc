package journals

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func sumAllocations(lines []AllocationLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}
	return total
}

func TestAllocateRevenueLastLineAbsorbsRounding(t *testing.T) {
	// Three equal thirds of 100.00 cannot round cleanly; the last line absorbs
	// the remainder so the split reconciles exactly.
	third := dec("33.333333")
	lines := AllocateRevenue(dec("100.00"), []AllocationItem{
		{AccountID: 1, Amount: third},
		{AccountID: 2, Amount: third},
		{AccountID: 3, Amount: third},
	}, 0)

	require.Len(t, lines, 3)
	require.Equal(t, "33.33", lines[0].Amount.StringFixed(2))
	require.Equal(t, "33.33", lines[1].Amount.StringFixed(2))
	require.Equal(t, "33.34", lines[2].Amount.StringFixed(2))
	require.True(t, sumAllocations(lines).Equal(dec("100.00")))
}

func TestAllocateRevenueSingleItem(t *testing.T) {
	lines := AllocateRevenue(dec("42.50"), []AllocationItem{
		{AccountID: 7, Amount: dec("42.50")},
	}, 0)
	require.Len(t, lines, 1)
	require.Equal(t, int64(7), lines[0].AccountID)
	require.Equal(t, "42.50", lines[0].Amount.StringFixed(2))
}

func TestAllocateRevenueNoItemsUsesFallback(t *testing.T) {
	lines := AllocateRevenue(dec("80.00"), nil, 99)
	require.Len(t, lines, 1)
	require.Equal(t, int64(99), lines[0].AccountID)
	require.Equal(t, "80.00", lines[0].Amount.StringFixed(2))
}

func TestAllocateRevenueNoItemsNoFallback(t *testing.T) {
	require.Nil(t, AllocateRevenue(dec("80.00"), nil, 0))
}

func TestAllocateRevenueMissingAccountFallsBack(t *testing.T) {
	lines := AllocateRevenue(dec("60.00"), []AllocationItem{
		{AccountID: 0, Amount: dec("20.00")},
		{AccountID: 5, Amount: dec("40.00")},
	}, 99)
	require.Len(t, lines, 2)
	require.Equal(t, int64(99), lines[0].AccountID)
	require.Equal(t, int64(5), lines[1].AccountID)
}

func TestAllocateRevenueSkipsUnattributedWithoutFallback(t *testing.T) {
	lines := AllocateRevenue(dec("60.00"), []AllocationItem{
		{AccountID: 0, Amount: dec("20.00")},
		{AccountID: 5, Amount: dec("40.00")},
	}, 0)
	require.Len(t, lines, 1)
	require.Equal(t, int64(5), lines[0].AccountID)
	// The skipped item's share is forfeited, not redistributed.
	require.Equal(t, "40.00", sumAllocations(lines).StringFixed(2))
}

func TestAllocateRevenueDropsNonPositiveShares(t *testing.T) {
	// The first item's rounded share already covers the subtotal, leaving the
	// last line with a non-positive remainder that gets dropped.
	lines := AllocateRevenue(dec("50.00"), []AllocationItem{
		{AccountID: 1, Amount: dec("50.00")},
		{AccountID: 2, Amount: dec("10.00")},
	}, 0)
	require.Len(t, lines, 1)
	require.Equal(t, int64(1), lines[0].AccountID)
	require.Equal(t, "50.00", lines[0].Amount.StringFixed(2))
}

func TestAllocateRevenueForfeitComputedBeforeFiltering(t *testing.T) {
	// The middle item has no account and is skipped, but its rounded share
	// still participates in the running total, so the last line's remainder is
	// computed against the full item list.
	lines := AllocateRevenue(dec("90.00"), []AllocationItem{
		{AccountID: 1, Amount: dec("30.00")},
		{AccountID: 0, Amount: dec("30.00")},
		{AccountID: 3, Amount: dec("30.00")},
	}, 0)
	require.Len(t, lines, 2)
	require.Equal(t, "30.00", lines[0].Amount.StringFixed(2))
	require.Equal(t, "30.00", lines[1].Amount.StringFixed(2))
	require.Equal(t, "60.00", sumAllocations(lines).StringFixed(2))
}

func TestAllocateRevenueZeroSubtotalNoFallbackLine(t *testing.T) {
	require.Nil(t, AllocateRevenue(decimal.Zero, nil, 99))
}
