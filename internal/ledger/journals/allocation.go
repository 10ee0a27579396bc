package journals

import "github.com/shopspring/decimal"

// AllocationItem is one distribution target: an account and its raw share of the
// subtotal, as carried by the originating document's line item.
type AllocationItem struct {
	AccountID   int64
	Amount      decimal.Decimal
	Description string
}

// AllocationLine is an emitted revenue split.
type AllocationLine struct {
	AccountID   int64
	Amount      decimal.Decimal
	Description string
}

// AllocateRevenue splits subtotal across the items without creating or losing a
// currency unit to rounding. Every item's share is rounded to two decimals and
// accumulated; the final item receives subtotal minus the running total, so the
// computed shares always reconcile to the subtotal exactly.
//
// Items without an account reference fall back to fallbackAccountID; with no
// fallback the item is skipped. With no items at all the whole subtotal goes to the
// fallback account as a single line.
//
// Shares that come out zero or negative are dropped AFTER the last-line adjustment
// is computed: a dropped line forfeits its share rather than redistributing it, so
// the retained lines can sum below the subtotal. Callers re-validate the assembled
// entry, which is what surfaces that edge as an unbalanced failure instead of a
// silently skewed posting.
func AllocateRevenue(subtotal decimal.Decimal, items []AllocationItem, fallbackAccountID int64) []AllocationLine {
	if len(items) == 0 {
		if fallbackAccountID == 0 || !subtotal.IsPositive() {
			return nil
		}
		return []AllocationLine{{AccountID: fallbackAccountID, Amount: subtotal.Round(2)}}
	}

	shares := make([]decimal.Decimal, len(items))
	running := decimal.Zero
	last := len(items) - 1
	for i, item := range items {
		if i == last {
			shares[i] = subtotal.Sub(running)
			break
		}
		shares[i] = item.Amount.Round(2)
		running = running.Add(shares[i])
	}

	lines := make([]AllocationLine, 0, len(items))
	for i, item := range items {
		accountID := item.AccountID
		if accountID == 0 {
			accountID = fallbackAccountID
		}
		if accountID == 0 {
			continue
		}
		if !shares[i].IsPositive() {
			continue
		}
		lines = append(lines, AllocationLine{
			AccountID:   accountID,
			Amount:      shares[i],
			Description: item.Description,
		})
	}
	return lines
}
