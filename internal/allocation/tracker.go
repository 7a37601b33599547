// Package allocation settles payments against transactions: the
// chronological paid tracker precomputes cumulative settlement per
// (transaction, payment) pair in a single forward pass, and the engine
// derives per-transaction paid/cash-discount/outstanding figures from it.
package allocation

import (
	"sort"

	"github.com/shopspring/decimal"

	"supplier-ledger-engine/internal/models"
)

// pairKey identifies one (transaction, payment) contribution
type pairKey struct {
	srNo      string
	paymentID string
}

// PaidTracker holds, for every (transaction, payment) pair, the amount
// already settled toward that transaction before that payment. Built in
// O(n) over payments sorted chronologically, replacing a per-pair rescan.
//
// Order sensitivity is the contract: the tracker's own stable sort, not
// input order, determines the progression. Payments without a parseable
// date sort first, keeping their relative input order.
type PaidTracker struct {
	ordered    []*models.Payment
	previously map[pairKey]decimal.Decimal
	cumulative map[string]decimal.Decimal
}

// BuildPaidTracker runs the forward pass over a profile's payments.
// Each paidFor entry's CD-adjusted contribution (paid amount plus its
// cash-discount share) is recorded against the running total only after
// the pair's "previously paid" value has been captured.
func BuildPaidTracker(payments []*models.Payment) *PaidTracker {
	ordered := make([]*models.Payment, len(payments))
	copy(ordered, payments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	tracker := &PaidTracker{
		ordered:    ordered,
		previously: make(map[pairKey]decimal.Decimal),
		cumulative: make(map[string]decimal.Decimal),
	}

	for _, payment := range ordered {
		for _, entry := range payment.PaidFor {
			key := pairKey{srNo: entry.SrNo, paymentID: payment.ID}
			if _, seen := tracker.previously[key]; !seen {
				tracker.previously[key] = tracker.cumulative[entry.SrNo]
			}
			contribution := entry.Amount.Add(cdShare(payment, entry))
			tracker.cumulative[entry.SrNo] = tracker.cumulative[entry.SrNo].Add(contribution)
		}
	}

	return tracker
}

// Ordered returns the payments in the tracker's chronological order
func (t *PaidTracker) Ordered() []*models.Payment {
	return t.ordered
}

// PreviouslyPaid returns the cumulative amount settled toward the
// transaction before the given payment
func (t *PaidTracker) PreviouslyPaid(srNo, paymentID string) decimal.Decimal {
	return t.previously[pairKey{srNo: srNo, paymentID: paymentID}]
}

// CumulativePaid returns the final settled total for a transaction
func (t *PaidTracker) CumulativePaid(srNo string) decimal.Decimal {
	return t.cumulative[srNo]
}

// cdShare resolves one paidFor entry's cash-discount contribution.
// Priority rule, preserved exactly: an explicit per-entry cdAmount wins;
// otherwise the payment-level CdAmount is split proportionally by the
// entry's share of the paidFor total, rounded to two places.
func cdShare(payment *models.Payment, entry models.PaidForEntry) decimal.Decimal {
	if entry.CdAmount != nil {
		return *entry.CdAmount
	}
	if payment.CdAmount.IsZero() {
		return decimal.Zero
	}
	total := payment.PaidForTotal()
	if total.IsZero() {
		return decimal.Zero
	}
	return models.Round2(payment.CdAmount.Mul(entry.Amount).Div(total))
}
