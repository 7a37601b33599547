package allocation

import (
	"github.com/shopspring/decimal"

	"supplier-ledger-engine/internal/models"
	"supplier-ledger-engine/pkg/logger"
)

// Engine derives settlement fields for a profile's transactions
type Engine struct {
	logger logger.Logger
}

// NewEngine creates an allocation engine
func NewEngine() *Engine {
	return &Engine{
		logger: logger.GetGlobalLogger().WithComponent("allocation_engine"),
	}
}

// Allocate produces enriched copies of the profile's transactions with
// TotalPaid, TotalCd, NetAmount and the ordered PaymentAllocation audit
// trail attached. Inputs are never mutated.
//
// Monetary rounding happens after each derived sum, not before: TotalPaid
// and TotalCd are rounded once over their sums, and NetAmount applies the
// (-0.01, 0) noise clamp.
func (e *Engine) Allocate(transactions []*models.Transaction, payments []*models.Payment) []*models.EnrichedTransaction {
	tracker := BuildPaidTracker(payments)

	enriched := make([]*models.EnrichedTransaction, 0, len(transactions))
	for _, tx := range transactions {
		enriched = append(enriched, e.allocateOne(tx, tracker))
	}
	return enriched
}

// allocateOne settles one transaction against every payment referencing it
func (e *Engine) allocateOne(tx *models.Transaction, tracker *PaidTracker) *models.EnrichedTransaction {
	result := &models.EnrichedTransaction{Transaction: *tx}

	totalPaid := decimal.Zero
	totalCd := decimal.Zero

	for _, payment := range tracker.Ordered() {
		for _, entry := range payment.PaidFor {
			if entry.SrNo != tx.SrNo {
				continue
			}

			cd := cdShare(payment, entry)
			totalPaid = totalPaid.Add(entry.Amount)
			totalCd = totalCd.Add(cd)

			result.Payments = append(result.Payments, models.PaymentAllocation{
				PaymentID:      payment.ID,
				Amount:         entry.Amount,
				CdAmount:       cd,
				ReceiptType:    payment.ReceiptType,
				Date:           payment.Date,
				PreviouslyPaid: tracker.PreviouslyPaid(entry.SrNo, payment.ID),
			})
		}
	}

	result.TotalPaid = models.Round2(totalPaid)
	result.TotalCd = models.Round2(totalCd)
	result.NetAmount = models.ClampNet(tx.OriginalNetAmount.Sub(result.TotalPaid).Sub(result.TotalCd))

	return result
}
