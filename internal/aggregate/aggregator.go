// Package aggregate derives per-profile summary totals from enriched
// transactions and linked payments. All sums are plain accumulation;
// the result is independent of input order.
package aggregate

import (
	"github.com/shopspring/decimal"

	"supplier-ledger-engine/internal/models"
)

// ProfileTotals is the summary block attached to each supplier profile.
// TotalPaidTransactions and TotalPaidPayments are deliberately kept
// separate: the first sums settlement allocations, the second raw
// payment amounts, and a gap between them is itself a signal.
type ProfileTotals struct {
	TransactionCount int `json:"transactionCount"`
	PaymentCount     int `json:"paymentCount"`

	TotalGrossWeight decimal.Decimal `json:"totalGrossWeight"`
	TotalTeirWeight  decimal.Decimal `json:"totalTeirWeight"`
	TotalFinalWeight decimal.Decimal `json:"totalFinalWeight"`
	TotalKartaWeight decimal.Decimal `json:"totalKartaWeight"`
	TotalNetWeight   decimal.Decimal `json:"totalNetWeight"`

	TotalAmount         decimal.Decimal `json:"totalAmount"`
	TotalOriginalAmount decimal.Decimal `json:"totalOriginalAmount"`

	TotalKartaAmount  decimal.Decimal `json:"totalKartaAmount"`
	TotalLabourAmount decimal.Decimal `json:"totalLabourAmount"`
	TotalKantaAmount  decimal.Decimal `json:"totalKantaAmount"`
	TotalOtherAmount  decimal.Decimal `json:"totalOtherAmount"`
	// Signed by the per-transaction BrokerageAdd flag
	TotalBrokerageAmount decimal.Decimal `json:"totalBrokerageAmount"`

	TotalPaidTransactions decimal.Decimal `json:"totalPaidTransactions"`
	TotalPaidPayments     decimal.Decimal `json:"totalPaidPayments"`
	TotalCd               decimal.Decimal `json:"totalCd"`

	// Authoritative outstanding balance: the sum of per-transaction
	// net amounts, never re-derived from the other totals.
	TotalOutstanding decimal.Decimal `json:"totalOutstanding"`
	// Transactions with at least one rupee outstanding
	OutstandingCount int `json:"outstandingCount"`

	AvgRate          decimal.Decimal `json:"avgRate"`
	AvgOriginalPrice decimal.Decimal `json:"avgOriginalPrice"`
	AvgKartaPct      decimal.Decimal `json:"avgKartaPct"`
	AvgLabourRate    decimal.Decimal `json:"avgLabourRate"`

	MinRate decimal.Decimal `json:"minRate"`
	MaxRate decimal.Decimal `json:"maxRate"`
}

var outstandingFloor = decimal.NewFromInt(1)

var hundred = decimal.NewFromInt(100)

// Aggregate computes ProfileTotals over one profile's enriched
// transactions and linked payments.
func Aggregate(transactions []*models.EnrichedTransaction, payments []*models.Payment) *ProfileTotals {
	totals := &ProfileTotals{
		TransactionCount: len(transactions),
		PaymentCount:     len(payments),
	}

	kartaPctSum := decimal.Zero
	labourRateSum := decimal.Zero
	ratedCount := 0
	rateSeen := false

	for _, tx := range transactions {
		totals.TotalGrossWeight = totals.TotalGrossWeight.Add(tx.GrossWeight)
		totals.TotalTeirWeight = totals.TotalTeirWeight.Add(tx.TeirWeight)
		totals.TotalFinalWeight = totals.TotalFinalWeight.Add(tx.FinalWeight)
		totals.TotalKartaWeight = totals.TotalKartaWeight.Add(tx.KartaWeight)
		totals.TotalNetWeight = totals.TotalNetWeight.Add(tx.NetWeight)

		totals.TotalAmount = totals.TotalAmount.Add(tx.Amount)
		totals.TotalOriginalAmount = totals.TotalOriginalAmount.Add(tx.OriginalNetAmount)

		totals.TotalKartaAmount = totals.TotalKartaAmount.Add(tx.KartaAmount)
		totals.TotalLabourAmount = totals.TotalLabourAmount.Add(tx.LabourAmount)
		totals.TotalKantaAmount = totals.TotalKantaAmount.Add(tx.KantaAmount)
		totals.TotalOtherAmount = totals.TotalOtherAmount.Add(tx.OtherAmount)
		if tx.BrokerageAdd {
			totals.TotalBrokerageAmount = totals.TotalBrokerageAmount.Add(tx.BrokerageAmount)
		} else {
			totals.TotalBrokerageAmount = totals.TotalBrokerageAmount.Sub(tx.BrokerageAmount)
		}

		totals.TotalPaidTransactions = totals.TotalPaidTransactions.Add(tx.TotalPaid)
		totals.TotalCd = totals.TotalCd.Add(tx.TotalCd)
		totals.TotalOutstanding = totals.TotalOutstanding.Add(tx.NetAmount)

		if tx.NetAmount.GreaterThanOrEqual(outstandingFloor) {
			totals.OutstandingCount++
		}

		if tx.Rate.IsPositive() {
			ratedCount++
			if !tx.GrossWeight.IsZero() {
				kartaPctSum = kartaPctSum.Add(tx.KartaWeight.Mul(hundred).Div(tx.GrossWeight))
			}
			if !tx.FinalWeight.IsZero() {
				labourRateSum = labourRateSum.Add(tx.LabourAmount.Div(tx.FinalWeight))
			}
			if !rateSeen || tx.Rate.LessThan(totals.MinRate) {
				totals.MinRate = tx.Rate
			}
			if !rateSeen || tx.Rate.GreaterThan(totals.MaxRate) {
				totals.MaxRate = tx.Rate
			}
			rateSeen = true
		}
	}

	for _, payment := range payments {
		totals.TotalPaidPayments = totals.TotalPaidPayments.Add(payment.Amount)
	}

	if !totals.TotalFinalWeight.IsZero() {
		totals.AvgRate = totals.TotalAmount.Div(totals.TotalFinalWeight)
	}
	if !totals.TotalNetWeight.IsZero() {
		totals.AvgOriginalPrice = totals.TotalOriginalAmount.Div(totals.TotalNetWeight)
	}
	if ratedCount > 0 {
		n := decimal.NewFromInt(int64(ratedCount))
		totals.AvgKartaPct = kartaPctSum.Div(n)
		totals.AvgLabourRate = labourRateSum.Div(n)
	}

	return totals
}
