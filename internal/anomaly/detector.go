// Package anomaly classifies materially negative outstanding balances.
// Business-rule violations are first-class output here, never errors:
// finding them is the point of the reconciliation run.
package anomaly

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"supplier-ledger-engine/internal/models"
	"supplier-ledger-engine/pkg/logger"
)

// Reason strings attached to anomaly records. Compared and deduplicated
// by value, so they are fixed vocabulary.
const (
	ReasonOverpaid           = "Overpaid"
	ReasonAllocationExceeds  = "Allocation exceeds payment total"
	ReasonRTGSMismatch       = "RTGS amount mismatch"
	ReasonDuplicatePaymentID = "Duplicate paymentId"
	ReasonStaleReference     = "Stale paidFor reference"
)

// ProfileInput is the detector's view of one resolved profile. It is a
// plain carrier struct so the detector does not depend on the engine's
// result types.
type ProfileInput struct {
	Key        string
	Name       string
	FatherName string
	Address    string

	Transactions []*models.EnrichedTransaction
	Payments     []*models.Payment
}

// Record is one reported anomaly, JSON-serializable for export.
type Record struct {
	SrNo       string `json:"srNo"`
	ProfileKey string `json:"profileKey"`
	Name       string `json:"name"`
	FatherName string `json:"fatherName,omitempty"`
	Address    string `json:"address,omitempty"`

	OriginalAmount decimal.Decimal `json:"originalAmount"`
	TotalPaid      decimal.Decimal `json:"totalPaid"`
	TotalCd        decimal.Decimal `json:"totalCd"`
	Outstanding    decimal.Decimal `json:"outstanding"`
	Excess         decimal.Decimal `json:"excess"`

	Reasons []string `json:"reasons"`

	LastPaymentDate   *time.Time      `json:"lastPaymentDate,omitempty"`
	LastPaymentAmount decimal.Decimal `json:"lastPaymentAmount"`
}

// Config holds the detector thresholds.
type Config struct {
	// Balances above this (in absolute value) are material; anything
	// within it is floating-point noise.
	NoiseThreshold decimal.Decimal
	// Tolerance applied to the overpayment, allocation and RTGS checks
	MaterialTolerance decimal.Decimal
}

// DefaultConfig returns the detector thresholds used in production
func DefaultConfig() *Config {
	return &Config{
		NoiseThreshold:    decimal.New(1, -2),
		MaterialTolerance: decimal.New(5, -1),
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.NoiseThreshold.IsNegative() {
		return fmt.Errorf("noise threshold cannot be negative")
	}
	if c.MaterialTolerance.IsNegative() {
		return fmt.Errorf("material tolerance cannot be negative")
	}
	return nil
}

// Detector scans resolved profiles for settlement anomalies
type Detector struct {
	config *Config
	logger logger.Logger
}

// NewDetector creates a detector with the given configuration.
// A nil config gets the defaults.
func NewDetector(config *Config) *Detector {
	if config == nil {
		config = DefaultConfig()
	}
	return &Detector{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("anomaly_detector"),
	}
}

// Detect scans every profile and returns the anomaly records sorted by
// ascending outstanding balance, most negative first. knownSrNos is the
// serial-number set of the FULL transaction collection, used for stale
// reference checks across profile boundaries.
func (d *Detector) Detect(profiles []*ProfileInput, knownSrNos map[string]struct{}) []*Record {
	var records []*Record

	for _, profile := range profiles {
		records = append(records, d.detectProfile(profile, knownSrNos)...)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Outstanding.LessThan(records[j].Outstanding)
	})

	d.logger.WithFields(logger.Fields{
		"profiles":  len(profiles),
		"anomalies": len(records),
	}).Debug("Anomaly scan complete")

	return records
}

func (d *Detector) detectProfile(profile *ProfileInput, knownSrNos map[string]struct{}) []*Record {
	var records []*Record

	duplicateIDs := duplicatePaymentIDs(profile.Payments)
	paymentsByID := make(map[string]*models.Payment, len(profile.Payments))
	for _, payment := range profile.Payments {
		if _, exists := paymentsByID[payment.ID]; !exists {
			paymentsByID[payment.ID] = payment
		}
	}

	negLimit := d.config.NoiseThreshold.Neg()

	for _, tx := range profile.Transactions {
		if !tx.NetAmount.LessThan(negLimit) {
			continue
		}

		excess := tx.NetAmount.Abs()
		var reasons []string

		if excess.GreaterThan(d.config.MaterialTolerance) {
			reasons = append(reasons, ReasonOverpaid)
		}

		for _, alloc := range tx.Payments {
			payment, ok := paymentsByID[alloc.PaymentID]
			if ok {
				if payment.PaidForTotal().GreaterThan(payment.Amount.Add(d.config.MaterialTolerance)) {
					reasons = append(reasons, ReasonAllocationExceeds)
				}
				if payment.ReceiptType == models.ReceiptRTGS && payment.RtgsAmount != nil {
					diff := payment.RtgsAmount.Sub(payment.Amount).Abs()
					if diff.GreaterThan(d.config.MaterialTolerance) {
						reasons = append(reasons, ReasonRTGSMismatch)
					}
				}
			}
			if _, dup := duplicateIDs[alloc.PaymentID]; dup {
				reasons = append(reasons, ReasonDuplicatePaymentID)
			}
		}

		reasons = dedupeReasons(reasons)
		if d.suppressed(reasons, excess, tx.TotalCd) {
			continue
		}

		record := &Record{
			SrNo:           tx.SrNo,
			ProfileKey:     profile.Key,
			Name:           profile.Name,
			FatherName:     profile.FatherName,
			Address:        profile.Address,
			OriginalAmount: tx.OriginalNetAmount,
			TotalPaid:      tx.TotalPaid,
			TotalCd:        tx.TotalCd,
			Outstanding:    tx.NetAmount,
			Excess:         excess,
			Reasons:        reasons,
		}
		if last := lastAllocation(tx.Payments); last != nil {
			date := last.Date
			record.LastPaymentDate = &date
			record.LastPaymentAmount = last.Amount
		}
		records = append(records, record)
	}

	records = append(records, d.staleReferences(profile, knownSrNos)...)

	return records
}

// staleReferences reports paidFor entries naming serial numbers that do
// not exist anywhere in the transaction set. They never surface through
// a transaction scan, so they get standalone records attached to the
// profile holding the payment.
func (d *Detector) staleReferences(profile *ProfileInput, knownSrNos map[string]struct{}) []*Record {
	var records []*Record
	seen := make(map[string]struct{})

	for _, payment := range profile.Payments {
		for _, entry := range payment.PaidFor {
			if _, known := knownSrNos[entry.SrNo]; known {
				continue
			}
			if _, reported := seen[entry.SrNo]; reported {
				continue
			}
			seen[entry.SrNo] = struct{}{}

			date := payment.Date
			records = append(records, &Record{
				SrNo:              entry.SrNo,
				ProfileKey:        profile.Key,
				Name:              profile.Name,
				FatherName:        profile.FatherName,
				Address:           profile.Address,
				Reasons:           []string{ReasonStaleReference},
				LastPaymentDate:   &date,
				LastPaymentAmount: payment.Amount,
			})
		}
	}
	return records
}

// suppressed reports whether the record is explained entirely by the CD
// already folded into the net amount: the only finding is Overpaid and
// the excess is within the granted CD plus tolerance.
func (d *Detector) suppressed(reasons []string, excess, totalCd decimal.Decimal) bool {
	if len(reasons) == 0 {
		return true
	}
	if len(reasons) != 1 || reasons[0] != ReasonOverpaid {
		return false
	}
	return excess.LessThanOrEqual(totalCd.Add(d.config.MaterialTolerance))
}

// KnownSerials builds the stale-reference lookup set from the full
// transaction collection.
func KnownSerials(transactions []*models.Transaction) map[string]struct{} {
	known := make(map[string]struct{}, len(transactions))
	for _, tx := range transactions {
		known[tx.SrNo] = struct{}{}
	}
	return known
}

func duplicatePaymentIDs(payments []*models.Payment) map[string]struct{} {
	counts := make(map[string]int, len(payments))
	for _, payment := range payments {
		counts[payment.ID]++
	}
	dups := make(map[string]struct{})
	for id, n := range counts {
		if n > 1 {
			dups[id] = struct{}{}
		}
	}
	return dups
}

func dedupeReasons(reasons []string) []string {
	if len(reasons) < 2 {
		return reasons
	}
	seen := make(map[string]struct{}, len(reasons))
	out := reasons[:0]
	for _, reason := range reasons {
		if _, dup := seen[reason]; dup {
			continue
		}
		seen[reason] = struct{}{}
		out = append(out, reason)
	}
	return out
}

// lastAllocation returns the chronologically last allocation; the audit
// trail is already in payment date order.
func lastAllocation(allocs []models.PaymentAllocation) *models.PaymentAllocation {
	if len(allocs) == 0 {
		return nil
	}
	return &allocs[len(allocs)-1]
}
