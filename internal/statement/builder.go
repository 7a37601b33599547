// Package statement renders a profile's transactions and payments as a
// chronologically merged running-balance ledger view.
package statement

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"supplier-ledger-engine/internal/models"
	"supplier-ledger-engine/pkg/logger"
)

// Line is one row of the statement: a transaction debit or a payment
// credit, with the CD portion carried as its own column.
type Line struct {
	Date        time.Time `json:"date"`
	DateDisplay string    `json:"dateDisplay"`
	// False when the raw date string resisted every parse rule; such
	// lines sort after every dated line.
	DateParsed bool `json:"dateParsed"`

	SrNo      string `json:"srNo,omitempty"`
	PaymentID string `json:"paymentId,omitempty"`

	Description string             `json:"description"`
	ReceiptType models.ReceiptType `json:"receiptType,omitempty"`
	// The receipt type as entered, for display; ReceiptType keeps the
	// Cash/RTGS classification.
	Receipt string `json:"receipt,omitempty"`

	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
	Cd      decimal.Decimal `json:"cd"`
	Balance decimal.Decimal `json:"balance"`

	// Sort tie-break: the linked transaction's date for payments,
	// the line's own date otherwise.
	reference time.Time
}

// Totals is the statement footer.
type Totals struct {
	TotalDebit    decimal.Decimal `json:"totalDebit"`
	TotalPaid     decimal.Decimal `json:"totalPaid"`
	TotalCashPaid decimal.Decimal `json:"totalCashPaid"`
	TotalRtgsPaid decimal.Decimal `json:"totalRtgsPaid"`
	TotalCd       decimal.Decimal `json:"totalCd"`
	Outstanding   decimal.Decimal `json:"outstanding"`
}

// Statement is the ordered ledger view plus its totals.
type Statement struct {
	Lines  []Line `json:"lines"`
	Totals Totals `json:"totals"`
}

// BuilderConfig controls chunked processing.
type BuilderConfig struct {
	// Lines processed between yield points. The sane range is 50 to
	// 200; output never depends on the value.
	ChunkSize int
}

// DefaultBuilderConfig returns the default builder configuration
func DefaultBuilderConfig() *BuilderConfig {
	return &BuilderConfig{ChunkSize: 100}
}

// Validate checks the configuration for invalid values
func (c *BuilderConfig) Validate() error {
	if c.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	return nil
}

// YieldFunc is called between chunks with progress so an interactive
// host stays responsive over large datasets.
type YieldFunc func(processed, total int)

// Builder assembles statements for one profile at a time.
type Builder struct {
	config *BuilderConfig
	logger logger.Logger
}

// NewBuilder creates a statement builder. A nil config gets the defaults.
func NewBuilder(config *BuilderConfig) *Builder {
	if config == nil {
		config = DefaultBuilderConfig()
	}
	return &Builder{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("statement_builder"),
	}
}

const displayFormat = "02 Jan 2006"

// Build merges the profile's transactions and payments into one ordered
// sequence with a running balance. The yield callback may be nil.
// Output is identical for every chunk size.
func (b *Builder) Build(ctx context.Context, transactions []*models.EnrichedTransaction, payments []*models.Payment, yield YieldFunc) (*Statement, error) {
	lines := make([]Line, 0, len(transactions)+len(payments))

	txDates := make(map[string]time.Time, len(transactions))
	for _, tx := range transactions {
		date, parsed := transactionDate(tx)
		txDates[tx.SrNo] = date
		lines = append(lines, Line{
			Date:        date,
			DateDisplay: displayDate(date, parsed, tx.DateRaw),
			DateParsed:  parsed,
			SrNo:        tx.SrNo,
			Description: transactionDescription(&tx.Transaction),
			Debit:       tx.OriginalNetAmount,
			reference:   date,
		})
	}

	totals := Totals{}
	for _, payment := range payments {
		reference := paymentReference(payment, txDates)
		date, parsed := paymentDate(payment, reference)

		cd := payment.CdAmount
		lines = append(lines, Line{
			Date:        date,
			DateDisplay: displayDate(date, parsed, payment.DateRaw),
			DateParsed:  parsed,
			PaymentID:   payment.ID,
			Description: paymentDescription(payment),
			ReceiptType: payment.ReceiptType,
			Receipt:     payment.ReceiptLabel(),
			Credit:      payment.Amount,
			Cd:          cd,
			reference:   resolveReference(reference, date),
		})

		totals.TotalPaid = totals.TotalPaid.Add(payment.Amount)
		totals.TotalCd = totals.TotalCd.Add(cd)
		switch payment.ReceiptType {
		case models.ReceiptCash:
			totals.TotalCashPaid = totals.TotalCashPaid.Add(payment.Amount)
		case models.ReceiptRTGS:
			totals.TotalRtgsPaid = totals.TotalRtgsPaid.Add(payment.Amount)
		}
	}

	sortLines(lines)

	total := len(lines)
	balance := decimal.Zero
	for start := 0; start < total; start += b.config.ChunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + b.config.ChunkSize
		if end > total {
			end = total
		}
		for i := start; i < end; i++ {
			balance = balance.Add(lines[i].Debit).Sub(lines[i].Credit).Sub(lines[i].Cd)
			lines[i].Balance = models.Round2(balance)
			totals.TotalDebit = totals.TotalDebit.Add(lines[i].Debit)
		}

		if yield != nil {
			yield(end, total)
		}
	}

	totals.Outstanding = models.Round2(balance)

	b.logger.WithFields(logger.Fields{
		"lines":       total,
		"outstanding": totals.Outstanding.String(),
	}).Debug("Statement built")

	return &Statement{Lines: lines, Totals: totals}, nil
}

// sortLines orders by parsed date ascending with the resolved reference
// date as tie-break; unparseable dates sort after everything else. The
// sort is stable so equal lines keep input order.
func sortLines(lines []Line) {
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if a.DateParsed != b.DateParsed {
			return a.DateParsed
		}
		if !a.DateParsed {
			return false
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.reference.Before(b.reference)
	})
}

func transactionDate(tx *models.EnrichedTransaction) (time.Time, bool) {
	if !tx.Date.IsZero() {
		return tx.Date, true
	}
	return ParseDate(tx.DateRaw, time.Time{})
}

// paymentReference resolves the linked transaction's date from the
// first paidFor entry that names a known serial number.
func paymentReference(payment *models.Payment, txDates map[string]time.Time) time.Time {
	for _, entry := range payment.PaidFor {
		if date, ok := txDates[entry.SrNo]; ok && !date.IsZero() {
			return date
		}
	}
	return time.Time{}
}

// paymentDate resolves the payment line's date. An ambiguous two-number
// raw string is always re-read against the linked transaction's date,
// which may overturn the day-first reading taken at load time.
func paymentDate(payment *models.Payment, reference time.Time) (time.Time, bool) {
	if !reference.IsZero() && ambiguousDate.MatchString(strings.TrimSpace(payment.DateRaw)) {
		return ParseDate(payment.DateRaw, reference)
	}
	if !payment.Date.IsZero() {
		return payment.Date, true
	}
	return ParseDate(payment.DateRaw, reference)
}

func resolveReference(reference, own time.Time) time.Time {
	if !reference.IsZero() {
		return reference
	}
	return own
}

func displayDate(date time.Time, parsed bool, raw string) string {
	if parsed {
		return date.Format(displayFormat)
	}
	return raw
}

func transactionDescription(tx *models.Transaction) string {
	if tx.Commodity != "" {
		return fmt.Sprintf("Purchase %s (%s)", tx.SrNo, tx.Commodity)
	}
	return fmt.Sprintf("Purchase %s", tx.SrNo)
}

func paymentDescription(payment *models.Payment) string {
	if label := payment.ReceiptLabel(); label != "" {
		return fmt.Sprintf("Payment %s (%s)", payment.ID, label)
	}
	return fmt.Sprintf("Payment %s", payment.ID)
}
