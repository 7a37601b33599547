// Package models defines the record types shared by the reconciliation
// engine: raw purchase transactions, raw payments, and the derived
// allocation records attached to enriched transactions.
//
// All monetary values are decimal.Decimal. Rounding is always two places,
// half away from zero (Round2); outstanding balances inside (-0.01, 0)
// are floating-point noise and clamp to exactly zero (ClampNet).
package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptType represents the payment instrument recorded on a receipt
type ReceiptType string

const (
	ReceiptCash  ReceiptType = "Cash"
	ReceiptRTGS  ReceiptType = "RTGS"
	ReceiptGov   ReceiptType = "Gov."
	ReceiptOther ReceiptType = "Other"
)

// String returns the string representation of ReceiptType
func (r ReceiptType) String() string {
	return string(r)
}

// srNoPattern is the serial number format: "S" followed by five digits
var srNoPattern = regexp.MustCompile(`^S\d{5}$`)

// FormatSrNo renders a numeric sequence as a transaction serial number
func FormatSrNo(n int) string {
	return fmt.Sprintf("S%05d", n)
}

// ValidSrNo reports whether a string is a well-formed serial number
func ValidSrNo(s string) bool {
	return srNoPattern.MatchString(s)
}

// Transaction represents a single purchase/procurement event as entered.
// Derived settlement fields live on EnrichedTransaction; raw transactions
// are never mutated by the engine.
type Transaction struct {
	SrNo    string    `json:"srNo"`
	Date    time.Time `json:"date"`
	DateRaw string    `json:"dateRaw,omitempty"`

	// Supplier identity as entered by the clerk
	Name       string `json:"name"`
	FatherName string `json:"fatherName"`
	Address    string `json:"address"`
	Contact    string `json:"contact,omitempty"`

	Commodity string `json:"commodity,omitempty"`
	Variety   string `json:"variety,omitempty"`

	GrossWeight decimal.Decimal `json:"grossWeight"`
	TeirWeight  decimal.Decimal `json:"teirWeight"`
	FinalWeight decimal.Decimal `json:"finalWeight"`
	KartaWeight decimal.Decimal `json:"kartaWeight"`
	NetWeight   decimal.Decimal `json:"netWeight"`

	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`

	KartaAmount     decimal.Decimal `json:"kartaAmount"`
	LabourAmount    decimal.Decimal `json:"labourAmount"`
	KantaAmount     decimal.Decimal `json:"kantaAmount"`
	OtherAmount     decimal.Decimal `json:"otherAmount"`
	BrokerageAmount decimal.Decimal `json:"brokerageAmount"`
	BrokerageAdd    bool            `json:"brokerageAdd"`

	// Amount owed before any payment
	OriginalNetAmount decimal.Decimal `json:"originalNetAmount"`
}

// Validate performs structural validation on the Transaction.
// A missing serial number is the only hard failure; every other
// malformation is tolerated downstream.
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.SrNo) == "" {
		return fmt.Errorf("transaction serial number cannot be empty")
	}
	return nil
}

// String returns a string representation of the Transaction
func (t *Transaction) String() string {
	return fmt.Sprintf("Transaction{SrNo: %s, Name: %s, Original: %s}",
		t.SrNo, t.Name, t.OriginalNetAmount.StringFixed(2))
}

// PaidForEntry links a payment to one transaction it settles
type PaidForEntry struct {
	SrNo   string          `json:"srNo"`
	Amount decimal.Decimal `json:"amount"`
	// Explicit per-entry cash discount; when nil the entry's CD share is
	// derived proportionally from the payment-level CdAmount.
	CdAmount *decimal.Decimal `json:"cdAmount,omitempty"`
}

// Payment represents a payment record. Read-only input to the engine.
type Payment struct {
	ID      string    `json:"id"`
	Date    time.Time `json:"date"`
	DateRaw string    `json:"dateRaw,omitempty"`

	ReceiptType ReceiptType `json:"receiptType"`
	// The receipt type as entered; the vocabulary is open, so values
	// outside the known set classify as Other but keep their label.
	ReceiptTypeRaw string          `json:"receiptTypeRaw,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	// Distinct RTGS amount when the receipt records one; fallback
	// precedence is RtgsAmount ?? Amount.
	RtgsAmount *decimal.Decimal `json:"rtgsAmount,omitempty"`
	CdAmount   decimal.Decimal  `json:"cdAmount"`

	PaidFor []PaidForEntry `json:"paidFor,omitempty"`

	// Identity fields used only when PaidFor is empty
	Name       string `json:"name,omitempty"`
	FatherName string `json:"fatherName,omitempty"`
	Address    string `json:"address,omitempty"`

	// Outsider payments have no transaction link and are matched to a
	// profile purely by identity; unmatched ones get a synthesized profile.
	Outsider bool `json:"outsider,omitempty"`
}

// Validate performs structural validation on the Payment
func (p *Payment) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("payment id cannot be empty")
	}
	return nil
}

// ReceiptLabel returns the receipt type for display: the entered value
// when the record carries one, the classification otherwise.
func (p *Payment) ReceiptLabel() string {
	if p.ReceiptTypeRaw != "" {
		return p.ReceiptTypeRaw
	}
	return string(p.ReceiptType)
}

// EffectiveRtgsAmount resolves the RtgsAmount ?? Amount fallback
func (p *Payment) EffectiveRtgsAmount() decimal.Decimal {
	if p.RtgsAmount != nil {
		return *p.RtgsAmount
	}
	return p.Amount
}

// PaidForTotal sums the allocated amounts across the PaidFor list
func (p *Payment) PaidForTotal() decimal.Decimal {
	total := decimal.Zero
	for _, entry := range p.PaidFor {
		total = total.Add(entry.Amount)
	}
	return total
}

// References reports whether the payment's PaidFor list names the serial number
func (p *Payment) References(srNo string) bool {
	for _, entry := range p.PaidFor {
		if entry.SrNo == srNo {
			return true
		}
	}
	return false
}

// String returns a string representation of the Payment
func (p *Payment) String() string {
	return fmt.Sprintf("Payment{ID: %s, Type: %s, Amount: %s}",
		p.ID, p.ReceiptLabel(), p.Amount.StringFixed(2))
}

// PaymentAllocation is one payment's contribution to one transaction,
// the audit trail behind TotalPaid/TotalCd. Derived, never persisted.
type PaymentAllocation struct {
	PaymentID   string          `json:"paymentId"`
	Amount      decimal.Decimal `json:"amount"`
	CdAmount    decimal.Decimal `json:"cdAmount"`
	ReceiptType ReceiptType     `json:"receiptType"`
	Date        time.Time       `json:"date"`
	// Cumulative amount already settled toward the transaction before
	// this payment, in chronological payment order.
	PreviouslyPaid decimal.Decimal `json:"previouslyPaid"`
}

// EnrichedTransaction is a Transaction plus the settlement fields derived
// by the allocation engine. The engine produces new enriched records
// instead of mutating inputs.
type EnrichedTransaction struct {
	Transaction

	TotalPaid decimal.Decimal     `json:"totalPaid"`
	TotalCd   decimal.Decimal     `json:"totalCd"`
	NetAmount decimal.Decimal     `json:"netAmount"`
	Payments  []PaymentAllocation `json:"payments,omitempty"`
}

// Round2 rounds a monetary value to two decimal places, half away from zero
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// negNoise is the open lower bound of the clamp interval (-0.01, 0)
var negNoise = decimal.New(-1, -2)

// ClampNet applies the outstanding-balance contract: values inside
// (-0.01, 0) are floating-point noise and become exactly zero, everything
// else is rounded to two places.
func ClampNet(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() && d.GreaterThan(negNoise) {
		return decimal.Zero
	}
	return Round2(d)
}

// NormalizeField trims and lowercases an identity field for comparison
func NormalizeField(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IdentityKey builds the normalized composite profile key from identity fields
func IdentityKey(name, fatherName, address string) string {
	return NormalizeField(name) + "|" + NormalizeField(fatherName) + "|" + NormalizeField(address)
}
