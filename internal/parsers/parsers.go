// Package parsers loads transaction and payment collections from JSON
// files. Loading is tolerant by contract: missing or malformed numeric
// fields default to zero and bad dates fall back to the raw string, so
// downstream components can surface the inconsistency instead of the
// pipeline dying on it. The only hard failures are records missing
// their identifying key.
package parsers

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"supplier-ledger-engine/internal/models"
	"supplier-ledger-engine/internal/statement"
	"supplier-ledger-engine/pkg/errors"
	"supplier-ledger-engine/pkg/logger"
)

// ParseStats summarizes one load.
type ParseStats struct {
	Records      int `json:"records"`
	MissingDates int `json:"missingDates"`
}

// flexNumber decodes a monetary or weight field that source files
// represent inconsistently: JSON number, numeric string, empty string
// or null. Anything unusable becomes zero.
type flexNumber struct {
	decimal.Decimal
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		n.Decimal = decimal.Zero
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			n.Decimal = decimal.Zero
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			n.Decimal = decimal.Zero
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			n.Decimal = decimal.Zero
			return nil
		}
		n.Decimal = d
		return nil
	}

	d, err := decimal.NewFromString(string(data))
	if err != nil {
		n.Decimal = decimal.Zero
		return nil
	}
	n.Decimal = d
	return nil
}

type rawTransaction struct {
	SrNo       string `json:"srNo"`
	Date       string `json:"date"`
	Name       string `json:"name"`
	FatherName string `json:"fatherName"`
	Address    string `json:"address"`
	Contact    string `json:"contact"`

	Commodity string `json:"commodity"`
	Variety   string `json:"variety"`

	GrossWeight flexNumber `json:"grossWeight"`
	TeirWeight  flexNumber `json:"teirWeight"`
	FinalWeight flexNumber `json:"finalWeight"`
	KartaWeight flexNumber `json:"kartaWeight"`
	NetWeight   flexNumber `json:"netWeight"`

	Rate   flexNumber `json:"rate"`
	Amount flexNumber `json:"amount"`

	KartaAmount     flexNumber `json:"kartaAmount"`
	LabourAmount    flexNumber `json:"labourAmount"`
	KantaAmount     flexNumber `json:"kantaAmount"`
	OtherAmount     flexNumber `json:"otherAmount"`
	BrokerageAmount flexNumber `json:"brokerageAmount"`
	BrokerageAdd    bool       `json:"brokerageAdd"`

	OriginalNetAmount *flexNumber `json:"originalNetAmount"`
}

type rawPaidFor struct {
	SrNo     string      `json:"srNo"`
	Amount   flexNumber  `json:"amount"`
	CdAmount *flexNumber `json:"cdAmount"`
}

type rawPayment struct {
	ID          string      `json:"id"`
	PaymentID   string      `json:"paymentId"`
	Date        string      `json:"date"`
	ReceiptType string      `json:"receiptType"`
	Amount      flexNumber  `json:"amount"`
	RtgsAmount  *flexNumber `json:"rtgsAmount"`
	CdAmount    flexNumber  `json:"cdAmount"`

	PaidFor []rawPaidFor `json:"paidFor"`

	Name       string `json:"name"`
	FatherName string `json:"fatherName"`
	Address    string `json:"address"`
	Outsider   bool   `json:"outsider"`
}

// LoadTransactions reads a JSON array of transaction records.
func LoadTransactions(path string) ([]*models.Transaction, *ParseStats, error) {
	log := logger.GetGlobalLogger().WithComponent("parsers")

	var raws []rawTransaction
	if err := loadJSON(path, &raws); err != nil {
		return nil, nil, err
	}

	stats := &ParseStats{Records: len(raws)}
	transactions := make([]*models.Transaction, 0, len(raws))
	for i, raw := range raws {
		if strings.TrimSpace(raw.SrNo) == "" {
			return nil, nil, errors.ParseError(errors.CodeMissingField, path, i, "srNo", raw.Name,
				nil)
		}

		tx := &models.Transaction{
			SrNo:       strings.TrimSpace(raw.SrNo),
			DateRaw:    raw.Date,
			Name:       raw.Name,
			FatherName: raw.FatherName,
			Address:    raw.Address,
			Contact:    raw.Contact,
			Commodity:  raw.Commodity,
			Variety:    raw.Variety,

			GrossWeight: raw.GrossWeight.Decimal,
			TeirWeight:  raw.TeirWeight.Decimal,
			FinalWeight: raw.FinalWeight.Decimal,
			KartaWeight: raw.KartaWeight.Decimal,
			NetWeight:   raw.NetWeight.Decimal,

			Rate:   raw.Rate.Decimal,
			Amount: raw.Amount.Decimal,

			KartaAmount:     raw.KartaAmount.Decimal,
			LabourAmount:    raw.LabourAmount.Decimal,
			KantaAmount:     raw.KantaAmount.Decimal,
			OtherAmount:     raw.OtherAmount.Decimal,
			BrokerageAmount: raw.BrokerageAmount.Decimal,
			BrokerageAdd:    raw.BrokerageAdd,
		}

		if date, ok := statement.ParseDate(raw.Date, time.Time{}); ok {
			tx.Date = date
		} else if raw.Date != "" {
			stats.MissingDates++
		}

		if raw.OriginalNetAmount != nil {
			tx.OriginalNetAmount = raw.OriginalNetAmount.Decimal
		} else {
			tx.OriginalNetAmount = deriveOriginalNet(tx)
		}

		transactions = append(transactions, tx)
	}

	log.WithFields(logger.Fields{
		"path":    path,
		"records": stats.Records,
	}).Debug("Transactions loaded")

	return transactions, stats, nil
}

// LoadPayments reads a JSON array of payment records. The identifier
// may arrive as either "id" or "paymentId".
func LoadPayments(path string) ([]*models.Payment, *ParseStats, error) {
	log := logger.GetGlobalLogger().WithComponent("parsers")

	var raws []rawPayment
	if err := loadJSON(path, &raws); err != nil {
		return nil, nil, err
	}

	stats := &ParseStats{Records: len(raws)}
	payments := make([]*models.Payment, 0, len(raws))
	for i, raw := range raws {
		id := strings.TrimSpace(raw.ID)
		if id == "" {
			id = strings.TrimSpace(raw.PaymentID)
		}
		if id == "" {
			return nil, nil, errors.ParseError(errors.CodeMissingField, path, i, "id", raw.Name,
				nil)
		}

		payment := &models.Payment{
			ID:             id,
			DateRaw:        raw.Date,
			ReceiptType:    parseReceiptType(raw.ReceiptType),
			ReceiptTypeRaw: strings.TrimSpace(raw.ReceiptType),
			Amount:         raw.Amount.Decimal,
			CdAmount:       raw.CdAmount.Decimal,
			Name:           raw.Name,
			FatherName:     raw.FatherName,
			Address:        raw.Address,
			Outsider:       raw.Outsider,
		}

		if raw.RtgsAmount != nil {
			rtgs := raw.RtgsAmount.Decimal
			payment.RtgsAmount = &rtgs
		}

		for _, entry := range raw.PaidFor {
			pf := models.PaidForEntry{
				SrNo:   strings.TrimSpace(entry.SrNo),
				Amount: entry.Amount.Decimal,
			}
			if entry.CdAmount != nil {
				cd := entry.CdAmount.Decimal
				pf.CdAmount = &cd
			}
			payment.PaidFor = append(payment.PaidFor, pf)
		}

		if date, ok := statement.ParseDate(raw.Date, time.Time{}); ok {
			payment.Date = date
		} else if raw.Date != "" {
			stats.MissingDates++
		}

		payments = append(payments, payment)
	}

	log.WithFields(logger.Fields{
		"path":    path,
		"records": stats.Records,
	}).Debug("Payments loaded")

	return payments, stats, nil
}

func loadJSON(path string, target interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.FileError(errors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return errors.FileError(errors.CodeFilePermission, path, err)
		}
		return errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return errors.ParseError(errors.CodeInvalidFormat, path, 0, "", "", err)
	}
	return nil
}

// deriveOriginalNet reconstructs the pre-payment amount owed for files
// that predate the explicit originalNetAmount field.
func deriveOriginalNet(tx *models.Transaction) decimal.Decimal {
	net := tx.Amount.
		Sub(tx.KartaAmount).
		Sub(tx.LabourAmount).
		Sub(tx.KantaAmount).
		Sub(tx.OtherAmount)
	if tx.BrokerageAdd {
		net = net.Add(tx.BrokerageAmount)
	} else {
		net = net.Sub(tx.BrokerageAmount)
	}
	return models.Round2(net)
}

func parseReceiptType(s string) models.ReceiptType {
	switch strings.TrimSpace(s) {
	case string(models.ReceiptCash):
		return models.ReceiptCash
	case string(models.ReceiptRTGS):
		return models.ReceiptRTGS
	case string(models.ReceiptGov):
		return models.ReceiptGov
	case "":
		return ""
	default:
		return models.ReceiptOther
	}
}
