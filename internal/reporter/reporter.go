// Package reporter renders reconciliation output for people and
// machines.
//
// Three report types are supported, each in three formats:
//   - Summary reports: per-supplier totals from a reconciliation pass
//   - Anomaly reports: the detector's findings with reasons
//   - Statement reports: one profile's running-balance ledger view
//
// Supported output formats:
//   - Console: human-readable sectioned tables for terminal display
//   - JSON: structured data for programmatic consumption
//   - CSV: spreadsheet-friendly rows with a configurable delimiter
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"supplier-ledger-engine/internal/anomaly"
	"supplier-ledger-engine/internal/engine"
	"supplier-ledger-engine/internal/statement"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludeTransactions bool `json:"include_transactions"`
	IncludeUnlinked     bool `json:"include_unlinked"`
	IncludeStats        bool `json:"include_stats"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:          FormatConsole,
		IncludeUnlinked: true,
		IncludeStats:    true,
		CSVDelimiter:    ',',
		CSVHeaders:      true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.CSVDelimiter == 0 {
		return fmt.Errorf("csv delimiter cannot be empty")
	}
	return nil
}

// ReportGenerator renders reconciliation output in the configured format
type ReportGenerator struct {
	config *ReportConfig
	// RunID ties the rendered artifacts of one invocation together
	runID string
	now   func() time.Time
}

// NewReportGenerator creates a report generator. A nil config gets the
// defaults.
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
		runID:  uuid.NewString(),
		now:    time.Now,
	}, nil
}

// RunID returns the identifier stamped on every report of this generator
func (rg *ReportGenerator) RunID() string {
	return rg.runID
}

// GenerateSummaryReport renders the per-supplier reconciliation summary
func (rg *ReportGenerator) GenerateSummaryReport(result *engine.Result, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("reconciliation result cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.summaryConsole(result, writer)
	case FormatJSON:
		return rg.summaryJSON(result, writer)
	case FormatCSV:
		return rg.summaryCSV(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// GenerateAnomalyReport renders the anomaly detector's findings
func (rg *ReportGenerator) GenerateAnomalyReport(records []*anomaly.Record, writer io.Writer) error {
	switch rg.config.Format {
	case FormatConsole:
		return rg.anomalyConsole(records, writer)
	case FormatJSON:
		return rg.anomalyJSON(records, writer)
	case FormatCSV:
		return rg.anomalyCSV(records, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// GenerateStatementReport renders one profile's ledger statement
func (rg *ReportGenerator) GenerateStatementReport(supplier string, stmt *statement.Statement, writer io.Writer) error {
	if stmt == nil {
		return fmt.Errorf("statement cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.statementConsole(supplier, stmt, writer)
	case FormatJSON:
		return rg.statementJSON(supplier, stmt, writer)
	case FormatCSV:
		return rg.statementCSV(stmt, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) summaryConsole(result *engine.Result, writer io.Writer) error {
	fmt.Fprintf(writer, "SUPPLIER RECONCILIATION SUMMARY\n")
	fmt.Fprintf(writer, "Run: %s\n", rg.runID)
	fmt.Fprintf(writer, "Generated: %s\n\n", rg.now().Format(time.RFC3339))

	fmt.Fprintf(writer, "=== SUPPLIERS ===\n")
	fmt.Fprintf(writer, "%-25s %-20s %6s %6s %14s %14s %14s\n",
		"Name", "Father", "Txns", "Pays", "Paid", "CD", "Outstanding")
	for _, key := range result.Keys {
		pr := result.Profiles[key]
		fmt.Fprintf(writer, "%-25s %-20s %6d %6d %14s %14s %14s\n",
			truncate(pr.Profile.Name, 25),
			truncate(pr.Profile.FatherName, 20),
			pr.Totals.TransactionCount,
			pr.Totals.PaymentCount,
			pr.Totals.TotalPaidTransactions.StringFixed(2),
			pr.Totals.TotalCd.StringFixed(2),
			pr.Totals.TotalOutstanding.StringFixed(2))
	}
	fmt.Fprintf(writer, "\n")

	if rg.config.IncludeUnlinked && len(result.UnlinkedPayments) > 0 {
		fmt.Fprintf(writer, "=== UNLINKED PAYMENTS ===\n")
		for _, payment := range result.UnlinkedPayments {
			fmt.Fprintf(writer, "%-12s %-10s %14s  %s\n",
				payment.ID, payment.ReceiptLabel(),
				payment.Amount.StringFixed(2), payment.Name)
		}
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeStats {
		fmt.Fprintf(writer, "=== RUN STATISTICS ===\n")
		fmt.Fprintf(writer, "Strategy:     %s\n", result.Stats.Strategy)
		fmt.Fprintf(writer, "Transactions: %d\n", result.Stats.TransactionCount)
		fmt.Fprintf(writer, "Payments:     %d\n", result.Stats.PaymentCount)
		fmt.Fprintf(writer, "Profiles:     %d\n", result.Stats.ProfileCount)
		fmt.Fprintf(writer, "Anomalies:    %d\n", result.Stats.AnomalyCount)
		fmt.Fprintf(writer, "Duration:     %v\n", result.Stats.Duration)
	}

	return nil
}

// summaryEnvelope wraps the result with run metadata for JSON export
type summaryEnvelope struct {
	RunID       string         `json:"runId"`
	GeneratedAt time.Time      `json:"generatedAt"`
	Result      *engine.Result `json:"result"`
}

func (rg *ReportGenerator) summaryJSON(result *engine.Result, writer io.Writer) error {
	filtered := *result
	if !rg.config.IncludeTransactions {
		trimmed := make(map[string]*engine.ProfileResult, len(result.Profiles))
		for key, pr := range result.Profiles {
			copied := *pr
			copied.Transactions = nil
			trimmed[key] = &copied
		}
		filtered.Profiles = trimmed
	}
	if !rg.config.IncludeUnlinked {
		filtered.UnlinkedPayments = nil
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summaryEnvelope{
		RunID:       rg.runID,
		GeneratedAt: rg.now(),
		Result:      &filtered,
	})
}

func (rg *ReportGenerator) summaryCSV(result *engine.Result, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		headers := []string{
			"Name", "Father_Name", "Address",
			"Transactions", "Payments",
			"Total_Amount", "Total_Paid", "Total_CD", "Outstanding",
			"Outstanding_Count",
		}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, key := range result.Keys {
		pr := result.Profiles[key]
		record := []string{
			pr.Profile.Name,
			pr.Profile.FatherName,
			pr.Profile.Address,
			fmt.Sprintf("%d", pr.Totals.TransactionCount),
			fmt.Sprintf("%d", pr.Totals.PaymentCount),
			pr.Totals.TotalAmount.StringFixed(2),
			pr.Totals.TotalPaidTransactions.StringFixed(2),
			pr.Totals.TotalCd.StringFixed(2),
			pr.Totals.TotalOutstanding.StringFixed(2),
			fmt.Sprintf("%d", pr.Totals.OutstandingCount),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write supplier record: %w", err)
		}
	}

	return nil
}

func (rg *ReportGenerator) anomalyConsole(records []*anomaly.Record, writer io.Writer) error {
	fmt.Fprintf(writer, "ANOMALY REPORT\n")
	fmt.Fprintf(writer, "Run: %s\n", rg.runID)
	fmt.Fprintf(writer, "Generated: %s\n\n", rg.now().Format(time.RFC3339))

	if len(records) == 0 {
		fmt.Fprintf(writer, "No anomalies found.\n")
		return nil
	}

	fmt.Fprintf(writer, "%-8s %-25s %12s %12s %12s  %s\n",
		"SrNo", "Name", "Original", "Paid", "Outstanding", "Reasons")
	for _, rec := range records {
		fmt.Fprintf(writer, "%-8s %-25s %12s %12s %12s  %s\n",
			rec.SrNo,
			truncate(rec.Name, 25),
			rec.OriginalAmount.StringFixed(2),
			rec.TotalPaid.StringFixed(2),
			rec.Outstanding.StringFixed(2),
			strings.Join(rec.Reasons, "; "))
	}
	fmt.Fprintf(writer, "\nTotal anomalies: %d\n", len(records))

	return nil
}

// anomalyEnvelope wraps the records with run metadata for JSON export
type anomalyEnvelope struct {
	RunID       string            `json:"runId"`
	GeneratedAt time.Time         `json:"generatedAt"`
	Count       int               `json:"count"`
	Anomalies   []*anomaly.Record `json:"anomalies"`
}

func (rg *ReportGenerator) anomalyJSON(records []*anomaly.Record, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(anomalyEnvelope{
		RunID:       rg.runID,
		GeneratedAt: rg.now(),
		Count:       len(records),
		Anomalies:   records,
	})
}

func (rg *ReportGenerator) anomalyCSV(records []*anomaly.Record, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		headers := []string{
			"SrNo", "Name", "Father_Name",
			"Original", "Paid", "CD", "Outstanding", "Excess",
			"Reasons", "Last_Payment_Date", "Last_Payment_Amount",
		}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, rec := range records {
		lastDate := ""
		if rec.LastPaymentDate != nil {
			lastDate = rec.LastPaymentDate.Format("2006-01-02")
		}
		record := []string{
			rec.SrNo,
			rec.Name,
			rec.FatherName,
			rec.OriginalAmount.StringFixed(2),
			rec.TotalPaid.StringFixed(2),
			rec.TotalCd.StringFixed(2),
			rec.Outstanding.StringFixed(2),
			rec.Excess.StringFixed(2),
			strings.Join(rec.Reasons, "; "),
			lastDate,
			rec.LastPaymentAmount.StringFixed(2),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write anomaly record: %w", err)
		}
	}

	return nil
}

func (rg *ReportGenerator) statementConsole(supplier string, stmt *statement.Statement, writer io.Writer) error {
	fmt.Fprintf(writer, "LEDGER STATEMENT\n")
	fmt.Fprintf(writer, "Supplier: %s\n", supplier)
	fmt.Fprintf(writer, "Run: %s\n", rg.runID)
	fmt.Fprintf(writer, "Generated: %s\n\n", rg.now().Format(time.RFC3339))

	fmt.Fprintf(writer, "%-12s %-30s %12s %12s %10s %14s\n",
		"Date", "Description", "Debit", "Credit", "CD", "Balance")
	for _, line := range stmt.Lines {
		fmt.Fprintf(writer, "%-12s %-30s %12s %12s %10s %14s\n",
			line.DateDisplay,
			truncate(line.Description, 30),
			blankIfZero(line.Debit.StringFixed(2)),
			blankIfZero(line.Credit.StringFixed(2)),
			blankIfZero(line.Cd.StringFixed(2)),
			line.Balance.StringFixed(2))
	}

	fmt.Fprintf(writer, "\n=== TOTALS ===\n")
	fmt.Fprintf(writer, "Total Paid:      %s\n", stmt.Totals.TotalPaid.StringFixed(2))
	fmt.Fprintf(writer, "  Cash:          %s\n", stmt.Totals.TotalCashPaid.StringFixed(2))
	fmt.Fprintf(writer, "  RTGS:          %s\n", stmt.Totals.TotalRtgsPaid.StringFixed(2))
	fmt.Fprintf(writer, "Total CD:        %s\n", stmt.Totals.TotalCd.StringFixed(2))
	fmt.Fprintf(writer, "Outstanding:     %s\n", stmt.Totals.Outstanding.StringFixed(2))

	return nil
}

// statementEnvelope wraps the statement with run metadata for JSON export
type statementEnvelope struct {
	RunID       string               `json:"runId"`
	GeneratedAt time.Time            `json:"generatedAt"`
	Supplier    string               `json:"supplier"`
	Statement   *statement.Statement `json:"statement"`
}

func (rg *ReportGenerator) statementJSON(supplier string, stmt *statement.Statement, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(statementEnvelope{
		RunID:       rg.runID,
		GeneratedAt: rg.now(),
		Supplier:    supplier,
		Statement:   stmt,
	})
}

func (rg *ReportGenerator) statementCSV(stmt *statement.Statement, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		headers := []string{
			"Date", "SrNo", "Payment_ID", "Description", "Receipt_Type",
			"Debit", "Credit", "CD", "Balance",
		}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, line := range stmt.Lines {
		record := []string{
			line.DateDisplay,
			line.SrNo,
			line.PaymentID,
			line.Description,
			line.Receipt,
			line.Debit.StringFixed(2),
			line.Credit.StringFixed(2),
			line.Cd.StringFixed(2),
			line.Balance.StringFixed(2),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write statement line: %w", err)
		}
	}

	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func blankIfZero(s string) string {
	if s == "0.00" {
		return ""
	}
	return s
}
