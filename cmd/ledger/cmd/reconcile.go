package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"supplier-ledger-engine/cmd/ledger/config"
	"supplier-ledger-engine/internal/engine"
	"supplier-ledger-engine/internal/models"
	"supplier-ledger-engine/internal/parsers"
	"supplier-ledger-engine/internal/reporter"
)

// Flags shared by the pipeline commands
var (
	transactionsFile    string
	paymentsFile        string
	strategy            string
	outputFormat        string
	outputFile          string
	maxConcurrency      int
	includeTransactions bool
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile supplier transactions with payments",
	Long: `Reconcile runs the full pipeline: resolve supplier profiles, allocate
payments and cash discounts across transactions, and report per-supplier
totals with outstanding balances.

Examples:
  # Basic reconciliation
  ledger reconcile --transactions transactions.json --payments payments.json

  # Fuzzy identity resolution with JSON output
  ledger reconcile -t tx.json -p pay.json --strategy fuzzy \
    --output-format json --output-file summary.json

  # Include per-transaction settlement detail in JSON output
  ledger reconcile -t tx.json -p pay.json -f json --include-transactions`,

	PreRunE: validatePipelineFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	addPipelineFlags(reconcileCmd)
	reconcileCmd.Flags().BoolVar(&includeTransactions, "include-transactions", false, "include per-transaction detail in JSON output")
}

// addPipelineFlags registers the flags every pipeline command shares
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&transactionsFile, "transactions", "t", "", "path to transactions JSON file (required)")
	cmd.Flags().StringVarP(&paymentsFile, "payments", "p", "", "path to payments JSON file (required)")
	cmd.Flags().StringVar(&strategy, "strategy", "strict", "profile resolution strategy: strict, fuzzy")
	cmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	cmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	cmd.Flags().IntVar(&maxConcurrency, "max-concurrency", 0, "parallel profile computations (0: number of CPUs)")

	cmd.MarkFlagRequired("transactions")
	cmd.MarkFlagRequired("payments")
}

func validatePipelineFlags(cmd *cobra.Command, args []string) error {
	if transactionsFile == "" {
		return fmt.Errorf("transactions file is required")
	}
	if paymentsFile == "" {
		return fmt.Errorf("payments file is required")
	}

	if err := validateFileExists(transactionsFile, "transactions file"); err != nil {
		return err
	}
	if err := validateFileExists(paymentsFile, "payments file"); err != nil {
		return err
	}

	validFormats := map[string]bool{"console": true, "json": true, "csv": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	if maxConcurrency < 0 {
		return fmt.Errorf("max concurrency cannot be negative")
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

// loadInputs reads both collections and reports parse accounting in
// verbose mode.
func loadInputs() ([]*models.Transaction, []*models.Payment, error) {
	transactions, txStats, err := parsers.LoadTransactions(transactionsFile)
	if err != nil {
		return nil, nil, err
	}
	payments, payStats, err := parsers.LoadPayments(paymentsFile)
	if err != nil {
		return nil, nil, err
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Loaded %d transactions (%d undated), %d payments (%d undated)\n",
			txStats.Records, txStats.MissingDates, payStats.Records, payStats.MissingDates)
	}

	return transactions, payments, nil
}

// runPipeline loads inputs and runs a full reconciliation pass
func runPipeline(ctx context.Context) (*engine.Result, error) {
	transactions, payments, err := loadInputs()
	if err != nil {
		return nil, err
	}

	engineConfig, err := config.CreateEngineConfig(strategy, maxConcurrency)
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(engineConfig)
	if err != nil {
		return nil, err
	}

	return eng.Recompute(ctx, transactions, payments)
}

// openOutput resolves the report destination
func openOutput() (io.Writer, func() error, error) {
	if outputFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	file, err := os.Create(outputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return file, file.Close, nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()

	result, err := runPipeline(context.Background())
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	reportConfig, err := config.CreateReportConfig(outputFormat, includeTransactions)
	if err != nil {
		return err
	}
	generator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return err
	}

	writer, closeOutput, err := openOutput()
	if err != nil {
		return err
	}
	defer closeOutput()

	if err := generator.GenerateSummaryReport(result, writer); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if outputFile != "" && viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", outputFile)
	}

	return nil
}
