package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"supplier-ledger-engine/cmd/ledger/config"
	"supplier-ledger-engine/internal/reporter"
)

// anomaliesCmd represents the anomalies command
var anomaliesCmd = &cobra.Command{
	Use:   "anomalies",
	Short: "Report settlement anomalies",
	Long: `Anomalies runs the reconciliation pipeline and reports transactions
with materially negative outstanding balances, classified by root cause:
overpayment, allocation exceeding the payment total, RTGS amount
mismatches, duplicate payment identifiers, and stale paidFor references.

Overpayments fully explained by granted cash discounts are suppressed.

Examples:
  ledger anomalies --transactions transactions.json --payments payments.json
  ledger anomalies -t tx.json -p pay.json --output-format csv -o anomalies.csv`,

	PreRunE: validatePipelineFlags,
	RunE:    runAnomalies,
}

func init() {
	rootCmd.AddCommand(anomaliesCmd)
	addPipelineFlags(anomaliesCmd)
}

func runAnomalies(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()

	result, err := runPipeline(context.Background())
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	reportConfig, err := config.CreateReportConfig(outputFormat, false)
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

	if err := generator.GenerateAnomalyReport(result.Anomalies, writer); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	return nil
}
