package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"supplier-ledger-engine/cmd/ledger/config"
	"supplier-ledger-engine/internal/engine"
	"supplier-ledger-engine/internal/models"
	"supplier-ledger-engine/internal/reporter"
	"supplier-ledger-engine/internal/statement"
)

var (
	supplierQuery string
	chunkSize     int
)

// statementCmd represents the statement command
var statementCmd = &cobra.Command{
	Use:   "statement",
	Short: "Render one supplier's running-balance ledger statement",
	Long: `Statement runs the reconciliation pipeline, selects one supplier
profile, and renders their transactions and payments as a chronologically
ordered ledger with a running balance and payment-type totals.

The supplier is selected by name, optionally qualified with the father's
name using "name|father".

Examples:
  ledger statement -t tx.json -p pay.json --supplier "Ram Kumar"
  ledger statement -t tx.json -p pay.json --supplier "Ram Kumar|Shyam Lal" \
    --output-format csv --output-file statement.csv`,

	PreRunE: validateStatementFlags,
	RunE:    runStatement,
}

func init() {
	rootCmd.AddCommand(statementCmd)
	addPipelineFlags(statementCmd)
	statementCmd.Flags().StringVar(&supplierQuery, "supplier", "", "supplier to render, as \"name\" or \"name|father\" (required)")
	statementCmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "statement processing chunk size (default 100)")
	statementCmd.MarkFlagRequired("supplier")
}

func validateStatementFlags(cmd *cobra.Command, args []string) error {
	if err := validatePipelineFlags(cmd, args); err != nil {
		return err
	}
	if strings.TrimSpace(supplierQuery) == "" {
		return fmt.Errorf("supplier is required")
	}
	if chunkSize < 0 {
		return fmt.Errorf("chunk size cannot be negative")
	}
	return nil
}

// findProfile matches the supplier query against resolved profiles by
// normalized name, and father name when the query carries one.
func findProfile(result *engine.Result, query string) (*engine.ProfileResult, error) {
	parts := strings.SplitN(query, "|", 2)
	name := models.NormalizeField(parts[0])
	father := ""
	if len(parts) == 2 {
		father = models.NormalizeField(parts[1])
	}

	var matches []*engine.ProfileResult
	for _, key := range result.Keys {
		pr := result.Profiles[key]
		if models.NormalizeField(pr.Profile.Name) != name {
			continue
		}
		if father != "" && models.NormalizeField(pr.Profile.FatherName) != father {
			continue
		}
		matches = append(matches, pr)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no supplier profile matches '%s'", query)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, pr := range matches {
			names[i] = fmt.Sprintf("%s|%s", pr.Profile.Name, pr.Profile.FatherName)
		}
		return nil, fmt.Errorf("supplier '%s' is ambiguous, matches: %s; qualify with \"name|father\"",
			query, strings.Join(names, ", "))
	}
}

func runStatement(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	ctx := context.Background()

	result, err := runPipeline(ctx)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	profile, err := findProfile(result, supplierQuery)
	if err != nil {
		return err
	}

	builderConfig, err := config.CreateStatementConfig(chunkSize)
	if err != nil {
		return err
	}
	builder := statement.NewBuilder(builderConfig)

	stmt, err := builder.Build(ctx, profile.Transactions, profile.Profile.Payments, nil)
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

	supplierLabel := profile.Profile.Name
	if profile.Profile.FatherName != "" {
		supplierLabel = fmt.Sprintf("%s s/o %s", profile.Profile.Name, profile.Profile.FatherName)
	}
	if err := generator.GenerateStatementReport(supplierLabel, stmt, writer); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	return nil
}
