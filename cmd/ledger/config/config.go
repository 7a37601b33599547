// Package config builds component configurations from CLI flag values.
package config

import (
	"fmt"

	"supplier-ledger-engine/internal/engine"
	"supplier-ledger-engine/internal/profiles"
	"supplier-ledger-engine/internal/reporter"
	"supplier-ledger-engine/internal/statement"
)

// CreateEngineConfig builds the engine configuration from flag values
func CreateEngineConfig(strategy string, maxConcurrency int) (*engine.Config, error) {
	config := engine.DefaultConfig()

	switch strategy {
	case "", string(profiles.StrategyStrict):
		config.Strategy = profiles.StrategyStrict
	case string(profiles.StrategyFuzzy):
		config.Strategy = profiles.StrategyFuzzy
	default:
		return nil, fmt.Errorf("unknown strategy '%s'. Valid strategies: strict, fuzzy", strategy)
	}

	config.MaxConcurrency = maxConcurrency

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// CreateReportConfig builds the reporter configuration from flag values
func CreateReportConfig(format string, includeTransactions bool) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(format)
	config.IncludeTransactions = includeTransactions

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// CreateStatementConfig builds the statement builder configuration
func CreateStatementConfig(chunkSize int) (*statement.BuilderConfig, error) {
	config := statement.DefaultBuilderConfig()
	if chunkSize > 0 {
		config.ChunkSize = chunkSize
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
