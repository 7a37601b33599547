// Package engine runs the full reconciliation pass: resolve profiles,
// allocate payments, aggregate totals and scan for anomalies. It is a
// pure whole-collection recomputation with no hidden cache; callers own
// any memoization.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"supplier-ledger-engine/internal/aggregate"
	"supplier-ledger-engine/internal/allocation"
	"supplier-ledger-engine/internal/anomaly"
	"supplier-ledger-engine/internal/fuzzy"
	"supplier-ledger-engine/internal/models"
	"supplier-ledger-engine/internal/profiles"
	"supplier-ledger-engine/pkg/errors"
	"supplier-ledger-engine/pkg/logger"
)

// Config controls one reconciliation run.
type Config struct {
	// Strategy selects profile resolution: strict composite-key or
	// fuzzy single-linkage.
	Strategy profiles.StrategyName
	// MaxConcurrency bounds the parallel per-profile computation.
	// Zero means GOMAXPROCS.
	MaxConcurrency int

	Matcher  *fuzzy.Config
	Detector *anomaly.Config
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() *Config {
	return &Config{
		Strategy: profiles.StrategyStrict,
		Matcher:  fuzzy.DefaultConfig(),
		Detector: anomaly.DefaultConfig(),
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Strategy != profiles.StrategyStrict && c.Strategy != profiles.StrategyFuzzy {
		return fmt.Errorf("unknown resolution strategy %q", c.Strategy)
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max concurrency cannot be negative, got %d", c.MaxConcurrency)
	}
	if c.Matcher != nil {
		if err := c.Matcher.Validate(); err != nil {
			return fmt.Errorf("matcher: %w", err)
		}
	}
	if c.Detector != nil {
		if err := c.Detector.Validate(); err != nil {
			return fmt.Errorf("detector: %w", err)
		}
	}
	return nil
}

// ProfileResult is one resolved profile with its settlement output.
type ProfileResult struct {
	Profile      *profiles.SupplierProfile     `json:"profile"`
	Transactions []*models.EnrichedTransaction `json:"transactions"`
	Totals       *aggregate.ProfileTotals      `json:"totals"`
}

// Stats summarizes a reconciliation run.
type Stats struct {
	TransactionCount int                   `json:"transactionCount"`
	PaymentCount     int                   `json:"paymentCount"`
	ProfileCount     int                   `json:"profileCount"`
	UnlinkedCount    int                   `json:"unlinkedCount"`
	AnomalyCount     int                   `json:"anomalyCount"`
	Strategy         profiles.StrategyName `json:"strategy"`
	Duration         time.Duration         `json:"duration"`
}

// Result is the complete output of one reconciliation pass.
type Result struct {
	// Profiles indexed by composite identity key
	Profiles map[string]*ProfileResult `json:"profiles"`
	// Keys in deterministic first-seen resolution order
	Keys []string `json:"keys"`

	UnlinkedPayments []*models.Payment `json:"unlinkedPayments,omitempty"`
	Anomalies        []*anomaly.Record `json:"anomalies"`

	Stats Stats `json:"stats"`
}

// Engine wires the pipeline components together.
type Engine struct {
	config    *Config
	resolver  *profiles.Resolver
	allocator *allocation.Engine
	detector  *anomaly.Detector
	logger    logger.Logger
}

// New creates an engine. A nil config gets the defaults.
func New(config *Config) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "engine", nil, err)
	}

	matcher := fuzzy.NewMatcher(config.Matcher)
	strategy, err := profiles.StrategyFor(config.Strategy, matcher)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "strategy", string(config.Strategy), err)
	}

	return &Engine{
		config:    config,
		resolver:  profiles.NewResolver(strategy),
		allocator: allocation.NewEngine(),
		detector:  anomaly.NewDetector(config.Detector),
		logger:    logger.GetGlobalLogger().WithComponent("engine"),
	}, nil
}

// Recompute runs the full pipeline over the collections. Per-profile
// settlement runs in parallel; assembly order and every output value
// are deterministic regardless of concurrency.
func (e *Engine) Recompute(ctx context.Context, transactions []*models.Transaction, payments []*models.Payment) (*Result, error) {
	start := time.Now()

	resolution, err := e.resolver.Resolve(transactions, payments)
	if err != nil {
		return nil, err
	}

	results := make([]*ProfileResult, len(resolution.Profiles))
	inputs := make([]*anomaly.ProfileInput, len(resolution.Profiles))

	group, ctx := errgroup.WithContext(ctx)
	limit := e.config.MaxConcurrency
	if limit == 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	group.SetLimit(limit)

	for i, profile := range resolution.Profiles {
		i, profile := i, profile
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			enriched := e.allocator.Allocate(profile.Transactions, profile.Payments)
			results[i] = &ProfileResult{
				Profile:      profile,
				Transactions: enriched,
				Totals:       aggregate.Aggregate(enriched, profile.Payments),
			}
			inputs[i] = &anomaly.ProfileInput{
				Key:          profile.Key,
				Name:         profile.Name,
				FatherName:   profile.FatherName,
				Address:      profile.Address,
				Transactions: enriched,
				Payments:     profile.Payments,
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	result := &Result{
		Profiles:         make(map[string]*ProfileResult, len(results)),
		Keys:             make([]string, 0, len(results)),
		UnlinkedPayments: resolution.UnlinkedPayments,
	}
	for _, pr := range results {
		result.Profiles[pr.Profile.Key] = pr
		result.Keys = append(result.Keys, pr.Profile.Key)
	}

	result.Anomalies = e.detector.Detect(inputs, anomaly.KnownSerials(transactions))

	result.Stats = Stats{
		TransactionCount: len(transactions),
		PaymentCount:     len(payments),
		ProfileCount:     len(result.Keys),
		UnlinkedCount:    len(resolution.UnlinkedPayments),
		AnomalyCount:     len(result.Anomalies),
		Strategy:         e.config.Strategy,
		Duration:         time.Since(start),
	}

	e.logger.WithFields(logger.Fields{
		"profiles":  result.Stats.ProfileCount,
		"anomalies": result.Stats.AnomalyCount,
		"duration":  result.Stats.Duration.String(),
	}).Info("Reconciliation pass complete")

	return result, nil
}
