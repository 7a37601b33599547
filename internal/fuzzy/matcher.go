// Package fuzzy implements the character-edit-distance identity matcher
// used to decide whether two supplier records describe the same person.
//
// Each of the three identity fields (name, father/guardian name, address)
// is compared independently with Levenshtein distance after trimming and
// lowercasing. The classification is a fixed rule set: all-zero
// differences is an exact match, any field difference above the per-field
// cap or a total above the combined cap rejects the pair, anything in
// between merges with the differences retained for diagnostics.
package fuzzy

import (
	"fmt"

	"github.com/agnivade/levenshtein"

	"supplier-ledger-engine/internal/models"
)

// MatchKind classifies the result of comparing two identities
type MatchKind int

const (
	// MatchExact means all three field differences are zero
	MatchExact MatchKind = iota
	// MatchSimilar means the identities differ but within tolerance; merge
	MatchSimilar
	// MatchRejected means the identities belong to distinct profiles
	MatchRejected
)

// String returns the string representation of MatchKind
func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchSimilar:
		return "similar"
	case MatchRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Identity is the minimal record compared by the matcher
type Identity struct {
	Name       string
	FatherName string
	Address    string
}

// Result carries the classification and the per-field edit distances,
// retained for diagnostic display when a similar pair is merged.
type Result struct {
	Kind            MatchKind
	NameDiff        int
	FatherDiff      int
	AddressDiff     int
	TotalDifference int
}

// Matched reports whether the pair belongs to the same profile
func (r Result) Matched() bool {
	return r.Kind != MatchRejected
}

// String returns a string representation of the Result
func (r Result) String() string {
	return fmt.Sprintf("Result{%s, name=%d father=%d address=%d total=%d}",
		r.Kind, r.NameDiff, r.FatherDiff, r.AddressDiff, r.TotalDifference)
}

// Config holds the matcher thresholds
type Config struct {
	// MaxFieldDifference is the largest edit distance tolerated on any
	// single field before the pair is rejected
	MaxFieldDifference int
	// MaxTotalDifference is the largest combined edit distance tolerated
	MaxTotalDifference int
}

// DefaultConfig returns the production thresholds
func DefaultConfig() *Config {
	return &Config{
		MaxFieldDifference: 2,
		MaxTotalDifference: 4,
	}
}

// Validate validates the matcher configuration
func (c *Config) Validate() error {
	if c.MaxFieldDifference < 0 {
		return fmt.Errorf("max field difference cannot be negative, got %d", c.MaxFieldDifference)
	}
	if c.MaxTotalDifference < 0 {
		return fmt.Errorf("max total difference cannot be negative, got %d", c.MaxTotalDifference)
	}
	return nil
}

// Matcher compares supplier identities. It is stateless and safe for
// concurrent use.
type Matcher struct {
	config *Config
}

// NewMatcher creates a matcher with the given thresholds
func NewMatcher(config *Config) *Matcher {
	if config == nil {
		config = DefaultConfig()
	}
	return &Matcher{config: config}
}

// Match compares two identities. Pure, deterministic and symmetric:
// Match(a, b) == Match(b, a) for all inputs.
func (m *Matcher) Match(a, b Identity) Result {
	result := Result{
		NameDiff:    fieldDistance(a.Name, b.Name),
		FatherDiff:  fieldDistance(a.FatherName, b.FatherName),
		AddressDiff: fieldDistance(a.Address, b.Address),
	}
	result.TotalDifference = result.NameDiff + result.FatherDiff + result.AddressDiff

	switch {
	case result.TotalDifference == 0:
		result.Kind = MatchExact
	case result.NameDiff > m.config.MaxFieldDifference,
		result.FatherDiff > m.config.MaxFieldDifference,
		result.AddressDiff > m.config.MaxFieldDifference,
		result.TotalDifference > m.config.MaxTotalDifference:
		result.Kind = MatchRejected
	default:
		result.Kind = MatchSimilar
	}

	return result
}

// fieldDistance computes the normalized edit distance for one field.
// Missing-vs-missing is 0 and missing-vs-present is the length of the
// present string, which Levenshtein already yields for empty inputs.
func fieldDistance(a, b string) int {
	return levenshtein.ComputeDistance(models.NormalizeField(a), models.NormalizeField(b))
}
