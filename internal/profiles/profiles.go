// Package profiles groups raw transactions into supplier profiles and
// links payments to them.
//
// Two resolution strategies coexist on purpose and are selected per view
// by the caller:
//   - StrategyStrict groups by the exact normalized (name, fatherName,
//     address) tuple with no fuzzy merging.
//   - StrategyFuzzy performs single-linkage clustering with the
//     edit-distance matcher, comparing each candidate against the group
//     seed only. O(n^2); fine at the few-thousand profile counts seen in
//     production.
package profiles

import (
	"fmt"

	"supplier-ledger-engine/internal/fuzzy"
	"supplier-ledger-engine/internal/models"
)

// StrategyName identifies a resolution strategy
type StrategyName string

const (
	StrategyStrict StrategyName = "strict"
	StrategyFuzzy  StrategyName = "fuzzy"
)

// ResolutionStrategy groups transactions into supplier profiles
type ResolutionStrategy interface {
	Name() StrategyName
	GroupTransactions(transactions []*models.Transaction) []*SupplierProfile
}

// SupplierProfile is the resolved representation of one real-world
// supplier: identity, attributed records, and merge diagnostics.
type SupplierProfile struct {
	Key        string   `json:"key"`
	Name       string   `json:"name"`
	FatherName string   `json:"fatherName"`
	Address    string   `json:"address"`
	Contacts   []string `json:"contacts,omitempty"`

	Transactions []*models.Transaction `json:"-"`
	Payments     []*models.Payment     `json:"-"`

	// Merges records the fuzzy-match diagnostics for every similar (not
	// exact) record absorbed into this profile, for diagnostic display.
	Merges []MergeNote `json:"merges,omitempty"`

	// Synthesized marks profiles created from an outsider payment's own
	// identity fields, with no transactions behind them.
	Synthesized bool `json:"synthesized,omitempty"`
}

// MergeNote records why a similar record was absorbed into a profile
type MergeNote struct {
	SrNo            string `json:"srNo"`
	NameDiff        int    `json:"nameDiff"`
	FatherDiff      int    `json:"fatherDiff"`
	AddressDiff     int    `json:"addressDiff"`
	TotalDifference int    `json:"totalDifference"`
}

// Identity returns the profile's identity for fuzzy comparison
func (p *SupplierProfile) Identity() fuzzy.Identity {
	return fuzzy.Identity{Name: p.Name, FatherName: p.FatherName, Address: p.Address}
}

// addContact appends a contact value if non-empty and not already recorded
func (p *SupplierProfile) addContact(contact string) {
	if contact == "" {
		return
	}
	for _, existing := range p.Contacts {
		if existing == contact {
			return
		}
	}
	p.Contacts = append(p.Contacts, contact)
}

// newProfileFromTransaction seeds a profile from a transaction's identity
func newProfileFromTransaction(tx *models.Transaction) *SupplierProfile {
	profile := &SupplierProfile{
		Key:        models.IdentityKey(tx.Name, tx.FatherName, tx.Address),
		Name:       tx.Name,
		FatherName: tx.FatherName,
		Address:    tx.Address,
	}
	profile.absorb(tx)
	return profile
}

func (p *SupplierProfile) absorb(tx *models.Transaction) {
	p.Transactions = append(p.Transactions, tx)
	p.addContact(tx.Contact)
}

// StrictKeyStrategy groups by the exact normalized identity tuple
type StrictKeyStrategy struct{}

// NewStrictKeyStrategy creates the composite-key strategy
func NewStrictKeyStrategy() *StrictKeyStrategy {
	return &StrictKeyStrategy{}
}

// Name returns the strategy identifier
func (s *StrictKeyStrategy) Name() StrategyName {
	return StrategyStrict
}

// GroupTransactions groups records by normalized (name, fatherName, address).
// Profile order follows first appearance in the input.
func (s *StrictKeyStrategy) GroupTransactions(transactions []*models.Transaction) []*SupplierProfile {
	var profiles []*SupplierProfile
	byKey := make(map[string]*SupplierProfile)

	for _, tx := range transactions {
		key := models.IdentityKey(tx.Name, tx.FatherName, tx.Address)
		if profile, exists := byKey[key]; exists {
			profile.absorb(tx)
			continue
		}
		profile := newProfileFromTransaction(tx)
		byKey[key] = profile
		profiles = append(profiles, profile)
	}

	return profiles
}

// FuzzyLinkageStrategy clusters records with the edit-distance matcher
type FuzzyLinkageStrategy struct {
	matcher *fuzzy.Matcher
}

// NewFuzzyLinkageStrategy creates the single-linkage strategy
func NewFuzzyLinkageStrategy(matcher *fuzzy.Matcher) *FuzzyLinkageStrategy {
	if matcher == nil {
		matcher = fuzzy.NewMatcher(nil)
	}
	return &FuzzyLinkageStrategy{matcher: matcher}
}

// Name returns the strategy identifier
func (s *FuzzyLinkageStrategy) Name() StrategyName {
	return StrategyFuzzy
}

// GroupTransactions processes records in input order. Each unprocessed
// record seeds a new group and absorbs every later unprocessed record the
// matcher accepts against the seed (not against every member).
func (s *FuzzyLinkageStrategy) GroupTransactions(transactions []*models.Transaction) []*SupplierProfile {
	var profiles []*SupplierProfile
	processed := make([]bool, len(transactions))

	for i, seed := range transactions {
		if processed[i] {
			continue
		}
		processed[i] = true

		profile := newProfileFromTransaction(seed)
		seedIdentity := fuzzy.Identity{Name: seed.Name, FatherName: seed.FatherName, Address: seed.Address}

		for j := i + 1; j < len(transactions); j++ {
			if processed[j] {
				continue
			}
			candidate := transactions[j]
			result := s.matcher.Match(seedIdentity, fuzzy.Identity{
				Name:       candidate.Name,
				FatherName: candidate.FatherName,
				Address:    candidate.Address,
			})
			if !result.Matched() {
				continue
			}

			processed[j] = true
			profile.absorb(candidate)
			if result.Kind == fuzzy.MatchSimilar {
				profile.Merges = append(profile.Merges, MergeNote{
					SrNo:            candidate.SrNo,
					NameDiff:        result.NameDiff,
					FatherDiff:      result.FatherDiff,
					AddressDiff:     result.AddressDiff,
					TotalDifference: result.TotalDifference,
				})
			}
		}

		profiles = append(profiles, profile)
	}

	return profiles
}

// StrategyFor returns the strategy for a name
func StrategyFor(name StrategyName, matcher *fuzzy.Matcher) (ResolutionStrategy, error) {
	switch name {
	case StrategyStrict:
		return NewStrictKeyStrategy(), nil
	case StrategyFuzzy:
		return NewFuzzyLinkageStrategy(matcher), nil
	default:
		return nil, fmt.Errorf("unknown resolution strategy: %s", name)
	}
}
