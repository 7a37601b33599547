package profiles

import (
	"supplier-ledger-engine/internal/models"
	"supplier-ledger-engine/pkg/errors"
	"supplier-ledger-engine/pkg/logger"
)

// Resolver groups transactions into profiles with the configured strategy
// and attaches payments to them.
type Resolver struct {
	strategy ResolutionStrategy
	logger   logger.Logger
}

// Resolution is the output of one resolution pass
type Resolution struct {
	// Profiles in deterministic first-seen order
	Profiles []*SupplierProfile
	// ByKey indexes profiles by composite identity key
	ByKey map[string]*SupplierProfile
	// BySrNo maps every transaction serial number to its owning profile
	BySrNo map[string]*SupplierProfile
	// UnlinkedPayments could not be attached to any profile and were not
	// flagged as outsider payments; surfaced rather than dropped
	UnlinkedPayments []*models.Payment
}

// NewResolver creates a resolver for the given strategy
func NewResolver(strategy ResolutionStrategy) *Resolver {
	if strategy == nil {
		strategy = NewStrictKeyStrategy()
	}
	return &Resolver{
		strategy: strategy,
		logger:   logger.GetGlobalLogger().WithComponent("profile_resolver"),
	}
}

// Strategy returns the resolver's strategy
func (r *Resolver) Strategy() ResolutionStrategy {
	return r.strategy
}

// Resolve groups transactions and links payments. Records missing their
// identifying key are structural hard failures; everything else is
// tolerated here and surfaced downstream by the anomaly detector.
func (r *Resolver) Resolve(transactions []*models.Transaction, payments []*models.Payment) (*Resolution, error) {
	for _, tx := range transactions {
		if err := tx.Validate(); err != nil {
			return nil, errors.ValidationError(errors.CodeMissingKey, "srNo", tx.Name, err)
		}
	}
	for _, payment := range payments {
		if err := payment.Validate(); err != nil {
			return nil, errors.ValidationError(errors.CodeMissingKey, "id", payment.Name, err)
		}
	}

	profiles := r.strategy.GroupTransactions(transactions)

	resolution := &Resolution{
		Profiles: profiles,
		ByKey:    make(map[string]*SupplierProfile, len(profiles)),
		BySrNo:   make(map[string]*SupplierProfile),
	}
	for _, profile := range profiles {
		if _, exists := resolution.ByKey[profile.Key]; !exists {
			resolution.ByKey[profile.Key] = profile
		}
		for _, tx := range profile.Transactions {
			if _, exists := resolution.BySrNo[tx.SrNo]; !exists {
				resolution.BySrNo[tx.SrNo] = profile
			}
		}
	}

	for _, payment := range payments {
		r.linkPayment(resolution, payment)
	}

	r.logger.WithFields(logger.Fields{
		"strategy":          r.strategy.Name(),
		"transactions":      len(transactions),
		"payments":          len(payments),
		"profiles":          len(resolution.Profiles),
		"unlinked_payments": len(resolution.UnlinkedPayments),
	}).Debug("Resolved supplier profiles")

	return resolution, nil
}

// linkPayment attaches a payment to exactly one profile per pass.
// Precedence: first resolvable paidFor serial number, then normalized
// identity, then a synthesized profile for flagged outsider payments.
func (r *Resolver) linkPayment(resolution *Resolution, payment *models.Payment) {
	// Explicit references win; first match in paidFor order.
	for _, entry := range payment.PaidFor {
		if profile, exists := resolution.BySrNo[entry.SrNo]; exists {
			profile.Payments = append(profile.Payments, payment)
			return
		}
	}

	// Identity fallback: (name, fatherName), plus address when present.
	if profile := r.matchByIdentity(resolution, payment); profile != nil {
		profile.Payments = append(profile.Payments, payment)
		return
	}

	if payment.Outsider {
		profile := &SupplierProfile{
			Key:         models.IdentityKey(payment.Name, payment.FatherName, payment.Address),
			Name:        payment.Name,
			FatherName:  payment.FatherName,
			Address:     payment.Address,
			Synthesized: true,
		}
		profile.Payments = append(profile.Payments, payment)
		resolution.Profiles = append(resolution.Profiles, profile)
		if _, exists := resolution.ByKey[profile.Key]; !exists {
			resolution.ByKey[profile.Key] = profile
		}
		return
	}

	resolution.UnlinkedPayments = append(resolution.UnlinkedPayments, payment)
}

func (r *Resolver) matchByIdentity(resolution *Resolution, payment *models.Payment) *SupplierProfile {
	name := models.NormalizeField(payment.Name)
	father := models.NormalizeField(payment.FatherName)
	address := models.NormalizeField(payment.Address)
	if name == "" && father == "" {
		return nil
	}

	for _, profile := range resolution.Profiles {
		if models.NormalizeField(profile.Name) != name {
			continue
		}
		if models.NormalizeField(profile.FatherName) != father {
			continue
		}
		if address != "" && models.NormalizeField(profile.Address) != address {
			continue
		}
		return profile
	}
	return nil
}
