package profiles

import (
	"testing"

	"github.com/shopspring/decimal"

	"supplier-ledger-engine/internal/models"
)

func tx(srNo, name, father, address string) *models.Transaction {
	return &models.Transaction{
		SrNo: srNo, Name: name, FatherName: father, Address: address,
		OriginalNetAmount: decimal.NewFromInt(100),
	}
}

func TestStrictKeyStrategy_GroupsByNormalizedTuple(t *testing.T) {
	strategy := NewStrictKeyStrategy()

	transactions := []*models.Transaction{
		tx("S00001", "Ram Kumar", "Shyam Lal", "Mandi Road"),
		tx("S00002", "  ram kumar ", "SHYAM LAL", "mandi road"),
		tx("S00003", "Ram Kumar", "Shyam Lal", "Other Street"),
	}

	groups := strategy.GroupTransactions(transactions)
	if len(groups) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(groups))
	}
	if len(groups[0].Transactions) != 2 {
		t.Errorf("first profile transactions = %d, want 2 (case and whitespace normalized)",
			len(groups[0].Transactions))
	}
	// First-seen order
	if groups[0].Transactions[0].SrNo != "S00001" || groups[1].Transactions[0].SrNo != "S00003" {
		t.Errorf("profile order not first-seen: %+v", groups)
	}
}

func TestStrictKeyStrategy_NeverMergesNearMisses(t *testing.T) {
	strategy := NewStrictKeyStrategy()

	transactions := []*models.Transaction{
		tx("S00001", "Ram Kumar", "Shyam Lal", "Mandi Road"),
		tx("S00002", "Ram Kumer", "Shyam Lal", "Mandi Road"),
	}

	if groups := strategy.GroupTransactions(transactions); len(groups) != 2 {
		t.Errorf("strict strategy must not merge near-identical names, got %d profiles", len(groups))
	}
}

func TestFuzzyLinkageStrategy_MergesAgainstSeed(t *testing.T) {
	strategy := NewFuzzyLinkageStrategy(nil)

	transactions := []*models.Transaction{
		tx("S00001", "Ram Kumar", "Shyam Lal", "Mandi Road"),
		tx("S00002", "Ram Kumer", "Shyam Lal", "Mandi Road"),
		tx("S00003", "Mohan Singh", "Prem Singh", "Old Bazar"),
	}

	groups := strategy.GroupTransactions(transactions)
	if len(groups) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(groups))
	}
	if len(groups[0].Transactions) != 2 {
		t.Errorf("seed group transactions = %d, want 2", len(groups[0].Transactions))
	}
	// Similar absorption keeps its diagnostics
	if len(groups[0].Merges) != 1 || groups[0].Merges[0].SrNo != "S00002" {
		t.Errorf("merge notes = %+v, want one for S00002", groups[0].Merges)
	}
	if groups[0].Merges[0].TotalDifference != 1 {
		t.Errorf("total difference = %d, want 1", groups[0].Merges[0].TotalDifference)
	}
}

func TestFuzzyLinkageStrategy_ExactAbsorptionHasNoMergeNote(t *testing.T) {
	strategy := NewFuzzyLinkageStrategy(nil)

	transactions := []*models.Transaction{
		tx("S00001", "Ram Kumar", "Shyam Lal", "Mandi Road"),
		tx("S00002", "ram kumar", "shyam lal", "mandi road"),
	}

	groups := strategy.GroupTransactions(transactions)
	if len(groups) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(groups))
	}
	if len(groups[0].Merges) != 0 {
		t.Errorf("exact matches must not record merge notes: %+v", groups[0].Merges)
	}
}

func TestResolver_PaymentLinkedBySrNo(t *testing.T) {
	resolver := NewResolver(NewStrictKeyStrategy())

	transactions := []*models.Transaction{
		tx("S00001", "Ram Kumar", "Shyam Lal", "Mandi Road"),
		tx("S00002", "Mohan Singh", "Prem Singh", "Old Bazar"),
	}
	payments := []*models.Payment{
		{ID: "P1", Amount: decimal.NewFromInt(50),
			// Identity says Mohan, paidFor says Ram's transaction:
			// the explicit reference wins
			Name:    "Mohan Singh",
			PaidFor: []models.PaidForEntry{{SrNo: "S00001", Amount: decimal.NewFromInt(50)}}},
	}

	resolution, err := resolver.Resolve(transactions, payments)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	ram := resolution.BySrNo["S00001"]
	if len(ram.Payments) != 1 || ram.Payments[0].ID != "P1" {
		t.Errorf("payment not linked by serial number: %+v", ram.Payments)
	}
	mohan := resolution.BySrNo["S00002"]
	if len(mohan.Payments) != 0 {
		t.Errorf("payment double-linked: %+v", mohan.Payments)
	}
}

func TestResolver_PaymentLinkedByIdentity(t *testing.T) {
	resolver := NewResolver(NewStrictKeyStrategy())

	transactions := []*models.Transaction{
		tx("S00001", "Ram Kumar", "Shyam Lal", "Mandi Road"),
	}
	payments := []*models.Payment{
		{ID: "P1", Amount: decimal.NewFromInt(50),
			Name: "ram kumar", FatherName: "Shyam Lal"},
	}

	resolution, err := resolver.Resolve(transactions, payments)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(resolution.BySrNo["S00001"].Payments) != 1 {
		t.Errorf("identity linkage failed: %+v", resolution.BySrNo["S00001"].Payments)
	}
}

func TestResolver_IdentityAddressOnlyCheckedWhenPresent(t *testing.T) {
	resolver := NewResolver(NewStrictKeyStrategy())

	transactions := []*models.Transaction{
		tx("S00001", "Ram Kumar", "Shyam Lal", "Mandi Road"),
	}

	// No address on the payment: (name, father) is enough
	loose := &models.Payment{ID: "P1", Amount: decimal.NewFromInt(10),
		Name: "Ram Kumar", FatherName: "Shyam Lal"}
	// Conflicting address blocks the match
	strict := &models.Payment{ID: "P2", Amount: decimal.NewFromInt(10),
		Name: "Ram Kumar", FatherName: "Shyam Lal", Address: "Elsewhere"}

	resolution, err := resolver.Resolve(transactions, []*models.Payment{loose, strict})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	profile := resolution.BySrNo["S00001"]
	if len(profile.Payments) != 1 || profile.Payments[0].ID != "P1" {
		t.Errorf("linked payments = %+v, want only P1", profile.Payments)
	}
	if len(resolution.UnlinkedPayments) != 1 || resolution.UnlinkedPayments[0].ID != "P2" {
		t.Errorf("unlinked = %+v, want P2", resolution.UnlinkedPayments)
	}
}

func TestResolver_OutsiderPaymentSynthesizesProfile(t *testing.T) {
	resolver := NewResolver(NewStrictKeyStrategy())

	payments := []*models.Payment{
		{ID: "P1", Amount: decimal.NewFromInt(25),
			Name: "Outside Trader", FatherName: "Unknown", Outsider: true},
	}

	resolution, err := resolver.Resolve(nil, payments)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if len(resolution.Profiles) != 1 {
		t.Fatalf("expected synthesized profile, got %d profiles", len(resolution.Profiles))
	}
	profile := resolution.Profiles[0]
	if !profile.Synthesized || profile.Name != "Outside Trader" {
		t.Errorf("profile = %+v, want synthesized from payment identity", profile)
	}
	if len(profile.Payments) != 1 {
		t.Errorf("payment not attached to synthesized profile")
	}
	if len(resolution.UnlinkedPayments) != 0 {
		t.Errorf("outsider payment must not be reported unlinked")
	}
}

func TestResolver_UnmatchedNonOutsiderSurfacesUnlinked(t *testing.T) {
	resolver := NewResolver(NewStrictKeyStrategy())

	payments := []*models.Payment{
		{ID: "P1", Amount: decimal.NewFromInt(25), Name: "Nobody Known"},
	}

	resolution, err := resolver.Resolve(nil, payments)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(resolution.Profiles) != 0 {
		t.Errorf("no profile should be synthesized without the outsider flag")
	}
	if len(resolution.UnlinkedPayments) != 1 {
		t.Errorf("expected payment surfaced as unlinked")
	}
}

func TestResolver_MissingKeysAreHardFailures(t *testing.T) {
	resolver := NewResolver(nil)

	if _, err := resolver.Resolve([]*models.Transaction{{Name: "No Serial"}}, nil); err == nil {
		t.Error("expected missing srNo to fail resolution")
	}
	if _, err := resolver.Resolve(nil, []*models.Payment{{Amount: decimal.NewFromInt(1)}}); err == nil {
		t.Error("expected missing payment id to fail resolution")
	}
}

func TestStrategyFor(t *testing.T) {
	if s, err := StrategyFor(StrategyStrict, nil); err != nil || s.Name() != StrategyStrict {
		t.Errorf("strict strategy lookup failed: %v", err)
	}
	if s, err := StrategyFor(StrategyFuzzy, nil); err != nil || s.Name() != StrategyFuzzy {
		t.Errorf("fuzzy strategy lookup failed: %v", err)
	}
	if _, err := StrategyFor("nonsense", nil); err == nil {
		t.Error("expected unknown strategy rejected")
	}
}

func TestResolver_ContactsAggregated(t *testing.T) {
	strategy := NewStrictKeyStrategy()

	a := tx("S00001", "Ram Kumar", "Shyam Lal", "Mandi Road")
	a.Contact = "99001"
	b := tx("S00002", "Ram Kumar", "Shyam Lal", "Mandi Road")
	b.Contact = "99002"
	c := tx("S00003", "Ram Kumar", "Shyam Lal", "Mandi Road")
	c.Contact = "99001"

	groups := strategy.GroupTransactions([]*models.Transaction{a, b, c})
	if len(groups) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(groups))
	}
	if len(groups[0].Contacts) != 2 {
		t.Errorf("contacts = %v, want deduplicated pair", groups[0].Contacts)
	}
}
