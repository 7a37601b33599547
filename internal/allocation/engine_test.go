package allocation

import (
	"testing"

	"github.com/shopspring/decimal"

	"supplier-ledger-engine/internal/models"
)

func dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func decPtr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

func testTransaction(srNo string, original float64) *models.Transaction {
	return &models.Transaction{
		SrNo:              srNo,
		Name:              "Ram Kumar",
		OriginalNetAmount: dec(original),
	}
}

func TestEngine_AllocateSimple(t *testing.T) {
	engine := NewEngine()

	transactions := []*models.Transaction{testTransaction("S00001", 1000)}
	payments := []*models.Payment{
		{ID: "P1", Date: day(2), ReceiptType: models.ReceiptCash, Amount: dec(600),
			PaidFor: []models.PaidForEntry{paidFor("S00001", 600)}},
	}

	enriched := engine.Allocate(transactions, payments)
	if len(enriched) != 1 {
		t.Fatalf("expected 1 enriched transaction, got %d", len(enriched))
	}

	tx := enriched[0]
	if !tx.TotalPaid.Equal(dec(600)) {
		t.Errorf("expected total paid 600, got %s", tx.TotalPaid)
	}
	if !tx.TotalCd.IsZero() {
		t.Errorf("expected total cd 0, got %s", tx.TotalCd)
	}
	if !tx.NetAmount.Equal(dec(400)) {
		t.Errorf("expected net 400, got %s", tx.NetAmount)
	}
	if len(tx.Payments) != 1 || tx.Payments[0].PaymentID != "P1" {
		t.Fatalf("expected allocation audit trail for P1, got %+v", tx.Payments)
	}
}

func TestEngine_ProportionalCdSplit(t *testing.T) {
	engine := NewEngine()

	transactions := []*models.Transaction{
		testTransaction("S00001", 700),
		testTransaction("S00002", 300),
	}
	// 30 CD across a 1000 split: 21 and 9
	payments := []*models.Payment{
		{ID: "P1", Date: day(1), Amount: dec(1000), CdAmount: dec(30),
			PaidFor: []models.PaidForEntry{
				paidFor("S00001", 700),
				paidFor("S00002", 300),
			}},
	}

	enriched := engine.Allocate(transactions, payments)

	byID := map[string]*models.EnrichedTransaction{}
	for _, tx := range enriched {
		byID[tx.SrNo] = tx
	}

	if got := byID["S00001"].TotalCd; !got.Equal(dec(21)) {
		t.Errorf("S00001 cd = %s, want 21", got)
	}
	if got := byID["S00002"].TotalCd; !got.Equal(dec(9)) {
		t.Errorf("S00002 cd = %s, want 9", got)
	}
	// Net folds CD in alongside the principal
	if got := byID["S00001"].NetAmount; !got.Equal(dec(-21)) {
		t.Errorf("S00001 net = %s, want -21", got)
	}
}

func TestEngine_ExplicitCdWins(t *testing.T) {
	engine := NewEngine()

	transactions := []*models.Transaction{testTransaction("S00001", 500)}
	payments := []*models.Payment{
		{ID: "P1", Date: day(1), Amount: dec(400), CdAmount: dec(40),
			PaidFor: []models.PaidForEntry{
				{SrNo: "S00001", Amount: dec(400), CdAmount: decPtr(15)},
			}},
	}

	enriched := engine.Allocate(transactions, payments)
	if got := enriched[0].TotalCd; !got.Equal(dec(15)) {
		t.Errorf("explicit cd = %s, want 15", got)
	}
	if got := enriched[0].NetAmount; !got.Equal(dec(85)) {
		t.Errorf("net = %s, want 85", got)
	}
}

func TestEngine_CdShareRounding(t *testing.T) {
	engine := NewEngine()

	transactions := []*models.Transaction{
		testTransaction("S00001", 100),
		testTransaction("S00002", 100),
		testTransaction("S00003", 100),
	}
	// 10 / 3 shares round half away from zero to 3.33 each
	payments := []*models.Payment{
		{ID: "P1", Date: day(1), Amount: dec(300), CdAmount: dec(10),
			PaidFor: []models.PaidForEntry{
				paidFor("S00001", 100),
				paidFor("S00002", 100),
				paidFor("S00003", 100),
			}},
	}

	enriched := engine.Allocate(transactions, payments)
	for _, tx := range enriched {
		if !tx.TotalCd.Equal(dec(3.33)) {
			t.Errorf("%s cd = %s, want 3.33", tx.SrNo, tx.TotalCd)
		}
	}
}

func TestEngine_NegativeNoiseClampsToZero(t *testing.T) {
	engine := NewEngine()

	// Original carries sub-cent residue; after full settlement the net is
	// -0.005, inside the noise interval
	transactions := []*models.Transaction{testTransaction("S00001", 99.995)}
	payments := []*models.Payment{
		{ID: "P1", Date: day(1), Amount: dec(100),
			PaidFor: []models.PaidForEntry{paidFor("S00001", 100)}},
	}

	enriched := engine.Allocate(transactions, payments)
	if !enriched[0].NetAmount.IsZero() {
		t.Errorf("expected noise clamped to 0, got %s", enriched[0].NetAmount)
	}
}

func TestEngine_FullySettledWithCdGoesNegative(t *testing.T) {
	engine := NewEngine()

	// Principal fully paid and CD on top: net -50, a real anomaly signal,
	// must survive the clamp
	transactions := []*models.Transaction{testTransaction("S00010", 1000)}
	payments := []*models.Payment{
		{ID: "P1", Date: day(1), Amount: dec(1000), CdAmount: dec(50),
			PaidFor: []models.PaidForEntry{paidFor("S00010", 1000)}},
	}

	enriched := engine.Allocate(transactions, payments)
	if got := enriched[0].NetAmount; !got.Equal(dec(-50)) {
		t.Errorf("net = %s, want -50", got)
	}
}

func TestEngine_PreviouslyPaidAuditTrail(t *testing.T) {
	engine := NewEngine()

	transactions := []*models.Transaction{testTransaction("S00001", 1000)}
	payments := []*models.Payment{
		{ID: "P2", Date: day(9), Amount: dec(300),
			PaidFor: []models.PaidForEntry{paidFor("S00001", 300)}},
		{ID: "P1", Date: day(3), Amount: dec(500),
			PaidFor: []models.PaidForEntry{paidFor("S00001", 500)}},
	}

	enriched := engine.Allocate(transactions, payments)
	allocs := enriched[0].Payments
	if len(allocs) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(allocs))
	}
	// Audit trail follows chronological order
	if allocs[0].PaymentID != "P1" || allocs[1].PaymentID != "P2" {
		t.Fatalf("expected chronological order P1,P2, got %s,%s",
			allocs[0].PaymentID, allocs[1].PaymentID)
	}
	if !allocs[0].PreviouslyPaid.IsZero() {
		t.Errorf("P1 previously paid = %s, want 0", allocs[0].PreviouslyPaid)
	}
	if !allocs[1].PreviouslyPaid.Equal(dec(500)) {
		t.Errorf("P2 previously paid = %s, want 500", allocs[1].PreviouslyPaid)
	}
}

func TestEngine_UnreferencedTransactionUntouched(t *testing.T) {
	engine := NewEngine()

	transactions := []*models.Transaction{testTransaction("S00099", 250)}
	payments := []*models.Payment{
		{ID: "P1", Date: day(1), Amount: dec(100),
			PaidFor: []models.PaidForEntry{paidFor("S00001", 100)}},
	}

	enriched := engine.Allocate(transactions, payments)
	tx := enriched[0]
	if !tx.TotalPaid.IsZero() || !tx.TotalCd.IsZero() {
		t.Errorf("expected no settlement, got paid=%s cd=%s", tx.TotalPaid, tx.TotalCd)
	}
	if !tx.NetAmount.Equal(dec(250)) {
		t.Errorf("net = %s, want 250", tx.NetAmount)
	}
	if len(tx.Payments) != 0 {
		t.Errorf("expected empty audit trail, got %d entries", len(tx.Payments))
	}
}
