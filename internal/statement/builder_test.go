package statement

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"supplier-ledger-engine/internal/models"
)

func dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func stmtTx(srNo string, d int, original float64) *models.EnrichedTransaction {
	return &models.EnrichedTransaction{
		Transaction: models.Transaction{
			SrNo: srNo, Date: day(d), OriginalNetAmount: dec(original),
		},
	}
}

func stmtPayment(id string, d int, amount, cd float64, srNo string) *models.Payment {
	p := &models.Payment{
		ID: id, Date: day(d), ReceiptType: models.ReceiptCash,
		Amount: dec(amount), CdAmount: dec(cd),
	}
	if srNo != "" {
		p.PaidFor = []models.PaidForEntry{{SrNo: srNo, Amount: dec(amount)}}
	}
	return p
}

func TestBuilder_RunningBalance(t *testing.T) {
	builder := NewBuilder(nil)

	transactions := []*models.EnrichedTransaction{stmtTx("S00001", 1, 1000)}
	payments := []*models.Payment{
		stmtPayment("P1", 5, 600, 20, "S00001"),
		stmtPayment("P2", 9, 300, 0, "S00001"),
	}

	stmt, err := builder.Build(context.Background(), transactions, payments, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(stmt.Lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(stmt.Lines))
	}

	// Debit 1000, then credit 600 + 20 CD, then credit 300
	wantBalances := []float64{1000, 380, 80}
	for i, want := range wantBalances {
		if !stmt.Lines[i].Balance.Equal(dec(want)) {
			t.Errorf("line %d balance = %s, want %v", i, stmt.Lines[i].Balance, want)
		}
	}

	if !stmt.Totals.Outstanding.Equal(dec(80)) {
		t.Errorf("outstanding = %s, want 80", stmt.Totals.Outstanding)
	}
	if !stmt.Totals.TotalPaid.Equal(dec(900)) {
		t.Errorf("total paid = %s, want 900", stmt.Totals.TotalPaid)
	}
	if !stmt.Totals.TotalCashPaid.Equal(dec(900)) {
		t.Errorf("total cash paid = %s, want 900", stmt.Totals.TotalCashPaid)
	}
	if !stmt.Totals.TotalCd.Equal(dec(20)) {
		t.Errorf("total cd = %s, want 20", stmt.Totals.TotalCd)
	}
}

func TestBuilder_ReceiptTypeTotals(t *testing.T) {
	builder := NewBuilder(nil)

	rtgs := stmtPayment("P1", 2, 500, 0, "")
	rtgs.ReceiptType = models.ReceiptRTGS
	cash := stmtPayment("P2", 3, 200, 0, "")
	gov := stmtPayment("P3", 4, 100, 0, "")
	gov.ReceiptType = models.ReceiptGov

	stmt, err := builder.Build(context.Background(), nil,
		[]*models.Payment{rtgs, cash, gov}, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if !stmt.Totals.TotalRtgsPaid.Equal(dec(500)) {
		t.Errorf("rtgs paid = %s, want 500", stmt.Totals.TotalRtgsPaid)
	}
	if !stmt.Totals.TotalCashPaid.Equal(dec(200)) {
		t.Errorf("cash paid = %s, want 200", stmt.Totals.TotalCashPaid)
	}
	if !stmt.Totals.TotalPaid.Equal(dec(800)) {
		t.Errorf("total paid = %s, want 800", stmt.Totals.TotalPaid)
	}
}

func TestBuilder_ChronologicalOrder(t *testing.T) {
	builder := NewBuilder(nil)

	transactions := []*models.EnrichedTransaction{
		stmtTx("S00002", 10, 500),
		stmtTx("S00001", 1, 1000),
	}
	payments := []*models.Payment{stmtPayment("P1", 5, 600, 0, "S00001")}

	stmt, err := builder.Build(context.Background(), transactions, payments, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	wantOrder := []string{"S00001", "P1", "S00002"}
	for i, want := range wantOrder {
		got := stmt.Lines[i].SrNo
		if got == "" {
			got = stmt.Lines[i].PaymentID
		}
		if got != want {
			t.Errorf("line %d = %s, want %s", i, got, want)
		}
	}
}

func TestBuilder_UnparseableDatesSortLast(t *testing.T) {
	builder := NewBuilder(nil)

	undated := &models.Payment{ID: "P9", DateRaw: "garbled", Amount: dec(10)}
	dated := stmtPayment("P1", 2, 100, 0, "")

	stmt, err := builder.Build(context.Background(), nil,
		[]*models.Payment{undated, dated}, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if stmt.Lines[0].PaymentID != "P1" || stmt.Lines[1].PaymentID != "P9" {
		t.Errorf("order = %s,%s, want dated line first",
			stmt.Lines[0].PaymentID, stmt.Lines[1].PaymentID)
	}
	if stmt.Lines[1].DateDisplay != "garbled" {
		t.Errorf("unparseable line shows %q, want raw string", stmt.Lines[1].DateDisplay)
	}
}

func TestBuilder_AmbiguousPaymentDateUsesLinkedTransaction(t *testing.T) {
	builder := NewBuilder(nil)

	// Payment raw date 03/04 is ambiguous; linked transaction on 2 Mar
	// pulls it to 4 Mar rather than 3 Apr
	transactions := []*models.EnrichedTransaction{stmtTx("S00001", 2, 1000)}
	payment := &models.Payment{
		ID: "P1", DateRaw: "03/04/2024", Amount: dec(500),
		PaidFor: []models.PaidForEntry{{SrNo: "S00001", Amount: dec(500)}},
	}

	stmt, err := builder.Build(context.Background(), transactions,
		[]*models.Payment{payment}, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	var line *Line
	for i := range stmt.Lines {
		if stmt.Lines[i].PaymentID == "P1" {
			line = &stmt.Lines[i]
		}
	}
	if line == nil {
		t.Fatal("payment line missing")
	}
	want := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	if !line.Date.Equal(want) {
		t.Errorf("payment date = %s, want %s", line.Date, want)
	}
}

func TestBuilder_AmbiguousDateOverridesEagerParse(t *testing.T) {
	builder := NewBuilder(nil)

	// Loaders resolve ambiguous dates day-first before any transaction
	// link is known. The builder must re-read the raw string against the
	// linked transaction's date, not trust the preparsed value.
	transactions := []*models.EnrichedTransaction{stmtTx("S00001", 4, 1000)}
	payment := &models.Payment{
		ID:      "P1",
		Date:    time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC),
		DateRaw: "03/04/2024",
		Amount:  dec(500),
		PaidFor: []models.PaidForEntry{{SrNo: "S00001", Amount: dec(500)}},
	}

	stmt, err := builder.Build(context.Background(), transactions,
		[]*models.Payment{payment}, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	var line *Line
	for i := range stmt.Lines {
		if stmt.Lines[i].PaymentID == "P1" {
			line = &stmt.Lines[i]
		}
	}
	if line == nil {
		t.Fatal("payment line missing")
	}
	want := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	if !line.Date.Equal(want) {
		t.Errorf("payment date = %s, want %s", line.Date, want)
	}
}

func TestBuilder_ChunkSizeInvariant(t *testing.T) {
	var transactions []*models.EnrichedTransaction
	var payments []*models.Payment
	for i := 0; i < 500; i++ {
		srNo := models.FormatSrNo(i + 1)
		transactions = append(transactions, stmtTx(srNo, (i%27)+1, float64(100+i)))
		payments = append(payments, stmtPayment(
			"P"+srNo, (i%27)+2, float64(40+i), float64(i%3), srNo))
	}

	small := NewBuilder(&BuilderConfig{ChunkSize: 50})
	large := NewBuilder(&BuilderConfig{ChunkSize: 5000})

	stmtSmall, err := small.Build(context.Background(), transactions, payments, nil)
	if err != nil {
		t.Fatalf("small chunk build failed: %v", err)
	}
	stmtLarge, err := large.Build(context.Background(), transactions, payments, nil)
	if err != nil {
		t.Fatalf("large chunk build failed: %v", err)
	}

	if len(stmtSmall.Lines) != len(stmtLarge.Lines) {
		t.Fatalf("line counts differ: %d vs %d", len(stmtSmall.Lines), len(stmtLarge.Lines))
	}
	for i := range stmtSmall.Lines {
		a, b := stmtSmall.Lines[i], stmtLarge.Lines[i]
		if a.SrNo != b.SrNo || a.PaymentID != b.PaymentID || !a.Balance.Equal(b.Balance) {
			t.Fatalf("line %d differs between chunk sizes: %+v vs %+v", i, a, b)
		}
	}
	if !stmtSmall.Totals.Outstanding.Equal(stmtLarge.Totals.Outstanding) {
		t.Errorf("outstanding differs: %s vs %s",
			stmtSmall.Totals.Outstanding, stmtLarge.Totals.Outstanding)
	}
}

func TestBuilder_YieldProgress(t *testing.T) {
	builder := NewBuilder(&BuilderConfig{ChunkSize: 10})

	var payments []*models.Payment
	for i := 0; i < 25; i++ {
		payments = append(payments, stmtPayment("P"+models.FormatSrNo(i), (i%20)+1, 10, 0, ""))
	}

	var calls []int
	_, err := builder.Build(context.Background(), nil, payments,
		func(processed, total int) {
			if total != 25 {
				t.Errorf("total = %d, want 25", total)
			}
			calls = append(calls, processed)
		})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	want := []int{10, 20, 25}
	if len(calls) != len(want) {
		t.Fatalf("yield calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("yield calls = %v, want %v", calls, want)
		}
	}
}

func TestBuilder_ContextCancellation(t *testing.T) {
	builder := NewBuilder(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := builder.Build(ctx, []*models.EnrichedTransaction{stmtTx("S00001", 1, 100)}, nil, nil)
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestBuilderConfig_Validate(t *testing.T) {
	if err := DefaultBuilderConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	bad := &BuilderConfig{ChunkSize: 0}
	if err := bad.Validate(); err == nil {
		t.Error("expected zero chunk size rejected")
	}
}
