package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestReconcileSheetDerivesToplamAndFark(t *testing.T) {
	expenses := []ExpenseLineInput{
		{ExpenseProductID: 1, ExpenseType: ExpenseTypeKasa, Quantity: 1, UnitPrice: dec("50"), TotalPrice: dec("50")},
	}

	got := ReconcileSheet(dec("1000"), decimal.Zero, dec("400"), dec("500"), expenses)

	if !got.Toplam.Equal(dec("950")) {
		t.Fatalf("expected toplam 950, got %s", got.Toplam)
	}
	if !got.Fark.Equal(dec("50")) {
		t.Fatalf("expected fark 50, got %s", got.Fark)
	}
}

func TestReconcileSheetCarryForwardWithoutPreviousDay(t *testing.T) {
	expenses := []ExpenseLineInput{
		{ExpenseProductID: 2, ExpenseType: ExpenseTypeDevir, Quantity: 1, UnitPrice: dec("30"), TotalPrice: dec("30")},
	}

	got := ReconcileSheet(decimal.Zero, decimal.Zero, dec("200"), decimal.Zero, expenses)

	if !got.DevirToplam.Equal(dec("170")) {
		t.Fatalf("expected devir_toplam 170, got %s", got.DevirToplam)
	}
}

func TestReconcileSheetBucketsAreIsolated(t *testing.T) {
	expenses := []ExpenseLineInput{
		{ExpenseProductID: 1, ExpenseType: ExpenseTypeKart, Quantity: 1, UnitPrice: dec("75"), TotalPrice: dec("75")},
	}

	got := ReconcileSheet(dec("500"), dec("100"), dec("300"), dec("150"), expenses)

	if !got.KartGider.Equal(dec("75")) {
		t.Fatalf("expected kart_gider 75, got %s", got.KartGider)
	}
	// A card expense must not leak into the cash bucket or the carry chain.
	if !got.Toplam.Equal(dec("450")) {
		t.Fatalf("expected toplam 450, got %s", got.Toplam)
	}
	if !got.DevirToplam.Equal(dec("400")) {
		t.Fatalf("expected devir_toplam 400, got %s", got.DevirToplam)
	}
}

func TestReconcileSheetSumsRepeatedProductLines(t *testing.T) {
	expenses := []ExpenseLineInput{
		{ExpenseProductID: 3, ExpenseType: ExpenseTypeKasa, Quantity: 2, UnitPrice: dec("10"), TotalPrice: dec("20")},
		{ExpenseProductID: 3, ExpenseType: ExpenseTypeKasa, Quantity: 1, UnitPrice: dec("5"), TotalPrice: dec("5")},
	}

	got := ReconcileSheet(decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, expenses)

	if !got.KasaGider.Equal(dec("25")) {
		t.Fatalf("expected kasa_gider 25, got %s", got.KasaGider)
	}
}

func TestReconcileSheetEmptyExpensesYieldZeroBuckets(t *testing.T) {
	got := ReconcileSheet(dec("100"), dec("40"), dec("60"), dec("40"), nil)

	if !got.KasaGider.IsZero() || !got.KartGider.IsZero() || !got.DevirGider.IsZero() {
		t.Fatalf("expected zero expense buckets, got %s/%s/%s", got.KasaGider, got.KartGider, got.DevirGider)
	}
	if !got.Toplam.Equal(dec("100")) {
		t.Fatalf("expected toplam 100, got %s", got.Toplam)
	}
	if !got.DevirToplam.Equal(dec("100")) {
		t.Fatalf("expected devir_toplam 100, got %s", got.DevirToplam)
	}
}
