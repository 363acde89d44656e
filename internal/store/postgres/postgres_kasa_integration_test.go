package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"onestoppos/backend/internal/domain"
	"onestoppos/backend/internal/store"
)

func newIntegrationStore(t *testing.T) *Store {
	t.Helper()

	databaseURL := os.Getenv("ONESTOPPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set ONESTOPPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestSubmitBalanceSheetIdempotentResubmit(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	stamp := time.Now().UnixNano()
	day := fmt.Sprintf("2090-01-%02d", 1+stamp%27)

	ep, err := s.CreateExpenseProduct(ctx, domain.ExpenseProduct{
		Name:     fmt.Sprintf("Gider IT %d", stamp),
		Category: domain.CategoryKasa,
	})
	if err != nil {
		t.Fatalf("create expense product: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM daily_balance_sheets WHERE sheet_date = $1::date`, day)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM expense_products WHERE id = $1`, ep.ID)
	})

	req := domain.BalanceSheetSubmitRequest{
		SheetDate: day,
		KasaNakit: decimal.NewFromInt(400),
		KKart:     decimal.NewFromInt(500),
		CreatedBy: "integration",
		Expenses: []domain.ExpenseLineInput{
			{ExpenseProductID: ep.ID, ExpenseType: domain.ExpenseTypeKasa, Quantity: 1, UnitPrice: decimal.NewFromInt(50), TotalPrice: decimal.NewFromInt(50)},
		},
	}

	first, err := s.SubmitBalanceSheet(ctx, req)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := s.SubmitBalanceSheet(ctx, req)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("resubmit created a new sheet: %d vs %d", first.ID, second.ID)
	}
	if !second.Toplam.Equal(first.Toplam) || !second.Fark.Equal(first.Fark) || !second.DevirToplam.Equal(first.DevirToplam) {
		t.Fatalf("resubmit changed totals: %+v vs %+v", first, second)
	}
	if len(second.Expenses) != 1 {
		t.Fatalf("expected 1 expense line after resubmit, got %d", len(second.Expenses))
	}
}

func TestSubmitBalanceSheetCarriesDevirToNextDay(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	stamp := time.Now().UnixNano()
	d1 := fmt.Sprintf("2091-03-%02d", 1+stamp%14)
	base, _ := time.Parse("2006-01-02", d1)
	d2 := base.AddDate(0, 0, 1).Format("2006-01-02")

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM daily_balance_sheets WHERE sheet_date IN ($1::date, $2::date)`, d1, d2)
	})

	first, err := s.SubmitBalanceSheet(ctx, domain.BalanceSheetSubmitRequest{
		SheetDate: d1,
		KasaNakit: decimal.NewFromInt(200),
	})
	if err != nil {
		t.Fatalf("submit day one: %v", err)
	}
	if !first.DevirToplam.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected devir 200 on day one, got %s", first.DevirToplam)
	}

	second, err := s.SubmitBalanceSheet(ctx, domain.BalanceSheetSubmitRequest{
		SheetDate: d2,
		KasaNakit: decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("submit day two: %v", err)
	}
	if !second.DevirToplam.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected devir 300 on day two, got %s", second.DevirToplam)
	}
}

func TestSubmitBalanceSheetRejectsUnknownExpenseProduct(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	stamp := time.Now().UnixNano()
	day := fmt.Sprintf("2092-05-%02d", 1+stamp%27)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM daily_balance_sheets WHERE sheet_date = $1::date`, day)
	})

	_, err := s.SubmitBalanceSheet(ctx, domain.BalanceSheetSubmitRequest{
		SheetDate: day,
		KasaNakit: decimal.NewFromInt(100),
		Expenses: []domain.ExpenseLineInput{
			{ExpenseProductID: -1, ExpenseType: domain.ExpenseTypeKasa, TotalPrice: decimal.NewFromInt(10)},
		},
	})
	if !errors.Is(err, store.ErrMissingReference) {
		t.Fatalf("expected ErrMissingReference, got %v", err)
	}

	if _, err := s.GetBalanceSheet(ctx, day); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no sheet persisted after failed submit, got err=%v", err)
	}
}
