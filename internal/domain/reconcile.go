package domain

import "github.com/shopspring/decimal"

// SheetTotals holds the derived figures for one day's balance sheet.
type SheetTotals struct {
	KasaSistem  decimal.Decimal
	KasaGider   decimal.Decimal
	KartGider   decimal.Decimal
	DevirGider  decimal.Decimal
	Toplam      decimal.Decimal
	Fark        decimal.Decimal
	DevirToplam decimal.Decimal
}

// ReconcileSheet derives the day's totals from the system sales figure, the
// previous day's carry-forward balance, the manual cash and card counts, and
// the itemized expense lines. Pass a zero prevDevir when no sheet exists for
// the previous day.
//
//	toplam       = kasa_nakit + k_kart + kasa_gider
//	fark         = kasa_sistem - toplam
//	devir_toplam = prev_devir - devir_gider + kasa_nakit
func ReconcileSheet(kasaSistem, prevDevir, kasaNakit, kKart decimal.Decimal, expenses []ExpenseLineInput) SheetTotals {
	t := SheetTotals{KasaSistem: kasaSistem}
	for _, e := range expenses {
		switch e.ExpenseType {
		case ExpenseTypeKasa:
			t.KasaGider = t.KasaGider.Add(e.TotalPrice)
		case ExpenseTypeKart:
			t.KartGider = t.KartGider.Add(e.TotalPrice)
		case ExpenseTypeDevir:
			t.DevirGider = t.DevirGider.Add(e.TotalPrice)
		}
	}
	t.Toplam = kasaNakit.Add(kKart).Add(t.KasaGider)
	t.Fark = kasaSistem.Sub(t.Toplam)
	t.DevirToplam = prevDevir.Sub(t.DevirGider).Add(kasaNakit)
	return t
}
