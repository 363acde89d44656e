package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"onestoppos/backend/internal/cache"
	"onestoppos/backend/internal/domain"
	"onestoppos/backend/internal/notify"
	"onestoppos/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo          store.Repository
	summaries     cache.SummaryCache
	gateway       notify.Gateway
	loc           *time.Location
	countryPrefix string
	sendDelay     time.Duration
	summaryTTL    time.Duration
}

func New(repo store.Repository, summaries cache.SummaryCache, gateway notify.Gateway, loc *time.Location, countryPrefix string, sendDelay, summaryTTL time.Duration) *Service {
	if summaries == nil {
		summaries = cache.NoopSummaryCache{}
	}
	if gateway == nil {
		gateway = notify.MockGateway{}
	}
	if loc == nil {
		loc = time.Local
	}
	if countryPrefix == "" {
		countryPrefix = "90"
	}

	return &Service{
		repo:          repo,
		summaries:     summaries,
		gateway:       gateway,
		loc:           loc,
		countryPrefix: countryPrefix,
		sendDelay:     sendDelay,
		summaryTTL:    summaryTTL,
	}
}

// ---- products ----

func (s *Service) ListProducts(ctx context.Context, search string) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, strings.TrimSpace(search))
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *p, nil
}

func (s *Service) GetProductByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return domain.Product{}, fmt.Errorf("%w: barcode is required", store.ErrInvalidInput)
	}
	p, err := s.repo.GetProductByBarcode(ctx, barcode)
	if err != nil {
		return domain.Product{}, err
	}
	return *p, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	product, err := s.productFromRequest(req.Barcode, req.Name, req.Category, req.Unit, req.ExpireDate, req.PriceBuy, req.PriceSell, req.Stock, req.IsByWeight, req.PricePerKg)
	if err != nil {
		return domain.Product{}, err
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	log.Printf("[service] product created id=%d barcode=%s", created.ID, created.Barcode)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, req domain.ProductUpdateRequest) (domain.Product, error) {
	product, err := s.productFromRequest(req.Barcode, req.Name, req.Category, req.Unit, req.ExpireDate, req.PriceBuy, req.PriceSell, req.Stock, req.IsByWeight, req.PricePerKg)
	if err != nil {
		return domain.Product{}, err
	}
	product.ID = id

	updated, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	return *updated, nil
}

func (s *Service) productFromRequest(barcode, name, category, unit, expireDate string, priceBuy, priceSell decimal.Decimal, stock int, isByWeight bool, pricePerKg *decimal.Decimal) (domain.Product, error) {
	barcode = strings.TrimSpace(barcode)
	name = strings.TrimSpace(name)
	if barcode == "" || name == "" {
		return domain.Product{}, fmt.Errorf("%w: barcode and name are required", store.ErrInvalidInput)
	}
	if priceBuy.IsNegative() || priceSell.IsNegative() {
		return domain.Product{}, fmt.Errorf("%w: prices cannot be negative", store.ErrInvalidInput)
	}
	if isByWeight && (pricePerKg == nil || !pricePerKg.IsPositive()) {
		return domain.Product{}, fmt.Errorf("%w: price_per_kg is required for weighed products", store.ErrInvalidInput)
	}

	product := domain.Product{
		Barcode:    barcode,
		Name:       name,
		PriceBuy:   priceBuy,
		PriceSell:  priceSell,
		Stock:      stock,
		Category:   strings.TrimSpace(category),
		IsByWeight: isByWeight,
		PricePerKg: pricePerKg,
		Unit:       strings.TrimSpace(unit),
	}
	if strings.TrimSpace(expireDate) != "" {
		parsed, err := time.ParseInLocation("2006-01-02", expireDate, s.loc)
		if err != nil {
			return domain.Product{}, fmt.Errorf("%w: expire_date must be YYYY-MM-DD", store.ErrInvalidInput)
		}
		product.ExpireDate = &parsed
	}
	return product, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.repo.DeleteProduct(ctx, id)
}

func (s *Service) AdjustStock(ctx context.Context, id int64, req domain.StockAdjustRequest) (domain.Product, error) {
	if req.Quantity == 0 {
		return domain.Product{}, fmt.Errorf("%w: quantity must be non-zero", store.ErrInvalidInput)
	}
	updated, err := s.repo.AdjustStock(ctx, id, req.Quantity)
	if err != nil {
		return domain.Product{}, err
	}
	return *updated, nil
}

// ---- transactions ----

func (s *Service) ListTransactions(ctx context.Context, limit, offset int) ([]domain.Transaction, error) {
	return s.repo.ListTransactions(ctx, limit, offset)
}

func (s *Service) GetTransaction(ctx context.Context, id int64) (domain.Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	return *tx, nil
}

func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.Transaction, error) {
	if len(req.Items) == 0 {
		return domain.Transaction{}, fmt.Errorf("%w: at least one item is required", store.ErrInvalidInput)
	}

	lines := make([]domain.TransactionItem, 0, len(req.Items))
	for _, item := range req.Items {
		product, err := s.repo.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Transaction{}, fmt.Errorf("%w: product %d", store.ErrMissingReference, item.ProductID)
			}
			return domain.Transaction{}, err
		}
		line, err := domain.PriceLine(*product, item)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
		}
		lines = append(lines, line)
	}

	amount, profit := domain.CheckoutTotals(lines)
	date := time.Now().In(s.loc)
	if req.Date != nil {
		date = req.Date.In(s.loc)
	}

	created, err := s.repo.CreateCheckout(ctx, domain.Transaction{
		Date:        date,
		TotalAmount: amount,
		TotalProfit: profit,
		Items:       lines,
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	log.Printf("[service] checkout id=%d items=%d total=%s", created.ID, len(created.Items), created.TotalAmount)
	return *created, nil
}

func (s *Service) VoidTransaction(ctx context.Context, id int64) error {
	if err := s.repo.VoidTransaction(ctx, id); err != nil {
		return err
	}
	log.Printf("[service] transaction voided id=%d", id)
	return nil
}

func (s *Service) TransactionStats(ctx context.Context, startDate, endDate string) (domain.TransactionStats, error) {
	var start, end *time.Time
	if strings.TrimSpace(startDate) != "" && strings.TrimSpace(endDate) != "" {
		from, err := time.ParseInLocation("2006-01-02", startDate, s.loc)
		if err != nil {
			return domain.TransactionStats{}, fmt.Errorf("%w: start_date must be YYYY-MM-DD", store.ErrInvalidInput)
		}
		to, err := time.ParseInLocation("2006-01-02", endDate, s.loc)
		if err != nil {
			return domain.TransactionStats{}, fmt.Errorf("%w: end_date must be YYYY-MM-DD", store.ErrInvalidInput)
		}
		to = to.Add(24*time.Hour - time.Nanosecond)
		start, end = &from, &to
	}
	return s.repo.GetTransactionStats(ctx, start, end)
}

// ---- customers & verisiye ----

func (s *Service) ListCustomers(ctx context.Context, search string) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx, strings.TrimSpace(search))
}

func (s *Service) GetCustomer(ctx context.Context, id int64) (domain.Customer, error) {
	c, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	return *c, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Customer{}, fmt.Errorf("%w: name is required", store.ErrInvalidInput)
	}
	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		Name:    req.Name,
		HouseNo: strings.TrimSpace(req.HouseNo),
		Phone:   strings.TrimSpace(req.Phone),
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return *created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id int64, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Customer{}, fmt.Errorf("%w: name is required", store.ErrInvalidInput)
	}
	updated, err := s.repo.UpdateCustomer(ctx, domain.Customer{
		ID:      id,
		Name:    req.Name,
		HouseNo: strings.TrimSpace(req.HouseNo),
		Phone:   strings.TrimSpace(req.Phone),
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return *updated, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id int64) error {
	return s.repo.DeleteCustomer(ctx, id)
}

func (s *Service) ListCreditEntries(ctx context.Context, filter domain.CreditEntryFilter) ([]domain.CreditEntry, error) {
	return s.repo.ListCreditEntries(ctx, filter)
}

func (s *Service) CreateCreditEntry(ctx context.Context, req domain.CreditEntryCreateRequest) (domain.CreditEntry, error) {
	if req.CustomerID < 1 {
		return domain.CreditEntry{}, fmt.Errorf("%w: customer_id is required", store.ErrInvalidInput)
	}
	if req.Amount.IsZero() {
		return domain.CreditEntry{}, fmt.Errorf("%w: amount must be non-zero", store.ErrInvalidInput)
	}

	createdBy := strings.TrimSpace(req.CreatedBy)
	if actor, ok := ActorFromContext(ctx); ok && createdBy == "" {
		createdBy = actor.Username
	}

	created, err := s.repo.CreateCreditEntry(ctx, domain.CreditEntry{
		CustomerID:      req.CustomerID,
		Amount:          req.Amount,
		Description:     strings.TrimSpace(req.Description),
		TransactionDate: time.Now().In(s.loc),
		CreatedBy:       createdBy,
	})
	if err != nil {
		return domain.CreditEntry{}, err
	}
	log.Printf("[service] verisiye entry id=%d customer=%d amount=%s", created.ID, created.CustomerID, created.Amount)
	return *created, nil
}

func (s *Service) DeleteCreditEntry(ctx context.Context, id int64) error {
	return s.repo.DeleteCreditEntry(ctx, id)
}

func (s *Service) CreditDailyReport(ctx context.Context, date string) (domain.CreditDailyReport, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		date = time.Now().In(s.loc).Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return domain.CreditDailyReport{}, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrInvalidInput)
	}
	return s.repo.GetCreditDailyReport(ctx, date)
}

func (s *Service) CustomerCreditReport(ctx context.Context, filter domain.CustomerReportFilter) ([]domain.CustomerCreditSummary, error) {
	return s.repo.GetCustomerCreditReport(ctx, filter)
}

// ---- expense products ----

func (s *Service) ListExpenseProducts(ctx context.Context, category string, includeRetired bool) ([]domain.ExpenseProduct, error) {
	category = strings.TrimSpace(category)
	if category != "" && !domain.ValidCategory(category) {
		return nil, fmt.Errorf("%w: category must be kasa, kart or devir", store.ErrInvalidInput)
	}
	return s.repo.ListExpenseProducts(ctx, category, includeRetired)
}

func (s *Service) CreateExpenseProduct(ctx context.Context, req domain.ExpenseProductCreateRequest) (domain.ExpenseProduct, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.ExpenseProduct{}, fmt.Errorf("%w: name is required", store.ErrInvalidInput)
	}
	if !domain.ValidCategory(req.Category) {
		return domain.ExpenseProduct{}, fmt.Errorf("%w: category must be kasa, kart or devir", store.ErrInvalidInput)
	}
	created, err := s.repo.CreateExpenseProduct(ctx, domain.ExpenseProduct{
		Name:     req.Name,
		Category: req.Category,
	})
	if err != nil {
		return domain.ExpenseProduct{}, err
	}
	return *created, nil
}

func (s *Service) UpdateExpenseProduct(ctx context.Context, id int64, req domain.ExpenseProductUpdateRequest) (domain.ExpenseProduct, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.ExpenseProduct{}, fmt.Errorf("%w: name cannot be empty", store.ErrInvalidInput)
		}
		req.Name = &name
	}
	updated, err := s.repo.UpdateExpenseProduct(ctx, id, req)
	if err != nil {
		return domain.ExpenseProduct{}, err
	}
	return *updated, nil
}

func (s *Service) RetireExpenseProduct(ctx context.Context, id int64) error {
	return s.repo.RetireExpenseProduct(ctx, id)
}

// ---- kasa ----

func summaryKey(date string) string {
	return "kasa:summary:" + date
}

func (s *Service) SubmitDay(ctx context.Context, req domain.BalanceSheetSubmitRequest) (domain.BalanceSheet, error) {
	req.SheetDate = strings.TrimSpace(req.SheetDate)
	if req.SheetDate == "" {
		return domain.BalanceSheet{}, fmt.Errorf("%w: sheet_date is required", store.ErrInvalidInput)
	}
	if _, err := time.Parse("2006-01-02", req.SheetDate); err != nil {
		return domain.BalanceSheet{}, fmt.Errorf("%w: sheet_date must be YYYY-MM-DD", store.ErrInvalidInput)
	}
	for _, e := range req.Expenses {
		if !domain.ValidExpenseType(e.ExpenseType) {
			return domain.BalanceSheet{}, fmt.Errorf("%w: expense_type must be kasa_gider, kart_gider or devir_gider", store.ErrInvalidInput)
		}
	}
	if req.CreatedBy == "" {
		if actor, ok := ActorFromContext(ctx); ok {
			req.CreatedBy = actor.Username
		}
	}

	sheet, err := s.repo.SubmitBalanceSheet(ctx, req)
	if err != nil {
		return domain.BalanceSheet{}, err
	}

	if err := s.summaries.Delete(ctx, summaryKey(req.SheetDate)); err != nil {
		log.Printf("[service] WARN: failed to invalidate summary cache date=%s: %v", req.SheetDate, err)
	}
	log.Printf("[service] balance sheet submitted date=%s toplam=%s fark=%s devir=%s", sheet.SheetDate, sheet.Toplam, sheet.Fark, sheet.DevirToplam)
	return *sheet, nil
}

func (s *Service) GetDay(ctx context.Context, date string) (domain.BalanceSheet, error) {
	date = strings.TrimSpace(date)
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return domain.BalanceSheet{}, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrInvalidInput)
	}
	sheet, err := s.repo.GetBalanceSheet(ctx, date)
	if err != nil {
		return domain.BalanceSheet{}, err
	}
	return *sheet, nil
}

func (s *Service) ListDays(ctx context.Context, startDate, endDate string, limit, offset int) ([]domain.BalanceSheet, error) {
	startDate = strings.TrimSpace(startDate)
	endDate = strings.TrimSpace(endDate)
	if (startDate == "") != (endDate == "") {
		return nil, fmt.Errorf("%w: start_date and end_date must be given together", store.ErrInvalidInput)
	}
	if startDate != "" {
		if _, err := time.Parse("2006-01-02", startDate); err != nil {
			return nil, fmt.Errorf("%w: start_date must be YYYY-MM-DD", store.ErrInvalidInput)
		}
		if _, err := time.Parse("2006-01-02", endDate); err != nil {
			return nil, fmt.Errorf("%w: end_date must be YYYY-MM-DD", store.ErrInvalidInput)
		}
	}
	return s.repo.ListBalanceSheets(ctx, startDate, endDate, limit, offset)
}

func (s *Service) DeleteDay(ctx context.Context, date string) error {
	date = strings.TrimSpace(date)
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrInvalidInput)
	}
	if err := s.repo.DeleteBalanceSheet(ctx, date); err != nil {
		return err
	}
	if err := s.summaries.Delete(ctx, summaryKey(date)); err != nil {
		log.Printf("[service] WARN: failed to invalidate summary cache date=%s: %v", date, err)
	}
	log.Printf("[service] balance sheet deleted date=%s", date)
	return nil
}

func (s *Service) KasaSummary(ctx context.Context, date string) (domain.KasaSummary, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		date = time.Now().In(s.loc).Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return domain.KasaSummary{}, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrInvalidInput)
	}

	key := summaryKey(date)
	if cached, found, err := s.summaries.Get(ctx, key); err != nil {
		log.Printf("[service] WARN: summary cache read failed date=%s: %v", date, err)
	} else if found {
		return *cached, nil
	}

	summary, err := s.repo.GetKasaSummary(ctx, date)
	if err != nil {
		return domain.KasaSummary{}, err
	}
	if err := s.summaries.Set(ctx, key, &summary, s.summaryTTL); err != nil {
		log.Printf("[service] WARN: summary cache write failed date=%s: %v", date, err)
	}
	return summary, nil
}

func (s *Service) DailyProfitReport(ctx context.Context, startDate, endDate string) ([]domain.ProfitRow, error) {
	startDate = strings.TrimSpace(startDate)
	endDate = strings.TrimSpace(endDate)
	if startDate != "" {
		if _, err := time.Parse("2006-01-02", startDate); err != nil {
			return nil, fmt.Errorf("%w: start_date must be YYYY-MM-DD", store.ErrInvalidInput)
		}
	}
	if endDate != "" {
		if _, err := time.Parse("2006-01-02", endDate); err != nil {
			return nil, fmt.Errorf("%w: end_date must be YYYY-MM-DD", store.ErrInvalidInput)
		}
	}
	return s.repo.GetDailyProfitReport(ctx, startDate, endDate)
}
