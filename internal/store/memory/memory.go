package memory

import (
	"context"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"onestoppos/backend/internal/domain"
	"onestoppos/backend/internal/store"
)

type Store struct {
	mu              sync.RWMutex
	loc             *time.Location
	nextID          int64
	products        map[int64]domain.Product
	transactions    map[int64]domain.Transaction
	customers       map[int64]domain.Customer
	creditEntries   map[int64]domain.CreditEntry
	expenseProducts map[int64]domain.ExpenseProduct
	sheetsByDate    map[string]domain.BalanceSheet
	usersByUsername map[string]domain.UserAccount
}

func New(loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{
		loc:             loc,
		products:        map[int64]domain.Product{},
		transactions:    map[int64]domain.Transaction{},
		customers:       map[int64]domain.Customer{},
		creditEntries:   map[int64]domain.CreditEntry{},
		expenseProducts: map[int64]domain.ExpenseProduct{},
		sheetsByDate:    map[string]domain.BalanceSheet{},
		usersByUsername: map[string]domain.UserAccount{},
	}
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; if
// unset, hardcoded dev defaults are used with a warning. The in-memory store
// is never used in production (the backend uses PostgreSQL when DATABASE_URL
// is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded(loc *time.Location) *Store {
	s := New(loc)
	s.usersByUsername = seedUsers()

	now := time.Now().In(s.loc)
	for _, p := range []domain.Product{
		{Barcode: "8690000000017", Name: "Ekmek", PriceBuy: dec("3.50"), PriceSell: dec("5.00"), Stock: 40, Category: "firin", Unit: "piece"},
		{Barcode: "8690000000024", Name: "Süt 1L", PriceBuy: dec("18.00"), PriceSell: dec("24.50"), Stock: 25, Category: "sut", Unit: "piece"},
		{Barcode: "8690000000031", Name: "Çay 500g", PriceBuy: dec("95.00"), PriceSell: dec("120.00"), Stock: 12, Category: "icecek", Unit: "piece"},
		{Barcode: "8690000000048", Name: "Beyaz Peynir", PriceBuy: dec("210.00"), PriceSell: dec("260.00"), Stock: 0, Category: "sarkuteri", IsByWeight: true, PricePerKg: decPtr("260.00"), Unit: "kg"},
	} {
		p.ID = s.allocID()
		p.CreatedAt = now
		p.UpdatedAt = now
		s.products[p.ID] = p
	}

	for _, ep := range []domain.ExpenseProduct{
		{Name: "Elektrik", Category: domain.CategoryKasa},
		{Name: "Su", Category: domain.CategoryKasa},
		{Name: "POS Komisyon", Category: domain.CategoryKart},
		{Name: "Toptancı Ödemesi", Category: domain.CategoryDevir},
	} {
		ep.ID = s.allocID()
		ep.Status = domain.ExpenseProductActive
		ep.CreatedAt = now
		ep.UpdatedAt = now
		s.expenseProducts[ep.ID] = ep
	}

	return s
}

func (s *Store) allocID() int64 {
	s.nextID++
	return s.nextID
}

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		log.Fatalf("[memory-store] bad seed amount %q: %v", v, err)
	}
	return d
}

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

// ---- products ----

func (s *Store) ListProducts(_ context.Context, search string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(search)
	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.HasPrefix(p.Barcode, search) {
			continue
		}
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID > products[j].ID })
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) GetProductByBarcode(_ context.Context, barcode string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.Barcode == barcode {
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.Barcode == "" || product.Name == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.products {
		if p.Barcode == product.Barcode {
			return nil, store.ErrDuplicateBarcode
		}
	}

	if product.Unit == "" {
		product.Unit = "piece"
	}
	now := time.Now().In(s.loc)
	product.ID = s.allocID()
	product.CreatedAt = now
	product.UpdatedAt = now
	s.products[product.ID] = product

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.Barcode == "" || product.Name == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	for _, p := range s.products {
		if p.ID != product.ID && p.Barcode == product.Barcode {
			return nil, store.ErrDuplicateBarcode
		}
	}

	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now().In(s.loc)
	s.products[product.ID] = product

	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) AdjustStock(_ context.Context, id int64, delta int) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.Stock += delta
	p.UpdatedAt = time.Now().In(s.loc)
	s.products[id] = p

	updated := p
	return &updated, nil
}

// ---- transactions ----

func (s *Store) ListTransactions(_ context.Context, limit, offset int) ([]domain.Transaction, error) {
	if limit < 1 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	txs := make([]domain.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		txs = append(txs, cloneTransaction(t))
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].Date.After(txs[j].Date) })

	if offset >= len(txs) {
		return []domain.Transaction{}, nil
	}
	txs = txs[offset:]
	if len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transactions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := cloneTransaction(t)
	return &clone, nil
}

func (s *Store) CreateCheckout(_ context.Context, t domain.Transaction) (*domain.Transaction, error) {
	if len(t.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range t.Items {
		if _, ok := s.products[item.ProductID]; !ok {
			return nil, store.ErrMissingReference
		}
	}

	now := time.Now().In(s.loc)
	t.ID = s.allocID()
	t.CreatedAt = now
	if t.Date.IsZero() {
		t.Date = now
	}
	for i := range t.Items {
		t.Items[i].ID = s.allocID()
		if !t.Items[i].IsByWeight {
			p := s.products[t.Items[i].ProductID]
			p.Stock -= t.Items[i].Quantity
			p.UpdatedAt = now
			s.products[p.ID] = p
		}
	}
	s.transactions[t.ID] = cloneTransaction(t)

	created := t
	return &created, nil
}

func (s *Store) VoidTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok {
		return store.ErrNotFound
	}
	for _, item := range t.Items {
		if item.IsByWeight {
			continue
		}
		if p, ok := s.products[item.ProductID]; ok {
			p.Stock += item.Quantity
			p.UpdatedAt = time.Now().In(s.loc)
			s.products[p.ID] = p
		}
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) GetTransactionStats(_ context.Context, start, end *time.Time) (domain.TransactionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats domain.TransactionStats
	for _, t := range s.transactions {
		if start != nil && end != nil && (t.Date.Before(*start) || t.Date.After(*end)) {
			continue
		}
		stats.TotalTransactions++
		stats.TotalRevenue = stats.TotalRevenue.Add(t.TotalAmount)
		stats.TotalProfit = stats.TotalProfit.Add(t.TotalProfit)
	}
	if stats.TotalTransactions > 0 {
		stats.AvgTransactionValue = stats.TotalRevenue.Div(decimal.NewFromInt(stats.TotalTransactions))
	}
	return stats, nil
}

// ---- customers & verisiye ----

func (s *Store) customerAggregates(id int64) (count int64, given decimal.Decimal) {
	for _, e := range s.creditEntries {
		if e.CustomerID == id {
			count++
			given = given.Add(e.Amount)
		}
	}
	return count, given
}

func (s *Store) customerWithAggregates(c domain.Customer) domain.Customer {
	c.TransactionCount, c.TotalCreditGiven = s.customerAggregates(c.ID)
	return c
}

func (s *Store) ListCustomers(_ context.Context, search string) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(search)
	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), needle) &&
			!strings.Contains(strings.ToLower(c.HouseNo), needle) {
			continue
		}
		customers = append(customers, s.customerWithAggregates(c))
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i].Name < customers[j].Name })
	return customers, nil
}

func (s *Store) GetCustomer(_ context.Context, id int64) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	result := s.customerWithAggregates(c)
	return &result, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().In(s.loc)
	customer.ID = s.allocID()
	customer.TotalCredit = decimal.Zero
	customer.CreatedAt = now
	customer.UpdatedAt = now
	s.customers[customer.ID] = customer

	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.customers[customer.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	existing.Name = customer.Name
	existing.HouseNo = customer.HouseNo
	existing.Phone = customer.Phone
	existing.UpdatedAt = time.Now().In(s.loc)
	s.customers[customer.ID] = existing

	updated := s.customerWithAggregates(existing)
	return &updated, nil
}

func (s *Store) DeleteCustomer(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.customers, id)
	for entryID, e := range s.creditEntries {
		if e.CustomerID == id {
			delete(s.creditEntries, entryID)
		}
	}
	return nil
}

func (s *Store) decorateEntry(e domain.CreditEntry) domain.CreditEntry {
	if c, ok := s.customers[e.CustomerID]; ok {
		e.CustomerName = c.Name
		e.HouseNo = c.HouseNo
		e.Phone = c.Phone
	}
	return e
}

func (s *Store) ListCreditEntries(_ context.Context, filter domain.CreditEntryFilter) ([]domain.CreditEntry, error) {
	if filter.Limit < 1 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.CreditEntry, 0, len(s.creditEntries))
	for _, e := range s.creditEntries {
		decorated := s.decorateEntry(e)
		if filter.CustomerID != 0 && decorated.CustomerID != filter.CustomerID {
			continue
		}
		if filter.HouseNo != "" && !strings.Contains(strings.ToLower(decorated.HouseNo), strings.ToLower(filter.HouseNo)) {
			continue
		}
		if filter.Name != "" && !strings.Contains(strings.ToLower(decorated.CustomerName), strings.ToLower(filter.Name)) {
			continue
		}
		if filter.StartDate != "" && filter.EndDate != "" {
			day := decorated.TransactionDate.In(s.loc).Format("2006-01-02")
			if day < filter.StartDate || day > filter.EndDate {
				continue
			}
		}
		entries = append(entries, decorated)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].TransactionDate.After(entries[j].TransactionDate) })

	if filter.Offset >= len(entries) {
		return []domain.CreditEntry{}, nil
	}
	entries = entries[filter.Offset:]
	if len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}
	return entries, nil
}

func (s *Store) GetCreditEntry(_ context.Context, id int64) (*domain.CreditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.creditEntries[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	decorated := s.decorateEntry(e)
	return &decorated, nil
}

func (s *Store) CreateCreditEntry(_ context.Context, entry domain.CreditEntry) (*domain.CreditEntry, error) {
	if entry.CustomerID == 0 || entry.Amount.IsZero() {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[entry.CustomerID]
	if !ok {
		return nil, store.ErrMissingReference
	}

	now := time.Now().In(s.loc)
	entry.ID = s.allocID()
	if entry.TransactionDate.IsZero() {
		entry.TransactionDate = now
	}
	entry.CreatedAt = now
	s.creditEntries[entry.ID] = entry

	c.TotalCredit = c.TotalCredit.Add(entry.Amount)
	c.UpdatedAt = now
	s.customers[c.ID] = c

	decorated := s.decorateEntry(entry)
	return &decorated, nil
}

func (s *Store) DeleteCreditEntry(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.creditEntries[id]
	if !ok {
		return store.ErrNotFound
	}
	if c, ok := s.customers[e.CustomerID]; ok {
		c.TotalCredit = c.TotalCredit.Sub(e.Amount)
		c.UpdatedAt = time.Now().In(s.loc)
		s.customers[c.ID] = c
	}
	delete(s.creditEntries, id)
	return nil
}

func (s *Store) GetCreditDailyReport(_ context.Context, date string) (domain.CreditDailyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := domain.CreditDailyReport{Date: date}
	for _, e := range s.creditEntries {
		if e.TransactionDate.In(s.loc).Format("2006-01-02") != date {
			continue
		}
		report.TransactionCount++
		report.TotalVerisiye = report.TotalVerisiye.Add(e.Amount)
	}
	return report, nil
}

func (s *Store) GetCustomerCreditReport(_ context.Context, filter domain.CustomerReportFilter) ([]domain.CustomerCreditSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]domain.CustomerCreditSummary, 0, len(s.customers))
	for _, c := range s.customers {
		if filter.HouseNo != "" && !strings.Contains(strings.ToLower(c.HouseNo), strings.ToLower(filter.HouseNo)) {
			continue
		}
		if filter.Name != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Name)) {
			continue
		}
		sum := domain.CustomerCreditSummary{
			ID: c.ID, Name: c.Name, HouseNo: c.HouseNo, Phone: c.Phone, TotalCredit: c.TotalCredit,
		}
		for _, e := range s.creditEntries {
			if e.CustomerID != c.ID {
				continue
			}
			if filter.StartDate != "" && filter.EndDate != "" {
				day := e.TransactionDate.In(s.loc).Format("2006-01-02")
				if day < filter.StartDate || day > filter.EndDate {
					continue
				}
			}
			sum.TransactionCount++
			sum.TotalVerisiye = sum.TotalVerisiye.Add(e.Amount)
		}
		summaries = append(summaries, sum)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].TotalVerisiye.GreaterThan(summaries[j].TotalVerisiye)
	})
	return summaries, nil
}

func (s *Store) ListCustomersForNotify(_ context.Context, ids []int64, minCredit *decimal.Decimal) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idSet := map[int64]bool{}
	for _, id := range ids {
		idSet[id] = true
	}

	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if c.Phone == "" {
			continue
		}
		if len(idSet) > 0 && !idSet[c.ID] {
			continue
		}
		decorated := s.customerWithAggregates(c)
		if minCredit != nil && decorated.TotalCreditGiven.LessThan(*minCredit) {
			continue
		}
		customers = append(customers, decorated)
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i].ID < customers[j].ID })
	return customers, nil
}

// ---- expense products ----

func (s *Store) ListExpenseProducts(_ context.Context, category string, includeRetired bool) ([]domain.ExpenseProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.ExpenseProduct, 0, len(s.expenseProducts))
	for _, p := range s.expenseProducts {
		if !includeRetired && p.Status != domain.ExpenseProductActive {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Category != products[j].Category {
			return products[i].Category < products[j].Category
		}
		return products[i].Name < products[j].Name
	})
	return products, nil
}

func (s *Store) CreateExpenseProduct(_ context.Context, p domain.ExpenseProduct) (*domain.ExpenseProduct, error) {
	if p.Name == "" || !domain.ValidCategory(p.Category) {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().In(s.loc)
	p.ID = s.allocID()
	p.Status = domain.ExpenseProductActive
	p.CreatedAt = now
	p.UpdatedAt = now
	s.expenseProducts[p.ID] = p

	created := p
	return &created, nil
}

func (s *Store) UpdateExpenseProduct(_ context.Context, id int64, req domain.ExpenseProductUpdateRequest) (*domain.ExpenseProduct, error) {
	if req.Category != nil && !domain.ValidCategory(*req.Category) {
		return nil, store.ErrInvalidInput
	}
	if req.Status != nil && *req.Status != domain.ExpenseProductActive && *req.Status != domain.ExpenseProductRetired {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.expenseProducts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.Status != nil {
		p.Status = *req.Status
	}
	p.UpdatedAt = time.Now().In(s.loc)
	s.expenseProducts[id] = p

	updated := p
	return &updated, nil
}

func (s *Store) RetireExpenseProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.expenseProducts[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Status = domain.ExpenseProductRetired
	p.UpdatedAt = time.Now().In(s.loc)
	s.expenseProducts[id] = p
	return nil
}

// ---- balance sheets ----

func (s *Store) SubmitBalanceSheet(_ context.Context, req domain.BalanceSheetSubmitRequest) (*domain.BalanceSheet, error) {
	if req.SheetDate == "" {
		return nil, store.ErrInvalidInput
	}
	day, err := time.ParseInLocation("2006-01-02", req.SheetDate, s.loc)
	if err != nil {
		return nil, store.ErrInvalidInput
	}
	for _, e := range req.Expenses {
		if !domain.ValidExpenseType(e.ExpenseType) {
			return nil, store.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Referential checks happen before any write so a bad line cannot leave
	// a partially stored sheet behind.
	for _, e := range req.Expenses {
		if _, ok := s.expenseProducts[e.ExpenseProductID]; !ok {
			return nil, store.ErrMissingReference
		}
	}
	for _, p := range req.ShopPurchases {
		if _, ok := s.expenseProducts[p.ExpenseProductID]; !ok {
			return nil, store.ErrMissingReference
		}
	}

	var kasaSistem decimal.Decimal
	for _, t := range s.transactions {
		if t.Date.In(s.loc).Format("2006-01-02") == req.SheetDate {
			kasaSistem = kasaSistem.Add(t.TotalAmount)
		}
	}

	prevDevir := decimal.Zero
	prevDate := day.AddDate(0, 0, -1).Format("2006-01-02")
	if prev, ok := s.sheetsByDate[prevDate]; ok {
		prevDevir = prev.DevirToplam
	}

	totals := domain.ReconcileSheet(kasaSistem, prevDevir, req.KasaNakit, req.KKart, req.Expenses)

	now := time.Now().In(s.loc)
	bs, existed := s.sheetsByDate[req.SheetDate]
	if !existed {
		bs = domain.BalanceSheet{ID: s.allocID(), SheetDate: req.SheetDate, CreatedAt: now}
	}
	bs.KasaSistem = totals.KasaSistem
	bs.VerisiyeTotal = req.VerisiyeTotal
	bs.KasaNakit = req.KasaNakit
	bs.KKart = req.KKart
	bs.KasaGider = totals.KasaGider
	bs.KartGider = totals.KartGider
	bs.DevirGider = totals.DevirGider
	bs.Toplam = totals.Toplam
	bs.Fark = totals.Fark
	bs.DevirToplam = totals.DevirToplam
	bs.Notes = req.Notes
	bs.CreatedBy = req.CreatedBy
	bs.UpdatedAt = now

	bs.Expenses = make([]domain.ExpenseLine, 0, len(req.Expenses))
	for _, e := range req.Expenses {
		ep := s.expenseProducts[e.ExpenseProductID]
		qty := e.Quantity
		if qty < 1 {
			qty = 1
		}
		bs.Expenses = append(bs.Expenses, domain.ExpenseLine{
			ID:               s.allocID(),
			BalanceSheetID:   bs.ID,
			ExpenseProductID: e.ExpenseProductID,
			ProductName:      ep.Name,
			Category:         ep.Category,
			ExpenseType:      e.ExpenseType,
			Quantity:         qty,
			UnitPrice:        e.UnitPrice,
			TotalPrice:       e.TotalPrice,
			Notes:            e.Notes,
		})
	}

	bs.ShopPurchases = make([]domain.PurchaseLine, 0, len(req.ShopPurchases))
	for _, p := range req.ShopPurchases {
		ep := s.expenseProducts[p.ExpenseProductID]
		bs.ShopPurchases = append(bs.ShopPurchases, domain.PurchaseLine{
			ID:               s.allocID(),
			BalanceSheetID:   bs.ID,
			ExpenseProductID: p.ExpenseProductID,
			ProductName:      ep.Name,
			Quantity:         p.Quantity,
			UnitCost:         p.UnitCost,
			TotalCost:        p.TotalCost,
			Supplier:         p.Supplier,
			Notes:            p.Notes,
		})
	}

	s.sheetsByDate[req.SheetDate] = cloneSheet(bs)

	result := cloneSheet(bs)
	return &result, nil
}

func (s *Store) GetBalanceSheet(_ context.Context, date string) (*domain.BalanceSheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bs, ok := s.sheetsByDate[date]
	if !ok {
		return nil, store.ErrNotFound
	}
	result := cloneSheet(bs)
	return &result, nil
}

func (s *Store) ListBalanceSheets(_ context.Context, startDate, endDate string, limit, offset int) ([]domain.BalanceSheet, error) {
	if limit < 1 {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sheets := make([]domain.BalanceSheet, 0, len(s.sheetsByDate))
	for date, bs := range s.sheetsByDate {
		if startDate != "" && endDate != "" && (date < startDate || date > endDate) {
			continue
		}
		clone := cloneSheet(bs)
		clone.Expenses = nil
		clone.ShopPurchases = nil
		sheets = append(sheets, clone)
	}
	sort.Slice(sheets, func(i, j int) bool { return sheets[i].SheetDate > sheets[j].SheetDate })

	if offset >= len(sheets) {
		return []domain.BalanceSheet{}, nil
	}
	sheets = sheets[offset:]
	if len(sheets) > limit {
		sheets = sheets[:limit]
	}
	return sheets, nil
}

func (s *Store) DeleteBalanceSheet(_ context.Context, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sheetsByDate[date]; !ok {
		return store.ErrNotFound
	}
	// Later days keep their stored devir_toplam; the chain is forward-only.
	delete(s.sheetsByDate, date)
	return nil
}

func (s *Store) GetKasaSummary(_ context.Context, date string) (domain.KasaSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.KasaSummary{ExpensesByType: []domain.ExpenseTypeTotal{}}
	bs, ok := s.sheetsByDate[date]
	if !ok {
		return summary, nil
	}
	clone := cloneSheet(bs)
	summary.BalanceSheet = &clone

	byType := map[string]decimal.Decimal{}
	for _, line := range bs.Expenses {
		byType[line.ExpenseType] = byType[line.ExpenseType].Add(line.TotalPrice)
	}
	for _, t := range []string{domain.ExpenseTypeKasa, domain.ExpenseTypeKart, domain.ExpenseTypeDevir} {
		if total, ok := byType[t]; ok {
			summary.ExpensesByType = append(summary.ExpensesByType, domain.ExpenseTypeTotal{ExpenseType: t, Total: total})
		}
	}
	for _, line := range bs.ShopPurchases {
		summary.TotalShopPurchases = summary.TotalShopPurchases.Add(line.TotalCost)
	}
	return summary, nil
}

func (s *Store) GetDailyProfitReport(_ context.Context, startDate, endDate string) ([]domain.ProfitRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if startDate == "" || endDate == "" {
		today := time.Now().In(s.loc).Format("2006-01-02")
		startDate, endDate = today, today
	}

	type key struct {
		date      string
		productID int64
		name      string
	}
	rows := map[key]*domain.ProfitRow{}
	for _, t := range s.transactions {
		day := t.Date.In(s.loc).Format("2006-01-02")
		if day < startDate || day > endDate {
			continue
		}
		for _, item := range t.Items {
			k := key{day, item.ProductID, item.Name}
			r, ok := rows[k]
			if !ok {
				r = &domain.ProfitRow{SaleDate: day, ProductID: item.ProductID, ProductName: item.Name}
				if p, exists := s.products[item.ProductID]; exists {
					r.Barcode = p.Barcode
				}
				rows[k] = r
			}
			qty := decimal.NewFromInt(int64(item.Quantity))
			r.TotalQuantity += int64(item.Quantity)
			r.TotalRevenue = r.TotalRevenue.Add(item.PriceAtSale.Mul(qty))
			r.TotalCost = r.TotalCost.Add(item.CostAtSale.Mul(qty))
			r.TotalProfit = r.TotalProfit.Add(item.PriceAtSale.Sub(item.CostAtSale).Mul(qty))
		}
	}

	report := make([]domain.ProfitRow, 0, len(rows))
	for _, r := range rows {
		if r.TotalQuantity > 0 {
			qty := decimal.NewFromInt(r.TotalQuantity)
			r.AvgPriceSell = r.TotalRevenue.Div(qty)
			r.AvgPriceBuy = r.TotalCost.Div(qty)
		}
		report = append(report, *r)
	}
	sort.Slice(report, func(i, j int) bool {
		if report[i].SaleDate != report[j].SaleDate {
			return report[i].SaleDate > report[j].SaleDate
		}
		return report[i].TotalProfit.GreaterThan(report[j].TotalProfit)
	})
	return report, nil
}

// ---- users ----

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usersByUsername[user.Username]; ok {
		return nil
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// ---- clone helpers ----

func cloneTransaction(t domain.Transaction) domain.Transaction {
	clone := t
	clone.Items = make([]domain.TransactionItem, len(t.Items))
	copy(clone.Items, t.Items)
	return clone
}

func cloneSheet(bs domain.BalanceSheet) domain.BalanceSheet {
	clone := bs
	clone.Expenses = make([]domain.ExpenseLine, len(bs.Expenses))
	copy(clone.Expenses, bs.Expenses)
	clone.ShopPurchases = make([]domain.PurchaseLine, len(bs.ShopPurchases))
	copy(clone.ShopPurchases, bs.ShopPurchases)
	return clone
}
