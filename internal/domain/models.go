package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID         int64            `json:"id"`
	Barcode    string           `json:"barcode"`
	Name       string           `json:"name"`
	PriceBuy   decimal.Decimal  `json:"price_buy"`
	PriceSell  decimal.Decimal  `json:"price_sell"`
	Stock      int              `json:"stock"`
	Category   string           `json:"category,omitempty"`
	ExpireDate *time.Time       `json:"expire_date,omitempty"`
	IsByWeight bool             `json:"is_by_weight"`
	PricePerKg *decimal.Decimal `json:"price_per_kg,omitempty"`
	Unit       string           `json:"unit"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

type ProductCreateRequest struct {
	Barcode    string           `json:"barcode"`
	Name       string           `json:"name"`
	PriceBuy   decimal.Decimal  `json:"price_buy"`
	PriceSell  decimal.Decimal  `json:"price_sell"`
	Stock      int              `json:"stock"`
	Category   string           `json:"category"`
	ExpireDate string           `json:"expire_date,omitempty"`
	IsByWeight bool             `json:"is_by_weight"`
	PricePerKg *decimal.Decimal `json:"price_per_kg,omitempty"`
	Unit       string           `json:"unit"`
}

type ProductUpdateRequest struct {
	Barcode    string           `json:"barcode"`
	Name       string           `json:"name"`
	PriceBuy   decimal.Decimal  `json:"price_buy"`
	PriceSell  decimal.Decimal  `json:"price_sell"`
	Stock      int              `json:"stock"`
	Category   string           `json:"category"`
	ExpireDate string           `json:"expire_date,omitempty"`
	IsByWeight bool             `json:"is_by_weight"`
	PricePerKg *decimal.Decimal `json:"price_per_kg,omitempty"`
	Unit       string           `json:"unit"`
}

type StockAdjustRequest struct {
	Quantity int `json:"quantity"`
}

type CheckoutItem struct {
	ProductID int64            `json:"product_id"`
	Quantity  int              `json:"quantity"`
	Weight    *decimal.Decimal `json:"weight,omitempty"`
}

type CheckoutRequest struct {
	Date  *time.Time     `json:"date,omitempty"`
	Items []CheckoutItem `json:"items"`
}

type TransactionItem struct {
	ID          int64            `json:"id"`
	ProductID   int64            `json:"product_id"`
	Name        string           `json:"name"`
	Quantity    int              `json:"quantity"`
	PriceAtSale decimal.Decimal  `json:"price_at_sale"`
	CostAtSale  decimal.Decimal  `json:"cost_at_sale"`
	Weight      *decimal.Decimal `json:"weight,omitempty"`
	IsByWeight  bool             `json:"is_by_weight"`
}

type Transaction struct {
	ID          int64             `json:"id"`
	Date        time.Time         `json:"date"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	TotalProfit decimal.Decimal   `json:"total_profit"`
	CreatedAt   time.Time         `json:"created_at"`
	Items       []TransactionItem `json:"items"`
}

type TransactionStats struct {
	TotalTransactions   int64           `json:"total_transactions"`
	TotalRevenue        decimal.Decimal `json:"total_revenue"`
	TotalProfit         decimal.Decimal `json:"total_profit"`
	AvgTransactionValue decimal.Decimal `json:"avg_transaction_value"`
}

type Customer struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	HouseNo          string          `json:"house_no,omitempty"`
	Phone            string          `json:"phone,omitempty"`
	TotalCredit      decimal.Decimal `json:"total_credit"`
	TransactionCount int64           `json:"transaction_count"`
	TotalCreditGiven decimal.Decimal `json:"total_credit_given"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type CustomerCreateRequest struct {
	Name    string `json:"name"`
	HouseNo string `json:"house_no"`
	Phone   string `json:"phone"`
}

type CustomerUpdateRequest struct {
	Name    string `json:"name"`
	HouseNo string `json:"house_no"`
	Phone   string `json:"phone"`
}

// CreditEntry is one verisiye ledger movement. Amount is signed: positive
// for debt given to the customer, negative for a payment received.
type CreditEntry struct {
	ID              int64           `json:"id"`
	CustomerID      int64           `json:"customer_id"`
	CustomerName    string          `json:"customer_name,omitempty"`
	HouseNo         string          `json:"house_no,omitempty"`
	Phone           string          `json:"phone,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description,omitempty"`
	TransactionDate time.Time       `json:"transaction_date"`
	CreatedBy       string          `json:"created_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

type CreditEntryCreateRequest struct {
	CustomerID  int64           `json:"customer_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CreatedBy   string          `json:"created_by"`
}

type CreditEntryFilter struct {
	CustomerID int64
	Name       string
	HouseNo    string
	StartDate  string
	EndDate    string
	Limit      int
	Offset     int
}

type CreditDailyReport struct {
	Date             string          `json:"date"`
	TransactionCount int64           `json:"transaction_count"`
	TotalVerisiye    decimal.Decimal `json:"total_verisiye"`
}

type CustomerCreditSummary struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	HouseNo          string          `json:"house_no,omitempty"`
	Phone            string          `json:"phone,omitempty"`
	TotalCredit      decimal.Decimal `json:"total_credit"`
	TransactionCount int64           `json:"transaction_count"`
	TotalVerisiye    decimal.Decimal `json:"total_verisiye"`
}

type CustomerReportFilter struct {
	Name      string
	HouseNo   string
	StartDate string
	EndDate   string
}

type ExpenseProduct struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ExpenseProductCreateRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

type ExpenseProductUpdateRequest struct {
	Name     *string `json:"name,omitempty"`
	Category *string `json:"category,omitempty"`
	Status   *string `json:"status,omitempty"`
}

type ExpenseLineInput struct {
	ExpenseProductID int64           `json:"expense_product_id"`
	ExpenseType      string          `json:"expense_type"`
	Quantity         int             `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	Notes            string          `json:"notes,omitempty"`
}

type ExpenseLine struct {
	ID               int64           `json:"id"`
	BalanceSheetID   int64           `json:"balance_sheet_id"`
	ExpenseProductID int64           `json:"expense_product_id"`
	ProductName      string          `json:"product_name"`
	Category         string          `json:"category"`
	ExpenseType      string          `json:"expense_type"`
	Quantity         int             `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	Notes            string          `json:"notes,omitempty"`
}

type PurchaseLineInput struct {
	ExpenseProductID int64           `json:"expense_product_id"`
	Quantity         int             `json:"quantity"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	Supplier         string          `json:"supplier,omitempty"`
	Notes            string          `json:"notes,omitempty"`
}

type PurchaseLine struct {
	ID               int64           `json:"id"`
	BalanceSheetID   int64           `json:"balance_sheet_id"`
	ExpenseProductID int64           `json:"expense_product_id"`
	ProductName      string          `json:"product_name"`
	Quantity         int             `json:"quantity"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	Supplier         string          `json:"supplier,omitempty"`
	Notes            string          `json:"notes,omitempty"`
}

type BalanceSheetSubmitRequest struct {
	SheetDate     string              `json:"sheet_date"`
	VerisiyeTotal decimal.Decimal     `json:"verisiye_total"`
	KasaNakit     decimal.Decimal     `json:"kasa_nakit"`
	KKart         decimal.Decimal     `json:"k_kart"`
	Notes         string              `json:"notes"`
	CreatedBy     string              `json:"created_by"`
	Expenses      []ExpenseLineInput  `json:"expenses"`
	ShopPurchases []PurchaseLineInput `json:"shop_purchases"`
}

type BalanceSheet struct {
	ID            int64           `json:"id"`
	SheetDate     string          `json:"sheet_date"`
	KasaSistem    decimal.Decimal `json:"kasa_sistem"`
	VerisiyeTotal decimal.Decimal `json:"verisiye_total"`
	KasaNakit     decimal.Decimal `json:"kasa_nakit"`
	KKart         decimal.Decimal `json:"k_kart"`
	KasaGider     decimal.Decimal `json:"kasa_gider"`
	KartGider     decimal.Decimal `json:"kart_gider"`
	DevirGider    decimal.Decimal `json:"devir_gider"`
	Toplam        decimal.Decimal `json:"toplam"`
	Fark          decimal.Decimal `json:"fark"`
	DevirToplam   decimal.Decimal `json:"devir_toplam"`
	Notes         string          `json:"notes,omitempty"`
	CreatedBy     string          `json:"created_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Expenses      []ExpenseLine   `json:"expenses,omitempty"`
	ShopPurchases []PurchaseLine  `json:"shop_purchases,omitempty"`
}

type ExpenseTypeTotal struct {
	ExpenseType string          `json:"expense_type"`
	Total       decimal.Decimal `json:"total"`
}

type KasaSummary struct {
	BalanceSheet       *BalanceSheet      `json:"balance_sheet"`
	ExpensesByType     []ExpenseTypeTotal `json:"expenses_by_type"`
	TotalShopPurchases decimal.Decimal    `json:"total_shop_purchases"`
}

type ProfitRow struct {
	SaleDate      string          `json:"sale_date"`
	ProductID     int64           `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Barcode       string          `json:"barcode,omitempty"`
	TotalQuantity int64           `json:"total_quantity"`
	AvgPriceSell  decimal.Decimal `json:"avg_price_sell"`
	AvgPriceBuy   decimal.Decimal `json:"avg_price_buy"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
}

type NotifiedCustomer struct {
	ID     int64           `json:"id"`
	Name   string          `json:"name"`
	Phone  string          `json:"phone"`
	Amount decimal.Decimal `json:"amount"`
}

type NotifySendResponse struct {
	Success   bool             `json:"success"`
	Customer  NotifiedCustomer `json:"customer"`
	MessageID string           `json:"message_id,omitempty"`
	Error     string           `json:"error,omitempty"`
}

type BulkNotifyRequest struct {
	CustomerIDs     []int64          `json:"customer_ids,omitempty"`
	MinCreditAmount *decimal.Decimal `json:"min_credit_amount,omitempty"`
}

type BulkNotifyResult struct {
	CustomerID   int64  `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone"`
	Success      bool   `json:"success"`
	MessageID    string `json:"message_id,omitempty"`
	Error        string `json:"error,omitempty"`
}

type BulkNotifyResponse struct {
	Message string             `json:"message"`
	Sent    int                `json:"sent"`
	Total   int                `json:"total"`
	Results []BulkNotifyResult `json:"results"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	CategoryKasa  = "kasa"
	CategoryKart  = "kart"
	CategoryDevir = "devir"
)

const (
	ExpenseTypeKasa  = "kasa_gider"
	ExpenseTypeKart  = "kart_gider"
	ExpenseTypeDevir = "devir_gider"
)

const (
	ExpenseProductActive  = "active"
	ExpenseProductRetired = "retired"
)

func ValidCategory(c string) bool {
	return c == CategoryKasa || c == CategoryKart || c == CategoryDevir
}

func ValidExpenseType(t string) bool {
	return t == ExpenseTypeKasa || t == ExpenseTypeKart || t == ExpenseTypeDevir
}
