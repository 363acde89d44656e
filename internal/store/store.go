package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"onestoppos/backend/internal/domain"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateBarcode = errors.New("duplicate barcode")
	ErrMissingReference = errors.New("missing reference")
	ErrInvalidInput     = errors.New("invalid input")
)

type Repository interface {
	ListProducts(ctx context.Context, search string) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	AdjustStock(ctx context.Context, id int64, delta int) (*domain.Product, error)

	ListTransactions(ctx context.Context, limit, offset int) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error)
	CreateCheckout(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
	VoidTransaction(ctx context.Context, id int64) error
	GetTransactionStats(ctx context.Context, start, end *time.Time) (domain.TransactionStats, error)

	ListCustomers(ctx context.Context, search string) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, id int64) error
	ListCreditEntries(ctx context.Context, filter domain.CreditEntryFilter) ([]domain.CreditEntry, error)
	GetCreditEntry(ctx context.Context, id int64) (*domain.CreditEntry, error)
	CreateCreditEntry(ctx context.Context, entry domain.CreditEntry) (*domain.CreditEntry, error)
	DeleteCreditEntry(ctx context.Context, id int64) error
	GetCreditDailyReport(ctx context.Context, date string) (domain.CreditDailyReport, error)
	GetCustomerCreditReport(ctx context.Context, filter domain.CustomerReportFilter) ([]domain.CustomerCreditSummary, error)
	ListCustomersForNotify(ctx context.Context, ids []int64, minCredit *decimal.Decimal) ([]domain.Customer, error)

	ListExpenseProducts(ctx context.Context, category string, includeRetired bool) ([]domain.ExpenseProduct, error)
	CreateExpenseProduct(ctx context.Context, p domain.ExpenseProduct) (*domain.ExpenseProduct, error)
	UpdateExpenseProduct(ctx context.Context, id int64, req domain.ExpenseProductUpdateRequest) (*domain.ExpenseProduct, error)
	RetireExpenseProduct(ctx context.Context, id int64) error

	// SubmitBalanceSheet performs the whole day reconciliation atomically:
	// it reads the day's system sales and the previous day's carry-forward,
	// derives the sheet totals, upserts the row keyed by sheet_date, and
	// replaces all child expense and purchase lines.
	SubmitBalanceSheet(ctx context.Context, req domain.BalanceSheetSubmitRequest) (*domain.BalanceSheet, error)
	GetBalanceSheet(ctx context.Context, date string) (*domain.BalanceSheet, error)
	ListBalanceSheets(ctx context.Context, startDate, endDate string, limit, offset int) ([]domain.BalanceSheet, error)
	DeleteBalanceSheet(ctx context.Context, date string) error
	GetKasaSummary(ctx context.Context, date string) (domain.KasaSummary, error)
	GetDailyProfitReport(ctx context.Context, startDate, endDate string) ([]domain.ProfitRow, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
}
