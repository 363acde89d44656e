package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"onestoppos/backend/internal/domain"
	"onestoppos/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ---- products ----

const productColumns = `id, barcode, name, price_buy, price_sell, stock, category,
	expire_date, is_by_weight, price_per_kg, unit, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	var p domain.Product
	var category sql.NullString
	var expire sql.NullTime
	var perKg decimal.NullDecimal
	err := row.Scan(&p.ID, &p.Barcode, &p.Name, &p.PriceBuy, &p.PriceSell, &p.Stock,
		&category, &expire, &p.IsByWeight, &perKg, &p.Unit, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Category = category.String
	if expire.Valid {
		e := expire.Time
		p.ExpireDate = &e
	}
	if perKg.Valid {
		p.PricePerKg = &perKg.Decimal
	}
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context, search string) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	args := []any{}
	if search != "" {
		query += ` WHERE name ILIKE $1 OR barcode LIKE $2`
		args = append(args, "%"+search+"%", search+"%")
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE barcode = $1`, barcode))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Barcode == "" || product.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if product.Unit == "" {
		product.Unit = "piece"
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO products (barcode, name, price_buy, price_sell, stock, category,
			expire_date, is_by_weight, price_per_kg, unit)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING `+productColumns+`
	`, product.Barcode, product.Name, product.PriceBuy, product.PriceSell, product.Stock,
		nullIfEmpty(product.Category), nullDate(product.ExpireDate), product.IsByWeight,
		nullDecimal(product.PricePerKg), product.Unit)

	created, err := scanProduct(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateBarcode
		}
		return nil, err
	}
	return created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Barcode == "" || product.Name == "" {
		return nil, store.ErrInvalidInput
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET barcode = $2, name = $3, price_buy = $4, price_sell = $5, stock = $6,
			category = $7, expire_date = $8, is_by_weight = $9, price_per_kg = $10,
			unit = $11, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns+`
	`, product.ID, product.Barcode, product.Name, product.PriceBuy, product.PriceSell,
		product.Stock, nullIfEmpty(product.Category), nullDate(product.ExpireDate),
		product.IsByWeight, nullDecimal(product.PricePerKg), product.Unit)

	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateBarcode
		}
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AdjustStock(ctx context.Context, id int64, delta int) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock = stock + $2, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns+`
	`, id, delta)

	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return updated, nil
}

// ---- transactions ----

func (s *Store) ListTransactions(ctx context.Context, limit, offset int) ([]domain.Transaction, error) {
	if limit < 1 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, total_amount, total_profit, created_at
		FROM transactions
		ORDER BY date DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := make([]domain.Transaction, 0, limit)
	ids := make([]int64, 0, limit)
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.Date, &t.TotalAmount, &t.TotalProfit, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Items = []domain.TransactionItem{}
		txs = append(txs, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return txs, nil
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, product_id, name, quantity, price_at_sale, cost_at_sale, weight, is_by_weight
		FROM transaction_items
		WHERE transaction_id = ANY($1)
		ORDER BY id
	`, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	byTx := make(map[int64][]domain.TransactionItem, len(ids))
	for itemRows.Next() {
		var item domain.TransactionItem
		var txID int64
		var weight decimal.NullDecimal
		if err := itemRows.Scan(&item.ID, &txID, &item.ProductID, &item.Name, &item.Quantity,
			&item.PriceAtSale, &item.CostAtSale, &weight, &item.IsByWeight); err != nil {
			return nil, err
		}
		if weight.Valid {
			item.Weight = &weight.Decimal
		}
		byTx[txID] = append(byTx[txID], item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	for i := range txs {
		if items, ok := byTx[txs[i].ID]; ok {
			txs[i].Items = items
		}
	}
	return txs, nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	var t domain.Transaction
	err := s.db.QueryRowContext(ctx, `
		SELECT id, date, total_amount, total_profit, created_at
		FROM transactions
		WHERE id = $1
	`, id).Scan(&t.ID, &t.Date, &t.TotalAmount, &t.TotalProfit, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, name, quantity, price_at_sale, cost_at_sale, weight, is_by_weight
		FROM transaction_items
		WHERE transaction_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	t.Items = []domain.TransactionItem{}
	for rows.Next() {
		var item domain.TransactionItem
		var weight decimal.NullDecimal
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Name, &item.Quantity,
			&item.PriceAtSale, &item.CostAtSale, &weight, &item.IsByWeight); err != nil {
			return nil, err
		}
		if weight.Valid {
			item.Weight = &weight.Decimal
		}
		t.Items = append(t.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) CreateCheckout(ctx context.Context, t domain.Transaction) (*domain.Transaction, error) {
	if len(t.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO transactions (date, total_amount, total_profit)
		VALUES ($1,$2,$3)
		RETURNING id, created_at
	`, t.Date, t.TotalAmount, t.TotalProfit).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}

	for i := range t.Items {
		item := &t.Items[i]
		err = tx.QueryRowContext(ctx, `
			INSERT INTO transaction_items (
				transaction_id, product_id, name, quantity,
				price_at_sale, cost_at_sale, weight, is_by_weight
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			RETURNING id
		`, t.ID, item.ProductID, item.Name, item.Quantity,
			item.PriceAtSale, item.CostAtSale, nullDecimal(item.Weight), item.IsByWeight).Scan(&item.ID)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, store.ErrMissingReference
			}
			return nil, err
		}

		// Weighed goods do not track piece stock.
		if !item.IsByWeight {
			_, err = tx.ExecContext(ctx, `
				UPDATE products SET stock = stock - $1, updated_at = now() WHERE id = $2
			`, item.Quantity, item.ProductID)
			if err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := t
	return &created, nil
}

func (s *Store) VoidTransaction(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT product_id, quantity, is_by_weight
		FROM transaction_items
		WHERE transaction_id = $1
	`, id)
	if err != nil {
		return err
	}

	type restore struct {
		productID int64
		qty       int
	}
	restores := []restore{}
	for rows.Next() {
		var productID int64
		var qty int
		var byWeight bool
		if err := rows.Scan(&productID, &qty, &byWeight); err != nil {
			rows.Close()
			return err
		}
		if !byWeight {
			restores = append(restores, restore{productID, qty})
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, r := range restores {
		_, err := tx.ExecContext(ctx, `
			UPDATE products SET stock = stock + $1, updated_at = now() WHERE id = $2
		`, r.qty, r.productID)
		if err != nil {
			return err
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	return tx.Commit()
}

func (s *Store) GetTransactionStats(ctx context.Context, start, end *time.Time) (domain.TransactionStats, error) {
	query := `
		SELECT COUNT(*),
			COALESCE(SUM(total_amount), 0),
			COALESCE(SUM(total_profit), 0),
			COALESCE(AVG(total_amount), 0)
		FROM transactions
	`
	args := []any{}
	if start != nil && end != nil {
		query += ` WHERE date BETWEEN $1 AND $2`
		args = append(args, *start, *end)
	}

	var stats domain.TransactionStats
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalTransactions, &stats.TotalRevenue, &stats.TotalProfit, &stats.AvgTransactionValue)
	if err != nil {
		return domain.TransactionStats{}, err
	}
	return stats, nil
}

// ---- customers & verisiye ----

const customerAggregate = `
	SELECT c.id, c.name, c.house_no, c.phone, c.total_credit, c.created_at, c.updated_at,
		COUNT(v.id), COALESCE(SUM(v.amount), 0)
	FROM customers c
	LEFT JOIN verisiye_transactions v ON c.id = v.customer_id
`

func scanCustomer(row interface{ Scan(...any) error }) (*domain.Customer, error) {
	var c domain.Customer
	var houseNo, phone sql.NullString
	err := row.Scan(&c.ID, &c.Name, &houseNo, &phone, &c.TotalCredit, &c.CreatedAt, &c.UpdatedAt,
		&c.TransactionCount, &c.TotalCreditGiven)
	if err != nil {
		return nil, err
	}
	c.HouseNo = houseNo.String
	c.Phone = phone.String
	return &c, nil
}

func (s *Store) ListCustomers(ctx context.Context, search string) ([]domain.Customer, error) {
	query := customerAggregate
	args := []any{}
	if search != "" {
		query += ` WHERE c.name ILIKE $1 OR c.house_no ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` GROUP BY c.id ORDER BY c.name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	c, err := scanCustomer(s.db.QueryRowContext(ctx, customerAggregate+` WHERE c.id = $1 GROUP BY c.id`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrInvalidInput
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO customers (name, house_no, phone)
		VALUES ($1,$2,$3)
		RETURNING id, total_credit, created_at, updated_at
	`, customer.Name, nullIfEmpty(customer.HouseNo), nullIfEmpty(customer.Phone)).Scan(
		&customer.ID, &customer.TotalCredit, &customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		return nil, err
	}
	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET name = $2, house_no = $3, phone = $4, updated_at = now()
		WHERE id = $1
	`, customer.ID, customer.Name, nullIfEmpty(customer.HouseNo), nullIfEmpty(customer.Phone))
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetCustomer(ctx, customer.ID)
}

func (s *Store) DeleteCustomer(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

const creditEntryColumns = `
	v.id, v.customer_id, v.amount, v.description, v.transaction_date, v.created_by, v.created_at,
	c.name, c.house_no, c.phone
`

func scanCreditEntry(row interface{ Scan(...any) error }) (*domain.CreditEntry, error) {
	var e domain.CreditEntry
	var description, createdBy, houseNo, phone sql.NullString
	err := row.Scan(&e.ID, &e.CustomerID, &e.Amount, &description, &e.TransactionDate,
		&createdBy, &e.CreatedAt, &e.CustomerName, &houseNo, &phone)
	if err != nil {
		return nil, err
	}
	e.Description = description.String
	e.CreatedBy = createdBy.String
	e.HouseNo = houseNo.String
	e.Phone = phone.String
	return &e, nil
}

func (s *Store) ListCreditEntries(ctx context.Context, filter domain.CreditEntryFilter) ([]domain.CreditEntry, error) {
	if filter.Limit < 1 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	query := `
		SELECT ` + creditEntryColumns + `
		FROM verisiye_transactions v
		JOIN customers c ON v.customer_id = c.id
		WHERE 1=1
	`
	args := []any{}
	n := 1

	if filter.CustomerID != 0 {
		query += ` AND v.customer_id = $` + strconv.Itoa(n)
		args = append(args, filter.CustomerID)
		n++
	}
	if filter.HouseNo != "" {
		query += ` AND c.house_no ILIKE $` + strconv.Itoa(n)
		args = append(args, "%"+filter.HouseNo+"%")
		n++
	}
	if filter.Name != "" {
		query += ` AND c.name ILIKE $` + strconv.Itoa(n)
		args = append(args, "%"+filter.Name+"%")
		n++
	}
	if filter.StartDate != "" && filter.EndDate != "" {
		query += ` AND v.transaction_date BETWEEN $` + strconv.Itoa(n) + ` AND $` + strconv.Itoa(n+1)
		args = append(args, filter.StartDate, filter.EndDate)
		n += 2
	}

	query += ` ORDER BY v.transaction_date DESC LIMIT $` + strconv.Itoa(n) + ` OFFSET $` + strconv.Itoa(n+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.CreditEntry, 0, filter.Limit)
	for rows.Next() {
		e, err := scanCreditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) GetCreditEntry(ctx context.Context, id int64) (*domain.CreditEntry, error) {
	e, err := scanCreditEntry(s.db.QueryRowContext(ctx, `
		SELECT `+creditEntryColumns+`
		FROM verisiye_transactions v
		JOIN customers c ON v.customer_id = c.id
		WHERE v.id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *Store) CreateCreditEntry(ctx context.Context, entry domain.CreditEntry) (*domain.CreditEntry, error) {
	if entry.CustomerID == 0 || entry.Amount.IsZero() {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO verisiye_transactions (customer_id, amount, description, created_by)
		VALUES ($1,$2,$3,$4)
		RETURNING id
	`, entry.CustomerID, entry.Amount, nullIfEmpty(entry.Description), nullIfEmpty(entry.CreatedBy)).Scan(&id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrMissingReference
		}
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE customers SET total_credit = total_credit + $1, updated_at = now() WHERE id = $2
	`, entry.Amount, entry.CustomerID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetCreditEntry(ctx, id)
}

func (s *Store) DeleteCreditEntry(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var customerID int64
	var amount decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		SELECT customer_id, amount FROM verisiye_transactions WHERE id = $1
	`, id).Scan(&customerID, &amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE customers SET total_credit = total_credit - $1, updated_at = now() WHERE id = $2
	`, amount, customerID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM verisiye_transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) GetCreditDailyReport(ctx context.Context, date string) (domain.CreditDailyReport, error) {
	report := domain.CreditDailyReport{Date: date}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount), 0)
		FROM verisiye_transactions
		WHERE DATE(transaction_date) = $1::date
	`, date).Scan(&report.TransactionCount, &report.TotalVerisiye)
	if err != nil {
		return domain.CreditDailyReport{}, err
	}
	return report, nil
}

func (s *Store) GetCustomerCreditReport(ctx context.Context, filter domain.CustomerReportFilter) ([]domain.CustomerCreditSummary, error) {
	query := `
		SELECT c.id, c.name, c.house_no, c.phone, c.total_credit,
			COUNT(v.id), COALESCE(SUM(v.amount), 0) AS total_verisiye
		FROM customers c
		LEFT JOIN verisiye_transactions v ON c.id = v.customer_id
		WHERE 1=1
	`
	args := []any{}
	n := 1

	if filter.HouseNo != "" {
		query += ` AND c.house_no ILIKE $` + strconv.Itoa(n)
		args = append(args, "%"+filter.HouseNo+"%")
		n++
	}
	if filter.Name != "" {
		query += ` AND c.name ILIKE $` + strconv.Itoa(n)
		args = append(args, "%"+filter.Name+"%")
		n++
	}
	if filter.StartDate != "" && filter.EndDate != "" {
		query += ` AND v.transaction_date BETWEEN $` + strconv.Itoa(n) + ` AND $` + strconv.Itoa(n+1)
		args = append(args, filter.StartDate, filter.EndDate)
		n += 2
	}

	query += ` GROUP BY c.id ORDER BY total_verisiye DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]domain.CustomerCreditSummary, 0, 64)
	for rows.Next() {
		var sum domain.CustomerCreditSummary
		var houseNo, phone sql.NullString
		if err := rows.Scan(&sum.ID, &sum.Name, &houseNo, &phone, &sum.TotalCredit,
			&sum.TransactionCount, &sum.TotalVerisiye); err != nil {
			return nil, err
		}
		sum.HouseNo = houseNo.String
		sum.Phone = phone.String
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *Store) ListCustomersForNotify(ctx context.Context, ids []int64, minCredit *decimal.Decimal) ([]domain.Customer, error) {
	query := `
		SELECT c.id, c.name, c.house_no, c.phone, c.total_credit, c.created_at, c.updated_at,
			COUNT(v.id), COALESCE(SUM(v.amount), 0) AS total_credit_given
		FROM customers c
		LEFT JOIN verisiye_transactions v ON c.id = v.customer_id
		WHERE c.phone IS NOT NULL AND c.phone <> ''
	`
	args := []any{}
	n := 1

	if len(ids) > 0 {
		query += ` AND c.id = ANY($` + strconv.Itoa(n) + `)`
		args = append(args, ids)
		n++
	}

	query += ` GROUP BY c.id`

	if minCredit != nil {
		query += ` HAVING COALESCE(SUM(v.amount), 0) >= $` + strconv.Itoa(n)
		args = append(args, *minCredit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

// ---- expense products ----

func (s *Store) ListExpenseProducts(ctx context.Context, category string, includeRetired bool) ([]domain.ExpenseProduct, error) {
	query := `
		SELECT id, name, category, is_active, created_at, updated_at
		FROM expense_products
		WHERE 1=1
	`
	args := []any{}
	n := 1

	if !includeRetired {
		query += ` AND is_active = true`
	}
	if category != "" {
		query += ` AND category = $` + strconv.Itoa(n)
		args = append(args, category)
	}
	query += ` ORDER BY category, name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.ExpenseProduct, 0, 32)
	for rows.Next() {
		var p domain.ExpenseProduct
		var active bool
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Status = expenseStatus(active)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) CreateExpenseProduct(ctx context.Context, p domain.ExpenseProduct) (*domain.ExpenseProduct, error) {
	if p.Name == "" || !domain.ValidCategory(p.Category) {
		return nil, store.ErrInvalidInput
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO expense_products (name, category)
		VALUES ($1,$2)
		RETURNING id, created_at, updated_at
	`, p.Name, p.Category).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = domain.ExpenseProductActive
	created := p
	return &created, nil
}

func (s *Store) UpdateExpenseProduct(ctx context.Context, id int64, req domain.ExpenseProductUpdateRequest) (*domain.ExpenseProduct, error) {
	if req.Category != nil && !domain.ValidCategory(*req.Category) {
		return nil, store.ErrInvalidInput
	}
	var active any
	if req.Status != nil {
		switch *req.Status {
		case domain.ExpenseProductActive:
			active = true
		case domain.ExpenseProductRetired:
			active = false
		default:
			return nil, store.ErrInvalidInput
		}
	}

	var p domain.ExpenseProduct
	var isActive bool
	err := s.db.QueryRowContext(ctx, `
		UPDATE expense_products
		SET name = COALESCE($2, name),
			category = COALESCE($3, category),
			is_active = COALESCE($4, is_active),
			updated_at = now()
		WHERE id = $1
		RETURNING id, name, category, is_active, created_at, updated_at
	`, id, req.Name, req.Category, active).Scan(&p.ID, &p.Name, &p.Category, &isActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.Status = expenseStatus(isActive)
	return &p, nil
}

func (s *Store) RetireExpenseProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE expense_products SET is_active = false, updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ---- balance sheets ----

func (s *Store) SubmitBalanceSheet(ctx context.Context, req domain.BalanceSheetSubmitRequest) (*domain.BalanceSheet, error) {
	if req.SheetDate == "" {
		return nil, store.ErrInvalidInput
	}
	for _, e := range req.Expenses {
		if !domain.ValidExpenseType(e.ExpenseType) {
			return nil, store.ErrInvalidInput
		}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Day's system sales, bucketed on the stored wall-clock date.
	var kasaSistem decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_amount), 0)
		FROM transactions
		WHERE DATE(date) = $1::date
	`, req.SheetDate).Scan(&kasaSistem)
	if err != nil {
		return nil, err
	}

	var prevDevir decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		SELECT devir_toplam FROM daily_balance_sheets
		WHERE sheet_date = $1::date - INTERVAL '1 day'
	`, req.SheetDate).Scan(&prevDevir)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	totals := domain.ReconcileSheet(kasaSistem, prevDevir, req.KasaNakit, req.KKart, req.Expenses)

	var sheetID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO daily_balance_sheets (
			sheet_date, kasa_sistem, verisiye_total, kasa_nakit, k_kart,
			toplam, fark, devir_toplam, notes, created_by
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (sheet_date)
		DO UPDATE SET
			kasa_sistem = EXCLUDED.kasa_sistem,
			verisiye_total = EXCLUDED.verisiye_total,
			kasa_nakit = EXCLUDED.kasa_nakit,
			k_kart = EXCLUDED.k_kart,
			toplam = EXCLUDED.toplam,
			fark = EXCLUDED.fark,
			devir_toplam = EXCLUDED.devir_toplam,
			notes = EXCLUDED.notes,
			created_by = EXCLUDED.created_by,
			updated_at = now()
		RETURNING id
	`, req.SheetDate, totals.KasaSistem, req.VerisiyeTotal, req.KasaNakit, req.KKart,
		totals.Toplam, totals.Fark, totals.DevirToplam,
		nullIfEmpty(req.Notes), nullIfEmpty(req.CreatedBy)).Scan(&sheetID)
	if err != nil {
		return nil, err
	}

	// Full replace: resubmitting a day never accumulates lines.
	_, err = tx.ExecContext(ctx, `DELETE FROM balance_sheet_expenses WHERE balance_sheet_id = $1`, sheetID)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM shop_purchases WHERE balance_sheet_id = $1`, sheetID)
	if err != nil {
		return nil, err
	}

	for _, e := range req.Expenses {
		qty := e.Quantity
		if qty < 1 {
			qty = 1
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO balance_sheet_expenses (
				balance_sheet_id, expense_product_id, expense_type,
				quantity, unit_price, total_price, notes
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, sheetID, e.ExpenseProductID, e.ExpenseType, qty, e.UnitPrice, e.TotalPrice, nullIfEmpty(e.Notes))
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, store.ErrMissingReference
			}
			return nil, err
		}
	}

	for _, p := range req.ShopPurchases {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO shop_purchases (
				balance_sheet_id, expense_product_id, quantity,
				unit_cost, total_cost, supplier, notes
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, sheetID, p.ExpenseProductID, p.Quantity, p.UnitCost, p.TotalCost,
			nullIfEmpty(p.Supplier), nullIfEmpty(p.Notes))
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, store.ErrMissingReference
			}
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetBalanceSheet(ctx, req.SheetDate)
}

const sheetColumns = `
	bs.id, bs.sheet_date, bs.kasa_sistem, bs.verisiye_total, bs.kasa_nakit, bs.k_kart,
	bs.toplam, bs.fark, bs.devir_toplam, bs.notes, bs.created_by, bs.created_at, bs.updated_at
`

func scanSheet(row interface{ Scan(...any) error }) (*domain.BalanceSheet, error) {
	var bs domain.BalanceSheet
	var sheetDate time.Time
	var notes, createdBy sql.NullString
	err := row.Scan(&bs.ID, &sheetDate, &bs.KasaSistem, &bs.VerisiyeTotal, &bs.KasaNakit,
		&bs.KKart, &bs.Toplam, &bs.Fark, &bs.DevirToplam, &notes, &createdBy,
		&bs.CreatedAt, &bs.UpdatedAt)
	if err != nil {
		return nil, err
	}
	bs.SheetDate = sheetDate.Format("2006-01-02")
	bs.Notes = notes.String
	bs.CreatedBy = createdBy.String
	return &bs, nil
}

func (s *Store) GetBalanceSheet(ctx context.Context, date string) (*domain.BalanceSheet, error) {
	bs, err := scanSheet(s.db.QueryRowContext(ctx, `
		SELECT `+sheetColumns+` FROM daily_balance_sheets bs WHERE bs.sheet_date = $1
	`, date))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.balance_sheet_id, e.expense_product_id, ep.name, ep.category,
			e.expense_type, e.quantity, e.unit_price, e.total_price, e.notes
		FROM balance_sheet_expenses e
		JOIN expense_products ep ON e.expense_product_id = ep.id
		WHERE e.balance_sheet_id = $1
		ORDER BY e.expense_type, ep.name
	`, bs.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bs.Expenses = []domain.ExpenseLine{}
	for rows.Next() {
		var line domain.ExpenseLine
		var notes sql.NullString
		if err := rows.Scan(&line.ID, &line.BalanceSheetID, &line.ExpenseProductID,
			&line.ProductName, &line.Category, &line.ExpenseType, &line.Quantity,
			&line.UnitPrice, &line.TotalPrice, &notes); err != nil {
			return nil, err
		}
		line.Notes = notes.String
		bs.Expenses = append(bs.Expenses, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	purchaseRows, err := s.db.QueryContext(ctx, `
		SELECT sp.id, sp.balance_sheet_id, sp.expense_product_id, ep.name,
			sp.quantity, sp.unit_cost, sp.total_cost, sp.supplier, sp.notes
		FROM shop_purchases sp
		JOIN expense_products ep ON sp.expense_product_id = ep.id
		WHERE sp.balance_sheet_id = $1
		ORDER BY ep.name
	`, bs.ID)
	if err != nil {
		return nil, err
	}
	defer purchaseRows.Close()

	bs.ShopPurchases = []domain.PurchaseLine{}
	for purchaseRows.Next() {
		var line domain.PurchaseLine
		var supplier, notes sql.NullString
		if err := purchaseRows.Scan(&line.ID, &line.BalanceSheetID, &line.ExpenseProductID,
			&line.ProductName, &line.Quantity, &line.UnitCost, &line.TotalCost,
			&supplier, &notes); err != nil {
			return nil, err
		}
		line.Supplier = supplier.String
		line.Notes = notes.String
		bs.ShopPurchases = append(bs.ShopPurchases, line)
	}
	if err := purchaseRows.Err(); err != nil {
		return nil, err
	}

	fillExpenseBuckets(bs)
	return bs, nil
}

func fillExpenseBuckets(bs *domain.BalanceSheet) {
	for _, line := range bs.Expenses {
		switch line.ExpenseType {
		case domain.ExpenseTypeKasa:
			bs.KasaGider = bs.KasaGider.Add(line.TotalPrice)
		case domain.ExpenseTypeKart:
			bs.KartGider = bs.KartGider.Add(line.TotalPrice)
		case domain.ExpenseTypeDevir:
			bs.DevirGider = bs.DevirGider.Add(line.TotalPrice)
		}
	}
}

func (s *Store) ListBalanceSheets(ctx context.Context, startDate, endDate string, limit, offset int) ([]domain.BalanceSheet, error) {
	if limit < 1 {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + sheetColumns + `,
			COALESCE(SUM(CASE WHEN e.expense_type = 'kasa_gider' THEN e.total_price END), 0),
			COALESCE(SUM(CASE WHEN e.expense_type = 'kart_gider' THEN e.total_price END), 0),
			COALESCE(SUM(CASE WHEN e.expense_type = 'devir_gider' THEN e.total_price END), 0)
		FROM daily_balance_sheets bs
		LEFT JOIN balance_sheet_expenses e ON e.balance_sheet_id = bs.id
		WHERE 1=1
	`
	args := []any{}
	n := 1

	if startDate != "" && endDate != "" {
		query += ` AND bs.sheet_date BETWEEN $` + strconv.Itoa(n) + ` AND $` + strconv.Itoa(n+1)
		args = append(args, startDate, endDate)
		n += 2
	}

	query += ` GROUP BY bs.id ORDER BY bs.sheet_date DESC LIMIT $` + strconv.Itoa(n) + ` OFFSET $` + strconv.Itoa(n+1)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sheets := make([]domain.BalanceSheet, 0, limit)
	for rows.Next() {
		var bs domain.BalanceSheet
		var sheetDate time.Time
		var notes, createdBy sql.NullString
		if err := rows.Scan(&bs.ID, &sheetDate, &bs.KasaSistem, &bs.VerisiyeTotal,
			&bs.KasaNakit, &bs.KKart, &bs.Toplam, &bs.Fark, &bs.DevirToplam,
			&notes, &createdBy, &bs.CreatedAt, &bs.UpdatedAt,
			&bs.KasaGider, &bs.KartGider, &bs.DevirGider); err != nil {
			return nil, err
		}
		bs.SheetDate = sheetDate.Format("2006-01-02")
		bs.Notes = notes.String
		bs.CreatedBy = createdBy.String
		sheets = append(sheets, bs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sheets, nil
}

func (s *Store) DeleteBalanceSheet(ctx context.Context, date string) error {
	// Child lines go with the sheet via ON DELETE CASCADE. Later days keep
	// their stored devir_toplam untouched.
	res, err := s.db.ExecContext(ctx, `DELETE FROM daily_balance_sheets WHERE sheet_date = $1`, date)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetKasaSummary(ctx context.Context, date string) (domain.KasaSummary, error) {
	summary := domain.KasaSummary{ExpensesByType: []domain.ExpenseTypeTotal{}}

	bs, err := s.GetBalanceSheet(ctx, date)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.KasaSummary{}, err
	}
	summary.BalanceSheet = bs

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.expense_type, COALESCE(SUM(e.total_price), 0)
		FROM balance_sheet_expenses e
		JOIN daily_balance_sheets bs ON e.balance_sheet_id = bs.id
		WHERE bs.sheet_date = $1
		GROUP BY e.expense_type
	`, date)
	if err != nil {
		return domain.KasaSummary{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var t domain.ExpenseTypeTotal
		if err := rows.Scan(&t.ExpenseType, &t.Total); err != nil {
			return domain.KasaSummary{}, err
		}
		summary.ExpensesByType = append(summary.ExpensesByType, t)
	}
	if err := rows.Err(); err != nil {
		return domain.KasaSummary{}, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(sp.total_cost), 0)
		FROM shop_purchases sp
		JOIN daily_balance_sheets bs ON sp.balance_sheet_id = bs.id
		WHERE bs.sheet_date = $1
	`, date).Scan(&summary.TotalShopPurchases)
	if err != nil {
		return domain.KasaSummary{}, err
	}
	return summary, nil
}

func (s *Store) GetDailyProfitReport(ctx context.Context, startDate, endDate string) ([]domain.ProfitRow, error) {
	query := `
		SELECT
			DATE(t.date) AS sale_date,
			ti.product_id,
			ti.name,
			COALESCE(p.barcode, ''),
			SUM(ti.quantity),
			AVG(ti.price_at_sale),
			AVG(ti.cost_at_sale),
			SUM(ti.quantity * ti.price_at_sale),
			SUM(ti.quantity * ti.cost_at_sale),
			SUM(ti.quantity * (ti.price_at_sale - ti.cost_at_sale)) AS total_profit
		FROM transactions t
		JOIN transaction_items ti ON t.id = ti.transaction_id
		LEFT JOIN products p ON ti.product_id = p.id
		WHERE 1=1
	`
	args := []any{}
	if startDate != "" && endDate != "" {
		query += ` AND DATE(t.date) BETWEEN $1 AND $2`
		args = append(args, startDate, endDate)
	} else {
		query += ` AND DATE(t.date) = CURRENT_DATE`
	}
	query += `
		GROUP BY DATE(t.date), ti.product_id, ti.name, p.barcode
		ORDER BY sale_date DESC, total_profit DESC
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	report := make([]domain.ProfitRow, 0, 64)
	for rows.Next() {
		var r domain.ProfitRow
		var saleDate time.Time
		if err := rows.Scan(&saleDate, &r.ProductID, &r.ProductName, &r.Barcode,
			&r.TotalQuantity, &r.AvgPriceSell, &r.AvgPriceBuy,
			&r.TotalRevenue, &r.TotalCost, &r.TotalProfit); err != nil {
			return nil, err
		}
		r.SaleDate = saleDate.Format("2006-01-02")
		report = append(report, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return report, nil
}

// ---- users ----

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (username) DO NOTHING
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password_hash, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// ---- helpers ----

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullIfEmpty(val string) any {
	if strings.TrimSpace(val) == "" {
		return nil
	}
	return val
}

func nullDate(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullDecimal(val *decimal.Decimal) any {
	if val == nil {
		return nil
	}
	return *val
}

func expenseStatus(active bool) string {
	if active {
		return domain.ExpenseProductActive
	}
	return domain.ExpenseProductRetired
}

