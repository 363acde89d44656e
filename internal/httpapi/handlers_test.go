package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"onestoppos/backend/internal/cache"
	"onestoppos/backend/internal/notify"
	"onestoppos/backend/internal/service"
	"onestoppos/backend/internal/store/memory"
)

func newTestAPI(t *testing.T) (http.Handler, *API) {
	t.Helper()
	t.Setenv("SEED_ADMIN_PASSWORD", "admin-test-pw")
	t.Setenv("SEED_CASHIER_PASSWORD", "cashier-test-pw")

	repo := memory.NewSeeded(time.UTC)
	svc := service.New(repo, cache.NoopSummaryCache{}, notify.MockGateway{}, time.UTC, "90", 0, time.Minute)
	auth := NewAuthManager("test-secret", time.Hour, repo)
	api := New(svc, auth, "http://127.0.0.1:3000")
	return api.Handler(), api
}

func loginAs(t *testing.T, handler http.Handler, username, password string) string {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":%q}`, username, password)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s: status %d body %s", username, rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.AccessToken
}

func doJSON(handler http.Handler, method, path, token string, payload any) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpointIsPublic(t *testing.T) {
	handler, _ := newTestAPI(t)

	rec := doJSON(handler, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestProductsRequireAuth(t *testing.T) {
	handler, _ := newTestAPI(t)

	rec := doJSON(handler, http.MethodGet, "/api/products", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestProductCreateIsAdminOnly(t *testing.T) {
	handler, _ := newTestAPI(t)
	cashier := loginAs(t, handler, "cashier", "cashier-test-pw")

	rec := doJSON(handler, http.MethodPost, "/api/products", cashier, map[string]any{
		"barcode":    "8691234567890",
		"name":       "Makarna",
		"price_buy":  "10.00",
		"price_sell": "15.00",
		"stock":      10,
		"category":   "gida",
		"unit":       "adet",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cashier create status = %d, want 403", rec.Code)
	}

	admin := loginAs(t, handler, "admin", "admin-test-pw")
	rec = doJSON(handler, http.MethodPost, "/api/products", admin, map[string]any{
		"barcode":    "8691234567890",
		"name":       "Makarna",
		"price_buy":  "10.00",
		"price_sell": "15.00",
		"stock":      10,
		"category":   "gida",
		"unit":       "adet",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create status = %d body %s", rec.Code, rec.Body.String())
	}
}

func TestDuplicateBarcodeConflicts(t *testing.T) {
	handler, _ := newTestAPI(t)
	admin := loginAs(t, handler, "admin", "admin-test-pw")

	payload := map[string]any{
		"barcode":    "8699999999999",
		"name":       "Zeytin",
		"price_buy":  "40.00",
		"price_sell": "55.00",
		"stock":      5,
		"category":   "gida",
		"unit":       "adet",
	}
	if rec := doJSON(handler, http.MethodPost, "/api/products", admin, payload); rec.Code != http.StatusCreated {
		t.Fatalf("first create status = %d", rec.Code)
	}
	if rec := doJSON(handler, http.MethodPost, "/api/products", admin, payload); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate create status = %d, want 409", rec.Code)
	}
}

func TestBarcodeLookup(t *testing.T) {
	handler, _ := newTestAPI(t)
	cashier := loginAs(t, handler, "cashier", "cashier-test-pw")

	rec := doJSON(handler, http.MethodGet, "/api/products/barcode/8690000000017", cashier, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Product struct {
			Name string `json:"name"`
		} `json:"product"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Product.Name != "Ekmek" {
		t.Fatalf("name = %q", resp.Product.Name)
	}

	rec = doJSON(handler, http.MethodGet, "/api/products/barcode/0000000000000", cashier, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown barcode status = %d, want 404", rec.Code)
	}
}

func TestBalanceSheetSubmitAndFetch(t *testing.T) {
	handler, _ := newTestAPI(t)
	cashier := loginAs(t, handler, "cashier", "cashier-test-pw")

	rec := doJSON(handler, http.MethodPost, "/api/kasa/balance-sheets", cashier, map[string]any{
		"sheet_date": "2026-05-01",
		"kasa_nakit": "400.00",
		"k_kart":     "250.00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		BalanceSheet struct {
			SheetDate   string `json:"sheet_date"`
			Toplam      string `json:"toplam"`
			DevirToplam string `json:"devir_toplam"`
		} `json:"balance_sheet"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.BalanceSheet.SheetDate != "2026-05-01" {
		t.Fatalf("sheet_date = %q", resp.BalanceSheet.SheetDate)
	}

	rec = doJSON(handler, http.MethodGet, "/api/kasa/balance-sheets/2026-05-01", cashier, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(handler, http.MethodGet, "/api/kasa/balance-sheets/2026-05-02", cashier, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing day status = %d, want 404", rec.Code)
	}
}

func TestBalanceSheetSubmitRejectsMissingDate(t *testing.T) {
	handler, _ := newTestAPI(t)
	cashier := loginAs(t, handler, "cashier", "cashier-test-pw")

	rec := doJSON(handler, http.MethodPost, "/api/kasa/balance-sheets", cashier, map[string]any{
		"kasa_nakit": "100.00",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestBalanceSheetDeleteIsAdminOnly(t *testing.T) {
	handler, _ := newTestAPI(t)
	cashier := loginAs(t, handler, "cashier", "cashier-test-pw")
	admin := loginAs(t, handler, "admin", "admin-test-pw")

	rec := doJSON(handler, http.MethodPost, "/api/kasa/balance-sheets", cashier, map[string]any{
		"sheet_date": "2026-05-03",
		"kasa_nakit": "100.00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d", rec.Code)
	}

	if rec := doJSON(handler, http.MethodDelete, "/api/kasa/balance-sheets/2026-05-03", cashier, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("cashier delete status = %d, want 403", rec.Code)
	}
	if rec := doJSON(handler, http.MethodDelete, "/api/kasa/balance-sheets/2026-05-03", admin, nil); rec.Code != http.StatusOK {
		t.Fatalf("admin delete status = %d body %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(handler, http.MethodGet, "/api/kasa/balance-sheets/2026-05-03", admin, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("after delete status = %d, want 404", rec.Code)
	}
}

func TestBalanceSheetRejectsUnknownExpenseProduct(t *testing.T) {
	handler, _ := newTestAPI(t)
	cashier := loginAs(t, handler, "cashier", "cashier-test-pw")

	rec := doJSON(handler, http.MethodPost, "/api/kasa/balance-sheets", cashier, map[string]any{
		"sheet_date": "2026-05-04",
		"kasa_nakit": "100.00",
		"expenses": []map[string]any{{
			"expense_product_id": 999999,
			"expense_type":       "kasa_gider",
			"quantity":           1,
			"unit_price":         "10.00",
			"total_price":        "10.00",
		}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d body %s, want 400", rec.Code, rec.Body.String())
	}
}

func TestVerisiyeCustomerLifecycle(t *testing.T) {
	handler, _ := newTestAPI(t)
	cashier := loginAs(t, handler, "cashier", "cashier-test-pw")

	rec := doJSON(handler, http.MethodPost, "/api/verisiye/customers", cashier, map[string]any{
		"name":     "Ayşe Yılmaz",
		"house_no": "12A",
		"phone":    "0532 111 22 33",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create customer status = %d body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Customer struct {
			ID int64 `json:"id"`
		} `json:"customer"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doJSON(handler, http.MethodPost, "/api/verisiye/transactions", cashier, map[string]any{
		"customer_id": created.Customer.ID,
		"amount":      "150.00",
		"description": "bakkal alışverişi",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create entry status = %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(handler, http.MethodGet, fmt.Sprintf("/api/verisiye/customers/%d", created.Customer.ID), cashier, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get customer status = %d", rec.Code)
	}
	var fetched struct {
		Customer struct {
			TotalCreditGiven string `json:"total_credit_given"`
		} `json:"customer"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, err := decimal.NewFromString(fetched.Customer.TotalCreditGiven)
	if err != nil {
		t.Fatalf("parse total_credit_given %q: %v", fetched.Customer.TotalCreditGiven, err)
	}
	if !got.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("total_credit_given = %s, want 150", got)
	}
}

func TestNotifyCustomerEndpoint(t *testing.T) {
	handler, _ := newTestAPI(t)
	cashier := loginAs(t, handler, "cashier", "cashier-test-pw")

	rec := doJSON(handler, http.MethodPost, "/api/verisiye/customers", cashier, map[string]any{
		"name":  "Mehmet Demir",
		"phone": "0532 444 55 66",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create customer status = %d", rec.Code)
	}
	var created struct {
		Customer struct {
			ID int64 `json:"id"`
		} `json:"customer"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doJSON(handler, http.MethodPost, fmt.Sprintf("/api/verisiye/whatsapp/send/%d", created.Customer.ID), cashier, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("notify status = %d body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success  bool `json:"success"`
		Customer struct {
			Phone string `json:"phone"`
		} `json:"customer"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success {
		t.Fatalf("success = false, body %s", rec.Body.String())
	}
	if resp.Customer.Phone != "+905324445566" {
		t.Fatalf("normalized phone = %q", resp.Customer.Phone)
	}
}

func TestBulkNotifyIsAdminOnly(t *testing.T) {
	handler, _ := newTestAPI(t)
	cashier := loginAs(t, handler, "cashier", "cashier-test-pw")

	rec := doJSON(handler, http.MethodPost, "/api/verisiye/whatsapp/send-bulk", cashier, map[string]any{})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestUnknownFieldInPayloadIsRejected(t *testing.T) {
	handler, _ := newTestAPI(t)
	cashier := loginAs(t, handler, "cashier", "cashier-test-pw")

	rec := doJSON(handler, http.MethodPost, "/api/verisiye/customers", cashier, map[string]any{
		"name":      "Typo Test",
		"telephone": "0532",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler, _ := newTestAPI(t)
	cashier := loginAs(t, handler, "cashier", "cashier-test-pw")

	rec := doJSON(handler, http.MethodPut, "/api/kasa/reports/summary", cashier, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
