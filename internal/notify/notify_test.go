package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name   string
		phone  string
		prefix string
		want   string
	}{
		{"local with leading zero", "0532 123 45 67", "90", "+905321234567"},
		{"already prefixed", "905321234567", "90", "+905321234567"},
		{"punctuation stripped", "(0532) 123-45-67", "90", "+905321234567"},
		{"other country prefix", "0171 2345678", "49", "+491712345678"},
		{"no leading zero kept as-is", "15551234567", "1", "+15551234567"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizePhone(tc.phone, tc.prefix); got != tc.want {
				t.Fatalf("NormalizePhone(%q, %q) = %q, want %q", tc.phone, tc.prefix, got, tc.want)
			}
		})
	}
}

func TestDebtMessageIncludesNameAndAmount(t *testing.T) {
	msg := DebtMessage("Ayşe Yılmaz", decimal.RequireFromString("154.5"))
	if !strings.Contains(msg, "Ayşe Yılmaz") {
		t.Fatalf("message missing customer name: %q", msg)
	}
	if !strings.Contains(msg, "154.50 TL") {
		t.Fatalf("message missing formatted amount: %q", msg)
	}
}

func TestMockGatewayReturnsReference(t *testing.T) {
	id, err := MockGateway{}.Send(context.Background(), "+905321234567", "test")
	if err != nil {
		t.Fatalf("mock send: %v", err)
	}
	if !strings.HasPrefix(id, "mock-") {
		t.Fatalf("expected mock- message id, got %q", id)
	}
}

func TestWhatsAppGatewaySend(t *testing.T) {
	var gotAuth, gotTo, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var payload whatsappTextPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		gotTo = payload.To
		gotBody = payload.Text.Body
		_ = json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]string{{"id": "wamid.TEST123"}},
		})
	}))
	defer srv.Close()

	g := NewWhatsAppGateway("secret-token", "123456789")
	g.baseURL = srv.URL

	id, err := g.Send(context.Background(), "+905321234567", "Merhaba")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id != "wamid.TEST123" {
		t.Fatalf("expected provider message id, got %q", id)
	}
	if gotAuth != "Bearer secret-token" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotTo != "+905321234567" || gotBody != "Merhaba" {
		t.Fatalf("unexpected payload to=%q body=%q", gotTo, gotBody)
	}
}

func TestWhatsAppGatewaySurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "invalid recipient", "code": 131026},
		})
	}))
	defer srv.Close()

	g := NewWhatsAppGateway("secret-token", "123456789")
	g.baseURL = srv.URL

	if _, err := g.Send(context.Background(), "+1", "Merhaba"); err == nil {
		t.Fatal("expected error from api failure")
	} else if !strings.Contains(err.Error(), "invalid recipient") {
		t.Fatalf("expected provider error message, got %v", err)
	}
}
