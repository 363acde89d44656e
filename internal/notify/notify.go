package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"onestoppos/backend/internal/xid"
)

// Gateway delivers a debt reminder message to a single phone number and
// returns the provider's message id.
type Gateway interface {
	Send(ctx context.Context, phone, message string) (string, error)
}

// NormalizePhone rewrites a locally formatted phone number into E.164 form.
// Non-digits are stripped; a leading "0" is replaced with the configured
// country prefix; the result is prefixed with "+".
func NormalizePhone(phone, countryPrefix string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	normalized := digits.String()
	if strings.HasPrefix(normalized, "0") {
		normalized = countryPrefix + normalized[1:]
	}
	return "+" + normalized
}

// DebtMessage renders the reminder text sent to a customer.
func DebtMessage(name string, amount decimal.Decimal) string {
	return fmt.Sprintf("Merhaba %s,\n\nVerisiye borcunuz: %s TL\n\nLütfen en kısa sürede ödeme yapınız.\n\nTeşekkürler,\nOneStopPOS", name, amount.StringFixed(2))
}

// MockGateway logs the message instead of delivering it. Used when no
// provider credentials are configured.
type MockGateway struct{}

func (MockGateway) Send(_ context.Context, phone, message string) (string, error) {
	log.Printf("[notify] mock send to %s: %s", phone, strings.ReplaceAll(message, "\n", " "))
	return xid.New("mock"), nil
}
