package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/asiedupress/storefront-service/internal/ports"
)

// WebhookDecoder authenticates Paystack webhook deliveries. Paystack signs
// the raw request body with HMAC-SHA512 under the account secret key and
// sends the hex digest in the x-paystack-signature header.
type WebhookDecoder struct {
	secretKey []byte
}

func NewWebhookDecoder(secretKey string) *WebhookDecoder {
	return &WebhookDecoder{secretKey: []byte(secretKey)}
}

// Verify compares the presented signature against the digest of the raw,
// unmodified body. No secret means nothing verifies.
func (d *WebhookDecoder) Verify(body []byte, signature string) bool {
	if len(d.secretKey) == 0 || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, d.secretKey)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if len(signature) != len(expected) {
		return false
	}
	return hmac.Equal([]byte(signature), []byte(expected))
}

type webhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		Customer  struct {
			Email     string `json:"email"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
		} `json:"customer"`
		Metadata json.RawMessage `json:"metadata"`
		// Refund events carry the original transaction nested.
		Transaction struct {
			Reference string `json:"reference"`
		} `json:"transaction"`
	} `json:"data"`
}

// Decode parses an authenticated body into a normalized gateway event.
func (d *WebhookDecoder) Decode(body []byte) (ports.GatewayEvent, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return ports.GatewayEvent{}, fmt.Errorf("decode webhook body: %w", err)
	}
	reference := payload.Data.Reference
	if reference == "" {
		reference = payload.Data.Transaction.Reference
	}
	return ports.GatewayEvent{
		Type: payload.Event,
		Charge: ports.GatewayCharge{
			Reference:      reference,
			Succeeded:      payload.Data.Status == "success",
			Status:         payload.Data.Status,
			AmountSubunits: payload.Data.Amount,
			Currency:       payload.Data.Currency,
			Customer: ports.GatewayCustomer{
				Email:     payload.Data.Customer.Email,
				FirstName: payload.Data.Customer.FirstName,
				LastName:  payload.Data.Customer.LastName,
			},
			Fields: parseCustomFields(payload.Data.Metadata),
		},
	}, nil
}
