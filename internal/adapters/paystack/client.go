package paystack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/asiedupress/storefront-service/internal/ports"
)

const defaultBaseURL = "https://api.paystack.co"

// Client talks to the Paystack REST API with the account's secret key. Only
// the transaction verification endpoint is used; charges are initialized by
// the browser against Paystack directly.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewClient(secretKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// verifyResponse mirrors the subset of GET /transaction/verify/:reference we
// consume. Amounts arrive in subunits (pesewas/kobo).
type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
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
	} `json:"data"`
}

func (c *Client) VerifyTransaction(ctx context.Context, reference string) (ports.GatewayCharge, error) {
	endpoint := c.baseURL + "/transaction/verify/" + url.PathEscape(reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ports.GatewayCharge{}, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ports.GatewayCharge{}, fmt.Errorf("verify transaction %s: %w", reference, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ports.GatewayCharge{}, fmt.Errorf("read verify response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return ports.GatewayCharge{}, fmt.Errorf("paystack verify returned %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var payload verifyResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return ports.GatewayCharge{}, fmt.Errorf("decode verify response: %w", err)
	}

	charge := ports.GatewayCharge{
		Reference:      payload.Data.Reference,
		Succeeded:      payload.Status && payload.Data.Status == "success",
		Status:         payload.Data.Status,
		AmountSubunits: payload.Data.Amount,
		Currency:       payload.Data.Currency,
		Customer: ports.GatewayCustomer{
			Email:     payload.Data.Customer.Email,
			FirstName: payload.Data.Customer.FirstName,
			LastName:  payload.Data.Customer.LastName,
		},
		Fields: parseCustomFields(payload.Data.Metadata),
	}
	if charge.Reference == "" {
		charge.Reference = reference
	}
	return charge, nil
}

// metadataEnvelope is the Paystack metadata object when the inline-js client
// passes custom_fields. Metadata can also be a bare string or absent, so it
// is decoded leniently.
type metadataEnvelope struct {
	CustomFields []struct {
		VariableName string          `json:"variable_name"`
		Value        json.RawMessage `json:"value"`
	} `json:"custom_fields"`
}

// parseCustomFields extracts our known custom fields from the metadata blob.
// Field names vary between frontend versions, so each target accepts its
// historical aliases.
func parseCustomFields(raw json.RawMessage) ports.ChargeFields {
	var fields ports.ChargeFields
	if len(raw) == 0 {
		return fields
	}
	var envelope metadataEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fields
	}
	for _, cf := range envelope.CustomFields {
		switch cf.VariableName {
		case "name", "full_name":
			fields.Name = stringValue(cf.Value)
		case "phone", "phone_number":
			fields.Phone = stringValue(cf.Value)
		case "book_type", "format":
			fields.BookType = stringValue(cf.Value)
		case "delivery_address", "address":
			fields.DeliveryAddress = stringValue(cf.Value)
		case "include_bundle", "bundle":
			fields.IncludeBundle = boolValue(cf.Value)
		}
	}
	return fields
}

func stringValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.Trim(string(raw), `"`)
}

func boolValue(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	s := strings.ToLower(stringValue(raw))
	return s == "true" || s == "yes" || s == "1"
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
