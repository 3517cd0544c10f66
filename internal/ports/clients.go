package ports

import (
	"context"
	"time"

	"github.com/asiedupress/storefront-service/internal/domain"
)

type GatewayCustomer struct {
	Email     string
	FirstName string
	LastName  string
}

// ChargeFields is the gateway's free-form custom-fields array parsed once at
// the adapter boundary into named optional fields.
type ChargeFields struct {
	Name            string
	Phone           string
	BookType        string
	DeliveryAddress string
	IncludeBundle   bool
}

// GatewayCharge is the normalized result of a server-to-server transaction
// lookup. Succeeded is true only when the gateway itself reports success;
// the client's own claim is never consulted.
type GatewayCharge struct {
	Reference      string
	Succeeded      bool
	Status         string
	AmountSubunits int64
	Currency       string
	Customer       GatewayCustomer
	Fields         ChargeFields
}

// GatewayEvent is one webhook delivery after signature acceptance.
type GatewayEvent struct {
	Type   string
	Charge GatewayCharge
}

type PaymentGateway interface {
	VerifyTransaction(ctx context.Context, reference string) (GatewayCharge, error)
}

// WebhookDecoder authenticates and decodes raw webhook bodies. Verify runs
// over the raw, unparsed bytes; decoding only happens after acceptance.
type WebhookDecoder interface {
	Verify(body []byte, signature string) bool
	Decode(body []byte) (GatewayEvent, error)
}

type OutboundEmail struct {
	To      []string
	Bcc     []string
	Subject string
	HTML    string
	Text    string
}

// Mailer sends transactional email. Callers treat failures as non-fatal.
type Mailer interface {
	Send(ctx context.Context, email OutboundEmail) error
}

// SubscriberStore is the opaque newsletter provider; upserts deduplicate by
// email on the provider side.
type SubscriberStore interface {
	Upsert(ctx context.Context, subscriber domain.Subscriber) error
}

// RateLimiter implements fixed-window request counting. A nil limiter in the
// application means no limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
