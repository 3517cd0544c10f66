package domain

import (
	"fmt"
	"strings"
	"time"
)

type PurchaseStatus string

type BookType string

const (
	PurchaseStatusPaid     PurchaseStatus = "paid"
	PurchaseStatusRefunded PurchaseStatus = "refunded"

	BookTypeEbook    BookType = "ebook"
	BookTypeHardcopy BookType = "hardcopy"

	// PurchaseSourceCheckout marks rows inserted by the synchronous
	// verification path; PurchaseSourceWebhook marks rows inserted by the
	// asynchronous backstop. Whichever path inserts first owns the row.
	PurchaseSourceCheckout = "checkout"
	PurchaseSourceWebhook  = "webhook"
)

// Purchase is one confirmed gateway transaction. Reference is the
// gateway-assigned transaction id and is unique across all rows; the unique
// constraint is the only serialization point between the checkout and
// webhook paths.
type Purchase struct {
	PurchaseID      string         `json:"purchase_id"`
	Reference       string         `json:"reference"`
	Email           string         `json:"email"`
	Name            string         `json:"name,omitempty"`
	Phone           string         `json:"phone,omitempty"`
	BookType        BookType       `json:"book_type"`
	Product         string         `json:"product"`
	Bundle          bool           `json:"bundle"`
	AmountSubunits  int64          `json:"amount_subunits"`
	Currency        string         `json:"currency"`
	DeliveryAddress string         `json:"delivery_address,omitempty"`
	Status          PurchaseStatus `json:"status"`
	Source          string         `json:"source"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// DownloadRecord is a write-only audit row for a served file. The core never
// reads these back for authorization decisions.
type DownloadRecord struct {
	DownloadID string    `json:"download_id"`
	Email      string    `json:"email"`
	Product    string    `json:"product"`
	UserAgent  string    `json:"user_agent,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	Referer    string    `json:"referer,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// AnalyticsEvent is a counted site event (page view, payment funnel step,
// newsletter signup). Value is optional; Metadata is free-form.
type AnalyticsEvent struct {
	EventID   string         `json:"event_id"`
	Action    string         `json:"action"`
	Category  string         `json:"category"`
	Label     string         `json:"label,omitempty"`
	Value     *float64       `json:"value,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	Referer   string         `json:"referer,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Subscriber is the upsert contract against the external newsletter store.
// The store deduplicates by email.
type Subscriber struct {
	Email string
	Name  string
	Phone string
}

func ValidateSubscriber(email, name string) error {
	if !strings.Contains(email, "@") {
		return fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	return nil
}

// NeedsDigitalDelivery reports whether a purchase is entitled to a download
// capability. Hardcopy-only orders are fulfilled physically; bundles always
// include the digital edition.
func (p Purchase) NeedsDigitalDelivery() bool {
	return p.Bundle || p.BookType != BookTypeHardcopy
}
