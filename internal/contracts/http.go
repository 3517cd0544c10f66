package contracts

// Wire shapes for the public endpoints. Field casing follows the site's
// existing JavaScript clients, so these stay camelCase rather than the
// snake_case used by internal APIs.

type VerifyPaymentRequest struct {
	Reference       string `json:"reference"`
	Email           string `json:"email"`
	Name            string `json:"name,omitempty"`
	Phone           string `json:"phone,omitempty"`
	BookType        string `json:"bookType,omitempty"`
	DeliveryAddress string `json:"deliveryAddress,omitempty"`
	IncludeBundle   bool   `json:"includeBundle,omitempty"`
}

type VerifyPaymentResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
	DownloadURL    string `json:"downloadUrl,omitempty"`
	EmailDelivered *bool  `json:"emailDelivered,omitempty"`
}

type SubscribeRequest struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type SimpleResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// WebhookAck is always returned with HTTP 200 once the signature is accepted,
// so the gateway never retries deliveries we have already authenticated.
type WebhookAck struct {
	Received bool   `json:"received"`
	Error    string `json:"error,omitempty"`
}

type TrackEventRequest struct {
	Action   string         `json:"action"`
	Category string         `json:"category"`
	Label    string         `json:"label,omitempty"`
	Value    *float64       `json:"value,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type PageViewStats struct {
	Total  int64            `json:"total"`
	ByPage map[string]int64 `json:"byPage"`
}

type DownloadProductSummary struct {
	Book     int64 `json:"book"`
	Research int64 `json:"research"`
}

type DownloadStats struct {
	Total            int64                  `json:"total"`
	ByProduct        map[string]int64       `json:"byProduct"`
	ByProductSummary DownloadProductSummary `json:"byProductSummary"`
}

type PurchaseTypeStats struct {
	Ebook    int64 `json:"ebook"`
	Hardcopy int64 `json:"hardcopy"`
}

type PurchaseStats struct {
	Total   int64             `json:"total"`
	Revenue float64           `json:"revenue"`
	ByType  PurchaseTypeStats `json:"byType"`
}

type EventStats struct {
	NewsletterSignups int64 `json:"newsletter_signups"`
	PaymentInitiated  int64 `json:"payment_initiated"`
	PaymentSuccess    int64 `json:"payment_success"`
	PaymentCancelled  int64 `json:"payment_cancelled"`
}

type AnalyticsSummary struct {
	PageViews PageViewStats `json:"pageViews"`
	Downloads DownloadStats `json:"downloads"`
	Purchases PurchaseStats `json:"purchases"`
	Events    EventStats    `json:"events"`
}

type AnalyticsResponse struct {
	Success bool             `json:"success"`
	Data    AnalyticsSummary `json:"data"`
}
