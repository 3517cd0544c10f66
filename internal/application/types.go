package application

import (
	"time"

	"github.com/asiedupress/storefront-service/internal/domain"
	"github.com/asiedupress/storefront-service/internal/ports"
)

type Config struct {
	ServiceName string
	// Environment gates the auto-approve checkout bypass. Anything other than
	// "development" behaves as production.
	Environment string

	DownloadLinkTTL time.Duration
	// OperatorKey protects the analytics summary. Empty means open access
	// (local/dev only; production config validation warns).
	OperatorKey string

	AdminEmails []string
	SenderName  string

	// WebhookNotifications opts webhook-triggered confirmation email in. Off
	// by default so the synchronous checkout path owns customer-facing mail.
	WebhookNotifications bool

	CheckoutRateLimit int
	RateLimitWindow   time.Duration
}

// RequestMeta carries coarse requester attributes captured at the HTTP edge.
type RequestMeta struct {
	IPAddress string
	UserAgent string
	Referer   string
}

type CheckoutInput struct {
	Reference       string
	Email           string
	Name            string
	Phone           string
	BookType        string
	DeliveryAddress string
	IncludeBundle   bool
}

type CheckoutResult struct {
	Message        string
	DownloadURL    string
	EmailDelivered *bool
	Duplicate      bool
}

type DownloadQuery struct {
	Email     string
	Product   string
	Expires   string
	Signature string
}

// FileContent is a resolved file ready to stream to the buyer.
type FileContent struct {
	Data        []byte
	DisplayName string
}

type TrackEventInput struct {
	Action   string
	Category string
	Label    string
	Value    *float64
	Metadata map[string]any
}

type Service struct {
	cfg         Config
	purchases   ports.PurchaseRepository
	downloads   ports.DownloadRepository
	events      ports.AnalyticsEventRepository
	gateway     ports.PaymentGateway
	mailer      ports.Mailer
	subscribers ports.SubscriberStore
	signer      ports.LinkSigner
	blobs       ports.BlobSource
	limiter     ports.RateLimiter
	catalog     *domain.Catalog
	nowFn       func() time.Time
}

type Dependencies struct {
	Config      Config
	Purchases   ports.PurchaseRepository
	Downloads   ports.DownloadRepository
	Events      ports.AnalyticsEventRepository
	Gateway     ports.PaymentGateway
	Mailer      ports.Mailer
	Subscribers ports.SubscriberStore
	Signer      ports.LinkSigner
	Blobs       ports.BlobSource
	Limiter     ports.RateLimiter
	Catalog     *domain.Catalog
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "storefront-service"
	}
	if cfg.DownloadLinkTTL <= 0 {
		cfg.DownloadLinkTTL = 24 * time.Hour
	}
	if cfg.CheckoutRateLimit <= 0 {
		cfg.CheckoutRateLimit = 20
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Minute
	}
	catalog := deps.Catalog
	if catalog == nil {
		catalog = domain.DefaultCatalog()
	}
	return &Service{
		cfg:         cfg,
		purchases:   deps.Purchases,
		downloads:   deps.Downloads,
		events:      deps.Events,
		gateway:     deps.Gateway,
		mailer:      deps.Mailer,
		subscribers: deps.Subscribers,
		signer:      deps.Signer,
		blobs:       deps.Blobs,
		limiter:     deps.Limiter,
		catalog:     catalog,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}
