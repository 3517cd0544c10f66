package ports

import (
	"context"
	"time"

	"github.com/asiedupress/storefront-service/internal/domain"
)

// Range bounds an aggregation to [From, To). Nil means unbounded on that side.
type Range struct {
	From *time.Time
	To   *time.Time
}

// PurchaseAggregate is the read-side rollup consumed by the analytics summary.
type PurchaseAggregate struct {
	Count           int64
	RevenueSubunits int64
	ByBookType      map[string]int64
}

type PurchaseRepository interface {
	// Create inserts a purchase row. It returns domain.ErrConflict when a row
	// with the same gateway reference already exists.
	Create(ctx context.Context, purchase domain.Purchase) error
	GetByReference(ctx context.Context, reference string) (domain.Purchase, error)
	UpdateStatusByReference(ctx context.Context, reference string, status domain.PurchaseStatus, at time.Time) error
	Aggregate(ctx context.Context, window Range) (PurchaseAggregate, error)
}

type DownloadRepository interface {
	Add(ctx context.Context, record domain.DownloadRecord) error
	CountByProduct(ctx context.Context, window Range) (map[string]int64, error)
}

type AnalyticsEventRepository interface {
	Add(ctx context.Context, event domain.AnalyticsEvent) error
	CountByAction(ctx context.Context, window Range) (map[string]int64, error)
	// PageViews groups page_view events by their label (the page path).
	PageViews(ctx context.Context, window Range) (map[string]int64, error)
}
