package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/asiedupress/storefront-service/internal/domain"
	"github.com/asiedupress/storefront-service/internal/ports"
)

type purchaseModel struct {
	PurchaseID      string `gorm:"primaryKey"`
	Reference       string
	Email           string
	Name            string
	Phone           string
	BookType        string
	Product         string
	Bundle          bool
	AmountSubunits  int64
	Currency        string
	DeliveryAddress string
	Status          string
	Source          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (purchaseModel) TableName() string { return "purchases" }

type downloadModel struct {
	DownloadID string `gorm:"primaryKey"`
	Email      string
	Product    string
	UserAgent  string
	IPAddress  string
	Referer    string
	CreatedAt  time.Time
}

func (downloadModel) TableName() string { return "downloads" }

type analyticsEventModel struct {
	EventID   string `gorm:"primaryKey"`
	Action    string
	Category  string
	Label     string
	Value     *float64
	Metadata  []byte `gorm:"type:jsonb"`
	UserAgent string
	IPAddress string
	Referer   string
	CreatedAt time.Time
}

func (analyticsEventModel) TableName() string { return "analytics_events" }

// PurchaseRepository persists purchases in Postgres. The unique index on
// reference turns concurrent inserts of the same transaction into a single
// winner; the loser observes domain.ErrConflict.
type PurchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

func (r *PurchaseRepository) Create(ctx context.Context, purchase domain.Purchase) error {
	row := purchaseModel{
		PurchaseID:      purchase.PurchaseID,
		Reference:       purchase.Reference,
		Email:           purchase.Email,
		Name:            purchase.Name,
		Phone:           purchase.Phone,
		BookType:        string(purchase.BookType),
		Product:         purchase.Product,
		Bundle:          purchase.Bundle,
		AmountSubunits:  purchase.AmountSubunits,
		Currency:        purchase.Currency,
		DeliveryAddress: purchase.DeliveryAddress,
		Status:          string(purchase.Status),
		Source:          purchase.Source,
		CreatedAt:       purchase.CreatedAt,
		UpdatedAt:       purchase.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: reference %s already recorded", domain.ErrConflict, purchase.Reference)
		}
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

func (r *PurchaseRepository) GetByReference(ctx context.Context, reference string) (domain.Purchase, error) {
	var row purchaseModel
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Purchase{}, fmt.Errorf("%w: purchase %s", domain.ErrNotFound, reference)
	}
	if err != nil {
		return domain.Purchase{}, fmt.Errorf("load purchase: %w", err)
	}
	return row.toDomain(), nil
}

func (r *PurchaseRepository) UpdateStatusByReference(ctx context.Context, reference string, status domain.PurchaseStatus, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&purchaseModel{}).
		Where("reference = ?", reference).
		Updates(map[string]any{"status": string(status), "updated_at": at})
	if res.Error != nil {
		return fmt.Errorf("update purchase status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: purchase %s", domain.ErrNotFound, reference)
	}
	return nil
}

func (r *PurchaseRepository) Aggregate(ctx context.Context, window ports.Range) (ports.PurchaseAggregate, error) {
	type bucket struct {
		BookType string
		Count    int64
		Revenue  int64
	}
	var rows []bucket
	q := r.db.WithContext(ctx).Model(&purchaseModel{}).
		Select("book_type, COUNT(*) AS count, COALESCE(SUM(amount_subunits), 0) AS revenue").
		Where("status = ?", string(domain.PurchaseStatusPaid))
	q = applyWindow(q, window)
	if err := q.Group("book_type").Scan(&rows).Error; err != nil {
		return ports.PurchaseAggregate{}, fmt.Errorf("aggregate purchases: %w", err)
	}

	agg := ports.PurchaseAggregate{ByBookType: map[string]int64{}}
	for _, b := range rows {
		agg.Count += b.Count
		agg.RevenueSubunits += b.Revenue
		agg.ByBookType[b.BookType] += b.Count
	}
	return agg, nil
}

func (m purchaseModel) toDomain() domain.Purchase {
	return domain.Purchase{
		PurchaseID:      m.PurchaseID,
		Reference:       m.Reference,
		Email:           m.Email,
		Name:            m.Name,
		Phone:           m.Phone,
		BookType:        domain.BookType(m.BookType),
		Product:         m.Product,
		Bundle:          m.Bundle,
		AmountSubunits:  m.AmountSubunits,
		Currency:        m.Currency,
		DeliveryAddress: m.DeliveryAddress,
		Status:          domain.PurchaseStatus(m.Status),
		Source:          m.Source,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// DownloadRepository is the append-mostly audit log of served files.
type DownloadRepository struct {
	db *gorm.DB
}

func NewDownloadRepository(db *gorm.DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

func (r *DownloadRepository) Add(ctx context.Context, record domain.DownloadRecord) error {
	row := downloadModel{
		DownloadID: record.DownloadID,
		Email:      record.Email,
		Product:    record.Product,
		UserAgent:  record.UserAgent,
		IPAddress:  record.IPAddress,
		Referer:    record.Referer,
		CreatedAt:  record.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert download: %w", err)
	}
	return nil
}

func (r *DownloadRepository) CountByProduct(ctx context.Context, window ports.Range) (map[string]int64, error) {
	type bucket struct {
		Product string
		Count   int64
	}
	var rows []bucket
	q := r.db.WithContext(ctx).Model(&downloadModel{}).
		Select("product, COUNT(*) AS count")
	q = applyWindow(q, window)
	if err := q.Group("product").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count downloads: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, b := range rows {
		out[b.Product] = b.Count
	}
	return out, nil
}

// AnalyticsEventRepository stores site events with their free-form metadata
// as jsonb.
type AnalyticsEventRepository struct {
	db *gorm.DB
}

func NewAnalyticsEventRepository(db *gorm.DB) *AnalyticsEventRepository {
	return &AnalyticsEventRepository{db: db}
}

func (r *AnalyticsEventRepository) Add(ctx context.Context, event domain.AnalyticsEvent) error {
	var metadata []byte
	if len(event.Metadata) > 0 {
		encoded, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("encode event metadata: %w", err)
		}
		metadata = encoded
	}
	row := analyticsEventModel{
		EventID:   event.EventID,
		Action:    event.Action,
		Category:  event.Category,
		Label:     event.Label,
		Value:     event.Value,
		Metadata:  metadata,
		UserAgent: event.UserAgent,
		IPAddress: event.IPAddress,
		Referer:   event.Referer,
		CreatedAt: event.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	return nil
}

func (r *AnalyticsEventRepository) CountByAction(ctx context.Context, window ports.Range) (map[string]int64, error) {
	type bucket struct {
		Action string
		Count  int64
	}
	var rows []bucket
	q := r.db.WithContext(ctx).Model(&analyticsEventModel{}).
		Select("action, COUNT(*) AS count")
	q = applyWindow(q, window)
	if err := q.Group("action").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, b := range rows {
		out[b.Action] = b.Count
	}
	return out, nil
}

func (r *AnalyticsEventRepository) PageViews(ctx context.Context, window ports.Range) (map[string]int64, error) {
	type bucket struct {
		Label string
		Count int64
	}
	var rows []bucket
	q := r.db.WithContext(ctx).Model(&analyticsEventModel{}).
		Select("label, COUNT(*) AS count").
		Where("action = ?", "page_view")
	q = applyWindow(q, window)
	if err := q.Group("label").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count page views: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, b := range rows {
		out[b.Label] = b.Count
	}
	return out, nil
}

func applyWindow(q *gorm.DB, window ports.Range) *gorm.DB {
	if window.From != nil {
		q = q.Where("created_at >= ?", *window.From)
	}
	if window.To != nil {
		q = q.Where("created_at < ?", *window.To)
	}
	return q
}
