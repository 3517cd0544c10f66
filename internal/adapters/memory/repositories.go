// Package memory provides map-backed repository implementations. They serve
// tests and deployments that run without a database, with the same conflict
// and not-found semantics as the Postgres adapters.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/asiedupress/storefront-service/internal/domain"
	"github.com/asiedupress/storefront-service/internal/ports"
)

type PurchaseRepository struct {
	mu          sync.RWMutex
	byReference map[string]domain.Purchase
}

func NewPurchaseRepository() *PurchaseRepository {
	return &PurchaseRepository{byReference: make(map[string]domain.Purchase)}
}

func (r *PurchaseRepository) Create(_ context.Context, purchase domain.Purchase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byReference[purchase.Reference]; exists {
		return fmt.Errorf("%w: reference %s already recorded", domain.ErrConflict, purchase.Reference)
	}
	r.byReference[purchase.Reference] = purchase
	return nil
}

func (r *PurchaseRepository) GetByReference(_ context.Context, reference string) (domain.Purchase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	purchase, ok := r.byReference[reference]
	if !ok {
		return domain.Purchase{}, fmt.Errorf("%w: purchase %s", domain.ErrNotFound, reference)
	}
	return purchase, nil
}

func (r *PurchaseRepository) UpdateStatusByReference(_ context.Context, reference string, status domain.PurchaseStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	purchase, ok := r.byReference[reference]
	if !ok {
		return fmt.Errorf("%w: purchase %s", domain.ErrNotFound, reference)
	}
	purchase.Status = status
	purchase.UpdatedAt = at
	r.byReference[reference] = purchase
	return nil
}

func (r *PurchaseRepository) Aggregate(_ context.Context, window ports.Range) (ports.PurchaseAggregate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agg := ports.PurchaseAggregate{ByBookType: map[string]int64{}}
	for _, p := range r.byReference {
		if p.Status != domain.PurchaseStatusPaid || !inWindow(p.CreatedAt, window) {
			continue
		}
		agg.Count++
		agg.RevenueSubunits += p.AmountSubunits
		agg.ByBookType[string(p.BookType)]++
	}
	return agg, nil
}

type DownloadRepository struct {
	mu      sync.RWMutex
	records []domain.DownloadRecord
}

func NewDownloadRepository() *DownloadRepository {
	return &DownloadRepository{}
}

func (r *DownloadRepository) Add(_ context.Context, record domain.DownloadRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

func (r *DownloadRepository) CountByProduct(_ context.Context, window ports.Range) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[string]int64{}
	for _, rec := range r.records {
		if inWindow(rec.CreatedAt, window) {
			out[rec.Product]++
		}
	}
	return out, nil
}

type AnalyticsEventRepository struct {
	mu     sync.RWMutex
	events []domain.AnalyticsEvent
}

func NewAnalyticsEventRepository() *AnalyticsEventRepository {
	return &AnalyticsEventRepository{}
}

func (r *AnalyticsEventRepository) Add(_ context.Context, event domain.AnalyticsEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *AnalyticsEventRepository) CountByAction(_ context.Context, window ports.Range) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[string]int64{}
	for _, e := range r.events {
		if inWindow(e.CreatedAt, window) {
			out[e.Action]++
		}
	}
	return out, nil
}

func (r *AnalyticsEventRepository) PageViews(_ context.Context, window ports.Range) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[string]int64{}
	for _, e := range r.events {
		if e.Action == "page_view" && inWindow(e.CreatedAt, window) {
			out[e.Label]++
		}
	}
	return out, nil
}

func inWindow(at time.Time, window ports.Range) bool {
	if window.From != nil && at.Before(*window.From) {
		return false
	}
	if window.To != nil && !at.Before(*window.To) {
		return false
	}
	return true
}
