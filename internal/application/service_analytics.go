package application

import (
	"context"
	"crypto/hmac"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/asiedupress/storefront-service/internal/contracts"
	"github.com/asiedupress/storefront-service/internal/domain"
	"github.com/asiedupress/storefront-service/internal/ports"
)

// TrackEvent records a site event. Recording is best-effort from the
// caller's point of view, but obviously malformed submissions are rejected
// so the event table stays queryable.
func (s *Service) TrackEvent(ctx context.Context, in TrackEventInput, meta RequestMeta) error {
	if strings.TrimSpace(in.Action) == "" || strings.TrimSpace(in.Category) == "" {
		return fmt.Errorf("%w: action and category are required", domain.ErrInvalidInput)
	}
	event := domain.AnalyticsEvent{
		EventID:   uuid.NewString(),
		Action:    in.Action,
		Category:  in.Category,
		Label:     in.Label,
		Value:     in.Value,
		Metadata:  in.Metadata,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
		Referer:   meta.Referer,
		CreatedAt: s.nowFn(),
	}
	if err := s.events.Add(ctx, event); err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// Summary aggregates page views, downloads, purchases and funnel events for
// the operator dashboard. date selects a single UTC day (YYYY-MM-DD);
// "total", "" or absent means all time.
func (s *Service) Summary(ctx context.Context, operatorKey, date string) (contracts.AnalyticsSummary, error) {
	if s.cfg.OperatorKey != "" {
		if !hmac.Equal([]byte(operatorKey), []byte(s.cfg.OperatorKey)) {
			return contracts.AnalyticsSummary{}, domain.ErrUnauthorized
		}
	}
	window, err := parseSummaryWindow(date)
	if err != nil {
		return contracts.AnalyticsSummary{}, err
	}

	var summary contracts.AnalyticsSummary
	summary.PageViews.ByPage = map[string]int64{}
	summary.Downloads.ByProduct = map[string]int64{}

	pages, err := s.events.PageViews(ctx, window)
	if err != nil {
		return contracts.AnalyticsSummary{}, fmt.Errorf("aggregate page views: %w", err)
	}
	for page, n := range pages {
		summary.PageViews.ByPage[page] = n
		summary.PageViews.Total += n
	}

	downloads, err := s.downloads.CountByProduct(ctx, window)
	if err != nil {
		return contracts.AnalyticsSummary{}, fmt.Errorf("aggregate downloads: %w", err)
	}
	for product, n := range downloads {
		summary.Downloads.ByProduct[product] = n
		summary.Downloads.Total += n
		if strings.HasPrefix(product, "research:") {
			summary.Downloads.ByProductSummary.Research += n
		} else {
			summary.Downloads.ByProductSummary.Book += n
		}
	}

	purchases, err := s.purchases.Aggregate(ctx, window)
	if err != nil {
		return contracts.AnalyticsSummary{}, fmt.Errorf("aggregate purchases: %w", err)
	}
	summary.Purchases.Total = purchases.Count
	summary.Purchases.Revenue = float64(purchases.RevenueSubunits) / 100
	summary.Purchases.ByType.Ebook = purchases.ByBookType[string(domain.BookTypeEbook)]
	summary.Purchases.ByType.Hardcopy = purchases.ByBookType[string(domain.BookTypeHardcopy)]

	actions, err := s.events.CountByAction(ctx, window)
	if err != nil {
		return contracts.AnalyticsSummary{}, fmt.Errorf("aggregate events: %w", err)
	}
	summary.Events.NewsletterSignups = actions["newsletter_signup"]
	summary.Events.PaymentInitiated = actions["payment_initiated"]
	summary.Events.PaymentSuccess = actions["payment_success"]
	summary.Events.PaymentCancelled = actions["payment_cancelled"]

	return summary, nil
}

func parseSummaryWindow(date string) (ports.Range, error) {
	date = strings.TrimSpace(date)
	if date == "" || date == "total" {
		return ports.Range{}, nil
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ports.Range{}, fmt.Errorf("%w: date must be YYYY-MM-DD or \"total\"", domain.ErrInvalidInput)
	}
	from := day.UTC()
	to := from.Add(24 * time.Hour)
	return ports.Range{From: &from, To: &to}, nil
}

// recordEvent writes a funnel event without letting a storage failure bubble
// into the caller's outcome.
func (s *Service) recordEvent(ctx context.Context, action, category, label string, value *float64, meta RequestMeta) {
	if s.events == nil {
		return
	}
	event := domain.AnalyticsEvent{
		EventID:   uuid.NewString(),
		Action:    action,
		Category:  category,
		Label:     label,
		Value:     value,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
		Referer:   meta.Referer,
		CreatedAt: s.nowFn(),
	}
	if err := s.events.Add(ctx, event); err != nil {
		slog.Warn("analytics event not persisted",
			"module", "analytics", "operation", "record", "action", action, "error", err)
	}
}
