package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/asiedupress/storefront-service/internal/domain"
	"github.com/asiedupress/storefront-service/internal/ports"
)

// ProcessGatewayEvent handles one authenticated webhook delivery. It is the
// asynchronous backstop for the synchronous checkout path: whichever inserts
// the reference first owns the purchase row, and the loser stays silent.
// Unknown event types are acknowledged and ignored so new gateway events
// never cause redelivery storms.
func (s *Service) ProcessGatewayEvent(ctx context.Context, event ports.GatewayEvent) error {
	switch {
	case event.Type == "charge.success":
		return s.handleChargeSuccess(ctx, event.Charge)
	case event.Type == "charge.failed":
		s.recordEvent(ctx, "payment_failed", "payment", event.Charge.Reference, nil, RequestMeta{})
		return nil
	case strings.HasPrefix(event.Type, "refund."):
		return s.handleRefund(ctx, event)
	default:
		slog.Info("ignoring gateway event",
			"module", "webhook", "operation", "process_event", "type", event.Type)
		return nil
	}
}

func (s *Service) handleChargeSuccess(ctx context.Context, charge ports.GatewayCharge) error {
	if !charge.Succeeded {
		slog.Warn("charge.success event with non-success status",
			"module", "webhook", "operation", "charge_success", "reference", charge.Reference, "status", charge.Status)
		return nil
	}
	purchase := s.purchaseFromCharge(charge, CheckoutInput{}, domain.PurchaseSourceWebhook)
	if purchase.Email == "" {
		return fmt.Errorf("%w: charge %s has no customer email", domain.ErrInvalidInput, charge.Reference)
	}
	if err := s.purchases.Create(ctx, purchase); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// The checkout path got here first; it already notified the buyer.
			slog.Info("purchase already recorded by checkout",
				"module", "webhook", "operation", "charge_success", "reference", purchase.Reference)
			return nil
		}
		return fmt.Errorf("record webhook purchase: %w", err)
	}

	s.recordEvent(ctx, "payment_success", "payment", purchase.Product, amountValue(purchase.AmountSubunits), RequestMeta{})

	if !s.cfg.WebhookNotifications {
		return nil
	}
	var link string
	if purchase.NeedsDigitalDelivery() {
		var err error
		link, err = s.issueDownloadURL(purchase.Email, purchase.Product)
		if err != nil {
			return err
		}
	}
	s.sendPurchaseNotifications(ctx, purchase, link)
	return nil
}

func (s *Service) handleRefund(ctx context.Context, event ports.GatewayEvent) error {
	ref := event.Charge.Reference
	if ref == "" {
		return fmt.Errorf("%w: refund event without reference", domain.ErrInvalidInput)
	}
	err := s.purchases.UpdateStatusByReference(ctx, ref, domain.PurchaseStatusRefunded, s.nowFn())
	if errors.Is(err, domain.ErrNotFound) {
		slog.Warn("refund for unknown purchase",
			"module", "webhook", "operation", "refund", "reference", ref, "type", event.Type)
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark refund: %w", err)
	}
	s.recordEvent(ctx, "payment_refunded", "payment", ref, nil, RequestMeta{})
	return nil
}
