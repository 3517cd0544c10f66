package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/asiedupress/storefront-service/internal/domain"
)

// Subscribe upserts the contact into the newsletter provider. The provider
// deduplicates by email, so re-subscribing an existing address is a refresh,
// not an error.
func (s *Service) Subscribe(ctx context.Context, email, name, phone string, meta RequestMeta) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := domain.ValidateSubscriber(email, name); err != nil {
		return err
	}
	if s.subscribers == nil {
		return fmt.Errorf("%w: newsletter provider credentials missing", domain.ErrNotConfigured)
	}
	if err := s.subscribers.Upsert(ctx, domain.Subscriber{Email: email, Name: name, Phone: phone}); err != nil {
		return fmt.Errorf("subscribe %s: %w", email, err)
	}
	s.recordEvent(ctx, "newsletter_signup", "newsletter", email, nil, meta)
	slog.Info("subscriber upserted",
		"module", "newsletter", "operation", "subscribe", "outcome", "success")
	return nil
}
