package application

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/asiedupress/storefront-service/internal/domain"
)

// AuthorizeDownload validates a signed download link and resolves the file.
// Checks run in a fixed order so each failure maps to a distinct status:
// missing fields, malformed expiry, expiry, signature, catalog membership.
// The expiry check runs before the signature check on purpose; an expired
// link leaks nothing even when forged.
func (s *Service) AuthorizeDownload(ctx context.Context, q DownloadQuery, meta RequestMeta) (FileContent, error) {
	if q.Email == "" || q.Product == "" || q.Expires == "" || q.Signature == "" {
		return FileContent{}, domain.ErrMissingParameters
	}
	expiresMs, err := strconv.ParseInt(q.Expires, 10, 64)
	if err != nil {
		return FileContent{}, fmt.Errorf("%w: malformed expiry", domain.ErrInvalidInput)
	}
	if s.nowFn().UnixMilli() > expiresMs {
		return FileContent{}, domain.ErrLinkExpired
	}
	if !s.signer.Verify([]string{q.Email, q.Product, q.Expires}, q.Signature) {
		return FileContent{}, domain.ErrInvalidSignature
	}
	product, ok := s.catalog.Product(q.Product)
	if !ok {
		return FileContent{}, fmt.Errorf("%w: %q", domain.ErrUnknownProduct, q.Product)
	}

	data, err := s.resolveFile(ctx, product)
	if err != nil {
		return FileContent{}, err
	}
	s.recordDownload(ctx, q.Email, product.Key, meta)
	return FileContent{Data: data, DisplayName: product.DisplayName}, nil
}

// ResearchDownload serves a freely available research paper. No signature is
// required; only catalog membership gates access. Downloads are recorded
// under "research:<id>" so the aggregates can split them from book sales.
func (s *Service) ResearchDownload(ctx context.Context, paperID string, meta RequestMeta) (FileContent, error) {
	if paperID == "" {
		return FileContent{}, fmt.Errorf("%w: paper id is required", domain.ErrMissingParameters)
	}
	paper, ok := s.catalog.ResearchPaper(paperID)
	if !ok {
		return FileContent{}, fmt.Errorf("%w: unknown paper %q", domain.ErrUnknownProduct, paperID)
	}
	data, err := s.resolveFile(ctx, paper)
	if err != nil {
		return FileContent{}, err
	}
	s.recordDownload(ctx, "anonymous", "research:"+paper.Key, meta)
	return FileContent{Data: data, DisplayName: paper.DisplayName}, nil
}

// resolveFile asks the configured blob chain for the product's object key.
// A miss across every source is a 404; source errors are already folded into
// misses by the chain.
func (s *Service) resolveFile(ctx context.Context, product domain.Product) ([]byte, error) {
	if s.blobs == nil {
		return nil, fmt.Errorf("%w: no file sources configured", domain.ErrNotConfigured)
	}
	data, found, err := s.blobs.Fetch(ctx, product.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", product.ObjectKey, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", domain.ErrFileNotFound, product.ObjectKey)
	}
	return data, nil
}

// recordDownload writes the audit row. The file is already resolved at this
// point, so a failed insert only loses a statistic, never a delivery.
func (s *Service) recordDownload(ctx context.Context, email, product string, meta RequestMeta) {
	if s.downloads == nil {
		return
	}
	record := domain.DownloadRecord{
		DownloadID: uuid.NewString(),
		Email:      email,
		Product:    product,
		UserAgent:  meta.UserAgent,
		IPAddress:  meta.IPAddress,
		Referer:    meta.Referer,
		CreatedAt:  s.nowFn(),
	}
	if err := s.downloads.Add(ctx, record); err != nil {
		slog.Warn("download record not persisted",
			"module", "download", "operation", "record", "product", product, "error", err)
	}
}
