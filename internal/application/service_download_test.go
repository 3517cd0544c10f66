package application

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/asiedupress/storefront-service/internal/adapters/memory"
	"github.com/asiedupress/storefront-service/internal/domain"
	"github.com/asiedupress/storefront-service/internal/ports"
)

func signedQuery(env *testEnv, email, product string, expiresMs int64) DownloadQuery {
	expires := strconv.FormatInt(expiresMs, 10)
	sig, _ := fakeSigner{}.Sign([]string{email, product, expires})
	return DownloadQuery{Email: email, Product: product, Expires: expires, Signature: sig}
}

func TestAuthorizeDownloadServesFile(t *testing.T) {
	env := newTestEnv(nil)
	q := signedQuery(env, "buyer@example.com", "book", env.now.Add(time.Hour).UnixMilli())

	file, err := env.svc.AuthorizeDownload(context.Background(), q, RequestMeta{IPAddress: "203.0.113.9"})
	if err != nil {
		t.Fatalf("AuthorizeDownload: %v", err)
	}
	if string(file.Data) != "book pdf" {
		t.Fatalf("unexpected payload %q", file.Data)
	}
	if file.DisplayName != "The-Path-to-Purpose.pdf" {
		t.Fatalf("unexpected display name %q", file.DisplayName)
	}
	counts, _ := env.downloads.CountByProduct(context.Background(), ports.Range{})
	if counts["book"] != 1 {
		t.Fatalf("expected one recorded download, got %v", counts)
	}
}

func TestAuthorizeDownloadMissingParameters(t *testing.T) {
	env := newTestEnv(nil)
	q := signedQuery(env, "buyer@example.com", "book", env.now.Add(time.Hour).UnixMilli())
	q.Signature = ""

	_, err := env.svc.AuthorizeDownload(context.Background(), q, RequestMeta{})
	if !errors.Is(err, domain.ErrMissingParameters) {
		t.Fatalf("expected ErrMissingParameters, got %v", err)
	}
}

func TestAuthorizeDownloadMalformedExpiry(t *testing.T) {
	env := newTestEnv(nil)
	q := signedQuery(env, "buyer@example.com", "book", env.now.Add(time.Hour).UnixMilli())
	q.Expires = "not-a-number"

	_, err := env.svc.AuthorizeDownload(context.Background(), q, RequestMeta{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("malformed expiry must be invalid input, got %v", err)
	}
	if errors.Is(err, domain.ErrLinkExpired) {
		t.Fatal("malformed expiry must not read as expired")
	}
}

func TestAuthorizeDownloadExpiryBoundary(t *testing.T) {
	env := newTestEnv(nil)
	nowMs := env.now.UnixMilli()

	// Expiring exactly now is still valid.
	if _, err := env.svc.AuthorizeDownload(context.Background(), signedQuery(env, "b@example.com", "book", nowMs), RequestMeta{}); err != nil {
		t.Fatalf("expiry equal to now must pass: %v", err)
	}
	// One millisecond past is expired, even with a valid signature.
	_, err := env.svc.AuthorizeDownload(context.Background(), signedQuery(env, "b@example.com", "book", nowMs-1), RequestMeta{})
	if !errors.Is(err, domain.ErrLinkExpired) {
		t.Fatalf("expected ErrLinkExpired, got %v", err)
	}
	if errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatal("expired valid links must report expiry, not signature failure")
	}
}

func TestAuthorizeDownloadBadSignature(t *testing.T) {
	env := newTestEnv(nil)
	q := signedQuery(env, "buyer@example.com", "book", env.now.Add(time.Hour).UnixMilli())
	q.Signature = "forged"

	_, err := env.svc.AuthorizeDownload(context.Background(), q, RequestMeta{})
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if env.blobs.fetches != 0 {
		t.Fatal("no file source may be consulted for a forged link")
	}
}

func TestAuthorizeDownloadUnknownProduct(t *testing.T) {
	env := newTestEnv(nil)
	q := signedQuery(env, "buyer@example.com", "other-book", env.now.Add(time.Hour).UnixMilli())

	_, err := env.svc.AuthorizeDownload(context.Background(), q, RequestMeta{})
	if !errors.Is(err, domain.ErrUnknownProduct) {
		t.Fatalf("expected ErrUnknownProduct, got %v", err)
	}
	if env.blobs.fetches != 0 {
		t.Fatal("unknown products must be rejected before file resolution")
	}
}

func TestAuthorizeDownloadFileMissingEverywhere(t *testing.T) {
	env := newTestEnv(nil)
	delete(env.blobs.objects, "books/book.pdf")
	q := signedQuery(env, "buyer@example.com", "book", env.now.Add(time.Hour).UnixMilli())

	_, err := env.svc.AuthorizeDownload(context.Background(), q, RequestMeta{})
	if !errors.Is(err, domain.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	counts, _ := env.downloads.CountByProduct(context.Background(), ports.Range{})
	if counts["book"] != 0 {
		t.Fatal("failed deliveries must not be recorded")
	}
}

func TestResearchDownload(t *testing.T) {
	env := newTestEnv(nil)

	file, err := env.svc.ResearchDownload(context.Background(), "ai-job-security", RequestMeta{})
	if err != nil {
		t.Fatalf("ResearchDownload: %v", err)
	}
	if string(file.Data) != "paper pdf" {
		t.Fatalf("unexpected payload %q", file.Data)
	}
	counts, _ := env.downloads.CountByProduct(context.Background(), ports.Range{})
	if counts["research:ai-job-security"] != 1 {
		t.Fatalf("expected one recorded research download, got %v", counts)
	}
}

// TestExpiryUsesCurrentTime builds the service without replacing its clock:
// a short-TTL link must be honored immediately and rejected once wall time
// passes its expiry, which requires the clock to advance after construction.
func TestExpiryUsesCurrentTime(t *testing.T) {
	svc := NewService(Dependencies{
		Config:    Config{Environment: "production", DownloadLinkTTL: 50 * time.Millisecond},
		Purchases: memory.NewPurchaseRepository(),
		Downloads: memory.NewDownloadRepository(),
		Events:    memory.NewAnalyticsEventRepository(),
		Signer:    fakeSigner{},
		Blobs:     &fakeBlobs{objects: map[string][]byte{"books/book.pdf": []byte("book pdf")}},
	})

	before := svc.nowFn()
	time.Sleep(5 * time.Millisecond)
	if after := svc.nowFn(); !after.After(before) {
		t.Fatalf("clock did not advance: %v then %v", before, after)
	}

	link, err := svc.issueDownloadURL("buyer@example.com", "book")
	if err != nil {
		t.Fatalf("issueDownloadURL: %v", err)
	}
	values, err := url.ParseQuery(strings.TrimPrefix(link, "/download?"))
	if err != nil {
		t.Fatalf("parse link %q: %v", link, err)
	}
	q := DownloadQuery{
		Email:     values.Get("email"),
		Product:   values.Get("product"),
		Expires:   values.Get("expires"),
		Signature: values.Get("sig"),
	}

	if _, err := svc.AuthorizeDownload(context.Background(), q, RequestMeta{}); err != nil {
		t.Fatalf("fresh link must be honored: %v", err)
	}

	time.Sleep(120 * time.Millisecond)
	if _, err := svc.AuthorizeDownload(context.Background(), q, RequestMeta{}); !errors.Is(err, domain.ErrLinkExpired) {
		t.Fatalf("link past its ttl must expire, got %v", err)
	}
}

func TestResearchDownloadUnknownPaper(t *testing.T) {
	env := newTestEnv(nil)
	_, err := env.svc.ResearchDownload(context.Background(), "nonexistent", RequestMeta{})
	if !errors.Is(err, domain.ErrUnknownProduct) {
		t.Fatalf("expected ErrUnknownProduct, got %v", err)
	}
}
