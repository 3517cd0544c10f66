package http

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/asiedupress/storefront-service/internal/adapters/memory"
	"github.com/asiedupress/storefront-service/internal/adapters/paystack"
	"github.com/asiedupress/storefront-service/internal/adapters/security"
	"github.com/asiedupress/storefront-service/internal/application"
	"github.com/asiedupress/storefront-service/internal/contracts"
	"github.com/asiedupress/storefront-service/internal/domain"
	"github.com/asiedupress/storefront-service/internal/ports"
)

const (
	testDownloadSecret = "download-secret"
	testWebhookSecret  = "sk_test_webhook"
)

type stubGateway struct {
	charge ports.GatewayCharge
}

func (g stubGateway) VerifyTransaction(_ context.Context, reference string) (ports.GatewayCharge, error) {
	charge := g.charge
	charge.Reference = reference
	return charge, nil
}

type stubBlobs struct {
	objects map[string][]byte
}

func (stubBlobs) Name() string { return "stub" }

func (b stubBlobs) Fetch(_ context.Context, key string) ([]byte, bool, error) {
	data, ok := b.objects[key]
	return data, ok, nil
}

type fixture struct {
	server      *httptest.Server
	signer      *security.HMACLinkSigner
	purchases   *memory.PurchaseRepository
	subscribers *stubSubscribers
}

type stubSubscribers struct {
	upserts int
}

func (s *stubSubscribers) Upsert(context.Context, domain.Subscriber) error {
	s.upserts++
	return nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	signer := security.NewHMACLinkSigner(testDownloadSecret)
	purchases := memory.NewPurchaseRepository()
	subs := &stubSubscribers{}
	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			Environment:     "production",
			DownloadLinkTTL: 24 * time.Hour,
			OperatorKey:     "op-key",
		},
		Purchases: purchases,
		Downloads: memory.NewDownloadRepository(),
		Events:    memory.NewAnalyticsEventRepository(),
		Gateway: stubGateway{charge: ports.GatewayCharge{
			Succeeded: true,
			Status:    "success",
			Customer:  ports.GatewayCustomer{Email: "buyer@example.com"},
		}},
		Subscribers: subs,
		Signer:      signer,
		Blobs: stubBlobs{objects: map[string][]byte{
			"books/book.pdf": []byte("%PDF-1.4 fake"),
		}},
	})
	handler := NewHandler(svc, paystack.NewWebhookDecoder(testWebhookSecret), nil)
	server := httptest.NewServer(NewRouter(handler))
	t.Cleanup(server.Close)
	return &fixture{server: server, signer: signer, purchases: purchases, subscribers: subs}
}

func (f *fixture) downloadURL(t *testing.T, email, product string, expires time.Time) string {
	t.Helper()
	expiresMs := strconv.FormatInt(expires.UnixMilli(), 10)
	sig, err := f.signer.Sign([]string{email, product, expiresMs})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	q := url.Values{}
	q.Set("email", email)
	q.Set("product", product)
	q.Set("expires", expiresMs)
	q.Set("sig", sig)
	return f.server.URL + "/download?" + q.Encode()
}

func webhookSignature(body []byte) string {
	mac := hmac.New(sha512.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestDownloadEndpointStatuses(t *testing.T) {
	f := newFixture(t)
	valid := f.downloadURL(t, "buyer@example.com", "book", time.Now().Add(time.Hour))

	cases := []struct {
		name string
		url  string
		want int
	}{
		{"valid link", valid, http.StatusOK},
		{"missing parameters", f.server.URL + "/download?email=buyer@example.com&product=book", http.StatusBadRequest},
		{"expired link", f.downloadURL(t, "buyer@example.com", "book", time.Now().Add(-time.Minute)), http.StatusGone},
		{"forged signature", strings.Replace(valid, "sig=", "sig=0", 1), http.StatusForbidden},
		{"unknown product", f.downloadURL(t, "buyer@example.com", "other", time.Now().Add(time.Hour)), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Get(tc.url)
			if err != nil {
				t.Fatalf("GET: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestDownloadServesPDFHeaders(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.downloadURL(t, "buyer@example.com", "book", time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "The-Path-to-Purpose.pdf") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	if cc := resp.Header.Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Fatalf("Cache-Control = %q", cc)
	}
}

func TestVerifyPaymentEndpoint(t *testing.T) {
	f := newFixture(t)
	body, _ := json.Marshal(contracts.VerifyPaymentRequest{Reference: "ref_http_1"})

	resp, err := http.Post(f.server.URL+"/verify-payment", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out contracts.VerifyPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Success || out.DownloadURL == "" {
		t.Fatalf("unexpected response %+v", out)
	}
}

func TestVerifyPaymentMissingReference(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Post(f.server.URL+"/verify-payment", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"event":"charge.success","data":{"status":"success","reference":"wh_1","customer":{"email":"b@example.com"}}}`)

	for _, sig := range []string{"", "deadbeef", webhookSignature([]byte("other body"))} {
		req, _ := http.NewRequest(http.MethodPost, f.server.URL+"/webhook/paystack", bytes.NewReader(body))
		if sig != "" {
			req.Header.Set("x-paystack-signature", sig)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("sig %q: status = %d, want 401", sig, resp.StatusCode)
		}
	}
	// Nothing may be recorded from unauthenticated deliveries.
	if _, err := f.purchases.GetByReference(context.Background(), "wh_1"); err == nil {
		t.Fatal("unauthenticated webhook must not create purchases")
	}
}

func TestWebhookAcceptsValidSignature(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"event":"charge.success","data":{"status":"success","reference":"wh_2","amount":15000,"currency":"GHS","customer":{"email":"b@example.com"}}}`)

	req, _ := http.NewRequest(http.MethodPost, f.server.URL+"/webhook/paystack", bytes.NewReader(body))
	req.Header.Set("x-paystack-signature", webhookSignature(body))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var ack contracts.WebhookAck
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !ack.Received {
		t.Fatalf("unexpected ack %+v", ack)
	}
	if _, err := f.purchases.GetByReference(context.Background(), "wh_2"); err != nil {
		t.Fatalf("webhook purchase not recorded: %v", err)
	}
}

func TestWebhookUnknownEventStill200(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"event":"subscription.create","data":{}}`)

	req, _ := http.NewRequest(http.MethodPost, f.server.URL+"/webhook/paystack", bytes.NewReader(body))
	req.Header.Set("x-paystack-signature", webhookSignature(body))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticated but unknown events must still ack, status = %d", resp.StatusCode)
	}
}

func TestSubscribeEndpoint(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Post(f.server.URL+"/subscribe", "application/json",
		strings.NewReader(`{"email":"ama@example.com","name":"Ama"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if f.subscribers.upserts != 1 {
		t.Fatalf("expected one upsert, got %d", f.subscribers.upserts)
	}

	resp, err = http.Post(f.server.URL+"/subscribe", "application/json",
		strings.NewReader(`{"email":"not-an-email","name":"Ama"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if f.subscribers.upserts != 1 {
		t.Fatal("invalid input must not reach the provider")
	}
}

func TestAnalyticsEndpoints(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Post(f.server.URL+"/analytics", "application/json",
		strings.NewReader(`{"action":"page_view","category":"engagement","label":"/"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("track status = %d", resp.StatusCode)
	}

	resp, err = http.Get(f.server.URL + "/analytics")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("summary without key must be 401, got %d", resp.StatusCode)
	}

	resp, err = http.Get(f.server.URL + "/analytics?key=op-key")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary status = %d", resp.StatusCode)
	}
	var out contracts.AnalyticsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Data.PageViews.Total != 1 {
		t.Fatalf("unexpected summary %+v", out.Data.PageViews)
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
