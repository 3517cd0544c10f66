package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/asiedupress/storefront-service/internal/adapters/memory"
	"github.com/asiedupress/storefront-service/internal/ports"
)

// fakeSigner produces predictable signatures so tests can mint valid and
// invalid links without real key material.
type fakeSigner struct{}

func (fakeSigner) Sign(fields []string) (string, error) {
	return "sig-" + strings.Join(fields, "|"), nil
}

func (fakeSigner) Verify(fields []string, candidate string) bool {
	expected, _ := fakeSigner{}.Sign(fields)
	return candidate == expected
}

type fakeGateway struct {
	charge ports.GatewayCharge
	err    error
	calls  int
}

func (g *fakeGateway) VerifyTransaction(_ context.Context, reference string) (ports.GatewayCharge, error) {
	g.calls++
	if g.err != nil {
		return ports.GatewayCharge{}, g.err
	}
	charge := g.charge
	if charge.Reference == "" {
		charge.Reference = reference
	}
	return charge, nil
}

type fakeMailer struct {
	sent []ports.OutboundEmail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, email ports.OutboundEmail) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

type fakeBlobs struct {
	objects map[string][]byte
	fetches int
}

func (b *fakeBlobs) Name() string { return "fake" }

func (b *fakeBlobs) Fetch(_ context.Context, key string) ([]byte, bool, error) {
	b.fetches++
	data, ok := b.objects[key]
	return data, ok, nil
}

type fakeLimiter struct {
	allowed bool
	err     error
}

func (l *fakeLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return l.allowed, l.err
}

var errProvider = errors.New("provider unavailable")

type testEnv struct {
	svc       *Service
	purchases *memory.PurchaseRepository
	downloads *memory.DownloadRepository
	events    *memory.AnalyticsEventRepository
	gateway   *fakeGateway
	mailer    *fakeMailer
	blobs     *fakeBlobs
	now       time.Time
}

func newTestEnv(mutate func(*Dependencies)) *testEnv {
	env := &testEnv{
		purchases: memory.NewPurchaseRepository(),
		downloads: memory.NewDownloadRepository(),
		events:    memory.NewAnalyticsEventRepository(),
		gateway:   &fakeGateway{charge: ports.GatewayCharge{Succeeded: true, Status: "success"}},
		mailer:    &fakeMailer{},
		blobs: &fakeBlobs{objects: map[string][]byte{
			"books/book.pdf":   []byte("book pdf"),
			"books/bundle.pdf": []byte("bundle pdf"),
			"books/ai-job-security-human-condition.pdf": []byte("paper pdf"),
		}},
		now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	deps := Dependencies{
		Config: Config{
			Environment:     "production",
			DownloadLinkTTL: 24 * time.Hour,
			AdminEmails:     []string{"admin@asiedupress.com"},
		},
		Purchases: env.purchases,
		Downloads: env.downloads,
		Events:    env.events,
		Gateway:   env.gateway,
		Mailer:    env.mailer,
		Signer:    fakeSigner{},
		Blobs:     env.blobs,
	}
	if mutate != nil {
		mutate(&deps)
	}
	env.svc = NewService(deps)
	env.svc.nowFn = func() time.Time { return env.now }
	return env
}
