package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/asiedupress/storefront-service/internal/domain"
	"github.com/asiedupress/storefront-service/internal/ports"
)

// VerifyPayment confirms a charge directly with the gateway and, on success,
// records the purchase and issues a signed download link for digital orders.
// The client-supplied fields are treated as hints only; the gateway's answer
// is authoritative for amount, status and buyer identity.
func (s *Service) VerifyPayment(ctx context.Context, in CheckoutInput, meta RequestMeta) (CheckoutResult, error) {
	if strings.TrimSpace(in.Reference) == "" {
		return CheckoutResult{}, fmt.Errorf("%w: reference is required", domain.ErrInvalidInput)
	}

	if s.limiter != nil && meta.IPAddress != "" {
		allowed, err := s.limiter.Allow(ctx, "checkout:"+meta.IPAddress, s.cfg.CheckoutRateLimit, s.cfg.RateLimitWindow)
		if err != nil {
			slog.Warn("rate limiter unavailable, allowing request",
				"module", "checkout", "operation", "verify_payment", "error", err)
		} else if !allowed {
			return CheckoutResult{}, domain.ErrRateLimited
		}
	}

	charge, err := s.lookupCharge(ctx, in)
	if err != nil {
		return CheckoutResult{}, err
	}
	if !charge.Succeeded {
		s.recordEvent(ctx, "payment_failed", "payment", in.Reference, nil, meta)
		return CheckoutResult{}, fmt.Errorf("%w: gateway status %q", domain.ErrPaymentDeclined, charge.Status)
	}

	purchase := s.purchaseFromCharge(charge, in, domain.PurchaseSourceCheckout)
	if purchase.Email == "" {
		return CheckoutResult{}, fmt.Errorf("%w: no buyer email on transaction", domain.ErrInvalidInput)
	}

	duplicate := false
	if err := s.purchases.Create(ctx, purchase); err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			return CheckoutResult{}, fmt.Errorf("record purchase: %w", err)
		}
		// The webhook (or an earlier client retry) already recorded this
		// reference. Re-issue the link but send nothing twice.
		duplicate = true
		slog.Info("purchase already recorded",
			"module", "checkout", "operation", "verify_payment", "reference", purchase.Reference)
	}

	result := CheckoutResult{
		Message:   "Payment verified",
		Duplicate: duplicate,
	}
	if s.gateway == nil {
		result.Message = "Payment verified (simulated)"
	}
	if purchase.NeedsDigitalDelivery() {
		link, err := s.issueDownloadURL(purchase.Email, purchase.Product)
		if err != nil {
			return CheckoutResult{}, err
		}
		result.DownloadURL = link
	}

	if !duplicate {
		s.recordEvent(ctx, "payment_success", "payment", purchase.Product, amountValue(purchase.AmountSubunits), meta)
		delivered := s.sendPurchaseNotifications(ctx, purchase, result.DownloadURL)
		result.EmailDelivered = delivered
	}
	return result, nil
}

func (s *Service) lookupCharge(ctx context.Context, in CheckoutInput) (ports.GatewayCharge, error) {
	if s.gateway == nil {
		if s.cfg.Environment != "development" {
			return ports.GatewayCharge{}, fmt.Errorf("%w: payment gateway credentials missing", domain.ErrNotConfigured)
		}
		// Local development has no gateway account; approve the charge as-is
		// so the checkout flow can be exercised end to end.
		slog.Warn("no payment gateway configured, auto-approving transaction",
			"module", "checkout", "operation", "verify_payment", "reference", in.Reference)
		return ports.GatewayCharge{
			Reference: in.Reference,
			Succeeded: true,
			Status:    "success",
			Customer:  ports.GatewayCustomer{Email: in.Email},
		}, nil
	}
	charge, err := s.gateway.VerifyTransaction(ctx, in.Reference)
	if err != nil {
		return ports.GatewayCharge{}, fmt.Errorf("%w: %v", domain.ErrPaymentDeclined, err)
	}
	return charge, nil
}

// purchaseFromCharge merges the gateway's charge with the client's hints.
// Gateway-supplied values always win over the client's.
func (s *Service) purchaseFromCharge(charge ports.GatewayCharge, in CheckoutInput, source string) domain.Purchase {
	email := charge.Customer.Email
	if email == "" {
		email = strings.TrimSpace(in.Email)
	}
	name := charge.Fields.Name
	if name == "" {
		name = strings.TrimSpace(charge.Customer.FirstName + " " + charge.Customer.LastName)
	}
	if name == "" {
		name = in.Name
	}
	phone := charge.Fields.Phone
	if phone == "" {
		phone = in.Phone
	}
	bookType := charge.Fields.BookType
	if bookType == "" {
		bookType = in.BookType
	}
	bt := domain.BookTypeEbook
	if domain.BookType(bookType) == domain.BookTypeHardcopy {
		bt = domain.BookTypeHardcopy
	}
	address := charge.Fields.DeliveryAddress
	if address == "" {
		address = in.DeliveryAddress
	}
	bundle := charge.Fields.IncludeBundle || in.IncludeBundle

	product := "book"
	if bundle {
		product = "bundle"
	}
	now := s.nowFn()
	return domain.Purchase{
		PurchaseID:      uuid.NewString(),
		Reference:       charge.Reference,
		Email:           strings.ToLower(email),
		Name:            name,
		Phone:           phone,
		BookType:        bt,
		Product:         product,
		Bundle:          bundle,
		AmountSubunits:  charge.AmountSubunits,
		Currency:        charge.Currency,
		DeliveryAddress: address,
		Status:          domain.PurchaseStatusPaid,
		Source:          source,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// issueDownloadURL mints a relative link valid for the configured TTL. The
// expiry is embedded as unix milliseconds and covered by the signature.
func (s *Service) issueDownloadURL(email, product string) (string, error) {
	expires := strconv.FormatInt(s.nowFn().Add(s.cfg.DownloadLinkTTL).UnixMilli(), 10)
	sig, err := s.signer.Sign([]string{email, product, expires})
	if err != nil {
		return "", fmt.Errorf("sign download link: %w", err)
	}
	q := url.Values{}
	q.Set("email", email)
	q.Set("product", product)
	q.Set("expires", expires)
	q.Set("sig", sig)
	return "/download?" + q.Encode(), nil
}

// sendPurchaseNotifications emails the buyer and the admin list. Failures are
// logged and reported in the response flag but never fail the checkout.
func (s *Service) sendPurchaseNotifications(ctx context.Context, purchase domain.Purchase, downloadURL string) *bool {
	if s.mailer == nil {
		return nil
	}
	delivered := true
	buyer := buildBuyerEmail(purchase, downloadURL, s.cfg.SenderName)
	if err := s.mailer.Send(ctx, buyer); err != nil {
		delivered = false
		slog.Warn("buyer confirmation email failed",
			"module", "checkout", "operation", "notify", "reference", purchase.Reference, "error", err)
	}
	if len(s.cfg.AdminEmails) > 0 {
		admin := buildAdminEmail(purchase, s.cfg.AdminEmails)
		if err := s.mailer.Send(ctx, admin); err != nil {
			slog.Warn("admin notification email failed",
				"module", "checkout", "operation", "notify", "reference", purchase.Reference, "error", err)
		}
	}
	return &delivered
}

func buildBuyerEmail(p domain.Purchase, downloadURL, senderName string) ports.OutboundEmail {
	subject := "Your order is confirmed"
	var body strings.Builder
	body.WriteString("<p>Hi " + htmlEscape(firstNameOf(p.Name)) + ",</p>")
	body.WriteString("<p>Thank you for your purchase!</p>")
	if downloadURL != "" {
		body.WriteString("<p>Your download is ready. The link below is valid for 24 hours:</p>")
		body.WriteString(`<p><a href="` + htmlEscape(downloadURL) + `">Download your book</a></p>`)
	}
	if p.BookType == domain.BookTypeHardcopy {
		body.WriteString("<p>Your hardcopy will be shipped to the address you provided. We will be in touch with delivery details.</p>")
	}
	if senderName != "" {
		body.WriteString("<p>— " + htmlEscape(senderName) + "</p>")
	}
	return ports.OutboundEmail{
		To:      []string{p.Email},
		Subject: subject,
		HTML:    body.String(),
	}
}

func buildAdminEmail(p domain.Purchase, admins []string) ports.OutboundEmail {
	var body strings.Builder
	body.WriteString("<p>New purchase recorded.</p><ul>")
	body.WriteString("<li>Reference: " + htmlEscape(p.Reference) + "</li>")
	body.WriteString("<li>Email: " + htmlEscape(p.Email) + "</li>")
	body.WriteString("<li>Product: " + htmlEscape(p.Product) + " (" + string(p.BookType) + ")</li>")
	body.WriteString(fmt.Sprintf("<li>Amount: %.2f %s</li>", float64(p.AmountSubunits)/100, p.Currency))
	if p.DeliveryAddress != "" {
		body.WriteString("<li>Delivery: " + htmlEscape(p.DeliveryAddress) + "</li>")
	}
	body.WriteString("</ul>")
	to := []string{admins[0]}
	var bcc []string
	if len(admins) > 1 {
		bcc = admins[1:]
	}
	return ports.OutboundEmail{
		To:      to,
		Bcc:     bcc,
		Subject: "New order: " + p.Product + " (" + p.Reference + ")",
		HTML:    body.String(),
	}
}

func firstNameOf(full string) string {
	full = strings.TrimSpace(full)
	if full == "" {
		return "there"
	}
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i]
	}
	return full
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}

func amountValue(subunits int64) *float64 {
	if subunits == 0 {
		return nil
	}
	v := float64(subunits) / 100
	return &v
}
