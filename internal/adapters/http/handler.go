package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/asiedupress/storefront-service/internal/application"
	"github.com/asiedupress/storefront-service/internal/contracts"
	"github.com/asiedupress/storefront-service/internal/ports"
)

// maxWebhookBody caps how much of a webhook delivery is read before
// signature verification.
const maxWebhookBody = 1 << 20

type Handler struct {
	service *application.Service
	decoder ports.WebhookDecoder
	ready   func(ctx context.Context) error
}

// NewHandler wires the HTTP surface. decoder may be nil when no gateway
// secret is configured; the webhook endpoint then rejects everything.
// ready is the readiness probe, typically a database ping.
func NewHandler(service *application.Service, decoder ports.WebhookDecoder, ready func(ctx context.Context) error) *Handler {
	return &Handler{service: service, decoder: decoder, ready: ready}
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "reason": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req contracts.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, contracts.VerifyPaymentResponse{Success: false, Message: "invalid json body"})
		return
	}
	result, err := h.service.VerifyPayment(r.Context(), application.CheckoutInput{
		Reference:       req.Reference,
		Email:           req.Email,
		Name:            req.Name,
		Phone:           req.Phone,
		BookType:        req.BookType,
		DeliveryAddress: req.DeliveryAddress,
		IncludeBundle:   req.IncludeBundle,
	}, requestMeta(r))
	if err != nil {
		writeJSON(w, mapDomainError(err), contracts.VerifyPaymentResponse{Success: false, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, contracts.VerifyPaymentResponse{
		Success:        true,
		Message:        result.Message,
		DownloadURL:    result.DownloadURL,
		EmailDelivered: result.EmailDelivered,
	})
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	file, err := h.service.AuthorizeDownload(r.Context(), application.DownloadQuery{
		Email:     q.Get("email"),
		Product:   q.Get("product"),
		Expires:   q.Get("expires"),
		Signature: q.Get("sig"),
	}, requestMeta(r))
	if err != nil {
		writeError(w, mapDomainError(err), err.Error())
		return
	}
	writeFile(w, file)
}

func (h *Handler) downloadResearch(w http.ResponseWriter, r *http.Request) {
	file, err := h.service.ResearchDownload(r.Context(), r.URL.Query().Get("id"), requestMeta(r))
	if err != nil {
		writeError(w, mapDomainError(err), err.Error())
		return
	}
	writeFile(w, file)
}

// writeFile streams a resolved PDF with headers that keep shared caches and
// browsers from retaining the payload.
func writeFile(w http.ResponseWriter, file application.FileContent) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.DisplayName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

// gatewayWebhook authenticates before parsing: the signature covers the raw
// body, and a bad signature is the only non-200 outcome. Processing errors
// after acceptance are logged but still acknowledged so the gateway does not
// redeliver events we cannot handle.
func (h *Handler) gatewayWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, contracts.WebhookAck{Received: false, Error: "unreadable body"})
		return
	}
	if h.decoder == nil {
		writeJSON(w, http.StatusInternalServerError, contracts.WebhookAck{Received: false, Error: "webhook secret not configured"})
		return
	}
	signature := r.Header.Get("x-paystack-signature")
	if !h.decoder.Verify(body, signature) {
		writeJSON(w, http.StatusUnauthorized, contracts.WebhookAck{Received: false, Error: "invalid signature"})
		return
	}

	ack := contracts.WebhookAck{Received: true}
	event, err := h.decoder.Decode(body)
	if err != nil {
		slog.Warn("webhook body undecodable",
			"module", "http", "operation", "gateway_webhook", "error", err,
			"request_id", requestIDFromContext(r.Context()))
		ack.Error = "undecodable body"
		writeJSON(w, http.StatusOK, ack)
		return
	}
	if err := h.service.ProcessGatewayEvent(r.Context(), event); err != nil {
		slog.Error("webhook processing failed",
			"module", "http", "operation", "gateway_webhook", "type", event.Type, "error", err,
			"request_id", requestIDFromContext(r.Context()))
		ack.Error = "processing failed"
	}
	writeJSON(w, http.StatusOK, ack)
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	var req contracts.SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, contracts.SimpleResponse{Success: false, Message: "invalid json body"})
		return
	}
	if err := h.service.Subscribe(r.Context(), req.Email, req.Name, req.Phone, requestMeta(r)); err != nil {
		writeJSON(w, mapDomainError(err), contracts.SimpleResponse{Success: false, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, contracts.SimpleResponse{Success: true, Message: "Successfully subscribed"})
}

func (h *Handler) trackEvent(w http.ResponseWriter, r *http.Request) {
	var req contracts.TrackEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, contracts.SimpleResponse{Success: false, Message: "invalid json body"})
		return
	}
	err := h.service.TrackEvent(r.Context(), application.TrackEventInput{
		Action:   req.Action,
		Category: req.Category,
		Label:    req.Label,
		Value:    req.Value,
		Metadata: req.Metadata,
	}, requestMeta(r))
	if err != nil {
		writeJSON(w, mapDomainError(err), contracts.SimpleResponse{Success: false, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, contracts.SimpleResponse{Success: true})
}

func (h *Handler) analyticsSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := q.Get("key")
	if key == "" {
		key = r.Header.Get("X-Analytics-Key")
	}
	summary, err := h.service.Summary(r.Context(), key, q.Get("date"))
	if err != nil {
		writeJSON(w, mapDomainError(err), contracts.SimpleResponse{Success: false, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, contracts.AnalyticsResponse{Success: true, Data: summary})
}

func requestMeta(r *http.Request) application.RequestMeta {
	return application.RequestMeta{
		IPAddress: readIP(r),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
	}
}
