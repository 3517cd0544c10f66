package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Post("/verify-payment", handler.verifyPayment)
	r.Get("/download", handler.download)
	r.Get("/download-research", handler.downloadResearch)
	r.Post("/webhook/paystack", handler.gatewayWebhook)
	r.Post("/subscribe", handler.subscribe)
	r.Post("/analytics", handler.trackEvent)
	r.Get("/analytics", handler.analyticsSummary)
	return r
}
