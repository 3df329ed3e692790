package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"orderflow/internal/httpx/middlewares"
)

// NewRouter assembles the chi router for the order API.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachRequestMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/orders", handler.StartOrder)
	r.Get("/orders/{id}", handler.GetOrder)
	r.Get("/orders/{id}/log", handler.GetOrderLog)
	r.Post("/orders/{id}/signals", handler.SignalOrder)
	r.Get("/inventory", handler.GetInventory)
	return r
}
