package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pressroom-erp/pressroom-erp/internal/invoices"
	"github.com/pressroom-erp/pressroom-erp/internal/platform/httpx"
	"github.com/pressroom-erp/pressroom-erp/internal/rbac"
	"github.com/pressroom-erp/pressroom-erp/internal/shared"
)

// InvoiceSource loads the invoice read model rendered into documents.
type InvoiceSource interface {
	GetWithDetails(ctx context.Context, id int64) (*invoices.WithDetails, error)
}

// Handler manages document endpoints.
type Handler struct {
	client *Client
	source InvoiceSource
	logger *slog.Logger
	rbac   rbac.Middleware
}

// NewHandler creates a report handler.
func NewHandler(client *Client, source InvoiceSource, logger *slog.Logger, rbac rbac.Middleware) *Handler {
	return &Handler{client: client, source: source, logger: logger, rbac: rbac}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermInvoicesView, shared.PermInvoicesEdit))
		r.Get("/invoices/{id}/pdf", h.invoicePDF)
	})
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) invoicePDF(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid invoice id")
		return
	}
	details, err := h.source.GetWithDetails(r.Context(), id)
	if err != nil {
		if errors.Is(err, invoices.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("load invoice for pdf", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	html, err := RenderInvoiceHTML(details)
	if err != nil {
		h.logger.Error("render invoice html", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	pdf, err := h.client.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("render invoice pdf", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%s.pdf", details.Number))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
