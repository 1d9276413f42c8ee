package production

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pressroom-erp/pressroom-erp/internal/platform/httpx"
	"github.com/pressroom-erp/pressroom-erp/internal/rbac"
	"github.com/pressroom-erp/pressroom-erp/internal/shared"
)

// PermissionChecker answers single-permission questions for the gate.
type PermissionChecker interface {
	Can(ctx context.Context, userID int64, perm string) (bool, error)
}

// Handler manages production endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
	perms    PermissionChecker
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate, rbac rbac.Middleware, perms PermissionChecker) *Handler {
	return &Handler{logger: logger, service: service, validate: validate, rbac: rbac, perms: perms}
}

// MountRoutes registers production routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermProductionView, shared.PermProductionCreate, shared.PermProductionManage))
		r.Get("/jobs", h.list)
		r.Get("/jobs/{id}", h.get)
		r.Get("/eligibility/{invoiceID}", h.eligibility)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermProductionCreate))
		r.Post("/jobs", h.create)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermProductionManage))
		r.Post("/jobs/{id}/status", h.updateStatus)
		r.Post("/jobs/{id}/progress", h.updateProgress)
		r.Post("/jobs/{id}/assign", h.assign)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req := ListRequest{
		Status:   Status(r.URL.Query().Get("status")),
		Priority: Priority(r.URL.Query().Get("priority")),
	}
	if v := r.URL.Query().Get("assigned_to"); v != "" {
		req.AssignedTo, _ = strconv.ParseInt(v, 10, 64)
	}
	req.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	req.PerPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))

	jobs, pagination, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list print jobs", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"jobs":       jobs,
		"pagination": pagination,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	job, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

func (h *Handler) eligibility(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := h.parseID(w, r, "invoiceID")
	if !ok {
		return
	}
	canCreate, err := h.actorCanCreate(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	result, err := h.service.Eligibility(r.Context(), invoiceID, canCreate)
	if err != nil {
		h.logger.Error("production eligibility", slog.Any("error", err), slog.Int64("invoice_id", invoiceID))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	canCreate, err := h.actorCanCreate(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	input.CreatedBy = shared.ActorID(r.Context())
	input.ActorCanCreate = canCreate

	job, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("create print job", slog.Any("error", err), slog.Int64("invoice_id", input.InvoiceID))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, job)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Status Status `json:"status"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	job, err := h.service.UpdateStatus(r.Context(), UpdateStatusInput{
		JobID:   id,
		Status:  body.Status,
		ActorID: shared.ActorID(r.Context()),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

func (h *Handler) updateProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Progress int `json:"progress_percentage"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	job, err := h.service.UpdateProgress(r.Context(), UpdateProgressInput{
		JobID:    id,
		Progress: body.Progress,
		ActorID:  shared.ActorID(r.Context()),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		AssignedTo *int64 `json:"assigned_to"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	job, err := h.service.Assign(r.Context(), AssignInput{
		JobID:      id,
		AssignedTo: body.AssignedTo,
		ActorID:    shared.ActorID(r.Context()),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

func (h *Handler) actorCanCreate(r *http.Request) (bool, error) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		return false, nil
	}
	return h.perms.Can(r.Context(), actor.ID, shared.PermProductionCreate)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvoiceNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrJobExists),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrJobFinished):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrInvoiceNotPaid),
		errors.Is(err, ErrInvalidPriority),
		errors.Is(err, ErrProgressOutOfRange),
		errors.Is(err, ErrProgressDecreased):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotPermitted):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
