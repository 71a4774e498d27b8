// Package handler is the thin HTTP layer over the tracking service. It
// decodes and validates transport input, delegates, and translates domain
// errors; no business logic lives here.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pmetrics "doctrack/internal/platform/metrics"
	"doctrack/internal/platform/middleware"
	"doctrack/internal/tracking/service"
	dErrors "doctrack/pkg/domain-errors"
	"doctrack/pkg/platform/httputil"
)

// Handler serves the record and control-number endpoints.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
	metrics *pmetrics.Metrics
}

func New(svc *service.Service, logger *slog.Logger, metrics *pmetrics.Metrics) *Handler {
	return &Handler{service: svc, logger: logger, metrics: metrics}
}

// Register mounts the tracking routes with the standard middleware chain.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)
	if h.metrics != nil {
		router.Use(middleware.Latency(h.metrics))
	}

	router.Post("/records", h.handleCreateRecord)
	router.Get("/records", h.handleListRecords)
	router.Get("/records/{id}", h.handleGetRecord)
	router.Put("/records/{id}", h.handleUpdateRecord)
	router.Delete("/records/{id}", h.handleDeleteRecord)

	router.Post("/control-numbers/allocate", h.handleAllocate)
	router.Get("/control-numbers/validate", h.handleValidate)
	router.Post("/control-numbers/reset", h.handleReset)

	r.Mount("/", router)
}

func (h *Handler) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req service.CreateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	rec, err := h.service.CreateRecord(ctx, req)
	if err != nil {
		h.writeServiceError(w, r, "create record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	section := r.URL.Query().Get("section")
	date := r.URL.Query().Get("date")
	if section == "" || date == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "section and date query parameters are required"))
		return
	}

	recs, err := h.service.ListRecords(r.Context(), section, date)
	if err != nil {
		h.writeServiceError(w, r, "list records", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, recs)
}

func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}
	rec, err := h.service.GetRecord(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "get record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}

	var req service.UpdateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	rec, err := h.service.UpdateRecord(r.Context(), id, req)
	if err != nil {
		h.writeServiceError(w, r, "update record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}
	result, err := h.service.DeleteRecord(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "delete record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

type allocateRequest struct {
	Section      string `json:"section"`
	DateReceived string `json:"dateReceived"`
	Commit       bool   `json:"commit"`
}

func (h *Handler) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	numbers, err := h.service.AllocateControlNumbers(r.Context(), req.Section, req.DateReceived, req.Commit)
	if err != nil {
		h.writeServiceError(w, r, "allocate control numbers", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, numbers)
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	section := r.URL.Query().Get("section")
	date := r.URL.Query().Get("date")
	if section == "" || date == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "section and date query parameters are required"))
		return
	}

	result, err := h.service.Validate(r.Context(), section, date)
	if err != nil {
		h.writeServiceError(w, r, "validate partition", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

type resetRequest struct {
	Section      string `json:"section"`
	DateReceived string `json:"dateReceived"`
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.service.Reset(r.Context(), req.Section, req.DateReceived)
	if err != nil {
		h.writeServiceError(w, r, "reset counters", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) recordID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "record id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError logs unexpected failures and renders the envelope.
// Coded domain errors pass through; everything else becomes an opaque 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "handler operation failed",
			"op", op,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}
