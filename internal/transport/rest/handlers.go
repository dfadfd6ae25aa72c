package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/baechuer/cityevents/services/analytics-service/internal/domain"
	appCtx "github.com/baechuer/cityevents/services/analytics-service/internal/pkg/context"
	"github.com/baechuer/cityevents/services/analytics-service/internal/service"
	"github.com/baechuer/cityevents/services/analytics-service/internal/transport/rest/response"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

const sessionIDHeader = "X-Session-Id"

// Pinger reports store connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	svc *service.AnalyticsService
	db  Pinger
}

func NewHandler(svc *service.AnalyticsService, db Pinger) *Handler {
	return &Handler{svc: svc, db: db}
}

// Store accepts one interaction and queues it for asynchronous
// persistence. Ambient request metadata (session, ip, user agent) is
// snapshotted here, at submission time; the worker never sees the request.
func (h *Handler) Store(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ContentID *int64 `json:"content_id"`
		Action    string `json:"action"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid body", nil)
		return
	}

	action, err := domain.ParseAction(req.Action)
	if err != nil {
		fail(w, r, http.StatusUnprocessableEntity, "action.invalid", "action must be one of: play, pause, complete, like, share", map[string]string{
			"action": "not in allowed set",
		})
		return
	}

	job := domain.IngestionJob{
		ContentID: req.ContentID,
		Action:    action,
	}
	if sid := strings.TrimSpace(r.Header.Get(sessionIDHeader)); sid != "" {
		job.SessionID = &sid
	}
	if ip := clientIP(r); ip != "" {
		job.IPAddress = &ip
	}
	if ua := r.UserAgent(); ua != "" {
		job.UserAgent = &ua
	}

	if err := h.svc.Ingest(r.Context(), appCtx.GetRequestID(r.Context()), job); err != nil {
		handleErr(w, r, err)
		return
	}

	response.Data(w, http.StatusAccepted, map[string]string{
		"message": "log entry queued",
	})
}

// Index is the administrative paged listing, newest first.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	perPage := parseIntQuery(r, "per_page", 15)
	page := parseIntQuery(r, "page", 1)
	if page < 1 {
		page = 1
	}

	logs, err := h.svc.ListLogs(r.Context(), perPage, (page-1)*perPage)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, logs)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	ev, err := h.svc.GetLog(r.Context(), id)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, ev)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req struct {
		ContentID *int64  `json:"content_id"`
		Action    *string `json:"action"`
		SessionID *string `json:"session_id"`
		IPAddress *string `json:"ip_address"`
		UserAgent *string `json:"user_agent"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid body", nil)
		return
	}

	upd := domain.EventUpdate{
		ContentID: req.ContentID,
		SessionID: req.SessionID,
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
	}
	if req.Action != nil {
		a := domain.Action(*req.Action)
		upd.Action = &a
	}

	auth, _ := GetAuth(r.Context())
	ev, err := h.svc.UpdateLog(r.Context(), auth.UserID, id, upd)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, ev)
}

func (h *Handler) Destroy(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	auth, _ := GetAuth(r.Context())
	if err := h.svc.DeleteLog(r.Context(), auth.UserID, id); err != nil {
		handleErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ContentLogs(w http.ResponseWriter, r *http.Request) {
	contentID, err := strconv.ParseInt(chi.URLParam(r, "contentID"), 10, 64)
	if err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid contentID", nil)
		return
	}

	logs, lerr := h.svc.ContentLogs(r.Context(), contentID)
	if lerr != nil {
		handleErr(w, r, lerr)
		return
	}
	response.Data(w, http.StatusOK, logs)
}

func (h *Handler) SessionLogs(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid sessionID", nil)
		return
	}

	logs, err := h.svc.SessionLogs(r.Context(), sessionID)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, logs)
}

func (h *Handler) ContentStatistics(w http.ResponseWriter, r *http.Request) {
	contentID, err := strconv.ParseInt(chi.URLParam(r, "contentID"), 10, 64)
	if err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid contentID", nil)
		return
	}

	stats, serr := h.svc.ContentStatistics(r.Context(), contentID)
	if serr != nil {
		handleErr(w, r, serr)
		return
	}
	response.Data(w, http.StatusOK, stats)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbStatus := "connected"
	status := "ok"
	httpStatus := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		dbStatus = "disconnected"
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	response.JSON(w, httpStatus, map[string]string{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"database":  dbStatus,
	})
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid id", map[string]string{
			"id": "must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

func parseIntQuery(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func handleErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidAction):
		fail(w, r, http.StatusUnprocessableEntity, "action.invalid", err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		fail(w, r, http.StatusNotFound, "log.not_found", err.Error(), nil)
	case errors.Is(err, domain.ErrNoFieldsToUpdate):
		fail(w, r, http.StatusBadRequest, "request.invalid", err.Error(), nil)
	case errors.Is(err, domain.ErrQueueUnavailable):
		// the queue is the write path; without it ingestion cannot be accepted
		fail(w, r, http.StatusServiceUnavailable, "queue.unavailable", "ingestion temporarily unavailable", nil)
	default:
		// Do not leak internal details by default.
		fail(w, r, http.StatusInternalServerError, "internal", "internal error", nil)
	}
}

func fail(w http.ResponseWriter, r *http.Request, status int, code, message string, meta map[string]string) {
	reqID := appCtx.GetRequestID(r.Context())
	if reqID == "" {
		reqID = "no-request-id"
	}
	response.Fail(w, status, code, message, meta, reqID)
}
