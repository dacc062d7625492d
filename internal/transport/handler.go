package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/meld/coaching-dashboard/internal/domain"
	"github.com/meld/coaching-dashboard/internal/notify"
	"github.com/meld/coaching-dashboard/internal/store"
	"github.com/meld/coaching-dashboard/pkg/logger"
)

// Handler exposes the store and the notification channel over HTTP.
// It is the consumer of the store: required-field checks happen here,
// before any store operation is called.
type Handler struct {
	store         *store.Store
	notifications *notify.Channel
}

// NewHandler creates a new Handler instance
func NewHandler(s *store.Store, n *notify.Channel) *Handler {
	return &Handler{store: s, notifications: n}
}

// RegisterRoutes registers all routes
func (h *Handler) RegisterRoutes(router *mux.Router, log logger.Logger, gatherer prometheus.Gatherer) {
	router.Use(h.LoggingMiddleware(log))

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	router.HandleFunc("/dashboard", h.GetDashboard).Methods(http.MethodGet)
	router.HandleFunc("/dashboard/refresh", h.Refresh).Methods(http.MethodPost)

	router.HandleFunc("/dashboard/members", h.AddMember).Methods(http.MethodPost)
	router.HandleFunc("/dashboard/members/{id}", h.UpdateMember).Methods(http.MethodPut)
	router.HandleFunc("/dashboard/members/{id}", h.DeleteMember).Methods(http.MethodDelete)

	router.HandleFunc("/dashboard/teams", h.AddTeam).Methods(http.MethodPost)
	router.HandleFunc("/dashboard/teams/{id}", h.UpdateTeam).Methods(http.MethodPut)
	router.HandleFunc("/dashboard/teams/{id}", h.DeleteTeam).Methods(http.MethodDelete)

	router.HandleFunc("/dashboard/assignments", h.AssignMember).Methods(http.MethodPost)
	router.HandleFunc("/dashboard/assignments/member/{id}", h.RemoveMember).Methods(http.MethodDelete)

	router.HandleFunc("/dashboard/feedback", h.AddFeedback).Methods(http.MethodPost)
	router.HandleFunc("/dashboard/feedback/{id}", h.UpdateFeedback).Methods(http.MethodPut)
	router.HandleFunc("/dashboard/feedback/{id}", h.DeleteFeedback).Methods(http.MethodDelete)

	router.HandleFunc("/notifications", h.ListNotifications).Methods(http.MethodGet)
	router.HandleFunc("/notifications/{id}", h.DismissNotification).Methods(http.MethodDelete)
}

// LoggingMiddleware adds logging and request ID
func (h *Handler) LoggingMiddleware(log logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set("X-Request-ID", requestID)
			ctx := logger.WithRequestID(r.Context(), requestID)
			ctx = logger.WithLogger(ctx, log)
			log.Info(ctx, "request received",
				zap.String("method", r.Method),
				zap.String("uri", r.RequestURI))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// HealthCheck handles health check
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetDashboard handles GET /dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.store.Dashboard())
}

// Refresh handles POST /dashboard/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Refresh(r.Context()); err != nil {
		h.handleStoreError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, h.store.Snapshot())
}

// AddMember handles POST /dashboard/members
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req domain.NewMember
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.handleStoreError(w, r, err)
		return
	}

	member, err := h.store.AddMember(r.Context(), req)
	if err != nil {
		h.handleStoreError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, member)
}

// UpdateMember handles PUT /dashboard/members/{id}
func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req domain.MemberUpdate
	if !h.decode(w, r, &req) {
		return
	}
	if req == (domain.MemberUpdate{}) {
		h.respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidRequest, "nothing to update")
		return
	}

	member, err := h.store.UpdateMember(r.Context(), id, req)
	if err != nil {
		h.handleStoreError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, member)
}

// DeleteMember handles DELETE /dashboard/members/{id}
func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteMember(r.Context(), id); err != nil {
		h.handleStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddTeam handles POST /dashboard/teams
func (h *Handler) AddTeam(w http.ResponseWriter, r *http.Request) {
	var req domain.NewTeam
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.handleStoreError(w, r, err)
		return
	}

	team, err := h.store.AddTeam(r.Context(), req)
	if err != nil {
		h.handleStoreError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, team)
}

// UpdateTeam handles PUT /dashboard/teams/{id}
func (h *Handler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req domain.TeamUpdate
	if !h.decode(w, r, &req) {
		return
	}
	if req == (domain.TeamUpdate{}) {
		h.respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidRequest, "nothing to update")
		return
	}

	team, err := h.store.UpdateTeam(r.Context(), id, req)
	if err != nil {
		h.handleStoreError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, team)
}

// DeleteTeam handles DELETE /dashboard/teams/{id}
func (h *Handler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteTeam(r.Context(), id); err != nil {
		h.handleStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AssignMember handles POST /dashboard/assignments
func (h *Handler) AssignMember(w http.ResponseWriter, r *http.Request) {
	var req domain.AssignRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.MemberID <= 0 || req.TeamID <= 0 {
		h.respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidRequest, "member_id and team_id are required")
		return
	}

	if err := h.store.AssignMemberToTeam(r.Context(), req.MemberID, req.TeamID); err != nil {
		h.handleStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveMember handles DELETE /dashboard/assignments/member/{id}
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.RemoveMemberFromTeam(r.Context(), id); err != nil {
		h.handleStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddFeedback handles POST /dashboard/feedback
func (h *Handler) AddFeedback(w http.ResponseWriter, r *http.Request) {
	var req domain.NewFeedback
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.handleStoreError(w, r, err)
		return
	}

	feedback, err := h.store.AddFeedback(r.Context(), req)
	if err != nil {
		h.handleStoreError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, feedback)
}

// UpdateFeedback handles PUT /dashboard/feedback/{id}
func (h *Handler) UpdateFeedback(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req domain.FeedbackUpdate
	if !h.decode(w, r, &req) {
		return
	}
	if req.Content == "" {
		h.respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidRequest, "content is required")
		return
	}

	feedback, err := h.store.UpdateFeedback(r.Context(), id, req)
	if err != nil {
		h.handleStoreError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, feedback)
}

// DeleteFeedback handles DELETE /dashboard/feedback/{id}
func (h *Handler) DeleteFeedback(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteFeedback(r.Context(), id); err != nil {
		h.handleStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListNotifications handles GET /notifications
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]any{"notifications": h.notifications.Active()})
}

// DismissNotification handles DELETE /notifications/{id}
func (h *Handler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	if !h.notifications.Dismiss(mux.Vars(r)["id"]) {
		h.respondError(w, http.StatusNotFound, domain.ErrCodeNotFound, "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.FromContext(r.Context()).Error(r.Context(), "failed to decode request", zap.Error(err))
		h.respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidRequest, "invalid request body")
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (domain.ID, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidRequest, "invalid id")
		return 0, false
	}
	return domain.ID(id), true
}

// respondJSON sends a JSON response
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response
func (h *Handler) respondError(w http.ResponseWriter, status int, code, message string) {
	h.respondJSON(w, status, domain.NewErrorResponse(code, message))
}

// handleStoreError maps store errors to HTTP responses
func (h *Handler) handleStoreError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.MapErrorToCode(err)

	var validation *domain.ValidationError
	var apiErr *domain.APIError
	switch {
	case errors.As(err, &validation):
		h.respondError(w, http.StatusBadRequest, code, validation.Message)
	case errors.Is(err, domain.ErrTeamHasMembers):
		h.respondError(w, http.StatusConflict, code, store.MsgTeamHasMembers)
	case errors.Is(err, domain.ErrNotFound) && errors.As(err, &apiErr):
		h.respondError(w, http.StatusNotFound, code, apiErr.Error())
	case errors.As(err, &apiErr) && apiErr.ClientError():
		h.respondError(w, apiErr.StatusCode, code, apiErr.Error())
	case errors.As(err, &apiErr):
		h.respondError(w, http.StatusBadGateway, code, apiErr.Error())
	case errors.Is(err, domain.ErrTransport):
		h.respondError(w, http.StatusServiceUnavailable, code, "coaching API unavailable")
	default:
		logger.FromContext(r.Context()).Error(r.Context(), "unexpected error", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, domain.ErrCodeInternalError, "internal server error")
	}
}
