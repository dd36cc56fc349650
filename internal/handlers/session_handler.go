package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/vet-agenda/internal/httperr"
	"github.com/BruksfildServices01/vet-agenda/internal/httpresp"
	"github.com/BruksfildServices01/vet-agenda/internal/logging"
	"github.com/BruksfildServices01/vet-agenda/internal/middleware"
	"github.com/BruksfildServices01/vet-agenda/internal/session"
	"github.com/BruksfildServices01/vet-agenda/internal/workspace"
)

// ======================================================
// HANDLER
// ======================================================

type SessionHandler struct {
	store    session.Store
	registry *workspace.Registry
	logger   *logging.Logger
	now      func() time.Time
}

func NewSessionHandler(store session.Store, registry *workspace.Registry, logger *logging.Logger) *SessionHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SessionHandler{store: store, registry: registry, logger: logger, now: time.Now}
}

type sessionResponse struct {
	UserID           string    `json:"user_id"`
	ClinicID         string    `json:"clinic_id"`
	SidebarCollapsed bool      `json:"sidebar_collapsed"`
	CreatedAt        time.Time `json:"created_at"`
}

func toSessionResponse(sc session.Context) sessionResponse {
	return sessionResponse{
		UserID:           sc.UserID,
		ClinicID:         sc.ClinicID,
		SidebarCollapsed: sc.SidebarCollapsed,
		CreatedAt:        sc.CreatedAt,
	}
}

// ======================================================
// LOGIN
// ======================================================

// Create populates the session from the verified token. A previous session of
// the same clinic keeps its UI preferences.
func (h *SessionHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()
	sc := session.Context{
		UserID:    c.GetString(middleware.ContextUserID),
		ClinicID:  c.GetString(middleware.ContextClinicID),
		Token:     c.GetString(middleware.ContextToken),
		CreatedAt: h.now().UTC(),
	}

	prev, err := h.store.Get(ctx, sc.UserID)
	switch {
	case err == nil && prev.ClinicID == sc.ClinicID:
		sc.SidebarCollapsed = prev.SidebarCollapsed
	case err == nil:
		// clinic switched; nothing of the old workspace applies
		h.registry.Drop(sc.UserID)
	case !errors.Is(err, session.ErrNotFound):
		h.logger.Warn("session lookup failed", "user_id", sc.UserID, "error", err)
	}

	if err := h.store.Set(ctx, sc); err != nil {
		h.logger.Error("session save failed", "user_id", sc.UserID, "error", err)
		httperr.Internal(c, "session_save_failed", "Could not start the session.")
		return
	}

	httpresp.Created(c, toSessionResponse(sc))
}

func (h *SessionHandler) Get(c *gin.Context) {
	sc, ok := middleware.SessionFrom(c)
	if !ok {
		httperr.Unauthorized(c, "session_not_found", "Sign in again to continue.")
		return
	}
	httpresp.OK(c, toSessionResponse(sc))
}

// ======================================================
// PREFERENCES
// ======================================================

type updateSessionRequest struct {
	SidebarCollapsed *bool `json:"sidebar_collapsed"`
}

func (h *SessionHandler) Update(c *gin.Context) {
	sc, ok := middleware.SessionFrom(c)
	if !ok {
		httperr.Unauthorized(c, "session_not_found", "Sign in again to continue.")
		return
	}

	var req updateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid data.")
		return
	}
	if req.SidebarCollapsed != nil {
		sc.SidebarCollapsed = *req.SidebarCollapsed
	}

	if err := h.store.Set(c.Request.Context(), sc); err != nil {
		h.logger.Error("session save failed", "user_id", sc.UserID, "error", err)
		httperr.Internal(c, "session_save_failed", "Could not save the preference.")
		return
	}
	httpresp.OK(c, toSessionResponse(sc))
}

// ======================================================
// LOGOUT
// ======================================================

func (h *SessionHandler) Delete(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	if err := h.store.Clear(c.Request.Context(), userID); err != nil {
		h.logger.Error("session clear failed", "user_id", userID, "error", err)
		httperr.Internal(c, "session_clear_failed", "Could not end the session.")
		return
	}
	h.registry.Drop(userID)

	c.Status(http.StatusNoContent)
}
