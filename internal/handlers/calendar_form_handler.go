package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/vet-agenda/internal/audit"
	"github.com/BruksfildServices01/vet-agenda/internal/form/calendar"
	"github.com/BruksfildServices01/vet-agenda/internal/httperr"
	"github.com/BruksfildServices01/vet-agenda/internal/httpresp"
	"github.com/BruksfildServices01/vet-agenda/internal/logging"
	"github.com/BruksfildServices01/vet-agenda/internal/middleware"
	"github.com/BruksfildServices01/vet-agenda/internal/workspace"
)

// ======================================================
// HANDLER
// ======================================================

type CalendarFormHandler struct {
	registry *workspace.Registry
	audit    *audit.Dispatcher
	logger   *logging.Logger
}

func NewCalendarFormHandler(registry *workspace.Registry, dispatcher *audit.Dispatcher, logger *logging.Logger) *CalendarFormHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CalendarFormHandler{registry: registry, audit: dispatcher, logger: logger}
}

func (h *CalendarFormHandler) form(c *gin.Context) (*workspace.Workspace, *calendar.Coordinator, bool) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return nil, nil, false
	}
	f, err := ws.CalendarForm(c.Param("id"))
	if errors.Is(err, workspace.ErrFormNotFound) {
		httperr.NotFound(c, "form_not_found", "Form not found.")
		return nil, nil, false
	}
	return ws, f, true
}

type openCalendarFormRequest struct {
	CalendarID uint `json:"calendar_id"`
}

// Open starts a schedule form; with calendar_id it edits that calendar.
func (h *CalendarFormHandler) Open(c *gin.Context) {
	var req openCalendarFormRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, "invalid_request", "Invalid data.")
			return
		}
	}

	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}

	id, f, err := ws.OpenCalendarForm(c.Request.Context(), req.CalendarID)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.Created(c, formResponse{ID: id, Form: f.TakeView()})
}

func (h *CalendarFormHandler) Get(c *gin.Context) {
	_, f, ok := h.form(c)
	if !ok {
		return
	}
	httpresp.OK(c, formResponse{ID: c.Param("id"), Form: f.TakeView()})
}

func (h *CalendarFormHandler) Patch(c *gin.Context) {
	var p calendar.Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid data.")
		return
	}

	_, f, ok := h.form(c)
	if !ok {
		return
	}
	if err := f.Change(p); err != nil {
		writeFormError(c, err, f.TakeView())
		return
	}
	httpresp.OK(c, formResponse{ID: c.Param("id"), Form: f.TakeView()})
}

// Submit validates locally before anything is sent; after a save the
// calendar's timelines are reloaded.
func (h *CalendarFormHandler) Submit(c *gin.Context) {
	ws, f, ok := h.form(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	editing := f.CalendarID() != 0
	saved, err := f.Submit(ctx)
	if err != nil {
		writeFormError(c, err, f.TakeView())
		return
	}

	action := audit.ActionCalendarCreated
	if editing {
		action = audit.ActionCalendarUpdated
	}
	h.audit.Dispatch(audit.Event{
		ClinicID: c.GetString(middleware.ContextClinicID),
		UserID:   c.GetString(middleware.ContextUserID),
		Action:   action,
		Entity:   audit.EntityCalendar,
		EntityID: audit.ID(saved.ID),
		Metadata: gin.H{"name": saved.Name},
	})

	if ws.Screen.Loaded() {
		if err := ws.Screen.AfterCalendarSaved(ctx, saved); err != nil {
			h.logger.Warn("schedule refresh after calendar save failed", "error", err)
		}
	}

	view := f.TakeView()
	ws.CloseCalendarForm(c.Param("id"))
	httpresp.OK(c, formResponse{ID: c.Param("id"), Form: view})
}

func (h *CalendarFormHandler) Close(c *gin.Context) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}
	ws.CloseCalendarForm(c.Param("id"))
	c.Status(http.StatusNoContent)
}
