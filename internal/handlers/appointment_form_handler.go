package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/vet-agenda/internal/audit"
	"github.com/BruksfildServices01/vet-agenda/internal/form/appointment"
	"github.com/BruksfildServices01/vet-agenda/internal/httperr"
	"github.com/BruksfildServices01/vet-agenda/internal/httpresp"
	"github.com/BruksfildServices01/vet-agenda/internal/logging"
	"github.com/BruksfildServices01/vet-agenda/internal/middleware"
	"github.com/BruksfildServices01/vet-agenda/internal/screen"
	"github.com/BruksfildServices01/vet-agenda/internal/workspace"
)

// ======================================================
// HANDLER
// ======================================================

type AppointmentFormHandler struct {
	registry *workspace.Registry
	audit    *audit.Dispatcher
	logger   *logging.Logger
}

func NewAppointmentFormHandler(registry *workspace.Registry, dispatcher *audit.Dispatcher, logger *logging.Logger) *AppointmentFormHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentFormHandler{registry: registry, audit: dispatcher, logger: logger}
}

type formResponse struct {
	ID   string `json:"id"`
	Form any    `json:"form"`
}

func (h *AppointmentFormHandler) form(c *gin.Context) (*workspace.Workspace, *appointment.Coordinator, bool) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return nil, nil, false
	}
	f, err := ws.AppointmentForm(c.Param("id"))
	if errors.Is(err, workspace.ErrFormNotFound) {
		httperr.NotFound(c, "form_not_found", "Form not found.")
		return nil, nil, false
	}
	return ws, f, true
}

// ======================================================
// OPEN
// ======================================================

// Open starts an empty creation form; calendar, date and time may be preset.
func (h *AppointmentFormHandler) Open(c *gin.Context) {
	var pre appointment.Prefill
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&pre); err != nil {
			httperr.BadRequest(c, "invalid_request", "Invalid data.")
			return
		}
	}

	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}
	if pre.Date == "" {
		pre.Date = ws.Screen.Date()
	}

	f := ws.Screen.OpenCreateForm(c.Request.Context(), screen.CreateCommand{
		CalendarID: pre.CalendarID,
		Date:       pre.Date,
		Time:       pre.Time,
	})
	id := ws.AddAppointmentForm(f)
	httpresp.Created(c, formResponse{ID: id, Form: f.TakeView()})
}

func (h *AppointmentFormHandler) Get(c *gin.Context) {
	_, f, ok := h.form(c)
	if !ok {
		return
	}
	f.Resume(c.Request.Context())
	httpresp.OK(c, formResponse{ID: c.Param("id"), Form: f.TakeView()})
}

// ======================================================
// CHANGE
// ======================================================

func (h *AppointmentFormHandler) Patch(c *gin.Context) {
	var p appointment.Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid data.")
		return
	}

	_, f, ok := h.form(c)
	if !ok {
		return
	}
	if err := f.Change(c.Request.Context(), p); err != nil {
		writeFormError(c, err, f.TakeView())
		return
	}
	httpresp.OK(c, formResponse{ID: c.Param("id"), Form: f.TakeView()})
}

// ======================================================
// SUBMIT
// ======================================================

// Submit saves the appointment, records it in the audit trail and reloads the
// affected timelines. A failed submit leaves the form open.
func (h *AppointmentFormHandler) Submit(c *gin.Context) {
	ws, f, ok := h.form(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	saved, err := f.Submit(ctx)
	if err != nil {
		writeFormError(c, err, f.TakeView())
		return
	}

	action := audit.ActionAppointmentCreated
	var also []uint
	if f.Mode() == appointment.ModeEdit {
		action = audit.ActionAppointmentUpdated
		also = append(also, f.OriginCalendarID())
	}
	h.audit.Dispatch(audit.Event{
		ClinicID: c.GetString(middleware.ContextClinicID),
		UserID:   c.GetString(middleware.ContextUserID),
		Action:   action,
		Entity:   audit.EntityAppointment,
		EntityID: audit.ID(saved.ID),
		Metadata: gin.H{
			"schedule_id":  saved.CalendarID,
			"scheduled_at": saved.ScheduledAt,
			"status":       saved.Status,
		},
	})

	if err := ws.Screen.AfterSubmit(ctx, saved, also...); err != nil {
		h.logger.Warn("timeline reload after submit failed", "error", err)
	}

	view := f.TakeView()
	ws.CloseAppointmentForm(c.Param("id"))
	httpresp.OK(c, formResponse{ID: c.Param("id"), Form: view})
}

func (h *AppointmentFormHandler) Close(c *gin.Context) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}
	ws.CloseAppointmentForm(c.Param("id"))
	c.Status(http.StatusNoContent)
}
