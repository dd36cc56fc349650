package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/vet-agenda/internal/httperr"
	"github.com/BruksfildServices01/vet-agenda/internal/httpresp"
	"github.com/BruksfildServices01/vet-agenda/internal/middleware"
	"github.com/BruksfildServices01/vet-agenda/internal/screen"
	"github.com/BruksfildServices01/vet-agenda/internal/timezone"
	"github.com/BruksfildServices01/vet-agenda/internal/workspace"
)

// ======================================================
// HANDLER
// ======================================================

type ScheduleHandler struct {
	registry *workspace.Registry
}

func NewScheduleHandler(registry *workspace.Registry) *ScheduleHandler {
	return &ScheduleHandler{registry: registry}
}

type scheduleResponse struct {
	screen.View
	SidebarCollapsed bool `json:"sidebar_collapsed"`
}

func writeSchedule(c *gin.Context, ws *workspace.Workspace) {
	sc, _ := middleware.SessionFrom(c)
	c.JSON(http.StatusOK, scheduleResponse{
		View:             ws.Screen.View(),
		SidebarCollapsed: sc.SidebarCollapsed,
	})
}

// ======================================================
// VIEW
// ======================================================

// Get returns the page. Optional query: date=YYYY-MM-DD, calendars=1,2.
func (h *ScheduleHandler) Get(c *gin.Context) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok || !ensureLoaded(c, ws) {
		return
	}
	ctx := c.Request.Context()

	if raw, present := c.GetQuery("calendars"); present {
		ids, ok := parseIDList(raw)
		if !ok {
			httperr.BadRequest(c, "invalid_calendars", "Invalid calendar list.")
			return
		}
		if err := ws.Screen.SetSelection(ctx, ids); err != nil {
			httperr.FromError(c, err)
			return
		}
	}
	if date := c.Query("date"); date != "" {
		if err := ws.Screen.SetDate(ctx, date); err != nil {
			httperr.FromError(c, err)
			return
		}
	}

	writeSchedule(c, ws)
}

type updateScheduleRequest struct {
	Date        *string `json:"date"`
	CalendarIDs *[]uint `json:"calendar_ids"`
}

func (h *ScheduleHandler) Update(c *gin.Context) {
	var req updateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid data.")
		return
	}

	ws, ok := workspaceFor(c, h.registry)
	if !ok || !ensureLoaded(c, ws) {
		return
	}
	ctx := c.Request.Context()

	if req.CalendarIDs != nil {
		if err := ws.Screen.SetSelection(ctx, *req.CalendarIDs); err != nil {
			httperr.FromError(c, err)
			return
		}
	}
	if req.Date != nil {
		if err := ws.Screen.SetDate(ctx, *req.Date); err != nil {
			httperr.FromError(c, err)
			return
		}
	}

	writeSchedule(c, ws)
}

type reloadRequest struct {
	CalendarIDs []uint `json:"calendar_ids"`
}

// Reload drops cached timelines (all, or the listed calendars) and fetches again.
func (h *ScheduleHandler) Reload(c *gin.Context) {
	var req reloadRequest
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
	if !ws.Screen.Loaded() {
		if !ensureLoaded(c, ws) {
			return
		}
	} else if err := ws.Screen.Reload(c.Request.Context(), req.CalendarIDs...); err != nil {
		httperr.FromError(c, err)
		return
	}

	writeSchedule(c, ws)
}

// ======================================================
// CLICKS
// ======================================================

type slotClickRequest struct {
	CalendarID uint     `json:"calendar_id" binding:"required"`
	Time       string   `json:"time"`
	Y          *float64 `json:"y"`
}

// SlotClick opens a creation form from a click on a calendar column, given
// either the slot time or the vertical offset of the click. A click that lands
// on an appointment opens that appointment instead.
func (h *ScheduleHandler) SlotClick(c *gin.Context) {
	var req slotClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid data.")
		return
	}

	ws, ok := workspaceFor(c, h.registry)
	if !ok || !ensureLoaded(c, ws) {
		return
	}
	ctx := c.Request.Context()

	var cmd screen.Command
	switch {
	case req.Time != "":
		m, err := timezone.ParseClock(req.Time)
		if err != nil {
			httperr.BadRequest(c, "invalid_date_or_time", "Invalid time.")
			return
		}
		create := ws.Screen.ClickSlot(req.CalendarID, m/60, m%60)
		cmd.Create = &create
	case req.Y != nil:
		var err error
		cmd, err = ws.Screen.ClickAt(ctx, req.CalendarID, *req.Y)
		if err != nil {
			httperr.FromError(c, err)
			return
		}
	default:
		httperr.BadRequest(c, "invalid_request", "time or y is required.")
		return
	}

	switch {
	case cmd.Create != nil:
		f := ws.Screen.OpenCreateForm(ctx, *cmd.Create)
		id := ws.AddAppointmentForm(f)
		httpresp.Created(c, formResponse{ID: id, Form: f.TakeView()})
	case cmd.Edit != nil:
		f := ws.Screen.OpenEditForm(ctx, *cmd.Edit)
		id := ws.AddAppointmentForm(f)
		httpresp.Created(c, formResponse{ID: id, Form: f.TakeView()})
	default:
		c.Status(http.StatusNoContent)
	}
}

type appointmentClickRequest struct {
	AppointmentID uint `json:"appointment_id" binding:"required"`
}

// AppointmentClick re-fetches the appointment and opens it for editing.
func (h *ScheduleHandler) AppointmentClick(c *gin.Context) {
	var req appointmentClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid data.")
		return
	}

	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	cmd, err := ws.Screen.ClickAppointment(ctx, req.AppointmentID)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	f := ws.Screen.OpenEditForm(ctx, cmd)
	id := ws.AddAppointmentForm(f)
	httpresp.Created(c, formResponse{ID: id, Form: f.TakeView()})
}
