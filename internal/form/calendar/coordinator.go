package calendar

import (
	"context"
	"sync"

	"github.com/BruksfildServices01/vet-agenda/internal/backend"
	"github.com/BruksfildServices01/vet-agenda/internal/domain/agenda"
	"github.com/BruksfildServices01/vet-agenda/internal/httperr"
	"github.com/BruksfildServices01/vet-agenda/internal/logging"
)

// Backend is the part of the clinic API the schedule form needs.
type Backend interface {
	GetCalendar(ctx context.Context, calendarID uint) (*agenda.ResourceCalendar, error)
	ListServices(ctx context.Context, activeOnly bool) ([]agenda.Service, error)
	CreateCalendar(ctx context.Context, req backend.CalendarRequest) (*agenda.ResourceCalendar, error)
	UpdateCalendar(ctx context.Context, calendarID uint, req backend.CalendarUpdateRequest) (*agenda.ResourceCalendar, error)
}

// DayInput changes the non-nil parts of one weekday.
type DayInput struct {
	Weekday       agenda.Weekday `json:"weekday"`
	Active        *bool          `json:"active"`
	Start         *string        `json:"start_time"`
	End           *string        `json:"end_time"`
	BreakStart    *string        `json:"break_start"`
	BreakEnd      *string        `json:"break_end"`
	Capacity      *int           `json:"capacity"`
	ClearCapacity bool           `json:"clear_capacity"`
}

// Patch is one edit of the form. Header fields and days apply first, then
// ToggleDays and ToggleServices.
type Patch struct {
	Name           *string          `json:"name"`
	Category       *string          `json:"category"`
	Color          *string          `json:"color"`
	Granularity    *int             `json:"time_granularity"`
	Active         *bool            `json:"active"`
	ValidFrom      *string          `json:"valid_from"`
	ValidUntil     *string          `json:"valid_until"`
	Days           []DayInput       `json:"days"`
	ToggleDays     []agenda.Weekday `json:"toggle_days"`
	ToggleServices []uint           `json:"toggle_services"`
}

// Coordinator owns one open schedule form.
type Coordinator struct {
	api    Backend
	logger *logging.Logger

	mu            sync.Mutex
	calendarID    uint
	header        Header
	days          []agenda.DayPattern
	original      []agenda.ServiceLink
	selected      map[uint]bool
	services      []agenda.Service
	errs          map[string]string
	serverErrs    map[string]string
	notifications []httperr.Notification
	submitting    bool
	closed        bool
	result        *agenda.ResourceCalendar
}

// New opens a blank creation form.
func New(api Backend, logger *logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Coordinator{
		api:      api,
		logger:   logger.With("component", "calendar_form"),
		header:   Header{Granularity: DefaultGranularity, Active: true},
		days:     DefaultWeek(),
		selected: map[uint]bool{},
	}
	c.validateLocked()
	return c
}

// Open loads the service catalog. A failure leaves it empty.
func (c *Coordinator) Open(ctx context.Context) {
	list, err := c.api.ListServices(ctx, true)
	if err != nil {
		c.warn("services", err)
		list = []agenda.Service{}
	}
	c.mu.Lock()
	c.services = agenda.ActiveServices(list)
	c.mu.Unlock()
}

// LoadExisting fetches calendarID and switches the form to editing it.
func (c *Coordinator) LoadExisting(ctx context.Context, calendarID uint) error {
	cal, err := c.api.GetCalendar(ctx, calendarID)
	if err != nil {
		c.warn("calendar", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calendarID = cal.ID
	if c.calendarID == 0 {
		c.calendarID = calendarID
	}
	c.header = Header{
		Name:        cal.Name,
		Category:    cal.Category,
		Color:       cal.Color,
		Granularity: cal.Granularity,
		Active:      cal.Active,
		ValidFrom:   cal.ValidFrom,
		ValidUntil:  cal.ValidUntil,
	}
	c.days = Overlay(DefaultWeek(), cal.Days)
	c.original = append([]agenda.ServiceLink(nil), cal.Services...)
	c.selected = map[uint]bool{}
	for _, l := range cal.Services {
		if l.Active {
			c.selected[l.ServiceID] = true
		}
	}
	c.validateLocked()
	return nil
}

// Change applies p.
func (c *Coordinator) Change(p Patch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return httperr.ErrBusiness("form_closed")
	}

	for _, d := range p.Days {
		if !d.Weekday.Valid() {
			return httperr.ErrField("weekday", "invalid_weekday")
		}
	}
	for _, w := range p.ToggleDays {
		if !w.Valid() {
			return httperr.ErrField("weekday", "invalid_weekday")
		}
	}

	if p.Name != nil {
		c.header.Name = *p.Name
	}
	if p.Category != nil {
		c.header.Category = *p.Category
	}
	if p.Color != nil {
		c.header.Color = *p.Color
	}
	if p.Granularity != nil {
		c.header.Granularity = *p.Granularity
	}
	if p.Active != nil {
		c.header.Active = *p.Active
	}
	if p.ValidFrom != nil {
		c.header.ValidFrom = *p.ValidFrom
	}
	if p.ValidUntil != nil {
		c.header.ValidUntil = *p.ValidUntil
	}
	for _, d := range p.Days {
		c.setDayLocked(d)
	}
	for _, w := range p.ToggleDays {
		c.days[w].Active = !c.days[w].Active
	}
	for _, id := range p.ToggleServices {
		c.selected[id] = !c.selected[id]
	}

	c.serverErrs = nil
	c.validateLocked()
	return nil
}

// SetDay changes one weekday entry.
func (c *Coordinator) SetDay(in DayInput) error {
	return c.Change(Patch{Days: []DayInput{in}})
}

func (c *Coordinator) ToggleDay(w agenda.Weekday) error {
	return c.Change(Patch{ToggleDays: []agenda.Weekday{w}})
}

func (c *Coordinator) ToggleService(serviceID uint) error {
	return c.Change(Patch{ToggleServices: []uint{serviceID}})
}

func (c *Coordinator) setDayLocked(in DayInput) {
	d := &c.days[in.Weekday]
	if in.Active != nil {
		d.Active = *in.Active
	}
	if in.Start != nil {
		d.Start = *in.Start
	}
	if in.End != nil {
		d.End = *in.End
	}
	if in.BreakStart != nil {
		d.BreakStart = *in.BreakStart
	}
	if in.BreakEnd != nil {
		d.BreakEnd = *in.BreakEnd
	}
	if in.ClearCapacity {
		d.Capacity = nil
	} else if in.Capacity != nil {
		capacity := *in.Capacity
		d.Capacity = &capacity
	}
}

func (c *Coordinator) validateLocked() {
	c.errs = Validate(c.header, c.days)
}

// Submit validates locally, then creates or updates the calendar. An invalid
// form returns the first business error without calling the API.
func (c *Coordinator) Submit(ctx context.Context) (*agenda.ResourceCalendar, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, httperr.ErrBusiness("form_closed")
	}
	c.validateLocked()
	if err := firstError(c.errs); err != nil {
		c.mu.Unlock()
		return nil, err
	}

	id := c.calendarID
	h := c.header
	days := append([]agenda.DayPattern(nil), c.days...)
	var (
		create backend.CalendarRequest
		update backend.CalendarUpdateRequest
	)
	if id == 0 {
		create = backend.CalendarRequest{
			Name: h.Name, Category: h.Category, Color: h.Color, Granularity: h.Granularity,
			Active: h.Active, ValidFrom: h.ValidFrom, ValidUntil: h.ValidUntil,
			Days:       days,
			ServiceIDs: selectedIDs(c.selected),
		}
	} else {
		update = backend.CalendarUpdateRequest{
			Name: h.Name, Category: h.Category, Color: h.Color, Granularity: h.Granularity,
			Active: h.Active, ValidFrom: h.ValidFrom, ValidUntil: h.ValidUntil,
			Days:     days,
			Services: ServicePatch(c.original, c.selected),
		}
	}
	c.submitting = true
	c.mu.Unlock()

	var (
		saved *agenda.ResourceCalendar
		err   error
	)
	if id == 0 {
		saved, err = c.api.CreateCalendar(ctx, create)
	} else {
		saved, err = c.api.UpdateCalendar(ctx, id, update)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false

	if err != nil {
		c.logger.Warn("calendar submit failed", "calendar_id", id, "kind", httperr.KindOf(err).String(), "error", err)
		c.serverErrs = httperr.FieldErrors(err)
		c.notifications = append(c.notifications, httperr.Notify(err))
		return nil, err
	}

	if saved != nil && saved.ID == 0 {
		saved.ID = id
	}
	c.closed = true
	c.result = saved
	title := "Schedule created"
	if id != 0 {
		title = "Schedule updated"
	}
	c.notifications = append(c.notifications, httperr.Success(title, ""))
	return saved, nil
}

// CalendarID is zero for create forms.
func (c *Coordinator) CalendarID() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calendarID
}

func (c *Coordinator) warn(what string, err error) {
	c.logger.Warn("calendar form load failed", "what", what, "kind", httperr.KindOf(err).String(), "error", err)
	n := httperr.Notify(err)
	n.Level = httperr.LevelWarning
	c.mu.Lock()
	c.notifications = append(c.notifications, n)
	c.mu.Unlock()
}
