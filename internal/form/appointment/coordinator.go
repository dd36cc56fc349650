package appointment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/BruksfildServices01/vet-agenda/internal/backend"
	"github.com/BruksfildServices01/vet-agenda/internal/domain/agenda"
	"github.com/BruksfildServices01/vet-agenda/internal/httperr"
	"github.com/BruksfildServices01/vet-agenda/internal/keyed"
	"github.com/BruksfildServices01/vet-agenda/internal/logging"
	"github.com/BruksfildServices01/vet-agenda/internal/metrics"
	"github.com/BruksfildServices01/vet-agenda/internal/timezone"
)

// Backend is the part of the clinic API the appointment form needs.
type Backend interface {
	ListCalendars(ctx context.Context, activeOnly bool) ([]agenda.ResourceCalendar, error)
	ListTutors(ctx context.Context, activeOnly bool) ([]agenda.Tutor, error)
	ListTutorPets(ctx context.Context, tutorID uint) ([]agenda.Pet, error)
	ListCalendarServices(ctx context.Context, calendarID uint) ([]agenda.Service, error)
	GetAvailableSlots(ctx context.Context, calendarID uint, date time.Time, serviceID uint) ([]agenda.AvailableSlot, error)
	CreateAppointment(ctx context.Context, req backend.AppointmentRequest) (*agenda.Appointment, error)
	UpdateAppointment(ctx context.Context, appointmentID uint, req backend.AppointmentRequest) (*agenda.Appointment, error)
}

type Config struct {
	Location *time.Location
	Now      func() time.Time
	Logger   *logging.Logger
	Metrics  *metrics.BackendMetrics
}

// Prefill seeds a create form, e.g. from a click on an empty slot.
type Prefill struct {
	CalendarID uint   `json:"calendar_id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
}

// Patch changes the fields that are non-nil.
type Patch struct {
	CalendarID *uint   `json:"calendar_id"`
	TutorID    *uint   `json:"tutor_id"`
	PetID      *uint   `json:"pet_id"`
	ServiceID  *uint   `json:"service_id"`
	Date       *string `json:"date"`
	Time       *string `json:"time"`
	Status     *string `json:"status"`
	StaffID    *uint   `json:"staff_id"`
	Notes      *string `json:"notes"`
}

// Coordinator owns one open appointment form.
type Coordinator struct {
	api     Backend
	loc     *time.Location
	now     func() time.Time
	logger  *logging.Logger
	metrics *metrics.BackendMetrics

	services keyed.Loader[[]agenda.Service]
	pets     keyed.Loader[[]agenda.Pet]
	slots    keyed.Loader[[]agenda.AvailableSlot]

	mu            sync.Mutex
	mode          Mode
	appointmentID uint
	origCalendar  uint
	pins          Pins
	values        Values
	lookups       Lookups
	derived       Derived
	errs          map[string]string
	serverErrs    map[string]string
	calendars     []agenda.ResourceCalendar
	tutors        []agenda.Tutor
	notifications []httperr.Notification
	submitting    bool
	closed        bool
	result        *agenda.Appointment
}

func newCoordinator(api Backend, cfg Config, mode Mode) *Coordinator {
	if cfg.Location == nil {
		cfg.Location = timezone.Location(timezone.DefaultTimezone)
	}
	if cfg.Now == nil {
		loc := cfg.Location
		cfg.Now = func() time.Time { return time.Now().In(loc) }
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}

	c := &Coordinator{
		api:     api,
		loc:     cfg.Location,
		now:     cfg.Now,
		logger:  cfg.Logger.With("component", "appointment_form", "mode", string(mode)),
		metrics: cfg.Metrics,
		mode:    mode,
		errs:    map[string]string{},
	}
	c.services.OnSuperseded(func(string) { c.metrics.ObserveSuperseded("service") })
	c.pets.OnSuperseded(func(string) { c.metrics.ObserveSuperseded("pet") })
	c.slots.OnSuperseded(func(string) { c.metrics.ObserveSuperseded("time") })
	return c
}

// NewCreate opens a blank creation form, optionally pre-filled.
func NewCreate(api Backend, cfg Config, pre Prefill) *Coordinator {
	c := newCoordinator(api, cfg, ModeCreate)
	c.values = Values{
		CalendarID: pre.CalendarID,
		Date:       pre.Date,
		Time:       pre.Time,
		Status:     agenda.StatusScheduled,
	}
	c.pins = Pins{Mode: ModeCreate, Time: pre.Time}
	c.applyLocked()
	return c
}

// NewEdit opens ap for editing. Its pet, service and time are kept even if the
// fetched lists no longer offer them.
func NewEdit(api Backend, cfg Config, ap agenda.Appointment) *Coordinator {
	c := newCoordinator(api, cfg, ModeEdit)
	at := ap.ScheduledAt.In(c.loc)
	c.appointmentID = ap.ID
	c.origCalendar = ap.CalendarID
	c.values = Values{
		CalendarID: ap.CalendarID,
		TutorID:    ap.TutorID,
		PetID:      ap.PetID,
		ServiceID:  ap.ServiceID,
		Date:       timezone.FormatDate(at),
		Time:       timezone.FormatClock(at.Hour(), at.Minute()),
		Status:     ap.Status,
		StaffID:    ap.StaffID,
		Notes:      ap.Notes,
	}
	c.pins = Pins{
		Mode:      ModeEdit,
		ServiceID: ap.ServiceID,
		PetID:     ap.PetID,
		Time:      c.values.Time,
	}
	c.applyLocked()
	return c
}

// Open loads the calendar and tutor choices and the dependent lists for the
// initial values. Failures leave the affected lists empty.
func (c *Coordinator) Open(ctx context.Context) {
	cals, err := c.api.ListCalendars(ctx, true)
	if err != nil {
		c.warn("calendars", err)
		cals = []agenda.ResourceCalendar{}
	}
	tutors, err := c.api.ListTutors(ctx, true)
	if err != nil {
		c.warn("tutors", err)
		tutors = []agenda.Tutor{}
	}

	c.mu.Lock()
	c.calendars = agenda.ActiveCalendars(cals)
	c.tutors = agenda.ActiveTutors(tutors)
	c.mu.Unlock()

	c.refresh(ctx)
}

// Change applies p and recomputes every dependent field.
func (c *Coordinator) Change(ctx context.Context, p Patch) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return httperr.ErrBusiness("form_closed")
	}

	if p.Status != nil {
		st, err := agenda.ParseStatus(*p.Status)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		c.values.Status = st
	}
	if p.CalendarID != nil {
		c.values.CalendarID = *p.CalendarID
	}
	if p.TutorID != nil {
		c.values.TutorID = *p.TutorID
	}
	if p.PetID != nil {
		c.values.PetID = *p.PetID
	}
	if p.ServiceID != nil {
		c.values.ServiceID = *p.ServiceID
	}
	if p.Date != nil {
		c.values.Date = *p.Date
	}
	if p.Time != nil {
		c.values.Time = *p.Time
	}
	if p.StaffID != nil {
		if *p.StaffID == 0 {
			c.values.StaffID = nil
		} else {
			staff := *p.StaffID
			c.values.StaffID = &staff
		}
	}
	if p.Notes != nil {
		c.values.Notes = *p.Notes
	}
	c.serverErrs = nil
	c.applyLocked()
	c.mu.Unlock()

	c.refresh(ctx)
	return nil
}

// Resume finishes dependent loads an earlier request stopped waiting for, e.g.
// because its client went away mid-change.
func (c *Coordinator) Resume(ctx context.Context) {
	c.mu.Lock()
	d := c.derived
	pending := !c.closed && (d.Service.Loading || d.Pet.Loading || d.Time.Loading)
	c.mu.Unlock()
	if pending {
		c.refresh(ctx)
	}
}

// refresh fetches whatever the current upstream values need, then derives.
// Services and pets settle first because a cleared service changes the slot key.
func (c *Coordinator) refresh(ctx context.Context) {
	c.mu.Lock()
	v := c.values
	c.mu.Unlock()

	if v.CalendarID != 0 {
		list, err := c.services.Load(ctx, idString(v.CalendarID), func(ctx context.Context) ([]agenda.Service, error) {
			return c.api.ListCalendarServices(ctx, v.CalendarID)
		})
		c.storeServices(v.CalendarID, list, err)
	}

	if v.TutorID != 0 {
		list, err := c.pets.Load(ctx, idString(v.TutorID), func(ctx context.Context) ([]agenda.Pet, error) {
			return c.api.ListTutorPets(ctx, v.TutorID)
		})
		c.storePets(v.TutorID, list, err)
	}

	c.mu.Lock()
	v = c.values
	c.mu.Unlock()

	if v.CalendarID == 0 || v.Date == "" {
		return
	}
	day, err := timezone.ParseDate(v.Date, c.loc)
	if err != nil {
		return
	}

	key := SlotKey(v.CalendarID, v.Date, v.ServiceID)
	list, err := c.slots.Load(ctx, key, func(ctx context.Context) ([]agenda.AvailableSlot, error) {
		return c.api.GetAvailableSlots(ctx, v.CalendarID, day, v.ServiceID)
	})
	c.storeSlots(key, list, err)
}

func (c *Coordinator) storeServices(calendarID uint, list []agenda.Service, err error) {
	if stale(err) {
		return
	}
	if err != nil {
		c.warn("services", err)
		list = []agenda.Service{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values.CalendarID != calendarID {
		return
	}
	c.lookups.Services, c.lookups.ServicesFor = list, calendarID
	c.applyLocked()
}

func (c *Coordinator) storePets(tutorID uint, list []agenda.Pet, err error) {
	if stale(err) {
		return
	}
	if err != nil {
		c.warn("pets", err)
		list = []agenda.Pet{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values.TutorID != tutorID {
		return
	}
	c.lookups.Pets, c.lookups.PetsFor = list, tutorID
	c.applyLocked()
}

func (c *Coordinator) storeSlots(key string, list []agenda.AvailableSlot, err error) {
	if stale(err) {
		return
	}
	if err != nil {
		c.warn("time", err)
		list = []agenda.AvailableSlot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if SlotKey(c.values.CalendarID, c.values.Date, c.values.ServiceID) != key {
		return
	}
	c.lookups.Slots, c.lookups.SlotsFor = list, key
	c.applyLocked()
}

// applyLocked is the single point where derived state is recomputed.
func (c *Coordinator) applyLocked() {
	c.derived = Derive(c.values, c.lookups, c.pins)
	c.values = c.derived.Values
	c.errs = Validate(c.values, c.now(), c.loc)
}

func stale(err error) bool {
	return errors.Is(err, keyed.ErrSuperseded) || errors.Is(err, context.Canceled)
}

func (c *Coordinator) warn(field string, err error) {
	c.logger.Warn("dependent field load failed", "field", field, "kind", httperr.KindOf(err).String(), "error", err)
	n := httperr.Notify(err)
	n.Level = httperr.LevelWarning
	c.mu.Lock()
	c.notifications = append(c.notifications, n)
	c.mu.Unlock()
}

// Payload builds the request the form would send now.
func (c *Coordinator) Payload() (backend.AppointmentRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payloadLocked()
}

func (c *Coordinator) payloadLocked() (backend.AppointmentRequest, error) {
	if err := Submittable(c.derived, c.errs); err != nil {
		return backend.AppointmentRequest{}, err
	}

	v := c.values
	at, err := timezone.ParseDateTime(v.Date, v.Time, c.loc)
	if err != nil {
		return backend.AppointmentRequest{}, httperr.ErrField("time", "invalid_date_or_time")
	}

	status := v.Status
	if status == "" {
		status = agenda.StatusScheduled
	}

	return backend.AppointmentRequest{
		ScheduledAt: at,
		Status:      status,
		PetID:       v.PetID,
		TutorID:     v.TutorID,
		ServiceID:   v.ServiceID,
		CalendarID:  v.CalendarID,
		StaffID:     v.StaffID,
		Notes:       v.Notes,
	}, nil
}

// Submit creates or updates the appointment. On failure the form stays open
// with its values and the server's field messages.
func (c *Coordinator) Submit(ctx context.Context) (*agenda.Appointment, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, httperr.ErrBusiness("form_closed")
	}
	c.applyLocked()
	req, err := c.payloadLocked()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.submitting = true
	mode, id := c.mode, c.appointmentID
	c.mu.Unlock()

	var saved *agenda.Appointment
	if mode == ModeEdit {
		saved, err = c.api.UpdateAppointment(ctx, id, req)
	} else {
		saved, err = c.api.CreateAppointment(ctx, req)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false

	if err != nil {
		c.logger.Warn("appointment submit failed", "kind", httperr.KindOf(err).String(), "error", err)
		c.serverErrs = httperr.FieldErrors(err)
		c.notifications = append(c.notifications, httperr.Notify(err))
		return nil, err
	}

	c.closed = true
	c.result = saved
	c.serverErrs = nil
	title := "Appointment created"
	if mode == ModeEdit {
		title = "Appointment updated"
	}
	c.notifications = append(c.notifications, httperr.Success(title, ""))
	return saved, nil
}

// Mode reports whether the form creates or edits.
func (c *Coordinator) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// AppointmentID is zero for create forms.
func (c *Coordinator) AppointmentID() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appointmentID
}

// OriginCalendarID is the calendar an edited appointment was loaded from.
func (c *Coordinator) OriginCalendarID() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.origCalendar
}
