package appointment

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/vet-agenda/internal/backend"
	"github.com/BruksfildServices01/vet-agenda/internal/domain/agenda"
	"github.com/BruksfildServices01/vet-agenda/internal/httperr"
	"github.com/BruksfildServices01/vet-agenda/internal/logging"
)

type fakeBackend struct {
	mu sync.Mutex

	calendars []agenda.ResourceCalendar
	tutors    []agenda.Tutor
	services  map[uint][]agenda.Service
	pets      map[uint][]agenda.Pet
	slots     map[string][]agenda.AvailableSlot
	slotsErr  error
	submitErr error

	slotCalls   int
	created     []backend.AppointmentRequest
	updated     []backend.AppointmentRequest
	updatedIDs  []uint
	serviceCall int
	petCall     int

	// when set, pet fetches signal petStarted and wait for petGate
	petGate    chan struct{}
	petStarted chan struct{}
}

func (f *fakeBackend) ListCalendars(context.Context, bool) ([]agenda.ResourceCalendar, error) {
	return f.calendars, nil
}

func (f *fakeBackend) ListTutors(context.Context, bool) ([]agenda.Tutor, error) {
	return f.tutors, nil
}

func (f *fakeBackend) ListTutorPets(_ context.Context, tutorID uint) ([]agenda.Pet, error) {
	f.mu.Lock()
	f.petCall++
	f.mu.Unlock()
	if f.petGate != nil {
		f.petStarted <- struct{}{}
		<-f.petGate
	}
	return f.pets[tutorID], nil
}

func (f *fakeBackend) petCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.petCall
}

func (f *fakeBackend) ListCalendarServices(_ context.Context, calendarID uint) ([]agenda.Service, error) {
	f.mu.Lock()
	f.serviceCall++
	f.mu.Unlock()
	return f.services[calendarID], nil
}

func (f *fakeBackend) GetAvailableSlots(_ context.Context, calendarID uint, date time.Time, serviceID uint) ([]agenda.AvailableSlot, error) {
	f.mu.Lock()
	f.slotCalls++
	f.mu.Unlock()
	if f.slotsErr != nil {
		return nil, f.slotsErr
	}
	return f.slots[SlotKey(calendarID, date.Format("2006-01-02"), serviceID)], nil
}

func (f *fakeBackend) CreateAppointment(_ context.Context, req backend.AppointmentRequest) (*agenda.Appointment, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.created = append(f.created, req)
	return &agenda.Appointment{ID: 100, ScheduledAt: req.ScheduledAt, Status: req.Status, CalendarID: req.CalendarID}, nil
}

func (f *fakeBackend) UpdateAppointment(_ context.Context, id uint, req backend.AppointmentRequest) (*agenda.Appointment, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.updated = append(f.updated, req)
	f.updatedIDs = append(f.updatedIDs, id)
	return &agenda.Appointment{ID: id, ScheduledAt: req.ScheduledAt, Status: req.Status, CalendarID: req.CalendarID}, nil
}

var utc = time.UTC

func testConfig() Config {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, utc)
	return Config{
		Location: utc,
		Now:      func() time.Time { return now },
		Logger:   logging.Discard(),
	}
}

func u(v uint) *uint     { return &v }
func s(v string) *string { return &v }

func newFake() *fakeBackend {
	return &fakeBackend{
		calendars: []agenda.ResourceCalendar{{ID: 1, Name: "Dra. Ana", Active: true}, {ID: 2, Name: "Banho", Active: true}},
		tutors:    []agenda.Tutor{{ID: 10, Name: "Carla", Active: true}, {ID: 11, Name: "Old", Active: false}},
		services: map[uint][]agenda.Service{
			1: {{ID: 5, Name: "Consulta", Active: true}, {ID: 6, Name: "Retorno", Active: false}},
			2: {},
		},
		pets: map[uint][]agenda.Pet{
			10: {{ID: 20, Name: "Rex", Species: agenda.SpeciesDog, Active: true}},
		},
		slots: map[string][]agenda.AvailableSlot{
			SlotKey(1, "2026-03-11", 0): {{Time: "10:00", Available: true}, {Time: "10:30", Available: false}},
			SlotKey(1, "2026-03-11", 5): {{Time: "11:00", Available: true}},
		},
	}
}

func TestServiceFieldDisabledUntilCalendarChosen(t *testing.T) {
	c := NewCreate(newFake(), testConfig(), Prefill{})
	c.Open(context.Background())

	v := c.Snapshot()
	assert.False(t, v.Service.Enabled)
	assert.Empty(t, v.Service.Options)
	assert.False(t, v.Pet.Enabled)
	assert.False(t, v.Time.Enabled)
	assert.Len(t, v.Tutors, 1, "inactive tutors are not offered")
}

func TestServiceFieldStaysDisabledForCalendarWithoutActiveServices(t *testing.T) {
	c := NewCreate(newFake(), testConfig(), Prefill{})
	c.Open(context.Background())

	require.NoError(t, c.Change(context.Background(), Patch{CalendarID: u(2)}))

	v := c.Snapshot()
	assert.False(t, v.Service.Enabled)
	assert.Empty(t, v.Service.Options)
	assert.False(t, v.Service.Loading)
}

func TestServiceOptionsAreActiveOnlyAndStaleValueCleared(t *testing.T) {
	ctx := context.Background()
	c := NewCreate(newFake(), testConfig(), Prefill{})
	c.Open(ctx)

	require.NoError(t, c.Change(ctx, Patch{CalendarID: u(1)}))
	v := c.Snapshot()
	assert.True(t, v.Service.Enabled)
	assert.Equal(t, []Option{{Value: "5", Label: "Consulta"}}, v.Service.Options)

	require.NoError(t, c.Change(ctx, Patch{ServiceID: u(5)}))
	require.NoError(t, c.Change(ctx, Patch{CalendarID: u(2)}))

	v = c.Snapshot()
	assert.Zero(t, v.Values.ServiceID)
}

func TestPetFieldFollowsTutor(t *testing.T) {
	ctx := context.Background()
	c := NewCreate(newFake(), testConfig(), Prefill{})
	c.Open(ctx)

	require.NoError(t, c.Change(ctx, Patch{TutorID: u(10)}))
	v := c.Snapshot()
	assert.True(t, v.Pet.Enabled)
	require.Len(t, v.Pet.Options, 1)
	assert.Equal(t, "20", v.Pet.Options[0].Value)

	require.NoError(t, c.Change(ctx, Patch{PetID: u(20)}))
	require.NoError(t, c.Change(ctx, Patch{TutorID: u(0)}))
	v = c.Snapshot()
	assert.False(t, v.Pet.Enabled)
	assert.Zero(t, v.Values.PetID)
}

func TestSlotClickTimeIsInjectedIntoOptions(t *testing.T) {
	c := NewCreate(newFake(), testConfig(), Prefill{CalendarID: 1, Date: "2026-03-11", Time: "09:30"})
	c.Open(context.Background())

	v := c.Snapshot()
	assert.Equal(t, uint(1), v.Values.CalendarID)
	assert.Equal(t, "2026-03-11", v.Values.Date)
	assert.Equal(t, "09:30", v.Values.Time)
	assert.True(t, v.Time.Enabled)
	assert.Equal(t, []Option{{Value: "09:30", Label: "09:30"}, {Value: "10:00", Label: "10:00"}}, v.Time.Options)
}

func TestPreselectedTimeSurvivesServiceChange(t *testing.T) {
	ctx := context.Background()
	c := NewCreate(newFake(), testConfig(), Prefill{CalendarID: 1, Date: "2026-03-11", Time: "09:30"})
	c.Open(ctx)

	require.NoError(t, c.Change(ctx, Patch{ServiceID: u(5)}))

	v := c.Snapshot()
	assert.Equal(t, "09:30", v.Values.Time)
	assert.Equal(t, []Option{{Value: "09:30", Label: "09:30"}, {Value: "11:00", Label: "11:00"}}, v.Time.Options)
}

func TestSameSlotKeyFetchedOnce(t *testing.T) {
	ctx := context.Background()
	fb := newFake()
	c := NewCreate(fb, testConfig(), Prefill{})
	c.Open(ctx)

	require.NoError(t, c.Change(ctx, Patch{CalendarID: u(1), Date: s("2026-03-11")}))
	require.NoError(t, c.Change(ctx, Patch{Date: s("2026-03-11")}))
	require.NoError(t, c.Change(ctx, Patch{Notes: s("first visit")}))

	assert.Equal(t, 1, fb.slotCalls)
	assert.Equal(t, 1, fb.serviceCall)
}

func TestSlotLoadFailureDegradesTimeField(t *testing.T) {
	ctx := context.Background()
	fb := newFake()
	fb.slotsErr = &httperr.APIError{Status: 500, Message: "down"}
	c := NewCreate(fb, testConfig(), Prefill{})
	c.Open(ctx)

	require.NoError(t, c.Change(ctx, Patch{CalendarID: u(1), Date: s("2026-03-11")}))

	v := c.TakeView()
	assert.False(t, v.Time.Enabled)
	assert.Empty(t, v.Time.Options)
	require.NotEmpty(t, v.Notifications)
	assert.Equal(t, httperr.LevelWarning, v.Notifications[0].Level)
	assert.Empty(t, c.TakeView().Notifications)
}

func TestPastDateIsRejected(t *testing.T) {
	tests := []struct {
		name string
		date string
		time string
	}{
		{"yesterday", "2026-03-09", ""},
		{"earlier today", "2026-03-10", "07:30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCreate(newFake(), testConfig(), Prefill{CalendarID: 1, Date: tt.date, Time: tt.time})
			c.Open(context.Background())

			v := c.Snapshot()
			assert.Equal(t, "date must not be in the past", v.Errors["date"])
			assert.False(t, v.Submittable)

			_, err := c.Submit(context.Background())
			assert.True(t, httperr.IsBusiness(err, "past_date"))
		})
	}
}

func TestLaterTodayIsAccepted(t *testing.T) {
	errs := Validate(Values{Date: "2026-03-10", Time: "08:30"}, time.Date(2026, 3, 10, 8, 0, 0, 0, utc), utc)
	assert.Empty(t, errs)
}

func TestSubmitBlockedWhileOptionsExistButNoneChosen(t *testing.T) {
	ctx := context.Background()
	c := NewCreate(newFake(), testConfig(), Prefill{CalendarID: 1, Date: "2026-03-11", Time: "10:00"})
	c.Open(ctx)
	require.NoError(t, c.Change(ctx, Patch{TutorID: u(10), PetID: u(20)}))

	_, err := c.Submit(ctx)
	assert.True(t, httperr.IsBusiness(err, "form_incomplete"))
	assert.Contains(t, httperr.FieldErrors(err), "service_id")
}

func TestSubmitAllowedWhenDependencyYieldsNothing(t *testing.T) {
	ctx := context.Background()
	fb := newFake()
	fb.slots[SlotKey(2, "2026-03-11", 0)] = []agenda.AvailableSlot{{Time: "14:00", Available: true}}
	c := NewCreate(fb, testConfig(), Prefill{CalendarID: 2, Date: "2026-03-11", Time: "14:00"})
	c.Open(ctx)
	require.NoError(t, c.Change(ctx, Patch{TutorID: u(10), PetID: u(20)}))

	ap, err := c.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(100), ap.ID)
	require.Len(t, fb.created, 1)
	assert.Zero(t, fb.created[0].ServiceID)
	assert.Equal(t, time.Date(2026, 3, 11, 14, 0, 0, 0, utc), fb.created[0].ScheduledAt)
	assert.Equal(t, agenda.StatusScheduled, fb.created[0].Status)

	assert.True(t, c.Snapshot().Closed)
	_, err = c.Submit(ctx)
	assert.True(t, httperr.IsBusiness(err, "form_closed"))
}

func TestSubmitFailureKeepsFormOpen(t *testing.T) {
	ctx := context.Background()
	fb := newFake()
	fb.submitErr = &httperr.APIError{Status: 400, Message: "Invalid", Fields: map[string]string{"scheduled_at": "slot taken"}}
	c := NewCreate(fb, testConfig(), Prefill{CalendarID: 1, Date: "2026-03-11", Time: "10:00"})
	c.Open(ctx)
	require.NoError(t, c.Change(ctx, Patch{TutorID: u(10), PetID: u(20), ServiceID: u(5)}))

	_, err := c.Submit(ctx)
	require.Error(t, err)

	v := c.Snapshot()
	assert.False(t, v.Closed)
	assert.Equal(t, "slot taken", v.Errors["scheduled_at"])
	assert.Equal(t, uint(20), v.Values.PetID)
	require.NotEmpty(t, v.Notifications)
	assert.Equal(t, "Invalid", v.Notifications[len(v.Notifications)-1].Message)
}

func TestEditRoundTripReproducesPayload(t *testing.T) {
	ctx := context.Background()
	fb := newFake()
	staff := uint(3)
	loaded := agenda.Appointment{
		ID:          42,
		ScheduledAt: time.Date(2026, 3, 12, 9, 30, 0, 0, utc),
		Status:      agenda.StatusConfirmed,
		PetID:       21, // no longer offered by the pets endpoint
		TutorID:     10,
		ServiceID:   6, // inactive service
		CalendarID:  1,
		StaffID:     &staff,
		Notes:       "vacina",
	}

	c := NewEdit(fb, testConfig(), loaded)
	c.Open(ctx)

	v := c.Snapshot()
	assert.Equal(t, uint(6), v.Values.ServiceID)
	assert.Equal(t, uint(21), v.Values.PetID)
	assert.Contains(t, v.Time.Options, Option{Value: "09:30", Label: "09:30"})

	_, err := c.Submit(ctx)
	require.NoError(t, err)
	require.Len(t, fb.updated, 1)
	assert.Equal(t, []uint{42}, fb.updatedIDs)

	want, _ := json.Marshal(backend.RequestFromAppointment(loaded))
	got, _ := json.Marshal(fb.updated[0])
	assert.JSONEq(t, string(want), string(got))
	assert.Contains(t, string(got), `"status":"confirmed"`)
}

func TestChangeRejectsUnknownStatus(t *testing.T) {
	c := NewCreate(newFake(), testConfig(), Prefill{})
	err := c.Change(context.Background(), Patch{Status: s("archived")})
	assert.True(t, httperr.IsBusiness(err, "invalid_status"))
}

type slowSlots struct {
	*fakeBackend
	gate chan struct{}
}

func (s *slowSlots) GetAvailableSlots(ctx context.Context, calendarID uint, date time.Time, serviceID uint) ([]agenda.AvailableSlot, error) {
	if calendarID == 1 {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return []agenda.AvailableSlot{{Time: "07:00", Available: true}}, nil
	}
	return []agenda.AvailableSlot{{Time: "15:00", Available: true}}, nil
}

func TestSupersededSlotLoadNeverOverwritesNewerState(t *testing.T) {
	ctx := context.Background()
	fb := newFake()
	fb.services[3] = nil
	slow := &slowSlots{fakeBackend: fb, gate: make(chan struct{})}

	c := NewCreate(slow, testConfig(), Prefill{Date: "2026-03-11"})
	c.Open(ctx)

	done := make(chan error, 1)
	go func() { done <- c.Change(ctx, Patch{CalendarID: u(1)}) }()

	require.Eventually(t, func() bool { return c.slots.Calls() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Change(ctx, Patch{CalendarID: u(3)}))
	close(slow.gate)
	require.NoError(t, <-done)

	v := c.Snapshot()
	assert.Equal(t, uint(3), v.Values.CalendarID)
	assert.Equal(t, []Option{{Value: "15:00", Label: "15:00"}}, v.Time.Options)
}

func TestInterruptedLoadResumesOnNextView(t *testing.T) {
	api := newFake()
	api.petGate = make(chan struct{})
	api.petStarted = make(chan struct{}, 1)
	c := NewCreate(api, testConfig(), Prefill{})
	c.Open(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Change(ctx, Patch{TutorID: u(10)}) }()
	<-api.petStarted
	cancel()
	require.NoError(t, <-done)
	assert.True(t, c.Snapshot().Pet.Loading)

	close(api.petGate)
	c.Resume(context.Background())

	v := c.Snapshot()
	assert.False(t, v.Pet.Loading)
	assert.True(t, v.Pet.Enabled)
	require.Len(t, v.Pet.Options, 1)
	assert.Equal(t, "20", v.Pet.Options[0].Value)
	assert.Equal(t, 1, api.petCalls())
}
