// Package workspace keeps the live page state of every signed-in user: one
// schedule controller per user and clinic, and the forms they have open.
package workspace

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/BruksfildServices01/vet-agenda/internal/form/appointment"
	"github.com/BruksfildServices01/vet-agenda/internal/form/calendar"
	"github.com/BruksfildServices01/vet-agenda/internal/screen"
)

var ErrFormNotFound = errors.New("workspace: form not found")

type Backend interface {
	screen.Backend
	calendar.Backend
}

const (
	DefaultIdleTTL  = 12 * time.Hour
	DefaultMaxUsers = 10000
	DefaultMaxForms = 16
)

// Options bound the memory the registry holds. A workspace unused for IdleTTL
// is discarded; past MaxForms the least recently used form of a workspace is.
type Options struct {
	IdleTTL  time.Duration
	MaxUsers int
	MaxForms int
}

type Registry struct {
	api  Backend
	cfg  screen.Config
	opts Options

	mu    sync.Mutex
	users *expirable.LRU[string, *Workspace]
}

func NewRegistry(api Backend, cfg screen.Config, opts Options) *Registry {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	if opts.MaxUsers <= 0 {
		opts.MaxUsers = DefaultMaxUsers
	}
	if opts.MaxForms <= 0 {
		opts.MaxForms = DefaultMaxForms
	}
	return &Registry{
		api:   api,
		cfg:   cfg,
		opts:  opts,
		users: expirable.NewLRU[string, *Workspace](opts.MaxUsers, nil, opts.IdleTTL),
	}
}

func key(userID, clinicID string) string {
	return userID + "|" + clinicID
}

// Get returns the user's workspace for clinicID, creating it on first use.
// Every call restarts the idle timer.
func (r *Registry) Get(userID, clinicID string) (*Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(userID, clinicID)
	if ws, ok := r.users.Get(k); ok {
		r.users.Add(k, ws)
		return ws, nil
	}

	ctrl, err := screen.New(r.api, r.cfg)
	if err != nil {
		return nil, err
	}
	appointments, err := lru.New[string, *appointment.Coordinator](r.opts.MaxForms)
	if err != nil {
		return nil, err
	}
	calendars, err := lru.New[string, *calendar.Coordinator](r.opts.MaxForms)
	if err != nil {
		return nil, err
	}

	ws := &Workspace{
		UserID:       userID,
		ClinicID:     clinicID,
		Screen:       ctrl,
		api:          r.api,
		cfg:          r.cfg,
		appointments: appointments,
		calendars:    calendars,
	}
	r.users.Add(k, ws)
	return ws, nil
}

// Drop discards every workspace of userID.
func (r *Registry) Drop(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.users.Keys() {
		if ws, ok := r.users.Peek(k); ok && ws.UserID == userID {
			r.users.Remove(k)
		}
	}
}

// Len counts the workspaces held, including expired ones not yet swept.
func (r *Registry) Len() int {
	return r.users.Len()
}

type Workspace struct {
	UserID   string
	ClinicID string
	Screen   *screen.Controller

	api Backend
	cfg screen.Config

	appointments *lru.Cache[string, *appointment.Coordinator]
	calendars    *lru.Cache[string, *calendar.Coordinator]
}

// AddAppointmentForm registers f and returns its id.
func (w *Workspace) AddAppointmentForm(f *appointment.Coordinator) string {
	id := uuid.NewString()
	w.appointments.Add(id, f)
	return id
}

func (w *Workspace) AppointmentForm(id string) (*appointment.Coordinator, error) {
	f, ok := w.appointments.Get(id)
	if !ok {
		return nil, ErrFormNotFound
	}
	return f, nil
}

func (w *Workspace) CloseAppointmentForm(id string) {
	w.appointments.Remove(id)
}

// OpenCalendarForm opens a schedule form, editing calendarID when non-zero.
func (w *Workspace) OpenCalendarForm(ctx context.Context, calendarID uint) (string, *calendar.Coordinator, error) {
	f := calendar.New(w.api, w.cfg.Logger)
	f.Open(ctx)
	if calendarID != 0 {
		if err := f.LoadExisting(ctx, calendarID); err != nil {
			return "", nil, err
		}
	}

	id := uuid.NewString()
	w.calendars.Add(id, f)
	return id, f, nil
}

func (w *Workspace) CalendarForm(id string) (*calendar.Coordinator, error) {
	f, ok := w.calendars.Get(id)
	if !ok {
		return nil, ErrFormNotFound
	}
	return f, nil
}

func (w *Workspace) CloseCalendarForm(id string) {
	w.calendars.Remove(id)
}

// OpenForms reports how many forms of each kind are open.
func (w *Workspace) OpenForms() (appointments, calendars int) {
	return w.appointments.Len(), w.calendars.Len()
}
