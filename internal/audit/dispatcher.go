package audit

import (
	"sync"

	"github.com/BruksfildServices01/vet-agenda/internal/logging"
)

const (
	ActionAppointmentCreated = "appointment_created"
	ActionAppointmentUpdated = "appointment_updated"
	ActionCalendarCreated    = "calendar_created"
	ActionCalendarUpdated    = "calendar_updated"

	EntityAppointment = "appointment"
	EntityCalendar    = "schedule"

	queueSize = 100
)

type Event struct {
	ClinicID string
	UserID   string
	Action   string
	Entity   string
	EntityID *uint
	Metadata any
}

// Dispatcher writes events on a background worker. A nil Dispatcher drops
// everything, which is how auditing is disabled.
type Dispatcher struct {
	sink   Sink
	logger *logging.Logger
	queue  chan Event
	done   sync.WaitGroup
	once   sync.Once
}

func NewDispatcher(sink Sink, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	d := &Dispatcher{
		sink:   sink,
		logger: logger.With("component", "audit"),
		queue:  make(chan Event, queueSize),
	}

	d.done.Add(1)
	go d.worker()
	return d
}

func (d *Dispatcher) worker() {
	defer d.done.Done()
	for ev := range d.queue {
		if err := d.sink.Write(ev); err != nil {
			d.logger.Error("audit write failed", "action", ev.Action, "entity", ev.Entity, "error", err)
		}
	}
}

// Dispatch never blocks: when the queue is full the event is dropped.
func (d *Dispatcher) Dispatch(ev Event) {
	if d == nil {
		return
	}
	select {
	case d.queue <- ev:
	default:
		d.logger.Warn("audit queue full, dropping event", "action", ev.Action)
	}
}

// Close stops accepting events and waits for the queued ones to be written.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() { close(d.queue) })
	d.done.Wait()
}

// ID is a helper for the EntityID field.
func ID(v uint) *uint {
	if v == 0 {
		return nil
	}
	return &v
}
