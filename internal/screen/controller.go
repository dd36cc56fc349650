// Package screen drives the schedule page: which date and calendars are shown,
// their timelines, and what a click on them opens.
package screen

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/BruksfildServices01/vet-agenda/internal/domain/agenda"
	"github.com/BruksfildServices01/vet-agenda/internal/form/appointment"
	"github.com/BruksfildServices01/vet-agenda/internal/httperr"
	"github.com/BruksfildServices01/vet-agenda/internal/logging"
	"github.com/BruksfildServices01/vet-agenda/internal/metrics"
	"github.com/BruksfildServices01/vet-agenda/internal/timeline"
	"github.com/BruksfildServices01/vet-agenda/internal/timezone"
)

const (
	DefaultCacheSize = 512
	maxParallelFetch = 8
)

// Backend is the part of the clinic API the schedule page and the forms it
// opens need.
type Backend interface {
	appointment.Backend
	GetTimeline(ctx context.Context, calendarID uint, date time.Time) ([]agenda.TimelineSlot, error)
	GetAppointment(ctx context.Context, appointmentID uint) (*agenda.Appointment, error)
}

type Config struct {
	Location  *time.Location
	Now       func() time.Time
	Logger    *logging.Logger
	Metrics   *metrics.BackendMetrics
	CacheSize int
	Timeline  timeline.Options
}

type cacheKey struct {
	CalendarID uint
	Date       string
}

// Controller holds one user's schedule page.
type Controller struct {
	api     Backend
	cfg     Config
	logger  *logging.Logger
	metrics *metrics.BackendMetrics
	cache   *lru.Cache[cacheKey, []agenda.TimelineSlot]

	mu        sync.Mutex
	date      time.Time
	selected  []uint
	selection bool
	loaded    bool
	calendars []agenda.ResourceCalendar
	timelines map[uint][]agenda.TimelineSlot
	failed    map[uint]bool
	notices   []httperr.Notification
	// refreshes started; only the latest may publish
	gen uint64
}

func New(api Backend, cfg Config) (*Controller, error) {
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
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}

	cache, err := lru.New[cacheKey, []agenda.TimelineSlot](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("timeline cache: %w", err)
	}

	return &Controller{
		api:       api,
		cfg:       cfg,
		logger:    cfg.Logger.With("component", "schedule_screen"),
		metrics:   cfg.Metrics,
		cache:     cache,
		date:      timezone.StartOfDay(cfg.Now().In(cfg.Location)),
		timelines: map[uint][]agenda.TimelineSlot{},
		failed:    map[uint]bool{},
	}, nil
}

// Load fetches the active calendars and shows all of them unless a selection
// was already made, then refreshes the timelines.
func (c *Controller) Load(ctx context.Context) error {
	cals, err := c.api.ListCalendars(ctx, true)
	if err != nil {
		c.logger.Warn("calendar list failed", "kind", httperr.KindOf(err).String(), "error", err)
		c.notify(httperr.Notify(err))
		return err
	}
	cals = agenda.ActiveCalendars(cals)

	c.mu.Lock()
	c.calendars = cals
	c.loaded = true
	if !c.selection {
		c.selected = make([]uint, 0, len(cals))
		for _, cal := range cals {
			c.selected = append(c.selected, cal.ID)
		}
		c.selection = true
	} else {
		c.selected = c.knownLocked(c.selected)
	}
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// SetDate switches the page to date ("YYYY-MM-DD").
func (c *Controller) SetDate(ctx context.Context, date string) error {
	d, err := timezone.ParseDate(date, c.cfg.Location)
	if err != nil {
		return httperr.ErrField("date", "invalid_date_or_time")
	}
	c.mu.Lock()
	c.date = d
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// SetSelection shows exactly ids, in that order. Unknown ids are dropped.
func (c *Controller) SetSelection(ctx context.Context, ids []uint) error {
	c.mu.Lock()
	c.selected = c.knownLocked(ids)
	c.selection = true
	c.mu.Unlock()
	return c.Refresh(ctx)
}

func (c *Controller) knownLocked(ids []uint) []uint {
	known := make(map[uint]bool, len(c.calendars))
	for _, cal := range c.calendars {
		known[cal.ID] = true
	}
	out := make([]uint, 0, len(ids))
	seen := map[uint]bool{}
	for _, id := range ids {
		if known[id] && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Refresh fetches, in parallel, the timeline of every selected calendar that
// is not cached for the current date. A failed calendar shows an empty
// timeline; the others are unaffected. The view changes once, after all
// fetches finished, and only if no later refresh was started meanwhile.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	date := c.date
	ids := append([]uint(nil), c.selected...)
	c.mu.Unlock()

	day := timezone.FormatDate(date)
	timelines := make(map[uint][]agenda.TimelineSlot, len(ids))
	failed := map[uint]bool{}

	var missing []uint
	for _, id := range ids {
		if slots, ok := c.cache.Get(cacheKey{CalendarID: id, Date: day}); ok {
			c.metrics.ObserveCache(true)
			timelines[id] = slots
			continue
		}
		c.metrics.ObserveCache(false)
		missing = append(missing, id)
	}

	var resMu sync.Mutex
	var g errgroup.Group
	g.SetLimit(maxParallelFetch)
	for _, id := range missing {
		g.Go(func() error {
			slots, err := c.api.GetTimeline(ctx, id, date)
			resMu.Lock()
			defer resMu.Unlock()
			if err != nil {
				c.logger.Warn("timeline fetch failed", "calendar_id", id, "date", day, "kind", httperr.KindOf(err).String(), "error", err)
				timelines[id] = []agenda.TimelineSlot{}
				failed[id] = true
				return nil
			}
			if slots == nil {
				slots = []agenda.TimelineSlot{}
			}
			c.cache.Add(cacheKey{CalendarID: id, Date: day}, slots)
			timelines[id] = slots
			return nil
		})
	}
	_ = g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		// a newer date or selection is being fetched; it publishes instead
		return nil
	}
	c.timelines = timelines
	c.failed = failed
	if len(failed) > 0 {
		c.notices = append(c.notices, httperr.Warning(
			"Some schedules could not be loaded",
			fmt.Sprintf("%d of %d calendars are shown empty.", len(failed), len(ids)),
		))
	}
	return nil
}

// Reload drops the cached timelines of ids, on every date, and refreshes.
// Without ids every calendar is dropped.
func (c *Controller) Reload(ctx context.Context, ids ...uint) error {
	if len(ids) == 0 {
		c.cache.Purge()
		return c.Refresh(ctx)
	}
	c.Invalidate(ids...)
	return c.Refresh(ctx)
}

// AfterSubmit reloads the timelines touched by a saved appointment. also names
// further calendars, e.g. the one an edited appointment moved away from.
func (c *Controller) AfterSubmit(ctx context.Context, saved *agenda.Appointment, also ...uint) error {
	ids := append([]uint(nil), also...)
	if saved != nil && saved.CalendarID != 0 {
		ids = append(ids, saved.CalendarID)
	}
	if len(ids) == 0 {
		return nil
	}
	return c.Reload(ctx, ids...)
}

// AfterCalendarSaved refreshes the calendar list and reloads cal's timelines.
// A newly created calendar joins the selection if it is active.
func (c *Controller) AfterCalendarSaved(ctx context.Context, cal *agenda.ResourceCalendar) error {
	if cal != nil && cal.ID != 0 {
		c.mu.Lock()
		found := false
		for _, id := range c.selected {
			if id == cal.ID {
				found = true
				break
			}
		}
		if !found && c.selection {
			c.selected = append(c.selected, cal.ID)
		}
		c.mu.Unlock()
		c.Invalidate(cal.ID)
	}
	return c.Load(ctx)
}

// Invalidate drops cached timelines of ids without fetching.
func (c *Controller) Invalidate(ids ...uint) {
	drop := make(map[uint]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	for _, k := range c.cache.Keys() {
		if drop[k.CalendarID] {
			c.cache.Remove(k)
		}
	}
}

func (c *Controller) notify(n httperr.Notification) {
	c.mu.Lock()
	c.notices = append(c.notices, n)
	c.mu.Unlock()
}

// FormConfig is the configuration appointment forms opened from this page share.
func (c *Controller) FormConfig() appointment.Config {
	return appointment.Config{
		Location: c.cfg.Location,
		Now:      c.cfg.Now,
		Logger:   c.cfg.Logger,
		Metrics:  c.metrics,
	}
}

// Loaded reports whether the calendar list was fetched at least once.
func (c *Controller) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Date is the selected day as "YYYY-MM-DD".
func (c *Controller) Date() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return timezone.FormatDate(c.date)
}
