package appointment

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/BruksfildServices01/vet-agenda/internal/domain/agenda"
)

type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Values are the raw form inputs. Ids are zero and strings empty when unset.
type Values struct {
	CalendarID uint          `json:"calendar_id"`
	TutorID    uint          `json:"tutor_id"`
	PetID      uint          `json:"pet_id"`
	ServiceID  uint          `json:"service_id"`
	Date       string        `json:"date"`
	Time       string        `json:"time"`
	Status     agenda.Status `json:"status"`
	StaffID    *uint         `json:"staff_id,omitempty"`
	Notes      string        `json:"notes"`
}

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FieldState is what a dependent select shows.
type FieldState struct {
	Enabled bool     `json:"enabled"`
	Loading bool     `json:"loading"`
	Options []Option `json:"options"`
	Value   string   `json:"value"`
}

func (f FieldState) has(value string) bool {
	for _, o := range f.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// Lookups hold the candidate lists fetched for the upstream values they are
// tagged with. A list tagged for other upstream values is ignored.
type Lookups struct {
	Services    []agenda.Service
	ServicesFor uint
	Pets        []agenda.Pet
	PetsFor     uint
	Slots       []agenda.AvailableSlot
	SlotsFor    string
}

// Pins are values that survive even when the fetched lists do not contain them.
type Pins struct {
	Mode      Mode
	ServiceID uint
	PetID     uint
	Time      string
}

type Derived struct {
	Values  Values     `json:"values"`
	Service FieldState `json:"service"`
	Pet     FieldState `json:"pet"`
	Time    FieldState `json:"time"`
}

// SlotKey identifies one available-slots request.
func SlotKey(calendarID uint, date string, serviceID uint) string {
	return fmt.Sprintf("%d|%s|%d", calendarID, date, serviceID)
}

func idString(v uint) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(v), 10)
}

// Derive computes every dependent field from the upstream values. It is the
// only place where enablement, options and clearing are decided.
func Derive(v Values, lk Lookups, pins Pins) Derived {
	d := Derived{Values: v}

	d.Service = deriveService(&d.Values, lk, pins)
	d.Pet = derivePet(&d.Values, lk, pins)
	d.Time = deriveTime(&d.Values, lk, pins)

	return d
}

func deriveService(v *Values, lk Lookups, pins Pins) FieldState {
	if v.CalendarID == 0 {
		v.ServiceID = 0
		return FieldState{Options: []Option{}}
	}
	if lk.ServicesFor != v.CalendarID {
		return FieldState{Loading: true, Options: []Option{}, Value: idString(v.ServiceID)}
	}

	fs := FieldState{Options: make([]Option, 0, len(lk.Services))}
	for _, s := range agenda.ActiveServices(lk.Services) {
		fs.Options = append(fs.Options, Option{Value: idString(s.ID), Label: s.Name})
	}
	fs.Enabled = len(fs.Options) > 0

	if v.ServiceID != 0 && !fs.has(idString(v.ServiceID)) {
		keep := pins.Mode == ModeEdit && v.ServiceID == pins.ServiceID
		if !keep {
			v.ServiceID = 0
		}
	}
	fs.Value = idString(v.ServiceID)
	return fs
}

func derivePet(v *Values, lk Lookups, pins Pins) FieldState {
	if v.TutorID == 0 {
		v.PetID = 0
		return FieldState{Options: []Option{}}
	}
	if lk.PetsFor != v.TutorID {
		return FieldState{Loading: true, Options: []Option{}, Value: idString(v.PetID)}
	}

	fs := FieldState{Options: make([]Option, 0, len(lk.Pets))}
	for _, p := range agenda.ActivePets(lk.Pets) {
		fs.Options = append(fs.Options, Option{Value: idString(p.ID), Label: p.Name + " (" + p.Species.Label() + ")"})
	}
	fs.Enabled = len(fs.Options) > 0

	if v.PetID != 0 && !fs.has(idString(v.PetID)) {
		keep := pins.Mode == ModeEdit && v.PetID == pins.PetID
		if !keep {
			v.PetID = 0
		}
	}
	fs.Value = idString(v.PetID)
	return fs
}

func deriveTime(v *Values, lk Lookups, pins Pins) FieldState {
	if v.CalendarID == 0 || v.Date == "" {
		if v.Time != pins.Time {
			v.Time = ""
		}
		return FieldState{Options: []Option{}, Value: v.Time}
	}

	key := SlotKey(v.CalendarID, v.Date, v.ServiceID)
	fs := FieldState{Options: []Option{}}
	seen := make(map[string]bool)

	if lk.SlotsFor != key {
		fs.Loading = true
	} else {
		for _, s := range lk.Slots {
			if !s.Available || seen[s.Time] {
				continue
			}
			seen[s.Time] = true
			fs.Options = append(fs.Options, Option{Value: s.Time, Label: s.Time})
		}
	}

	if pins.Time != "" && !seen[pins.Time] {
		seen[pins.Time] = true
		fs.Options = append(fs.Options, Option{Value: pins.Time, Label: pins.Time})
	}
	sort.SliceStable(fs.Options, func(i, j int) bool { return fs.Options[i].Value < fs.Options[j].Value })

	fs.Enabled = len(fs.Options) > 0

	if v.Time != "" && !seen[v.Time] && !fs.Loading {
		v.Time = ""
	}
	fs.Value = v.Time
	return fs
}

// exempt reports whether an empty field may be left unset: its dependency is
// chosen, the list has loaded and it yielded nothing.
func exempt(fs FieldState) bool {
	return !fs.Loading && len(fs.Options) == 0
}
