package timeline

import (
	"github.com/BruksfildServices01/vet-agenda/internal/timezone"
)

type HitKind string

const (
	HitNone  HitKind = "none"
	HitEmpty HitKind = "empty"
	HitBlock HitKind = "block"
)

type Hit struct {
	Kind          HitKind `json:"kind"`
	AppointmentID uint    `json:"appointment_id,omitempty"`
	Time          string  `json:"time,omitempty"`
}

// HitTest resolves a click at vertical offset y. A click on a block is
// consumed by the topmost block and never reported as an empty-area click.
func HitTest(v View, y float64) Hit {
	if y < 0 || y >= v.Height {
		return Hit{Kind: HitNone}
	}

	for i := len(v.Blocks) - 1; i >= 0; i-- {
		b := v.Blocks[i]
		if y >= b.Top && y < b.Top+b.Height {
			return Hit{Kind: HitBlock, AppointmentID: b.AppointmentID, Time: b.Time}
		}
	}

	ppm := v.pixelsPerMinute
	if ppm <= 0 {
		ppm = DefaultPixelsPerMinute
	}

	if len(v.Markers) == 0 {
		m := v.StartMinute + int(y/ppm)
		return Hit{Kind: HitEmpty, Time: timezone.FormatClock(m/60, m%60)}
	}

	snap := v.Markers[0]
	for _, mk := range v.Markers {
		if mk.Top > y {
			break
		}
		snap = mk
	}
	return Hit{Kind: HitEmpty, Time: snap.Time}
}
