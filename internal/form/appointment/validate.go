package appointment

import (
	"time"

	"github.com/BruksfildServices01/vet-agenda/internal/httperr"
	"github.com/BruksfildServices01/vet-agenda/internal/timezone"
)

// Validate checks the values against now and returns error codes keyed by field.
func Validate(v Values, now time.Time, loc *time.Location) map[string]string {
	errs := map[string]string{}

	if v.Date != "" {
		day, err := timezone.ParseDate(v.Date, loc)
		switch {
		case err != nil:
			errs["date"] = "invalid_date_or_time"
		case day.Before(timezone.StartOfDay(now.In(loc))):
			errs["date"] = "past_date"
		case v.Time != "":
			at, err := timezone.ParseDateTime(v.Date, v.Time, loc)
			if err != nil {
				errs["time"] = "invalid_date_or_time"
			} else if at.Before(now) {
				errs["date"] = "past_date"
			}
		}
	}

	if v.Status != "" && !v.Status.Valid() {
		errs["status"] = "invalid_status"
	}

	return errs
}

// Submittable returns nil when d may be sent, otherwise the first blocking reason.
func Submittable(d Derived, errs map[string]string) error {
	for _, field := range []string{"date", "time", "status"} {
		if code, bad := errs[field]; bad {
			return httperr.ErrField(field, code)
		}
	}

	v := d.Values
	switch {
	case v.CalendarID == 0:
		return httperr.ErrField("calendar_id", "form_incomplete")
	case v.TutorID == 0:
		return httperr.ErrField("tutor_id", "form_incomplete")
	case v.Date == "":
		return httperr.ErrField("date", "form_incomplete")
	case v.Time == "":
		return httperr.ErrField("time", "form_incomplete")
	case v.ServiceID == 0 && !exempt(d.Service):
		return httperr.ErrField("service_id", "form_incomplete")
	case v.PetID == 0 && !exempt(d.Pet):
		return httperr.ErrField("pet_id", "form_incomplete")
	}
	return nil
}

func messages(codes map[string]string) map[string]string {
	out := make(map[string]string, len(codes))
	for field, code := range codes {
		out[field] = httperr.BusinessError{Code: code}.Message()
	}
	return out
}
