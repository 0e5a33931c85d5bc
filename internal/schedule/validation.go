package schedule

import (
	"time"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
)

const (
	timeLayout = "15:04:05"
	dateLayout = "2006-01-02"
)

// Validate checks a schedule before it is sent.
//
// Rules:
//   - name, direction and start_time_each_day are required
//   - times are HH:mm:ss and dates yyyy-MM-dd
//   - days_of_week 1..7, days_of_month 1..32, months_of_year 1..12,
//     day_occur_of_month 1..7
//   - duration and interval are not negative
func Validate(s *Schedule) error {
	if s == nil {
		return cloud.InvalidArgument("schedule is required")
	}
	if s.Name == "" {
		return cloud.InvalidArgument("schedule name is required")
	}
	if s.Direction != DirectionToDevice && s.Direction != DirectionFromDevice {
		return cloud.InvalidArgument("schedule direction must be %q or %q", DirectionToDevice, DirectionFromDevice)
	}
	if s.StartTimeEachDay == "" {
		return cloud.InvalidArgument("start time for each day is required")
	}

	for _, f := range []struct{ name, value string }{
		{"start_time_each_day", s.StartTimeEachDay},
		{"end_time_each_day", s.EndTimeEachDay},
	} {
		if err := checkLayout(f.name, f.value, timeLayout, "HH:mm:ss"); err != nil {
			return err
		}
	}
	for _, f := range []struct{ name, value string }{
		{"start_date", s.StartDate},
		{"end_date", s.EndDate},
	} {
		if err := checkLayout(f.name, f.value, dateLayout, "yyyy-MM-dd"); err != nil {
			return err
		}
	}
	if s.StartDate != "" && s.EndDate != "" && s.EndDate < s.StartDate {
		return cloud.InvalidArgument("end_date %s is before start_date %s", s.EndDate, s.StartDate)
	}

	ranges := []struct {
		name     string
		values   []int
		min, max int
	}{
		{"days_of_week", s.DaysOfWeek, 1, 7},
		{"days_of_month", s.DaysOfMonth, 1, LastDayOfMonth},
		{"months_of_year", s.MonthsOfYear, 1, 12},
		{"day_occur_of_month", s.DayOccurOfMonth, 1, 7},
	}
	for _, r := range ranges {
		for _, v := range r.values {
			if v < r.min || v > r.max {
				return cloud.InvalidArgument("%s value %d outside %d..%d", r.name, v, r.min, r.max)
			}
		}
	}

	if s.Duration < 0 || s.Interval < 0 {
		return cloud.InvalidArgument("duration and interval must not be negative")
	}
	return nil
}

func checkLayout(field, value, layout, human string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse(layout, value); err != nil {
		return cloud.InvalidArgument("%s %q is not %s", field, value, human)
	}
	return nil
}

// ValidateAction checks the fields the device service requires on an action.
func ValidateAction(a *Action) error {
	switch {
	case a == nil:
		return cloud.InvalidArgument("schedule action is required")
	case a.Name == "":
		return cloud.InvalidArgument("schedule action name is required")
	case a.Type == "":
		return cloud.InvalidArgument("schedule action type is required")
	case a.Value == "":
		return cloud.InvalidArgument("schedule action value is required")
	case a.BaseType == "":
		return cloud.InvalidArgument("schedule action base type is required")
	}
	n := 0
	for _, b := range []bool{a.AtStart, a.AtEnd, a.InRange} {
		if b {
			n++
		}
	}
	if n > 1 {
		return cloud.InvalidArgument("schedule action %s may fire at only one point", a.Name)
	}
	return nil
}
