package schedule

// Direction values for a schedule.
const (
	DirectionToDevice   = "input"
	DirectionFromDevice = "output"
)

// ActionType is the only action type the device service knows.
const ActionType = "SchedulePropertyAction"

// LastDayOfMonth in DaysOfMonth selects the last day whatever its number.
const LastDayOfMonth = 32

// Schedule is a device-side timer. Times are HH:mm:ss and dates yyyy-MM-dd;
// DaysOfWeek counts from 1 = Sunday.
type Schedule struct {
	Key              int64          `json:"key,omitempty"`
	Direction        string         `json:"direction"`
	Name             string         `json:"name"`
	DisplayName      string         `json:"display_name,omitempty"`
	Active           bool           `json:"active"`
	UTC              bool           `json:"utc"`
	StartDate        string         `json:"start_date"`
	EndDate          string         `json:"end_date"`
	StartTimeEachDay string         `json:"start_time_each_day"`
	EndTimeEachDay   string         `json:"end_time_each_day"`
	DaysOfWeek       []int          `json:"days_of_week"`
	DaysOfMonth      []int          `json:"days_of_month"`
	MonthsOfYear     []int          `json:"months_of_year"`
	DayOccurOfMonth  []int          `json:"day_occur_of_month"`
	Duration         int            `json:"duration"`
	Interval         int            `json:"interval"`
	FixedActions     bool           `json:"fixed_actions,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// Clone returns an independent copy of s.
func (s *Schedule) Clone() *Schedule {
	cpy := *s
	cpy.DaysOfWeek = append([]int(nil), s.DaysOfWeek...)
	cpy.DaysOfMonth = append([]int(nil), s.DaysOfMonth...)
	cpy.MonthsOfYear = append([]int(nil), s.MonthsOfYear...)
	cpy.DayOccurOfMonth = append([]int(nil), s.DayOccurOfMonth...)
	if s.Metadata != nil {
		cpy.Metadata = make(map[string]any, len(s.Metadata))
		for k, v := range s.Metadata {
			cpy.Metadata[k] = v
		}
	}
	return &cpy
}

// reset clears the time window and recurrence of a schedule.
func (s *Schedule) reset() {
	s.StartDate = ""
	s.EndDate = ""
	s.StartTimeEachDay = "00:00:00"
	s.EndTimeEachDay = ""
	s.DaysOfWeek = nil
	s.DaysOfMonth = nil
	s.MonthsOfYear = nil
	s.DayOccurOfMonth = nil
	s.Duration = 0
	s.Interval = 0
}

// FirePoint says when in the schedule window an action fires.
type FirePoint int

const (
	AtStart FirePoint = iota
	AtEnd
	InRange
)

// Action sets a property when its schedule fires.
type Action struct {
	Key      int64  `json:"key,omitempty"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	InRange  bool   `json:"in_range"`
	AtStart  bool   `json:"at_start"`
	AtEnd    bool   `json:"at_end"`
	Active   bool   `json:"active"`
	BaseType string `json:"base_type"`
	Value    string `json:"value"`
}

// NewAction builds an active property action firing at the given point.
func NewAction(property, baseType, value string, at FirePoint) Action {
	a := Action{Name: property, Type: ActionType, Active: true, BaseType: baseType, Value: value}
	a.SetFirePoint(at)
	return a
}

// SetFirePoint makes exactly one of AtStart, AtEnd and InRange true.
func (a *Action) SetFirePoint(at FirePoint) {
	a.AtStart = at == AtStart
	a.AtEnd = at == AtEnd
	a.InRange = at == InRange
}

type scheduleWrapper struct {
	Schedule *Schedule `json:"schedule"`
}

type actionWrapper struct {
	Action *Action `json:"schedule_action"`
}
