package model

// Interval is a half-open time range [Start, End) in minutes.
type Interval struct {
	Start int
	End   int
}

// Len returns the interval length in minutes.
func (i Interval) Len() int { return i.End - i.Start }

// Overlaps reports whether two intervals share any instant.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && o.Start < i.End
}

// Contains reports whether o lies entirely inside i.
func (i Interval) Contains(o Interval) bool {
	return o.Start >= i.Start && o.End <= i.End
}

// MinutesPerDay is the calendar day length used to expand shift
// windows over the horizon.
const MinutesPerDay = 24 * 60

// ShiftWindow is one open period of a machine's weekly calendar.
// Weekday 0 is the first day of the scheduling horizon.
type ShiftWindow struct {
	Weekday  int `json:"weekday"`
	StartMin int `json:"start_min"`
	EndMin   int `json:"end_min"`
}

// Machine is a unit-capacity resource with a working calendar. At any
// instant a machine executes at most one operation.
type Machine struct {
	ID       string
	Calendar []ShiftWindow
}

// OpenWindows expands the weekly calendar into absolute open intervals
// covering [0, horizon). A machine without calendar entries is treated
// as always open.
func (m Machine) OpenWindows(horizon int) []Interval {
	if len(m.Calendar) == 0 {
		return []Interval{{Start: 0, End: horizon}}
	}
	var windows []Interval
	for day := 0; day*MinutesPerDay < horizon; day++ {
		weekday := day % 7
		base := day * MinutesPerDay
		for _, w := range m.Calendar {
			if w.Weekday != weekday {
				continue
			}
			iv := Interval{Start: base + w.StartMin, End: base + w.EndMin}
			if iv.Start >= horizon {
				continue
			}
			if iv.End > horizon {
				iv.End = horizon
			}
			windows = append(windows, iv)
		}
	}
	return windows
}
