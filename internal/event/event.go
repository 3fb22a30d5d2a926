// Package event serves the program schedule and classifies events against
// the venue wall clock.
package event

import (
	"strings"
	"time"
)

// Status is an event's position relative to the current venue time.
type Status string

const (
	StatusPast     Status = "past"
	StatusOngoing  Status = "ongoing"
	StatusUpcoming Status = "upcoming"
)

// Event is one scheduled activity. Start and end are venue-local wall-clock
// times formatted HH:MM:SS.
type Event struct {
	ID                     int64     `json:"event_id"`
	Name                   string    `json:"event_name"`
	DayNumber              int       `json:"day_number"`
	StartTime              string    `json:"start_time"`
	EndTime                string    `json:"end_time"`
	Description            *string   `json:"description"`
	AttendanceRequired     string    `json:"attendance_required"`
	Venue                  *string   `json:"venue"`
	CreatedAt              time.Time `json:"created_at"`
	ParticipantDressAttire *string   `json:"participant_dress_attire,omitempty"`
	CounselorDressAttire   *string   `json:"counselor_dress_attire,omitempty"`
	Status                 Status    `json:"status,omitempty"`
}

// Classify places now relative to [start, end]. All three are wall-clock
// times; both bounds are inclusive.
func Classify(start, end, now string) Status {
	start, end, now = normalizeClock(start), normalizeClock(end), normalizeClock(now)
	switch {
	case end < now:
		return StatusPast
	case start <= now && now <= end:
		return StatusOngoing
	default:
		return StatusUpcoming
	}
}

// CanCheckIn reports whether attendance may be taken for an event in status s.
func CanCheckIn(s Status) bool {
	return s == StatusOngoing || s == StatusPast
}

// Annotate returns a copy of events with Status set for the given time.
func Annotate(events []Event, now string) []Event {
	out := make([]Event, len(events))
	for i, e := range events {
		e.Status = Classify(e.StartTime, e.EndTime, now)
		out[i] = e
	}
	return out
}

// normalizeClock turns "9:05", "09:05" or "09:05:00.000" into "09:05:00" so
// that lexical comparison matches chronological order.
func normalizeClock(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	for _, layout := range []string{"15:04:05", "15:04", "3:04:05", "3:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04:05")
		}
	}
	return s
}

// Clock reports the current wall-clock time at the venue.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock returns a clock for loc. A nil now uses time.Now.
func NewClock(loc *time.Location, now func() time.Time) Clock {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return Clock{loc: loc, now: now}
}

// Now returns the venue-local time as HH:MM:SS.
func (c Clock) Now() string {
	return c.now().In(c.loc).Format("15:04:05")
}
