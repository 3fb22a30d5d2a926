// Package checkin holds the attendance check-in screen state: a synced
// roster, local edits against it and the set of unsaved changes. It talks to
// the outside world only through the interfaces below, so the same view
// drives the terminal client and tests.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"fsyportal/internal/attendance"
	"fsyportal/internal/event"
)

// ErrUpcoming is returned by Open for events that have not started.
var ErrUpcoming = errors.New("event has not started")

const upcomingWarning = "Cannot check attendance for upcoming events"

// ErrRosterUnavailable is returned by Load when there is no company/group to
// load for or the fetch fails. The view is left empty.
var ErrRosterUnavailable = errors.New("roster unavailable")

// ErrNotLoaded is returned when an operation needs a roster that was never
// loaded.
var ErrNotLoaded = errors.New("roster not loaded")

// RosterSource reads and writes a group's attendance.
type RosterSource interface {
	Roster(ctx context.Context, eventID, companyID, groupID int64) (attendance.Roster, error)
	Submit(ctx context.Context, sub attendance.Submission) error
}

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier shows transient messages to the operator.
type Notifier interface {
	Notify(level Level, msg string)
}

// Prompter asks the operator a yes/no question.
type Prompter interface {
	Confirm(msg string) bool
}

// Navigator leaves the check-in screen.
type Navigator interface {
	Leave()
}

// Clock reports the venue wall-clock time as HH:MM:SS.
type Clock interface {
	Now() string
}

// Group identifies whose roster the view edits and who submits it.
type Group struct {
	CompanyID int64
	GroupID   int64
	UserID    int64
}

// SubmitError wraps a failed submission. Local state is untouched, so the
// same submission can be retried.
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string { return "submit attendance: " + e.Err.Error() }
func (e *SubmitError) Unwrap() error { return e.Err }

// Retryable is always true: a failed submit changes nothing locally.
func (e *SubmitError) Retryable() bool { return true }

// Stats counts members per status.
type Stats struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Excused int `json:"excused"`
	NotSet  int `json:"not_set"`
}

// Total is the number of members counted.
func (s Stats) Total() int {
	return s.Present + s.Absent + s.Excused + s.NotSet
}

type entry struct {
	member attendance.Member
	synced attendance.Status
}

// Options configures a View.
type Options struct {
	Source    RosterSource
	Notifier  Notifier
	Prompter  Prompter
	Navigator Navigator
	Group     Group

	// LeaveDelay is how long the success message stays up before the view
	// navigates away after a submit.
	LeaveDelay time.Duration

	// AfterFunc schedules the delayed navigation. Defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, f func())

	Clock Clock
	Log   *zap.Logger
}

// View is the check-in state for one event. It is safe for concurrent use.
type View struct {
	opts Options
	log  *zap.Logger

	mu      sync.Mutex
	event   event.Event
	loaded  bool
	gen     int
	entries []entry
	index   map[int64]int
	pending map[int64]struct{}
}

// New returns an empty view.
func New(opts Options) *View {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}
	if opts.LeaveDelay == 0 {
		opts.LeaveDelay = 1500 * time.Millisecond
	}
	return &View{
		opts:    opts,
		log:     opts.Log.Named("checkin"),
		index:   map[int64]int{},
		pending: map[int64]struct{}{},
	}
}

// Open selects ev for check-in. Upcoming events are rejected with a warning
// and nothing is fetched; otherwise the roster is loaded.
func (v *View) Open(ctx context.Context, ev event.Event) error {
	status := ev.Status
	if status == "" {
		status = event.Classify(ev.StartTime, ev.EndTime, v.now())
	}
	if !event.CanCheckIn(status) {
		v.notify(LevelWarning, upcomingWarning)
		return ErrUpcoming
	}
	v.mu.Lock()
	v.event = ev
	v.event.Status = status
	v.mu.Unlock()
	return v.Load(ctx)
}

// Load fetches the roster and makes it the synced baseline. Pending edits are
// discarded.
func (v *View) Load(ctx context.Context) error {
	v.mu.Lock()
	eventID := v.event.ID
	v.mu.Unlock()

	g := v.opts.Group
	if g.CompanyID <= 0 || g.GroupID <= 0 {
		v.reset()
		v.notify(LevelError, "No company or group assigned")
		return ErrRosterUnavailable
	}
	roster, err := v.opts.Source.Roster(ctx, eventID, g.CompanyID, g.GroupID)
	if err != nil {
		v.reset()
		v.notify(LevelError, "Failed to load participants")
		return fmt.Errorf("%w: %w", ErrRosterUnavailable, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries = v.entries[:0]
	clear(v.index)
	clear(v.pending)
	for _, m := range append(slices.Clone(roster.Participants), roster.Counselors...) {
		if !m.AttendanceStatus.Valid() {
			m.AttendanceStatus = attendance.StatusNotSet
		}
		v.index[m.FsyID] = len(v.entries)
		v.entries = append(v.entries, entry{member: m, synced: m.AttendanceStatus})
	}
	v.loaded = true
	v.gen++
	v.log.Debug("roster loaded", zap.Int64("event_id", eventID), zap.Int("members", len(v.entries)))
	return nil
}

// reset drops the roster so nothing stale can be edited or submitted.
func (v *View) reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries = nil
	clear(v.index)
	clear(v.pending)
	v.loaded = false
	v.gen++
}

// Event is the event being checked in.
func (v *View) Event() event.Event {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.event
}

// Advance moves one member to the next status in the cycle and returns it.
func (v *View) Advance(fsyID int64) (attendance.Status, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	i, ok := v.index[fsyID]
	if !ok {
		return "", fmt.Errorf("member %d not in roster", fsyID)
	}
	next := v.entries[i].member.AttendanceStatus.Next()
	v.set(i, next)
	return next, nil
}

// AllPresent marks every member Present.
func (v *View) AllPresent() { v.setAll(attendance.StatusPresent) }

// ClearAll resets every member to Not Set.
func (v *View) ClearAll() { v.setAll(attendance.StatusNotSet) }

func (v *View) setAll(s attendance.Status) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.entries {
		v.set(i, s)
	}
}

// set updates entry i and its pending membership. Callers hold mu.
func (v *View) set(i int, s attendance.Status) {
	e := &v.entries[i]
	e.member.AttendanceStatus = s
	if s == e.synced {
		delete(v.pending, e.member.FsyID)
	} else {
		v.pending[e.member.FsyID] = struct{}{}
	}
}

// Pending returns the ids of members with unsaved changes, in roster order.
func (v *View) Pending() []int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]int64, 0, len(v.pending))
	for _, e := range v.entries {
		if _, ok := v.pending[e.member.FsyID]; ok {
			out = append(out, e.member.FsyID)
		}
	}
	return out
}

// Dirty reports whether there are unsaved changes.
func (v *View) Dirty() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.pending) > 0
}

// Roster returns the current local roster.
func (v *View) Roster() attendance.Roster {
	v.mu.Lock()
	defer v.mu.Unlock()
	members := make([]attendance.Member, len(v.entries))
	for i, e := range v.entries {
		members[i] = e.member
	}
	return attendance.Split(members)
}

// Synced returns a member's last-synced status.
func (v *View) Synced(fsyID int64) (attendance.Status, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	i, ok := v.index[fsyID]
	if !ok {
		return "", false
	}
	return v.entries[i].synced, true
}

// Stats counts participants per status. Counselors are not counted.
func (v *View) Stats() Stats {
	v.mu.Lock()
	defer v.mu.Unlock()
	var s Stats
	for _, e := range v.entries {
		if e.member.Type != attendance.TypeParticipant {
			continue
		}
		switch e.member.AttendanceStatus {
		case attendance.StatusPresent:
			s.Present++
		case attendance.StatusAbsent:
			s.Absent++
		case attendance.StatusExcused:
			s.Excused++
		default:
			s.NotSet++
		}
	}
	return s
}

// Submit sends the whole roster. On success the current statuses become the
// synced baseline and the view leaves after LeaveDelay. On failure nothing
// changes and a *SubmitError is returned.
func (v *View) Submit(ctx context.Context) error {
	v.mu.Lock()
	if !v.loaded {
		v.mu.Unlock()
		return ErrNotLoaded
	}
	g := v.opts.Group
	sub := attendance.Submission{
		EventID:      v.event.ID,
		CompanyID:    g.CompanyID,
		GroupID:      g.GroupID,
		UserID:       g.UserID,
		Participants: []attendance.Mark{},
		Counselors:   []attendance.Mark{},
	}
	gen := v.gen
	sent := make([]attendance.Status, len(v.entries))
	for i, e := range v.entries {
		sent[i] = e.member.AttendanceStatus
		mark := attendance.Mark{FsyID: e.member.FsyID, Status: e.member.AttendanceStatus}
		if e.member.Type == attendance.TypeCounselor {
			sub.Counselors = append(sub.Counselors, mark)
		} else {
			sub.Participants = append(sub.Participants, mark)
		}
	}
	v.mu.Unlock()

	if err := v.opts.Source.Submit(ctx, sub); err != nil {
		v.log.Warn("submit failed", zap.Int64("event_id", sub.EventID), zap.Error(err))
		v.notify(LevelError, "Failed to submit attendance. Please try again.")
		return &SubmitError{Err: err}
	}

	v.mu.Lock()
	// A reload while the request was in flight already replaced the baseline.
	if gen == v.gen {
		for i := range v.entries {
			v.entries[i].synced = sent[i]
			v.set(i, v.entries[i].member.AttendanceStatus)
		}
	}
	v.mu.Unlock()

	v.notify(LevelSuccess, "Attendance submitted successfully")
	if v.opts.Navigator != nil {
		v.opts.AfterFunc(v.opts.LeaveDelay, v.opts.Navigator.Leave)
	}
	return nil
}

// Back leaves the view. With unsaved changes the operator must confirm, and
// confirming discards them. It reports whether the view was left.
func (v *View) Back() bool {
	if v.Dirty() {
		if v.opts.Prompter == nil || !v.opts.Prompter.Confirm("You have unsaved changes. Leave without saving?") {
			return false
		}
		v.discard()
	}
	if v.opts.Navigator != nil {
		v.opts.Navigator.Leave()
	}
	return true
}

func (v *View) discard() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.entries {
		v.entries[i].member.AttendanceStatus = v.entries[i].synced
	}
	clear(v.pending)
}

func (v *View) now() string {
	if v.opts.Clock == nil {
		return time.Now().Format("15:04:05")
	}
	return v.opts.Clock.Now()
}

func (v *View) notify(level Level, msg string) {
	if v.opts.Notifier != nil {
		v.opts.Notifier.Notify(level, msg)
	}
}
