package checkin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fsyportal/internal/attendance"
	"fsyportal/internal/event"
)

type fakeSource struct {
	roster     attendance.Roster
	fetches    int
	submits    []attendance.Submission
	failSubmit error
	failRoster error
}

func (f *fakeSource) Roster(context.Context, int64, int64, int64) (attendance.Roster, error) {
	f.fetches++
	if f.failRoster != nil {
		return attendance.Roster{}, f.failRoster
	}
	return attendance.Roster{
		Participants: append([]attendance.Member(nil), f.roster.Participants...),
		Counselors:   append([]attendance.Member(nil), f.roster.Counselors...),
	}, nil
}

func (f *fakeSource) Submit(_ context.Context, sub attendance.Submission) error {
	if f.failSubmit != nil {
		return f.failSubmit
	}
	f.submits = append(f.submits, sub)
	byID := map[int64]attendance.Status{}
	for _, m := range append(sub.Participants, sub.Counselors...) {
		byID[m.FsyID] = m.Status
	}
	for i := range f.roster.Participants {
		f.roster.Participants[i].AttendanceStatus = byID[f.roster.Participants[i].FsyID]
	}
	for i := range f.roster.Counselors {
		f.roster.Counselors[i].AttendanceStatus = byID[f.roster.Counselors[i].FsyID]
	}
	return nil
}

type recorder struct {
	notes   []Level
	confirm bool
	asked   int
	left    int
}

func (r *recorder) Notify(level Level, _ string) { r.notes = append(r.notes, level) }

func (r *recorder) Confirm(string) bool {
	r.asked++
	return r.confirm
}

func (r *recorder) Leave() { r.left++ }

func member(id int64, typ attendance.MemberType, s attendance.Status) attendance.Member {
	return attendance.Member{FsyID: id, FirstName: "M", Type: typ, AttendanceStatus: s}
}

// sevenMembers is 5 participants and 2 counselors.
func sevenMembers() attendance.Roster {
	return attendance.Roster{
		Participants: []attendance.Member{
			member(1, attendance.TypeParticipant, attendance.StatusNotSet),
			member(2, attendance.TypeParticipant, attendance.StatusPresent),
			member(3, attendance.TypeParticipant, attendance.StatusNotSet),
			member(4, attendance.TypeParticipant, attendance.StatusAbsent),
			member(5, attendance.TypeParticipant, attendance.StatusNotSet),
		},
		Counselors: []attendance.Member{
			member(6, attendance.TypeCounselor, attendance.StatusPresent),
			member(7, attendance.TypeCounselor, attendance.StatusNotSet),
		},
	}
}

type fixedClock string

func (c fixedClock) Now() string { return string(c) }

type delayed struct {
	d time.Duration
	f func()
}

func newView(src *fakeSource, rec *recorder, sched *[]delayed) *View {
	return New(Options{
		Source:    src,
		Notifier:  rec,
		Prompter:  rec,
		Navigator: rec,
		Group:     Group{CompanyID: 3, GroupID: 9, UserID: 70},
		Clock:     fixedClock("13:45:00"),
		AfterFunc: func(d time.Duration, f func()) { *sched = append(*sched, delayed{d, f}) },
	})
}

var session = event.Event{ID: 4, Name: "Workshop", StartTime: "13:30:00", EndTime: "14:20:00"}

func openView(t *testing.T, roster attendance.Roster) (*View, *fakeSource, *recorder, *[]delayed) {
	t.Helper()
	src := &fakeSource{roster: roster}
	rec := &recorder{}
	sched := &[]delayed{}
	v := newView(src, rec, sched)
	require.NoError(t, v.Open(context.Background(), session))
	return v, src, rec, sched
}

func TestOpen_RejectsUpcomingWithoutFetch(t *testing.T) {
	src := &fakeSource{roster: sevenMembers()}
	rec := &recorder{}
	v := newView(src, rec, &[]delayed{})

	later := event.Event{ID: 5, StartTime: "15:00:00", EndTime: "16:00:00"}
	err := v.Open(context.Background(), later)
	assert.ErrorIs(t, err, ErrUpcoming)
	assert.Equal(t, 0, src.fetches)
	assert.Equal(t, []Level{LevelWarning}, rec.notes)
}

func TestOpen_UsesServerStatusWhenPresent(t *testing.T) {
	src := &fakeSource{roster: sevenMembers()}
	v := newView(src, &recorder{}, &[]delayed{})

	ev := event.Event{ID: 5, StartTime: "15:00:00", EndTime: "16:00:00", Status: event.StatusOngoing}
	require.NoError(t, v.Open(context.Background(), ev))
	assert.Equal(t, 1, src.fetches)
}

func TestAdvance_PendingTracksSyncedValue(t *testing.T) {
	v, _, _, _ := openView(t, attendance.Roster{
		Participants: []attendance.Member{
			member(1, attendance.TypeParticipant, attendance.StatusPresent),
			member(2, attendance.TypeParticipant, attendance.StatusNotSet),
		},
	})

	want := []attendance.Status{
		attendance.StatusPresent, attendance.StatusAbsent, attendance.StatusExcused, attendance.StatusNotSet,
	}
	for i, w := range want {
		got, err := v.Advance(2)
		require.NoError(t, err)
		assert.Equal(t, w, got)
		if i < len(want)-1 {
			assert.Equal(t, []int64{2}, v.Pending())
		}
	}
	assert.Empty(t, v.Pending())
	assert.False(t, v.Dirty())

	_, err := v.Advance(99)
	assert.Error(t, err)
}

func TestBulkOperations(t *testing.T) {
	v, _, _, _ := openView(t, sevenMembers())

	v.AllPresent()
	first := v.Roster()
	firstPending := v.Pending()
	v.AllPresent()
	assert.Equal(t, first, v.Roster())
	assert.Equal(t, firstPending, v.Pending())
	assert.Equal(t, []int64{1, 3, 4, 5, 7}, firstPending)

	v.ClearAll()
	for _, m := range append(v.Roster().Participants, v.Roster().Counselors...) {
		assert.Equal(t, attendance.StatusNotSet, m.AttendanceStatus)
	}
	// Members synced as anything but Not Set are now pending.
	assert.Equal(t, []int64{2, 4, 6}, v.Pending())
}

func TestStats(t *testing.T) {
	v, _, _, _ := openView(t, sevenMembers())
	s := v.Stats()
	assert.Equal(t, Stats{Present: 1, Absent: 1, NotSet: 3}, s)
	assert.Equal(t, 5, s.Total())
}

func TestSubmit_ClearsPendingAndLeavesAfterDelay(t *testing.T) {
	v, src, rec, sched := openView(t, sevenMembers())

	_, _ = v.Advance(1)
	_, _ = v.Advance(3)
	_, _ = v.Advance(7)
	require.Len(t, v.Pending(), 3)

	require.NoError(t, v.Submit(context.Background()))
	assert.Empty(t, v.Pending())

	require.Len(t, src.submits, 1)
	sub := src.submits[0]
	assert.Len(t, sub.Participants, 5)
	assert.Len(t, sub.Counselors, 2)
	assert.Equal(t, int64(70), sub.UserID)

	r := v.Roster()
	for _, m := range append(r.Participants, r.Counselors...) {
		synced, ok := v.Synced(m.FsyID)
		require.True(t, ok)
		assert.Equal(t, m.AttendanceStatus, synced)
	}

	require.Len(t, *sched, 1)
	assert.Equal(t, 1500*time.Millisecond, (*sched)[0].d)
	assert.Equal(t, 0, rec.left)
	(*sched)[0].f()
	assert.Equal(t, 1, rec.left)
	assert.Contains(t, rec.notes, LevelSuccess)
}

func TestSubmit_FailureKeepsState(t *testing.T) {
	v, src, rec, sched := openView(t, sevenMembers())
	_, _ = v.Advance(1)
	before := v.Roster()

	src.failSubmit = errors.New("connection reset")
	err := v.Submit(context.Background())
	var se *SubmitError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Retryable())
	assert.Equal(t, before, v.Roster())
	assert.Equal(t, []int64{1}, v.Pending())
	assert.Empty(t, *sched)
	assert.Contains(t, rec.notes, LevelError)

	src.failSubmit = nil
	require.NoError(t, v.Submit(context.Background()))
	assert.Empty(t, v.Pending())
}

func TestSubmit_BeforeLoad(t *testing.T) {
	v := newView(&fakeSource{}, &recorder{}, &[]delayed{})
	assert.ErrorIs(t, v.Submit(context.Background()), ErrNotLoaded)
}

func TestLoad_RereadIsStable(t *testing.T) {
	v, _, _, _ := openView(t, sevenMembers())
	first := v.Roster()
	require.NoError(t, v.Load(context.Background()))
	assert.Equal(t, first, v.Roster())
	assert.Empty(t, v.Pending())
}

func TestBack_Guard(t *testing.T) {
	v, _, rec, _ := openView(t, sevenMembers())

	assert.True(t, v.Back())
	assert.Equal(t, 0, rec.asked)
	assert.Equal(t, 1, rec.left)

	_, _ = v.Advance(1)
	rec.confirm = false
	assert.False(t, v.Back())
	assert.Equal(t, 1, rec.asked)
	assert.Equal(t, 1, rec.left)
	assert.True(t, v.Dirty())

	rec.confirm = true
	assert.True(t, v.Back())
	assert.Equal(t, 2, rec.left)
	assert.False(t, v.Dirty())
	synced, _ := v.Synced(1)
	assert.Equal(t, synced, v.Roster().Participants[0].AttendanceStatus)
}

func TestOpen_FailedLoadDropsPreviousRoster(t *testing.T) {
	v, src, rec, _ := openView(t, sevenMembers())
	v.AllPresent()
	require.NotEmpty(t, v.Pending())

	src.failRoster = errors.New("db down")
	next := event.Event{ID: 8, StartTime: "13:00:00", EndTime: "14:00:00"}
	err := v.Open(context.Background(), next)
	assert.ErrorIs(t, err, ErrRosterUnavailable)
	assert.Contains(t, rec.notes, LevelError)

	assert.Equal(t, 0, v.Roster().Len())
	assert.Empty(t, v.Pending())
	assert.False(t, v.Dirty())
	assert.ErrorIs(t, v.Submit(context.Background()), ErrNotLoaded)
	assert.Len(t, src.submits, 0)
}

func TestLoad_NoGroupMakesNoFetch(t *testing.T) {
	src := &fakeSource{roster: sevenMembers()}
	v := New(Options{Source: src, Clock: fixedClock("13:45:00")})

	err := v.Open(context.Background(), session)
	assert.ErrorIs(t, err, ErrRosterUnavailable)
	assert.Equal(t, 0, src.fetches)
	assert.Equal(t, 0, v.Roster().Len())
	assert.ErrorIs(t, v.Submit(context.Background()), ErrNotLoaded)
}
