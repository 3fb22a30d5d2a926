package event

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fsyportal/internal/store"
)

const eventColumns = `event_id, event_name, day_number, start_time, end_time, description,
	attendance_required, venue, created_at, participant_dress_attire, counselor_dress_attire`

// Repository reads the schedule through the event routines.
type Repository struct {
	db store.Gateway
}

// NewRepository creates a repo.
func NewRepository(db store.Gateway) *Repository {
	return &Repository{db: db}
}

// All returns every scheduled event ordered by day and start time.
func (r *Repository) All(ctx context.Context) ([]Event, error) {
	var events []Event
	err := r.db.Query(ctx, `SELECT `+eventColumns+` FROM get_current_events()`, func(row pgx.Row) error {
		e, err := scanEvent(row)
		if err != nil {
			return err
		}
		events = append(events, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get_current_events: %w", err)
	}
	return events, nil
}

// Current returns the event with id, or the event running now when id is 0.
// It returns nil when there is none.
func (r *Repository) Current(ctx context.Context, id int64) (*Event, error) {
	return r.one(ctx, "get_current_event", `SELECT `+eventColumns+` FROM get_current_event($1)`, id)
}

// Next returns the first event that has not started yet, or nil.
func (r *Repository) Next(ctx context.Context) (*Event, error) {
	return r.one(ctx, "next_upcoming_event", `SELECT `+eventColumns+` FROM next_upcoming_event()`)
}

// ByID reads an event straight from daily_events, or nil.
func (r *Repository) ByID(ctx context.Context, id int64) (*Event, error) {
	return r.one(ctx, "daily_events", `
		SELECT event_id, event_name, day_number, start_time::text, end_time::text, description,
		       attendance_required, venue, created_at, participant_dress_attire, counselor_dress_attire
		FROM daily_events WHERE event_id = $1`, id)
}

func (r *Repository) one(ctx context.Context, what, sql string, args ...any) (*Event, error) {
	var found *Event
	err := r.db.Query(ctx, sql, func(row pgx.Row) error {
		if found != nil {
			return nil
		}
		e, err := scanEvent(row)
		if err != nil {
			return err
		}
		found = &e
		return nil
	}, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return found, nil
}

func scanEvent(row pgx.Row) (Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.Name, &e.DayNumber, &e.StartTime, &e.EndTime, &e.Description,
		&e.AttendanceRequired, &e.Venue, &e.CreatedAt, &e.ParticipantDressAttire, &e.CounselorDressAttire)
	return e, err
}
