package attendance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"fsyportal/internal/apperr"
	"fsyportal/internal/store"
)

// Repository persists attendance through the roster routines.
type Repository struct {
	db store.Gateway
}

// NewRepository creates a repo.
func NewRepository(db store.Gateway) *Repository {
	return &Repository{db: db}
}

// Roster returns the approved members of a company group with their status
// for eventID.
func (r *Repository) Roster(ctx context.Context, eventID, companyID, groupID int64) ([]Member, error) {
	var members []Member
	err := r.db.Query(ctx, `
		SELECT fsy_id, first_name, last_name, email, phone_number, stake_name, unit_name,
		       participant_type, status, attendance_status
		FROM get_participants($1, $2, $3)
	`, func(row pgx.Row) error {
		var (
			m                              Member
			email, phone, stake, unit, reg pgtype.Text
			typ, status                    string
		)
		if err := row.Scan(&m.FsyID, &m.FirstName, &m.LastName, &email, &phone, &stake, &unit, &typ, &reg, &status); err != nil {
			return err
		}
		m.Email, m.PhoneNumber, m.StakeName, m.UnitName = email.String, phone.String, stake.String, unit.String
		m.RegistrationStatus = reg.String
		m.Type = MemberType(typ)
		m.AttendanceStatus = Status(status)
		members = append(members, m)
		return nil
	}, eventID, companyID, groupID)
	if err != nil {
		return nil, fmt.Errorf("get_participants: %w", err)
	}
	return members, nil
}

// Submit writes every mark of a submission in one routine call.
func (r *Repository) Submit(ctx context.Context, sub Submission) error {
	participants, err := json.Marshal(nonNil(sub.Participants))
	if err != nil {
		return fmt.Errorf("encode participants: %w", err)
	}
	counselors, err := json.Marshal(nonNil(sub.Counselors))
	if err != nil {
		return fmt.Errorf("encode counselors: %w", err)
	}
	_, err = r.db.Exec(ctx, `CALL update_attendance($1, $2, $3, $4, $5::jsonb, $6::jsonb)`,
		sub.EventID, sub.CompanyID, sub.GroupID, sub.UserID, string(participants), string(counselors))
	if err != nil {
		return fmt.Errorf("update_attendance: %w", err)
	}
	return nil
}

// Record upserts a single member's status. The event must exist and the
// registration must be approved.
func (r *Repository) Record(ctx context.Context, eventID, fsyID int64, status Status, userID int64) error {
	return r.db.Tx(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM daily_events WHERE event_id = $1)`, eventID).Scan(&exists); err != nil {
			return fmt.Errorf("check event: %w", err)
		}
		if !exists {
			return apperr.NotFound("Event not found")
		}
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM registrations WHERE fsy_id = $1 AND status = 'Approved')
		`, fsyID).Scan(&exists); err != nil {
			return fmt.Errorf("check registration: %w", err)
		}
		if !exists {
			return apperr.NotFound("Participant not found")
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO attendances (event_id, fsy_id, attendance_status, user_id, timestamp)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (event_id, fsy_id) DO UPDATE SET
				attendance_status = EXCLUDED.attendance_status,
				user_id = EXCLUDED.user_id,
				timestamp = EXCLUDED.timestamp
		`, eventID, fsyID, string(status), userID)
		if err != nil {
			return fmt.Errorf("upsert attendance: %w", err)
		}
		return nil
	})
}

// Search finds approved registrations whose first, last or full name contains
// term, case-insensitively.
func (r *Repository) Search(ctx context.Context, term string, eventID int64, limit int) ([]SearchResult, error) {
	pattern := "%" + escapeLike(term) + "%"
	var results []SearchResult
	err := r.db.Query(ctx, `
		SELECT r.fsy_id,
		       r.first_name || ' ' || r.last_name,
		       COALESCE(r.stake_name, ''),
		       COALESCE(r.unit_name, ''),
		       COALESCE(a.attendance_status, 'Not Set')
		FROM registrations r
		LEFT JOIN attendances a ON a.fsy_id = r.fsy_id AND a.event_id = $1
		WHERE r.status = 'Approved'
		  AND (LOWER(r.first_name) LIKE LOWER($2)
		       OR LOWER(r.last_name) LIKE LOWER($2)
		       OR LOWER(r.first_name || ' ' || r.last_name) LIKE LOWER($2))
		ORDER BY r.first_name, r.last_name
		LIMIT $3
	`, func(row pgx.Row) error {
		var (
			res    SearchResult
			status string
		)
		if err := row.Scan(&res.FsyID, &res.Name, &res.Stake, &res.Unit, &status); err != nil {
			return err
		}
		res.AttendanceStatus = Status(status)
		results = append(results, res)
		return nil
	}, eventID, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search participants: %w", err)
	}
	return results, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nonNil(marks []Mark) []Mark {
	if marks == nil {
		return []Mark{}
	}
	return marks
}
