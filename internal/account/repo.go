package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"fsyportal/internal/apperr"
	"fsyportal/internal/auth"
	"fsyportal/internal/store"
)

// Repository reads accounts through the user routines.
type Repository struct {
	db store.Gateway
}

// NewRepository creates a repo.
func NewRepository(db store.Gateway) *Repository {
	return &Repository{db: db}
}

// UserByEmail returns the account for email, or nil.
func (r *Repository) UserByEmail(ctx context.Context, email string) (*User, error) {
	var found *User
	err := r.db.Query(ctx, `
		SELECT user_id, full_name, user_type, email, phone_number, password_hash, fsy_id
		FROM check_user_login($1)
	`, func(row pgx.Row) error {
		var (
			u     User
			typ   string
			phone pgtype.Text
			fsyID pgtype.Int8
		)
		if err := row.Scan(&u.ID, &u.FullName, &typ, &u.Email, &phone, &u.PasswordHash, &fsyID); err != nil {
			return err
		}
		u.Type = auth.Role(typ)
		u.PhoneNumber = phone.String
		u.FsyID = fsyID.Int64
		found = &u
		return nil
	}, email)
	if err != nil {
		return nil, fmt.Errorf("check_user_login: %w", err)
	}
	return found, nil
}

// UserInfo returns the user's company/group assignment, or nil when the
// user is not placed in a group.
func (r *Repository) UserInfo(ctx context.Context, userID int64) (*UserInfo, error) {
	var found *UserInfo
	err := r.db.Query(ctx, `
		SELECT fsy_id, full_name, company_id, company_name, group_id, group_name,
		       total_counselor, total_participant, stake_name, unit_name, venue
		FROM get_user_company_group($1)
	`, func(row pgx.Row) error {
		var (
			u           UserInfo
			stake, unit pgtype.Text
		)
		if err := row.Scan(&u.FsyID, &u.FullName, &u.CompanyID, &u.CompanyName, &u.GroupID, &u.GroupName,
			&u.TotalCounselor, &u.TotalParticipant, &stake, &unit, &u.Venue); err != nil {
			return err
		}
		u.StakeName, u.UnitName = stake.String, unit.String
		found = &u
		return nil
	}, userID)
	if err != nil {
		return nil, fmt.Errorf("get_user_company_group: %w", err)
	}
	return found, nil
}

// MemberInfo returns a registrant's profile, or nil.
func (r *Repository) MemberInfo(ctx context.Context, fsyID int64) (*MemberInfo, error) {
	var found *MemberInfo
	err := r.db.Query(ctx, `
		SELECT fsy_id, first_name, last_name, email, phone_number, stake_name, unit_name,
		       participant_type, company_name, group_name, room_name
		FROM get_member_info($1)
	`, func(row pgx.Row) error {
		var (
			m                                               MemberInfo
			email, phone, stake, unit, company, group, room pgtype.Text
		)
		if err := row.Scan(&m.FsyID, &m.FirstName, &m.LastName, &email, &phone, &stake, &unit,
			&m.ParticipantType, &company, &group, &room); err != nil {
			return err
		}
		m.Email, m.PhoneNumber = email.String, phone.String
		m.StakeName, m.UnitName = stake.String, unit.String
		m.CompanyName, m.GroupName, m.RoomName = company.String, group.String, room.String
		found = &m
		return nil
	}, fsyID)
	if err != nil {
		return nil, fmt.Errorf("get_member_info: %w", err)
	}
	return found, nil
}

// UpdateProfile sets the non-nil fields on the user row.
func (r *Repository) UpdateProfile(ctx context.Context, userID int64, email, phone, passwordHash *string) error {
	n, err := r.db.Exec(ctx, `
		UPDATE users SET
			email = COALESCE($2, email),
			phone_number = COALESCE($3, phone_number),
			password_hash = COALESCE($4, password_hash)
		WHERE user_id = $1
	`, userID, email, phone, passwordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Validation("email", "Email is already in use")
		}
		return fmt.Errorf("update profile: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}
