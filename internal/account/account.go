// Package account handles login, profile data and the company/group
// membership that gates access to group data.
package account

import (
	"fsyportal/internal/auth"
)

// User is a login account.
type User struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"full_name"`
	Type         auth.Role `json:"type"`
	Email        string    `json:"email"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	PasswordHash string    `json:"-"`
	FsyID        int64     `json:"fsy_id,omitempty"`
}

// UserInfo is a user's company and group assignment with group headcounts.
type UserInfo struct {
	FsyID            int64   `json:"fsy_id"`
	FullName         string  `json:"full_name"`
	CompanyID        int64   `json:"company_id"`
	CompanyName      string  `json:"company_name"`
	GroupID          int64   `json:"group_id"`
	GroupName        string  `json:"group_name"`
	TotalCounselor   int64   `json:"total_counselor"`
	TotalParticipant int64   `json:"total_participant"`
	StakeName        string  `json:"stake_name"`
	UnitName         string  `json:"unit_name"`
	Venue            *string `json:"venue"`
}

// Group returns the user's group reference for access checks.
func (u UserInfo) Group() auth.GroupRef {
	return auth.GroupRef{
		CompanyID:   u.CompanyID,
		GroupID:     u.GroupID,
		CompanyName: u.CompanyName,
		GroupName:   u.GroupName,
	}
}

// MemberInfo is a registrant's profile with placement.
type MemberInfo struct {
	FsyID           int64  `json:"fsy_id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	PhoneNumber     string `json:"phone_number"`
	StakeName       string `json:"stake_name"`
	UnitName        string `json:"unit_name"`
	ParticipantType string `json:"participant_type"`
	CompanyName     string `json:"company_name"`
	GroupName       string `json:"group_name"`
	RoomName        string `json:"room_name"`
}

// ProfileUpdate changes any non-empty field of the user's own account.
type ProfileUpdate struct {
	UserID      int64  `json:"userId" validate:"gt=0"`
	Email       string `json:"email" validate:"omitempty,email,max=254"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=32"`
	Password    string `json:"password" validate:"omitempty,min=8,max=72"`
}

func (p ProfileUpdate) empty() bool {
	return p.Email == "" && p.PhoneNumber == "" && p.Password == ""
}
