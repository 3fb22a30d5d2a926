// Package attendance reads group rosters and records per-event attendance.
package attendance

import (
	"fmt"
)

// Status is a member's attendance for one event.
type Status string

const (
	StatusNotSet  Status = "Not Set"
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
	StatusExcused Status = "Excused"
)

var cycle = [...]Status{StatusNotSet, StatusPresent, StatusAbsent, StatusExcused}

// Next returns the status that follows s in the check-in cycle
// Not Set, Present, Absent, Excused and back to Not Set. Unknown values
// restart the cycle at Present.
func (s Status) Next() Status {
	for i, c := range cycle {
		if c == s {
			return cycle[(i+1)%len(cycle)]
		}
	}
	return StatusPresent
}

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	for _, c := range cycle {
		if c == s {
			return true
		}
	}
	return false
}

// ParseStatus converts a stored or submitted value. Empty means Not Set.
func ParseStatus(raw string) (Status, error) {
	if raw == "" {
		return StatusNotSet, nil
	}
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown attendance status %q", raw)
	}
	return s, nil
}

// MemberType separates counselors from participants within a group.
type MemberType string

const (
	TypeCounselor   MemberType = "Counselor"
	TypeParticipant MemberType = "Participant"
)

// Member is one roster row for an event.
type Member struct {
	FsyID              int64      `json:"fsy_id"`
	FirstName          string     `json:"first_name"`
	LastName           string     `json:"last_name"`
	Email              string     `json:"email"`
	PhoneNumber        string     `json:"phone_number"`
	StakeName          string     `json:"stake_name"`
	UnitName           string     `json:"unit_name"`
	Type               MemberType `json:"participant_type"`
	RegistrationStatus string     `json:"status"`
	AttendanceStatus   Status     `json:"attendance_status"`
}

// FullName joins first and last name.
func (m Member) FullName() string {
	return m.FirstName + " " + m.LastName
}

// Roster is a group's members for one event, split by role.
type Roster struct {
	Participants []Member `json:"participants"`
	Counselors   []Member `json:"counselors"`
}

// Split partitions members by type, keeping their order. Members of any
// other type are dropped.
func Split(members []Member) Roster {
	r := Roster{Participants: []Member{}, Counselors: []Member{}}
	for _, m := range members {
		switch m.Type {
		case TypeCounselor:
			r.Counselors = append(r.Counselors, m)
		case TypeParticipant:
			r.Participants = append(r.Participants, m)
		}
	}
	return r
}

// Len is the number of members in the roster.
func (r Roster) Len() int {
	return len(r.Participants) + len(r.Counselors)
}

// Mark is one member's status in a batch submission.
type Mark struct {
	FsyID  int64  `json:"fsy_id" validate:"gt=0"`
	Status Status `json:"attendance_status" validate:"required"`
}

// Submission is a full-roster attendance write for one group and event.
type Submission struct {
	EventID      int64  `json:"event_id" validate:"gt=0"`
	CompanyID    int64  `json:"company_id" validate:"gt=0"`
	GroupID      int64  `json:"group_id" validate:"gt=0"`
	UserID       int64  `json:"user_id" validate:"gt=0"`
	Participants []Mark `json:"participants" validate:"dive"`
	Counselors   []Mark `json:"counselors" validate:"dive"`
}

// SearchResult is a participant found by name.
type SearchResult struct {
	FsyID            int64  `json:"fsy_id"`
	Name             string `json:"name"`
	Stake            string `json:"stake"`
	Unit             string `json:"unit"`
	AttendanceStatus Status `json:"attendance_status"`
}
