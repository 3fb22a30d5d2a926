// Package notes stores counselors' behavioural notes about participants in
// their own group.
package notes

import "time"

type NoteType string

const (
	TypePositive NoteType = "Positive"
	TypeNegative NoteType = "Negative"
)

type Category string

// Categories lists every accepted note category.
var Categories = []Category{
	"Group Participation",
	"Leadership Initiative",
	"Spiritual Insight",
	"Kindness/Service",
	"Attendance & Functionality",
	"Technology Misuse",
	"Group Behavior & Participation",
	"Curfew & Dorm Violations",
	"Cleanliness & Personal Responsibility",
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// Note is a stored participant note.
type Note struct {
	ID               int64     `json:"note_id"`
	ParticipantFsyID int64     `json:"participant_fsy_id"`
	CounselorFsyID   int64     `json:"counselor_fsy_id"`
	Type             NoteType  `json:"note_type"`
	Category         Category  `json:"category"`
	Message          string    `json:"message"`
	Severity         Severity  `json:"severity"`
	PhotoURL         *string   `json:"photo_url"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	CounselorName    string    `json:"counselor_name,omitempty"`
}

// Draft carries the editable fields of a note. ParticipantFsyID is only read
// on create.
type Draft struct {
	ParticipantFsyID int64    `json:"participant_fsy_id"`
	Type             NoteType `json:"note_type" validate:"required,oneof=Positive Negative"`
	Category         Category `json:"category" validate:"required"`
	Message          string   `json:"message" validate:"required,max=2000"`
	Severity         Severity `json:"severity" validate:"required,oneof=Low Medium High"`
	PhotoURL         *string  `json:"photo_url" validate:"omitempty,url"`
}
